package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Port string
	Env  string

	StoreDriver      string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string
	AutoMigrate      bool

	RedisURL       string
	IdempotencyTTL time.Duration

	KafkaBrokers        []string
	OrderEventsTopic    string
	OrderEventsSNSTopic string
	JWTSecret           string
	PackageBasePrice    int64
	PackageVendorID     string
	DefaultDeliveryETA  time.Duration
	RequestTimeout      time.Duration
	RateLimitPerMinute  int
	RateLimitBurst      int
	SessionIdleTTL      time.Duration

	CORSOrigins      []string
	MetricsEnabled   bool
	MetricsNamespace string
	UseSecrets       bool
	SecretsPrefix    string
}

// Load reads configuration from the environment, falling back to a local
// .env file when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8090"),
		Env:                 getEnv("APP_ENV", "development"),
		StoreDriver:         getEnv("STORE_DRIVER", StoreDriverPostgres),
		PostgresUser:        os.Getenv("POSTGRES_USER"),
		PostgresPassword:    os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:          os.Getenv("POSTGRES_DB"),
		PostgresHost:        getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:        getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:     getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone:    getEnv("POSTGRES_TIMEZONE", "UTC"),
		RedisURL:            os.Getenv("REDIS_URL"),
		OrderEventsTopic:    getEnv("ORDER_EVENTS_TOPIC", "order.created"),
		OrderEventsSNSTopic: os.Getenv("ORDER_EVENTS_SNS_TOPIC_ARN"),
		JWTSecret:           strings.TrimSpace(os.Getenv("JWT_SECRET")),
		PackageVendorID:     getEnv("PACKAGE_VENDOR_ID", "parcel"),
		KafkaBrokers:        splitList(os.Getenv("KAFKA_BROKERS")),
		CORSOrigins:         splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		MetricsNamespace:    getEnv("CLOUDWATCH_NAMESPACE", "Storefront"),
		SecretsPrefix:       getEnv("AWS_SECRETS_PREFIX", "storefront"),
	}

	var err error
	if cfg.MetricsEnabled, err = strconv.ParseBool(getEnv("CLOUDWATCH_ENABLED", "false")); err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_ENABLED: %w", err)
	}
	if cfg.UseSecrets, err = strconv.ParseBool(getEnv("AWS_USE_SECRETS", "false")); err != nil {
		return nil, fmt.Errorf("invalid AWS_USE_SECRETS: %w", err)
	}
	if cfg.AutoMigrate, err = strconv.ParseBool(getEnv("DB_AUTO_MIGRATE", "false")); err != nil {
		return nil, fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
	}
	if cfg.PackageBasePrice, err = strconv.ParseInt(getEnv("PACKAGE_BASE_PRICE", "50000"), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid PACKAGE_BASE_PRICE: %w", err)
	}
	if cfg.RateLimitPerMinute, err = strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "100")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "50")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"IDEMPOTENCY_TTL", "24h", &cfg.IdempotencyTTL},
		{"DEFAULT_DELIVERY_ETA", "30m", &cfg.DefaultDeliveryETA},
		{"REQUEST_TIMEOUT", "30s", &cfg.RequestTimeout},
		{"SESSION_IDLE_TTL", "30m", &cfg.SessionIdleTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	// credentials may still arrive from Secrets Manager; main validates after ApplySecrets
	if cfg.UseSecrets {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected store has what it needs to connect.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" {
			return fmt.Errorf("database config incomplete")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// PostgresDSN builds the connection string for the gorm postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone,
	)
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
