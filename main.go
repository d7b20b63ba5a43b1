package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-service/apperrors"
	"storefront-service/cache"
	"storefront-service/config"
	"storefront-service/controllers"
	"storefront-service/database"
	"storefront-service/events"
	"storefront-service/logger"
	"storefront-service/metrics"
	"storefront-service/middleware"
	"storefront-service/repository"
	"storefront-service/routes"
	"storefront-service/services"
)

const sweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Initialize(os.Getenv("APP_ENV")).Fatal("Invalid configuration", zap.Error(err))
	}
	log := logger.Initialize(cfg.Env)
	defer func() { _ = log.Sync() }()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	aws := newAWSLoader()
	if cfg.UseSecrets {
		if awsCfg, err := aws.load(ctx); err != nil {
			log.Warn("Secrets Manager unavailable, using environment values", zap.Error(err))
		} else if err := cfg.ApplySecrets(ctx, config.NewSecretsClient(awsCfg)); err != nil {
			log.Fatal("Invalid secret", zap.Error(err))
		}
		if err := cfg.Validate(); err != nil {
			log.Fatal("Invalid configuration", zap.Error(err))
		}
	}

	// Stores
	var (
		stores repository.Stores
		db     *gorm.DB
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("Using in-memory store; data is lost on restart")
		stores = repository.NewMemoryStore().Stores()
	default:
		var migrate []interface{}
		if cfg.AutoMigrate {
			migrate = repository.Models()
		}
		db, err = database.ConnectPostgres(cfg.PostgresDSN(), log, migrate...)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		stores = repository.NewGormStores(db)
	}

	// Idempotency keys
	var (
		idempotency cache.IdempotencyStore
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		idempotency = cache.NewRedisIdempotencyStore(redisClient, cfg.IdempotencyTTL)
	} else {
		log.Warn("REDIS_URL not set; idempotency keys are kept in process memory")
		idempotency = cache.NewMemoryIdempotencyStore(cfg.IdempotencyTTL)
	}

	publisher := newPublisher(ctx, cfg, aws, log)

	// Services
	cartRepo := services.NewCartRepository(stores.Carts, stores.Lines, log)
	sessions := services.NewSessionRegistry(cartRepo, cfg.SessionIdleTTL, log)
	orderService := services.NewOrderService(stores.Orders, cartRepo, idempotency, publisher, cfg.DefaultDeliveryETA, log)
	packageService := services.NewPackageOrderService(stores.Orders, stores.Packages, publisher, services.PackageConfig{
		BasePrice:  cfg.PackageBasePrice,
		VendorID:   cfg.PackageVendorID,
		DefaultETA: cfg.DefaultDeliveryETA,
	}, log)

	limiter := middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimitPerMinute), cfg.RateLimitBurst)
	go sessions.Run(ctx, sweepInterval)
	go pruneLimiter(ctx, limiter, cfg.SessionIdleTTL)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	if len(cfg.CORSOrigins) > 0 {
		router.Use(middleware.CORS(cfg.CORSOrigins))
	}
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.Metrics(newRecorder(ctx, cfg, aws, log), "storefront"),
		middleware.Timeout(cfg.RequestTimeout),
		apperrors.ErrorMiddleware(),
	)
	routes.RegisterRoutes(router, routes.Dependencies{
		Cart:        controllers.NewCartController(sessions, log),
		Orders:      controllers.NewOrderController(orderService, sessions, log),
		Packages:    controllers.NewPackageController(packageService),
		JWTSecret:   cfg.JWTSecret,
		RateLimiter: limiter,
		Health:      healthCheck(db, redisClient),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("Storefront service is running", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown error", zap.Error(err))
	}
	if err := publisher.Close(); err != nil {
		log.Warn("Failed to close event publisher", zap.Error(err))
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := database.Close(db); err != nil {
		log.Warn("Failed to close database", zap.Error(err))
	}
	log.Info("Server shutdown complete")
}

// awsLoader loads the shared AWS config once, on first use.
type awsLoader struct {
	once sync.Once
	cfg  sdkaws.Config
	err  error
}

func newAWSLoader() *awsLoader { return &awsLoader{} }

func (l *awsLoader) load(ctx context.Context) (sdkaws.Config, error) {
	l.once.Do(func() { l.cfg, l.err = events.LoadAWSConfig(ctx) })
	return l.cfg, l.err
}

func newRecorder(ctx context.Context, cfg *config.Config, aws *awsLoader, log *zap.Logger) metrics.Recorder {
	if !cfg.MetricsEnabled {
		return nil
	}
	awsCfg, err := aws.load(ctx)
	if err != nil {
		log.Error("CloudWatch metrics disabled", zap.Error(err))
		return nil
	}
	log.Info("Recording request metrics to CloudWatch", zap.String("namespace", cfg.MetricsNamespace))
	return metrics.NewCloudWatch(awsCfg, cfg.MetricsNamespace)
}

// newPublisher fans order events out to every configured sink.
func newPublisher(ctx context.Context, cfg *config.Config, aws *awsLoader, log *zap.Logger) events.Publisher {
	var sinks events.MultiPublisher
	if len(cfg.KafkaBrokers) > 0 {
		sinks = append(sinks, events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.OrderEventsTopic))
		log.Info("Publishing order events to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.OrderEventsTopic))
	}
	if cfg.OrderEventsSNSTopic != "" {
		awsCfg, err := aws.load(ctx)
		if err != nil {
			log.Error("SNS publishing disabled", zap.Error(err))
		} else {
			sinks = append(sinks, events.NewSNSPublisher(awsCfg, cfg.OrderEventsSNSTopic))
			log.Info("Publishing order events to SNS", zap.String("topic_arn", cfg.OrderEventsSNSTopic))
		}
	}
	if len(sinks) == 0 {
		return events.NoopPublisher{}
	}
	return sinks
}

func pruneLimiter(ctx context.Context, limiter *middleware.RateLimiter, idle time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Prune(idle)
		}
	}
}

func healthCheck(db *gorm.DB, redisClient *redis.Client) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if db != nil {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				return err
			}
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return err
			}
		}
		return nil
	}
}
