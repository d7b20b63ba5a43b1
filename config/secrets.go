package config

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretGetter resolves a named secret to its string value.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClient reads secrets from AWS Secrets Manager and caches them for
// the life of the process.
type SecretsClient struct {
	client secretsAPI
	cache  map[string]string
	mu     sync.RWMutex
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return &SecretsClient{
		client: secretsmanager.NewFromConfig(cfg),
		cache:  make(map[string]string),
	}
}

func (s *SecretsClient) GetSecret(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	if v, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(name)})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}

	s.mu.Lock()
	s.cache[name] = *out.SecretString
	s.mu.Unlock()
	return *out.SecretString, nil
}

// ApplySecrets overrides the JWT secret and database credentials with the
// values stored under <SecretsPrefix>/JWT_SECRET and <SecretsPrefix>/DB_CREDENTIALS.
// Missing secrets leave the environment values in place.
func (c *Config) ApplySecrets(ctx context.Context, sm SecretGetter) error {
	if jwt, err := sm.GetSecret(ctx, c.SecretsPrefix+"/JWT_SECRET"); err == nil && jwt != "" {
		c.JWTSecret = jwt
	}

	raw, err := sm.GetSecret(ctx, c.SecretsPrefix+"/DB_CREDENTIALS")
	if err != nil || raw == "" {
		return nil
	}
	var creds map[string]string
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return fmt.Errorf("invalid DB_CREDENTIALS secret: %w", err)
	}
	overrides := map[string]*string{
		"POSTGRES_USER":     &c.PostgresUser,
		"POSTGRES_PASSWORD": &c.PostgresPassword,
		"POSTGRES_DB":       &c.PostgresDB,
		"POSTGRES_HOST":     &c.PostgresHost,
		"POSTGRES_PORT":     &c.PostgresPort,
	}
	for key, dst := range overrides {
		if v := creds[key]; v != "" {
			*dst = v
		}
	}
	return nil
}
