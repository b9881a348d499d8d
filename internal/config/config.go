// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTSecret is the symmetric HMAC signing secret shared by all instances.
	// Required for the server; must never be generated per instance, since two
	// instances must verify each other's tokens.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim set on issued tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h"). Refresh tokens share
	// the access token mechanism and differ only in TTL and issuing endpoint.
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// Argon2MemoryKiB is the Argon2id memory cost in KiB; default 65536 (64 MiB).
	Argon2MemoryKiB int `mapstructure:"ARGON2_MEMORY_KIB"`
	// Argon2Time is the Argon2id time cost (iterations); default 3.
	Argon2Time int `mapstructure:"ARGON2_TIME"`
	// Argon2Parallelism is the Argon2id lane count; default 2.
	Argon2Parallelism int `mapstructure:"ARGON2_PARALLELISM"`
	// AuditQueueSize is the buffered queue length of the async audit recorder; default 256.
	AuditQueueSize int `mapstructure:"AUDIT_QUEUE_SIZE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// Audit stream (optional). When Kafka brokers are set, persisted audit events are
	// also published to Kafka for the compliance worker.
	// AuditKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	AuditKafkaBrokers string `mapstructure:"AUDIT_KAFKA_BROKERS"`
	// AuditKafkaTopic is the Kafka topic for audit events (default registry-audit).
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the audit worker to push events (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the audit worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "registry-auth")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d, 7x the access TTL
	v.SetDefault("ARGON2_MEMORY_KIB", 65536)
	v.SetDefault("ARGON2_TIME", 3)
	v.SetDefault("ARGON2_PARALLELISM", 2)
	v.SetDefault("AUDIT_QUEUE_SIZE", 256)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("AUDIT_KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "registry-audit")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "registry-audit-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.Argon2MemoryKiB < 0 || cfg.Argon2Time < 0 || cfg.Argon2Parallelism < 0 {
		return nil, errors.New("config: argon2 parameters must not be negative")
	}
	if cfg.AuditQueueSize <= 0 {
		cfg.AuditQueueSize = 256
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// AuditKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the audit stream is enabled (non-empty list) and to create the producer.
func (c *Config) AuditKafkaBrokersList() []string {
	if c == nil || c.AuditKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.AuditKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
