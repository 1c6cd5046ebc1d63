package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gridkv/warden/pkg/observability"
)

// Storage backend types.
const (
	StorageMemory = "memory"
	StorageSQL    = "sql"
	StorageRedis  = "redis"
)

// Config holds all engine configuration.
type Config struct {
	Cache         CacheConfig
	Sweep         SweepConfig
	Storage       StorageConfig
	Observability ObservabilityConfig
}

// CacheConfig tunes the decision cache.
type CacheConfig struct {
	// TTLEpochs is the staleness window for cached decisions.
	TTLEpochs uint64
	// MaxEntriesPerPrincipal bounds each principal's LRU.
	MaxEntriesPerPrincipal int
}

// SweepConfig controls opportunistic garbage collection of expired grants.
type SweepConfig struct {
	Enabled bool
	// Schedule is a cron expression; expiry epochs come from the embedding
	// process's epoch source, the schedule only decides when to look.
	Schedule string
}

// StorageConfig selects the durable grant store behind the engine.
type StorageConfig struct {
	Type string

	// SQL backend
	SQLDriver string
	SQLDSN    string

	// Redis backend
	RedisURL       string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
}

// ObservabilityConfig holds logging, metrics, and trace-export settings.
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
	OTel           observability.OTelConfig
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Cache: CacheConfig{
			TTLEpochs:              uint64(getEnvInt("WARDEN_CACHE_TTL_EPOCHS", 100)),
			MaxEntriesPerPrincipal: getEnvInt("WARDEN_CACHE_MAX_ENTRIES", 4096),
		},
		Sweep: SweepConfig{
			Enabled:  getEnvBool("WARDEN_SWEEP_ENABLED", true),
			Schedule: getEnv("WARDEN_SWEEP_SCHEDULE", "@every 5m"),
		},
		Storage: StorageConfig{
			Type:           getEnv("WARDEN_STORAGE_TYPE", StorageMemory),
			SQLDriver:      getEnv("WARDEN_SQL_DRIVER", "sqlite3"),
			SQLDSN:         getEnv("WARDEN_SQL_DSN", ""),
			RedisURL:       getEnv("WARDEN_REDIS_URL", ""),
			RedisPassword:  getEnv("WARDEN_REDIS_PASSWORD", ""),
			RedisDB:        getEnvInt("WARDEN_REDIS_DB", 0),
			RedisKeyPrefix: getEnv("WARDEN_REDIS_KEY_PREFIX", "warden"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       parseLogLevel(getEnv("WARDEN_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("WARDEN_METRICS_ENABLED", true),
			OTel: observability.OTelConfig{
				Enabled:        getEnvBool("WARDEN_OTEL_ENABLED", false),
				Endpoint:       getEnv("WARDEN_OTEL_ENDPOINT", "localhost:4317"),
				ServiceName:    getEnv("WARDEN_OTEL_SERVICE_NAME", "warden"),
				ServiceVersion: getEnv("WARDEN_OTEL_SERVICE_VERSION", "dev"),
				Insecure:       getEnvBool("WARDEN_OTEL_INSECURE", true),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Cache.TTLEpochs == 0 {
		return fmt.Errorf("cache TTL must be at least one epoch")
	}
	if c.Cache.MaxEntriesPerPrincipal <= 0 {
		return fmt.Errorf("cache max entries must be positive")
	}

	if c.Sweep.Enabled && c.Sweep.Schedule == "" {
		return fmt.Errorf("sweep schedule is required when sweeping is enabled")
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageSQL:
		if c.Storage.SQLDSN == "" {
			return fmt.Errorf("SQL DSN is required for sql storage")
		}
		if c.Storage.SQLDriver == "" {
			return fmt.Errorf("SQL driver is required for sql storage")
		}
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory, sql, or redis)", c.Storage.Type)
	}

	if c.Observability.OTel.Enabled && c.Observability.OTel.Endpoint == "" {
		return fmt.Errorf("otel endpoint is required when otel export is enabled")
	}

	return nil
}

// parseLogLevel parses a log level string.
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
