package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridkv/warden/pkg/observability"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, uint64(100), cfg.Cache.TTLEpochs)
	assert.Equal(t, 4096, cfg.Cache.MaxEntriesPerPrincipal)
	assert.True(t, cfg.Sweep.Enabled)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.False(t, cfg.Observability.OTel.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Observability.OTel.Endpoint)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("WARDEN_CACHE_TTL_EPOCHS", "50")
	t.Setenv("WARDEN_STORAGE_TYPE", "redis")
	t.Setenv("WARDEN_REDIS_URL", "redis://localhost:6379")
	t.Setenv("WARDEN_LOG_LEVEL", "debug")
	t.Setenv("WARDEN_SWEEP_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, uint64(50), cfg.Cache.TTLEpochs)
	assert.Equal(t, StorageRedis, cfg.Storage.Type)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.False(t, cfg.Sweep.Enabled)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Cache: CacheConfig{TTLEpochs: 100, MaxEntriesPerPrincipal: 64},
			Sweep: SweepConfig{Enabled: true, Schedule: "@every 1m"},
			Storage: StorageConfig{
				Type:      StorageMemory,
				SQLDriver: "sqlite3",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "zero ttl",
			mutate:  func(c *Config) { c.Cache.TTLEpochs = 0 },
			wantErr: "TTL",
		},
		{
			name:    "bad cache size",
			mutate:  func(c *Config) { c.Cache.MaxEntriesPerPrincipal = 0 },
			wantErr: "max entries",
		},
		{
			name:    "sweep enabled without schedule",
			mutate:  func(c *Config) { c.Sweep.Schedule = "" },
			wantErr: "sweep schedule",
		},
		{
			name:    "sql without dsn",
			mutate:  func(c *Config) { c.Storage.Type = StorageSQL },
			wantErr: "SQL DSN",
		},
		{
			name:    "redis without url",
			mutate:  func(c *Config) { c.Storage.Type = StorageRedis },
			wantErr: "redis URL",
		},
		{
			name:    "unknown storage",
			mutate:  func(c *Config) { c.Storage.Type = "tape" },
			wantErr: "invalid storage type",
		},
		{
			name: "otel enabled without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTel.Enabled = true
				c.Observability.OTel.Endpoint = ""
			},
			wantErr: "otel endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
