package warden

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gridkv/warden/pkg/audit"
	"github.com/gridkv/warden/pkg/cache"
	"github.com/gridkv/warden/pkg/config"
	"github.com/gridkv/warden/pkg/grants"
	"github.com/gridkv/warden/pkg/observability"
	"github.com/gridkv/warden/pkg/roles"
	"github.com/gridkv/warden/pkg/storage"
)

// Engine is a fully wired Service plus its operational companions, built
// from environment-driven configuration. Embedders that want finer control
// assemble Config and New directly instead.
type Engine struct {
	Service *Service

	// Sweeper is nil when sweeping is disabled in the configuration. When
	// set it is already started.
	Sweeper *Sweeper

	// Registry carries the engine's metrics; nil when metrics are disabled.
	Registry *prometheus.Registry

	persistence storage.Persistence
	otel        *observability.OTel
}

// NewFromConfig builds an Engine from configuration, typically loaded with
// config.LoadConfig. epochFn supplies the current epoch for scheduled sweeps.
// For the sql storage type the corresponding database/sql driver must be
// linked into the binary.
func NewFromConfig(ctx context.Context, cfg *config.Config, registry *roles.Registry, epochFn func() grants.Epoch) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	otelProviders, err := observability.InitOTel(ctx, cfg.Observability.OTel, logger)
	if err != nil {
		return nil, err
	}

	persistence, err := openPersistence(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	var (
		promRegistry *prometheus.Registry
		metrics      *observability.Metrics
	)
	if cfg.Observability.MetricsEnabled {
		promRegistry = prometheus.NewRegistry()
		metrics = observability.NewMetrics(promRegistry)
	}

	svc, err := New(ctx, Config{
		Roles: registry,
		Cache: cache.Config{
			TTL:                    grants.Epoch(cfg.Cache.TTLEpochs),
			MaxEntriesPerPrincipal: cfg.Cache.MaxEntriesPerPrincipal,
		},
		Persistence: persistence,
		Audit:       audit.NewLogRecorder(logger),
		Logger:      logger,
		Metrics:     metrics,
	})
	if err != nil {
		if persistence != nil {
			persistence.Close()
		}
		return nil, err
	}

	engine := &Engine{
		Service:     svc,
		Registry:    promRegistry,
		persistence: persistence,
		otel:        otelProviders,
	}

	if cfg.Sweep.Enabled {
		sweeper, err := NewSweeper(svc, cfg.Sweep.Schedule, epochFn, logger)
		if err != nil {
			if persistence != nil {
				persistence.Close()
			}
			return nil, err
		}
		sweeper.Start()
		engine.Sweeper = sweeper
	}

	return engine, nil
}

// Close stops the sweeper, flushes telemetry, and releases the storage
// backend.
func (e *Engine) Close() error {
	if e.Sweeper != nil {
		e.Sweeper.Stop()
	}
	if err := e.otel.Shutdown(context.Background()); err != nil {
		return err
	}
	if e.persistence != nil {
		return e.persistence.Close()
	}
	return nil
}

func openPersistence(ctx context.Context, cfg config.StorageConfig) (storage.Persistence, error) {
	switch cfg.Type {
	case config.StorageMemory:
		return storage.NewMemory(), nil
	case config.StorageSQL:
		db, err := sql.Open(cfg.SQLDriver, cfg.SQLDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s database: %w", cfg.SQLDriver, err)
		}
		store, err := storage.NewSQLStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	case config.StorageRedis:
		return storage.NewRedisStore(storage.RedisConfig{
			URL:       cfg.RedisURL,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
