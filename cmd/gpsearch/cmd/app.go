package cmd

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/Aman-CERP/gpsearch/internal/async"
	"github.com/Aman-CERP/gpsearch/internal/config"
	gperrors "github.com/Aman-CERP/gpsearch/internal/errors"
	"github.com/Aman-CERP/gpsearch/internal/index"
	"github.com/Aman-CERP/gpsearch/internal/logging"
	"github.com/Aman-CERP/gpsearch/internal/search"
	"github.com/Aman-CERP/gpsearch/internal/store"
	"github.com/Aman-CERP/gpsearch/internal/telemetry"
)

// app bundles what every index command needs.
type app struct {
	cfg     *config.Config
	backend store.Backend
	indexer *index.Indexer
	metrics *telemetry.Metrics
	logger  *slog.Logger

	// progress receives per-doctype counts while a tracked rebuild runs.
	progress atomic.Pointer[async.IndexProgress]
}

// openBackend connects to the configured store. Tests replace it to share an
// in-memory backend across command runs.
var openBackend = func(cfg *config.Config) (store.Backend, error) {
	dial, read, write := cfg.Backend.Timeouts()
	return store.New(store.Options{
		Type:         cfg.Backend.Type,
		Addr:         cfg.Backend.Addr,
		Username:     cfg.Backend.Username,
		Password:     cfg.Backend.Password,
		DB:           cfg.Backend.DB,
		DialTimeout:  dial,
		ReadTimeout:  read,
		WriteTimeout: write,
	})
}

// loadConfig loads the layered configuration for the --dir project.
func loadConfig() (*config.Config, error) {
	return config.Load(projectDir)
}

// newApp loads the configuration and opens the Gameplan index.
func newApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newAppWithConfig(ctx, cfg, logger)
}

// newAppWithConfig opens the Gameplan index described by cfg.
// When logger is nil, the default logger is used if --debug is set and a
// stderr logger at the configured level otherwise.
func newAppWithConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if logger == nil {
		if debugMode {
			logger = slog.Default()
		} else {
			logger = logging.StderrLogger(cfg.Server.LogLevel)
		}
	}

	backend, err := openBackend(cfg)
	if err != nil {
		return nil, gperrors.ConfigError("failed to open backend", err).
			WithSuggestion("Set backend.type to redis or memory")
	}

	metrics := telemetry.NewMetrics()
	idx, err := search.New(ctx, backend, cfg.Index.Name, cfg.Index.Prefix, index.Schema(),
		search.WithLogger(logger),
		search.WithNamespace(cfg.Backend.Namespace),
		search.WithCache(cfg.Search.CacheSize, cfg.Search.CacheExpiry()),
		search.WithMetrics(metrics),
	)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		backend: backend,
		metrics: metrics,
		logger:  logger,
	}
	a.indexer = index.NewIndexer(idx,
		index.WithDataDir(cfg.DataDir),
		index.WithWorkers(cfg.Source.Workers),
		index.WithLogger(logger),
		index.WithReindexObserver(func(doctype string, n int) {
			metrics.RecordReindexed(doctype, n)
			a.progress.Load().DoctypeDone(doctype, n)
		}),
	)
	return a, nil
}

// index returns the search index.
func (a *app) index() *search.Index {
	return a.indexer.Index()
}

// Close releases the backend connection.
func (a *app) Close() error {
	return a.backend.Close()
}
