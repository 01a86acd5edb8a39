package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/gpsearch/internal/async"
	"github.com/Aman-CERP/gpsearch/internal/config"
	gperrors "github.com/Aman-CERP/gpsearch/internal/errors"
	"github.com/Aman-CERP/gpsearch/internal/logging"
	"github.com/Aman-CERP/gpsearch/internal/mcp"
	"github.com/Aman-CERP/gpsearch/internal/telemetry"
	"github.com/Aman-CERP/gpsearch/internal/watcher"
)

// Query telemetry retention for the MCP server.
const (
	queryTermCapacity = 1000
	zeroResultHistory = 100
)

// serveOptions holds CLI flags for serve.
type serveOptions struct {
	transport string
	watch     bool
	reindex   bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server so AI assistants can search the site.

The server speaks JSON-RPC over stdio and offers the tools search,
spellcheck and index_status. Logs go to ~/.gpsearch/logs/gpsearch.log,
never to stdout.

With server.metrics_addr set, Prometheus metrics are served on /metrics.
With --watch and a SQLite source, changes to the database file trigger
a reindex.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "Transport type: stdio (default: server.transport)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reindex when the SQLite source file changes")
	cmd.Flags().BoolVar(&opts.reindex, "reindex", false, "Rebuild the index before serving")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// stdout belongs to the protocol: log to file only.
	level := cfg.Server.LogLevel
	if debugMode {
		level = "debug"
	}
	prev := slog.Default()
	cleanup, err := logging.SetupMCPMode(level)
	if err != nil {
		return err
	}
	defer cleanup()
	defer slog.SetDefault(prev)

	transport := opts.transport
	if transport == "" {
		transport = cfg.Server.Transport
	}
	if opts.watch && cfg.Source.Type != config.SourceSQLite {
		return gperrors.ConfigError("--watch needs a sqlite source", nil).
			WithDetail("source_type", cfg.Source.Type)
	}

	a, err := newAppWithConfig(ctx, cfg, slog.Default())
	if err != nil {
		slog.Error("serve_init_failed", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = a.Close() }()

	srv, err := mcp.NewServer(a.indexer, cfg)
	if err != nil {
		return err
	}
	srv.SetLogger(a.logger)
	srv.SetQueryLog(telemetry.NewQueryLog(queryTermCapacity, zeroResultHistory))

	// The rebuild runs in the background: tools answer from the old index
	// meanwhile and index_status reports progress.
	if opts.reindex {
		if err := checkSource(a); err != nil {
			return err
		}
		bg := async.NewBackgroundIndexer(func(ctx context.Context, p *async.IndexProgress) error {
			_, err := reindexFromSource(ctx, a, p)
			return err
		})
		srv.SetProgress(bg.Progress())
		bg.Start(ctx)
		defer bg.Stop()
	}

	// The MCP session ending stops the metrics server and the watcher.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Server.MetricsAddr, a.metrics)
		})
	}

	if opts.watch {
		g.Go(func() error {
			return watchSource(gctx, a)
		})
	}

	g.Go(func() error {
		defer cancel()
		err := srv.Serve(gctx, transport)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	return g.Wait()
}

// serveMetrics serves Prometheus metrics on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, m *telemetry.Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	hs := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics_server_started", slog.String("addr", addr))
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics_server_failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// watchSource reindexes whenever the SQLite source file changes.
func watchSource(ctx context.Context, a *app) error {
	w, err := watcher.New(watcher.Options{DebounceWindow: a.cfg.Source.Debounce()})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	return w.Run(ctx, a.cfg.Source.DSN, func(ctx context.Context, events []watcher.FileEvent) error {
		slog.Info("source_changed", slog.Int("events", len(events)))
		_, err := reindexFromSource(ctx, a, nil)
		return err
	})
}
