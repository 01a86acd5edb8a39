package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/gpsearch/internal/async"
	gperrors "github.com/Aman-CERP/gpsearch/internal/errors"
	"github.com/Aman-CERP/gpsearch/internal/index"
	"github.com/Aman-CERP/gpsearch/internal/output"
	"github.com/Aman-CERP/gpsearch/internal/source"
)

func newReindexCmd() *cobra.Command {
	var (
		sourceType string
		dsn        string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the index from the site database",
		Long: `Drop the search index with its documents, create it again and index
every discussion, page and task read from the site database.

A lock file in data_dir keeps two rebuilds from running at once.`,
		Example: `  # Use source.type and source.dsn from the configuration
  gpsearch reindex

  # Read a SQLite copy of the site database
  gpsearch reindex --source sqlite --dsn ./site.db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if sourceType != "" {
				a.cfg.Source.Type = sourceType
			}
			if dsn != "" {
				a.cfg.Source.DSN = dsn
			}

			res, err := reindexFromSource(cmd.Context(), a, nil)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printReindexResult(output.New(cmd.OutOrStdout()), res)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceType, "source", "", "Source type: sqlite, postgres (default: source.type)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Source DSN or SQLite path (default: source.dsn)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// checkSource reports a missing record source configuration.
func checkSource(a *app) error {
	if a.cfg.Source.Type == "" || a.cfg.Source.DSN == "" {
		return gperrors.ConfigError("no record source configured", nil).
			WithSuggestion("Set source.type and source.dsn, or pass --source and --dsn")
	}
	return nil
}

// reindexFromSource opens the configured source and rebuilds the index from
// it. A non-nil progress is kept up to date while the rebuild runs.
func reindexFromSource(ctx context.Context, a *app, progress *async.IndexProgress) (*index.ReindexResult, error) {
	if err := checkSource(a); err != nil {
		return nil, err
	}

	src, err := source.Open(ctx, a.cfg.Source.Type, a.cfg.Source.DSN)
	if err != nil {
		return nil, gperrors.New(gperrors.ErrCodeSourceUnavailable, "failed to open record source", err).
			WithDetail("type", a.cfg.Source.Type)
	}
	defer func() { _ = src.Close() }()

	if progress != nil {
		progress.SetStage(async.StageIndexing, len(src.Doctypes()))
		a.progress.Store(progress)
		defer a.progress.Store(nil)
	}

	res, err := a.indexer.Reindex(ctx, src)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress.SetRunID(res.RunID)
	}
	a.logger.Info("reindex_finished",
		slog.String("run_id", res.RunID),
		slog.Int("total", res.Total),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// printReindexResult prints per-doctype counts of a rebuild.
func printReindexResult(out *output.Writer, res *index.ReindexResult) {
	if res.Skipped {
		out.Warning("Search module not available, reindex skipped")
		return
	}
	out.Successf("Indexed %d record(s) in %s", res.Total, res.Duration.Round(time.Millisecond))
	for _, doctype := range res.Doctypes() {
		out.KeyValue(doctype+":", res.Counts[doctype])
	}
	out.KeyValue("Run ID:", res.RunID)
}
