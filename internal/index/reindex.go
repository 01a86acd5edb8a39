package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	gperrors "github.com/Aman-CERP/gpsearch/internal/errors"
	"github.com/Aman-CERP/gpsearch/internal/source"
)

// ReindexResult summarizes a rebuild.
type ReindexResult struct {
	RunID    string         `json:"run_id"`
	Counts   map[string]int `json:"counts"`
	Total    int            `json:"total"`
	Duration time.Duration  `json:"duration"`
	Skipped  bool           `json:"skipped"`
}

// Doctypes returns the doctypes in the result, sorted.
func (r *ReindexResult) Doctypes() []string {
	names := make([]string, 0, len(r.Counts))
	for name := range r.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reindex rebuilds the index from src: drop it with its documents, create it
// again and write every record, reading doctypes in parallel.
//
// With a data directory a file lock guards the rebuild; if another process
// holds it Reindex fails with ERR_202_LOCK_HELD. A degraded index is skipped.
func (ix *Indexer) Reindex(ctx context.Context, src source.Source) (*ReindexResult, error) {
	start := time.Now()
	res := &ReindexResult{RunID: uuid.NewString(), Counts: make(map[string]int)}
	logger := ix.logger.With(slog.String("run_id", res.RunID))

	if ix.index.Degraded() {
		logger.Warn("reindex_skipped_degraded", slog.String("index", ix.index.Name()))
		res.Skipped = true
		return res, nil
	}

	if ix.dataDir != "" {
		lock := NewFileLock(ix.dataDir)
		acquired, err := lock.TryLock()
		if err != nil {
			return nil, gperrors.Wrap(gperrors.ErrCodeReindexFailed, err)
		}
		if !acquired {
			return nil, gperrors.New(gperrors.ErrCodeLockHeld, "another reindex is running", nil).
				WithDetail("lock", lock.Path())
		}
		defer func() { _ = lock.Unlock() }()
	}

	logger.Info("reindex_started",
		slog.String("index", ix.index.Name()),
		slog.Int("doctypes", len(src.Doctypes())))

	if err := ix.index.Drop(ctx); err != nil {
		return nil, err
	}
	if err := ix.index.Create(ctx); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for _, doctype := range src.Doctypes() {
		g.Go(func() error {
			n := 0
			err := src.Each(gctx, doctype, func(r source.Record) error {
				if err := ix.IndexRecord(gctx, r); err != nil {
					return fmt.Errorf("%s %s: %w", r.Doctype, r.Name, err)
				}
				n++
				return nil
			})
			if err != nil {
				return err
			}

			mu.Lock()
			res.Counts[doctype] = n
			res.Total += n
			mu.Unlock()

			if ix.onBatch != nil {
				ix.onBatch(doctype, n)
			}
			logger.Debug("reindex_doctype_done",
				slog.String("doctype", doctype),
				slog.Int("records", n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("reindex_failed", slog.String("error", err.Error()))
		return nil, gperrors.New(gperrors.ErrCodeReindexFailed, "reindex failed", err).
			WithDetail("run_id", res.RunID)
	}

	res.Duration = time.Since(start)
	logger.Info("reindex_completed",
		slog.Int("records", res.Total),
		slog.Duration("duration", res.Duration))
	return res, nil
}
