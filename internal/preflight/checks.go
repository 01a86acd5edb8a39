package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/gpsearch/internal/config"
	"github.com/Aman-CERP/gpsearch/internal/search"
	"github.com/Aman-CERP/gpsearch/internal/source"
	"github.com/Aman-CERP/gpsearch/internal/store"
)

// errStop ends a source scan after the first record.
var errStop = errors.New("stop")

// CheckDataDir checks that the reindex lock can be written.
func (c *Checker) CheckDataDir(dir string) CheckResult {
	result := CheckResult{
		Name:     "data_dir",
		Required: true,
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", dir, err)
		return result
	}

	testFile := filepath.Join(dir, ".gpsearch-preflight-test")
	f, err := os.Create(testFile)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	result.Status = StatusPass
	result.Message = "OK"
	result.Details = dir
	return result
}

// CheckBackend checks that the backing store answers.
func (c *Checker) CheckBackend(ctx context.Context, b store.Backend) CheckResult {
	result := CheckResult{
		Name:     "backend",
		Required: true,
	}
	if b == nil {
		result.Status = StatusFail
		result.Message = "no backend configured"
		return result
	}

	if err := b.Ping(ctx); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s unreachable", b.Name())
		result.Details = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = b.Name() + " OK"
	return result
}

// CheckSearchModule checks that the store can define search indexes.
// Without the module gpsearch runs but every index operation is a no-op.
func (c *Checker) CheckSearchModule(ctx context.Context, b store.Backend) CheckResult {
	result := CheckResult{
		Name: "search_module",
	}

	names, err := b.ListIndexes(ctx)
	switch {
	case errors.Is(err, store.ErrModuleMissing):
		result.Status = StatusWarn
		result.Message = "search module not loaded: indexing and search are disabled"
		result.Details = "Load RediSearch (or use Redis Stack) on the Redis server"
	case err != nil:
		result.Status = StatusFail
		result.Message = "failed to list indexes"
		result.Details = err.Error()
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("OK (%d index(es) defined)", len(names))
	}
	return result
}

// CheckIndex checks that the search index exists.
func (c *Checker) CheckIndex(ctx context.Context, idx *search.Index, openErr error) CheckResult {
	result := CheckResult{
		Name: "index",
	}
	if idx == nil {
		result.Status = StatusFail
		result.Message = "cannot open index"
		if openErr != nil {
			result.Details = openErr.Error()
		}
		return result
	}

	st, err := idx.Status(ctx)
	switch {
	case err != nil:
		result.Status = StatusFail
		result.Message = "cannot read index status"
		result.Details = err.Error()
	case st.Degraded:
		result.Status = StatusWarn
		result.Message = "skipped: search module not loaded"
	case !st.Exists:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s does not exist", st.Name)
		result.Details = "Run 'gpsearch reindex' to build it"
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%s (%d documents)", st.Name, st.NumDocs)
	}
	return result
}

// CheckSource checks that every doctype table of the record source can be read.
func (c *Checker) CheckSource(ctx context.Context, cfg config.SourceConfig) CheckResult {
	result := CheckResult{
		Name: "source",
	}
	if cfg.Type == "" || cfg.DSN == "" {
		result.Status = StatusWarn
		result.Message = "no record source configured: reindex is unavailable"
		return result
	}

	src, err := source.Open(ctx, cfg.Type, cfg.DSN)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot open %s source", cfg.Type)
		result.Details = err.Error()
		return result
	}
	defer func() { _ = src.Close() }()

	for _, doctype := range src.Doctypes() {
		err := src.Each(ctx, doctype, func(source.Record) error { return errStop })
		if err != nil && !errors.Is(err, errStop) {
			result.Status = StatusFail
			result.Message = fmt.Sprintf("cannot read %s", doctype)
			result.Details = err.Error()
			return result
		}
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s OK (%d doctypes)", cfg.Type, len(src.Doctypes()))
	return result
}
