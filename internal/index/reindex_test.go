package index

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gperrors "github.com/Aman-CERP/gpsearch/internal/errors"
	"github.com/Aman-CERP/gpsearch/internal/search"
	"github.com/Aman-CERP/gpsearch/internal/source"
	"github.com/Aman-CERP/gpsearch/internal/store"
)

func TestReindex_RebuildsFromSource(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	observed := map[string]int{}
	ix, _ := newTestIndexer(t,
		WithDataDir(t.TempDir()),
		WithWorkers(3),
		WithReindexObserver(func(doctype string, n int) {
			mu.Lock()
			observed[doctype] = n
			mu.Unlock()
		}))

	// Given: a stale document from before the rebuild
	require.NoError(t, ix.Index().Create(ctx))
	require.NoError(t, ix.IndexRecord(ctx, source.Record{Doctype: "GP Page", Name: "OLD", Title: "stale"}))

	// When: reindexing from the source
	res, err := ix.Reindex(ctx, source.Static(sampleRecords()...))
	require.NoError(t, err)

	// Then: counts are reported per doctype under a run id
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, []string{"GP Discussion", "GP Page", "GP Task"}, res.Doctypes())
	assert.Equal(t, map[string]int{"GP Discussion": 1, "GP Page": 1, "GP Task": 1}, observed)

	// And: the stale document is gone while new ones are searchable
	stale, err := ix.Search(ctx, "stale", search.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, stale.Total)

	launch, err := ix.Search(ctx, "launch", search.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, launch.Total)
}

func TestReindex_LockHeld(t *testing.T) {
	dir := t.TempDir()
	ix, _ := newTestIndexer(t, WithDataDir(dir))

	// Given: another holder of the reindex lock
	other := NewFileLock(dir)
	acquired, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, acquired)
	defer func() { _ = other.Unlock() }()

	// When: reindexing
	_, err = ix.Reindex(context.Background(), source.Static(sampleRecords()...))

	// Then: it fails fast with a retryable lock error
	require.Error(t, err)
	assert.Equal(t, gperrors.ErrCodeLockHeld, gperrors.GetCode(err))
	assert.True(t, gperrors.IsRetryable(err))
}

type failingSource struct {
	source.Source
	err error
}

func (f failingSource) Each(ctx context.Context, doctype string, fn func(source.Record) error) error {
	return f.err
}

func TestReindex_SourceFailure(t *testing.T) {
	ix, _ := newTestIndexer(t)
	boom := errors.New("connection reset")

	_, err := ix.Reindex(context.Background(), failingSource{Source: source.Static(sampleRecords()...), err: boom})

	require.Error(t, err)
	assert.Equal(t, gperrors.ErrCodeReindexFailed, gperrors.GetCode(err))
	assert.ErrorIs(t, err, boom)
}

func TestReindex_DegradedIsSkipped(t *testing.T) {
	b := store.NewMemoryBackend(store.WithoutSearchModule())
	defer func() { _ = b.Close() }()
	idx, err := search.New(context.Background(), b, DefaultIndexName, DefaultPrefix, Schema())
	require.NoError(t, err)

	res, err := NewIndexer(idx).Reindex(context.Background(), source.Static(sampleRecords()...))

	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, res.Total)
}

func TestFileLock_UnlockIdempotent(t *testing.T) {
	l := NewFileLock(t.TempDir())
	assert.NoError(t, l.Unlock())

	acquired, err := l.TryLock()
	require.NoError(t, err)
	require.True(t, acquired)
	assert.NoError(t, l.Unlock())
	assert.NoError(t, l.Unlock())
}
