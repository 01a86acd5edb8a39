package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/gpsearch/internal/search"
	"github.com/Aman-CERP/gpsearch/internal/source"
	"github.com/Aman-CERP/gpsearch/internal/watcher"
)

// TestWatcher_DatabaseWriteTriggersReindex changes the site database while it
// is watched and expects the index to follow.
func TestWatcher_DatabaseWriteTriggersReindex(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: an indexed site database under watch
	path, db := siteDB(t)
	ix := newIndexer(t)

	reindex := func(ctx context.Context) error {
		src, err := source.OpenSQLite(path)
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()
		_, err = ix.Reindex(ctx, src)
		return err
	}
	require.NoError(t, reindex(context.Background()))

	w, err := watcher.New(watcher.Options{DebounceWindow: 100 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rebuilt := make(chan struct{}, 10)
	go func() {
		_ = w.Run(ctx, path, func(ctx context.Context, events []watcher.FileEvent) error {
			err := reindex(ctx)
			rebuilt <- struct{}{}
			return err
		})
	}()
	defer func() { _ = w.Stop() }()

	// Wait for watcher to initialize
	time.Sleep(200 * time.Millisecond)

	// When: a task is added on the site
	_, err = db.Exec(`INSERT INTO "tabGP Task" VALUES ('TASK-2', 'Plan offsite', 'Book venue', 'people', 'P-2', 'b@example.com', '2024-02-05 09:00:00')`)
	require.NoError(t, err)

	// Then: a rebuild runs and the task becomes searchable
	select {
	case <-rebuilt:
	case <-ctx.Done():
		t.Fatal("Timeout waiting for reindex")
	}
	res, err := ix.Search(context.Background(), "offsite", search.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, res.Docs, 1)
	assert.Equal(t, "GP Task:TASK-2", res.Docs[0].ID)
}
