// Package watcher watches a site database file and reports debounced changes,
// so the search index can be rebuilt when the records underneath change.
//
// SQLite writes through sidecar files (-wal, -journal, -shm), so the parent
// directory is watched and events for the database and its sidecars are kept.
//
// Usage:
//
//	w, err := watcher.New(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	err = w.Run(ctx, "/srv/site/site.db", func(ctx context.Context, events []watcher.FileEvent) error {
//	    _, err := indexer.Reindex(ctx, src)
//	    return err
//	})
package watcher
