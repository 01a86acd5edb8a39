package integration

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/Aman-CERP/gpsearch/internal/index"
	"github.com/Aman-CERP/gpsearch/internal/search"
	"github.com/Aman-CERP/gpsearch/internal/store"
	"github.com/Aman-CERP/gpsearch/internal/telemetry"
)

// Integration Tests - These run the whole path from a site database through
// the indexer into the memory backend and out through search.

// siteDB creates a writable site database file and returns its path and a
// handle for changing it.
func siteDB(t *testing.T) (string, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	stmts := []string{
		`PRAGMA journal_mode = DELETE`,
		`CREATE TABLE "tabGP Discussion" (name TEXT PRIMARY KEY, title TEXT, content TEXT, team TEXT, project TEXT, owner TEXT, modified TEXT)`,
		`CREATE TABLE "tabGP Page" (name TEXT PRIMARY KEY, title TEXT, content TEXT, team TEXT, project TEXT, owner TEXT, modified TEXT)`,
		`CREATE TABLE "tabGP Task" (name TEXT PRIMARY KEY, title TEXT, description TEXT, team TEXT, project TEXT, owner TEXT, modified TEXT)`,
		`INSERT INTO "tabGP Discussion" VALUES ('DISC-1', 'Quarterly roadmap', '<p>Goals for <em>Q3</em></p>', 'eng', 'P-1', 'a@example.com', '2024-02-01 09:00:00')`,
		`INSERT INTO "tabGP Discussion" VALUES ('DISC-2', 'Hiring plan', '<p>Two engineers</p>', 'people', 'P-2', 'b@example.com', '2024-02-02 09:00:00')`,
		`INSERT INTO "tabGP Page" VALUES ('PAGE-1', 'Runbook', '<h2>Deploys</h2><p>Roll back with care</p>', 'ops', NULL, 'c@example.com', '2024-02-03 09:00:00')`,
		`INSERT INTO "tabGP Task" VALUES ('TASK-1', 'Review roadmap', '<p>Comment by Friday</p>', 'eng', 'P-1', 'a@example.com', '2024-02-04 09:00:00')`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path, db
}

// newIndexer opens the Gameplan index on a fresh memory backend.
func newIndexer(t *testing.T, opts ...search.Option) *index.Indexer {
	t.Helper()
	b := store.NewMemoryBackend()
	t.Cleanup(func() { _ = b.Close() })

	idx, err := search.New(context.Background(), b, index.DefaultIndexName, index.DefaultPrefix, index.Schema(), opts...)
	require.NoError(t, err)

	metrics := telemetry.NewMetrics()
	return index.NewIndexer(idx,
		index.WithDataDir(t.TempDir()),
		index.WithReindexObserver(metrics.RecordReindexed),
	)
}
