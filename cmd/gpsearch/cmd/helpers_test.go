package cmd

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/Aman-CERP/gpsearch/internal/config"
	"github.com/Aman-CERP/gpsearch/internal/store"
)

// keepOpen lets one memory backend outlive the commands that close it.
type keepOpen struct {
	store.Backend
}

func (keepOpen) Close() error { return nil }

// setupEnv isolates config, logs and data in temp dirs and returns the
// project dir to pass with --dir.
func setupEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("GPSEARCH_DATA_DIR", filepath.Join(home, "data"))
	t.Setenv("GPSEARCH_BACKEND", "memory")
	t.Setenv("GPSEARCH_LOG_LEVEL", "error")
	return t.TempDir()
}

// useMemoryBackend makes every command in the test share one memory backend.
func useMemoryBackend(t *testing.T, opts ...store.MemoryOption) *store.MemoryBackend {
	t.Helper()
	mem := store.NewMemoryBackend(opts...)
	prev := openBackend
	openBackend = func(*config.Config) (store.Backend, error) {
		return keepOpen{mem}, nil
	}
	t.Cleanup(func() {
		openBackend = prev
		_ = mem.Close()
	})
	return mem
}

// runCmd executes the root command with args and returns its output.
func runCmd(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{"--dir", dir}, args...))
	err := root.Execute()
	return buf.String(), err
}

// newSiteDB writes a small Gameplan site database and returns its path.
func newSiteDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	stmts := []string{
		`CREATE TABLE "tabGP Discussion" (name TEXT PRIMARY KEY, title TEXT, content TEXT, team TEXT, project TEXT, owner TEXT, modified TEXT)`,
		`CREATE TABLE "tabGP Page" (name TEXT PRIMARY KEY, title TEXT, content TEXT, team TEXT, project TEXT, owner TEXT, modified TEXT)`,
		`CREATE TABLE "tabGP Task" (name TEXT PRIMARY KEY, title TEXT, description TEXT, team TEXT, project TEXT, owner TEXT, modified TEXT)`,
		`INSERT INTO "tabGP Discussion" VALUES ('DISC-1', 'Launch plan', '<p>We ship the launch next week</p>', 'eng', 'P-1', 'a@example.com', '2024-01-02 10:00:00')`,
		`INSERT INTO "tabGP Page" VALUES ('PAGE-1', 'Onboarding', '<p>Read the handbook</p>', 'people', NULL, 'b@example.com', '2024-01-03 10:00:00')`,
		`INSERT INTO "tabGP Task" VALUES ('TASK-1', 'Write launch email', 'Draft and send', 'eng', 'P-1', 'c@example.com', '2024-01-04 10:00:00')`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

// reindexSite reindexes a fresh site database into the shared backend.
func reindexSite(t *testing.T, dir string) {
	t.Helper()
	site := newSiteDB(t)
	_, err := runCmd(t, dir, "reindex", "--source", "sqlite", "--dsn", site)
	require.NoError(t, err)
}
