package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/gpsearch/internal/config"
	"github.com/Aman-CERP/gpsearch/internal/mcp"
	"github.com/Aman-CERP/gpsearch/internal/search"
	"github.com/Aman-CERP/gpsearch/internal/source"
	"github.com/Aman-CERP/gpsearch/internal/telemetry"
)

// TestIndexAndSearch_FullFlow reindexes a site database and searches it
// through the MCP tools.
func TestIndexAndSearch_FullFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	// Given: a site database reindexed into a cached index
	path, _ := siteDB(t)
	ix := newIndexer(t, search.WithCache(16, time.Minute), search.WithNamespace("site1|"))
	src, err := source.OpenSQLite(path)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	res, err := ix.Reindex(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)

	srv, err := mcp.NewServer(ix, config.NewConfig())
	require.NoError(t, err)
	srv.SetQueryLog(telemetry.NewQueryLog(100, 10))

	// When: searching through the tool
	got, err := srv.CallTool(ctx, "search", map[string]any{"query": "roadmap"})
	require.NoError(t, err)

	// Then: both roadmap records are listed with highlights
	text, ok := got.(string)
	require.True(t, ok)
	assert.Contains(t, text, "Showing 2 of 2 results")
	assert.Contains(t, text, "<mark>roadmap</mark>")
	assert.Contains(t, text, "`DISC-1`")
	assert.Contains(t, text, "`TASK-1`")

	// And: HTML was stripped before indexing
	got, err = srv.CallTool(ctx, "search", map[string]any{"query": "deploys"})
	require.NoError(t, err)
	assert.NotContains(t, got.(string), "<h2>")

	// And: the status reflects the rebuild and the queries
	status, err := srv.CallTool(ctx, "index_status", nil)
	require.NoError(t, err)
	out, ok := status.(*mcp.IndexStatusOutput)
	require.True(t, ok)
	assert.Equal(t, "ready", out.Index.Status)
	assert.Equal(t, 4, out.Index.NumDocs)
	assert.Equal(t, "site1|gameplan_search", out.Index.Name)
	require.NotNil(t, out.Queries)
	assert.Equal(t, int64(2), out.Queries.Total)
}

// TestIndexAndSearch_UpdateAndRemove follows one record through its life.
func TestIndexAndSearch_UpdateAndRemove(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	// Given: a fresh index with one page
	ix := newIndexer(t, search.WithCache(16, time.Minute))
	require.NoError(t, ix.Index().Create(ctx))
	page := source.Record{Doctype: "GP Page", Name: "PAGE-9", Title: "Release notes", Content: "<p>v1</p>"}
	written, err := ix.OnUpdate(ctx, nil, page)
	require.NoError(t, err)
	require.True(t, written)

	count := func(q string) int {
		res, err := ix.Search(ctx, q, search.SearchOptions{})
		require.NoError(t, err)
		return res.Total
	}
	assert.Equal(t, 1, count("release"))

	// When: only the owner changes
	moved := page
	moved.Owner = "z@example.com"
	written, err = ix.OnUpdate(ctx, &page, moved)

	// Then: nothing is rewritten
	require.NoError(t, err)
	assert.False(t, written)

	// When: the title changes
	renamed := page
	renamed.Title = "Changelog"
	written, err = ix.OnUpdate(ctx, &page, renamed)
	require.NoError(t, err)
	require.True(t, written)

	// Then: the cached result is not served
	assert.Equal(t, 0, count("release"))
	assert.Equal(t, 1, count("changelog"))

	// When: the record is removed
	require.NoError(t, ix.RemoveRecord(ctx, "GP Page", "PAGE-9"))

	// Then: it is gone
	assert.Equal(t, 0, count("changelog"))
}
