package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/gpsearch/internal/index"
	"github.com/Aman-CERP/gpsearch/internal/store"
)

// statusOf runs status --json and decodes it.
func statusOf(t *testing.T, dir string) statusReport {
	t.Helper()
	out, err := runCmd(t, dir, "status", "--json")
	require.NoError(t, err)
	var report statusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.NotNil(t, report.Index)
	return report
}

func TestCreateAndDrop(t *testing.T) {
	// Given: an empty memory backend
	dir := setupEnv(t)
	useMemoryBackend(t)
	assert.False(t, statusOf(t, dir).Index.Exists)

	// When: creating the index twice
	out, err := runCmd(t, dir, "create")
	require.NoError(t, err)
	assert.Contains(t, out, "gameplan_search")
	_, err = runCmd(t, dir, "create")
	require.NoError(t, err)

	// Then: it exists
	assert.True(t, statusOf(t, dir).Index.Exists)

	// When: dropping it twice
	_, err = runCmd(t, dir, "drop")
	require.NoError(t, err)
	_, err = runCmd(t, dir, "drop")
	require.NoError(t, err)

	// Then: it is gone
	assert.False(t, statusOf(t, dir).Index.Exists)
}

func TestStatus_Text(t *testing.T) {
	dir := setupEnv(t)
	useMemoryBackend(t)

	out, err := runCmd(t, dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Index does not exist")
	assert.Contains(t, out, "search_doc:")

	reindexSite(t, dir)

	out, err = runCmd(t, dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "is ready")
	assert.Contains(t, out, "Documents:")
}

func TestReindex_IndexesEveryDoctype(t *testing.T) {
	// Given: a site database with one record per doctype
	dir := setupEnv(t)
	useMemoryBackend(t)
	site := newSiteDB(t)

	// When: reindexing with JSON output
	out, err := runCmd(t, dir, "reindex", "--source", "sqlite", "--dsn", site, "--json")

	// Then: every doctype is counted under one run id
	require.NoError(t, err)
	var res index.ReindexResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, map[string]int{"GP Discussion": 1, "GP Page": 1, "GP Task": 1}, res.Counts)
	assert.Equal(t, 3, statusOf(t, dir).Index.NumDocs)
}

func TestReindex_TextOutput(t *testing.T) {
	dir := setupEnv(t)
	useMemoryBackend(t)
	site := newSiteDB(t)

	out, err := runCmd(t, dir, "reindex", "--source", "sqlite", "--dsn", site)

	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 3 record(s)")
	assert.Contains(t, out, "GP Task:")
	assert.Contains(t, out, "Run ID:")
}

func TestReindex_RequiresSource(t *testing.T) {
	dir := setupEnv(t)
	useMemoryBackend(t)

	_, err := runCmd(t, dir, "reindex")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no record source configured")
}

func TestReindex_DegradedIsSkipped(t *testing.T) {
	// Given: a store without the search module
	dir := setupEnv(t)
	useMemoryBackend(t, store.WithoutSearchModule())
	site := newSiteDB(t)

	// When: reindexing
	out, err := runCmd(t, dir, "reindex", "--source", "sqlite", "--dsn", site)

	// Then: nothing fails and the skip is reported
	require.NoError(t, err)
	assert.Contains(t, out, "reindex skipped")
}

func TestSearch_JSON(t *testing.T) {
	// Given: an indexed site
	dir := setupEnv(t)
	useMemoryBackend(t)
	reindexSite(t, dir)

	// When: searching for a term in two records
	out, err := runCmd(t, dir, "search", "launch", "--format", "json")

	// Then: both records are found with their payload fields
	require.NoError(t, err)
	var report searchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "launch", report.Query)
	assert.Equal(t, 2, report.Total)

	ids := make([]string, 0, len(report.Results))
	for _, h := range report.Results {
		ids = append(ids, h.ID)
		assert.NotEmpty(t, h.Doctype)
		assert.NotEmpty(t, h.Name)
	}
	assert.ElementsMatch(t, []string{"GP Discussion:DISC-1", "GP Task:TASK-1"}, ids)
}

func TestSearch_SortAndPage(t *testing.T) {
	dir := setupEnv(t)
	useMemoryBackend(t)
	reindexSite(t, dir)

	out, err := runCmd(t, dir, "search", "*", "--sort", "modified desc",
		"--limit", "2", "--start", "1", "--format", "json")

	require.NoError(t, err)
	var report searchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Total)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "PAGE-1", report.Results[0].Name)
	assert.Equal(t, "DISC-1", report.Results[1].Name)
}

func TestSearch_TextHighlightsMatches(t *testing.T) {
	dir := setupEnv(t)
	useMemoryBackend(t)
	reindexSite(t, dir)

	out, err := runCmd(t, dir, "search", "handbook")

	require.NoError(t, err)
	assert.Contains(t, out, "1 of 1 result(s)")
	assert.Contains(t, out, "Onboarding")
	assert.Contains(t, out, "*handbook*")
	assert.Contains(t, out, "GP Page PAGE-1")
}

func TestSearch_NoHighlight(t *testing.T) {
	dir := setupEnv(t)
	useMemoryBackend(t)
	reindexSite(t, dir)

	out, err := runCmd(t, dir, "search", "handbook", "--no-highlight")

	require.NoError(t, err)
	assert.Contains(t, out, "Read the handbook")
	assert.NotContains(t, out, "*handbook*")
}

func TestSearch_NoResults(t *testing.T) {
	dir := setupEnv(t)
	useMemoryBackend(t)
	reindexSite(t, dir)

	out, err := runCmd(t, dir, "search", "zeppelin")

	require.NoError(t, err)
	assert.Contains(t, out, "No results")
}

func TestSearch_InvalidInput(t *testing.T) {
	dir := setupEnv(t)
	useMemoryBackend(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no query", []string{"search"}},
		{"bad format", []string{"search", "x", "--format", "xml"}},
		{"negative start", []string{"search", "x", "--start", "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, dir, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestRemove(t *testing.T) {
	// Given: an indexed site
	dir := setupEnv(t)
	useMemoryBackend(t)
	reindexSite(t, dir)

	// When: removing the discussion
	out, err := runCmd(t, dir, "remove", "GP Discussion", "DISC-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed GP Discussion DISC-1")

	// Then: only the task still matches
	out, err = runCmd(t, dir, "search", "launch", "--format", "json")
	require.NoError(t, err)
	var report searchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Results, 1)
	assert.Equal(t, "TASK-1", report.Results[0].Name)
}

func TestRemove_UnknownDoctype(t *testing.T) {
	dir := setupEnv(t)
	useMemoryBackend(t)

	_, err := runCmd(t, dir, "remove", "GP Project", "P-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown doctype")
}

func TestSpellCheck(t *testing.T) {
	dir := setupEnv(t)
	useMemoryBackend(t)
	reindexSite(t, dir)

	out, err := runCmd(t, dir, "spellcheck", "lanch")

	require.NoError(t, err)
	assert.Contains(t, out, "lanch")
	assert.Contains(t, out, "launch")
}

func TestSpellCheck_JSONWithoutSuggestions(t *testing.T) {
	dir := setupEnv(t)
	useMemoryBackend(t)
	reindexSite(t, dir)

	out, err := runCmd(t, dir, "spellcheck", "launch", "--json")

	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestSpellCheck_InvalidDistance(t *testing.T) {
	dir := setupEnv(t)
	useMemoryBackend(t)
	reindexSite(t, dir)

	_, err := runCmd(t, dir, "spellcheck", "lanch", "--distance", "9")

	assert.Error(t, err)
}
