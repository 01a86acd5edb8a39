package mcp

import "github.com/Aman-CERP/gpsearch/internal/async"

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query     string `json:"query" jsonschema:"the search query; bleve/RediSearch query syntax, * matches everything"`
	Start     int    `json:"start,omitempty" jsonschema:"offset of the first result, default 0"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	SortBy    string `json:"sort_by,omitempty" jsonschema:"sortable field and direction, e.g. 'modified desc'"`
	Highlight *bool  `json:"highlight,omitempty" jsonschema:"wrap matched terms in <mark> tags, default true"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Total      int                  `json:"total" jsonschema:"number of matching documents"`
	DurationMS float64              `json:"duration_ms" jsonschema:"backend query time in milliseconds"`
	Results    []SearchResultOutput `json:"results" jsonschema:"the requested page of results"`
}

// SearchResultOutput defines a single search hit.
type SearchResultOutput struct {
	ID       string `json:"id" jsonschema:"document id, doctype:name"`
	Doctype  string `json:"doctype,omitempty" jsonschema:"record type, e.g. GP Discussion"`
	Name     string `json:"name,omitempty" jsonschema:"record name"`
	Title    string `json:"title,omitempty" jsonschema:"title, highlighted when requested"`
	Content  string `json:"content,omitempty" jsonschema:"plain-text content, highlighted when requested"`
	Team     string `json:"team,omitempty" jsonschema:"owning team"`
	Project  string `json:"project,omitempty" jsonschema:"owning project"`
	Owner    string `json:"owner,omitempty" jsonschema:"record owner"`
	Modified string `json:"modified,omitempty" jsonschema:"last modification timestamp"`
}

// SpellCheckInput defines the input schema for the spellcheck tool.
type SpellCheckInput struct {
	Query    string `json:"query" jsonschema:"the query to check"`
	Distance int    `json:"distance,omitempty" jsonschema:"maximum Levenshtein distance between 1 and 4, default 1"`
}

// SpellCheckOutput defines the output schema for the spellcheck tool.
type SpellCheckOutput struct {
	Suggestions []SuggestionOutput `json:"suggestions" jsonschema:"one entry per misspelled term"`
}

// SuggestionOutput lists the candidates for one misspelled term.
type SuggestionOutput struct {
	Term       string            `json:"term"`
	Candidates []CandidateOutput `json:"candidates"`
}

// CandidateOutput is one correction with its score.
type CandidateOutput struct {
	Value string  `json:"value"`
	Score float64 `json:"score"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Index    IndexInfo                    `json:"index"`
	Indexing *async.IndexProgressSnapshot `json:"indexing,omitempty"` // Present when serve started a rebuild
	Queries  *QueryInfo                   `json:"queries,omitempty"`  // Present when query telemetry is enabled
	Config   SearchDefault                `json:"config"`
}

// IndexInfo describes the search index.
type IndexInfo struct {
	Name     string `json:"name"`
	Prefix   string `json:"prefix"`
	Backend  string `json:"backend"`
	Status   string `json:"status"` // "ready", "indexing", "missing" or "degraded"
	Degraded bool   `json:"degraded"`
	Exists   bool   `json:"exists"`
	NumDocs  int    `json:"num_docs"`
}

// QueryInfo summarizes the queries served since startup.
type QueryInfo struct {
	Total             int64    `json:"total"`
	ZeroResults       int64    `json:"zero_results"`
	ZeroResultPercent float64  `json:"zero_result_percent"`
	TopTerms          []string `json:"top_terms"`
	Since             string   `json:"since"`
}

// SearchDefault reports the defaults applied to tool calls.
type SearchDefault struct {
	PageLength         int  `json:"page_length"`
	Highlight          bool `json:"highlight"`
	SpellcheckDistance int  `json:"spellcheck_distance"`
}
