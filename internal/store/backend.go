// Package store defines the backing-store protocol the search adapter talks to and
// provides its implementations: Redis with the RediSearch module, and an in-process
// memory backend built on bleve that speaks the same protocol.
package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors classifying backend replies. Backends wrap them so callers can
// use errors.Is regardless of the transport underneath.
var (
	// ErrModuleMissing means the store has no search capability (no RediSearch module).
	ErrModuleMissing = errors.New("search module not available")

	// ErrIndexExists is returned by CreateIndex when the index is already defined.
	ErrIndexExists = errors.New("index already exists")

	// ErrUnknownIndex is returned when the named index does not exist.
	ErrUnknownIndex = errors.New("unknown index")
)

// FieldType is the index type of a schema field.
type FieldType string

const (
	// FieldTypeText is a free-text field (tokenized, stemmed, ranked).
	FieldTypeText FieldType = "TEXT"
	// FieldTypeTag is an exact-match set field split on a separator.
	FieldTypeTag FieldType = "TAG"
)

// FieldSpec describes one field of an index definition.
type FieldSpec struct {
	// Path is the field reference, JSON-path style ("$.title").
	Path string
	// As is the exposed attribute name used in queries and results.
	As string
	// Type is the field index type.
	Type FieldType

	Weight    float64 // TEXT only, 0 means backend default
	Sortable  bool
	NoIndex   bool
	NoStem    bool   // TEXT only
	Separator string // TAG only, empty means backend default
}

// Identifier returns the field identifier for hash documents, which are flat:
// the JSON-path root marker is dropped ("$.title" -> "title").
func (f FieldSpec) Identifier() string {
	return TrimPathMarkers(f.Path)
}

// Name returns the exposed attribute name, falling back to the identifier.
func (f FieldSpec) Name() string {
	if f.As != "" {
		return f.As
	}
	return f.Identifier()
}

// TrimPathMarkers removes leading JSON-path root markers ("$", ".") from a field name.
func TrimPathMarkers(name string) string {
	i := 0
	for i < len(name) && (name[i] == '$' || name[i] == '.') {
		i++
	}
	return name[i:]
}

// IndexDefinition scopes an index to the documents it covers.
type IndexDefinition struct {
	// Prefixes are the key prefixes whose documents belong to the index.
	Prefixes []string
}

// IndexInfo is the subset of index metadata gpsearch reports.
type IndexInfo struct {
	Name    string
	NumDocs int
}

// Query is a search request against one index.
type Query struct {
	// Text is the query in the backend's query language.
	Text string
	// Offset and Limit page the result set: [Offset, Offset+Limit).
	Offset int
	Limit  int

	// SortBy names a sortable attribute; empty keeps the backend ranking.
	SortBy  string
	SortAsc bool

	// HighlightOpen and HighlightClose wrap matched terms when both are set.
	HighlightOpen  string
	HighlightClose string

	// Return restricts the returned attributes; empty returns every field.
	Return []string
}

// Highlight reports whether the query asks for highlighting.
func (q Query) Highlight() bool {
	return q.HighlightOpen != "" && q.HighlightClose != ""
}

// RawDoc is one search hit as the backend returns it.
type RawDoc struct {
	// ID is the full document key, including the index prefix.
	ID string
	// Fields holds the returned attributes.
	Fields map[string]string
}

// RawResult is the backend's answer to a Query.
type RawResult struct {
	Total    int
	Docs     []RawDoc
	Duration time.Duration
}

// SpellCheckOptions tunes a spellcheck request.
type SpellCheckOptions struct {
	// Distance is the maximum Levenshtein distance for suggestions (1-4, 0 means 1).
	Distance int
	// Include lists custom dictionaries whose terms are also suggested.
	Include []string
	// Exclude lists custom dictionaries whose terms are never reported as misspelled.
	Exclude []string
}

// SpellCheckSuggestion is one candidate correction for a term.
type SpellCheckSuggestion struct {
	Score      float64
	Suggestion string
}

// SpellCheckTerm is a misspelled query term with its candidates.
type SpellCheckTerm struct {
	Term        string
	Suggestions []SpellCheckSuggestion
}

// Backend is the hash-oriented key-value protocol with an optional search module.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Name identifies the backend ("redis", "memory").
	Name() string

	// ListIndexes lists defined indexes. It doubles as the search-module probe:
	// it fails with ErrModuleMissing when the capability is absent.
	ListIndexes(ctx context.Context) ([]string, error)

	// CreateIndex defines an index. Fails with ErrIndexExists if already defined.
	CreateIndex(ctx context.Context, name string, def IndexDefinition, fields []FieldSpec) error

	// DropIndex removes an index, and its documents when deleteDocuments is set.
	DropIndex(ctx context.Context, name string, deleteDocuments bool) error

	// IndexInfo returns index metadata. Fails with ErrUnknownIndex if absent.
	IndexInfo(ctx context.Context, name string) (*IndexInfo, error)

	// HSet writes hash fields of a document key.
	HSet(ctx context.Context, key string, values map[string]string) error

	// HGetAll reads all hash fields of a key; a missing key yields an empty map.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// Del deletes whole keys.
	Del(ctx context.Context, keys ...string) error

	// Search runs a query against an index.
	Search(ctx context.Context, name string, q Query) (*RawResult, error)

	// SpellCheck suggests corrections for misspelled query terms.
	SpellCheck(ctx context.Context, name, query string, opts SpellCheckOptions) ([]SpellCheckTerm, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
