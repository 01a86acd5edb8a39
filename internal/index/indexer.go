// Package index keeps the Gameplan search index in step with site records:
// it maps records to search documents, re-indexes on relevant changes and
// rebuilds the whole index from a record source.
package index

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/gpsearch/internal/search"
	"github.com/Aman-CERP/gpsearch/internal/source"
)

// Default index coordinates.
const (
	DefaultIndexName = "gameplan_search"
	DefaultPrefix    = "search_doc"
)

// Schema is the field schema of the Gameplan index.
func Schema() []search.Field {
	return []search.Field{
		{Name: "title", Type: search.FieldText, Options: search.FieldOptions{Weight: search.Weight(2)}},
		{Name: "content", Type: search.FieldText},
		{Name: "doctype", Type: search.FieldTag},
		{Name: "team", Type: search.FieldTag},
		{Name: "project", Type: search.FieldTag},
		{Name: "owner", Type: search.FieldTag},
		{Name: "modified", Type: search.FieldText, Options: search.FieldOptions{Sortable: true, NoIndex: true}},
	}
}

// Payload is stored with every document so result lists render without
// reading the site database.
type Payload struct {
	Doctype string `json:"doctype"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	Team    string `json:"team,omitempty"`
	Project string `json:"project,omitempty"`
}

// DocumentID is the search document id of a record.
func DocumentID(r source.Record) string {
	return r.Doctype + ":" + r.Name
}

// Fields maps a record to search document fields. Every field is written, empty
// ones as "", so re-indexing a record overwrites values it no longer has.
func Fields(r source.Record) map[string]any {
	return map[string]any{
		"doctype":  r.Doctype,
		"title":    r.Title,
		"content":  StripHTML(r.Content),
		"team":     r.Team,
		"project":  r.Project,
		"owner":    r.Owner,
		"modified": r.Modified,
	}
}

// Indexer writes Gameplan records into a search index.
type Indexer struct {
	index   *search.Index
	dataDir string
	workers int
	logger  *slog.Logger
	onBatch func(doctype string, n int)
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithDataDir sets where the reindex lock file lives. Without it Reindex
// takes no cross-process lock.
func WithDataDir(dir string) Option {
	return func(ix *Indexer) { ix.dataDir = dir }
}

// WithWorkers bounds how many doctypes Reindex reads concurrently.
func WithWorkers(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.workers = n
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(ix *Indexer) {
		if l != nil {
			ix.logger = l
		}
	}
}

// WithReindexObserver is called with the number of records written per doctype
// after each doctype finishes.
func WithReindexObserver(fn func(doctype string, n int)) Option {
	return func(ix *Indexer) { ix.onBatch = fn }
}

// NewIndexer creates an Indexer over idx.
func NewIndexer(idx *search.Index, opts ...Option) *Indexer {
	ix := &Indexer{
		index:   idx,
		workers: 2,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Index returns the underlying search index.
func (ix *Indexer) Index() *search.Index {
	return ix.index
}

// IndexRecord writes one record.
func (ix *Indexer) IndexRecord(ctx context.Context, r source.Record) error {
	return ix.index.Add(ctx, DocumentID(r), Fields(r), Payload{
		Doctype: r.Doctype,
		Name:    r.Name,
		Title:   r.Title,
		Team:    r.Team,
		Project: r.Project,
	})
}

// RemoveRecord deletes the document of a record.
func (ix *Indexer) RemoveRecord(ctx context.Context, doctype, name string) error {
	return ix.index.Remove(ctx, DocumentID(source.Record{Doctype: doctype, Name: name}))
}

// OnUpdate re-indexes cur when its title or content changed since prev.
// A nil prev is a new record. It reports whether the record was written.
func (ix *Indexer) OnUpdate(ctx context.Context, prev *source.Record, cur source.Record) (bool, error) {
	if prev != nil && prev.Title == cur.Title && prev.Content == cur.Content {
		return false, nil
	}
	if err := ix.IndexRecord(ctx, cur); err != nil {
		return false, err
	}
	return true, nil
}

// Search runs a query with highlighting and payloads.
func (ix *Indexer) Search(ctx context.Context, query string, opts search.SearchOptions) (*search.Result, error) {
	opts.Highlight = true
	opts.WithPayloads = true
	return ix.index.Search(ctx, query, opts)
}

// Hit is a search result mapped back onto record terms.
type Hit struct {
	ID       string `json:"id"`
	Doctype  string `json:"doctype"`
	Name     string `json:"name"`
	Title    string `json:"title,omitempty"`
	Content  string `json:"content,omitempty"`
	Team     string `json:"team,omitempty"`
	Project  string `json:"project,omitempty"`
	Owner    string `json:"owner,omitempty"`
	Modified string `json:"modified,omitempty"`
}

// NewHit reads a hit from the document fields, falling back to the payload
// and the document id for the record coordinates.
func NewHit(d search.Doc) Hit {
	h := Hit{
		ID:       d.ID,
		Doctype:  d.Fields["doctype"],
		Title:    d.Fields["title"],
		Content:  d.Fields["content"],
		Team:     d.Fields["team"],
		Project:  d.Fields["project"],
		Owner:    d.Fields["owner"],
		Modified: d.Fields["modified"],
	}
	if p, ok := d.Payload.(map[string]any); ok {
		if v, ok := p["name"].(string); ok {
			h.Name = v
		}
		if v, ok := p["doctype"].(string); ok && h.Doctype == "" {
			h.Doctype = v
		}
		if v, ok := p["title"].(string); ok && h.Title == "" {
			h.Title = v
		}
	}
	if h.Name == "" || h.Doctype == "" {
		if doctype, name, ok := strings.Cut(d.ID, ":"); ok {
			if h.Doctype == "" {
				h.Doctype = doctype
			}
			if h.Name == "" {
				h.Name = name
			}
		}
	}
	return h
}
