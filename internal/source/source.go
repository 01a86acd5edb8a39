// Package source reads Gameplan records for indexing from the site database.
package source

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Record is one indexable Gameplan document. Content is raw HTML.
type Record struct {
	Doctype  string
	Name     string
	Title    string
	Content  string
	Team     string
	Project  string
	Owner    string
	Modified string
}

// Doctype maps a Gameplan doctype onto its table and columns.
type Doctype struct {
	Name          string
	Table         string
	TitleColumn   string
	ContentColumn string
}

// Doctypes lists the indexed Gameplan doctypes.
var Doctypes = []Doctype{
	{Name: "GP Discussion", Table: "tabGP Discussion", TitleColumn: "title", ContentColumn: "content"},
	{Name: "GP Page", Table: "tabGP Page", TitleColumn: "title", ContentColumn: "content"},
	{Name: "GP Task", Table: "tabGP Task", TitleColumn: "title", ContentColumn: "description"},
}

// LookupDoctype returns the table mapping of a doctype.
func LookupDoctype(name string) (Doctype, bool) {
	for _, d := range Doctypes {
		if d.Name == name {
			return d, true
		}
	}
	return Doctype{}, false
}

// Source yields records per doctype.
type Source interface {
	// Doctypes lists the doctypes this source can read.
	Doctypes() []string
	// Each calls fn for every record of doctype, stopping at the first error.
	Each(ctx context.Context, doctype string, fn func(Record) error) error
	// Close releases the source.
	Close() error
}

// StaticSource serves a fixed set of records.
type StaticSource struct {
	mu      sync.RWMutex
	records map[string][]Record
}

// Verify interface implementation at compile time
var _ Source = (*StaticSource)(nil)

// Static creates a source over records, grouped by their doctype.
func Static(records ...Record) *StaticSource {
	s := &StaticSource{records: make(map[string][]Record)}
	for _, r := range records {
		s.records[r.Doctype] = append(s.records[r.Doctype], r)
	}
	return s
}

// Doctypes implements Source.
func (s *StaticSource) Doctypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Each implements Source.
func (s *StaticSource) Each(ctx context.Context, doctype string, fn func(Record) error) error {
	s.mu.RLock()
	records := append([]Record(nil), s.records[doctype]...)
	s.mu.RUnlock()

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Source.
func (s *StaticSource) Close() error { return nil }

func unknownDoctype(name string) error {
	return fmt.Errorf("unknown doctype %q", name)
}
