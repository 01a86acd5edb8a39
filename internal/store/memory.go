package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// sortSuffix names the keyword copy of a sortable TEXT field.
const sortSuffix = "__sort"

// MemoryBackend is an in-process Backend: hashes live in a map and every created
// index is a bleve in-memory index. Writes under an index prefix are indexed on
// write, the way RediSearch follows the keyspace.
//
// Queries use bleve's query-string syntax rather than RediSearch's. Tag values are
// lowercased on write, so tag queries must be lowercase too.
type MemoryBackend struct {
	mu       sync.RWMutex
	hashes   map[string]map[string]string
	indexes  map[string]*memoryIndex
	noModule bool
	closed   bool
}

type memoryIndex struct {
	name     string
	prefixes []string
	fields   []FieldSpec
	index    bleve.Index
}

// Verify interface implementation at compile time
var _ Backend = (*MemoryBackend)(nil)

// MemoryOption configures a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithoutSearchModule makes every search command fail with ErrModuleMissing,
// like a Redis server without RediSearch. Hash commands keep working.
func WithoutSearchModule() MemoryOption {
	return func(b *MemoryBackend) { b.noModule = true }
}

// NewMemoryBackend creates an empty in-process backend.
func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	b := &MemoryBackend{
		hashes:  make(map[string]map[string]string),
		indexes: make(map[string]*memoryIndex),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements Backend.
func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) moduleErr(cmd string) error {
	return fmt.Errorf("%w: ERR unknown command '%s'", ErrModuleMissing, cmd)
}

// ListIndexes implements Backend.
func (b *MemoryBackend) ListIndexes(ctx context.Context) ([]string, error) {
	if b.noModule {
		return nil, b.moduleErr("FT._LIST")
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.indexes))
	for name := range b.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// CreateIndex implements Backend. Existing hashes under the prefixes are indexed.
func (b *MemoryBackend) CreateIndex(ctx context.Context, name string, def IndexDefinition, fields []FieldSpec) error {
	if b.noModule {
		return b.moduleErr("FT.CREATE")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("backend is closed")
	}
	if _, ok := b.indexes[name]; ok {
		return fmt.Errorf("%w: Index already exists", ErrIndexExists)
	}

	idx, err := bleve.NewMemOnly(buildIndexMapping(fields))
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", name, err)
	}

	mi := &memoryIndex{
		name:     name,
		prefixes: append([]string(nil), def.Prefixes...),
		fields:   append([]FieldSpec(nil), fields...),
		index:    idx,
	}

	batch := idx.NewBatch()
	for key, hash := range b.hashes {
		if mi.covers(key) {
			if err := batch.Index(key, mi.document(hash)); err != nil {
				_ = idx.Close()
				return fmt.Errorf("failed to index %s: %w", key, err)
			}
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("failed to execute batch: %w", err)
	}

	b.indexes[name] = mi
	return nil
}

// DropIndex implements Backend.
func (b *MemoryBackend) DropIndex(ctx context.Context, name string, deleteDocuments bool) error {
	if b.noModule {
		return b.moduleErr("FT.DROPINDEX")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	mi, ok := b.indexes[name]
	if !ok {
		return fmt.Errorf("%w: Unknown Index name", ErrUnknownIndex)
	}
	delete(b.indexes, name)

	if deleteDocuments {
		for key := range b.hashes {
			if mi.covers(key) {
				b.deleteLocked(key)
			}
		}
	}
	return mi.index.Close()
}

// IndexInfo implements Backend.
func (b *MemoryBackend) IndexInfo(ctx context.Context, name string) (*IndexInfo, error) {
	if b.noModule {
		return nil, b.moduleErr("FT.INFO")
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	mi, ok := b.indexes[name]
	if !ok {
		return nil, fmt.Errorf("%w: Unknown Index name", ErrUnknownIndex)
	}
	count, err := mi.index.DocCount()
	if err != nil {
		return nil, err
	}
	return &IndexInfo{Name: name, NumDocs: int(count)}, nil
}

// HSet implements Backend.
func (b *MemoryBackend) HSet(ctx context.Context, key string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	hash, ok := b.hashes[key]
	if !ok {
		hash = make(map[string]string, len(values))
		b.hashes[key] = hash
	}
	for k, v := range values {
		hash[k] = v
	}

	for _, mi := range b.indexes {
		if mi.covers(key) {
			if err := mi.index.Index(key, mi.document(hash)); err != nil {
				return fmt.Errorf("failed to index %s in %s: %w", key, mi.name, err)
			}
		}
	}
	return nil
}

// HGetAll implements Backend.
func (b *MemoryBackend) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]string, len(b.hashes[key]))
	for k, v := range b.hashes[key] {
		out[k] = v
	}
	return out, nil
}

// Del implements Backend.
func (b *MemoryBackend) Del(ctx context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, key := range keys {
		b.deleteLocked(key)
	}
	return nil
}

func (b *MemoryBackend) deleteLocked(key string) {
	delete(b.hashes, key)
	for _, mi := range b.indexes {
		if mi.covers(key) {
			_ = mi.index.Delete(key)
		}
	}
}

// Search implements Backend.
func (b *MemoryBackend) Search(ctx context.Context, name string, q Query) (*RawResult, error) {
	if b.noModule {
		return nil, b.moduleErr("FT.SEARCH")
	}
	start := time.Now()

	b.mu.RLock()
	defer b.mu.RUnlock()

	mi, ok := b.indexes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s: no such index", ErrUnknownIndex, name)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(parseQueryText(q.Text), limit, q.Offset, false)
	if q.SortBy != "" {
		sortField, err := mi.sortField(q.SortBy)
		if err != nil {
			return nil, err
		}
		if !q.SortAsc {
			sortField = "-" + sortField
		}
		req.SortBy([]string{sortField, "_id"})
	}
	if q.Highlight() {
		req.IncludeLocations = true
	}

	result, err := mi.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	res := &RawResult{Total: int(result.Total), Docs: make([]RawDoc, 0, len(result.Hits))}
	for _, hit := range result.Hits {
		fields := projectFields(b.hashes[hit.ID], q.Return)
		if q.Highlight() {
			terms := matchedTerms(hit.Locations)
			for _, f := range mi.fields {
				if f.Type != FieldTypeText {
					continue
				}
				if v, ok := fields[f.Name()]; ok {
					fields[f.Name()] = highlight(v, terms, q.HighlightOpen, q.HighlightClose)
				}
			}
		}
		res.Docs = append(res.Docs, RawDoc{ID: hit.ID, Fields: fields})
	}
	res.Duration = time.Since(start)
	return res, nil
}

// SpellCheck implements Backend using the index term dictionaries of TEXT fields.
// Custom dictionaries are not supported and are ignored.
func (b *MemoryBackend) SpellCheck(ctx context.Context, name, queryText string, opts SpellCheckOptions) ([]SpellCheckTerm, error) {
	if b.noModule {
		return nil, b.moduleErr("FT.SPELLCHECK")
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	mi, ok := b.indexes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s: no such index", ErrUnknownIndex, name)
	}

	distance := opts.Distance
	if distance <= 0 {
		distance = 1
	}

	dict, err := mi.termCounts()
	if err != nil {
		return nil, err
	}
	docCount, _ := mi.index.DocCount()

	var out []SpellCheckTerm
	for _, term := range mi.analyze(queryText) {
		if _, known := dict[term]; known {
			continue
		}
		st := SpellCheckTerm{Term: term}
		for candidate, count := range dict {
			if levenshtein(term, candidate) <= distance {
				score := 0.0
				if docCount > 0 {
					score = float64(count) / float64(docCount)
				}
				st.Suggestions = append(st.Suggestions, SpellCheckSuggestion{Score: score, Suggestion: candidate})
			}
		}
		sort.Slice(st.Suggestions, func(i, j int) bool {
			if st.Suggestions[i].Score != st.Suggestions[j].Score {
				return st.Suggestions[i].Score > st.Suggestions[j].Score
			}
			return st.Suggestions[i].Suggestion < st.Suggestions[j].Suggestion
		})
		out = append(out, st)
	}
	return out, nil
}

// Ping implements Backend.
func (b *MemoryBackend) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("backend is closed")
	}
	return nil
}

// Close implements Backend.
func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var firstErr error
	for name, mi := range b.indexes {
		if err := mi.index.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(b.indexes, name)
	}
	return firstErr
}

// buildIndexMapping maps TEXT fields to the standard analyzer and TAG fields to
// keyword terms. Sortable TEXT fields get an extra keyword copy to sort on.
func buildIndexMapping(fields []FieldSpec) *mapping.IndexMappingImpl {
	doc := bleve.NewDocumentMapping()
	for _, f := range fields {
		var fms []*mapping.FieldMapping
		switch f.Type {
		case FieldTypeTag:
			fm := bleve.NewKeywordFieldMapping()
			fm.Analyzer = keyword.Name
			fm.Index = !f.NoIndex
			fm.IncludeInAll = !f.NoIndex
			fms = append(fms, fm)
		default:
			fm := bleve.NewTextFieldMapping()
			fm.Analyzer = standard.Name
			fm.Index = !f.NoIndex
			fm.IncludeInAll = !f.NoIndex
			fms = append(fms, fm)
			if f.Sortable {
				sm := bleve.NewKeywordFieldMapping()
				sm.Name = f.Name() + sortSuffix
				sm.IncludeInAll = false
				fms = append(fms, sm)
			}
		}
		doc.AddFieldMappingsAt(f.Name(), fms...)
	}

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = standard.Name
	return m
}

func (mi *memoryIndex) covers(key string) bool {
	for _, p := range mi.prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return len(mi.prefixes) == 0
}

// document converts a stored hash into the bleve document for this index.
func (mi *memoryIndex) document(hash map[string]string) map[string]any {
	doc := make(map[string]any, len(mi.fields))
	for _, f := range mi.fields {
		v, ok := hash[f.Identifier()]
		if !ok {
			continue
		}
		if f.Type == FieldTypeTag {
			doc[f.Name()] = splitTags(v, f.Separator)
			continue
		}
		doc[f.Name()] = v
	}
	return doc
}

func (mi *memoryIndex) sortField(name string) (string, error) {
	for _, f := range mi.fields {
		if f.Name() != name {
			continue
		}
		if f.Type == FieldTypeText && f.Sortable {
			return name + sortSuffix, nil
		}
		if f.Type == FieldTypeTag {
			return name, nil
		}
		return "", fmt.Errorf("property `%s` is not sortable", name)
	}
	return "", fmt.Errorf("property `%s` not loaded nor in schema", name)
}

// termCounts collects the dictionary of every indexed TEXT field.
func (mi *memoryIndex) termCounts() (map[string]uint64, error) {
	terms := make(map[string]uint64)
	for _, f := range mi.fields {
		if f.Type != FieldTypeText || f.NoIndex {
			continue
		}
		dict, err := mi.index.FieldDict(f.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read dictionary of %s: %w", f.Name(), err)
		}
		for {
			entry, err := dict.Next()
			if err != nil {
				_ = dict.Close()
				return nil, err
			}
			if entry == nil {
				break
			}
			terms[entry.Term] += entry.Count
		}
		_ = dict.Close()
	}
	return terms, nil
}

// analyze splits text the way TEXT fields are indexed, dropping stop words.
func (mi *memoryIndex) analyze(text string) []string {
	analyzer := mi.index.Mapping().AnalyzerNamed(standard.Name)
	if analyzer == nil {
		return tokenize(text)
	}
	var terms []string
	for _, tok := range analyzer.Analyze([]byte(text)) {
		terms = append(terms, string(tok.Term))
	}
	return terms
}

func parseQueryText(text string) query.Query {
	text = strings.TrimSpace(text)
	if text == "" || text == "*" {
		return bleve.NewMatchAllQuery()
	}
	return bleve.NewQueryStringQuery(text)
}

func projectFields(hash map[string]string, only []string) map[string]string {
	out := make(map[string]string, len(hash))
	if len(only) == 0 {
		for k, v := range hash {
			out[k] = v
		}
		return out
	}
	for _, k := range only {
		if v, ok := hash[k]; ok {
			out[k] = v
		}
	}
	return out
}

func splitTags(value, separator string) []string {
	if separator == "" {
		separator = ","
	}
	parts := strings.Split(value, separator)
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
