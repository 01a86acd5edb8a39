package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/Aman-CERP/gpsearch/internal/store"
)

// Markers wrapped around highlighted terms.
const (
	HighlightOpen  = "<mark>"
	HighlightClose = "</mark>"
)

// DefaultPageLength is used when SearchOptions.PageLength is not positive.
const DefaultPageLength = 10

// SearchOptions controls paging, ordering and projection of a search.
type SearchOptions struct {
	// Start is the offset of the first result.
	Start int
	// PageLength is the maximum number of results.
	PageLength int
	// SortBy is "field [asc|desc]"; the field must be declared sortable.
	SortBy string
	// Highlight wraps matched terms in HighlightOpen/HighlightClose.
	Highlight bool
	// WithPayloads decodes the stored payload into Doc.Payload.
	WithPayloads bool
}

// Result is one page of search results.
type Result struct {
	Total    int           `json:"total"`
	Docs     []Doc         `json:"docs"`
	Duration time.Duration `json:"duration"`
}

// Doc is a search hit with its caller-facing id.
type Doc struct {
	ID      string            `json:"id"`
	Fields  map[string]string `json:"fields"`
	Payload any               `json:"payload,omitempty"`

	separators map[string]string
}

// Tags splits a tag field on its schema separator. Fields that are not tags
// are split on DefaultSeparator. Empty values yield nil.
func (d Doc) Tags(name string) []string {
	v := d.Fields[name]
	if v == "" {
		return nil
	}
	sep := d.separators[name]
	if sep == "" {
		sep = DefaultSeparator
	}
	parts := strings.Split(v, sep)
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func emptyResult() *Result {
	return &Result{Docs: []Doc{}}
}

// Search runs query against the index. Search never fails because of the
// backend: a degraded Index, a missing index and a failed query all return an
// empty Result. The order of Docs is the store's.
//
// Results may come from the cache and must not be modified.
func (i *Index) Search(ctx context.Context, query string, opts SearchOptions) (*Result, error) {
	start := time.Now()
	if i.degraded {
		i.observe("search", OutcomeNoop, start)
		return emptyResult(), nil
	}

	exists, err := i.Exists(ctx)
	if err != nil {
		i.logger.Error("search_existence_check_failed",
			slog.String("index", i.Name()),
			slog.String("error", err.Error()))
		i.observe("search", OutcomeError, start)
		return emptyResult(), nil
	}
	if !exists {
		i.observe("search", OutcomeNoop, start)
		return emptyResult(), nil
	}

	q := i.buildQuery(cleanQuery(query), opts)
	key := cacheKey(q, opts.WithPayloads)
	if cached, ok := i.cache.get(key); ok {
		i.observe("search", OutcomeOK, start)
		return cached, nil
	}

	raw, err := i.backend.Search(ctx, i.Name(), q)
	if err != nil {
		i.logger.Error("search_failed",
			slog.String("index", i.Name()),
			slog.String("query", q.Text),
			slog.String("error", err.Error()))
		i.observe("search", OutcomeError, start)
		return emptyResult(), nil
	}

	res := &Result{
		Total:    raw.Total,
		Docs:     make([]Doc, 0, len(raw.Docs)),
		Duration: raw.Duration,
	}
	if res.Duration <= 0 {
		res.Duration = time.Since(start)
	}
	for _, rd := range raw.Docs {
		res.Docs = append(res.Docs, i.decodeDoc(rd, opts.WithPayloads))
	}

	i.cache.add(key, res)
	i.observe("search", OutcomeOK, start)
	return res, nil
}

// buildQuery translates options into a store query. A sort on an unknown or
// unsortable field is dropped with a warning.
func (i *Index) buildQuery(text string, opts SearchOptions) store.Query {
	q := store.Query{
		Text:   text,
		Offset: max(opts.Start, 0),
		Limit:  opts.PageLength,
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageLength
	}
	if opts.Highlight {
		q.HighlightOpen = HighlightOpen
		q.HighlightClose = HighlightClose
	}
	if opts.SortBy != "" {
		field, asc, ok := parseSort(opts.SortBy)
		f, known := i.byName[field]
		switch {
		case !ok:
			i.logger.Warn("search_sort_invalid",
				slog.String("index", i.Name()),
				slog.String("sort_by", opts.SortBy))
		case !known || !f.Options.Sortable:
			i.logger.Warn("search_sort_field_not_sortable",
				slog.String("index", i.Name()),
				slog.String("field", field))
		default:
			q.SortBy = field
			q.SortAsc = asc
		}
	}
	if opts.WithPayloads {
		q.Return = make([]string, 0, len(i.fields)+1)
		for _, f := range i.fields {
			q.Return = append(q.Return, f.Name)
		}
		q.Return = append(q.Return, PayloadField)
	}
	return q
}

// decodeDoc turns a raw hit into a Doc. A payload that fails to decode is
// logged and left nil.
func (i *Index) decodeDoc(rd store.RawDoc, withPayload bool) Doc {
	doc := Doc{
		ID:         i.keys.ID(rd.ID),
		Fields:     make(map[string]string, len(rd.Fields)),
		separators: i.seps,
	}
	for name, value := range rd.Fields {
		if name == PayloadField {
			continue
		}
		name = store.TrimPathMarkers(name)
		if name == "" {
			continue
		}
		doc.Fields[name] = value
	}

	if withPayload {
		if data, ok := rd.Fields[PayloadField]; ok && data != "" {
			var payload any
			if err := json.Unmarshal([]byte(data), &payload); err != nil {
				i.logger.Warn("search_payload_decode_failed",
					slog.String("index", i.Name()),
					slog.String("id", doc.ID),
					slog.String("error", err.Error()))
			} else {
				doc.Payload = payload
			}
		}
	}
	return doc
}

func tagSeparators(fields []Field) map[string]string {
	seps := make(map[string]string, len(fields))
	for _, f := range fields {
		if f.Type == FieldTag {
			seps[f.Name] = f.separator()
		}
	}
	return seps
}

// parseSort splits "field [asc|desc]". Direction defaults to ascending.
func parseSort(spec string) (field string, asc bool, ok bool) {
	parts := strings.Fields(spec)
	switch len(parts) {
	case 1:
		return parts[0], true, true
	case 2:
		switch strings.ToLower(parts[1]) {
		case "asc":
			return parts[0], true, true
		case "desc":
			return parts[0], false, true
		}
	}
	return "", false, false
}

// cleanQuery trims and collapses whitespace. An empty query matches everything.
func cleanQuery(q string) string {
	q = strings.Join(strings.Fields(q), " ")
	if q == "" {
		return "*"
	}
	return q
}
