package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	gperrors "github.com/Aman-CERP/gpsearch/internal/errors"
	"github.com/Aman-CERP/gpsearch/internal/index"
	"github.com/Aman-CERP/gpsearch/internal/output"
	"github.com/Aman-CERP/gpsearch/internal/search"
)

// maxSnippet bounds the content printed per hit in text output.
const maxSnippet = 200

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit       int
	start       int
	sortBy      string
	noHighlight bool
	format      string // "text", "json"
}

// searchReport is the --format json output.
type searchReport struct {
	Query      string      `json:"query"`
	Total      int         `json:"total"`
	Start      int         `json:"start"`
	DurationMS float64     `json:"duration_ms"`
	Results    []index.Hit `json:"results"`
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search discussions, pages and tasks",
		Long: `Run a full-text query against the search index.

Titles weigh twice as much as content. Tag fields can be filtered with
the backend's query syntax, e.g. @team:{eng} on Redis or team:eng on the
memory backend. "*" matches every document.

Examples:
  gpsearch search launch plan
  gpsearch search "onboarding" --limit 5 --start 5
  gpsearch search "*" --sort "modified desc"
  gpsearch search roadmap --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default: search.page_length)")
	cmd.Flags().IntVar(&opts.start, "start", 0, "Offset of the first result")
	cmd.Flags().StringVar(&opts.sortBy, "sort", "", "Sortable field and direction, e.g. \"modified desc\"")
	cmd.Flags().BoolVar(&opts.noHighlight, "no-highlight", false, "Do not mark matched terms")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return gperrors.ValidationError(fmt.Sprintf("unknown format: %s", opts.format), nil).
			WithSuggestion("Use --format text or --format json")
	}
	if opts.start < 0 || opts.limit < 0 {
		return gperrors.ValidationError("--start and --limit must not be negative", nil)
	}

	a, err := newApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	limit := opts.limit
	if limit == 0 {
		limit = a.cfg.Search.PageLength
	}
	highlight := a.cfg.Search.Highlight && !opts.noHighlight

	a.logger.Debug("search_started",
		slog.String("query", query),
		slog.Int("start", opts.start),
		slog.Int("limit", limit))

	res, err := a.index().Search(cmd.Context(), query, search.SearchOptions{
		Start:        opts.start,
		PageLength:   limit,
		SortBy:       opts.sortBy,
		Highlight:    highlight,
		WithPayloads: true,
	})
	if err != nil {
		return err
	}

	hits := make([]index.Hit, len(res.Docs))
	for i, d := range res.Docs {
		hits[i] = index.NewHit(d)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(searchReport{
			Query:      query,
			Total:      res.Total,
			Start:      opts.start,
			DurationMS: float64(res.Duration.Microseconds()) / 1000,
			Results:    hits,
		})
	}

	out := output.New(cmd.OutOrStdout())
	if len(hits) == 0 {
		if a.index().Degraded() {
			out.Warning("Search module not available")
		} else {
			out.Statusf("🔍", "No results for %q", query)
		}
		return nil
	}

	out.Statusf("🔍", "%d of %d result(s) for %q", len(hits), res.Total, query)
	out.Newline()
	for i, h := range hits {
		out.Result(opts.start+i+1, hitTitle(h), hitMeta(h), snippet(h.Content, maxSnippet))
	}
	return nil
}

// hitTitle falls back to the record name for untitled records.
func hitTitle(h index.Hit) string {
	if h.Title != "" {
		return h.Title
	}
	return h.Name
}

// hitMeta lists the non-empty descriptive fields of a hit.
func hitMeta(h index.Hit) []string {
	meta := []string{h.Doctype + " " + h.Name}
	if h.Team != "" {
		meta = append(meta, "team "+h.Team)
	}
	if h.Project != "" {
		meta = append(meta, "project "+h.Project)
	}
	if h.Modified != "" {
		meta = append(meta, h.Modified)
	}
	return meta
}

// snippet shortens s to at most n runes.
func snippet(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
