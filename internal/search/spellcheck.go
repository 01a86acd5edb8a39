package search

import (
	"context"
	"log/slog"
	"time"

	gperrors "github.com/Aman-CERP/gpsearch/internal/errors"
	"github.com/Aman-CERP/gpsearch/internal/store"
)

// SpellCheckOptions tunes SpellCheck.
type SpellCheckOptions struct {
	// Distance is the maximum edit distance of suggestions, 1 to 4. Zero means 1.
	Distance int
	// Include and Exclude name custom dictionaries.
	Include []string
	Exclude []string
}

// Candidate is a suggested correction.
type Candidate struct {
	Value string  `json:"value"`
	Score float64 `json:"score"`
}

// Suggestion lists the candidates for one misspelled term.
type Suggestion struct {
	Term       string      `json:"term"`
	Candidates []Candidate `json:"candidates"`
}

// SpellCheck suggests corrections for the misspelled terms of query.
// It returns nil when the Index is degraded, the index is missing or the store
// query fails; only invalid options are reported as errors.
func (i *Index) SpellCheck(ctx context.Context, query string, opts SpellCheckOptions) ([]Suggestion, error) {
	start := time.Now()
	if opts.Distance < 0 || opts.Distance > 4 {
		return nil, gperrors.New(gperrors.ErrCodeInvalidQuery, "spellcheck distance must be between 1 and 4", nil)
	}
	if i.degraded {
		i.observe("spellcheck", OutcomeNoop, start)
		return nil, nil
	}

	exists, err := i.Exists(ctx)
	if err != nil || !exists {
		i.observe("spellcheck", OutcomeNoop, start)
		return nil, nil
	}

	terms, err := i.backend.SpellCheck(ctx, i.Name(), cleanQuery(query), store.SpellCheckOptions{
		Distance: opts.Distance,
		Include:  opts.Include,
		Exclude:  opts.Exclude,
	})
	if err != nil {
		i.logger.Error("spellcheck_failed",
			slog.String("index", i.Name()),
			slog.String("error", err.Error()))
		i.observe("spellcheck", OutcomeError, start)
		return nil, nil
	}

	out := make([]Suggestion, 0, len(terms))
	for _, t := range terms {
		s := Suggestion{Term: t.Term, Candidates: make([]Candidate, 0, len(t.Suggestions))}
		for _, c := range t.Suggestions {
			s.Candidates = append(s.Candidates, Candidate{Value: c.Suggestion, Score: c.Score})
		}
		out = append(out, s)
	}
	i.observe("spellcheck", OutcomeOK, start)
	return out, nil
}
