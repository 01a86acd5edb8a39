// Package search maintains a secondary full-text index of documents in a
// backing store. It probes the store for its search capability once, translates a
// typed schema into index definitions, writes documents as flat hashes and decodes
// query results back into clean records.
//
// When the store has no search module the Index is degraded: every operation is a
// no-op that returns an empty result, so callers never special-case it.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gperrors "github.com/Aman-CERP/gpsearch/internal/errors"
	"github.com/Aman-CERP/gpsearch/internal/store"
)

// existence is the cached knowledge of whether the index is defined.
type existence int

const (
	existenceUnknown existence = iota
	existencePresent
	existenceAbsent
)

// Operation outcomes reported to an Observer.
const (
	OutcomeOK    = "ok"
	OutcomeNoop  = "noop"
	OutcomeError = "error"
)

// Observer receives operation outcomes, e.g. for metrics.
type Observer interface {
	ObserveOperation(index, op, outcome string, d time.Duration)
	SetDegraded(index string, degraded bool)
}

// Index is a search index over documents stored under one key prefix.
//
// The degraded flag is set once in New and never changes. The existence state is
// guarded by mu: Create moves it to present, Drop to absent, a live probe caches
// its outcome and Invalidate resets it to unknown. It is safe for concurrent use,
// but sequences of calls are not atomic.
type Index struct {
	backend  store.Backend
	name     string
	keys     KeyBuilder
	fields   []Field
	byName   map[string]Field
	specs    []store.FieldSpec
	seps     map[string]string
	degraded bool

	logger    *slog.Logger
	observer  Observer
	cacheSize int
	cacheTTL  time.Duration
	cache     *resultCache

	mu    sync.Mutex
	state existence
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(i *Index) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithNamespace prefixes both the index name and every document key,
// so several sites can share one store.
func WithNamespace(ns string) Option {
	return func(i *Index) {
		i.keys.Namespace = ns
	}
}

// WithCache enables an LRU cache of up to n search results, each kept for at
// most ttl (DefaultCacheTTL when ttl is not positive). Any write through the
// Index purges it; writes by other processes show up once entries expire.
func WithCache(n int, ttl time.Duration) Option {
	return func(i *Index) {
		i.cacheSize = n
		i.cacheTTL = ttl
	}
}

// WithMetrics reports operation outcomes to o.
func WithMetrics(o Observer) Option {
	return func(i *Index) {
		i.observer = o
	}
}

// New validates the schema and probes the backend for its search capability.
//
// A backend without the search module yields a degraded Index and no error.
// Any other probe failure is returned: it points at a real backend problem.
func New(ctx context.Context, backend store.Backend, name, prefix string, fields []Field, opts ...Option) (*Index, error) {
	if backend == nil {
		return nil, gperrors.New(gperrors.ErrCodeInvalidInput, "backend is required", nil)
	}
	if name == "" || prefix == "" {
		return nil, gperrors.New(gperrors.ErrCodeInvalidInput, "index name and key prefix are required", nil)
	}
	if err := ValidateSchema(fields); err != nil {
		return nil, err
	}

	idx := &Index{
		backend: backend,
		name:    name,
		keys:    KeyBuilder{Prefix: prefix},
		fields:  append([]Field(nil), fields...),
		byName:  make(map[string]Field, len(fields)),
		specs:   translateSchema(fields),
		seps:    tagSeparators(fields),
		logger:  slog.Default(),
	}
	for _, f := range fields {
		idx.byName[f.Name] = f
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.cacheSize > 0 {
		idx.cache = newResultCache(idx.cacheSize, idx.cacheTTL)
	}

	if err := idx.probe(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

// probe checks for the search module. It runs once per Index.
func (i *Index) probe(ctx context.Context) error {
	_, err := i.backend.ListIndexes(ctx)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrModuleMissing):
		i.degraded = true
		i.logger.Warn("search_module_missing",
			slog.String("index", i.Name()),
			slog.String("backend", i.backend.Name()),
			slog.String("error", err.Error()))
	default:
		return gperrors.BackendError("failed to probe search backend", err).
			WithDetail("backend", i.backend.Name()).
			WithSuggestion("Check that the backend is running and reachable")
	}
	if i.observer != nil {
		i.observer.SetDegraded(i.Name(), i.degraded)
	}
	return nil
}

// Name returns the namespaced index name as known to the store.
func (i *Index) Name() string {
	return i.keys.IndexName(i.name)
}

// Keys returns the key builder used for document keys.
func (i *Index) Keys() KeyBuilder {
	return i.keys
}

// Fields returns a copy of the schema.
func (i *Index) Fields() []Field {
	return append([]Field(nil), i.fields...)
}

// Degraded reports whether the backend lacks the search module.
func (i *Index) Degraded() bool {
	return i.degraded
}

// Create defines the index. Creating an index that already exists succeeds.
func (i *Index) Create(ctx context.Context) error {
	start := time.Now()
	if i.degraded {
		i.observe("create", OutcomeNoop, start)
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	def := store.IndexDefinition{Prefixes: []string{i.keys.IndexPrefix()}}
	err := i.backend.CreateIndex(ctx, i.Name(), def, i.specs)
	if err != nil && !errors.Is(err, store.ErrIndexExists) {
		i.observe("create", OutcomeError, start)
		return gperrors.New(gperrors.ErrCodeIndexCreateFailed,
			fmt.Sprintf("failed to create index %s", i.Name()), err)
	}

	i.state = existencePresent
	i.purgeCache()
	i.logger.Debug("index_created",
		slog.String("index", i.Name()),
		slog.Bool("existed", err != nil))
	i.observe("create", OutcomeOK, start)
	return nil
}

// Drop deletes the index together with its documents. Afterwards the index is
// considered absent even if the store reported an error.
func (i *Index) Drop(ctx context.Context) error {
	start := time.Now()
	if i.degraded {
		i.observe("drop", OutcomeNoop, start)
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	exists, err := i.existsLocked(ctx)
	if err != nil {
		i.observe("drop", OutcomeError, start)
		return err
	}
	if !exists {
		i.observe("drop", OutcomeNoop, start)
		return nil
	}

	err = i.backend.DropIndex(ctx, i.Name(), true)
	i.state = existenceAbsent
	i.purgeCache()

	if err != nil && !errors.Is(err, store.ErrUnknownIndex) {
		i.observe("drop", OutcomeError, start)
		return gperrors.New(gperrors.ErrCodeIndexDropFailed,
			fmt.Sprintf("failed to drop index %s", i.Name()), err)
	}
	i.logger.Debug("index_dropped", slog.String("index", i.Name()))
	i.observe("drop", OutcomeOK, start)
	return nil
}

// Exists reports whether the index is defined, probing the store when unknown.
// A degraded Index never exists.
func (i *Index) Exists(ctx context.Context) (bool, error) {
	if i.degraded {
		return false, nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.existsLocked(ctx)
}

func (i *Index) existsLocked(ctx context.Context) (bool, error) {
	switch i.state {
	case existencePresent:
		return true, nil
	case existenceAbsent:
		return false, nil
	}

	_, err := i.backend.IndexInfo(ctx, i.Name())
	switch {
	case err == nil:
		i.state = existencePresent
		return true, nil
	case errors.Is(err, store.ErrUnknownIndex):
		i.state = existenceAbsent
		return false, nil
	default:
		return false, gperrors.BackendError("failed to check index existence", err).
			WithDetail("index", i.Name())
	}
}

// Invalidate forgets the cached existence state, so the next call probes the store.
// Use it after the index was changed behind this Index's back.
func (i *Index) Invalidate() {
	i.mu.Lock()
	i.state = existenceUnknown
	i.mu.Unlock()
	i.purgeCache()
}

// Status describes the index for operators.
type Status struct {
	Name     string `json:"name"`
	Prefix   string `json:"prefix"`
	Backend  string `json:"backend"`
	Degraded bool   `json:"degraded"`
	Exists   bool   `json:"exists"`
	NumDocs  int    `json:"num_docs"`
}

// Status reports availability, existence and document count.
func (i *Index) Status(ctx context.Context) (*Status, error) {
	st := &Status{
		Name:     i.Name(),
		Prefix:   i.keys.IndexPrefix(),
		Backend:  i.backend.Name(),
		Degraded: i.degraded,
	}
	if i.degraded {
		return st, nil
	}

	exists, err := i.Exists(ctx)
	if err != nil {
		return nil, err
	}
	st.Exists = exists
	if !exists {
		return st, nil
	}

	info, err := i.backend.IndexInfo(ctx, i.Name())
	if err != nil {
		if errors.Is(err, store.ErrUnknownIndex) {
			i.Invalidate()
			st.Exists = false
			return st, nil
		}
		return nil, gperrors.BackendError("failed to read index info", err).
			WithDetail("index", i.Name())
	}
	st.NumDocs = info.NumDocs
	return st, nil
}

func (i *Index) observe(op, outcome string, start time.Time) {
	if i.observer != nil {
		i.observer.ObserveOperation(i.Name(), op, outcome, time.Since(start))
	}
}
