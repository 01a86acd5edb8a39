package search

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Aman-CERP/gpsearch/internal/store"
)

// fakeBackend wraps the memory backend, recording calls and failing on demand.
type fakeBackend struct {
	*store.MemoryBackend

	mu    sync.Mutex
	calls []string
	errs  map[string]error
}

func newFakeBackend(opts ...store.MemoryOption) *fakeBackend {
	return &fakeBackend{
		MemoryBackend: store.NewMemoryBackend(opts...),
		errs:          make(map[string]error),
	}
}

func (f *fakeBackend) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.errs[op]
}

func (f *fakeBackend) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeBackend) ListIndexes(ctx context.Context) ([]string, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	return f.MemoryBackend.ListIndexes(ctx)
}

func (f *fakeBackend) CreateIndex(ctx context.Context, name string, def store.IndexDefinition, fields []store.FieldSpec) error {
	if err := f.record("create"); err != nil {
		return err
	}
	return f.MemoryBackend.CreateIndex(ctx, name, def, fields)
}

func (f *fakeBackend) DropIndex(ctx context.Context, name string, dd bool) error {
	if err := f.record("drop"); err != nil {
		return err
	}
	return f.MemoryBackend.DropIndex(ctx, name, dd)
}

func (f *fakeBackend) IndexInfo(ctx context.Context, name string) (*store.IndexInfo, error) {
	if err := f.record("info"); err != nil {
		return nil, err
	}
	return f.MemoryBackend.IndexInfo(ctx, name)
}

func (f *fakeBackend) HSet(ctx context.Context, key string, values map[string]string) error {
	if err := f.record("hset"); err != nil {
		return err
	}
	return f.MemoryBackend.HSet(ctx, key, values)
}

func (f *fakeBackend) Del(ctx context.Context, keys ...string) error {
	if err := f.record("del"); err != nil {
		return err
	}
	return f.MemoryBackend.Del(ctx, keys...)
}

func (f *fakeBackend) Search(ctx context.Context, name string, q store.Query) (*store.RawResult, error) {
	if err := f.record("search"); err != nil {
		return nil, err
	}
	return f.MemoryBackend.Search(ctx, name, q)
}

func (f *fakeBackend) SpellCheck(ctx context.Context, name, query string, opts store.SpellCheckOptions) ([]store.SpellCheckTerm, error) {
	if err := f.record("spellcheck"); err != nil {
		return nil, err
	}
	return f.MemoryBackend.SpellCheck(ctx, name, query, opts)
}

// recordingObserver collects Observer callbacks.
type recordingObserver struct {
	mu       sync.Mutex
	ops      []string
	degraded map[string]bool
}

func (o *recordingObserver) ObserveOperation(index, op, outcome string, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op+":"+outcome)
}

func (o *recordingObserver) SetDegraded(index string, degraded bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.degraded == nil {
		o.degraded = make(map[string]bool)
	}
	o.degraded[index] = degraded
}

func testSchema() []Field {
	return []Field{
		{Name: "name", Type: FieldText, Options: FieldOptions{Weight: Weight(2)}},
		{Name: "body", Type: FieldText},
		{Name: "tags", Type: FieldTag},
		{Name: "modified", Type: FieldText, Options: FieldOptions{Sortable: true}},
	}
}

// bufferLogger returns a logger writing text records into a buffer.
func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func newTestIndex(t *testing.T, b store.Backend, opts ...Option) *Index {
	t.Helper()
	idx, err := New(context.Background(), b, "test_idx", "doc", testSchema(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return idx
}
