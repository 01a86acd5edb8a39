package search

import (
	"context"
	"errors"
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gperrors "github.com/Aman-CERP/gpsearch/internal/errors"
)

func TestAdd_MapsSchemaFieldsOnly(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	idx := newTestIndex(t, b)
	require.NoError(t, idx.Create(ctx))

	// When: adding a record with schema, non-schema and nil fields
	err := idx.Add(ctx, "X", map[string]any{
		"name":      "hello",
		"tags":      []string{"a", "b"},
		"body":      nil,
		"unrelated": "dropped",
	}, nil)
	require.NoError(t, err)

	// Then: only present schema fields are stored, lists joined
	doc, err := idx.Get(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "hello", "tags": "a,b"}, doc)
}

func TestAdd_CustomSeparator(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	idx, err := New(ctx, b, "idx", "doc", []Field{
		{Name: "name", Type: FieldText},
		{Name: "labels", Type: FieldTag, Options: FieldOptions{Separator: "|"}},
	})
	require.NoError(t, err)
	require.NoError(t, idx.Create(ctx))

	require.NoError(t, idx.Add(ctx, "X", map[string]any{"labels": [2]string{"x", "y"}}, nil))

	doc, _ := idx.Get(ctx, "X")
	assert.Equal(t, "x|y", doc["labels"])
}

func TestAdd_EmptyMappingSkipped(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	idx := newTestIndex(t, b)
	require.NoError(t, idx.Create(ctx))

	// When: adding a record with no schema field
	require.NoError(t, idx.Add(ctx, "Z", map[string]any{"other": "value", "name": nil}, map[string]any{"k": 1}))

	// Then: nothing was written, not even the payload
	assert.Zero(t, b.count("hset"))
	doc, _ := idx.Get(ctx, "Z")
	assert.Empty(t, doc)
	res, err := idx.Search(ctx, "*", SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
}

func TestAdd_NoopWhenIndexAbsent(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	idx := newTestIndex(t, b)

	require.NoError(t, idx.Add(ctx, "X", map[string]any{"name": "hello"}, nil))

	assert.Zero(t, b.count("hset"))
}

func TestAdd_RequiresID(t *testing.T) {
	idx := newTestIndex(t, newFakeBackend())

	err := idx.Add(context.Background(), "", map[string]any{"name": "x"}, nil)

	assert.Equal(t, gperrors.ErrCodeInvalidInput, gperrors.GetCode(err))
}

func TestAdd_PayloadNotEncodable(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, newFakeBackend())
	require.NoError(t, idx.Create(ctx))

	err := idx.Add(ctx, "X", map[string]any{"name": "x"}, math.Inf(1))

	assert.Equal(t, gperrors.ErrCodeInvalidInput, gperrors.GetCode(err))
}

func TestAdd_WriteFailure(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	idx := newTestIndex(t, b)
	require.NoError(t, idx.Create(ctx))
	b.failOn("hset", errors.New("OOM command not allowed"))

	err := idx.Add(ctx, "X", map[string]any{"name": "x"}, nil)

	assert.Equal(t, gperrors.ErrCodeDocumentWriteFailed, gperrors.GetCode(err))
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	idx := newTestIndex(t, b)
	require.NoError(t, idx.Create(ctx))
	require.NoError(t, idx.Add(ctx, "GP Page:1", map[string]any{"name": "hello"}, nil))

	require.NoError(t, idx.Remove(ctx, "GP Page:1"))

	doc, _ := idx.Get(ctx, "GP Page:1")
	assert.Empty(t, doc)
	res, _ := idx.Search(ctx, "hello", SearchOptions{})
	assert.Equal(t, 0, res.Total)
}

func TestRemove_MissingIndexIsNoop(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	obs := &recordingObserver{}
	idx := newTestIndex(t, b, WithMetrics(obs))

	// Given: a document key written while no index is defined
	require.NoError(t, b.HSet(ctx, idx.Keys().Key("GP Page:1"), map[string]string{"name": "hello"}))

	// When: removing it through the Index
	require.NoError(t, idx.Remove(ctx, "GP Page:1"))

	// Then: no delete reached the store
	assert.Zero(t, b.count("del"))
	doc, _ := idx.Get(ctx, "GP Page:1")
	assert.Equal(t, map[string]string{"name": "hello"}, doc)
	assert.Contains(t, obs.ops, "remove:noop")
}

func TestStringify(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	u, _ := url.Parse("https://example.com/x")
	n := 7
	var nilPtr *int

	tests := []struct {
		name   string
		in     any
		want   string
		wantOK bool
	}{
		{"nil", nil, "", false},
		{"string", "abc", "abc", true},
		{"bytes", []byte("raw"), "raw", true},
		{"true", true, "1", true},
		{"false", false, "0", true},
		{"int", 42, "42", true},
		{"negative int64", int64(-3), "-3", true},
		{"uint", uint8(9), "9", true},
		{"float", 1.5, "1.5", true},
		{"whole float", 2.0, "2", true},
		{"time", when, "2024-05-01T12:30:00Z", true},
		{"stringer", u, "https://example.com/x", true},
		{"pointer", &n, "7", true},
		{"nil pointer", nilPtr, "", false},
		{"string slice", []string{"a", "b"}, "a,b", true},
		{"mixed slice", []any{"a", 1, nil, true}, "a,1,1", true},
		{"empty slice", []string{}, "", true},
		{"nil slice", []string(nil), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := stringify(tt.in, ",")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
