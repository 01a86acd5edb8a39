package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	gperrors "github.com/Aman-CERP/gpsearch/internal/errors"
)

// Add writes a document under id. Only schema fields are stored; absent and nil
// values are skipped and sequences are joined with the field separator. A non-nil
// payload is stored JSON-encoded under PayloadField.
//
// Add is a no-op when the Index is degraded or the index does not exist, and when
// no schema field is present in fields.
func (i *Index) Add(ctx context.Context, id string, fields map[string]any, payload any) error {
	start := time.Now()
	if id == "" {
		return gperrors.ValidationError("document id is required", nil)
	}
	if i.degraded {
		i.observe("add", OutcomeNoop, start)
		return nil
	}

	exists, err := i.Exists(ctx)
	if err != nil {
		i.observe("add", OutcomeError, start)
		return err
	}
	if !exists {
		i.observe("add", OutcomeNoop, start)
		return nil
	}

	mapping := i.mapDocument(fields)
	if len(mapping) == 0 {
		i.logger.Debug("document_skipped_empty",
			slog.String("index", i.Name()),
			slog.String("id", id))
		i.observe("add", OutcomeNoop, start)
		return nil
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			i.observe("add", OutcomeError, start)
			return gperrors.ValidationError("payload is not JSON-encodable", err).
				WithDetail("id", id)
		}
		mapping[PayloadField] = string(data)
	}

	if err := i.backend.HSet(ctx, i.keys.Key(id), mapping); err != nil {
		i.observe("add", OutcomeError, start)
		return gperrors.New(gperrors.ErrCodeDocumentWriteFailed,
			fmt.Sprintf("failed to write document %s", id), err)
	}
	i.purgeCache()
	i.observe("add", OutcomeOK, start)
	return nil
}

// Remove deletes the document stored under id. No-op when the Index is degraded
// or the index does not exist.
func (i *Index) Remove(ctx context.Context, id string) error {
	start := time.Now()
	if i.degraded {
		i.observe("remove", OutcomeNoop, start)
		return nil
	}

	exists, err := i.Exists(ctx)
	if err != nil {
		i.observe("remove", OutcomeError, start)
		return err
	}
	if !exists {
		i.observe("remove", OutcomeNoop, start)
		return nil
	}
	if err := i.backend.Del(ctx, i.keys.Key(id)); err != nil {
		i.observe("remove", OutcomeError, start)
		return gperrors.New(gperrors.ErrCodeDocumentWriteFailed,
			fmt.Sprintf("failed to remove document %s", id), err)
	}
	i.purgeCache()
	i.observe("remove", OutcomeOK, start)
	return nil
}

// Get reads the stored fields of a document by id, bypassing the index.
// A missing document yields an empty map.
func (i *Index) Get(ctx context.Context, id string) (map[string]string, error) {
	hash, err := i.backend.HGetAll(ctx, i.keys.Key(id))
	if err != nil {
		return nil, gperrors.BackendError("failed to read document", err).WithDetail("id", id)
	}
	return hash, nil
}

// mapDocument flattens the schema fields present in fields into strings.
func (i *Index) mapDocument(fields map[string]any) map[string]string {
	out := make(map[string]string, len(i.fields))
	for _, f := range i.fields {
		v, ok := fields[f.Name]
		if !ok {
			continue
		}
		if s, ok := stringify(v, f.separator()); ok {
			out[f.Name] = s
		}
	}
	return out
}

// stringify renders a field value. It reports false for nil values.
func stringify(v any, sep string) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case bool:
		if x {
			return "1", true
		}
		return "0", true
	case time.Time:
		return x.Format(time.RFC3339), true
	case fmt.Stringer:
		return x.String(), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "", false
		}
		return stringify(rv.Elem().Interface(), sep)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return stringify(rv.Bool(), sep)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "", false
		}
		parts := make([]string, 0, rv.Len())
		for j := 0; j < rv.Len(); j++ {
			if s, ok := stringify(rv.Index(j).Interface(), sep); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, sep), true
	default:
		return fmt.Sprint(v), true
	}
}
