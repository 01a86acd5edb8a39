package search

import (
	"fmt"

	gperrors "github.com/Aman-CERP/gpsearch/internal/errors"
	"github.com/Aman-CERP/gpsearch/internal/store"
)

// FieldType is the declared type of a schema field.
type FieldType string

const (
	// FieldText is a free-text field.
	FieldText FieldType = "text"
	// FieldTag is an exact-match field holding one or more separator-joined values.
	FieldTag FieldType = "tag"
)

// DefaultSeparator joins sequence values when a field declares none.
const DefaultSeparator = ","

// PayloadField is the reserved hash field holding the JSON-encoded payload.
const PayloadField = "_payload"

// FieldOptions are the only options ever forwarded to the backing store.
type FieldOptions struct {
	// Weight scales the relevance of text matches; nil keeps the store default.
	Weight   *float64
	Sortable bool
	NoIndex  bool
	NoStem   bool
	// Separator joins sequence values; must be a single character when set.
	Separator string
}

// Field is one entry of an index schema.
type Field struct {
	Name    string
	Type    FieldType
	Options FieldOptions
}

// Weight returns a pointer to w, for FieldOptions literals.
func Weight(w float64) *float64 { return &w }

// separator returns the field separator, falling back to DefaultSeparator.
func (f Field) separator() string {
	if f.Options.Separator != "" {
		return f.Options.Separator
	}
	return DefaultSeparator
}

// ValidateSchema checks a schema once, before any index is built from it.
func ValidateSchema(fields []Field) error {
	if len(fields) == 0 {
		return gperrors.New(gperrors.ErrCodeInvalidSchema, "schema has no fields", nil)
	}

	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return schemaError(fmt.Sprintf("field %d has no name", i))
		}
		if f.Name == PayloadField {
			return schemaError(fmt.Sprintf("field name %q is reserved", PayloadField))
		}
		if _, dup := seen[f.Name]; dup {
			return schemaError(fmt.Sprintf("duplicate field %q", f.Name))
		}
		seen[f.Name] = struct{}{}

		switch f.Type {
		case FieldText, FieldTag:
		default:
			return schemaError(fmt.Sprintf("field %q has unknown type %q", f.Name, f.Type))
		}
		if f.Options.Weight != nil && *f.Options.Weight < 0 {
			return schemaError(fmt.Sprintf("field %q has negative weight", f.Name))
		}
		if f.Options.Separator != "" && len([]rune(f.Options.Separator)) != 1 {
			return schemaError(fmt.Sprintf("field %q separator must be one character", f.Name))
		}
	}
	return nil
}

func schemaError(msg string) error {
	return gperrors.New(gperrors.ErrCodeInvalidSchema, msg, nil).
		WithSuggestion("Fix the field definitions passed to search.New")
}

// translateSchema converts schema fields into store field descriptors.
// Field references use the JSON-path form with the bare name exposed.
func translateSchema(fields []Field) []store.FieldSpec {
	specs := make([]store.FieldSpec, 0, len(fields))
	for _, f := range fields {
		spec := store.FieldSpec{
			Path:     "$." + f.Name,
			As:       f.Name,
			Type:     store.FieldTypeText,
			Sortable: f.Options.Sortable,
			NoIndex:  f.Options.NoIndex,
		}
		if f.Type == FieldTag {
			spec.Type = store.FieldTypeTag
			spec.Separator = f.separator()
		} else {
			spec.NoStem = f.Options.NoStem
			if f.Options.Weight != nil {
				spec.Weight = *f.Options.Weight
			}
		}
		specs = append(specs, spec)
	}
	return specs
}
