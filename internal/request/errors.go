package request

import "fmt"

// ErrorKind identifies a request-shape problem detected during
// normalization, before the schema is consulted.
type ErrorKind string

const (
	// ErrInvalidFieldsType means the top-level field list was not a list.
	ErrInvalidFieldsType ErrorKind = "invalid_fields_type"
	// ErrInvalidFieldFormat means an element was neither a string nor a
	// single-key map.
	ErrInvalidFieldFormat ErrorKind = "invalid_field_format"
	// ErrUnsupportedFieldFormat means an element was well-formed but its
	// spec value had an unsupported shape.
	ErrUnsupportedFieldFormat ErrorKind = "unsupported_field_format"
)

// Error is a normalization failure.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrInvalidFieldsType:
		return fmt.Sprintf("fields must be a list, got %s", e.Detail)
	case ErrInvalidFieldFormat:
		return fmt.Sprintf("invalid field format: %s", e.Detail)
	case ErrUnsupportedFieldFormat:
		return fmt.Sprintf("unsupported field format: %s", e.Detail)
	}
	return string(e.Kind)
}

func describeValue(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", v)
	case bool, float64, int, int64:
		return fmt.Sprintf("%v", v)
	case []any:
		return "list"
	case map[string]any:
		return "map"
	}
	return fmt.Sprintf("%T", v)
}
