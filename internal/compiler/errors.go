package compiler

import (
	"fmt"
	"strings"
)

// ErrorKind identifies a request-validation failure raised while compiling a
// field tree. All kinds are compile-time: a raw result never produces one.
type ErrorKind string

const (
	ErrUnknownField               ErrorKind = "unknown_field"
	ErrSimpleAttributeWithSpec    ErrorKind = "simple_attribute_with_spec"
	ErrSimpleCalculationWithSpec  ErrorKind = "simple_calculation_with_spec"
	ErrCalculationRequiresArgs    ErrorKind = "calculation_requires_args"
	ErrInvalidCalculationArgs     ErrorKind = "invalid_calculation_args"
	ErrFieldDoesNotSupportNesting ErrorKind = "field_does_not_support_nesting"

	// Wrapping kinds attach the outer field name to a nested compile error,
	// forming the dotted field path as the failure unwinds.
	ErrRelationshipField     ErrorKind = "relationship_field"
	ErrEmbeddedResourceField ErrorKind = "embedded_resource_field"
	ErrCalculationField      ErrorKind = "calculation_field"
)

// Error is a structured compile failure. Field and Resource name the
// offending field; wrapping kinds carry the nested failure in Inner.
type Error struct {
	Kind     ErrorKind
	Field    string // internal field name
	Resource string // resource or type the field was requested on
	Detail   string
	Inner    error
}

func (e *Error) Unwrap() error { return e.Inner }

// FieldPath returns the internal field names from the outermost request
// field down to the offending one.
func (e *Error) FieldPath() []string {
	path := []string{e.Field}
	inner := e.Inner
	for inner != nil {
		ce, ok := inner.(*Error)
		if !ok {
			break
		}
		path = append(path, ce.Field)
		inner = ce.Inner
	}
	return path
}

// Leaf returns the innermost compile error, unwinding wrapping kinds.
func (e *Error) Leaf() *Error {
	cur := e
	for {
		inner, ok := cur.Inner.(*Error)
		if !ok {
			return cur
		}
		cur = inner
	}
}

func (e *Error) Error() string {
	leaf := e.Leaf()
	msg := leaf.message()
	if path := e.FieldPath(); len(path) > 1 {
		return fmt.Sprintf("%s (at %s)", msg, strings.Join(path, "."))
	}
	return msg
}

func (e *Error) message() string {
	switch e.Kind {
	case ErrUnknownField:
		return fmt.Sprintf("unknown field %q on resource %s", e.Field, e.Resource)
	case ErrSimpleAttributeWithSpec:
		return fmt.Sprintf("attribute %q on resource %s does not take a field selection", e.Field, e.Resource)
	case ErrSimpleCalculationWithSpec:
		return fmt.Sprintf("calculation %q on resource %s does not take a field selection", e.Field, e.Resource)
	case ErrCalculationRequiresArgs:
		return fmt.Sprintf("calculation %q on resource %s requires arguments", e.Field, e.Resource)
	case ErrInvalidCalculationArgs:
		return fmt.Sprintf("invalid arguments for calculation %q on resource %s: %s", e.Field, e.Resource, e.Detail)
	case ErrFieldDoesNotSupportNesting:
		if e.Detail != "" {
			return fmt.Sprintf("field %q on resource %s: %s", e.Field, e.Resource, e.Detail)
		}
		return fmt.Sprintf("field %q on resource %s does not support nesting", e.Field, e.Resource)
	}
	return fmt.Sprintf("invalid field %q on resource %s", e.Field, e.Resource)
}
