// Package request converts raw client-submitted field lists into a canonical
// internal form. Name resolution happens here; semantic validation against
// the schema is the compiler's job.
package request

import (
	"github.com/ash-project/fieldgate/internal/naming"
)

// Node is one normalized field request: a bare name, or a name with a spec.
type Node struct {
	Name string // internal identifier, already through the formatter
	Spec *Spec  // nil when the field was requested bare
}

// SpecKind distinguishes the two spec shapes a field can carry.
type SpecKind string

const (
	// SpecList is a nested field selection (relationships, embedded
	// resources, typed structs, unions).
	SpecList SpecKind = "LIST"
	// SpecInvoke is a calculation invocation: an argument map plus an
	// optional nested selection of the calculation's return shape.
	SpecInvoke SpecKind = "INVOKE"
)

// Spec is the structured payload of a single-key map element.
type Spec struct {
	Kind SpecKind

	// Children holds the nested selection for SpecList.
	Children []Node

	// Args is the raw argument value as submitted for SpecInvoke. The
	// compiler validates its shape against the calculation's declared
	// arguments; the normalizer only carries it.
	Args    any
	HasArgs bool

	// Fields holds the normalized nested selection of the calculation's
	// return shape for SpecInvoke.
	Fields    []Node
	HasFields bool
}

// Normalize converts a raw field list into Node trees. The top-level value
// must be a list; elements must be strings or single-key maps. Every
// name-bearing element is resolved through the formatter.
func Normalize(raw any, f naming.Formatter) ([]Node, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, &Error{Kind: ErrInvalidFieldsType, Detail: describeValue(raw)}
	}
	return normalizeList(list, f)
}

func normalizeList(list []any, f naming.Formatter) ([]Node, error) {
	nodes := make([]Node, 0, len(list))
	for _, elem := range list {
		node, err := normalizeElement(elem, f)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func normalizeElement(elem any, f naming.Formatter) (Node, error) {
	switch v := elem.(type) {
	case string:
		return Node{Name: f.ToInternal(v)}, nil
	case map[string]any:
		if len(v) != 1 {
			return Node{}, &Error{Kind: ErrInvalidFieldFormat, Detail: describeValue(v)}
		}
		for name, specValue := range v {
			spec, err := normalizeSpec(specValue, f)
			if err != nil {
				return Node{}, err
			}
			return Node{Name: f.ToInternal(name), Spec: spec}, nil
		}
	}
	return Node{}, &Error{Kind: ErrInvalidFieldFormat, Detail: describeValue(elem)}
}

func normalizeSpec(value any, f naming.Formatter) (*Spec, error) {
	switch v := value.(type) {
	case []any:
		children, err := normalizeList(v, f)
		if err != nil {
			return nil, err
		}
		return &Spec{Kind: SpecList, Children: children}, nil
	case map[string]any:
		spec := &Spec{Kind: SpecInvoke}
		for key, val := range v {
			switch f.ToInternal(key) {
			case "args":
				spec.Args = val
				spec.HasArgs = true
			case "fields":
				fieldList, ok := val.([]any)
				if !ok {
					return nil, &Error{Kind: ErrUnsupportedFieldFormat, Detail: describeValue(val)}
				}
				fields, err := normalizeList(fieldList, f)
				if err != nil {
					return nil, err
				}
				spec.Fields = fields
				spec.HasFields = true
			default:
				return nil, &Error{Kind: ErrUnsupportedFieldFormat, Detail: key}
			}
		}
		return spec, nil
	}
	return nil, &Error{Kind: ErrUnsupportedFieldFormat, Detail: describeValue(value)}
}
