package plan

import "fmt"

// Template maps a client-facing output name to exactly one extraction
// instruction. Keys are unique by construction; the projector looks
// instructions up by name, so insertion order does not matter.
type Template map[string]Instruction

// InstructionKind is the closed set of extraction instruction variants.
type InstructionKind string

const (
	KindExtract                  InstructionKind = "EXTRACT"
	KindNested                   InstructionKind = "NESTED"
	KindCalcResult               InstructionKind = "CALC_RESULT"
	KindUnionSelection           InstructionKind = "UNION_SELECTION"
	KindCompositeSelection       InstructionKind = "COMPOSITE_SELECTION"
	KindCompositeNestedSelection InstructionKind = "COMPOSITE_NESTED_SELECTION"
)

// Instruction tells the projector how to produce one output field from a raw
// record. Source is always the internal field name to read; the remaining
// fields are populated per Kind.
type Instruction struct {
	Kind   InstructionKind
	Source string

	// Sub is the nested template for KindNested and KindCalcResult.
	Sub Template

	// Members maps requested union member names to their selections for
	// KindUnionSelection. Member names the client did not ask about are
	// intentionally absent.
	Members map[string]UnionMember

	// Fields lists requested sub-field names for KindCompositeSelection.
	// Empty means "all sub-fields".
	Fields []string

	// FieldSpecs maps sub-field names to their own sub-field selections for
	// KindCompositeNestedSelection. An empty list means "whole sub-field".
	FieldSpecs map[string][]string
}

// UnionMember is the per-member selection inside a union instruction.
type UnionMember struct {
	// Wholesale marks a member requested bare: its value is copied verbatim.
	Wholesale bool
	// Sub projects the member's value when a nested selection was given.
	Sub Template
}

// Extract copies the source value verbatim.
func Extract(source string) Instruction {
	return Instruction{Kind: KindExtract, Source: source}
}

// Nested projects the source's sub-value (record or list) with sub.
func Nested(source string, sub Template) Instruction {
	return Instruction{Kind: KindNested, Source: source, Sub: sub}
}

// CalcResult projects a calculation result with sub.
func CalcResult(source string, sub Template) Instruction {
	return Instruction{Kind: KindCalcResult, Source: source, Sub: sub}
}

// UnionSelection projects a tagged union value member-wise.
func UnionSelection(source string, members map[string]UnionMember) Instruction {
	return Instruction{Kind: KindUnionSelection, Source: source, Members: members}
}

// CompositeSelection takes the listed sub-fields of a typed struct value.
func CompositeSelection(source string, fields []string) Instruction {
	return Instruction{Kind: KindCompositeSelection, Source: source, Fields: fields}
}

// CompositeNestedSelection filters a typed struct whose sub-fields carry
// their own selections.
func CompositeNestedSelection(source string, fieldSpecs map[string][]string) Instruction {
	return Instruction{Kind: KindCompositeNestedSelection, Source: source, FieldSpecs: fieldSpecs}
}

// Validate checks structural invariants of the template. It guards against
// programming mistakes in template construction, not client input.
func (t Template) Validate() error {
	for name, in := range t {
		if err := in.validate(); err != nil {
			return fmt.Errorf("template entry %q: %w", name, err)
		}
	}
	return nil
}

func (in Instruction) validate() error {
	if in.Source == "" {
		return fmt.Errorf("missing source")
	}
	switch in.Kind {
	case KindExtract:
	case KindNested, KindCalcResult:
		if in.Sub == nil {
			return fmt.Errorf("%s requires a sub-template", in.Kind)
		}
		if err := in.Sub.Validate(); err != nil {
			return err
		}
	case KindUnionSelection:
		if in.Members == nil {
			return fmt.Errorf("union selection requires a member map")
		}
		for name, m := range in.Members {
			if !m.Wholesale && m.Sub == nil {
				return fmt.Errorf("union member %q has neither wholesale nor a sub-template", name)
			}
			if m.Sub != nil {
				if err := m.Sub.Validate(); err != nil {
					return err
				}
			}
		}
	case KindCompositeSelection:
	case KindCompositeNestedSelection:
		if in.FieldSpecs == nil {
			return fmt.Errorf("composite nested selection requires a field spec map")
		}
	default:
		return fmt.Errorf("unknown instruction kind %q", in.Kind)
	}
	return nil
}
