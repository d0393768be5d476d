// Package projector applies a compiled extraction template to the raw result
// returned by the data engine, producing the exact client-facing shape. The
// walk is single-pass and recursive; it allocates only output containers.
package projector

import (
	"github.com/ash-project/fieldgate/internal/plan"
	"github.com/ash-project/fieldgate/internal/result"
)

// ValueFormatter converts one extracted leaf value for wire transport
// (dates, decimals, custom scalars). It is injected configuration; the
// projector itself never reshapes leaf values.
type ValueFormatter interface {
	FormatLeaf(v any) any
}

// Passthrough leaves leaf values untouched.
type Passthrough struct{}

func (Passthrough) FormatLeaf(v any) any { return v }

// Project applies the template to a raw result: a single record, a list of
// records, or a pagination envelope. Envelope metadata passes through
// untouched. Primitives and nil pass through unchanged.
func Project(raw any, tpl plan.Template, vf ValueFormatter) any {
	if vf == nil {
		vf = Passthrough{}
	}
	switch v := raw.(type) {
	case result.OffsetPage:
		v.Results = projectList(v.Results, tpl, vf)
		return v
	case *result.OffsetPage:
		out := *v
		out.Results = projectList(v.Results, tpl, vf)
		return &out
	case result.KeysetPage:
		v.Results = projectList(v.Results, tpl, vf)
		return v
	case *result.KeysetPage:
		out := *v
		out.Results = projectList(v.Results, tpl, vf)
		return &out
	case []any:
		return projectList(v, tpl, vf)
	case map[string]any:
		return projectRecord(v, tpl, vf)
	}
	return raw
}

func projectList(items []any, tpl plan.Template, vf ValueFormatter) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = Project(item, tpl, vf)
	}
	return out
}

func projectRecord(rec map[string]any, tpl plan.Template, vf ValueFormatter) map[string]any {
	out := make(map[string]any, len(tpl))
	for name, in := range tpl {
		raw, ok := rec[in.Source]
		if !ok || result.IsNotLoaded(raw) {
			continue
		}
		switch in.Kind {
		case plan.KindExtract:
			out[name] = vf.FormatLeaf(raw)
		case plan.KindNested, plan.KindCalcResult:
			out[name] = projectNested(raw, in.Sub, vf)
		case plan.KindUnionSelection:
			out[name] = projectUnion(raw, in.Members, vf)
		case plan.KindCompositeSelection:
			out[name] = projectComposite(raw, in.Fields, vf)
		case plan.KindCompositeNestedSelection:
			out[name] = projectCompositeNested(raw, in.FieldSpecs, vf)
		}
	}
	return out
}

func projectNested(raw any, sub plan.Template, vf ValueFormatter) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		return projectList(v, sub, vf)
	case map[string]any:
		return projectRecord(v, sub, vf)
	}
	return raw
}

// projectUnion projects a tagged union value. The raw representation is a
// single-entry map keyed by the active member name. A record whose active
// member was not requested projects to an empty map, not an error.
func projectUnion(raw any, members map[string]plan.UnionMember, vf ValueFormatter) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = projectUnion(item, members, vf)
		}
		return out
	case map[string]any:
		for tag, value := range v {
			member, ok := members[tag]
			if !ok {
				return map[string]any{}
			}
			if member.Wholesale {
				return map[string]any{tag: vf.FormatLeaf(value)}
			}
			return map[string]any{tag: projectNested(value, member.Sub, vf)}
		}
		return map[string]any{}
	}
	return vf.FormatLeaf(raw)
}

// projectComposite takes the requested sub-fields of a typed struct value.
// An empty field list means all sub-fields.
func projectComposite(raw any, fields []string, vf ValueFormatter) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = projectComposite(item, fields, vf)
		}
		return out
	case map[string]any:
		if len(fields) == 0 {
			out := make(map[string]any, len(v))
			for k, val := range v {
				out[k] = vf.FormatLeaf(val)
			}
			return out
		}
		out := make(map[string]any, len(fields))
		for _, f := range fields {
			if val, ok := v[f]; ok {
				out[f] = vf.FormatLeaf(val)
			}
		}
		return out
	}
	return raw
}

// projectCompositeNested filters a typed struct whose requested sub-fields
// carry their own selections. A sub-field with an empty selection is copied
// whole; a non-empty selection filters the sub-field's own map.
func projectCompositeNested(raw any, fieldSpecs map[string][]string, vf ValueFormatter) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = projectCompositeNested(item, fieldSpecs, vf)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(fieldSpecs))
		for f, spec := range fieldSpecs {
			val, ok := v[f]
			if !ok {
				continue
			}
			if len(spec) == 0 {
				out[f] = vf.FormatLeaf(val)
				continue
			}
			out[f] = projectComposite(val, spec, vf)
		}
		return out
	}
	return raw
}
