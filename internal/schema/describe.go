package schema

import "github.com/ash-project/fieldgate/internal/naming"

// Describe renders the registry as a client-facing description document.
// Field and resource names go through the formatter, so clients see the same
// convention they query with.
func Describe(g *Registry, f naming.Formatter) map[string]any {
	resources := make([]any, 0, len(g.order))
	for _, name := range g.order {
		resources = append(resources, describeResource(g.resources[name], f))
	}
	return map[string]any{"resources": resources}
}

func describeResource(r *Resource, f naming.Formatter) map[string]any {
	out := map[string]any{"name": f.ToOutput(r.Name)}
	if r.Description != "" {
		out["description"] = r.Description
	}

	attrs := make([]any, 0, len(r.Attributes))
	for _, a := range r.Attributes {
		attrs = append(attrs, map[string]any{
			"name": f.ToOutput(a.Name),
			"type": describeType(a.Type, f),
		})
	}
	out["attributes"] = attrs

	if len(r.Relationships) > 0 {
		rels := make([]any, 0, len(r.Relationships))
		for _, rel := range r.Relationships {
			rels = append(rels, map[string]any{
				"name":        f.ToOutput(rel.Name),
				"destination": f.ToOutput(rel.Destination),
				"cardinality": string(rel.Cardinality),
			})
		}
		out["relationships"] = rels
	}

	if len(r.Calculations) > 0 {
		calcs := make([]any, 0, len(r.Calculations))
		for _, c := range r.Calculations {
			args := make([]any, 0, len(c.Arguments))
			for _, a := range c.Arguments {
				args = append(args, map[string]any{
					"name":     f.ToOutput(a.Name),
					"type":     describeType(a.Type, f),
					"required": a.Required,
				})
			}
			calcs = append(calcs, map[string]any{
				"name":    f.ToOutput(c.Name),
				"returns": describeType(c.Returns, f),
				"args":    args,
			})
		}
		out["calculations"] = calcs
	}

	if len(r.Aggregates) > 0 {
		aggs := make([]any, 0, len(r.Aggregates))
		for _, ag := range r.Aggregates {
			aggs = append(aggs, map[string]any{
				"name": f.ToOutput(ag.Name),
				"type": describeType(ag.Type, f),
			})
		}
		out["aggregates"] = aggs
	}

	return out
}

func describeType(t *TypeRef, f naming.Formatter) any {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case TypeRefKindScalar:
		return map[string]any{"scalar": t.Named}
	case TypeRefKindEmbedded:
		return map[string]any{"embedded": f.ToOutput(t.Named)}
	case TypeRefKindList:
		return map[string]any{"list": describeType(t.OfType, f)}
	case TypeRefKindStruct:
		fields := make([]any, 0, len(t.Fields))
		for _, fd := range t.Fields {
			fields = append(fields, map[string]any{
				"name": f.ToOutput(fd.Name),
				"type": describeType(fd.Type, f),
			})
		}
		return map[string]any{"struct": fields}
	case TypeRefKindUnion:
		members := make([]any, 0, len(t.Members))
		for _, m := range t.Members {
			members = append(members, map[string]any{
				"name": f.ToOutput(m.Name),
				"type": describeType(m.Type, f),
			})
		}
		return map[string]any{"union": members}
	}
	return nil
}
