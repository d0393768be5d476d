// Package compiler turns a normalized field request into a fetch plan and an
// extraction template. It walks the request tree recursively, consulting the
// schema classifier per field, and fails fast on the first invalid node.
package compiler

import (
	"github.com/ash-project/fieldgate/internal/naming"
	"github.com/ash-project/fieldgate/internal/plan"
	"github.com/ash-project/fieldgate/internal/request"
	"github.com/ash-project/fieldgate/internal/schema"
)

// Compiler compiles field requests against a resource registry. It holds no
// per-request state; one Compiler serves concurrent requests.
type Compiler struct {
	registry  *schema.Registry
	formatter naming.Formatter
}

// New creates a Compiler over the registry using the given naming formatter
// for client-facing output names.
func New(registry *schema.Registry, formatter naming.Formatter) *Compiler {
	return &Compiler{registry: registry, formatter: formatter}
}

// Compile walks the request nodes against the resource and produces the
// fetch plan and extraction template. The first invalid node aborts the
// whole compilation; a fetch plan is never partially usable on error.
func (c *Compiler) Compile(res *schema.Resource, nodes []request.Node) (plan.FetchPlan, plan.Template, error) {
	fp := &fetchAccum{selected: map[string]bool{}}
	tpl := plan.Template{}
	for _, n := range nodes {
		if err := c.compileNode(res, n, fp, tpl); err != nil {
			return plan.FetchPlan{}, nil, err
		}
	}
	return plan.FetchPlan{Select: fp.selects, Load: fp.loads}, tpl, nil
}

// fetchAccum accumulates select/load contributions in request order,
// deduplicating repeated selects.
type fetchAccum struct {
	selects  []string
	selected map[string]bool
	loads    []plan.LoadItem
}

func (f *fetchAccum) selectField(name string) {
	if f.selected[name] {
		return
	}
	f.selected[name] = true
	f.selects = append(f.selects, name)
}

func (f *fetchAccum) load(item plan.LoadItem) {
	f.loads = append(f.loads, item)
}

func (c *Compiler) compileNode(res *schema.Resource, n request.Node, fp *fetchAccum, tpl plan.Template) error {
	out := c.formatter.ToOutput(n.Name)

	switch schema.Classify(res, n.Name) {
	case schema.ClassSimpleAttribute:
		if n.Spec != nil {
			return &Error{Kind: ErrSimpleAttributeWithSpec, Field: n.Name, Resource: res.Name}
		}
		fp.selectField(n.Name)
		tpl[out] = plan.Extract(n.Name)
		return nil

	case schema.ClassSimpleCalculation:
		if n.Spec != nil {
			return &Error{Kind: ErrSimpleCalculationWithSpec, Field: n.Name, Resource: res.Name}
		}
		fp.load(plan.LoadField(n.Name))
		tpl[out] = plan.Extract(n.Name)
		return nil

	case schema.ClassAggregate:
		if n.Spec != nil {
			return &Error{Kind: ErrFieldDoesNotSupportNesting, Field: n.Name, Resource: res.Name}
		}
		fp.load(plan.LoadField(n.Name))
		tpl[out] = plan.Extract(n.Name)
		return nil

	case schema.ClassComplexCalculation:
		return c.compileCalculation(res, n, out, fp, tpl)

	case schema.ClassRelationship:
		return c.compileRelationship(res, n, out, fp, tpl)

	case schema.ClassEmbeddedResource:
		return c.compileEmbedded(res, n, out, fp, tpl)

	case schema.ClassTypedStruct:
		return c.compileTypedStruct(res, n, out, fp, tpl)

	case schema.ClassUnionType:
		return c.compileUnion(res, n, out, fp, tpl)
	}

	return &Error{Kind: ErrUnknownField, Field: n.Name, Resource: res.Name}
}

func (c *Compiler) compileCalculation(res *schema.Resource, n request.Node, out string, fp *fetchAccum, tpl plan.Template) error {
	calc := res.Calculation(n.Name)

	if n.Spec != nil && n.Spec.Kind != request.SpecInvoke {
		return &Error{Kind: ErrInvalidCalculationArgs, Field: n.Name, Resource: res.Name, Detail: "expected an args/fields map"}
	}

	var spec request.Spec
	if n.Spec != nil {
		spec = *n.Spec
	}

	args, err := c.coerceCalcArgs(res, calc, spec)
	if err != nil {
		return err
	}

	if !spec.HasFields {
		fp.load(plan.LoadCalc(n.Name, args, nil))
		tpl[out] = plan.Extract(n.Name)
		return nil
	}

	returns := calc.Returns.Unwrap()
	if returns == nil || returns.Kind != schema.TypeRefKindEmbedded {
		return &Error{Kind: ErrFieldDoesNotSupportNesting, Field: n.Name, Resource: res.Name, Detail: "calculation result is not field-selectable"}
	}
	target := c.registry.Resource(returns.Named)

	subPlan, subTpl, err := c.Compile(target, spec.Fields)
	if err != nil {
		return &Error{Kind: ErrCalculationField, Field: n.Name, Resource: res.Name, Inner: err}
	}

	fp.load(plan.LoadCalc(n.Name, args, mergeSelectLoad(subPlan)))
	tpl[out] = plan.CalcResult(n.Name, subTpl)
	return nil
}

// coerceCalcArgs validates the raw argument value against the calculation's
// declared arguments and returns the coerced map with internal key names.
func (c *Compiler) coerceCalcArgs(res *schema.Resource, calc *schema.Calculation, spec request.Spec) (map[string]any, error) {
	required := calc.RequiredArguments()
	if !spec.HasArgs {
		if len(required) > 0 {
			return nil, &Error{Kind: ErrCalculationRequiresArgs, Field: calc.Name, Resource: res.Name}
		}
		return map[string]any{}, nil
	}

	raw, ok := spec.Args.(map[string]any)
	if !ok {
		return nil, &Error{Kind: ErrInvalidCalculationArgs, Field: calc.Name, Resource: res.Name, Detail: "args must be a map"}
	}

	args := make(map[string]any, len(raw))
	for key, val := range raw {
		name := c.formatter.ToInternal(key)
		if calc.Argument(name) == nil {
			return nil, &Error{Kind: ErrInvalidCalculationArgs, Field: calc.Name, Resource: res.Name, Detail: "unknown argument " + name}
		}
		args[name] = val
	}
	for _, arg := range required {
		if _, ok := args[arg.Name]; !ok {
			return nil, &Error{Kind: ErrCalculationRequiresArgs, Field: calc.Name, Resource: res.Name}
		}
	}
	return args, nil
}

func (c *Compiler) compileRelationship(res *schema.Resource, n request.Node, out string, fp *fetchAccum, tpl plan.Template) error {
	if n.Spec == nil {
		fp.load(plan.LoadField(n.Name))
		tpl[out] = plan.Extract(n.Name)
		return nil
	}
	if n.Spec.Kind != request.SpecList {
		return &Error{Kind: ErrFieldDoesNotSupportNesting, Field: n.Name, Resource: res.Name, Detail: "relationship selection must be a list"}
	}

	rel := res.Relationship(n.Name)
	target := c.registry.Resource(rel.Destination)

	subPlan, subTpl, err := c.Compile(target, n.Spec.Children)
	if err != nil {
		return &Error{Kind: ErrRelationshipField, Field: n.Name, Resource: res.Name, Inner: err}
	}

	fp.load(plan.LoadNested(n.Name, mergeSelectLoad(subPlan)))
	tpl[out] = plan.Nested(n.Name, subTpl)
	return nil
}

func (c *Compiler) compileEmbedded(res *schema.Resource, n request.Node, out string, fp *fetchAccum, tpl plan.Template) error {
	if n.Spec == nil {
		fp.selectField(n.Name)
		tpl[out] = plan.Extract(n.Name)
		return nil
	}
	if n.Spec.Kind != request.SpecList {
		return &Error{Kind: ErrFieldDoesNotSupportNesting, Field: n.Name, Resource: res.Name, Detail: "embedded selection must be a list"}
	}

	attr := res.Attribute(n.Name)
	target := c.registry.Resource(attr.Type.Unwrap().Named)

	subPlan, subTpl, err := c.Compile(target, n.Spec.Children)
	if err != nil {
		return &Error{Kind: ErrEmbeddedResourceField, Field: n.Name, Resource: res.Name, Inner: err}
	}

	// Simple attributes of an embedded value come along with the attribute
	// itself, so only the sub-plan's loadables need an explicit load entry.
	fp.selectField(n.Name)
	if len(subPlan.Load) > 0 {
		fp.load(plan.LoadNested(n.Name, subPlan.Load))
	}
	tpl[out] = plan.Nested(n.Name, subTpl)
	return nil
}

func (c *Compiler) compileTypedStruct(res *schema.Resource, n request.Node, out string, fp *fetchAccum, tpl plan.Template) error {
	if n.Spec == nil {
		fp.selectField(n.Name)
		tpl[out] = plan.Extract(n.Name)
		return nil
	}
	if n.Spec.Kind != request.SpecList {
		return &Error{Kind: ErrFieldDoesNotSupportNesting, Field: n.Name, Resource: res.Name, Detail: "typed struct selection must be a list"}
	}

	var simple []string
	nested := map[string][]string{}
	for _, child := range n.Spec.Children {
		if child.Spec == nil {
			simple = append(simple, child.Name)
			continue
		}
		if child.Spec.Kind != request.SpecList {
			return &Error{Kind: ErrFieldDoesNotSupportNesting, Field: n.Name, Resource: res.Name, Detail: "struct sub-field selection must be a list of names"}
		}
		var names []string
		for _, sub := range child.Spec.Children {
			if sub.Spec != nil {
				return &Error{Kind: ErrFieldDoesNotSupportNesting, Field: n.Name, Resource: res.Name, Detail: "struct sub-fields nest at most one level"}
			}
			names = append(names, sub.Name)
		}
		nested[child.Name] = names
	}

	fp.selectField(n.Name)
	if len(nested) == 0 {
		tpl[out] = plan.CompositeSelection(n.Name, simple)
		return nil
	}
	// Bare sub-field names get an empty list, meaning "whole sub-field".
	for _, name := range simple {
		if _, ok := nested[name]; !ok {
			nested[name] = []string{}
		}
	}
	tpl[out] = plan.CompositeNestedSelection(n.Name, nested)
	return nil
}

func (c *Compiler) compileUnion(res *schema.Resource, n request.Node, out string, fp *fetchAccum, tpl plan.Template) error {
	if n.Spec == nil {
		fp.selectField(n.Name)
		tpl[out] = plan.Extract(n.Name)
		return nil
	}
	if n.Spec.Kind != request.SpecList {
		return &Error{Kind: ErrFieldDoesNotSupportNesting, Field: n.Name, Resource: res.Name, Detail: "union selection must be a list"}
	}

	union := res.Attribute(n.Name).Type.Unwrap()
	members := map[string]plan.UnionMember{}
	for _, child := range n.Spec.Children {
		member := union.Member(child.Name)
		if member == nil {
			// A union's active member is a per-record, per-value matter, so
			// unknown member names are dropped rather than rejected.
			continue
		}
		if child.Spec == nil || child.Spec.Kind != request.SpecList {
			members[child.Name] = plan.UnionMember{Wholesale: true}
			continue
		}
		memberType := member.Type.Unwrap()
		if memberType.Kind != schema.TypeRefKindEmbedded {
			members[child.Name] = plan.UnionMember{Wholesale: true}
			continue
		}
		sub := c.unionMemberTemplate(c.registry.Resource(memberType.Named), child.Spec.Children)
		members[child.Name] = plan.UnionMember{Sub: sub}
	}

	fp.selectField(n.Name)
	tpl[out] = plan.UnionSelection(n.Name, members)
	return nil
}

// unionMemberTemplate builds the projection template for a structured union
// member. Unlike the main walk it is lenient: unknown fields inside a union
// member spec are dropped, matching the unknown-member policy.
func (c *Compiler) unionMemberTemplate(res *schema.Resource, nodes []request.Node) plan.Template {
	tpl := plan.Template{}
	for _, n := range nodes {
		out := c.formatter.ToOutput(n.Name)
		switch schema.Classify(res, n.Name) {
		case schema.ClassUnknown:
			continue
		case schema.ClassEmbeddedResource:
			if n.Spec != nil && n.Spec.Kind == request.SpecList {
				attr := res.Attribute(n.Name)
				sub := c.unionMemberTemplate(c.registry.Resource(attr.Type.Unwrap().Named), n.Spec.Children)
				tpl[out] = plan.Nested(n.Name, sub)
				continue
			}
			tpl[out] = plan.Extract(n.Name)
		default:
			tpl[out] = plan.Extract(n.Name)
		}
	}
	return tpl
}

// mergeSelectLoad combines a nested compile's select and load lists into one
// load directive list, selects first, preserving request order within each.
func mergeSelectLoad(p plan.FetchPlan) []plan.LoadItem {
	merged := make([]plan.LoadItem, 0, len(p.Select)+len(p.Load))
	for _, s := range p.Select {
		merged = append(merged, plan.LoadField(s))
	}
	merged = append(merged, p.Load...)
	return merged
}
