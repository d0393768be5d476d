package schema

// Classification is the kind of a (resource, field name) pair. It is a pure
// function of the schema and never depends on the request.
type Classification string

const (
	ClassSimpleAttribute    Classification = "simple_attribute"
	ClassSimpleCalculation  Classification = "simple_calculation"
	ClassComplexCalculation Classification = "complex_calculation"
	ClassAggregate          Classification = "aggregate"
	ClassRelationship       Classification = "relationship"
	ClassEmbeddedResource   Classification = "embedded_resource"
	ClassTypedStruct        Classification = "typed_struct"
	ClassUnionType          Classification = "union_type"
	ClassUnknown            Classification = "unknown"
)

// Classify determines the kind of the named field on the resource. It is
// total: unresolvable names classify as ClassUnknown rather than failing.
//
// Attribute type kinds are mutually exclusive by construction, so the check
// order below only matters for names that could collide across categories:
// union, typed struct and embedded attributes first, then relationships,
// calculations, aggregates, and finally simple attributes.
func Classify(r *Resource, name string) Classification {
	if r == nil || name == "" {
		return ClassUnknown
	}
	if a := r.Attribute(name); a != nil && a.Type != nil {
		switch a.Type.Unwrap().Kind {
		case TypeRefKindUnion:
			return ClassUnionType
		case TypeRefKindStruct:
			return ClassTypedStruct
		case TypeRefKindEmbedded:
			return ClassEmbeddedResource
		}
	}
	if r.Relationship(name) != nil {
		return ClassRelationship
	}
	if c := r.Calculation(name); c != nil {
		if len(c.Arguments) > 0 {
			return ClassComplexCalculation
		}
		return ClassSimpleCalculation
	}
	if r.Aggregate(name) != nil {
		return ClassAggregate
	}
	if r.Attribute(name) != nil {
		return ClassSimpleAttribute
	}
	return ClassUnknown
}
