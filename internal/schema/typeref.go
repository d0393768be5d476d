package schema

// TypeRef describes an attribute, argument or return type. A reference is a
// scalar, an embedded resource, an inline typed struct, a tagged union, or a
// list of any of those.
type TypeRef struct {
	Kind    TypeRefKind
	Named   string         // scalar name or embedded resource name
	OfType  *TypeRef       // element type for LIST
	Fields  []*StructField // sub-fields for STRUCT
	Members []*UnionMember // members for UNION
}

type TypeRefKind string

const (
	TypeRefKindScalar   TypeRefKind = "SCALAR"
	TypeRefKindEmbedded TypeRefKind = "EMBEDDED"
	TypeRefKindStruct   TypeRefKind = "STRUCT"
	TypeRefKindUnion    TypeRefKind = "UNION"
	TypeRefKindList     TypeRefKind = "LIST"
)

// StructField is one named sub-field of a typed struct. Sub-fields may
// themselves be typed structs; they never have independent identity.
type StructField struct {
	Name string
	Type *TypeRef
}

// UnionMember is one named member of a tagged union. A member whose type is
// scalar is a primitive member; embedded or struct members carry their own
// field-selectable shape.
type UnionMember struct {
	Name string
	Type *TypeRef
}

func ScalarType(name string) *TypeRef { return &TypeRef{Kind: TypeRefKindScalar, Named: name} }
func EmbeddedType(name string) *TypeRef {
	return &TypeRef{Kind: TypeRefKindEmbedded, Named: name}
}
func ListType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func StructType(fields ...*StructField) *TypeRef {
	return &TypeRef{Kind: TypeRefKindStruct, Fields: fields}
}
func UnionType(members ...*UnionMember) *TypeRef {
	return &TypeRef{Kind: TypeRefKindUnion, Members: members}
}

// Unwrap removes list wrapping and returns the element type. Non-list
// references unwrap to themselves.
func (t *TypeRef) Unwrap() *TypeRef {
	if t != nil && t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

// IsList reports whether the reference is a list type.
func (t *TypeRef) IsList() bool { return t != nil && t.Kind == TypeRefKindList }

// Field returns the struct sub-field with the given name (nil if absent or
// not a struct).
func (t *TypeRef) Field(name string) *StructField {
	if t == nil {
		return nil
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Member returns the union member with the given name (nil if absent or not
// a union).
func (t *TypeRef) Member(name string) *UnionMember {
	if t == nil {
		return nil
	}
	for _, m := range t.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}
