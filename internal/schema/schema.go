package schema

import "fmt"

// Resource describes one exposed resource type: its attributes,
// relationships, calculations and aggregates. Instances are long-lived and
// read-only during request processing.
type Resource struct {
	Name          string
	Attributes    []*Attribute
	Relationships []*Relationship
	Calculations  []*Calculation
	Aggregates    []*Aggregate
	Description   string
}

// Attribute is a stored field. Its TypeRef decides whether it is a plain
// scalar, an embedded resource, a typed struct or a tagged union.
type Attribute struct {
	Name        string
	Type        *TypeRef
	Description string
}

// Cardinality of a relationship.
type Cardinality string

const (
	CardinalityOne  Cardinality = "ONE"
	CardinalityMany Cardinality = "MANY"
)

// Relationship points at another registered resource.
type Relationship struct {
	Name        string
	Destination string // resource name in the registry
	Cardinality Cardinality
	Description string
}

// Calculation is a computed property. It may declare arguments; its return
// type may be an embedded resource, making the result field-selectable.
type Calculation struct {
	Name        string
	Returns     *TypeRef
	Arguments   []*Argument
	Description string
}

// Argument declares one calculation argument.
type Argument struct {
	Name     string
	Type     *TypeRef
	Required bool
}

// Aggregate is a scalar summary over related data. For selection purposes it
// behaves like a read-only loadable attribute.
type Aggregate struct {
	Name        string
	Type        *TypeRef
	Description string
}

// Attribute returns the attribute with the given name (nil if absent).
func (r *Resource) Attribute(name string) *Attribute {
	for _, a := range r.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Relationship returns the relationship with the given name (nil if absent).
func (r *Resource) Relationship(name string) *Relationship {
	for _, rel := range r.Relationships {
		if rel.Name == name {
			return rel
		}
	}
	return nil
}

// Calculation returns the calculation with the given name (nil if absent).
func (r *Resource) Calculation(name string) *Calculation {
	for _, c := range r.Calculations {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Aggregate returns the aggregate with the given name (nil if absent).
func (r *Resource) Aggregate(name string) *Aggregate {
	for _, ag := range r.Aggregates {
		if ag.Name == name {
			return ag
		}
	}
	return nil
}

// RequiredArguments returns the calculation's required arguments.
func (c *Calculation) RequiredArguments() []*Argument {
	var req []*Argument
	for _, a := range c.Arguments {
		if a.Required {
			req = append(req, a)
		}
	}
	return req
}

// Argument returns the declared argument with the given name (nil if absent).
func (c *Calculation) Argument(name string) *Argument {
	for _, a := range c.Arguments {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Registry holds all registered resources keyed by name.
type Registry struct {
	resources map[string]*Resource
	order     []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{resources: make(map[string]*Resource)}
}

// Register adds a resource. Names must be unique.
func (g *Registry) Register(r *Resource) error {
	if r == nil || r.Name == "" {
		return fmt.Errorf("resource must have a name")
	}
	if _, ok := g.resources[r.Name]; ok {
		return fmt.Errorf("resource %q already registered", r.Name)
	}
	g.resources[r.Name] = r
	g.order = append(g.order, r.Name)
	return nil
}

// Resource returns the resource with the given name (nil if absent).
func (g *Registry) Resource(name string) *Resource {
	return g.resources[name]
}

// Names returns resource names in registration order.
func (g *Registry) Names() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Validate checks referential integrity across the registry: relationship
// destinations, embedded attribute types, union member types and calculation
// return shapes must all resolve to registered resources.
func (g *Registry) Validate() error {
	for _, name := range g.order {
		r := g.resources[name]
		for _, rel := range r.Relationships {
			if g.resources[rel.Destination] == nil {
				return fmt.Errorf("resource %s: relationship %s: unknown destination %q", r.Name, rel.Name, rel.Destination)
			}
		}
		for _, a := range r.Attributes {
			if err := g.validateTypeRef(a.Type); err != nil {
				return fmt.Errorf("resource %s: attribute %s: %w", r.Name, a.Name, err)
			}
		}
		for _, c := range r.Calculations {
			if err := g.validateTypeRef(c.Returns); err != nil {
				return fmt.Errorf("resource %s: calculation %s: %w", r.Name, c.Name, err)
			}
		}
	}
	return nil
}

func (g *Registry) validateTypeRef(t *TypeRef) error {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case TypeRefKindList:
		return g.validateTypeRef(t.OfType)
	case TypeRefKindEmbedded:
		if g.resources[t.Named] == nil {
			return fmt.Errorf("unknown embedded resource %q", t.Named)
		}
	case TypeRefKindStruct:
		for _, f := range t.Fields {
			if err := g.validateTypeRef(f.Type); err != nil {
				return fmt.Errorf("struct field %s: %w", f.Name, err)
			}
		}
	case TypeRefKindUnion:
		for _, m := range t.Members {
			if err := g.validateTypeRef(m.Type); err != nil {
				return fmt.Errorf("union member %s: %w", m.Name, err)
			}
		}
	}
	return nil
}
