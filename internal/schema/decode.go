package schema

import (
	"encoding/json"
	"fmt"
	"io"
)

// DecodeRegistry reads a JSON registry declaration and returns a validated
// Registry. The format mirrors the in-memory model:
//
//	{"resources": [{"name": "todo",
//	  "attributes": [{"name": "id", "type": {"scalar": "uuid"}}],
//	  "relationships": [{"name": "user", "destination": "user", "cardinality": "one"}],
//	  "calculations": [{"name": "self", "returns": {"embedded": "todo"},
//	    "args": [{"name": "prefix", "type": {"scalar": "string"}, "required": true}]}],
//	  "aggregates": [{"name": "comment_count", "type": {"scalar": "integer"}}]}]}
//
// Type declarations use exactly one of scalar, embedded, list, struct, union.
func DecodeRegistry(r io.Reader) (*Registry, error) {
	var doc registryDoc
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}

	reg := NewRegistry()
	for _, rd := range doc.Resources {
		res, err := rd.build()
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", rd.Name, err)
		}
		if err := reg.Register(res); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

type registryDoc struct {
	Resources []resourceDoc `json:"resources"`
}

type resourceDoc struct {
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Attributes    []fieldDoc `json:"attributes,omitempty"`
	Relationships []relDoc   `json:"relationships,omitempty"`
	Calculations  []calcDoc  `json:"calculations,omitempty"`
	Aggregates    []fieldDoc `json:"aggregates,omitempty"`
}

type fieldDoc struct {
	Name string  `json:"name"`
	Type typeDoc `json:"type"`
}

type relDoc struct {
	Name        string `json:"name"`
	Destination string `json:"destination"`
	Cardinality string `json:"cardinality"`
}

type calcDoc struct {
	Name    string   `json:"name"`
	Returns typeDoc  `json:"returns"`
	Args    []argDoc `json:"args,omitempty"`
}

type argDoc struct {
	Name     string  `json:"name"`
	Type     typeDoc `json:"type"`
	Required bool    `json:"required,omitempty"`
}

type typeDoc struct {
	Scalar   string     `json:"scalar,omitempty"`
	Embedded string     `json:"embedded,omitempty"`
	List     *typeDoc   `json:"list,omitempty"`
	Struct   []fieldDoc `json:"struct,omitempty"`
	Union    []fieldDoc `json:"union,omitempty"`
}

func (rd resourceDoc) build() (*Resource, error) {
	res := &Resource{Name: rd.Name, Description: rd.Description}
	for _, ad := range rd.Attributes {
		t, err := ad.Type.build()
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", ad.Name, err)
		}
		res.Attributes = append(res.Attributes, &Attribute{Name: ad.Name, Type: t})
	}
	for _, rel := range rd.Relationships {
		card := CardinalityOne
		switch rel.Cardinality {
		case "one", "":
		case "many":
			card = CardinalityMany
		default:
			return nil, fmt.Errorf("relationship %s: invalid cardinality %q", rel.Name, rel.Cardinality)
		}
		res.Relationships = append(res.Relationships, &Relationship{Name: rel.Name, Destination: rel.Destination, Cardinality: card})
	}
	for _, cd := range rd.Calculations {
		ret, err := cd.Returns.build()
		if err != nil {
			return nil, fmt.Errorf("calculation %s: %w", cd.Name, err)
		}
		calc := &Calculation{Name: cd.Name, Returns: ret}
		for _, ad := range cd.Args {
			at, err := ad.Type.build()
			if err != nil {
				return nil, fmt.Errorf("calculation %s arg %s: %w", cd.Name, ad.Name, err)
			}
			calc.Arguments = append(calc.Arguments, &Argument{Name: ad.Name, Type: at, Required: ad.Required})
		}
		res.Calculations = append(res.Calculations, calc)
	}
	for _, ad := range rd.Aggregates {
		t, err := ad.Type.build()
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", ad.Name, err)
		}
		res.Aggregates = append(res.Aggregates, &Aggregate{Name: ad.Name, Type: t})
	}
	return res, nil
}

func (td typeDoc) build() (*TypeRef, error) {
	declared := 0
	if td.Scalar != "" {
		declared++
	}
	if td.Embedded != "" {
		declared++
	}
	if td.List != nil {
		declared++
	}
	if len(td.Struct) > 0 {
		declared++
	}
	if len(td.Union) > 0 {
		declared++
	}
	if declared != 1 {
		return nil, fmt.Errorf("type must declare exactly one of scalar, embedded, list, struct, union")
	}

	switch {
	case td.Scalar != "":
		return ScalarType(td.Scalar), nil
	case td.Embedded != "":
		return EmbeddedType(td.Embedded), nil
	case td.List != nil:
		inner, err := td.List.build()
		if err != nil {
			return nil, err
		}
		return ListType(inner), nil
	case len(td.Struct) > 0:
		fields := make([]*StructField, len(td.Struct))
		for i, fd := range td.Struct {
			t, err := fd.Type.build()
			if err != nil {
				return nil, fmt.Errorf("struct field %s: %w", fd.Name, err)
			}
			fields[i] = &StructField{Name: fd.Name, Type: t}
		}
		return StructType(fields...), nil
	default:
		members := make([]*UnionMember, len(td.Union))
		for i, md := range td.Union {
			t, err := md.Type.build()
			if err != nil {
				return nil, fmt.Errorf("union member %s: %w", md.Name, err)
			}
			members[i] = &UnionMember{Name: md.Name, Type: t}
		}
		return UnionType(members...), nil
	}
}
