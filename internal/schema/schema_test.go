package schema

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&Resource{Name: "user"}))
	require.NoError(t, reg.Register(&Resource{Name: "todo"}))

	require.NotNil(t, reg.Resource("user"))
	require.Nil(t, reg.Resource("missing"))
	require.Equal(t, []string{"user", "todo"}, reg.Names())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&Resource{Name: "user"}))
	require.Error(t, reg.Register(&Resource{Name: "user"}))
}

func TestRegistryValidate(t *testing.T) {
	t.Run("unknown relationship destination", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(&Resource{
			Name:          "todo",
			Relationships: []*Relationship{{Name: "user", Destination: "user", Cardinality: CardinalityOne}},
		}))
		err := reg.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), `unknown destination "user"`)
	})

	t.Run("unknown embedded attribute type", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(&Resource{
			Name:       "todo",
			Attributes: []*Attribute{{Name: "metadata", Type: ListType(EmbeddedType("metadata"))}},
		}))
		err := reg.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), `unknown embedded resource "metadata"`)
	})

	t.Run("unknown union member type", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(&Resource{
			Name: "todo",
			Attributes: []*Attribute{{Name: "content", Type: UnionType(
				&UnionMember{Name: "checklist", Type: EmbeddedType("checklist")},
			)}},
		}))
		err := reg.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "union member checklist")
	})

	t.Run("valid cross references", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(&Resource{Name: "metadata", Attributes: []*Attribute{{Name: "category", Type: ScalarType("string")}}}))
		require.NoError(t, reg.Register(&Resource{
			Name:          "todo",
			Attributes:    []*Attribute{{Name: "metadata", Type: EmbeddedType("metadata")}},
			Relationships: []*Relationship{{Name: "parent", Destination: "todo", Cardinality: CardinalityOne}},
			Calculations:  []*Calculation{{Name: "self", Returns: EmbeddedType("todo")}},
		}))
		require.NoError(t, reg.Validate())
	})
}

func TestDecodeRegistry(t *testing.T) {
	src := `{
	  "resources": [
	    {
	      "name": "metadata",
	      "attributes": [
	        {"name": "category", "type": {"scalar": "string"}},
	        {"name": "priority", "type": {"scalar": "integer"}}
	      ]
	    },
	    {
	      "name": "todo",
	      "attributes": [
	        {"name": "id", "type": {"scalar": "uuid"}},
	        {"name": "metadata", "type": {"embedded": "metadata"}},
	        {"name": "tags", "type": {"list": {"scalar": "string"}}},
	        {"name": "stats", "type": {"struct": [
	          {"name": "views", "type": {"scalar": "integer"}}
	        ]}},
	        {"name": "content", "type": {"union": [
	          {"name": "note", "type": {"scalar": "string"}},
	          {"name": "details", "type": {"embedded": "metadata"}}
	        ]}}
	      ],
	      "relationships": [
	        {"name": "parent", "destination": "todo", "cardinality": "one"}
	      ],
	      "calculations": [
	        {"name": "self", "returns": {"embedded": "todo"},
	         "args": [{"name": "prefix", "type": {"scalar": "string"}, "required": true}]}
	      ],
	      "aggregates": [
	        {"name": "child_count", "type": {"scalar": "integer"}}
	      ]
	    }
	  ]
	}`

	reg, err := DecodeRegistry(strings.NewReader(src))
	require.NoError(t, err)

	todo := reg.Resource("todo")
	require.NotNil(t, todo)
	require.Equal(t, ClassEmbeddedResource, Classify(todo, "metadata"))
	require.Equal(t, ClassTypedStruct, Classify(todo, "stats"))
	require.Equal(t, ClassUnionType, Classify(todo, "content"))
	require.Equal(t, ClassRelationship, Classify(todo, "parent"))
	require.Equal(t, ClassComplexCalculation, Classify(todo, "self"))
	require.Equal(t, ClassAggregate, Classify(todo, "child_count"))

	wantTags := ListType(ScalarType("string"))
	if diff := cmp.Diff(wantTags, todo.Attribute("tags").Type); diff != "" {
		t.Fatalf("tags type mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRegistryErrors(t *testing.T) {
	t.Run("ambiguous type declaration", func(t *testing.T) {
		_, err := DecodeRegistry(strings.NewReader(`{"resources": [
		  {"name": "todo", "attributes": [{"name": "x", "type": {"scalar": "string", "embedded": "todo"}}]}
		]}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "exactly one")
	})

	t.Run("invalid cardinality", func(t *testing.T) {
		_, err := DecodeRegistry(strings.NewReader(`{"resources": [
		  {"name": "todo", "relationships": [{"name": "user", "destination": "todo", "cardinality": "several"}]}
		]}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid cardinality")
	})

	t.Run("dangling destination fails validation", func(t *testing.T) {
		_, err := DecodeRegistry(strings.NewReader(`{"resources": [
		  {"name": "todo", "relationships": [{"name": "user", "destination": "user"}]}
		]}`))
		require.Error(t, err)
	})

	t.Run("unknown top-level key", func(t *testing.T) {
		_, err := DecodeRegistry(strings.NewReader(`{"resorces": []}`))
		require.Error(t, err)
	})
}
