// Package store is an in-memory data engine. It executes compiled fetch
// plans against seeded record sets: selected attributes are copied, load
// directives run registered resolver functions, and every field the plan did
// not ask for is filled with the not-loaded sentinel.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ash-project/fieldgate/internal/plan"
	"github.com/ash-project/fieldgate/internal/result"
	"github.com/ash-project/fieldgate/internal/schema"
)

// Resolver computes one loadable field (relationship, calculation or
// aggregate) for a record. args is non-nil only for calculation loads.
type Resolver func(ctx context.Context, rec map[string]any, args map[string]any) (any, error)

// Store holds records and resolvers per resource. Reads after seeding are
// lock-free copies; concurrent Execute calls share no mutable state.
type Store struct {
	registry *schema.Registry

	mu        sync.RWMutex
	data      map[string][]map[string]any
	resolvers map[string]Resolver // "Resource.field"
}

// New creates an empty Store over the registry.
func New(registry *schema.Registry) *Store {
	return &Store{
		registry:  registry,
		data:      make(map[string][]map[string]any),
		resolvers: make(map[string]Resolver),
	}
}

// Seed replaces the record set for a resource.
func (s *Store) Seed(resource string, records []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[resource] = records
}

// Resolve registers the resolver for a loadable field.
func (s *Store) Resolve(resource, field string, fn Resolver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolvers[resource+"."+field] = fn
}

// HasOne returns a resolver linking rec[fk] to the destination's "id".
func (s *Store) HasOne(destination, fk string) Resolver {
	return func(ctx context.Context, rec map[string]any, _ map[string]any) (any, error) {
		for _, r := range s.records(destination) {
			if r["id"] == rec[fk] {
				return r, nil
			}
		}
		return nil, nil
	}
}

// HasMany returns a resolver collecting destination records whose fk matches
// rec["id"].
func (s *Store) HasMany(destination, fk string) Resolver {
	return func(ctx context.Context, rec map[string]any, _ map[string]any) (any, error) {
		var out []any
		for _, r := range s.records(destination) {
			if r[fk] == rec["id"] {
				out = append(out, r)
			}
		}
		return out, nil
	}
}

func (s *Store) records(resource string) []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[resource]
}

func (s *Store) resolver(resource, field string) Resolver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolvers[resource+"."+field]
}

// PageKind selects the pagination style for List.
type PageKind string

const (
	PageOffset PageKind = "OFFSET"
	PageKeyset PageKind = "KEYSET"
)

// PageRequest asks for a paginated envelope. Zero Limit means no limit.
type PageRequest struct {
	Kind   PageKind
	Limit  int
	Offset int    // PageOffset
	After  string // PageKeyset: record id to resume after
}

// Get executes the fetch plan for the record with the given id. Returns nil
// when no record matches.
func (s *Store) Get(ctx context.Context, resource string, id any, fp plan.FetchPlan) (map[string]any, error) {
	for _, rec := range s.records(resource) {
		if rec["id"] == id {
			return s.buildRecord(ctx, resource, rec, fp.Select, fp.Load)
		}
	}
	return nil, nil
}

// List executes the fetch plan over all records of the resource. With a nil
// page request it returns a plain []any; otherwise a pagination envelope.
func (s *Store) List(ctx context.Context, resource string, fp plan.FetchPlan, page *PageRequest) (any, error) {
	all := s.records(resource)
	if page == nil {
		return s.buildRecords(ctx, resource, all, fp)
	}
	switch page.Kind {
	case PageKeyset:
		start := 0
		if page.After != "" {
			for i, rec := range all {
				if fmt.Sprintf("%v", rec["id"]) == page.After {
					start = i + 1
					break
				}
			}
		}
		window, more := cut(all[start:], page.Limit)
		results, err := s.buildRecords(ctx, resource, window, fp)
		if err != nil {
			return nil, err
		}
		after := ""
		if len(window) > 0 {
			after = fmt.Sprintf("%v", window[len(window)-1]["id"])
		}
		return result.KeysetPage{Results: results, Limit: page.Limit, Before: page.After, After: after, HasMore: more}, nil
	default:
		offset := page.Offset
		if offset > len(all) {
			offset = len(all)
		}
		window, more := cut(all[offset:], page.Limit)
		results, err := s.buildRecords(ctx, resource, window, fp)
		if err != nil {
			return nil, err
		}
		return result.OffsetPage{Results: results, Limit: page.Limit, Offset: offset, Count: len(all), HasMore: more}, nil
	}
}

func cut(recs []map[string]any, limit int) ([]map[string]any, bool) {
	if limit <= 0 || len(recs) <= limit {
		return recs, false
	}
	return recs[:limit], true
}

func (s *Store) buildRecords(ctx context.Context, resource string, recs []map[string]any, fp plan.FetchPlan) ([]any, error) {
	out := make([]any, len(recs))
	for i, rec := range recs {
		built, err := s.buildRecord(ctx, resource, rec, fp.Select, fp.Load)
		if err != nil {
			return nil, err
		}
		out[i] = built
	}
	return out, nil
}

func (s *Store) buildRecord(ctx context.Context, resource string, rec map[string]any, selects []string, loads []plan.LoadItem) (map[string]any, error) {
	res := s.registry.Resource(resource)
	out := make(map[string]any, len(selects)+len(loads))

	for _, f := range selects {
		out[f] = rec[f]
	}
	for _, item := range loads {
		v, err := s.loadField(ctx, res, rec, item)
		if err != nil {
			return nil, fmt.Errorf("load %s.%s: %w", resource, item.Field, err)
		}
		out[item.Field] = v
	}

	fillNotLoaded(res, out)
	return out, nil
}

// loadField executes one load directive against a record.
func (s *Store) loadField(ctx context.Context, res *schema.Resource, rec map[string]any, item plan.LoadItem) (any, error) {
	switch schema.Classify(res, item.Field) {
	case schema.ClassEmbeddedResource:
		// The attribute value was selected whole; the load directive adds
		// loadable sub-fields computed against the embedded schema.
		attr := res.Attribute(item.Field)
		target := s.registry.Resource(attr.Type.Unwrap().Named)
		return s.enrichEmbedded(ctx, target, rec[item.Field], item.Nested)

	case schema.ClassTypedStruct, schema.ClassUnionType:
		// Struct and union values live inline on the record; selection is
		// the projector's job.
		return rec[item.Field], nil

	case schema.ClassRelationship, schema.ClassSimpleCalculation,
		schema.ClassComplexCalculation, schema.ClassAggregate:
		fn := s.resolver(res.Name, item.Field)
		if fn == nil {
			return nil, fmt.Errorf("no resolver registered")
		}
		value, err := fn(ctx, rec, item.Args)
		if err != nil {
			return nil, err
		}
		if len(item.Nested) == 0 {
			return value, nil
		}
		var target *schema.Resource
		if rel := res.Relationship(item.Field); rel != nil {
			target = s.registry.Resource(rel.Destination)
		} else if calc := res.Calculation(item.Field); calc != nil {
			target = s.registry.Resource(calc.Returns.Unwrap().Named)
		}
		return s.applyNested(ctx, target, value, item.Nested)
	}
	return nil, fmt.Errorf("field is not loadable")
}

// applyNested projects a resolved value through a nested load list: bare
// attribute items become selects, everything else loads recursively.
func (s *Store) applyNested(ctx context.Context, res *schema.Resource, value any, items []plan.LoadItem) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			built, err := s.applyNested(ctx, res, item, items)
			if err != nil {
				return nil, err
			}
			out[i] = built
		}
		return out, nil
	case map[string]any:
		var selects []string
		var loads []plan.LoadItem
		for _, item := range items {
			if !item.HasArgs && len(item.Nested) == 0 && selectable(res, item.Field) {
				selects = append(selects, item.Field)
				continue
			}
			loads = append(loads, item)
		}
		return s.buildRecord(ctx, res.Name, v, selects, loads)
	}
	return value, nil
}

// selectable reports whether the field's value is stored on the record
// itself, so a bare load directive for it is a plain select. Typed struct
// and union attributes count: the compiler selects them and leaves the
// sub-field filtering to the projector.
func selectable(res *schema.Resource, field string) bool {
	switch schema.Classify(res, field) {
	case schema.ClassSimpleAttribute, schema.ClassTypedStruct, schema.ClassUnionType:
		return true
	}
	return false
}

// enrichEmbedded merges loadable sub-fields into an embedded value that was
// already selected whole.
func (s *Store) enrichEmbedded(ctx context.Context, res *schema.Resource, value any, items []plan.LoadItem) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			built, err := s.enrichEmbedded(ctx, res, item, items)
			if err != nil {
				return nil, err
			}
			out[i] = built
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v)+len(items))
		for k, val := range v {
			out[k] = val
		}
		for _, item := range items {
			loaded, err := s.loadField(ctx, res, v, item)
			if err != nil {
				return nil, err
			}
			out[item.Field] = loaded
		}
		return out, nil
	}
	return value, nil
}

// fillNotLoaded marks every schema field the plan did not produce with the
// not-loaded sentinel so the projector can tell "absent" from "unfetched".
func fillNotLoaded(res *schema.Resource, out map[string]any) {
	mark := func(name string) {
		if _, ok := out[name]; !ok {
			out[name] = result.NotLoadedValue
		}
	}
	for _, a := range res.Attributes {
		mark(a.Name)
	}
	for _, r := range res.Relationships {
		mark(r.Name)
	}
	for _, c := range res.Calculations {
		mark(c.Name)
	}
	for _, ag := range res.Aggregates {
		mark(ag.Name)
	}
}
