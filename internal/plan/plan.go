// Package plan holds the two compiled artifacts of a field request: the
// fetch plan handed to the data engine and the extraction template applied
// to its raw result. Both are request-scoped pure data.
package plan

// FetchPlan tells the data engine exactly what to fetch: leaf fields to
// select directly, and load directives for everything that needs explicit
// loading (calculations, aggregates, relationships, loadables inside
// embedded resources).
type FetchPlan struct {
	Select []string
	Load   []LoadItem
}

// LoadItem is one load directive: a bare name, a name with a nested load
// list, or a calculation invocation carrying arguments and optionally a
// nested load list for its return shape.
type LoadItem struct {
	Field   string
	Args    map[string]any
	HasArgs bool
	Nested  []LoadItem
}

// LoadField is a bare load directive.
func LoadField(field string) LoadItem { return LoadItem{Field: field} }

// LoadNested is a load directive with a nested load list.
func LoadNested(field string, nested []LoadItem) LoadItem {
	return LoadItem{Field: field, Nested: nested}
}

// LoadCalc is a calculation load directive with arguments and an optional
// nested load list for the calculation's return shape.
func LoadCalc(field string, args map[string]any, nested []LoadItem) LoadItem {
	return LoadItem{Field: field, Args: args, HasArgs: true, Nested: nested}
}
