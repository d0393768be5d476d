// Package result defines the raw result shapes the data engine produces and
// the projector consumes: records as maps, lists, pagination envelopes, and
// the sentinel marking fields that were never fetched.
package result

// NotLoaded marks a field the fetch plan did not ask for. The projector
// treats it as absent and omits the field, never as an error.
type NotLoaded struct{}

// NotLoadedValue is the shared sentinel instance.
var NotLoadedValue = NotLoaded{}

// IsNotLoaded reports whether v is the not-loaded sentinel.
func IsNotLoaded(v any) bool {
	_, ok := v.(NotLoaded)
	return ok
}

// OffsetPage is an offset-paginated result envelope. The projector projects
// Results and leaves the metadata untouched.
type OffsetPage struct {
	Results []any
	Limit   int
	Offset  int
	Count   int
	HasMore bool
}

// KeysetPage is a cursor-paginated result envelope.
type KeysetPage struct {
	Results []any
	Limit   int
	Before  string
	After   string
	HasMore bool
}
