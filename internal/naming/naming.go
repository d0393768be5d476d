package naming

import "strings"

// Formatter converts between client-facing field names and internal
// identifiers. Implementations must be total and reversible:
// ToInternal(ToOutput(id)) == id for every internal identifier.
type Formatter interface {
	// ToInternal converts a client-facing name to its internal identifier.
	ToInternal(name string) string
	// ToOutput converts an internal identifier to its client-facing name.
	ToOutput(id string) string
}

// CamelCase maps camelCase client names to snake_case internal identifiers.
// Segments that do not start with a lowercase letter (digit-led ones like
// "line_1") keep their underscore on the wire, so the mapping stays
// reversible for every internal identifier.
type CamelCase struct{}

func (CamelCase) ToInternal(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (CamelCase) ToOutput(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	upper := false
	for _, r := range id {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			if r >= 'a' && r <= 'z' {
				b.WriteRune(r - 'a' + 'A')
			} else {
				b.WriteByte('_')
				b.WriteRune(r)
			}
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Passthrough leaves names untouched. Useful when the wire convention
// already matches the internal one, and in tests.
type Passthrough struct{}

func (Passthrough) ToInternal(name string) string { return name }
func (Passthrough) ToOutput(id string) string     { return id }
