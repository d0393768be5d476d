package naming

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCamelCase(t *testing.T) {
	f := CamelCase{}

	cases := []struct {
		internal string
		output   string
	}{
		{"id", "id"},
		{"title", "title"},
		{"created_at", "createdAt"},
		{"comment_count", "commentCount"},
		{"is_done_today", "isDoneToday"},
		// digit-led segments keep their underscore on the wire
		{"line_1", "line_1"},
		{"line_1_total", "line_1Total"},
	}
	for _, tc := range cases {
		t.Run(tc.internal, func(t *testing.T) {
			require.Equal(t, tc.output, f.ToOutput(tc.internal))
			require.Equal(t, tc.internal, f.ToInternal(tc.output))
		})
	}
}

// ToInternal(ToOutput(id)) == id for snake_case internal identifiers.
func TestCamelCaseRoundTrip(t *testing.T) {
	f := CamelCase{}
	ids := []string{
		"id", "user", "created_at", "metadata_history",
		"a_b_c", "display_name", "comment_count",
		"line_1", "line_1_total", "address_2_zip",
	}
	for _, id := range ids {
		require.Equal(t, id, f.ToInternal(f.ToOutput(id)), "round trip %q", id)
	}
}

func TestPassthrough(t *testing.T) {
	f := Passthrough{}
	require.Equal(t, "createdAt", f.ToInternal("createdAt"))
	require.Equal(t, "created_at", f.ToOutput("created_at"))
}
