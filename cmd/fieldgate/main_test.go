package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSchema = `{"resources": [
  {"name": "todo",
   "attributes": [
     {"name": "id", "type": {"scalar": "uuid"}},
     {"name": "title", "type": {"scalar": "string"}}],
   "relationships": [
     {"name": "user", "destination": "user", "cardinality": "one"}]},
  {"name": "user",
   "attributes": [
     {"name": "id", "type": {"scalar": "uuid"}},
     {"name": "name", "type": {"scalar": "string"}}]}
]}`

func writeTestSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(testSchema), 0o644))
	return path
}

func captureOutput(t *testing.T, fn func() error) (stdout string, err error) {
	t.Helper()
	old := os.Stdout
	defer func() { os.Stdout = old }()

	r, w, _ := os.Pipe()
	os.Stdout = w

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() { io.Copy(&buf, r); close(done) }()

	err = fn()
	w.Close()
	<-done
	return buf.String(), err
}

func TestHelp(t *testing.T) {
	out, err := captureOutput(t, func() error {
		return run([]string{"help", "serve"})
	})
	require.NoError(t, err)
	require.Contains(t, out, "serve FLAGS")
}

func TestUnknownCommand(t *testing.T) {
	require.Error(t, run([]string{"frobnicate"}))
}

func TestMissingCommand(t *testing.T) {
	require.Error(t, run(nil))
}

func TestExplain(t *testing.T) {
	schemaPath := writeTestSchema(t)
	out, err := captureOutput(t, func() error {
		return run([]string{"explain",
			"-schema", schemaPath,
			"-resource", "todo",
			"-fields", `["id","title",{"user":["name"]}]`,
		})
	})
	require.NoError(t, err)
	require.Contains(t, out, `"fetchPlan"`)
	require.Contains(t, out, `"template"`)
	require.Contains(t, out, `"user"`)
}

func TestExplainErrors(t *testing.T) {
	schemaPath := writeTestSchema(t)

	t.Run("missing flags", func(t *testing.T) {
		require.Error(t, run([]string{"explain", "-schema", schemaPath}))
	})

	t.Run("unknown resource", func(t *testing.T) {
		err := run([]string{"explain", "-schema", schemaPath, "-resource", "widget", "-fields", `["id"]`})
		require.ErrorContains(t, err, "unknown resource")
	})

	t.Run("unknown field", func(t *testing.T) {
		err := run([]string{"explain", "-schema", schemaPath, "-resource", "todo", "-fields", `["bogus"]`})
		require.ErrorContains(t, err, "unknown field")
	})
}

func TestServeRequiresSchema(t *testing.T) {
	require.Error(t, run([]string{"serve"}))
}

func TestFormatterFor(t *testing.T) {
	for _, name := range []string{"", "camel", "none"} {
		_, err := formatterFor(name)
		require.NoError(t, err)
	}
	_, err := formatterFor("kebab")
	require.Error(t, err)
}
