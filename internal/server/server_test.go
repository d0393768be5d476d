package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ash-project/fieldgate/internal/naming"
	"github.com/ash-project/fieldgate/internal/schema"
	"github.com/ash-project/fieldgate/internal/store"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()

	resources := []*schema.Resource{
		{
			Name: "todo",
			Attributes: []*schema.Attribute{
				{Name: "id", Type: schema.ScalarType("uuid")},
				{Name: "title", Type: schema.ScalarType("string")},
				{Name: "user_id", Type: schema.ScalarType("uuid")},
			},
			Relationships: []*schema.Relationship{
				{Name: "user", Destination: "user", Cardinality: schema.CardinalityOne},
			},
			Calculations: []*schema.Calculation{
				{Name: "display_name", Returns: schema.ScalarType("string")},
			},
		},
		{
			Name: "user",
			Attributes: []*schema.Attribute{
				{Name: "id", Type: schema.ScalarType("uuid")},
				{Name: "name", Type: schema.ScalarType("string")},
				{Name: "stats", Type: schema.StructType(
					&schema.StructField{Name: "views", Type: schema.ScalarType("integer")},
					&schema.StructField{Name: "clicks", Type: schema.ScalarType("integer")},
				)},
			},
		},
	}
	for _, res := range resources {
		require.NoError(t, reg.Register(res))
	}
	require.NoError(t, reg.Validate())
	return reg
}

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	reg := testRegistry(t)

	st := store.New(reg)
	st.Seed("todo", []map[string]any{
		{"id": "t1", "title": "first", "user_id": "u1"},
		{"id": "t2", "title": "second", "user_id": "u1"},
	})
	st.Seed("user", []map[string]any{
		{"id": "u1", "name": "ann", "stats": map[string]any{"views": 3, "clicks": 1}},
	})
	st.Resolve("todo", "user", st.HasOne("user", "user_id"))
	st.Resolve("todo", "display_name", func(_ context.Context, rec map[string]any, _ map[string]any) (any, error) {
		return "todo: " + rec["title"].(string), nil
	})

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	opts = append([]Option{WithLogger(quiet)}, opts...)
	return New(reg, st, naming.CamelCase{}, opts...)
}

func post(t *testing.T, h *Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w, out
}

func TestQueryByID(t *testing.T) {
	h := newTestHandler(t)
	w, out := post(t, h, `{"resource":"todo","id":"t1","fields":["id","title",{"user":["name"]},"displayName"]}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, out["success"])
	require.Equal(t, map[string]any{
		"id":          "t1",
		"title":       "first",
		"user":        map[string]any{"name": "ann"},
		"displayName": "todo: first",
	}, out["data"])
}

func TestQueryStructInsideRelationship(t *testing.T) {
	h := newTestHandler(t)
	_, out := post(t, h, `{"resource":"todo","id":"t1","fields":["id",{"user":["name",{"stats":["views"]}]}]}`)

	require.Equal(t, true, out["success"])
	require.Equal(t, map[string]any{
		"id": "t1",
		"user": map[string]any{
			"name":  "ann",
			"stats": map[string]any{"views": float64(3)},
		},
	}, out["data"])
}

func TestQueryByIDMissing(t *testing.T) {
	h := newTestHandler(t)
	_, out := post(t, h, `{"resource":"todo","id":"nope","fields":["id"]}`)
	require.Equal(t, true, out["success"])
	require.Nil(t, out["data"])
}

func TestQueryList(t *testing.T) {
	h := newTestHandler(t)
	_, out := post(t, h, `{"resource":"todo","fields":["id"]}`)

	require.Equal(t, true, out["success"])
	require.Equal(t, []any{
		map[string]any{"id": "t1"},
		map[string]any{"id": "t2"},
	}, out["data"])
}

func TestQueryOffsetPage(t *testing.T) {
	h := newTestHandler(t)
	_, out := post(t, h, `{"resource":"todo","fields":["id"],"page":{"type":"offset","limit":1}}`)

	require.Equal(t, true, out["success"])
	data := out["data"].(map[string]any)
	require.Equal(t, []any{map[string]any{"id": "t1"}}, data["results"])
	require.Equal(t, float64(1), data["limit"])
	require.Equal(t, float64(0), data["offset"])
	require.Equal(t, float64(2), data["count"])
	require.Equal(t, true, data["hasMore"])
}

func TestQueryKeysetPage(t *testing.T) {
	h := newTestHandler(t)
	_, out := post(t, h, `{"resource":"todo","fields":["id"],"page":{"type":"keyset","limit":1,"after":"t1"}}`)

	data := out["data"].(map[string]any)
	require.Equal(t, []any{map[string]any{"id": "t2"}}, data["results"])
	require.Equal(t, "t1", data["before"])
	require.Equal(t, "t2", data["after"])
	require.Equal(t, false, data["hasMore"])
}

func TestBatch(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(
		`[{"resource":"todo","id":"t1","fields":["id"]},{"resource":"todo","id":"t2","fields":["title"]}]`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	require.Equal(t, map[string]any{"id": "t1"}, out[0]["data"])
	require.Equal(t, map[string]any{"title": "second"}, out[1]["data"])
}

func TestErrorResponses(t *testing.T) {
	h := newTestHandler(t)

	t.Run("unknown resource", func(t *testing.T) {
		w, out := post(t, h, `{"resource":"widget","fields":["id"]}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, false, out["success"])
		errs := out["errors"].([]any)
		require.Equal(t, "unknown_resource", errs[0].(map[string]any)["type"])
	})

	t.Run("invalid fields type", func(t *testing.T) {
		_, out := post(t, h, `{"resource":"todo","fields":{"id":true}}`)
		require.Equal(t, false, out["success"])
		errs := out["errors"].([]any)
		require.Equal(t, "invalid_fields_type", errs[0].(map[string]any)["type"])
	})

	t.Run("unknown field", func(t *testing.T) {
		_, out := post(t, h, `{"resource":"todo","fields":["bogus"]}`)
		errs := out["errors"].([]any)
		require.Equal(t, "unknown_field", errs[0].(map[string]any)["type"])
	})

	t.Run("nested error carries field path", func(t *testing.T) {
		_, out := post(t, h, `{"resource":"todo","fields":[{"user":["bogus"]}]}`)
		errs := out["errors"].([]any)
		e := errs[0].(map[string]any)
		require.Equal(t, "unknown_field", e["type"])
		require.Equal(t, []any{"user", "bogus"}, e["fields"])
	})

	t.Run("missing resource", func(t *testing.T) {
		w, out := post(t, h, `{"fields":["id"]}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		errs := out["errors"].([]any)
		require.Equal(t, "bad_request", errs[0].(map[string]any)["type"])
	})

	t.Run("invalid JSON", func(t *testing.T) {
		w, _ := post(t, h, `{`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDescribe(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	resources := out["resources"].([]any)
	require.Len(t, resources, 2)
	require.Equal(t, "todo", resources[0].(map[string]any)["name"])
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest("PUT", "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestUnsupportedContentType(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"resource":"todo","fields":[]}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, WithMaxBodyBytes(10))
	w, _ := post(t, h, `{"resource":"todo","fields":["id","title"]}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, WithCORS("*"))

	// simple request
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"resource":"todo","fields":["id"]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	// preflight
	pre := httptest.NewRequest("OPTIONS", "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	require.Equal(t, http.StatusNoContent, pw.Code)
	require.Equal(t, "*", pw.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Test", pw.Header().Get("Access-Control-Allow-Headers"))
}

func TestWireValues(t *testing.T) {
	f := WireValues{}
	require.Equal(t, "aGk=", f.FormatLeaf([]byte("hi")))
	require.Equal(t, []any{"aGk="}, f.FormatLeaf([]any{[]byte("hi")}))
	require.Equal(t, 7, f.FormatLeaf(7))
}
