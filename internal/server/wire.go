package server

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/ash-project/fieldgate/internal/compiler"
	"github.com/ash-project/fieldgate/internal/request"
	"github.com/ash-project/fieldgate/internal/result"
)

// wireError is the client-facing form of a request failure.
type wireError struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func failure(errs ...wireError) map[string]any {
	return map[string]any{"success": false, "errors": errs}
}

func toWireError(err error) wireError {
	switch e := err.(type) {
	case *request.Error:
		return wireError{Type: string(e.Kind), Message: e.Error()}
	case *compiler.Error:
		return wireError{Type: string(e.Leaf().Kind), Message: e.Error(), Fields: e.FieldPath()}
	}
	return wireError{Type: "internal", Message: err.Error()}
}

// wireShape flattens pagination envelopes into plain JSON objects. Other
// values pass through to the encoder as-is.
func wireShape(v any) any {
	switch p := v.(type) {
	case result.OffsetPage:
		return map[string]any{
			"results": p.Results,
			"limit":   p.Limit,
			"offset":  p.Offset,
			"count":   p.Count,
			"hasMore": p.HasMore,
		}
	case result.KeysetPage:
		out := map[string]any{
			"results": p.Results,
			"limit":   p.Limit,
			"after":   p.After,
			"hasMore": p.HasMore,
		}
		if p.Before != "" {
			out["before"] = p.Before
		}
		return out
	}
	return v
}

// WireValues is the default leaf formatter: times become RFC 3339 strings
// and raw bytes become base64, recursively through containers copied
// verbatim.
type WireValues struct{}

func (f WireValues) FormatLeaf(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case []byte:
		return base64.StdEncoding.EncodeToString(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = f.FormatLeaf(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = f.FormatLeaf(item)
		}
		return out
	}
	return v
}

const errBodyTooLargeMessage = "body too large"

func parseRequest(r *http.Request, maxBody int64) (QueryRequest, []QueryRequest, *wireError) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !startsWith(ct, "application/json;") {
		return QueryRequest{}, nil, &wireError{Type: "bad_request", Message: "unsupported Content-Type"}
	}

	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return QueryRequest{}, nil, &wireError{Type: "bad_request", Message: "failed to read body"}
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return QueryRequest{}, nil, &wireError{Type: "bad_request", Message: errBodyTooLargeMessage}
	}

	if len(body) > 0 && body[0] == '[' {
		var batch []QueryRequest
		if err := json.Unmarshal(body, &batch); err != nil {
			return QueryRequest{}, nil, &wireError{Type: "bad_request", Message: "invalid JSON"}
		}
		if len(batch) == 0 {
			return QueryRequest{}, nil, &wireError{Type: "bad_request", Message: "empty batch"}
		}
		return QueryRequest{}, batch, nil
	}

	var req QueryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return QueryRequest{}, nil, &wireError{Type: "bad_request", Message: "invalid JSON"}
	}
	if req.Resource == "" {
		return QueryRequest{}, nil, &wireError{Type: "bad_request", Message: "missing 'resource'"}
	}
	return req, nil, nil
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func startsWith(s, prefix string) bool { return len(s) >= len(prefix) && s[:len(prefix)] == prefix }

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
