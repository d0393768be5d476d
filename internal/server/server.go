// Package server exposes resources over HTTP. A request names a resource and
// the fields it wants; the handler normalizes and compiles the field list,
// hands the fetch plan to the store, projects the raw result and writes the
// client-facing JSON.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ash-project/fieldgate/internal/compiler"
	"github.com/ash-project/fieldgate/internal/eventbus"
	"github.com/ash-project/fieldgate/internal/events"
	"github.com/ash-project/fieldgate/internal/naming"
	"github.com/ash-project/fieldgate/internal/projector"
	"github.com/ash-project/fieldgate/internal/reqid"
	"github.com/ash-project/fieldgate/internal/request"
	"github.com/ash-project/fieldgate/internal/schema"
	"github.com/ash-project/fieldgate/internal/store"
)

// Handler is an http.Handler serving field selection queries.
type Handler struct {
	registry  *schema.Registry
	store     *store.Store
	formatter naming.Formatter
	compiler  *compiler.Compiler
	opt       Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has
	// none. 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses.
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// Values formats extracted leaf values for the wire. Defaults to
	// WireValues.
	Values projector.ValueFormatter

	// Logger receives per-request log entries. Defaults to the standard
	// logrus logger.
	Logger *logrus.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithValues(vf projector.ValueFormatter) Option { return func(o *Options) { o.Values = vf } }
func WithLogger(l *logrus.Logger) Option            { return func(o *Options) { o.Logger = l } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a handler over the registry and store using the given naming
// formatter for the client-facing convention.
func New(registry *schema.Registry, st *store.Store, formatter naming.Formatter, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	if op.Values == nil {
		op.Values = WireValues{}
	}
	if op.Logger == nil {
		op.Logger = logrus.StandardLogger()
	}
	return &Handler{
		registry:  registry,
		store:     st,
		formatter: formatter,
		compiler:  compiler.New(registry, formatter),
		opt:       op,
	}
}

// QueryRequest is the wire form of one field selection query.
type QueryRequest struct {
	Resource string       `json:"resource"`
	ID       any          `json:"id,omitempty"`
	Fields   any          `json:"fields"`
	Page     *PageRequest `json:"page,omitempty"`
}

// PageRequest selects a pagination style.
type PageRequest struct {
	Type   string `json:"type"` // "offset" or "keyset"
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
	After  string `json:"after,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.NewContext(ctx)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		d := time.Since(start)
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: d})
		h.opt.Logger.WithFields(logrus.Fields{
			"request_id": rid,
			"status":     status,
			"duration":   d,
		}).Info("request served")
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	// GET serves the registry description for client discovery.
	if r.Method == http.MethodGet {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		writeJSON(w, status, schema.Describe(h.registry, h.formatter), h.opt.Pretty)
		return
	}

	if r.Method != http.MethodPost {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, failure(wireError{Type: "bad_request", Message: "method not allowed"}), h.opt.Pretty)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	req, batch, perr := parseRequest(r, h.opt.MaxBodyBytes)
	if perr != nil {
		status = http.StatusBadRequest
		if perr.Message == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, failure(*perr), h.opt.Pretty)
		return
	}

	if batch != nil {
		out := make([]any, len(batch))
		for i := range batch {
			out[i] = h.executeOne(ctx, batch[i])
		}
		writeJSON(w, status, out, h.opt.Pretty)
		return
	}

	writeJSON(w, status, h.executeOne(ctx, req), h.opt.Pretty)
}

func (h *Handler) executeOne(ctx context.Context, req QueryRequest) any {
	name := h.formatter.ToInternal(req.Resource)
	res := h.registry.Resource(name)
	if res == nil {
		return failure(wireError{Type: "unknown_resource", Message: "unknown resource " + req.Resource})
	}

	start := time.Now()
	eventbus.Publish(ctx, events.QueryStart{Resource: name, FieldCount: fieldCount(req.Fields)})

	data, err := h.runQuery(ctx, res, req)
	eventbus.Publish(ctx, events.QueryFinish{Resource: name, Err: err, Duration: time.Since(start)})
	if err != nil {
		return failure(toWireError(err))
	}
	return map[string]any{"success": true, "data": data}
}

func (h *Handler) runQuery(ctx context.Context, res *schema.Resource, req QueryRequest) (any, error) {
	nodes, err := request.Normalize(req.Fields, h.formatter)
	if err != nil {
		return nil, err
	}
	fp, tpl, err := h.compiler.Compile(res, nodes)
	if err != nil {
		return nil, err
	}

	fetchStart := time.Now()
	eventbus.Publish(ctx, events.FetchStart{Resource: res.Name, SelectCount: len(fp.Select), LoadCount: len(fp.Load)})
	var raw any
	if req.ID != nil {
		raw, err = h.store.Get(ctx, res.Name, req.ID, fp)
	} else {
		raw, err = h.store.List(ctx, res.Name, fp, toStorePage(req.Page))
	}
	eventbus.Publish(ctx, events.FetchFinish{Resource: res.Name, Err: err, Duration: time.Since(fetchStart)})
	if err != nil {
		return nil, err
	}

	return wireShape(projector.Project(raw, tpl, h.opt.Values)), nil
}

func toStorePage(p *PageRequest) *store.PageRequest {
	if p == nil {
		return nil
	}
	kind := store.PageOffset
	if p.Type == "keyset" {
		kind = store.PageKeyset
	}
	return &store.PageRequest{Kind: kind, Limit: p.Limit, Offset: p.Offset, After: p.After}
}

func fieldCount(fields any) int {
	if list, ok := fields.([]any); ok {
		return len(list)
	}
	return 0
}
