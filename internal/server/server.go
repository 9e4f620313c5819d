package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"google.golang.org/grpc/metadata"

	envelop "github.com/hanpama/envelop/internal/envelop"
	eventbus "github.com/hanpama/envelop/internal/eventbus"
	events "github.com/hanpama/envelop/internal/events"
	executor "github.com/hanpama/envelop/internal/executor"
	language "github.com/hanpama/envelop/internal/language"
	reqid "github.com/hanpama/envelop/internal/reqid"
	"github.com/hanpama/envelop/internal/validation"
)

// Handler is an http.Handler that serves a GraphQL endpoint.
// Every operation runs through the phases of an envelop: parse, validate,
// context building, then execute or subscribe.
type Handler struct {
	env     *envelop.Envelop
	opt     Options
	handler http.Handler
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout. Subscriptions are not subject to it.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// MetadataHeaders lists HTTP headers to forward into gRPC metadata.
	// Header names are case-insensitive. Default is none.
	MetadataHeaders []string

	// RootValue is passed to every operation.
	RootValue any

	Logger zerolog.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option      { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                      { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option         { return func(o *Options) { o.MaxBodyBytes = n } }
func WithRootValue(v any) Option              { return func(o *Options) { o.RootValue = v } }
func WithLogger(logger zerolog.Logger) Option { return func(o *Options) { o.Logger = logger } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithMetadataHeaders(headers ...string) Option {
	return func(o *Options) { o.MetadataHeaders = headers }
}

// CORSOptions holds the CORS policy. "*" allows every origin.
type CORSOptions struct {
	AllowedOrigins []string
}

// RequestKey is the key of the *http.Request in the initial envelop context.
const RequestKey = "request"

const defaultCacheControl = "no-cache, no-store"

// New creates a GraphQL HTTP handler serving the operations of env.
func New(env *envelop.Envelop, opts ...Option) (*Handler, error) {
	if env == nil {
		return nil, errors.New("server: envelop is required")
	}
	op := Options{Timeout: 10 * time.Second, Logger: zerolog.Nop()}
	for _, f := range opts {
		f(&op)
	}
	h := &Handler{env: env, opt: op}
	h.handler = http.HandlerFunc(h.serve)
	if len(op.CORS.AllowedOrigins) > 0 {
		h.handler = cors.New(cors.Options{
			AllowedOrigins: op.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"*"},
			ExposedHeaders: []string{"X-Request-ID"},
		}).Handler(h.handler)
	}
	return h, nil
}

// ServeHTTP answers CORS preflight requests, when enabled, and serves
// everything else as GraphQL.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) { h.handler.ServeHTTP(w, r) }

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	ctx, rid := reqid.NewContext(r.Context())
	logger := reqid.Logger(ctx, h.opt.Logger)
	status := http.StatusOK
	operations, streamed := 0, false
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r, RequestID: rid})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{
			Request:    r,
			RequestID:  rid,
			Status:     status,
			Operations: operations,
			Streamed:   streamed,
			Duration:   time.Since(start),
		})
		logger.Debug().Str("method", r.Method).Int("status", status).Int("operations", operations).Dur("took", time.Since(start)).Msg("graphql request")
	}()
	w.Header().Set("X-Request-ID", strconv.FormatInt(rid, 10))

	if r.Method == http.MethodOptions {
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, errorResponse(nil, &language.Error{Message: "method not allowed"}), h.opt.Pretty)
		return
	}

	// Map configured headers into metadata
	md := metadata.MD{}
	if len(h.opt.MetadataHeaders) > 0 {
		allowed := make(map[string]struct{}, len(h.opt.MetadataHeaders))
		for _, hdr := range h.opt.MetadataHeaders {
			allowed[strings.ToLower(hdr)] = struct{}{}
		}
		for k, v := range r.Header {
			if _, ok := allowed[strings.ToLower(k)]; ok {
				md[strings.ToLower(k)] = v
			}
		}
	}
	md["graphql-request-id"] = []string{strconv.FormatInt(rid, 10)}
	ctx = metadata.NewOutgoingContext(ctx, md)

	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status = http.StatusBadRequest
		if berr.Message == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResponse(nil, berr), h.opt.Pretty)
		return
	}

	if batch != nil {
		operations = len(batch)
		out := make([]wireResult, len(batch))
		for i := range batch {
			res := h.executeOne(ctx, r, batch[i])
			if res.stream != nil {
				_ = res.stream.Close()
				res = failed(http.StatusBadRequest, errors.New("subscriptions cannot be batched"))
			}
			out[i] = res.payload
		}
		w.Header().Set("Cache-Control", defaultCacheControl)
		writeJSON(w, status, out, h.opt.Pretty)
		return
	}

	operations = 1
	res := h.executeOne(ctx, r, req)
	if res.stream != nil {
		if !acceptsEventStream(r.Header.Get("Accept")) {
			_ = res.stream.Close()
			res = failed(http.StatusNotAcceptable, errors.New("subscriptions require Accept: text/event-stream"))
		} else {
			streamed = true
			h.serveEvents(ctx, w, res.stream, logger)
			return
		}
	}
	status = res.status
	w.Header().Set("Cache-Control", res.cacheControl)
	writeJSON(w, status, res.payload, h.opt.Pretty)
}

type outcome struct {
	status       int
	cacheControl string
	payload      wireResult
	stream       executor.ResultStream
}

func failed(status int, err error) outcome {
	return outcome{status: status, cacheControl: defaultCacheControl, payload: wireResult{Errors: []wireError{toWireError(err)}}}
}

func (h *Handler) executeOne(ctx context.Context, r *http.Request, req GraphQLRequest) outcome {
	e := h.env.GetEnveloped(envelop.Context{RequestKey: r})
	if e.Schema == nil {
		return failed(http.StatusServiceUnavailable, errors.New("schema is not available"))
	}

	doc, err := e.Parse(req.Query, language.ParseOptions{})
	if err != nil {
		return resultOutcome(&wireResult{Errors: []wireError{toWireError(err)}}, nil)
	}
	if errs := e.Validate(e.Schema, doc, nil, validation.Options{}); len(errs) > 0 {
		out := wireResult{Errors: make([]wireError, len(errs))}
		for i, ve := range errs {
			out.Errors[i] = toWireError(ve)
		}
		return resultOutcome(&out, nil)
	}

	contextValue, err := e.ContextFactory(ctx, nil)
	if err != nil {
		return resultOutcome(&wireResult{Errors: []wireError{toWireError(err)}}, nil)
	}

	args := executor.ExecutionArgs{
		Schema:         e.Schema,
		Document:       doc,
		RootValue:      h.opt.RootValue,
		ContextValue:   contextValue,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
	}

	var resp executor.Response
	if op := language.GetOperation(doc, req.OperationName); op != nil && op.Operation == language.Subscription {
		resp, err = e.Subscribe(ctx, args)
	} else {
		if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
			defer cancel()
		}
		resp, err = e.Execute(ctx, args)
	}
	if err != nil {
		return failed(http.StatusInternalServerError, err)
	}
	if resp.IsStream() {
		return outcome{stream: resp.Stream}
	}
	if resp.Result == nil {
		return failed(http.StatusInternalServerError, errors.New("execution produced no result"))
	}
	wire := toWireResult(resp.Result)
	return resultOutcome(&wire, resp.Result.Extensions)
}

// resultOutcome derives the HTTP status from the first error's
// extensions.status. Cache-Control comes from extensions.cacheControl only
// when the result has no errors.
func resultOutcome(res *wireResult, extensions map[string]any) outcome {
	out := outcome{status: http.StatusOK, cacheControl: defaultCacheControl, payload: *res}
	if len(res.Errors) > 0 {
		if status, ok := statusOf(res.Errors[0].Extensions["status"]); ok {
			out.status = status
		}
		return out
	}
	if cc, ok := extensions["cacheControl"].(string); ok && cc != "" {
		out.cacheControl = cc
	}
	return out
}

func statusOf(v any) (int, bool) {
	var status int
	switch s := v.(type) {
	case int:
		status = s
	case int64:
		status = int(s)
	case float64:
		status = int(s)
	case json.Number:
		n, err := s.Int64()
		if err != nil {
			return 0, false
		}
		status = int(n)
	default:
		return 0, false
	}
	if status < 100 || status > 599 {
		return 0, false
	}
	return status, true
}

// serveEvents streams results as server-sent events until the stream ends or
// the client goes away.
func (h *Handler) serveEvents(ctx context.Context, w http.ResponseWriter, results executor.ResultStream, logger zerolog.Logger) {
	defer results.Close()
	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(event string, v any) {
		data := ""
		if v != nil {
			b, _ := json.Marshal(v)
			data = string(b)
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		if flusher != nil {
			flusher.Flush()
		}
	}

	for {
		r, err := results.Next(ctx)
		if errors.Is(err, io.EOF) {
			send("complete", nil)
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug().Err(err).Msg("subscription client went away")
				return
			}
			send("next", wireResult{Errors: []wireError{toWireError(err)}})
			send("complete", nil)
			return
		}
		send("next", toWireResult(r))
	}
}

// ------------------ Request parsing ------------------

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, []GraphQLRequest, *language.Error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return GraphQLRequest{}, nil, &language.Error{Message: "missing 'query'"}
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return GraphQLRequest{}, nil, &language.Error{Message: "invalid 'variables' JSON"}
			}
		}
		op := r.URL.Query().Get("operationName")
		return GraphQLRequest{Query: q, Variables: vars, OperationName: op}, nil, nil
	}

	// POST
	ct := r.Header.Get("Content-Type")
	if ct == "" || ct == "application/json" || strings.HasPrefix(ct, "application/json;") {
		reader := io.Reader(r.Body)
		if maxBody > 0 {
			reader = io.LimitReader(r.Body, maxBody+1)
		}
		body, err := io.ReadAll(reader)
		if err != nil {
			return GraphQLRequest{}, nil, &language.Error{Message: "failed to read body"}
		}
		defer r.Body.Close()
		if maxBody > 0 && int64(len(body)) > maxBody {
			return GraphQLRequest{}, nil, &language.Error{Message: errBodyTooLargeMessage}
		}

		// Try array (batch)
		var arr []GraphQLRequest
		if len(body) > 0 && body[0] == '[' {
			if err := json.Unmarshal(body, &arr); err != nil {
				return GraphQLRequest{}, nil, &language.Error{Message: "invalid JSON"}
			}
			if len(arr) == 0 {
				return GraphQLRequest{}, nil, &language.Error{Message: "empty batch"}
			}
			return GraphQLRequest{}, arr, nil
		}
		// Single
		var req GraphQLRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return GraphQLRequest{}, nil, &language.Error{Message: "invalid JSON"}
		}
		if req.Query == "" {
			return GraphQLRequest{}, nil, &language.Error{Message: "missing 'query'"}
		}
		if req.Variables == nil {
			req.Variables = map[string]any{}
		}
		return req, nil, nil
	}

	return GraphQLRequest{}, nil, &language.Error{Message: "unsupported Content-Type"}
}

// ------------------ Response formatting ------------------

type wireLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type wireError struct {
	Message    string         `json:"message"`
	Locations  []wireLocation `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type wireResult struct {
	Data       any            `json:"data"`
	Errors     []wireError    `json:"errors,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func errorResponse(data any, err *language.Error) wireResult {
	se := wireError{Message: err.Message}
	return wireResult{Data: data, Errors: []wireError{se}}
}

func toWireError(err error) wireError {
	var gqlErr *gqlerror.Error
	var execErr executor.GraphQLError
	switch {
	case errors.As(err, &execErr):
		return wireError{Message: execErr.Message, Path: toWirePath(execErr.Path), Extensions: execErr.Extensions}
	case errors.As(err, &gqlErr):
		se := wireError{Message: gqlErr.Message, Extensions: gqlErr.Extensions}
		for _, loc := range gqlErr.Locations {
			se.Locations = append(se.Locations, wireLocation{Line: loc.Line, Column: loc.Column})
		}
		for _, pe := range gqlErr.Path {
			se.Path = append(se.Path, pe)
		}
		return se
	}
	return wireError{Message: err.Error()}
}

func toWirePath(path executor.Path) []any {
	if len(path) == 0 {
		return nil
	}
	out := make([]any, len(path))
	for j, pe := range path {
		switch v := pe.(type) {
		case string:
			out[j] = v
		case int:
			out[j] = v
		default:
			out[j] = toString(v)
		}
	}
	return out
}

func toWireResult(res *executor.ExecutionResult) wireResult {
	out := wireResult{Data: res.Data, Extensions: res.Extensions}
	if len(res.Errors) == 0 {
		return out
	}
	out.Errors = make([]wireError, len(res.Errors))
	for i, e := range res.Errors {
		out.Errors[i] = toWireError(e)
	}
	return out
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

func toString(v any) string { b, _ := json.Marshal(v); return string(b) }

const errBodyTooLargeMessage = "body too large"

func acceptsEventStream(accept string) bool {
	for _, p := range strings.Split(accept, ",") {
		if strings.HasPrefix(strings.TrimSpace(p), "text/event-stream") {
			return true
		}
	}
	return false
}
