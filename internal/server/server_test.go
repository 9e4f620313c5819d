package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	envelop "github.com/hanpama/envelop/internal/envelop"
	eventbus "github.com/hanpama/envelop/internal/eventbus"
	events "github.com/hanpama/envelop/internal/events"
	executor "github.com/hanpama/envelop/internal/executor"
	"github.com/hanpama/envelop/internal/plugins"
	reqid "github.com/hanpama/envelop/internal/reqid"
	schema "github.com/hanpama/envelop/internal/schema"
	"github.com/hanpama/envelop/internal/stream"
)

const testSDL = `
type Query {
  hello: String
  who: String
  forbidden: String
}

type Subscription {
  count: Int
}
`

func newTestSchema(t *testing.T, hello schema.FieldResolveFn) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(testSDL)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if hello == nil {
		hello = func(schema.ResolveParams) (any, error) { return "world", nil }
	}
	require.NoError(t, sch.SetFieldResolver("Query", "hello", hello))
	require.NoError(t, sch.SetFieldResolver("Query", "who", func(p schema.ResolveParams) (any, error) {
		return p.ContextValue["user"], nil
	}))
	require.NoError(t, sch.SetFieldResolver("Query", "forbidden", func(schema.ResolveParams) (any, error) {
		return nil, plugins.NewEnvelopError("forbidden", map[string]any{"status": 403})
	}))
	require.NoError(t, sch.SetFieldSubscriber("Subscription", "count", func(schema.ResolveParams) (stream.Iterator[any], error) {
		return stream.FromSlice([]any{map[string]any{"count": 1}, map[string]any{"count": 2}}), nil
	}))
	return sch
}

func newTestHandler(t *testing.T, sch *schema.Schema, extra []envelop.Plugin, opts ...Option) *Handler {
	t.Helper()
	env := envelop.New(envelop.Options{Plugins: append([]envelop.Plugin{plugins.UseSchema(sch)}, extra...)})
	h, err := New(env, opts...)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return h
}

func post(t *testing.T, h http.Handler, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestForwardedHeaders(t *testing.T) {
	var captured metadata.MD
	sch := newTestSchema(t, func(p schema.ResolveParams) (any, error) {
		captured, _ = metadata.FromOutgoingContext(p.Context)
		return "world", nil
	})
	h := newTestHandler(t, sch, nil, WithMetadataHeaders("X-Test"))

	w := post(t, h, `{"query":"{ hello }"}`, "X-Test", "abc", "X-Other", "nope")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if captured == nil || captured.Get("x-test")[0] != "abc" || len(captured.Get("x-other")) > 0 {
		t.Fatalf("metadata not propagated correctly: %v", captured)
	}
}

func TestForwardedHeadersDefaultEmpty(t *testing.T) {
	var captured metadata.MD
	sch := newTestSchema(t, func(p schema.ResolveParams) (any, error) {
		captured, _ = metadata.FromOutgoingContext(p.Context)
		return "world", nil
	})
	h := newTestHandler(t, sch, nil)

	w := post(t, h, `{"query":"{ hello }"}`, "X-Test", "abc")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if captured != nil && len(captured.Get("x-test")) > 0 {
		t.Fatalf("header should not be forwarded by default: %v", captured)
	}
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, newTestSchema(t, nil), nil, WithCORS("*"))

	// simple request
	w := post(t, h, `{"query":"{ hello }"}`, "Origin", "http://example.com")
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}

	// preflight
	pre := httptest.NewRequest("OPTIONS", "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Method", "POST")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	if pw.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", pw.Code)
	}
	if pw.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight missing CORS header")
	}
	if !strings.EqualFold(pw.Header().Get("Access-Control-Allow-Headers"), "X-Test") {
		t.Fatalf("preflight missing allow headers")
	}

	// origins outside the list get no CORS headers
	h = newTestHandler(t, newTestSchema(t, nil), nil, WithCORS("https://app.example"))
	w = post(t, h, `{"query":"{ hello }"}`, "Origin", "https://evil.example")
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, http.StatusOK, w.Code)
	w = post(t, h, `{"query":"{ hello }"}`, "Origin", "https://app.example")
	require.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, newTestSchema(t, nil), nil, WithMaxBodyBytes(10))

	w := post(t, h, `{"query":"1234567890"}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	var capturedMD metadata.MD
	var capturedID int64
	sch := newTestSchema(t, func(p schema.ResolveParams) (any, error) {
		capturedMD, _ = metadata.FromOutgoingContext(p.Context)
		capturedID, _ = reqid.FromContext(p.Context)
		return "world", nil
	})
	h := newTestHandler(t, sch, nil)

	w := post(t, h, `{"query":"{ hello }"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if capturedID == 0 {
		t.Fatalf("missing request id in context")
	}
	if got := capturedMD.Get("graphql-request-id"); len(got) == 0 || got[0] != strconv.FormatInt(capturedID, 10) {
		t.Fatalf("metadata mismatch: %v id %d", capturedMD, capturedID)
	}
	require.Equal(t, strconv.FormatInt(capturedID, 10), w.Header().Get("X-Request-ID"))
}

func TestEnvelopedPerRequest(t *testing.T) {
	fromHeader := &envelop.Hooks{OnEnveloped: func(e *envelop.EnvelopedEvent) {
		r := e.Context[RequestKey].(*http.Request)
		e.ExtendContext(envelop.Context{"user": r.Header.Get("Authorization")})
	}}
	h := newTestHandler(t, newTestSchema(t, nil), []envelop.Plugin{fromHeader})

	w := post(t, h, `{"query":"{ who }"}`, "Authorization", "ada")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"who":"ada"}}`, w.Body.String())
	require.Equal(t, "no-cache, no-store", w.Header().Get("Cache-Control"))

	w = post(t, h, `{"query":"{ who }"}`, "Authorization", "grace")
	require.JSONEq(t, `{"data":{"who":"grace"}}`, w.Body.String())
}

func TestCacheControlAndStatusFromResult(t *testing.T) {
	cacheable := plugins.UsePayloadFormatter(func(r *executor.ExecutionResult, _ executor.ExecutionArgs) (*executor.ExecutionResult, bool) {
		out := *r
		out.Extensions = map[string]any{"cacheControl": "max-age=60"}
		return &out, true
	})
	h := newTestHandler(t, newTestSchema(t, nil), []envelop.Plugin{cacheable})

	w := post(t, h, `{"query":"{ hello }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "max-age=60", w.Header().Get("Cache-Control"))

	w = post(t, h, `{"query":"{ forbidden }"}`)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "no-cache, no-store", w.Header().Get("Cache-Control"))
	require.JSONEq(t, `{
		"data": {"forbidden": null},
		"errors": [{"message": "forbidden", "path": ["forbidden"], "extensions": {"status": 403}}],
		"extensions": {"cacheControl": "max-age=60"}
	}`, w.Body.String())
}

func TestParseAndValidationErrors(t *testing.T) {
	h := newTestHandler(t, newTestSchema(t, nil), nil)

	w := post(t, h, `{"query":"{ hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var parsed struct {
		Errors []wireError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	require.Len(t, parsed.Errors, 1)
	require.NotEmpty(t, parsed.Errors[0].Locations)

	w = post(t, h, `{"query":"{ nope }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `Cannot query field \"nope\" on type \"Query\".`)
}

func TestBatchedRequests(t *testing.T) {
	h := newTestHandler(t, newTestSchema(t, nil), nil)

	w := post(t, h, `[{"query":"{ hello }"},{"query":"subscription { count }"}]`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[
		{"data": {"hello": "world"}},
		{"data": null, "errors": [{"message": "subscriptions cannot be batched"}]}
	]`, w.Body.String())
}

func TestSubscriptionOverServerSentEvents(t *testing.T) {
	h := newTestHandler(t, newTestSchema(t, nil), nil)

	w := post(t, h, `{"query":"subscription { count }"}`, "Accept", "text/event-stream")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	require.Equal(t, []string{
		`event: next` + "\n" + `data: {"data":{"count":1}}`,
		`event: next` + "\n" + `data: {"data":{"count":2}}`,
		`event: complete` + "\n" + `data: `,
	}, strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n"))

	w = post(t, h, `{"query":"subscription { count }"}`)
	require.Equal(t, http.StatusNotAcceptable, w.Code)
}

func TestSubscriptionStopsWhenClientLeaves(t *testing.T) {
	closed := make(chan struct{})
	sch := newTestSchema(t, nil)
	require.NoError(t, sch.SetFieldSubscriber("Subscription", "count", func(schema.ResolveParams) (stream.Iterator[any], error) {
		return stream.FromChannel(make(chan any), func() { close(closed) }), nil
	}))
	h := newTestHandler(t, sch, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"subscription { count }"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}()
	cancel()
	<-done
	<-closed
}

func TestMissingSchema(t *testing.T) {
	h, err := New(envelop.New(envelop.Options{}))
	require.NoError(t, err)
	w := post(t, h, `{"query":"{ hello }"}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	_, err = New(nil)
	require.Error(t, err)
}

func TestHTTPEventsArePublished(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)
	var statuses, operations []int
	defer eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
		require.NotZero(t, e.RequestID)
		statuses = append(statuses, e.Status)
		operations = append(operations, e.Operations)
	})()

	h := newTestHandler(t, newTestSchema(t, nil), nil)
	post(t, h, `{"query":"{ forbidden }"}`)
	post(t, h, `not json`)
	post(t, h, `[{"query":"{ hello }"},{"query":"{ hello }"}]`)
	require.Equal(t, []int{http.StatusForbidden, http.StatusBadRequest, http.StatusOK}, statuses)
	require.Equal(t, []int{1, 0, 2}, operations)
}
