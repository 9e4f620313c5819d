package envelop

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2/gqlerror"

	executor "github.com/hanpama/envelop/internal/executor"
	language "github.com/hanpama/envelop/internal/language"
	schema "github.com/hanpama/envelop/internal/schema"
	"github.com/hanpama/envelop/internal/validation"
)

// Tracing maps a phase name (init, parse, validate, contextFactory, execute,
// subscribe) to the time it took. Durations encode to JSON as integer
// nanoseconds.
type Tracing map[string]time.Duration

// TracingExtension is the result extension carrying the Tracing of an
// execution.
const TracingExtension = "envelopTracing"

const tracingKey = "envelop.tracing"

// TracingFrom returns the tracing record stored in c, or nil.
func TracingFrom(c Context) Tracing {
	t, _ := c[tracingKey].(Tracing)
	return t
}

func ensureTracing(c Context) Tracing {
	if c == nil {
		return Tracing{}
	}
	t, ok := c[tracingKey].(Tracing)
	if !ok {
		t = Tracing{}
		c[tracingKey] = t
	}
	return t
}

func track(t Tracing, phase string) func() {
	start := time.Now()
	return func() { t[phase] = time.Since(start) }
}

// traced times every phase of inner and records the timings in the request
// context.
type traced struct {
	inner  orchestrator
	logger zerolog.Logger
}

func (t *traced) currentSchema() *schema.Schema { return t.inner.currentSchema() }

func (t *traced) init(initial Context) {
	defer track(ensureTracing(initial), "init")()
	t.inner.init(initial)
}

func (t *traced) parse(initial Context) ParseFunc {
	record := ensureTracing(initial)
	fn := t.inner.parse(initial)
	return func(source string, opts language.ParseOptions) (*language.QueryDocument, error) {
		defer track(record, "parse")()
		return fn(source, opts)
	}
}

func (t *traced) validate(initial Context) validation.ValidateFunc {
	record := ensureTracing(initial)
	fn := t.inner.validate(initial)
	return func(s *schema.Schema, doc *language.QueryDocument, rules []validation.Rule, opts validation.Options) gqlerror.List {
		defer track(record, "validate")()
		return fn(s, doc, rules, opts)
	}
}

func (t *traced) contextFactory(initial Context) ContextFactoryFunc {
	record := ensureTracing(initial)
	fn := t.inner.contextFactory(initial)
	return func(ctx context.Context, seed Context) (Context, error) {
		defer track(record, "contextFactory")()
		return fn(ctx, seed)
	}
}

func (t *traced) execute() executor.ExecuteFunc {
	fn := t.inner.execute()
	return func(ctx context.Context, args executor.ExecutionArgs) (executor.Response, error) {
		record := ensureTracing(args.ContextValue)
		done := track(record, "execute")
		resp, err := fn(ctx, args)
		done()
		if err != nil {
			return resp, err
		}
		if resp.IsStream() {
			t.logger.Warn().Msg("envelop tracing does not support streamed results; no tracing data is attached to this operation")
			return resp, nil
		}
		if resp.Result != nil {
			if resp.Result.Extensions == nil {
				resp.Result.Extensions = map[string]any{}
			}
			resp.Result.Extensions[TracingExtension] = record
		}
		return resp, nil
	}
}

func (t *traced) subscribe() executor.SubscribeFunc {
	fn := t.inner.subscribe()
	return func(ctx context.Context, args executor.ExecutionArgs) (executor.Response, error) {
		defer track(ensureTracing(args.ContextValue), "subscribe")()
		return fn(ctx, args)
	}
}
