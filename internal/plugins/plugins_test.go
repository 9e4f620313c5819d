package plugins

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	envelop "github.com/hanpama/envelop/internal/envelop"
	executor "github.com/hanpama/envelop/internal/executor"
	language "github.com/hanpama/envelop/internal/language"
	schema "github.com/hanpama/envelop/internal/schema"
	"github.com/hanpama/envelop/internal/stream"
	"github.com/hanpama/envelop/internal/validation"
)

const testSDL = `
type Query {
  foo: String
  secret: String
  safe: String
  who: String
}

type Subscription {
  count: Int
}
`

func newTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	require.NoError(t, s.SetFieldResolver("Query", "foo", func(schema.ResolveParams) (any, error) {
		return "bar", nil
	}))
	require.NoError(t, s.SetFieldResolver("Query", "secret", func(schema.ResolveParams) (any, error) {
		return nil, errors.New("secret")
	}))
	require.NoError(t, s.SetFieldResolver("Query", "safe", func(schema.ResolveParams) (any, error) {
		return nil, NewEnvelopError("shown to clients", map[string]any{"code": "SAFE"})
	}))
	require.NoError(t, s.SetFieldResolver("Query", "who", func(p schema.ResolveParams) (any, error) {
		return p.ContextValue["user"], nil
	}))
	require.NoError(t, s.SetFieldSubscriber("Subscription", "count", func(schema.ResolveParams) (stream.Iterator[any], error) {
		return stream.FromSlice([]any{
			map[string]any{"count": 1},
			map[string]any{"count": 2},
			map[string]any{"count": 3},
		}), nil
	}))
	return s
}

func run(t *testing.T, env *envelop.Envelop, query string) (executor.Response, error) {
	t.Helper()
	ctx := context.Background()
	e := env.GetEnveloped(nil)
	doc, err := e.Parse(query, language.ParseOptions{})
	require.NoError(t, err)
	require.Empty(t, e.Validate(e.Schema, doc, nil, validation.Options{}))
	cv, err := e.ContextFactory(ctx, nil)
	if err != nil {
		return executor.Response{}, err
	}
	args := executor.ExecutionArgs{Schema: e.Schema, Document: doc, ContextValue: cv}
	if doc.Operations[0].Operation == language.Subscription {
		return e.Subscribe(ctx, args)
	}
	return e.Execute(ctx, args)
}

func TestUseSchema(t *testing.T) {
	s := newTestSchema(t)
	env := envelop.New(envelop.Options{Plugins: []envelop.Plugin{UseSchema(s)}})
	require.Same(t, s, env.Schema())
	require.Same(t, s, env.GetEnveloped(nil).Schema)
}

func TestUseLazyLoadedSchema(t *testing.T) {
	a, b := newTestSchema(t), newTestSchema(t)
	env := envelop.New(envelop.Options{Plugins: []envelop.Plugin{
		UseLazyLoadedSchema(func(c envelop.Context) *schema.Schema {
			if c["tenant"] == "b" {
				return b
			}
			return a
		}),
	}})
	require.Same(t, b, env.GetEnveloped(envelop.Context{"tenant": "b"}).Schema)
	require.Same(t, a, env.GetEnveloped(nil).Schema)
}

func TestUseAsyncSchema(t *testing.T) {
	ch := make(chan *schema.Schema, 1)
	env := envelop.New(envelop.Options{Plugins: []envelop.Plugin{UseAsyncSchema(context.Background(), ch)}})
	require.Nil(t, env.Schema())

	s := newTestSchema(t)
	ch <- s
	require.Eventually(t, func() bool { return env.Schema() == s }, time.Second, time.Millisecond)
	require.True(t, s.Instrumented())
}

func TestUseEnvelopComposesPlugins(t *testing.T) {
	inner := envelop.New(envelop.Options{Plugins: []envelop.Plugin{
		UseExtendContext(func(context.Context, envelop.Context) (envelop.Context, error) {
			return envelop.Context{"user": "ada"}, nil
		}),
	}})
	outer := envelop.New(envelop.Options{Plugins: []envelop.Plugin{UseSchema(newTestSchema(t)), UseEnvelop(inner)}})
	require.Len(t, outer.Plugins(), 3)

	resp, err := run(t, outer, "{ who }")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"who": "ada"}, resp.Result.Data)
}

func TestUseExtendContextError(t *testing.T) {
	boom := errors.New("no session")
	env := envelop.New(envelop.Options{Plugins: []envelop.Plugin{
		UseSchema(newTestSchema(t)),
		UseExtendContext(func(context.Context, envelop.Context) (envelop.Context, error) { return nil, boom }),
	}})
	_, err := run(t, env, "{ foo }")
	require.ErrorIs(t, err, boom)
}

func TestUseLogger(t *testing.T) {
	var logged []string
	logFn := func(event string, data LogData) {
		switch event {
		case "execute-end":
			require.NotNil(t, data.Result.Result)
		case "subscribe-end":
			require.True(t, data.Result.IsStream())
		default:
			require.Nil(t, data.Result)
		}
		logged = append(logged, event)
	}
	env := envelop.New(envelop.Options{Plugins: []envelop.Plugin{
		UseSchema(newTestSchema(t)),
		UseLogger(LoggerOptions{LogFn: logFn, SkipIntrospection: true}),
	}})

	_, err := run(t, env, "{ foo }")
	require.NoError(t, err)
	require.Equal(t, []string{"execute-start", "execute-end"}, logged)

	logged = nil
	_, err = run(t, env, "{ __schema { queryType { name } } }")
	require.NoError(t, err)
	require.Empty(t, logged)

	_, err = run(t, env, "subscription { count }")
	require.NoError(t, err)
	require.Equal(t, []string{"subscribe-start", "subscribe-end"}, logged)
}

func TestUseLoggerDefaultsToZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	env := envelop.New(envelop.Options{Plugins: []envelop.Plugin{
		UseSchema(newTestSchema(t)),
		UseLogger(LoggerOptions{Logger: &logger}),
	}})

	_, err := run(t, env, "query Named { secret }")
	require.NoError(t, err)
	require.Contains(t, buf.String(), `"message":"execute-start"`)
	require.Contains(t, buf.String(), `"errors":1`)
}

func TestUseTiming(t *testing.T) {
	var measured []string
	note := func(what string) { measured = append(measured, what) }
	env := envelop.New(envelop.Options{Plugins: []envelop.Plugin{
		UseSchema(newTestSchema(t)),
		UseTiming(TimingOptions{
			OnContextBuildingMeasurement: func(d time.Duration) { note("context") },
			OnParsingMeasurement:         func(source string, d time.Duration) { note("parse " + source) },
			OnValidationMeasurement:      func(doc *language.QueryDocument, d time.Duration) { note("validate") },
			OnExecutionMeasurement:       func(args executor.ExecutionArgs, d time.Duration) { note("execute") },
			OnSubscriptionMeasurement:    func(args executor.ExecutionArgs, d time.Duration) { note("subscribe") },
			OnResolverMeasurement: func(info schema.ResolveInfo, d time.Duration) {
				require.GreaterOrEqual(t, d, time.Duration(0))
				note("resolver " + info.ParentType.Name + "." + info.FieldName)
			},
			SkipIntrospection: true,
		}),
	}})

	_, err := run(t, env, "{ foo }")
	require.NoError(t, err)
	require.Equal(t, []string{"parse { foo }", "validate", "context", "resolver Query.foo", "execute"}, measured)

	measured = nil
	_, err = run(t, env, "{ __schema { queryType { name } } }")
	require.NoError(t, err)
	require.Empty(t, measured)
}

func TestUseTimingDefaultsLog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	env := envelop.New(envelop.Options{Plugins: []envelop.Plugin{
		UseSchema(newTestSchema(t)),
		UseTiming(TimingOptions{Logger: &logger}),
	}})
	_, err := run(t, env, "query Q { foo }")
	require.NoError(t, err)
	for _, msg := range []string{"parsing done", "validation done", "context building done", "execution done"} {
		require.Contains(t, buf.String(), msg)
	}
	require.Contains(t, buf.String(), `"operation":"Q"`)
}

func TestUseErrorHandler(t *testing.T) {
	var seen []string
	env := envelop.New(envelop.Options{Plugins: []envelop.Plugin{
		UseSchema(newTestSchema(t)),
		UseErrorHandler(func(errs []executor.GraphQLError, _ executor.ExecutionArgs) {
			for _, e := range errs {
				seen = append(seen, e.Message)
			}
		}),
	}})

	_, err := run(t, env, "{ foo }")
	require.NoError(t, err)
	require.Empty(t, seen)

	_, err = run(t, env, "{ secret }")
	require.NoError(t, err)
	require.Equal(t, []string{"secret"}, seen)
}

func TestUsePayloadFormatter(t *testing.T) {
	env := envelop.New(envelop.Options{Plugins: []envelop.Plugin{
		UseSchema(newTestSchema(t)),
		UsePayloadFormatter(func(r *executor.ExecutionResult, _ executor.ExecutionArgs) (*executor.ExecutionResult, bool) {
			if r.Data.(map[string]any)["foo"] != "bar" {
				return nil, false
			}
			return &executor.ExecutionResult{Data: map[string]any{"foo": "formatted"}}, true
		}),
	}})

	resp, err := run(t, env, "{ foo }")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"foo": "formatted"}, resp.Result.Data)

	resp, err = run(t, env, "{ who }")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"who": nil}, resp.Result.Data)
}
