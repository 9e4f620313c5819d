package plugins

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	envelop "github.com/hanpama/envelop/internal/envelop"
	executor "github.com/hanpama/envelop/internal/executor"
	language "github.com/hanpama/envelop/internal/language"
	schema "github.com/hanpama/envelop/internal/schema"
)

// TimingOptions configures UseTiming. A nil callback falls back to one that
// logs the measurement through Logger.
type TimingOptions struct {
	OnContextBuildingMeasurement func(d time.Duration)
	OnParsingMeasurement         func(source string, d time.Duration)
	OnValidationMeasurement      func(doc *language.QueryDocument, d time.Duration)
	OnExecutionMeasurement       func(args executor.ExecutionArgs, d time.Duration)
	OnSubscriptionMeasurement    func(args executor.ExecutionArgs, d time.Duration)
	OnResolverMeasurement        func(info schema.ResolveInfo, d time.Duration)

	// SkipIntrospection leaves introspection operations unmeasured.
	SkipIntrospection bool
	Logger            *zerolog.Logger
}

func (o *TimingOptions) withDefaults() {
	logger := loggerOrNop(o.Logger)
	if o.OnContextBuildingMeasurement == nil {
		o.OnContextBuildingMeasurement = func(d time.Duration) {
			logger.Info().Dur("took", d).Msg("context building done")
		}
	}
	if o.OnParsingMeasurement == nil {
		o.OnParsingMeasurement = func(source string, d time.Duration) {
			logger.Info().Str("source", source).Dur("took", d).Msg("parsing done")
		}
	}
	if o.OnValidationMeasurement == nil {
		o.OnValidationMeasurement = func(doc *language.QueryDocument, d time.Duration) {
			logger.Info().Str("operation", operationName(doc, "")).Dur("took", d).Msg("validation done")
		}
	}
	if o.OnExecutionMeasurement == nil {
		o.OnExecutionMeasurement = func(args executor.ExecutionArgs, d time.Duration) {
			logger.Info().Str("operation", args.OperationName).Dur("took", d).Msg("execution done")
		}
	}
	if o.OnSubscriptionMeasurement == nil {
		o.OnSubscriptionMeasurement = func(args executor.ExecutionArgs, d time.Duration) {
			logger.Info().Str("operation", args.OperationName).Dur("took", d).Msg("subscription done")
		}
	}
	if o.OnResolverMeasurement == nil {
		o.OnResolverMeasurement = func(info schema.ResolveInfo, d time.Duration) {
			logger.Debug().Str("field", info.ParentType.Name+"."+info.FieldName).Dur("took", d).Msg("resolver done")
		}
	}
}

func operationName(doc *language.QueryDocument, name string) string {
	if op := language.GetOperation(doc, name); op != nil && op.Name != "" {
		return op.Name
	}
	return "-"
}

// UseTiming measures every phase of a request and every resolver call.
func UseTiming(opts TimingOptions) envelop.Plugin {
	opts.withDefaults()

	measureResolver := func(_ context.Context, e *envelop.ResolverCalledEvent) envelop.AfterResolverFunc {
		info := e.Params.Info
		start := time.Now()
		return func(*envelop.AfterResolverEvent) { opts.OnResolverMeasurement(info, time.Since(start)) }
	}

	return &envelop.Hooks{
		OnContextBuilding: func(_ context.Context, e *envelop.ContextBuildingEvent) (envelop.AfterContextBuildingFunc, error) {
			if isIntrospection(e.Context) {
				return nil, nil
			}
			start := time.Now()
			return func(*envelop.ContextBuildingEvent) { opts.OnContextBuildingMeasurement(time.Since(start)) }, nil
		},
		OnParse: func(e *envelop.ParseEvent) envelop.AfterParseFunc {
			if opts.SkipIntrospection && language.IsIntrospectionOperationString(e.Params.Source) {
				e.ExtendContext(envelop.Context{envelop.IsIntrospectionKey: true})
				return nil
			}
			source := e.Params.Source
			start := time.Now()
			return func(*envelop.AfterParseEvent) { opts.OnParsingMeasurement(source, time.Since(start)) }
		},
		OnValidate: func(e *envelop.ValidateEvent) envelop.AfterValidateFunc {
			if isIntrospection(e.Context) {
				return nil
			}
			doc := e.Params.Document
			start := time.Now()
			return func(*envelop.AfterValidateEvent) { opts.OnValidationMeasurement(doc, time.Since(start)) }
		},
		OnExecute: func(_ context.Context, e *envelop.ExecuteEvent) (*envelop.OnExecuteHooks, error) {
			if isIntrospection(e.Args.ContextValue) {
				return nil, nil
			}
			args := e.Args
			start := time.Now()
			return &envelop.OnExecuteHooks{
				OnExecuteDone: func(context.Context, *envelop.ExecutionDoneEvent) (*envelop.StreamHooks, error) {
					opts.OnExecutionMeasurement(args, time.Since(start))
					return nil, nil
				},
				OnResolverCalled: measureResolver,
			}, nil
		},
		OnSubscribe: func(_ context.Context, e *envelop.SubscribeEvent) (*envelop.OnSubscribeHooks, error) {
			if isIntrospection(e.Args.ContextValue) {
				return nil, nil
			}
			args := e.Args
			start := time.Now()
			return &envelop.OnSubscribeHooks{
				OnSubscribeResult: func(context.Context, *envelop.ExecutionDoneEvent) (*envelop.StreamHooks, error) {
					opts.OnSubscriptionMeasurement(args, time.Since(start))
					return nil, nil
				},
				OnResolverCalled: measureResolver,
			}, nil
		},
	}
}
