package plugins

import (
	"context"

	envelop "github.com/hanpama/envelop/internal/envelop"
	executor "github.com/hanpama/envelop/internal/executor"
)

// ErrorHandler receives the errors of every result that has any.
type ErrorHandler func(errs []executor.GraphQLError, args executor.ExecutionArgs)

// UseErrorHandler calls fn for every execution result, or stream item, that
// carries errors.
func UseErrorHandler(fn ErrorHandler) envelop.Plugin {
	handle := func(_ context.Context, r *envelop.ResultEvent) error {
		if r.Result != nil && len(r.Result.Errors) > 0 {
			fn(r.Result.Errors, r.Args)
		}
		return nil
	}
	return &envelop.Hooks{OnExecute: func(context.Context, *envelop.ExecuteEvent) (*envelop.OnExecuteHooks, error) {
		return &envelop.OnExecuteHooks{OnExecuteDone: func(ctx context.Context, e *envelop.ExecutionDoneEvent) (*envelop.StreamHooks, error) {
			return envelop.HandleStreamOrSingleExecutionResult(ctx, e, handle)
		}}, nil
	}}
}

// ContextExtender computes additions to the request context.
type ContextExtender func(ctx context.Context, current envelop.Context) (envelop.Context, error)

// UseExtendContext merges the result of fn into the context while it is
// being built. An error from fn fails context building.
func UseExtendContext(fn ContextExtender) envelop.Plugin {
	return &envelop.Hooks{OnContextBuilding: func(ctx context.Context, e *envelop.ContextBuildingEvent) (envelop.AfterContextBuildingFunc, error) {
		ext, err := fn(ctx, e.Context)
		if err != nil {
			return nil, err
		}
		e.ExtendContext(ext)
		return nil, nil
	}}
}

// PayloadFormatter returns a replacement result. Returning false keeps the
// original.
type PayloadFormatter func(result *executor.ExecutionResult, args executor.ExecutionArgs) (*executor.ExecutionResult, bool)

// UsePayloadFormatter rewrites every execution result, or stream item, with
// fn.
func UsePayloadFormatter(fn PayloadFormatter) envelop.Plugin {
	handle := func(_ context.Context, r *envelop.ResultEvent) error {
		if modified, ok := fn(r.Result, r.Args); ok {
			r.SetResult(modified)
		}
		return nil
	}
	return &envelop.Hooks{OnExecute: func(context.Context, *envelop.ExecuteEvent) (*envelop.OnExecuteHooks, error) {
		return &envelop.OnExecuteHooks{OnExecuteDone: func(ctx context.Context, e *envelop.ExecutionDoneEvent) (*envelop.StreamHooks, error) {
			return envelop.HandleStreamOrSingleExecutionResult(ctx, e, handle)
		}}, nil
	}}
}
