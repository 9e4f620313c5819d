package envelop

import (
	"context"

	executor "github.com/hanpama/envelop/internal/executor"
)

// ExecuteEvent is shared by every execute hook of one call.
type ExecuteEvent struct {
	// Args are the arguments the pipeline was called with.
	Args      executor.ExecutionArgs
	ExecuteFn executor.ExecuteFunc

	context Context
	stopped bool
	result  executor.Response
}

// ExtendContext merges ext into the context value handed to the executor.
// The caller's map is left untouched.
func (e *ExecuteEvent) ExtendContext(ext Context) { e.context = merge(e.context, ext) }

func (e *ExecuteEvent) SetExecuteFn(fn executor.ExecuteFunc) { e.ExecuteFn = fn }

// SetResultAndStopExecution ends the pipeline with r once the current hook
// returns. Remaining hooks and the executor are skipped.
func (e *ExecuteEvent) SetResultAndStopExecution(r executor.Response) {
	e.stopped = true
	e.result = r
}

// OnExecutionDoneFunc observes the response of execute or subscribe. For a
// stream response it may return StreamHooks to observe every item.
type OnExecutionDoneFunc func(ctx context.Context, e *ExecutionDoneEvent) (*StreamHooks, error)

type ExecutionDoneEvent struct {
	Args   executor.ExecutionArgs
	Result executor.Response
}

func (e *ExecutionDoneEvent) SetResult(r executor.Response) { e.Result = r }

func (o *composed) execute() executor.ExecuteFunc {
	if len(o.hooks.execute) == 0 {
		return executor.Execute
	}
	return o.runExecute
}

func (o *composed) runExecute(ctx context.Context, args executor.ExecutionArgs) (executor.Response, error) {
	ev := &ExecuteEvent{Args: args, ExecuteFn: executor.Execute, context: Context(args.ContextValue)}
	if ev.context == nil {
		ev.context = Context{}
	}

	var dones []OnExecutionDoneFunc
	var resolvers []OnResolverCalledFunc
	for _, hook := range o.hooks.execute {
		hooks, err := hook(ctx, ev)
		if err != nil {
			return executor.Response{}, err
		}
		if ev.stopped {
			return ev.result, nil
		}
		if hooks == nil {
			continue
		}
		if hooks.OnExecuteDone != nil {
			dones = append(dones, hooks.OnExecuteDone)
		}
		if hooks.OnResolverCalled != nil {
			resolvers = append(resolvers, hooks.OnResolverCalled)
		}
	}

	if len(resolvers) > 0 {
		ctx = withResolverHooks(ctx, resolvers)
	}
	call := args
	call.ContextValue = ev.context
	resp, err := ev.ExecuteFn(ctx, call)
	if err != nil {
		return resp, err
	}
	return finishResponse(ctx, call, resp, dones, nil)
}
