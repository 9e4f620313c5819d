package envelop

import (
	"context"

	executor "github.com/hanpama/envelop/internal/executor"
)

// SubscribeEvent is shared by every subscribe hook of one call.
type SubscribeEvent struct {
	Args        executor.ExecutionArgs
	SubscribeFn executor.SubscribeFunc

	context Context
}

func (e *SubscribeEvent) ExtendContext(ext Context) { e.context = merge(e.context, ext) }

func (e *SubscribeEvent) SetSubscribeFn(fn executor.SubscribeFunc) { e.SubscribeFn = fn }

// OnSubscribeErrorFunc may replace an error raised while producing the
// subscription stream. The stream ends after the error is delivered.
type OnSubscribeErrorFunc func(e *SubscribeErrorEvent)

type SubscribeErrorEvent struct {
	Error error
}

func (e *SubscribeErrorEvent) SetError(err error) { e.Error = err }

func (o *composed) subscribe() executor.SubscribeFunc {
	if len(o.hooks.subscribe) == 0 {
		return executor.Subscribe
	}
	return o.runSubscribe
}

func (o *composed) runSubscribe(ctx context.Context, args executor.ExecutionArgs) (executor.Response, error) {
	ev := &SubscribeEvent{Args: args, SubscribeFn: executor.Subscribe, context: Context(args.ContextValue)}
	if ev.context == nil {
		ev.context = Context{}
	}

	var dones []OnExecutionDoneFunc
	var errHandlers []OnSubscribeErrorFunc
	var resolvers []OnResolverCalledFunc
	for _, hook := range o.hooks.subscribe {
		hooks, err := hook(ctx, ev)
		if err != nil {
			return executor.Response{}, err
		}
		if hooks == nil {
			continue
		}
		if hooks.OnSubscribeResult != nil {
			dones = append(dones, hooks.OnSubscribeResult)
		}
		if hooks.OnSubscribeError != nil {
			errHandlers = append(errHandlers, hooks.OnSubscribeError)
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
	resp, err := ev.SubscribeFn(ctx, call)
	if err != nil {
		return resp, err
	}
	return finishResponse(ctx, call, resp, dones, errHandlers)
}
