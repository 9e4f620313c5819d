package envelop

import (
	"context"

	executor "github.com/hanpama/envelop/internal/executor"
	"github.com/hanpama/envelop/internal/stream"
)

// StreamHooks observe a streamed response. OnNext runs for every item before
// it reaches the consumer; OnEnd runs once when the stream is exhausted or
// closed.
type StreamHooks struct {
	OnNext func(ctx context.Context, e *ResultEvent) error
	OnEnd  func()
}

// ResultEvent carries one execution result: the single result of a
// response, or one item of a stream.
type ResultEvent struct {
	Args   executor.ExecutionArgs
	Result *executor.ExecutionResult
}

func (e *ResultEvent) SetResult(r *executor.ExecutionResult) { e.Result = r }

// HandleStreamOrSingleExecutionResult applies fn to a single result right
// away, or returns StreamHooks that apply it to every item of a stream.
func HandleStreamOrSingleExecutionResult(
	ctx context.Context,
	e *ExecutionDoneEvent,
	fn func(ctx context.Context, e *ResultEvent) error,
) (*StreamHooks, error) {
	if e.Result.IsStream() {
		return &StreamHooks{OnNext: fn}, nil
	}
	ev := &ResultEvent{Args: e.Args, Result: e.Result.Result}
	if err := fn(ctx, ev); err != nil {
		return nil, err
	}
	if ev.Result != e.Result.Result {
		e.SetResult(executor.Single(ev.Result))
	}
	return nil, nil
}

// finishResponse runs the done hooks and, for stream responses, wraps the
// stream with their item and end handlers and the subscribe error handlers,
// in that order.
func finishResponse(
	ctx context.Context,
	args executor.ExecutionArgs,
	resp executor.Response,
	dones []OnExecutionDoneFunc,
	errHandlers []OnSubscribeErrorFunc,
) (executor.Response, error) {
	done := &ExecutionDoneEvent{Args: args, Result: resp}
	var onNext []func(context.Context, *ResultEvent) error
	var onEnd []func()
	for _, fn := range dones {
		hooks, err := fn(ctx, done)
		if err != nil {
			return done.Result, err
		}
		if hooks == nil {
			continue
		}
		if hooks.OnNext != nil {
			onNext = append(onNext, hooks.OnNext)
		}
		if hooks.OnEnd != nil {
			onEnd = append(onEnd, hooks.OnEnd)
		}
	}

	resp = done.Result
	if !resp.IsStream() {
		return resp, nil
	}
	results := resp.Stream
	if len(onNext) > 0 {
		results = stream.Map(results, func(ctx context.Context, r *executor.ExecutionResult) (*executor.ExecutionResult, error) {
			ev := &ResultEvent{Args: args, Result: r}
			for _, fn := range onNext {
				if err := fn(ctx, ev); err != nil {
					return nil, err
				}
			}
			return ev.Result, nil
		})
	}
	if len(onEnd) > 0 {
		results = stream.Finalize(results, func() {
			for _, fn := range onEnd {
				fn()
			}
		})
	}
	if len(errHandlers) > 0 {
		results = stream.CatchError(results, func(err error) error {
			ev := &SubscribeErrorEvent{Error: err}
			for _, fn := range errHandlers {
				fn(ev)
			}
			if ev.Error == nil {
				return err
			}
			return ev.Error
		})
	}
	return executor.Streamed(results), nil
}
