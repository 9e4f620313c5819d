package plugins

import (
	"context"
	"sync"
	"time"

	envelop "github.com/hanpama/envelop/internal/envelop"
	eventbus "github.com/hanpama/envelop/internal/eventbus"
	events "github.com/hanpama/envelop/internal/events"
	executor "github.com/hanpama/envelop/internal/executor"
)

const sourceKey = "envelop.source"

// UseEvents publishes GraphQLStart and GraphQLFinish for every operation and
// ResolverFinish for every resolver call on the global event bus.
func UseEvents() envelop.Plugin {
	return &envelop.Hooks{
		OnParse: func(e *envelop.ParseEvent) envelop.AfterParseFunc {
			e.ExtendContext(envelop.Context{sourceKey: e.Params.Source})
			return nil
		},
		OnExecute: func(ctx context.Context, e *envelop.ExecuteEvent) (*envelop.OnExecuteHooks, error) {
			op := startOperation(ctx, e.Args)
			return &envelop.OnExecuteHooks{OnExecuteDone: op.done, OnResolverCalled: publishResolver}, nil
		},
		OnSubscribe: func(ctx context.Context, e *envelop.SubscribeEvent) (*envelop.OnSubscribeHooks, error) {
			op := startOperation(ctx, e.Args)
			return &envelop.OnSubscribeHooks{
				OnSubscribeResult: op.done,
				OnSubscribeError:  op.fail,
				OnResolverCalled:  publishResolver,
			}, nil
		},
	}
}

type operation struct {
	ctx   context.Context
	start time.Time
	info  events.GraphQLStart

	mu   sync.Mutex
	errs []error
}

func startOperation(ctx context.Context, args executor.ExecutionArgs) *operation {
	query, _ := args.ContextValue[sourceKey].(string)
	op := &operation{
		ctx:   ctx,
		start: time.Now(),
		info: events.GraphQLStart{
			Query:         query,
			OperationName: args.OperationName,
			OperationType: operationType(args),
		},
	}
	eventbus.Publish(ctx, op.info)
	return op
}

func (op *operation) record(r *executor.ExecutionResult) {
	if r == nil {
		return
	}
	op.mu.Lock()
	for _, e := range r.Errors {
		op.errs = append(op.errs, e)
	}
	op.mu.Unlock()
}

func (op *operation) fail(e *envelop.SubscribeErrorEvent) {
	op.mu.Lock()
	op.errs = append(op.errs, e.Error)
	op.mu.Unlock()
}

func (op *operation) finish() {
	op.mu.Lock()
	errs := op.errs
	op.mu.Unlock()
	eventbus.Publish(op.ctx, events.GraphQLFinish{
		Query:         op.info.Query,
		OperationName: op.info.OperationName,
		OperationType: op.info.OperationType,
		Errors:        errs,
		Duration:      time.Since(op.start),
	})
}

func (op *operation) done(_ context.Context, e *envelop.ExecutionDoneEvent) (*envelop.StreamHooks, error) {
	if !e.Result.IsStream() {
		op.record(e.Result.Result)
		op.finish()
		return nil, nil
	}
	return &envelop.StreamHooks{
		OnNext: func(_ context.Context, r *envelop.ResultEvent) error {
			op.record(r.Result)
			return nil
		},
		OnEnd: op.finish,
	}, nil
}

func publishResolver(_ context.Context, e *envelop.ResolverCalledEvent) envelop.AfterResolverFunc {
	p := e.Params
	start := time.Now()
	return func(done *envelop.AfterResolverEvent) {
		eventbus.Publish(p.Context, events.ResolverFinish{
			TypeName:  p.Info.ParentType.Name,
			FieldName: p.Info.FieldName,
			Path:      p.Info.Path,
			Err:       done.Err,
			Duration:  time.Since(start),
		})
	}
}
