package envelop

import "context"

// ContextFactoryFunc builds the final request context from a seed.
type ContextFactoryFunc func(ctx context.Context, seed Context) (Context, error)

// ContextBuildingEvent carries the context under construction. Extensions
// replace Context with a new map, so a map observed earlier never changes.
type ContextBuildingEvent struct {
	Context Context
}

func (e *ContextBuildingEvent) ExtendContext(ext Context) { e.Context = merge(e.Context, ext) }

// AfterContextBuildingFunc runs after every context hook has run.
type AfterContextBuildingFunc func(e *ContextBuildingEvent)

// ContextErrorHandler may replace an error raised while building the context.
// Clearing the error is not possible: a nil replacement keeps the original.
type ContextErrorHandler func(e *ContextErrorEvent)

type ContextErrorEvent struct {
	Error error
}

func (e *ContextErrorEvent) SetError(err error) { e.Error = err }

func (o *composed) contextFactory(initial Context) ContextFactoryFunc {
	if len(o.hooks.context) == 0 {
		return func(_ context.Context, seed Context) (Context, error) {
			if seed == nil {
				return initial, nil
			}
			return merge(initial, seed), nil
		}
	}
	return func(ctx context.Context, seed Context) (Context, error) {
		ev := &ContextBuildingEvent{Context: initial}
		if seed != nil {
			ev.Context = merge(initial, seed)
		}
		var afters []AfterContextBuildingFunc
		for _, hook := range o.hooks.context {
			after, err := hook(ctx, ev)
			if err != nil {
				return nil, o.handleContextError(err)
			}
			if after != nil {
				afters = append(afters, after)
			}
		}
		for _, after := range afters {
			after(ev)
		}
		return ev.Context, nil
	}
}

func (o *composed) handleContextError(err error) error {
	ev := &ContextErrorEvent{Error: err}
	for _, handler := range o.contextErrorHandlers {
		handler(ev)
	}
	if ev.Error == nil {
		return err
	}
	return ev.Error
}
