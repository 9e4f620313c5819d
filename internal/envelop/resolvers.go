package envelop

import (
	"context"

	schema "github.com/hanpama/envelop/internal/schema"
)

// OnResolverCalledFunc runs before a field resolver of a request whose
// execute or subscribe hooks asked for it. It may return a function to run
// once the resolver finished.
type OnResolverCalledFunc func(ctx context.Context, e *ResolverCalledEvent) AfterResolverFunc

type ResolverCalledEvent struct {
	Params     schema.ResolveParams
	ResolverFn schema.FieldResolveFn
}

// ReplaceResolverFn swaps the resolver for this call only.
func (e *ResolverCalledEvent) ReplaceResolverFn(fn schema.FieldResolveFn) { e.ResolverFn = fn }

type AfterResolverFunc func(e *AfterResolverEvent)

// AfterResolverEvent holds the outcome of a resolver call. A non-nil Err
// after every after hook ran is returned as the field error.
type AfterResolverEvent struct {
	Result any
	Err    error
}

func (e *AfterResolverEvent) SetResult(v any)    { e.Result = v }
func (e *AfterResolverEvent) SetError(err error) { e.Err = err }

// instrumentResolvers wraps every resolver of s once. Requests without
// resolver hooks call straight through.
func instrumentResolvers(s *schema.Schema) bool {
	return s.Instrument(func(_ *schema.Type, _ *schema.Field, next schema.FieldResolveFn) schema.FieldResolveFn {
		return func(p schema.ResolveParams) (any, error) {
			hooks := resolverHooksFrom(p.Context)
			if len(hooks) == 0 {
				return next(p)
			}

			ev := &ResolverCalledEvent{Params: p, ResolverFn: next}
			var afters []AfterResolverFunc
			for _, hook := range hooks {
				if after := hook(p.Context, ev); after != nil {
					afters = append(afters, after)
				}
			}

			v, err := ev.ResolverFn(p)
			done := &AfterResolverEvent{Result: v, Err: err}
			for _, after := range afters {
				after(done)
			}
			if done.Err != nil {
				return nil, done.Err
			}
			return done.Result, nil
		}
	})
}
