package executor

import "context"

type contextValueKey struct{}

// WithContextValue attaches the per-request GraphQL context value to ctx so
// resolvers receive it in schema.ResolveParams.
func WithContextValue(ctx context.Context, value map[string]any) context.Context {
	return context.WithValue(ctx, contextValueKey{}, value)
}

// ContextValueFrom returns the GraphQL context value carried by ctx.
func ContextValueFrom(ctx context.Context) map[string]any {
	v, _ := ctx.Value(contextValueKey{}).(map[string]any)
	return v
}

// eventContext runs one subscription event: cancellation comes from the
// consumer's Next call while values (request scope, hooks) come from the
// context the subscription was created with.
type eventContext struct {
	context.Context
	scope context.Context
}

func (c eventContext) Value(key any) any {
	if v := c.Context.Value(key); v != nil {
		return v
	}
	return c.scope.Value(key)
}
