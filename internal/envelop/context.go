package envelop

import (
	"context"
	"maps"
)

// Context is the per-request GraphQL context value. Hooks add keys to it;
// keys are never removed and later extensions win.
type Context map[string]any

// IsIntrospectionKey is set on the context by plugins that detected an
// introspection operation while parsing, so later phases can skip it.
const IsIntrospectionKey = "envelop.isIntrospection"

func merge(base, ext Context) Context {
	out := make(Context, len(base)+len(ext))
	maps.Copy(out, base)
	maps.Copy(out, ext)
	return out
}

type resolverHooksKey struct{}

func withResolverHooks(ctx context.Context, hooks []OnResolverCalledFunc) context.Context {
	return context.WithValue(ctx, resolverHooksKey{}, hooks)
}

func resolverHooksFrom(ctx context.Context) []OnResolverCalledFunc {
	if ctx == nil {
		return nil
	}
	hooks, _ := ctx.Value(resolverHooksKey{}).([]OnResolverCalledFunc)
	return hooks
}
