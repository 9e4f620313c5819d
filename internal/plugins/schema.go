// Package plugins holds the stock envelop plugins: schema providers,
// logging and timing, error handling and masking, payload formatting,
// composition, metrics and event publishing.
package plugins

import (
	"context"

	envelop "github.com/hanpama/envelop/internal/envelop"
	schema "github.com/hanpama/envelop/internal/schema"
)

// UseSchema sets s as the schema while the envelop initializes.
func UseSchema(s *schema.Schema) envelop.Plugin {
	return &envelop.Hooks{OnPluginInit: func(e *envelop.PluginInitEvent) { e.SetSchema(s) }}
}

// UseLazyLoadedSchema picks the schema per request from the initial context.
func UseLazyLoadedSchema(loader func(envelop.Context) *schema.Schema) envelop.Plugin {
	return &envelop.Hooks{OnEnveloped: func(e *envelop.EnvelopedEvent) { e.SetSchema(loader(e.Context)) }}
}

// UseAsyncSchema sets the schema once it arrives on ch. Requests served
// before that see no schema.
func UseAsyncSchema(ctx context.Context, ch <-chan *schema.Schema) envelop.Plugin {
	return &envelop.Hooks{OnPluginInit: func(e *envelop.PluginInitEvent) {
		go func() {
			select {
			case s, ok := <-ch:
				if ok && s != nil {
					e.SetSchema(s)
				}
			case <-ctx.Done():
			}
		}()
	}}
}

// UseEnvelop adds every plugin of other to the envelop being built.
func UseEnvelop(other *envelop.Envelop) envelop.Plugin {
	return &envelop.Hooks{OnPluginInit: func(e *envelop.PluginInitEvent) {
		for _, p := range other.Plugins() {
			e.AddPlugin(p)
		}
	}}
}
