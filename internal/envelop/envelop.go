// Package envelop composes an ordered list of plugins into the phase
// functions of a GraphQL request: parse, validate, context building, execute
// and subscribe.
//
// Plugins take part in a phase by implementing the matching hook interface
// (ParseHook, ExecuteHook, ...) or by setting the matching field of a Hooks
// value. Hooks of a phase run in plugin order, and so do the after hooks they
// return, once the underlying operation has completed. A phase no plugin
// hooks into is the underlying operation itself.
//
// The active schema is owned by the Envelop. Plugins set or replace it
// (PluginInitEvent.SetSchema, SchemaChangeEvent.ReplaceSchema) and every
// other plugin implementing SchemaChangeHook is told about the change. Each
// schema's resolvers are wrapped once so execute and subscribe hooks can
// observe individual resolver calls through OnResolverCalled.
package envelop

import (
	"context"

	"github.com/rs/zerolog"

	executor "github.com/hanpama/envelop/internal/executor"
	schema "github.com/hanpama/envelop/internal/schema"
	"github.com/hanpama/envelop/internal/validation"
)

type Options struct {
	Plugins []Plugin
	// EnableInternalTracing records phase timings in the request context and
	// in the extensions of single execution results.
	EnableInternalTracing bool
	// Logger receives diagnostics. Nil disables logging.
	Logger *zerolog.Logger
}

// Envelop is a composed plugin list. It is safe for concurrent use.
type Envelop struct {
	orch    orchestrator
	plugins []Plugin
}

// New initializes every plugin and compiles the phase pipelines.
func New(opts Options) *Envelop {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	c := newComposed(opts.Plugins, logger)
	var orch orchestrator = c
	if opts.EnableInternalTracing {
		orch = &traced{inner: c, logger: logger}
	}
	return &Envelop{orch: orch, plugins: c.plugins}
}

// Plugins returns the initialized plugin list, including plugins added during
// initialization.
func (e *Envelop) Plugins() []Plugin { return e.plugins }

// Schema returns the active schema.
func (e *Envelop) Schema() *schema.Schema { return e.orch.currentSchema() }

// Enveloped holds the phase functions bound to one request.
type Enveloped struct {
	Parse          ParseFunc
	Validate       validation.ValidateFunc
	ContextFactory ContextFactoryFunc
	Execute        executor.ExecuteFunc
	Subscribe      executor.SubscribeFunc
	// Schema is the active schema once OnEnveloped hooks have run.
	Schema *schema.Schema
}

// GetEnveloped runs the OnEnveloped hooks against initial and returns the
// phase functions for one request. A nil initial context is replaced by an
// empty one.
func (e *Envelop) GetEnveloped(initial Context) *Enveloped {
	if initial == nil {
		initial = Context{}
	}
	e.orch.init(initial)
	return &Enveloped{
		Parse:          e.orch.parse(initial),
		Validate:       e.orch.validate(initial),
		ContextFactory: e.orch.contextFactory(initial),
		Execute:        e.orch.execute(),
		Subscribe:      e.orch.subscribe(),
		Schema:         e.orch.currentSchema(),
	}
}

// ExecuteArgs calls Execute with either a single ExecutionArgs or the
// positional argument list accepted by executor.ExecuteArgsFrom.
func (e *Enveloped) ExecuteArgs(ctx context.Context, args ...any) (executor.Response, error) {
	return executor.MakeExecute(e.Execute)(ctx, args...)
}

// SubscribeArgs is ExecuteArgs for Subscribe.
func (e *Enveloped) SubscribeArgs(ctx context.Context, args ...any) (executor.Response, error) {
	return executor.MakeSubscribe(e.Subscribe)(ctx, args...)
}

// EnableIf returns plugin when cond holds and nil otherwise. Nil plugins are
// skipped by New.
func EnableIf(cond bool, plugin Plugin) Plugin {
	if !cond {
		return nil
	}
	return plugin
}

// EnableIfFunc is EnableIf for plugins that are expensive to build: factory
// is only called when cond holds.
func EnableIfFunc(cond bool, factory func() Plugin) Plugin {
	if !cond {
		return nil
	}
	return factory()
}
