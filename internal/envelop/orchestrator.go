package envelop

import (
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	executor "github.com/hanpama/envelop/internal/executor"
	schema "github.com/hanpama/envelop/internal/schema"
	"github.com/hanpama/envelop/internal/validation"
)

// orchestrator is the per-phase surface GetEnveloped binds. The tracing
// decorator implements it by wrapping another orchestrator.
type orchestrator interface {
	init(initial Context)
	parse(initial Context) ParseFunc
	validate(initial Context) validation.ValidateFunc
	contextFactory(initial Context) ContextFactoryFunc
	execute() executor.ExecuteFunc
	subscribe() executor.SubscribeFunc
	currentSchema() *schema.Schema
}

// composed is the orchestrator built from a plugin list.
type composed struct {
	logger  zerolog.Logger
	plugins []Plugin
	sets    []hookSet
	hooks   registry

	contextErrorHandlers []ContextErrorHandler

	mu       sync.RWMutex
	schema   *schema.Schema
	initDone bool
}

// PluginInitEvent is passed to OnPluginInit.
type PluginInitEvent struct {
	// Plugins is the plugin list at the time of the call.
	Plugins []Plugin

	o     *composed
	index int
}

// AddPlugin appends p to the plugin list. Added plugins are initialized
// after the ones already present.
func (e *PluginInitEvent) AddPlugin(p Plugin) { e.o.addPlugin(p) }

// SetSchema makes s the active schema.
func (e *PluginInitEvent) SetSchema(s *schema.Schema) { e.o.replaceSchema(s, e.index) }

func (e *PluginInitEvent) RegisterContextErrorHandler(h ContextErrorHandler) {
	e.o.contextErrorHandlers = append(e.o.contextErrorHandlers, h)
}

// SchemaChangeEvent reports a new active schema.
type SchemaChangeEvent struct {
	Schema *schema.Schema

	o     *composed
	index int
}

// ReplaceSchema makes s the active schema. The receiving plugin is not
// notified of its own replacement.
func (e *SchemaChangeEvent) ReplaceSchema(s *schema.Schema) { e.o.replaceSchema(s, e.index) }

// EnvelopedEvent is passed to OnEnveloped with the initial request context.
type EnvelopedEvent struct {
	Context Context

	o     *composed
	index int
}

func (e *EnvelopedEvent) ExtendContext(ext Context) {
	if e.Context == nil {
		return
	}
	maps.Copy(e.Context, ext)
}

func (e *EnvelopedEvent) SetSchema(s *schema.Schema) { e.o.replaceSchema(s, e.index) }

func newComposed(plugins []Plugin, logger zerolog.Logger) *composed {
	o := &composed{logger: logger}
	for _, p := range plugins {
		o.addPlugin(p)
	}

	// Plugins added during init are initialized by the same loop.
	for i := 0; i < len(o.plugins); i++ {
		hs := hooksOf(o.plugins[i])
		o.sets = append(o.sets, hs)
		if hs.pluginInit != nil {
			hs.pluginInit(&PluginInitEvent{Plugins: slices.Clone(o.plugins), o: o, index: i})
		}
	}
	o.hooks = newRegistry(o.sets)

	o.mu.Lock()
	o.initDone = true
	current := o.schema
	o.mu.Unlock()
	o.logger.Debug().Int("plugins", len(o.plugins)).Bool("schema", current != nil).Msg("envelop initialized")

	if current != nil {
		o.notifySchemaChange(current, -1)
	}
	return o
}

func (o *composed) addPlugin(p Plugin) {
	if p == nil {
		return
	}
	o.mu.RLock()
	done := o.initDone
	o.mu.RUnlock()
	if done {
		o.logger.Warn().Msgf("envelop: plugin %T added after initialization is ignored", p)
		return
	}
	o.plugins = append(o.plugins, p)
}

// replaceSchema instruments s, stores it and, once initialization is over,
// notifies every plugin except the one at origin.
func (o *composed) replaceSchema(s *schema.Schema, origin int) {
	if s != nil && instrumentResolvers(s) {
		o.logger.Debug().Msg("envelop: schema resolvers instrumented")
	}
	o.mu.Lock()
	o.schema = s
	done := o.initDone
	o.mu.Unlock()
	if done {
		o.notifySchemaChange(s, origin)
	}
}

func (o *composed) notifySchemaChange(s *schema.Schema, origin int) {
	for i, hs := range o.sets {
		if i == origin || hs.schemaChange == nil {
			continue
		}
		hs.schemaChange(&SchemaChangeEvent{Schema: s, o: o, index: i})
	}
}

func (o *composed) currentSchema() *schema.Schema {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.schema
}

func (o *composed) init(initial Context) {
	for _, hook := range o.hooks.enveloped {
		hook.fn(&EnvelopedEvent{Context: initial, o: o, index: hook.index})
	}
}
