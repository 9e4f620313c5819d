package envelop

import "context"

// hookSet is the normalized form of one plugin. A nil function means the
// plugin does not take part in that phase.
type hookSet struct {
	pluginInit      func(*PluginInitEvent)
	schemaChange    func(*SchemaChangeEvent)
	enveloped       func(*EnvelopedEvent)
	contextBuilding func(context.Context, *ContextBuildingEvent) (AfterContextBuildingFunc, error)
	parse           func(*ParseEvent) AfterParseFunc
	validate        func(*ValidateEvent) AfterValidateFunc
	execute         func(context.Context, *ExecuteEvent) (*OnExecuteHooks, error)
	subscribe       func(context.Context, *SubscribeEvent) (*OnSubscribeHooks, error)
}

func hooksOf(p Plugin) hookSet {
	switch h := p.(type) {
	case *Hooks:
		return hookSet{
			pluginInit:      h.OnPluginInit,
			schemaChange:    h.OnSchemaChange,
			enveloped:       h.OnEnveloped,
			contextBuilding: h.OnContextBuilding,
			parse:           h.OnParse,
			validate:        h.OnValidate,
			execute:         h.OnExecute,
			subscribe:       h.OnSubscribe,
		}
	case Hooks:
		return hooksOf(&h)
	}

	var hs hookSet
	if h, ok := p.(PluginInitHook); ok {
		hs.pluginInit = h.OnPluginInit
	}
	if h, ok := p.(SchemaChangeHook); ok {
		hs.schemaChange = h.OnSchemaChange
	}
	if h, ok := p.(EnvelopedHook); ok {
		hs.enveloped = h.OnEnveloped
	}
	if h, ok := p.(ContextBuildingHook); ok {
		hs.contextBuilding = h.OnContextBuilding
	}
	if h, ok := p.(ParseHook); ok {
		hs.parse = h.OnParse
	}
	if h, ok := p.(ValidateHook); ok {
		hs.validate = h.OnValidate
	}
	if h, ok := p.(ExecuteHook); ok {
		hs.execute = h.OnExecute
	}
	if h, ok := p.(SubscribeHook); ok {
		hs.subscribe = h.OnSubscribe
	}
	return hs
}

// registry holds the per-phase hook lists in plugin order.
type registry struct {
	enveloped []indexedHook[func(*EnvelopedEvent)]
	context   []func(context.Context, *ContextBuildingEvent) (AfterContextBuildingFunc, error)
	parse     []func(*ParseEvent) AfterParseFunc
	validate  []func(*ValidateEvent) AfterValidateFunc
	execute   []func(context.Context, *ExecuteEvent) (*OnExecuteHooks, error)
	subscribe []func(context.Context, *SubscribeEvent) (*OnSubscribeHooks, error)
}

type indexedHook[F any] struct {
	index int
	fn    F
}

func newRegistry(sets []hookSet) registry {
	var r registry
	for i, hs := range sets {
		if hs.enveloped != nil {
			r.enveloped = append(r.enveloped, indexedHook[func(*EnvelopedEvent)]{index: i, fn: hs.enveloped})
		}
		if hs.contextBuilding != nil {
			r.context = append(r.context, hs.contextBuilding)
		}
		if hs.parse != nil {
			r.parse = append(r.parse, hs.parse)
		}
		if hs.validate != nil {
			r.validate = append(r.validate, hs.validate)
		}
		if hs.execute != nil {
			r.execute = append(r.execute, hs.execute)
		}
		if hs.subscribe != nil {
			r.subscribe = append(r.subscribe, hs.subscribe)
		}
	}
	return r
}
