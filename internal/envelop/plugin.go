package envelop

import (
	"context"
)

// Plugin is any value implementing one or more of the hook interfaces below,
// or a *Hooks. Plugins run in list order; earlier plugins wrap later ones.
type Plugin any

// PluginInitHook runs once per plugin while the envelop is being built.
type PluginInitHook interface {
	OnPluginInit(e *PluginInitEvent)
}

// SchemaChangeHook observes schema replacements made by other plugins.
type SchemaChangeHook interface {
	OnSchemaChange(e *SchemaChangeEvent)
}

// EnvelopedHook runs each time GetEnveloped is called, before any phase.
type EnvelopedHook interface {
	OnEnveloped(e *EnvelopedEvent)
}

// ContextBuildingHook participates in building the per-request context.
type ContextBuildingHook interface {
	OnContextBuilding(ctx context.Context, e *ContextBuildingEvent) (AfterContextBuildingFunc, error)
}

// ParseHook wraps document parsing.
type ParseHook interface {
	OnParse(e *ParseEvent) AfterParseFunc
}

// ValidateHook wraps document validation.
type ValidateHook interface {
	OnValidate(e *ValidateEvent) AfterValidateFunc
}

// ExecuteHook wraps execution of queries and mutations.
type ExecuteHook interface {
	OnExecute(ctx context.Context, e *ExecuteEvent) (*OnExecuteHooks, error)
}

// SubscribeHook wraps creation of subscription streams.
type SubscribeHook interface {
	OnSubscribe(ctx context.Context, e *SubscribeEvent) (*OnSubscribeHooks, error)
}

// Hooks builds a plugin out of plain functions. Nil fields are not
// registered, so a Hooks value only takes part in the phases it sets.
type Hooks struct {
	OnPluginInit      func(e *PluginInitEvent)
	OnSchemaChange    func(e *SchemaChangeEvent)
	OnEnveloped       func(e *EnvelopedEvent)
	OnContextBuilding func(ctx context.Context, e *ContextBuildingEvent) (AfterContextBuildingFunc, error)
	OnParse           func(e *ParseEvent) AfterParseFunc
	OnValidate        func(e *ValidateEvent) AfterValidateFunc
	OnExecute         func(ctx context.Context, e *ExecuteEvent) (*OnExecuteHooks, error)
	OnSubscribe       func(ctx context.Context, e *SubscribeEvent) (*OnSubscribeHooks, error)
}

// OnExecuteHooks is what an execute hook asks to be called back with.
type OnExecuteHooks struct {
	OnExecuteDone    OnExecutionDoneFunc
	OnResolverCalled OnResolverCalledFunc
}

// OnSubscribeHooks is what a subscribe hook asks to be called back with.
type OnSubscribeHooks struct {
	OnSubscribeResult OnExecutionDoneFunc
	OnSubscribeError  OnSubscribeErrorFunc
	OnResolverCalled  OnResolverCalledFunc
}
