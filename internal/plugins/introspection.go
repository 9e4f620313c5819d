package plugins

import (
	envelop "github.com/hanpama/envelop/internal/envelop"
	"github.com/hanpama/envelop/internal/validation"
)

// UseDisableIntrospection rejects documents that select __schema or __type.
func UseDisableIntrospection() envelop.Plugin {
	return &envelop.Hooks{OnValidate: func(e *envelop.ValidateEvent) envelop.AfterValidateFunc {
		e.AddValidationRule(validation.NoIntrospection())
		return nil
	}}
}
