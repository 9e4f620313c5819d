package envelop

import (
	"maps"
	"slices"

	"github.com/vektah/gqlparser/v2/gqlerror"

	language "github.com/hanpama/envelop/internal/language"
	schema "github.com/hanpama/envelop/internal/schema"
	"github.com/hanpama/envelop/internal/validation"
)

type ValidateParams struct {
	Schema   *schema.Schema
	Document *language.QueryDocument
	// Rules is nil when the caller relies on validation.SpecifiedRules.
	Rules   []validation.Rule
	Options validation.Options
}

// ValidateEvent is shared by every validate hook of one call.
type ValidateEvent struct {
	Context    Context
	Params     ValidateParams
	ValidateFn validation.ValidateFunc

	result    gqlerror.List
	hasResult bool
}

func (e *ValidateEvent) ExtendContext(ext Context) { maps.Copy(e.Context, ext) }

// AddValidationRule appends rule to the rules of this call. When the caller
// passed no rules the specified rules are copied in first, once; every call
// appends, so adding the same rule twice runs it twice.
func (e *ValidateEvent) AddValidationRule(rule validation.Rule) {
	if e.Params.Rules == nil {
		e.Params.Rules = slices.Clone(validation.SpecifiedRules)
	}
	e.Params.Rules = append(e.Params.Rules, rule)
}

func (e *ValidateEvent) SetValidationFn(fn validation.ValidateFunc) { e.ValidateFn = fn }

// SetResult skips validation. An empty list marks the document valid.
func (e *ValidateEvent) SetResult(errs gqlerror.List) {
	e.result = errs
	e.hasResult = true
}

// AfterValidateFunc observes the outcome of validation.
type AfterValidateFunc func(e *AfterValidateEvent)

type AfterValidateEvent struct {
	Context Context
	Valid   bool
	Result  gqlerror.List
}

func (e *AfterValidateEvent) ExtendContext(ext Context) { maps.Copy(e.Context, ext) }

// SetResult replaces the returned errors. Valid is not recomputed.
func (e *AfterValidateEvent) SetResult(errs gqlerror.List) { e.Result = errs }

func (o *composed) validate(initial Context) validation.ValidateFunc {
	if len(o.hooks.validate) == 0 {
		return validation.Validate
	}
	return func(s *schema.Schema, doc *language.QueryDocument, rules []validation.Rule, opts validation.Options) gqlerror.List {
		ev := &ValidateEvent{
			Context:    initial,
			Params:     ValidateParams{Schema: s, Document: doc, Rules: slices.Clone(rules), Options: opts},
			ValidateFn: validation.Validate,
		}
		var afters []AfterValidateFunc
		for _, hook := range o.hooks.validate {
			if after := hook(ev); after != nil {
				afters = append(afters, after)
			}
		}

		result := ev.result
		if !ev.hasResult {
			result = ev.ValidateFn(s, doc, ev.Params.Rules, opts)
		}
		done := &AfterValidateEvent{Context: initial, Valid: len(result) == 0, Result: result}
		for _, after := range afters {
			after(done)
		}
		return done.Result
	}
}
