// Package validation checks query documents against a schema. The specified
// GraphQL rules come from gqlparser; additional rules can be layered on top.
package validation

import (
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
	_ "github.com/vektah/gqlparser/v2/validator/rules"

	language "github.com/hanpama/envelop/internal/language"
	schema "github.com/hanpama/envelop/internal/schema"
)

// Rule is one validation check. Errors it reports are tagged with Name.
type Rule struct {
	Name  string
	Check func(s *schema.Schema, doc *language.QueryDocument) gqlerror.List
}

// SpecifiedRules is the base rule set: every rule of the GraphQL
// specification.
var SpecifiedRules = []Rule{{Name: "SpecifiedRules", Check: specifiedRules}}

// Options tunes a validation run.
type Options struct {
	// MaxErrors stops validation once this many errors were reported.
	// Zero means unlimited.
	MaxErrors int
}

// ValidateFunc is the signature of Validate and of anything replacing it.
type ValidateFunc func(s *schema.Schema, doc *language.QueryDocument, rules []Rule, opts Options) gqlerror.List

// Validate runs rules in order and returns every error found. A nil rules
// slice means SpecifiedRules. An empty result means the document is valid.
func Validate(s *schema.Schema, doc *language.QueryDocument, rules []Rule, opts Options) gqlerror.List {
	if rules == nil {
		rules = SpecifiedRules
	}
	var errs gqlerror.List
	for _, rule := range rules {
		for _, err := range rule.Check(s, doc) {
			if err.Rule == "" {
				err.Rule = rule.Name
			}
			errs = append(errs, err)
			if opts.MaxErrors > 0 && len(errs) >= opts.MaxErrors {
				return append(errs, gqlerror.Errorf("Too many validation errors, error limit reached. Validation aborted."))
			}
		}
	}
	return errs
}

func specifiedRules(s *schema.Schema, doc *language.QueryDocument) gqlerror.List {
	astSchema, err := s.AST()
	if err != nil {
		return gqlerror.List{gqlerror.Errorf("invalid schema: %s", err)}
	}
	return validator.Validate(astSchema, doc)
}
