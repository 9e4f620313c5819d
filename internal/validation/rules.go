package validation

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/gqlerror"

	language "github.com/hanpama/envelop/internal/language"
	schema "github.com/hanpama/envelop/internal/schema"
)

// MaxDepth rejects operations whose selection sets nest deeper than limit.
// Fragment spreads count as the depth of their selections.
func MaxDepth(limit int) Rule {
	return Rule{
		Name: "MaxDepth",
		Check: func(_ *schema.Schema, doc *language.QueryDocument) gqlerror.List {
			var errs gqlerror.List
			for _, op := range doc.Operations {
				depth := selectionDepth(doc, op.SelectionSet, map[string]bool{})
				if depth > limit {
					name := op.Name
					if name == "" {
						name = "anonymous"
					}
					errs = append(errs, gqlerror.ErrorPosf(op.Position,
						"operation %s has depth %d, exceeding the maximum of %d", name, depth, limit))
				}
			}
			return errs
		},
	}
}

func selectionDepth(doc *language.QueryDocument, set language.SelectionSet, visiting map[string]bool) int {
	maxDepth := 0
	for _, sel := range set {
		var d int
		switch sel := sel.(type) {
		case *language.Field:
			if len(sel.SelectionSet) == 0 {
				d = 1
			} else {
				d = 1 + selectionDepth(doc, sel.SelectionSet, visiting)
			}
		case *language.InlineFragment:
			d = selectionDepth(doc, sel.SelectionSet, visiting)
		case *language.FragmentSpread:
			if visiting[sel.Name] {
				continue
			}
			frag := doc.Fragments.ForName(sel.Name)
			if frag == nil {
				continue
			}
			visiting[sel.Name] = true
			d = selectionDepth(doc, frag.SelectionSet, visiting)
			delete(visiting, sel.Name)
		}
		maxDepth = max(maxDepth, d)
	}
	return maxDepth
}

// NoIntrospection rejects documents selecting __schema or __type anywhere.
func NoIntrospection() Rule {
	return Rule{
		Name: "NoIntrospection",
		Check: func(_ *schema.Schema, doc *language.QueryDocument) gqlerror.List {
			var errs gqlerror.List
			var walk func(set language.SelectionSet)
			walk = func(set language.SelectionSet) {
				for _, sel := range set {
					switch sel := sel.(type) {
					case *language.Field:
						if sel.Name == "__schema" || sel.Name == "__type" {
							errs = append(errs, gqlerror.ErrorPosf(sel.Position, "%s", introspectionDisabled(sel.Name)))
						}
						walk(sel.SelectionSet)
					case *language.InlineFragment:
						walk(sel.SelectionSet)
					}
				}
			}
			for _, op := range doc.Operations {
				walk(op.SelectionSet)
			}
			for _, frag := range doc.Fragments {
				walk(frag.SelectionSet)
			}
			return errs
		},
	}
}

func introspectionDisabled(field string) string {
	return fmt.Sprintf("GraphQL introspection has been disabled, but the requested query contained the field %q.", field)
}
