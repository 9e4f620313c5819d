package language

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// Error is a located GraphQL error produced while parsing or validating.
type Error = gqlerror.Error

// ErrorList is an ordered list of GraphQL errors.
type ErrorList = gqlerror.List

// ParseOptions controls how a query document is parsed.
type ParseOptions struct {
	// SourceName is reported in error locations. Defaults to "GraphQL request".
	SourceName string
}

// ParseQuery parses an executable document.
func ParseQuery(source string, opts ParseOptions) (*QueryDocument, error) {
	name := opts.SourceName
	if name == "" {
		name = "GraphQL request"
	}
	doc, err := parser.ParseQuery(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetOperation selects the operation to run: the named one, or the only one
// when name is empty. It returns nil when no operation matches.
func GetOperation(document *QueryDocument, operationName string) *OperationDefinition {
	if document == nil {
		return nil
	}
	if operationName == "" && len(document.Operations) == 1 {
		return document.Operations[0]
	}
	for _, op := range document.Operations {
		if op.Name == operationName {
			return op
		}
	}
	return nil
}
