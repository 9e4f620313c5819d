package language

import "strings"

// IsIntrospectionOperationString is a cheap textual check for introspection
// queries.
func IsIntrospectionOperationString(source string) bool {
	return strings.Contains(source, "__schema")
}

// IsIntrospectionOperation reports whether op selects __schema or __type at
// the top level.
func IsIntrospectionOperation(op *OperationDefinition) bool {
	if op == nil {
		return false
	}
	for _, sel := range op.SelectionSet {
		if f, ok := sel.(*Field); ok && (f.Name == "__schema" || f.Name == "__type") {
			return true
		}
	}
	return false
}

// IsIntrospectionDocument reports whether any operation in doc is an
// introspection operation.
func IsIntrospectionDocument(doc *QueryDocument) bool {
	if doc == nil {
		return false
	}
	for _, op := range doc.Operations {
		if IsIntrospectionOperation(op) {
			return true
		}
	}
	return false
}
