package schema

var builtinScalarNames = map[string]bool{
	"String": true, "Int": true, "Float": true, "Boolean": true, "ID": true,
}

var builtinDirectiveNames = map[string]bool{
	"include": true, "skip": true, "deprecated": true, "specifiedBy": true, "oneOf": true, "defer": true,
}

// isBuiltin reports whether a type is predefined by GraphQL and therefore
// omitted from rendered SDL.
func isBuiltin(t *Type) bool {
	return t.builtin || builtinScalarNames[t.Name] || IsIntrospectionType(t.Name)
}

func builtinScalars() []*Type {
	return []*Type{
		NewType("String", TypeKindScalar, "The `String` scalar type represents textual data, represented as UTF-8 character sequences."),
		NewType("Int", TypeKindScalar, "The `Int` scalar type represents non-fractional signed whole numeric values."),
		NewType("Float", TypeKindScalar, "The `Float` scalar type represents signed double-precision fractional values."),
		NewType("Boolean", TypeKindScalar, "The `Boolean` scalar type represents `true` or `false`."),
		NewType("ID", TypeKindScalar, "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching."),
	}
}

func builtinDirectives() []*Directive {
	ifArg := func(desc string) *InputValue {
		return NewInputValue("if", desc, NonNullType(NamedType("Boolean")))
	}
	include := NewDirective("include", "Directs the executor to include this field or fragment only when the `if` argument is true.").
		AddArgument(ifArg("Included when true."))
	include.Locations = []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"}

	skip := NewDirective("skip", "Directs the executor to skip this field or fragment when the `if` argument is true.").
		AddArgument(ifArg("Skipped when true."))
	skip.Locations = []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"}

	deprecated := NewDirective("deprecated", "Marks an element of a GraphQL schema as no longer supported.").
		AddArgument(NewInputValue("reason", "", NamedType("String")).SetDefault("No longer supported"))
	deprecated.Locations = []string{"FIELD_DEFINITION", "ARGUMENT_DEFINITION", "INPUT_FIELD_DEFINITION", "ENUM_VALUE"}

	return []*Directive{include, skip, deprecated}
}
