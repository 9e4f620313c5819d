// Package introspection serves the __schema and __type meta fields and the
// __Schema, __Type, ... object types they return.
//
// The meta types are shared by every schema and are never added to
// schema.Schema.Types, so resolver instrumentation and SDL rendering never
// see them. The executor looks them up through Type and MetaField.
package introspection

import (
	"strings"
	"sync"

	schema "github.com/hanpama/envelop/internal/schema"
)

var (
	once      sync.Once
	metaTypes map[string]*schema.Type
	metaField map[string]*schema.Field
)

// Type returns the introspection type with the given name, or nil.
func Type(name string) *schema.Type {
	once.Do(build)
	return metaTypes[name]
}

// Types returns every introspection type.
func Types() []*schema.Type {
	once.Do(build)
	out := make([]*schema.Type, 0, len(metaTypes))
	for _, t := range metaTypes {
		out = append(out, t)
	}
	return out
}

// MetaField returns the definition of __schema or __type, which are implicitly
// available on the query root type. It returns nil for any other name.
func MetaField(name string) *schema.Field {
	once.Do(build)
	return metaField[name]
}

func build() {
	includeDeprecated := func() *schema.InputValue {
		return schema.NewInputValue("includeDeprecated", "", ref("Boolean")).SetDefault(false)
	}

	types := []*schema.Type{
		object("__Schema", "A GraphQL Schema defines the capabilities of a GraphQL server.",
			field("description", "String"),
			field("types", "[__Type!]!"),
			field("queryType", "__Type!"),
			field("mutationType", "__Type"),
			field("subscriptionType", "__Type"),
			field("directives", "[__Directive!]!"),
		),
		object("__Type", "The fundamental unit of any GraphQL Schema is the type.",
			field("kind", "__TypeKind!"),
			field("name", "String"),
			field("description", "String"),
			field("specifiedByURL", "String"),
			field("fields", "[__Field!]").AddArgument(includeDeprecated()),
			field("interfaces", "[__Type!]"),
			field("possibleTypes", "[__Type!]"),
			field("enumValues", "[__EnumValue!]").AddArgument(includeDeprecated()),
			field("inputFields", "[__InputValue!]").AddArgument(includeDeprecated()),
			field("ofType", "__Type"),
			field("isOneOf", "Boolean"),
		),
		object("__Field", "",
			field("name", "String!"),
			field("description", "String"),
			field("args", "[__InputValue!]!").AddArgument(includeDeprecated()),
			field("type", "__Type!"),
			field("isDeprecated", "Boolean!"),
			field("deprecationReason", "String"),
		),
		object("__InputValue", "",
			field("name", "String!"),
			field("description", "String"),
			field("type", "__Type!"),
			field("defaultValue", "String"),
			field("isDeprecated", "Boolean!"),
			field("deprecationReason", "String"),
		),
		object("__EnumValue", "",
			field("name", "String!"),
			field("description", "String"),
			field("isDeprecated", "Boolean!"),
			field("deprecationReason", "String"),
		),
		object("__Directive", "",
			field("name", "String!"),
			field("description", "String"),
			field("isRepeatable", "Boolean!"),
			field("locations", "[__DirectiveLocation!]!"),
			field("args", "[__InputValue!]!").AddArgument(includeDeprecated()),
		),
		enum("__TypeKind", "SCALAR", "OBJECT", "INTERFACE", "UNION", "ENUM", "INPUT_OBJECT", "LIST", "NON_NULL"),
		enum("__DirectiveLocation",
			"QUERY", "MUTATION", "SUBSCRIPTION", "FIELD", "FRAGMENT_DEFINITION", "FRAGMENT_SPREAD",
			"INLINE_FRAGMENT", "VARIABLE_DEFINITION", "SCHEMA", "SCALAR", "OBJECT", "FIELD_DEFINITION",
			"ARGUMENT_DEFINITION", "INTERFACE", "UNION", "ENUM", "ENUM_VALUE", "INPUT_OBJECT",
			"INPUT_FIELD_DEFINITION",
		),
	}
	metaTypes = make(map[string]*schema.Type, len(types))
	for _, t := range types {
		metaTypes[t.Name] = t
	}

	metaField = map[string]*schema.Field{
		"__schema": schema.NewField("__schema", "Access the current type schema of this server.", ref("__Schema!")).
			SetResolve(resolveSchema),
		"__type": schema.NewField("__type", "Request the type information of a single type.", ref("__Type")).
			AddArgument(schema.NewInputValue("name", "", ref("String!"))).
			SetResolve(resolveTypeByName),
	}
}

func object(name, description string, fields ...*schema.Field) *schema.Type {
	t := schema.NewType(name, schema.TypeKindObject, description)
	for _, f := range fields {
		t.AddField(f)
	}
	return t
}

func field(name, typ string) *schema.Field {
	return schema.NewField(name, "", ref(typ)).SetResolve(resolveMeta)
}

func enum(name string, values ...string) *schema.Type {
	t := schema.NewType(name, schema.TypeKindEnum, "")
	for _, v := range values {
		t.AddEnumValue(schema.NewEnumValue(v, ""))
	}
	return t
}

// ref parses an SDL type reference such as "[__Type!]!".
func ref(s string) *schema.TypeRef {
	if strings.HasSuffix(s, "!") {
		return schema.NonNullType(ref(strings.TrimSuffix(s, "!")))
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return schema.ListType(ref(s[1 : len(s)-1]))
	}
	return schema.NamedType(s)
}
