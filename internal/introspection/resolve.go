package introspection

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	schema "github.com/hanpama/envelop/internal/schema"
)

func resolveSchema(p schema.ResolveParams) (any, error) {
	if p.Info.Schema == nil {
		return nil, fmt.Errorf("introspection: no schema in resolve info")
	}
	return p.Info.Schema, nil
}

func resolveTypeByName(p schema.ResolveParams) (any, error) {
	name, _ := p.Args["name"].(string)
	if t := lookup(p.Info.Schema, name); t != nil {
		return t, nil
	}
	return nil, nil
}

// resolveMeta resolves every field of the introspection object types by
// switching on the source value produced by the parent field.
func resolveMeta(p schema.ResolveParams) (any, error) {
	sch := p.Info.Schema
	field := p.Info.FieldName
	switch src := p.Source.(type) {
	case *schema.Schema:
		return schemaField(src, field), nil
	case *schema.Type:
		return typeField(sch, src, field, p.Args), nil
	case *schema.TypeRef:
		return typeRefField(sch, src, field, p.Args), nil
	case *schema.Field:
		return fieldField(src, field, p.Args), nil
	case *schema.InputValue:
		return inputValueField(src, field), nil
	case *schema.EnumValue:
		return enumValueField(src, field), nil
	case *schema.Directive:
		return directiveField(src, field, p.Args), nil
	}
	return nil, fmt.Errorf("introspection: unexpected source %T for field %s", p.Source, field)
}

func lookup(sch *schema.Schema, name string) *schema.Type {
	if schema.IsIntrospectionType(name) {
		return Type(name)
	}
	if sch == nil {
		return nil
	}
	return sch.Types[name]
}

func schemaField(sch *schema.Schema, field string) any {
	switch field {
	case "description":
		return optional(sch.Description)
	case "types":
		return schemaTypes(sch)
	case "queryType":
		return nilIfAbsent(sch.GetQueryType())
	case "mutationType":
		return nilIfAbsent(sch.GetMutationType())
	case "subscriptionType":
		return nilIfAbsent(sch.GetSubscriptionType())
	case "directives":
		dirs := make([]*schema.Directive, 0, len(sch.Directives))
		for _, d := range sch.Directives {
			dirs = append(dirs, d)
		}
		sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
		return dirs
	}
	return nil
}

// schemaTypes lists the schema's own types plus the introspection types,
// sorted by name.
func schemaTypes(sch *schema.Schema) []*schema.Type {
	out := make([]*schema.Type, 0, len(sch.Types)+len(metaTypes))
	for name, t := range sch.Types {
		if !schema.IsIntrospectionType(name) {
			out = append(out, t)
		}
	}
	out = append(out, Types()...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func typeField(sch *schema.Schema, t *schema.Type, field string, args map[string]any) any {
	switch field {
	case "kind":
		return string(t.Kind)
	case "name":
		return t.Name
	case "description":
		return optional(t.Description)
	case "specifiedByURL":
		if t.SpecifiedByURL == nil {
			return nil
		}
		return *t.SpecifiedByURL
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		out := []*schema.Field{}
		for _, f := range t.Fields {
			if f.IsDeprecated && !includeDeprecated(args) {
				continue
			}
			out = append(out, f)
		}
		return out
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		return namedTypes(sch, t.Interfaces)
	case "possibleTypes":
		if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
			return nil
		}
		return namedTypes(sch, t.PossibleTypes)
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil
		}
		out := []*schema.EnumValue{}
		for _, ev := range t.EnumValues {
			if ev.IsDeprecated && !includeDeprecated(args) {
				continue
			}
			out = append(out, ev)
		}
		return out
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return inputValues(t.InputFields, args)
	case "ofType":
		return nil
	case "isOneOf":
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return t.OneOf
	}
	return nil
}

// typeRefField resolves __Type fields for wrapped references. Named
// references are resolved through their definition.
func typeRefField(sch *schema.Schema, tr *schema.TypeRef, field string, args map[string]any) any {
	if tr.Kind == schema.TypeRefKindNamed {
		if def := lookup(sch, tr.Named); def != nil {
			return typeField(sch, def, field, args)
		}
		return nil
	}
	switch field {
	case "kind":
		return string(tr.Kind)
	case "ofType":
		return tr.OfType
	}
	return nil
}

func fieldField(f *schema.Field, field string, args map[string]any) any {
	switch field {
	case "name":
		return f.Name
	case "description":
		return optional(f.Description)
	case "args":
		return inputValues(f.Arguments, args)
	case "type":
		return f.Type
	case "isDeprecated":
		return f.IsDeprecated
	case "deprecationReason":
		return deprecationReason(f.IsDeprecated, f.DeprecationReason)
	}
	return nil
}

func inputValueField(a *schema.InputValue, field string) any {
	switch field {
	case "name":
		return a.Name
	case "description":
		return optional(a.Description)
	case "type":
		return a.Type
	case "defaultValue":
		if a.DefaultValue == nil {
			return nil
		}
		return literal(a.DefaultValue)
	case "isDeprecated":
		return a.IsDeprecated
	case "deprecationReason":
		return deprecationReason(a.IsDeprecated, a.DeprecationReason)
	}
	return nil
}

func enumValueField(ev *schema.EnumValue, field string) any {
	switch field {
	case "name":
		return ev.Name
	case "description":
		return optional(ev.Description)
	case "isDeprecated":
		return ev.IsDeprecated
	case "deprecationReason":
		return deprecationReason(ev.IsDeprecated, ev.DeprecationReason)
	}
	return nil
}

func directiveField(d *schema.Directive, field string, args map[string]any) any {
	switch field {
	case "name":
		return d.Name
	case "description":
		return optional(d.Description)
	case "isRepeatable":
		return d.IsRepeatable
	case "locations":
		return d.Locations
	case "args":
		return inputValues(d.Arguments, args)
	}
	return nil
}

func namedTypes(sch *schema.Schema, names []string) []*schema.Type {
	out := make([]*schema.Type, 0, len(names))
	for _, name := range names {
		if def := lookup(sch, name); def != nil {
			out = append(out, def)
		}
	}
	return out
}

func inputValues(values []*schema.InputValue, args map[string]any) []*schema.InputValue {
	out := []*schema.InputValue{}
	for _, v := range values {
		if v.IsDeprecated && !includeDeprecated(args) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func includeDeprecated(args map[string]any) bool {
	b, _ := args["includeDeprecated"].(bool)
	return b
}

func deprecationReason(deprecated bool, reason string) any {
	if !deprecated {
		return nil
	}
	return reason
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nilIfAbsent keeps a missing root type from becoming a typed nil interface.
func nilIfAbsent(t *schema.Type) any {
	if t == nil {
		return nil
	}
	return t
}

// literal renders a default value as a GraphQL literal.
func literal(v any) string {
	switch v := v.(type) {
	case string:
		return strconv.Quote(v)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = literal(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + literal(v[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(v)
}
