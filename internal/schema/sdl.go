package schema

import (
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// BuildFromSDL parses SDL and returns the corresponding Schema.
func BuildFromSDL(sdl string) (*Schema, error) {
	return BuildFromSources(&ast.Source{Name: "schema.graphql", Input: sdl})
}

// BuildFromSources loads and validates one or more SDL sources (extensions
// are merged) and converts the result.
func BuildFromSources(sources ...*ast.Source) (*Schema, error) {
	doc, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		return nil, err
	}
	return FromAST(doc), nil
}

// FromAST converts a validated gqlparser schema. The AST is kept for query
// validation.
func FromAST(doc *ast.Schema) *Schema {
	s := &Schema{
		Types:      make(map[string]*Type, len(doc.Types)),
		Directives: make(map[string]*Directive, len(doc.Directives)),
		doc:        doc,
	}
	if doc.Query != nil {
		s.QueryType = doc.Query.Name
	}
	if doc.Mutation != nil {
		s.MutationType = doc.Mutation.Name
	}
	if doc.Subscription != nil {
		s.SubscriptionType = doc.Subscription.Name
	}
	for name, def := range doc.Types {
		s.Types[name] = typeFromAST(doc, def)
	}
	for name, d := range doc.Directives {
		s.Directives[name] = directiveFromAST(d)
	}
	return s
}

// AST returns the gqlparser form of the schema used by the validator. For
// schemas assembled in code it is derived from the rendered SDL and cached
// until the type set changes.
func (s *Schema) AST() (*ast.Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc != nil {
		return s.doc, nil
	}
	doc, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: Render(s)})
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return doc, nil
}

func typeFromAST(doc *ast.Schema, def *ast.Definition) *Type {
	t := NewType(def.Name, TypeKind(def.Kind), def.Description)
	t.builtin = def.BuiltIn
	switch def.Kind {
	case ast.Object, ast.Interface:
		t.Interfaces = append(t.Interfaces, def.Interfaces...)
		for _, fd := range def.Fields {
			if strings.HasPrefix(fd.Name, "__") {
				continue
			}
			t.AddField(fieldFromAST(fd))
		}
		if def.Kind == ast.Interface {
			for _, pt := range doc.GetPossibleTypes(def) {
				t.AddPossibleType(pt.Name)
			}
		}
	case ast.Union:
		t.PossibleTypes = append(t.PossibleTypes, def.Types...)
	case ast.Enum:
		for _, ev := range def.EnumValues {
			v := NewEnumValue(ev.Name, ev.Description)
			if reason, ok := deprecation(ev.Directives); ok {
				v.Deprecate(reason)
			}
			t.AddEnumValue(v)
		}
	case ast.InputObject:
		t.OneOf = def.Directives.ForName("oneOf") != nil
		for _, fd := range def.Fields {
			in := NewInputValue(fd.Name, fd.Description, typeRefFromAST(fd.Type)).SetDefault(constValue(fd.DefaultValue))
			if reason, ok := deprecation(fd.Directives); ok {
				in.Deprecate(reason)
			}
			t.AddInputField(in)
		}
	case ast.Scalar:
		if d := def.Directives.ForName("specifiedBy"); d != nil {
			if arg := d.Arguments.ForName("url"); arg != nil && arg.Value != nil {
				url := arg.Value.Raw
				t.SpecifiedByURL = &url
			}
		}
	}
	return t
}

func fieldFromAST(fd *ast.FieldDefinition) *Field {
	f := NewField(fd.Name, fd.Description, typeRefFromAST(fd.Type))
	if reason, ok := deprecation(fd.Directives); ok {
		f.Deprecate(reason)
	}
	for _, arg := range fd.Arguments {
		f.AddArgument(argumentFromAST(arg))
	}
	return f
}

func argumentFromAST(arg *ast.ArgumentDefinition) *InputValue {
	in := NewInputValue(arg.Name, arg.Description, typeRefFromAST(arg.Type)).SetDefault(constValue(arg.DefaultValue))
	if reason, ok := deprecation(arg.Directives); ok {
		in.Deprecate(reason)
	}
	return in
}

func directiveFromAST(d *ast.DirectiveDefinition) *Directive {
	out := NewDirective(d.Name, d.Description).SetRepeatable(d.IsRepeatable)
	out.builtin = d.Position != nil && d.Position.Src != nil && d.Position.Src.BuiltIn
	for _, loc := range d.Locations {
		out.Locations = append(out.Locations, string(loc))
	}
	for _, arg := range d.Arguments {
		out.AddArgument(argumentFromAST(arg))
	}
	return out
}

func typeRefFromAST(t *ast.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(typeRefFromAST(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		return NonNullType(ref)
	}
	return ref
}

func deprecation(directives ast.DirectiveList) (string, bool) {
	d := directives.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return "", true
}

func constValue(v *ast.Value) any {
	if v == nil {
		return nil
	}
	out, err := v.Value(nil)
	if err != nil {
		return nil
	}
	return out
}
