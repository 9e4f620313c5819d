package schema

import "fmt"

// NewSchema returns an empty schema holding the built-in scalars and
// directives.
func NewSchema(description string) *Schema {
	s := &Schema{
		Description: description,
		Types:       make(map[string]*Type),
		Directives:  make(map[string]*Directive),
	}
	for _, t := range builtinScalars() {
		s.AddType(t)
	}
	for _, d := range builtinDirectives() {
		s.AddDirective(d)
	}
	return s
}

func (s *Schema) SetQueryType(name string) *Schema        { s.QueryType = name; return s }
func (s *Schema) SetMutationType(name string) *Schema     { s.MutationType = name; return s }
func (s *Schema) SetSubscriptionType(name string) *Schema { s.SubscriptionType = name; return s }

// AddType registers t, replacing any type with the same name.
func (s *Schema) AddType(t *Type) *Schema {
	s.Types[t.Name] = t
	s.mu.Lock()
	s.doc = nil
	s.mu.Unlock()
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	s.Directives[d.Name] = d
	return s
}

// SetFieldResolver binds fn to typeName.fieldName and marks the field async so
// the executor batches it per depth.
func (s *Schema) SetFieldResolver(typeName, fieldName string, fn FieldResolveFn) error {
	f := s.Field(typeName, fieldName)
	if f == nil {
		return fmt.Errorf("field %s.%s not found", typeName, fieldName)
	}
	f.Resolve = fn
	f.Async = true
	return nil
}

// SetFieldSubscriber binds the source stream factory of a subscription field.
func (s *Schema) SetFieldSubscriber(typeName, fieldName string, fn SubscribeFn) error {
	f := s.Field(typeName, fieldName)
	if f == nil {
		return fmt.Errorf("field %s.%s not found", typeName, fieldName)
	}
	f.Subscribe = fn
	return nil
}

func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

func (t *Type) AddField(f *Field) *Type           { t.Fields = append(t.Fields, f); return t }
func (t *Type) AddInterface(name string) *Type    { t.Interfaces = append(t.Interfaces, name); return t }
func (t *Type) AddPossibleType(name string) *Type { t.PossibleTypes = append(t.PossibleTypes, name); return t }
func (t *Type) AddEnumValue(v *EnumValue) *Type   { t.EnumValues = append(t.EnumValues, v); return t }
func (t *Type) AddInputField(v *InputValue) *Type { t.InputFields = append(t.InputFields, v); return t }
func (t *Type) SetOneOf(oneOf bool) *Type         { t.OneOf = oneOf; return t }

func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) SetAsync(async bool) *Field          { f.Async = async; return f }
func (f *Field) SetResolve(fn FieldResolveFn) *Field { f.Resolve = fn; return f }
func (f *Field) AddArgument(arg *InputValue) *Field  { f.Arguments = append(f.Arguments, arg); return f }
func (f *Field) SetSubscribe(fn SubscribeFn) *Field  { f.Subscribe = fn; return f }

func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

func (e *EnumValue) Deprecate(reason string) *EnumValue {
	e.IsDeprecated = true
	e.DeprecationReason = reason
	return e
}

func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

func (in *InputValue) SetDefault(v any) *InputValue { in.DefaultValue = v; return in }

func (in *InputValue) Deprecate(reason string) *InputValue {
	in.IsDeprecated = true
	in.DeprecationReason = reason
	return in
}

func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}

func (d *Directive) SetRepeatable(r bool) *Directive        { d.IsRepeatable = r; return d }
func (d *Directive) AddArgument(arg *InputValue) *Directive { d.Arguments = append(d.Arguments, arg); return d }
