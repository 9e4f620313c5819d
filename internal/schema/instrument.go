package schema

// FieldWrapper decorates the resolver of one field. next is the field's
// resolver, or DefaultFieldResolver when the field has none.
type FieldWrapper func(parent *Type, field *Field, next FieldResolveFn) FieldResolveFn

// Instrument replaces the resolver of every field of every non-introspection
// object type with wrap's result. A schema is instrumented at most once; later
// calls leave the schema untouched and return false.
func (s *Schema) Instrument(wrap FieldWrapper) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.instrumented {
		return false
	}
	for _, t := range s.Types {
		if t.Kind != TypeKindObject || IsIntrospectionType(t.Name) {
			continue
		}
		for _, f := range t.Fields {
			next := f.Resolve
			if next == nil {
				next = DefaultFieldResolver
			}
			f.Resolve = wrap(t, f, next)
		}
	}
	s.instrumented = true
	return true
}

// Instrumented reports whether Instrument has already run on s.
func (s *Schema) Instrumented() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instrumented
}
