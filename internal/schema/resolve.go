package schema

import (
	"context"
	"reflect"
	"strings"

	"github.com/hanpama/envelop/internal/stream"
)

// ResolveInfo describes the field being resolved.
type ResolveInfo struct {
	FieldName  string
	ParentType *Type
	ReturnType *TypeRef
	Path       []any
	Schema     *Schema
}

// ResolveParams is everything a resolver receives for one field.
type ResolveParams struct {
	Context      context.Context
	Source       any
	Args         map[string]any
	ContextValue map[string]any
	Info         ResolveInfo
}

// FieldResolveFn resolves the value of one field.
type FieldResolveFn func(p ResolveParams) (any, error)

// SubscribeFn returns the source event stream for a subscription field.
type SubscribeFn func(p ResolveParams) (stream.Iterator[any], error)

// TypeResolveFn returns the concrete object type name for an abstract value.
type TypeResolveFn func(ctx context.Context, value any) (string, error)

// DefaultFieldResolver reads the field from the source value. Maps are indexed
// by field name, structs are matched by json tag or case-insensitive field
// name. A value of type FieldResolveFn is invoked with p.
func DefaultFieldResolver(p ResolveParams) (any, error) {
	v := lookupProperty(p.Source, p.Info.FieldName)
	switch fn := v.(type) {
	case FieldResolveFn:
		return fn(p)
	case func(ResolveParams) (any, error):
		return fn(p)
	}
	return v, nil
}

func lookupProperty(source any, name string) any {
	if source == nil {
		return nil
	}
	if m, ok := source.(map[string]any); ok {
		return m[name]
	}
	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil
		}
		return mv.Interface()
	case reflect.Struct:
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			sf := rt.Field(i)
			if !sf.IsExported() {
				continue
			}
			tag, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
			if tag == name || (tag == "" && strings.EqualFold(sf.Name, name)) {
				return rv.Field(i).Interface()
			}
		}
	}
	return nil
}
