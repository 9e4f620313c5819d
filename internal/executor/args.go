package executor

import (
	"context"
	"fmt"
	"reflect"

	language "github.com/hanpama/envelop/internal/language"
	schema "github.com/hanpama/envelop/internal/schema"
)

// ExecuteArgsFrom normalizes the two call forms of execute: a single
// ExecutionArgs (or *ExecutionArgs) value, or the positional list
// (schema, document, rootValue, contextValue, variableValues, operationName,
// fieldResolver, typeResolver). Trailing positional arguments may be omitted.
func ExecuteArgsFrom(args ...any) (ExecutionArgs, error) {
	return normalizeArgs(args, false)
}

// SubscribeArgsFrom is ExecuteArgsFrom for subscribe, whose eighth positional
// argument is the subscribe field resolver.
func SubscribeArgsFrom(args ...any) (ExecutionArgs, error) {
	return normalizeArgs(args, true)
}

// MakeExecute adapts fn to accept either call form.
func MakeExecute(fn ExecuteFunc) func(ctx context.Context, args ...any) (Response, error) {
	return func(ctx context.Context, args ...any) (Response, error) {
		normalized, err := ExecuteArgsFrom(args...)
		if err != nil {
			return Response{}, err
		}
		return fn(ctx, normalized)
	}
}

// MakeSubscribe adapts fn to accept either call form.
func MakeSubscribe(fn SubscribeFunc) func(ctx context.Context, args ...any) (Response, error) {
	return func(ctx context.Context, args ...any) (Response, error) {
		normalized, err := SubscribeArgsFrom(args...)
		if err != nil {
			return Response{}, err
		}
		return fn(ctx, normalized)
	}
}

func normalizeArgs(args []any, subscribe bool) (ExecutionArgs, error) {
	if len(args) == 1 {
		switch a := args[0].(type) {
		case ExecutionArgs:
			return a, nil
		case *ExecutionArgs:
			if a == nil {
				return ExecutionArgs{}, fmt.Errorf("executor: nil execution args")
			}
			return *a, nil
		}
	}
	if len(args) > 8 {
		return ExecutionArgs{}, fmt.Errorf("executor: too many positional arguments (%d)", len(args))
	}

	var out ExecutionArgs
	at := func(i int) any {
		if i < len(args) {
			return args[i]
		}
		return nil
	}
	var ok bool
	if v := at(0); v != nil {
		if out.Schema, ok = v.(*schema.Schema); !ok {
			return out, positionalError(0, "schema", v)
		}
	}
	if v := at(1); v != nil {
		if out.Document, ok = v.(*language.QueryDocument); !ok {
			return out, positionalError(1, "document", v)
		}
	}
	out.RootValue = at(2)
	if v := at(3); v != nil {
		if out.ContextValue, ok = asMap(v); !ok {
			return out, positionalError(3, "contextValue", v)
		}
	}
	if v := at(4); v != nil {
		if out.VariableValues, ok = asMap(v); !ok {
			return out, positionalError(4, "variableValues", v)
		}
	}
	if v := at(5); v != nil {
		if out.OperationName, ok = v.(string); !ok {
			return out, positionalError(5, "operationName", v)
		}
	}
	if v := at(6); v != nil {
		if out.FieldResolver, ok = asFieldResolver(v); !ok {
			return out, positionalError(6, "fieldResolver", v)
		}
	}
	if v := at(7); v != nil {
		if subscribe {
			if out.SubscribeFieldResolver, ok = asSubscribeFn(v); !ok {
				return out, positionalError(7, "subscribeFieldResolver", v)
			}
		} else if out.TypeResolver, ok = asTypeResolver(v); !ok {
			return out, positionalError(7, "typeResolver", v)
		}
	}
	return out, nil
}

func positionalError(i int, name string, v any) error {
	return fmt.Errorf("executor: positional argument %d (%s) has unexpected type %T", i, name, v)
}

var mapType = reflect.TypeOf(map[string]any(nil))

// asMap accepts map[string]any and named types built on it.
func asMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || !rv.Type().ConvertibleTo(mapType) {
		return nil, false
	}
	return rv.Convert(mapType).Interface().(map[string]any), true
}

func asFieldResolver(v any) (schema.FieldResolveFn, bool) {
	switch fn := v.(type) {
	case schema.FieldResolveFn:
		return fn, true
	case func(schema.ResolveParams) (any, error):
		return fn, true
	}
	return nil, false
}

func asTypeResolver(v any) (schema.TypeResolveFn, bool) {
	switch fn := v.(type) {
	case schema.TypeResolveFn:
		return fn, true
	case func(context.Context, any) (string, error):
		return fn, true
	}
	return nil, false
}

func asSubscribeFn(v any) (schema.SubscribeFn, bool) {
	fn, ok := v.(schema.SubscribeFn)
	return fn, ok
}
