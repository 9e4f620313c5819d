package executor

import (
	"fmt"
	"strconv"
	"strings"

	language "github.com/hanpama/envelop/internal/language"
	schema "github.com/hanpama/envelop/internal/schema"
)

// coerceVariableValues coerces the request variables against the variable
// definitions of operation. Variables may be keyed with or without "$".
func coerceVariableValues(
	schema *schema.Schema,
	operation *language.OperationDefinition,
	variableValues map[string]any,
) (map[string]any, error) {
	coerced := make(map[string]any, len(operation.VariableDefinitions))
	for _, def := range operation.VariableDefinitions {
		name, t := def.Variable, def.Type

		val, provided := lookupVariable(variableValues, name)
		switch {
		case provided:
		case def.DefaultValue != nil:
			v, err := def.DefaultValue.Value(nil)
			if err != nil {
				return nil, fmt.Errorf("variable $%s has an invalid default: %v", name, err)
			}
			val = v
		case t.NonNull:
			return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, t.String())
		default:
			continue
		}

		if val == nil && t.NonNull {
			return nil, fmt.Errorf("variable $%s of type %s cannot be null", name, t.String())
		}
		cv, err := coerceValue(val, typeRefFromAST(t))
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s cannot be coerced: %v", name, t.String(), err)
		}
		coerced[name] = cv
	}
	return coerced, nil
}

func lookupVariable(values map[string]any, name string) (any, bool) {
	if v, ok := values[name]; ok {
		return v, true
	}
	v, ok := values["$"+strings.TrimPrefix(name, "$")]
	return v, ok
}

// coerceArgumentValues coerces the arguments of a field selection. Problems
// are recorded on state at path and the offending argument is left out.
func coerceArgumentValues(
	fieldDef *schema.Field,
	arguments language.ArgumentList,
	variableValues map[string]any,
	state *executionState,
	path Path,
) map[string]any {
	coerced := make(map[string]any, len(fieldDef.Arguments))
	for _, def := range fieldDef.Arguments {
		arg := arguments.ForName(def.Name)
		if arg == nil {
			if def.DefaultValue != nil {
				coerced[def.Name] = def.DefaultValue
			} else if schema.IsNonNull(def.Type) {
				state.addError(fmt.Sprintf("argument '%s' of required type was not provided", def.Name), path)
			}
			continue
		}
		val, err := arg.Value.Value(variableValues)
		if err == nil {
			val, err = coerceValue(val, def.Type)
		}
		if err != nil {
			state.addError(fmt.Sprintf("argument '%s' cannot be coerced: %v", def.Name, err), path)
			continue
		}
		coerced[def.Name] = val
	}
	return coerced
}

// coerceValue coerces value to the type t. Custom scalars, enums and input
// objects pass through unchanged.
func coerceValue(value any, t *schema.TypeRef) (any, error) {
	if schema.IsNonNull(t) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type")
		}
		return coerceValue(value, schema.Unwrap(t))
	}
	if value == nil {
		return nil, nil
	}
	if schema.IsList(t) {
		item := schema.Unwrap(t)
		items, ok := value.([]any)
		if !ok {
			// a single value is a list of one
			items = []any{value}
		}
		out := make([]any, len(items))
		for i, v := range items {
			cv, err := coerceValue(v, item)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	}
	if coerce, ok := builtinScalars[schema.GetNamedType(t)]; ok {
		return coerce(value)
	}
	return value, nil
}

// builtinScalars coerces values of the built-in scalar types, both for input
// and for serialized results.
var builtinScalars = map[string]func(any) (any, error){
	"Int":     coerceToInt,
	"Float":   coerceToFloat,
	"String":  coerceToString,
	"Boolean": coerceToBoolean,
	"ID":      coerceToID,
}

// asInt64 reports integer kinds and, when truncate is set, floats.
func asInt64(value any, truncate bool) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), truncate
	case float32:
		return int64(v), truncate
	}
	return 0, false
}

func coerceToInt(value any) (any, error) {
	if n, ok := asInt64(value, true); ok {
		return int(n), nil
	}
	if s, ok := value.(string); ok {
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to int", value, value)
}

func coerceToFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	default:
		if n, ok := asInt64(v, false); ok {
			return float64(n), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to float", value, value)
}

func coerceToString(value any) (any, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	return fmt.Sprint(value), nil
}

func coerceToBoolean(value any) (any, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to boolean", value, value)
}

func coerceToID(value any) (any, error) {
	if n, ok := asInt64(value, false); ok {
		return strconv.FormatInt(n, 10), nil
	}
	return coerceToString(value)
}
