package executor

import (
	"context"
	"fmt"

	schema "github.com/hanpama/envelop/internal/schema"
	"golang.org/x/sync/errgroup"
)

// SchemaRuntime is the Runtime that dispatches to the resolver functions bound
// on the schema's fields.
type SchemaRuntime struct {
	schema        *schema.Schema
	fieldResolver schema.FieldResolveFn
	typeResolver  schema.TypeResolveFn
	concurrency   int
}

// RuntimeOption configures a SchemaRuntime.
type RuntimeOption func(*SchemaRuntime)

// WithFieldResolver sets the resolver used for fields without their own.
func WithFieldResolver(fn schema.FieldResolveFn) RuntimeOption {
	return func(r *SchemaRuntime) {
		if fn != nil {
			r.fieldResolver = fn
		}
	}
}

// WithTypeResolver sets the fallback for abstract types without ResolveType.
func WithTypeResolver(fn schema.TypeResolveFn) RuntimeOption {
	return func(r *SchemaRuntime) { r.typeResolver = fn }
}

// WithBatchConcurrency lets BatchResolveAsync run up to n resolvers at once.
// The default of 1 resolves a batch sequentially in task order.
func WithBatchConcurrency(n int) RuntimeOption {
	return func(r *SchemaRuntime) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func NewSchemaRuntime(s *schema.Schema, opts ...RuntimeOption) *SchemaRuntime {
	r := &SchemaRuntime{schema: s, fieldResolver: schema.DefaultFieldResolver, concurrency: 1}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SchemaRuntime) ResolveSync(ctx context.Context, task FieldTask) (any, error) {
	return r.resolve(ctx, task)
}

func (r *SchemaRuntime) BatchResolveAsync(ctx context.Context, tasks []FieldTask) []FieldResult {
	results := make([]FieldResult, len(tasks))
	if r.concurrency <= 1 {
		for i, task := range tasks {
			v, err := r.resolve(ctx, task)
			results[i] = FieldResult{Value: v, Error: err}
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, task := range tasks {
		g.Go(func() error {
			v, err := r.resolve(ctx, task)
			results[i] = FieldResult{Value: v, Error: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *SchemaRuntime) resolve(ctx context.Context, task FieldTask) (any, error) {
	parent := lookupType(r.schema, task.ObjectType)
	if parent == nil {
		return nil, fmt.Errorf("unknown type %q", task.ObjectType)
	}
	field := getFieldDefinition(r.schema, parent, task.Field)
	if field == nil {
		return nil, fmt.Errorf("unknown field %s.%s", task.ObjectType, task.Field)
	}
	fn := field.Resolve
	if fn == nil {
		fn = r.fieldResolver
	}
	return fn(schema.ResolveParams{
		Context:      ctx,
		Source:       task.Source,
		Args:         task.Args,
		ContextValue: ContextValueFrom(ctx),
		Info: schema.ResolveInfo{
			FieldName:  task.Field,
			ParentType: parent,
			ReturnType: field.Type,
			Path:       task.Path,
			Schema:     r.schema,
		},
	})
}

func (r *SchemaRuntime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if t := r.schema.Types[abstractType]; t != nil && t.ResolveType != nil {
		return t.ResolveType(ctx, value)
	}
	if r.typeResolver != nil {
		return r.typeResolver(ctx, value)
	}
	if m, ok := value.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot resolve concrete type of %s value %T", abstractType, value)
}

func (r *SchemaRuntime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	if t := lookupType(r.schema, typeName); t != nil && t.Kind == schema.TypeKindEnum {
		name := fmt.Sprint(value)
		for _, ev := range t.EnumValues {
			if ev.Name == name {
				return name, nil
			}
		}
		return nil, fmt.Errorf("enum %s cannot represent value %v", typeName, value)
	}
	if serialize, ok := builtinScalars[typeName]; ok {
		return serialize(value)
	}
	return value, nil
}
