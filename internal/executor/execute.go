package executor

import (
	"context"
	"errors"
	"fmt"

	language "github.com/hanpama/envelop/internal/language"
	schema "github.com/hanpama/envelop/internal/schema"
	"github.com/hanpama/envelop/internal/stream"
)

// ExecutionArgs are the inputs of one execution or subscription.
type ExecutionArgs struct {
	Schema         *schema.Schema
	Document       *language.QueryDocument
	RootValue      any
	ContextValue   map[string]any
	VariableValues map[string]any
	OperationName  string
	// FieldResolver resolves fields that have no resolver of their own.
	FieldResolver schema.FieldResolveFn
	// TypeResolver resolves abstract types that have no ResolveType.
	TypeResolver schema.TypeResolveFn
	// SubscribeFieldResolver creates the source stream for subscription root
	// fields that have no Subscribe function.
	SubscribeFieldResolver schema.SubscribeFn
}

// ResultStream is a stream of execution results, one per subscription event.
type ResultStream = stream.Iterator[*ExecutionResult]

// Response is either a single result or a result stream.
type Response struct {
	Result *ExecutionResult
	Stream ResultStream
}

// Single wraps a single execution result.
func Single(r *ExecutionResult) Response { return Response{Result: r} }

// Streamed wraps a result stream.
func Streamed(s ResultStream) Response { return Response{Stream: s} }

// IsStream reports whether the response carries a stream.
func (r Response) IsStream() bool { return r.Stream != nil }

// ExecuteFunc is the signature shared by Execute and everything that wraps it.
type ExecuteFunc func(ctx context.Context, args ExecutionArgs) (Response, error)

// SubscribeFunc is the signature shared by Subscribe and its wrappers.
type SubscribeFunc = ExecuteFunc

var (
	errMissingSchema   = errors.New("executor: schema is required")
	errMissingDocument = errors.New("executor: document is required")
)

func checkArgs(args ExecutionArgs) error {
	if args.Schema == nil {
		return errMissingSchema
	}
	if args.Document == nil {
		return errMissingDocument
	}
	return nil
}

// Execute runs the selected operation against args.Schema with a
// SchemaRuntime. Request errors (unknown operation, bad variables) are
// reported in the result; only malformed arguments return an error.
func Execute(ctx context.Context, args ExecutionArgs) (Response, error) {
	if err := checkArgs(args); err != nil {
		return Response{}, err
	}
	ctx = WithContextValue(ctx, args.ContextValue)
	exec := NewExecutor(newRuntimeFor(args), args.Schema)
	return Single(exec.ExecuteRequest(ctx, args.Document, args.OperationName, args.VariableValues, args.RootValue)), nil
}

// Subscribe creates the source event stream of a subscription operation and
// maps every event through execution with the event as root value. Failures
// before the stream exists are reported as a single result.
func Subscribe(ctx context.Context, args ExecutionArgs) (Response, error) {
	if err := checkArgs(args); err != nil {
		return Response{}, err
	}
	ctx = WithContextValue(ctx, args.ContextValue)
	rt := newRuntimeFor(args)
	exec := NewExecutor(rt, args.Schema)

	operation, rootType, state, errResult := exec.prepare(ctx, args.Document, args.OperationName, args.VariableValues)
	if errResult != nil {
		return Single(errResult), nil
	}
	if operation.Operation != language.Subscription {
		return Single(&ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("subscribe requires a subscription operation, got %s", operation.Operation)}}}), nil
	}

	grouped := collectFields(state, rootType, operation.SelectionSet).orderedFields()
	if len(grouped) == 0 {
		return Single(&ExecutionResult{Errors: []GraphQLError{{Message: "subscription selects no fields"}}}), nil
	}
	root := grouped[0]
	path := Path{root.ResponseName}
	fieldDef := getFieldDefinition(args.Schema, rootType, root.Fields[0].Name)
	if fieldDef == nil {
		return Single(&ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("The subscription field %q is not defined.", root.Fields[0].Name), Path: path}}}), nil
	}
	argumentValues := coerceArgumentValues(fieldDef, root.Fields[0].Arguments, state.variableValues, state, path)
	if len(state.errors) > 0 {
		return Single(&ExecutionResult{Errors: state.errors}), nil
	}

	subscribe := fieldDef.Subscribe
	if subscribe == nil {
		subscribe = args.SubscribeFieldResolver
	}
	if subscribe == nil {
		subscribe = defaultSubscribeResolver
	}
	source, err := subscribe(schema.ResolveParams{
		Context:      ctx,
		Source:       args.RootValue,
		Args:         argumentValues,
		ContextValue: args.ContextValue,
		Info: schema.ResolveInfo{
			FieldName:  fieldDef.Name,
			ParentType: rootType,
			ReturnType: fieldDef.Type,
			Path:       path,
			Schema:     args.Schema,
		},
	})
	if err != nil {
		return Single(&ExecutionResult{Errors: []GraphQLError{LocatedError(err, path)}}), nil
	}
	if source == nil {
		return Single(&ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("Subscription field %q did not return a stream.", fieldDef.Name), Path: path}}}), nil
	}

	scope := ctx
	results := stream.Map(source, func(ctx context.Context, event any) (*ExecutionResult, error) {
		ctx = eventContext{Context: ctx, scope: scope}
		return exec.ExecuteRequest(ctx, args.Document, args.OperationName, args.VariableValues, event), nil
	})
	return Streamed(results), nil
}

func newRuntimeFor(args ExecutionArgs) *SchemaRuntime {
	return NewSchemaRuntime(args.Schema,
		WithFieldResolver(args.FieldResolver),
		WithTypeResolver(args.TypeResolver),
	)
}

// defaultSubscribeResolver reads a stream from the root value: either a
// stream.Iterator[any] or a receive channel.
func defaultSubscribeResolver(p schema.ResolveParams) (stream.Iterator[any], error) {
	v, err := schema.DefaultFieldResolver(p)
	if err != nil {
		return nil, err
	}
	switch src := v.(type) {
	case stream.Iterator[any]:
		return src, nil
	case <-chan any:
		return stream.FromChannel[any](src, nil), nil
	case chan any:
		return stream.FromChannel[any](src, nil), nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("subscription field %q must resolve to a stream, got %T", p.Info.FieldName, v)
}
