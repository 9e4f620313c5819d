package plugins

import (
	"context"
	"errors"

	"github.com/vektah/gqlparser/v2/gqlerror"

	envelop "github.com/hanpama/envelop/internal/envelop"
	executor "github.com/hanpama/envelop/internal/executor"
)

// DefaultErrorMessage replaces masked error messages.
const DefaultErrorMessage = "Unexpected error."

// EnvelopError is an error whose message is safe to show to clients. The
// masked errors plugin lets it through unchanged.
type EnvelopError struct {
	Message    string
	Extensions map[string]any
}

// NewEnvelopError returns an EnvelopError with optional extensions.
func NewEnvelopError(message string, extensions map[string]any) *EnvelopError {
	return &EnvelopError{Message: message, Extensions: extensions}
}

func (e *EnvelopError) Error() string                   { return e.Message }
func (e *EnvelopError) ErrorExtensions() map[string]any { return e.Extensions }

// FormatErrorFunc turns err into the error clients see.
type FormatErrorFunc func(err error, message string, isDev bool) error

// FormatError masks err unless it is an EnvelopError or a GraphQL error the
// engine raised itself. A masked GraphQL error keeps its path; with isDev
// set, the original message is attached as extensions.originalError.
func FormatError(err error, message string, isDev bool) error {
	var envErr *EnvelopError
	switch e := err.(type) {
	case executor.GraphQLError:
		if e.OriginalError == nil || errors.As(e.OriginalError, &envErr) {
			return e
		}
		return executor.GraphQLError{
			Message:       message,
			Path:          e.Path,
			Extensions:    devExtensions(e.OriginalError, isDev),
			OriginalError: e.OriginalError,
		}
	case *gqlerror.Error:
		if e.Err == nil || errors.As(e.Err, &envErr) {
			return e
		}
		return &gqlerror.Error{
			Message:    message,
			Path:       e.Path,
			Locations:  e.Locations,
			Extensions: devExtensions(e.Err, isDev),
			Err:        e.Err,
		}
	case *EnvelopError:
		return e
	}
	return executor.GraphQLError{Message: message, OriginalError: err}
}

func devExtensions(original error, isDev bool) map[string]any {
	if !isDev {
		return nil
	}
	return map[string]any{"originalError": map[string]any{"message": original.Error()}}
}

type MaskedErrorsOptions struct {
	// FormatError defaults to FormatError.
	FormatError FormatErrorFunc
	// ErrorMessage defaults to DefaultErrorMessage.
	ErrorMessage string
	IsDev        bool
}

// UseMaskedErrors hides the messages of unexpected errors from clients:
// errors in execution results and stream items, subscription stream errors
// and context building errors.
func UseMaskedErrors(opts MaskedErrorsOptions) envelop.Plugin {
	format := opts.FormatError
	if format == nil {
		format = FormatError
	}
	message := opts.ErrorMessage
	if message == "" {
		message = DefaultErrorMessage
	}

	maskResult := func(_ context.Context, r *envelop.ResultEvent) error {
		if r.Result == nil || r.Result.Errors == nil {
			return nil
		}
		masked := *r.Result
		masked.Errors = make([]executor.GraphQLError, len(r.Result.Errors))
		for i, e := range r.Result.Errors {
			masked.Errors[i] = asGraphQLError(format(e, message, opts.IsDev), e)
		}
		r.SetResult(&masked)
		return nil
	}
	onDone := func(ctx context.Context, e *envelop.ExecutionDoneEvent) (*envelop.StreamHooks, error) {
		return envelop.HandleStreamOrSingleExecutionResult(ctx, e, maskResult)
	}

	return &envelop.Hooks{
		OnPluginInit: func(e *envelop.PluginInitEvent) {
			e.RegisterContextErrorHandler(func(e *envelop.ContextErrorEvent) {
				e.SetError(FormatError(e.Error, message, opts.IsDev))
			})
		},
		OnExecute: func(context.Context, *envelop.ExecuteEvent) (*envelop.OnExecuteHooks, error) {
			return &envelop.OnExecuteHooks{OnExecuteDone: onDone}, nil
		},
		OnSubscribe: func(context.Context, *envelop.SubscribeEvent) (*envelop.OnSubscribeHooks, error) {
			return &envelop.OnSubscribeHooks{
				OnSubscribeResult: onDone,
				OnSubscribeError: func(e *envelop.SubscribeErrorEvent) {
					e.SetError(FormatError(e.Error, message, opts.IsDev))
				},
			}, nil
		},
	}
}

func asGraphQLError(err error, original executor.GraphQLError) executor.GraphQLError {
	if err == nil {
		return original
	}
	var gqlErr executor.GraphQLError
	if errors.As(err, &gqlErr) {
		return gqlErr
	}
	return executor.GraphQLError{Message: err.Error(), Path: original.Path, OriginalError: err}
}
