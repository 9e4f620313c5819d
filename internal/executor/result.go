package executor

import "errors"

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`

	// OriginalError is the error a resolver or hook returned, if any.
	OriginalError error `json:"-"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

func (e GraphQLError) Unwrap() error {
	return e.OriginalError
}

// ExtensionsCarrier is implemented by errors that contribute GraphQL error
// extensions.
type ExtensionsCarrier interface {
	ErrorExtensions() map[string]any
}

// LocatedError converts err into a GraphQLError at path. A GraphQLError in
// the chain is reused, keeping its own path when set.
func LocatedError(err error, path Path) GraphQLError {
	var gqlErr GraphQLError
	if errors.As(err, &gqlErr) {
		if gqlErr.Path == nil {
			gqlErr.Path = path
		}
		return gqlErr
	}
	out := GraphQLError{Message: err.Error(), Path: path, OriginalError: err}
	var carrier ExtensionsCarrier
	if errors.As(err, &carrier) {
		out.Extensions = carrier.ErrorExtensions()
	}
	return out
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data       any            `json:"data"`
	Errors     []GraphQLError `json:"errors,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}
