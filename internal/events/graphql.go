package events

import "time"

// GraphQLStart is emitted before executing or subscribing to a GraphQL
// operation.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted once the operation produced its result. For a
// subscription that is when the result stream ends.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}

// ResolverFinish is emitted after a field resolver returned.
type ResolverFinish struct {
	TypeName  string
	FieldName string
	Path      []any
	Err       error
	Duration  time.Duration
}
