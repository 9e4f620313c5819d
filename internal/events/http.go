package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when the GraphQL endpoint receives a request.
type HTTPStart struct {
	Request   *http.Request
	RequestID int64
}

// HTTPFinish is emitted after the response was written. Operations counts
// the GraphQL operations carried by the request, more than one for a batch.
// Streamed is set when the response was an event stream.
type HTTPFinish struct {
	Request    *http.Request
	RequestID  int64
	Status     int
	Operations int
	Streamed   bool
	Duration   time.Duration
}
