// Package reqid tags request contexts with a random identifier shared by
// log lines, spans and outgoing gRPC metadata.
package reqid

import (
	"context"
	"math/rand/v2"

	"github.com/rs/zerolog"
)

// key is the context key for the request ID.
type key struct{}

// NewContext returns a copy of parent with a new random request ID stored.
// It also returns the generated ID, which is never zero.
func NewContext(parent context.Context) (context.Context, int64) {
	id := rand.Int64()
	for id == 0 {
		id = rand.Int64()
	}
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the request ID from ctx.
// It returns the ID and whether it was present.
func FromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(key{})
	id, ok := v.(int64)
	return id, ok
}

// Logger returns base with the request ID of ctx attached, if any.
func Logger(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	if id, ok := FromContext(ctx); ok {
		return base.With().Int64("request_id", id).Logger()
	}
	return base
}
