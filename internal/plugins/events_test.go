package plugins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	envelop "github.com/hanpama/envelop/internal/envelop"
	eventbus "github.com/hanpama/envelop/internal/eventbus"
	events "github.com/hanpama/envelop/internal/events"
	"github.com/hanpama/envelop/internal/stream"
)

func TestUseEventsPublishesOperationAndResolverEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	var starts []events.GraphQLStart
	var finishes []events.GraphQLFinish
	var resolvers []events.ResolverFinish
	defer eventbus.Subscribe(func(_ context.Context, e events.GraphQLStart) { starts = append(starts, e) })()
	defer eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) { finishes = append(finishes, e) })()
	defer eventbus.Subscribe(func(_ context.Context, e events.ResolverFinish) { resolvers = append(resolvers, e) })()

	env := envelop.New(envelop.Options{Plugins: []envelop.Plugin{UseSchema(newTestSchema(t)), UseEvents()}})
	_, err := run(t, env, "query Q { foo secret }")
	require.NoError(t, err)

	require.Equal(t, []events.GraphQLStart{{Query: "query Q { foo secret }", OperationName: "", OperationType: "query"}}, starts)
	require.Len(t, finishes, 1)
	require.Equal(t, "query", finishes[0].OperationType)
	require.Len(t, finishes[0].Errors, 1)
	require.EqualError(t, finishes[0].Errors[0], "secret")

	require.Len(t, resolvers, 2)
	require.Equal(t, "Query", resolvers[0].TypeName)
	require.Equal(t, "foo", resolvers[0].FieldName)
	require.NoError(t, resolvers[0].Err)
	require.Equal(t, "secret", resolvers[1].FieldName)
	require.EqualError(t, resolvers[1].Err, "secret")
}

func TestUseEventsFinishesSubscriptionsWhenTheStreamEnds(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	var finishes []events.GraphQLFinish
	defer eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) { finishes = append(finishes, e) })()

	env := envelop.New(envelop.Options{Plugins: []envelop.Plugin{UseSchema(newTestSchema(t)), UseEvents()}})
	resp, err := run(t, env, "subscription { count }")
	require.NoError(t, err)
	require.Empty(t, finishes)

	results, err := stream.Collect(context.Background(), resp.Stream)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Len(t, finishes, 1)
	require.Equal(t, "subscription", finishes[0].OperationType)
}
