package plugins

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	envelop "github.com/hanpama/envelop/internal/envelop"
	language "github.com/hanpama/envelop/internal/language"
	"github.com/hanpama/envelop/internal/stream"
)

func TestUseMetricsCountsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(MetricsOptions{Registerer: reg, Resolvers: true})
	env := envelop.New(envelop.Options{Plugins: []envelop.Plugin{UseSchema(newTestSchema(t)), m.Plugin()}})

	_, err := run(t, env, "{ foo }")
	require.NoError(t, err)
	_, err = run(t, env, "{ secret foo }")
	require.NoError(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("query", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("query", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("execute")))
	require.Equal(t, 4, testutil.CollectAndCount(m.phaseDuration))
	require.Equal(t, 2, testutil.CollectAndCount(m.resolverDuration))

	expected := `
# HELP envelop_operations_total Operations executed or subscribed to, by type and outcome.
# TYPE envelop_operations_total counter
envelop_operations_total{operation_type="query",outcome="error"} 1
envelop_operations_total{operation_type="query",outcome="ok"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "envelop_operations_total"))
}

func TestUseMetricsParseAndStreamErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(MetricsOptions{Registerer: reg, Namespace: "gql"})
	env := envelop.New(envelop.Options{Plugins: []envelop.Plugin{UseSchema(newTestSchema(t)), m.Plugin()}})

	_, err := env.GetEnveloped(nil).Parse("{ broken", language.ParseOptions{})
	require.Error(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("parse")))

	resp, err := run(t, env, "subscription { count }")
	require.NoError(t, err)
	_, err = stream.Collect(context.Background(), resp.Stream)
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("subscription", "stream")))
	require.Nil(t, m.resolverDuration)

	count, err := testutil.GatherAndCount(reg, "gql_phase_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 4, count)
}
