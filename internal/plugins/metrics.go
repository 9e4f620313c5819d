package plugins

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	envelop "github.com/hanpama/envelop/internal/envelop"
	executor "github.com/hanpama/envelop/internal/executor"
	language "github.com/hanpama/envelop/internal/language"
)

type MetricsOptions struct {
	// Registerer receives the collectors. Nil uses prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
	// Namespace prefixes every metric name. Defaults to "envelop".
	Namespace string
	// Resolvers enables the per-field resolver histogram.
	Resolvers bool
}

// Metrics holds the collectors UseMetrics reports to.
type Metrics struct {
	phaseDuration    *prometheus.HistogramVec
	operations       *prometheus.CounterVec
	errors           *prometheus.CounterVec
	resolverDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors. Registering the same
// namespace twice with one registerer panics.
func NewMetrics(opts MetricsOptions) *Metrics {
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := opts.Namespace
	if ns == "" {
		ns = "envelop"
	}
	factory := promauto.With(reg)

	m := &Metrics{
		phaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "phase_duration_seconds",
			Help:      "Time spent in each request phase.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "operations_total",
			Help:      "Operations executed or subscribed to, by type and outcome.",
		}, []string{"operation_type", "outcome"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "errors_total",
			Help:      "Errors reported, by phase.",
		}, []string{"phase"}),
	}
	if opts.Resolvers {
		m.resolverDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "resolver_duration_seconds",
			Help:      "Time spent in field resolvers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type", "field"})
	}
	return m
}

// UseMetrics reports phase durations, operation outcomes and error counts
// to prometheus collectors.
func UseMetrics(opts MetricsOptions) envelop.Plugin {
	return NewMetrics(opts).Plugin()
}

func (m *Metrics) observe(phase string, start time.Time) {
	m.phaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

func (m *Metrics) resolverHook() envelop.OnResolverCalledFunc {
	if m.resolverDuration == nil {
		return nil
	}
	return func(_ context.Context, e *envelop.ResolverCalledEvent) envelop.AfterResolverFunc {
		info := e.Params.Info
		start := time.Now()
		return func(*envelop.AfterResolverEvent) {
			m.resolverDuration.WithLabelValues(info.ParentType.Name, info.FieldName).Observe(time.Since(start).Seconds())
		}
	}
}

func (m *Metrics) countResult(phase, opType string, r *executor.ExecutionResult) {
	outcome := "ok"
	if r != nil && len(r.Errors) > 0 {
		outcome = "error"
		m.errors.WithLabelValues(phase).Add(float64(len(r.Errors)))
	}
	m.operations.WithLabelValues(opType, outcome).Inc()
}

func operationType(args executor.ExecutionArgs) string {
	if op := language.GetOperation(args.Document, args.OperationName); op != nil {
		return string(op.Operation)
	}
	return "unknown"
}

// Plugin returns the hooks that feed m.
func (m *Metrics) Plugin() envelop.Plugin {
	return &envelop.Hooks{
		OnParse: func(*envelop.ParseEvent) envelop.AfterParseFunc {
			start := time.Now()
			return func(e *envelop.AfterParseEvent) {
				m.observe("parse", start)
				if e.Err != nil {
					m.errors.WithLabelValues("parse").Inc()
				}
			}
		},
		OnValidate: func(*envelop.ValidateEvent) envelop.AfterValidateFunc {
			start := time.Now()
			return func(e *envelop.AfterValidateEvent) {
				m.observe("validate", start)
				if len(e.Result) > 0 {
					m.errors.WithLabelValues("validate").Add(float64(len(e.Result)))
				}
			}
		},
		OnContextBuilding: func(context.Context, *envelop.ContextBuildingEvent) (envelop.AfterContextBuildingFunc, error) {
			start := time.Now()
			return func(*envelop.ContextBuildingEvent) { m.observe("context", start) }, nil
		},
		OnExecute: func(_ context.Context, e *envelop.ExecuteEvent) (*envelop.OnExecuteHooks, error) {
			opType := operationType(e.Args)
			start := time.Now()
			return &envelop.OnExecuteHooks{
				OnExecuteDone: func(_ context.Context, done *envelop.ExecutionDoneEvent) (*envelop.StreamHooks, error) {
					m.observe("execute", start)
					if done.Result.IsStream() {
						m.operations.WithLabelValues(opType, "stream").Inc()
						return nil, nil
					}
					m.countResult("execute", opType, done.Result.Result)
					return nil, nil
				},
				OnResolverCalled: m.resolverHook(),
			}, nil
		},
		OnSubscribe: func(_ context.Context, e *envelop.SubscribeEvent) (*envelop.OnSubscribeHooks, error) {
			start := time.Now()
			return &envelop.OnSubscribeHooks{
				OnSubscribeResult: func(_ context.Context, done *envelop.ExecutionDoneEvent) (*envelop.StreamHooks, error) {
					m.observe("subscribe", start)
					if !done.Result.IsStream() {
						m.countResult("subscribe", "subscription", done.Result.Result)
						return nil, nil
					}
					m.operations.WithLabelValues("subscription", "stream").Inc()
					return &envelop.StreamHooks{OnNext: func(_ context.Context, r *envelop.ResultEvent) error {
						if r.Result != nil && len(r.Result.Errors) > 0 {
							m.errors.WithLabelValues("subscribe").Add(float64(len(r.Result.Errors)))
						}
						return nil
					}}, nil
				},
				OnSubscribeError: func(*envelop.SubscribeErrorEvent) { m.errors.WithLabelValues("subscribe").Inc() },
				OnResolverCalled: m.resolverHook(),
			}, nil
		},
	}
}
