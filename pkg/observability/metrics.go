package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/river-berlin/unibase/pkg/domain"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the engine collectors.
type Metrics struct {
	registry *prometheus.Registry

	ModelCalls     *prometheus.CounterVec
	ToolCalls      *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec
	RunIterations  prometheus.Histogram
	Runs           *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ModelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unibase_model_calls_total",
			Help: "Total number of language model calls",
		}, []string{"outcome"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unibase_tool_calls_total",
			Help: "Total number of dispatched tool calls",
		}, []string{"tool", "outcome"}),
		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unibase_render_duration_seconds",
			Help:    "Duration of mesh conversions",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"outcome"}),
		RunIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "unibase_run_iterations",
			Help:    "Model iterations used per run",
			Buckets: prometheus.LinearBuckets(1, 1, 5),
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unibase_runs_total",
			Help: "Total number of orchestrator runs",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.ModelCalls, m.ToolCalls, m.RenderDuration, m.RunIterations, m.Runs)
	return m
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks records metrics from lifecycle events.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnModelCall: func(_ context.Context, e *domain.ModelEvent) {
			m.ModelCalls.WithLabelValues(outcome(e.Err != nil)).Inc()
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			m.ToolCalls.WithLabelValues(e.ToolName, outcome(e.IsError)).Inc()
		},
		OnRender: func(_ context.Context, e *domain.RenderEvent) {
			m.RenderDuration.WithLabelValues(outcome(e.Err != nil)).Observe(e.Duration.Seconds())
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			m.Runs.WithLabelValues(outcome(e.Err != nil)).Inc()
			if e.Iterations > 0 {
				m.RunIterations.Observe(float64(e.Iterations))
			}
		},
	}
}

func outcome(failed bool) string {
	if failed {
		return OutcomeError
	}
	return OutcomeOK
}
