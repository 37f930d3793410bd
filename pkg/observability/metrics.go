package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/flowspec/pkg/domain"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Metrics records orchestrator activity as Prometheus series.
type Metrics struct {
	registry     *prometheus.Registry
	metaRuns     *prometheus.CounterVec
	subResults   *prometheus.CounterVec
	gateFailures *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
}

// NewMetrics creates the flowspec collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		metaRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowspec_meta_workflow_runs_total",
				Help: "Total number of finished meta-workflow runs",
			},
			[]string{"meta_workflow", "outcome"},
		),
		subResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowspec_sub_workflow_results_total",
				Help: "Total number of sub-workflow results by outcome",
			},
			[]string{"workflow", "outcome"},
		),
		gateFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowspec_quality_gate_failures_total",
				Help: "Total number of required quality gates that blocked a run",
			},
			[]string{"gate"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowspec_sub_workflow_duration_seconds",
				Help:    "Duration of executed sub-workflows",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"workflow"},
		),
	}
	m.registry.MustRegister(m.metaRuns, m.subResults, m.gateFailures, m.stepDuration)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMetaFinish: func(_ context.Context, result *domain.MetaWorkflowResult) {
			if result == nil {
				return
			}
			m.metaRuns.WithLabelValues(result.MetaWorkflowName, outcome(result.Success, false)).Inc()
		},
		OnStepFinish: func(_ context.Context, result domain.SubWorkflowResult, elapsed time.Duration) {
			m.subResults.WithLabelValues(result.WorkflowName, outcome(result.Success, result.Skipped)).Inc()
			if !result.Skipped {
				m.stepDuration.WithLabelValues(result.WorkflowName).Observe(elapsed.Seconds())
			}
		},
		OnGateFailure: func(_ context.Context, _ string, gate domain.GateType) {
			m.gateFailures.WithLabelValues(string(gate)).Inc()
		},
	}
}

func outcome(success, skipped bool) string {
	switch {
	case skipped:
		return OutcomeSkipped
	case success:
		return OutcomeSuccess
	default:
		return OutcomeFailure
	}
}
