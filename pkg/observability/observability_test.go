package observability_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowspec/internal/logging"
	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/observability"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics()
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnStepFinish(ctx, domain.SubWorkflowResult{WorkflowName: "assess", Success: true}, 20*time.Millisecond)
	hooks.OnStepFinish(ctx, domain.SubWorkflowResult{WorkflowName: "research", Success: true, Skipped: true}, 0)
	hooks.OnStepFinish(ctx, domain.SubWorkflowResult{WorkflowName: "plan", Error: "boom"}, time.Second)
	hooks.OnGateFailure(ctx, "build", domain.GateTestCoverage)
	hooks.OnMetaFinish(ctx, &domain.MetaWorkflowResult{MetaWorkflowName: "research", Success: true})
	hooks.OnMetaFinish(ctx, &domain.MetaWorkflowResult{MetaWorkflowName: "build"})
	hooks.OnMetaFinish(ctx, nil)

	expected := `
# HELP flowspec_meta_workflow_runs_total Total number of finished meta-workflow runs
# TYPE flowspec_meta_workflow_runs_total counter
flowspec_meta_workflow_runs_total{meta_workflow="build",outcome="failure"} 1
flowspec_meta_workflow_runs_total{meta_workflow="research",outcome="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "flowspec_meta_workflow_runs_total"))

	expected = `
# HELP flowspec_sub_workflow_results_total Total number of sub-workflow results by outcome
# TYPE flowspec_sub_workflow_results_total counter
flowspec_sub_workflow_results_total{outcome="failure",workflow="plan"} 1
flowspec_sub_workflow_results_total{outcome="skipped",workflow="research"} 1
flowspec_sub_workflow_results_total{outcome="success",workflow="assess"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "flowspec_sub_workflow_results_total"))

	expected = `
# HELP flowspec_quality_gate_failures_total Total number of required quality gates that blocked a run
# TYPE flowspec_quality_gate_failures_total counter
flowspec_quality_gate_failures_total{gate="test_coverage"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "flowspec_quality_gate_failures_total"))

	// Skipped steps are not timed.
	count, err := testutil.GatherAndCount(m.Registry(), "flowspec_sub_workflow_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics()
	m.Hooks().OnGateFailure(context.Background(), "build", domain.GateSecurityScan)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `flowspec_quality_gate_failures_total{gate="security_scan"} 1`)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	hooks := observability.LogHooks(logging.NewWithWriter(&buf, slog.LevelDebug, false))
	ctx := context.Background()

	hooks.OnMetaStart(ctx, "build")
	hooks.OnGateFailure(ctx, "build", domain.GateAcceptanceCriteria)
	hooks.OnMetaFinish(ctx, &domain.MetaWorkflowResult{MetaWorkflowName: "build", FailedGate: domain.GateAcceptanceCriteria, Error: "AC coverage gate failed"})

	out := buf.String()
	assert.Contains(t, out, "meta_workflow_start")
	assert.Contains(t, out, "quality_gate_failure")
	assert.Contains(t, out, "failed_gate=acceptance_criteria")
}

func TestChain(t *testing.T) {
	var order []string
	first := domain.LifecycleHooks{OnMetaStart: func(context.Context, string) { order = append(order, "first") }}
	second := domain.LifecycleHooks{OnMetaStart: func(context.Context, string) { order = append(order, "second") }}

	hooks := observability.Chain(first, domain.LifecycleHooks{}, second)
	hooks.OnMetaStart(context.Background(), "research")
	hooks.OnMetaFinish(context.Background(), nil)
	hooks.OnStepFinish(context.Background(), domain.SubWorkflowResult{}, 0)
	hooks.OnGateFailure(context.Background(), "research", domain.GateTestCoverage)

	assert.Equal(t, []string{"first", "second"}, order)
}
