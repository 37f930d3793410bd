package orchestrator_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowspec/pkg/adapters/memory"
	"github.com/aretw0/flowspec/pkg/config"
	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/orchestrator"
	"github.com/aretw0/flowspec/pkg/ports"
)

const chainYAML = `
version: "2.0"
states: ["To Do", "A", "B", "C"]
workflows:
  a: {input_states: ["To Do"], output_state: "A"}
  b: {input_states: ["A", "To Do"], output_state: "B"}
  c: {input_states: ["B", "A", "To Do"], output_state: "C"}
meta_workflows:
  chain:
    sub_workflows: [{workflow: a}, {workflow: b}, {workflow: c}]
  lenient:
    sub_workflows: [{workflow: a}, {workflow: b}, {workflow: c}]
    orchestration: {stop_on_error: false}
  fanout:
    sub_workflows: [{workflow: a}, {workflow: b}, {workflow: c}]
    orchestration: {mode: parallel}
`

func loadFixture(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join("..", "config", "testdata", "flowspec_workflow.yml"))
	require.NoError(t, err)
	return cfg
}

func loadChain(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(chainYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

// failOn returns an executor failing the named workflows.
func failOn(names ...string) ports.Executor {
	return ports.ExecutorFunc(func(_ context.Context, step domain.Step) (domain.StepOutput, error) {
		for _, n := range names {
			if step.Workflow.Name == n {
				return domain.StepOutput{}, errors.New(n + " broke")
			}
		}
		return domain.StepOutput{}, nil
	})
}

func TestExecute_ResearchSkipsLowComplexity(t *testing.T) {
	tracker := memory.NewTracker()
	tracker.Seed("task-1", "To Do")
	rec := memory.NewRecorder()

	o := orchestrator.New(loadFixture(t), tracker, orchestrator.WithEventSink(rec))
	res := o.Execute(context.Background(), "research", "task-1", domain.ExecutionContext{"complexity_score": 3})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, domain.State("Planned"), res.FinalState)
	require.Len(t, res.SubResults, 4)
	assert.True(t, res.SubResults[2].Skipped)
	assert.True(t, res.SubResults[2].Success)
	assert.Equal(t, "research", res.SubResults[2].WorkflowName)

	status, _ := tracker.Status("task-1")
	assert.Equal(t, domain.State("Planned"), status)
	assert.Equal(t, []domain.State{"To Do", "Assessed", "Specified", "Planned", "Planned"}, tracker.History("task-1"))

	assert.Equal(t, []string{
		"meta_workflow.research.started",
		"workflow.assess.started", "workflow.assess.completed",
		"workflow.specify.started", "workflow.specify.completed",
		"workflow.plan.started", "workflow.plan.completed",
		"meta_workflow.research.completed",
	}, rec.Types())

	last := rec.Events()[len(rec.Events())-1]
	assert.Equal(t, "Planned", last.Context["final_state"])
	assert.Equal(t, domain.SchemaVersion, last.SchemaVersion)
	assert.Contains(t, last.ID, "evt_")
}

func TestExecute_ResearchRunsHighComplexity(t *testing.T) {
	tracker := memory.NewTracker()
	tracker.Seed("task-1", "To Do")

	o := orchestrator.New(loadFixture(t), tracker)
	res := o.Execute(context.Background(), "research", "task-1", domain.ExecutionContext{"complexity_score": 8})

	require.True(t, res.Success, res.Error)
	require.Len(t, res.SubResults, 4)
	assert.False(t, res.SubResults[2].Skipped)
	assert.Equal(t, domain.State("Researched"), res.SubResults[2].OutputState)
	assert.Equal(t, []domain.State{"To Do", "Assessed", "Specified", "Researched", "Planned", "Planned"}, tracker.History("task-1"))
}

func TestExecute_InputStateMismatch(t *testing.T) {
	tracker := memory.NewTracker()
	tracker.Seed("task-1", "To Do")
	rec := memory.NewRecorder()

	o := orchestrator.New(loadFixture(t), tracker, orchestrator.WithEventSink(rec))
	res := o.Execute(context.Background(), "build", "task-1", nil)

	assert.False(t, res.Success)
	assert.Empty(t, res.SubResults)
	assert.Contains(t, res.Error, "Planned")
	assert.Contains(t, res.Error, "To Do")
	assert.ErrorIs(t, res.Err, domain.ErrInvalidStateTransition)
	assert.Empty(t, rec.Events(), "no events before the run starts")
}

func TestExecute_UnknownMetaWorkflow(t *testing.T) {
	o := orchestrator.New(loadFixture(t), nil)
	res := o.Execute(context.Background(), "ship", "", nil)

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, domain.ErrMetaWorkflowNotFound)
	assert.Contains(t, res.Error, "Available: build, research")
}

func TestExecute_NoConfig(t *testing.T) {
	res := orchestrator.New(nil, nil).Execute(context.Background(), "research", "", nil)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, orchestrator.ErrNoConfig)
}

func TestExecute_StopOnError(t *testing.T) {
	tests := []struct {
		name      string
		meta      string
		wantCount int
	}{
		{"stops at first failure", "chain", 1},
		{"continues when stop_on_error is off", "lenient", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := memory.NewRecorder()
			o := orchestrator.New(loadChain(t), nil,
				orchestrator.WithExecutor(failOn("a")),
				orchestrator.WithEventSink(rec),
			)
			res := o.Execute(context.Background(), tt.meta, "", nil)

			assert.Len(t, res.SubResults, tt.wantCount)
			assert.False(t, res.SubResults[0].Success)
			assert.Equal(t, "a broke", res.SubResults[0].Error)
			if tt.meta == "chain" {
				assert.False(t, res.Success)
				assert.Equal(t, "a", res.FailedStep)
				assert.Equal(t, "a broke", res.Error)
				assert.ErrorIs(t, res.Err, domain.ErrSubWorkflowFailed)
				assert.Contains(t, rec.Types(), "meta_workflow.chain.failed")
			} else {
				assert.True(t, res.Success)
				assert.True(t, res.SubResults[1].Success)
				assert.True(t, res.SubResults[2].Success)
			}
		})
	}
}

func TestExecute_FailedEventPayload(t *testing.T) {
	rec := memory.NewRecorder()
	o := orchestrator.New(loadChain(t), nil,
		orchestrator.WithExecutor(failOn("b")),
		orchestrator.WithEventSink(rec),
	)
	res := o.Execute(context.Background(), "chain", "", nil)
	require.False(t, res.Success)

	events := rec.Events()
	last := events[len(events)-1]
	assert.Equal(t, "meta_workflow.chain.failed", last.Type)
	assert.Equal(t, "chain", last.Context["meta_workflow"])
	assert.Equal(t, "b", last.Context["failed_workflow"])
	assert.Equal(t, "b broke", last.Context["error"])
}

func TestExecute_CompletionFlagsReachConditions(t *testing.T) {
	cfg, err := config.Parse([]byte(`
states: ["To Do", "A", "B"]
workflows:
  a: {input_states: ["To Do"], output_state: "A"}
  b: {input_states: ["To Do"], output_state: "B"}
meta_workflows:
  m:
    orchestration: {stop_on_error: false}
    sub_workflows:
      - workflow: a
      - workflow: b
        required: false
        condition: "not a_completed"
`))
	require.NoError(t, err)

	res := orchestrator.New(cfg, nil, orchestrator.WithExecutor(failOn("a"))).
		Execute(context.Background(), "m", "", nil)

	require.Len(t, res.SubResults, 2)
	assert.False(t, res.SubResults[1].Skipped, "a failed so b must run")
}

func TestExecute_ExecutorContextAndArtifacts(t *testing.T) {
	exec := ports.ExecutorFunc(func(_ context.Context, step domain.Step) (domain.StepOutput, error) {
		switch step.Workflow.Name {
		case "a":
			return domain.StepOutput{
				Artifacts: []string{"docs/a.md"},
				Context:   map[string]any{"test_coverage": 91},
			}, nil
		case "b":
			if step.Context["a_completed"] != true {
				return domain.StepOutput{}, errors.New("a not recorded")
			}
		}
		return domain.StepOutput{}, nil
	})

	var seen []string
	o := orchestrator.New(loadChain(t), nil, orchestrator.WithExecutor(exec),
		orchestrator.WithHooks(domain.LifecycleHooks{
			OnStepFinish: func(_ context.Context, r domain.SubWorkflowResult, _ time.Duration) {
				seen = append(seen, r.WorkflowName)
			},
		}))
	res := o.Execute(context.Background(), "chain", "", nil)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"docs/a.md"}, res.SubResults[0].Artifacts)
	assert.Equal(t, []string{}, res.SubResults[1].Artifacts)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestExecute_QualityGates(t *testing.T) {
	tests := []struct {
		name     string
		ctx      domain.ExecutionContext
		wantOK   bool
		wantGate domain.GateType
	}{
		{
			name:   "passes with good metrics",
			ctx:    domain.ExecutionContext{"test_coverage": 85, "ac_coverage": 100},
			wantOK: true,
		},
		{
			name:     "low coverage blocks",
			ctx:      domain.ExecutionContext{"test_coverage": 60},
			wantGate: domain.GateTestCoverage,
		},
		{
			name: "high finding blocks",
			ctx: domain.ExecutionContext{
				"test_coverage":     90,
				"security_findings": []any{map[string]any{"severity": "HIGH"}},
			},
			wantGate: domain.GateSecurityScan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := memory.NewTracker()
			tracker.Seed("task-1", "Planned")
			rec := memory.NewRecorder()

			var blocked domain.GateType
			o := orchestrator.New(loadFixture(t), tracker,
				orchestrator.WithEventSink(rec),
				orchestrator.WithHooks(domain.LifecycleHooks{
					OnGateFailure: func(_ context.Context, _ string, g domain.GateType) { blocked = g },
				}),
			)
			res := o.Execute(context.Background(), "build", "task-1", tt.ctx)

			assert.Equal(t, tt.wantOK, res.Success, res.Error)
			status, _ := tracker.Status("task-1")
			if tt.wantOK {
				assert.Equal(t, domain.State("Validated"), res.FinalState)
				assert.Equal(t, domain.State("Validated"), status)
				return
			}
			assert.Equal(t, tt.wantGate, res.FailedGate)
			assert.Equal(t, tt.wantGate, blocked)
			assert.ErrorIs(t, res.Err, domain.ErrQualityGateFailed)
			assert.Len(t, res.SubResults, 2, "gates run after the steps")
			assert.Empty(t, res.FinalState)
			assert.Contains(t, rec.Types(), "meta_workflow.build.failed")
		})
	}
}

func TestExecute_OptionalGateWarns(t *testing.T) {
	tracker := memory.NewTracker()
	tracker.Seed("task-1", "Planned")

	o := orchestrator.New(loadFixture(t), tracker)
	res := o.Execute(context.Background(), "build", "task-1", domain.ExecutionContext{"test_coverage": 90, "ac_coverage": 50})

	require.True(t, res.Success, res.Error)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "acceptance criteria gate failed")
}

func TestExecute_IntermediateEditFailure(t *testing.T) {
	tracker := memory.NewTracker()
	tracker.Seed("task-1", "To Do")
	tracker.FailEdit("task-1", "Specified", "backlog is read-only")

	o := orchestrator.New(loadFixture(t), tracker)
	res := o.Execute(context.Background(), "research", "task-1", nil)

	assert.False(t, res.Success)
	assert.Equal(t, "specify", res.FailedStep)
	require.Len(t, res.SubResults, 2)
	assert.Contains(t, res.SubResults[1].Error, "backlog is read-only")
	assert.ErrorIs(t, res.Err, domain.ErrTrackerUnavailable)
}

func TestExecute_FinalCommitFailure(t *testing.T) {
	cfg, err := config.Parse([]byte(`
states: ["To Do", "A", "Done"]
workflows:
  a: {input_states: ["To Do"], output_state: "A"}
meta_workflows:
  m:
    input_state: "To Do"
    output_state: "Done"
    sub_workflows: [{workflow: a}]
`))
	require.NoError(t, err)

	tracker := memory.NewTracker()
	tracker.Seed("task-1", "To Do")
	tracker.FailEdit("task-1", "Done", "offline")

	res := orchestrator.New(cfg, tracker).Execute(context.Background(), "m", "task-1", nil)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, domain.State("Done"), res.FinalState)
	status, _ := tracker.Status("task-1")
	assert.Equal(t, domain.State("A"), status)
}

func TestExecute_ViewFailure(t *testing.T) {
	tracker := memory.NewTracker()
	tracker.Seed("task-1", "To Do")
	tracker.FailView("task-1", "connection refused")

	res := orchestrator.New(loadFixture(t), tracker).Execute(context.Background(), "research", "task-1", nil)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "failed to get task task-1")
	assert.ErrorIs(t, res.Err, domain.ErrTrackerUnavailable)
}

func TestExecute_StatuslessOutputProceeds(t *testing.T) {
	for name, output := range map[string]string{
		"no status line": "no status here",
		"blank status":   "Task task-1\nStatus:\n",
	} {
		t.Run(name, func(t *testing.T) {
			assertProceedsWithOutput(t, output)
		})
	}
}

func assertProceedsWithOutput(t *testing.T, output string) {
	var mu sync.Mutex
	edits := 0
	tracker := &fakeTracker{
		view: func(string) ports.ViewResult { return ports.ViewResult{Success: true, Output: output} },
		edit: func(string, domain.State) ports.EditResult {
			mu.Lock()
			defer mu.Unlock()
			edits++
			return ports.EditResult{Success: true}
		},
	}

	res := orchestrator.New(loadFixture(t), tracker).Execute(context.Background(), "build", "task-1",
		domain.ExecutionContext{"test_coverage": 99, "ac_coverage": 100})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 3, edits, "two steps plus the final commit")
}

func TestExecute_StepTimeout(t *testing.T) {
	slow := ports.ExecutorFunc(func(ctx context.Context, _ domain.Step) (domain.StepOutput, error) {
		<-ctx.Done()
		return domain.StepOutput{}, ctx.Err()
	})
	o := orchestrator.New(loadChain(t), nil,
		orchestrator.WithExecutor(slow),
		orchestrator.WithStepTimeout(20*time.Millisecond),
	)
	res := o.Execute(context.Background(), "chain", "", nil)

	assert.False(t, res.Success)
	require.Len(t, res.SubResults, 1)
	assert.ErrorIs(t, res.SubResults[0].Err, domain.ErrStepTimeout)
}

func TestExecute_ExecutorPanic(t *testing.T) {
	boom := ports.ExecutorFunc(func(context.Context, domain.Step) (domain.StepOutput, error) {
		panic("kaboom")
	})
	res := orchestrator.New(loadChain(t), nil, orchestrator.WithExecutor(boom)).
		Execute(context.Background(), "chain", "", nil)

	assert.False(t, res.Success)
	require.Len(t, res.SubResults, 1)
	assert.Contains(t, res.SubResults[0].Error, "kaboom")
}

func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o := orchestrator.New(loadChain(t), nil, orchestrator.WithHooks(domain.LifecycleHooks{
		OnStepFinish: func(context.Context, domain.SubWorkflowResult, time.Duration) { cancel() },
	}))
	res := o.Execute(ctx, "chain", "", nil)

	assert.False(t, res.Success)
	require.Len(t, res.SubResults, 2)
	assert.True(t, res.SubResults[0].Success)
	assert.ErrorIs(t, res.SubResults[1].Err, context.Canceled)
}

func TestExecute_SinkFailureIsSwallowed(t *testing.T) {
	rec := memory.NewRecorder()
	rec.FailWith(errors.New("disk full"))
	panicky := ports.EventSinkFunc(func(context.Context, domain.Event) error { panic("sink") })

	for _, sink := range []ports.EventSink{rec, panicky} {
		res := orchestrator.New(loadChain(t), nil, orchestrator.WithEventSink(sink)).
			Execute(context.Background(), "chain", "", nil)
		assert.True(t, res.Success, res.Error)
	}
	assert.NotEmpty(t, rec.Events())
}

func TestExecute_Parallel(t *testing.T) {
	var mu sync.Mutex
	running, peak := 0, 0
	release := make(chan struct{})
	exec := ports.ExecutorFunc(func(_ context.Context, step domain.Step) (domain.StepOutput, error) {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		if running == 3 {
			close(release)
		}
		mu.Unlock()

		select {
		case <-release:
		case <-time.After(time.Second):
		}
		return domain.StepOutput{Context: map[string]any{step.Workflow.Name + "_done": true}}, nil
	})

	res := orchestrator.New(loadChain(t), nil, orchestrator.WithExecutor(exec)).
		Execute(context.Background(), "fanout", "", nil)

	require.True(t, res.Success, res.Error)
	require.Len(t, res.SubResults, 3)
	for i, name := range []string{"a", "b", "c"} {
		assert.Equal(t, name, res.SubResults[i].WorkflowName)
	}
	assert.Equal(t, 3, peak)
}

func TestExecute_ParallelWithTaskRunsSequentially(t *testing.T) {
	tracker := memory.NewTracker()
	tracker.Seed("task-1", "To Do")

	res := orchestrator.New(loadChain(t), tracker).Execute(context.Background(), "fanout", "task-1", nil)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, []domain.State{"To Do", "A", "B", "C"}, tracker.History("task-1"))
}

func TestExecute_Hooks(t *testing.T) {
	var started string
	var finished *domain.MetaWorkflowResult
	o := orchestrator.New(loadChain(t), nil, orchestrator.WithHooks(domain.LifecycleHooks{
		OnMetaStart:  func(_ context.Context, meta string) { started = meta },
		OnMetaFinish: func(_ context.Context, r *domain.MetaWorkflowResult) { finished = r },
	}))
	res := o.Execute(context.Background(), "chain", "", nil)

	assert.Equal(t, "chain", started)
	assert.Same(t, res, finished)
}

func TestExecute_DoesNotMutateCallerContext(t *testing.T) {
	in := domain.ExecutionContext{"complexity_score": 1}
	orchestrator.New(loadChain(t), nil).Execute(context.Background(), "chain", "", in)
	assert.Equal(t, domain.ExecutionContext{"complexity_score": 1}, in)
}

func TestExecuteSubWorkflow(t *testing.T) {
	t.Run("moves the task", func(t *testing.T) {
		tracker := memory.NewTracker()
		tracker.Seed("task-1", "Assessed")
		rec := memory.NewRecorder()

		o := orchestrator.New(loadFixture(t), tracker, orchestrator.WithEventSink(rec))
		res := o.ExecuteSubWorkflow(context.Background(), "specify", domain.ExecutionContext{"task_id": "task-1"})

		require.True(t, res.Success, res.Error)
		assert.Equal(t, domain.State("Specified"), res.OutputState)
		assert.Equal(t, []string{"workflow.specify.started", "workflow.specify.completed"}, rec.Types())
		assert.Equal(t, []string{"product-requirements-manager"}, rec.Events()[0].Context["agents"])
	})

	t.Run("rejects wrong input state", func(t *testing.T) {
		tracker := memory.NewTracker()
		tracker.Seed("task-1", "To Do")

		res := orchestrator.New(loadFixture(t), tracker).
			ExecuteSubWorkflow(context.Background(), "plan", domain.ExecutionContext{"task_id": "task-1"})

		assert.False(t, res.Success)
		assert.Equal(t, "cannot execute 'plan' from state 'To Do'. Valid input states: [Specified, Researched]", res.Error)
	})

	t.Run("unknown workflow", func(t *testing.T) {
		res := orchestrator.New(loadFixture(t), nil).ExecuteSubWorkflow(context.Background(), "deploy", nil)
		assert.False(t, res.Success)
		assert.ErrorIs(t, res.Err, domain.ErrWorkflowNotFound)
	})

	t.Run("missing output state", func(t *testing.T) {
		cfg, err := config.Parse([]byte(`
states: ["To Do"]
workflows:
  a: {input_states: ["To Do"]}
`))
		require.NoError(t, err)
		res := orchestrator.New(cfg, nil).ExecuteSubWorkflow(context.Background(), "a", nil)
		assert.Equal(t, "workflow 'a' has no output_state defined: invalid workflow config", res.Error)
	})

	t.Run("artifacts from context", func(t *testing.T) {
		res := orchestrator.New(loadFixture(t), nil).ExecuteSubWorkflow(context.Background(), "assess",
			domain.ExecutionContext{"assess_artifacts": []any{"docs/assess.md"}})
		assert.Equal(t, []string{"docs/assess.md"}, res.Artifacts)
	})
}

func TestListMetaWorkflows(t *testing.T) {
	list := orchestrator.New(loadFixture(t), nil).ListMetaWorkflows()
	require.Len(t, list, 2)
	assert.Equal(t, "build", list[0].Name)
	assert.Equal(t, "research", list[1].Name)
}

type fakeTracker struct {
	view func(id string) ports.ViewResult
	edit func(id string, status domain.State) ports.EditResult
}

func (f *fakeTracker) View(_ context.Context, id string) ports.ViewResult { return f.view(id) }

func (f *fakeTracker) Edit(_ context.Context, id string, s domain.State) ports.EditResult {
	return f.edit(id, s)
}
