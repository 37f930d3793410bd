package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/flowspec/internal/logging"
	"github.com/aretw0/flowspec/pkg/condition"
	"github.com/aretw0/flowspec/pkg/config"
	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/gates"
	"github.com/aretw0/flowspec/pkg/ports"
)

// ErrNoConfig is reported when an Orchestrator is built without a configuration.
var ErrNoConfig = errors.New("no workflow configuration loaded")

// Orchestrator executes meta-workflows over a borrowed, read-only configuration.
// It is safe for concurrent use as long as its collaborators are.
type Orchestrator struct {
	cfg         *config.Config
	tracker     ports.Tracker
	sink        ports.EventSink
	executor    ports.Executor
	gates       *gates.Evaluator
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	stepTimeout time.Duration
	now         func() time.Time
	workspace   string
}

// New creates an Orchestrator. A nil tracker disables unit-of-work state management.
func New(cfg *config.Config, tracker ports.Tracker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		tracker:  tracker,
		executor: ports.NopExecutor{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.executor == nil {
		o.executor = ports.NopExecutor{}
	}
	o.gates = gates.New(gates.WithLogger(o.logger))
	return o
}

// Config returns the configuration the orchestrator reads.
func (o *Orchestrator) Config() *config.Config { return o.cfg }

// ListMetaWorkflows returns a summary of every configured meta-workflow.
func (o *Orchestrator) ListMetaWorkflows() []domain.MetaWorkflowSummary {
	if o.cfg == nil {
		return nil
	}
	return o.cfg.MetaWorkflows()
}

// Execute runs the named meta-workflow. taskID may be empty, in which case the
// tracker is neither read nor written. execCtx is copied, never mutated.
func (o *Orchestrator) Execute(ctx context.Context, name, taskID string, execCtx domain.ExecutionContext) (result *domain.MetaWorkflowResult) {
	result = &domain.MetaWorkflowResult{MetaWorkflowName: name, SubResults: []domain.SubWorkflowResult{}}
	logger := o.logger.With("meta_workflow", name)
	if taskID != "" {
		logger = logger.With("task_id", taskID)
	}
	started := false

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Meta-workflow panicked", "panic", r)
			result.Fail(fmt.Errorf("meta-workflow %s: internal error: %v", name, r))
			if started {
				o.emit(ctx, domain.MetaWorkflowEventType(name, domain.PhaseFailed), map[string]any{
					"task_id": taskID, "meta_workflow": name, "error": result.Error,
				})
			}
		}
		if o.hooks.OnMetaFinish != nil {
			o.hooks.OnMetaFinish(ctx, result)
		}
	}()

	if o.cfg == nil {
		return result.Fail(ErrNoConfig)
	}

	shared := execCtx.Clone()
	if taskID != "" {
		shared[domain.KeyTaskID] = taskID
	}

	logger.Info("Executing meta-workflow")
	meta, err := o.cfg.MetaWorkflow(name)
	if err != nil {
		logger.Error("Meta-workflow lookup failed", "err", err)
		return result.Fail(err)
	}

	if err := o.checkMetaInput(ctx, meta, taskID, logger); err != nil {
		logger.Error("Input state check failed", "err", err)
		return result.Fail(err)
	}

	if o.hooks.OnMetaStart != nil {
		o.hooks.OnMetaStart(ctx, name)
	}
	started = true
	o.emit(ctx, domain.MetaWorkflowEventType(name, domain.PhaseStarted), map[string]any{
		"task_id": taskID, "meta_workflow": name,
	})

	var failed *domain.SubWorkflowResult
	if meta.Orchestration.Mode == domain.ModeParallel && taskID == "" {
		result.SubResults, failed = o.runParallel(ctx, meta, shared, logger)
	} else {
		if meta.Orchestration.Mode == domain.ModeParallel {
			logger.Info("Parallel mode runs sequentially when a task is tracked")
		}
		result.SubResults, failed = o.runSequential(ctx, meta, shared, logger)
	}

	if failed != nil {
		logger.Error("Sub-workflow failed, stopping execution", "workflow", failed.WorkflowName, "err", failed.Error)
		o.emit(ctx, domain.MetaWorkflowEventType(name, domain.PhaseFailed), map[string]any{
			"task_id": taskID, "meta_workflow": name, "failed_workflow": failed.WorkflowName, "error": failed.Error,
		})
		result.Fail(&domain.SubWorkflowError{Workflow: failed.WorkflowName, Err: failed.Err})
		result.Error = failed.Error
		result.FailedStep = failed.WorkflowName
		return result
	}

	outcome := o.gates.Evaluate(meta.QualityGates, shared)
	result.Warnings = outcome.Warnings
	if !outcome.Passed {
		logger.Error("Quality gates failed", "gate", outcome.Gate, "err", outcome.Message)
		if o.hooks.OnGateFailure != nil {
			o.hooks.OnGateFailure(ctx, name, outcome.Gate)
		}
		o.emit(ctx, domain.MetaWorkflowEventType(name, domain.PhaseFailed), map[string]any{
			"task_id": taskID, "meta_workflow": name, "failed_gate": string(outcome.Gate), "error": outcome.Message,
		})
		result.Fail(outcome.Err())
		result.FailedGate = outcome.Gate
		return result
	}

	// The work already succeeded; a failed final write is only logged.
	if taskID != "" && meta.OutputState != "" && o.tracker != nil {
		if res := o.tracker.Edit(ctx, taskID, meta.OutputState); !res.Success {
			logger.Warn("Failed to update task to final state", "state", meta.OutputState, "err", res.Err)
		}
	}

	o.emit(ctx, domain.MetaWorkflowEventType(name, domain.PhaseCompleted), map[string]any{
		"task_id": taskID, "meta_workflow": name, "final_state": string(meta.OutputState),
	})

	result.Success = true
	result.FinalState = meta.OutputState
	logger.Info("Meta-workflow completed", "final_state", meta.OutputState)
	return result
}

// checkMetaInput verifies the unit of work sits at the meta-workflow's input state.
// Output without a Status line is accepted.
func (o *Orchestrator) checkMetaInput(ctx context.Context, meta domain.MetaWorkflow, taskID string, logger *slog.Logger) error {
	if meta.InputState == "" || taskID == "" || o.tracker == nil {
		return nil
	}
	view := o.tracker.View(ctx, taskID)
	if !view.Success {
		return &domain.TrackerError{Op: "view", TaskID: taskID, Reason: view.Err}
	}
	current, ok := ports.ParseStatus(view.Output)
	if !ok {
		logger.Warn("Task output has no status line, skipping input state check")
		return nil
	}
	if current != meta.InputState {
		return &domain.InvalidStateTransitionError{
			Meta:     true,
			Target:   meta.Name,
			Current:  current,
			Expected: []domain.State{meta.InputState},
		}
	}
	return nil
}

func (o *Orchestrator) runSequential(ctx context.Context, meta domain.MetaWorkflow, shared domain.ExecutionContext, logger *slog.Logger) ([]domain.SubWorkflowResult, *domain.SubWorkflowResult) {
	skipper := condition.NewEvaluator(meta.WorkflowNames(), condition.WithLogger(logger))
	results := make([]domain.SubWorkflowResult, 0, len(meta.SubWorkflows))

	for _, ref := range meta.SubWorkflows {
		if err := ctx.Err(); err != nil {
			res := failure(ref.Workflow, fmt.Errorf("meta-workflow interrupted before %s: %w", ref.Workflow, err))
			results = append(results, res)
			return results, &results[len(results)-1]
		}

		if skipper.ShouldSkip(ref, shared) {
			logger.Info("Skipping optional workflow", "workflow", ref.Workflow)
			results = append(results, skipped(ref.Workflow))
			continue
		}

		before := shared.Clone()
		res, produced := o.executeStep(ctx, ref.Workflow, shared, logger)
		applyStep(shared, res, produced)
		if changes := domain.DiffContext(before, shared); changes != nil {
			logger.Debug("Context updated", "workflow", ref.Workflow, "changes", changes)
		}

		results = append(results, res)
		if !res.Success && meta.Orchestration.StopOnError {
			return results, &results[len(results)-1]
		}
		if !res.Success {
			logger.Warn("Sub-workflow failed, continuing", "workflow", ref.Workflow, "err", res.Error)
		}
	}
	return results, nil
}

// applyStep folds a finished step into the shared context.
func applyStep(shared domain.ExecutionContext, res domain.SubWorkflowResult, produced map[string]any) {
	for k, v := range produced {
		shared[k] = v
	}
	shared[domain.CompletedKey(res.WorkflowName)] = res.Success
	if len(res.Artifacts) > 0 {
		shared[domain.ArtifactsKey(res.WorkflowName)] = res.Artifacts
	}
}

func skipped(workflow string) domain.SubWorkflowResult {
	return domain.SubWorkflowResult{WorkflowName: workflow, Success: true, Skipped: true, Artifacts: []string{}}
}

func failure(workflow string, err error) domain.SubWorkflowResult {
	return domain.SubWorkflowResult{WorkflowName: workflow, Error: err.Error(), Err: err, Artifacts: []string{}}
}
