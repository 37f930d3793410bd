package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/ports"
)

// ExecuteSubWorkflow runs a single workflow step against the unit of work named
// by the context's task_id. The step is checked against its input states,
// delegated to the executor and, on success, the task moves to its output state.
func (o *Orchestrator) ExecuteSubWorkflow(ctx context.Context, name string, execCtx domain.ExecutionContext) domain.SubWorkflowResult {
	if o.cfg == nil {
		return failure(name, ErrNoConfig)
	}
	res, _ := o.executeStep(ctx, name, execCtx.Clone(), o.logger)
	return res
}

// executeStep returns the step result and the context values the executor produced.
func (o *Orchestrator) executeStep(ctx context.Context, name string, shared domain.ExecutionContext, logger *slog.Logger) (domain.SubWorkflowResult, map[string]any) {
	start := o.now()
	logger = logger.With("workflow", name)

	res, produced := o.runWorkflow(ctx, name, shared, logger)
	if o.hooks.OnStepFinish != nil {
		o.hooks.OnStepFinish(ctx, res, o.now().Sub(start))
	}
	return res, produced
}

func (o *Orchestrator) runWorkflow(ctx context.Context, name string, shared domain.ExecutionContext, logger *slog.Logger) (domain.SubWorkflowResult, map[string]any) {
	wf, err := o.cfg.Workflow(name)
	if err != nil {
		return failure(name, err), nil
	}
	if wf.OutputState == "" {
		return failure(name, fmt.Errorf("workflow '%s' has no output_state defined: %w", name, domain.ErrConfigInvalid)), nil
	}

	taskID := shared.String(domain.KeyTaskID)
	tracked := taskID != "" && o.tracker != nil

	if tracked {
		view := o.tracker.View(ctx, taskID)
		if !view.Success {
			return failure(name, &domain.TrackerError{Op: "view", TaskID: taskID, Reason: view.Err}), nil
		}
		current, ok := ports.ParseStatus(view.Output)
		switch {
		case !ok:
			logger.Warn("Task output has no status line, skipping input state check")
		case len(wf.InputStates) > 0 && !wf.AcceptsState(current):
			return failure(name, &domain.InvalidStateTransitionError{
				Target:   name,
				Current:  current,
				Expected: slices.Clone(wf.InputStates),
			}), nil
		}
	}

	o.emit(ctx, domain.WorkflowEventType(name, domain.PhaseStarted), map[string]any{
		"task_id": taskID, "workflow": name, "agents": slices.Clone(wf.Agents),
	})
	logger.Info("Executing workflow", "agents", wf.Agents)

	out, err := o.runStep(ctx, domain.Step{TaskID: taskID, Workflow: wf, Context: shared.Clone()})
	if err != nil {
		logger.Error("Workflow step failed", "err", err)
		o.emit(ctx, domain.WorkflowEventType(name, domain.PhaseFailed), map[string]any{
			"task_id": taskID, "workflow": name, "error": err.Error(),
		})
		return failure(name, err), out.Context
	}

	if tracked {
		if edit := o.tracker.Edit(ctx, taskID, wf.OutputState); !edit.Success {
			err := &domain.TrackerError{Op: "edit", TaskID: taskID, Reason: edit.Err}
			logger.Error("Failed to update task state", "state", wf.OutputState, "err", err)
			return failure(name, err), out.Context
		}
	}

	o.emit(ctx, domain.WorkflowEventType(name, domain.PhaseCompleted), map[string]any{
		"task_id": taskID, "workflow": name, "output_state": string(wf.OutputState),
	})

	artifacts := out.Artifacts
	if len(artifacts) == 0 {
		artifacts = contextArtifacts(shared, name)
	}
	if artifacts == nil {
		artifacts = []string{}
	}

	return domain.SubWorkflowResult{
		WorkflowName: name,
		Success:      true,
		Artifacts:    artifacts,
		OutputState:  wf.OutputState,
	}, out.Context
}

// runStep calls the executor with the step timeout applied. A panicking
// executor is reported as a failure.
func (o *Orchestrator) runStep(ctx context.Context, step domain.Step) (domain.StepOutput, error) {
	if o.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.stepTimeout)
		defer cancel()
	}

	type reply struct {
		out domain.StepOutput
		err error
	}
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("workflow %s panicked: %v", step.Workflow.Name, r)}
			}
		}()
		out, err := o.executor.Execute(ctx, step)
		done <- reply{out: out, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() != nil {
			return r.out, fmt.Errorf("workflow %s: %w after %s", step.Workflow.Name, domain.ErrStepTimeout, o.stepTimeout)
		}
		return r.out, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.StepOutput{}, fmt.Errorf("workflow %s: %w after %s", step.Workflow.Name, domain.ErrStepTimeout, o.stepTimeout)
		}
		return domain.StepOutput{}, fmt.Errorf("workflow %s: %w", step.Workflow.Name, ctx.Err())
	}
}

// contextArtifacts reads artifacts a previous run recorded under "<workflow>_artifacts".
func contextArtifacts(ctx domain.ExecutionContext, workflow string) []string {
	switch v := ctx[domain.ArtifactsKey(workflow)].(type) {
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
