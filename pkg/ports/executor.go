package ports

import (
	"context"

	"github.com/aretw0/flowspec/pkg/domain"
)

// Executor performs the work of one workflow step.
// It must honor ctx cancellation; the orchestrator bounds each call with a timeout.
type Executor interface {
	Execute(ctx context.Context, step domain.Step) (domain.StepOutput, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, step domain.Step) (domain.StepOutput, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, step domain.Step) (domain.StepOutput, error) {
	return f(ctx, step)
}

// NopExecutor succeeds immediately without producing artifacts.
type NopExecutor struct{}

// Execute returns an empty output.
func (NopExecutor) Execute(context.Context, domain.Step) (domain.StepOutput, error) {
	return domain.StepOutput{}, nil
}
