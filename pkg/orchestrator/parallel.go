package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/flowspec/pkg/condition"
	"github.com/aretw0/flowspec/pkg/domain"
)

// runParallel executes untracked steps concurrently. Skip decisions are taken
// up front against the starting context; each step sees its own copy and the
// outputs are merged back in declared order.
func (o *Orchestrator) runParallel(ctx context.Context, meta domain.MetaWorkflow, shared domain.ExecutionContext, logger *slog.Logger) ([]domain.SubWorkflowResult, *domain.SubWorkflowResult) {
	skipper := condition.NewEvaluator(meta.WorkflowNames(), condition.WithLogger(logger))
	snapshot := shared.Clone()

	results := make([]domain.SubWorkflowResult, len(meta.SubWorkflows))
	produced := make([]map[string]any, len(meta.SubWorkflows))
	ran := make([]bool, len(meta.SubWorkflows))

	var wg sync.WaitGroup
	for i, ref := range meta.SubWorkflows {
		if skipper.ShouldSkip(ref, snapshot) {
			logger.Info("Skipping optional workflow", "workflow", ref.Workflow)
			results[i] = skipped(ref.Workflow)
			continue
		}
		ran[i] = true
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i], produced[i] = o.executeStep(ctx, name, snapshot.Clone(), logger)
		}(i, ref.Workflow)
	}
	wg.Wait()

	var failed *domain.SubWorkflowResult
	for i := range results {
		if !ran[i] {
			continue
		}
		applyStep(shared, results[i], produced[i])
		if !results[i].Success && failed == nil {
			if meta.Orchestration.StopOnError {
				failed = &results[i]
			} else {
				logger.Warn("Sub-workflow failed, continuing", "workflow", results[i].WorkflowName, "err", results[i].Error)
			}
		}
	}
	return results, failed
}
