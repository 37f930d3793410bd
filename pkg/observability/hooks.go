package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/flowspec/pkg/domain"
)

// LogHooks returns lifecycle hooks that audit runs through logger.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMetaStart: func(_ context.Context, meta string) {
			logger.Info("meta_workflow_start", "meta_workflow", meta)
		},
		OnMetaFinish: func(_ context.Context, result *domain.MetaWorkflowResult) {
			if result == nil {
				return
			}
			if result.Success {
				logger.Info("meta_workflow_finish", "meta_workflow", result.MetaWorkflowName, "final_state", result.FinalState)
				return
			}
			logger.Warn("meta_workflow_finish",
				"meta_workflow", result.MetaWorkflowName,
				"failed_step", result.FailedStep,
				"failed_gate", result.FailedGate,
				"err", result.Error,
			)
		},
		OnStepFinish: func(_ context.Context, result domain.SubWorkflowResult, elapsed time.Duration) {
			logger.Debug("step_finish",
				"workflow", result.WorkflowName,
				"success", result.Success,
				"skipped", result.Skipped,
				"elapsed", elapsed,
			)
		},
		OnGateFailure: func(_ context.Context, meta string, gate domain.GateType) {
			logger.Warn("quality_gate_failure", "meta_workflow", meta, "gate", gate)
		},
	}
}

// Chain merges hook sets; each callback runs in argument order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMetaStart: func(ctx context.Context, meta string) {
			for _, h := range sets {
				if h.OnMetaStart != nil {
					h.OnMetaStart(ctx, meta)
				}
			}
		},
		OnMetaFinish: func(ctx context.Context, result *domain.MetaWorkflowResult) {
			for _, h := range sets {
				if h.OnMetaFinish != nil {
					h.OnMetaFinish(ctx, result)
				}
			}
		},
		OnStepFinish: func(ctx context.Context, result domain.SubWorkflowResult, elapsed time.Duration) {
			for _, h := range sets {
				if h.OnStepFinish != nil {
					h.OnStepFinish(ctx, result, elapsed)
				}
			}
		},
		OnGateFailure: func(ctx context.Context, meta string, gate domain.GateType) {
			for _, h := range sets {
				if h.OnGateFailure != nil {
					h.OnGateFailure(ctx, meta, gate)
				}
			}
		},
	}
}
