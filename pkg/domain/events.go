package domain

import (
	"context"
	"fmt"
	"time"
)

// Event is a lifecycle notification sent to an EventSink.
type Event struct {
	ID            string         `json:"event_id"`
	Type          string         `json:"event_type"`
	Timestamp     time.Time      `json:"timestamp"`
	ProjectRoot   string         `json:"project_root,omitempty"`
	SchemaVersion string         `json:"schema_version"`
	Context       map[string]any `json:"context,omitempty"`
}

// Event phases.
const (
	PhaseStarted   = "started"
	PhaseCompleted = "completed"
	PhaseFailed    = "failed"
)

// MetaWorkflowEventType returns "meta_workflow.<name>.<phase>".
func MetaWorkflowEventType(name, phase string) string {
	return fmt.Sprintf("meta_workflow.%s.%s", name, phase)
}

// WorkflowEventType returns "workflow.<name>.<phase>".
func WorkflowEventType(name, phase string) string {
	return fmt.Sprintf("workflow.%s.%s", name, phase)
}

// LifecycleHooks defines callbacks for orchestrator observability.
// Every field is optional.
type LifecycleHooks struct {
	OnMetaStart   func(ctx context.Context, meta string)
	OnMetaFinish  func(ctx context.Context, result *MetaWorkflowResult)
	OnStepFinish  func(ctx context.Context, result SubWorkflowResult, elapsed time.Duration)
	OnGateFailure func(ctx context.Context, meta string, gate GateType)
}
