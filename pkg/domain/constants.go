package domain

// Execution context keys read by gates, conditions and the orchestrator.
const (
	KeyTaskID           = "task_id"
	KeyTestCoverage     = "test_coverage"
	KeySecurityFindings = "security_findings"
	KeyACCoverage       = "ac_coverage"
	KeyComplexityScore  = "complexity_score"
	KeyLightMode        = "light_mode"
)

// Suffixes of the per-step keys the orchestrator writes into the context.
const (
	SuffixCompleted = "_completed"
	SuffixArtifacts = "_artifacts"
)

// CompletedKey returns the context key marking a workflow as finished.
func CompletedKey(workflow string) string { return workflow + SuffixCompleted }

// ArtifactsKey returns the context key holding a workflow's artifacts.
func ArtifactsKey(workflow string) string { return workflow + SuffixArtifacts }

// StatusPrefix marks the state line in tracker view output.
const StatusPrefix = "Status:"

// SchemaVersion is the event schema version stamped on every emitted event.
const SchemaVersion = "1.0"
