package domain

// Workflow is a single named lifecycle stage.
type Workflow struct {
	Name        string   `json:"name"`
	Command     string   `json:"command,omitempty"`
	Description string   `json:"description,omitempty"`
	Agents      []string `json:"agents,omitempty"`
	InputStates []State  `json:"input_states"`
	OutputState State    `json:"output_state"`
	Optional    bool     `json:"optional,omitempty"`
}

// AcceptsState reports whether the workflow may start from the given state.
func (w Workflow) AcceptsState(current State) bool {
	return ContainsState(w.InputStates, current)
}

// OrchestrationMode is the execution mode for the sub-workflows of a meta-workflow.
type OrchestrationMode string

const (
	ModeSequential OrchestrationMode = "sequential"
	ModeParallel   OrchestrationMode = "parallel"
)

// Orchestration configures how a meta-workflow runs its sub-workflows.
type Orchestration struct {
	Mode        OrchestrationMode `json:"mode"`
	StopOnError bool              `json:"stop_on_error"`
}

// SubWorkflowRef is one ordered step of a meta-workflow.
// Skip evaluation only applies when Required is false.
type SubWorkflowRef struct {
	Workflow  string `json:"workflow"`
	Required  bool   `json:"required"`
	Condition string `json:"condition,omitempty"`
}

// MetaWorkflow composes workflows into a higher-level phase.
type MetaWorkflow struct {
	Name          string           `json:"name"`
	Command       string           `json:"command,omitempty"`
	Description   string           `json:"description,omitempty"`
	Summary       string           `json:"summary,omitempty"`
	InputState    State            `json:"input_state,omitempty"`
	OutputState   State            `json:"output_state,omitempty"`
	SubWorkflows  []SubWorkflowRef `json:"sub_workflows"`
	QualityGates  []QualityGate    `json:"-"`
	Orchestration Orchestration    `json:"orchestration"`
}

// WorkflowNames returns the sub-workflow names in declared order.
func (m MetaWorkflow) WorkflowNames() []string {
	names := make([]string, len(m.SubWorkflows))
	for i, ref := range m.SubWorkflows {
		names[i] = ref.Workflow
	}
	return names
}

// MetaWorkflowSummary is the listing view of a meta-workflow.
type MetaWorkflowSummary struct {
	Name         string   `json:"name"`
	Command      string   `json:"command,omitempty"`
	Description  string   `json:"description,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	InputState   State    `json:"input_state,omitempty"`
	OutputState  State    `json:"output_state,omitempty"`
	SubWorkflows []string `json:"sub_workflows"`
}

// Summarize builds the listing view of the meta-workflow.
func (m MetaWorkflow) Summarize() MetaWorkflowSummary {
	return MetaWorkflowSummary{
		Name:         m.Name,
		Command:      m.Command,
		Description:  m.Description,
		Summary:      m.Summary,
		InputState:   m.InputState,
		OutputState:  m.OutputState,
		SubWorkflows: m.WorkflowNames(),
	}
}

// Role groups commands and agents under a persona (v2.0 schema).
type Role struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Commands    []string `json:"commands,omitempty"`
	Agents      []string `json:"agents,omitempty"`
}

// AgentLoop classifies agents into the inner (velocity) or outer (governance) loop.
type AgentLoop struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Agents      []string `json:"agents"`
}

// CustomStep is one entry of a user-defined workflow.
type CustomStep struct {
	Workflow   string `json:"workflow"`
	Condition  string `json:"condition,omitempty"`
	Checkpoint string `json:"checkpoint,omitempty"`
}

// CustomWorkflow is a user-defined multi-step workflow (v2.0 schema).
type CustomWorkflow struct {
	ID          string          `json:"id"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Mode        string          `json:"mode,omitempty"`
	Steps       []CustomStep    `json:"steps"`
	Rigor       map[string]bool `json:"rigor,omitempty"`
}
