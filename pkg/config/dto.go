package config

// The raw* types mirror the YAML document. They are decoded with mapstructure
// from the generic map produced by yaml.v3 and then converted to domain types.

type rawConfig struct {
	Version         string                       `mapstructure:"version"`
	States          []string                     `mapstructure:"states"`
	Workflows       map[string]rawWorkflow       `mapstructure:"workflows"`
	Transitions     []rawTransition              `mapstructure:"transitions"`
	MetaWorkflows   map[string]rawMetaWorkflow   `mapstructure:"meta_workflows"`
	Roles           *rawRoles                    `mapstructure:"roles"`
	AgentLoops      map[string]rawAgentLoop      `mapstructure:"agent_loops"`
	CustomWorkflows map[string]rawCustomWorkflow `mapstructure:"custom_workflows"`
	Metadata        map[string]any               `mapstructure:"metadata"`
}

type rawWorkflow struct {
	Command     string   `mapstructure:"command"`
	Description string   `mapstructure:"description"`
	Agents      []string `mapstructure:"agents"`
	InputStates []string `mapstructure:"input_states"`
	OutputState string   `mapstructure:"output_state"`
	Optional    bool     `mapstructure:"optional"`
}

type rawTransition struct {
	Name       string   `mapstructure:"name"`
	From       []string `mapstructure:"from"`
	To         string   `mapstructure:"to"`
	Via        string   `mapstructure:"via"`
	Command    string   `mapstructure:"command"`
	Agents     []string `mapstructure:"agents"`
	Validation string   `mapstructure:"validation"`
}

type rawSubWorkflow struct {
	Workflow  string `mapstructure:"workflow"`
	Required  *bool  `mapstructure:"required"`
	Condition string `mapstructure:"condition"`
}

type rawGate struct {
	Type      string   `mapstructure:"type"`
	Threshold *float64 `mapstructure:"threshold"`
	Severity  string   `mapstructure:"severity"`
	Coverage  *float64 `mapstructure:"coverage"`
	Required  *bool    `mapstructure:"required"`
}

type rawOrchestration struct {
	Mode        string `mapstructure:"mode"`
	StopOnError *bool  `mapstructure:"stop_on_error"`
}

type rawMetaWorkflow struct {
	Command       string           `mapstructure:"command"`
	Description   string           `mapstructure:"description"`
	Summary       string           `mapstructure:"summary"`
	InputState    string           `mapstructure:"input_state"`
	OutputState   string           `mapstructure:"output_state"`
	SubWorkflows  []rawSubWorkflow `mapstructure:"sub_workflows"`
	QualityGates  []rawGate        `mapstructure:"quality_gates"`
	Orchestration rawOrchestration `mapstructure:"orchestration"`
}

type rawRole struct {
	DisplayName string   `mapstructure:"display_name"`
	Icon        string   `mapstructure:"icon"`
	Commands    []string `mapstructure:"commands"`
	Agents      []string `mapstructure:"agents"`
}

type rawRoles struct {
	Primary         string             `mapstructure:"primary"`
	ShowAllCommands bool               `mapstructure:"show_all_commands"`
	Definitions     map[string]rawRole `mapstructure:"definitions"`
}

type rawAgentLoop struct {
	Description string   `mapstructure:"description"`
	Agents      []string `mapstructure:"agents"`
}

type rawCustomStep struct {
	Workflow   string `mapstructure:"workflow"`
	Condition  string `mapstructure:"condition"`
	Checkpoint string `mapstructure:"checkpoint"`
}

type rawCustomWorkflow struct {
	Name        string          `mapstructure:"name"`
	Description string          `mapstructure:"description"`
	Mode        string          `mapstructure:"mode"`
	Steps       []rawCustomStep `mapstructure:"steps"`
	Rigor       map[string]bool `mapstructure:"rigor"`
}
