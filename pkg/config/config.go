package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/flowspec/internal/fsutil"
	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/validation"
)

// File names probed by Discover, in order.
var FileNames = []string{"flowspec_workflow.yml", "flowspec_workflow.yaml"}

// Roles is the v2.0 role section.
type Roles struct {
	Primary         string
	ShowAllCommands bool
	Definitions     []domain.Role
}

// Config is an immutable, parsed lifecycle configuration.
type Config struct {
	path        string
	version     string
	states      []domain.State
	workflows   map[string]domain.Workflow
	transitions []domain.Transition
	metas       map[string]domain.MetaWorkflow
	roles       *Roles
	agentLoops  []domain.AgentLoop
	custom      []domain.CustomWorkflow
	raw         map[string]any

	// issues found while converting the document; reported by Validate.
	issues []error
}

// Discover returns the path of the configuration file in dir.
func Discover(dir string) (string, error) {
	for _, name := range FileNames {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", &domain.ConfigError{Kind: domain.ConfigNotFound, Path: filepath.Join(dir, FileNames[0])}
}

// LoadDir discovers and loads the configuration file in dir.
func LoadDir(dir string) (*Config, error) {
	path, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.ConfigError{Kind: domain.ConfigNotFound, Path: path}
		}
		return nil, &domain.ConfigError{Kind: domain.ConfigParse, Path: path, Err: err}
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, &domain.ConfigError{Kind: domain.ConfigParse, Path: path, Err: err}
	}
	cfg.path = path
	return cfg, nil
}

// Parse builds a Config from YAML bytes.
func Parse(data []byte) (*Config, error) {
	raw, err := ParseMap(data)
	if err != nil {
		return nil, err
	}
	return FromMap(raw)
}

// ParseMap decodes YAML bytes into a generic document map.
func ParseMap(data []byte) (map[string]any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if doc == nil {
		return map[string]any{}, nil
	}
	raw, ok := normalize(doc).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a mapping at document root, got %T", doc)
	}
	return raw, nil
}

// FromMap builds a Config from a generic document map. The map is copied.
func FromMap(raw map[string]any) (*Config, error) {
	doc := CloneMap(raw)

	var rc rawConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rc,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg := &Config{
		version:   rc.Version,
		workflows: make(map[string]domain.Workflow, len(rc.Workflows)),
		metas:     make(map[string]domain.MetaWorkflow, len(rc.MetaWorkflows)),
		raw:       doc,
	}
	for _, s := range rc.States {
		cfg.states = append(cfg.states, domain.State(s))
	}
	for name, w := range rc.Workflows {
		cfg.workflows[name] = convertWorkflow(name, w)
	}
	for i, t := range rc.Transitions {
		cfg.transitions = append(cfg.transitions, cfg.convertTransition(i, t))
	}
	for name, m := range rc.MetaWorkflows {
		cfg.metas[name] = cfg.convertMeta(name, m)
	}
	if rc.Roles != nil {
		cfg.roles = convertRoles(rc.Roles)
	}
	for _, name := range sortedKeys(rc.AgentLoops) {
		loop := rc.AgentLoops[name]
		cfg.agentLoops = append(cfg.agentLoops, domain.AgentLoop{Name: name, Description: loop.Description, Agents: loop.Agents})
	}
	for _, id := range sortedKeys(rc.CustomWorkflows) {
		cfg.custom = append(cfg.custom, convertCustom(id, rc.CustomWorkflows[id]))
	}
	return cfg, nil
}

func convertWorkflow(name string, w rawWorkflow) domain.Workflow {
	wf := domain.Workflow{
		Name:        name,
		Command:     w.Command,
		Description: w.Description,
		Agents:      w.Agents,
		OutputState: domain.State(w.OutputState),
		Optional:    w.Optional,
	}
	for _, s := range w.InputStates {
		wf.InputStates = append(wf.InputStates, domain.State(s))
	}
	return wf
}

func (c *Config) convertTransition(i int, t rawTransition) domain.Transition {
	tr := domain.Transition{
		Name:    t.Name,
		To:      domain.State(t.To),
		Via:     t.Via,
		Command: t.Command,
		Agents:  t.Agents,
	}
	for _, s := range t.From {
		tr.From = append(tr.From, domain.State(s))
	}
	mode, err := validation.Parse(t.Validation)
	if err != nil {
		c.issue(fmt.Sprintf("transitions[%d].validation", i), err.Error())
		mode = domain.NoneMode{}
	}
	tr.Validation = mode
	return tr
}

func (c *Config) convertMeta(name string, m rawMetaWorkflow) domain.MetaWorkflow {
	meta := domain.MetaWorkflow{
		Name:        name,
		Command:     m.Command,
		Description: m.Description,
		Summary:     m.Summary,
		InputState:  domain.State(m.InputState),
		OutputState: domain.State(m.OutputState),
		Orchestration: domain.Orchestration{
			Mode:        domain.ModeSequential,
			StopOnError: true,
		},
	}
	if m.Orchestration.Mode != "" {
		meta.Orchestration.Mode = domain.OrchestrationMode(strings.ToLower(m.Orchestration.Mode))
	}
	if m.Orchestration.StopOnError != nil {
		meta.Orchestration.StopOnError = *m.Orchestration.StopOnError
	}
	for _, ref := range m.SubWorkflows {
		meta.SubWorkflows = append(meta.SubWorkflows, domain.SubWorkflowRef{
			Workflow:  ref.Workflow,
			Required:  boolOr(ref.Required, true),
			Condition: strings.TrimSpace(ref.Condition),
		})
	}
	for i, g := range m.QualityGates {
		gate, err := convertGate(g)
		if err != nil {
			c.issue(fmt.Sprintf("meta_workflows.%s.quality_gates[%d]", name, i), err.Error())
			continue
		}
		meta.QualityGates = append(meta.QualityGates, gate)
	}
	return meta
}

func convertGate(g rawGate) (domain.QualityGate, error) {
	required := boolOr(g.Required, true)
	switch domain.GateType(strings.ToLower(g.Type)) {
	case domain.GateTestCoverage:
		return domain.TestCoverageGate{Threshold: floatOr(g.Threshold, domain.DefaultCoverageThreshold), Required: required}, nil
	case domain.GateSecurityScan:
		sev := domain.DefaultMinSeverity
		if g.Severity != "" {
			parsed, ok := domain.ParseSeverity(g.Severity)
			if !ok {
				return nil, fmt.Errorf("unknown severity %q", g.Severity)
			}
			sev = parsed
		}
		return domain.SecurityScanGate{MinSeverity: sev, Required: required}, nil
	case domain.GateAcceptanceCriteria:
		return domain.AcceptanceCriteriaGate{Coverage: floatOr(g.Coverage, domain.DefaultACCoverage), Required: required}, nil
	}
	return nil, fmt.Errorf("unknown quality gate type %q", g.Type)
}

func convertRoles(r *rawRoles) *Roles {
	roles := &Roles{Primary: r.Primary, ShowAllCommands: r.ShowAllCommands}
	for _, name := range sortedKeys(r.Definitions) {
		def := r.Definitions[name]
		roles.Definitions = append(roles.Definitions, domain.Role{
			Name:        name,
			DisplayName: def.DisplayName,
			Icon:        def.Icon,
			Commands:    def.Commands,
			Agents:      def.Agents,
		})
	}
	return roles
}

func convertCustom(id string, w rawCustomWorkflow) domain.CustomWorkflow {
	cw := domain.CustomWorkflow{ID: id, Name: w.Name, Description: w.Description, Mode: w.Mode, Rigor: w.Rigor}
	for _, s := range w.Steps {
		cw.Steps = append(cw.Steps, domain.CustomStep(s))
	}
	return cw
}

func (c *Config) issue(path, reason string) {
	c.issues = append(c.issues, &domain.ValidationError{Path: path, Reason: reason})
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func floatOr(f *float64, def float64) float64 {
	if f == nil {
		return def
	}
	return *f
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// Path returns the file the config was loaded from, if any.
func (c *Config) Path() string { return c.path }

// Version returns the declared schema version, or "" when absent.
func (c *Config) Version() string { return c.version }

// Raw returns a deep copy of the underlying document.
func (c *Config) Raw() map[string]any { return CloneMap(c.raw) }

// States returns the declared states in order.
func (c *Config) States() []domain.State { return slices.Clone(c.states) }

// HasState reports whether s is declared.
func (c *Config) HasState(s domain.State) bool { return domain.ContainsState(c.states, s) }

// Transitions returns the declared transitions in order.
func (c *Config) Transitions() []domain.Transition {
	out := make([]domain.Transition, len(c.transitions))
	for i, t := range c.transitions {
		out[i] = cloneTransition(t)
	}
	return out
}

// Transition returns the transition with the given name.
func (c *Config) Transition(name string) (domain.Transition, bool) {
	for _, t := range c.transitions {
		if t.Name == name {
			return cloneTransition(t), true
		}
	}
	return domain.Transition{}, false
}

// TransitionNames returns the names of the declared transitions in order.
func (c *Config) TransitionNames() []string {
	names := make([]string, 0, len(c.transitions))
	for _, t := range c.transitions {
		names = append(names, t.Name)
	}
	return names
}

// WorkflowNames returns the workflow names, sorted.
func (c *Config) WorkflowNames() []string { return sortedKeys(c.workflows) }

// Workflows returns every workflow, sorted by name.
func (c *Config) Workflows() []domain.Workflow {
	out := make([]domain.Workflow, 0, len(c.workflows))
	for _, name := range c.WorkflowNames() {
		out = append(out, cloneWorkflow(c.workflows[name]))
	}
	return out
}

// Workflow returns the workflow definition for name.
func (c *Config) Workflow(name string) (domain.Workflow, error) {
	w, ok := c.workflows[name]
	if !ok {
		return domain.Workflow{}, &domain.UnknownWorkflowError{Name: name, Available: c.WorkflowNames()}
	}
	return cloneWorkflow(w), nil
}

// Agents returns the agents assigned to a workflow.
func (c *Config) Agents(workflow string) ([]string, error) {
	w, err := c.Workflow(workflow)
	if err != nil {
		return nil, err
	}
	return w.Agents, nil
}

// MetaWorkflowNames returns the meta-workflow names, sorted.
func (c *Config) MetaWorkflowNames() []string { return sortedKeys(c.metas) }

// MetaWorkflow returns the meta-workflow definition for name.
func (c *Config) MetaWorkflow(name string) (domain.MetaWorkflow, error) {
	m, ok := c.metas[name]
	if !ok {
		return domain.MetaWorkflow{}, &domain.UnknownMetaWorkflowError{Name: name, Available: c.MetaWorkflowNames()}
	}
	return cloneMeta(m), nil
}

// MetaWorkflows returns a summary of every meta-workflow, sorted by name.
func (c *Config) MetaWorkflows() []domain.MetaWorkflowSummary {
	out := make([]domain.MetaWorkflowSummary, 0, len(c.metas))
	for _, name := range c.MetaWorkflowNames() {
		out = append(out, c.metas[name].Summarize())
	}
	return out
}

// Roles returns the role section, or nil when absent.
func (c *Config) Roles() *Roles {
	if c.roles == nil {
		return nil
	}
	out := *c.roles
	out.Definitions = slices.Clone(c.roles.Definitions)
	return &out
}

// AgentLoops returns the agent loops, sorted by name.
func (c *Config) AgentLoops() []domain.AgentLoop { return slices.Clone(c.agentLoops) }

// CustomWorkflows returns the custom workflows, sorted by id.
func (c *Config) CustomWorkflows() []domain.CustomWorkflow { return slices.Clone(c.custom) }

func cloneWorkflow(w domain.Workflow) domain.Workflow {
	w.Agents = slices.Clone(w.Agents)
	w.InputStates = slices.Clone(w.InputStates)
	return w
}

func cloneTransition(t domain.Transition) domain.Transition {
	t.From = slices.Clone(t.From)
	t.Agents = slices.Clone(t.Agents)
	return t
}

func cloneMeta(m domain.MetaWorkflow) domain.MetaWorkflow {
	m.SubWorkflows = slices.Clone(m.SubWorkflows)
	m.QualityGates = slices.Clone(m.QualityGates)
	return m
}

// Save writes the document behind cfg to path.
func Save(cfg *Config, path string) error {
	return SaveMap(cfg.raw, path)
}

// SaveMap writes a generic document map as YAML, atomically.
func SaveMap(raw map[string]any, path string) error {
	data, err := Encode(raw)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0644)
}

// SectionOrder is the order top-level keys are written in. Unknown keys follow, sorted.
var SectionOrder = []string{
	"version", "states", "workflows", "transitions", "meta_workflows",
	"roles", "agent_loops", "custom_workflows", "metadata",
}

// Encode renders a document map as YAML with top-level sections in SectionOrder.
func Encode(raw map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(raw))
	for _, k := range SectionOrder {
		if _, ok := raw[k]; ok {
			keys = append(keys, k)
		}
	}
	for _, k := range sortedKeys(raw) {
		if !slices.Contains(SectionOrder, k) {
			keys = append(keys, k)
		}
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		var value yaml.Node
		if err := value.Encode(raw[k]); err != nil {
			return nil, fmt.Errorf("failed to encode config section %s: %w", k, err)
		}
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &value)
	}
	data, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// CloneMap deep-copies a generic document map.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return cloneValue(m).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// normalize converts map[any]any nodes into map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}
