package domain

import (
	"encoding/json"
	"maps"
)

// ExecutionContext is the shared key/value bag threaded through a meta-workflow run.
// Values come from callers (coverage, findings, complexity) and from completed steps.
type ExecutionContext map[string]any

// Clone returns a shallow copy safe to mutate.
func (c ExecutionContext) Clone() ExecutionContext {
	out := make(ExecutionContext, len(c))
	maps.Copy(out, c)
	return out
}

// Float returns the numeric value at key, or def when missing or not a number.
func (c ExecutionContext) Float(key string, def float64) float64 {
	v, ok := c[key]
	if !ok || v == nil {
		return def
	}
	if f, ok := toFloat(v); ok {
		return f
	}
	return def
}

// Bool returns the boolean at key, or def when missing or not a bool.
func (c ExecutionContext) Bool(key string, def bool) bool {
	if b, ok := c[key].(bool); ok {
		return b
	}
	return def
}

// String returns the string at key, or the empty string.
func (c ExecutionContext) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Findings returns the severity of every entry in the security findings list.
// Entries may be maps with a "severity" key or plain severity strings.
func (c ExecutionContext) Findings() []Severity {
	var out []Severity
	appendOne := func(item any) {
		switch f := item.(type) {
		case map[string]any:
			if s, ok := f["severity"].(string); ok {
				out = append(out, Severity(s))
			}
		case map[string]string:
			out = append(out, Severity(f["severity"]))
		case string:
			out = append(out, Severity(f))
		case Severity:
			out = append(out, f)
		}
	}
	switch list := c[KeySecurityFindings].(type) {
	case []any:
		for _, item := range list {
			appendOne(item)
		}
	case []map[string]any:
		for _, item := range list {
			appendOne(item)
		}
	case []map[string]string:
		for _, item := range list {
			appendOne(item)
		}
	case []string:
		for _, item := range list {
			appendOne(item)
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Step is the unit of work handed to an Executor.
type Step struct {
	TaskID   string           `json:"task_id,omitempty"`
	Workflow Workflow         `json:"workflow"`
	Context  ExecutionContext `json:"context"`
}

// StepOutput is what an Executor reports back for a finished step.
type StepOutput struct {
	Artifacts []string       `json:"artifacts,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// SubWorkflowResult describes the outcome of one step of a meta-workflow.
type SubWorkflowResult struct {
	WorkflowName string   `json:"workflow_name"`
	Success      bool     `json:"success"`
	Skipped      bool     `json:"skipped"`
	Error        string   `json:"error,omitempty"`
	Artifacts    []string `json:"artifacts"`
	OutputState  State    `json:"output_state,omitempty"`

	// Err is the typed failure behind Error, when there is one.
	Err error `json:"-"`
}

// MetaWorkflowResult describes the outcome of a meta-workflow run.
type MetaWorkflowResult struct {
	MetaWorkflowName string              `json:"meta_workflow_name"`
	Success          bool                `json:"success"`
	SubResults       []SubWorkflowResult `json:"sub_results"`
	FinalState       State               `json:"final_state,omitempty"`
	Error            string              `json:"error,omitempty"`

	// FailedStep names the sub-workflow that aborted the run, if any.
	FailedStep string `json:"failed_step,omitempty"`
	// FailedGate names the quality gate that blocked the run, if any.
	FailedGate GateType `json:"failed_gate,omitempty"`
	// Warnings lists non-required gate failures.
	Warnings []string `json:"warnings,omitempty"`

	Err error `json:"-"`
}

// Fail marks the result failed with err.
func (r *MetaWorkflowResult) Fail(err error) *MetaWorkflowResult {
	r.Success = false
	r.Err = err
	r.Error = err.Error()
	return r
}
