package config

import (
	"fmt"

	"github.com/aretw0/flowspec/pkg/condition"
	"github.com/aretw0/flowspec/pkg/domain"
)

// Validate checks the structural invariants of the configuration and returns
// every violation at once as a *domain.AggregateError, or nil.
func (c *Config) Validate() error {
	v := &validator{cfg: c, errs: append([]error{}, c.issues...)}
	v.states()
	v.transitions()
	v.workflows()
	v.metaWorkflows()
	if len(v.errs) == 0 {
		return nil
	}
	return &domain.AggregateError{Errors: v.errs}
}

type validator struct {
	cfg  *Config
	errs []error
}

func (v *validator) add(path, format string, args ...any) {
	v.errs = append(v.errs, &domain.ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)})
}

func (v *validator) states() {
	seen := make(map[domain.State]bool, len(v.cfg.states))
	for i, s := range v.cfg.states {
		if s == "" {
			v.add(fmt.Sprintf("states[%d]", i), "state name cannot be empty")
			continue
		}
		if seen[s] {
			v.add(fmt.Sprintf("states[%d]", i), "duplicate state %q", s)
		}
		seen[s] = true
	}
}

func (v *validator) transitions() {
	seen := make(map[string]bool, len(v.cfg.transitions))
	for i, t := range v.cfg.transitions {
		path := fmt.Sprintf("transitions[%d]", i)
		if t.Name == "" {
			v.add(path+".name", "transition name is required")
		} else if seen[t.Name] {
			v.add(path+".name", "duplicate transition %q", t.Name)
		}
		seen[t.Name] = true

		if len(t.From) == 0 {
			v.add(path+".from", "at least one source state is required")
		}
		for _, from := range t.From {
			if !v.cfg.HasState(from) {
				v.add(path+".from", "state %q is not declared", from)
			}
		}
		if t.To == "" {
			v.add(path+".to", "destination state is required")
		} else if !v.cfg.HasState(t.To) {
			v.add(path+".to", "state %q is not declared", t.To)
		}
	}
}

func (v *validator) workflows() {
	for _, name := range v.cfg.WorkflowNames() {
		w := v.cfg.workflows[name]
		path := "workflows." + name
		if len(w.InputStates) == 0 {
			v.add(path+".input_states", "at least one input state is required")
		}
		if w.OutputState == "" {
			v.add(path+".output_state", "output state is required")
		}
	}
}

func (v *validator) metaWorkflows() {
	for _, name := range v.cfg.MetaWorkflowNames() {
		m := v.cfg.metas[name]
		path := "meta_workflows." + name

		switch m.Orchestration.Mode {
		case domain.ModeSequential, domain.ModeParallel:
		default:
			v.add(path+".orchestration.mode", "unknown mode %q", m.Orchestration.Mode)
		}
		if len(m.SubWorkflows) == 0 {
			v.add(path+".sub_workflows", "at least one sub-workflow is required")
		}

		allowed := condition.Allowed(m.WorkflowNames())
		for i, ref := range m.SubWorkflows {
			refPath := fmt.Sprintf("%s.sub_workflows[%d]", path, i)
			if _, ok := v.cfg.workflows[ref.Workflow]; !ok {
				v.add(refPath+".workflow", "workflow %q is not defined", ref.Workflow)
			}
			if ref.Condition == "" {
				continue
			}
			if ref.Required {
				v.add(refPath+".condition", "required sub-workflow %q cannot carry a condition", ref.Workflow)
				continue
			}
			if _, err := condition.Compile(ref.Condition, allowed); err != nil {
				v.add(refPath+".condition", "%v", err)
			}
		}
	}
}
