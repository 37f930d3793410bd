package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfigNotFound is returned when no workflow configuration exists at the given location.
	ErrConfigNotFound = errors.New("workflow config not found")

	// ErrConfigInvalid is returned when a configuration fails to parse or validate.
	ErrConfigInvalid = errors.New("invalid workflow config")

	// ErrWorkflowNotFound is returned when a workflow name is not defined in the configuration.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrMetaWorkflowNotFound is returned when a meta-workflow name is not defined in the configuration.
	ErrMetaWorkflowNotFound = errors.New("meta-workflow not found")

	// ErrTransitionNotFound is returned when a transition name is not defined in the configuration.
	ErrTransitionNotFound = errors.New("transition not found")

	// ErrInvalidStateTransition is returned when a unit of work is not in a state
	// from which the requested workflow or meta-workflow may start.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrQualityGateFailed is returned when a required quality gate does not pass.
	ErrQualityGateFailed = errors.New("quality gate failed")

	// ErrSubWorkflowFailed is returned when a delegated sub-workflow fails.
	ErrSubWorkflowFailed = errors.New("sub-workflow failed")

	// ErrTrackerUnavailable is returned when the task tracker cannot be read or written.
	ErrTrackerUnavailable = errors.New("task tracker unavailable")

	// ErrInvalidValidationMode is returned when validation-mode text cannot be parsed.
	ErrInvalidValidationMode = errors.New("invalid validation mode")

	// ErrApprovalRequired is returned when supplied evidence does not satisfy a transition gate.
	ErrApprovalRequired = errors.New("approval required")

	// ErrStepTimeout is returned when a delegated step does not finish in time.
	ErrStepTimeout = errors.New("step timed out")
)

// ConfigErrorKind classifies a ConfigError.
type ConfigErrorKind string

const (
	ConfigNotFound ConfigErrorKind = "not_found"
	ConfigParse    ConfigErrorKind = "parse"
	ConfigInvalid  ConfigErrorKind = "invalid"
)

// ConfigError describes a failure to load a configuration.
type ConfigError struct {
	Kind ConfigErrorKind
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	switch e.Kind {
	case ConfigNotFound:
		return fmt.Sprintf("workflow config not found: %s", e.Path)
	case ConfigParse:
		return fmt.Sprintf("failed to parse workflow config %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("invalid workflow config %s: %v", e.Path, e.Err)
	}
}

func (e *ConfigError) Unwrap() []error {
	sentinel := ErrConfigInvalid
	if e.Kind == ConfigNotFound {
		sentinel = ErrConfigNotFound
	}
	if e.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Err}
}

// UnknownWorkflowError is returned when a workflow lookup fails.
type UnknownWorkflowError struct {
	Name      string
	Available []string
}

func (e *UnknownWorkflowError) Error() string {
	return fmt.Sprintf("workflow '%s' not defined in configuration. Available: %s",
		e.Name, strings.Join(e.Available, ", "))
}

func (e *UnknownWorkflowError) Unwrap() error { return ErrWorkflowNotFound }

// UnknownMetaWorkflowError is returned when a meta-workflow lookup fails.
type UnknownMetaWorkflowError struct {
	Name      string
	Available []string
}

func (e *UnknownMetaWorkflowError) Error() string {
	return fmt.Sprintf("meta-workflow '%s' not found. Available: %s",
		e.Name, strings.Join(e.Available, ", "))
}

func (e *UnknownMetaWorkflowError) Unwrap() error { return ErrMetaWorkflowNotFound }

// InvalidStateTransitionError reports a unit of work that sits outside the
// states a workflow or meta-workflow accepts.
type InvalidStateTransitionError struct {
	// Meta is true when the rejected target is a meta-workflow.
	Meta     bool
	Target   string
	Current  State
	Expected []State
}

func (e *InvalidStateTransitionError) Error() string {
	if e.Meta {
		required := ""
		if len(e.Expected) > 0 {
			required = string(e.Expected[0])
		}
		return fmt.Sprintf("cannot execute meta-workflow '%s' from state '%s'. Required input state: %s",
			e.Target, e.Current, required)
	}
	return fmt.Sprintf("cannot execute '%s' from state '%s'. Valid input states: [%s]",
		e.Target, e.Current, strings.Join(StateNames(e.Expected), ", "))
}

func (e *InvalidStateTransitionError) Unwrap() error { return ErrInvalidStateTransition }

// InvalidValidationModeError reports unparseable validation-mode text.
type InvalidValidationModeError struct {
	Text   string
	Reason string
}

func (e *InvalidValidationModeError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid validation mode: %q", e.Text)
	}
	return fmt.Sprintf("invalid validation mode %q: %s", e.Text, e.Reason)
}

func (e *InvalidValidationModeError) Unwrap() error { return ErrInvalidValidationMode }

// QualityGateError reports the first required gate that failed.
type QualityGateError struct {
	Gate    GateType
	Message string
}

func (e *QualityGateError) Error() string { return e.Message }

func (e *QualityGateError) Unwrap() error { return ErrQualityGateFailed }

// SubWorkflowError reports a failed step of a meta-workflow.
type SubWorkflowError struct {
	Workflow string
	Err      error
}

func (e *SubWorkflowError) Error() string {
	return fmt.Sprintf("sub-workflow %s failed: %v", e.Workflow, e.Err)
}

func (e *SubWorkflowError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSubWorkflowFailed}
	}
	return []error{ErrSubWorkflowFailed, e.Err}
}

// TrackerError wraps a failed tracker read or write.
type TrackerError struct {
	Op     string
	TaskID string
	Reason string
}

func (e *TrackerError) Error() string {
	switch e.Op {
	case "view":
		return fmt.Sprintf("failed to get task %s: %s", e.TaskID, e.Reason)
	default:
		return fmt.Sprintf("failed to update task %s: %s", e.TaskID, e.Reason)
	}
}

func (e *TrackerError) Unwrap() error { return ErrTrackerUnavailable }

// ValidationError represents a single configuration constraint violation.
type ValidationError struct {
	Path   string // e.g. "transitions[2].to" or "workflows.plan"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// AggregateError collects multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
