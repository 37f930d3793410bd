package cli

import (
	"errors"

	"github.com/aretw0/flowspec/pkg/domain"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1 // execution, gate or validation failure
	ExitNotFound = 2 // meta-workflow, workflow, transition or config not found
	ExitUsage    = 3
)

// UsageError marks an error caused by how the command was invoked.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// Usage wraps err as a usage error.
func Usage(err error) error {
	if err == nil {
		return nil
	}
	return &UsageError{Err: err}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	var usage *UsageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &usage):
		return ExitUsage
	case errors.Is(err, domain.ErrMetaWorkflowNotFound),
		errors.Is(err, domain.ErrWorkflowNotFound),
		errors.Is(err, domain.ErrTransitionNotFound),
		errors.Is(err, domain.ErrConfigNotFound):
		return ExitNotFound
	default:
		return ExitFailure
	}
}
