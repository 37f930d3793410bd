// Package orchestrator runs meta-workflows: it checks that a unit of work is
// in the expected input state, executes each sub-workflow in declared order
// (skipping optional steps whose condition does not hold), evaluates the exit
// quality gates and, only when everything passed, commits the final state.
//
// Execute never returns an error and never panics. Every failure is reported
// in the returned *domain.MetaWorkflowResult, with Err set to a typed error
// that unwraps to one of the domain sentinels.
package orchestrator
