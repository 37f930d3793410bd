/*
Package domain contains the core data model of the flowspec lifecycle engine.

It defines the entities of the declarative state machine (states, transitions,
workflows and meta-workflows), the tagged variants used to gate transitions
(validation modes) and meta-workflow exits (quality gates), and the result
values produced by one orchestration run. This package is kept pure: no I/O,
no persistence, no third-party dependencies.

# Key Entities

  - State: a named point in a unit-of-work's lifecycle (e.g. "Planned").
  - Transition: a named move from one or more states to a destination state,
    carrying a ValidationMode.
  - Workflow: the primitive stage (command, agents, input states, output state).
  - MetaWorkflow: an ordered composition of workflows with optional steps and
    exit quality gates.
  - SubWorkflowResult / MetaWorkflowResult: per-invocation return values.
  - Event: a lifecycle notification handed to an event sink.
*/
package domain
