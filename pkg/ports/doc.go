/*
Package ports defines the driven ports (interfaces) of the flowspec orchestrator.

These interfaces decouple the lifecycle core from the systems it talks to, so
the same orchestrator runs against a CLI task tracker, Redis or an in-memory
fake.

# Key Interfaces

  - Tracker: reads and advances the state of a unit of work (e.g. a Backlog.md task).
  - EventSink: receives lifecycle events; failures never reach the caller.
  - Executor: performs the actual work of a workflow step.
*/
package ports
