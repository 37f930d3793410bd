/*
Package flowspec is a lifecycle engine for spec-driven development work.

A project declares its lifecycle in flowspec_workflow.yml: the states a unit
of work moves through, the workflows that move it, the transitions between
states with their approval gates, and meta-workflows that chain several
workflows behind a single command. flowspec loads that file, validates it and
orchestrates meta-workflows against a task tracker, emitting lifecycle events
as it goes. It never performs the work itself; an Executor does.

# Usage

	eng, err := flowspec.New(".",
		flowspec.WithTracker(tracker),
		flowspec.WithEventSink(sink),
	)
	if err != nil {
		log.Fatal(err)
	}

	res := eng.Run(ctx, "research", "task-42", domain.ExecutionContext{
		"complexity_score": 8,
	})
	if !res.Success {
		log.Fatal(res.Error)
	}

# Approval gates

Each transition carries a validation mode: NONE, KEYWORD["<word>"] or
PULL_REQUEST. Entries in .flowspec/validation.yml override the modes declared
in the workflow config. Gate describes what a transition asks for and
CheckApproval checks supplied evidence against it.

# Adapters

Trackers, event sinks and executors are ports (see pkg/ports). The pkg/adapters
tree provides in-memory, Backlog.md CLI, Redis, JSONL file and process-based
implementations, plus HTTP and MCP front ends.
*/
package flowspec
