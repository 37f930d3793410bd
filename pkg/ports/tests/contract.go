package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/ports"
)

// EventSinkContractTest is a reusable test suite that verifies if an adapter complies with ports.EventSink.
// read must return the events persisted by the sink, oldest first.
func EventSinkContractTest(t *testing.T, sink ports.EventSink, read func(t *testing.T) []domain.Event) {
	t.Helper()
	ctx := context.Background()

	events := []domain.Event{
		{
			ID:            "evt_contract_1",
			Type:          domain.MetaWorkflowEventType("research", domain.PhaseStarted),
			Timestamp:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			SchemaVersion: domain.SchemaVersion,
			Context:       map[string]any{"task_id": "task-1"},
		},
		{
			ID:            "evt_contract_2",
			Type:          domain.WorkflowEventType("assess", domain.PhaseCompleted),
			Timestamp:     time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC),
			SchemaVersion: domain.SchemaVersion,
			ProjectRoot:   "/tmp/project",
		},
	}

	t.Run("Emit_Success", func(t *testing.T) {
		for _, evt := range events {
			if err := sink.Emit(ctx, evt); err != nil {
				t.Fatalf("unexpected error emitting %s: %v", evt.Type, err)
			}
		}
	})

	t.Run("Read_InOrder", func(t *testing.T) {
		got := read(t)
		if len(got) != len(events) {
			t.Fatalf("expected %d events, got %d", len(events), len(got))
		}
		for i, want := range events {
			if got[i].ID != want.ID || got[i].Type != want.Type {
				t.Errorf("event %d mismatch. got %s/%s, want %s/%s", i, got[i].ID, got[i].Type, want.ID, want.Type)
			}
			if !got[i].Timestamp.Equal(want.Timestamp) {
				t.Errorf("event %d timestamp mismatch. got %v, want %v", i, got[i].Timestamp, want.Timestamp)
			}
		}
		if got[0].Context["task_id"] != "task-1" {
			t.Errorf("context not preserved: %v", got[0].Context)
		}
	})
}
