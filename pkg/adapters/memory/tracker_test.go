package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/flowspec/pkg/adapters/memory"
	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/ports"
	contract "github.com/aretw0/flowspec/pkg/ports/tests"
)

func TestTracker_Contract(t *testing.T) {
	tracker := memory.NewTracker()
	ports.RunTrackerContract(t, tracker, func(t *testing.T, id string, status domain.State) {
		tracker.Seed(id, status)
	})
}

func TestTracker_History(t *testing.T) {
	tracker := memory.NewTracker()
	tracker.Seed("task-1", "To Do")

	ctx := context.Background()
	tracker.Edit(ctx, "task-1", "Assessed")
	tracker.Edit(ctx, "task-1", "Specified")

	assert.Equal(t, []domain.State{"To Do", "Assessed", "Specified"}, tracker.History("task-1"))
	status, ok := tracker.Status("task-1")
	assert.True(t, ok)
	assert.Equal(t, domain.State("Specified"), status)
}

func TestTracker_FailureInjection(t *testing.T) {
	tracker := memory.NewTracker()
	tracker.Seed("task-1", "To Do")
	tracker.FailEdit("task-1", "Planned", "permission denied")
	tracker.FailView("task-2", "backlog not initialized")

	ctx := context.Background()
	assert.True(t, tracker.Edit(ctx, "task-1", "Assessed").Success)

	res := tracker.Edit(ctx, "task-1", "Planned")
	assert.False(t, res.Success)
	assert.Equal(t, "permission denied", res.Err)

	view := tracker.View(ctx, "task-2")
	assert.False(t, view.Success)
	assert.Equal(t, "backlog not initialized", view.Err)
}

func TestRecorder_Contract(t *testing.T) {
	rec := memory.NewRecorder()
	contract.EventSinkContractTest(t, rec, func(t *testing.T) []domain.Event {
		return rec.Events()
	})
}
