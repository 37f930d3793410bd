package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowspec/pkg/domain"
)

// SeedFunc creates a unit of work with the given state in the tracker under test.
type SeedFunc func(t *testing.T, id string, status domain.State)

// RunTrackerContract runs a suite of tests to verify that a Tracker implementation
// adheres to the defined interface contract.
func RunTrackerContract(t *testing.T, tracker Tracker, seed SeedFunc) {
	ctx := context.Background()
	taskID := "task-contract-" + time.Now().Format("20060102150405")

	t.Run("View Reports Status", func(t *testing.T) {
		seed(t, taskID, "To Do")

		res := tracker.View(ctx, taskID)
		require.True(t, res.Success, "View should succeed: %s", res.Err)

		status, ok := ParseStatus(res.Output)
		require.True(t, ok, "output must contain a Status line: %q", res.Output)
		assert.Equal(t, domain.State("To Do"), status)
	})

	t.Run("Edit Then View", func(t *testing.T) {
		seed(t, taskID+"-edit", "To Do")

		edit := tracker.Edit(ctx, taskID+"-edit", "In Implementation")
		require.True(t, edit.Success, "Edit should succeed: %s", edit.Err)

		res := tracker.View(ctx, taskID+"-edit")
		require.True(t, res.Success)
		status, _ := ParseStatus(res.Output)
		assert.Equal(t, domain.State("In Implementation"), status)
	})

	t.Run("View Non-Existent", func(t *testing.T) {
		res := tracker.View(ctx, "non-existent-"+taskID)
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Err)
	})

	t.Run("Edit Non-Existent", func(t *testing.T) {
		res := tracker.Edit(ctx, "non-existent-"+taskID, "Done")
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Err)
	})
}
