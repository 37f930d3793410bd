package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowspec/pkg/adapters/redis"
	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/ports"
	contract "github.com/aretw0/flowspec/pkg/ports/tests"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestTracker_Contract(t *testing.T) {
	_, client := setup(t)
	tracker := redis.NewTracker(client)

	ports.RunTrackerContract(t, tracker, func(t *testing.T, id string, status domain.State) {
		require.NoError(t, tracker.Create(context.Background(), id, "contract", status))
	})
}

func TestTracker_KeysAndHistory(t *testing.T) {
	mr, client := setup(t)
	tracker := redis.NewTracker(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, tracker.Create(ctx, "task-7", "Add login", "To Do"))
	assert.True(t, mr.Exists("custom:app:task:task-7"), "Expected hash with custom prefix to exist")

	require.True(t, tracker.Edit(ctx, "task-7", "Assessed").Success)
	require.True(t, tracker.Edit(ctx, "task-7", "Specified").Success)

	assert.Equal(t, "Specified", mr.HGet("custom:app:task:task-7", "status"))

	history, err := tracker.History(ctx, "task-7")
	require.NoError(t, err)
	assert.Equal(t, []domain.State{"To Do", "Assessed", "Specified"}, history)

	view := tracker.View(ctx, "task-7")
	assert.Contains(t, view.Output, "Task task-7 - Add login")
}

func TestTracker_EditDoesNotCreate(t *testing.T) {
	mr, client := setup(t)
	tracker := redis.NewTracker(client)

	res := tracker.Edit(context.Background(), "ghost", "Done")
	assert.False(t, res.Success)
	assert.False(t, mr.Exists("flowspec:task:ghost"))
}

func TestTracker_ConnectionFailure(t *testing.T) {
	mr, client := setup(t)
	tracker := redis.NewTracker(client)
	mr.Close()

	view := tracker.View(context.Background(), "task-1")
	assert.False(t, view.Success)
	assert.Contains(t, view.Err, "redis error")
}

func TestSink_Contract(t *testing.T) {
	_, client := setup(t)
	sink := redis.NewSink(client)

	contract.EventSinkContractTest(t, sink, func(t *testing.T) []domain.Event {
		events, err := sink.Read(context.Background())
		require.NoError(t, err)
		return events
	})
}

func TestSink_StreamEntries(t *testing.T) {
	mr, client := setup(t)
	sink := redis.NewSink(client)
	ctx := context.Background()

	require.NoError(t, sink.Emit(ctx, domain.Event{ID: "evt_1", Type: "meta_workflow.research.started"}))

	assert.Equal(t, "flowspec:events", sink.Stream())
	entries, err := mr.Stream("flowspec:events")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "type", entries[0].Values[0])
	assert.Equal(t, "meta_workflow.research.started", entries[0].Values[1])
}
