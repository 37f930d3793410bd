package file_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowspec/pkg/adapters/file"
	"github.com/aretw0/flowspec/pkg/domain"
	contract "github.com/aretw0/flowspec/pkg/ports/tests"
)

func TestSink_Contract(t *testing.T) {
	sink := file.ForProject(t.TempDir())

	contract.EventSinkContractTest(t, sink, func(t *testing.T) []domain.Event {
		events, err := sink.Read()
		require.NoError(t, err)
		return events
	})
}

func TestSink_WritesJSONLines(t *testing.T) {
	root := t.TempDir()
	sink := file.ForProject(root)

	require.NoError(t, sink.Emit(context.Background(), domain.Event{ID: "evt_1", Type: "meta_workflow.build.started"}))

	data, err := os.ReadFile(filepath.Join(root, ".flowspec", "events.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event_id":"evt_1"`)
	assert.Contains(t, string(data), `"event_type":"meta_workflow.build.started"`)
	assert.Equal(t, byte('\n'), data[len(data)-1])
}

func TestSink_ConcurrentEmit(t *testing.T) {
	sink := file.ForProject(t.TempDir())

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sink.Emit(context.Background(), domain.Event{ID: fmt.Sprintf("evt_%d", i)})
		}()
	}
	wg.Wait()

	events, err := sink.Read()
	require.NoError(t, err)
	assert.Len(t, events, 20)
}

func TestSink_ReadMissing(t *testing.T) {
	events, err := file.NewSink(filepath.Join(t.TempDir(), "none.jsonl")).Read()
	assert.NoError(t, err)
	assert.Empty(t, events)
}

func TestSink_ReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"event_id\":\"ok\"}\nnot json\n"), 0644))

	_, err := file.NewSink(path).Read()
	assert.ErrorContains(t, err, ":2:")
}
