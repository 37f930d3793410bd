package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/flowspec/pkg/domain"
)

// Recorder implements ports.EventSink by keeping events in memory.
// Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes every subsequent Emit return err after recording the event.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Emit records the event.
func (r *Recorder) Emit(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

// Events returns the recorded events, oldest first.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Types returns the type of every recorded event, oldest first.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
