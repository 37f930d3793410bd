// Package memory provides in-memory adapters for tests, demos and the
// default CLI tracker.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/ports"
)

type task struct {
	title   string
	status  domain.State
	history []domain.State
}

// Tracker implements ports.Tracker in memory.
// Safe for concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	tasks map[string]*task

	// failure injection, keyed by task id
	viewErr map[string]string
	editErr map[string]map[domain.State]string
}

// NewTracker creates an empty in-memory tracker.
func NewTracker() *Tracker {
	return &Tracker{
		tasks:   make(map[string]*task),
		viewErr: make(map[string]string),
		editErr: make(map[string]map[domain.State]string),
	}
}

// Seed creates or resets a task with the given status.
func (t *Tracker) Seed(id string, status domain.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks[id] = &task{title: id, status: status, history: []domain.State{status}}
}

// Status returns the current status of a task.
func (t *Tracker) Status(id string) (domain.State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tk, ok := t.tasks[id]
	if !ok {
		return "", false
	}
	return tk.status, true
}

// History returns every status the task has held, oldest first.
func (t *Tracker) History(id string) []domain.State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if tk, ok := t.tasks[id]; ok {
		return slices.Clone(tk.history)
	}
	return nil
}

// FailView makes View fail for the task with the given reason.
func (t *Tracker) FailView(id, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.viewErr[id] = reason
}

// FailEdit makes Edit fail when the task is moved to status.
func (t *Tracker) FailEdit(id string, status domain.State, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.editErr[id] == nil {
		t.editErr[id] = make(map[domain.State]string)
	}
	t.editErr[id][status] = reason
}

// View renders the task as plain text with a Status line.
func (t *Tracker) View(_ context.Context, id string) ports.ViewResult {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if reason, ok := t.viewErr[id]; ok {
		return ports.ViewResult{Err: reason}
	}
	tk, ok := t.tasks[id]
	if !ok {
		return ports.ViewResult{Err: fmt.Sprintf("task %s not found", id)}
	}
	out := fmt.Sprintf("Task %s - %s\n\n%s\n", id, tk.title, ports.FormatStatus(tk.status))
	return ports.ViewResult{Success: true, Output: out}
}

// Edit moves the task to status.
func (t *Tracker) Edit(_ context.Context, id string, status domain.State) ports.EditResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	if reason, ok := t.editErr[id][status]; ok {
		return ports.EditResult{Err: reason}
	}
	tk, ok := t.tasks[id]
	if !ok {
		return ports.EditResult{Err: fmt.Sprintf("task %s not found", id)}
	}
	tk.status = status
	tk.history = append(tk.history, status)
	return ports.EditResult{Success: true}
}
