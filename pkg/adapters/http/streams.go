package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/flowspec/pkg/domain"
)

// allTasks subscribes to every event regardless of task.
const allTasks = ""

// StreamManager fans lifecycle events out to SSE subscribers.
// It implements ports.EventSink so it can be registered with the engine.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{} // task id -> channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for taskID ("" for every task). The returned
// function unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(taskID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[taskID]; !ok {
		sm.subscribers[taskID] = make(map[chan string]struct{})
	}
	sm.subscribers[taskID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[taskID]; ok {
			if _, live := subs[ch]; !live {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, taskID)
			}
		}
	}
}

// Emit broadcasts the event to subscribers of its task and of every task.
func (sm *StreamManager) Emit(_ context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	taskID, _ := event.Context[domain.KeyTaskID].(string)
	sm.broadcast(allTasks, string(payload))
	if taskID != allTasks {
		sm.broadcast(taskID, string(payload))
	}
	return nil
}

func (sm *StreamManager) broadcast(key, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[key] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "task_id", key)
		}
	}
}
