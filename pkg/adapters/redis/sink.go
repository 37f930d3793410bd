package redis

import (
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/flowspec/pkg/domain"
)

// Sink implements ports.EventSink by appending to the <prefix>events stream.
// Each entry carries the event type and its JSON encoding.
type Sink struct {
	client backend.UniversalClient
	stream string
	maxLen int64
}

// NewSink creates a Sink using client.
func NewSink(client backend.UniversalClient, opts ...Option) *Sink {
	o := apply(opts)
	return &Sink{client: client, stream: o.prefix + "events", maxLen: o.maxLen}
}

// Stream returns the stream key events are written to.
func (s *Sink) Stream() string { return s.stream }

// Emit appends the event to the stream.
func (s *Sink) Emit(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	args := &backend.XAddArgs{
		Stream: s.stream,
		Values: []any{"type", event.Type, "event", string(payload)},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis error emitting event: %w", err)
	}
	return nil
}

// Read returns every event in the stream, oldest first.
func (s *Sink) Read(ctx context.Context) ([]domain.Event, error) {
	entries, err := s.client.XRange(ctx, s.stream, "-", "+").Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Event, 0, len(entries))
	for _, entry := range entries {
		raw, _ := entry.Values["event"].(string)
		var evt domain.Event
		if err := json.Unmarshal([]byte(raw), &evt); err != nil {
			return nil, fmt.Errorf("malformed stream entry %s: %w", entry.ID, err)
		}
		out = append(out, evt)
	}
	return out, nil
}
