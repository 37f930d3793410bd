package ports

import (
	"context"
	"errors"

	"github.com/aretw0/flowspec/pkg/domain"
)

// EventSink receives lifecycle events.
type EventSink interface {
	Emit(ctx context.Context, event domain.Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event domain.Event) error

// Emit calls f.
func (f EventSinkFunc) Emit(ctx context.Context, event domain.Event) error {
	return f(ctx, event)
}

// NopSink discards every event.
type NopSink struct{}

// Emit does nothing.
func (NopSink) Emit(context.Context, domain.Event) error { return nil }

// MultiSink fans an event out to every sink and joins their errors.
type MultiSink []EventSink

// Emit delivers the event to every sink, even after a failure.
func (m MultiSink) Emit(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
