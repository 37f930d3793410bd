package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/aretw0/flowspec/pkg/domain"
)

// emit sends an event to the sink. Failures are logged and swallowed.
func (o *Orchestrator) emit(ctx context.Context, eventType string, fields map[string]any) {
	if o.sink == nil {
		return
	}
	event := domain.Event{
		ID:            "evt_" + uuid.NewString(),
		Type:          eventType,
		Timestamp:     o.now().UTC(),
		ProjectRoot:   o.workspace,
		SchemaVersion: domain.SchemaVersion,
		Context:       fields,
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("Event sink panicked", "event", eventType, "panic", r)
		}
	}()
	if err := o.sink.Emit(ctx, event); err != nil {
		o.logger.Warn("Failed to emit event", "event", eventType, "err", err)
	}
}
