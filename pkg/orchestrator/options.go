package orchestrator

import (
	"log/slog"
	"time"

	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/ports"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithEventSink sets where lifecycle events are emitted.
func WithEventSink(sink ports.EventSink) Option {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// WithExecutor sets the delegate that performs each workflow step.
// The default executor succeeds immediately.
func WithExecutor(executor ports.Executor) Option {
	return func(o *Orchestrator) {
		o.executor = executor
	}
}

// WithStepTimeout bounds every delegated step. Zero disables the bound.
func WithStepTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.stepTimeout = d
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = hooks
	}
}

// WithClock overrides the time source used for events and durations.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithWorkspace sets the project root stamped on emitted events.
func WithWorkspace(dir string) Option {
	return func(o *Orchestrator) {
		o.workspace = dir
	}
}
