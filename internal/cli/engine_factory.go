package cli

import (
	"fmt"
	"io"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aretw0/flowspec"
	"github.com/aretw0/flowspec/internal/settings"
	"github.com/aretw0/flowspec/pkg/adapters/backlog"
	"github.com/aretw0/flowspec/pkg/adapters/file"
	"github.com/aretw0/flowspec/pkg/adapters/memory"
	"github.com/aretw0/flowspec/pkg/adapters/process"
	"github.com/aretw0/flowspec/pkg/adapters/redis"
	"github.com/aretw0/flowspec/pkg/observability"
	"github.com/aretw0/flowspec/pkg/ports"
)

// Runtime is an engine wired with the adapters chosen by the settings.
type Runtime struct {
	Engine  *flowspec.Engine
	Metrics *observability.Metrics

	closers []io.Closer
}

// Close releases adapter connections.
func (r *Runtime) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewRuntime creates the engine for root with standard CLI conventions.
// extraSinks receive lifecycle events alongside the configured sink.
func NewRuntime(root string, s settings.Settings, logger *slog.Logger, extraSinks ...ports.EventSink) (*Runtime, error) {
	rt := &Runtime{Metrics: observability.NewMetrics()}

	// tracker and stream sink share one connection
	var rdb *goredis.Client
	redisClient := func() *goredis.Client {
		if rdb == nil {
			rdb = redis.NewClient(s.Redis.Addr)
			rt.closers = append(rt.closers, rdb)
		}
		return rdb
	}

	// 1. Tracker
	var tracker ports.Tracker
	switch s.Tracker {
	case settings.TrackerMemory:
		tracker = memory.NewTracker()
	case settings.TrackerRedis:
		tracker = redis.NewTracker(redisClient(), redis.WithPrefix(s.Redis.Prefix))
	default:
		tracker = backlog.New(
			backlog.WithBinary(s.Backlog.Binary),
			backlog.WithDir(root),
			backlog.WithLogger(logger),
		)
	}

	// 2. Events
	sinks := ports.MultiSink{}
	switch s.Events {
	case settings.EventsFile:
		sinks = append(sinks, file.ForProject(root))
	case settings.EventsRedis:
		sinks = append(sinks, redis.NewSink(redisClient(), redis.WithPrefix(s.Redis.Prefix)))
	}
	sinks = append(sinks, extraSinks...)

	// 3. Executor
	tools, err := process.LoadTools(settings.ResolvePath(root, s.ToolsFile))
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("error loading tools: %w", err)
	}
	// Workflows without a registered tool are delegated to agents outside
	// the engine and succeed here.
	executor := process.New(
		process.WithTools(tools),
		process.WithFallback(ports.NopExecutor{}),
		process.WithBaseDir(root),
		process.WithLogger(logger),
	)

	// 4. Initialize
	engine, err := flowspec.New(root,
		flowspec.WithLogger(logger),
		flowspec.WithTracker(tracker),
		flowspec.WithEventSink(sinks),
		flowspec.WithExecutor(executor),
		flowspec.WithStepTimeout(s.StepTimeout),
		flowspec.WithLifecycleHooks(observability.Chain(
			observability.LogHooks(logger),
			rt.Metrics.Hooks(),
		)),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Engine = engine
	return rt, nil
}
