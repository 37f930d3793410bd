package flowspec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/flowspec/internal/logging"
	"github.com/aretw0/flowspec/pkg/config"
	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/orchestrator"
	"github.com/aretw0/flowspec/pkg/ports"
	"github.com/aretw0/flowspec/pkg/validation"
)

// ValidationFile is the per-project validation mode file, relative to the project root.
var ValidationFile = filepath.Join(".flowspec", "validation.yml")

// Engine is the high-level entry point for the flowspec library.
// It owns the loaded workflow configuration and the orchestrator built over it,
// and swaps both atomically on Reload.
type Engine struct {
	mu         sync.RWMutex
	root       string
	cfg        *config.Config
	validation *validation.Config
	orch       *orchestrator.Orchestrator

	tracker     ports.Tracker
	sink        ports.EventSink
	executor    ports.Executor
	hooks       domain.LifecycleHooks
	stepTimeout time.Duration
	logger      *slog.Logger

	// preloaded is true when the config was injected and cannot be reloaded from disk.
	preloaded bool
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithConfig injects an already loaded configuration, bypassing discovery.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
		e.preloaded = cfg != nil
	}
}

// WithValidationConfig injects the transition validation modes, bypassing
// the project's validation file.
func WithValidationConfig(vc *validation.Config) Option {
	return func(e *Engine) {
		e.validation = vc
	}
}

// WithTracker sets the task tracker used to read and move task status.
func WithTracker(tracker ports.Tracker) Option {
	return func(e *Engine) {
		e.tracker = tracker
	}
}

// WithEventSink sets where lifecycle events are emitted.
func WithEventSink(sink ports.EventSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithExecutor sets the executor that performs sub-workflow work.
func WithExecutor(executor ports.Executor) Option {
	return func(e *Engine) {
		e.executor = executor
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithStepTimeout bounds each sub-workflow execution.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.stepTimeout = d
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes an Engine for the project at root. Unless WithConfig is
// given, the workflow config is discovered in root. The validation file is
// optional; without it transitions use the modes declared in the config.
func New(root string, opts ...Option) (*Engine, error) {
	e := &Engine{root: root, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}

	if e.cfg == nil {
		if root == "" {
			return nil, fmt.Errorf("project root is required when no config is provided")
		}
		cfg, err := config.LoadDir(root)
		if err != nil {
			return nil, err
		}
		e.cfg = cfg
	}
	if e.validation == nil && root != "" {
		vc, err := loadValidation(root, e.logger)
		if err != nil {
			return nil, err
		}
		e.validation = vc
	}

	e.orch = e.build(e.cfg)
	return e, nil
}

func loadValidation(root string, logger *slog.Logger) (*validation.Config, error) {
	vc, err := validation.Load(filepath.Join(root, ValidationFile), validation.WithLogger(logger))
	if errors.Is(err, domain.ErrConfigNotFound) {
		return nil, nil
	}
	return vc, err
}

func (e *Engine) build(cfg *config.Config) *orchestrator.Orchestrator {
	opts := []orchestrator.Option{
		orchestrator.WithLogger(e.logger),
		orchestrator.WithHooks(e.hooks),
		orchestrator.WithWorkspace(e.root),
	}
	if e.sink != nil {
		opts = append(opts, orchestrator.WithEventSink(e.sink))
	}
	if e.executor != nil {
		opts = append(opts, orchestrator.WithExecutor(e.executor))
	}
	if e.stepTimeout > 0 {
		opts = append(opts, orchestrator.WithStepTimeout(e.stepTimeout))
	}
	return orchestrator.New(cfg, e.tracker, opts...)
}

// Root returns the project root the engine was created for.
func (e *Engine) Root() string { return e.root }

// Config returns the active workflow configuration.
func (e *Engine) Config() *config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// ValidationConfig returns the loaded validation modes, or nil when the
// project has no validation file.
func (e *Engine) ValidationConfig() *validation.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.validation
}

func (e *Engine) current() *orchestrator.Orchestrator {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.orch
}

// ListMetaWorkflows returns the summaries of every meta-workflow, sorted by name.
func (e *Engine) ListMetaWorkflows() []domain.MetaWorkflowSummary {
	return e.current().ListMetaWorkflows()
}

// Run executes a meta-workflow. taskID may be empty for untracked runs.
func (e *Engine) Run(ctx context.Context, meta, taskID string, execCtx domain.ExecutionContext) *domain.MetaWorkflowResult {
	return e.current().Execute(ctx, meta, taskID, execCtx)
}

// RunWorkflow executes a single workflow outside of any meta-workflow.
func (e *Engine) RunWorkflow(ctx context.Context, workflow string, execCtx domain.ExecutionContext) domain.SubWorkflowResult {
	return e.current().ExecuteSubWorkflow(ctx, workflow, execCtx)
}

// Gate describes the approval a transition requires. An entry in the
// validation file overrides the mode declared on the transition itself.
// Transitions configured nowhere have no gate (NONE).
func (e *Engine) Gate(transition string) (validation.Gate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.validation != nil && e.validation.Has(transition) {
		return validation.Describe(transition, e.validation.Mode(transition)), nil
	}
	if strings.TrimSpace(transition) == "" {
		return validation.Gate{}, fmt.Errorf("%w: transition name is required", domain.ErrTransitionNotFound)
	}
	t, ok := e.cfg.Transition(transition)
	if !ok {
		e.logger.Debug("Transition has no validation configured", "transition", transition)
		return validation.Describe(transition, domain.NoneMode{}), nil
	}
	return validation.Describe(transition, t.Validation), nil
}

// CheckApproval reports whether ev satisfies the transition's gate.
func (e *Engine) CheckApproval(transition string, ev validation.Evidence) error {
	gate, err := e.Gate(transition)
	if err != nil {
		return err
	}
	return validation.Check(gate.Mode, ev)
}

// Validate checks the active configuration for structural problems.
func (e *Engine) Validate() error {
	return e.Config().Validate()
}

// Reload re-reads the workflow config and validation file from disk. On
// failure the previous configuration stays active.
func (e *Engine) Reload() error {
	if e.preloaded {
		return fmt.Errorf("engine config was injected and cannot be reloaded")
	}
	cfg, err := config.LoadDir(e.root)
	if err != nil {
		return err
	}
	vc, err := loadValidation(e.root, e.logger)
	if err != nil {
		return err
	}

	orch := e.build(cfg)
	e.mu.Lock()
	e.cfg, e.validation, e.orch = cfg, vc, orch
	e.mu.Unlock()

	e.logger.Info("Configuration reloaded", "path", cfg.Path())
	return nil
}
