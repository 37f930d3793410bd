package condition

import (
	"log/slog"
	"strings"

	"github.com/aretw0/flowspec/internal/logging"
	"github.com/aretw0/flowspec/pkg/domain"
)

// BaseVariables are available to every condition.
var BaseVariables = []string{domain.KeyComplexityScore, domain.KeyLightMode}

// Allowed returns the whitelist for a meta-workflow over the given workflows:
// BaseVariables plus one "<workflow>_completed" flag per workflow.
func Allowed(workflows []string) []string {
	out := append([]string{}, BaseVariables...)
	for _, w := range workflows {
		out = append(out, domain.CompletedKey(w))
	}
	return out
}

// Evaluator decides whether optional sub-workflows run.
type Evaluator struct {
	logger  *slog.Logger
	allowed []string
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used for evaluation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// NewEvaluator returns an Evaluator whose whitelist covers the given workflows.
func NewEvaluator(workflows []string, opts ...Option) *Evaluator {
	e := &Evaluator{
		logger:  logging.NewNop(),
		allowed: Allowed(workflows),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Variables builds the evaluation namespace from the execution context.
// Only whitelisted names are read; complexity_score defaults to 0,
// light_mode to true and completion flags to false.
func (e *Evaluator) Variables(ctx domain.ExecutionContext) map[string]any {
	vars := make(map[string]any, len(e.allowed))
	for _, name := range e.allowed {
		switch {
		case name == domain.KeyComplexityScore:
			vars[name] = ctx.Float(name, 0)
		case name == domain.KeyLightMode:
			vars[name] = ctx.Bool(name, true)
		case strings.HasSuffix(name, domain.SuffixCompleted):
			vars[name] = ctx.Bool(name, false)
		}
	}
	return vars
}

// ShouldSkip reports whether ref should be skipped.
// Required steps never skip. Optional steps without a condition always skip.
// Otherwise the step runs only when its condition holds; a condition that
// fails to compile or evaluate skips the step and logs a warning.
func (e *Evaluator) ShouldSkip(ref domain.SubWorkflowRef, ctx domain.ExecutionContext) bool {
	if ref.Required {
		return false
	}
	if strings.TrimSpace(ref.Condition) == "" {
		return true
	}

	expr, err := Compile(ref.Condition, e.allowed)
	if err != nil {
		e.logger.Warn("Skipping sub-workflow: invalid condition", "workflow", ref.Workflow, "condition", ref.Condition, "err", err)
		return true
	}
	ok, err := expr.Eval(e.Variables(ctx))
	if err != nil {
		e.logger.Warn("Skipping sub-workflow: condition evaluation failed", "workflow", ref.Workflow, "condition", ref.Condition, "err", err)
		return true
	}
	return !ok
}
