// Package gates evaluates the quality gates guarding a meta-workflow's exit.
package gates

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/flowspec/internal/logging"
	"github.com/aretw0/flowspec/pkg/domain"
)

// Outcome is the aggregated result of evaluating a gate list.
type Outcome struct {
	Passed bool
	// Message describes the first required failure, empty on success.
	Message string
	// Gate is the type of the first required failure.
	Gate domain.GateType
	// Warnings lists the failures of non-required gates.
	Warnings []string
}

// Err returns the failure as a *domain.QualityGateError, or nil.
func (o Outcome) Err() error {
	if o.Passed {
		return nil
	}
	return &domain.QualityGateError{Gate: o.Gate, Message: o.Message}
}

// Evaluator checks quality gates against an execution context.
type Evaluator struct {
	logger *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used for non-required gate warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// New returns an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs the gates in declared order. The first required failure
// short-circuits; non-required failures are logged and collected as warnings.
// Every gate reads the same context.
func (e *Evaluator) Evaluate(gates []domain.QualityGate, ctx domain.ExecutionContext) Outcome {
	out := Outcome{Passed: true}
	for _, gate := range gates {
		msg, ok := Check(gate, ctx)
		if ok {
			continue
		}
		if gate.IsRequired() {
			return Outcome{Passed: false, Message: msg, Gate: gate.Type(), Warnings: out.Warnings}
		}
		e.logger.Warn("Optional quality gate failed", "gate", gate.Type(), "reason", msg)
		out.Warnings = append(out.Warnings, msg)
	}
	return out
}

// Passes is the two-value form of Evaluate.
func (e *Evaluator) Passes(gates []domain.QualityGate, ctx domain.ExecutionContext) (bool, string) {
	o := e.Evaluate(gates, ctx)
	return o.Passed, o.Message
}

// Check evaluates one gate. It returns a failure message and false when the gate fails.
func Check(gate domain.QualityGate, ctx domain.ExecutionContext) (string, bool) {
	switch g := gate.(type) {
	case domain.TestCoverageGate:
		actual := ctx.Float(domain.KeyTestCoverage, 0)
		if actual < g.Threshold {
			return fmt.Sprintf("test coverage gate failed: %v%% < %v%%", actual, g.Threshold), false
		}
	case domain.SecurityScanGate:
		min := g.MinSeverity
		if min == "" {
			min = domain.DefaultMinSeverity
		}
		count := 0
		for _, sev := range ctx.Findings() {
			if sev.AtLeast(min) {
				count++
			}
		}
		if count > 0 {
			return fmt.Sprintf("security scan gate failed: %d %s+ findings", count, min), false
		}
	case domain.AcceptanceCriteriaGate:
		actual := ctx.Float(domain.KeyACCoverage, 0)
		if actual < g.Coverage {
			return fmt.Sprintf("acceptance criteria gate failed: %v%% < %v%%", actual, g.Coverage), false
		}
	default:
		return fmt.Sprintf("unknown quality gate type: %T", gate), false
	}
	return "", true
}
