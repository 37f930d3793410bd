package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/aretw0/flowspec/pkg/domain"
)

// Printer renders engine results for a terminal. Colors follow the
// detected profile, so piped output stays plain.
type Printer struct {
	out     io.Writer
	profile termenv.Profile
}

// NewPrinter creates a Printer for out using the environment's color profile.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, profile: termenv.EnvColorProfile()}
}

// NewPlainPrinter creates a Printer that never emits escape sequences.
func NewPlainPrinter(out io.Writer) *Printer {
	return &Printer{out: out, profile: termenv.Ascii}
}

func (p *Printer) style(s, color string) termenv.Style {
	return p.profile.String(s).Foreground(p.profile.Color(color))
}

// Result prints one line per step and a closing summary.
func (p *Printer) Result(res *domain.MetaWorkflowResult) {
	for _, step := range res.SubResults {
		switch {
		case step.Skipped:
			fmt.Fprintf(p.out, "  %s %s (skipped)\n", p.style("-", "#9ca3af"), step.WorkflowName)
		case step.Success:
			line := fmt.Sprintf("  %s %s", p.style("✓", "#22c55e"), step.WorkflowName)
			if step.OutputState != "" {
				line += " → " + string(step.OutputState)
			}
			fmt.Fprintln(p.out, line)
		default:
			fmt.Fprintf(p.out, "  %s %s: %s\n", p.style("✗", "#ef4444"), step.WorkflowName, step.Error)
		}
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(p.out, "  %s %s\n", p.style("!", "#f59e0b"), w)
	}

	if res.Success {
		fmt.Fprintf(p.out, "%s %s completed", p.style("✓", "#22c55e").Bold(), res.MetaWorkflowName)
		if res.FinalState != "" {
			fmt.Fprintf(p.out, " (final state: %s)", res.FinalState)
		}
		fmt.Fprintln(p.out)
		return
	}
	fmt.Fprintf(p.out, "%s %s failed: %s\n", p.style("✗", "#ef4444").Bold(), res.MetaWorkflowName, res.Error)
}

// MetaWorkflows prints the listing view of meta-workflows.
func (p *Printer) MetaWorkflows(list []domain.MetaWorkflowSummary) {
	if len(list) == 0 {
		fmt.Fprintln(p.out, "No meta-workflows defined.")
		return
	}
	for _, m := range list {
		fmt.Fprintf(p.out, "%s  %s → %s\n", p.style(m.Name, "#818cf8").Bold(), displayState(m.InputState), displayState(m.OutputState))
		if m.Description != "" {
			fmt.Fprintf(p.out, "    %s\n", m.Description)
		}
		fmt.Fprintf(p.out, "    steps: %s\n", strings.Join(m.SubWorkflows, ", "))
	}
}

// Issues prints configuration problems, one per line.
func (p *Printer) Issues(issues []error) {
	for _, err := range issues {
		fmt.Fprintf(p.out, "  %s %s\n", p.style("✗", "#ef4444"), err)
	}
}

func displayState(s domain.State) string {
	if s == "" {
		return "any"
	}
	return string(s)
}

// DescribeMarkdown renders a meta-workflow as markdown, ready for RenderMarkdown.
func DescribeMarkdown(meta domain.MetaWorkflow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", meta.Name)
	if meta.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", meta.Description)
	}
	if meta.Summary != "" {
		fmt.Fprintf(&b, "_%s_\n\n", meta.Summary)
	}
	if meta.Command != "" {
		fmt.Fprintf(&b, "Command: `%s`\n\n", meta.Command)
	}
	fmt.Fprintf(&b, "**%s** → **%s** (%s)\n\n", displayState(meta.InputState), displayState(meta.OutputState), meta.Orchestration.Mode)

	b.WriteString("## Steps\n\n")
	for i, step := range meta.SubWorkflows {
		fmt.Fprintf(&b, "%d. `%s`", i+1, step.Workflow)
		if !step.Required {
			b.WriteString(" (optional)")
		}
		if step.Condition != "" {
			fmt.Fprintf(&b, " when `%s`", step.Condition)
		}
		b.WriteString("\n")
	}

	if len(meta.QualityGates) > 0 {
		b.WriteString("\n## Quality gates\n\n")
		for _, g := range meta.QualityGates {
			fmt.Fprintf(&b, "- %s\n", describeGate(g))
		}
	}
	return b.String()
}

func describeGate(g domain.QualityGate) string {
	suffix := ""
	if !g.IsRequired() {
		suffix = " (optional)"
	}
	switch gate := g.(type) {
	case domain.TestCoverageGate:
		return fmt.Sprintf("test coverage ≥ %g%%%s", gate.Threshold, suffix)
	case domain.SecurityScanGate:
		return fmt.Sprintf("no security findings at %s or above%s", gate.MinSeverity, suffix)
	case domain.AcceptanceCriteriaGate:
		return fmt.Sprintf("acceptance criteria coverage ≥ %g%%%s", gate.Coverage, suffix)
	}
	return string(g.Type()) + suffix
}
