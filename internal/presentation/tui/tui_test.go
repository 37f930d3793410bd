package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/flowspec/pkg/domain"
)

func TestPrinter_Result(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.Result(&domain.MetaWorkflowResult{
		MetaWorkflowName: "research",
		Success:          true,
		FinalState:       "Planned",
		SubResults: []domain.SubWorkflowResult{
			{WorkflowName: "assess", Success: true, OutputState: "Assessed"},
			{WorkflowName: "research", Success: true, Skipped: true},
		},
		Warnings: []string{"AC coverage gate failed: 50% < 100%"},
	})

	out := buf.String()
	assert.Contains(t, out, "✓ assess → Assessed")
	assert.Contains(t, out, "- research (skipped)")
	assert.Contains(t, out, "! AC coverage gate failed")
	assert.Contains(t, out, "research completed (final state: Planned)")
	assert.NotContains(t, out, "\x1b[", "plain printer must not emit escapes")
}

func TestPrinter_FailedResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.Result(&domain.MetaWorkflowResult{
		MetaWorkflowName: "build",
		Error:            "test coverage gate failed: 60% < 80%",
		SubResults:       []domain.SubWorkflowResult{{WorkflowName: "implement", Error: "boom"}},
	})

	assert.Contains(t, buf.String(), "✗ implement: boom")
	assert.Contains(t, buf.String(), "build failed: test coverage gate failed")
}

func TestPrinter_MetaWorkflowsAndIssues(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.MetaWorkflows(nil)
	p.MetaWorkflows([]domain.MetaWorkflowSummary{{Name: "build", InputState: "Planned", SubWorkflows: []string{"implement", "validate"}}})
	p.Issues([]error{errors.New("states: must not be empty")})

	out := buf.String()
	assert.Contains(t, out, "No meta-workflows defined.")
	assert.Contains(t, out, "build  Planned → any")
	assert.Contains(t, out, "steps: implement, validate")
	assert.Contains(t, out, "✗ states: must not be empty")
}

func TestDescribeMarkdown(t *testing.T) {
	md := DescribeMarkdown(domain.MetaWorkflow{
		Name:          "build",
		Description:   "Create It",
		InputState:    "Planned",
		OutputState:   "Validated",
		Orchestration: domain.Orchestration{Mode: domain.ModeSequential},
		SubWorkflows: []domain.SubWorkflowRef{
			{Workflow: "implement", Required: true},
			{Workflow: "research", Condition: "complexity_score >= 7"},
		},
		QualityGates: []domain.QualityGate{
			domain.TestCoverageGate{Threshold: 80, Required: true},
			domain.SecurityScanGate{MinSeverity: domain.Severity("high"), Required: true},
			domain.AcceptanceCriteriaGate{Coverage: 100},
		},
	})

	assert.True(t, strings.HasPrefix(md, "# build\n"))
	assert.Contains(t, md, "**Planned** → **Validated** (sequential)")
	assert.Contains(t, md, "1. `implement`\n")
	assert.Contains(t, md, "2. `research` (optional) when `complexity_score >= 7`")
	assert.Contains(t, md, "- test coverage ≥ 80%\n")
	assert.Contains(t, md, "- no security findings at high or above\n")
	assert.Contains(t, md, "- acceptance criteria coverage ≥ 100% (optional)")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "0.1.0")
	assert.Contains(t, buf.String(), "0.1.0")
}

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown("# research\n\nsteps follow", 0)
	assert.Contains(t, out, "research")
	assert.Contains(t, out, "steps follow")
}
