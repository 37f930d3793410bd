package domain

import "strings"

// GateType identifies the variant of a QualityGate.
type GateType string

const (
	GateTestCoverage       GateType = "test_coverage"
	GateSecurityScan       GateType = "security_scan"
	GateAcceptanceCriteria GateType = "acceptance_criteria"
)

// QualityGate is a pass/fail check evaluated before a meta-workflow commits.
// Non-required gates degrade to warnings.
type QualityGate interface {
	Type() GateType
	IsRequired() bool
	qualityGate()
}

// TestCoverageGate fails when the measured coverage is below Threshold.
type TestCoverageGate struct {
	Threshold float64 `json:"threshold"`
	Required  bool    `json:"required"`
}

// SecurityScanGate fails when any finding is at or above MinSeverity.
type SecurityScanGate struct {
	MinSeverity Severity `json:"severity"`
	Required    bool     `json:"required"`
}

// AcceptanceCriteriaGate fails when acceptance-criteria coverage is below Coverage.
type AcceptanceCriteriaGate struct {
	Coverage float64 `json:"coverage"`
	Required bool    `json:"required"`
}

func (TestCoverageGate) Type() GateType       { return GateTestCoverage }
func (SecurityScanGate) Type() GateType       { return GateSecurityScan }
func (AcceptanceCriteriaGate) Type() GateType { return GateAcceptanceCriteria }

func (g TestCoverageGate) IsRequired() bool       { return g.Required }
func (g SecurityScanGate) IsRequired() bool       { return g.Required }
func (g AcceptanceCriteriaGate) IsRequired() bool { return g.Required }

func (TestCoverageGate) qualityGate()       {}
func (SecurityScanGate) qualityGate()       {}
func (AcceptanceCriteriaGate) qualityGate() {}

// Gate defaults applied when a field is omitted from the config.
const (
	DefaultCoverageThreshold float64 = 80
	DefaultACCoverage        float64 = 100
)

// Severity is a security finding severity on an ordered scale.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// DefaultMinSeverity buckets HIGH and CRITICAL findings as blocking.
const DefaultMinSeverity = SeverityHigh

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// ParseSeverity normalizes a severity case-insensitively.
// The second return value is false for names outside the scale.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := severityRank[sev]
	return sev, ok
}

// Rank returns the position of s on the severity scale, or -1 if unknown.
func (s Severity) Rank() int {
	if r, ok := severityRank[Severity(strings.ToUpper(string(s)))]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether s is at or above min. Unknown severities never match.
func (s Severity) AtLeast(min Severity) bool {
	r := s.Rank()
	return r >= 0 && r >= min.Rank()
}
