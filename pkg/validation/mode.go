package validation

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowspec/pkg/domain"
)

// DefaultKeyword is used when a keyword gate is requested without a keyword.
const DefaultKeyword = "APPROVED"

const keywordPrefix = "KEYWORD["

// Parse decodes validation-mode text. Tags are case-insensitive; the keyword
// keeps its case. Empty text is NONE. Unrecognized text is rejected with an
// *domain.InvalidValidationModeError.
func Parse(text string) (domain.ValidationMode, error) {
	trimmed := strings.TrimSpace(text)
	upper := strings.ToUpper(trimmed)

	switch upper {
	case "", string(domain.ValidationNone):
		return domain.NoneMode{}, nil
	case string(domain.ValidationPullRequest), "PULL-REQUEST":
		return domain.PullRequestMode{}, nil
	case string(domain.ValidationKeyword):
		return nil, &domain.InvalidValidationModeError{Text: text, Reason: "keyword missing, expected KEYWORD[\"<word>\"]"}
	}

	if !strings.HasPrefix(upper, keywordPrefix) || !strings.HasSuffix(trimmed, "]") {
		return nil, &domain.InvalidValidationModeError{Text: text}
	}

	word := strings.TrimSpace(trimmed[len(keywordPrefix) : len(trimmed)-1])
	word = strings.TrimSpace(unquote(word))
	if word == "" {
		return nil, &domain.InvalidValidationModeError{Text: text, Reason: "keyword must not be empty"}
	}
	return domain.KeywordMode{Keyword: word}, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// MustParse is like Parse but panics on invalid text. Intended for literals.
func MustParse(text string) domain.ValidationMode {
	mode, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return mode
}

// Format renders a mode in its canonical textual form. A nil mode is NONE,
// and a keyword mode with a blank keyword renders with DefaultKeyword.
func Format(mode domain.ValidationMode) string {
	switch m := mode.(type) {
	case domain.KeywordMode:
		word := strings.TrimSpace(m.Keyword)
		if word == "" {
			word = DefaultKeyword
		}
		return keywordPrefix + `"` + word + `"]`
	case domain.PullRequestMode:
		return string(domain.ValidationPullRequest)
	default:
		return string(domain.ValidationNone)
	}
}

// Batch mode names accepted by the CLI.
const (
	BatchNone        = "none"
	BatchKeyword     = "keyword"
	BatchPullRequest = "pull-request"
)

// ParseBatch converts a batch mode name into a mode. The keyword is only
// used for "keyword" and falls back to DefaultKeyword when blank.
func ParseBatch(name, keyword string) (domain.ValidationMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BatchNone:
		return domain.NoneMode{}, nil
	case BatchKeyword:
		word := strings.TrimSpace(keyword)
		if word == "" {
			word = DefaultKeyword
		}
		return domain.KeywordMode{Keyword: word}, nil
	case BatchPullRequest, "pull_request":
		return domain.PullRequestMode{}, nil
	}
	return nil, &domain.InvalidValidationModeError{
		Text:   name,
		Reason: fmt.Sprintf("expected one of %s, %s, %s", BatchNone, BatchKeyword, BatchPullRequest),
	}
}

// ParseFlag accepts either a batch mode name or canonical mode text.
func ParseFlag(text, keyword string) (domain.ValidationMode, error) {
	if mode, err := ParseBatch(text, keyword); err == nil {
		return mode, nil
	}
	return Parse(text)
}

// Resolve computes the mode of every named transition.
// Precedence: per-transition override, then batch, then NONE.
// A nil batch means no batch mode was requested.
func Resolve(names []string, batch domain.ValidationMode, overrides map[string]string, keyword string) (map[string]domain.ValidationMode, error) {
	out := make(map[string]domain.ValidationMode, len(names))
	for _, name := range names {
		if text, ok := overrides[name]; ok && strings.TrimSpace(text) != "" {
			mode, err := ParseFlag(text, keyword)
			if err != nil {
				return nil, fmt.Errorf("transition %s: %w", name, err)
			}
			out[name] = mode
			continue
		}
		if batch != nil {
			out[name] = batch
			continue
		}
		out[name] = domain.NoneMode{}
	}
	return out, nil
}

// Requirement describes, for a human or an agent, what a mode asks for.
func Requirement(mode domain.ValidationMode) string {
	switch m := mode.(type) {
	case domain.KeywordMode:
		return fmt.Sprintf("type the approval keyword %q to continue", m.Keyword)
	case domain.PullRequestMode:
		return "a merged pull request is required to continue"
	default:
		return "no approval required"
	}
}

// Gate describes the approval a transition asks for.
type Gate struct {
	Transition  string                `json:"transition"`
	Mode        domain.ValidationMode `json:"-"`
	Text        string                `json:"mode"`
	Requirement string                `json:"requirement"`
}

// Describe builds the Gate of a transition.
func Describe(transition string, mode domain.ValidationMode) Gate {
	if mode == nil {
		mode = domain.NoneMode{}
	}
	return Gate{
		Transition:  transition,
		Mode:        mode,
		Text:        Format(mode),
		Requirement: Requirement(mode),
	}
}

// Evidence is the approval supplied for a transition.
type Evidence struct {
	Keyword  string
	PRMerged bool
}

// Check reports whether evidence satisfies mode.
// It returns an error wrapping domain.ErrApprovalRequired when it does not.
func Check(mode domain.ValidationMode, ev Evidence) error {
	switch m := mode.(type) {
	case domain.KeywordMode:
		if strings.TrimSpace(ev.Keyword) != strings.TrimSpace(m.Keyword) {
			return fmt.Errorf("%w: %s", domain.ErrApprovalRequired, Requirement(m))
		}
	case domain.PullRequestMode:
		if !ev.PRMerged {
			return fmt.Errorf("%w: %s", domain.ErrApprovalRequired, Requirement(m))
		}
	}
	return nil
}
