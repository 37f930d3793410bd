package domain

// ValidationKind identifies the variant of a ValidationMode.
type ValidationKind string

const (
	ValidationNone        ValidationKind = "NONE"
	ValidationKeyword     ValidationKind = "KEYWORD"
	ValidationPullRequest ValidationKind = "PULL_REQUEST"
)

// ValidationMode is the approval requirement attached to a transition.
// It is a closed set: NoneMode, KeywordMode and PullRequestMode.
type ValidationMode interface {
	Kind() ValidationKind
	validationMode()
}

// NoneMode means the transition fires without additional approval.
type NoneMode struct{}

// KeywordMode requires a typed approval keyword before the transition fires.
type KeywordMode struct {
	Keyword string
}

// PullRequestMode requires a merged pull request before the transition fires.
type PullRequestMode struct{}

func (NoneMode) Kind() ValidationKind        { return ValidationNone }
func (KeywordMode) Kind() ValidationKind     { return ValidationKeyword }
func (PullRequestMode) Kind() ValidationKind { return ValidationPullRequest }

func (NoneMode) validationMode()        {}
func (KeywordMode) validationMode()     {}
func (PullRequestMode) validationMode() {}

// Transition defines a named, gated move between lifecycle states.
type Transition struct {
	Name string  `json:"name"`
	From []State `json:"from"`
	To   State   `json:"to"`

	// Via names the workflow that performs this transition, if any.
	Via     string   `json:"via,omitempty"`
	Command string   `json:"command,omitempty"`
	Agents  []string `json:"agents,omitempty"`

	// Validation is never nil once a config is loaded; absence decodes to NoneMode.
	Validation ValidationMode `json:"-"`
}

// AllowsFrom reports whether the transition may fire from the given state.
func (t Transition) AllowsFrom(current State) bool {
	return ContainsState(t.From, current)
}
