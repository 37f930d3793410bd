package domain

// State is a named point in a unit-of-work's lifecycle.
// States are declared by the project config and never mutated at runtime;
// the current state of a unit of work lives in the external tracker.
type State string

// String returns the state name.
func (s State) String() string {
	return string(s)
}

// StateNames converts a slice of states into plain strings.
func StateNames(states []State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

// ContainsState reports whether target is one of states.
func ContainsState(states []State, target State) bool {
	for _, s := range states {
		if s == target {
			return true
		}
	}
	return false
}
