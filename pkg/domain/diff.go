package domain

import "reflect"

// DiffContext returns the keys that changed between two execution contexts.
// Added and modified keys carry their new value; deleted keys map to nil.
// It returns nil when nothing changed.
func DiffContext(before, after ExecutionContext) map[string]any {
	delta := make(map[string]any)

	for k, newVal := range after {
		oldVal, exists := before[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	for k := range before {
		if _, exists := after[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}
