package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiffContext(t *testing.T) {
	tests := []struct {
		name   string
		before ExecutionContext
		after  ExecutionContext
		want   map[string]any
	}{
		{
			name:   "Initial Load (Before Is Nil)",
			before: nil,
			after:  ExecutionContext{"a": 1},
			want:   map[string]any{"a": 1},
		},
		{
			name:   "No Changes",
			before: ExecutionContext{"a": 1},
			after:  ExecutionContext{"a": 1},
			want:   nil,
		},
		{
			name:   "Added & Modified",
			before: ExecutionContext{"a": 1, "b": "old"},
			after:  ExecutionContext{"a": 1, "b": "new", "assess_completed": true},
			want:   map[string]any{"b": "new", "assess_completed": true},
		},
		{
			name:   "Deletion",
			before: ExecutionContext{"a": 1, "b": 2},
			after:  ExecutionContext{"a": 1},
			want:   map[string]any{"b": nil},
		},
		{
			name:   "Slice Values Compared Deeply",
			before: ExecutionContext{"plan_artifacts": []string{"a.md"}},
			after:  ExecutionContext{"plan_artifacts": []string{"a.md"}},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiffContext(tt.before, tt.after)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DiffContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiffContextJSONDeletionsAsNull(t *testing.T) {
	diff := DiffContext(ExecutionContext{"a": 1, "b": 2}, ExecutionContext{"a": 1})
	if diff == nil {
		t.Fatal("Expected diff, got nil")
	}

	bytes, _ := json.Marshal(diff)
	if !strings.Contains(string(bytes), `"b":null`) {
		t.Errorf("JSON should contain 'b':null for deletion, got: %s", string(bytes))
	}
}
