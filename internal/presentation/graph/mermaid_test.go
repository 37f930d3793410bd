package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/flowspec/internal/presentation/graph"
	"github.com/aretw0/flowspec/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	states := []domain.State{"To Do", "Specified", "In Implementation", "Done"}
	transitions := []domain.Transition{
		{Name: "specify", From: []domain.State{"To Do"}, To: "Specified", Validation: domain.KeywordMode{Keyword: "PRD_APPROVED"}},
		{Name: "implement", From: []domain.State{"Specified"}, To: "In Implementation", Validation: domain.NoneMode{}},
		{Name: "complete", From: []domain.State{"In Implementation", "Specified"}, To: "Done", Via: "manual"},
	}

	tests := []struct {
		name     string
		overlay  *graph.GraphOverlay
		contains []string
	}{
		{
			name: "State Shapes",
			contains: []string{
				`To_Do(("To Do"))`,
				`Specified["Specified"]`,
				`Done(["Done"])`,
			},
		},
		{
			name: "ID Sanitization",
			contains: []string{
				`In_Implementation["In Implementation"]`,
			},
		},
		{
			name: "Gated Transition Label",
			contains: []string{
				`To_Do -- "specify <br/> 🔒 KEYWORD['PRD_APPROVED']" --> Specified`,
				`Specified -- "implement" --> In_Implementation`,
			},
		},
		{
			name: "Manual Transition Fans Out",
			contains: []string{
				`In_Implementation -. "complete" .-> Done`,
				`Specified -. "complete" .-> Done`,
			},
		},
		{
			name:    "Overlay",
			overlay: &graph.GraphOverlay{VisitedStates: []domain.State{"To Do", "To Do"}, CurrentState: "Specified"},
			contains: []string{
				"class To_Do visited;",
				"class Specified current;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(states, transitions, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			if tt.overlay != nil && strings.Count(got, "class To_Do visited;") != 1 {
				t.Errorf("visited states should be deduplicated:\n%v", got)
			}
		})
	}
}
