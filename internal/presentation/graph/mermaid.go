package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/validation"
)

// GraphOverlay contains task data to visualize on the lifecycle.
type GraphOverlay struct {
	VisitedStates []domain.State
	CurrentState  domain.State
}

// GenerateMermaid produces a Mermaid flowchart of the lifecycle.
// It applies semantic styling:
// - First state: ((Circle))
// - Terminal states (no outgoing transition): ([Stadium])
// - Default: [Rectangle]
// Transition edges are labelled with their name, and gated transitions
// with their validation mode. Transitions performed by hand (via manual)
// are dotted. Overlay styles (Visited/Current) are applied if provided.
func GenerateMermaid(states []domain.State, transitions []domain.Transition, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	outgoing := make(map[domain.State]bool)
	for _, t := range transitions {
		for _, from := range t.From {
			outgoing[from] = true
		}
	}

	for i, state := range states {
		opener, closer := "[", "]"
		switch {
		case i == 0:
			opener, closer = "((", "))"
		case !outgoing[state]:
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(string(state)), opener, state, closer)
	}

	for _, t := range transitions {
		label := t.Name
		if t.Validation != nil && t.Validation.Kind() != domain.ValidationNone {
			label = fmt.Sprintf("%s <br/> 🔒 %s", t.Name, validation.Format(t.Validation))
		}
		label = strings.ReplaceAll(label, "\"", "'")

		arrow := fmt.Sprintf("-- \"%s\" -->", label)
		if t.Via == "manual" {
			arrow = fmt.Sprintf("-. \"%s\" .->", label)
		}
		to := sanitizeMermaidID(string(t.To))
		for _, from := range t.From {
			fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(string(from)), arrow, to)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, s := range overlay.VisitedStates {
			safeID := sanitizeMermaidID(string(s))
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentState != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(string(overlay.CurrentState)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(" ", "_", ".", "_", "-", "_", "/", "_", "\\", "_").Replace(id)
}
