// Package migration upgrades flowspec_workflow.yml documents from the v1.0
// schema to v2.0.
//
// Migration works on the generic document map so that keys the typed model
// does not know about survive the upgrade untouched.
package migration

import (
	"fmt"
	"slices"
	"time"

	"github.com/aretw0/flowspec/pkg/config"
)

// Schema versions.
const (
	VersionV1     = "1.0"
	TargetVersion = "2.0"
)

// Elements removed by the v2.0 schema.
var (
	DeprecatedWorkflows   = []string{"operate"}
	DeprecatedStates      = []string{"Deployed"}
	DeprecatedTransitions = []string{"operate", "complete_from_deployed", "rollback", "complete_from_operated"}
)

// DetectVersion reports the schema version of a document. An explicit version
// wins; otherwise any v2.0 section implies 2.0 and everything else is 1.0.
func DetectVersion(raw map[string]any) string {
	if v, ok := raw["version"]; ok && v != nil && fmt.Sprint(v) != "" {
		return formatVersion(v)
	}
	for _, section := range []string{"roles", "custom_workflows", "agent_loops"} {
		if _, ok := raw[section]; ok {
			return TargetVersion
		}
	}
	return VersionV1
}

// formatVersion renders YAML numbers such as 2 or 2.0 as "2.0".
func formatVersion(v any) string {
	switch n := v.(type) {
	case int:
		return fmt.Sprintf("%d.0", n)
	case float64:
		if n == float64(int64(n)) {
			return fmt.Sprintf("%.1f", n)
		}
		return fmt.Sprint(n)
	}
	return fmt.Sprint(v)
}

// Migrate upgrades a v1.0 document. The input is never modified. Documents
// already at the target version come back as an unchanged copy with
// migrated=false. now stamps metadata.last_updated.
func Migrate(raw map[string]any, now time.Time) (out map[string]any, changes []string, migrated bool) {
	out = config.CloneMap(raw)
	if out == nil {
		out = map[string]any{}
	}
	if DetectVersion(raw) == TargetVersion {
		return out, nil, false
	}

	out["version"] = TargetVersion
	changes = append(changes, "Added version: "+TargetVersion)

	if workflows, ok := out["workflows"].(map[string]any); ok {
		for _, name := range DeprecatedWorkflows {
			if _, found := workflows[name]; found {
				delete(workflows, name)
				changes = append(changes, "Removed deprecated workflow: "+name)
			}
		}
	}

	if states, ok := out["states"].([]any); ok {
		kept := slices.DeleteFunc(slices.Clone(states), func(s any) bool {
			name, _ := s.(string)
			return slices.Contains(DeprecatedStates, name)
		})
		if len(kept) < len(states) {
			changes = append(changes, fmt.Sprintf("Removed deprecated states: %v", DeprecatedStates))
		}
		out["states"] = kept
	}

	if transitions, ok := out["transitions"].([]any); ok {
		kept := slices.DeleteFunc(slices.Clone(transitions), deprecatedTransition)
		if removed := len(transitions) - len(kept); removed > 0 {
			changes = append(changes, fmt.Sprintf("Removed %d deprecated transitions", removed))
		}
		out["transitions"] = kept
	}

	if _, ok := out["roles"]; !ok {
		out["roles"] = defaultRoles()
		changes = append(changes, "Added roles section with default configuration")
	}
	if _, ok := out["agent_loops"]; !ok {
		out["agent_loops"] = defaultAgentLoops()
		changes = append(changes, "Added agent_loops section")
	}
	if _, ok := out["custom_workflows"]; !ok {
		out["custom_workflows"] = defaultCustomWorkflows()
		changes = append(changes, "Added custom_workflows section with default workflows")
	}

	// A missing metadata section is created; one that is not a mapping is
	// left alone.
	var metadata map[string]any
	switch m := out["metadata"].(type) {
	case map[string]any:
		metadata = m
	case nil:
		metadata = map[string]any{}
	}
	if metadata != nil {
		metadata["schema_version"] = TargetVersion
		if _, ok := metadata["state_count"]; ok {
			metadata["state_count"] = length(out["states"])
		}
		if _, ok := metadata["workflow_count"]; ok {
			metadata["workflow_count"] = length(out["workflows"])
		}
		metadata["last_updated"] = now.Format(time.DateOnly)
		out["metadata"] = metadata
		changes = append(changes, "Updated metadata to reflect v2.0 schema")
	}

	return out, changes, true
}

func deprecatedTransition(t any) bool {
	m, ok := t.(map[string]any)
	if !ok {
		return false
	}
	name, _ := m["name"].(string)
	via, _ := m["via"].(string)
	return slices.Contains(DeprecatedTransitions, name) || slices.Contains(DeprecatedWorkflows, via)
}

func length(v any) int {
	switch t := v.(type) {
	case []any:
		return len(t)
	case map[string]any:
		return len(t)
	}
	return 0
}
