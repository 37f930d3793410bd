package migration

// Sections injected into v1.0 documents that lack them. Each call returns a
// fresh copy so callers may mutate the result.

func defaultRoles() map[string]any {
	return map[string]any{
		"primary":           "dev",
		"show_all_commands": false,
		"definitions": map[string]any{
			"arch": role("Architect", "\U0001f3d7\ufe0f",
				[]any{"decide", "model"},
				[]any{"@software-architect", "@platform-engineer"}),
			"dev": role("Developer", "\U0001f4bb",
				[]any{"cleanup", "debug", "refactor"},
				[]any{"@frontend-engineer", "@backend-engineer", "@ai-ml-engineer"}),
			"sec": role("Security Engineer", "\U0001f512",
				[]any{"fix", "report", "scan", "triage"},
				[]any{"@secure-by-design-engineer"}),
			"qa": role("QA Engineer", "\u2705",
				[]any{"review", "test"},
				[]any{"@quality-guardian", "@release-manager"}),
			"ops": role("SRE/DevOps", "\U0001f680",
				[]any{"monitor", "respond", "scale"},
				[]any{"@sre-agent"}),
			"all": role("All Roles", "\U0001f310", []any{}, []any{}),
		},
	}
}

func role(display, icon string, commands, agents []any) map[string]any {
	return map[string]any{
		"display_name": display,
		"icon":         icon,
		"commands":     commands,
		"agents":       agents,
	}
}

func defaultAgentLoops() map[string]any {
	return map[string]any{
		"inner": map[string]any{
			"description": "Fast execution - optimized for developer velocity",
			"agents": []any{
				"frontend-engineer", "backend-engineer", "ai-ml-engineer",
				"frontend-code-reviewer", "backend-code-reviewer",
			},
		},
		"outer": map[string]any{
			"description": "Governance-focused - optimized for safety and reliability",
			"agents": []any{
				"workflow-assessor", "product-requirements-manager", "researcher",
				"business-validator", "software-architect", "platform-engineer",
				"quality-guardian", "secure-by-design-engineer", "tech-writer",
				"release-manager", "sre-agent", "pr-monitor",
			},
		},
	}
}

func defaultCustomWorkflows() map[string]any {
	return map[string]any{
		"quick_build": map[string]any{
			"name":        "Quick Build",
			"description": "Lightweight workflow for simple features",
			"mode":        "vibing",
			"steps":       steps("specify", "implement", "validate"),
			"rigor":       fullRigor(),
		},
		"full_design": map[string]any{
			"name":        "Full Design Workflow",
			"description": "Complete design workflow with conditional research",
			"mode":        "spec-ing",
			"steps": []any{
				map[string]any{"workflow": "assess"},
				map[string]any{"workflow": "specify", "checkpoint": "Review PRD before continuing?"},
				map[string]any{"workflow": "research", "condition": "complexity >= 7"},
				map[string]any{"workflow": "plan", "checkpoint": "Review architecture before implementing?"},
			},
			"rigor": fullRigor(),
		},
		"ship_it": map[string]any{
			"name":        "Build and Ship",
			"description": "Implementation to validation with PR submission",
			"mode":        "vibing",
			"steps":       steps("implement", "validate", "submit-n-watch-pr"),
			"rigor":       fullRigor(),
		},
	}
}

func steps(workflows ...string) []any {
	out := make([]any, len(workflows))
	for i, w := range workflows {
		out[i] = map[string]any{"workflow": w}
	}
	return out
}

func fullRigor() map[string]any {
	return map[string]any{
		"log_decisions":       true,
		"log_events":          true,
		"backlog_integration": true,
		"memory_tracking":     true,
		"follow_constitution": true,
		"create_adrs":         true,
	}
}
