package migration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowspec/pkg/config"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func loadV1(t *testing.T) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "v1_workflow.yml"))
	require.NoError(t, err)
	raw, err := config.ParseMap(data)
	require.NoError(t, err)
	return raw
}

func TestDetectVersion(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{"explicit string", map[string]any{"version": "2.0"}, "2.0"},
		{"explicit float", map[string]any{"version": 1.0}, "1.0"},
		{"explicit int", map[string]any{"version": 2}, "2.0"},
		{"roles implies v2", map[string]any{"roles": map[string]any{}}, "2.0"},
		{"agent loops implies v2", map[string]any{"agent_loops": map[string]any{}}, "2.0"},
		{"custom workflows implies v2", map[string]any{"custom_workflows": map[string]any{}}, "2.0"},
		{"operate workflow", map[string]any{"workflows": map[string]any{"operate": map[string]any{}}}, "1.0"},
		{"deployed state", map[string]any{"states": []any{"Deployed"}}, "1.0"},
		{"empty document", map[string]any{}, "1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectVersion(tt.raw))
		})
	}
}

func TestMigrate_V1Document(t *testing.T) {
	raw := loadV1(t)
	out, changes, migrated := Migrate(raw, fixedNow)

	require.True(t, migrated)
	assert.Equal(t, "2.0", out["version"])

	workflows := out["workflows"].(map[string]any)
	assert.NotContains(t, workflows, "operate")
	assert.Len(t, workflows, 3)

	assert.Equal(t, []any{"To Do", "Planned", "In Implementation", "Validated", "Done"}, out["states"])

	var names []string
	for _, tr := range out["transitions"].([]any) {
		names = append(names, tr.(map[string]any)["name"].(string))
	}
	assert.Equal(t, []string{"plan", "implement", "validate", "complete"}, names, "name and via: operate both drop a transition")

	assert.Contains(t, out, "roles")
	assert.Contains(t, out, "agent_loops")
	assert.Contains(t, out, "custom_workflows")
	assert.Equal(t, "kept as is", out["project_notes"])

	meta := out["metadata"].(map[string]any)
	assert.Equal(t, "2.0", meta["schema_version"])
	assert.Equal(t, 5, meta["state_count"])
	assert.Equal(t, 3, meta["workflow_count"])
	assert.Equal(t, "2026-03-14", meta["last_updated"])

	assert.Equal(t, []string{
		"Added version: 2.0",
		"Removed deprecated workflow: operate",
		"Removed deprecated states: [Deployed]",
		"Removed 3 deprecated transitions",
		"Added roles section with default configuration",
		"Added agent_loops section",
		"Added custom_workflows section with default workflows",
		"Updated metadata to reflect v2.0 schema",
	}, changes)

	// The input is untouched.
	assert.Contains(t, raw["workflows"], "operate")
	assert.NotContains(t, raw, "roles")
}

func TestMigrate_ResultLoadsAndValidates(t *testing.T) {
	out, _, _ := Migrate(loadV1(t), fixedNow)

	cfg, err := config.FromMap(out)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.NotNil(t, cfg.Roles())
	assert.Equal(t, "dev", cfg.Roles().Primary)
	assert.Len(t, cfg.AgentLoops(), 2)
	assert.Len(t, cfg.CustomWorkflows(), 3)
}

func TestMigrate_KeepsExistingSections(t *testing.T) {
	raw := map[string]any{
		"version":     "1.0",
		"agent_loops": map[string]any{"solo": map[string]any{"agents": []any{"me"}}},
	}
	out, changes, migrated := Migrate(raw, fixedNow)

	require.True(t, migrated)
	assert.Equal(t, raw["agent_loops"], out["agent_loops"])
	assert.NotContains(t, changes, "Added agent_loops section")
}

func TestMigrate_Metadata(t *testing.T) {
	t.Run("missing section is created", func(t *testing.T) {
		out, changes, migrated := Migrate(map[string]any{"version": "1.0"}, fixedNow)
		require.True(t, migrated)
		assert.Equal(t, map[string]any{"schema_version": "2.0", "last_updated": "2026-03-14"}, out["metadata"])
		assert.Contains(t, changes, "Updated metadata to reflect v2.0 schema")
	})

	t.Run("non-mapping section is left alone", func(t *testing.T) {
		out, changes, migrated := Migrate(map[string]any{"version": "1.0", "metadata": "legacy"}, fixedNow)
		require.True(t, migrated)
		assert.Equal(t, "legacy", out["metadata"])
		assert.NotContains(t, changes, "Updated metadata to reflect v2.0 schema")
	})
}

func TestMigrate_Idempotent(t *testing.T) {
	first, _, _ := Migrate(loadV1(t), fixedNow)
	second, changes, migrated := Migrate(first, fixedNow.Add(24*time.Hour))

	assert.False(t, migrated)
	assert.Empty(t, changes)
	assert.Equal(t, first, second)
}

func TestMigrate_DefaultsAreFreshCopies(t *testing.T) {
	a, _, _ := Migrate(map[string]any{}, fixedNow)
	a["roles"].(map[string]any)["primary"] = "qa"

	b, _, _ := Migrate(map[string]any{}, fixedNow)
	assert.Equal(t, "dev", b["roles"].(map[string]any)["primary"])
}

func TestResult_Summary(t *testing.T) {
	tests := []struct {
		res  Result
		want string
	}{
		{Result{}, "no migration needed"},
		{Result{FromVersion: "2.0"}, "already at v2.0"},
		{Result{Errors: []string{"a", "b"}}, "2 errors"},
		{Result{Migrated: true, FromVersion: "1.0", ToVersion: "2.0", Changes: []string{"x", "y", "z"}}, "v1.0 -> v2.0, 3 changes"},
		{Result{Migrated: true}, "migrated"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.res.Summary())
		})
	}
}
