package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowspec/pkg/config"
)

func seedProject(t *testing.T) (string, []byte) {
	t.Helper()
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join("testdata", "v1_workflow.yml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flowspec_workflow.yml"), data, 0644))
	return dir, data
}

func clock() func() time.Time { return func() time.Time { return fixedNow } }

func TestMigrateFile(t *testing.T) {
	dir, original := seedProject(t)

	res := MigrateFile(dir, Options{Now: clock()})

	require.Empty(t, res.Errors)
	assert.True(t, res.Migrated)
	assert.Equal(t, "1.0", res.FromVersion)
	assert.Equal(t, "2.0", res.ToVersion)
	assert.Equal(t, "v1.0 -> v2.0, 8 changes", res.Summary())

	assert.Equal(t, filepath.Join(dir, "flowspec_workflow.yml.backup-20260314-092653"), res.BackupPath)
	backup, err := os.ReadFile(res.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, original, backup)

	cfg, err := config.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "2.0", cfg.Version())
	assert.False(t, cfg.HasState("Deployed"))
	_, err = cfg.Workflow("operate")
	assert.Error(t, err)

	again := MigrateFile(dir, Options{Now: clock()})
	assert.False(t, again.Migrated)
	assert.Equal(t, "already at v2.0", again.Summary())
	assert.Empty(t, again.BackupPath)
}

func TestMigrateFile_WritesSectionsInOrder(t *testing.T) {
	dir, _ := seedProject(t)
	MigrateFile(dir, Options{Now: clock()})

	data, err := os.ReadFile(filepath.Join(dir, "flowspec_workflow.yml"))
	require.NoError(t, err)
	text := string(data)
	assert.Regexp(t, `^version: "2.0"`, text)
	assert.Less(t, strings.Index(text, "\nstates:"), strings.Index(text, "\nworkflows:"))
	assert.Less(t, strings.Index(text, "\nmetadata:"), strings.Index(text, "\nproject_notes:"))
}

func TestMigrateFile_DryRun(t *testing.T) {
	dir, original := seedProject(t)

	res := MigrateFile(dir, Options{DryRun: true, Now: clock()})

	assert.True(t, res.Migrated)
	assert.Len(t, res.Changes, 8)
	assert.Empty(t, res.BackupPath)

	current, err := os.ReadFile(filepath.Join(dir, "flowspec_workflow.yml"))
	require.NoError(t, err)
	assert.Equal(t, original, current)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "dry run writes nothing")
}

func TestMigrateFile_BackupDir(t *testing.T) {
	dir, _ := seedProject(t)
	backups := filepath.Join(t.TempDir(), "backups")

	res := MigrateFile(dir, Options{BackupDir: backups, Now: clock()})

	require.Empty(t, res.Errors)
	assert.Equal(t, backups, filepath.Dir(res.BackupPath))
	assert.FileExists(t, res.BackupPath)
}

func TestMigrateFile_NoConfig(t *testing.T) {
	res := MigrateFile(t.TempDir(), Options{})
	assert.False(t, res.Migrated)
	assert.Equal(t, "no migration needed", res.Summary())
}

func TestMigrateFile_ParseError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flowspec_workflow.yml"), []byte("states: [unclosed"), 0644))

	res := MigrateFile(dir, Options{})
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Failed to parse")
	assert.Equal(t, "1 errors", res.Summary())
}

func TestCompareAfterExtraction(t *testing.T) {
	write := func(t *testing.T, dir, body string) {
		t.Helper()
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "flowspec_workflow.yml"), []byte(body), 0644))
	}

	t.Run("release replaced a v1 config", func(t *testing.T) {
		root, backup := t.TempDir(), t.TempDir()
		write(t, backup, "states: [\"To Do\"]\nworkflows:\n  operate: {}\n  plan: {}\n")
		write(t, root, "version: \"2.0\"\nstates: [\"To Do\"]\nworkflows:\n  plan: {}\nroles: {}\n")

		res := CompareAfterExtraction(root, backup)

		assert.True(t, res.Migrated)
		assert.Equal(t, "1.0", res.FromVersion)
		assert.Equal(t, "2.0", res.ToVersion)
		assert.Equal(t, []string{
			"Version updated: 1.0 -> 2.0",
			"Added section: roles",
			"Removed deprecated workflow: operate",
		}, res.Changes)
	})

	t.Run("no previous config", func(t *testing.T) {
		root := t.TempDir()
		write(t, root, "version: \"2.0\"\n")

		res := CompareAfterExtraction(root, t.TempDir())
		assert.True(t, res.Migrated)
		assert.Equal(t, []string{"New flowspec_workflow.yml added"}, res.Changes)
	})

	t.Run("identical", func(t *testing.T) {
		root, backup := t.TempDir(), t.TempDir()
		write(t, root, "version: \"2.0\"\nstates: []\n")
		write(t, backup, "version: \"2.0\"\nstates: []\n")

		res := CompareAfterExtraction(root, backup)
		assert.False(t, res.Migrated)
		assert.Empty(t, res.Changes)
	})

	t.Run("nothing extracted", func(t *testing.T) {
		res := CompareAfterExtraction(t.TempDir(), t.TempDir())
		assert.False(t, res.Migrated)
	})
}
