package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/flowspec/internal/fsutil"
	"github.com/aretw0/flowspec/internal/logging"
	"github.com/aretw0/flowspec/pkg/config"
)

// BackupPrefix starts the name of every backup file.
const BackupPrefix = "flowspec_workflow.yml.backup-"

// Result describes a migration attempt.
type Result struct {
	Migrated    bool     `json:"migrated"`
	FromVersion string   `json:"from_version,omitempty"`
	ToVersion   string   `json:"to_version,omitempty"`
	Changes     []string `json:"changes"`
	BackupPath  string   `json:"backup_path,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

// Summary renders a one-line, human-readable outcome.
func (r Result) Summary() string {
	if !r.Migrated {
		switch {
		case r.FromVersion == TargetVersion:
			return "already at v" + TargetVersion
		case len(r.Errors) > 0:
			return fmt.Sprintf("%d errors", len(r.Errors))
		default:
			return "no migration needed"
		}
	}
	var parts []string
	if r.FromVersion != "" && r.ToVersion != "" {
		parts = append(parts, fmt.Sprintf("v%s -> v%s", r.FromVersion, r.ToVersion))
	}
	if len(r.Changes) > 0 {
		parts = append(parts, fmt.Sprintf("%d changes", len(r.Changes)))
	}
	if len(parts) == 0 {
		return "migrated"
	}
	return strings.Join(parts, ", ")
}

// Options controls MigrateFile.
type Options struct {
	// BackupDir receives the backup copy. Defaults to the project root.
	BackupDir string
	// DryRun computes the change list without writing anything.
	DryRun bool
	// Now stamps the backup name and metadata. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
}

// MigrateFile upgrades the configuration in projectRoot in place. A backup is
// written before the file is touched. A missing configuration is not an error.
func MigrateFile(projectRoot string, opts Options) Result {
	opts.defaults()
	res := Result{Changes: []string{}}

	path, err := config.Discover(projectRoot)
	if err != nil {
		opts.Logger.Debug("No workflow config found", "dir", projectRoot)
		return res
	}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Failed to read %s: %v", path, err))
		return res
	}
	raw, err := config.ParseMap(data)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Failed to parse %s: %v", path, err))
		return res
	}

	res.FromVersion = DetectVersion(raw)
	if res.FromVersion == TargetVersion {
		res.ToVersion = TargetVersion
		opts.Logger.Debug("Workflow config already current", "path", path)
		return res
	}

	now := opts.Now()
	if !opts.DryRun {
		dir := opts.BackupDir
		if dir == "" {
			dir = projectRoot
		}
		backup := filepath.Join(dir, BackupPrefix+now.Format("20060102-150405"))
		if err := copyFile(path, backup); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Failed to create backup: %v", err))
			return res
		}
		res.BackupPath = backup
		opts.Logger.Debug("Created backup", "path", backup)
	}

	migrated, changes, _ := Migrate(raw, now)
	res.Changes = changes
	res.ToVersion = TargetVersion
	res.Migrated = true

	if opts.DryRun {
		return res
	}
	if err := config.SaveMap(migrated, path); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Failed to write migrated config: %v", err))
		res.Migrated = false
		return res
	}
	opts.Logger.Info("Migrated workflow config", "path", path, "from", res.FromVersion, "to", res.ToVersion)
	return res
}

// CompareAfterExtraction reports what changed between the configuration in
// projectRoot and the copy saved in backupDir before a release was unpacked
// over the project.
func CompareAfterExtraction(projectRoot, backupDir string) Result {
	res := Result{Changes: []string{}}

	newer, err := readMap(filepath.Join(projectRoot, config.FileNames[0]))
	if errors.Is(err, fs.ErrNotExist) {
		return res
	}
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Failed to parse new config: %v", err))
		return res
	}
	res.ToVersion = DetectVersion(newer)

	older, err := readMap(filepath.Join(backupDir, config.FileNames[0]))
	if errors.Is(err, fs.ErrNotExist) {
		res.Changes = append(res.Changes, "New flowspec_workflow.yml added")
		res.Migrated = true
		return res
	}
	if err == nil {
		res.FromVersion = DetectVersion(older)
	}

	if res.FromVersion != res.ToVersion {
		res.Migrated = true
		res.Changes = append(res.Changes, fmt.Sprintf("Version updated: %s -> %s", res.FromVersion, res.ToVersion))
	}

	for _, section := range []string{"workflows", "states", "transitions", "roles", "agent_loops", "custom_workflows"} {
		_, had := older[section]
		_, has := newer[section]
		switch {
		case !had && has:
			res.Changes = append(res.Changes, "Added section: "+section)
			res.Migrated = true
		case had && !has:
			res.Changes = append(res.Changes, "Removed section: "+section)
			res.Migrated = true
		}
	}

	oldWorkflows, _ := older["workflows"].(map[string]any)
	newWorkflows, _ := newer["workflows"].(map[string]any)
	for _, name := range DeprecatedWorkflows {
		_, had := oldWorkflows[name]
		_, has := newWorkflows[name]
		if had && !has {
			res.Changes = append(res.Changes, "Removed deprecated workflow: "+name)
			res.Migrated = true
		}
	}
	return res
}

func readMap(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return config.ParseMap(data)
}

// copyFile copies src to dst keeping its mode and modification time.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(dst, data, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
