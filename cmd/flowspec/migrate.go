package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowspec/pkg/migration"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade flowspec_workflow.yml to the current schema version",
	Long: `Upgrades the project configuration in place. A timestamped backup is
written before the file is changed. With --compare, reports what differs
between the configuration and the copy kept in --backup-dir instead.`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		backupDir, _ := cmd.Flags().GetString("backup-dir")
		compare, _ := cmd.Flags().GetBool("compare")
		asJSON, _ := cmd.Flags().GetBool("json")

		var res migration.Result
		if compare {
			if backupDir == "" {
				return usageErrorf("--compare requires --backup-dir")
			}
			res = migration.CompareAfterExtraction(projectRoot(cmd), backupDir)
		} else {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			debug, _ := cmd.Flags().GetBool("debug")
			logger, err := newLogger(s.LogLevel, debug)
			if err != nil {
				return err
			}
			res = migration.MigrateFile(projectRoot(cmd), migration.Options{
				BackupDir: backupDir,
				DryRun:    dryRun,
				Logger:    logger,
			})
		}

		out := cmd.OutOrStdout()
		if asJSON {
			if err := printJSON(out, res); err != nil {
				return err
			}
		} else {
			prefix := ""
			if dryRun {
				prefix = "[dry run] "
			}
			fmt.Fprintf(out, "%s%s\n", prefix, res.Summary())
			for _, change := range res.Changes {
				fmt.Fprintf(out, "  - %s\n", change)
			}
			if res.BackupPath != "" {
				fmt.Fprintf(out, "backup: %s\n", res.BackupPath)
			}
			for _, e := range res.Errors {
				fmt.Fprintf(out, "  ✗ %s\n", e)
			}
		}
		if len(res.Errors) > 0 {
			return fmt.Errorf("migration failed with %d error(s)", len(res.Errors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("dry-run", false, "Show the changes without writing")
	migrateCmd.Flags().String("backup-dir", "", "Directory receiving the backup (defaults to the project root)")
	migrateCmd.Flags().Bool("compare", false, "Compare against the copy in --backup-dir")
	migrateCmd.Flags().Bool("json", false, "Print the result as JSON")
}
