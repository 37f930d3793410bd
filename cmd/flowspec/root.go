package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aretw0/flowspec/internal/cli"
	"github.com/aretw0/flowspec/internal/settings"
	"github.com/aretw0/flowspec/pkg/ports"
)

var rootCmd = &cobra.Command{
	Use:   "flowspec",
	Short: "flowspec orchestrates spec-driven development lifecycles",
	Long: `flowspec loads flowspec_workflow.yml, validates it and runs meta-workflows
against a task tracker, moving tasks through their lifecycle states and
enforcing approval and quality gates along the way.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and exits with the
// code matching the outcome.
func Execute() {
	err := rootCmd.Execute()
	if err != nil && strings.HasPrefix(err.Error(), "unknown command") {
		err = cli.Usage(err)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("dir", ".", "Project root containing flowspec_workflow.yml")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("tracker", "", "Task tracker: memory, backlog or redis")
	flags.String("events", "", "Event sink: none, file or redis")
	flags.String("redis-addr", "", "Redis address for the redis tracker and event stream")
	flags.Duration("step-timeout", 0, "Maximum duration of each sub-workflow (0 disables)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return cli.Usage(err)
	})
}

// projectRoot returns the --dir flag.
func projectRoot(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("dir")
	return dir
}

// loadSettings layers command-line flags over the settings file and environment.
func loadSettings(cmd *cobra.Command) (settings.Settings, error) {
	v, err := settings.New(projectRoot(cmd))
	if err != nil {
		return settings.Settings{}, err
	}
	bind(v, cmd, "tracker", "tracker")
	bind(v, cmd, "events", "events")
	bind(v, cmd, "log_level", "log-level")
	bind(v, cmd, "redis.addr", "redis-addr")
	bind(v, cmd, "step_timeout", "step-timeout")
	s, err := settings.Decode(v)
	if err != nil {
		return settings.Settings{}, cli.Usage(err)
	}
	return s, nil
}

// bind lets a flag override key only when the user set it.
func bind(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		_ = v.BindPFlag(key, f)
	}
}

// newRuntime builds the engine for the command's project.
func newRuntime(cmd *cobra.Command, extraSinks ...ports.EventSink) (*cli.Runtime, *slog.Logger, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	logger, err := newLogger(s.LogLevel, debug)
	if err != nil {
		return nil, nil, err
	}
	rt, err := cli.NewRuntime(projectRoot(cmd), s, logger, extraSinks...)
	if err != nil {
		return nil, nil, err
	}
	return rt, logger, nil
}

func newLogger(level string, debug bool) (*slog.Logger, error) {
	logger, err := cli.NewLogger(level, debug)
	if err != nil {
		return nil, cli.Usage(err)
	}
	return logger, nil
}

func usageErrorf(format string, args ...any) error {
	return cli.Usage(fmt.Errorf(format, args...))
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return cli.Usage(err)
		}
		return nil
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
