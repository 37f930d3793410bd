package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowspec/internal/cli"
	"github.com/aretw0/flowspec/internal/presentation/tui"
)

var listCmd = &cobra.Command{
	Use:   "list-meta-workflows",
	Short: "List the meta-workflows defined for the project",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, _, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		list := rt.Engine.ListMetaWorkflows()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), list)
		}
		tui.NewPrinter(cmd.OutOrStdout()).MetaWorkflows(list)
		return nil
	},
}

var runMetaCmd = &cobra.Command{
	Use:   "run-meta-workflow <name>",
	Short: "Run a meta-workflow",
	Long: `Runs each sub-workflow of the meta-workflow in order, skipping optional
steps whose condition does not hold, then evaluates its quality gates.
With --task the task must be in the meta-workflow's input state and is moved
through every step's output state.`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, _ := cmd.Flags().GetString("task")
		pairs, _ := cmd.Flags().GetStringArray("context")
		execCtx, err := cli.ParseContextArgs(pairs)
		if err != nil {
			return err
		}

		rt, _, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		res := rt.Engine.Run(ctx, args[0], taskID, execCtx)
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
		} else {
			tui.NewPrinter(cmd.OutOrStdout()).Result(res)
		}
		return failure(res.Success, res.Err, res.Error)
	},
}

var runWorkflowCmd = &cobra.Command{
	Use:   "run-workflow <name>",
	Short: "Run a single workflow",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, _ := cmd.Flags().GetString("task")
		pairs, _ := cmd.Flags().GetStringArray("context")
		execCtx, err := cli.ParseContextArgs(pairs)
		if err != nil {
			return err
		}
		if taskID != "" {
			execCtx["task_id"] = taskID
		}

		rt, _, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		res := rt.Engine.RunWorkflow(ctx, args[0], execCtx)
		if err := printJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		return failure(res.Success, res.Err, res.Error)
	},
}

func init() {
	rootCmd.AddCommand(listCmd, runMetaCmd, runWorkflowCmd)

	listCmd.Flags().Bool("json", false, "Print the listing as JSON")

	for _, c := range []*cobra.Command{runMetaCmd, runWorkflowCmd} {
		c.Flags().String("task", "", "Tracker task id")
		c.Flags().StringArray("context", nil, "Execution context entry as key=value (repeatable)")
	}
	runMetaCmd.Flags().Bool("json", false, "Print the result as JSON")
}

// failure returns the error behind an unsuccessful result.
func failure(success bool, err error, msg string) error {
	switch {
	case success:
		return nil
	case err != nil:
		return err
	default:
		return errors.New(msg)
	}
}
