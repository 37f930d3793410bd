package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowspec/internal/presentation/tui"
	"github.com/aretw0/flowspec/pkg/domain"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the workflow configuration for structural problems",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, _, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		err = rt.Engine.Validate()
		if err == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "✓ configuration is valid")
			return nil
		}

		issues := []error{err}
		var agg *domain.AggregateError
		if errors.As(err, &agg) {
			issues = agg.Errors
		}
		tui.NewPrinter(cmd.OutOrStdout()).Issues(issues)
		return fmt.Errorf("configuration has %d problem(s)", len(issues))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
