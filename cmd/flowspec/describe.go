package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowspec/internal/presentation/tui"
)

var describeCmd = &cobra.Command{
	Use:   "describe <meta-workflow>",
	Short: "Describe a meta-workflow: its steps, conditions and quality gates",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, _, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		meta, err := rt.Engine.Config().MetaWorkflow(args[0])
		if err != nil {
			return err
		}
		md := tui.DescribeMarkdown(meta)
		if plain, _ := cmd.Flags().GetBool("plain"); plain {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}
		width, _ := cmd.Flags().GetInt("width")
		fmt.Fprint(cmd.OutOrStdout(), tui.RenderMarkdown(md, width))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().Bool("plain", false, "Print raw markdown")
	describeCmd.Flags().Int("width", tui.DefaultWrap, "Wrap rendered output at this column")
}
