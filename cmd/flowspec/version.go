package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowspec"
	"github.com/aretw0/flowspec/internal/presentation/tui"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of flowspec",
	Args:  exactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		if banner, _ := cmd.Flags().GetBool("banner"); banner {
			tui.PrintBanner(cmd.OutOrStdout(), strings.TrimSpace(flowspec.Version))
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "flowspec version %s\n", strings.TrimSpace(flowspec.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("banner", false, "Print the banner")
}
