package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowspec/internal/presentation/graph"
	"github.com/aretw0/flowspec/pkg/domain"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the lifecycle as a Mermaid flowchart",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		current, _ := cmd.Flags().GetString("current")
		visited, _ := cmd.Flags().GetStringSlice("visited")

		rt, _, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		var overlay *graph.GraphOverlay
		if current != "" || len(visited) > 0 {
			overlay = &graph.GraphOverlay{CurrentState: domain.State(current)}
			for _, s := range visited {
				overlay.VisitedStates = append(overlay.VisitedStates, domain.State(s))
			}
		}

		cfg := rt.Engine.Config()
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(cfg.States(), cfg.Transitions(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("current", "", "Highlight the state a task is in")
	graphCmd.Flags().StringSlice("visited", nil, "Highlight states a task went through")
}
