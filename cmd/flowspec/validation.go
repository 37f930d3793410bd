package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowspec"
	"github.com/aretw0/flowspec/internal/cli"
	"github.com/aretw0/flowspec/pkg/config"
	"github.com/aretw0/flowspec/pkg/domain"
	"github.com/aretw0/flowspec/pkg/validation"
)

var validationCmd = &cobra.Command{
	Use:   "validation",
	Short: "Manage transition approval modes",
}

var validationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the approval mode of every transition",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, _, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		gates := make([]validation.Gate, 0)
		for _, name := range rt.Engine.Config().TransitionNames() {
			gate, err := rt.Engine.Gate(name)
			if err != nil {
				return err
			}
			gates = append(gates, gate)
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), gates)
		}
		for _, g := range gates {
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-24s %s\n", g.Transition, g.Text, g.Requirement)
		}
		return nil
	},
}

var validationSetCmd = &cobra.Command{
	Use:   "set <transition> <mode>",
	Short: "Set the approval mode of one transition",
	Long: `Sets the mode of a transition in .flowspec/validation.yml. The mode is
none, keyword, pull-request or canonical text such as NONE, PULL_REQUEST
or KEYWORD["APPROVED"].`,
	Args: exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyword, _ := cmd.Flags().GetString("keyword")
		mode, err := validation.ParseFlag(args[1], keyword)
		if err != nil {
			return cli.Usage(err)
		}

		path := validationPath(cmd)
		vc, err := validation.Load(path)
		if errors.Is(err, domain.ErrConfigNotFound) {
			vc, err = validation.NewConfig(), nil
		}
		if err != nil {
			return err
		}
		vc.SetMode(args[0], mode)
		if err := vc.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], validation.Format(mode))
		return nil
	},
}

var validationInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write .flowspec/validation.yml for every transition",
	Long: `Writes the approval mode of every transition. --validation-mode applies
one mode to all of them; per-transition flags such as --specify win over it.
On a terminal, and unless --no-validation-prompts is given, transitions left
undecided are asked for interactively.`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := transitionNames(projectRoot(cmd))
		if err != nil {
			return err
		}
		batch, _ := cmd.Flags().GetString("validation-mode")
		keyword, _ := cmd.Flags().GetString("keyword")
		noPrompt, _ := cmd.Flags().GetBool("no-validation-prompts")

		overrides := make(map[string]string)
		for _, name := range names {
			if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
				overrides[name] = f.Value.String()
			}
		}

		modes, err := cli.InitValidation(cli.InitOptions{
			Names:     names,
			Batch:     batch,
			Keyword:   keyword,
			Overrides: overrides,
			Prompt:    !noPrompt && cli.IsInteractive(os.Stdin),
			In:        cmd.InOrStdin(),
			Out:       cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}

		vc := validation.NewConfig()
		vc.Apply(names, modes)
		path := validationPath(cmd)
		if err := vc.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		for _, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-12s %s\n", name, vc.Text(name))
		}
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <transition>",
	Short: "Check approval evidence against a transition's gate",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyword, _ := cmd.Flags().GetString("keyword")
		merged, _ := cmd.Flags().GetBool("pr-merged")

		rt, _, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ev := validation.Evidence{Keyword: keyword, PRMerged: merged}
		if err := rt.Engine.CheckApproval(args[0], ev); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ transition %s approved\n", args[0])
		return nil
	},
}

func validationPath(cmd *cobra.Command) string {
	return filepath.Join(projectRoot(cmd), flowspec.ValidationFile)
}

// transitionNames lists the project's transitions, falling back to the
// standard lifecycle when there is no workflow config yet.
func transitionNames(root string) ([]string, error) {
	cfg, err := config.LoadDir(root)
	if errors.Is(err, domain.ErrConfigNotFound) {
		return validation.KnownTransitions, nil
	}
	if err != nil {
		return nil, err
	}
	if names := cfg.TransitionNames(); len(names) > 0 {
		return names, nil
	}
	return validation.KnownTransitions, nil
}

func init() {
	rootCmd.AddCommand(validationCmd, approveCmd)
	validationCmd.AddCommand(validationShowCmd, validationSetCmd, validationInitCmd)

	validationShowCmd.Flags().Bool("json", false, "Print the gates as JSON")
	validationSetCmd.Flags().String("keyword", validation.DefaultKeyword, "Keyword used by the keyword mode")

	f := validationInitCmd.Flags()
	f.String("validation-mode", "", "Mode for every transition: none, keyword or pull-request")
	f.String("keyword", validation.DefaultKeyword, "Keyword used by the keyword mode")
	f.Bool("no-validation-prompts", false, "Never prompt; undecided transitions are NONE")
	for _, name := range validation.KnownTransitions {
		f.String(name, "", fmt.Sprintf("Mode for the %s transition", name))
	}

	approveCmd.Flags().String("keyword", "", "Approval keyword supplied by the reviewer")
	approveCmd.Flags().Bool("pr-merged", false, "The transition's pull request is merged")
}
