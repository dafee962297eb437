package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/river-berlin/unibase/internal/cli"
	"github.com/river-berlin/unibase/internal/presentation/tui"
)

var promptCmd = &cobra.Command{
	Use:   "prompt [instruction]",
	Short: "Edit a project from the command line",
	Long: `Sends an instruction to the modelling agent and prints the reasoning and the
resulting scene. Without an instruction it reads one instruction per line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, _ := cmd.Flags().GetString("project")
		stlPath, _ := cmd.Flags().GetString("stl")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		app, err := buildApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		session := cli.NewSession(app.Engine, projectID, cmd.OutOrStdout())

		if len(args) == 0 {
			if tui.IsTerminal(os.Stdout) {
				tui.PrintBanner(cmd.OutOrStdout())
			}
			return session.Loop(ctx, cmd.InOrStdin())
		}

		res, err := session.Once(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if stlPath != "" && res.STL != "" {
			return os.WriteFile(stlPath, []byte(res.STL), 0o644)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promptCmd)

	promptCmd.Flags().StringP("project", "p", "default", "Project to edit")
	promptCmd.Flags().String("stl", "", "Write the rendered mesh to this file")
}
