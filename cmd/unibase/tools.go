package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/river-berlin/unibase"
	"github.com/river-berlin/unibase/pkg/registry"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools offered to the model",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		out := cmd.OutOrStdout()

		tools := registry.NewSceneRegistry().Tools()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(tools)
		}
		for _, t := range tools {
			fmt.Fprintf(out, "%-24s %s\n", t.Name, t.Description)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of unibase",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "unibase version %s\n", strings.TrimSpace(unibase.Version))
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd, versionCmd)

	toolsCmd.Flags().Bool("json", false, "Print the tool definitions as JSON")
}
