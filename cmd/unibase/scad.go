package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/river-berlin/unibase/internal/cli"
	"github.com/river-berlin/unibase/pkg/adapters/process"
	"github.com/river-berlin/unibase/pkg/scad"
)

var renderCmd = &cobra.Command{
	Use:   "render <file.scad|->",
	Short: "Convert a SCAD file to ASCII STL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := cli.NewLogger(cfg.Log)
		if err != nil {
			return err
		}
		text, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		renderer := process.NewRenderer(process.WithConfig(cfg.Renderer), process.WithLogger(logger))
		stl, err := renderer.Render(cmd.Context(), text)
		if err != nil {
			return err
		}
		if output == "" {
			_, err = io.WriteString(cmd.OutOrStdout(), stl)
			return err
		}
		return os.WriteFile(output, []byte(stl), 0o644)
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <file.scad|->",
	Short: "Print the objects of a SCAD file as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(scad.ParseAll(text))
	},
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func init() {
	rootCmd.AddCommand(renderCmd, parseCmd)

	renderCmd.Flags().StringP("output", "o", "", "Write the mesh to this file instead of stdout")
}
