// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Re-render the Markdown report from a saved result file",
	Long: `report reads a YAML result file saved with "search --out" and prints
its Markdown report, re-rendering from the stored result rather than the
saved formatted text.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rf, err := report.ReadResultFile(args[0])
		if err != nil {
			return err
		}
		fmt.Println(report.Render(rf.Result))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
