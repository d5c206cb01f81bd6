package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var (
	flagBudget int
	flagFiles  []string
)

var contextCmd = &cobra.Command{
	Use:   "context <query>...",
	Short: "Select a relevance-ranked context bundle",
	Long:  "Scores every top-level function, class, and variable against the query and returns the best chunks within the character budget.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return outputError("context", err)
		}
		defer e.Close()

		chunks, err := e.Context(cmd.Context(), strings.Join(args, " "), flagBudget, flagFiles...)
		if err != nil {
			return outputError("context", err)
		}
		return outputResult(CLIResult{
			Command:    "context",
			Results:    chunks,
			TotalCount: count(len(chunks)),
		})
	},
}

func init() {
	contextCmd.Flags().IntVar(&flagBudget, "budget", 0, "character budget (default from config)")
	contextCmd.Flags().StringSliceVar(&flagFiles, "files", nil, "restrict chunks to these repo-relative files")
}
