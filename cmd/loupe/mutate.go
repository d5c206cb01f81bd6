package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagDryRun bool

var renameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename an identifier across the repository",
	Long:  "Token-accurate multi-file rename. Python files are re-tokenized through the grammar; other languages use a word-boundary match. Use --dry-run to preview the edits.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return outputError("rename", err)
		}
		defer e.Close()

		res, err := e.Rename(cmd.Context(), args[0], args[1], flagDryRun)
		if err != nil {
			return outputError("rename", err)
		}
		if err := outputResult(CLIResult{
			Command:    "rename",
			Results:    res,
			TotalCount: count(len(res.Edits)),
		}); err != nil {
			return err
		}
		if len(res.Errors) > 0 {
			return fmt.Errorf("rename finished with %d error(s)", len(res.Errors))
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate <function> <param-spec>...",
	Short: "Rewrite call sites for a new parameter list",
	Long:  "Recomputes positional arguments at every call site of a function against a new parameter list. Each spec is \"name\" or \"name=defaultExpr\". Use --dry-run to preview the edits.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return outputError("migrate", err)
		}
		defer e.Close()

		res, err := e.Migrate(cmd.Context(), args[0], args[1:], flagDryRun)
		if err != nil {
			return outputError("migrate", err)
		}
		if err := outputResult(CLIResult{
			Command:    "migrate",
			Results:    res,
			TotalCount: count(len(res.Edits)),
		}); err != nil {
			return err
		}
		if len(res.Errors) > 0 {
			return fmt.Errorf("migrate finished with %d error(s)", len(res.Errors))
		}
		return nil
	},
}

func init() {
	renameCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "collect edits without writing files")
	migrateCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "collect edits without writing files")
}
