package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mgreer/loupe"
	"github.com/spf13/cobra"
)

var (
	flagSearch  string
	flagReplace string
)

var patchCmd = &cobra.Command{
	Use:   "patch <file>",
	Short: "Replace the first exact occurrence of a text block",
	Long:  "Applies a verbatim search/replace to one file. The search text must appear exactly, whitespace included; a missing match fails without touching the file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !filepath.IsAbs(path) {
			path = filepath.Join(flagRoot, path)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return outputError("patch", fmt.Errorf("reading %s: %w", args[0], err))
		}
		mode := os.FileMode(0o644)
		if info, err := os.Stat(path); err == nil {
			mode = info.Mode().Perm()
		}

		patched, err := loupe.ApplyPatch(string(content), flagSearch, flagReplace)
		if err != nil {
			if errors.Is(err, loupe.ErrNoMatch) {
				err = fmt.Errorf("%s: %w", args[0], err)
			}
			return outputError("patch", err)
		}
		if err := os.WriteFile(path, []byte(patched), mode); err != nil {
			return outputError("patch", fmt.Errorf("writing %s: %w", args[0], err))
		}
		return outputResult(CLIResult{Command: "patch", Results: "applied"})
	},
}

func init() {
	patchCmd.Flags().StringVar(&flagSearch, "search", "", "exact text to find")
	patchCmd.Flags().StringVar(&flagReplace, "replace", "", "replacement text")
	patchCmd.MarkFlagRequired("search")
}
