package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mgreer/loupe"
	"github.com/spf13/cobra"
)

var (
	flagRoot    string
	flagFormat  string
	flagVerbose bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "loupe",
	Short:         "Local repository-wide code intelligence",
	Long:          "Loupe indexes source files into a cross-reference graph and answers definition/usage queries, performs token-accurate renames, migrates call-site signatures, and selects budgeted context bundles.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "repository root")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging to stderr")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(defsCmd)
	rootCmd.AddCommand(usesCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(patchCmd)
	rootCmd.AddCommand(watchCmd)
}

// openEngine binds an engine to the --root directory.
func openEngine() (*loupe.Engine, error) {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	e, err := loupe.New(flagRoot, loupe.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("opening engine: %w", err)
	}
	return e, nil
}

var flagFull bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh the cross-reference graph",
	Long:  "Enumerates source files under the root, re-extracts files whose content hash changed, and persists the graph to .loupe/index.db.",
	Args:  cobra.NoArgs,
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagFull, "full", false, "ignore cached tables and re-extract everything")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	g, err := e.Build(cmd.Context(), !flagFull)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %d files, %d symbols in %s\n",
		len(g.FileHash), len(g.CrossRefs), time.Since(start).Round(time.Millisecond))
	return nil
}
