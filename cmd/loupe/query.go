package main

import (
	"github.com/mgreer/loupe"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query <symbol>",
	Short: "List every occurrence of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOccurrenceQuery(cmd, "query", args[0], func(q *loupe.QueryBuilder, name string) []loupe.Occurrence {
			return q.Occurrences(name)
		})
	},
}

var defsCmd = &cobra.Command{
	Use:   "defs <symbol>",
	Short: "List definition sites of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOccurrenceQuery(cmd, "defs", args[0], func(q *loupe.QueryBuilder, name string) []loupe.Occurrence {
			return q.Definitions(name)
		})
	},
}

var usesCmd = &cobra.Command{
	Use:   "uses <symbol>",
	Short: "List use sites of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOccurrenceQuery(cmd, "uses", args[0], func(q *loupe.QueryBuilder, name string) []loupe.Occurrence {
			return q.Usages(name)
		})
	},
}

func runOccurrenceQuery(cmd *cobra.Command, command, name string, lookup func(*loupe.QueryBuilder, string) []loupe.Occurrence) error {
	e, err := openEngine()
	if err != nil {
		return outputError(command, err)
	}
	defer e.Close()

	q, err := e.Query(cmd.Context())
	if err != nil {
		return outputError(command, err)
	}
	occs := lookup(q, name)
	return outputResult(CLIResult{
		Command:    command,
		Results:    occs,
		TotalCount: count(len(occs)),
	})
}

var searchCmd = &cobra.Command{
	Use:   "search <prefix>",
	Short: "Search symbol names by prefix, case-insensitive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return outputError("search", err)
		}
		defer e.Close()

		q, err := e.Query(cmd.Context())
		if err != nil {
			return outputError("search", err)
		}
		names := q.PrefixSearch(args[0])
		return outputResult(CLIResult{
			Command:    "search",
			Results:    names,
			TotalCount: count(len(names)),
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <file>",
	Short: "Summarize a file's declarations",
	Long:  "Prints the classes, functions, and variables declared in one repo-relative file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return outputError("summary", err)
		}
		defer e.Close()

		q, err := e.Query(cmd.Context())
		if err != nil {
			return outputError("summary", err)
		}
		text, err := q.FileSummary(args[0])
		if err != nil {
			return outputError("summary", err)
		}
		return outputResult(CLIResult{Command: "summary", Results: text})
	},
}
