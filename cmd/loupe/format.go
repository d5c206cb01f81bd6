package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/mgreer/loupe"
)

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	default:
		return fmt.Errorf("invalid format %q: must be json or text", format)
	}
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// still exits nonzero.
func outputError(command string, err error) error {
	errorHandled = true
	outputResult(CLIResult{Command: command, Error: err.Error()})
	return err
}

// outputResultText dispatches to a text formatter based on the result
// payload type.
func outputResultText(w io.Writer, result CLIResult) error {
	if result.Error != "" {
		fmt.Fprintf(w, "error: %s\n", result.Error)
		return nil
	}
	switch v := result.Results.(type) {
	case []loupe.Occurrence:
		formatOccurrencesText(w, v)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case *loupe.RenameResult:
		formatEditsText(w, v.Edits, v.Errors, v.Applied)
	case *loupe.MigrationResult:
		formatEditsText(w, v.Edits, v.Errors, v.Applied)
	case []loupe.Chunk:
		formatChunksText(w, v)
	case string:
		fmt.Fprintln(w, v)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return nil
}

func formatOccurrencesText(w io.Writer, occs []loupe.Occurrence) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tLINE\tKIND\tNAME")
	for _, o := range occs {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", o.File, o.Line, o.Kind, o.Name)
	}
	tw.Flush()
}

func formatEditsText(w io.Writer, edits []loupe.Edit, errs []string, applied bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tLINE\tOLD\tNEW")
	for _, e := range edits {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.File, e.Line, e.OldText, e.NewText)
	}
	tw.Flush()
	for _, e := range errs {
		fmt.Fprintf(w, "error: %s\n", e)
	}
	fmt.Fprintf(w, "%d edit(s), applied=%t\n", len(edits), applied)
}

func formatChunksText(w io.Writer, chunks []loupe.Chunk) {
	for i, c := range chunks {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "-- %s %s (%s:%d-%d, score %.2f)\n",
			c.Kind, c.Symbol, c.File, c.StartLine, c.EndLine, c.Score)
		fmt.Fprintln(w, c.Source)
	}
}
