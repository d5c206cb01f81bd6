package loupe

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/mgreer/loupe/internal/extract"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Rename renames every token-accurate occurrence of oldName to newName
// across the repository.
//
// Files are prefiltered by a cheap substring check. Python files are
// re-tokenized through the grammar, so matches inside strings and comments
// are impossible; other languages fall back to a word-boundary match,
// which can false-positive inside string or comment content.
//
// With dryRun the edits are collected without writing. Otherwise every
// affected file is rewritten; Applied is true only when zero write errors
// occurred. Files already written before a failure are not rolled back —
// atomicity, when needed, belongs to an external version-control snapshot.
func (e *Engine) Rename(ctx context.Context, oldName, newName string, dryRun bool) (*RenameResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !identifierRe.MatchString(oldName) {
		return nil, fmt.Errorf("loupe: invalid identifier %q", oldName)
	}
	if !identifierRe.MatchString(newName) {
		return nil, fmt.Errorf("loupe: invalid identifier %q", newName)
	}

	files, err := e.sourceFiles()
	if err != nil {
		return nil, fmt.Errorf("loupe: enumerate files: %w", err)
	}

	res := &RenameResult{}
	needle := []byte(oldName)
	for _, rel := range files {
		abs := filepath.Join(e.root, rel)
		content, err := os.ReadFile(abs)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: read: %v", rel, err))
			continue
		}
		if !bytes.Contains(content, needle) {
			continue
		}

		tokens := identifierTokens(rel, content, oldName)
		if len(tokens) == 0 {
			continue
		}

		lines := strings.Split(string(content), "\n")
		edits, ok := applyTokenEdits(lines, tokens, rel, oldName, newName)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: token positions out of range", rel))
			continue
		}
		res.Edits = append(res.Edits, edits...)

		if dryRun {
			continue
		}
		if err := writePreservingMode(abs, []byte(strings.Join(lines, "\n"))); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: write: %v", rel, err))
		}
	}

	res.Applied = !dryRun && len(res.Errors) == 0
	return res, nil
}

// identifierTokens locates the rename targets in one file: grammar tokens
// for exact languages, word-boundary matches otherwise.
func identifierTokens(path string, content []byte, name string) []extract.Token {
	if parser, ok := extract.ForPath(path); ok {
		if tok, ok := parser.(extract.Tokenizer); ok {
			return tok.IdentifierTokens(content, name)
		}
	}
	return wordBoundaryTokens(content, name)
}

func wordBoundaryTokens(content []byte, name string) []extract.Token {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	var tokens []extract.Token
	for i, line := range strings.Split(string(content), "\n") {
		for _, loc := range re.FindAllStringIndex(line, -1) {
			tokens = append(tokens, extract.Token{
				Line:     i + 1,
				StartCol: loc[0],
				EndCol:   loc[1],
			})
		}
	}
	return tokens
}

// applyTokenEdits substitutes newName for every token, mutating lines in
// place. Substitutions run right-to-left within each line so earlier
// column offsets stay valid after each edit. The returned edits are in
// reading order.
func applyTokenEdits(lines []string, tokens []extract.Token, file, oldName, newName string) ([]Edit, bool) {
	byLine := map[int][]extract.Token{}
	for _, t := range tokens {
		byLine[t.Line] = append(byLine[t.Line], t)
	}

	lineNos := make([]int, 0, len(byLine))
	for n := range byLine {
		lineNos = append(lineNos, n)
	}
	sort.Ints(lineNos)

	var edits []Edit
	for _, lineNo := range lineNos {
		if lineNo < 1 || lineNo > len(lines) {
			return nil, false
		}
		original := lines[lineNo-1]
		lineTokens := byLine[lineNo]
		sort.Slice(lineTokens, func(i, j int) bool {
			return lineTokens[i].StartCol < lineTokens[j].StartCol
		})
		for _, t := range lineTokens {
			if t.StartCol < 0 || t.EndCol > len(original) || original[t.StartCol:t.EndCol] != oldName {
				return nil, false
			}
			edits = append(edits, Edit{
				File:     file,
				Line:     lineNo,
				StartCol: t.StartCol,
				EndCol:   t.EndCol,
				OldText:  oldName,
				NewText:  newName,
				Context:  strings.TrimSpace(original),
			})
		}

		line := original
		for i := len(lineTokens) - 1; i >= 0; i-- {
			t := lineTokens[i]
			line = line[:t.StartCol] + newName + line[t.EndCol:]
		}
		lines[lineNo-1] = line
	}
	return edits, true
}

// writePreservingMode rewrites path keeping its current permission bits.
func writePreservingMode(path string, content []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, content, mode)
}
