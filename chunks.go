package loupe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/surgebase/porter2"
)

// nameBonus rewards a chunk whose symbol name equals a query word exactly,
// on top of token overlap.
const nameBonus = 0.5

// sourcePrefixLen bounds how much of a chunk's body feeds token matching.
// Long function bodies would otherwise dominate overlap scoring.
const sourcePrefixLen = 600

// Context selects a relevance-ranked, budget-bounded set of chunks for a
// free-text query. One chunk per top-level function, class, or variable in
// the graph; candidates, when given, restrict the chunk pool to those
// repo-relative files.
//
// The budget caps cumulative source length in bytes; zero or negative means
// the configured default. Accumulation stops before the chunk that would
// overflow, except that the best chunk is always included even when it
// alone exceeds the budget.
func (e *Engine) Context(ctx context.Context, query string, budget int, candidates ...string) ([]Chunk, error) {
	g, err := e.EnsureGraph(ctx)
	if err != nil {
		return nil, err
	}
	if budget <= 0 {
		budget = e.cfg.ContextBudget
	}

	queryStems := stemTokens(identifierWords(query))
	if len(queryStems) == 0 {
		return nil, fmt.Errorf("loupe: query %q has no identifier words", query)
	}
	queryWords := map[string]bool{}
	for _, w := range identifierWords(query) {
		queryWords[strings.ToLower(w)] = true
	}

	var candidateSet map[string]bool
	if len(candidates) > 0 {
		candidateSet = make(map[string]bool, len(candidates))
		for _, c := range candidates {
			candidateSet[filepath.ToSlash(c)] = true
		}
	}

	var chunks []Chunk
	for _, path := range g.SortedPaths() {
		if candidateSet != nil && !candidateSet[path] {
			continue
		}
		fileChunks, err := e.fileChunks(g.Tables[path])
		if err != nil {
			e.log.Debug("skipping unreadable file during chunking", "path", path, "error", err)
			continue
		}
		for _, c := range fileChunks {
			c.Score = scoreChunk(c, queryStems, queryWords)
			if c.Score <= 0 {
				continue
			}
			chunks = append(chunks, c)
		}
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})

	var out []Chunk
	used := 0
	for _, c := range chunks {
		if len(out) > 0 && used+len(c.Source) > budget {
			break
		}
		out = append(out, c)
		used += len(c.Source)
	}
	return out, nil
}

// fileChunks materializes one chunk per declaration in a file table, slicing
// source text from the current file content.
func (e *Engine) fileChunks(table *FileSymbolTable) ([]Chunk, error) {
	if table == nil {
		return nil, nil
	}
	content, err := os.ReadFile(filepath.Join(e.root, filepath.FromSlash(table.Path)))
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(content), "\n")

	var chunks []Chunk
	for _, fn := range table.Functions {
		chunks = append(chunks, Chunk{
			File:      table.Path,
			Symbol:    fn.Name,
			Kind:      "function",
			StartLine: fn.StartLine,
			EndLine:   fn.EndLine,
			Source:    sliceLines(lines, fn.StartLine, fn.EndLine),
			Doc:       fn.Doc,
		})
	}
	for _, cls := range table.Classes {
		chunks = append(chunks, Chunk{
			File:      table.Path,
			Symbol:    cls.Name,
			Kind:      "class",
			StartLine: cls.StartLine,
			EndLine:   cls.EndLine,
			Source:    sliceLines(lines, cls.StartLine, cls.EndLine),
			Doc:       cls.Doc,
		})
	}
	for _, v := range table.Variables {
		chunks = append(chunks, Chunk{
			File:      table.Path,
			Symbol:    v.Name,
			Kind:      "variable",
			StartLine: v.Line,
			EndLine:   v.Line,
			Source:    sliceLines(lines, v.Line, v.Line),
		})
	}
	return chunks, nil
}

func sliceLines(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

// scoreChunk is the overlap of stemmed query tokens with the chunk's
// name, doc, and source prefix, normalized by query length, plus the exact
// name bonus.
func scoreChunk(c Chunk, queryStems []string, queryWords map[string]bool) float64 {
	text := c.Symbol + " " + c.Doc + " " + prefix(c.Source, sourcePrefixLen)
	chunkStems := map[string]bool{}
	for _, s := range stemTokens(identifierWords(text)) {
		chunkStems[s] = true
	}

	matched := 0
	for _, s := range queryStems {
		if chunkStems[s] {
			matched++
		}
	}
	score := float64(matched) / float64(len(queryStems))
	if queryWords[strings.ToLower(c.Symbol)] {
		score += nameBonus
	}
	return score
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var wordRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// identifierWords extracts identifier-shaped words, splitting snake_case
// segments so "load_graph" matches a query saying "graph".
func identifierWords(text string) []string {
	var words []string
	for _, ident := range wordRe.FindAllString(text, -1) {
		for _, part := range strings.Split(ident, "_") {
			if len(part) >= 2 {
				words = append(words, part)
			}
		}
	}
	return words
}

// stemTokens lowercases and Porter2-stems words, deduplicating while
// preserving first-seen order.
func stemTokens(words []string) []string {
	seen := map[string]bool{}
	var stems []string
	for _, w := range words {
		s := porter2.Stem(strings.ToLower(w))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		stems = append(stems, s)
	}
	return stems
}
