package extract

import (
	"regexp"
	"strings"
)

func init() {
	h := &heuristicParser{}
	for _, ext := range []string{".go", ".js", ".jsx", ".ts", ".tsx", ".mjs"} {
		Register(ext, h)
	}
}

// heuristicParser approximates extraction with line patterns. Results are
// explicitly lower confidence: matches inside string literals and block
// comments can slip through, and declarations split across lines are missed.
type heuristicParser struct{}

func (h *heuristicParser) Capability() Capability { return Heuristic }

var (
	identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

	// Definitions across the supported curly-brace languages.
	funcRe = regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?(?:function|func)\s*(?:\([^)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)`)
	// Arrow and method-style bindings: const f = (a, b) => ...
	arrowRe = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(?:async\s+)?\(([^)]*)\)\s*=>`)
	classRe = regexp.MustCompile(`^\s*(?:export\s+)?(?:class|type)\s+([A-Za-z_][A-Za-z0-9_]*)(?:\s+extends\s+([A-Za-z_][A-Za-z0-9_.]*))?`)
	varRe   = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_][A-Za-z0-9_]*)\s*(?::\s*([^=]+?)\s*)?=\s*(.+)$`)

	importFromRe = regexp.MustCompile(`^\s*import\s+(.+?)\s+from\s+['"]([^'"]+)['"]`)
	importRe     = regexp.MustCompile(`^\s*import\s+(?:([A-Za-z_][A-Za-z0-9_]*)\s+)?"([^"]+)"`)

	lineCommentRe = regexp.MustCompile(`(//|#).*$`)
)

// keyword identifiers never become occurrences; without this the crossref
// map drowns in "if" and "return".
var heuristicStopwords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "return": true,
	"func": true, "function": true, "var": true, "let": true, "const": true,
	"class": true, "type": true, "struct": true, "interface": true,
	"import": true, "export": true, "from": true, "package": true,
	"new": true, "nil": true, "null": true, "undefined": true, "true": true,
	"false": true, "range": true, "switch": true, "case": true, "default": true,
	"break": true, "continue": true, "go": true, "defer": true, "chan": true,
	"map": true, "async": true, "await": true, "this": true, "extends": true,
	"try": true, "catch": true, "finally": true, "throw": true, "typeof": true,
	"err": true, "error": true, "string": true, "int": true, "bool": true,
}

func (h *heuristicParser) Extract(content []byte, path string) (*FileSymbolTable, []Occurrence) {
	table := &FileSymbolTable{Path: path, Heuristic: true}
	var occs []Occurrence

	lines := strings.Split(string(content), "\n")
	for i, raw := range lines {
		lineNo := i + 1
		line := lineCommentRe.ReplaceAllString(raw, "")
		defName := h.scanDeclarations(line, lineNo, table)
		h.scanOccurrences(line, lineNo, path, defName, &occs)
	}
	return table, occs
}

// scanDeclarations records any declaration the line matches and returns the
// defined name so the occurrence scan can tag it as a definition.
func (h *heuristicParser) scanDeclarations(line string, lineNo int, table *FileSymbolTable) string {
	if m := funcRe.FindStringSubmatch(line); m != nil {
		table.Functions = append(table.Functions, Function{
			Name:      m[1],
			StartLine: lineNo,
			EndLine:   lineNo,
			Params:    splitParamNames(m[2]),
			IsAsync:   strings.Contains(line, "async "),
		})
		return m[1]
	}
	if m := arrowRe.FindStringSubmatch(line); m != nil {
		table.Functions = append(table.Functions, Function{
			Name:      m[1],
			StartLine: lineNo,
			EndLine:   lineNo,
			Params:    splitParamNames(m[2]),
			IsAsync:   strings.Contains(line, "async"),
		})
		return m[1]
	}
	if m := classRe.FindStringSubmatch(line); m != nil {
		cls := Class{Name: m[1], StartLine: lineNo, EndLine: lineNo}
		if m[2] != "" {
			cls.Bases = []string{m[2]}
		}
		table.Classes = append(table.Classes, cls)
		return m[1]
	}
	if m := importFromRe.FindStringSubmatch(line); m != nil {
		for _, name := range splitImportNames(m[1]) {
			table.Imports = append(table.Imports, Import{
				Name: name, Module: m[2], Line: lineNo, Kind: "from",
			})
		}
		return ""
	}
	if m := importRe.FindStringSubmatch(line); m != nil {
		name := m[1]
		if name == "" {
			name = m[2]
			if idx := strings.LastIndex(name, "/"); idx >= 0 {
				name = name[idx+1:]
			}
		}
		table.Imports = append(table.Imports, Import{
			Name: name, Module: m[2], Line: lineNo, Kind: "import",
		})
		return ""
	}
	if m := varRe.FindStringSubmatch(line); m != nil {
		table.Variables = append(table.Variables, Variable{
			Name:       m[1],
			Line:       lineNo,
			Value:      truncate(strings.TrimSpace(m[3]), valueMaxLen),
			Annotation: strings.TrimSpace(m[2]),
		})
		return ""
	}
	return ""
}

func (h *heuristicParser) scanOccurrences(line string, lineNo int, path, defName string, out *[]Occurrence) {
	for _, loc := range identRe.FindAllStringIndex(line, -1) {
		name := line[loc[0]:loc[1]]
		if heuristicStopwords[name] {
			continue
		}
		kind := classifyHeuristic(line, loc[0], loc[1], name, defName)
		if kind == "" {
			continue
		}
		*out = append(*out, Occurrence{File: path, Line: lineNo, Kind: kind, Name: name})
	}
}

func classifyHeuristic(line string, start, end int, name, defName string) OccurrenceKind {
	if name == defName {
		return KindDefinition
	}
	rest := strings.TrimLeft(line[end:], " \t")
	if strings.HasPrefix(rest, "(") {
		return KindCall
	}
	if start > 0 && line[start-1] == '.' {
		return KindAttr
	}
	if strings.HasPrefix(rest, "=") && !strings.HasPrefix(rest, "==") && !strings.HasPrefix(rest, "=>") {
		return KindStore
	}
	if strings.HasPrefix(rest, ":=") {
		return KindStore
	}
	return KindRef
}

// CallSites locates call expressions of name with a lexical scan: the name
// followed immediately by an opening parenthesis, excluding declaration
// keywords on the same line. Arguments are split at top-level commas with
// quote and bracket tracking, so nested calls and literals stay intact.
func (h *heuristicParser) CallSites(content []byte, name string) []CallSite {
	src := string(content)
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\(`)

	var sites []CallSite
	for _, loc := range re.FindAllStringIndex(src, -1) {
		if isDeclarationContext(src, loc[0]) {
			continue
		}
		openIdx := loc[1] - 1
		closeIdx := matchParen(src, openIdx)
		if closeIdx < 0 {
			continue
		}
		sites = append(sites, CallSite{
			Line:      1 + strings.Count(src[:loc[0]], "\n"),
			OpenByte:  openIdx,
			CloseByte: closeIdx,
			Args:      splitCallArgs(src[openIdx+1 : closeIdx]),
		})
	}
	return sites
}

// isDeclarationContext reports whether the identifier at idx is preceded on
// its line by a declaration keyword, meaning the parentheses belong to a
// definition rather than a call.
func isDeclarationContext(src string, idx int) bool {
	lineStart := strings.LastIndexByte(src[:idx], '\n') + 1
	before := strings.TrimSpace(src[lineStart:idx])
	for _, kw := range []string{"function", "func", "def", "class"} {
		if before == kw || strings.HasSuffix(before, " "+kw) {
			return true
		}
	}
	return false
}

// matchParen returns the index of the parenthesis closing the one at open,
// or -1 when unbalanced. Quoted regions are opaque.
func matchParen(src string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var keywordArgRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=([^=].*|$)`)

// splitCallArgs splits an argument list at top-level commas and classifies
// each part as positional, keyword, or splat.
func splitCallArgs(inner string) []CallArg {
	if strings.TrimSpace(inner) == "" {
		return nil
	}

	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, inner[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, inner[start:])

	args := make([]CallArg, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		arg := CallArg{Text: part}
		if strings.HasPrefix(part, "*") || strings.HasPrefix(part, "...") {
			arg.Splat = true
		} else if m := keywordArgRe.FindStringSubmatch(part); m != nil {
			arg.Keyword = m[1]
			arg.Text = strings.TrimSpace(m[2])
		}
		args = append(args, arg)
	}
	return args
}

// splitParamNames reduces a raw parameter list to bare names, dropping
// type annotations and default expressions.
func splitParamNames(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var names []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if m := identRe.FindString(part); m != "" {
			names = append(names, m)
		}
	}
	return names
}

// splitImportNames handles "a", "{ a, b }", and "a, { b }" import clauses.
func splitImportNames(clause string) []string {
	clause = strings.NewReplacer("{", "", "}", "").Replace(clause)
	var names []string
	for _, part := range strings.Split(clause, ",") {
		part = strings.TrimSpace(part)
		// "x as y" binds y locally.
		if idx := strings.Index(part, " as "); idx >= 0 {
			part = strings.TrimSpace(part[idx+4:])
		}
		if part != "" && identRe.MatchString(part) {
			names = append(names, identRe.FindString(part))
		}
	}
	return names
}
