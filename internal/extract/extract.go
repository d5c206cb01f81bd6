// Package extract turns a single source file into a declaration table and a
// list of identifier occurrences. Extraction is pure: no file IO, no state.
//
// Two parser capabilities exist. Exact parsers walk a real tree-sitter
// grammar; heuristic parsers pattern-match lines and may over- or
// under-count. Parsers self-register by file extension.
package extract

// OccurrenceKind tags the syntactic role of one identifier appearance.
type OccurrenceKind string

const (
	KindDefinition OccurrenceKind = "definition"
	KindCall       OccurrenceKind = "call"
	KindRef        OccurrenceKind = "ref"
	KindAttr       OccurrenceKind = "attr"
	KindStore      OccurrenceKind = "store"
)

// Occurrence is one appearance of a symbol name at a file and line.
// Immutable once produced.
type Occurrence struct {
	File string         `json:"file"`
	Line int            `json:"line"`
	Kind OccurrenceKind `json:"kind"`
	Name string         `json:"name"`
}

// Function describes one function or method definition. Line spans are
// 1-based and inclusive.
type Function struct {
	Name       string   `json:"name"`
	StartLine  int      `json:"start_line"`
	EndLine    int      `json:"end_line"`
	Params     []string `json:"params,omitempty"`
	Doc        string   `json:"doc,omitempty"`
	Decorators []string `json:"decorators,omitempty"`
	IsAsync    bool     `json:"is_async,omitempty"`
}

// Class describes one class definition.
type Class struct {
	Name      string   `json:"name"`
	StartLine int      `json:"start_line"`
	EndLine   int      `json:"end_line"`
	Bases     []string `json:"bases,omitempty"`
	Methods   []string `json:"methods,omitempty"`
	Doc       string   `json:"doc,omitempty"`
}

// Variable describes one module-level assignment. Value holds the truncated
// right-hand side text; Annotation the type annotation when present.
type Variable struct {
	Name       string `json:"name"`
	Line       int    `json:"line"`
	Value      string `json:"value,omitempty"`
	Annotation string `json:"annotation,omitempty"`
}

// Import describes one import statement.
type Import struct {
	Name   string `json:"name"`
	Module string `json:"module,omitempty"`
	Line   int    `json:"line"`
	Kind   string `json:"kind"` // "import" or "from"
}

// FileSymbolTable holds every declaration extracted from one file. It is
// replaced wholesale whenever the file's content hash changes.
type FileSymbolTable struct {
	Path      string     `json:"path"`
	Functions []Function `json:"functions,omitempty"`
	Classes   []Class    `json:"classes,omitempty"`
	Variables []Variable `json:"variables,omitempty"`
	Imports   []Import   `json:"imports,omitempty"`

	// Heuristic marks tables produced by pattern matching rather than a
	// real grammar. Consumers may treat their contents as lower confidence.
	Heuristic bool `json:"heuristic,omitempty"`
}

// Capability distinguishes real-grammar parsers from lexical approximation.
type Capability int

const (
	Exact Capability = iota
	Heuristic
)

// Parser extracts declarations and occurrences from one file's content.
// Implementations must be pure and safe for concurrent use.
type Parser interface {
	Capability() Capability
	Extract(content []byte, path string) (*FileSymbolTable, []Occurrence)
}

// Token is one identifier token located by an exact parser. Columns are
// 0-based byte offsets within the line.
type Token struct {
	Line     int
	StartCol int
	EndCol   int
}

// Tokenizer is implemented by exact parsers that can locate every token
// whose literal text equals a given name. String and comment interiors are
// distinct token kinds and never match.
type Tokenizer interface {
	IdentifierTokens(content []byte, name string) []Token
}

// CallArg is one argument at a call site. Keyword is non-empty for
// name=value arguments; Splat marks *args / **kwargs style unpacking.
type CallArg struct {
	Text    string
	Keyword string
	Splat   bool
}

// CallSite is one call expression whose callee name matched a scan. The
// byte offsets address the opening and closing parentheses.
type CallSite struct {
	Line      int
	OpenByte  int
	CloseByte int
	Args      []CallArg
}

// CallScanner is implemented by exact parsers that can locate call sites
// of a named function, including member-access callees.
type CallScanner interface {
	CallSites(content []byte, name string) []CallSite
}

var registry = map[string]Parser{}

// Register binds a parser to a file extension (including the dot).
// Later registrations win, which lets tests stub languages.
func Register(ext string, p Parser) {
	registry[ext] = p
}

// ForPath returns the parser registered for the path's extension.
func ForPath(path string) (Parser, bool) {
	p, ok := registry[pathExt(path)]
	return p, ok
}

// Extensions returns the set of registered file extensions.
func Extensions() map[string]bool {
	exts := make(map[string]bool, len(registry))
	for ext := range registry {
		exts[ext] = true
	}
	return exts
}

func pathExt(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '.':
			return path[i:]
		case '/', '\\':
			return ""
		}
	}
	return ""
}

const (
	docMaxLen   = 240
	valueMaxLen = 120
)

// truncate caps s at n bytes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
