package loupe

import (
	"github.com/mgreer/loupe/internal/extract"
	"github.com/mgreer/loupe/internal/store"
)

// Public type aliases for internal types used in the Engine API. These are
// Go type aliases (=) — identical to the internal types at compile time.

type Graph = store.Graph
type FileSymbolTable = extract.FileSymbolTable
type Occurrence = extract.Occurrence
type OccurrenceKind = extract.OccurrenceKind
type Function = extract.Function
type Class = extract.Class
type Variable = extract.Variable
type Import = extract.Import

const (
	KindDefinition = extract.KindDefinition
	KindCall       = extract.KindCall
	KindRef        = extract.KindRef
	KindAttr       = extract.KindAttr
	KindStore      = extract.KindStore
)

// Edit is one atomic textual change: replace OldText with NewText on Line
// between the 0-based byte columns [StartCol, EndCol). Context carries the
// trimmed source line for display.
type Edit struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	StartCol int    `json:"start_col"`
	EndCol   int    `json:"end_col"`
	OldText  string `json:"old_text"`
	NewText  string `json:"new_text"`
	Context  string `json:"context,omitempty"`
}

// RenameResult reports the edits of one rename pass. Applied is true only
// when the edits were written and Errors is empty.
type RenameResult struct {
	Edits   []Edit   `json:"edits"`
	Errors  []string `json:"errors,omitempty"`
	Applied bool     `json:"applied"`
}

// MigrationResult reports the edits of one signature migration. Applied is
// true only when the edits were written and Errors is empty.
type MigrationResult struct {
	Edits   []Edit   `json:"edits"`
	Errors  []string `json:"errors,omitempty"`
	Applied bool     `json:"applied"`
}

// Chunk is a minimal retrievable unit of source: one top-level function,
// class, or variable, scored against a retrieval query.
type Chunk struct {
	File      string  `json:"file"`
	Symbol    string  `json:"symbol"`
	Kind      string  `json:"kind"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Source    string  `json:"source"`
	Doc       string  `json:"doc,omitempty"`
	Score     float64 `json:"score"`
}
