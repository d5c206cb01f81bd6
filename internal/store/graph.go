package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/mgreer/loupe/internal/extract"
)

// Graph is the repo-wide cross-reference document. It is immutable to
// readers: change happens only by replacing the whole value via a rebuild.
type Graph struct {
	SchemaVersion int
	// FileHash maps repo-relative path to content hash.
	FileHash map[string]string
	// Tables maps repo-relative path to that file's declaration table.
	Tables map[string]*extract.FileSymbolTable
	// CrossRefs maps symbol name to every occurrence, rebuilt from scratch
	// on each build so no stale entry survives a reparse.
	CrossRefs map[string][]extract.Occurrence
}

// NewGraph returns an empty graph at the current schema version.
func NewGraph() *Graph {
	return &Graph{
		SchemaVersion: SchemaVersion,
		FileHash:      map[string]string{},
		Tables:        map[string]*extract.FileSymbolTable{},
		CrossRefs:     map[string][]extract.Occurrence{},
	}
}

// SortedPaths returns the graph's file paths in lexical order.
func (g *Graph) SortedPaths() []string {
	paths := make([]string, 0, len(g.Tables))
	for p := range g.Tables {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// SaveGraph replaces the persisted document with g in one transaction.
func (s *Store) SaveGraph(g *Graph) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"occurrences", "functions", "classes", "variables", "imports", "files"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	fileIDs := make(map[string]int64, len(g.Tables))
	for _, path := range g.SortedPaths() {
		table := g.Tables[path]
		res, err := tx.Exec(
			"INSERT INTO files (path, hash, heuristic) VALUES (?, ?, ?)",
			path, g.FileHash[path], table.Heuristic,
		)
		if err != nil {
			return fmt.Errorf("insert file %s: %w", path, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("file id %s: %w", path, err)
		}
		fileIDs[path] = id

		if err := insertDeclarations(tx, id, table); err != nil {
			return fmt.Errorf("insert declarations %s: %w", path, err)
		}
	}

	names := make([]string, 0, len(g.CrossRefs))
	for name := range g.CrossRefs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, occ := range g.CrossRefs[name] {
			fileID, ok := fileIDs[occ.File]
			if !ok {
				continue
			}
			if _, err := tx.Exec(
				"INSERT INTO occurrences (file_id, name, line, kind) VALUES (?, ?, ?, ?)",
				fileID, occ.Name, occ.Line, string(occ.Kind),
			); err != nil {
				return fmt.Errorf("insert occurrence %s: %w", name, err)
			}
		}
	}

	if _, err := tx.Exec(
		"INSERT INTO metadata (key, value) VALUES ('schema_version', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		strconv.Itoa(g.SchemaVersion),
	); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}

	return tx.Commit()
}

func insertDeclarations(tx *sql.Tx, fileID int64, table *extract.FileSymbolTable) error {
	for _, fn := range table.Functions {
		if _, err := tx.Exec(
			"INSERT INTO functions (file_id, name, start_line, end_line, params, doc, decorators, is_async) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			fileID, fn.Name, fn.StartLine, fn.EndLine,
			encodeStrings(fn.Params), fn.Doc, encodeStrings(fn.Decorators), fn.IsAsync,
		); err != nil {
			return fmt.Errorf("function %s: %w", fn.Name, err)
		}
	}
	for _, cls := range table.Classes {
		if _, err := tx.Exec(
			"INSERT INTO classes (file_id, name, start_line, end_line, bases, methods, doc) VALUES (?, ?, ?, ?, ?, ?, ?)",
			fileID, cls.Name, cls.StartLine, cls.EndLine,
			encodeStrings(cls.Bases), encodeStrings(cls.Methods), cls.Doc,
		); err != nil {
			return fmt.Errorf("class %s: %w", cls.Name, err)
		}
	}
	for _, v := range table.Variables {
		if _, err := tx.Exec(
			"INSERT INTO variables (file_id, name, line, value, annotation) VALUES (?, ?, ?, ?, ?)",
			fileID, v.Name, v.Line, v.Value, v.Annotation,
		); err != nil {
			return fmt.Errorf("variable %s: %w", v.Name, err)
		}
	}
	for _, imp := range table.Imports {
		if _, err := tx.Exec(
			"INSERT INTO imports (file_id, name, module, line, kind) VALUES (?, ?, ?, ?, ?)",
			fileID, imp.Name, imp.Module, imp.Line, imp.Kind,
		); err != nil {
			return fmt.Errorf("import %s: %w", imp.Name, err)
		}
	}
	return nil
}

// LoadGraph reconstructs the persisted graph. A missing document or a
// schema version mismatch returns (nil, nil): the caller rebuilds, and the
// next save overwrites whatever was there.
func (s *Store) LoadGraph() (*Graph, error) {
	version, err := s.GetMetadata("schema_version")
	if err != nil {
		return nil, err
	}
	if version != strconv.Itoa(SchemaVersion) {
		return nil, nil
	}

	g := NewGraph()
	filePaths := map[int64]string{}

	rows, err := s.db.Query("SELECT id, path, hash, heuristic FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("load files: %w", err)
	}
	for rows.Next() {
		var (
			id        int64
			path, h   string
			heuristic bool
		)
		if err := rows.Scan(&id, &path, &h, &heuristic); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan file: %w", err)
		}
		filePaths[id] = path
		g.FileHash[path] = h
		g.Tables[path] = &extract.FileSymbolTable{Path: path, Heuristic: heuristic}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load files: %w", err)
	}

	if err := s.loadDeclarations(g, filePaths); err != nil {
		return nil, err
	}

	rows, err = s.db.Query("SELECT file_id, name, line, kind FROM occurrences ORDER BY name, file_id, line, id")
	if err != nil {
		return nil, fmt.Errorf("load occurrences: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			fileID     int64
			name, kind string
			line       int
		)
		if err := rows.Scan(&fileID, &name, &line, &kind); err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		g.CrossRefs[name] = append(g.CrossRefs[name], extract.Occurrence{
			File: filePaths[fileID],
			Line: line,
			Kind: extract.OccurrenceKind(kind),
			Name: name,
		})
	}
	return g, rows.Err()
}

func (s *Store) loadDeclarations(g *Graph, filePaths map[int64]string) error {
	rows, err := s.db.Query("SELECT file_id, name, start_line, end_line, params, doc, decorators, is_async FROM functions ORDER BY file_id, id")
	if err != nil {
		return fmt.Errorf("load functions: %w", err)
	}
	for rows.Next() {
		var (
			fileID             int64
			fn                 extract.Function
			params, decorators string
		)
		if err := rows.Scan(&fileID, &fn.Name, &fn.StartLine, &fn.EndLine, &params, &fn.Doc, &decorators, &fn.IsAsync); err != nil {
			rows.Close()
			return fmt.Errorf("scan function: %w", err)
		}
		fn.Params = decodeStrings(params)
		fn.Decorators = decodeStrings(decorators)
		if t := g.Tables[filePaths[fileID]]; t != nil {
			t.Functions = append(t.Functions, fn)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load functions: %w", err)
	}

	rows, err = s.db.Query("SELECT file_id, name, start_line, end_line, bases, methods, doc FROM classes ORDER BY file_id, id")
	if err != nil {
		return fmt.Errorf("load classes: %w", err)
	}
	for rows.Next() {
		var (
			fileID         int64
			cls            extract.Class
			bases, methods string
		)
		if err := rows.Scan(&fileID, &cls.Name, &cls.StartLine, &cls.EndLine, &bases, &methods, &cls.Doc); err != nil {
			rows.Close()
			return fmt.Errorf("scan class: %w", err)
		}
		cls.Bases = decodeStrings(bases)
		cls.Methods = decodeStrings(methods)
		if t := g.Tables[filePaths[fileID]]; t != nil {
			t.Classes = append(t.Classes, cls)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load classes: %w", err)
	}

	rows, err = s.db.Query("SELECT file_id, name, line, value, annotation FROM variables ORDER BY file_id, id")
	if err != nil {
		return fmt.Errorf("load variables: %w", err)
	}
	for rows.Next() {
		var (
			fileID int64
			v      extract.Variable
		)
		if err := rows.Scan(&fileID, &v.Name, &v.Line, &v.Value, &v.Annotation); err != nil {
			rows.Close()
			return fmt.Errorf("scan variable: %w", err)
		}
		if t := g.Tables[filePaths[fileID]]; t != nil {
			t.Variables = append(t.Variables, v)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load variables: %w", err)
	}

	rows, err = s.db.Query("SELECT file_id, name, module, line, kind FROM imports ORDER BY file_id, id")
	if err != nil {
		return fmt.Errorf("load imports: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			fileID int64
			imp    extract.Import
		)
		if err := rows.Scan(&fileID, &imp.Name, &imp.Module, &imp.Line, &imp.Kind); err != nil {
			return fmt.Errorf("scan import: %w", err)
		}
		if t := g.Tables[filePaths[fileID]]; t != nil {
			t.Imports = append(t.Imports, imp)
		}
	}
	return rows.Err()
}

func encodeStrings(list []string) string {
	if len(list) == 0 {
		return ""
	}
	b, err := json.Marshal(list)
	if err != nil {
		return ""
	}
	return string(b)
}

func decodeStrings(raw string) []string {
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}
