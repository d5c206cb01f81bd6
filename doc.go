// Package loupe is a local, repository-wide code-intelligence engine. It
// extracts symbol declarations and use-site occurrences from source files,
// assembles them into a persistent cross-reference graph kept fresh via
// content hashing, and exposes the graph to usage/definition lookup,
// multi-file rename, call-site signature migration, and a relevance-ranked
// context retriever.
//
// # Pipeline
//
// An [Engine] is bound to one repository root. [Engine.Build] enumerates
// source files (honoring .gitignore and configured ignore directories),
// hash-gates re-extraction, and assembles the [Graph]: per-file declaration
// tables plus a repo-wide map from symbol name to every occurrence. The
// graph is persisted to SQLite under .loupe/ and reloaded at session start;
// a schema version mismatch discards the document and triggers a rebuild.
//
// # Languages
//
// Python is parsed with a real tree-sitter grammar; Go and the JavaScript
// family get best-effort lexical approximation. The two capabilities are
// explicit in the parser registry, and heuristic results are flagged as
// lower confidence.
//
// # Mutations
//
// [Engine.Rename] performs token-accurate multi-file identifier rename;
// [Engine.Migrate] rewrites call sites when a function's parameter list
// changes. Both support dry-run, report per-file write failures without
// rolling back, and terminate in the same exact-match [ApplyPatch]
// contract used by every other edit flow.
//
// # Usage
//
//	e, err := loupe.New(root)
//	if err != nil { ... }
//	defer e.Close()
//
//	q, err := e.Query(ctx)
//	defs := q.Definitions("greet")
//	res, err := e.Rename(ctx, "greet", "hello", false)
package loupe
