package loupe

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// QueryBuilder provides read-only lookups over one immutable Graph.
type QueryBuilder struct {
	graph *Graph
}

// NewQueryBuilder wraps an already-built graph.
func NewQueryBuilder(g *Graph) *QueryBuilder {
	return &QueryBuilder{graph: g}
}

// Query returns a QueryBuilder over the current graph, loading or building
// it as needed.
func (e *Engine) Query(ctx context.Context) (*QueryBuilder, error) {
	g, err := e.EnsureGraph(ctx)
	if err != nil {
		return nil, err
	}
	return &QueryBuilder{graph: g}, nil
}

// Occurrences returns every occurrence of name, exact and case-sensitive.
// An absent symbol yields an empty result, never an error.
func (q *QueryBuilder) Occurrences(name string) []Occurrence {
	return q.graph.CrossRefs[name]
}

// Definitions returns only the definition occurrences of name.
func (q *QueryBuilder) Definitions(name string) []Occurrence {
	var defs []Occurrence
	for _, occ := range q.graph.CrossRefs[name] {
		if occ.Kind == KindDefinition {
			defs = append(defs, occ)
		}
	}
	return defs
}

// Usages returns every non-definition occurrence of name.
func (q *QueryBuilder) Usages(name string) []Occurrence {
	var uses []Occurrence
	for _, occ := range q.graph.CrossRefs[name] {
		if occ.Kind != KindDefinition {
			uses = append(uses, occ)
		}
	}
	return uses
}

// PrefixSearch returns the symbol names starting with prefix,
// case-insensitive, sorted.
func (q *QueryBuilder) PrefixSearch(prefix string) []string {
	lower := strings.ToLower(prefix)
	var names []string
	for name := range q.graph.CrossRefs {
		if strings.HasPrefix(strings.ToLower(name), lower) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// FileSummary returns a short human-readable description of a file's
// declarations, or "(empty)" when the file declares nothing. The path must
// be repo-relative, as stored in the graph.
func (q *QueryBuilder) FileSummary(path string) (string, error) {
	table, ok := q.graph.Tables[path]
	if !ok {
		return "", fmt.Errorf("no such file in graph: %s", path)
	}

	var parts []string
	if len(table.Classes) > 0 {
		names := make([]string, len(table.Classes))
		for i, c := range table.Classes {
			names[i] = c.Name
		}
		parts = append(parts, "classes: "+strings.Join(names, ", "))
	}
	if len(table.Functions) > 0 {
		names := make([]string, len(table.Functions))
		for i, f := range table.Functions {
			names[i] = f.Name
		}
		parts = append(parts, "functions: "+strings.Join(names, ", "))
	}
	if len(table.Variables) > 0 {
		names := make([]string, len(table.Variables))
		for i, v := range table.Variables {
			names[i] = v.Name
		}
		parts = append(parts, "variables: "+strings.Join(names, ", "))
	}
	if len(parts) == 0 {
		return "(empty)", nil
	}
	return strings.Join(parts, "; "), nil
}
