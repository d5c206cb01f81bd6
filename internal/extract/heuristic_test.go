package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heuristicFor(t *testing.T) *heuristicParser {
	t.Helper()
	p, ok := ForPath("x.js")
	require.True(t, ok)
	require.Equal(t, Heuristic, p.Capability())
	return p.(*heuristicParser)
}

func TestHeuristicExtract_JavaScript(t *testing.T) {
	src := `import { fetchData } from './api'

export function renderPage(data, opts) {
  return fetchData(data)
}

const retryLimit = 3
`
	h := heuristicFor(t)
	table, occs := h.Extract([]byte(src), "page.js")

	assert.True(t, table.Heuristic)
	require.Len(t, table.Functions, 1)
	assert.Equal(t, "renderPage", table.Functions[0].Name)
	assert.Equal(t, []string{"data", "opts"}, table.Functions[0].Params)

	require.Len(t, table.Imports, 1)
	assert.Equal(t, "fetchData", table.Imports[0].Name)
	assert.Equal(t, "./api", table.Imports[0].Module)

	require.Len(t, table.Variables, 1)
	assert.Equal(t, "retryLimit", table.Variables[0].Name)

	var kinds []OccurrenceKind
	for _, o := range occs {
		if o.Name == "fetchData" && o.Line == 4 {
			kinds = append(kinds, o.Kind)
		}
	}
	require.Len(t, kinds, 1)
	assert.Equal(t, KindCall, kinds[0])
}

func TestHeuristicExtract_ArrowFunction(t *testing.T) {
	src := `const sum = (a, b) => a + b
`
	h := heuristicFor(t)
	table, _ := h.Extract([]byte(src), "math.js")

	require.Len(t, table.Functions, 1)
	assert.Equal(t, "sum", table.Functions[0].Name)
	assert.Equal(t, []string{"a", "b"}, table.Functions[0].Params)
}

func TestHeuristicExtract_GoFunc(t *testing.T) {
	src := `package server

func HandleRequest(w http.ResponseWriter, r *http.Request) {
	writeResponse(w)
}
`
	h := heuristicFor(t)
	table, occs := h.Extract([]byte(src), "server.go")

	require.Len(t, table.Functions, 1)
	assert.Equal(t, "HandleRequest", table.Functions[0].Name)

	var found bool
	for _, o := range occs {
		if o.Name == "HandleRequest" && o.Kind == KindDefinition {
			found = true
		}
	}
	assert.True(t, found)
}

func TestHeuristicExtract_ClassWithBase(t *testing.T) {
	src := `export class AdminUser extends User {
}
`
	h := heuristicFor(t)
	table, _ := h.Extract([]byte(src), "user.ts")

	require.Len(t, table.Classes, 1)
	assert.Equal(t, "AdminUser", table.Classes[0].Name)
	assert.Equal(t, []string{"User"}, table.Classes[0].Bases)
}

func TestHeuristicExtract_CommentStripped(t *testing.T) {
	src := `// renderPage is not really here
let x = 1
`
	h := heuristicFor(t)
	_, occs := h.Extract([]byte(src), "a.js")

	for _, o := range occs {
		assert.NotEqual(t, "renderPage", o.Name)
	}
}

func TestClassifyHeuristic(t *testing.T) {
	line := `total = compute(items.length)`
	assert.Equal(t, KindStore, classifyHeuristic(line, 0, 5, "total", ""))
	assert.Equal(t, KindCall, classifyHeuristic(line, 8, 15, "compute", ""))
	assert.Equal(t, KindAttr, classifyHeuristic(line, 22, 28, "length", ""))
	assert.Equal(t, KindRef, classifyHeuristic(line, 16, 21, "items", ""))
}

func TestHeuristicCallSites(t *testing.T) {
	src := `function greet(name) {}
greet("x")
obj.greet("y", {deep: call(1, 2)})
`
	h := heuristicFor(t)
	sites := h.CallSites([]byte(src), "greet")

	require.Len(t, sites, 2)
	assert.Equal(t, 2, sites[0].Line)
	require.Len(t, sites[0].Args, 1)
	assert.Equal(t, `"x"`, sites[0].Args[0].Text)

	// The nested call's comma must not split the object literal.
	require.Len(t, sites[1].Args, 2)
	assert.Equal(t, "{deep: call(1, 2)}", sites[1].Args[1].Text)
}

func TestHeuristicCallSites_SplatAndKeyword(t *testing.T) {
	src := `apply(...rest)
configure(level=3)
`
	h := heuristicFor(t)

	splat := h.CallSites([]byte(src), "apply")
	require.Len(t, splat, 1)
	require.Len(t, splat[0].Args, 1)
	assert.True(t, splat[0].Args[0].Splat)

	kw := h.CallSites([]byte(src), "configure")
	require.Len(t, kw, 1)
	require.Len(t, kw[0].Args, 1)
	assert.Equal(t, "level", kw[0].Args[0].Keyword)
	assert.Equal(t, "3", kw[0].Args[0].Text)
}
