package loupe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgreer/loupe/internal/extract"
)

// newTestRepo materializes files (repo-relative path to content) under a
// temp root and binds an engine to it.
func newTestRepo(t *testing.T, files map[string]string) *Engine {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	e, err := New(root)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func readRepoFile(t *testing.T, e *Engine, rel string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(e.Root(), filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(content)
}

const defSource = `def greet(name):
    print("hello", name)
`

const callSource = `greet("x")
`

func TestBuild_DefinitionAndCall(t *testing.T) {
	e := newTestRepo(t, map[string]string{
		"a.py": defSource,
		"b.py": callSource,
	})

	g, err := e.Build(context.Background(), false)
	require.NoError(t, err)

	occs := g.CrossRefs["greet"]
	require.Len(t, occs, 2)

	var defs, calls []Occurrence
	for _, o := range occs {
		switch o.Kind {
		case KindDefinition:
			defs = append(defs, o)
		case KindCall:
			calls = append(calls, o)
		}
	}
	require.Len(t, defs, 1)
	assert.Equal(t, "a.py", defs[0].File)
	require.Len(t, calls, 1)
	assert.Equal(t, "b.py", calls[0].File)
}

func TestBuild_IncrementalReusesUnchangedTables(t *testing.T) {
	e := newTestRepo(t, map[string]string{"a.py": defSource})

	g1, err := e.Build(context.Background(), false)
	require.NoError(t, err)
	table1 := g1.Tables["a.py"]

	g2, err := e.Build(context.Background(), true)
	require.NoError(t, err)
	assert.Same(t, table1, g2.Tables["a.py"])
}

// countingParser tracks how many times Extract runs.
type countingParser struct {
	calls int
}

func (p *countingParser) Capability() extract.Capability { return extract.Exact }

func (p *countingParser) Extract(content []byte, path string) (*FileSymbolTable, []Occurrence) {
	p.calls++
	return &FileSymbolTable{Path: path},
		[]Occurrence{{File: path, Line: 1, Kind: KindDefinition, Name: "stub"}}
}

func TestBuild_IncrementalSkipsUnchangedExtraction(t *testing.T) {
	p := &countingParser{}
	extract.Register(".zz", p)

	e := newTestRepo(t, map[string]string{"a.zz": "stub\n"})

	_, err := e.Build(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, p.calls)

	g, err := e.Build(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
	require.Len(t, g.CrossRefs["stub"], 1)
	assert.Equal(t, "a.zz", g.CrossRefs["stub"][0].File)
}

func TestBuild_ChangedFileReExtracted(t *testing.T) {
	e := newTestRepo(t, map[string]string{"a.py": defSource})

	_, err := e.Build(context.Background(), false)
	require.NoError(t, err)

	changed := "def farewell(name):\n    pass\n"
	require.NoError(t, os.WriteFile(filepath.Join(e.Root(), "a.py"), []byte(changed), 0o644))

	g, err := e.Build(context.Background(), true)
	require.NoError(t, err)

	require.Len(t, g.Tables["a.py"].Functions, 1)
	assert.Equal(t, "farewell", g.Tables["a.py"].Functions[0].Name)
	// No stale crossref survives the rebuild.
	assert.Empty(t, g.CrossRefs["greet"])
}

func TestBuild_Deterministic(t *testing.T) {
	e := newTestRepo(t, map[string]string{
		"a.py": defSource,
		"b.py": callSource,
	})

	g1, err := e.Build(context.Background(), false)
	require.NoError(t, err)
	g2, err := e.Build(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, g1.FileHash, g2.FileHash)
	assert.Equal(t, g1.CrossRefs, g2.CrossRefs)
}

func TestBuild_PersistsAndReloads(t *testing.T) {
	e := newTestRepo(t, map[string]string{"a.py": defSource})

	built, err := e.Build(context.Background(), false)
	require.NoError(t, err)

	// A second engine on the same root sees the persisted document.
	e2, err := New(e.Root())
	require.NoError(t, err)
	defer e2.Close()

	loaded, err := e2.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, built.FileHash, loaded.FileHash)
	assert.Len(t, loaded.CrossRefs["greet"], len(built.CrossRefs["greet"]))
}

func TestBuild_CancelledContext(t *testing.T) {
	e := newTestRepo(t, map[string]string{"a.py": defSource})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Build(ctx, false)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoad_NoDocumentIsNil(t *testing.T) {
	e := newTestRepo(t, map[string]string{"a.py": defSource})

	g, err := e.Load()
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestNew_WithStorePath(t *testing.T) {
	root := t.TempDir()
	e, err := New(root, WithStorePath("state/graph.db"))
	require.NoError(t, err)
	defer e.Close()

	_, err = os.Stat(filepath.Join(root, "state", "graph.db"))
	require.NoError(t, err)
}

func TestNew_AppliesConfigFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(root, ConfigFileName),
		[]byte("ignore_dirs = [\"generated\"]\ncontext_budget = 500\n"), 0o644))

	e, err := New(root)
	require.NoError(t, err)
	defer e.Close()

	assert.Contains(t, e.Config().IgnoreDirs, "generated")
	assert.Contains(t, e.Config().IgnoreDirs, ".git")
	assert.Equal(t, 500, e.Config().ContextBudget)
}
