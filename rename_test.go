package loupe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRename_AppliedAcrossFiles(t *testing.T) {
	e := newTestRepo(t, map[string]string{
		"a.py": defSource,
		"b.py": callSource,
	})

	res, err := e.Rename(context.Background(), "greet", "hello", false)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Edits, 2)

	assert.Equal(t, "def hello(name):\n    print(\"hello\", name)\n", readRepoFile(t, e, "a.py"))
	assert.Equal(t, "hello(\"x\")\n", readRepoFile(t, e, "b.py"))

	// The graph after a rebuild has no trace of the old name.
	g, err := e.Build(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, g.CrossRefs["greet"])
	assert.Len(t, g.CrossRefs["hello"], 2)
}

func TestRename_DryRunLeavesFilesUntouched(t *testing.T) {
	e := newTestRepo(t, map[string]string{"b.py": callSource})

	res, err := e.Rename(context.Background(), "greet", "hello", true)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	require.Len(t, res.Edits, 1)
	assert.Equal(t, "greet", res.Edits[0].OldText)
	assert.Equal(t, "hello", res.Edits[0].NewText)

	assert.Equal(t, callSource, readRepoFile(t, e, "b.py"))
}

func TestRename_SkipsStringsAndComments(t *testing.T) {
	src := `greet("x")
# calls greet somewhere
msg = "greet appears here"
`
	e := newTestRepo(t, map[string]string{"a.py": src})

	res, err := e.Rename(context.Background(), "greet", "hello", false)
	require.NoError(t, err)
	require.Len(t, res.Edits, 1)

	want := `hello("x")
# calls greet somewhere
msg = "greet appears here"
`
	assert.Equal(t, want, readRepoFile(t, e, "a.py"))
}

func TestRename_NoSubstringMatches(t *testing.T) {
	src := `greeting = 1
ungreet = 2
`
	e := newTestRepo(t, map[string]string{"a.py": src})

	res, err := e.Rename(context.Background(), "greet", "hello", false)
	require.NoError(t, err)
	assert.Empty(t, res.Edits)
	assert.Equal(t, src, readRepoFile(t, e, "a.py"))
}

func TestRename_MultipleOnOneLine(t *testing.T) {
	src := "greet(greet(1))\n"
	e := newTestRepo(t, map[string]string{"a.py": src})

	res, err := e.Rename(context.Background(), "greet", "salute", false)
	require.NoError(t, err)
	require.Len(t, res.Edits, 2)
	assert.Equal(t, "salute(salute(1))\n", readRepoFile(t, e, "a.py"))
}

func TestRename_AbsentNameNoEdits(t *testing.T) {
	e := newTestRepo(t, map[string]string{"a.py": defSource})

	res, err := e.Rename(context.Background(), "nothing", "something", false)
	require.NoError(t, err)
	assert.Empty(t, res.Edits)
	assert.True(t, res.Applied)
}

func TestRename_WordBoundaryFallback(t *testing.T) {
	src := "function greet(name) { return greeting + greet2(name) }\ngreet(\"x\")\n"
	e := newTestRepo(t, map[string]string{"a.js": src})

	res, err := e.Rename(context.Background(), "greet", "hello", false)
	require.NoError(t, err)
	require.Len(t, res.Edits, 2)
	assert.Equal(t, "function hello(name) { return greeting + greet2(name) }\nhello(\"x\")\n", readRepoFile(t, e, "a.js"))
}

func TestRename_RoundTripByteIdentical(t *testing.T) {
	files := map[string]string{
		"a.py": defSource,
		"b.py": callSource,
		"c.py": "# greet stays put here\nmsg = \"greet\"\nresult = greet(greet(\"x\"))\n",
	}
	e := newTestRepo(t, files)

	res, err := e.Rename(context.Background(), "greet", "hello", false)
	require.NoError(t, err)
	require.True(t, res.Applied)

	res, err = e.Rename(context.Background(), "hello", "greet", false)
	require.NoError(t, err)
	require.True(t, res.Applied)

	for rel, original := range files {
		assert.Equal(t, original, readRepoFile(t, e, rel), rel)
	}
}

func TestRename_PreservesLineEndings(t *testing.T) {
	src := "greet(\"x\")\r\nother()\r\n"
	e := newTestRepo(t, map[string]string{"a.py": src})

	_, err := e.Rename(context.Background(), "greet", "hello", false)
	require.NoError(t, err)
	assert.Equal(t, "hello(\"x\")\r\nother()\r\n", readRepoFile(t, e, "a.py"))
}

func TestRename_InvalidIdentifier(t *testing.T) {
	e := newTestRepo(t, map[string]string{"a.py": defSource})

	_, err := e.Rename(context.Background(), "greet", "not valid", false)
	require.Error(t, err)

	_, err = e.Rename(context.Background(), "a.b", "x", false)
	require.Error(t, err)
}
