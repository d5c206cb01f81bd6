package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greetSource = `def greet(name):
    """Say hello."""
    print("hello", name)


class Greeter:
    """Greets people."""

    def run(self, target):
        greet(target)


VERSION = "1.0"
`

func pythonFor(t *testing.T) *pythonParser {
	t.Helper()
	p, ok := ForPath("x.py")
	require.True(t, ok)
	require.Equal(t, Exact, p.Capability())
	return p.(*pythonParser)
}

func TestPythonExtract_Declarations(t *testing.T) {
	p := pythonFor(t)
	table, _ := p.Extract([]byte(greetSource), "app.py")

	// Methods land in the table alongside top-level definitions.
	require.Len(t, table.Functions, 2)
	fn := table.Functions[0]
	assert.Equal(t, "greet", fn.Name)
	assert.Equal(t, []string{"name"}, fn.Params)
	assert.Equal(t, "Say hello.", fn.Doc)
	assert.Equal(t, 1, fn.StartLine)
	assert.Equal(t, "run", table.Functions[1].Name)
	assert.Equal(t, []string{"self", "target"}, table.Functions[1].Params)
	assert.False(t, table.Heuristic)

	require.Len(t, table.Classes, 1)
	cls := table.Classes[0]
	assert.Equal(t, "Greeter", cls.Name)
	assert.Equal(t, []string{"run"}, cls.Methods)
	assert.Equal(t, "Greets people.", cls.Doc)

	require.Len(t, table.Variables, 1)
	assert.Equal(t, "VERSION", table.Variables[0].Name)
	assert.Equal(t, `"1.0"`, table.Variables[0].Value)
}

func TestPythonExtract_Occurrences(t *testing.T) {
	p := pythonFor(t)
	_, occs := p.Extract([]byte(greetSource), "app.py")

	var greets []Occurrence
	for _, o := range occs {
		if o.Name == "greet" {
			greets = append(greets, o)
		}
	}
	require.Len(t, greets, 2)
	assert.Equal(t, KindDefinition, greets[0].Kind)
	assert.Equal(t, 1, greets[0].Line)
	assert.Equal(t, KindCall, greets[1].Kind)
	assert.Equal(t, "app.py", greets[1].File)
}

func TestPythonExtract_AsyncAndDecorators(t *testing.T) {
	src := `@app.route("/")
async def index(request):
    return "ok"
`
	p := pythonFor(t)
	table, _ := p.Extract([]byte(src), "views.py")

	require.Len(t, table.Functions, 1)
	fn := table.Functions[0]
	assert.Equal(t, "index", fn.Name)
	assert.True(t, fn.IsAsync)
	require.Len(t, fn.Decorators, 1)
	assert.Contains(t, fn.Decorators[0], "app.route")
}

func TestPythonExtract_DefaultAndTypedParams(t *testing.T) {
	src := `def fetch(url, timeout=30, retries: int = 3):
    pass
`
	p := pythonFor(t)
	table, _ := p.Extract([]byte(src), "net.py")

	require.Len(t, table.Functions, 1)
	assert.Equal(t, []string{"url", "timeout", "retries"}, table.Functions[0].Params)
}

func TestPythonExtract_Imports(t *testing.T) {
	src := `import os
from collections import OrderedDict
from json import dumps as to_json
`
	p := pythonFor(t)
	table, _ := p.Extract([]byte(src), "util.py")

	require.Len(t, table.Imports, 3)
	assert.Equal(t, "os", table.Imports[0].Name)
	assert.Equal(t, "import", table.Imports[0].Kind)
	assert.Equal(t, "OrderedDict", table.Imports[1].Name)
	assert.Equal(t, "collections", table.Imports[1].Module)
	assert.Equal(t, "from", table.Imports[1].Kind)
}

func TestPythonExtract_Empty(t *testing.T) {
	p := pythonFor(t)
	table, occs := p.Extract(nil, "empty.py")

	require.NotNil(t, table)
	assert.Empty(t, table.Functions)
	assert.Empty(t, occs)
}

func TestPythonIdentifierTokens_SkipsStringsAndComments(t *testing.T) {
	src := `greet("x")
# greet in a comment
msg = "call greet here"
greet("y")
`
	p := pythonFor(t)
	tokens := p.IdentifierTokens([]byte(src), "greet")

	require.Len(t, tokens, 2)
	assert.Equal(t, 1, tokens[0].Line)
	assert.Equal(t, 0, tokens[0].StartCol)
	assert.Equal(t, 5, tokens[0].EndCol)
	assert.Equal(t, 4, tokens[1].Line)
}

func TestPythonCallSites(t *testing.T) {
	src := `greet("x")
obj.greet("y", loud=True)
other("z")
`
	p := pythonFor(t)
	sites := p.CallSites([]byte(src), "greet")

	require.Len(t, sites, 2)

	assert.Equal(t, 1, sites[0].Line)
	require.Len(t, sites[0].Args, 1)
	assert.Equal(t, `"x"`, sites[0].Args[0].Text)
	assert.Empty(t, sites[0].Args[0].Keyword)

	require.Len(t, sites[1].Args, 2)
	assert.Equal(t, "loud", sites[1].Args[1].Keyword)
	assert.Equal(t, "True", sites[1].Args[1].Text)
}

func TestPythonCallSites_SplatFlagged(t *testing.T) {
	src := `greet(*args, **kwargs)
`
	p := pythonFor(t)
	sites := p.CallSites([]byte(src), "greet")

	require.Len(t, sites, 1)
	require.Len(t, sites[0].Args, 2)
	assert.True(t, sites[0].Args[0].Splat)
	assert.True(t, sites[0].Args[1].Splat)
}
