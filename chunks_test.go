package loupe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rankedRepoGreeter = `def greet(name):
    """Greet a user by name."""
    print("hello", name)


def parse_config(path):
    """Read the config file."""
    return open(path).read()
`

func TestContext_RanksMatchingChunkFirst(t *testing.T) {
	e := newTestRepo(t, map[string]string{"app.py": rankedRepoGreeter})

	chunks, err := e.Context(context.Background(), "greet user", 0)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Equal(t, "greet", chunks[0].Symbol)
	assert.Equal(t, "function", chunks[0].Kind)
	assert.Equal(t, "app.py", chunks[0].File)
	assert.Contains(t, chunks[0].Source, "def greet")
	assert.Greater(t, chunks[0].Score, 0.0)

	for _, c := range chunks {
		assert.NotEqual(t, "parse_config", c.Symbol, "unrelated chunk must score zero and drop out")
	}
}

func TestContext_NameEqualityBonus(t *testing.T) {
	e := newTestRepo(t, map[string]string{"app.py": rankedRepoGreeter})

	chunks, err := e.Context(context.Background(), "greet", 0)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	// Full token overlap plus the exact-name bonus.
	assert.InDelta(t, 1.0+nameBonus, chunks[0].Score, 0.001)
}

func TestContext_BudgetStopsAccumulation(t *testing.T) {
	e := newTestRepo(t, map[string]string{
		"a.py": "def config_load(path):\n    return path\n",
		"b.py": "def config_save(path):\n    return path\n",
	})

	all, err := e.Context(context.Background(), "config path", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// A budget that fits only the first chunk truncates the bundle.
	tight, err := e.Context(context.Background(), "config path", len(all[0].Source)+1)
	require.NoError(t, err)
	require.Len(t, tight, 1)
	assert.Equal(t, all[0].Symbol, tight[0].Symbol)
}

func TestContext_FirstChunkAlwaysIncluded(t *testing.T) {
	e := newTestRepo(t, map[string]string{"a.py": rankedRepoGreeter})

	chunks, err := e.Context(context.Background(), "greet", 1)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Greater(t, len(chunks[0].Source), 1)
}

func TestContext_CandidateFileFilter(t *testing.T) {
	e := newTestRepo(t, map[string]string{
		"a.py": "def report_totals():\n    pass\n",
		"b.py": "def report_errors():\n    pass\n",
	})

	chunks, err := e.Context(context.Background(), "report", 0, "b.py")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "b.py", chunks[0].File)
}

func TestContext_EmptyQueryIsError(t *testing.T) {
	e := newTestRepo(t, map[string]string{"a.py": defSource})

	_, err := e.Context(context.Background(), "   ", 0)
	require.Error(t, err)
}

func TestIdentifierWords_SplitsSnakeCase(t *testing.T) {
	words := identifierWords("parse_config loader99 x")
	assert.Equal(t, []string{"parse", "config", "loader99"}, words)
}

func TestStemTokens_NormalizesAndDedupes(t *testing.T) {
	stems := stemTokens([]string{"Loading", "loads", "loaded"})
	require.NotEmpty(t, stems)
	first := stems[0]
	for _, s := range stems[1:] {
		assert.Equal(t, first, s)
	}
}
