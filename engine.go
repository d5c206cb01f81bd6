package loupe

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mgreer/loupe/internal/extract"
	"github.com/mgreer/loupe/internal/scan"
	"github.com/mgreer/loupe/internal/store"
)

// Engine binds the code-intelligence pipeline to one repository root:
// file discovery, hash-gated extraction, graph assembly, persistence, and
// the mutation engines. One builder per root at a time; concurrent builders
// against the same root need an external lock.
type Engine struct {
	root  string
	cfg   Config
	store *store.Store
	log   *slog.Logger

	// graph is the last built or loaded document. Immutable to readers;
	// replaced wholesale by the next Build.
	graph *Graph
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides the configuration loaded from .loupe.toml.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger sets the logger for debug and warning notes. The default
// discards debug output.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithStorePath overrides the graph database location. Relative paths are
// resolved against the repository root.
func WithStorePath(path string) Option {
	return func(e *Engine) {
		e.cfg.DBPath = path
	}
}

// New creates an Engine rooted at root. The graph database is opened (and
// its schema created) immediately; the graph itself is loaded or built on
// demand.
func New(root string, opts ...Option) (*Engine, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("loupe: resolve root %q: %w", root, err)
	}
	cfg, err := LoadConfig(abs)
	if err != nil {
		return nil, fmt.Errorf("loupe: %w", err)
	}

	e := &Engine{
		root: abs,
		cfg:  cfg,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	dbPath := e.cfg.dbPath(abs)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("loupe: create state dir: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("loupe: %w", err)
	}
	e.store = s
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Root returns the absolute repository root.
func (e *Engine) Root() string {
	return e.root
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// fileHash is the content hash gating re-extraction.
func fileHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// Build enumerates source files under the root and assembles the graph.
//
// When incremental is true, a file whose stored hash is unchanged skips
// extraction entirely: its cached declaration table and occurrences are
// reused. crossRefs is still rebuilt from scratch on every call, so a
// symbol removed by editing never leaves a stale occurrence.
//
// Unreadable files are skipped with a debug note. The finished graph is
// persisted; a persistence failure is logged and non-fatal, leaving the
// in-memory graph usable.
func (e *Engine) Build(ctx context.Context, incremental bool) (*Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var prev *Graph
	if incremental {
		prev = e.graph
		if prev == nil {
			loaded, err := e.store.LoadGraph()
			if err != nil {
				e.log.Debug("loading previous graph", "error", err)
			} else {
				prev = loaded
			}
		}
	}

	// Occurrences regrouped by file so an unchanged file can reuse them.
	// Per-name order is preserved, so the rebuilt crossRefs come out the
	// same as a full re-extraction would produce.
	var prevOccs map[string][]Occurrence
	if prev != nil {
		prevOccs = make(map[string][]Occurrence)
		for _, occs := range prev.CrossRefs {
			for _, occ := range occs {
				prevOccs[occ.File] = append(prevOccs[occ.File], occ)
			}
		}
	}

	paths, err := scan.Files(e.root, e.cfg.IgnoreDirs, extract.Extensions())
	if err != nil {
		return nil, fmt.Errorf("loupe: enumerate files: %w", err)
	}

	g := store.NewGraph()
	for _, rel := range paths {
		content, err := os.ReadFile(filepath.Join(e.root, rel))
		if err != nil {
			e.log.Debug("skipping unreadable file", "path", rel, "error", err)
			continue
		}
		parser, ok := extract.ForPath(rel)
		if !ok {
			continue
		}

		hash := fileHash(content)
		var table *FileSymbolTable
		var occs []Occurrence
		if prev != nil && prev.FileHash[rel] == hash && prev.Tables[rel] != nil {
			table = prev.Tables[rel]
			occs = prevOccs[rel]
		} else {
			table, occs = parser.Extract(content, rel)
		}

		g.FileHash[rel] = hash
		g.Tables[rel] = table
		for _, occ := range occs {
			g.CrossRefs[occ.Name] = append(g.CrossRefs[occ.Name], occ)
		}
	}

	if err := e.store.SaveGraph(g); err != nil {
		e.log.Warn("persisting graph failed; in-memory graph remains usable", "error", err)
	}
	e.graph = g
	return g, nil
}

// Load returns the persisted graph, or nil when no valid document exists
// (including a schema version mismatch). A nil graph means the caller
// should Build.
func (e *Engine) Load() (*Graph, error) {
	g, err := e.store.LoadGraph()
	if err != nil {
		return nil, fmt.Errorf("loupe: load graph: %w", err)
	}
	if g != nil {
		e.graph = g
	}
	return g, nil
}

// EnsureGraph returns the current graph, loading the persisted document or
// building incrementally as needed.
func (e *Engine) EnsureGraph(ctx context.Context) (*Graph, error) {
	if e.graph != nil {
		return e.graph, nil
	}
	if g, err := e.Load(); err == nil && g != nil {
		return g, nil
	}
	return e.Build(ctx, true)
}

// sourceFiles enumerates the repository the same way Build does. The
// mutation engines share it so a rename sees exactly the indexed file set.
func (e *Engine) sourceFiles() ([]string, error) {
	return scan.Files(e.root, e.cfg.IgnoreDirs, extract.Extensions())
}
