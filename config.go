package loupe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFileName is looked up at the repository root.
const ConfigFileName = ".loupe.toml"

// DefaultContextBudget caps the cumulative source length of a context
// bundle when the caller passes no budget.
const DefaultContextBudget = 8000

// Config tunes an Engine. The zero value is not useful; start from
// DefaultConfig.
type Config struct {
	// IgnoreDirs are directory names excluded from enumeration, in
	// addition to hidden directories and .gitignore matches.
	IgnoreDirs []string `toml:"ignore_dirs"`
	// ContextBudget is the default character budget for context bundles.
	ContextBudget int `toml:"context_budget"`
	// DBPath overrides the graph database location. Relative paths are
	// resolved against the repository root.
	DBPath string `toml:"db_path"`
}

// DefaultConfig returns the built-in defaults: version control, caches,
// and build/dependency output are ignored.
func DefaultConfig() Config {
	return Config{
		IgnoreDirs: []string{
			".git", ".hg", ".loupe", "node_modules", "vendor",
			"__pycache__", ".venv", "dist", "build", "target",
		},
		ContextBudget: DefaultContextBudget,
	}
}

// LoadConfig reads .loupe.toml at root, overlaying the defaults. A missing
// file is not an error; a malformed one is.
func LoadConfig(root string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(filepath.Join(root, ConfigFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var overlay Config
	if err := toml.Unmarshal(data, &overlay); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", ConfigFileName, err)
	}
	if len(overlay.IgnoreDirs) > 0 {
		cfg.IgnoreDirs = append(cfg.IgnoreDirs, overlay.IgnoreDirs...)
	}
	if overlay.ContextBudget > 0 {
		cfg.ContextBudget = overlay.ContextBudget
	}
	if overlay.DBPath != "" {
		cfg.DBPath = overlay.DBPath
	}
	return cfg, nil
}

// dbPath resolves the graph database location for a root.
func (c Config) dbPath(root string) string {
	if c.DBPath != "" {
		if filepath.IsAbs(c.DBPath) {
			return c.DBPath
		}
		return filepath.Join(root, c.DBPath)
	}
	return filepath.Join(root, ".loupe", "index.db")
}
