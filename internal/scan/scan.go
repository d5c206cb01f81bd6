// Package scan enumerates the source files of a repository root. It honors
// .gitignore, skips hidden and configured ignore directories, and filters
// to the extensions the extract registry knows about.
package scan

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Files returns repo-relative, slash-separated paths of every candidate
// source file under root, sorted. exts maps extensions (with dot) to true.
func Files(root string, ignoreDirs []string, exts map[string]bool) ([]string, error) {
	skip := make(map[string]bool, len(ignoreDirs))
	for _, d := range ignoreDirs {
		skip[d] = true
	}

	// A missing or unreadable .gitignore just means no extra exclusions.
	ign, _ := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || skip[name] {
				return filepath.SkipDir
			}
			if ign != nil && ign.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !exts[ext(rel)] {
			return nil
		}
		if ign != nil && ign.MatchesPath(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
