package session

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/6-eyes/atilink/pkg/atierr"
)

// RecursivePaths walks root and returns every regular file beneath it, as
// a path relative to root using forward slashes, in deterministic
// (lexical) order (spec.md §4.5's recursive_paths). Symlinks are skipped
// — symlink handling is an explicit non-goal.
func RecursivePaths(root string) ([]string, error) {
	var rel []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		r, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = append(rel, filepath.ToSlash(r))
		return nil
	})
	if err != nil {
		return nil, atierr.IOf(err, "walk %s", root)
	}

	sort.Strings(rel)
	return rel, nil
}
