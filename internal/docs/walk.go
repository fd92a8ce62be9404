package docs

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	derrors "git.home.luguber.info/inful/mdpages/internal/docs/errors"
)

// WalkFunc is called for every regular file found by WalkSorted. dir and rel
// are slash-separated and relative to the walk root; dir is "." for the root.
type WalkFunc func(dir, rel string, entry fs.DirEntry) error

// WalkSorted walks root depth-first. Within each directory the files are
// visited first, in byte-wise name order, followed by the subdirectories in
// the same order. Both discovery and the index use this ordering so that
// groups and documents appear in a stable, predictable sequence.
func WalkSorted(root string, fn WalkFunc) error {
	return walkDir(root, ".", fn)
}

func walkDir(root, dir string, fn WalkFunc) error {
	entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(dir)))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", derrors.ErrDirWalkFailed, dir, err)
	}

	var files, dirs []fs.DirEntry
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
	}
	byName := func(list []fs.DirEntry) {
		sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	}
	byName(files)
	byName(dirs)

	for _, f := range files {
		if err := fn(dir, path.Join(dir, f.Name()), f); err != nil {
			return err
		}
	}
	for _, d := range dirs {
		if err := walkDir(root, path.Join(dir, d.Name()), fn); err != nil {
			return err
		}
	}
	return nil
}
