package locator

import (
	"cmp"
	"context"
	"io/fs"
	"path/filepath"
	"slices"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/backsweep/pkg/backsweep/filter"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

type indexKey struct {
	dir  string // base name of the containing directory
	name string // file name
}

// Index maps (containing directory name, file name) to the paths of
// non-directory files under a target root. It is built once per scan and is read-only
// afterwards, so workers may share it.
//
// Files directly under the root are keyed by the root's own base name.
type Index struct {
	root   string
	files  map[indexKey][]string
	errors []types.ScanError
}

// BuildIndex walks root and indexes every regular file and symlink. Excluded entries are
// skipped; excluded directories are not descended into. Unreadable entries
// are recorded in Errors and do not stop the walk.
func BuildIndex(ctx context.Context, root string, exclude *filter.Excluder) (*Index, error) {
	ix := &Index{
		root:  root,
		files: make(map[indexKey][]string),
	}

	var mu sync.Mutex
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			mu.Lock()
			ix.errors = append(ix.errors, types.ScanError{Path: path, Error: err.Error()})
			mu.Unlock()
			return nil
		}
		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if exclude.Excluded(filepath.ToSlash(rel), d.Name()) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		// Symlinks are indexed like regular files; Locator.Active resolves
		// them and keeps only those pointing at regular files.
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}

		key := indexKey{dir: filepath.Base(filepath.Dir(path)), name: d.Name()}
		mu.Lock()
		ix.files[key] = append(ix.files[key], path)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	for key := range ix.files {
		slices.Sort(ix.files[key])
	}
	slices.SortFunc(ix.errors, func(a, b types.ScanError) int {
		return cmp.Compare(a.Path, b.Path)
	})

	return ix, nil
}

// Root returns the indexed root.
func (ix *Index) Root() string {
	return ix.root
}

// Lookup returns the sorted paths of files named name inside directories
// whose base name is dirName.
func (ix *Index) Lookup(dirName, name string) []string {
	if ix == nil || dirName == "" {
		return nil
	}
	return ix.files[indexKey{dir: dirName, name: name}]
}

// Len returns the number of indexed files.
func (ix *Index) Len() int {
	n := 0
	for _, paths := range ix.files {
		n += len(paths)
	}
	return n
}

// Errors returns the entries that could not be read during the walk.
func (ix *Index) Errors() []types.ScanError {
	return ix.errors
}
