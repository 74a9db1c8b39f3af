package mutate

import (
	"cmp"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
)

// Prune removes every directory below root that contains no files and no
// subdirectories, deepest first, and repeats until a pass removes nothing.
// root itself is never removed. It returns the number of directories removed.
func Prune(ctx context.Context, root string) (int, error) {
	removed := 0
	for {
		dirs, err := directories(ctx, root)
		if err != nil {
			return removed, err
		}

		pass := 0
		for _, dir := range dirs {
			if err := ctx.Err(); err != nil {
				return removed, err
			}
			empty, err := isEmpty(dir)
			if err != nil || !empty {
				continue
			}
			if err := os.Remove(dir); err != nil {
				continue
			}
			pass++
		}

		removed += pass
		if pass == 0 {
			return removed, nil
		}
	}
}

// directories lists the directories strictly below root, deepest first.
// Symlinked directories are not followed.
func directories(ctx context.Context, root string) ([]string, error) {
	var (
		mu   sync.Mutex
		dirs []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil || path == root || !d.IsDir() {
			return nil
		}
		mu.Lock()
		dirs = append(dirs, path)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(dirs, func(a, b string) int {
		if c := cmp.Compare(depth(b), depth(a)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return dirs, nil
}

func depth(path string) int {
	return strings.Count(path, string(os.PathSeparator))
}

func isEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
