// Package locator enumerates the target paths that may correspond to an
// origin file.
//
// Candidates are constructed in a fixed order:
//
//  1. the mirrored path, target root joined with the origin file's path
//     relative to the origin root;
//  2. the copy-suffix variant of the mirrored path (" - Copy" stripped if
//     present, otherwise inserted before the extension);
//  3. when other-location search is enabled, every indexed target file whose
//     containing directory shares the origin file's parent directory name and
//     whose name is the origin name, its stripped form or its added form.
//
// The order carries no priority; the classifier ranks candidates.
package locator

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Locator builds candidate lists for files under one origin root.
// It is safe for concurrent use.
type Locator struct {
	originRoot string
	targetRoot string
	index      *Index
}

// New returns a Locator. A nil index disables other-location search.
func New(originRoot, targetRoot string, index *Index) *Locator {
	return &Locator{
		originRoot: originRoot,
		targetRoot: targetRoot,
		index:      index,
	}
}

// SearchesOtherLocations reports whether other-location search is enabled.
func (l *Locator) SearchesOtherLocations() bool {
	return l.index != nil
}

// Mirror returns the path under the target root that mirrors originPath.
func (l *Locator) Mirror(originPath string) (string, error) {
	rel, err := l.relative(originPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.targetRoot, rel), nil
}

func (l *Locator) relative(originPath string) (string, error) {
	rel, err := filepath.Rel(l.originRoot, originPath)
	if err != nil {
		return "", fmt.Errorf("%s is not under %s: %w", originPath, l.originRoot, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not under %s", originPath, l.originRoot)
	}
	return rel, nil
}

// Candidates returns every constructed candidate for originPath without
// checking existence. Duplicates are removed, keeping the first occurrence.
func (l *Locator) Candidates(originPath string) ([]string, error) {
	rel, err := l.relative(originPath)
	if err != nil {
		return nil, err
	}

	mirrored := filepath.Join(l.targetRoot, rel)
	name := filepath.Base(rel)

	candidates := []string{
		mirrored,
		filepath.Join(filepath.Dir(mirrored), CopyVariant(name)),
	}

	if l.index != nil {
		parent := filepath.Base(filepath.Dir(rel))
		if parent == "." {
			parent = ""
		}
		for _, form := range NameForms(name) {
			candidates = append(candidates, l.index.Lookup(parent, form)...)
		}
	}

	return dedupe(candidates), nil
}

// Active returns the candidates for originPath that currently exist as
// regular files, in construction order.
func (l *Locator) Active(originPath string) ([]string, error) {
	candidates, err := l.Candidates(originPath)
	if err != nil {
		return nil, err
	}

	active := candidates[:0]
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		active = append(active, c)
	}
	return active, nil
}

func dedupe(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}
