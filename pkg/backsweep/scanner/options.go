// Package scanner runs a reconciliation pass: it walks the origin tree,
// partitions the files into batches, classifies them on a bounded worker
// pool and merges the per-batch records into one ordered list.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/backsweep/pkg/backsweep/classifier"
	"github.com/jamesainslie/backsweep/pkg/backsweep/tuner"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// Options configures a reconciliation pass.
type Options struct {
	// Origin is the tree being cleaned up.
	Origin string

	// Target is the authoritative backup tree.
	Target string

	// SearchOtherLocations enables candidate search anywhere under Target
	// in directories named like the origin file's parent.
	SearchOtherLocations bool

	// BudgetPercent is the share of CPU cores given to classification,
	// between 25 and 100.
	BudgetPercent int

	// Workers overrides the worker count derived from BudgetPercent when
	// greater than zero.
	Workers int

	// Exclude contains glob patterns for entries skipped in both trees.
	// Patterns without a slash match base names; others match the path
	// relative to the tree root.
	Exclude []string

	// Hasher computes fingerprints. Nil uses the default fingerprinter.
	Hasher classifier.Hasher

	// OnProgress is called by the controlling goroutine only, so reports
	// arrive in order and Classified never decreases.
	OnProgress func(types.ScanProgress)
}

// DefaultOptions returns options with the default budget. Nothing is
// excluded, so every origin file gets a record.
func DefaultOptions() Options {
	return Options{
		BudgetPercent: tuner.DefaultBudgetPercent,
	}
}

// Validate resolves both roots to absolute paths and checks that they are
// distinct existing directories and that the budget is in range. Root
// problems are reported as *types.ConfigError wrapping types.ErrInvalidRoot
// or types.ErrSameRoot. A zero budget selects the default.
func (o *Options) Validate() error {
	if o.BudgetPercent == 0 {
		o.BudgetPercent = tuner.DefaultBudgetPercent
	}
	if err := tuner.ValidateBudget(o.BudgetPercent); err != nil {
		return err
	}

	origin, err := resolveRoot("origin", o.Origin)
	if err != nil {
		return err
	}
	target, err := resolveRoot("target", o.Target)
	if err != nil {
		return err
	}

	if sameDir(origin, target) {
		return &types.ConfigError{Role: "target", Path: target, Err: types.ErrSameRoot}
	}
	if within(origin, target) || within(target, origin) {
		return &types.ConfigError{Role: "target", Path: target, Err: types.ErrNestedRoot}
	}

	o.Origin, o.Target = origin, target
	return nil
}

func resolveRoot(role, path string) (string, error) {
	if path == "" {
		return "", &types.ConfigError{Role: role, Path: path, Err: fmt.Errorf("%w: path is empty", types.ErrInvalidRoot)}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &types.ConfigError{Role: role, Path: path, Err: fmt.Errorf("%w: %v", types.ErrInvalidRoot, err)}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", &types.ConfigError{Role: role, Path: abs, Err: fmt.Errorf("%w: %v", types.ErrInvalidRoot, err)}
	}
	if !info.IsDir() {
		return "", &types.ConfigError{Role: role, Path: abs, Err: fmt.Errorf("%w: not a directory", types.ErrInvalidRoot)}
	}

	return abs, nil
}

// within reports whether path lies strictly below dir.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func sameDir(a, b string) bool {
	if a == b {
		return true
	}
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
