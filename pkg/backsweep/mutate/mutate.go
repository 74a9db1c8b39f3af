// Package mutate applies the selected dispositions of a reconciliation pass
// to the filesystem and prunes the directories left empty in the origin tree.
//
// Records are processed sequentially in input order. Each origin path is
// acted on at most once: the first selected record for a path wins and later
// records for the same path are ignored, whether the first one succeeded or
// not. A failure on one file is logged and counted and never stops the rest.
package mutate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/backsweep/pkg/backsweep/logging"
	"github.com/jamesainslie/backsweep/pkg/backsweep/trash"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// Options configures an apply run.
type Options struct {
	// DryRun computes destinations without touching the filesystem.
	DryRun bool

	// UseTrash sends removed origin files to the system trash.
	UseTrash bool

	// OnProgress is called after every processed origin path.
	OnProgress func(Progress)
}

// Progress reports apply progress.
type Progress struct {
	Processed int
	Total     int
	Path      string
}

// Operation is one performed (or, in a dry run, planned) mutation.
type Operation struct {
	Action      types.Action `json:"action"`
	Origin      string       `json:"origin"`
	Destination string       `json:"destination,omitempty"`
}

// Failure is a mutation that could not be completed.
type Failure struct {
	Action types.Action `json:"action"`
	Path   string       `json:"path"`
	Err    error        `json:"-"`
}

// Error returns the failure cause as text.
func (f Failure) Error() string {
	return f.Err.Error()
}

// Result summarizes an apply run.
type Result struct {
	Succeeded   int           `json:"succeeded"`
	Failures    []Failure     `json:"failures,omitempty"`
	Operations  []Operation   `json:"operations"`
	Pruned      int           `json:"pruned"`
	DryRun      bool          `json:"dry_run"`
	Interrupted bool          `json:"interrupted"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Failed returns the number of failed origin paths.
func (r *Result) Failed() int {
	return len(r.Failures)
}

// Engine applies records. An Engine holds no state between runs.
type Engine struct {
	opts   Options
	remove func(string) error
	logger *logging.Logger
}

// New creates an Engine.
func New(opts Options) *Engine {
	remove := os.Remove
	if opts.UseTrash {
		remove = trash.MoveToTrash
	}
	return &Engine{
		opts:   opts,
		remove: remove,
		logger: logging.Get("mutate"),
	}
}

// Apply applies records with the given options.
func Apply(ctx context.Context, records []types.FileRecord, originRoot, targetRoot string, opts Options) (*Result, error) {
	return New(opts).Apply(ctx, records, originRoot, targetRoot)
}

// Apply performs the action of every selected record, then prunes empty
// directories below originRoot. Unselected and Skip records are ignored.
//
// The returned error is non-nil only if a root is unusable or ctx is
// cancelled; in the latter case the partial result is returned with
// Interrupted set and pruning is skipped.
func (e *Engine) Apply(ctx context.Context, records []types.FileRecord, originRoot, targetRoot string) (*Result, error) {
	start := time.Now()

	originRoot, err := root("origin", originRoot)
	if err != nil {
		return nil, err
	}
	targetRoot, err = root("target", targetRoot)
	if err != nil {
		return nil, err
	}

	todo := actionable(records)
	result := &Result{
		DryRun:     e.opts.DryRun,
		Operations: make([]Operation, 0, len(todo)),
	}

	e.logger.Info("apply started",
		"origin", originRoot,
		"target", targetRoot,
		"records", len(todo),
		"dry_run", e.opts.DryRun,
		"trash", e.opts.UseTrash)

	for i, rec := range todo {
		if err := ctx.Err(); err != nil {
			result.Interrupted = true
			result.Elapsed = time.Since(start)
			e.logger.Warn("apply interrupted", "processed", i, "err", err)
			return result, err
		}

		op, err := e.applyOne(rec, originRoot, targetRoot)
		if err != nil {
			e.logger.Error("action failed", "action", rec.Action, "path", rec.OriginPath, "err", err)
			result.Failures = append(result.Failures, Failure{Action: rec.Action, Path: rec.OriginPath, Err: err})
		} else {
			result.Succeeded++
			result.Operations = append(result.Operations, op)
		}

		if e.opts.OnProgress != nil {
			e.opts.OnProgress(Progress{Processed: i + 1, Total: len(todo), Path: rec.OriginPath})
		}
	}

	if !e.opts.DryRun {
		pruned, err := Prune(ctx, originRoot)
		result.Pruned = pruned
		if err != nil {
			result.Elapsed = time.Since(start)
			if ctx.Err() != nil {
				result.Interrupted = true
				return result, err
			}
			e.logger.Warn("prune incomplete", "root", originRoot, "err", err)
		}
	}

	result.Elapsed = time.Since(start)
	e.logger.Info("apply finished",
		"succeeded", result.Succeeded,
		"failed", result.Failed(),
		"pruned", result.Pruned,
		"elapsed", result.Elapsed)

	return result, nil
}

func (e *Engine) applyOne(rec types.FileRecord, originRoot, targetRoot string) (Operation, error) {
	op := Operation{Action: rec.Action, Origin: rec.OriginPath}

	dst, err := Destination(rec, originRoot, targetRoot)
	if err != nil {
		return op, &types.FileError{Op: opName(rec.Action), Path: rec.OriginPath, Err: err}
	}
	op.Destination = dst

	if e.opts.DryRun {
		return op, nil
	}

	switch rec.Action {
	case types.Move:
		err = moveFile(rec.OriginPath, dst, e.remove)
	case types.Delete:
		err = e.remove(rec.OriginPath)
	case types.CopyAsVersioned:
		if err = replaceFile(rec.OriginPath, dst); err == nil {
			err = e.remove(rec.OriginPath)
		}
	}
	if err != nil {
		return op, &types.FileError{Op: opName(rec.Action), Path: rec.OriginPath, Err: err}
	}

	e.logger.Debug("applied", "action", rec.Action, "origin", rec.OriginPath, "destination", dst)
	return op, nil
}

func opName(a types.Action) string {
	switch a {
	case types.Move:
		return "move"
	case types.Delete:
		return "delete"
	case types.CopyAsVersioned:
		return "copy"
	default:
		return "skip"
	}
}

func root(role, path string) (string, error) {
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
