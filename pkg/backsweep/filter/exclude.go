// Package filter decides which files take part in a reconciliation and which
// records are selected for mutation.
//
// Excluder drops walk entries by glob pattern before they are classified or
// indexed. Selector sets the Selected flag of records by match kind, action,
// size and origin path patterns.
package filter

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

type pattern struct {
	source string
	glob   glob.Glob
	// path patterns contain a separator and match the slash-separated
	// relative path; the rest match the base name only.
	path bool
}

// Excluder matches walk entries against compiled glob patterns.
// A nil Excluder excludes nothing.
type Excluder struct {
	patterns []pattern
}

// NewExcluder compiles the given patterns. Empty patterns are ignored.
func NewExcluder(patterns ...string) (*Excluder, error) {
	e := &Excluder{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling exclude pattern %q: %w", p, err)
		}
		e.patterns = append(e.patterns, pattern{
			source: p,
			glob:   g,
			path:   strings.Contains(p, "/"),
		})
	}
	return e, nil
}

// MustExcluder is like NewExcluder but panics on an invalid pattern.
func MustExcluder(patterns ...string) *Excluder {
	e, err := NewExcluder(patterns...)
	if err != nil {
		panic(err)
	}
	return e
}

// Excluded reports whether an entry is excluded. rel is the slash-separated
// path relative to the walk root and name is the entry's base name.
func (e *Excluder) Excluded(rel, name string) bool {
	if e == nil {
		return false
	}
	for _, p := range e.patterns {
		subject := name
		if p.path {
			subject = rel
		}
		if p.glob.Match(subject) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns in compilation order.
func (e *Excluder) Patterns() []string {
	if e == nil {
		return nil
	}
	out := make([]string, len(e.patterns))
	for i, p := range e.patterns {
		out[i] = p.source
	}
	return out
}
