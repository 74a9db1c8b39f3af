package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// Selector decides which records are selected for mutation.
// Records whose action is Skip are never selected.
type Selector struct {
	// Kinds restricts selection to these match kinds. Empty allows all.
	Kinds []types.MatchKind

	// Actions restricts selection to these actions. Empty allows all.
	Actions []types.Action

	// MinSize excludes records whose origin file is smaller.
	MinSize int64

	// Include contains glob patterns. If non-empty, the origin path must
	// match at least one.
	Include []string

	// Exclude contains glob patterns matched against the origin path.
	Exclude []string

	include []glob.Glob
	exclude []glob.Glob
}

// Option is a functional option for configuring a Selector.
type Option func(*Selector)

// NewSelector creates a Selector. Without options every actionable record is
// selected.
func NewSelector(opts ...Option) (*Selector, error) {
	s := &Selector{}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.include, err = compileAll(s.Include); err != nil {
		return nil, err
	}
	if s.exclude, err = compileAll(s.Exclude); err != nil {
		return nil, err
	}
	return s, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// WithKinds restricts selection to the given match kinds.
func WithKinds(kinds ...types.MatchKind) Option {
	return func(s *Selector) {
		s.Kinds = kinds
	}
}

// WithActions restricts selection to the given actions.
func WithActions(actions ...types.Action) Option {
	return func(s *Selector) {
		s.Actions = actions
	}
}

// WithMinSize sets the minimum origin file size.
// Negative values are treated as 0.
func WithMinSize(minSize int64) Option {
	return func(s *Selector) {
		s.MinSize = max(minSize, 0)
	}
}

// WithInclude sets the include glob patterns.
func WithInclude(patterns ...string) Option {
	return func(s *Selector) {
		s.Include = patterns
	}
}

// WithExclude sets the exclude glob patterns.
func WithExclude(patterns ...string) Option {
	return func(s *Selector) {
		s.Exclude = patterns
	}
}

// Match reports whether the selector would select rec.
func (s *Selector) Match(rec *types.FileRecord) bool {
	if rec.Action == types.Skip {
		return false
	}
	if len(s.Kinds) > 0 && !slices.Contains(s.Kinds, rec.Kind) {
		return false
	}
	if len(s.Actions) > 0 && !slices.Contains(s.Actions, rec.Action) {
		return false
	}
	if s.MinSize > 0 && rec.Size < s.MinSize {
		return false
	}
	for _, g := range s.exclude {
		if g.Match(rec.OriginPath) {
			return false
		}
	}
	if len(s.include) == 0 {
		return true
	}
	for _, g := range s.include {
		if g.Match(rec.OriginPath) {
			return true
		}
	}
	return false
}

// Apply sets the Selected flag of every record in place and returns the
// number of records selected.
func (s *Selector) Apply(records []types.FileRecord) int {
	n := 0
	for i := range records {
		records[i].Selected = s.Match(&records[i])
		if records[i].Selected {
			n++
		}
	}
	return n
}

// SelectAll selects every actionable record and returns how many there are.
func SelectAll(records []types.FileRecord) int {
	n := 0
	for i := range records {
		records[i].Selected = records[i].Action != types.Skip
		if records[i].Selected {
			n++
		}
	}
	return n
}

// DeselectAll clears the Selected flag of every record.
func DeselectAll(records []types.FileRecord) {
	for i := range records {
		records[i].Selected = false
	}
}

// ParseKinds parses a comma-separated list of match kinds such as
// "exact,name,size,unmatched". "all" expands to every primary kind.
func ParseKinds(s string) ([]types.MatchKind, error) {
	var kinds []types.MatchKind
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.EqualFold(part, "all") {
			return []types.MatchKind{types.ExactMatch, types.NameMatch, types.SizeMatch, types.NoMatch}, nil
		}
		kind, err := types.ParseMatchKind(part)
		if err != nil {
			return nil, err
		}
		if kind == types.AlternativeMatch {
			return nil, fmt.Errorf("%w: alternative matches cannot be selected", types.ErrInvalidMatchKind)
		}
		if !slices.Contains(kinds, kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}
