// Package classifier decides how an origin file relates to its candidates
// and which disposition to propose for it.
//
// Each active candidate is tested in order of strength:
//
//   - ExactMatch: equal fingerprints. Proposes Delete.
//   - NameMatch: same base name, different content. Proposes CopyAsVersioned.
//   - SizeMatch: different name and content, same size. Proposes
//     CopyAsVersioned.
//
// Candidates that are none of these are dropped. When several qualify they
// are ranked ExactMatch, SizeMatch, NameMatch (stable for ties); the first
// becomes the primary record and the rest become Skip alternatives. An origin
// file without qualifying candidates yields a single unselected Move record.
package classifier

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/jamesainslie/backsweep/pkg/backsweep/fingerprint"
	"github.com/jamesainslie/backsweep/pkg/backsweep/logging"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// Hasher computes content fingerprints.
type Hasher interface {
	File(path string) (fingerprint.Digest, error)
}

// SamplingHasher is a Hasher that fingerprints large files from samples.
// Two sampled files of different sizes may still share a fingerprint, so
// the classifier hashes such pairs instead of ruling them out by size.
type SamplingHasher interface {
	Hasher
	Sampled(size int64) bool
}

// Candidate is a target path under consideration for one origin file.
type Candidate struct {
	Path   string
	Kind   types.MatchKind
	Action types.Action
}

// Result is the classification of one origin file.
type Result struct {
	// Records holds the primary record followed by its alternatives.
	Records []types.FileRecord

	// Errors holds failures that demoted a candidate or dropped it.
	Errors []types.ScanError
}

// Classifier classifies origin files. It holds no mutable state and is safe
// for concurrent use.
type Classifier struct {
	hasher  Hasher
	sampled func(size int64) bool
	logger  *logging.Logger
}

// New returns a Classifier that fingerprints files with hasher.
// A nil hasher selects fingerprint.Default.
func New(hasher Hasher) *Classifier {
	if hasher == nil {
		hasher = fingerprint.Default
	}
	c := &Classifier{
		hasher:  hasher,
		sampled: func(int64) bool { return false },
		logger:  logging.Get("classifier"),
	}
	if sh, ok := hasher.(SamplingHasher); ok {
		c.sampled = sh.Sampled
	}
	return c
}

// Classify classifies originPath against its active candidates.
//
// A candidate whose fingerprint cannot be computed is still tested by name
// and size. If the origin itself cannot be fingerprinted, no candidate can be
// an exact match. If the origin cannot even be stat'ed, the candidates cannot
// be compared and the file is reported as having no match.
func (c *Classifier) Classify(originPath string, candidates []string) Result {
	var res Result

	info, err := os.Stat(originPath)
	if err != nil {
		c.fail(&res, originPath, err)
		return noMatch(res, originPath, 0)
	}
	size := info.Size()

	if len(candidates) == 0 {
		return noMatch(res, originPath, size)
	}

	name := filepath.Base(originPath)

	var (
		originDigest fingerprint.Digest
		originHashed bool
		originTried  bool
	)
	digest := func() (fingerprint.Digest, bool) {
		if !originTried {
			originTried = true
			d, err := c.hasher.File(originPath)
			if err != nil {
				c.fail(&res, originPath, err)
			} else {
				originDigest, originHashed = d, true
			}
		}
		return originDigest, originHashed
	}

	qualified := make([]Candidate, 0, len(candidates))
	for _, path := range candidates {
		cand, ok := c.match(&res, path, name, size, digest)
		if ok {
			qualified = append(qualified, cand)
		}
	}

	if len(qualified) == 0 {
		return noMatch(res, originPath, size)
	}

	slices.SortStableFunc(qualified, func(a, b Candidate) int {
		return a.Kind.Priority() - b.Kind.Priority()
	})

	primary := qualified[0]
	res.Records = append(res.Records, types.FileRecord{
		OriginPath: originPath,
		TargetPath: primary.Path,
		Size:       size,
		Kind:       primary.Kind,
		Matches:    len(qualified),
		Action:     primary.Action,
		Selected:   true,
	})
	for i, alt := range qualified[1:] {
		res.Records = append(res.Records, types.FileRecord{
			OriginPath: originPath,
			TargetPath: alt.Path,
			Size:       size,
			Kind:       types.AlternativeMatch,
			Rank:       i + 1,
			Action:     types.Skip,
		})
	}

	c.logger.Debug("classified",
		"origin", originPath,
		"kind", primary.Kind,
		"target", primary.Path,
		"matches", len(qualified))

	return res
}

// match tests one candidate. A candidate of a different size is hashed only
// when both files are sampled; otherwise their fingerprints cannot be equal.
func (c *Classifier) match(
	res *Result,
	path, originName string,
	originSize int64,
	originDigest func() (fingerprint.Digest, bool),
) (Candidate, bool) {
	info, err := os.Stat(path)
	if err != nil {
		c.fail(res, path, err)
		return Candidate{}, false
	}
	sameSize := info.Size() == originSize
	hashable := sameSize || (c.sampled(originSize) && c.sampled(info.Size()))

	if hashable {
		if od, ok := originDigest(); ok {
			cd, err := c.hasher.File(path)
			switch {
			case err != nil:
				c.fail(res, path, err)
			case cd == od:
				return Candidate{Path: path, Kind: types.ExactMatch, Action: types.Delete}, true
			}
		}
	}

	if filepath.Base(path) == originName {
		return Candidate{Path: path, Kind: types.NameMatch, Action: types.CopyAsVersioned}, true
	}
	if sameSize {
		return Candidate{Path: path, Kind: types.SizeMatch, Action: types.CopyAsVersioned}, true
	}
	return Candidate{}, false
}

func (c *Classifier) fail(res *Result, path string, err error) {
	c.logger.Warn("cannot confirm identity", "path", path, "err", err)
	res.Errors = append(res.Errors, types.ScanError{Path: path, Error: err.Error()})
}

func noMatch(res Result, originPath string, size int64) Result {
	res.Records = append(res.Records, types.FileRecord{
		OriginPath: originPath,
		Size:       size,
		Kind:       types.NoMatch,
		Action:     types.Move,
	})
	return res
}
