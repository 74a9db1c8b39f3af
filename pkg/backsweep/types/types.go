// Package types provides the core data model for the backsweep reconciler.
// It includes the record produced for every origin file, the closed set of
// match kinds and actions, scan results and progress, and size helpers.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// MatchKind is the strength of the relationship between an origin file and
// a target candidate. It is a closed set; presentation layers derive their
// own styling from it.
type MatchKind int

const (
	// NoMatch means no qualifying candidate existed for the origin file.
	NoMatch MatchKind = iota
	// ExactMatch means the candidate's fingerprint equals the origin's.
	ExactMatch
	// NameMatch means same basename, different content.
	NameMatch
	// SizeMatch means different basename and content but the same size.
	SizeMatch
	// AlternativeMatch is a demoted candidate of an origin file that
	// already has a primary record.
	AlternativeMatch
)

// String returns the identifier of the match kind.
func (k MatchKind) String() string {
	switch k {
	case NoMatch:
		return "NoMatch"
	case ExactMatch:
		return "ExactMatch"
	case NameMatch:
		return "NameMatch"
	case SizeMatch:
		return "SizeMatch"
	case AlternativeMatch:
		return "AlternativeMatch"
	default:
		return "Unknown"
	}
}

// Label returns the human-readable name of the match kind.
func (k MatchKind) Label() string {
	switch k {
	case NoMatch:
		return "No match"
	case ExactMatch:
		return "Exact match"
	case NameMatch:
		return "Name match"
	case SizeMatch:
		return "Size match"
	case AlternativeMatch:
		return "Alternative match"
	default:
		return "Unknown"
	}
}

// Priority orders candidate kinds when an origin file has several matches.
// Lower sorts first. Size matches deliberately rank above name matches.
func (k MatchKind) Priority() int {
	switch k {
	case ExactMatch:
		return 0
	case SizeMatch:
		return 1
	default:
		return 2
	}
}

// MarshalText encodes the kind by its identifier.
func (k MatchKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind identifier.
func (k *MatchKind) UnmarshalText(text []byte) error {
	kind, err := ParseMatchKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ErrInvalidMatchKind indicates an unknown match kind identifier.
var ErrInvalidMatchKind = errors.New("invalid match kind")

// ParseMatchKind parses a match kind identifier. Short forms such as
// "exact", "name", "size", "none" and "alternative" are accepted.
func ParseMatchKind(s string) (MatchKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nomatch", "none", "unmatched", "no":
		return NoMatch, nil
	case "exactmatch", "exact":
		return ExactMatch, nil
	case "namematch", "name":
		return NameMatch, nil
	case "sizematch", "size":
		return SizeMatch, nil
	case "alternativematch", "alternative", "alt":
		return AlternativeMatch, nil
	default:
		return NoMatch, fmt.Errorf("%w: %q", ErrInvalidMatchKind, s)
	}
}

// Action is the disposition proposed for an origin file.
type Action int

const (
	// Skip does nothing. Alternative records always carry Skip.
	Skip Action = iota
	// Delete removes the origin file; the target already holds its content.
	Delete
	// CopyAsVersioned copies the origin file next to its mirrored target
	// path with a "_v2" suffix and then removes the origin file.
	CopyAsVersioned
	// Move relocates the origin file to its mirrored target path.
	Move
)

// String returns the human-readable name of the action.
func (a Action) String() string {
	switch a {
	case Skip:
		return "Skip"
	case Delete:
		return "Delete"
	case CopyAsVersioned:
		return "Copy as _v2"
	case Move:
		return "Move"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the action by its name.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes an action name.
func (a *Action) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "skip":
		*a = Skip
	case "delete":
		*a = Delete
	case "copy as _v2", "copyasversioned":
		*a = CopyAsVersioned
	case "move":
		*a = Move
	default:
		return fmt.Errorf("invalid action %q", text)
	}
	return nil
}

// FileRecord is one row of reconciliation output.
// An origin file appears in several records when it has several candidates;
// at most one of them carries an action other than Skip.
type FileRecord struct {
	// OriginPath is the absolute path of the origin file.
	OriginPath string `json:"origin_path"`

	// TargetPath is the absolute path of the matched candidate.
	// It is empty for NoMatch records.
	TargetPath string `json:"target_path,omitempty"`

	// Size is the origin file size at classification time.
	Size int64 `json:"size"`

	// Kind is the match strength.
	Kind MatchKind `json:"match_kind"`

	// Rank is the 1-based position of an AlternativeMatch after the primary.
	Rank int `json:"rank,omitempty"`

	// Matches is the number of qualifying candidates for a primary record.
	Matches int `json:"matches,omitempty"`

	// Action is the proposed disposition.
	Action Action `json:"action"`

	// Selected is the caller-controlled flag deciding whether the action runs.
	Selected bool `json:"selected"`
}

// Label returns the display label for the record's match, e.g.
// "Exact match (multiple matches: 3)" or "Alternative match #1".
func (r *FileRecord) Label() string {
	switch {
	case r.Kind == AlternativeMatch:
		return fmt.Sprintf("Alternative match #%d", r.Rank)
	case r.Matches > 1:
		return fmt.Sprintf("%s (multiple matches: %d)", r.Kind.Label(), r.Matches)
	default:
		return r.Kind.Label()
	}
}

// IsPrimary reports whether the record carries the origin file's disposition.
func (r *FileRecord) IsPrimary() bool {
	return r.Kind != AlternativeMatch
}

// HumanSize returns the origin size formatted with binary units.
func (r *FileRecord) HumanSize() string {
	return FormatSize(r.Size)
}

// ScanResult contains the records of one reconciliation pass together with
// statistics and the non-fatal errors met along the way.
type ScanResult struct {
	// ID identifies this pass.
	ID string `json:"id"`

	// OriginRoot and TargetRoot are the resolved absolute roots.
	OriginRoot string `json:"origin_root"`
	TargetRoot string `json:"target_root"`

	// SearchOtherLocations records whether other-location search was enabled.
	SearchOtherLocations bool `json:"search_other_locations"`

	// Workers is the number of classification workers used.
	Workers int `json:"workers"`

	// Records is the canonical ordered record list.
	Records []FileRecord `json:"records"`

	// OriginFiles is the number of origin files classified.
	OriginFiles int64 `json:"origin_files"`

	// TotalSize is the sum of origin file sizes.
	TotalSize int64 `json:"total_size"`

	// Elapsed is the wall time of the pass.
	Elapsed time.Duration `json:"elapsed"`

	// Errors holds per-file failures that did not stop the pass.
	Errors []ScanError `json:"errors,omitempty"`

	// Interrupted is set when the pass was cancelled before finishing.
	Interrupted bool `json:"interrupted,omitempty"`
}

// CountByKind returns how many records carry each match kind.
func (r *ScanResult) CountByKind() map[MatchKind]int {
	counts := make(map[MatchKind]int)
	for i := range r.Records {
		counts[r.Records[i].Kind]++
	}
	return counts
}

// CountByAction returns how many records carry each action.
func (r *ScanResult) CountByAction() map[Action]int {
	counts := make(map[Action]int)
	for i := range r.Records {
		counts[r.Records[i].Action]++
	}
	return counts
}

// Selected returns the records whose Selected flag is set, in order.
func (r *ScanResult) Selected() []FileRecord {
	var selected []FileRecord
	for _, rec := range r.Records {
		if rec.Selected {
			selected = append(selected, rec)
		}
	}
	return selected
}

// ScanError pairs a path with the error met while processing it.
type ScanError struct {
	// Path is the file or directory where the error occurred.
	Path string `json:"path"`

	// Error is the error message.
	Error string `json:"error"`
}

// ScanProgress reports classification progress.
// Classified never decreases across reports of one pass.
type ScanProgress struct {
	// Classified is the number of origin files classified so far.
	Classified int64 `json:"classified"`

	// Total is the number of origin files found by the walk.
	Total int64 `json:"total"`

	// WalkComplete is set once the origin walk has finished.
	WalkComplete bool `json:"walk_complete,omitempty"`
}

// Percent returns the completed fraction as a percentage.
func (p ScanProgress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Classified) / float64(p.Total) * 100
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string such as "512", "100K",
// "10MB" or "1.5GiB" and returns the size in bytes using binary units.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units, e.g. "1.5 MiB".
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
