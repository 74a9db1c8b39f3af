// Package manifest keeps a history of scan and apply operations as JSON
// files, one per operation.
package manifest

import (
	"time"

	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// OperationType represents the type of operation.
type OperationType string

const (
	// OpScan represents a reconciliation pass.
	OpScan OperationType = "scan"
	// OpApply represents applied (or dry-run) mutations.
	OpApply OperationType = "apply"
)

// Entry represents a single manifest entry.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Operation OperationType `json:"operation"`
	Origin    string        `json:"origin"`
	Target    string        `json:"target"`
	DryRun    bool          `json:"dry_run,omitempty"`
	Files     []FileRecord  `json:"files"`
	Summary   Summary       `json:"summary"`
}

// FileRecord is one origin file in the manifest. For scans it is the
// proposed disposition; for applies it is the outcome.
type FileRecord struct {
	Path        string       `json:"path"`
	Destination string       `json:"destination,omitempty"`
	Size        int64        `json:"size"`
	Kind        string       `json:"kind,omitempty"`
	Action      types.Action `json:"action"`
	Error       string       `json:"error,omitempty"`
}

// Summary contains operation totals.
type Summary struct {
	TotalFiles int64         `json:"total_files"`
	TotalBytes int64         `json:"total_bytes"`
	Succeeded  int           `json:"succeeded,omitempty"`
	Failed     int           `json:"failed,omitempty"`
	Pruned     int           `json:"pruned,omitempty"`
	Errors     int           `json:"errors,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
}
