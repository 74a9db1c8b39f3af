package mutate

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/backsweep/pkg/backsweep/locator"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// Plan counts the operations Apply would perform for a record list.
type Plan struct {
	Moves   int   `json:"moves"`
	Deletes int   `json:"deletes"`
	Copies  int   `json:"copies"`
	Bytes   int64 `json:"bytes"`
}

// Total returns the number of origin files the plan touches.
func (p Plan) Total() int {
	return p.Moves + p.Deletes + p.Copies
}

// Empty reports whether the plan has nothing to do.
func (p Plan) Empty() bool {
	return p.Total() == 0
}

// PlanFor counts the actionable records in the order Apply would process
// them. Only the first selected record of each origin path counts.
func PlanFor(records []types.FileRecord) Plan {
	var p Plan
	for _, rec := range actionable(records) {
		switch rec.Action {
		case types.Move:
			p.Moves++
		case types.Delete:
			p.Deletes++
		case types.CopyAsVersioned:
			p.Copies++
		}
		p.Bytes += rec.Size
	}
	return p
}

// actionable returns the first selected non-Skip record for each origin path,
// keeping input order.
func actionable(records []types.FileRecord) []types.FileRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]types.FileRecord, 0, len(records))
	for _, rec := range records {
		if !rec.Selected || rec.Action == types.Skip {
			continue
		}
		if _, ok := seen[rec.OriginPath]; ok {
			continue
		}
		seen[rec.OriginPath] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// Destination returns where rec's origin file ends up. Move mirrors the
// origin path under targetRoot; CopyAsVersioned mirrors it with the version
// suffix before the extension. Delete has no destination.
func Destination(rec types.FileRecord, originRoot, targetRoot string) (string, error) {
	switch rec.Action {
	case types.Delete, types.Skip:
		return "", nil
	}

	rel, err := filepath.Rel(originRoot, rec.OriginPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not under origin root %s", rec.OriginPath, originRoot)
	}
	mirrored := filepath.Join(targetRoot, rel)

	switch rec.Action {
	case types.Move:
		return mirrored, nil
	case types.CopyAsVersioned:
		return filepath.Join(filepath.Dir(mirrored), locator.Versioned(filepath.Base(mirrored))), nil
	default:
		return "", fmt.Errorf("unknown action %d", rec.Action)
	}
}
