package output

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/backsweep/pkg/backsweep/locator"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// logRule separates the sections of the comparison log.
var (
	logRule = strings.Repeat("=", 80)
	logLine = strings.Repeat("-", 80)
)

// ExportFileName returns the file name used for an exported comparison log.
func ExportFileName(t time.Time) string {
	return "backsweep_log_" + t.Format("20060102_150405") + ".txt"
}

// LogFormatter writes the comparison log: a header with the scan inputs,
// summary counts by match and action, every record in detail, and tallies
// of the scenarios the reconciler distinguishes.
type LogFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *LogFormatter) Format(w *bytes.Buffer, r *Result) error {
	fmt.Fprintln(w, "Backsweep - Comparison Log")
	fmt.Fprintln(w, logRule)
	fmt.Fprintf(w, "Generated: %s\n", r.Generated.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Origin Folder: %s\n", r.OriginRoot)
	fmt.Fprintf(w, "Target Folder: %s\n", r.TargetRoot)
	fmt.Fprintf(w, "Search in different locations: %t\n", r.SearchOtherLocations)
	fmt.Fprintf(w, "Total files analyzed: %d\n", len(r.Records))
	if r.Interrupted {
		fmt.Fprintln(w, "Scan interrupted: results are partial")
	}
	fmt.Fprintf(w, "%s\n\n", logRule)

	f.writeSummary(w, r)
	f.writeDetails(w, r)
	f.writeScenarios(w, r)

	if len(r.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "ERRORS")
		fmt.Fprintln(w, logLine)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s: %s\n", e.Path, e.Error)
		}
	}
	return nil
}

// writeSummary counts records by label and by action in first-seen order.
func (f *LogFormatter) writeSummary(w *bytes.Buffer, r *Result) {
	var (
		labels  []string
		byLabel = map[string]int{}
		actions []types.Action
		byAct   = map[types.Action]int{}
	)
	for i := range r.Records {
		rec := &r.Records[i]
		l := rec.Label()
		if _, ok := byLabel[l]; !ok {
			labels = append(labels, l)
		}
		byLabel[l]++
		if _, ok := byAct[rec.Action]; !ok {
			actions = append(actions, rec.Action)
		}
		byAct[rec.Action]++
	}

	fmt.Fprintln(w, "SUMMARY STATISTICS")
	fmt.Fprintln(w, logLine)
	fmt.Fprintln(w, "Match Types:")
	for _, l := range labels {
		fmt.Fprintf(w, "  %s: %d\n", l, byLabel[l])
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Proposed Actions:")
	for _, a := range actions {
		fmt.Fprintf(w, "  %s: %d\n", a, byAct[a])
	}
	fmt.Fprintf(w, "\n%s\n\n", logRule)
}

func (f *LogFormatter) writeDetails(w *bytes.Buffer, r *Result) {
	fmt.Fprintln(w, "DETAILED FILE INFORMATION")
	fmt.Fprintln(w, logLine)
	for i := range r.Records {
		rec := &r.Records[i]
		target := rec.TargetPath
		if target == "" {
			target = "None"
		}
		fmt.Fprintf(w, "File #%d:\n", i+1)
		fmt.Fprintf(w, "  Origin Path: %s\n", rec.OriginPath)
		fmt.Fprintf(w, "  Target Path: %s\n", target)
		fmt.Fprintf(w, "  Size: %s\n", rec.HumanSize())
		fmt.Fprintf(w, "  Match Type: %s\n", rec.Label())
		fmt.Fprintf(w, "  Proposed Action: %s\n", rec.Action)
		fmt.Fprintf(w, "  Selected: %t\n", rec.Selected)
		fmt.Fprintln(w)
	}
}

// Scenarios tallies the record categories reported at the end of the
// comparison log.
type Scenarios struct {
	Exact               int
	Name                int
	Size                int
	CopyVariants        int
	OnlyInOrigin        int
	Nested              int
	DifferentLocation   int
	MultipleMatches     int
	SameParentElsewhere int
}

// CountScenarios tallies the records of r. A record is nested when its origin
// file lies in a subdirectory of the origin root.
func CountScenarios(r *Result) Scenarios {
	var s Scenarios
	for i := range r.Records {
		rec := &r.Records[i]
		switch rec.Kind {
		case types.ExactMatch:
			s.Exact++
		case types.NameMatch:
			s.Name++
		case types.SizeMatch:
			s.Size++
		case types.NoMatch:
			s.OnlyInOrigin++
		}
		if locator.HasCopyMarker(filepath.Base(rec.OriginPath)) || locator.HasCopyMarker(filepath.Base(rec.TargetPath)) {
			s.CopyVariants++
		}
		if strings.Count(Rel(r.OriginRoot, rec.OriginPath), string(filepath.Separator)) > 0 {
			s.Nested++
		}
		if rec.IsPrimary() && rec.Matches > 1 {
			s.MultipleMatches++
		}
		if rec.TargetPath == "" {
			continue
		}

		originRel := filepath.Dir(Rel(r.OriginRoot, rec.OriginPath))
		targetRel := filepath.Dir(Rel(r.TargetRoot, rec.TargetPath))
		if originRel != targetRel {
			s.DifferentLocation++
			if filepath.Base(originRel) == filepath.Base(targetRel) {
				s.SameParentElsewhere++
			}
		}
	}
	return s
}

func (f *LogFormatter) writeScenarios(w *bytes.Buffer, r *Result) {
	s := CountScenarios(r)
	fmt.Fprintln(w, "TEST SCENARIO VALIDATION")
	fmt.Fprintln(w, logLine)
	fmt.Fprintf(w, "Scenario 1 - Exact duplicates: %d files\n", s.Exact)
	fmt.Fprintf(w, "Scenario 2 - Same name, different content: %d files\n", s.Name)
	fmt.Fprintf(w, "Scenario 3 - Same size, different content: %d files\n", s.Size)
	fmt.Fprintf(w, "Scenario 4 - Copy variations: %d files\n", s.CopyVariants)
	fmt.Fprintf(w, "Scenario 5 - Files only in origin: %d files\n", s.OnlyInOrigin)
	fmt.Fprintf(w, "Scenario 6 - Nested folder structure: %d files\n", s.Nested)
	fmt.Fprintf(w, "Scenario 7 - Files in different locations: %d files\n", s.DifferentLocation)
	fmt.Fprintf(w, "Scenario 8 - Files with multiple matches: %d files\n", s.MultipleMatches)
	fmt.Fprintf(w, "Scenario 9 - Same parent folder in different locations: %d files\n", s.SameParentElsewhere)
}

func init() {
	Register("log", func() Formatter {
		return &LogFormatter{}
	})
}

var _ Formatter = (*LogFormatter)(nil)
