package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// PrettyFormatter renders a styled report for terminals.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatTable(r))
	w.WriteString(f.formatFooter(r))

	if len(r.Errors) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatErrors(r.Errors))
	}
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Result) string {
	lines := []string{
		field("Origin:", r.OriginRoot),
		field("Target:", r.TargetRoot),
	}

	search := "off"
	if r.SearchOtherLocations {
		search = "on"
	}
	lines = append(lines, strings.Join([]string{
		field("Other locations:", search),
		field("Classified:", fmt.Sprintf("%d files in %s", r.OriginFiles, formatDuration(r.Elapsed))),
		field("Workers:", fmt.Sprintf("%d", r.Workers)),
	}, "  "))

	if r.Interrupted {
		lines = append(lines, WarningStyle.Bold(true).Render("Scan interrupted, results are partial"))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func field(label, value string) string {
	return LabelStyle.Render(label) + " " + ValueStyle.Render(value)
}

func (f *PrettyFormatter) formatTable(r *Result) string {
	if len(r.Records) == 0 {
		return MutedStyle.Render("  No files in origin") + "\n"
	}

	labelWidth, actionWidth, sizeWidth := len("MATCH"), len("ACTION"), 8
	for i := range r.Records {
		rec := &r.Records[i]
		labelWidth = max(labelWidth, lipgloss.Width(rec.Label()))
		actionWidth = max(actionWidth, len(rec.Action.String()))
		sizeWidth = max(sizeWidth, len(rec.HumanSize()))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("      %s  %s  %s  %s\n",
		TableHeaderStyle.Render(padRight("MATCH", labelWidth)),
		TableHeaderStyle.Render(padRight("ACTION", actionWidth)),
		TableHeaderStyle.Render(padLeft("SIZE", sizeWidth)),
		TableHeaderStyle.Render("PATH")))

	for i := range r.Records {
		rec := &r.Records[i]
		check := MutedStyle.Render("[ ]")
		if rec.Selected {
			check = KindStyle(rec.Kind).Render("[x]")
		}

		path := PathStyle.Render(Rel(r.OriginRoot, rec.OriginPath))
		if rec.TargetPath != "" {
			path += MutedStyle.Render(" -> " + Rel(r.TargetRoot, rec.TargetPath))
		}

		sb.WriteString(fmt.Sprintf("  %s %s  %s  %s  %s\n",
			check,
			KindStyle(rec.Kind).Render(padRight(rec.Label(), labelWidth)),
			ValueStyle.Render(padRight(rec.Action.String(), actionWidth)),
			SizeStyle.Render(padLeft(rec.HumanSize(), sizeWidth)),
			path))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	actions := r.CountByAction()
	parts := []string{
		field("Records:", fmt.Sprintf("%d", len(r.Records))),
		field("Total:", types.FormatSize(r.TotalSize)),
	}
	for _, a := range []types.Action{types.Delete, types.CopyAsVersioned, types.Move} {
		if n := actions[a]; n > 0 {
			parts = append(parts, field(a.String()+":", fmt.Sprintf("%d", n)))
		}
	}
	parts = append(parts, MutedStyle.Render("Use -o plain for unformatted output"))
	return FooterBox.Render(strings.Join(parts, "  "))
}

func (f *PrettyFormatter) formatErrors(errs []types.ScanError) string {
	var sb strings.Builder
	sb.WriteString(WarningStyle.Bold(true).Render(fmt.Sprintf("Errors (%d):", len(errs))))
	sb.WriteString("\n")
	for _, e := range errs {
		sb.WriteString(WarningStyle.Render("  " + e.Path + ": " + e.Error))
		sb.WriteString("\n")
	}
	return sb.String()
}

func padLeft(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return strings.Repeat(" ", width-n) + s
	}
	return s
}

func padRight(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d interface{ Seconds() float64 }) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
