package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

var columns = []string{"SELECTED", "MATCH", "ACTION", "SIZE", "ORIGIN", "TARGET"}

// row returns the tabular columns of one record.
func row(rec *types.FileRecord, human bool) []string {
	size := strconv.FormatInt(rec.Size, 10)
	if human {
		size = rec.HumanSize()
	}
	return []string{
		strconv.FormatBool(rec.Selected),
		rec.Label(),
		rec.Action.String(),
		size,
		rec.OriginPath,
		rec.TargetPath,
	}
}

// PlainFormatter writes an aligned table without styling.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(tw, strings.Join(columns, "\t")); err != nil {
		return err
	}
	for i := range r.Records {
		rec := &r.Records[i]
		cols := row(rec, true)
		cols[4] = Rel(r.OriginRoot, rec.OriginPath)
		cols[5] = Rel(r.TargetRoot, rec.TargetPath)
		if _, err := fmt.Fprintln(tw, strings.Join(cols, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// TSVFormatter writes tab-separated values with absolute paths and sizes in
// bytes.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(strings.Join(columns, "\t"))
	w.WriteByte('\n')
	for i := range r.Records {
		w.WriteString(strings.Join(row(&r.Records[i], false), "\t"))
		w.WriteByte('\n')
	}
	return nil
}

// CSVFormatter writes RFC 4180 comma-separated values.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return err
	}
	for i := range r.Records {
		if err := writer.Write(row(&r.Records[i], false)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// MarkdownFormatter writes a GitHub-flavored Markdown table.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	w.WriteString("|" + strings.Repeat("---|", len(columns)) + "\n")

	for i := range r.Records {
		cols := row(&r.Records[i], true)
		for j, c := range cols {
			cols[j] = escapeMarkdownPipe(c)
		}
		w.WriteString("| " + strings.Join(cols, " | ") + " |\n")
	}
	return nil
}

func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("plain", func() Formatter { return &PlainFormatter{} })
	Register("tsv", func() Formatter { return &TSVFormatter{} })
	Register("csv", func() Formatter { return &CSVFormatter{} })
	Register("markdown", func() Formatter { return &MarkdownFormatter{} })
}

var (
	_ Formatter = (*PlainFormatter)(nil)
	_ Formatter = (*TSVFormatter)(nil)
	_ Formatter = (*CSVFormatter)(nil)
	_ Formatter = (*MarkdownFormatter)(nil)
)
