package output

import (
	"bytes"
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// document is the structure shared by the JSON and YAML formatters.
type document struct {
	Records []docRecord `json:"records" yaml:"records"`
	Stats   docStats    `json:"stats" yaml:"stats"`
	Meta    docMeta     `json:"meta" yaml:"meta"`
}

type docRecord struct {
	Origin    string `json:"origin" yaml:"origin"`
	Target    string `json:"target,omitempty" yaml:"target,omitempty"`
	Size      int64  `json:"size" yaml:"size"`
	SizeHuman string `json:"size_human" yaml:"size_human"`
	Kind      string `json:"kind" yaml:"kind"`
	Label     string `json:"label" yaml:"label"`
	Rank      int    `json:"rank,omitempty" yaml:"rank,omitempty"`
	Matches   int    `json:"matches,omitempty" yaml:"matches,omitempty"`
	Action    string `json:"action" yaml:"action"`
	Selected  bool   `json:"selected" yaml:"selected"`
}

type docStats struct {
	OriginFiles int64          `json:"origin_files" yaml:"origin_files"`
	Records     int            `json:"records" yaml:"records"`
	TotalSize   int64          `json:"total_size" yaml:"total_size"`
	ByKind      map[string]int `json:"by_kind" yaml:"by_kind"`
	ByAction    map[string]int `json:"by_action" yaml:"by_action"`
	Elapsed     string         `json:"elapsed" yaml:"elapsed"`
}

type docMeta struct {
	ID                   string            `json:"id" yaml:"id"`
	Origin               string            `json:"origin" yaml:"origin"`
	Target               string            `json:"target" yaml:"target"`
	SearchOtherLocations bool              `json:"search_other_locations" yaml:"search_other_locations"`
	Workers              int               `json:"workers" yaml:"workers"`
	Generated            time.Time         `json:"generated" yaml:"generated"`
	Errors               []types.ScanError `json:"errors,omitempty" yaml:"errors,omitempty"`
	Interrupted          bool              `json:"interrupted" yaml:"interrupted"`
}

func toDocRecord(rec *types.FileRecord) docRecord {
	return docRecord{
		Origin:    rec.OriginPath,
		Target:    rec.TargetPath,
		Size:      rec.Size,
		SizeHuman: rec.HumanSize(),
		Kind:      rec.Kind.String(),
		Label:     rec.Label(),
		Rank:      rec.Rank,
		Matches:   rec.Matches,
		Action:    rec.Action.String(),
		Selected:  rec.Selected,
	}
}

func buildDocument(r *Result) document {
	records := make([]docRecord, len(r.Records))
	for i := range r.Records {
		records[i] = toDocRecord(&r.Records[i])
	}

	byKind := make(map[string]int)
	for k, n := range r.CountByKind() {
		byKind[k.String()] = n
	}
	byAction := make(map[string]int)
	for a, n := range r.CountByAction() {
		byAction[a.String()] = n
	}

	return document{
		Records: records,
		Stats: docStats{
			OriginFiles: r.OriginFiles,
			Records:     len(r.Records),
			TotalSize:   r.TotalSize,
			ByKind:      byKind,
			ByAction:    byAction,
			Elapsed:     r.Elapsed.String(),
		},
		Meta: docMeta{
			ID:                   r.ID,
			Origin:               r.OriginRoot,
			Target:               r.TargetRoot,
			SearchOtherLocations: r.SearchOtherLocations,
			Workers:              r.Workers,
			Generated:            r.Generated,
			Errors:               r.Errors,
			Interrupted:          r.Interrupted,
		},
	}
}

// JSONFormatter writes a single indented JSON document.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildDocument(r))
}

// JSONLFormatter writes one compact JSON object per record, for streaming
// into tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	for i := range r.Records {
		if err := encoder.Encode(toDocRecord(&r.Records[i])); err != nil {
			return err
		}
	}
	return nil
}

// YAMLFormatter writes the same structure as JSONFormatter in YAML.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(buildDocument(r)); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("json", func() Formatter { return &JSONFormatter{} })
	Register("jsonl", func() Formatter { return &JSONLFormatter{} })
	Register("yaml", func() Formatter { return &YAMLFormatter{} })
}

var (
	_ Formatter = (*JSONFormatter)(nil)
	_ Formatter = (*JSONLFormatter)(nil)
	_ Formatter = (*YAMLFormatter)(nil)
)
