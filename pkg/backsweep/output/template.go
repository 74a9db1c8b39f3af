package output

import (
	"bytes"
	"sync"
	"text/template"
	"time"

	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// TemplateFormatter formats output using a Go text/template. The template
// receives the Result, so {{range .Records}} iterates over file records.
type TemplateFormatter struct {
	templateStr string
	template    *template.Template
	mu          sync.Mutex
}

// NewTemplateFormatter creates a template formatter for templateStr.
func NewTemplateFormatter(templateStr string) *TemplateFormatter {
	return &TemplateFormatter{
		templateStr: templateStr,
	}
}

// SetTemplate replaces the template string.
func (f *TemplateFormatter) SetTemplate(templateStr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templateStr = templateStr
	f.template = nil
}

func templateFuncs(r *Result) template.FuncMap {
	return template.FuncMap{
		// {{date .Generated "2006-01-02"}}
		"date": func(t time.Time, layout string) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(layout)
		},
		// {{bytes .Size}}
		"bytes": types.FormatSize,
		// {{origin .OriginPath}} and {{target .TargetPath}} shorten paths
		// relative to their roots.
		"origin": func(p string) string { return Rel(r.OriginRoot, p) },
		"target": func(p string) string { return Rel(r.TargetRoot, p) },
	}
}

// Format writes the formatted output to the buffer.
func (f *TemplateFormatter) Format(w *bytes.Buffer, r *Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.template == nil {
		tmpl, err := template.New("output").Funcs(templateFuncs(r)).Parse(f.templateStr)
		if err != nil {
			return err
		}
		f.template = tmpl
	}

	return f.template.Funcs(templateFuncs(r)).Execute(w, r)
}

// defaultTemplate is used when no custom template is provided.
const defaultTemplate = `{{range .Records}}{{.Action}}	{{.OriginPath}}
{{end}}`

func init() {
	Register("template", func() Formatter {
		return NewTemplateFormatter(defaultTemplate)
	})
}

var _ Formatter = (*TemplateFormatter)(nil)
