package main

import (
	"os"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"
)

const barTemplate = `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{etime . }}`

// progressBar is a terminal progress bar. A nil *progressBar is valid and
// draws nothing, so callers need not check whether progress is shown.
type progressBar struct {
	bar *pb.ProgressBar
}

// showProgress reports whether progress bars should be drawn: stderr must be
// a terminal and quiet mode off.
func showProgress() bool {
	return !getQuiet() && term.IsTerminal(int(os.Stderr.Fd()))
}

// newProgressBar starts a bar labelled prefix, or returns nil when progress
// is not shown.
func newProgressBar(prefix string) *progressBar {
	if !showProgress() {
		return nil
	}
	bar := pb.New64(0).
		SetTemplateString(barTemplate).
		SetWriter(os.Stderr).
		Set("prefix", prefix+" ")
	bar.Start()
	return &progressBar{bar: bar}
}

// Update sets the bar position.
func (p *progressBar) Update(current, total int64) {
	if p == nil {
		return
	}
	p.bar.SetTotal(total)
	p.bar.SetCurrent(current)
}

// Finish stops the bar.
func (p *progressBar) Finish() {
	if p == nil {
		return
	}
	p.bar.Finish()
}
