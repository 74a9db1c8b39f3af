package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jamesainslie/backsweep/pkg/backsweep/cache"
	"github.com/jamesainslie/backsweep/pkg/backsweep/config"
	"github.com/jamesainslie/backsweep/pkg/backsweep/fingerprint"
	"github.com/jamesainslie/backsweep/pkg/backsweep/logging"
	"github.com/jamesainslie/backsweep/pkg/backsweep/manifest"
	"github.com/jamesainslie/backsweep/pkg/backsweep/output"
	"github.com/jamesainslie/backsweep/pkg/backsweep/scanner"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// passOptions builds scanner options for ORIGIN and TARGET from cfg.
func passOptions(cfg *config.Config, origin, target string) (scanner.Options, error) {
	origin, err := config.ExpandPath(origin)
	if err != nil {
		return scanner.Options{}, fmt.Errorf("failed to expand origin: %w", err)
	}
	target, err = config.ExpandPath(target)
	if err != nil {
		return scanner.Options{}, fmt.Errorf("failed to expand target: %w", err)
	}

	return scanner.Options{
		Origin:               origin,
		Target:               target,
		SearchOtherLocations: cfg.SearchOtherLocations,
		BudgetPercent:        cfg.BudgetPercent,
		Workers:              cfg.Workers,
		Exclude:              cfg.Exclude,
	}, nil
}

// openFingerprinter returns the hasher for a pass. With the fingerprint
// cache enabled the returned closer must be called once the pass is done.
func openFingerprinter(cfg *config.Config) (*fingerprint.Fingerprinter, func(), error) {
	if !cfg.Fingerprint.Cache {
		return fingerprint.Default, func() {}, nil
	}

	c, err := cache.Open(cfg.Fingerprint.CachePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open fingerprint cache: %w", err)
	}
	printVerbose("Using fingerprint cache at %s", cfg.Fingerprint.CachePath)

	closer := func() {
		if err := c.Close(); err != nil {
			logging.Get("cli").Warn("closing fingerprint cache failed", "err", err)
		}
	}
	return fingerprint.New(fingerprint.Options{Cache: c}), closer, nil
}

// runPass runs one reconciliation pass with a progress bar. If ctx is
// cancelled the partial result is returned with a nil error so callers can
// still report it; result.Interrupted tells them apart.
func runPass(ctx context.Context, cfg *config.Config, opts scanner.Options, label string) (*types.ScanResult, error) {
	hasher, closeHasher, err := openFingerprinter(cfg)
	if err != nil {
		return nil, err
	}
	defer closeHasher()
	opts.Hasher = hasher

	bar := newProgressBar(label)
	opts.OnProgress = func(p types.ScanProgress) {
		bar.Update(p.Classified, p.Total)
	}

	printVerbose("Workers: budget %d%%, override %d", opts.BudgetPercent, opts.Workers)

	result, err := scanner.Scan(ctx, opts)
	bar.Finish()
	if err != nil {
		if result != nil && errors.Is(err, context.Canceled) {
			printInfo("Interrupted, showing partial results")
			return result, nil
		}
		return nil, err
	}

	printVerbose("Classified %d files in %s (%d workers)", result.OriginFiles, result.Elapsed, result.Workers)
	return result, nil
}

// formatterFor resolves an output format name. "template" uses tmpl.
func formatterFor(name, tmpl string) (output.Formatter, error) {
	if name == "" {
		name = config.DefaultOutput
	}
	if name == "template" {
		if tmpl == "" {
			return nil, errors.New("--template is required when using -o template")
		}
		return output.NewTemplateFormatter(tmpl), nil
	}

	f, err := output.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", name, output.Available())
	}
	return f, nil
}

// writeResult formats result and writes it to w.
func writeResult(w io.Writer, f output.Formatter, result *types.ScanResult) error {
	var buf bytes.Buffer
	if err := f.Format(&buf, output.NewResult(result)); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// openManifest returns the configured manifest, or nil when history is
// disabled.
func openManifest(cfg *config.Config) (*manifest.Manifest, error) {
	if !cfg.Manifest.Enabled {
		return nil, nil
	}
	path := cfg.Manifest.Path
	if path == "" {
		path = config.ManifestDir()
	}
	return manifest.New(path)
}

// recordScan adds a scan to the history. Failures are logged, not returned.
func recordScan(cfg *config.Config, result *types.ScanResult) {
	m, err := openManifest(cfg)
	if err != nil || m == nil {
		return
	}
	entry, err := m.LogScan(result)
	if err != nil {
		logging.Get("cli").Warn("recording scan failed", "err", err)
		return
	}
	printVerbose("Recorded scan %s", entry.ID)
}
