package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/backsweep/pkg/backsweep/config"
	"github.com/jamesainslie/backsweep/pkg/backsweep/manifest"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// jsonRecords mirrors the record fields of the json output.
type jsonRecords struct {
	Records []struct {
		Origin   string `json:"origin"`
		Target   string `json:"target"`
		Kind     string `json:"kind"`
		Action   string `json:"action"`
		Selected bool   `json:"selected"`
	} `json:"records"`
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// fixture builds an origin with one exact match, one name match and one
// unmatched file in a subdirectory.
func fixture(t *testing.T) (origin, target string) {
	t.Helper()
	base := t.TempDir()
	origin = filepath.Join(base, "origin")
	target = filepath.Join(base, "target")

	writeFile(t, filepath.Join(origin, "a.txt"), "same")
	writeFile(t, filepath.Join(target, "a.txt"), "same")
	writeFile(t, filepath.Join(origin, "c.txt"), "mine")
	writeFile(t, filepath.Join(target, "c.txt"), "theirs!")
	writeFile(t, filepath.Join(origin, "docs", "b.txt"), "new")
	require.NoError(t, os.MkdirAll(target, 0o755))
	return origin, target
}

func decode(t *testing.T, out string) jsonRecords {
	t.Helper()
	var doc jsonRecords
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	return doc
}

func TestScanCommand_JSON(t *testing.T) {
	sandbox(t)
	origin, target := fixture(t)

	out, _, err := execute(t, "scan", origin, target, "-q", "-o", "json")
	require.NoError(t, err)

	doc := decode(t, out)
	require.Len(t, doc.Records, 3)

	assert.Equal(t, filepath.Join(origin, "a.txt"), doc.Records[0].Origin)
	assert.Equal(t, "ExactMatch", doc.Records[0].Kind)
	assert.Equal(t, "Delete", doc.Records[0].Action)
	assert.True(t, doc.Records[0].Selected)

	assert.Equal(t, "NameMatch", doc.Records[1].Kind)
	assert.Equal(t, "Copy as _v2", doc.Records[1].Action)
	assert.Equal(t, filepath.Join(target, "c.txt"), doc.Records[1].Target)

	assert.Equal(t, filepath.Join(origin, "docs", "b.txt"), doc.Records[2].Origin)
	assert.Equal(t, "NoMatch", doc.Records[2].Kind)
	assert.Equal(t, "Move", doc.Records[2].Action)
	assert.False(t, doc.Records[2].Selected)

	// Scanning changes nothing.
	assert.FileExists(t, filepath.Join(origin, "a.txt"))
	assert.FileExists(t, filepath.Join(origin, "docs", "b.txt"))
}

func TestScanCommand_RecordsHistory(t *testing.T) {
	sandbox(t)
	origin, target := fixture(t)

	_, _, err := execute(t, "scan", origin, target, "-q", "-o", "plain")
	require.NoError(t, err)

	m, err := manifest.New(config.ManifestDir())
	require.NoError(t, err)
	entries, err := m.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, manifest.OpScan, entries[0].Operation)
	assert.Len(t, entries[0].Files, 3)

	out, _, err := execute(t, "history", "-q")
	require.NoError(t, err)
	assert.Contains(t, out, entries[0].ID)
	assert.Contains(t, out, "scan")

	out, _, err = execute(t, "history", "show", entries[0].ID[:8])
	require.NoError(t, err)
	assert.Contains(t, out, "Operation:  scan")
	assert.Contains(t, out, filepath.Join(origin, "docs", "b.txt"))

	_, _, err = execute(t, "history", "show", "does-not-exist")
	assert.ErrorIs(t, err, manifest.ErrNotFound)

	_, _, err = execute(t, "history", "clean", "-q")
	require.NoError(t, err)
	entries, err = m.List(0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestScanCommand_ManifestDisabled(t *testing.T) {
	sandbox(t)
	t.Setenv("BACKSWEEP_MANIFEST_ENABLED", "false")
	origin, target := fixture(t)

	_, _, err := execute(t, "scan", origin, target, "-q", "-o", "tsv")
	require.NoError(t, err)

	_, err = os.Stat(config.ManifestDir())
	assert.True(t, os.IsNotExist(err))
}

func TestScanCommand_Template(t *testing.T) {
	sandbox(t)
	origin, target := fixture(t)

	out, _, err := execute(t, "scan", origin, target, "-q", "-o", "template",
		"--template", "{{range .Records}}{{.Kind}} {{end}}")
	require.NoError(t, err)
	assert.Equal(t, "ExactMatch NameMatch NoMatch ", out)
}

func TestScanCommand_Exclude(t *testing.T) {
	sandbox(t)
	origin, target := fixture(t)

	out, _, err := execute(t, "scan", origin, target, "-q", "-o", "json", "--exclude", "c.txt", "--exclude", "docs")
	require.NoError(t, err)

	doc := decode(t, out)
	require.Len(t, doc.Records, 1)
	assert.Equal(t, filepath.Join(origin, "a.txt"), doc.Records[0].Origin)
}

func TestScanCommand_OtherLocations(t *testing.T) {
	sandbox(t)
	origin, target := fixture(t)
	writeFile(t, filepath.Join(target, "archive", "docs", "b.txt"), "new")

	out, _, err := execute(t, "scan", origin, target, "-q", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, "NoMatch", decode(t, out).Records[2].Kind)

	out, _, err = execute(t, "scan", origin, target, "-q", "-o", "json", "--other-locations", "--budget", "25")
	require.NoError(t, err)
	doc := decode(t, out)
	require.Len(t, doc.Records, 3)
	assert.Equal(t, "ExactMatch", doc.Records[2].Kind)
	assert.Equal(t, filepath.Join(target, "archive", "docs", "b.txt"), doc.Records[2].Target)
}

func TestScanCommand_Errors(t *testing.T) {
	sandbox(t)
	origin, target := fixture(t)

	_, _, err := execute(t, "scan", filepath.Join(origin, "missing"), target, "-q")
	assert.ErrorIs(t, err, types.ErrInvalidRoot)

	_, _, err = execute(t, "scan", origin, origin, "-q")
	assert.ErrorIs(t, err, types.ErrSameRoot)

	_, _, err = execute(t, "scan", origin, target, "-q", "--budget", "10")
	assert.ErrorIs(t, err, types.ErrInvalidBudget)

	_, _, err = execute(t, "scan", origin, target, "-q", "-o", "xml")
	assert.Error(t, err)

	_, _, err = execute(t, "scan", origin)
	assert.Error(t, err)
}

func TestApplyCommand_DryRun(t *testing.T) {
	sandbox(t)
	origin, target := fixture(t)

	_, stderr, err := execute(t, "apply", origin, target, "--dry-run", "--select", "all")
	require.NoError(t, err)

	assert.Contains(t, stderr, "Dry run")
	assert.Contains(t, stderr, "Move to target:   1")
	assert.Contains(t, stderr, "Delete:           1")
	assert.Contains(t, stderr, "Copy as _v2:      1")
	assert.Contains(t, stderr, "Would apply 3 operations")

	assert.Equal(t, "same", readFile(t, filepath.Join(origin, "a.txt")))
	assert.Equal(t, "mine", readFile(t, filepath.Join(origin, "c.txt")))
	assert.FileExists(t, filepath.Join(origin, "docs", "b.txt"))
	assert.NoFileExists(t, filepath.Join(target, "c_v2.txt"))
	assert.NoFileExists(t, filepath.Join(target, "docs", "b.txt"))

	m, err := manifest.New(config.ManifestDir())
	require.NoError(t, err)
	entries, err := m.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, manifest.OpApply, entries[0].Operation)
	assert.True(t, entries[0].DryRun)
}

func TestApplyCommand_All(t *testing.T) {
	sandbox(t)
	origin, target := fixture(t)

	out, stderr, err := execute(t, "apply", origin, target, "--yes", "--select", "all", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Applied 3 operations")
	assert.Contains(t, stderr, "removed 1 empty directories")

	assert.NoFileExists(t, filepath.Join(origin, "a.txt"))
	assert.NoFileExists(t, filepath.Join(origin, "c.txt"))
	assert.NoDirExists(t, filepath.Join(origin, "docs"))
	assert.DirExists(t, origin)

	assert.Equal(t, "same", readFile(t, filepath.Join(target, "a.txt")))
	assert.Equal(t, "theirs!", readFile(t, filepath.Join(target, "c.txt")))
	assert.Equal(t, "mine", readFile(t, filepath.Join(target, "c_v2.txt")))
	assert.Equal(t, "new", readFile(t, filepath.Join(target, "docs", "b.txt")))

	// The post-apply scan finds an empty origin.
	assert.Empty(t, decode(t, out).Records)
}

func TestApplyCommand_DefaultSelectionLeavesUnmatched(t *testing.T) {
	sandbox(t)
	origin, target := fixture(t)

	_, stderr, err := execute(t, "apply", origin, target, "--yes", "--no-rescan")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Applied 2 operations")

	assert.NoFileExists(t, filepath.Join(origin, "a.txt"))
	assert.NoFileExists(t, filepath.Join(origin, "c.txt"))
	assert.FileExists(t, filepath.Join(origin, "docs", "b.txt"))
	assert.NoFileExists(t, filepath.Join(target, "docs", "b.txt"))
}

func TestApplyCommand_SelectKind(t *testing.T) {
	sandbox(t)
	origin, target := fixture(t)

	_, _, err := execute(t, "apply", origin, target, "--yes", "--no-rescan", "--select", "unmatched")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(origin, "a.txt"))
	assert.FileExists(t, filepath.Join(origin, "c.txt"))
	assert.Equal(t, "new", readFile(t, filepath.Join(target, "docs", "b.txt")))
}

func TestApplyCommand_NothingToApply(t *testing.T) {
	sandbox(t)
	origin, target := fixture(t)

	_, stderr, err := execute(t, "apply", origin, target, "--select", "size")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "Applied")

	assert.FileExists(t, filepath.Join(origin, "a.txt"))
	assert.FileExists(t, filepath.Join(origin, "docs", "b.txt"))
}

func TestApplyCommand_InvalidSelect(t *testing.T) {
	sandbox(t)
	origin, target := fixture(t)

	_, _, err := execute(t, "apply", origin, target, "--yes", "--select", "alternative")
	assert.ErrorIs(t, err, types.ErrInvalidMatchKind)
	assert.FileExists(t, filepath.Join(origin, "a.txt"))
}

func TestExportCommand(t *testing.T) {
	sandbox(t)
	origin, target := fixture(t)
	dir := filepath.Join(t.TempDir(), "reports")

	out, _, err := execute(t, "export", origin, target, "--dir", dir)
	require.NoError(t, err)

	path := strings.TrimSpace(out)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "backsweep_log_"))
	assert.True(t, strings.HasSuffix(path, ".txt"))

	log := readFile(t, path)
	assert.Contains(t, log, "Origin Folder: "+origin)
	assert.Contains(t, log, "Target Folder: "+target)
	assert.Contains(t, log, "Total files analyzed: 3")
	assert.Contains(t, log, "Exact match: 1")
}

func TestConfigCommands(t *testing.T) {
	home := sandbox(t)
	want := filepath.Join(home, "xdg_config_home", config.AppName, "config.yaml")

	out, _, err := execute(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, want, strings.TrimSpace(out))

	_, _, err = execute(t, "config", "init", "-q")
	require.NoError(t, err)
	assert.FileExists(t, want)

	t.Setenv("BACKSWEEP_BUDGET_PERCENT", "50")
	out, _, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "budget_percent:          50")
	assert.Contains(t, out, "BACKSWEEP_BUDGET_PERCENT=50")
	assert.Contains(t, out, "manifest.enabled:        true")
}

func TestConfigFileFlag(t *testing.T) {
	sandbox(t)
	origin, target := fixture(t)
	cfg := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, cfg, "output: csv\nmanifest:\n  enabled: false\n")

	out, _, err := execute(t, "scan", origin, target, "-q", "--config", cfg)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "SELECTED,MATCH,ACTION"))
}

func TestCacheCommands(t *testing.T) {
	sandbox(t)
	origin, target := fixture(t)

	out, _, err := execute(t, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache: empty")

	out, _, err = execute(t, "cache", "path")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultCachePath(), strings.TrimSpace(out))

	_, _, err = execute(t, "scan", origin, target, "-q", "-o", "plain", "--cache")
	require.NoError(t, err)

	out, _, err = execute(t, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Fingerprints:   2 (0 sampled)")

	require.NoError(t, os.Remove(filepath.Join(origin, "a.txt")))
	out, _, err = execute(t, "cache", "prune")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 stale fingerprints.")

	out, _, err = execute(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 cached fingerprints.")
}
