package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/backsweep/pkg/backsweep/mutate"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

func write(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func trees(t *testing.T) (origin, target string) {
	t.Helper()
	base := t.TempDir()
	origin = filepath.Join(base, "origin")
	target = filepath.Join(base, "target")
	require.NoError(t, os.MkdirAll(origin, 0o755))
	require.NoError(t, os.MkdirAll(target, 0o755))
	return origin, target
}

func recordsFor(result *types.ScanResult, origin string) []types.FileRecord {
	var out []types.FileRecord
	for _, r := range result.Records {
		if r.OriginPath == origin {
			out = append(out, r)
		}
	}
	return out
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 75, opts.BudgetPercent)
	assert.Empty(t, opts.Exclude)
	assert.False(t, opts.SearchOtherLocations)
}

func TestOptionsValidate(t *testing.T) {
	origin, target := trees(t)
	file := write(t, filepath.Join(t.TempDir(), "file.txt"), "x")

	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{"valid", Options{Origin: origin, Target: target}, nil},
		{"missing origin", Options{Origin: filepath.Join(origin, "nope"), Target: target}, types.ErrInvalidRoot},
		{"empty target", Options{Origin: origin}, types.ErrInvalidRoot},
		{"target is a file", Options{Origin: origin, Target: file}, types.ErrInvalidRoot},
		{"same root", Options{Origin: origin, Target: origin + "/."}, types.ErrSameRoot},
		{"unclean same root", Options{Origin: origin, Target: filepath.Join(origin, "x", "..")}, types.ErrSameRoot},
		{"budget too low", Options{Origin: origin, Target: target, BudgetPercent: 10}, types.ErrInvalidBudget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.True(t, filepath.IsAbs(tt.opts.Origin))
				assert.Equal(t, 75, tt.opts.BudgetPercent)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOptionsValidate_NestedRoots(t *testing.T) {
	origin, _ := trees(t)
	inner := filepath.Join(origin, "backup")
	require.NoError(t, os.MkdirAll(inner, 0o755))

	opts := Options{Origin: origin, Target: inner}
	err := opts.Validate()
	assert.ErrorIs(t, err, types.ErrNestedRoot)

	var cfgErr *types.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "target", cfgErr.Role)

	opts = Options{Origin: inner, Target: origin}
	assert.ErrorIs(t, opts.Validate(), types.ErrNestedRoot)
}

func TestScan_InvalidRootStartsNoWork(t *testing.T) {
	_, target := trees(t)
	called := false

	result, err := Scan(context.Background(), Options{
		Origin:     filepath.Join(target, "missing"),
		Target:     target,
		OnProgress: func(types.ScanProgress) { called = true },
	})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, types.ErrInvalidRoot)
	assert.False(t, called)
}

func TestScan_ConcreteScenario(t *testing.T) {
	origin, target := trees(t)

	a := write(t, filepath.Join(origin, "a.txt"), "X")
	targetA := write(t, filepath.Join(target, "a.txt"), "X")
	b := write(t, filepath.Join(origin, "b.txt"), "X")
	targetB := write(t, filepath.Join(target, "b - Copy.txt"), "X")
	c := write(t, filepath.Join(origin, "c.txt"), "unique")

	result, err := Scan(context.Background(), Options{Origin: origin, Target: target})
	require.NoError(t, err)

	require.Len(t, result.Records, 3)
	assert.Equal(t, int64(3), result.OriginFiles)
	assert.Empty(t, result.Errors)
	assert.NotEmpty(t, result.ID)
	assert.GreaterOrEqual(t, result.Workers, 1)

	ra := recordsFor(result, a)
	require.Len(t, ra, 1)
	assert.Equal(t, types.ExactMatch, ra[0].Kind)
	assert.Equal(t, types.Delete, ra[0].Action)
	assert.True(t, ra[0].Selected)
	assert.Equal(t, targetA, ra[0].TargetPath)

	rb := recordsFor(result, b)
	require.Len(t, rb, 1)
	assert.Equal(t, types.ExactMatch, rb[0].Kind)
	assert.Equal(t, targetB, rb[0].TargetPath)

	rc := recordsFor(result, c)
	require.Len(t, rc, 1)
	assert.Equal(t, types.NoMatch, rc[0].Kind)
	assert.Equal(t, types.Move, rc[0].Action)
	assert.False(t, rc[0].Selected)
}

func TestScan_NameMatchMirrored(t *testing.T) {
	origin, target := trees(t)
	src := write(t, filepath.Join(origin, "docs", "report.txt"), "draft 1")
	write(t, filepath.Join(target, "docs", "report.txt"), "final version")

	result, err := Scan(context.Background(), Options{Origin: origin, Target: target})
	require.NoError(t, err)

	recs := recordsFor(result, src)
	require.Len(t, recs, 1)
	assert.Equal(t, types.NameMatch, recs[0].Kind)
	assert.Equal(t, types.CopyAsVersioned, recs[0].Action)
}

func TestScan_PriorityLaw(t *testing.T) {
	origin, target := trees(t)
	src := write(t, filepath.Join(origin, "photos", "img.jpg"), "PIXELS")
	sizeOnly := write(t, filepath.Join(target, "photos", "img - Copy.jpg"), "OTHERS")
	exact := write(t, filepath.Join(target, "old", "photos", "img.jpg"), "PIXELS")

	result, err := Scan(context.Background(), Options{
		Origin:               origin,
		Target:               target,
		SearchOtherLocations: true,
	})
	require.NoError(t, err)

	recs := recordsFor(result, src)
	require.Len(t, recs, 2)
	assert.Equal(t, types.ExactMatch, recs[0].Kind)
	assert.Equal(t, exact, recs[0].TargetPath)
	assert.Equal(t, types.AlternativeMatch, recs[1].Kind)
	assert.Equal(t, 1, recs[1].Rank)
	assert.Equal(t, types.Skip, recs[1].Action)
	assert.Equal(t, sizeOnly, recs[1].TargetPath)
	assert.True(t, result.SearchOtherLocations)
}

func TestScan_OtherLocationsDisabled(t *testing.T) {
	origin, target := trees(t)
	src := write(t, filepath.Join(origin, "photos", "img.jpg"), "PIXELS")
	write(t, filepath.Join(target, "old", "photos", "img.jpg"), "PIXELS")

	result, err := Scan(context.Background(), Options{Origin: origin, Target: target})
	require.NoError(t, err)

	recs := recordsFor(result, src)
	require.Len(t, recs, 1)
	assert.Equal(t, types.NoMatch, recs[0].Kind)
}

func TestScan_Idempotent(t *testing.T) {
	origin, target := trees(t)
	for i := range 40 {
		content := fmt.Sprintf("file %d", i)
		write(t, filepath.Join(origin, fmt.Sprintf("d%d", i%5), fmt.Sprintf("f%02d.txt", i)), content)
		if i%3 == 0 {
			write(t, filepath.Join(target, fmt.Sprintf("d%d", i%5), fmt.Sprintf("f%02d.txt", i)), content)
		}
		if i%4 == 0 {
			write(t, filepath.Join(target, "elsewhere", fmt.Sprintf("d%d", i%5), fmt.Sprintf("f%02d - Copy.txt", i)), "changed")
		}
	}

	opts := Options{Origin: origin, Target: target, SearchOtherLocations: true, Workers: 4}
	first, err := Scan(context.Background(), opts)
	require.NoError(t, err)
	second, err := Scan(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, int64(40), first.OriginFiles)
}

func TestScan_RecordsGroupedAndOrdered(t *testing.T) {
	origin, target := trees(t)
	for i := range 25 {
		name := fmt.Sprintf("f%02d.txt", i)
		write(t, filepath.Join(origin, "p", name), "same")
		write(t, filepath.Join(target, "p", name), "same")
		write(t, filepath.Join(target, "x", "p", name), "same")
	}

	result, err := Scan(context.Background(), Options{
		Origin:               origin,
		Target:               target,
		SearchOtherLocations: true,
		Workers:              3,
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 50)

	for i := 0; i < len(result.Records); i += 2 {
		primary, alt := result.Records[i], result.Records[i+1]
		assert.True(t, primary.IsPrimary())
		assert.Equal(t, types.AlternativeMatch, alt.Kind)
		assert.Equal(t, primary.OriginPath, alt.OriginPath)
		if i > 0 {
			assert.Less(t, result.Records[i-2].OriginPath, primary.OriginPath)
		}
	}
}

func TestScan_ProgressMonotonic(t *testing.T) {
	origin, target := trees(t)
	for i := range 30 {
		write(t, filepath.Join(origin, fmt.Sprintf("f%02d", i)), "x")
	}

	var (
		mu      sync.Mutex
		reports []types.ScanProgress
	)
	_, err := Scan(context.Background(), Options{
		Origin:  origin,
		Target:  target,
		Workers: 4,
		OnProgress: func(p types.ScanProgress) {
			mu.Lock()
			reports = append(reports, p)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	require.NotEmpty(t, reports)
	last := int64(-1)
	for _, p := range reports {
		assert.GreaterOrEqual(t, p.Classified, last)
		assert.Equal(t, int64(30), p.Total)
		last = p.Classified
	}
	assert.Equal(t, int64(30), last)
}

func TestScan_Exclusions(t *testing.T) {
	origin, target := trees(t)
	write(t, filepath.Join(origin, ".DS_Store"), "meta")
	write(t, filepath.Join(origin, "cache", "blob.bin"), "blob")
	keep := write(t, filepath.Join(origin, "keep.txt"), "keep")

	result, err := Scan(context.Background(), Options{
		Origin:  origin,
		Target:  target,
		Exclude: []string{".DS_Store", "cache"},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, keep, result.Records[0].OriginPath)
}

func TestScan_DefaultOptionsKeepMetadataFiles(t *testing.T) {
	origin, target := trees(t)
	write(t, filepath.Join(origin, "photos", "a.jpg"), "jpeg")
	meta := write(t, filepath.Join(origin, "photos", ".DS_Store"), "meta")
	write(t, filepath.Join(target, "photos", "a.jpg"), "jpeg")

	opts := DefaultOptions()
	opts.Origin = origin
	opts.Target = target
	result, err := Scan(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.OriginFiles)

	recs := recordsFor(result, meta)
	require.Len(t, recs, 1)
	assert.Equal(t, types.NoMatch, recs[0].Kind)
	assert.Equal(t, types.Move, recs[0].Action)

	for i := range result.Records {
		result.Records[i].Selected = result.Records[i].Action != types.Skip
	}
	applied, err := mutate.Apply(context.Background(), result.Records, result.OriginRoot, result.TargetRoot, mutate.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, applied.Succeeded)

	assert.NoDirExists(t, filepath.Join(origin, "photos"))
	assert.FileExists(t, filepath.Join(target, "photos", ".DS_Store"))
}

func TestScan_SkipsSymlinks(t *testing.T) {
	origin, target := trees(t)
	real := write(t, filepath.Join(origin, "real.txt"), "data")
	require.NoError(t, os.Symlink(real, filepath.Join(origin, "link.txt")))

	result, err := Scan(context.Background(), Options{Origin: origin, Target: target})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, real, result.Records[0].OriginPath)
}

func TestScan_EmptyOrigin(t *testing.T) {
	origin, target := trees(t)

	result, err := Scan(context.Background(), Options{Origin: origin, Target: target})
	require.NoError(t, err)
	assert.NotNil(t, result.Records)
	assert.Empty(t, result.Records)
	assert.Zero(t, result.OriginFiles)
}

func TestScan_Cancelled(t *testing.T) {
	origin, target := trees(t)
	write(t, filepath.Join(origin, "a.txt"), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Scan(ctx, Options{Origin: origin, Target: target})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.True(t, result.Interrupted)
}

func TestScan_TotalSizeCountsPrimariesOnly(t *testing.T) {
	origin, target := trees(t)
	write(t, filepath.Join(origin, "p", "a.bin"), "12345")
	write(t, filepath.Join(target, "p", "a.bin"), "12345")
	write(t, filepath.Join(target, "q", "p", "a.bin"), "12345")

	result, err := Scan(context.Background(), Options{Origin: origin, Target: target, SearchOtherLocations: true})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, int64(5), result.TotalSize)
}

func TestPartition(t *testing.T) {
	files := []string{"a", "b", "c", "d", "e"}

	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, partition(files, 2))
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}, partition(files, 0))
	assert.Len(t, partition(files, 10), 1)
	assert.Nil(t, partition(nil, 3))
}

func BenchmarkScan(b *testing.B) {
	base := b.TempDir()
	origin := filepath.Join(base, "origin")
	target := filepath.Join(base, "target")
	for i := range 200 {
		rel := filepath.Join(fmt.Sprintf("dir%02d", i%10), fmt.Sprintf("file%03d.txt", i))
		for _, root := range []string{origin, target} {
			path := filepath.Join(root, rel)
			require.NoError(b, os.MkdirAll(filepath.Dir(path), 0o755))
			require.NoError(b, os.WriteFile(path, []byte(rel), 0o644))
		}
	}

	b.ResetTimer()
	for b.Loop() {
		if _, err := Scan(context.Background(), Options{Origin: origin, Target: target}); err != nil {
			b.Fatal(err)
		}
	}
}
