package fingerprint

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

// sparseFile creates a file of the given size that is zero everywhere except
// for the supplied patches.
func sparseFile(t *testing.T, dir, name string, size int64, patches map[int64][]byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	for off, data := range patches {
		_, err := f.WriteAt(data, off)
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())
	return path
}

func TestFile_SmallFileIsFullHash(t *testing.T) {
	dir := t.TempDir()
	content := []byte("backup contents")
	path := writeFile(t, dir, "a.txt", content)

	got, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, Digest(xxhash.Sum64(content)), got)
}

func TestFile_Deterministic(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", []byte("X"))
	b := writeFile(t, dir, "b.txt", []byte("X"))
	c := writeFile(t, dir, "c.txt", []byte("Y"))

	fp := New(Options{})

	eq, err := fp.Equal(a, b)
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = fp.Equal(a, c)
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestFile_EmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty", nil)

	got, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, Digest(xxhash.Sum64(nil)), got)
}

func TestFile_Missing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "gone"))
	require.Error(t, err)

	var hashErr *types.HashError
	require.ErrorAs(t, err, &hashErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFile_Directory(t *testing.T) {
	_, err := File(t.TempDir())
	var hashErr *types.HashError
	assert.ErrorAs(t, err, &hashErr)
}

func TestSampleOffsets(t *testing.T) {
	fp := New(Options{})
	size := 200 * types.MiB
	offsets := fp.SampleOffsets(size)

	assert.Equal(t, int64(0), offsets[0])
	assert.Equal(t, 100*types.MiB-512*types.KiB, offsets[1])
	assert.Equal(t, size-types.MiB, offsets[2])
}

func TestFile_SampledMatchesManualDigest(t *testing.T) {
	dir := t.TempDir()
	fp := New(Options{ChunkSize: 4, SampleThreshold: 16})

	content := []byte("HEADxxxxxxMIDDLExxxxxxTAIL")
	path := writeFile(t, dir, "big.bin", content)
	require.True(t, fp.Sampled(int64(len(content))))

	size := int64(len(content))
	h := xxhash.New()
	for _, off := range fp.SampleOffsets(size) {
		_, _ = h.Write(content[off : off+4])
	}

	got, err := fp.File(path)
	require.NoError(t, err)
	assert.Equal(t, Digest(h.Sum64()), got)
}

func TestFile_SampledChunkOrderMatters(t *testing.T) {
	dir := t.TempDir()
	fp := New(Options{ChunkSize: 4, SampleThreshold: 8})

	// Head and tail swapped: same chunks, different order.
	a := writeFile(t, dir, "a", []byte("AAAA--MMMM--ZZZZ"))
	b := writeFile(t, dir, "b", []byte("ZZZZ--MMMM--AAAA"))

	eq, err := fp.Equal(a, b)
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestFile_ThresholdIsInclusive(t *testing.T) {
	dir := t.TempDir()
	fp := New(Options{ChunkSize: 4, SampleThreshold: 16})

	// Exactly at the threshold the whole file is hashed, so a difference
	// outside the sampled regions is still detected.
	a := writeFile(t, dir, "a", []byte("0123456789abcdef"))
	b := writeFile(t, dir, "b", []byte("0123456X89abcdef"))

	eq, err := fp.Equal(a, b)
	require.NoError(t, err)
	assert.False(t, eq)
}

// Large files that agree in their head, middle and tail chunks are reported
// as identical even when they differ elsewhere. This is the accepted cost of
// sampling.
func TestFile_LargeFileSamplingFalsePositive(t *testing.T) {
	dir := t.TempDir()
	size := 101 * types.MiB

	marker := []byte("sampled region")
	shared := map[int64][]byte{
		0:                marker,
		size / 2:         marker,
		size - types.MiB: marker,
	}

	a := sparseFile(t, dir, "a.bin", size, shared)

	patched := map[int64][]byte{10 * types.MiB: []byte("only in b")}
	for off, data := range shared {
		patched[off] = data
	}
	b := sparseFile(t, dir, "b.bin", size, patched)

	fa, err := File(a)
	require.NoError(t, err)
	fb, err := File(b)
	require.NoError(t, err)

	assert.Equal(t, fa, fb, "differences outside the sampled chunks are not detected")

	c := sparseFile(t, dir, "c.bin", size, map[int64][]byte{size - 10: []byte("tail")})
	fc, err := File(c)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fc, "differences inside the tail chunk are detected")
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]uint64
	records int
	fail    bool
}

func (m *memCache) Lookup(path string, size, mtime int64) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.entries[path]
	return d, ok
}

func (m *memCache) Record(path string, size, mtime int64, digest uint64, sampled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records++
	if m.fail {
		return errors.New("disk full")
	}
	m.entries[path] = digest
	return nil
}

func TestFile_UsesCache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", []byte("cached"))

	mc := &memCache{entries: map[string]uint64{}}
	fp := New(Options{Cache: mc})

	first, err := fp.File(path)
	require.NoError(t, err)
	assert.Equal(t, 1, mc.records)

	mc.entries[path] = 99
	second, err := fp.File(path)
	require.NoError(t, err)
	assert.Equal(t, Digest(99), second, "cache hit is returned without hashing")
	assert.Equal(t, 1, mc.records)
	assert.NotEqual(t, first, second)
}

func TestFile_CacheWriteFailureIsNotFatal(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.txt", []byte("data"))
	fp := New(Options{Cache: &memCache{entries: map[string]uint64{}, fail: true}})

	got, err := fp.File(path)
	require.NoError(t, err)
	assert.Equal(t, Digest(xxhash.Sum64([]byte("data"))), got)
}

func TestDigestString(t *testing.T) {
	assert.Equal(t, "00000000000000ff", Digest(255).String())
}

func benchmarkFile(b *testing.B, size int64) {
	dir := b.TempDir()
	path := filepath.Join(dir, "bench.bin")
	f, err := os.Create(path)
	require.NoError(b, err)
	require.NoError(b, f.Truncate(size))
	require.NoError(b, f.Close())

	b.SetBytes(size)
	b.ResetTimer()
	for b.Loop() {
		if _, err := File(path); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFile_Full(b *testing.B)    { benchmarkFile(b, 8*types.MiB) }
func BenchmarkFile_Sampled(b *testing.B) { benchmarkFile(b, DefaultSampleThreshold+1) }
