package trash

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveToTrash_NonexistentFile(t *testing.T) {
	err := MoveToTrash(filepath.Join(t.TempDir(), "nonexistent.txt"))
	assert.Error(t, err)
}

func TestMoveToTrash_RejectsDirectory(t *testing.T) {
	err := MoveToTrash(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRegular)
}

func TestFallbackDelete(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "fallback_test.txt")
	require.NoError(t, os.WriteFile(tmpFile, []byte("fallback test"), 0o644))

	require.NoError(t, fallbackDelete(tmpFile))

	_, err := os.Stat(tmpFile)
	assert.True(t, os.IsNotExist(err))
}

func TestFallbackDelete_Nonexistent(t *testing.T) {
	err := fallbackDelete(filepath.Join(t.TempDir(), "gone.txt"))
	assert.Error(t, err)
}

func TestBin_Put(t *testing.T) {
	base := t.TempDir()
	bin := NewBin(filepath.Join(base, "Trash"))
	bin.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.Local) }

	src := filepath.Join(base, "report.txt")
	require.NoError(t, os.WriteFile(src, []byte("draft"), 0o644))

	require.NoError(t, bin.Put(src))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(bin.Dir(), "files", "report.txt"))
	require.NoError(t, err)
	assert.Equal(t, "draft", string(data))

	info, err := os.ReadFile(filepath.Join(bin.Dir(), "info", "report.txt.trashinfo"))
	require.NoError(t, err)
	assert.Contains(t, string(info), "Path="+src)
	assert.Contains(t, string(info), "DeletionDate=2024-03-01T12:30:00")
}

func TestBin_PutNameCollision(t *testing.T) {
	base := t.TempDir()
	bin := NewBin(filepath.Join(base, "Trash"))

	for i, content := range []string{"one", "two"} {
		dir := filepath.Join(base, "d", string(rune('a'+i)))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		path := filepath.Join(dir, "same.txt")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		require.NoError(t, bin.Put(path))
	}

	first, err := os.ReadFile(filepath.Join(bin.Dir(), "files", "same.txt"))
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(bin.Dir(), "files", "same.txt.1"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(first))
	assert.Equal(t, "two", string(second))
}

func TestBin_PutMissingFileLeavesNoInfo(t *testing.T) {
	base := t.TempDir()
	bin := NewBin(filepath.Join(base, "Trash"))

	err := bin.Put(filepath.Join(base, "missing.txt"))
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(bin.Dir(), "info"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
