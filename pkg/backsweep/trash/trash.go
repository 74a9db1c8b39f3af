// Package trash moves origin files to the system trash instead of removing
// them. Deletion falls back to a permanent remove when no trash is usable.
package trash

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/adrg/xdg"

	"github.com/jamesainslie/backsweep/pkg/backsweep/logging"
)

// commandTimeout bounds external trash helpers.
const commandTimeout = 30 * time.Second

// ErrNotRegular is returned for paths that are not regular files.
var ErrNotRegular = errors.New("not a regular file")

// MoveToTrash moves a single file to the system trash.
//
// On macOS Finder is asked to delete the file so "Put Back" works. On Linux
// gio and trash-put are tried before the freedesktop home trash. If every
// backend fails the file is removed permanently.
func MoveToTrash(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("cannot trash %q: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot trash %q: %w", path, ErrNotRegular)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("cannot resolve absolute path for %q: %w", path, err)
	}

	switch runtime.GOOS {
	case "darwin":
		return trashMacOS(absPath)
	case "linux":
		return trashLinux(absPath)
	default:
		return fallbackDelete(absPath)
	}
}

func trashMacOS(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	script := fmt.Sprintf(`tell application "Finder" to delete POSIX file %q`, path)
	if err := exec.CommandContext(ctx, "osascript", "-e", script).Run(); err != nil {
		logging.Get("trash").Debug("finder trash failed", "path", path, "err", err)
		return fallbackDelete(path)
	}
	return nil
}

func trashLinux(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if gio, err := exec.LookPath("gio"); err == nil {
		if exec.CommandContext(ctx, gio, "trash", path).Run() == nil {
			return nil
		}
	}
	if put, err := exec.LookPath("trash-put"); err == nil {
		if exec.CommandContext(ctx, put, path).Run() == nil {
			return nil
		}
	}

	if err := Home().Put(path); err != nil {
		logging.Get("trash").Debug("home trash failed", "path", path, "err", err)
		return fallbackDelete(path)
	}
	return nil
}

func fallbackDelete(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %q: %w", path, err)
	}
	logging.Get("trash").Warn("no trash available, deleted permanently", "path", path)
	return nil
}

// Bin is a freedesktop.org trash directory with "files" and "info"
// subdirectories.
type Bin struct {
	dir string
	now func() time.Time
}

// Home returns the user's home trash, $XDG_DATA_HOME/Trash.
func Home() *Bin {
	return NewBin(filepath.Join(xdg.DataHome, "Trash"))
}

// NewBin returns a trash rooted at dir.
func NewBin(dir string) *Bin {
	return &Bin{dir: dir, now: time.Now}
}

// Dir returns the trash directory.
func (b *Bin) Dir() string {
	return b.dir
}

// Put moves path into the trash and writes its .trashinfo record. The move is
// a rename, so path must be on the same filesystem as the trash.
func (b *Bin) Put(path string) error {
	files := filepath.Join(b.dir, "files")
	infos := filepath.Join(b.dir, "info")
	for _, d := range []string{files, infos} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}

	name, info, err := b.reserve(infos, filepath.Base(path))
	if err != nil {
		return err
	}

	record := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		path, b.now().Format("2006-01-02T15:04:05"))
	if _, err := info.WriteString(record); err != nil {
		info.Close()
		os.Remove(info.Name())
		return err
	}
	if err := info.Close(); err != nil {
		os.Remove(info.Name())
		return err
	}

	if err := os.Rename(path, filepath.Join(files, name)); err != nil {
		os.Remove(info.Name())
		return err
	}
	return nil
}

// reserve claims a unique name by exclusively creating its info file.
func (b *Bin) reserve(infos, base string) (string, *os.File, error) {
	for i := 0; i < 1000; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s.%d", base, i)
		}
		f, err := os.OpenFile(filepath.Join(infos, name+".trashinfo"), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return name, f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", nil, err
		}
	}
	return "", nil, fmt.Errorf("no free trash name for %q", base)
}
