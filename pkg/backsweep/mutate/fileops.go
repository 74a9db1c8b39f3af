package mutate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ErrDestinationExists is returned when a move would overwrite an existing
// target file.
var ErrDestinationExists = errors.New("destination already exists")

// ensureFree fails if dst exists in any form.
func ensureFree(dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%s: %w", dst, ErrDestinationExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// moveFile renames src to dst, creating dst's parent directories. Across
// filesystems it copies and then removes src with remove.
func moveFile(src, dst string, remove func(string) error) error {
	if err := ensureFree(dst); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !crossDevice(err) {
		return err
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	return remove(src)
}

// copyFile copies src to a new file dst, preserving permission bits and
// access and modification times. A partial dst is removed on failure.
func copyFile(src, dst string) (err error) {
	in, info, err := openRegular(src)
	if err != nil {
		return err
	}
	defer in.Close()
	times := timesOf(src, info)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", dst, ErrDestinationExists)
		}
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(dst)
		}
	}()

	return writeCopy(in, out, info, times)
}

// replaceFile copies src over dst. The data is written to a temporary file
// in dst's directory and renamed into place, so an existing dst is either
// kept intact or fully replaced.
func replaceFile(src, dst string) (err error) {
	in, info, err := openRegular(src)
	if err != nil {
		return err
	}
	defer in.Close()
	times := timesOf(src, info)

	if fi, statErr := os.Lstat(dst); statErr == nil && fi.IsDir() {
		return fmt.Errorf("%s: is a directory", dst)
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	out, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := out.Name()
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if err = writeCopy(in, out, info, times); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

func openRegular(path string) (*os.File, os.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, fmt.Errorf("%s: not a regular file", path)
	}
	return f, info, nil
}

// fileTimes holds the access and modification times carried over to a copy.
type fileTimes struct {
	atime, mtime time.Time
}

// timesOf reads path's times. It must run before path is read, since
// reading may advance the access time. Without an access time the
// modification time stands in for it.
func timesOf(path string, info os.FileInfo) fileTimes {
	atime, ok := accessTime(path)
	if !ok {
		atime = info.ModTime()
	}
	return fileTimes{atime: atime, mtime: info.ModTime()}
}

// writeCopy streams in to out, closes out and applies the source's mode and
// times to it. out is closed on every path.
func writeCopy(in io.Reader, out *os.File, info os.FileInfo, times fileTimes) error {
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	name := out.Name()
	if err := os.Chmod(name, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(name, times.atime, times.mtime)
}
