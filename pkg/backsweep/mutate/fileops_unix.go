//go:build unix

package mutate

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// crossDevice reports whether a rename failed because src and dst are on
// different filesystems.
func crossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}

// accessTime returns the last access time of path.
func accessTime(path string) (time.Time, bool) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return time.Time{}, false
	}
	sec, nsec := st.Atim.Unix()
	return time.Unix(sec, nsec), true
}
