//go:build !unix && !windows

package mutate

import "time"

func crossDevice(error) bool { return false }

// accessTime is unavailable here; copies take the modification time.
func accessTime(string) (time.Time, bool) { return time.Time{}, false }
