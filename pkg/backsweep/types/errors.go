package types

import (
	"errors"
	"fmt"
)

// ErrInvalidRoot indicates that the origin or target root is missing or is
// not a directory. A scan never starts when it is returned.
var ErrInvalidRoot = errors.New("invalid root directory")

// ErrSameRoot indicates that origin and target resolve to the same directory.
var ErrSameRoot = errors.New("origin and target are the same directory")

// ErrNestedRoot indicates that one root lies inside the other.
var ErrNestedRoot = errors.New("origin and target must not contain each other")

// ErrInvalidBudget indicates a resource budget outside 25-100 percent.
var ErrInvalidBudget = errors.New("budget percent must be between 25 and 100")

// ConfigError reports a root directory that cannot be scanned.
type ConfigError struct {
	// Role is "origin" or "target".
	Role string
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s root %q: %v", e.Role, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// HashError reports a fingerprint that could not be computed.
type HashError struct {
	Path string
	Err  error
}

func (e *HashError) Error() string {
	return fmt.Sprintf("fingerprint %s: %v", e.Path, e.Err)
}

func (e *HashError) Unwrap() error {
	return e.Err
}

// FileError reports a failed filesystem operation on one file.
type FileError struct {
	// Op names the operation, e.g. "move", "delete" or "copy".
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
