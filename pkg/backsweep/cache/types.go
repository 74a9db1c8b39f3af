package cache

import (
	"bytes"
	"encoding/gob"
)

// CacheVersion is incremented when the cache format changes.
const CacheVersion = 1

// keyPrefix namespaces fingerprint keys by format version.
const keyPrefix = "fp1\x00"

// CachedEntry is a stored fingerprint together with the file attributes it
// was computed from.
type CachedEntry struct {
	Size    int64  // File size in bytes
	Mtime   int64  // Modification time as UnixNano
	Digest  uint64 // xxh64 fingerprint
	Sampled bool   // Digest covers sampled chunks only
}

// Matches reports whether the entry was computed from a file with the given
// size and modification time.
func (e *CachedEntry) Matches(size, mtime int64) bool {
	return e.Size == size && e.Mtime == mtime
}

// Encode serializes the entry to bytes using gob.
func (e *CachedEntry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes bytes into the entry using gob.
func (e *CachedEntry) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

// MakeKey creates a cache key from an absolute file path.
// Format: fp1\x00<path>
func MakeKey(path string) []byte {
	return []byte(keyPrefix + path)
}

// ParseKey extracts the file path from a cache key.
func ParseKey(key []byte) string {
	return string(bytes.TrimPrefix(key, []byte(keyPrefix)))
}

// MakeKeyPrefix returns the prefix shared by all keys under a directory.
// An empty root matches every key.
func MakeKeyPrefix(root string) []byte {
	if root == "" {
		return []byte(keyPrefix)
	}
	if root[len(root)-1] != '/' {
		root += "/"
	}
	return []byte(keyPrefix + root)
}
