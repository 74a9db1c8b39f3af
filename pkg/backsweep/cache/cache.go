// Package cache persists file fingerprints between scans.
//
// Entries are keyed by absolute path and are only trusted while the file's
// size and modification time still equal the values recorded with the digest,
// so a cached scan produces the same records as an uncached one.
package cache

import (
	"errors"
	"os"
)

// Cache provides high-level fingerprint caching operations.
type Cache struct {
	store *Store
}

// Open opens or creates a cache at the given path.
func Open(path string) (*Cache, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, err
	}

	return &Cache{store: store}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Lookup returns the cached digest for path if the entry is still valid for
// the given size and modification time.
func (c *Cache) Lookup(path string, size, mtime int64) (uint64, bool) {
	entry, err := c.store.Get(path)
	if err != nil {
		return 0, false
	}
	if !entry.Matches(size, mtime) {
		return 0, false
	}
	return entry.Digest, true
}

// Record stores the digest computed for path.
func (c *Cache) Record(path string, size, mtime int64, digest uint64, sampled bool) error {
	return c.store.Put(path, &CachedEntry{
		Size:    size,
		Mtime:   mtime,
		Digest:  digest,
		Sampled: sampled,
	})
}

// Forget removes the entry for a single path.
func (c *Cache) Forget(path string) error {
	return c.store.Delete(path)
}

// Clear removes all cached entries under root.
func (c *Cache) Clear(root string) (int, error) {
	return c.store.DeletePrefix(root)
}

// ClearAll removes all cached entries.
func (c *Cache) ClearAll() (int, error) {
	return c.store.DeletePrefix("")
}

// Stats summarizes the cache contents.
type Stats struct {
	// Entries is the number of cached fingerprints.
	Entries int
	// Sampled is how many of them cover sampled chunks only.
	Sampled int
	// Bytes is the total size of the files the entries describe.
	Bytes int64
}

// Stats walks the cache and returns its summary.
func (c *Cache) Stats() (Stats, error) {
	var s Stats
	err := c.store.Each(func(_ string, entry *CachedEntry) error {
		s.Entries++
		s.Bytes += entry.Size
		if entry.Sampled {
			s.Sampled++
		}
		return nil
	})
	return s, err
}

// Prune removes entries whose file no longer exists or has changed since its
// digest was recorded. It returns the number of entries removed.
func (c *Cache) Prune() (int, error) {
	var stale []string
	err := c.store.Each(func(path string, entry *CachedEntry) error {
		info, statErr := os.Stat(path)
		if statErr != nil {
			if errors.Is(statErr, os.ErrNotExist) {
				stale = append(stale, path)
				return nil
			}
			return statErr
		}
		if !entry.Matches(info.Size(), info.ModTime().UnixNano()) {
			stale = append(stale, path)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, path := range stale {
		if err := c.store.Delete(path); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}
