// Package fingerprint computes content identities for files.
//
// A fingerprint is an xxh64 digest. Files up to the sampling threshold are
// hashed in full. Larger files are identified by three fixed-size chunks
// (head, middle and tail) fed into the hash in that order, which bounds the
// cost of hashing very large backups at the price of a small false-positive
// risk: two large files that agree on all three chunks share a fingerprint
// even if they differ elsewhere.
package fingerprint

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/jamesainslie/backsweep/pkg/backsweep/logging"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

const (
	// DefaultChunkSize is the read buffer and sample chunk size.
	DefaultChunkSize = types.MiB

	// DefaultSampleThreshold is the size above which files are sampled.
	DefaultSampleThreshold = 100 * types.MiB
)

// Digest is a file fingerprint.
type Digest uint64

// String returns the digest as 16 hex digits.
func (d Digest) String() string {
	return fmt.Sprintf("%016x", uint64(d))
}

// DigestCache stores digests between runs. Implementations must be safe for
// concurrent use.
type DigestCache interface {
	Lookup(path string, size, mtime int64) (uint64, bool)
	Record(path string, size, mtime int64, digest uint64, sampled bool) error
}

// Options configures a Fingerprinter.
type Options struct {
	// ChunkSize is the streaming buffer and sample chunk size.
	// Zero selects DefaultChunkSize.
	ChunkSize int64

	// SampleThreshold is the largest size hashed in full.
	// Zero selects DefaultSampleThreshold.
	SampleThreshold int64

	// Cache, when set, is consulted before hashing and updated after.
	Cache DigestCache
}

// Fingerprinter computes digests. It holds no mutable state and is safe for
// concurrent use.
type Fingerprinter struct {
	chunk     int64
	threshold int64
	cache     DigestCache
	logger    *logging.Logger
}

// New returns a Fingerprinter configured by opts.
func New(opts Options) *Fingerprinter {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.SampleThreshold <= 0 {
		opts.SampleThreshold = DefaultSampleThreshold
	}
	return &Fingerprinter{
		chunk:     opts.ChunkSize,
		threshold: opts.SampleThreshold,
		cache:     opts.Cache,
		logger:    logging.Get("fingerprint"),
	}
}

// Default is a Fingerprinter with default options and no cache.
var Default = New(Options{})

// File fingerprints path with the Default fingerprinter.
func File(path string) (Digest, error) {
	return Default.File(path)
}

// Sampled reports whether a file of the given size is fingerprinted by
// sampling rather than in full.
func (f *Fingerprinter) Sampled(size int64) bool {
	return size > f.threshold
}

// File returns the fingerprint of the file at path. Failures are returned
// as *types.HashError.
func (f *Fingerprinter) File(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, &types.HashError{Path: path, Err: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, &types.HashError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return 0, &types.HashError{Path: path, Err: fmt.Errorf("not a regular file")}
	}

	size := info.Size()
	mtime := info.ModTime().UnixNano()
	sampled := f.Sampled(size)

	if f.cache != nil {
		if digest, ok := f.cache.Lookup(path, size, mtime); ok {
			return Digest(digest), nil
		}
	}

	var sum uint64
	if sampled {
		sum, err = f.sample(file, size)
	} else {
		sum, err = f.stream(file)
	}
	if err != nil {
		return 0, &types.HashError{Path: path, Err: err}
	}

	if f.cache != nil {
		if err := f.cache.Record(path, size, mtime, sum, sampled); err != nil {
			f.logger.Warn("caching fingerprint failed", "path", path, "err", err)
		}
	}

	return Digest(sum), nil
}

func (f *Fingerprinter) stream(r io.Reader) (uint64, error) {
	h := xxhash.New()
	buf := make([]byte, f.chunk)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// SampleOffsets returns the offsets of the head, middle and tail chunks for
// a file of the given size. The middle chunk is centered on size/2.
func (f *Fingerprinter) SampleOffsets(size int64) [3]int64 {
	return [3]int64{
		0,
		size/2 - f.chunk/2,
		size - f.chunk,
	}
}

// sample hashes the head, middle and tail chunks. A file that shrinks while
// it is read yields io.ErrUnexpectedEOF.
func (f *Fingerprinter) sample(r io.ReaderAt, size int64) (uint64, error) {
	h := xxhash.New()
	buf := make([]byte, f.chunk)
	for _, off := range f.SampleOffsets(size) {
		if _, err := r.ReadAt(buf, off); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, fmt.Errorf("reading chunk at %d: %w", off, err)
		}
		_, _ = h.Write(buf)
	}
	return h.Sum64(), nil
}

// Equal reports whether two files have the same fingerprint.
func (f *Fingerprinter) Equal(a, b string) (bool, error) {
	da, err := f.File(a)
	if err != nil {
		return false, err
	}
	db, err := f.File(b)
	if err != nil {
		return false, err
	}
	return da == db, nil
}
