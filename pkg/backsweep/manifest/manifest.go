package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/backsweep/pkg/backsweep/mutate"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// ErrNotFound is returned when no entry matches an ID.
var ErrNotFound = errors.New("entry not found")

// ErrAmbiguousID is returned when an ID prefix matches several entries.
var ErrAmbiguousID = errors.New("ambiguous entry ID")

// Manifest manages operation logging to the filesystem.
type Manifest struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// New creates a Manifest in dir. The directory is created on first write.
func New(dir string) (*Manifest, error) {
	if dir == "" {
		return nil, errors.New("manifest directory cannot be empty")
	}
	return &Manifest{dir: dir, now: time.Now}, nil
}

// Dir returns the manifest directory.
func (m *Manifest) Dir() string {
	return m.dir
}

// EnsureDir creates the manifest directory if it does not exist.
func (m *Manifest) EnsureDir() error {
	return os.MkdirAll(m.dir, 0o755)
}

// LogScan records the primary record of every origin file in result.
func (m *Manifest) LogScan(result *types.ScanResult) (*Entry, error) {
	files := make([]FileRecord, 0, len(result.Records))
	for i := range result.Records {
		rec := &result.Records[i]
		if !rec.IsPrimary() {
			continue
		}
		files = append(files, FileRecord{
			Path:        rec.OriginPath,
			Destination: rec.TargetPath,
			Size:        rec.Size,
			Kind:        rec.Kind.String(),
			Action:      rec.Action,
		})
	}

	entry := m.newEntry(OpScan, result.OriginRoot, result.TargetRoot, files)
	entry.Summary.TotalBytes = result.TotalSize
	entry.Summary.Errors = len(result.Errors)
	entry.Summary.Elapsed = result.Elapsed
	return entry, m.write(entry)
}

// LogApply records the operations and failures of an apply run. sizes maps
// origin paths to their sizes; missing paths count as zero bytes.
func (m *Manifest) LogApply(origin, target string, result *mutate.Result, sizes map[string]int64) (*Entry, error) {
	files := make([]FileRecord, 0, len(result.Operations)+len(result.Failures))
	var bytes int64
	for _, op := range result.Operations {
		files = append(files, FileRecord{
			Path:        op.Origin,
			Destination: op.Destination,
			Size:        sizes[op.Origin],
			Action:      op.Action,
		})
		bytes += sizes[op.Origin]
	}
	for _, f := range result.Failures {
		files = append(files, FileRecord{
			Path:   f.Path,
			Size:   sizes[f.Path],
			Action: f.Action,
			Error:  f.Err.Error(),
		})
	}

	entry := m.newEntry(OpApply, origin, target, files)
	entry.DryRun = result.DryRun
	entry.Summary.TotalBytes = bytes
	entry.Summary.Succeeded = result.Succeeded
	entry.Summary.Failed = result.Failed()
	entry.Summary.Pruned = result.Pruned
	entry.Summary.Elapsed = result.Elapsed
	return entry, m.write(entry)
}

func (m *Manifest) newEntry(op OperationType, origin, target string, files []FileRecord) *Entry {
	return &Entry{
		ID:        uuid.NewString(),
		Timestamp: m.now().UTC(),
		Operation: op,
		Origin:    origin,
		Target:    target,
		Files:     files,
		Summary:   Summary{TotalFiles: int64(len(files))},
	}
}

// write persists entry atomically via a temp file and rename.
func (m *Manifest) write(entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	path := filepath.Join(m.dir, entry.ID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write manifest entry: %w", err)
	}
	return nil
}

// List returns entries newest first. If limit is 0 or negative, all entries
// are returned. Unreadable files are skipped.
func (m *Manifest) List(limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.readAll()
	if err != nil {
		return nil, err
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry whose ID equals id or, failing that, the single
// entry whose ID starts with id.
func (m *Manifest) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.readAll()
	if err != nil {
		return nil, err
	}

	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}

	var found *Entry
	for i := range entries {
		e := &entries[i]
		if strings.HasPrefix(e.ID, id) {
			if found != nil {
				return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
			}
			found = e
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return found, nil
}

// Cleanup removes entries older than retentionDays and returns how many were
// removed. A non-positive retention keeps everything.
func (m *Manifest) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().AddDate(0, 0, -retentionDays)
	entries, err := m.readAll()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, e.ID+".json")); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (m *Manifest) readAll() ([]Entry, error) {
	files, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read manifest directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.dir, f.Name()))
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
