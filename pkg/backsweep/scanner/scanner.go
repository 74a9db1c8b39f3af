package scanner

import (
	"cmp"
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/backsweep/pkg/backsweep/classifier"
	"github.com/jamesainslie/backsweep/pkg/backsweep/filter"
	"github.com/jamesainslie/backsweep/pkg/backsweep/locator"
	"github.com/jamesainslie/backsweep/pkg/backsweep/logging"
	"github.com/jamesainslie/backsweep/pkg/backsweep/tuner"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// Scanner performs one reconciliation pass. A Scanner is single-use; create
// a new one for every pass.
type Scanner struct {
	opts    Options
	exclude *filter.Excluder
	logger  *logging.Logger

	// errors collects per-file failures without stopping the pass.
	errors   []types.ScanError
	errorsMu sync.Mutex
}

// New creates a Scanner. Options are validated by Scan.
func New(opts Options) *Scanner {
	return &Scanner{
		opts:   opts,
		logger: logging.Get("scanner"),
	}
}

// Scan runs a reconciliation pass with the given options.
func Scan(ctx context.Context, opts Options) (*types.ScanResult, error) {
	return New(opts).Scan(ctx)
}

// batchResult carries the records of one batch back to the controller.
type batchResult struct {
	index   int
	files   int
	records []types.FileRecord
	errors  []types.ScanError
}

// Scan walks the origin tree, classifies every file and returns the merged
// records. Records are ordered by origin path; the primary record of a file
// is immediately followed by its alternatives.
//
// Invalid roots or budgets are reported before any work starts. If ctx is
// cancelled mid-pass, Scan returns the records of the batches that finished
// with Interrupted set, together with the context's error.
func (s *Scanner) Scan(ctx context.Context) (*types.ScanResult, error) {
	start := time.Now()

	if err := s.opts.Validate(); err != nil {
		return nil, err
	}

	exclude, err := filter.NewExcluder(s.opts.Exclude...)
	if err != nil {
		return nil, err
	}
	s.exclude = exclude

	resources, err := tuner.Detect()
	if err != nil {
		s.logger.Warn("resource detection incomplete", "err", err)
	}
	plan := tuner.CalculateWithOverrides(resources, s.opts.BudgetPercent, s.opts.Workers)

	s.logger.Info("scan started",
		"origin", s.opts.Origin,
		"target", s.opts.Target,
		"other_locations", s.opts.SearchOtherLocations,
		"workers", plan.Workers)

	result := &types.ScanResult{
		ID:                   uuid.NewString(),
		OriginRoot:           s.opts.Origin,
		TargetRoot:           s.opts.Target,
		SearchOtherLocations: s.opts.SearchOtherLocations,
		Workers:              plan.Workers,
		Records:              []types.FileRecord{},
	}

	files, err := s.walkOrigin(ctx)
	if err != nil {
		return s.interrupted(result, start, err)
	}

	var index *locator.Index
	if s.opts.SearchOtherLocations {
		index, err = locator.BuildIndex(ctx, s.opts.Target, s.exclude)
		if err != nil {
			return s.interrupted(result, start, err)
		}
		s.addErrors(index.Errors())
	}

	s.progress(types.ScanProgress{Total: int64(len(files)), WalkComplete: true})

	loc := locator.New(s.opts.Origin, s.opts.Target, index)
	cls := classifier.New(s.opts.Hasher)

	records, classified, err := s.classify(ctx, files, loc, cls, plan)
	if records != nil {
		result.Records = records
	}
	result.OriginFiles = classified
	for i := range records {
		if records[i].IsPrimary() {
			result.TotalSize += records[i].Size
		}
	}

	if err != nil {
		return s.interrupted(result, start, err)
	}

	result.Elapsed = time.Since(start)
	result.Errors = s.sortedErrors()

	s.logger.Info("scan finished",
		"files", result.OriginFiles,
		"records", len(result.Records),
		"errors", len(result.Errors),
		"elapsed", result.Elapsed)

	return result, nil
}

func (s *Scanner) interrupted(result *types.ScanResult, start time.Time, err error) (*types.ScanResult, error) {
	result.Elapsed = time.Since(start)
	result.Errors = s.sortedErrors()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		result.Interrupted = true
		s.logger.Warn("scan interrupted", "classified", result.OriginFiles, "err", err)
		return result, err
	}
	return nil, err
}

// walkOrigin returns the sorted paths of all regular files under the origin
// root that are not excluded. Symlinks are not followed and not collected.
func (s *Scanner) walkOrigin(ctx context.Context) ([]string, error) {
	var (
		mu    sync.Mutex
		files []string
	)
	root := s.opts.Origin
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.addError(path, err)
			return nil
		}
		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if s.exclude.Excluded(filepath.ToSlash(rel), d.Name()) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		mu.Lock()
		files = append(files, path)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}

// classify dispatches contiguous batches to the worker pool and merges the
// results in batch order. Only this goroutine reports progress.
func (s *Scanner) classify(
	ctx context.Context,
	files []string,
	loc *locator.Locator,
	cls *classifier.Classifier,
	plan tuner.Plan,
) ([]types.FileRecord, int64, error) {
	batches := partition(files, tuner.BatchSize(len(files), plan.Workers))
	if len(batches) == 0 {
		return []types.FileRecord{}, 0, ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	tasks := make(chan int)
	results := make(chan batchResult, min(plan.QueueSize, len(batches)))

	g.Go(func() error {
		defer close(tasks)
		for i := range batches {
			select {
			case tasks <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	workers := min(plan.Workers, len(batches))
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		g.Go(func() error {
			defer wg.Done()
			for i := range tasks {
				res, err := classifyBatch(gctx, batches[i], loc, cls)
				res.index = i
				if err != nil {
					return err
				}
				select {
				case results <- res:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	merged := make([][]types.FileRecord, len(batches))
	var classified int64
	for res := range results {
		merged[res.index] = res.records
		classified += int64(res.files)
		s.addErrors(res.errors)
		s.progress(types.ScanProgress{
			Classified:   classified,
			Total:        int64(len(files)),
			WalkComplete: true,
		})
	}

	err := g.Wait()
	return slices.Concat(merged...), classified, err
}

// classifyBatch classifies the files of one batch in order. Cancellation is
// checked between files.
func classifyBatch(
	ctx context.Context,
	batch []string,
	loc *locator.Locator,
	cls *classifier.Classifier,
) (batchResult, error) {
	var res batchResult
	for _, path := range batch {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		res.files++
		active, err := loc.Active(path)
		if err != nil {
			res.errors = append(res.errors, types.ScanError{Path: path, Error: err.Error()})
			continue
		}

		out := cls.Classify(path, active)
		res.records = append(res.records, out.Records...)
		res.errors = append(res.errors, out.Errors...)
	}
	return res, nil
}

// partition splits files into contiguous batches of at most size files.
func partition(files []string, size int) [][]string {
	if len(files) == 0 {
		return nil
	}
	size = max(size, 1)
	batches := make([][]string, 0, (len(files)+size-1)/size)
	for start := 0; start < len(files); start += size {
		batches = append(batches, files[start:min(start+size, len(files))])
	}
	return batches
}

func (s *Scanner) progress(p types.ScanProgress) {
	if s.opts.OnProgress != nil {
		s.opts.OnProgress(p)
	}
}

func (s *Scanner) addError(path string, err error) {
	s.errorsMu.Lock()
	s.errors = append(s.errors, types.ScanError{Path: path, Error: err.Error()})
	s.errorsMu.Unlock()
}

func (s *Scanner) addErrors(errs []types.ScanError) {
	if len(errs) == 0 {
		return
	}
	s.errorsMu.Lock()
	s.errors = append(s.errors, errs...)
	s.errorsMu.Unlock()
}

func (s *Scanner) sortedErrors() []types.ScanError {
	s.errorsMu.Lock()
	defer s.errorsMu.Unlock()
	out := slices.Clone(s.errors)
	slices.SortStableFunc(out, func(a, b types.ScanError) int {
		return cmp.Compare(a.Path, b.Path)
	})
	return out
}
