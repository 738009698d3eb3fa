package detect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veraticus/ha-outliers/internal/common"
	"github.com/Veraticus/ha-outliers/internal/model"
	"github.com/Veraticus/ha-outliers/internal/service"
)

// Progress receives scan progress updates.
type Progress interface {
	Start(total int)
	Advance(entityID string)
	Finish()
}

type noopProgress struct{}

func (noopProgress) Start(int)      {}
func (noopProgress) Advance(string) {}
func (noopProgress) Finish()        {}

// SourceFailure records a source whose queries failed and that was skipped.
type SourceFailure struct {
	Err      error
	EntityID string
}

func (f SourceFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.EntityID, f.Err)
}

func (f SourceFailure) Unwrap() error {
	return f.Err
}

// ScanResult is the complete output of one scan.
type ScanResult struct {
	// Records are sorted by descending deviation across all sources.
	Records    []model.OutlierRecord
	Failures   []SourceFailure
	Candidates int
	Qualified  int
}

// Groups groups the scanned records for review.
func (r *ScanResult) Groups() []model.Group {
	return GroupOutliers(r.Records)
}

// Detector scans the recorder for outliers.
type Detector struct {
	store    service.StateReader
	progress Progress
	logger   *slog.Logger
	cfg      Config
}

// Option configures a Detector.
type Option func(*Detector)

// WithProgress reports per-source progress to p.
func WithProgress(p Progress) Option {
	return func(d *Detector) {
		if p != nil {
			d.progress = p
		}
	}
}

// WithLogger sets the logger used for skipped sources.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDetector creates a detector reading from store.
func NewDetector(store service.StateReader, cfg Config, opts ...Option) (*Detector, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", common.ErrMissingConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{
		store:    store,
		cfg:      cfg,
		progress: noopProgress{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Candidates lists the sources whose latest state is numeric.
func (d *Detector) Candidates(ctx context.Context) ([]model.CandidateSource, error) {
	sources, err := d.store.ListSources(ctx, d.cfg.Prefixes)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate sources: %w", err)
	}

	candidates := make([]model.CandidateSource, 0, len(sources))
	for _, s := range sources {
		if s.IsNumeric() {
			candidates = append(candidates, s)
		}
	}
	return candidates, nil
}

// sourceResult is the private output slot of one worker.
type sourceResult struct {
	err       error
	records   []model.OutlierRecord
	qualified bool
}

// Scan computes statistics for every candidate, extracts outliers and returns
// them sorted by descending deviation.
func (d *Detector) Scan(ctx context.Context) (*ScanResult, error) {
	candidates, err := d.Candidates(ctx)
	if err != nil {
		return nil, err
	}

	if pool, ok := d.store.(service.PoolSizer); ok {
		pool.SetPoolSize(d.cfg.Workers)
		defer pool.SetPoolSize(1)
	}

	d.progress.Start(len(candidates))
	defer d.progress.Finish()

	results := make([]sourceResult, len(candidates))
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, d.cfg.Workers)
	var (
		wg        sync.WaitGroup
		abortOnce sync.Once
		abortErr  error
	)

	for i, candidate := range candidates {
		wg.Add(1)
		go func(idx int, source model.CandidateSource) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-scanCtx.Done():
				results[idx].err = scanCtx.Err()
				return
			}

			records, qualified, err := d.scanSource(scanCtx, source)
			results[idx] = sourceResult{records: records, qualified: qualified, err: err}
			if err != nil && d.cfg.FailFast {
				abortOnce.Do(func() {
					abortErr = fmt.Errorf("scan aborted at %s: %w", source.EntityID, err)
					cancel()
				})
			}
			d.progress.Advance(source.EntityID)
		}(i, candidate)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if abortErr != nil {
		return nil, abortErr
	}

	result := &ScanResult{Candidates: len(candidates)}
	for i, r := range results {
		entityID := candidates[i].EntityID
		if r.err != nil {
			d.logger.Warn("Skipping source after query failure",
				"entity_id", entityID,
				"error", r.err)
			result.Failures = append(result.Failures, SourceFailure{EntityID: entityID, Err: r.err})
			continue
		}
		if r.qualified {
			result.Qualified++
		}
		result.Records = append(result.Records, r.records...)
	}

	SortRecords(result.Records)

	d.logger.Debug("Scan complete",
		"candidates", result.Candidates,
		"qualified", result.Qualified,
		"outliers", len(result.Records),
		"failures", len(result.Failures))

	return result, nil
}

func (d *Detector) scanSource(ctx context.Context, source model.CandidateSource) ([]model.OutlierRecord, bool, error) {
	if d.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.QueryTimeout)
		defer cancel()
	}

	stats, err := d.store.SourceStats(ctx, source)
	if err != nil {
		return nil, false, err
	}
	if !stats.Qualifies(d.cfg.MinSamples) {
		return nil, false, nil
	}

	lower, upper := Bounds(stats, d.cfg.Sigma)
	samples, err := d.store.SamplesOutside(ctx, source.SourceID, lower, upper)
	if err != nil {
		return nil, true, err
	}

	return Extract(stats, samples, d.cfg), true, nil
}
