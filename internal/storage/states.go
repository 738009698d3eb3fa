package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/Veraticus/ha-outliers/internal/model"
)

// ListSources returns recorder entities matching any of the prefixes with their latest valid state.
func (s *SQLStorage) ListSources(ctx context.Context, prefixes []string) ([]model.CandidateSource, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePrefixes(prefixes); err != nil {
		return nil, err
	}

	args := make([]any, len(prefixes))
	for i, p := range prefixes {
		args[i] = likePrefix(p)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.listSourcesQuery(len(prefixes)), args...)
	if err != nil {
		return nil, wrapErr("failed to list sources", err)
	}
	defer func() { _ = rows.Close() }()

	var sources []model.CandidateSource
	for rows.Next() {
		var (
			src    model.CandidateSource
			recent sql.NullString
		)
		if err := rows.Scan(&src.SourceID, &src.EntityID, &recent); err != nil {
			return nil, wrapErr("failed to scan source", err)
		}
		src.RecentState = recent.String
		sources = append(sources, src)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to iterate sources", err)
	}
	return sources, nil
}

// SourceStats computes count, mean and population standard deviation over the
// valid samples of a source.
func (s *SQLStorage) SourceStats(ctx context.Context, source model.CandidateSource) (model.SourceStats, error) {
	stats := model.SourceStats{SourceID: source.SourceID, EntityID: source.EntityID}
	if err := validateContext(ctx); err != nil {
		return stats, err
	}

	var (
		mean   sql.NullFloat64
		stddev sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, s.dialect.statsQuery(), source.SourceID).
		Scan(&stats.SampleCount, &mean, &stddev)
	if err != nil {
		return stats, wrapErr(fmt.Sprintf("failed to compute statistics for %s", source.EntityID), err)
	}
	if !mean.Valid || stats.SampleCount == 0 {
		return stats, nil
	}
	stats.Mean = mean.Float64

	if s.dialect.nativeStddev {
		stats.StdDev = stddev.Float64
		return stats, nil
	}

	var variance sql.NullFloat64
	err = s.db.QueryRowContext(ctx, s.dialect.varianceQuery(), stats.Mean, stats.Mean, source.SourceID).
		Scan(&variance)
	if err != nil {
		return stats, wrapErr(fmt.Sprintf("failed to compute variance for %s", source.EntityID), err)
	}
	if variance.Valid && variance.Float64 > 0 {
		stats.StdDev = math.Sqrt(variance.Float64)
	}
	return stats, nil
}

// SamplesOutside returns the valid samples of a source lying outside [lower, upper].
func (s *SQLStorage) SamplesOutside(ctx context.Context, sourceID int64, lower, upper float64) ([]model.Sample, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateRange(lower, upper); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.outsideQuery(), sourceID, lower, upper)
	if err != nil {
		return nil, wrapErr("failed to query samples", err)
	}
	defer func() { _ = rows.Close() }()

	var samples []model.Sample
	for rows.Next() {
		var (
			sample model.Sample
			ts     sql.NullFloat64
		)
		if err := rows.Scan(&sample.RecordID, &sample.Value, &ts); err != nil {
			return nil, wrapErr("failed to scan sample", err)
		}
		if ts.Valid {
			sample.Timestamp = fromUnixSeconds(ts.Float64)
		}
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to iterate samples", err)
	}
	return samples, nil
}

// fromUnixSeconds converts the recorder's fractional epoch timestamps.
func fromUnixSeconds(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9))
}
