// Package model defines the core domain models used throughout the application.
package model

import "math"

// CandidateSource is a recorder entity that may carry numeric history.
type CandidateSource struct {
	EntityID    string
	RecentState string // Latest valid state, used only to classify the entity as numeric
	SourceID    int64
}

// IsNumeric reports whether the latest state of the source parses as a number.
func (c CandidateSource) IsNumeric() bool {
	_, ok := ParseValue(c.RecentState)
	return ok
}

// SourceStats holds population statistics over the valid samples of one source.
type SourceStats struct {
	EntityID    string
	SourceID    int64
	SampleCount int64
	Mean        float64
	StdDev      float64
}

// Qualifies reports whether the statistics carry enough signal for outlier detection.
// Sources that do not qualify are skipped, not treated as failures.
func (s SourceStats) Qualifies(minSamples int64) bool {
	if s.SampleCount < minSamples {
		return false
	}
	if math.IsNaN(s.StdDev) || math.IsInf(s.StdDev, 0) || s.StdDev <= 0 {
		return false
	}
	return !math.IsNaN(s.Mean) && !math.IsInf(s.Mean, 0)
}
