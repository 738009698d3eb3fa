package detect

import (
	"math"
	"strconv"

	"github.com/Veraticus/ha-outliers/internal/model"
)

// quantizeDigits is the number of significant digits used to bucket near-equal values.
const quantizeDigits = 6

// Bounds returns the normal range [mean - sigma*std, mean + sigma*std].
func Bounds(stats model.SourceStats, sigma float64) (lower, upper float64) {
	return stats.Mean - sigma*stats.StdDev, stats.Mean + sigma*stats.StdDev
}

// Deviation returns how many standard deviations value lies from the mean.
func Deviation(value float64, stats model.SourceStats) float64 {
	if stats.StdDev == 0 {
		return 0
	}
	return math.Abs(value-stats.Mean) / stats.StdDev
}

// QuantizeKey buckets a value to a fixed number of significant digits.
func QuantizeKey(value float64) string {
	return strconv.FormatFloat(value, 'g', quantizeDigits, 64)
}

// Extract turns the out-of-range samples of one source into outlier records,
// dropping values that recur too often to be anomalies.
func Extract(stats model.SourceStats, samples []model.Sample, cfg Config) []model.OutlierRecord {
	if len(samples) == 0 {
		return nil
	}

	lower, upper := Bounds(stats, cfg.Sigma)
	records := make([]model.OutlierRecord, 0, len(samples))
	for _, s := range samples {
		dev := Deviation(s.Value, stats)
		// The store filters by range already; guard against casts that round onto the bound.
		if dev < cfg.Sigma {
			continue
		}
		records = append(records, model.OutlierRecord{
			RecordID:     s.RecordID,
			SourceID:     stats.SourceID,
			EntityID:     stats.EntityID,
			Value:        s.Value,
			Timestamp:    s.Timestamp,
			Deviation:    dev,
			Mean:         stats.Mean,
			LowerBound:   lower,
			UpperBound:   upper,
			TotalSamples: stats.SampleCount,
		})
	}

	return FilterFrequent(records, stats.SampleCount, cfg.FrequencyThreshold)
}

// FilterFrequent removes records whose quantized value occurs among the records
// more than totalSamples*threshold times.
func FilterFrequent(records []model.OutlierRecord, totalSamples int64, threshold float64) []model.OutlierRecord {
	counts := make(map[string]int, len(records))
	for _, r := range records {
		counts[QuantizeKey(r.Value)]++
	}

	limit := float64(totalSamples) * threshold
	kept := make([]model.OutlierRecord, 0, len(records))
	for _, r := range records {
		if float64(counts[QuantizeKey(r.Value)]) > limit {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
