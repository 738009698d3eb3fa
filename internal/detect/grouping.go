package detect

import (
	"math"
	"sort"

	"github.com/Veraticus/ha-outliers/internal/model"
)

// BandWidth returns the width of the deviation band: 1σ up to 10σ, 2σ up to 20σ, 5σ beyond.
func BandWidth(deviation float64) int {
	switch {
	case deviation < 10:
		return 1
	case deviation < 20:
		return 2
	default:
		return 5
	}
}

// Band returns the lower edge of the deviation band containing deviation.
func Band(deviation float64) int {
	w := BandWidth(deviation)
	return int(math.Floor(deviation/float64(w))) * w
}

// DirectionOf reports on which side of the mean a value lies.
func DirectionOf(value, mean float64) model.Direction {
	if value > mean {
		return model.DirectionAbove
	}
	return model.DirectionBelow
}

// KeyOf returns the group key of a record.
func KeyOf(r model.OutlierRecord) model.GroupKey {
	return model.GroupKey{
		SourceID:  r.SourceID,
		Band:      Band(r.Deviation),
		Direction: DirectionOf(r.Value, r.Mean),
	}
}

// GroupOutliers partitions records by (source, band, direction). Records must be
// sorted by descending deviation so each group's representative is its most
// extreme member. Groups are returned by descending representative deviation.
func GroupOutliers(records []model.OutlierRecord) []model.Group {
	index := make(map[model.GroupKey]int)
	var groups []model.Group

	for _, r := range records {
		key := KeyOf(r)
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, model.Group{
				Key:          key,
				EntityID:     r.EntityID,
				Value:        r.Value,
				MinValue:     r.Value,
				MaxValue:     r.Value,
				Deviation:    r.Deviation,
				Mean:         r.Mean,
				LowerBound:   r.LowerBound,
				UpperBound:   r.UpperBound,
				TotalSamples: r.TotalSamples,
			})
			i = len(groups) - 1
		}

		g := &groups[i]
		g.MemberIDs = append(g.MemberIDs, r.RecordID)
		g.MemberTimestamps = append(g.MemberTimestamps, r.Timestamp)
		g.MemberValues = append(g.MemberValues, r.Value)
		g.MinValue = math.Min(g.MinValue, r.Value)
		g.MaxValue = math.Max(g.MaxValue, r.Value)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		ga, gb := groups[a], groups[b]
		if ga.Deviation != gb.Deviation {
			return ga.Deviation > gb.Deviation
		}
		if ga.EntityID != gb.EntityID {
			return ga.EntityID < gb.EntityID
		}
		return ga.Key.Band > gb.Key.Band
	})

	return groups
}

// SortRecords orders records by descending deviation with deterministic tie-breaks.
func SortRecords(records []model.OutlierRecord) {
	sort.SliceStable(records, func(a, b int) bool {
		ra, rb := records[a], records[b]
		if ra.Deviation != rb.Deviation {
			return ra.Deviation > rb.Deviation
		}
		if ra.EntityID != rb.EntityID {
			return ra.EntityID < rb.EntityID
		}
		return ra.RecordID < rb.RecordID
	})
}
