package model

import "time"

// Direction tells on which side of the mean an outlier lies.
type Direction string

// Direction constants.
const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

// GroupKey identifies a group. At most one group exists per key.
type GroupKey struct {
	Direction Direction
	SourceID  int64
	Band      int
}

// Group collects the outlier records of one source sharing a deviation band and direction.
// Representative fields come from the most extreme member.
type Group struct {
	Key              GroupKey
	EntityID         string
	MemberIDs        []int64
	MemberTimestamps []time.Time
	MemberValues     []float64
	TotalSamples     int64
	Value            float64
	MinValue         float64
	MaxValue         float64
	Deviation        float64
	Mean             float64
	LowerBound       float64
	UpperBound       float64
	Removed          bool
}

// Count returns the number of member records.
func (g *Group) Count() int {
	return len(g.MemberIDs)
}

// IsRange reports whether the members span more than one value.
func (g *Group) IsRange() bool {
	return g.MinValue != g.MaxValue
}

// LatestTimestamp returns the newest member timestamp, or the zero time if none is known.
func (g *Group) LatestTimestamp() time.Time {
	var latest time.Time
	for _, ts := range g.MemberTimestamps {
		if ts.After(latest) {
			latest = ts
		}
	}
	return latest
}

// SamplePercent returns the share of the source's samples held by this group.
func (g *Group) SamplePercent() float64 {
	if g.TotalSamples == 0 {
		return 0
	}
	return float64(g.Count()) * 100 / float64(g.TotalSamples)
}
