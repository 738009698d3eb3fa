package model

import "time"

// Sample is a single stored measurement returned by a range query.
type Sample struct {
	Timestamp time.Time
	RecordID  int64
	Value     float64
}

// OutlierRecord is a sample that lies outside its source's normal range.
type OutlierRecord struct {
	Timestamp    time.Time
	EntityID     string
	RecordID     int64
	SourceID     int64
	TotalSamples int64
	Value        float64
	Deviation    float64 // |Value - Mean| / StdDev
	Mean         float64
	LowerBound   float64
	UpperBound   float64
}
