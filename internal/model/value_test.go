package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name   string
		state  string
		want   float64
		wantOK bool
	}{
		{name: "integer", state: "42", want: 42, wantOK: true},
		{name: "decimal", state: "21.5", want: 21.5, wantOK: true},
		{name: "negative", state: "-3.25", want: -3.25, wantOK: true},
		{name: "surrounding whitespace", state: " 7 ", want: 7, wantOK: true},
		{name: "unavailable", state: "unavailable"},
		{name: "unknown", state: "unknown"},
		{name: "empty", state: ""},
		{name: "text", state: "on"},
		{name: "nan", state: "NaN"},
		{name: "infinity", state: "inf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseValue(tt.state)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-12)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "20", FormatValue(20))
	assert.Equal(t, "21.75", FormatValue(21.75))
	assert.Equal(t, "-0.001", FormatValue(-0.001))
}

func TestSourceStats_Qualifies(t *testing.T) {
	assert.True(t, SourceStats{SampleCount: 200, StdDev: 1}.Qualifies(200))
	assert.False(t, SourceStats{SampleCount: 199, StdDev: 1}.Qualifies(200))
	assert.False(t, SourceStats{SampleCount: 500, StdDev: 0}.Qualifies(200))
}

func TestGroup_Helpers(t *testing.T) {
	older := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	g := Group{
		MemberIDs:        []int64{1, 2},
		MemberTimestamps: []time.Time{newer, older},
		MemberValues:     []float64{40, 42},
		MinValue:         40,
		MaxValue:         42,
		TotalSamples:     400,
	}

	assert.Equal(t, 2, g.Count())
	assert.True(t, g.IsRange())
	assert.Equal(t, newer, g.LatestTimestamp())
	assert.InDelta(t, 0.5, g.SamplePercent(), 1e-9)

	empty := Group{}
	assert.True(t, empty.LatestTimestamp().IsZero())
	assert.Zero(t, empty.SamplePercent())
}
