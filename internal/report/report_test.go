package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/ha-outliers/internal/detect"
	"github.com/Veraticus/ha-outliers/internal/model"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{42.3, "42.3"},
		{20, "20"},
		{0.123456, "0.1235"},
		{-3.5, "-3.5"},
		{999.99999, "1000"},
		{1000, "1,000"},
		{12345.6, "12,346"},
		{-1500, "-1,500"},
		{1e12, "1,000,000,000,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(tt.in), "%v", tt.in)
	}
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "N/A", FormatTimestamp(time.Time{}))

	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, ts.Local().Format(TimestampLayout), FormatTimestamp(ts))
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "3 days ago", FormatAge(now.Add(-72*time.Hour), now))
	assert.Equal(t, "N/A", FormatAge(time.Time{}, now))
}

func sampleGroup() model.Group {
	return model.Group{
		Key:              model.GroupKey{Direction: model.DirectionAbove, SourceID: 7, Band: 20},
		EntityID:         "sensor.outdoor",
		MemberIDs:        []int64{301, 302},
		MemberTimestamps: []time.Time{time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC)},
		MemberValues:     []float64{42.3, 41},
		TotalSamples:     300,
		Value:            42.3,
		MinValue:         41,
		MaxValue:         42.3,
		Deviation:        21.3,
		Mean:             20.07,
		LowerBound:       15.1,
		UpperBound:       25.1,
	}
}

func TestFormatGroupCells(t *testing.T) {
	g := sampleGroup()
	assert.Equal(t, "41 → 42.3", FormatValueRange(&g))
	assert.Equal(t, "2 (0.7%)", FormatCount(&g))
	assert.Equal(t, "21.3σ", FormatDeviation(g.Deviation))

	g.MinValue = 42.3
	assert.Equal(t, "42.3", FormatValueRange(&g))

	g.TotalSamples = 0
	assert.Equal(t, "2", FormatCount(&g))

	assert.Equal(t, "Found 1,204 outlier(s) in 3 group(s)", FormatSummary(1204, 3))
}

func TestGroupRowRemoved(t *testing.T) {
	g := sampleGroup()
	g.Removed = true
	row := GroupRow(4, &g)
	assert.Equal(t, []string{"4", RemovedLabel, "", "", "", "", ""}, row)
}

func TestRenderGroups(t *testing.T) {
	removed := sampleGroup()
	removed.Removed = true
	removed.EntityID = "sensor.fixed"

	out := RenderGroups([]model.Group{sampleGroup(), removed}, TableOptions{FirstNumber: 26})
	for _, col := range Columns {
		assert.Contains(t, out, col)
	}
	assert.NotContains(t, out, "LATEST", "headers keep their title case")
	assert.Contains(t, out, "sensor.outdoor")
	assert.Contains(t, out, "26")
	assert.Contains(t, out, "27")
	assert.Contains(t, out, RemovedLabel)
	assert.NotContains(t, out, "sensor.fixed")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"table": FormatTable, "JSON": FormatJSON, "yml": FormatYAML, " yaml ": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("csv")
	assert.Error(t, err)
}

func sampleReport() (ScanReport, []model.Group) {
	groups := []model.Group{sampleGroup()}
	result := &detect.ScanResult{
		Records:    make([]model.OutlierRecord, 2),
		Candidates: 5,
		Qualified:  3,
		Failures:   []detect.SourceFailure{{EntityID: "sensor.bad", Err: errors.New("timeout")}},
	}
	return NewScanReport(result, groups, 5, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)), groups
}

func TestWriteJSON(t *testing.T) {
	rep, groups := sampleReport()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, rep, groups))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.EqualValues(t, 2, decoded["outliers"])
	assert.EqualValues(t, 5, decoded["candidates"])

	list := decoded["groups"].([]any)
	require.Len(t, list, 1)
	first := list[0].(map[string]any)
	assert.Equal(t, "sensor.outdoor", first["entity_id"])
	assert.Equal(t, "above", first["direction"])
	assert.EqualValues(t, 20, first["band"])
	assert.EqualValues(t, 1, first["number"])

	failures := decoded["failures"].([]any)
	assert.Equal(t, "sensor.bad", failures[0].(map[string]any)["entity_id"])
}

func TestWriteYAML(t *testing.T) {
	rep, groups := sampleReport()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, rep, groups))

	var decoded struct {
		Groups []struct {
			EntityID  string  `yaml:"entity_id"`
			RecordIDs []int64 `yaml:"record_ids"`
		} `yaml:"groups"`
		Qualified int `yaml:"qualified"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 3, decoded.Qualified)
	require.Len(t, decoded.Groups, 1)
	assert.Equal(t, []int64{301, 302}, decoded.Groups[0].RecordIDs)
}

func TestWriteTable(t *testing.T) {
	rep, groups := sampleReport()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTable, rep, groups))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Found 2 outlier(s) in 1 group(s)"))
	assert.Contains(t, out, "sensor.outdoor")
	assert.Contains(t, out, "skipped sensor.bad: timeout")

	buf.Reset()
	require.NoError(t, Write(&buf, FormatTable, ScanReport{}, nil))
	assert.Equal(t, "No outliers found.\n", buf.String())
}
