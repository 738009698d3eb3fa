package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/ha-outliers/internal/detect"
	"github.com/Veraticus/ha-outliers/internal/model"
)

// Format is an output format for scan results.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, json or yaml)", s)
	}
}

// GroupReport is the exported view of one group.
type GroupReport struct {
	Latest        time.Time `json:"latest" yaml:"latest"`
	EntityID      string    `json:"entity_id" yaml:"entity_id"`
	Direction     string    `json:"direction" yaml:"direction"`
	RecordIDs     []int64   `json:"record_ids" yaml:"record_ids"`
	Number        int       `json:"number" yaml:"number"`
	Band          int       `json:"band" yaml:"band"`
	Value         float64   `json:"value" yaml:"value"`
	MinValue      float64   `json:"min_value" yaml:"min_value"`
	MaxValue      float64   `json:"max_value" yaml:"max_value"`
	Mean          float64   `json:"mean" yaml:"mean"`
	LowerBound    float64   `json:"lower_bound" yaml:"lower_bound"`
	UpperBound    float64   `json:"upper_bound" yaml:"upper_bound"`
	Deviation     float64   `json:"deviation" yaml:"deviation"`
	SamplePercent float64   `json:"sample_percent" yaml:"sample_percent"`
	Count         int       `json:"count" yaml:"count"`
	TotalSamples  int64     `json:"total_samples" yaml:"total_samples"`
}

// FailureReport names a source skipped during the scan.
type FailureReport struct {
	EntityID string `json:"entity_id" yaml:"entity_id"`
	Error    string `json:"error" yaml:"error"`
}

// ScanReport is the exported result of a scan.
type ScanReport struct {
	GeneratedAt time.Time       `json:"generated_at" yaml:"generated_at"`
	Groups      []GroupReport   `json:"groups" yaml:"groups"`
	Failures    []FailureReport `json:"failures,omitempty" yaml:"failures,omitempty"`
	Sigma       float64         `json:"sigma" yaml:"sigma"`
	Candidates  int             `json:"candidates" yaml:"candidates"`
	Qualified   int             `json:"qualified" yaml:"qualified"`
	Outliers    int             `json:"outliers" yaml:"outliers"`
}

// NewScanReport builds the export view of a scan.
func NewScanReport(result *detect.ScanResult, groups []model.Group, sigma float64, now time.Time) ScanReport {
	rep := ScanReport{
		GeneratedAt: now.UTC(),
		Sigma:       sigma,
		Candidates:  result.Candidates,
		Qualified:   result.Qualified,
		Outliers:    len(result.Records),
		Groups:      make([]GroupReport, 0, len(groups)),
	}

	for i := range groups {
		g := &groups[i]
		latest := g.LatestTimestamp()
		if !latest.IsZero() {
			latest = latest.UTC()
		}
		rep.Groups = append(rep.Groups, GroupReport{
			Number:        i + 1,
			EntityID:      g.EntityID,
			Direction:     string(g.Key.Direction),
			Band:          g.Key.Band,
			RecordIDs:     g.MemberIDs,
			Value:         g.Value,
			MinValue:      g.MinValue,
			MaxValue:      g.MaxValue,
			Mean:          g.Mean,
			LowerBound:    g.LowerBound,
			UpperBound:    g.UpperBound,
			Deviation:     g.Deviation,
			Count:         g.Count(),
			TotalSamples:  g.TotalSamples,
			SamplePercent: g.SamplePercent(),
			Latest:        latest,
		})
	}

	for _, f := range result.Failures {
		rep.Failures = append(rep.Failures, FailureReport{EntityID: f.EntityID, Error: f.Err.Error()})
	}
	return rep
}

// Write renders rep to w in the given format.
func Write(w io.Writer, format Format, rep ScanReport, groups []model.Group) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTable, "":
		if len(groups) == 0 {
			_, err := fmt.Fprintln(w, "No outliers found.")
			return err
		}
		_, err := fmt.Fprintf(w, "%s\n%s\n", FormatSummary(rep.Outliers, len(groups)), RenderGroups(groups, TableOptions{}))
		if err != nil {
			return err
		}
		for _, f := range rep.Failures {
			if _, err := fmt.Fprintf(w, "skipped %s: %s\n", f.EntityID, f.Error); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
