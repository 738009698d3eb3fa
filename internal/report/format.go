// Package report formats outlier groups for terminals and machine-readable exports.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Veraticus/ha-outliers/internal/model"
)

// TimestampLayout is how record timestamps are shown.
const TimestampLayout = "2006-01-02 15:04:05"

var printer = message.NewPrinter(language.English)

// FormatNumber renders n without scientific notation. Magnitudes of 1000 and
// above are rounded to integers with thousands separators; smaller values keep
// up to four decimals with trailing zeros trimmed.
func FormatNumber(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	if math.Abs(n) >= 1000 {
		return printer.Sprintf("%.0f", n)
	}
	s := strconv.FormatFloat(n, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// FormatTimestamp renders t in local time, or "N/A" for the zero time.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Local().Format(TimestampLayout)
}

// FormatAge renders how long before now t was, e.g. "3 days ago".
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// FormatValueRange renders a group's value, or "min → max" when members differ.
func FormatValueRange(g *model.Group) string {
	if g.IsRange() {
		return FormatNumber(g.MinValue) + " → " + FormatNumber(g.MaxValue)
	}
	return FormatNumber(g.Value)
}

// FormatDeviation renders a deviation in standard deviations.
func FormatDeviation(d float64) string {
	return fmt.Sprintf("%.1fσ", d)
}

// FormatCount renders the member count with its share of the source's samples.
func FormatCount(g *model.Group) string {
	if g.TotalSamples == 0 {
		return strconv.Itoa(g.Count())
	}
	return fmt.Sprintf("%d (%.1f%%)", g.Count(), g.SamplePercent())
}

// FormatSummary renders the "Found X outlier(s) in Y group(s)" header.
func FormatSummary(records, groups int) string {
	return fmt.Sprintf("Found %s outlier(s) in %s group(s)", humanize.Comma(int64(records)), humanize.Comma(int64(groups)))
}
