package report

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Veraticus/ha-outliers/internal/model"
)

// RemovedLabel replaces the cells of a group that was already corrected.
const RemovedLabel = "(removed)"

// Columns of the group table.
var Columns = []string{"#", "Entity", "Value", "Mean", "Dev", "Count", "Latest"}

// TableOptions tune RenderGroups.
type TableOptions struct {
	Style *table.Style
	// FirstNumber is the 1-based number of the first group.
	FirstNumber int
	// Width caps the rendered width; zero means unlimited.
	Width int
}

// GroupRow returns the cells for one group. Removed groups keep only their number.
func GroupRow(number int, g *model.Group) []string {
	if g.Removed {
		return []string{strconv.Itoa(number), RemovedLabel, "", "", "", "", ""}
	}
	return []string{
		strconv.Itoa(number),
		g.EntityID,
		FormatValueRange(g),
		FormatNumber(g.Mean),
		FormatDeviation(g.Deviation),
		FormatCount(g),
		FormatTimestamp(g.LatestTimestamp()),
	}
}

// RenderGroups renders groups as a table.
func RenderGroups(groups []model.Group, opts TableOptions) string {
	if opts.FirstNumber <= 0 {
		opts.FirstNumber = 1
	}

	tw := table.NewWriter()
	if opts.Style != nil {
		tw.SetStyle(*opts.Style)
	} else {
		tw.SetStyle(table.StyleRounded)
	}
	tw.Style().Format.Header = text.FormatDefault
	if opts.Width > 0 {
		tw.SetAllowedRowLength(opts.Width)
	}

	header := make(table.Row, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	tw.AppendHeader(header)

	for i := range groups {
		cells := GroupRow(opts.FirstNumber+i, &groups[i])
		row := make(table.Row, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		tw.AppendRow(row)
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 7, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}
