package formatter

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/desertthunder/unavoidables/internal/models"
)

// Alignment of a rendered column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// RenderTable draws a rounded terminal table. Short rows are padded with empty cells.
func RenderTable(headers []string, rows [][]string, aligns []Alignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == AlignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// CatalogRows renders the catalog as a table.
func CatalogRows(entries models.CatalogTable) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Week, e.Title, artistLine(e), string(e.Status), e.Identifier})
	}
	return RenderTable(
		[]string{"Week", "Title", "Artists", "Status", "Identifier"},
		rows,
		[]Alignment{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignLeft},
	)
}

// RunRows renders run history as a table.
func RunRows(runs []*models.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		finished := "running"
		if r.FinishedAt != nil {
			finished = r.Duration().Round(time.Second).String()
		}
		short := ""
		if r.ShortCircuited {
			short = "yes"
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			finished,
			strconv.Itoa(r.Scraped),
			strconv.Itoa(r.Added),
			fmt.Sprintf("%d/%d/%d", r.Resolved, r.Unresolved, r.Failed),
			strconv.Itoa(r.Synced),
			short,
		})
	}
	return RenderTable(
		[]string{"Started", "Took", "Scraped", "Added", "Res/Unres/Fail", "Synced", "No-op"},
		rows,
		[]Alignment{AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight, AlignLeft},
	)
}
