package chart

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const missingCell = "-"

// RenderTable writes the view as aligned text columns: the date and one
// column per series. A date without a value for a series shows "-".
func RenderTable(w io.Writer, view View) error {
	if view.Empty() {
		return nil
	}
	headers := make([]string, 0, len(view.Series)+1)
	headers = append(headers, "Date")
	rightAlign := map[int]bool{}
	for i, s := range view.Series {
		headers = append(headers, s.Label)
		rightAlign[i+1] = true
	}
	rows := make([][]string, 0, len(view.Rows))
	for _, row := range view.Rows {
		cells := make([]string, 0, len(headers))
		cells = append(cells, FormatTooltipDate(row.Date))
		for _, s := range view.Series {
			v, ok := row.Value(s.Label)
			if !ok {
				cells = append(cells, missingCell)
				continue
			}
			cells = append(cells, FormatCount(v))
		}
		rows = append(rows, cells)
	}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = runewidth.StringWidth(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlignCols))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	var b strings.Builder
	for i := 0; i < len(widths); i++ {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(padCell(cell, widths[i], rightAlignCols[i]))
	}
	return strings.TrimRight(b.String(), " ")
}

func padCell(value string, width int, rightAlign bool) string {
	if rightAlign {
		return runewidth.FillLeft(value, width)
	}
	return runewidth.FillRight(value, width)
}
