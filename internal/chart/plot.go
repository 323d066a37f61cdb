package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

type lineStyle struct {
	name   string
	period int
	on     int
}

const (
	defaultPlotHeight   = 12
	minPlotWidth        = 10
	axisLabelWidth      = 6
	axisSeparator       = " │ "
	cursorRune          = '│'
	legendMarker        = '●'
	colorReset          = "\x1b[0m"
	colorDim            = "\x1b[2m"
	terminalWidthBackup = 80
)

var lineStyles = []lineStyle{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dotted", period: 4, on: 1},
	{name: "dashdot", period: 8, on: 3},
}

// PlotOptions controls how a view is drawn.
type PlotOptions struct {
	Title  string
	Width  int
	Height int
	// Color forces ANSI colors even when w is not a terminal.
	Color bool
	// Cursor is the index into the view rows to mark, or -1 for none.
	Cursor int
}

// Plot renders the view as a braille line chart. All series share one y scale
// starting at zero. Dates without a value for a series leave a gap in its line.
// An empty view writes nothing.
func Plot(w io.Writer, view View, opts PlotOptions) error {
	if view.Empty() || len(view.Rows) == 0 {
		return nil
	}
	useColor := shouldUseColor(w, opts.Color)
	lines := plotLines(view, opts, useColor)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// PlotString renders the view into a string. Color is used only when
// opts.Color is set.
func PlotString(view View, opts PlotOptions) string {
	if view.Empty() || len(view.Rows) == 0 {
		return ""
	}
	return strings.Join(plotLines(view, opts, opts.Color && os.Getenv("NO_COLOR") == ""), "\n")
}

func plotLines(view View, opts PlotOptions, useColor bool) []string {
	height := opts.Height
	if height <= 0 {
		height = defaultPlotHeight
	}
	width := opts.Width
	if width <= 0 {
		width = autoPlotWidth()
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	rowCount := len(view.Rows)
	maxVal := 0.0
	columns := make([][]float64, len(view.Series))
	for si, s := range view.Series {
		values := make([]float64, rowCount)
		for i, row := range view.Rows {
			v, ok := row.Value(s.Label)
			if !ok {
				values[i] = math.NaN()
				continue
			}
			values[i] = float64(v)
			if values[i] > maxVal {
				maxVal = values[i]
			}
		}
		columns[si] = resampleWithGaps(values, width)
	}
	if maxVal <= 0 {
		maxVal = 1
	}

	seriesCells := make([][][]uint8, len(columns))
	for si, values := range columns {
		cells := makeCells(height, width)
		style := lineStyles[si%len(lineStyles)]
		prevX, prevY := -1, -1
		for x, v := range values {
			if math.IsNaN(v) {
				prevX, prevY = -1, -1
				continue
			}
			px := x * 2
			py := valueToRow(v, 0, maxVal, height*4)
			if prevX >= 0 {
				drawLine(prevX, prevY, px, py, func(dx, dy int) {
					if style.shouldPlot(dx) {
						setBrailleDot(cells, dx, dy)
					}
				})
			} else {
				setBrailleDot(cells, px, py)
			}
			prevX, prevY = px, py
		}
		seriesCells[si] = cells
	}

	cursorX := -1
	if opts.Cursor >= 0 && opts.Cursor < rowCount {
		cursorX = ColumnFor(opts.Cursor, rowCount, width)
	}

	axisLabels := makeAxisLabels(height, maxVal)
	lines := make([]string, 0, height+4)
	if opts.Title != "" {
		lines = append(lines, opts.Title)
	}
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(fmt.Sprintf("%*s%s", axisLabelWidth, axisLabels[y], axisSeparator))
		for x := 0; x < width; x++ {
			mask, seriesIdx := composeCell(seriesCells, x, y)
			switch {
			case mask == 0 && x == cursorX:
				if useColor {
					row.WriteString(colorDim)
					row.WriteRune(cursorRune)
					row.WriteString(colorReset)
				} else {
					row.WriteRune(cursorRune)
				}
			case useColor && seriesIdx >= 0:
				row.WriteString(ansiFromHex(view.Series[seriesIdx].Color))
				row.WriteRune(brailleFromMask(mask))
				row.WriteString(colorReset)
			default:
				row.WriteRune(brailleFromMask(mask))
			}
		}
		lines = append(lines, row.String())
	}
	lines = append(lines, strings.Repeat(" ", axisLabelWidth+utf8.RuneCountInString(axisSeparator))+tickLine(view, width))
	lines = append(lines, renderLegend(view.Series, useColor))
	return lines
}

// ColumnFor maps a row index to the plot column it is drawn in.
func ColumnFor(index, rowCount, width int) int {
	if rowCount <= 1 || width <= 1 {
		return 0
	}
	if rowCount >= width {
		x := index * width / rowCount
		if x >= width {
			x = width - 1
		}
		return x
	}
	return int(math.Round(float64(index) * float64(width-1) / float64(rowCount-1)))
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	plotWidth := totalWidth - axisLabelWidth - utf8.RuneCountInString(axisSeparator)
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

func autoPlotWidth() int {
	return PlotWidthFor(terminalWidth())
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func ansiFromHex(hex string) string {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return ""
	}
	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", rgb>>16&0xff, rgb>>8&0xff, rgb&0xff)
}

func makeAxisLabels(height int, maxVal float64) []string {
	labels := make([]string, height)
	if height <= 0 {
		return labels
	}
	labels[0] = FormatCompact(maxVal)
	if height > 2 {
		labels[height/2] = FormatCompact(maxVal / 2)
	}
	if height > 1 {
		labels[height-1] = "0"
	}
	return labels
}

// tickLine places the first, middle and last dates under their columns.
func tickLine(view View, width int) string {
	line := []rune(strings.Repeat(" ", width))
	n := len(view.Rows)
	indexes := []int{0}
	if n > 2 {
		indexes = append(indexes, n/2)
	}
	if n > 1 {
		indexes = append(indexes, n-1)
	}
	next := 0
	for _, idx := range indexes {
		label := []rune(FormatTick(view.Rows[idx].Date))
		start := ColumnFor(idx, n, width) - len(label)/2
		if start+len(label) > width {
			start = width - len(label)
		}
		if start < next {
			start = next
		}
		if start < 0 || start+len(label) > width {
			continue
		}
		copy(line[start:], label)
		next = start + len(label) + 1
	}
	return strings.TrimRight(string(line), " ")
}

func makeCells(height, width int) [][]uint8 {
	cells := make([][]uint8, height)
	for y := 0; y < height; y++ {
		cells[y] = make([]uint8, width)
	}
	return cells
}

func composeCell(seriesCells [][][]uint8, x, y int) (uint8, int) {
	var mask uint8
	seriesIdx := -1
	for i, cells := range seriesCells {
		if y < 0 || y >= len(cells) {
			continue
		}
		if x < 0 || x >= len(cells[y]) {
			continue
		}
		cellMask := cells[y][x]
		if cellMask == 0 {
			continue
		}
		if seriesIdx == -1 {
			seriesIdx = i
		}
		mask |= cellMask
	}
	return mask, seriesIdx
}

func (ls lineStyle) shouldPlot(x int) bool {
	if ls.period <= 1 {
		return true
	}
	if x < 0 {
		x = -x
	}
	return x%ls.period < ls.on
}

// resampleWithGaps fits values to width columns. NaN marks a missing value.
// Downsampling averages the present values in each bucket; upsampling
// interpolates only between two present neighbours.
func resampleWithGaps(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	out := make([]float64, width)
	n := len(values)
	if n >= width {
		for i := 0; i < width; i++ {
			start := i * n / width
			end := (i + 1) * n / width
			if end <= start {
				end = start + 1
			}
			var sum float64
			count := 0
			for _, v := range values[start:end] {
				if math.IsNaN(v) {
					continue
				}
				sum += v
				count++
			}
			if count == 0 {
				out[i] = math.NaN()
				continue
			}
			out[i] = sum / float64(count)
		}
		return out
	}
	if n == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	for i := 0; i < width; i++ {
		pos := float64(i) * float64(n-1) / float64(width-1)
		idx := int(math.Floor(pos))
		if idx >= n-1 {
			out[i] = values[n-1]
			continue
		}
		frac := pos - float64(idx)
		a, b := values[idx], values[idx+1]
		switch {
		case frac == 0:
			out[i] = a
		case math.IsNaN(a) || math.IsNaN(b):
			out[i] = math.NaN()
		default:
			out[i] = a*(1-frac) + b*frac
		}
	}
	return out
}

func valueToRow(v, minVal, maxVal float64, height int) int {
	if height <= 1 {
		return 0
	}
	pos := (v - minVal) / (maxVal - minVal)
	row := int(math.Round((1 - pos) * float64(height-1)))
	if row < 0 {
		row = 0
	}
	if row >= height {
		row = height - 1
	}
	return row
}

func renderLegend(series []SeriesDescriptor, useColor bool) string {
	parts := make([]string, 0, len(series))
	for i, s := range series {
		label := fmt.Sprintf("%c %s (%s)", legendMarker, s.Label, lineStyles[i%len(lineStyles)].name)
		if useColor {
			label = ansiFromHex(s.Color) + label + colorReset
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "  ")
}

func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			if x0 == x1 {
				break
			}
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			if y0 == y1 {
				break
			}
			err += dx
			y0 += sy
		}
	}
}

func setBrailleDot(cells [][]uint8, x, y int) {
	if y < 0 || x < 0 {
		return
	}
	cellY := y / 4
	cellX := x / 2
	if cellY >= len(cells) || cellX >= len(cells[cellY]) {
		return
	}
	cells[cellY][cellX] |= brailleDotMask(x%2, y%4)
}

// brailleDotMask maps a dot within a 2x4 cell to its bit in U+2800.
func brailleDotMask(x, y int) uint8 {
	masks := [2][4]uint8{
		{0x01, 0x02, 0x04, 0x40},
		{0x08, 0x10, 0x20, 0x80},
	}
	if x < 0 || x > 1 || y < 0 || y > 3 {
		return 0
	}
	return masks[x][y]
}

func brailleFromMask(mask uint8) rune {
	return rune(0x2800 + int(mask))
}
