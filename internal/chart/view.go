// Package chart shapes the merged download table into what the terminal
// views draw: a windowed row slice, one series descriptor per selected
// package, axis and tooltip formatters and a braille line plot.
package chart

import (
	"github.com/verte-zerg/snakestats/internal/model"
	"github.com/verte-zerg/snakestats/internal/selection"
)

// DefaultWindow is the number of trailing rows shown when none is chosen.
const DefaultWindow = 180

// WindowOptions are the selectable window sizes in days.
var WindowOptions = []int{30, 90, 180}

// Palette is the series color cycle, as hex RGB.
var Palette = []string{
	"#3b82f6",
	"#ef4444",
	"#22c55e",
	"#d946ef",
	"#eab308",
	"#06b6d4",
}

// SeriesDescriptor names one plotted line.
type SeriesDescriptor struct {
	Label string
	Color string
}

// View is the data a chart is drawn from.
type View struct {
	Rows   model.Table
	Series []SeriesDescriptor
}

// Empty reports whether there is nothing to draw.
func (v View) Empty() bool {
	return len(v.Series) == 0
}

// Present selects the last windowDays rows of table and assigns each selected
// package a palette color by position. The row order of table is kept, so the
// window is taken by insertion order unless the table was sorted beforehand.
// An empty selection yields an empty view.
func Present(table model.Table, sel selection.Set, windowDays int) View {
	if len(sel) == 0 {
		return View{}
	}
	rows := table
	if windowDays > 0 && len(rows) > windowDays {
		rows = rows[len(rows)-windowDays:]
	}
	series := make([]SeriesDescriptor, len(sel))
	for i, id := range sel {
		series[i] = SeriesDescriptor{
			Label: id,
			Color: Palette[i%len(Palette)],
		}
	}
	return View{Rows: rows, Series: series}
}

// ValidWindow reports whether days is one of WindowOptions.
func ValidWindow(days int) bool {
	for _, option := range WindowOptions {
		if option == days {
			return true
		}
	}
	return false
}

// NextWindow returns the option after days, wrapping around. Unknown values
// go to the first option.
func NextWindow(days int) int {
	for i, option := range WindowOptions {
		if option == days {
			return WindowOptions[(i+1)%len(WindowOptions)]
		}
	}
	return WindowOptions[0]
}
