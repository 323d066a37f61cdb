package chart

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/snakestats/internal/model"
)

const (
	tickLayout    = "Jan 02"
	tooltipLayout = "Jan 2, 2006"
)

// FormatTick formats an axis date as "Jan 02".
func FormatTick(date time.Time) string {
	return date.UTC().Format(tickLayout)
}

// FormatTooltipDate formats a date as "Jan 2, 2024".
func FormatTooltipDate(date time.Time) string {
	return date.UTC().Format(tooltipLayout)
}

// FormatCount formats n with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

var compactSuffix = map[string]string{
	"":  "",
	"k": "K",
	"M": "M",
	"G": "B",
	"T": "T",
}

// FormatCompact formats n in short notation: 950, 1.2K, 3.4M, 1.1B.
func FormatCompact(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "-"
	}
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	// 999.95 and above round to 1000.0, so they take the prefix branch.
	if n < 999.95 {
		return sign + trimDecimal(fmt.Sprintf("%.1f", n))
	}
	value, prefix := humanize.ComputeSI(n)
	// A value that rounds to 1000 moves up a prefix: 1K, not 1000.
	if value >= 999.95 {
		value, prefix = humanize.ComputeSI(n * 1.0001)
	}
	suffix, ok := compactSuffix[prefix]
	if !ok {
		suffix = prefix
	}
	return sign + trimDecimal(fmt.Sprintf("%.1f", value)) + suffix
}

func trimDecimal(s string) string {
	return strings.TrimSuffix(s, ".0")
}

// Tooltip renders the hover text for a row: the date, then one line per series
// that has a value on that date.
func Tooltip(row model.Row, series []SeriesDescriptor) []string {
	lines := []string{FormatTooltipDate(row.Date)}
	for _, s := range series {
		v, ok := row.Value(s.Label)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", s.Label, FormatCount(v)))
	}
	return lines
}
