// Package model defines shared data structures.
package model

import (
	"sort"
	"time"
)

// DateLayout is the calendar date format used by the stats source.
const DateLayout = "2006-01-02"

// DashboardConfig defines dashboard settings.
type DashboardConfig struct {
	MaxPackages int
	WindowDays  int
	SortByDate  bool
}

// SourceConfig defines how the stats source is reached.
type SourceConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// SeriesPoint is one daily download count as reported by the source.
// A source may emit several points per date, distinguished by Category.
type SeriesPoint struct {
	Category  string
	Date      time.Time
	Downloads int64
}

// PackageSeries is the validated result of one successful fetch.
type PackageSeries struct {
	// Package is the identifier the series was requested for.
	Package string
	// Reported is the package name echoed back by the source.
	Reported string
	Type     string
	Points   []SeriesPoint
}

// Row is one date of the merged table. Downloads holds an entry only for
// packages that have a point on that date.
type Row struct {
	Date      time.Time
	Downloads map[string]int64
}

// Timestamp returns the row date as epoch milliseconds.
func (r Row) Timestamp() int64 {
	return r.Date.UnixMilli()
}

// Value returns the downloads for pkg and whether the row has an entry.
func (r Row) Value(pkg string) (int64, bool) {
	v, ok := r.Downloads[pkg]
	return v, ok
}

// Table is the merged time series, one row per distinct date.
type Table []Row

// Columns returns the sorted set of packages present in any row.
func (t Table) Columns() []string {
	seen := map[string]struct{}{}
	for _, row := range t {
		for pkg := range row.Downloads {
			seen[pkg] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for pkg := range seen {
		cols = append(cols, pkg)
	}
	sort.Strings(cols)
	return cols
}

// SortedByDate returns a chronologically ordered copy of the table.
func (t Table) SortedByDate() Table {
	out := append(Table(nil), t...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
