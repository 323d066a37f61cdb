package chart

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/verte-zerg/snakestats/internal/model"
	"github.com/verte-zerg/snakestats/internal/selection"
)

func sampleView() View {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var table model.Table
	for i := 0; i < 20; i++ {
		row := model.Row{Date: start.AddDate(0, 0, i), Downloads: map[string]int64{"alpha": int64(1000 + i*100)}}
		if i%3 != 0 {
			row.Downloads["beta"] = int64(500 * i)
		}
		table = append(table, row)
	}
	return Present(table, selection.Set{"alpha", "beta"}, 30)
}

func TestPlot(t *testing.T) {
	var buf bytes.Buffer
	err := Plot(&buf, sampleView(), PlotOptions{Title: "Downloads", Width: 40, Height: 6, Cursor: -1})
	if err != nil {
		t.Fatalf("Plot failed: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "Downloads\n") {
		t.Fatalf("expected title first, got %q", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 1+6+2 {
		t.Fatalf("expected 9 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "9.5K") {
		t.Fatalf("expected top axis label to show the max, got %q", lines[1])
	}
	if !strings.Contains(out, "Jan 01") || !strings.Contains(out, "Jan 20") {
		t.Fatalf("expected first and last date ticks in output:\n%s", out)
	}
	if !strings.Contains(out, "alpha (solid)") || !strings.Contains(out, "beta (dashed)") {
		t.Fatalf("expected legend in output")
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no color codes for a non-terminal writer")
	}
}

func TestPlotEmptyView(t *testing.T) {
	var buf bytes.Buffer
	if err := Plot(&buf, View{}, PlotOptions{}); err != nil {
		t.Fatalf("Plot failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for empty view")
	}
	if got := PlotString(View{}, PlotOptions{}); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestPlotStringColorAndCursor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	out := PlotString(sampleView(), PlotOptions{Width: 20, Height: 4, Color: true, Cursor: 5})
	if !strings.Contains(out, "\x1b[38;2;59;130;246m") {
		t.Fatalf("expected first palette color in output")
	}
	plain := PlotString(sampleView(), PlotOptions{Width: 20, Height: 4, Cursor: -1})
	if strings.Count(out, string(cursorRune)) <= strings.Count(plain, string(cursorRune)) {
		t.Fatalf("expected cursor marker in output")
	}
}

func TestResampleWithGapsKeepsGaps(t *testing.T) {
	nan := math.IsNaN
	got := resampleWithGaps([]float64{1, math.NaN(), 3}, 5)
	if got[0] != 1 || got[4] != 3 {
		t.Fatalf("unexpected endpoints: %v", got)
	}
	if !nan(got[1]) || !nan(got[2]) || !nan(got[3]) {
		t.Fatalf("expected gap around missing value, got %v", got)
	}
	down := resampleWithGaps([]float64{math.NaN(), math.NaN(), 4, 6}, 2)
	if !nan(down[0]) || down[1] != 5 {
		t.Fatalf("unexpected downsample: %v", down)
	}
}

func TestColumnFor(t *testing.T) {
	if got := ColumnFor(0, 5, 41); got != 0 {
		t.Fatalf("expected first column, got %d", got)
	}
	if got := ColumnFor(4, 5, 41); got != 40 {
		t.Fatalf("expected last column, got %d", got)
	}
	if got := ColumnFor(99, 100, 10); got != 9 {
		t.Fatalf("expected last bucket, got %d", got)
	}
}

func TestPlotWidthFor(t *testing.T) {
	axisWidth := axisLabelWidth + utf8.RuneCountInString(axisSeparator)
	if got := PlotWidthFor(80); got != 80-axisWidth {
		t.Fatalf("expected width %d, got %d", 80-axisWidth, got)
	}
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
}

func TestRenderTable(t *testing.T) {
	view := Present(model.Table{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Downloads: map[string]int64{"alpha": 1200}},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Downloads: map[string]int64{"beta": 5}},
	}, selection.Set{"alpha", "beta"}, 30)
	var buf bytes.Buffer
	if err := RenderTable(&buf, view); err != nil {
		t.Fatalf("RenderTable failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := []string{
		"Date         alpha  beta",
		"Jan 1, 2024  1,200     -",
		"Jan 2, 2024      -     5",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
