package aggregate

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/verte-zerg/snakestats/internal/model"
)

type fakeFetcher struct {
	series map[string]model.PackageSeries
	delays map[string]time.Duration

	mu    sync.Mutex
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, pkg string) (model.PackageSeries, bool) {
	f.mu.Lock()
	f.calls = append(f.calls, pkg)
	f.mu.Unlock()
	if d, ok := f.delays[pkg]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return model.PackageSeries{}, false
		}
	}
	s, ok := f.series[pkg]
	return s, ok
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func series(pkg string, points ...model.SeriesPoint) model.PackageSeries {
	return model.PackageSeries{Package: pkg, Reported: pkg, Type: "overall_downloads", Points: points}
}

func point(category string, d int, downloads int64) model.SeriesPoint {
	return model.SeriesPoint{Category: category, Date: day(d), Downloads: downloads}
}

func rowContent(table model.Table) map[int64]map[string]int64 {
	out := map[int64]map[string]int64{}
	for _, row := range table {
		out[row.Timestamp()] = row.Downloads
	}
	return out
}

func TestAggregateEndToEndExample(t *testing.T) {
	f := &fakeFetcher{series: map[string]model.PackageSeries{
		"alpha": series("alpha",
			point("with_mirrors", 1, 100),
			point("without_mirrors", 1, 80),
		),
		"beta": series("beta", point("without_mirrors", 2, 5)),
	}}

	table := Aggregate(context.Background(), f, []string{"alpha", "beta"})
	if len(table) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table))
	}
	if !table[0].Date.Equal(day(1)) || !reflect.DeepEqual(table[0].Downloads, map[string]int64{"alpha": 80}) {
		t.Fatalf("unexpected first row: %+v", table[0])
	}
	if !table[1].Date.Equal(day(2)) || !reflect.DeepEqual(table[1].Downloads, map[string]int64{"beta": 5}) {
		t.Fatalf("unexpected second row: %+v", table[1])
	}
	if table[0].Timestamp() != day(1).UnixMilli() {
		t.Fatalf("unexpected timestamp: %d", table[0].Timestamp())
	}
}

func TestAggregateSparseColumns(t *testing.T) {
	f := &fakeFetcher{series: map[string]model.PackageSeries{
		"a": series("a", point("c", 1, 10), point("c", 2, 20)),
		"b": series("b", point("c", 2, 7)),
	}}
	table := Aggregate(context.Background(), f, []string{"a", "b"})
	if len(table) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table))
	}
	if _, ok := table[0].Value("b"); ok {
		t.Fatalf("expected no entry for b on day 1, got %+v", table[0].Downloads)
	}
	if v, ok := table[0].Value("a"); !ok || v != 10 {
		t.Fatalf("expected a=10 on day 1, got %v %v", v, ok)
	}
	if !reflect.DeepEqual(table[1].Downloads, map[string]int64{"a": 20, "b": 7}) {
		t.Fatalf("unexpected day 2 row: %+v", table[1].Downloads)
	}
}

func TestAggregateDeterministicAcrossCompletionOrder(t *testing.T) {
	data := map[string]model.PackageSeries{
		"a": series("a", point("c", 1, 1), point("c", 3, 3)),
		"b": series("b", point("c", 2, 2), point("c", 3, 30)),
	}
	slowA := &fakeFetcher{series: data, delays: map[string]time.Duration{"a": 40 * time.Millisecond}}
	slowB := &fakeFetcher{series: data, delays: map[string]time.Duration{"b": 40 * time.Millisecond}}

	first := Aggregate(context.Background(), slowA, []string{"a", "b"})
	second := Aggregate(context.Background(), slowB, []string{"a", "b"})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical tables regardless of timing:\n%+v\n%+v", first, second)
	}
	wantOrder := []time.Time{day(1), day(3), day(2)}
	for i, want := range wantOrder {
		if !first[i].Date.Equal(want) {
			t.Fatalf("row %d date = %v, want %v (first-insertion order)", i, first[i].Date, want)
		}
	}

	swapped := Aggregate(context.Background(), slowA, []string{"b", "a"})
	if !reflect.DeepEqual(rowContent(first), rowContent(swapped)) {
		t.Fatalf("expected identical row content for swapped input order")
	}
}

func TestAggregateFailureOmission(t *testing.T) {
	f := &fakeFetcher{series: map[string]model.PackageSeries{
		"y": series("y", point("c", 1, 4)),
	}}
	if table := Aggregate(context.Background(), f, []string{"x"}); len(table) != 0 {
		t.Fatalf("expected empty table, got %+v", table)
	}
	table := Aggregate(context.Background(), f, []string{"x", "y"})
	if cols := table.Columns(); !reflect.DeepEqual(cols, []string{"y"}) {
		t.Fatalf("expected only y columns, got %v", cols)
	}
	if missing := Missing([]string{"x", "y"}, table); !reflect.DeepEqual(missing, []string{"x"}) {
		t.Fatalf("expected x missing, got %v", missing)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	f := &fakeFetcher{}
	table := Aggregate(context.Background(), f, nil)
	if table == nil || len(table) != 0 {
		t.Fatalf("expected empty non-nil table, got %#v", table)
	}
	if len(f.calls) != 0 {
		t.Fatalf("expected no fetches, got %v", f.calls)
	}
}

func TestAggregateFetchesConcurrently(t *testing.T) {
	delay := 150 * time.Millisecond
	f := &fakeFetcher{
		series: map[string]model.PackageSeries{
			"a": series("a", point("c", 1, 1)),
			"b": series("b", point("c", 1, 2)),
			"c": series("c", point("c", 1, 3)),
		},
		delays: map[string]time.Duration{"a": delay, "b": delay, "c": delay},
	}
	start := time.Now()
	table := Aggregate(context.Background(), f, []string{"a", "b", "c"})
	elapsed := time.Since(start)
	if elapsed >= 3*delay {
		t.Fatalf("expected concurrent fetches, took %v", elapsed)
	}
	if len(table) != 1 || len(table[0].Downloads) != 3 {
		t.Fatalf("unexpected table: %+v", table)
	}
}

func TestMergeLastWriteWins(t *testing.T) {
	table := Merge([]model.PackageSeries{
		series("a", point("x", 1, 1), point("y", 1, 2), point("z", 1, 3)),
	})
	if len(table) != 1 {
		t.Fatalf("expected 1 row, got %d", len(table))
	}
	if v, _ := table[0].Value("a"); v != 3 {
		t.Fatalf("expected last point to win, got %d", v)
	}
}

func TestSortedByDate(t *testing.T) {
	table := Merge([]model.PackageSeries{
		series("a", point("c", 3, 1)),
		series("b", point("c", 1, 1), point("c", 2, 1)),
	})
	sorted := table.SortedByDate()
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Date.Before(sorted[i-1].Date) {
			t.Fatalf("table not sorted: %+v", sorted)
		}
	}
	if !table[0].Date.Equal(day(3)) {
		t.Fatalf("SortedByDate must not reorder the original table")
	}
}
