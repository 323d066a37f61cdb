// Package aggregate merges per-package download series into one table.
package aggregate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/snakestats/internal/model"
	"github.com/verte-zerg/snakestats/internal/pypistats"
)

type result struct {
	series model.PackageSeries
	ok     bool
}

// Aggregate fetches every package concurrently and merges the successful
// series into a table keyed by date. Failed fetches are dropped without
// error. The merge walks series in the order of ids, so the result does not
// depend on which fetch finished first.
func Aggregate(ctx context.Context, fetcher pypistats.Fetcher, ids []string) model.Table {
	if len(ids) == 0 {
		return model.Table{}
	}
	results := make([]result, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			series, ok := fetcher.Fetch(ctx, id)
			results[i] = result{series: series, ok: ok}
			return nil
		})
	}
	// Fetch tasks never return an error.
	_ = g.Wait()

	series := make([]model.PackageSeries, 0, len(results))
	for _, r := range results {
		if r.ok {
			series = append(series, r.series)
		}
	}
	return Merge(series)
}

// Merge combines series in the given order. For each point the row for its
// date gets row[package] = downloads, so a later point on the same date
// overwrites an earlier one. Rows are returned in the order their dates were
// first seen, not chronologically.
func Merge(series []model.PackageSeries) model.Table {
	index := map[int64]int{}
	table := model.Table{}
	for _, s := range series {
		for _, p := range s.Points {
			key := p.Date.UnixMilli()
			pos, ok := index[key]
			if !ok {
				pos = len(table)
				index[key] = pos
				table = append(table, model.Row{
					Date:      p.Date,
					Downloads: map[string]int64{},
				})
			}
			table[pos].Downloads[s.Package] = p.Downloads
		}
	}
	return table
}

// Missing returns the requested ids that have no column in the table, in
// request order. These are the packages whose fetch failed.
func Missing(ids []string, table model.Table) []string {
	present := map[string]struct{}{}
	for _, col := range table.Columns() {
		present[col] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
