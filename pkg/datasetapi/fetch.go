package datasetapi

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"sitereport/pkg/domain"
)

// UniqueIDs returns ids with duplicates removed, in first-seen order.
func UniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// FetchByIDSet fetches the rows of table whose column is in ids. Sources may
// answer in several chunks; rows are merged and de-duplicated by column, first
// occurrence wins.
func FetchByIDSet(ctx context.Context, src DataSource, table, column string, ids []int) ([]domain.Row, error) {
	if src == nil {
		return nil, errors.New("datasetapi: data source missing")
	}
	ids = UniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := src.RowsByIDSet(ctx, table, column, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch %s by %s: %w", table, column, err)
	}
	seen := make(map[int]struct{}, len(rows))
	out := make([]domain.Row, 0, len(rows))
	for _, row := range rows {
		id, ok := row.Int(column)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, row)
	}
	return out, nil
}

// EnrichLookup returns a copy of the base lookup table extended with the ids it
// is missing, fetched from spec.Table.
func EnrichLookup(ctx context.Context, env *Environment, base *domain.LookupTable, spec domain.LookupSpec, ids []int) (*domain.LookupTable, error) {
	out := base.Clone()
	out.Spec = spec
	missing := out.Missing(ids)
	if len(missing) == 0 {
		return out, nil
	}
	rows, err := FetchByIDSet(ctx, env.Source, spec.Table, spec.Key, missing)
	if err != nil {
		return out, err
	}
	out.Add(rows...)
	return out, nil
}

// FetchLookup fetches the rows of spec.Table keyed by ids into a fresh table.
func FetchLookup(ctx context.Context, env *Environment, spec domain.LookupSpec, ids []int) (*domain.LookupTable, error) {
	return EnrichLookup(ctx, env, domain.NewLookupTable(spec, nil), spec, ids)
}

// FanOut runs independent fetches concurrently and waits for all of them. The
// first error cancels the shared context and is returned.
func FanOut(ctx context.Context, limit int, fetches ...func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, fetch := range fetches {
		g.Go(func() error {
			return fetch(gctx)
		})
	}
	return g.Wait()
}
