// Package cached wraps a data source so reference data (lookup tables and rows
// fetched by id) is served from a cache. Site-specific calls pass through.
package cached

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"

	"sitereport/internal/infra/cache"
	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// DefaultTTL applies when New receives a non-positive ttl.
const DefaultTTL = 24 * time.Hour

// Stats counts cache outcomes since construction.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Errors int64 `json:"errors"`
}

// Source decorates a datasetapi.DataSource. Cache failures are logged and the
// call falls through to the wrapped source.
type Source struct {
	next   datasetapi.DataSource
	cache  cache.Cache
	ttl    time.Duration
	logger datasetapi.Logger

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

var _ datasetapi.DataSource = (*Source)(nil)

// New wraps next. A nil logger discards cache warnings.
func New(next datasetapi.DataSource, c cache.Cache, ttl time.Duration, logger datasetapi.Logger) *Source {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = datasetapi.NoopLogger()
	}
	return &Source{next: next, cache: c, ttl: ttl, logger: logger}
}

// Stats returns a snapshot of the hit and miss counters.
func (s *Source) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load(), Errors: s.errors.Load()}
}

// Site is not cached; site metadata is read from the wrapped source.
func (s *Source) Site(ctx context.Context, siteID int) (domain.Site, error) {
	return s.next.Site(ctx, siteID)
}

// Analyses passes through to the wrapped source.
func (s *Source) Analyses(ctx context.Context, siteID int) ([]domain.AnalysisRow, error) {
	return s.next.Analyses(ctx, siteID)
}

// DatasetEntities passes through to the wrapped source.
func (s *Source) DatasetEntities(ctx context.Context, datasetID int) ([]domain.AnalysisEntity, error) {
	return s.next.DatasetEntities(ctx, datasetID)
}

// SiteEcocodes passes through to the wrapped source.
func (s *Source) SiteEcocodes(ctx context.Context, siteID int) ([]domain.EcocodeBundle, error) {
	return s.next.SiteEcocodes(ctx, siteID)
}

// SampleEcocodes passes through to the wrapped source.
func (s *Source) SampleEcocodes(ctx context.Context, siteID int) ([]domain.SampleEcocodeBundle, error) {
	return s.next.SampleEcocodes(ctx, siteID)
}

// LookupTable caches whole tables under "lookup:<table>".
func (s *Source) LookupTable(ctx context.Context, spec domain.LookupSpec) ([]domain.Row, error) {
	key := "lookup:" + spec.Table
	if rows, ok := s.load(ctx, key); ok {
		return rows, nil
	}
	rows, err := s.next.LookupTable(ctx, spec)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// RowsByIDSet caches rows per id under "rows:<table>:<column>:<id>" and asks
// the wrapped source only for the ids it has not seen. Ids the source returns
// no rows for are not cached.
func (s *Source) RowsByIDSet(ctx context.Context, table, column string, ids []int) ([]domain.Row, error) {
	ids = datasetapi.UniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	cachedRows := make(map[int][]domain.Row, len(ids))
	var missing []int
	for _, id := range ids {
		if rows, ok := s.load(ctx, rowKey(table, column, id)); ok {
			cachedRows[id] = rows
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		fetched, err := s.next.RowsByIDSet(ctx, table, column, missing)
		if err != nil {
			return nil, err
		}
		byID := make(map[int][]domain.Row, len(missing))
		for _, row := range fetched {
			id, ok := row.Int(column)
			if !ok {
				continue
			}
			byID[id] = append(byID[id], row)
		}
		for id, rows := range byID {
			cachedRows[id] = rows
			s.store(ctx, rowKey(table, column, id), rows)
		}
	}

	var out []domain.Row
	for _, id := range ids {
		out = append(out, cachedRows[id]...)
	}
	return out, nil
}

func rowKey(table, column string, id int) string {
	return "rows:" + table + ":" + column + ":" + strconv.Itoa(id)
}

func (s *Source) load(ctx context.Context, key string) ([]domain.Row, bool) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.errors.Add(1)
		s.logger.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	var rows []domain.Row
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		s.errors.Add(1)
		s.logger.Warn("cache entry undecodable", "key", key, "error", err)
		return nil, false
	}
	s.hits.Add(1)
	return rows, true
}

func (s *Source) store(ctx context.Context, key string, rows []domain.Row) {
	raw, err := json.Marshal(rows)
	if err != nil {
		s.errors.Add(1)
		s.logger.Warn("cache entry unencodable", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.errors.Add(1)
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
