package datasetapi

import (
	"context"
	"time"

	"sitereport/pkg/domain"
)

// DataSource is the read-only backend the pipeline fetches site data and
// reference rows from.
type DataSource interface {
	Site(ctx context.Context, siteID int) (domain.Site, error)
	Analyses(ctx context.Context, siteID int) ([]domain.AnalysisRow, error)
	DatasetEntities(ctx context.Context, datasetID int) ([]domain.AnalysisEntity, error)
	LookupTable(ctx context.Context, spec domain.LookupSpec) ([]domain.Row, error)
	RowsByIDSet(ctx context.Context, table, column string, ids []int) ([]domain.Row, error)
	SiteEcocodes(ctx context.Context, siteID int) ([]domain.EcocodeBundle, error)
	SampleEcocodes(ctx context.Context, siteID int) ([]domain.SampleEcocodeBundle, error)
}

// Logger is the structured logger handed to modules.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NoopLogger returns a Logger that discards everything.
func NoopLogger() Logger { return noopLogger{} }

// Environment carries everything a module may read while building sections.
type Environment struct {
	Source  DataSource
	Site    domain.Site
	Lookups domain.Lookups
	Logger  Logger
	Now     func() time.Time
	// FetchConcurrency bounds intra-module enrichment fan-out; zero means unbounded.
	FetchConcurrency int
}

// Log returns the environment logger or a no-op logger.
func (e *Environment) Log() Logger {
	if e == nil || e.Logger == nil {
		return noopLogger{}
	}
	return e.Logger
}

// Lookup returns the named lookup table; it is never nil.
func (e *Environment) Lookup(name string) *domain.LookupTable {
	if e == nil {
		return domain.Lookups(nil).Table(name)
	}
	return e.Lookups.Table(name)
}
