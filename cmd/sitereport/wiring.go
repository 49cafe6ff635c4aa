package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"sitereport/internal/config"
	"sitereport/internal/core"
	"sitereport/internal/infra/cache"
	memcache "sitereport/internal/infra/cache/memory"
	rediscache "sitereport/internal/infra/cache/redis"
	sqlitecache "sitereport/internal/infra/cache/sqlite"
	"sitereport/internal/infra/source/cached"
	"sitereport/internal/infra/source/httpapi"
	"sitereport/internal/infra/source/memory"
	"sitereport/internal/infra/source/postgres"
	"sitereport/pkg/datasetapi"
	"sitereport/plugins/catalog"
)

// closers releases resources in reverse acquisition order.
type closers []func() error

func (c *closers) add(fn func() error) { *c = append(*c, fn) }

func (c closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// pipeline is the assembled analysis together with its observability hooks.
type pipeline struct {
	analysis *core.Analysis
	gatherer prometheus.Gatherer
	closers  closers
}

func (p *pipeline) Close() error { return p.closers.Close() }

func (a *app) buildPipeline(ctx context.Context) (*pipeline, error) {
	p := &pipeline{}
	src, err := a.openSource(ctx, &p.closers)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	src, err = a.wrapCache(ctx, src, &p.closers)
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	registry, err := newRegistry()
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	opts := []core.Option{
		core.WithLogger(a.logger),
		core.WithFetchConcurrency(a.cfg.Dispatch.FetchConcurrency),
	}
	obs, err := a.buildObservability(&p.closers)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	opts = append(opts, obs.options...)
	p.gatherer = obs.gatherer

	p.analysis, err = core.NewAnalysis(src, registry, opts...)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

// newRegistry installs the standard module catalog.
func newRegistry() (*core.ModuleRegistry, error) {
	registry := core.NewModuleRegistry()
	if _, err := registry.Install(catalog.New()); err != nil {
		return nil, err
	}
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	return registry, nil
}

func (a *app) openSource(ctx context.Context, cl *closers) (datasetapi.DataSource, error) {
	cfg := a.cfg.Source
	switch cfg.Driver {
	case config.SourceMemory:
		return memory.Open(cfg.Fixture)
	case config.SourceHTTP:
		return httpapi.New(cfg.HTTP())
	case config.SourcePostgres:
		src, err := postgres.Open(ctx, cfg.Postgres())
		if err != nil {
			return nil, err
		}
		cl.add(src.Close)
		return src, nil
	default:
		return nil, fmt.Errorf("unknown source driver %q", cfg.Driver)
	}
}

func (a *app) wrapCache(ctx context.Context, src datasetapi.DataSource, cl *closers) (datasetapi.DataSource, error) {
	cfg := a.cfg.Cache
	var c cache.Cache
	switch cfg.Kind() {
	case cache.DriverNone:
		return src, nil
	case cache.DriverMemory:
		c = memcache.New(memcache.WithMaxEntries(cfg.MaxEntries))
	case cache.DriverSQLite:
		store, err := sqlitecache.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		c = store
	case cache.DriverRedis:
		store, err := rediscache.Open(ctx, cfg.Redis())
		if err != nil {
			return nil, err
		}
		c = store
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
	cl.add(c.Close)
	a.logger.Debug("reference cache enabled", "driver", cfg.Driver, "ttl", cfg.TTLDuration())
	return cached.New(src, c, cfg.TTLDuration(), a.logger), nil
}

type observability struct {
	options  []core.Option
	gatherer prometheus.Gatherer
}

func (a *app) buildObservability(cl *closers) (observability, error) {
	cfg := a.cfg.Observability
	var obs observability

	switch cfg.Metrics {
	case config.MetricsExpvar:
		obs.options = append(obs.options, core.WithMetricsRecorder(core.NewExpvarMetricsRecorder("")))
	case config.MetricsPrometheus:
		reg := prometheus.NewRegistry()
		recorder, err := core.NewPrometheusMetricsRecorder(reg, cfg.Namespace)
		if err != nil {
			return obs, err
		}
		obs.options = append(obs.options, core.WithMetricsRecorder(recorder))
		obs.gatherer = reg
	}

	if cfg.Tracing == config.TracingNone {
		return obs, nil
	}
	w, err := a.traceWriter(cfg.TraceFile, cl)
	if err != nil {
		return obs, err
	}
	switch cfg.Tracing {
	case config.TracingJSON:
		obs.options = append(obs.options, core.WithTracer(core.NewJSONTracer(w)))
	case config.TracingOTel:
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return obs, fmt.Errorf("trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		cl.add(func() error { return tp.Shutdown(context.Background()) })
		obs.options = append(obs.options, core.WithTracer(core.NewOTelTracer(tp)))
	}
	return obs, nil
}

func (a *app) traceWriter(path string, cl *closers) (io.Writer, error) {
	if path == "" {
		return a.stderr, nil
	}
	// #nosec G304 -- the trace file is operator supplied configuration.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	cl.add(f.Close)
	return f, nil
}
