package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// State is a phase of one analysis assembly.
type State string

const (
	StateFetching    State = "fetching"
	StateDispatching State = "dispatching"
	StateAssembled   State = "assembled"
	StateFailed      State = "failed"
)

// Root section identity of an assembled document.
const (
	RootSectionName  = "analysis"
	RootSectionTitle = "Analyses"
)

// RenderSink receives the assembled document of a site.
type RenderSink interface {
	RenderSection(ctx context.Context, root *domain.Section) error
}

// RenderSinkFunc adapts a function to RenderSink.
type RenderSinkFunc func(ctx context.Context, root *domain.Section) error

// RenderSection implements RenderSink.
func (f RenderSinkFunc) RenderSection(ctx context.Context, root *domain.Section) error {
	return f(ctx, root)
}

// Result is the outcome of assembling one site.
type Result struct {
	SiteID      int             `json:"site_id"`
	SiteName    string          `json:"site_name,omitempty"`
	State       State           `json:"state"`
	Transitions []State         `json:"transitions"`
	Root        *domain.Section `json:"root,omitempty"`
	Report      DispatchReport  `json:"report"`
	StartedAt   time.Time       `json:"started_at"`
	Duration    time.Duration   `json:"duration"`
}

func (r *Result) enter(s State) {
	r.State = s
	r.Transitions = append(r.Transitions, s)
}

// Analysis orchestrates fetching, dispatching and tree assembly for a site.
type Analysis struct {
	source     datasetapi.DataSource
	registry   *ModuleRegistry
	dispatcher *Dispatcher
	opts       options
}

// NewAnalysis wires an orchestrator over source and registry.
func NewAnalysis(source datasetapi.DataSource, registry *ModuleRegistry, opts ...Option) (*Analysis, error) {
	if source == nil {
		return nil, fmt.Errorf("data source cannot be nil")
	}
	dispatcher, err := NewDispatcher(registry, opts...)
	if err != nil {
		return nil, err
	}
	return &Analysis{
		source:     source,
		registry:   registry,
		dispatcher: dispatcher,
		opts:       newOptions(opts),
	}, nil
}

// Registry returns the module registry.
func (a *Analysis) Registry() *ModuleRegistry { return a.registry }

// Assemble runs Fetching, Dispatching and tree assembly for siteID. A fetch
// failure leaves the result in StateFailed with no root.
func (a *Analysis) Assemble(ctx context.Context, siteID int) (res Result, err error) {
	res = Result{SiteID: siteID, StartedAt: a.opts.clock.Now().UTC()}
	ctx, span := a.opts.tracer.Start(ctx, "analysis.assemble")
	defer func() {
		res.Duration = a.opts.clock.Now().Sub(res.StartedAt)
		span.End(err)
		a.opts.metrics.Observe(ctx, "analysis.assemble", err == nil, res.Duration)
	}()

	res.enter(StateFetching)
	data, err := a.fetch(ctx, siteID)
	if err != nil {
		res.enter(StateFailed)
		a.opts.logger.Error("site fetch failed", "site_id", siteID, "error", err)
		return res, err
	}
	res.SiteName = data.Site.Name

	res.enter(StateDispatching)
	env := &datasetapi.Environment{
		Source:           a.source,
		Site:             data.Site,
		Lookups:          data.Lookups,
		Logger:           a.opts.logger,
		Now:              a.opts.clock.Now,
		FetchConcurrency: a.opts.fetchConcurrency,
	}
	store := NewRecordStore(data.Records)
	sections, report, err := a.dispatcher.Dispatch(ctx, env, store)
	res.Report = report
	if err != nil {
		res.enter(StateFailed)
		a.opts.logger.Error("dispatch failed", "site_id", siteID, "error", err)
		return res, err
	}

	res.Root = BuildTree(sections)
	res.enter(StateAssembled)
	a.opts.logger.Info("analysis assembled",
		"site_id", siteID,
		"datasets", len(data.Records),
		"sections", len(res.Root.Sections),
		"module_errors", len(report.ModuleErrors),
	)
	return res, nil
}

func (a *Analysis) fetch(ctx context.Context, siteID int) (SiteData, error) {
	ctx, span := a.opts.tracer.Start(ctx, "analysis.fetch")
	start := a.opts.clock.Now()
	data, err := FetchSite(ctx, a.source, siteID, a.opts.fetchConcurrency)
	span.End(err)
	a.opts.metrics.Observe(ctx, "analysis.fetch", err == nil, a.opts.clock.Now().Sub(start))
	if err != nil && !errors.Is(err, ErrFetch) {
		err = &FetchError{Stage: "site", Err: err}
	}
	return data, err
}

// Render assembles siteID and hands the document to sink exactly once. Nothing
// is rendered when assembly fails.
func (a *Analysis) Render(ctx context.Context, siteID int, sink RenderSink) (Result, error) {
	if sink == nil {
		return Result{}, fmt.Errorf("render sink cannot be nil")
	}
	res, err := a.Assemble(ctx, siteID)
	if err != nil {
		return res, err
	}
	ctx, span := a.opts.tracer.Start(ctx, "analysis.render")
	start := a.opts.clock.Now()
	err = sink.RenderSection(ctx, res.Root)
	span.End(err)
	a.opts.metrics.Observe(ctx, "analysis.render", err == nil, a.opts.clock.Now().Sub(start))
	if err != nil {
		return res, fmt.Errorf("render site %d: %w", siteID, err)
	}
	return res, nil
}

// BuildTree nests the produced sections under the root "Analyses" section in
// creation order, dropping sections that ended up empty.
func BuildTree(sections *domain.SectionList) *domain.Section {
	root := &domain.Section{
		Name:     RootSectionName,
		Title:    RootSectionTitle,
		Contents: []domain.ContentItem{},
		Sections: []*domain.Section{},
	}
	if sections == nil {
		return root
	}
	for _, s := range sections.Sections() {
		if s.Empty() {
			continue
		}
		root.Sections = append(root.Sections, s)
	}
	return root
}
