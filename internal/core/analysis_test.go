package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
	"sitereport/plugins/testhelper"
)

type stepClock struct {
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func analysisSource() *testhelper.Source {
	src := testhelper.NewSource()
	src.AddSampleGroup(1, "Trench", testhelper.Sample(100, "S-100"))
	src.AddDataset(domain.AnalysisRow{MethodID: 3, DatasetID: 1, SampleGroupID: 1, BiblioID: testhelper.Int(1), ContactIDs: []int{1}},
		testhelper.Entity(10, 100, nil))
	src.AddDataset(domain.AnalysisRow{MethodID: 3, DatasetID: 1, SampleGroupID: 2})
	src.AddDataset(domain.AnalysisRow{MethodID: 999, DatasetID: 2}, testhelper.Entity(20, 100, nil))
	return src
}

func newTestAnalysis(t *testing.T, src datasetapi.DataSource, opts ...Option) *Analysis {
	t.Helper()
	reg := mustRegistry(t, catchAll(), newStub("abundance", byMethods(3)))
	a, err := NewAnalysis(src, reg, opts...)
	if err != nil {
		t.Fatalf("new analysis: %v", err)
	}
	return a
}

func TestAssembleTransitions(t *testing.T) {
	src := analysisSource()
	clock := &stepClock{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), step: time.Millisecond}
	metrics := &captureMetricsRecorder{}
	a := newTestAnalysis(t, src, WithClock(clock), WithMetricsRecorder(metrics))

	res, err := a.Assemble(context.Background(), 1)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	want := []State{StateFetching, StateDispatching, StateAssembled}
	if diff := cmp.Diff(want, res.Transitions); diff != "" {
		t.Fatalf("transitions (-want +got):\n%s", diff)
	}
	if res.State != StateAssembled || res.SiteName != "Test site" || res.Duration <= 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Root.Name != RootSectionName || res.Root.Title != RootSectionTitle || len(res.Root.Sections) != 2 {
		t.Fatalf("unexpected root %+v", res.Root)
	}
	item := res.Root.Sections[0].Contents[0]
	if item.Name != "1" || item.DatasetReference == "" || item.DatasetContacts == "" {
		t.Fatalf("expected biblio and contacts resolved, got %+v", item)
	}
	if res.Root.Sections[0].Title != "Palaeoentomology" {
		t.Fatalf("expected method title from lookups, got %q", res.Root.Sections[0].Title)
	}
	if !metrics.has("analysis.fetch", true) || !metrics.has("analysis.assemble", true) {
		t.Fatalf("unexpected metrics %+v", metrics.calls)
	}
	if src.Calls("entities") != 2 {
		t.Fatalf("expected merged rows to fetch entities once per dataset, got %d", src.Calls("entities"))
	}
}

func TestAssembleFetchFailureIsTerminal(t *testing.T) {
	src := analysisSource()
	src.Errors["lookup:tbl_units"] = errors.New("connection reset")
	logger := &captureLogger{}
	a := newTestAnalysis(t, src, WithLogger(logger))

	rendered := 0
	res, err := a.Render(context.Background(), 1, RenderSinkFunc(func(context.Context, *domain.Section) error {
		rendered++
		return nil
	}))
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	var ferr *FetchError
	if !errors.As(err, &ferr) || ferr.Stage != "lookup units" {
		t.Fatalf("expected lookup stage, got %v", err)
	}
	if rendered != 0 {
		t.Fatal("nothing may be rendered after a fetch failure")
	}
	if res.State != StateFailed || res.Root != nil {
		t.Fatalf("expected failed result without tree, got %+v", res)
	}
	if diff := cmp.Diff([]State{StateFetching, StateFailed}, res.Transitions); diff != "" {
		t.Fatalf("transitions (-want +got):\n%s", diff)
	}
	if !logger.has("error", "site fetch failed") {
		t.Fatal("expected fetch failure to be logged")
	}
}

func TestAssembleEntityFetchFailure(t *testing.T) {
	src := analysisSource()
	src.Errors["entities"] = errors.New("timeout")
	_, err := newTestAnalysis(t, src).Assemble(context.Background(), 1)
	var ferr *FetchError
	if !errors.As(err, &ferr) || ferr.Stage != "dataset 1 entities" && ferr.Stage != "dataset 2 entities" {
		t.Fatalf("expected entity stage failure, got %v", err)
	}
}

func TestAssembleUnknownSite(t *testing.T) {
	_, err := newTestAnalysis(t, analysisSource()).Assemble(context.Background(), 42)
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch for unknown site, got %v", err)
	}
}

func TestRenderInvokesSinkOnce(t *testing.T) {
	a := newTestAnalysis(t, analysisSource())
	var roots []*domain.Section
	res, err := a.Render(context.Background(), 1, RenderSinkFunc(func(_ context.Context, root *domain.Section) error {
		roots = append(roots, root)
		return nil
	}))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(roots) != 1 || roots[0] != res.Root {
		t.Fatalf("expected a single render of the assembled root, got %d", len(roots))
	}

	sinkErr := errors.New("disk full")
	_, err = a.Render(context.Background(), 1, RenderSinkFunc(func(context.Context, *domain.Section) error { return sinkErr }))
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error to be wrapped, got %v", err)
	}
	if _, err := a.Render(context.Background(), 1, nil); err == nil {
		t.Fatal("expected nil sink error")
	}
}

func TestNewAnalysisValidates(t *testing.T) {
	if _, err := NewAnalysis(nil, mustRegistry(t, catchAll())); err == nil {
		t.Fatal("expected nil source error")
	}
	if _, err := NewAnalysis(testhelper.NewSource(), NewModuleRegistry()); !errors.Is(err, ErrNoCatchAll) {
		t.Fatalf("expected ErrNoCatchAll, got %v", err)
	}
}

func TestBuildTreeDropsEmptySections(t *testing.T) {
	sections := domain.NewSectionList()
	full, _ := sections.FindOrCreate(domain.Section{Name: "3", Title: "Insects"})
	full.AddContent(domain.ContentItem{Name: "1"})
	sections.FindOrCreate(domain.Section{Name: "10", Title: "Empty"})

	root := BuildTree(sections)
	if len(root.Sections) != 1 || root.Sections[0].Name != "3" {
		t.Fatalf("expected only non-empty sections, got %+v", root.Sections)
	}
	if empty := BuildTree(nil); empty.Sections == nil || len(empty.Sections) != 0 {
		t.Fatalf("expected empty root, got %+v", empty)
	}
}

func TestFetchSiteMergesRowsAndLoadsLookups(t *testing.T) {
	src := analysisSource()
	data, err := FetchSite(context.Background(), src, 1, 2)
	if err != nil {
		t.Fatalf("fetch site: %v", err)
	}
	if len(data.Records) != 2 {
		t.Fatalf("expected two merged records, got %d", len(data.Records))
	}
	if diff := cmp.Diff([]int{1, 2}, data.Records[0].SampleGroupIDs); diff != "" {
		t.Fatalf("sample groups (-want +got):\n%s", diff)
	}
	if len(data.Records[0].AnalysisEntities) != 1 {
		t.Fatalf("expected entities attached, got %+v", data.Records[0])
	}
	for _, spec := range domain.StandardLookups {
		if _, ok := data.Lookups[spec.Name]; !ok {
			t.Fatalf("lookup %s not loaded", spec.Name)
		}
	}
	if !data.Lookups.Table(domain.LookupBiblio).Has(1) || !data.Lookups.Table(domain.LookupContacts).Has(1) {
		t.Fatal("expected referenced biblio and contacts")
	}
	if _, err := FetchSite(context.Background(), nil, 1, 0); !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch for missing source, got %v", err)
	}
}

func TestFetchErrorFormatting(t *testing.T) {
	err := error(&FetchError{Stage: "site", Err: errors.New("nope")})
	if err.Error() != "fetch site: nope" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	merr := &ModuleError{Module: "m", Err: errors.New("bad"), Panicked: true}
	if merr.Error() != "module m panicked: bad" || errors.Unwrap(merr).Error() != "bad" {
		t.Fatalf("unexpected module error %q", merr.Error())
	}
}
