package datasetapi

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sitereport/pkg/domain"
)

type sliceStore struct {
	records []domain.AnalysisRecord
}

func (s *sliceStore) take(match func(domain.AnalysisRecord) bool) []domain.AnalysisRecord {
	var claimed, kept []domain.AnalysisRecord
	for _, r := range s.records {
		if match(r) {
			claimed = append(claimed, r)
		} else {
			kept = append(kept, r)
		}
	}
	s.records = kept
	return claimed
}

func (s *sliceStore) ClaimByMethodIDs(ids []int) []domain.AnalysisRecord {
	return s.take(func(r domain.AnalysisRecord) bool { return containsInt(ids, r.MethodID) })
}

func (s *sliceStore) ClaimByMethodGroupIDs(ids []int) []domain.AnalysisRecord {
	return s.take(func(r domain.AnalysisRecord) bool { return containsInt(ids, r.MethodGroupID) })
}

func (s *sliceStore) ClaimAll() []domain.AnalysisRecord {
	return s.take(func(domain.AnalysisRecord) bool { return true })
}

func containsInt(ids []int, v int) bool {
	for _, id := range ids {
		if id == v {
			return true
		}
	}
	return false
}

func datasetIDs(records []domain.AnalysisRecord) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.DatasetID
	}
	return out
}

func TestBaseClaimsGroupsThenMethods(t *testing.T) {
	store := &sliceStore{records: []domain.AnalysisRecord{
		{DatasetID: 1, MethodID: 37, MethodGroupID: 2},
		{DatasetID: 2, MethodID: 3, MethodGroupID: 1},
		{DatasetID: 3, MethodID: 74, MethodGroupID: 9},
		{DatasetID: 4, MethodID: 99, MethodGroupID: 2},
	}}
	base := Base{ModuleName: "measured", Claims: ClaimFilter{MethodIDs: []int{37, 74}, MethodGroupIDs: []int{2}}}

	claimed := base.ClaimDatasets(store)
	if diff := cmp.Diff([]int{1, 4, 3}, datasetIDs(claimed)); diff != "" {
		t.Fatalf("unexpected claim order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2}, datasetIDs(store.records)); diff != "" {
		t.Fatalf("unexpected remainder (-want +got):\n%s", diff)
	}
}

func TestBaseCatchAllClaimsEverything(t *testing.T) {
	store := &sliceStore{records: []domain.AnalysisRecord{{DatasetID: 1}, {DatasetID: 2}}}
	base := Base{ModuleName: "generic", Claims: ClaimFilter{All: true}}
	if got := base.ClaimDatasets(store); len(got) != 2 || len(store.records) != 0 {
		t.Fatalf("expected catch-all to drain the store, got %d claimed %d left", len(got), len(store.records))
	}
	if !Describe(baseModule{base}).CatchAll {
		t.Fatalf("expected catch-all descriptor")
	}
}

type baseModule struct{ Base }

func (baseModule) MakeSections(context.Context, *Environment, []domain.AnalysisRecord, *domain.SectionList) error {
	return nil
}

func TestFilterReturnsCopy(t *testing.T) {
	base := Base{Claims: ClaimFilter{MethodIDs: []int{1}}}
	f := base.Filter()
	f.MethodIDs[0] = 42
	if base.Claims.MethodIDs[0] != 1 {
		t.Fatalf("filter shares backing array with module")
	}
}

type stubSource struct {
	rows  map[string][]domain.Row
	calls int
	err   error
}

func (s *stubSource) Site(context.Context, int) (domain.Site, error)              { return domain.Site{}, nil }
func (s *stubSource) Analyses(context.Context, int) ([]domain.AnalysisRow, error) { return nil, nil }
func (s *stubSource) DatasetEntities(context.Context, int) ([]domain.AnalysisEntity, error) {
	return nil, nil
}
func (s *stubSource) LookupTable(_ context.Context, spec domain.LookupSpec) ([]domain.Row, error) {
	return s.rows[spec.Table], nil
}
func (s *stubSource) SiteEcocodes(context.Context, int) ([]domain.EcocodeBundle, error) {
	return nil, nil
}
func (s *stubSource) SampleEcocodes(context.Context, int) ([]domain.SampleEcocodeBundle, error) {
	return nil, nil
}

func (s *stubSource) RowsByIDSet(_ context.Context, table, column string, ids []int) ([]domain.Row, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Row
	for _, row := range s.rows[table] {
		id, _ := row.Int(column)
		if containsInt(ids, id) {
			out = append(out, row)
		}
	}
	return out, nil
}

func TestFetchByIDSetDeduplicatesChunkOverlap(t *testing.T) {
	src := &stubSource{rows: map[string][]domain.Row{
		"tbl_taxa": {
			{"taxon_id": 1, "name": "Carabus"},
			{"taxon_id": 2, "name": "Aphodius"},
			{"taxon_id": 1, "name": "duplicate"},
		},
	}}
	rows, err := FetchByIDSet(context.Background(), src, "tbl_taxa", "taxon_id", []int{1, 2, 2, 1})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 2 || rows[0].String("name") != "Carabus" {
		t.Fatalf("unexpected rows %v", rows)
	}

	none, err := FetchByIDSet(context.Background(), src, "tbl_taxa", "taxon_id", nil)
	if err != nil || none != nil || src.calls != 1 {
		t.Fatalf("expected empty id set to skip the source, calls=%d", src.calls)
	}
}

func TestEnrichLookupFetchesOnlyMissing(t *testing.T) {
	spec := domain.LookupSpec{Name: domain.LookupCeramics, Table: "tbl_ceramics_lookup", Key: "ceramics_lookup_id"}
	src := &stubSource{rows: map[string][]domain.Row{
		"tbl_ceramics_lookup": {{"ceramics_lookup_id": 5, "name": "Temper"}},
	}}
	base := domain.NewLookupTable(spec, []domain.Row{{"ceramics_lookup_id": 4, "name": "Colour"}})
	env := &Environment{Source: src}

	got, err := EnrichLookup(context.Background(), env, base, spec, []int{4, 5})
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if got.Len() != 2 || base.Len() != 1 {
		t.Fatalf("expected enriched copy, got %d base %d", got.Len(), base.Len())
	}

	src.err = errors.New("boom")
	partial, err := EnrichLookup(context.Background(), env, base, spec, []int{4, 6})
	if err == nil {
		t.Fatalf("expected fetch error")
	}
	if !partial.Has(4) {
		t.Fatalf("expected partial table to keep known rows")
	}
}

func TestFanOutReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := FanOut(context.Background(), 2,
		func(context.Context) error { return nil },
		func(context.Context) error { return boom },
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
