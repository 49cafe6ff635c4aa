// Package testhelper hosts in-memory fixtures for module tests: a scriptable
// data source, a slice-backed claim store and seeded reference tables.
package testhelper

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// Source is a scriptable in-memory datasetapi.DataSource. Errors are keyed by
// operation: "site", "analyses", "entities", "lookup:<table>", "rows:<table>",
// "site_ecocodes" and "sample_ecocodes".
type Source struct {
	mu            sync.Mutex
	SiteData      domain.Site
	Rows          []domain.AnalysisRow
	Entities      map[int][]domain.AnalysisEntity
	Tables        map[string][]domain.Row
	SiteBundles   []domain.EcocodeBundle
	SampleBundles []domain.SampleEcocodeBundle
	Errors        map[string]error
	calls         map[string]int
}

// NewSource returns a source for site 1 with seeded reference tables.
func NewSource() *Source {
	s := &Source{
		SiteData: domain.Site{ID: 1, Name: "Test site"},
		Entities: map[int][]domain.AnalysisEntity{},
		Tables:   map[string][]domain.Row{},
		Errors:   map[string]error{},
		calls:    map[string]int{},
	}
	SeedLookups(s)
	return s
}

var _ datasetapi.DataSource = (*Source)(nil)

// AddSampleGroup adds a sample group with its physical samples to the site.
func (s *Source) AddSampleGroup(id int, name string, samples ...domain.PhysicalSample) {
	s.SiteData.SampleGroups = append(s.SiteData.SampleGroups, domain.SampleGroup{ID: id, Name: name, PhysicalSamples: samples})
}

// AddDataset registers an analysis row and the entities of its dataset. The
// method group is taken from the seeded methods table when row leaves it zero.
func (s *Source) AddDataset(row domain.AnalysisRow, entities ...domain.AnalysisEntity) {
	if row.MethodGroupID == 0 {
		for _, m := range s.Tables["tbl_methods"] {
			if id, _ := m.Int("method_id"); id == row.MethodID {
				row.MethodGroupID, _ = m.Int("method_group_id")
			}
		}
	}
	if row.DatasetName == "" {
		row.DatasetName = fmt.Sprintf("Dataset %d", row.DatasetID)
	}
	s.Rows = append(s.Rows, row)
	s.Entities[row.DatasetID] = append(s.Entities[row.DatasetID], entities...)
}

// AddRows appends reference rows to table.
func (s *Source) AddRows(table string, rows ...domain.Row) {
	s.Tables[table] = append(s.Tables[table], rows...)
}

// Calls returns how often op was invoked.
func (s *Source) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Source) enter(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.Errors[op]
}

// Site returns SiteData when siteID matches it.
func (s *Source) Site(_ context.Context, siteID int) (domain.Site, error) {
	if err := s.enter("site"); err != nil {
		return domain.Site{}, err
	}
	if siteID != s.SiteData.ID {
		return domain.Site{}, fmt.Errorf("site %d not found", siteID)
	}
	return s.SiteData, nil
}

// Analyses returns a copy of Rows.
func (s *Source) Analyses(context.Context, int) ([]domain.AnalysisRow, error) {
	if err := s.enter("analyses"); err != nil {
		return nil, err
	}
	return append([]domain.AnalysisRow(nil), s.Rows...), nil
}

// DatasetEntities returns the entities added for datasetID.
func (s *Source) DatasetEntities(_ context.Context, datasetID int) ([]domain.AnalysisEntity, error) {
	if err := s.enter("entities"); err != nil {
		return nil, err
	}
	return append([]domain.AnalysisEntity(nil), s.Entities[datasetID]...), nil
}

// LookupTable returns every row of spec.Table.
func (s *Source) LookupTable(_ context.Context, spec domain.LookupSpec) ([]domain.Row, error) {
	if err := s.enter("lookup:" + spec.Table); err != nil {
		return nil, err
	}
	return append([]domain.Row(nil), s.Tables[spec.Table]...), nil
}

// RowsByIDSet filters table to the rows whose column is in ids.
func (s *Source) RowsByIDSet(_ context.Context, table, column string, ids []int) ([]domain.Row, error) {
	if err := s.enter("rows:" + table); err != nil {
		return nil, err
	}
	want := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []domain.Row
	for _, row := range s.Tables[table] {
		if id, ok := row.Int(column); ok {
			if _, hit := want[id]; hit {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

// SiteEcocodes returns SiteBundles.
func (s *Source) SiteEcocodes(context.Context, int) ([]domain.EcocodeBundle, error) {
	if err := s.enter("site_ecocodes"); err != nil {
		return nil, err
	}
	return s.SiteBundles, nil
}

// SampleEcocodes returns SampleBundles.
func (s *Source) SampleEcocodes(context.Context, int) ([]domain.SampleEcocodeBundle, error) {
	if err := s.enter("sample_ecocodes"); err != nil {
		return nil, err
	}
	return s.SampleBundles, nil
}

// Records returns the merged analysis records with their entities attached.
func (s *Source) Records() []domain.AnalysisRecord {
	records := domain.MergeAnalysisRows(s.Rows)
	for i := range records {
		records[i].AnalysisEntities = append([]domain.AnalysisEntity(nil), s.Entities[records[i].DatasetID]...)
	}
	return records
}

// Environment loads every lookup table of the source into a module environment.
func (s *Source) Environment(tb testing.TB) *datasetapi.Environment {
	tb.Helper()
	lookups := domain.Lookups{}
	specs := append([]domain.LookupSpec{domain.BiblioLookup, domain.ContactsLookup}, domain.StandardLookups...)
	for _, spec := range specs {
		lookups[spec.Name] = domain.NewLookupTable(spec, s.Tables[spec.Table])
	}
	return &datasetapi.Environment{
		Source:  s,
		Site:    s.SiteData,
		Lookups: lookups,
		Now:     func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

// Store is a slice-backed datasetapi.ClaimStore.
type Store struct {
	Records []domain.AnalysisRecord
}

func (s *Store) take(match func(domain.AnalysisRecord) bool) []domain.AnalysisRecord {
	var claimed, kept []domain.AnalysisRecord
	for _, r := range s.Records {
		if match(r) {
			claimed = append(claimed, r)
		} else {
			kept = append(kept, r)
		}
	}
	s.Records = kept
	return claimed
}

// ClaimByMethodIDs removes and returns the records of the given methods.
func (s *Store) ClaimByMethodIDs(ids []int) []domain.AnalysisRecord {
	return s.take(func(r domain.AnalysisRecord) bool { return contains(ids, r.MethodID) })
}

// ClaimByMethodGroupIDs removes and returns the records of the given method groups.
func (s *Store) ClaimByMethodGroupIDs(ids []int) []domain.AnalysisRecord {
	return s.take(func(r domain.AnalysisRecord) bool { return contains(ids, r.MethodGroupID) })
}

// ClaimAll removes and returns every remaining record.
func (s *Store) ClaimAll() []domain.AnalysisRecord {
	return s.take(func(domain.AnalysisRecord) bool { return true })
}

func contains(ids []int, v int) bool {
	for _, id := range ids {
		if id == v {
			return true
		}
	}
	return false
}

// Run claims with m from the source's records and builds sections into a
// fresh list, failing the test on error.
func Run(tb testing.TB, m datasetapi.Module, src *Source) (*domain.SectionList, []domain.AnalysisRecord) {
	tb.Helper()
	store := &Store{Records: src.Records()}
	claimed := m.ClaimDatasets(store)
	sections := domain.NewSectionList()
	if err := m.MakeSections(context.Background(), src.Environment(tb), claimed, sections); err != nil {
		tb.Fatalf("make sections: %v", err)
	}
	return sections, claimed
}
