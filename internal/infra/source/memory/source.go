// Package memory serves site data from a JSON fixture held in memory. The CLI
// uses it for --fixture runs; tests use it to avoid a database.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// Fixture is the on-disk document. Lookups are keyed by lookup name and are
// folded into Tables under their standard table name on load.
type Fixture struct {
	Sites   []SiteFixture           `json:"sites"`
	Lookups map[string][]domain.Row `json:"lookups,omitempty"`
	Tables  map[string][]domain.Row `json:"tables,omitempty"`
}

// SiteFixture holds everything the source returns for one site.
type SiteFixture struct {
	Site           domain.Site                     `json:"site"`
	Analyses       []domain.AnalysisRow            `json:"analyses"`
	Entities       map[int][]domain.AnalysisEntity `json:"entities"`
	SiteEcocodes   []domain.EcocodeBundle          `json:"site_ecocodes,omitempty"`
	SampleEcocodes []domain.SampleEcocodeBundle    `json:"sample_ecocodes,omitempty"`
}

// Source implements datasetapi.DataSource over a loaded fixture. It is
// read-only after construction and safe for concurrent use.
type Source struct {
	sites    map[int]SiteFixture
	datasets map[int][]domain.AnalysisEntity
	tables   map[string][]domain.Row
}

var _ datasetapi.DataSource = (*Source)(nil)

// ErrUnknownSite is wrapped when a site id is not in the fixture.
var ErrUnknownSite = errors.New("site not found")

// New indexes fx.
func New(fx Fixture) (*Source, error) {
	src := &Source{
		sites:    make(map[int]SiteFixture, len(fx.Sites)),
		datasets: map[int][]domain.AnalysisEntity{},
		tables:   map[string][]domain.Row{},
	}
	for name, rows := range fx.Tables {
		src.tables[name] = append(src.tables[name], rows...)
	}
	names := make([]string, 0, len(fx.Lookups))
	for name := range fx.Lookups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec, ok := domain.StandardLookup(name)
		if !ok {
			return nil, fmt.Errorf("fixture: unknown lookup %q", name)
		}
		src.tables[spec.Table] = append(src.tables[spec.Table], fx.Lookups[name]...)
	}
	for _, site := range fx.Sites {
		if _, dup := src.sites[site.Site.ID]; dup {
			return nil, fmt.Errorf("fixture: duplicate site %d", site.Site.ID)
		}
		src.sites[site.Site.ID] = site
		for datasetID, entities := range site.Entities {
			src.datasets[datasetID] = append(src.datasets[datasetID], entities...)
		}
	}
	return src, nil
}

// Decode reads a fixture document from r.
func Decode(r io.Reader) (*Source, error) {
	var fx Fixture
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return New(fx)
}

// Open loads the fixture file at path.
func Open(path string) (*Source, error) {
	// #nosec G304 -- the fixture path is operator supplied configuration.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// SiteIDs lists the fixture sites in ascending order.
func (s *Source) SiteIDs() []int {
	ids := make([]int, 0, len(s.sites))
	for id := range s.sites {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (s *Source) site(ctx context.Context, siteID int) (SiteFixture, error) {
	if err := ctx.Err(); err != nil {
		return SiteFixture{}, err
	}
	site, ok := s.sites[siteID]
	if !ok {
		return SiteFixture{}, fmt.Errorf("%w: %d", ErrUnknownSite, siteID)
	}
	return site, nil
}

// Site returns the fixture site or ErrUnknownSite.
func (s *Source) Site(ctx context.Context, siteID int) (domain.Site, error) {
	site, err := s.site(ctx, siteID)
	if err != nil {
		return domain.Site{}, err
	}
	return site.Site, nil
}

// Analyses returns a copy of the site's analysis rows.
func (s *Source) Analyses(ctx context.Context, siteID int) ([]domain.AnalysisRow, error) {
	site, err := s.site(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return append([]domain.AnalysisRow(nil), site.Analyses...), nil
}

// DatasetEntities returns deep copies of the dataset's entities. Unknown datasets have none.
func (s *Source) DatasetEntities(ctx context.Context, datasetID int) ([]domain.AnalysisEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entities := s.datasets[datasetID]
	out := make([]domain.AnalysisEntity, len(entities))
	for i, e := range entities {
		out[i] = e.Clone()
	}
	return out, nil
}

// LookupTable returns a copy of every row of spec.Table.
func (s *Source) LookupTable(ctx context.Context, spec domain.LookupSpec) ([]domain.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cloneRows(s.tables[spec.Table]), nil
}

// RowsByIDSet returns copies of the rows whose column value is in ids.
func (s *Source) RowsByIDSet(ctx context.Context, table, column string, ids []int) ([]domain.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []domain.Row
	for _, row := range s.tables[table] {
		id, ok := row.Int(column)
		if !ok {
			continue
		}
		if _, hit := want[id]; hit {
			out = append(out, row.Clone())
		}
	}
	return out, nil
}

// SiteEcocodes returns the fixture's site-level bundles.
func (s *Source) SiteEcocodes(ctx context.Context, siteID int) ([]domain.EcocodeBundle, error) {
	site, err := s.site(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return append([]domain.EcocodeBundle(nil), site.SiteEcocodes...), nil
}

// SampleEcocodes returns the fixture's per-sample bundles.
func (s *Source) SampleEcocodes(ctx context.Context, siteID int) ([]domain.SampleEcocodeBundle, error) {
	site, err := s.site(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return append([]domain.SampleEcocodeBundle(nil), site.SampleEcocodes...), nil
}

func cloneRows(rows []domain.Row) []domain.Row {
	if rows == nil {
		return nil
	}
	out := make([]domain.Row, len(rows))
	for i, row := range rows {
		out[i] = row.Clone()
	}
	return out
}
