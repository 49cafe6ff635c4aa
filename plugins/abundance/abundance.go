// Package abundance presents taxon counts (insects, macrofossils, pollen and
// similar) and the eco code summaries derived from them.
package abundance

import (
	"context"
	"strconv"
	"strings"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// MethodIDs are the abundance-counting methods.
var MethodIDs = []int{3, 6, 8, 14, 15, 40, 111}

// EcocodeMethodID is the method whose section receives the eco code summaries.
const EcocodeMethodID = 3

// Column positions of the abundance table.
const (
	colAbundanceID = iota
	colSample
	colTaxon
	colAbundance
	colElement
	colModification
	colIdentification
)

// Module builds one abundance table per dataset.
type Module struct {
	datasetapi.Base
}

// New returns the abundance module.
func New() *Module {
	return &Module{Base: datasetapi.Base{
		ModuleName: "abundance",
		Claims:     datasetapi.ClaimFilter{MethodIDs: MethodIDs},
	}}
}

type references struct {
	taxa            *domain.LookupTable
	elements        *domain.LookupTable
	modifications   *domain.LookupTable
	identifications *domain.LookupTable
}

// MakeSections implements datasetapi.Module.
func (m *Module) MakeSections(ctx context.Context, env *datasetapi.Environment, claimed []domain.AnalysisRecord, sections *domain.SectionList) error {
	if len(claimed) == 0 {
		return nil
	}
	refs := m.fetchReferences(ctx, env, claimed)
	for _, rec := range claimed {
		section := datasetapi.MethodSection(env, sections, rec.MethodID)
		table := buildTable(env, rec, refs)
		section.AddContent(datasetapi.DatasetContent(env, rec, table,
			datasetapi.MultistackOption(table, colSample, colAbundance, colTaxon, true),
			datasetapi.TableOption(false),
		))
	}
	if datasetapi.HasMethod(claimed, EcocodeMethodID) {
		addEcocodes(ctx, env, sections)
	}
	return nil
}

func (m *Module) fetchReferences(ctx context.Context, env *datasetapi.Environment, claimed []domain.AnalysisRecord) references {
	var taxa, elements, mods, levels []int
	for _, rec := range claimed {
		for _, e := range rec.AnalysisEntities {
			abundances, ok := e.Payload.(domain.Abundances)
			if !ok {
				continue
			}
			for _, a := range abundances {
				taxa = append(taxa, a.TaxonID)
				if a.ElementID != nil {
					elements = append(elements, *a.ElementID)
				}
				mods = append(mods, a.ModificationIDs...)
				levels = append(levels, a.IdentificationLevelIDs...)
			}
		}
	}

	var refs references
	fetch := func(dst **domain.LookupTable, spec domain.LookupSpec, ids []int) func(context.Context) error {
		return func(ctx context.Context) error {
			table, err := datasetapi.FetchLookup(ctx, env, spec, ids)
			if err != nil {
				env.Log().Warn("abundance reference fetch failed", "table", spec.Table, "ids", len(ids), "error", err)
			}
			*dst = table
			return nil
		}
	}
	_ = datasetapi.FanOut(ctx, env.FetchConcurrency,
		fetch(&refs.taxa, domain.TaxaLookup, taxa),
		fetch(&refs.elements, domain.AbundanceElementsLookup, elements),
		fetch(&refs.modifications, domain.ModificationTypesLookup, mods),
		fetch(&refs.identifications, domain.IdentificationLevelsLookup, levels),
	)
	return refs
}

func buildTable(env *datasetapi.Environment, rec domain.AnalysisRecord, refs references) domain.Table {
	table := domain.NewTable(
		domain.Column{Title: "Abundance ID", DataType: domain.DataTypeNumber, PKey: true, Hidden: true},
		datasetapi.SampleNameColumn(),
		domain.Column{Title: "Taxon", DataType: domain.DataTypeString},
		domain.Column{Title: "Abundance", DataType: domain.DataTypeNumber},
		domain.Column{Title: "Element type", DataType: domain.DataTypeString},
		domain.Column{Title: "Modification", DataType: domain.DataTypeString},
		domain.Column{Title: "Identification levels", DataType: domain.DataTypeString},
	)
	for _, e := range rec.AnalysisEntities {
		abundances, ok := e.Payload.(domain.Abundances)
		if !ok {
			continue
		}
		for _, a := range abundances {
			name, family := taxonName(refs.taxa, a.TaxonID)
			element := domain.ValueCell(datasetapi.NoData)
			if a.ElementID != nil {
				row, _ := refs.elements.Get(*a.ElementID)
				element = domain.TooltipCell(orUnknown(row.String("element_name")), row.String("element_description"))
			}
			table.AddRow(
				domain.ValueCell(a.AbundanceID),
				datasetapi.SampleCell(env, e.PhysicalSampleID),
				domain.TooltipCell(name, family),
				domain.ValueCell(a.Abundance),
				element,
				joinNames(refs.modifications, a.ModificationIDs, "modification_type_name", "modification_type_description"),
				joinNames(refs.identifications, a.IdentificationLevelIDs, "identification_level_name", "identification_level_abbrev"),
			)
		}
	}
	return table
}

// taxonName formats "Genus species author"; the family is returned as tooltip.
// Unresolved taxa render as their id.
func taxonName(taxa *domain.LookupTable, taxonID int) (string, string) {
	row, ok := taxa.Get(taxonID)
	if !ok {
		return strconv.Itoa(taxonID), ""
	}
	parts := make([]string, 0, 3)
	for _, key := range []string{"genus_name", "species", "author_name"} {
		if v := strings.TrimSpace(row.String(key)); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return strconv.Itoa(taxonID), ""
	}
	family := row.String("family_name")
	if family != "" {
		family = "Family: " + family
	}
	return strings.Join(parts, " "), family
}

func joinNames(table *domain.LookupTable, ids []int, nameKey, tooltipKey string) domain.Cell {
	if len(ids) == 0 {
		return domain.ValueCell("")
	}
	names := make([]string, 0, len(ids))
	tips := make([]string, 0, len(ids))
	for _, id := range ids {
		row, ok := table.Get(id)
		if !ok {
			names = append(names, strconv.Itoa(id))
			continue
		}
		names = append(names, orUnknown(row.String(nameKey)))
		if tip := row.String(tooltipKey); tip != "" {
			tips = append(tips, tip)
		}
	}
	return domain.TooltipCell(strings.Join(names, ", "), strings.Join(tips, ", "))
}

func orUnknown(s string) string {
	if s == "" {
		return datasetapi.Unknown
	}
	return s
}
