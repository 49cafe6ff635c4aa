// Package ceramic presents ceramic characteristics per sample.
package ceramic

import (
	"context"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// MethodID is ceramic characteristics.
const MethodID = 171

// Module nests ceramic characteristics in a per-sample subtable. Lookup rows
// missing from the preloaded ceramics table are fetched on demand.
type Module struct {
	datasetapi.Base
}

// New returns the ceramics module.
func New() *Module {
	return &Module{Base: datasetapi.Base{
		ModuleName: "ceramic",
		Claims:     datasetapi.ClaimFilter{MethodIDs: []int{MethodID}},
	}}
}

// MakeSections implements datasetapi.Module.
func (m *Module) MakeSections(ctx context.Context, env *datasetapi.Environment, claimed []domain.AnalysisRecord, sections *domain.SectionList) error {
	if len(claimed) == 0 {
		return nil
	}
	var ids []int
	for _, rec := range claimed {
		for _, e := range rec.AnalysisEntities {
			if v, ok := e.Payload.(domain.CeramicValues); ok {
				for _, c := range v {
					ids = append(ids, c.CeramicsLookupID)
				}
			}
		}
	}
	base := env.Lookup(domain.LookupCeramics)
	lookup, err := datasetapi.EnrichLookup(ctx, env, base, base.Spec, ids)
	if err != nil {
		env.Log().Warn("ceramics lookup enrichment failed", "error", err)
	}

	for _, rec := range claimed {
		section := datasetapi.MethodSection(env, sections, rec.MethodID)
		table := datasetapi.SubtableLayout(env, rec.AnalysisEntities, func(entities []domain.AnalysisEntity) domain.Table {
			return characteristics(lookup, entities)
		})
		section.AddContent(datasetapi.DatasetContent(env, rec, table))
	}
	return nil
}

func characteristics(lookup *domain.LookupTable, entities []domain.AnalysisEntity) domain.Table {
	sub := domain.NewTable(
		domain.Column{Title: "Characteristic", DataType: domain.DataTypeString},
		domain.Column{Title: "Value", DataType: domain.DataTypeString},
		datasetapi.RowKeyColumn(),
	)
	for _, e := range entities {
		v, ok := e.Payload.(domain.CeramicValues)
		if !ok {
			continue
		}
		for i, c := range v {
			row, _ := lookup.Get(c.CeramicsLookupID)
			sub.AddRow(
				domain.TooltipCell(datasetapi.LookupName(lookup, c.CeramicsLookupID, "name"), row.String("description")),
				domain.ValueCell(datasetapi.OrNoData(c.Value)),
				datasetapi.RowKey(e.AnalysisEntityID, i),
			)
		}
	}
	return sub
}
