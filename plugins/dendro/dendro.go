// Package dendro presents dendrochronological measurements.
package dendro

import (
	"context"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// MethodID is dendrochronology.
const MethodID = 10

// Module nests the dendro variables of each sample in a subtable.
type Module struct {
	datasetapi.Base
}

// New returns the dendrochronology module.
func New() *Module {
	return &Module{Base: datasetapi.Base{
		ModuleName: "dendrochronology",
		Claims:     datasetapi.ClaimFilter{MethodIDs: []int{MethodID}},
	}}
}

// MakeSections implements datasetapi.Module.
func (m *Module) MakeSections(_ context.Context, env *datasetapi.Environment, claimed []domain.AnalysisRecord, sections *domain.SectionList) error {
	lookup := env.Lookup(domain.LookupDendro)
	for _, rec := range claimed {
		section := datasetapi.MethodSection(env, sections, rec.MethodID)
		table := datasetapi.SubtableLayout(env, rec.AnalysisEntities, func(entities []domain.AnalysisEntity) domain.Table {
			return variables(lookup, entities)
		})
		section.AddContent(datasetapi.DatasetContent(env, rec, table))
	}
	return nil
}

func variables(lookup *domain.LookupTable, entities []domain.AnalysisEntity) domain.Table {
	sub := domain.NewTable(
		domain.Column{Title: "Variable", DataType: domain.DataTypeString},
		domain.Column{Title: "Value", DataType: domain.DataTypeString},
		datasetapi.RowKeyColumn(),
	)
	for _, e := range entities {
		v, ok := e.Payload.(domain.DendroValues)
		if !ok {
			continue
		}
		for i, d := range v {
			row, _ := lookup.Get(d.DendroLookupID)
			sub.AddRow(
				domain.TooltipCell(datasetapi.LookupName(lookup, d.DendroLookupID, "name"), row.String("description")),
				domain.ValueCell(datasetapi.OrNoData(d.Value)),
				datasetapi.RowKey(e.AnalysisEntityID, i),
			)
		}
	}
	return sub
}
