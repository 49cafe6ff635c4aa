// Package isotope presents stable isotope measurements per sample.
package isotope

import (
	"context"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// MethodID is isotope analysis.
const MethodID = 175

// Module nests the isotope measurements of each sample in a subtable.
type Module struct {
	datasetapi.Base
}

// New returns the isotope module.
func New() *Module {
	return &Module{Base: datasetapi.Base{
		ModuleName: "isotope",
		Claims:     datasetapi.ClaimFilter{MethodIDs: []int{MethodID}},
	}}
}

// MakeSections implements datasetapi.Module.
func (m *Module) MakeSections(_ context.Context, env *datasetapi.Environment, claimed []domain.AnalysisRecord, sections *domain.SectionList) error {
	for _, rec := range claimed {
		section := datasetapi.MethodSection(env, sections, rec.MethodID)
		table := datasetapi.SubtableLayout(env, rec.AnalysisEntities, func(entities []domain.AnalysisEntity) domain.Table {
			return measurements(env, entities)
		})
		section.AddContent(datasetapi.DatasetContent(env, rec, table))
	}
	return nil
}

func measurements(env *datasetapi.Environment, entities []domain.AnalysisEntity) domain.Table {
	types := env.Lookup(domain.LookupIsotopeTypes)
	specifiers := env.Lookup(domain.LookupIsotopeValueSpecifiers)
	sub := domain.NewTable(
		domain.Column{Title: "Isotope", DataType: domain.DataTypeString},
		domain.Column{Title: "Value", DataType: domain.DataTypeNumber},
		domain.Column{Title: "Specifier", DataType: domain.DataTypeString},
		domain.Column{Title: "Unit", DataType: domain.DataTypeString},
		datasetapi.RowKeyColumn(),
	)
	for _, e := range entities {
		v, ok := e.Payload.(domain.Isotopes)
		if !ok {
			continue
		}
		for i, iso := range v {
			typeRow, _ := types.Get(iso.IsotopeTypeID)
			specifier := domain.ValueCell("")
			if iso.ValueSpecifierID != nil {
				row, _ := specifiers.Get(*iso.ValueSpecifierID)
				specifier = domain.TooltipCell(datasetapi.LookupName(specifiers, *iso.ValueSpecifierID, "name"), row.String("description"))
			}
			value := domain.ValueCell(datasetapi.NoData)
			if iso.Value != nil {
				value = domain.ValueCell(*iso.Value)
			}
			unit := ""
			if iso.UnitID != nil {
				unit = datasetapi.UnitAbbreviation(env, *iso.UnitID)
			}
			sub.AddRow(
				domain.TooltipCell(datasetapi.LookupName(types, iso.IsotopeTypeID, "designation"), typeRow.String("description")),
				value,
				specifier,
				domain.ValueCell(unit),
				datasetapi.RowKey(e.AnalysisEntityID, i),
			)
		}
	}
	return sub
}
