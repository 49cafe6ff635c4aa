// Package generic holds the catch-all module. It claims every record the
// specific modules left behind and lists it under a warning so unsupported
// methods stay visible.
package generic

import (
	"context"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// WarningText is shown on every section produced by the catch-all.
const WarningText = "This type of analysis is not yet fully supported. Only the samples and analysis entities of the dataset are listed."

// Module is the catch-all dataset module.
type Module struct {
	datasetapi.Base
}

// New returns the catch-all module.
func New() *Module {
	return &Module{Base: datasetapi.Base{
		ModuleName: "generic",
		Claims:     datasetapi.ClaimFilter{All: true},
	}}
}

// MakeSections implements datasetapi.Module.
func (m *Module) MakeSections(_ context.Context, env *datasetapi.Environment, claimed []domain.AnalysisRecord, sections *domain.SectionList) error {
	for _, rec := range claimed {
		section := datasetapi.MethodSection(env, sections, rec.MethodID)
		section.Warning = true
		section.WarningText = WarningText

		table := domain.NewTable(
			domain.Column{Title: "Sample ID", DataType: domain.DataTypeString},
			domain.Column{Title: "Analysis entity ID", DataType: domain.DataTypeNumber, PKey: true},
		)
		for _, e := range rec.AnalysisEntities {
			name, group := datasetapi.SampleName(env, e.PhysicalSampleID)
			table.AddRow(
				domain.TooltipCell(name, group),
				domain.ValueCell(e.AnalysisEntityID),
			)
		}
		section.AddContent(datasetapi.DatasetContent(env, rec, table))
		env.Log().Debug("unsupported method listed generically",
			"method_id", rec.MethodID,
			"dataset_id", rec.DatasetID,
			"entities", len(rec.AnalysisEntities),
		)
	}
	return nil
}
