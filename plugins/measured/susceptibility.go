package measured

import (
	"context"
	"strings"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// Column titles of the magnetic susceptibility pivot.
const (
	ColumnUnburned = "Unburned"
	ColumnBurned   = "Burned"
)

// SusceptibilityModule pivots magnetic susceptibility measurements so that
// the burned and unburned readings of one physical sample share a row. When a
// sample has several readings on one side the first is shown and the rest are
// logged and listed in the cell tooltip.
type SusceptibilityModule struct {
	datasetapi.Base
}

// NewSusceptibility returns the magnetic susceptibility module.
func NewSusceptibility() *SusceptibilityModule {
	return &SusceptibilityModule{Base: datasetapi.Base{
		ModuleName: "magnetic_susceptibility",
		Claims:     datasetapi.ClaimFilter{MethodIDs: []int{MethodMS}},
	}}
}

// MakeSections implements datasetapi.Module.
func (m *SusceptibilityModule) MakeSections(_ context.Context, env *datasetapi.Environment, claimed []domain.AnalysisRecord, sections *domain.SectionList) error {
	for _, rec := range claimed {
		section := datasetapi.MethodSection(env, sections, rec.MethodID)
		table := pivot(env, rec)
		section.AddContent(datasetapi.DatasetContent(env, rec, table,
			datasetapi.BarOption(table, 1, 2, true),
			datasetapi.TableOption(false),
		))
	}
	return nil
}

func pivot(env *datasetapi.Environment, rec domain.AnalysisRecord) domain.Table {
	unit := datasetapi.MethodUnit(env, rec.MethodID)
	table := domain.NewTable(
		domain.Column{Title: "Sample ID", DataType: domain.DataTypeNumber, PKey: true, Hidden: true},
		datasetapi.SampleNameColumn(),
		domain.Column{Title: ColumnUnburned, DataType: domain.DataTypeNumber, Role: unit},
		domain.Column{Title: ColumnBurned, DataType: domain.DataTypeNumber, Role: unit},
	)
	for _, group := range datasetapi.GroupBySample(rec.AnalysisEntities) {
		var unburned, burned reading
		for _, e := range group.Entities {
			v, ok := firstValue(e)
			if !ok {
				continue
			}
			slot := &unburned
			if e.HasPrepMethod(PrepBurned) {
				slot = &burned
			}
			if !slot.set {
				*slot = reading{entityID: e.AnalysisEntityID, value: v, set: true}
				continue
			}
			slot.ignored = append(slot.ignored, v)
			env.Log().Warn("extra magnetic susceptibility reading ignored",
				"dataset_id", rec.DatasetID,
				"physical_sample_id", group.PhysicalSampleID,
				"burned", slot == &burned,
				"kept_entity_id", slot.entityID,
				"kept_value", slot.value,
				"ignored_entity_id", e.AnalysisEntityID,
				"ignored_value", v,
			)
		}
		if !unburned.set && !burned.set {
			continue
		}
		table.AddRow(
			domain.ValueCell(group.PhysicalSampleID),
			datasetapi.SampleCell(env, group.PhysicalSampleID),
			unburned.cell(),
			burned.cell(),
		)
	}
	return table
}

// reading is the first value seen for one side of the pivot. Later values for
// the same side are kept in ignored and surfaced in the cell tooltip.
type reading struct {
	entityID int
	value    float64
	set      bool
	ignored  []float64
}

func (r reading) cell() domain.Cell {
	if !r.set {
		return domain.ValueCell(datasetapi.NoData)
	}
	if len(r.ignored) == 0 {
		return domain.ValueCell(r.value)
	}
	extra := make([]string, len(r.ignored))
	for i, v := range r.ignored {
		extra[i] = datasetapi.FormatNumber(v)
	}
	return domain.TooltipCell(r.value, "Further readings not shown: "+strings.Join(extra, ", "))
}
