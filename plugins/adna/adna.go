// Package adna presents ancient DNA analysis values, one column per value
// class.
package adna

import (
	"context"
	"strconv"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// MethodID is ancient DNA.
const MethodID = 180

// Module lays out aDNA values flat: one row per analysis entity, one column per
// value class referenced by the dataset.
type Module struct {
	datasetapi.Base
}

// New returns the aDNA module.
func New() *Module {
	return &Module{Base: datasetapi.Base{
		ModuleName: "adna",
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
		ids = append(ids, valueClasses(rec)...)
	}
	classes, err := datasetapi.FetchLookup(ctx, env, domain.ValueClassesLookup, ids)
	if err != nil {
		env.Log().Warn("value class fetch failed", "error", err)
	}
	for _, rec := range claimed {
		section := datasetapi.MethodSection(env, sections, rec.MethodID)
		section.AddContent(datasetapi.DatasetContent(env, rec, buildTable(env, rec, classes)))
	}
	return nil
}

// valueClasses lists the value classes of rec in first-seen order.
func valueClasses(rec domain.AnalysisRecord) []int {
	var ids []int
	for _, e := range rec.AnalysisEntities {
		if v, ok := e.Payload.(domain.AnalysisValues); ok {
			for _, av := range v {
				ids = append(ids, av.ValueClassID)
			}
		}
	}
	return datasetapi.UniqueIDs(ids)
}

func buildTable(env *datasetapi.Environment, rec domain.AnalysisRecord, classes *domain.LookupTable) domain.Table {
	classIDs := valueClasses(rec)
	columns := []domain.Column{datasetapi.EntityKeyColumn(), datasetapi.SampleNameColumn()}
	position := make(map[int]int, len(classIDs))
	for _, id := range classIDs {
		title := strconv.Itoa(id)
		if row, ok := classes.Get(id); ok && row.String("name") != "" {
			title = row.String("name")
		}
		position[id] = len(columns)
		columns = append(columns, domain.Column{Title: title, DataType: domain.DataTypeString, Role: strconv.Itoa(id)})
	}
	table := domain.NewTable(columns...)

	for _, e := range rec.AnalysisEntities {
		values, ok := e.Payload.(domain.AnalysisValues)
		if !ok {
			continue
		}
		cells := make([]domain.Cell, len(columns))
		cells[0] = domain.ValueCell(e.AnalysisEntityID)
		cells[1] = datasetapi.SampleCell(env, e.PhysicalSampleID)
		for i := 2; i < len(cells); i++ {
			cells[i] = domain.ValueCell("")
		}
		for _, av := range values {
			cell := domain.ValueCell(av.Value)
			if av.IsUncertain {
				cell = domain.TooltipCell(av.Value, "Uncertain value")
			}
			cells[position[av.ValueClassID]] = cell
		}
		table.AddRow(cells...)
	}
	return table
}
