package datasetapi

import "sitereport/pkg/domain"

// SampleEntities is the entities of one physical sample within a dataset.
type SampleEntities struct {
	PhysicalSampleID int
	Entities         []domain.AnalysisEntity
}

// GroupBySample groups entities by physical sample in first-seen order.
func GroupBySample(entities []domain.AnalysisEntity) []SampleEntities {
	index := make(map[int]int)
	var out []SampleEntities
	for _, e := range entities {
		i, ok := index[e.PhysicalSampleID]
		if !ok {
			i = len(out)
			index[e.PhysicalSampleID] = i
			out = append(out, SampleEntities{PhysicalSampleID: e.PhysicalSampleID})
		}
		out[i].Entities = append(out[i].Entities, e)
	}
	return out
}

// SubtableLayout builds the outer table of a subtable-layout dataset: one row
// per physical sample holding the nested table returned by inner. Samples for
// which inner reports no rows are skipped.
func SubtableLayout(env *Environment, entities []domain.AnalysisEntity, inner func([]domain.AnalysisEntity) domain.Table) domain.Table {
	table := domain.NewTable(
		domain.Column{Title: "Sample ID", DataType: domain.DataTypeNumber, PKey: true, Hidden: true},
		SampleNameColumn(),
		domain.Column{Title: "Measurements", DataType: domain.DataTypeSubtable},
	)
	for _, group := range GroupBySample(entities) {
		sub := inner(group.Entities)
		if len(sub.Rows) == 0 {
			continue
		}
		table.AddRow(
			domain.ValueCell(group.PhysicalSampleID),
			SampleCell(env, group.PhysicalSampleID),
			domain.SubtableCell(sub),
		)
	}
	return table
}
