// Package measured presents single-valued physical and chemical measurements:
// magnetic susceptibility, loss on ignition and the generic measured value
// methods.
package measured

import (
	"context"
	"strings"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// Method ids handled by this package.
const (
	MethodLOI         = 32
	MethodMS          = 33
	GroupMeasurements = 2
	// PrepBurned marks a sample heated before measurement.
	PrepBurned = 82
)

// MeasuredValueMethodIDs are measured-value methods outside GroupMeasurements.
var MeasuredValueMethodIDs = []int{37, 74, 94, 106, 107, 109, 110}

// valueTitle is the value column title, including the method unit when known.
func valueTitle(env *datasetapi.Environment, title string, methodID int) string {
	if unit := datasetapi.MethodUnit(env, methodID); unit != "" {
		return title + " (" + unit + ")"
	}
	return title
}

// firstValue returns the first measured value of e.
func firstValue(e domain.AnalysisEntity) (float64, bool) {
	values, ok := e.Payload.(domain.MeasuredValues)
	if !ok || len(values) == 0 {
		return 0, false
	}
	return values[0].Value, true
}

// LOIModule renders loss on ignition values.
type LOIModule struct {
	datasetapi.Base
}

// NewLOI returns the loss on ignition module.
func NewLOI() *LOIModule {
	return &LOIModule{Base: datasetapi.Base{
		ModuleName: "loss_on_ignition",
		Claims:     datasetapi.ClaimFilter{MethodIDs: []int{MethodLOI}},
	}}
}

// MakeSections implements datasetapi.Module.
func (m *LOIModule) MakeSections(_ context.Context, env *datasetapi.Environment, claimed []domain.AnalysisRecord, sections *domain.SectionList) error {
	for _, rec := range claimed {
		section := datasetapi.MethodSection(env, sections, rec.MethodID)
		table := domain.NewTable(
			datasetapi.EntityKeyColumn(),
			datasetapi.SampleNameColumn(),
			domain.Column{Title: valueTitle(env, "Loss on ignition", rec.MethodID), DataType: domain.DataTypeNumber},
		)
		for _, e := range rec.AnalysisEntities {
			v, ok := firstValue(e)
			if !ok {
				continue
			}
			table.AddRow(
				domain.ValueCell(e.AnalysisEntityID),
				datasetapi.SampleCell(env, e.PhysicalSampleID),
				domain.ValueCell(v),
			)
		}
		section.AddContent(datasetapi.DatasetContent(env, rec, table,
			datasetapi.BarOption(table, 1, 2, true),
			datasetapi.TableOption(false),
		))
	}
	return nil
}

// ValueModule renders the remaining measured-value methods with their
// preparation methods.
type ValueModule struct {
	datasetapi.Base
}

// NewMeasuredValue returns the generic measured value module.
func NewMeasuredValue() *ValueModule {
	return &ValueModule{Base: datasetapi.Base{
		ModuleName: "measured_value",
		Claims: datasetapi.ClaimFilter{
			MethodIDs:      MeasuredValueMethodIDs,
			MethodGroupIDs: []int{GroupMeasurements},
		},
	}}
}

// MakeSections implements datasetapi.Module.
func (m *ValueModule) MakeSections(_ context.Context, env *datasetapi.Environment, claimed []domain.AnalysisRecord, sections *domain.SectionList) error {
	for _, rec := range claimed {
		section := datasetapi.MethodSection(env, sections, rec.MethodID)
		table := domain.NewTable(
			datasetapi.EntityKeyColumn(),
			datasetapi.SampleNameColumn(),
			domain.Column{Title: valueTitle(env, "Value", rec.MethodID), DataType: domain.DataTypeNumber},
			domain.Column{Title: "Preparation methods", DataType: domain.DataTypeString},
		)
		for _, e := range rec.AnalysisEntities {
			v, ok := firstValue(e)
			if !ok {
				continue
			}
			table.AddRow(
				domain.ValueCell(e.AnalysisEntityID),
				datasetapi.SampleCell(env, e.PhysicalSampleID),
				domain.ValueCell(v),
				prepMethods(env, e.PrepMethodIDs),
			)
		}
		section.AddContent(datasetapi.DatasetContent(env, rec, table,
			datasetapi.BarOption(table, 1, 2, true),
			datasetapi.TableOption(false),
		))
	}
	return nil
}

func prepMethods(env *datasetapi.Environment, ids []int) domain.Cell {
	if len(ids) == 0 {
		return domain.ValueCell("")
	}
	names := make([]string, 0, len(ids))
	descs := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, datasetapi.MethodAbbreviation(env, id))
		if d := datasetapi.MethodDescription(env, id); d != "" {
			descs = append(descs, d)
		}
	}
	return domain.TooltipCell(strings.Join(names, ", "), strings.Join(descs, "; "))
}
