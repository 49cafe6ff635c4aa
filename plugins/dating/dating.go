// Package dating holds the dating modules: radiocarbon, ESR, the radiometric
// group fallback, modelled entity ages and relative dating to periods. All of
// them use the flat layout, one row per dated value keyed by
// datasetapi.RowKey.
package dating

import (
	"context"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// Method and method group ids claimed by the dating modules.
const (
	MethodRadiocarbon    = 151
	MethodAMSRadiocarbon = 148
	MethodESR            = 176
	MethodEntityAges     = 184
	GroupRadiometric     = 19
	GroupRelativeDating  = 21
)

type column int

const (
	colSample column = iota
	colMethod
	colLabNumber
	colLab
	colAge
	colAgeRange
	colUncertainty
	colNotes
	colChronology
)

var columnDefs = map[column]domain.Column{
	colSample:      datasetapi.SampleNameColumn(),
	colMethod:      {Title: "Method", DataType: domain.DataTypeString},
	colLabNumber:   {Title: "Lab number", DataType: domain.DataTypeString},
	colLab:         {Title: "Lab", DataType: domain.DataTypeString},
	colAge:         {Title: "Age", DataType: domain.DataTypeString},
	colAgeRange:    {Title: "Age range", DataType: domain.DataTypeString},
	colUncertainty: {Title: "Uncertainty", DataType: domain.DataTypeString},
	colNotes:       {Title: "Notes", DataType: domain.DataTypeString},
	colChronology:  {Title: "Chronology", DataType: domain.DataTypeString},
}

// datingModule renders DatingValues payloads with a fixed column set.
type datingModule struct {
	datasetapi.Base
	columns []column
}

func (m *datingModule) MakeSections(_ context.Context, env *datasetapi.Environment, claimed []domain.AnalysisRecord, sections *domain.SectionList) error {
	for _, rec := range claimed {
		section := datasetapi.MethodSection(env, sections, rec.MethodID)
		table := newTable(m.columns)
		for _, e := range rec.AnalysisEntities {
			values, ok := e.Payload.(domain.DatingValues)
			if !ok {
				continue
			}
			for i, v := range values {
				table.AddRow(datingRow(env, rec, e, i, v, m.columns)...)
			}
		}
		section.AddContent(datasetapi.DatasetContent(env, rec, table))
	}
	return nil
}

func newTable(columns []column) domain.Table {
	defs := []domain.Column{datasetapi.RowKeyColumn()}
	for _, c := range columns {
		defs = append(defs, columnDefs[c])
	}
	return domain.NewTable(defs...)
}

func datingRow(env *datasetapi.Environment, rec domain.AnalysisRecord, e domain.AnalysisEntity, index int, v domain.DatingValue, columns []column) []domain.Cell {
	cells := []domain.Cell{datasetapi.RowKey(e.AnalysisEntityID, index)}
	for _, c := range columns {
		switch c {
		case colSample:
			cells = append(cells, datasetapi.SampleCell(env, e.PhysicalSampleID))
		case colMethod:
			cells = append(cells, domain.TooltipCell(datasetapi.MethodAbbreviation(env, rec.MethodID), datasetapi.MethodTitle(env, rec.MethodID)))
		case colLabNumber:
			cells = append(cells, domain.ValueCell(datasetapi.OrNoData(v.LabNumber)))
		case colLab:
			name, country := datasetapi.LabName(env, v.LabID)
			cells = append(cells, domain.TooltipCell(name, country))
		case colAge:
			cells = append(cells, domain.ValueCell(datasetapi.FormatAgeWithError(v.Age, v.ErrorOlder, v.ErrorYounger)))
		case colAgeRange:
			cells = append(cells, domain.ValueCell(datasetapi.FormatAge(v.AgeOlder, v.AgeYounger)))
		case colUncertainty:
			name, desc := datasetapi.UncertaintyName(env, v.UncertaintyID)
			cells = append(cells, domain.TooltipCell(name, desc))
		case colNotes:
			cells = append(cells, domain.ValueCell(v.Notes))
		default:
			cells = append(cells, domain.ValueCell(""))
		}
	}
	return cells
}

// NewC14 returns the radiocarbon module.
func NewC14() datasetapi.Module {
	return &datingModule{
		Base: datasetapi.Base{
			ModuleName: "c14",
			Claims:     datasetapi.ClaimFilter{MethodIDs: []int{MethodRadiocarbon, MethodAMSRadiocarbon}},
		},
		columns: []column{colSample, colLabNumber, colLab, colAge, colUncertainty, colNotes},
	}
}

// NewESR returns the electron spin resonance module.
func NewESR() datasetapi.Module {
	return &datingModule{
		Base: datasetapi.Base{
			ModuleName: "esr",
			Claims:     datasetapi.ClaimFilter{MethodIDs: []int{MethodESR}},
		},
		columns: []column{colSample, colLabNumber, colLab, colAge, colAgeRange, colUncertainty},
	}
}

// NewRadiometric returns the module claiming every remaining radiometric
// dating method.
func NewRadiometric() datasetapi.Module {
	return &datingModule{
		Base: datasetapi.Base{
			ModuleName: "radiometric",
			Claims:     datasetapi.ClaimFilter{MethodGroupIDs: []int{GroupRadiometric}},
		},
		columns: []column{colSample, colMethod, colLabNumber, colLab, colAge, colAgeRange, colUncertainty},
	}
}
