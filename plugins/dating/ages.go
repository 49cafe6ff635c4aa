package dating

import (
	"context"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// EntityAgesModule renders modelled ages attached to analysis entities.
type EntityAgesModule struct {
	datasetapi.Base
}

// NewEntityAges returns the modelled entity ages module.
func NewEntityAges() *EntityAgesModule {
	return &EntityAgesModule{Base: datasetapi.Base{
		ModuleName: "entity_ages",
		Claims:     datasetapi.ClaimFilter{MethodIDs: []int{MethodEntityAges}},
	}}
}

// MakeSections implements datasetapi.Module.
func (m *EntityAgesModule) MakeSections(_ context.Context, env *datasetapi.Environment, claimed []domain.AnalysisRecord, sections *domain.SectionList) error {
	for _, rec := range claimed {
		section := datasetapi.MethodSection(env, sections, rec.MethodID)
		table := newTable([]column{colSample, colAge, colAgeRange, colChronology})
		for _, e := range rec.AnalysisEntities {
			ages, ok := e.Payload.(domain.EntityAges)
			if !ok {
				continue
			}
			for i, a := range ages {
				age := datasetapi.NoData
				if a.Age != nil {
					age = datasetapi.FormatNumber(*a.Age) + " BP"
				}
				table.AddRow(
					datasetapi.RowKey(e.AnalysisEntityID, i),
					datasetapi.SampleCell(env, e.PhysicalSampleID),
					domain.ValueCell(age),
					domain.ValueCell(datasetapi.FormatAge(a.AgeOlder, a.AgeYounger)),
					domain.ValueCell(datasetapi.OrNoData(a.Chronology)),
				)
			}
		}
		section.AddContent(datasetapi.DatasetContent(env, rec, table))
	}
	return nil
}

// PeriodModule renders relative dates: each entity is dated to a named
// period whose age range comes from the relative ages table.
type PeriodModule struct {
	datasetapi.Base
}

// NewPeriod returns the dating-to-period module.
func NewPeriod() *PeriodModule {
	return &PeriodModule{Base: datasetapi.Base{
		ModuleName: "dating_to_period",
		Claims:     datasetapi.ClaimFilter{MethodGroupIDs: []int{GroupRelativeDating}},
	}}
}

// MakeSections implements datasetapi.Module.
func (m *PeriodModule) MakeSections(ctx context.Context, env *datasetapi.Environment, claimed []domain.AnalysisRecord, sections *domain.SectionList) error {
	if len(claimed) == 0 {
		return nil
	}
	var ids []int
	for _, rec := range claimed {
		for _, e := range rec.AnalysisEntities {
			if dates, ok := e.Payload.(domain.RelativeDates); ok {
				for _, d := range dates {
					ids = append(ids, d.RelativeAgeID)
				}
			}
		}
	}
	periods, err := datasetapi.FetchLookup(ctx, env, domain.RelativeAgesLookup, ids)
	if err != nil {
		env.Log().Warn("relative age fetch failed", "ids", len(ids), "error", err)
	}

	for _, rec := range claimed {
		section := datasetapi.MethodSection(env, sections, rec.MethodID)
		table := domain.NewTable(
			datasetapi.RowKeyColumn(),
			datasetapi.SampleNameColumn(),
			domain.Column{Title: "Period", DataType: domain.DataTypeString},
			domain.Column{Title: "Age range", DataType: domain.DataTypeString},
			columnDefs[colUncertainty],
			columnDefs[colNotes],
		)
		for _, e := range rec.AnalysisEntities {
			dates, ok := e.Payload.(domain.RelativeDates)
			if !ok {
				continue
			}
			for i, d := range dates {
				table.AddRow(periodRow(env, periods, e, i, d)...)
			}
		}
		section.AddContent(datasetapi.DatasetContent(env, rec, table))
	}
	return nil
}

func periodRow(env *datasetapi.Environment, periods *domain.LookupTable, e domain.AnalysisEntity, index int, d domain.RelativeDate) []domain.Cell {
	row, found := periods.Get(d.RelativeAgeID)
	period := domain.ValueCell(datasetapi.LookupName(periods, d.RelativeAgeID, "relative_age_name"))
	ageRange := datasetapi.NoData
	if found {
		period.Tooltip = row.String("description")
		var older, younger *float64
		if v, ok := row.Float("c14_age_older"); ok {
			older = &v
		}
		if v, ok := row.Float("c14_age_younger"); ok {
			younger = &v
		}
		ageRange = datasetapi.FormatAge(older, younger)
	}
	uncertainty, desc := datasetapi.UncertaintyName(env, d.UncertaintyID)
	return []domain.Cell{
		datasetapi.RowKey(e.AnalysisEntityID, index),
		datasetapi.SampleCell(env, e.PhysicalSampleID),
		period,
		domain.ValueCell(ageRange),
		domain.TooltipCell(uncertainty, desc),
		domain.ValueCell(d.Notes),
	}
}
