package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"sitereport/pkg/domain"
	"sitereport/plugins/abundance"
	"sitereport/plugins/adna"
	"sitereport/plugins/ceramic"
	"sitereport/plugins/dating"
	"sitereport/plugins/dendro"
	"sitereport/plugins/isotope"
	"sitereport/plugins/measured"
)

// payloadTable describes where the measurements of one payload kind live.
// Selected column names match the payload's JSON tags so rows decode
// directly into the payload type.
type payloadTable struct {
	table   string
	columns []column
	enrich  func(ctx context.Context, s *Source, rows []domain.Row) error
	decode  func(rows []domain.Row) (domain.Payload, error)
}

var (
	abundanceTable = payloadTable{
		table: "tbl_abundances",
		columns: []column{col("abundance_id"), col("analysis_entity_id"), col("taxon_id"),
			castCol("abundance", "float8"), col("abundance_element_id")},
		enrich: attachAbundanceDetails,
		decode: decodeAs[domain.Abundances],
	}
	dendroTable = payloadTable{
		table:   "tbl_dendro",
		columns: []column{col("analysis_entity_id"), col("dendro_lookup_id"), castCol("measurement_value", "text")},
		decode:  decodeAs[domain.DendroValues],
	}
	ceramicTable = payloadTable{
		table:   "tbl_ceramics",
		columns: []column{col("analysis_entity_id"), col("ceramics_lookup_id"), castCol("measurement_value", "text")},
		decode:  decodeAs[domain.CeramicValues],
	}
	isotopeTable = payloadTable{
		table: "tbl_isotopes",
		columns: []column{col("analysis_entity_id"), col("isotope_type_id"), castCol("measurement_value", "float8"),
			col("isotope_value_specifier_id"), col("unit_id")},
		decode: decodeAs[domain.Isotopes],
	}
	analysisValueTable = payloadTable{
		table:   "tbl_analysis_values",
		columns: []column{col("analysis_entity_id"), col("value_class_id"), castCol("analysis_value", "text"), col("is_uncertain")},
		decode:  decodeAs[domain.AnalysisValues],
	}
	datingTable = payloadTable{
		table: "tbl_geochronology",
		columns: []column{col("analysis_entity_id"), col("dating_lab_id"), castCol("lab_number", "text"),
			castCol("age", "float8"), castCol("error_older", "float8"), castCol("error_younger", "float8"),
			castCol("age_older", "float8"), castCol("age_younger", "float8"), col("dating_uncertainty_id"),
			castCol("notes", "text")},
		decode: decodeAs[domain.DatingValues],
	}
	entityAgeTable = payloadTable{
		table: "tbl_analysis_entity_ages",
		columns: []column{col("analysis_entity_id"), castCol("age", "float8"), castCol("age_older", "float8"),
			castCol("age_younger", "float8"), col("chronology_id")},
		enrich: attachChronologyNames,
		decode: decodeAs[domain.EntityAges],
	}
	relativeDateTable = payloadTable{
		table:   "tbl_relative_dates",
		columns: []column{col("analysis_entity_id"), col("relative_age_id"), col("dating_uncertainty_id"), castCol("notes", "text")},
		decode:  decodeAs[domain.RelativeDates],
	}
	measuredValueTable = payloadTable{
		table:   "tbl_measured_values",
		columns: []column{col("analysis_entity_id"), castCol("measured_value", "float8")},
		decode:  decodeAs[domain.MeasuredValues],
	}
)

// payloadFor picks the payload table of a dataset from its method, checking
// the same method-before-group precedence the default module catalog uses.
func payloadFor(methodID, groupID int) (payloadTable, bool) {
	switch {
	case slices.Contains(abundance.MethodIDs, methodID):
		return abundanceTable, true
	case methodID == dendro.MethodID:
		return dendroTable, true
	case methodID == ceramic.MethodID:
		return ceramicTable, true
	case methodID == isotope.MethodID:
		return isotopeTable, true
	case methodID == adna.MethodID:
		return analysisValueTable, true
	case methodID == dating.MethodRadiocarbon, methodID == dating.MethodAMSRadiocarbon,
		methodID == dating.MethodESR, groupID == dating.GroupRadiometric:
		return datingTable, true
	case methodID == dating.MethodEntityAges:
		return entityAgeTable, true
	case groupID == dating.GroupRelativeDating:
		return relativeDateTable, true
	case methodID == measured.MethodLOI, methodID == measured.MethodMS,
		slices.Contains(measured.MeasuredValueMethodIDs, methodID), groupID == measured.GroupMeasurements:
		return measuredValueTable, true
	}
	return payloadTable{}, false
}

// DatasetEntities loads the entities of one dataset with the payload table
// chosen by the dataset's method.
func (s *Source) DatasetEntities(ctx context.Context, datasetID int) ([]domain.AnalysisEntity, error) {
	datasets, err := s.selectIn(ctx, "tbl_datasets", "dataset_id", []int{datasetID}, col("dataset_id"), col("method_id"))
	if err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		return nil, fmt.Errorf("dataset %d: %w", datasetID, ErrNotFound)
	}
	methodID, _ := datasets[0].Int("method_id")
	methods, err := s.selectIn(ctx, "tbl_methods", "method_id", []int{methodID}, col("method_id"), col("method_group_id"))
	if err != nil {
		return nil, err
	}
	var groupID int
	if len(methods) > 0 {
		groupID, _ = methods[0].Int("method_group_id")
	}

	rows, err := s.selectIn(ctx, "tbl_analysis_entities", "dataset_id", []int{datasetID},
		col("analysis_entity_id"), col("physical_sample_id"))
	if err != nil {
		return nil, err
	}
	sortRows(rows, "analysis_entity_id")
	entityIDs := intsOf(rows, "analysis_entity_id")

	preps, err := s.selectIn(ctx, "tbl_analysis_entity_prep_methods", "analysis_entity_id", entityIDs,
		col("analysis_entity_id"), col("method_id"))
	if err != nil {
		return nil, err
	}
	prepsOf := map[int][]int{}
	sortRows(preps, "method_id")
	for _, row := range preps {
		id, _ := row.Int("analysis_entity_id")
		m, _ := row.Int("method_id")
		prepsOf[id] = append(prepsOf[id], m)
	}

	payloads := map[int]domain.Payload{}
	if table, ok := payloadFor(methodID, groupID); ok {
		payloads, err = s.loadPayloads(ctx, table, entityIDs)
		if err != nil {
			return nil, err
		}
	}

	out := make([]domain.AnalysisEntity, 0, len(rows))
	for _, row := range rows {
		id, _ := row.Int("analysis_entity_id")
		sample, _ := row.Int("physical_sample_id")
		out = append(out, domain.AnalysisEntity{
			AnalysisEntityID: id,
			PhysicalSampleID: sample,
			PrepMethodIDs:    prepsOf[id],
			Payload:          payloads[id],
		})
	}
	return out, nil
}

func (s *Source) loadPayloads(ctx context.Context, table payloadTable, entityIDs []int) (map[int]domain.Payload, error) {
	rows, err := s.selectIn(ctx, table.table, "analysis_entity_id", entityIDs, table.columns...)
	if err != nil {
		return nil, err
	}
	if table.enrich != nil && len(rows) > 0 {
		if err := table.enrich(ctx, s, rows); err != nil {
			return nil, err
		}
	}
	grouped := map[int][]domain.Row{}
	for _, row := range rows {
		id, _ := row.Int("analysis_entity_id")
		grouped[id] = append(grouped[id], row)
	}
	out := make(map[int]domain.Payload, len(grouped))
	for id, group := range grouped {
		payload, err := table.decode(group)
		if err != nil {
			return nil, fmt.Errorf("decode %s for entity %d: %w", table.table, id, err)
		}
		out[id] = payload
	}
	return out, nil
}

// decodeAs converts rows into a payload slice through their JSON form.
func decodeAs[T domain.Payload](rows []domain.Row) (domain.Payload, error) {
	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func attachAbundanceDetails(ctx context.Context, s *Source, rows []domain.Row) error {
	ids := intsOf(rows, "abundance_id")
	modifications, err := s.selectIn(ctx, "tbl_abundance_modifications", "abundance_id", ids,
		col("abundance_id"), col("modification_type_id"))
	if err != nil {
		return err
	}
	levels, err := s.selectIn(ctx, "tbl_abundance_ident_levels", "abundance_id", ids,
		col("abundance_id"), col("identification_level_id"))
	if err != nil {
		return err
	}
	mods := groupInts(modifications, "abundance_id", "modification_type_id")
	idents := groupInts(levels, "abundance_id", "identification_level_id")
	for _, row := range rows {
		id, _ := row.Int("abundance_id")
		if v := mods[id]; len(v) > 0 {
			row["modification_type_ids"] = v
		}
		if v := idents[id]; len(v) > 0 {
			row["identification_level_ids"] = v
		}
	}
	return nil
}

func attachChronologyNames(ctx context.Context, s *Source, rows []domain.Row) error {
	chronologies, err := s.selectIn(ctx, "tbl_chronologies", "chronology_id", intsOf(rows, "chronology_id"),
		col("chronology_id"), castCol("chronology_name", "text"))
	if err != nil {
		return err
	}
	names := map[int]string{}
	for _, row := range chronologies {
		id, _ := row.Int("chronology_id")
		names[id] = row.String("chronology_name")
	}
	for _, row := range rows {
		if id, ok := row.Int("chronology_id"); ok {
			row["chronology_name"] = names[id]
		}
	}
	return nil
}

func groupInts(rows []domain.Row, key, value string) map[int][]int {
	out := map[int][]int{}
	sortRows(rows, value)
	for _, row := range rows {
		k, _ := row.Int(key)
		if v, ok := row.Int(value); ok {
			out[k] = append(out[k], v)
		}
	}
	return out
}
