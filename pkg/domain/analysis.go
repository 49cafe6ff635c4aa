package domain

import (
	"encoding/json"
	"fmt"
)

// AnalysisRow is one flat row of the per-site analysis listing. The listing is
// grouped by (method, dataset, sample group), so a dataset spanning several
// sample groups appears once per group.
type AnalysisRow struct {
	MethodID      int    `json:"method_id"`
	MethodGroupID int    `json:"method_group_id"`
	DatasetID     int    `json:"dataset_id"`
	DatasetName   string `json:"dataset_name"`
	SampleGroupID int    `json:"sample_group_id"`
	BiblioID      *int   `json:"biblio_id,omitempty"`
	ContactIDs    []int  `json:"contact_ids,omitempty"`
}

// AnalysisRecord is one dataset of a site together with the analysis entities
// measured within it.
type AnalysisRecord struct {
	DatasetID        int              `json:"dataset_id"`
	MethodID         int              `json:"method_id"`
	MethodGroupID    int              `json:"method_group_id"`
	DatasetName      string           `json:"dataset_name"`
	BiblioID         *int             `json:"biblio_id,omitempty"`
	ContactIDs       []int            `json:"contact_ids,omitempty"`
	SampleGroupIDs   []int            `json:"sample_group_ids,omitempty"`
	AnalysisEntities []AnalysisEntity `json:"analysis_entities,omitempty"`
}

// Clone returns a deep copy of the record.
func (r AnalysisRecord) Clone() AnalysisRecord {
	out := r
	if r.BiblioID != nil {
		id := *r.BiblioID
		out.BiblioID = &id
	}
	out.ContactIDs = append([]int(nil), r.ContactIDs...)
	out.SampleGroupIDs = append([]int(nil), r.SampleGroupIDs...)
	if r.AnalysisEntities != nil {
		out.AnalysisEntities = make([]AnalysisEntity, len(r.AnalysisEntities))
		for i, e := range r.AnalysisEntities {
			out.AnalysisEntities[i] = e.Clone()
		}
	}
	return out
}

// MergeAnalysisRows folds rows sharing a dataset ID into a single record. Datasets
// keep the order in which they were first seen; sample groups and contacts are
// de-duplicated in first-seen order.
func MergeAnalysisRows(rows []AnalysisRow) []AnalysisRecord {
	index := make(map[int]int, len(rows))
	out := make([]AnalysisRecord, 0, len(rows))
	for _, row := range rows {
		pos, ok := index[row.DatasetID]
		if !ok {
			rec := AnalysisRecord{
				DatasetID:     row.DatasetID,
				MethodID:      row.MethodID,
				MethodGroupID: row.MethodGroupID,
				DatasetName:   row.DatasetName,
			}
			if row.BiblioID != nil {
				id := *row.BiblioID
				rec.BiblioID = &id
			}
			out = append(out, rec)
			pos = len(out) - 1
			index[row.DatasetID] = pos
		}
		rec := &out[pos]
		if rec.BiblioID == nil && row.BiblioID != nil {
			id := *row.BiblioID
			rec.BiblioID = &id
		}
		rec.SampleGroupIDs = appendUnique(rec.SampleGroupIDs, row.SampleGroupID)
		for _, c := range row.ContactIDs {
			rec.ContactIDs = appendUnique(rec.ContactIDs, c)
		}
	}
	return out
}

func appendUnique(ids []int, id int) []int {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// AnalysisEntity is a single measurement context: one physical sample analysed
// within one dataset, optionally pre-treated by preparation methods.
type AnalysisEntity struct {
	AnalysisEntityID int
	PhysicalSampleID int
	PrepMethodIDs    []int
	Payload          Payload
}

// HasPrepMethod reports whether the entity was prepared with the given method.
func (e AnalysisEntity) HasPrepMethod(methodID int) bool {
	for _, id := range e.PrepMethodIDs {
		if id == methodID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the entity, including its payload.
func (e AnalysisEntity) Clone() AnalysisEntity {
	out := e
	out.PrepMethodIDs = append([]int(nil), e.PrepMethodIDs...)
	if e.Payload != nil {
		out.Payload = e.Payload.clonePayload()
	}
	return out
}

// entityWire holds at most one payload key. The payload fields are pointers so
// an empty payload still writes its key and decodes back to an empty payload.
type entityWire struct {
	AnalysisEntityID int             `json:"analysis_entity_id"`
	PhysicalSampleID int             `json:"physical_sample_id"`
	PrepMethodIDs    []int           `json:"prep_methods,omitempty"`
	MeasuredValues   *MeasuredValues `json:"measured_values,omitempty"`
	Abundances       *Abundances     `json:"abundances,omitempty"`
	DendroValues     *DendroValues   `json:"dendro_values,omitempty"`
	CeramicValues    *CeramicValues  `json:"ceramic_values,omitempty"`
	Isotopes         *Isotopes       `json:"isotopes,omitempty"`
	DatingValues     *DatingValues   `json:"dating_values,omitempty"`
	EntityAges       *EntityAges     `json:"entity_ages,omitempty"`
	RelativeDates    *RelativeDates  `json:"relative_dates,omitempty"`
	AnalysisValues   *AnalysisValues `json:"analysis_values,omitempty"`
}

// MarshalJSON writes the payload under its wire key. An empty payload is
// written as an empty list; a nil one is omitted.
func (e AnalysisEntity) MarshalJSON() ([]byte, error) {
	w := entityWire{
		AnalysisEntityID: e.AnalysisEntityID,
		PhysicalSampleID: e.PhysicalSampleID,
		PrepMethodIDs:    e.PrepMethodIDs,
	}
	payload := e.Payload
	if payload != nil && payload.isNil() {
		payload = nil
	}
	switch p := payload.(type) {
	case nil:
	case MeasuredValues:
		w.MeasuredValues = &p
	case Abundances:
		w.Abundances = &p
	case DendroValues:
		w.DendroValues = &p
	case CeramicValues:
		w.CeramicValues = &p
	case Isotopes:
		w.Isotopes = &p
	case DatingValues:
		w.DatingValues = &p
	case EntityAges:
		w.EntityAges = &p
	case RelativeDates:
		w.RelativeDates = &p
	case AnalysisValues:
		w.AnalysisValues = &p
	default:
		return nil, fmt.Errorf("analysis entity %d: unsupported payload %T", e.AnalysisEntityID, e.Payload)
	}
	return json.Marshal(w)
}

// UnmarshalJSON selects the first present payload key in PayloadKinds order.
// A key holding null counts as absent.
func (e *AnalysisEntity) UnmarshalJSON(data []byte) error {
	var w entityWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.AnalysisEntityID = w.AnalysisEntityID
	e.PhysicalSampleID = w.PhysicalSampleID
	e.PrepMethodIDs = w.PrepMethodIDs
	switch {
	case w.MeasuredValues != nil:
		e.Payload = *w.MeasuredValues
	case w.Abundances != nil:
		e.Payload = *w.Abundances
	case w.DendroValues != nil:
		e.Payload = *w.DendroValues
	case w.CeramicValues != nil:
		e.Payload = *w.CeramicValues
	case w.Isotopes != nil:
		e.Payload = *w.Isotopes
	case w.DatingValues != nil:
		e.Payload = *w.DatingValues
	case w.EntityAges != nil:
		e.Payload = *w.EntityAges
	case w.RelativeDates != nil:
		e.Payload = *w.RelativeDates
	case w.AnalysisValues != nil:
		e.Payload = *w.AnalysisValues
	default:
		e.Payload = nil
	}
	return nil
}
