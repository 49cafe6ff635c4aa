package domain

// PayloadKind names the method-specific measurement shape carried by an
// analysis entity. The value doubles as the JSON wire key.
type PayloadKind string

const (
	PayloadMeasuredValues PayloadKind = "measured_values"
	PayloadAbundances     PayloadKind = "abundances"
	PayloadDendroValues   PayloadKind = "dendro_values"
	PayloadCeramicValues  PayloadKind = "ceramic_values"
	PayloadIsotopes       PayloadKind = "isotopes"
	PayloadDatingValues   PayloadKind = "dating_values"
	PayloadEntityAges     PayloadKind = "entity_ages"
	PayloadRelativeDates  PayloadKind = "relative_dates"
	PayloadAnalysisValues PayloadKind = "analysis_values"
)

// PayloadKinds lists every kind in decoding priority order.
var PayloadKinds = []PayloadKind{
	PayloadMeasuredValues,
	PayloadAbundances,
	PayloadDendroValues,
	PayloadCeramicValues,
	PayloadIsotopes,
	PayloadDatingValues,
	PayloadEntityAges,
	PayloadRelativeDates,
	PayloadAnalysisValues,
}

// Payload is the closed set of per-entity measurement shapes.
type Payload interface {
	Kind() PayloadKind
	clonePayload() Payload
	isNil() bool
}

// MeasuredValue is a single numeric measurement.
type MeasuredValue struct {
	Value float64 `json:"measured_value"`
}

type MeasuredValues []MeasuredValue

func (MeasuredValues) Kind() PayloadKind { return PayloadMeasuredValues }
func (p MeasuredValues) clonePayload() Payload {
	if p == nil {
		return MeasuredValues(nil)
	}
	return append(MeasuredValues{}, p...)
}
func (p MeasuredValues) isNil() bool { return p == nil }

// Abundance is one taxon count within an entity.
type Abundance struct {
	AbundanceID            int     `json:"abundance_id"`
	TaxonID                int     `json:"taxon_id"`
	Abundance              float64 `json:"abundance"`
	ElementID              *int    `json:"abundance_element_id,omitempty"`
	ModificationIDs        []int   `json:"modification_type_ids,omitempty"`
	IdentificationLevelIDs []int   `json:"identification_level_ids,omitempty"`
}

type Abundances []Abundance

func (Abundances) Kind() PayloadKind { return PayloadAbundances }
func (p Abundances) isNil() bool     { return p == nil }
func (p Abundances) clonePayload() Payload {
	if p == nil {
		return Abundances(nil)
	}
	out := make(Abundances, len(p))
	for i, a := range p {
		out[i] = a
		if a.ElementID != nil {
			id := *a.ElementID
			out[i].ElementID = &id
		}
		out[i].ModificationIDs = append([]int(nil), a.ModificationIDs...)
		out[i].IdentificationLevelIDs = append([]int(nil), a.IdentificationLevelIDs...)
	}
	return out
}

// DendroValue is a dendrochronological variable measured on a sample.
type DendroValue struct {
	DendroLookupID int    `json:"dendro_lookup_id"`
	Value          string `json:"measurement_value"`
}

type DendroValues []DendroValue

func (DendroValues) Kind() PayloadKind { return PayloadDendroValues }
func (p DendroValues) clonePayload() Payload {
	if p == nil {
		return DendroValues(nil)
	}
	return append(DendroValues{}, p...)
}
func (p DendroValues) isNil() bool { return p == nil }

// CeramicValue is a ceramics variable measured on a sample.
type CeramicValue struct {
	CeramicsLookupID int    `json:"ceramics_lookup_id"`
	Value            string `json:"measurement_value"`
}

type CeramicValues []CeramicValue

func (CeramicValues) Kind() PayloadKind { return PayloadCeramicValues }
func (p CeramicValues) clonePayload() Payload {
	if p == nil {
		return CeramicValues(nil)
	}
	return append(CeramicValues{}, p...)
}
func (p CeramicValues) isNil() bool { return p == nil }

// Isotope is one isotope measurement.
type Isotope struct {
	IsotopeTypeID    int      `json:"isotope_type_id"`
	Value            *float64 `json:"measurement_value,omitempty"`
	ValueSpecifierID *int     `json:"isotope_value_specifier_id,omitempty"`
	UnitID           *int     `json:"unit_id,omitempty"`
}

type Isotopes []Isotope

func (Isotopes) Kind() PayloadKind { return PayloadIsotopes }
func (p Isotopes) isNil() bool     { return p == nil }
func (p Isotopes) clonePayload() Payload {
	if p == nil {
		return Isotopes(nil)
	}
	out := make(Isotopes, len(p))
	for i, v := range p {
		out[i] = Isotope{
			IsotopeTypeID:    v.IsotopeTypeID,
			Value:            cloneFloat(v.Value),
			ValueSpecifierID: cloneInt(v.ValueSpecifierID),
			UnitID:           cloneInt(v.UnitID),
		}
	}
	return out
}

// DatingValue covers radiometric, C14 and ESR determinations.
type DatingValue struct {
	LabID         *int     `json:"dating_lab_id,omitempty"`
	LabNumber     string   `json:"lab_number,omitempty"`
	Age           *float64 `json:"age,omitempty"`
	ErrorOlder    *float64 `json:"error_older,omitempty"`
	ErrorYounger  *float64 `json:"error_younger,omitempty"`
	AgeOlder      *float64 `json:"age_older,omitempty"`
	AgeYounger    *float64 `json:"age_younger,omitempty"`
	UncertaintyID *int     `json:"dating_uncertainty_id,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

type DatingValues []DatingValue

func (DatingValues) Kind() PayloadKind { return PayloadDatingValues }
func (p DatingValues) isNil() bool     { return p == nil }
func (p DatingValues) clonePayload() Payload {
	if p == nil {
		return DatingValues(nil)
	}
	out := make(DatingValues, len(p))
	for i, v := range p {
		out[i] = DatingValue{
			LabID:         cloneInt(v.LabID),
			LabNumber:     v.LabNumber,
			Age:           cloneFloat(v.Age),
			ErrorOlder:    cloneFloat(v.ErrorOlder),
			ErrorYounger:  cloneFloat(v.ErrorYounger),
			AgeOlder:      cloneFloat(v.AgeOlder),
			AgeYounger:    cloneFloat(v.AgeYounger),
			UncertaintyID: cloneInt(v.UncertaintyID),
			Notes:         v.Notes,
		}
	}
	return out
}

// EntityAge is a modelled age attached directly to an analysis entity.
type EntityAge struct {
	Age        *float64 `json:"age,omitempty"`
	AgeOlder   *float64 `json:"age_older,omitempty"`
	AgeYounger *float64 `json:"age_younger,omitempty"`
	Chronology string   `json:"chronology_name,omitempty"`
}

type EntityAges []EntityAge

func (EntityAges) Kind() PayloadKind { return PayloadEntityAges }
func (p EntityAges) isNil() bool     { return p == nil }
func (p EntityAges) clonePayload() Payload {
	if p == nil {
		return EntityAges(nil)
	}
	out := make(EntityAges, len(p))
	for i, v := range p {
		out[i] = EntityAge{
			Age:        cloneFloat(v.Age),
			AgeOlder:   cloneFloat(v.AgeOlder),
			AgeYounger: cloneFloat(v.AgeYounger),
			Chronology: v.Chronology,
		}
	}
	return out
}

// RelativeDate links an entity to a named period.
type RelativeDate struct {
	RelativeAgeID int    `json:"relative_age_id"`
	UncertaintyID *int   `json:"dating_uncertainty_id,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type RelativeDates []RelativeDate

func (RelativeDates) Kind() PayloadKind { return PayloadRelativeDates }
func (p RelativeDates) isNil() bool     { return p == nil }
func (p RelativeDates) clonePayload() Payload {
	if p == nil {
		return RelativeDates(nil)
	}
	out := make(RelativeDates, len(p))
	for i, v := range p {
		out[i] = RelativeDate{RelativeAgeID: v.RelativeAgeID, UncertaintyID: cloneInt(v.UncertaintyID), Notes: v.Notes}
	}
	return out
}

// AnalysisValue is a typed value (aDNA and similar) keyed by value class.
type AnalysisValue struct {
	ValueClassID int    `json:"value_class_id"`
	Value        string `json:"analysis_value"`
	IsUncertain  bool   `json:"is_uncertain,omitempty"`
}

type AnalysisValues []AnalysisValue

func (AnalysisValues) Kind() PayloadKind { return PayloadAnalysisValues }
func (p AnalysisValues) clonePayload() Payload {
	if p == nil {
		return AnalysisValues(nil)
	}
	return append(AnalysisValues{}, p...)
}
func (p AnalysisValues) isNil() bool { return p == nil }

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
