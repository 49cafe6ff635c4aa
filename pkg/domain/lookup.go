package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Row is an untyped reference-table row as delivered by a data source.
type Row map[string]any

// Int returns the integer value stored under key.
func (r Row) Int(key string) (int, bool) {
	switch v := r[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Float returns the numeric value stored under key.
func (r Row) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// String returns the value under key rendered as text; missing and null values
// yield the empty string.
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// LookupSpec identifies a reference table and the column holding its primary key.
type LookupSpec struct {
	Name  string `json:"name"`
	Table string `json:"table"`
	Key   string `json:"key"`
}

// Standard lookup names.
const (
	LookupMethods                = "methods"
	LookupMethodGroups           = "method_groups"
	LookupUnits                  = "units"
	LookupLabs                   = "labs"
	LookupDatingUncertainty      = "dating_uncertainty"
	LookupDendro                 = "dendro_lookup"
	LookupCeramics               = "ceramics_lookup"
	LookupIsotopeTypes           = "isotope_types"
	LookupIsotopeValueSpecifiers = "isotope_value_specifiers"
	LookupEcocodeDefinitions     = "ecocode_definitions"
	LookupBiblio                 = "biblio"
	LookupContacts               = "contacts"
)

// StandardLookups are the reference tables loaded in full before dispatch.
var StandardLookups = []LookupSpec{
	{Name: LookupMethods, Table: "tbl_methods", Key: "method_id"},
	{Name: LookupMethodGroups, Table: "tbl_method_groups", Key: "method_group_id"},
	{Name: LookupUnits, Table: "tbl_units", Key: "unit_id"},
	{Name: LookupLabs, Table: "tbl_dating_labs", Key: "dating_lab_id"},
	{Name: LookupDatingUncertainty, Table: "tbl_dating_uncertainty", Key: "dating_uncertainty_id"},
	{Name: LookupDendro, Table: "tbl_dendro_lookup", Key: "dendro_lookup_id"},
	{Name: LookupCeramics, Table: "tbl_ceramics_lookup", Key: "ceramics_lookup_id"},
	{Name: LookupIsotopeTypes, Table: "tbl_isotope_types", Key: "isotope_type_id"},
	{Name: LookupIsotopeValueSpecifiers, Table: "tbl_isotope_value_specifiers", Key: "isotope_value_specifier_id"},
	{Name: LookupEcocodeDefinitions, Table: "tbl_ecocode_definitions", Key: "ecocode_definition_id"},
}

// Reference tables fetched by ID set for the ids a site actually references.
var (
	BiblioLookup               = LookupSpec{Name: LookupBiblio, Table: "tbl_biblio", Key: "biblio_id"}
	ContactsLookup             = LookupSpec{Name: LookupContacts, Table: "tbl_contacts", Key: "contact_id"}
	TaxaLookup                 = LookupSpec{Name: "taxa", Table: "tbl_taxa_tree_master", Key: "taxon_id"}
	AbundanceElementsLookup    = LookupSpec{Name: "abundance_elements", Table: "tbl_abundance_elements", Key: "abundance_element_id"}
	ModificationTypesLookup    = LookupSpec{Name: "modification_types", Table: "tbl_modification_types", Key: "modification_type_id"}
	IdentificationLevelsLookup = LookupSpec{Name: "identification_levels", Table: "tbl_identification_levels", Key: "identification_level_id"}
	ValueClassesLookup         = LookupSpec{Name: "value_classes", Table: "tbl_value_classes", Key: "value_class_id"}
	RelativeAgesLookup         = LookupSpec{Name: "relative_ages", Table: "tbl_relative_ages", Key: "relative_age_id"}
)

// LookupTable indexes reference rows by their primary key.
type LookupTable struct {
	Spec LookupSpec
	rows map[int]Row
}

// NewLookupTable indexes rows by spec.Key. Rows without a usable key are skipped.
func NewLookupTable(spec LookupSpec, rows []Row) *LookupTable {
	t := &LookupTable{Spec: spec, rows: make(map[int]Row, len(rows))}
	t.Add(rows...)
	return t
}

// Add indexes additional rows, replacing rows with the same key.
func (t *LookupTable) Add(rows ...Row) {
	if t.rows == nil {
		t.rows = map[int]Row{}
	}
	for _, row := range rows {
		id, ok := row.Int(t.Spec.Key)
		if !ok {
			continue
		}
		t.rows[id] = row
	}
}

// Get returns the row with the given primary key.
func (t *LookupTable) Get(id int) (Row, bool) {
	if t == nil {
		return nil, false
	}
	row, ok := t.rows[id]
	return row, ok
}

// Has reports whether id is indexed.
func (t *LookupTable) Has(id int) bool {
	_, ok := t.Get(id)
	return ok
}

// Len returns the number of indexed rows.
func (t *LookupTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// IDs returns the indexed keys in ascending order.
func (t *LookupTable) IDs() []int {
	if t == nil {
		return nil
	}
	ids := make([]int, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Missing returns the ids not present in the table, de-duplicated, in input order.
func (t *LookupTable) Missing(ids []int) []int {
	var out []int
	seen := map[int]struct{}{}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if !t.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// Lookups maps lookup names to their tables.
type Lookups map[string]*LookupTable

// Table returns the named table, or an empty table when it was never loaded.
func (l Lookups) Table(name string) *LookupTable {
	if t, ok := l[name]; ok && t != nil {
		return t
	}
	spec, ok := StandardLookup(name)
	if !ok {
		spec = LookupSpec{Name: name}
	}
	return &LookupTable{Spec: spec, rows: map[int]Row{}}
}

// StandardLookup returns the LookupSpec of a standard, biblio or contacts lookup.
func StandardLookup(name string) (LookupSpec, bool) {
	for _, spec := range StandardLookups {
		if spec.Name == name {
			return spec, true
		}
	}
	switch name {
	case LookupBiblio:
		return BiblioLookup, true
	case LookupContacts:
		return ContactsLookup, true
	}
	return LookupSpec{}, false
}

// Clone returns a copy of the table that can be extended independently.
func (t *LookupTable) Clone() *LookupTable {
	if t == nil {
		return &LookupTable{rows: map[int]Row{}}
	}
	out := &LookupTable{Spec: t.Spec, rows: make(map[int]Row, len(t.rows))}
	for id, row := range t.rows {
		out.rows[id] = row
	}
	return out
}
