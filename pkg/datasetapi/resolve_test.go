package datasetapi

import (
	"strings"
	"testing"

	"sitereport/pkg/domain"
)

func resolveEnv() *Environment {
	lookups := domain.Lookups{}
	add := func(spec domain.LookupSpec, rows ...domain.Row) {
		lookups[spec.Name] = domain.NewLookupTable(spec, rows)
	}
	add(domain.LookupSpec{Name: domain.LookupMethods, Key: "method_id"},
		domain.Row{"method_id": 3, "method_name": "Palaeoentomology", "method_abbrev_or_alt_name": "Ento", "unit_id": 5, "description": "Insects"},
		domain.Row{"method_id": 4, "method_name": "Pollen"},
	)
	add(domain.LookupSpec{Name: domain.LookupUnits, Key: "unit_id"},
		domain.Row{"unit_id": 5, "unit_name": "count"},
		domain.Row{"unit_id": 6, "unit_name": "milligram", "unit_abbrev": "mg"},
	)
	add(domain.LookupSpec{Name: domain.LookupLabs, Key: "dating_lab_id"},
		domain.Row{"dating_lab_id": 1, "international_lab_id": "Ua", "country": "Sweden"},
	)
	add(domain.BiblioLookup,
		domain.Row{"biblio_id": 7, "authors": "Buckland & <Smith>", "year": "2001", "title": "Beetles", "doi": "10.1/x"},
	)
	add(domain.ContactsLookup,
		domain.Row{"contact_id": 1, "first_name": "Ada", "last_name": "Lund", "email": "ada@example.org"},
		domain.Row{"contact_id": 2},
	)
	return &Environment{
		Lookups: lookups,
		Site: domain.Site{ID: 1, SampleGroups: []domain.SampleGroup{{
			ID: 10, Name: "Trench 1",
			PhysicalSamples: []domain.PhysicalSample{{ID: 100, Name: "S1"}, {ID: 101}},
		}}},
	}
}

func TestMethodResolution(t *testing.T) {
	env := resolveEnv()
	if got := MethodTitle(env, 3); got != "Palaeoentomology" {
		t.Fatalf("title: %q", got)
	}
	if got := MethodTitle(env, 99); got != "Method 99" {
		t.Fatalf("fallback title: %q", got)
	}
	if got := MethodAbbreviation(env, 4); got != "Pollen" {
		t.Fatalf("abbreviation fallback: %q", got)
	}
	if got := MethodAbbreviation(env, 3); got != "Ento" {
		t.Fatalf("abbreviation: %q", got)
	}
	if got := MethodDescription(env, 3); got != "Insects" {
		t.Fatalf("description: %q", got)
	}
	if got := MethodUnit(env, 3); got != "count" {
		t.Fatalf("unit falls back to name: %q", got)
	}
	if got := UnitAbbreviation(env, 6); got != "mg" {
		t.Fatalf("unit abbreviation: %q", got)
	}
	if got := MethodUnit(env, 4); got != "" {
		t.Fatalf("method without unit: %q", got)
	}
}

func TestLabAndSampleNames(t *testing.T) {
	env := resolveEnv()
	lab := 1
	if name, tip := LabName(env, &lab); name != "Ua" || tip != "Sweden" {
		t.Fatalf("lab: %q %q", name, tip)
	}
	if name, _ := LabName(env, nil); name != NoData {
		t.Fatalf("nil lab: %q", name)
	}
	missing := 2
	if name, _ := LabName(env, &missing); name != Unknown {
		t.Fatalf("unknown lab: %q", name)
	}

	if name, tip := SampleName(env, 100); name != "S1" || tip != "Sample group: Trench 1" {
		t.Fatalf("sample: %q %q", name, tip)
	}
	if name, _ := SampleName(env, 101); name != "101" {
		t.Fatalf("unnamed sample: %q", name)
	}
	if name, tip := SampleName(env, 555); name != "555" || tip != "" {
		t.Fatalf("foreign sample: %q %q", name, tip)
	}
	if cell := SampleCell(env, 100); cell.Value != "S1" || cell.Tooltip == "" {
		t.Fatalf("sample cell: %+v", cell)
	}
}

func TestBiblioAndContactsAreEscaped(t *testing.T) {
	env := resolveEnv()
	id := 7
	got := BiblioHTML(env, &id)
	for _, want := range []string{"Buckland &amp; &lt;Smith&gt;", "(2001)", "<i>Beetles</i>", "https://doi.org/10.1/x"} {
		if !strings.Contains(got, want) {
			t.Fatalf("biblio %q missing %q", got, want)
		}
	}
	if BiblioHTML(env, nil) != "" {
		t.Fatal("nil biblio should render nothing")
	}

	contacts := ContactsHTML(env, []int{1, 2, 3})
	if strings.Count(contacts, "dataset-contact") != 1 {
		t.Fatalf("expected one resolvable contact, got %q", contacts)
	}
	if !strings.Contains(contacts, "mailto:ada@example.org") {
		t.Fatalf("contact email missing: %q", contacts)
	}
}

func TestLookupNameFallsBackToUnknown(t *testing.T) {
	table := domain.NewLookupTable(domain.LookupSpec{Key: "id"}, []domain.Row{{"id": 1, "name": "x"}, {"id": 2}})
	if got := LookupName(table, 1, "name"); got != "x" {
		t.Fatalf("got %q", got)
	}
	if got := LookupName(table, 2, "name"); got != Unknown {
		t.Fatalf("blank column: %q", got)
	}
	if got := LookupName(table, 3, "name"); got != Unknown {
		t.Fatalf("missing row: %q", got)
	}
}
