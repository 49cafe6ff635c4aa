package testhelper

import "sitereport/pkg/domain"

// Sample returns a physical sample fixture.
func Sample(id int, name string) domain.PhysicalSample {
	return domain.PhysicalSample{ID: id, Name: name}
}

// Entity returns an analysis entity fixture.
func Entity(id, physicalSampleID int, payload domain.Payload, prepMethods ...int) domain.AnalysisEntity {
	return domain.AnalysisEntity{
		AnalysisEntityID: id,
		PhysicalSampleID: physicalSampleID,
		PrepMethodIDs:    prepMethods,
		Payload:          payload,
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

func method(id, group int, name, abbrev string, unitID int) domain.Row {
	row := domain.Row{
		"method_id":                 id,
		"method_group_id":           group,
		"method_name":               name,
		"method_abbrev_or_alt_name": abbrev,
		"description":               name + " method description",
	}
	if unitID > 0 {
		row["unit_id"] = unitID
	}
	return row
}

// SeedLookups fills the reference tables used by the module tests.
func SeedLookups(s *Source) {
	s.AddRows("tbl_methods",
		method(3, 1, "Palaeoentomology", "Insects", 0),
		method(6, 1, "Plant macrofossil analysis", "Macro", 0),
		method(8, 1, "Pollen", "Pollen", 0),
		method(10, 3, "Dendrochronology", "Dendro", 0),
		method(32, 2, "Loss on ignition", "LOI", 2),
		method(33, 2, "Magnetic susceptibility", "MS", 3),
		method(36, 19, "Uranium series dating", "U-series", 0),
		method(37, 2, "Phosphate concentration", "P°", 4),
		method(148, 19, "AMS radiocarbon dating", "AMS", 0),
		method(151, 19, "Radiocarbon dating", "C14", 0),
		method(171, 3, "Ceramic characteristics", "Ceramics", 0),
		method(175, 3, "Isotope analysis", "Isotopes", 0),
		method(176, 19, "Electron spin resonance", "ESR", 0),
		method(180, 3, "Ancient DNA", "aDNA", 0),
		method(184, 20, "Modelled entity ages", "Ages", 0),
		method(127, 21, "Archaeological period", "Period", 0),
		method(999, 99, "Unmapped method", "", 0),
	)
	s.AddRows("tbl_method_groups",
		domain.Row{"method_group_id": 1, "group_name": "Abundance"},
		domain.Row{"method_group_id": 2, "group_name": "Physical and chemical measurements"},
		domain.Row{"method_group_id": 19, "group_name": "Radiometric dating"},
		domain.Row{"method_group_id": 21, "group_name": "Relative dating"},
	)
	s.AddRows("tbl_units",
		domain.Row{"unit_id": 1, "unit_name": "gram", "unit_abbrev": "g"},
		domain.Row{"unit_id": 2, "unit_name": "percent", "unit_abbrev": "%"},
		domain.Row{"unit_id": 3, "unit_name": "SI units", "unit_abbrev": "SI"},
		domain.Row{"unit_id": 4, "unit_name": "phosphate degrees", "unit_abbrev": "P°"},
		domain.Row{"unit_id": 5, "unit_name": "per mille", "unit_abbrev": "‰"},
	)
	s.AddRows("tbl_dating_labs",
		domain.Row{"dating_lab_id": 1, "lab_name": "Tandem Laboratory", "international_lab_id": "Ua", "country": "Sweden"},
	)
	s.AddRows("tbl_dating_uncertainty",
		domain.Row{"dating_uncertainty_id": 1, "uncertainty": "ca.", "description": "Approximate value"},
	)
	s.AddRows("tbl_dendro_lookup",
		domain.Row{"dendro_lookup_id": 1, "name": "Tree rings", "description": "Number of counted rings"},
		domain.Row{"dendro_lookup_id": 2, "name": "Estimated felling year", "description": "Year the tree was felled"},
	)
	s.AddRows("tbl_ceramics_lookup",
		domain.Row{"ceramics_lookup_id": 1, "name": "Temper", "description": "Temper material"},
	)
	s.AddRows("tbl_isotope_types",
		domain.Row{"isotope_type_id": 1, "designation": "δ13C", "description": "Carbon 13 ratio"},
		domain.Row{"isotope_type_id": 2, "designation": "δ15N", "description": "Nitrogen 15 ratio"},
	)
	s.AddRows("tbl_isotope_value_specifiers",
		domain.Row{"isotope_value_specifier_id": 1, "name": "=", "description": "Exact value"},
	)
	s.AddRows("tbl_ecocode_definitions",
		domain.Row{"ecocode_definition_id": 1, "name": "Aquatics", "abbreviation": "AQ"},
		domain.Row{"ecocode_definition_id": 2, "name": "Dung/foul habitats", "abbreviation": "DF"},
	)
	s.AddRows("tbl_biblio",
		domain.Row{"biblio_id": 1, "authors": "Buckland, P.", "year": "2007", "title": "The Bugs database", "doi": "10.1000/bugs"},
	)
	s.AddRows("tbl_contacts",
		domain.Row{"contact_id": 1, "first_name": "Ada", "last_name": "Lindqvist", "email": "ada@example.org"},
	)
	s.AddRows("tbl_taxa_tree_master",
		domain.Row{"taxon_id": 1, "family_name": "Carabidae", "genus_name": "Carabus", "species": "granulatus", "author_name": "L."},
		domain.Row{"taxon_id": 2, "family_name": "Scarabaeidae", "genus_name": "Aphodius", "species": "sp.", "author_name": ""},
	)
	s.AddRows("tbl_abundance_elements",
		domain.Row{"abundance_element_id": 1, "element_name": "Elytra", "element_description": "Wing case"},
	)
	s.AddRows("tbl_modification_types",
		domain.Row{"modification_type_id": 1, "modification_type_name": "Carbonised", "modification_type_description": "Burnt remains"},
	)
	s.AddRows("tbl_identification_levels",
		domain.Row{"identification_level_id": 1, "identification_level_abbrev": "cf.", "identification_level_name": "Compare with"},
	)
	s.AddRows("tbl_value_classes",
		domain.Row{"value_class_id": 1, "name": "Reads", "description": "Sequenced reads"},
		domain.Row{"value_class_id": 2, "name": "Haplogroup", "description": "Assigned haplogroup"},
	)
	s.AddRows("tbl_relative_ages",
		domain.Row{"relative_age_id": 1, "relative_age_name": "Bronze Age", "abbreviation": "BA", "description": "Nordic Bronze Age", "c14_age_older": 3700.0, "c14_age_younger": 2500.0},
	)
}
