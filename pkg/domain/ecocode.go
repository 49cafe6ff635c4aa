package domain

// EcocodeRef identifies an ecocode definition.
type EcocodeRef struct {
	DefinitionID int    `json:"ecocode_definition_id"`
	Name         string `json:"name,omitempty"`
	Abbreviation string `json:"abbreviation,omitempty"`
}

// EcocodeBundle aggregates the abundance of every taxon assigned to one ecocode.
type EcocodeBundle struct {
	Ecocode   EcocodeRef `json:"ecocode"`
	Abundance float64    `json:"abundance"`
	Taxa      []int      `json:"taxa,omitempty"`
}

// SampleEcocodeBundle holds the ecocode bundles of one physical sample.
type SampleEcocodeBundle struct {
	PhysicalSampleID int             `json:"physical_sample_id"`
	Ecocodes         []EcocodeBundle `json:"ecocodes"`
}

// TotalAbundance sums the abundance of all bundles.
func TotalAbundance(bundles []EcocodeBundle) float64 {
	var total float64
	for _, b := range bundles {
		total += b.Abundance
	}
	return total
}
