package postgres

import (
	"context"
	"fmt"
	"sort"

	"sitereport/pkg/domain"
	"sitereport/plugins/abundance"
)

// siteEntities is the sample and entity skeleton of one site.
type siteEntities struct {
	groups   []domain.Row
	samples  []domain.Row
	entities []domain.Row
	groupOf  map[int]int
}

// Site loads the site with its sample groups and physical samples.
func (s *Source) Site(ctx context.Context, siteID int) (domain.Site, error) {
	sites, err := s.selectIn(ctx, "tbl_sites", "site_id", []int{siteID},
		col("site_id"), castCol("site_name", "text"))
	if err != nil {
		return domain.Site{}, err
	}
	if len(sites) == 0 {
		return domain.Site{}, fmt.Errorf("site %d: %w", siteID, ErrNotFound)
	}
	skeleton, err := s.skeleton(ctx, siteID, false)
	if err != nil {
		return domain.Site{}, err
	}
	site := domain.Site{ID: siteID, Name: sites[0].String("site_name")}
	index := make(map[int]int, len(skeleton.groups))
	for _, row := range skeleton.groups {
		id, _ := row.Int("sample_group_id")
		method, _ := row.Int("method_id")
		index[id] = len(site.SampleGroups)
		site.SampleGroups = append(site.SampleGroups, domain.SampleGroup{
			ID:       id,
			Name:     row.String("sample_group_name"),
			MethodID: method,
		})
	}
	for _, row := range skeleton.samples {
		groupID, _ := row.Int("sample_group_id")
		pos, ok := index[groupID]
		if !ok {
			continue
		}
		id, _ := row.Int("physical_sample_id")
		typeID, _ := row.Int("sample_type_id")
		site.SampleGroups[pos].PhysicalSamples = append(site.SampleGroups[pos].PhysicalSamples, domain.PhysicalSample{
			ID:           id,
			Name:         row.String("sample_name"),
			SampleTypeID: typeID,
		})
	}
	return site, nil
}

// skeleton loads the sample groups and samples of a site, plus their analysis
// entities when withEntities is set. Rows are ordered by id.
func (s *Source) skeleton(ctx context.Context, siteID int, withEntities bool) (siteEntities, error) {
	var out siteEntities
	var err error
	out.groups, err = s.selectIn(ctx, "tbl_sample_groups", "site_id", []int{siteID},
		col("sample_group_id"), castCol("sample_group_name", "text"), col("method_id"))
	if err != nil {
		return out, err
	}
	sortRows(out.groups, "sample_group_id")
	out.samples, err = s.selectIn(ctx, "tbl_physical_samples", "sample_group_id", intsOf(out.groups, "sample_group_id"),
		col("physical_sample_id"), col("sample_group_id"), castCol("sample_name", "text"), col("sample_type_id"))
	if err != nil {
		return out, err
	}
	sortRows(out.samples, "physical_sample_id")
	out.groupOf = make(map[int]int, len(out.samples))
	for _, row := range out.samples {
		id, _ := row.Int("physical_sample_id")
		out.groupOf[id], _ = row.Int("sample_group_id")
	}
	if !withEntities {
		return out, nil
	}
	out.entities, err = s.selectIn(ctx, "tbl_analysis_entities", "physical_sample_id", intsOf(out.samples, "physical_sample_id"),
		col("analysis_entity_id"), col("physical_sample_id"), col("dataset_id"))
	if err != nil {
		return out, err
	}
	sortRows(out.entities, "analysis_entity_id")
	return out, nil
}

// Analyses lists one row per dataset analysed from the site's samples.
func (s *Source) Analyses(ctx context.Context, siteID int) ([]domain.AnalysisRow, error) {
	skeleton, err := s.skeleton(ctx, siteID, true)
	if err != nil {
		return nil, err
	}
	datasets, err := s.selectIn(ctx, "tbl_datasets", "dataset_id", intsOf(skeleton.entities, "dataset_id"),
		col("dataset_id"), castCol("dataset_name", "text"), col("method_id"), col("biblio_id"))
	if err != nil {
		return nil, err
	}
	methods, err := s.selectIn(ctx, "tbl_methods", "method_id", intsOf(datasets, "method_id"),
		col("method_id"), col("method_group_id"))
	if err != nil {
		return nil, err
	}
	contacts, err := s.selectIn(ctx, "tbl_dataset_contacts", "dataset_id", intsOf(datasets, "dataset_id"),
		col("dataset_id"), col("contact_id"))
	if err != nil {
		return nil, err
	}

	methodGroup := make(map[int]int, len(methods))
	for _, row := range methods {
		id, _ := row.Int("method_id")
		methodGroup[id], _ = row.Int("method_group_id")
	}
	contactsOf := map[int][]int{}
	sortRows(contacts, "contact_id")
	for _, row := range contacts {
		ds, _ := row.Int("dataset_id")
		c, _ := row.Int("contact_id")
		contactsOf[ds] = append(contactsOf[ds], c)
	}
	byDataset := make(map[int]domain.Row, len(datasets))
	for _, row := range datasets {
		id, _ := row.Int("dataset_id")
		byDataset[id] = row
	}

	type rowKey struct{ dataset, group int }
	seen := map[rowKey]struct{}{}
	var out []domain.AnalysisRow
	for _, entity := range skeleton.entities {
		datasetID, _ := entity.Int("dataset_id")
		sampleID, _ := entity.Int("physical_sample_id")
		ds, ok := byDataset[datasetID]
		if !ok {
			continue
		}
		key := rowKey{dataset: datasetID, group: skeleton.groupOf[sampleID]}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		methodID, _ := ds.Int("method_id")
		row := domain.AnalysisRow{
			MethodID:      methodID,
			MethodGroupID: methodGroup[methodID],
			DatasetID:     datasetID,
			DatasetName:   ds.String("dataset_name"),
			SampleGroupID: key.group,
			ContactIDs:    contactsOf[datasetID],
		}
		if biblio, ok := ds.Int("biblio_id"); ok {
			row.BiblioID = &biblio
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DatasetID != out[j].DatasetID {
			return out[i].DatasetID < out[j].DatasetID
		}
		return out[i].SampleGroupID < out[j].SampleGroupID
	})
	return out, nil
}

// ecocodeAbundances sums the abundances of the ecocode method's datasets per
// physical sample and ecocode definition. order lists the samples ascending.
func (s *Source) ecocodeAbundances(ctx context.Context, siteID int) (map[int]map[int]*domain.EcocodeBundle, []int, error) {
	skeleton, err := s.skeleton(ctx, siteID, true)
	if err != nil {
		return nil, nil, err
	}
	datasets, err := s.selectIn(ctx, "tbl_datasets", "dataset_id", intsOf(skeleton.entities, "dataset_id"),
		col("dataset_id"), col("method_id"))
	if err != nil {
		return nil, nil, err
	}
	ecocodeDatasets := map[int]struct{}{}
	for _, row := range datasets {
		if m, _ := row.Int("method_id"); m == abundance.EcocodeMethodID {
			id, _ := row.Int("dataset_id")
			ecocodeDatasets[id] = struct{}{}
		}
	}
	sampleOf := map[int]int{}
	var entityIDs []int
	for _, row := range skeleton.entities {
		ds, _ := row.Int("dataset_id")
		if _, ok := ecocodeDatasets[ds]; !ok {
			continue
		}
		id, _ := row.Int("analysis_entity_id")
		sampleOf[id], _ = row.Int("physical_sample_id")
		entityIDs = append(entityIDs, id)
	}
	abundances, err := s.selectIn(ctx, "tbl_abundances", "analysis_entity_id", entityIDs,
		col("analysis_entity_id"), col("taxon_id"), castCol("abundance", "float8"))
	if err != nil {
		return nil, nil, err
	}
	codes, err := s.selectIn(ctx, "tbl_ecocodes", "taxon_id", intsOf(abundances, "taxon_id"),
		col("taxon_id"), col("ecocode_definition_id"))
	if err != nil {
		return nil, nil, err
	}
	definitions, err := s.selectIn(ctx, "tbl_ecocode_definitions", "ecocode_definition_id", intsOf(codes, "ecocode_definition_id"),
		col("ecocode_definition_id"), castCol("name", "text"), castCol("abbreviation", "text"))
	if err != nil {
		return nil, nil, err
	}
	refs := map[int]domain.EcocodeRef{}
	for _, row := range definitions {
		id, _ := row.Int("ecocode_definition_id")
		refs[id] = domain.EcocodeRef{DefinitionID: id, Name: row.String("name"), Abbreviation: row.String("abbreviation")}
	}
	codesOf := map[int][]int{}
	sortRows(codes, "ecocode_definition_id")
	for _, row := range codes {
		taxon, _ := row.Int("taxon_id")
		def, _ := row.Int("ecocode_definition_id")
		codesOf[taxon] = append(codesOf[taxon], def)
	}

	bySample := map[int]map[int]*domain.EcocodeBundle{}
	var order []int
	for _, row := range abundances {
		entityID, _ := row.Int("analysis_entity_id")
		taxon, _ := row.Int("taxon_id")
		amount, _ := row.Float("abundance")
		sample := sampleOf[entityID]
		bundles, ok := bySample[sample]
		if !ok {
			bundles = map[int]*domain.EcocodeBundle{}
			bySample[sample] = bundles
			order = append(order, sample)
		}
		for _, def := range codesOf[taxon] {
			b, ok := bundles[def]
			if !ok {
				ref, known := refs[def]
				if !known {
					ref = domain.EcocodeRef{DefinitionID: def}
				}
				b = &domain.EcocodeBundle{Ecocode: ref}
				bundles[def] = b
			}
			b.Abundance += amount
			b.Taxa = appendUnique(b.Taxa, taxon)
		}
	}
	sort.Ints(order)
	return bySample, order, nil
}

// SiteEcocodes sums the per-sample bundles into one bundle per ecocode.
func (s *Source) SiteEcocodes(ctx context.Context, siteID int) ([]domain.EcocodeBundle, error) {
	bySample, order, err := s.ecocodeAbundances(ctx, siteID)
	if err != nil {
		return nil, err
	}
	total := map[int]*domain.EcocodeBundle{}
	for _, sample := range order {
		for def, b := range bySample[sample] {
			agg, ok := total[def]
			if !ok {
				agg = &domain.EcocodeBundle{Ecocode: b.Ecocode}
				total[def] = agg
			}
			agg.Abundance += b.Abundance
			for _, taxon := range b.Taxa {
				agg.Taxa = appendUnique(agg.Taxa, taxon)
			}
		}
	}
	return flatten(total), nil
}

// SampleEcocodes returns the bundles of each sample in sample id order.
func (s *Source) SampleEcocodes(ctx context.Context, siteID int) ([]domain.SampleEcocodeBundle, error) {
	bySample, order, err := s.ecocodeAbundances(ctx, siteID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SampleEcocodeBundle, 0, len(order))
	for _, sample := range order {
		out = append(out, domain.SampleEcocodeBundle{PhysicalSampleID: sample, Ecocodes: flatten(bySample[sample])})
	}
	return out, nil
}

func flatten(bundles map[int]*domain.EcocodeBundle) []domain.EcocodeBundle {
	out := make([]domain.EcocodeBundle, 0, len(bundles))
	for _, b := range bundles {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ecocode.DefinitionID < out[j].Ecocode.DefinitionID })
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

func sortRows(rows []domain.Row, key string) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := rows[i].Int(key)
		b, _ := rows[j].Int(key)
		return a < b
	})
}
