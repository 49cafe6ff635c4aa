package abundance

import (
	"context"
	"strconv"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// Content item names of the eco code summaries.
const (
	EcocodesItem        = "ecocodes"
	EcocodesSamplesItem = "ecocodes-samples"
)

// addEcocodes appends the site and per-sample eco code summaries to the
// section of EcocodeMethodID. Failed or empty fetches add nothing.
func addEcocodes(ctx context.Context, env *datasetapi.Environment, sections *domain.SectionList) {
	section, ok := sections.Find(strconv.Itoa(EcocodeMethodID))
	if !ok {
		return
	}
	var (
		site    []domain.EcocodeBundle
		samples []domain.SampleEcocodeBundle
		siteErr error
		smplErr error
	)
	_ = datasetapi.FanOut(ctx, env.FetchConcurrency,
		func(ctx context.Context) error {
			site, siteErr = env.Source.SiteEcocodes(ctx, env.Site.ID)
			return nil
		},
		func(ctx context.Context) error {
			samples, smplErr = env.Source.SampleEcocodes(ctx, env.Site.ID)
			return nil
		},
	)
	if siteErr != nil {
		env.Log().Warn("site ecocode fetch failed", "site_id", env.Site.ID, "error", siteErr)
	} else if item, ok := siteEcocodeContent(env, site); ok {
		section.AddContent(item)
	}
	if smplErr != nil {
		env.Log().Warn("sample ecocode fetch failed", "site_id", env.Site.ID, "error", smplErr)
	} else if item, ok := sampleEcocodeContent(env, samples); ok {
		section.AddContent(item)
	}
}

func siteEcocodeContent(env *datasetapi.Environment, bundles []domain.EcocodeBundle) (domain.ContentItem, bool) {
	if len(bundles) == 0 || domain.TotalAbundance(bundles) == 0 {
		return domain.ContentItem{}, false
	}
	table := ecocodeTable(env, bundles)
	return domain.ContentItem{
		Name:  EcocodesItem,
		Title: "Eco codes",
		Data:  table,
		RenderOptions: []domain.RenderOption{
			datasetapi.EcocodeOption(true),
			datasetapi.TableOption(false),
		},
	}, true
}

// sampleEcocodeContent reports no content for an empty list, for a single
// sample without eco codes, and for lists whose every abundance is zero.
func sampleEcocodeContent(env *datasetapi.Environment, samples []domain.SampleEcocodeBundle) (domain.ContentItem, bool) {
	if len(samples) == 0 {
		return domain.ContentItem{}, false
	}
	if len(samples) == 1 && len(samples[0].Ecocodes) == 0 {
		return domain.ContentItem{}, false
	}
	var total float64
	for _, s := range samples {
		total += domain.TotalAbundance(s.Ecocodes)
	}
	if total == 0 {
		return domain.ContentItem{}, false
	}

	table := domain.NewTable(
		domain.Column{Title: "Sample ID", DataType: domain.DataTypeNumber, PKey: true, Hidden: true},
		datasetapi.SampleNameColumn(),
		domain.Column{Title: "Eco codes", DataType: domain.DataTypeSubtable},
	)
	for _, s := range samples {
		table.AddRow(
			domain.ValueCell(s.PhysicalSampleID),
			datasetapi.SampleCell(env, s.PhysicalSampleID),
			domain.SubtableCell(ecocodeTable(env, s.Ecocodes)),
		)
	}
	return domain.ContentItem{
		Name:  EcocodesSamplesItem,
		Title: "Eco codes per sample",
		Data:  table,
		RenderOptions: []domain.RenderOption{
			datasetapi.EcocodesSamplesOption(true),
			datasetapi.TableOption(false),
		},
	}, true
}

func ecocodeTable(env *datasetapi.Environment, bundles []domain.EcocodeBundle) domain.Table {
	table := domain.NewTable(
		domain.Column{Title: "Eco code", DataType: domain.DataTypeString},
		domain.Column{Title: "Abundance", DataType: domain.DataTypeNumber},
		domain.Column{Title: "Taxa", DataType: domain.DataTypeNumber},
		domain.Column{Title: "Eco code ID", DataType: domain.DataTypeNumber, PKey: true, Hidden: true},
	)
	defs := env.Lookup(domain.LookupEcocodeDefinitions)
	for _, b := range bundles {
		name, abbrev := b.Ecocode.Name, b.Ecocode.Abbreviation
		if row, ok := defs.Get(b.Ecocode.DefinitionID); ok {
			if name == "" {
				name = row.String("name")
			}
			if abbrev == "" {
				abbrev = row.String("abbreviation")
			}
		}
		if abbrev == "" {
			abbrev = orUnknown(name)
		}
		table.AddRow(
			domain.TooltipCell(abbrev, name),
			domain.ValueCell(b.Abundance),
			domain.ValueCell(len(b.Taxa)),
			domain.ValueCell(b.Ecocode.DefinitionID),
		)
	}
	return table
}
