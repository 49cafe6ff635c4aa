package core

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// SiteData is everything loaded for one site before dispatch.
type SiteData struct {
	Site    domain.Site
	Records []domain.AnalysisRecord
	Lookups domain.Lookups
}

// FetchSite loads the site, its analysis records with their entities, the
// standard lookup tables and the referenced biblio and contacts. Any failure
// cancels outstanding fetches and is returned as a *FetchError.
func FetchSite(ctx context.Context, src datasetapi.DataSource, siteID int, limit int) (SiteData, error) {
	if src == nil {
		return SiteData{}, &FetchError{Stage: "source", Err: fmt.Errorf("data source missing")}
	}
	var (
		data SiteData
		rows []domain.AnalysisRow
		mu   sync.Mutex
	)
	data.Lookups = make(domain.Lookups, len(domain.StandardLookups)+2)

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	g.Go(func() error {
		site, err := src.Site(gctx, siteID)
		if err != nil {
			return &FetchError{Stage: "site", Err: err}
		}
		data.Site = site
		return nil
	})
	g.Go(func() error {
		r, err := src.Analyses(gctx, siteID)
		if err != nil {
			return &FetchError{Stage: "analyses", Err: err}
		}
		rows = r
		return nil
	})
	for _, spec := range domain.StandardLookups {
		g.Go(func() error {
			lookupRows, err := src.LookupTable(gctx, spec)
			if err != nil {
				return &FetchError{Stage: "lookup " + spec.Name, Err: err}
			}
			table := domain.NewLookupTable(spec, lookupRows)
			mu.Lock()
			data.Lookups[spec.Name] = table
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SiteData{}, err
	}

	data.Records = domain.MergeAnalysisRows(rows)

	g, gctx = errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range data.Records {
		rec := &data.Records[i]
		g.Go(func() error {
			entities, err := src.DatasetEntities(gctx, rec.DatasetID)
			if err != nil {
				return &FetchError{Stage: fmt.Sprintf("dataset %d entities", rec.DatasetID), Err: err}
			}
			rec.AnalysisEntities = entities
			return nil
		})
	}
	var biblioIDs, contactIDs []int
	for _, rec := range data.Records {
		if rec.BiblioID != nil {
			biblioIDs = append(biblioIDs, *rec.BiblioID)
		}
		contactIDs = append(contactIDs, rec.ContactIDs...)
	}
	for _, ref := range []struct {
		spec domain.LookupSpec
		ids  []int
	}{
		{domain.BiblioLookup, biblioIDs},
		{domain.ContactsLookup, contactIDs},
	} {
		g.Go(func() error {
			refRows, err := datasetapi.FetchByIDSet(gctx, src, ref.spec.Table, ref.spec.Key, ref.ids)
			if err != nil {
				return &FetchError{Stage: "lookup " + ref.spec.Name, Err: err}
			}
			table := domain.NewLookupTable(ref.spec, refRows)
			mu.Lock()
			data.Lookups[ref.spec.Name] = table
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SiteData{}, err
	}
	return data, nil
}
