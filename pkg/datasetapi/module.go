package datasetapi

import (
	"context"

	"sitereport/pkg/domain"
)

// ClaimFilter declares which analysis records a module owns.
type ClaimFilter struct {
	MethodIDs      []int `json:"method_ids,omitempty"`
	MethodGroupIDs []int `json:"method_group_ids,omitempty"`
	All            bool  `json:"all,omitempty"`
}

// Empty reports whether the filter selects nothing.
func (f ClaimFilter) Empty() bool {
	return !f.All && len(f.MethodIDs) == 0 && len(f.MethodGroupIDs) == 0
}

// ClaimStore is the claim substrate modules consume records from. Claimed
// records are removed from the store and returned in store order.
type ClaimStore interface {
	ClaimByMethodIDs(ids []int) []domain.AnalysisRecord
	ClaimByMethodGroupIDs(ids []int) []domain.AnalysisRecord
	ClaimAll() []domain.AnalysisRecord
}

// Module recognises one or more method categories and turns the records it
// claims into document sections.
type Module interface {
	Name() string
	Filter() ClaimFilter
	ClaimDatasets(store ClaimStore) []domain.AnalysisRecord
	MakeSections(ctx context.Context, env *Environment, claimed []domain.AnalysisRecord, sections *domain.SectionList) error
}

// ModuleDescriptor is the serialisable identity of a registered module.
type ModuleDescriptor struct {
	Name     string      `json:"name"`
	Filter   ClaimFilter `json:"filter"`
	CatchAll bool        `json:"catch_all,omitempty"`
}

// Describe returns the descriptor of m.
func Describe(m Module) ModuleDescriptor {
	f := m.Filter()
	return ModuleDescriptor{Name: m.Name(), Filter: f, CatchAll: f.All}
}

// Base implements the naming and claiming half of Module from a static filter.
// Concrete modules embed it and provide MakeSections.
type Base struct {
	ModuleName string
	Claims     ClaimFilter
}

// Name returns the module name.
func (b Base) Name() string { return b.ModuleName }

// Filter returns a copy of the declared filter.
func (b Base) Filter() ClaimFilter {
	return ClaimFilter{
		MethodIDs:      append([]int(nil), b.Claims.MethodIDs...),
		MethodGroupIDs: append([]int(nil), b.Claims.MethodGroupIDs...),
		All:            b.Claims.All,
	}
}

// ClaimDatasets claims by method group first, then by method id, and returns
// the union de-duplicated by dataset id.
func (b Base) ClaimDatasets(store ClaimStore) []domain.AnalysisRecord {
	if b.Claims.All {
		return store.ClaimAll()
	}
	var claimed []domain.AnalysisRecord
	if len(b.Claims.MethodGroupIDs) > 0 {
		claimed = append(claimed, store.ClaimByMethodGroupIDs(b.Claims.MethodGroupIDs)...)
	}
	if len(b.Claims.MethodIDs) > 0 {
		claimed = append(claimed, store.ClaimByMethodIDs(b.Claims.MethodIDs)...)
	}
	return uniqueByDataset(claimed)
}

func uniqueByDataset(records []domain.AnalysisRecord) []domain.AnalysisRecord {
	if len(records) < 2 {
		return records
	}
	seen := make(map[int]struct{}, len(records))
	out := records[:0]
	for _, r := range records {
		if _, dup := seen[r.DatasetID]; dup {
			continue
		}
		seen[r.DatasetID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// HasMethod reports whether any record uses methodID.
func HasMethod(records []domain.AnalysisRecord, methodID int) bool {
	for _, r := range records {
		if r.MethodID == methodID {
			return true
		}
	}
	return false
}

// GroupByMethod splits records by method id, keeping first-seen method order.
func GroupByMethod(records []domain.AnalysisRecord) ([]int, map[int][]domain.AnalysisRecord) {
	var order []int
	groups := map[int][]domain.AnalysisRecord{}
	for _, r := range records {
		if _, ok := groups[r.MethodID]; !ok {
			order = append(order, r.MethodID)
		}
		groups[r.MethodID] = append(groups[r.MethodID], r)
	}
	return order, groups
}

// Registrar accepts modules in dispatch order. The catch-all is registered last.
type Registrar interface {
	Register(m Module) error
	RegisterCatchAll(m Module) error
}

// Plugin contributes a set of modules to a registry.
type Plugin interface {
	Name() string
	Version() string
	Register(r Registrar) error
}
