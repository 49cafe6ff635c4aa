package core

import (
	"context"
	"fmt"
	"runtime/debug"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// ModuleClaims lists the datasets one module claimed.
type ModuleClaims struct {
	Module     string `json:"module"`
	DatasetIDs []int  `json:"dataset_ids"`
}

// DispatchReport summarises one dispatch pass.
type DispatchReport struct {
	Claims       []ModuleClaims `json:"claims"`
	ModuleErrors []*ModuleError `json:"module_errors,omitempty"`
}

// Owner returns the module that claimed datasetID.
func (r DispatchReport) Owner(datasetID int) (string, bool) {
	for _, c := range r.Claims {
		for _, id := range c.DatasetIDs {
			if id == datasetID {
				return c.Module, true
			}
		}
	}
	return "", false
}

// Dispatcher feeds a record store to the registered modules in order.
type Dispatcher struct {
	registry *ModuleRegistry
	opts     options
}

// NewDispatcher validates the registry and returns a dispatcher over it.
func NewDispatcher(registry *ModuleRegistry, opts ...Option) (*Dispatcher, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	return &Dispatcher{registry: registry, opts: newOptions(opts)}, nil
}

// Dispatch runs every module against store, strictly one after another. A
// failing module has its section output rolled back and is reported; dispatch
// continues with the next module. Claim conflicts and leftover records are
// returned as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, env *datasetapi.Environment, store *RecordStore) (*domain.SectionList, DispatchReport, error) {
	sections := domain.NewSectionList()
	var report DispatchReport
	owners := make(map[int]string)

	for _, m := range d.registry.Modules() {
		if err := ctx.Err(); err != nil {
			return sections, report, err
		}
		claimed := m.ClaimDatasets(store)
		ids := make([]int, 0, len(claimed))
		for _, rec := range claimed {
			if owner, dup := owners[rec.DatasetID]; dup {
				return sections, report, fmt.Errorf("%w: dataset %d claimed by %s and %s", ErrClaimConflict, rec.DatasetID, owner, m.Name())
			}
			owners[rec.DatasetID] = m.Name()
			ids = append(ids, rec.DatasetID)
		}
		report.Claims = append(report.Claims, ModuleClaims{Module: m.Name(), DatasetIDs: ids})
		if len(claimed) == 0 {
			continue
		}

		checkpoint := sections.Checkpoint()
		if merr := d.runModule(ctx, m, env, claimed, sections); merr != nil {
			sections.Restore(checkpoint)
			merr.DatasetIDs = ids
			report.ModuleErrors = append(report.ModuleErrors, merr)
			d.opts.logger.Error("dataset module failed", "module", m.Name(), "datasets", ids, "error", merr.Err, "panicked", merr.Panicked)
			continue
		}
		d.opts.logger.Debug("dataset module completed", "module", m.Name(), "datasets", len(ids))
	}

	if left := store.Len(); left > 0 {
		return sections, report, fmt.Errorf("%w: %d remaining", ErrUnclaimedRecords, left)
	}
	return sections, report, nil
}

func (d *Dispatcher) runModule(ctx context.Context, m datasetapi.Module, env *datasetapi.Environment, claimed []domain.AnalysisRecord, sections *domain.SectionList) (merr *ModuleError) {
	op := "module." + m.Name()
	ctx, span := d.opts.tracer.Start(ctx, op)
	start := d.opts.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			d.opts.logger.Debug("dataset module panic stack", "module", m.Name(), "stack", string(debug.Stack()))
			merr = &ModuleError{Module: m.Name(), Err: fmt.Errorf("%v", r), Panicked: true}
			merr.Message = merr.Error()
		}
		var err error
		if merr != nil {
			err = merr
		}
		span.End(err)
		d.opts.metrics.Observe(ctx, op, merr == nil, d.opts.clock.Now().Sub(start))
	}()

	if err := m.MakeSections(ctx, env, claimed, sections); err != nil {
		merr = &ModuleError{Module: m.Name(), Err: err}
		merr.Message = merr.Error()
	}
	return merr
}
