package core

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch marks failures of the fetching phase. Nothing is assembled or
	// rendered after it.
	ErrFetch = errors.New("core: fetch failed")
	// ErrClaimConflict reports two modules owning the same record or method.
	ErrClaimConflict = errors.New("core: claim conflict")
	// ErrUnclaimedRecords reports records left over after dispatch.
	ErrUnclaimedRecords = errors.New("core: unclaimed records after dispatch")
	// ErrNoCatchAll reports a registry without a catch-all module.
	ErrNoCatchAll = errors.New("core: registry has no catch-all module")
	// ErrRegistryClosed reports a registration after the catch-all.
	ErrRegistryClosed = errors.New("core: module registered after catch-all")
)

// FetchError wraps a failure of one fetch stage.
type FetchError struct {
	Stage string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Stage, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches ErrFetch.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// ModuleError records a module that failed while building sections. Its
// partial output was discarded.
type ModuleError struct {
	Module     string `json:"module"`
	DatasetIDs []int  `json:"dataset_ids,omitempty"`
	Err        error  `json:"-"`
	Message    string `json:"error"`
	Panicked   bool   `json:"panicked,omitempty"`
}

func (e *ModuleError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("module %s panicked: %v", e.Module, e.Err)
	}
	return fmt.Sprintf("module %s: %v", e.Module, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }
