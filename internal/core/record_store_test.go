package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

func TestRecordStoreClaimsRemoveRecords(t *testing.T) {
	store := NewRecordStore([]domain.AnalysisRecord{
		record(1, 10, 1),
		record(2, 11, 2),
		record(3, 12, 2),
		record(4, 10, 3),
	})

	if got := datasetIDs(store.ClaimByMethodIDs([]int{10})); !cmp.Equal(got, []int{1, 4}) {
		t.Fatalf("expected datasets 1 and 4, got %v", got)
	}
	if got := store.ClaimByMethodIDs([]int{10}); len(got) != 0 {
		t.Fatalf("claimed records must not be handed out twice, got %v", datasetIDs(got))
	}
	if got := datasetIDs(store.ClaimByMethodGroupIDs([]int{2})); !cmp.Equal(got, []int{2, 3}) {
		t.Fatalf("expected datasets 2 and 3, got %v", got)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

func TestRecordStoreClaimUnionGroupFirst(t *testing.T) {
	store := NewRecordStore([]domain.AnalysisRecord{
		record(1, 37, 5),
		record(2, 40, 2),
		record(3, 37, 2),
		record(4, 99, 9),
	})
	got := store.Claim(datasetapi.ClaimFilter{MethodIDs: []int{37}, MethodGroupIDs: []int{2}})
	if diff := cmp.Diff([]int{2, 3, 1}, datasetIDs(got)); diff != "" {
		t.Fatalf("claim order (-want +got):\n%s", diff)
	}
	if left := datasetIDs(store.Unclaimed()); !cmp.Equal(left, []int{4}) {
		t.Fatalf("expected dataset 4 left, got %v", left)
	}
	if got := datasetIDs(store.Claim(datasetapi.ClaimFilter{All: true})); !cmp.Equal(got, []int{4}) {
		t.Fatalf("expected catch-all claim of 4, got %v", got)
	}
}

func TestRecordStoreCopiesInput(t *testing.T) {
	input := []domain.AnalysisRecord{{DatasetID: 1, MethodID: 3, ContactIDs: []int{7}}}
	store := NewRecordStore(input)
	input[0].ContactIDs[0] = 99
	input[0].MethodID = 4
	claimed := store.ClaimByMethodIDs([]int{3})
	if len(claimed) != 1 || claimed[0].ContactIDs[0] != 7 {
		t.Fatalf("store must hold its own copy, got %+v", claimed)
	}
}

func TestBaseClaimDeduplicatesAcrossFilters(t *testing.T) {
	store := NewRecordStore([]domain.AnalysisRecord{
		record(1, 37, 2),
		record(2, 74, 8),
	})
	base := datasetapi.Base{ModuleName: "m", Claims: datasetapi.ClaimFilter{MethodIDs: []int{37, 74}, MethodGroupIDs: []int{2}}}
	got := base.ClaimDatasets(store)
	if diff := cmp.Diff([]int{1, 2}, datasetIDs(got)); diff != "" {
		t.Fatalf("claims (-want +got):\n%s", diff)
	}
}
