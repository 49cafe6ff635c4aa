package core

import (
	"sync"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

// RecordStore holds the not yet claimed analysis records of one site. Claims
// remove records; nothing is ever added back.
type RecordStore struct {
	mu        sync.Mutex
	unclaimed []domain.AnalysisRecord
}

// NewRecordStore copies records into a fresh store.
func NewRecordStore(records []domain.AnalysisRecord) *RecordStore {
	cp := make([]domain.AnalysisRecord, len(records))
	for i, r := range records {
		cp[i] = r.Clone()
	}
	return &RecordStore{unclaimed: cp}
}

var _ datasetapi.ClaimStore = (*RecordStore)(nil)

// ClaimByMethodIDs removes and returns records whose method id is in ids.
func (s *RecordStore) ClaimByMethodIDs(ids []int) []domain.AnalysisRecord {
	set := intSet(ids)
	return s.claim(func(r domain.AnalysisRecord) bool {
		_, ok := set[r.MethodID]
		return ok
	})
}

// ClaimByMethodGroupIDs removes and returns records whose method group is in ids.
func (s *RecordStore) ClaimByMethodGroupIDs(ids []int) []domain.AnalysisRecord {
	set := intSet(ids)
	return s.claim(func(r domain.AnalysisRecord) bool {
		_, ok := set[r.MethodGroupID]
		return ok
	})
}

// Claim removes the union of group and method matches, group matches first.
func (s *RecordStore) Claim(filter datasetapi.ClaimFilter) []domain.AnalysisRecord {
	if filter.All {
		return s.ClaimAll()
	}
	groups := intSet(filter.MethodGroupIDs)
	methods := intSet(filter.MethodIDs)
	byGroup := s.claim(func(r domain.AnalysisRecord) bool {
		_, ok := groups[r.MethodGroupID]
		return ok
	})
	byMethod := s.claim(func(r domain.AnalysisRecord) bool {
		_, ok := methods[r.MethodID]
		return ok
	})
	return append(byGroup, byMethod...)
}

// ClaimAll removes and returns every remaining record.
func (s *RecordStore) ClaimAll() []domain.AnalysisRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.unclaimed
	s.unclaimed = nil
	return out
}

// Unclaimed returns a copy of the remaining records.
func (s *RecordStore) Unclaimed() []domain.AnalysisRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AnalysisRecord, len(s.unclaimed))
	copy(out, s.unclaimed)
	return out
}

// Len returns the number of remaining records.
func (s *RecordStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.unclaimed)
}

func (s *RecordStore) claim(match func(domain.AnalysisRecord) bool) []domain.AnalysisRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var claimed []domain.AnalysisRecord
	kept := s.unclaimed[:0]
	for _, r := range s.unclaimed {
		if match(r) {
			claimed = append(claimed, r)
			continue
		}
		kept = append(kept, r)
	}
	s.unclaimed = kept
	return claimed
}

func intSet(ids []int) map[int]struct{} {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
