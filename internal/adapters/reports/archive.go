package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"sitereport/internal/blob"
	"sitereport/internal/core"
	"sitereport/pkg/domain"
)

// archiveTimeFormat keeps archive keys sortable by time.
const archiveTimeFormat = "20060102T150405.000000000Z"

// ArchiveSink is a core.RenderSink that stores the assembled document of one
// site as JSON under sites/<siteID>/analysis-<timestamp>.json.
type ArchiveSink struct {
	store  blob.Store
	siteID int
	now    func() time.Time

	mu   sync.Mutex
	last blob.Info
}

var _ core.RenderSink = (*ArchiveSink)(nil)

// NewArchiveSink returns a sink archiving the document of siteID. A nil now
// uses the wall clock.
func NewArchiveSink(store blob.Store, siteID int, now func() time.Time) *ArchiveSink {
	if now == nil {
		now = time.Now
	}
	return &ArchiveSink{store: store, siteID: siteID, now: now}
}

// ArchiveKey returns the key the document of siteID rendered at t is stored under.
func ArchiveKey(siteID int, t time.Time) string {
	return fmt.Sprintf("sites/%d/analysis-%s.json", siteID, t.UTC().Format(archiveTimeFormat))
}

// RenderSection writes root to the blob store.
func (s *ArchiveSink) RenderSection(ctx context.Context, root *domain.Section) error {
	payload, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	info, err := s.store.Put(ctx, ArchiveKey(s.siteID, s.now()), bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"site_id": fmt.Sprint(s.siteID)},
	})
	if err != nil {
		return fmt.Errorf("archive site %d: %w", s.siteID, err)
	}
	s.mu.Lock()
	s.last = info
	s.mu.Unlock()
	return nil
}

// Last returns the blob written by the most recent RenderSection.
func (s *ArchiveSink) Last() blob.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// ListArchives returns the archived documents of siteID, oldest first.
func ListArchives(ctx context.Context, store blob.Store, siteID int) ([]blob.Info, error) {
	return store.List(ctx, fmt.Sprintf("sites/%d/", siteID))
}
