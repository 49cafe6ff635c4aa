package reports

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"sitereport/internal/core"
	"sitereport/pkg/domain"
)

type stubAnalyzer struct {
	result core.Result
	err    error
	calls  atomic.Int32
}

func (s *stubAnalyzer) Assemble(_ context.Context, siteID int) (core.Result, error) {
	s.calls.Add(1)
	if s.err != nil {
		return core.Result{SiteID: siteID, State: core.StateFailed}, s.err
	}
	res := s.result
	res.SiteID = siteID
	return res, nil
}

func (s *stubAnalyzer) Render(ctx context.Context, siteID int, sink core.RenderSink) (core.Result, error) {
	res, err := s.Assemble(ctx, siteID)
	if err != nil {
		return res, err
	}
	return res, sink.RenderSection(ctx, res.Root)
}

func sampleTree() *domain.Section {
	ages := domain.NewTable(domain.Column{Title: "Age", PKey: true})
	ages.AddRow(domain.ValueCell(1200))
	ages.AddRow(domain.ValueCell(1450))

	values := domain.NewTable(
		domain.Column{Title: "Sample name", PKey: true},
		domain.Column{Title: "Value", DataType: domain.DataTypeNumber},
	)
	values.AddRow(domain.ValueCell("S1"), domain.ValueCell(12.5))

	dated := domain.NewTable(
		domain.Column{Title: "Sample", PKey: true},
		domain.Column{Title: "Ages", DataType: domain.DataTypeSubtable},
	)
	dated.AddRow(domain.ValueCell("S2"), domain.SubtableCell(ages))

	return &domain.Section{
		Name:     core.RootSectionName,
		Title:    core.RootSectionTitle,
		Contents: []domain.ContentItem{},
		Sections: []*domain.Section{{
			Name:  "33",
			Title: "Magnetic susceptibility",
			Contents: []domain.ContentItem{
				{Name: "9", Title: "MS", Data: values},
				{Name: "10", Title: "Ages", Data: dated},
			},
		}},
	}
}

func newStubAnalyzer() *stubAnalyzer {
	return &stubAnalyzer{result: core.Result{
		SiteName: "Fen",
		State:    core.StateAssembled,
		Root:     sampleTree(),
	}}
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
}

func waitForStatus(t *testing.T, s ExportScheduler, id string, want ExportStatus) ExportRecord {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		record, ok := s.GetExport(id)
		if !ok {
			t.Fatalf("export %s vanished", id)
		}
		if record.Status == want {
			return record
		}
		if record.Status == ExportStatusFailed || record.Status == ExportStatusSucceeded {
			t.Fatalf("export %s finished as %s (%s), want %s", id, record.Status, record.Error, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("export %s did not reach %s", id, want)
	return ExportRecord{}
}
