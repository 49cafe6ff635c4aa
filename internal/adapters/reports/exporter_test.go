package reports

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"sitereport/internal/blob"
	"sitereport/internal/core"
)

func TestWorkerStoresJSONAndCSVArtifacts(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewBlobObjectStore(blob.NewMemory())
	worker := NewWorker(newStubAnalyzer(), store, WithWorkerClock(fixedClock()))
	worker.Start()
	defer func() { _ = worker.Stop(context.Background()) }()

	queued, err := worker.EnqueueExport(context.Background(), ExportInput{SiteID: 4, RequestedBy: "analyst"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if queued.Status != ExportStatusQueued || len(queued.Formats) != 2 {
		t.Fatalf("unexpected queued record %+v", queued)
	}

	record := waitForStatus(t, worker, queued.ID, ExportStatusSucceeded)
	if len(record.Artifacts) != 2 || record.CompletedAt == nil {
		t.Fatalf("expected two artifacts, got %+v", record)
	}
	for _, artifact := range record.Artifacts {
		if !strings.HasPrefix(artifact.Key, queued.ID+"/") {
			t.Fatalf("artifact key %s not scoped to export", artifact.Key)
		}
		if artifact.URL != "/api/v1/exports/"+queued.ID+"/artifacts/"+artifact.ID {
			t.Fatalf("unexpected artifact url %s", artifact.URL)
		}
		if artifact.Metadata["site_id"] != "4" || artifact.Metadata["sections"] != "1" {
			t.Fatalf("unexpected metadata %+v", artifact.Metadata)
		}
	}

	csvArtifact := record.Artifacts[1]
	if csvArtifact.Format != FormatCSV || csvArtifact.ContentType != "text/csv" {
		t.Fatalf("expected csv second, got %+v", csvArtifact)
	}
	_, payload, err := worker.Artifact(context.Background(), queued.ID, csvArtifact.ID)
	if err != nil {
		t.Fatalf("artifact: %v", err)
	}
	if !strings.HasPrefix(string(payload), "Analyses / Magnetic susceptibility,MS\n") {
		t.Fatalf("unexpected csv payload %q", payload)
	}
	listed, err := store.List(context.Background(), queued.ID)
	if err != nil || len(listed) != 2 {
		t.Fatalf("expected two stored objects, got %+v (%v)", listed, err)
	}
	if _, _, err := worker.Artifact(context.Background(), queued.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWorkerRecordsAssemblyFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	analyzer := &stubAnalyzer{err: &core.FetchError{Stage: "site", Err: errors.New("upstream down")}}
	worker := NewWorker(analyzer, nil)
	worker.Start()
	defer func() { _ = worker.Stop(context.Background()) }()

	queued, err := worker.EnqueueExport(context.Background(), ExportInput{SiteID: 1, Formats: []Format{FormatJSON}})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	record := waitForStatus(t, worker, queued.ID, ExportStatusFailed)
	if !strings.Contains(record.Error, "upstream down") {
		t.Fatalf("expected upstream error, got %q", record.Error)
	}
}

func TestWorkerWithoutStoreKeepsArtifactsUnstored(t *testing.T) {
	defer goleak.VerifyNone(t)

	worker := NewWorker(newStubAnalyzer(), nil)
	worker.Start()
	defer func() { _ = worker.Stop(context.Background()) }()

	queued, err := worker.EnqueueExport(context.Background(), ExportInput{SiteID: 1, Formats: []Format{FormatJSON, FormatJSON}})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(queued.Formats) != 1 {
		t.Fatalf("expected duplicate formats collapsed, got %v", queued.Formats)
	}
	record := waitForStatus(t, worker, queued.ID, ExportStatusSucceeded)
	if record.Artifacts[0].SizeBytes == 0 || record.Artifacts[0].URL != "" {
		t.Fatalf("unexpected artifact %+v", record.Artifacts[0])
	}
	if _, _, err := worker.Artifact(context.Background(), queued.ID, record.Artifacts[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected unstored artifact to be not found, got %v", err)
	}
}

func TestEnqueueValidation(t *testing.T) {
	worker := NewWorker(newStubAnalyzer(), nil, WithQueueSize(1))
	ctx := context.Background()

	if _, err := worker.EnqueueExport(ctx, ExportInput{SiteID: 0}); err == nil {
		t.Fatalf("expected site id error")
	}
	if _, err := worker.EnqueueExport(ctx, ExportInput{SiteID: 1, Formats: []Format{"pdf"}}); err == nil {
		t.Fatalf("expected format error")
	}
	if _, err := NewWorker(nil, nil).EnqueueExport(ctx, ExportInput{SiteID: 1}); err == nil {
		t.Fatalf("expected missing assembler error")
	}

	// the worker is not started, so the second job finds the queue full
	if _, err := worker.EnqueueExport(ctx, ExportInput{SiteID: 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := worker.EnqueueExport(ctx, ExportInput{SiteID: 2}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if _, ok := worker.GetExport("unknown"); ok {
		t.Fatalf("expected unknown export lookup to fail")
	}
}

func TestStopHonoursDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	block := make(chan struct{})
	analyzer := &blockingAnalyzer{release: block, started: make(chan struct{})}
	worker := NewWorker(analyzer, nil)
	worker.Start()
	if _, err := worker.EnqueueExport(context.Background(), ExportInput{SiteID: 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-analyzer.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := worker.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	close(block)
	if err := worker.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

type blockingAnalyzer struct {
	release chan struct{}
	started chan struct{}
}

func (b *blockingAnalyzer) Assemble(context.Context, int) (core.Result, error) {
	close(b.started)
	<-b.release
	return core.Result{}, errors.New("released")
}
