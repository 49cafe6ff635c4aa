package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitereport/internal/core"
)

// Format is an export artifact encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat normalises a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportArtifact captures a stored report artifact.
type ExportArtifact struct {
	ID          string            `json:"id"`
	Key         string            `json:"key"`
	Format      Format            `json:"format"`
	ContentType string            `json:"content_type"`
	SizeBytes   int64             `json:"size_bytes"`
	ETag        string            `json:"etag,omitempty"`
	URL         string            `json:"url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ExportRecord tracks an export request and resulting artifacts.
type ExportRecord struct {
	ID          string           `json:"id"`
	SiteID      int              `json:"site_id"`
	Formats     []Format         `json:"formats"`
	Status      ExportStatus     `json:"status"`
	Error       string           `json:"error,omitempty"`
	Artifacts   []ExportArtifact `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	SiteID      int
	Formats     []Format
	RequestedBy string
	Reason      string
}

// ExportScheduler queues report exports and exposes their status.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error)
	GetExport(id string) (ExportRecord, bool)
}

// Assembler builds the analysis document of a site.
type Assembler interface {
	Assemble(ctx context.Context, siteID int) (core.Result, error)
}

var (
	// ErrQueueFull is returned when the worker cannot accept another job.
	ErrQueueFull = errors.New("export queue full")
	// ErrNotFound reports an unknown export or artifact.
	ErrNotFound = errors.New("not found")
)

// Worker executes report exports asynchronously.
type Worker struct {
	assembler Assembler
	store     ObjectStore
	logger    core.Logger
	now       func() time.Time

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

type renderedArtifact struct {
	Artifact ExportArtifact
	Payload  []byte
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets the logger used for job lifecycle entries.
func WithWorkerLogger(l core.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithWorkerClock overrides the time source.
func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// WithQueueSize bounds the number of pending jobs.
func WithQueueSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan exportTask, n)
		}
	}
}

// NewWorker constructs an export worker. store may be nil, in which case
// artifacts are rendered and measured but not kept.
func NewWorker(a Assembler, store ObjectStore, opts ...WorkerOption) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		assembler: a,
		store:     store,
		logger:    core.NewNoopLogger(),
		now:       time.Now,
		queue:     make(chan exportTask, 32),
		jobs:      make(map[string]*ExportRecord),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport schedules an export job and returns the queued record.
func (w *Worker) EnqueueExport(_ context.Context, input ExportInput) (ExportRecord, error) {
	if w.assembler == nil {
		return ExportRecord{}, fmt.Errorf("export assembler not configured")
	}
	if input.SiteID <= 0 {
		return ExportRecord{}, fmt.Errorf("site id must be positive, got %d", input.SiteID)
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	uniqFormats := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{})
	for _, format := range formats {
		if _, duplicate := seen[format]; duplicate {
			continue
		}
		if format != FormatJSON && format != FormatCSV {
			return ExportRecord{}, fmt.Errorf("unsupported export format %q", format)
		}
		uniqFormats = append(uniqFormats, format)
		seen[format] = struct{}{}
	}

	id := uuid.NewString()
	now := w.now().UTC()
	record := ExportRecord{
		ID:          id,
		SiteID:      input.SiteID,
		Formats:     uniqFormats,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queuedSnapshot := record.copy()
	w.mu.Unlock()

	select {
	case w.queue <- exportTask{id: id, input: input}:
	default:
		w.mu.Lock()
		delete(w.jobs, id)
		w.mu.Unlock()
		return ExportRecord{}, ErrQueueFull
	}
	w.logger.Info("export queued", "export_id", id, "site_id", input.SiteID, "requested_by", input.RequestedBy)
	return queuedSnapshot, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(task exportTask) {
	formats, ok := w.formatsOf(task.id)
	if !ok {
		return
	}
	w.updateStatus(task.id, ExportStatusRunning)

	result, err := w.assembler.Assemble(w.ctx, task.input.SiteID)
	if err != nil {
		w.fail(task.id, fmt.Sprintf("assemble site %d: %v", task.input.SiteID, err))
		return
	}

	artifacts := make([]ExportArtifact, 0, len(formats))
	for _, format := range formats {
		rendered, err := w.materialize(format, result)
		if err != nil {
			w.fail(task.id, err.Error())
			return
		}
		artifact := rendered.Artifact
		if w.store != nil {
			key := task.id + "/" + artifact.ID + "." + string(format)
			stored, err := w.store.Put(w.ctx, key, rendered.Payload, artifact.ContentType, artifact.Metadata)
			if err != nil {
				w.fail(task.id, fmt.Sprintf("store artifact failed: %v", err))
				return
			}
			artifact.Key = stored.Key
			artifact.ETag = stored.ETag
			artifact.URL = artifactURL(task.id, artifact.ID)
		}
		artifacts = append(artifacts, artifact)
	}
	w.complete(task.id, artifacts)
}

func artifactURL(exportID, artifactID string) string {
	return "/api/v1/exports/" + exportID + "/artifacts/" + artifactID
}

func (w *Worker) formatsOf(id string) ([]Format, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return nil, false
	}
	return append([]Format(nil), record.Formats...), true
}

func (w *Worker) updateStatus(id string, status ExportStatus) {
	now := w.now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.UpdatedAt = now
	}
	w.mu.Unlock()
	w.logger.Debug("export status", "export_id", id, "status", status)
}

func (w *Worker) complete(id string, artifacts []ExportArtifact) {
	now := w.now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.logger.Info("export succeeded", "export_id", id, "artifacts", len(artifacts))
}

func (w *Worker) fail(id, reason string) {
	now := w.now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.logger.Warn("export failed", "export_id", id, "error", reason)
}

func (w *Worker) materialize(format Format, result core.Result) (renderedArtifact, error) {
	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case FormatJSON:
		payload, err = json.Marshal(result)
		if err != nil {
			return renderedArtifact{}, fmt.Errorf("marshal json: %w", err)
		}
		contentType = "application/json"
	case FormatCSV:
		payload, err = WriteCSV(result.Root)
		if err != nil {
			return renderedArtifact{}, fmt.Errorf("write csv: %w", err)
		}
		contentType = "text/csv"
	default:
		return renderedArtifact{}, fmt.Errorf("unsupported export format %s", format)
	}
	sections := 0
	if result.Root != nil {
		sections = len(result.Root.Sections)
	}
	return renderedArtifact{
		Artifact: ExportArtifact{
			ID:          uuid.NewString(),
			Format:      format,
			ContentType: contentType,
			SizeBytes:   int64(len(payload)),
			Metadata: map[string]string{
				"site_id":  fmt.Sprint(result.SiteID),
				"sections": fmt.Sprint(sections),
			},
			CreatedAt: w.now().UTC(),
		},
		Payload: payload,
	}, nil
}

// Artifact looks up an artifact of a finished export and loads its payload.
func (w *Worker) Artifact(ctx context.Context, exportID, artifactID string) (ExportArtifact, []byte, error) {
	record, ok := w.GetExport(exportID)
	if !ok {
		return ExportArtifact{}, nil, fmt.Errorf("export %s: %w", exportID, ErrNotFound)
	}
	for _, artifact := range record.Artifacts {
		if artifact.ID != artifactID {
			continue
		}
		if w.store == nil || artifact.Key == "" {
			return ExportArtifact{}, nil, fmt.Errorf("artifact %s not stored: %w", artifactID, ErrNotFound)
		}
		stored, payload, err := w.store.Get(ctx, artifact.Key)
		if err != nil {
			return ExportArtifact{}, nil, err
		}
		artifact.SizeBytes = stored.SizeBytes
		return artifact, payload, nil
	}
	return ExportArtifact{}, nil, fmt.Errorf("artifact %s: %w", artifactID, ErrNotFound)
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = make([]ExportArtifact, len(r.Artifacts))
		for i, a := range r.Artifacts {
			a.Metadata = cloneMetadata(a.Metadata)
			dup.Artifacts[i] = a
		}
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		dup.CompletedAt = &t
	}
	return dup
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
