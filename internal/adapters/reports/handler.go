// Package reports exposes assembled site analyses over HTTP and runs report
// exports in the background. Artifacts and archived documents are kept in a
// blob store.
package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sitereport/internal/blob"
	"sitereport/internal/core"
	"sitereport/pkg/datasetapi"
)

// Analyzer assembles and renders site documents; *core.Analysis implements it.
type Analyzer interface {
	Assembler
	Render(ctx context.Context, siteID int, sink core.RenderSink) (core.Result, error)
}

// ModuleCatalog lists the registered modules in dispatch order.
type ModuleCatalog interface {
	Descriptors() []datasetapi.ModuleDescriptor
}

// ArtifactSource loads stored export artifacts; *Worker implements it.
type ArtifactSource interface {
	Artifact(ctx context.Context, exportID, artifactID string) (ExportArtifact, []byte, error)
}

// Handler provides HTTP access to site analyses, the module registry and
// report exports.
type Handler struct {
	Analyzer  Analyzer
	Modules   ModuleCatalog
	Exports   ExportScheduler
	Artifacts ArtifactSource
	// Archive receives documents posted to /api/v1/sites/{id}/archive.
	Archive blob.Store
	Logger  core.Logger
	Now     func() time.Time
}

// NewHandler constructs a report HTTP handler.
func NewHandler(a Analyzer, modules ModuleCatalog) *Handler {
	return &Handler{Analyzer: a, Modules: modules}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Analyzer == nil {
		writeError(w, http.StatusInternalServerError, "analysis not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/api/v1/modules":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleModules(w)
	case strings.HasPrefix(path, "/api/v1/sites/"):
		h.handleSite(w, r, strings.TrimPrefix(path, "/api/v1/sites/"))
	case strings.HasPrefix(path, "/api/v1/exports"):
		if h.Exports == nil {
			http.NotFound(w, r)
			return
		}
		h.handleExports(w, r, path)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) logger() core.Logger {
	if h.Logger == nil {
		return core.NewNoopLogger()
	}
	return h.Logger
}

func (h *Handler) handleModules(w http.ResponseWriter) {
	var modules []datasetapi.ModuleDescriptor
	if h.Modules != nil {
		modules = h.Modules.Descriptors()
	}
	if modules == nil {
		modules = []datasetapi.ModuleDescriptor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"modules": modules})
}

func (h *Handler) handleSite(w http.ResponseWriter, r *http.Request, remainder string) {
	segments := strings.Split(remainder, "/")
	if len(segments) != 2 {
		writeError(w, http.StatusNotFound, "site endpoint not found")
		return
	}
	siteID, err := strconv.Atoi(segments[0])
	if err != nil || siteID <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid site id %q", segments[0]))
		return
	}
	switch segments[1] {
	case "analysis":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleAnalysis(w, r, siteID)
	case "archive":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleArchive(w, r, siteID)
	default:
		writeError(w, http.StatusNotFound, "site endpoint not found")
	}
}

func (h *Handler) handleAnalysis(w http.ResponseWriter, r *http.Request, siteID int) {
	format := negotiateFormat(r)
	if format == "" {
		writeError(w, http.StatusNotAcceptable, "requested format not supported")
		return
	}
	result, err := h.Analyzer.Assemble(r.Context(), siteID)
	if err != nil {
		h.writeAssemblyError(w, siteID, err)
		return
	}
	if format == FormatCSV {
		payload, err := WriteCSV(result.Root)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"site-%d-analysis.csv\"", siteID))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request, siteID int) {
	if h.Archive == nil {
		writeError(w, http.StatusNotImplemented, "archive store not configured")
		return
	}
	sink := NewArchiveSink(h.Archive, siteID, h.Now)
	result, err := h.Analyzer.Render(r.Context(), siteID, sink)
	if err != nil {
		h.writeAssemblyError(w, siteID, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"archive": sink.Last(),
		"state":   result.State,
	})
}

func (h *Handler) writeAssemblyError(w http.ResponseWriter, siteID int, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, core.ErrFetch) {
		status = http.StatusBadGateway
	}
	h.logger().Warn("site request failed", "site_id", siteID, "status", status, "error", err)
	writeError(w, status, err.Error())
}

type exportRequest struct {
	SiteID      int      `json:"site_id"`
	Formats     []string `json:"formats"`
	RequestedBy string   `json:"requested_by"`
	Reason      string   `json:"reason"`
}

func (h *Handler) handleExports(w http.ResponseWriter, r *http.Request, path string) {
	if path == "/api/v1/exports" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleExportCreate(w, r)
		return
	}

	if !strings.HasPrefix(path, "/api/v1/exports/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	segments := strings.Split(strings.TrimPrefix(path, "/api/v1/exports/"), "/")
	switch {
	case len(segments) == 1 && segments[0] != "":
		record, ok := h.Exports.GetExport(segments[0])
		if !ok {
			writeError(w, http.StatusNotFound, "export not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"export": record})
	case len(segments) == 3 && segments[1] == "artifacts":
		h.handleArtifact(w, r, segments[0], segments[2])
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleExportCreate(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid export request payload")
		return
	}
	if req.SiteID <= 0 {
		writeError(w, http.StatusBadRequest, "site_id required")
		return
	}
	formats := make([]Format, 0, len(req.Formats))
	for _, f := range req.Formats {
		format, err := ParseFormat(f)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		formats = append(formats, format)
	}

	record, err := h.Exports.EnqueueExport(r.Context(), ExportInput{
		SiteID:      req.SiteID,
		Formats:     formats,
		RequestedBy: req.RequestedBy,
		Reason:      req.Reason,
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrQueueFull) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
}

func (h *Handler) handleArtifact(w http.ResponseWriter, r *http.Request, exportID, artifactID string) {
	if h.Artifacts == nil {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	artifact, payload, err := h.Artifacts.Artifact(r.Context(), exportID, artifactID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, blob.ErrNotFound) {
			writeError(w, http.StatusNotFound, "artifact not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.%s\"", artifact.ID, artifact.Format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func negotiateFormat(r *http.Request) Format {
	wanted := strings.ToLower(r.URL.Query().Get("format"))
	if wanted == "" {
		if strings.Contains(r.Header.Get("Accept"), "text/csv") {
			return FormatCSV
		}
		return FormatJSON
	}
	format, err := ParseFormat(wanted)
	if err != nil {
		return ""
	}
	return format
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
