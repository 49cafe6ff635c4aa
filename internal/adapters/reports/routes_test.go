package reports

import (
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"sitereport/internal/core"
)

type recordingLogger struct {
	core.Logger
	infos []string
}

func (l *recordingLogger) Info(msg string, _ ...any) { l.infos = append(l.infos, msg) }

func TestRoutesMountsDebugEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder, err := core.NewPrometheusMetricsRecorder(reg, "sitereport")
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	recorder.Observe(t.Context(), "analysis.assemble", true, 0)

	mux := Routes(NewHandler(newStubAnalyzer(), nil), reg)
	if rec := serve(t, mux, http.MethodGet, "/api/v1/sites/1/analysis", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected api to be mounted, got %d", rec.Code)
	}
	rec := serve(t, mux, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "sitereport_") {
		t.Fatalf("expected prometheus exposition, got %d", rec.Code)
	}
	if rec := serve(t, mux, http.MethodGet, "/debug/vars", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected expvar endpoint, got %d", rec.Code)
	}
	if rec := serve(t, mux, http.MethodGet, "/healthz", nil); !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("unexpected health body %q", rec.Body.String())
	}

	if rec := serve(t, Routes(NewHandler(newStubAnalyzer(), nil), nil), http.MethodGet, "/metrics", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected no metrics without gatherer, got %d", rec.Code)
	}
}

func TestLogRequestsRecordsStatus(t *testing.T) {
	logger := &recordingLogger{Logger: core.NewNoopLogger()}
	h := LogRequests(NewHandler(newStubAnalyzer(), nil), logger)
	rec := serve(t, h, http.MethodGet, "/api/v1/sites/x/analysis", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(logger.infos) != 1 || logger.infos[0] != "http request" {
		t.Fatalf("expected one request log line, got %v", logger.infos)
	}
}
