package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"sitereport/internal/blob"
	"sitereport/internal/core"
	"sitereport/pkg/datasetapi"
)

type staticCatalog []datasetapi.ModuleDescriptor

func (c staticCatalog) Descriptors() []datasetapi.ModuleDescriptor { return c }

func serve(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestAnalysisEndpoint(t *testing.T) {
	analyzer := newStubAnalyzer()
	h := NewHandler(analyzer, nil)

	rec := serve(t, h, http.MethodGet, "/api/v1/sites/12/analysis", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result core.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.SiteID != 12 || result.Root == nil || result.Root.Sections[0].Title != "Magnetic susceptibility" {
		t.Fatalf("unexpected result %+v", result)
	}

	rec = serve(t, h, http.MethodGet, "/api/v1/sites/12/analysis?format=csv", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "text/csv" {
		t.Fatalf("expected csv, got %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "S2,[2 rows]") {
		t.Fatalf("unexpected csv body %q", rec.Body.String())
	}

	rec = serve(t, h, http.MethodGet, "/api/v1/sites/12/analysis?format=pdf", nil)
	if rec.Code != http.StatusNotAcceptable {
		t.Fatalf("expected 406, got %d", rec.Code)
	}
}

func TestAnalysisEndpointErrors(t *testing.T) {
	cases := []struct {
		name   string
		method string
		target string
		err    error
		status int
	}{
		{"non numeric id", http.MethodGet, "/api/v1/sites/abc/analysis", nil, http.StatusBadRequest},
		{"zero id", http.MethodGet, "/api/v1/sites/0/analysis", nil, http.StatusBadRequest},
		{"fetch failure", http.MethodGet, "/api/v1/sites/3/analysis", &core.FetchError{Stage: "site", Err: errors.New("timeout")}, http.StatusBadGateway},
		{"dispatch failure", http.MethodGet, "/api/v1/sites/3/analysis", core.ErrUnclaimedRecords, http.StatusInternalServerError},
		{"wrong method", http.MethodPost, "/api/v1/sites/3/analysis", nil, http.StatusMethodNotAllowed},
		{"unknown site endpoint", http.MethodGet, "/api/v1/sites/3/samples", nil, http.StatusNotFound},
		{"unknown path", http.MethodGet, "/api/v1/nothing", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			analyzer := newStubAnalyzer()
			analyzer.err = tc.err
			rec := serve(t, NewHandler(analyzer, nil), tc.method, tc.target, nil)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status == http.StatusBadGateway {
				if msg, _ := decodeBody(t, rec)["error"].(string); !strings.Contains(msg, "timeout") {
					t.Fatalf("expected error body, got %q", rec.Body.String())
				}
			}
		})
	}

	rec := serve(t, &Handler{}, http.MethodGet, "/api/v1/modules", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without analyzer, got %d", rec.Code)
	}
}

func TestModulesEndpointKeepsDispatchOrder(t *testing.T) {
	catalog := staticCatalog{
		{Name: "abundance", Filter: datasetapi.ClaimFilter{MethodIDs: []int{3, 6}}},
		{Name: "generic", Filter: datasetapi.ClaimFilter{All: true}, CatchAll: true},
	}
	rec := serve(t, NewHandler(newStubAnalyzer(), catalog), http.MethodGet, "/api/v1/modules", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Modules []datasetapi.ModuleDescriptor `json:"modules"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]datasetapi.ModuleDescriptor(catalog), body.Modules); diff != "" {
		t.Fatalf("modules mismatch (-want +got):\n%s", diff)
	}

	rec = serve(t, NewHandler(newStubAnalyzer(), nil), http.MethodGet, "/api/v1/modules/", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"modules":[]`) {
		t.Fatalf("expected empty module list, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestArchiveEndpoint(t *testing.T) {
	store := blob.NewMemory()
	h := NewHandler(newStubAnalyzer(), nil)
	h.Archive = store
	h.Now = fixedClock()

	rec := serve(t, h, http.MethodPost, "/api/v1/sites/5/archive", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	archives, err := ListArchives(context.Background(), store, 5)
	if err != nil || len(archives) != 1 {
		t.Fatalf("expected one archive, got %+v (%v)", archives, err)
	}
	if !strings.Contains(rec.Body.String(), archives[0].Key) {
		t.Fatalf("response does not name the archive key: %s", rec.Body.String())
	}

	h.Archive = nil
	if rec := serve(t, h, http.MethodPost, "/api/v1/sites/5/archive", nil); rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 without archive store, got %d", rec.Code)
	}
}

func TestExportLifecycleOverHTTP(t *testing.T) {
	defer goleak.VerifyNone(t)

	worker := NewWorker(newStubAnalyzer(), NewBlobObjectStore(blob.NewMemory()))
	worker.Start()
	defer func() { _ = worker.Stop(context.Background()) }()

	h := NewHandler(newStubAnalyzer(), nil)
	h.Exports = worker
	h.Artifacts = worker

	rec := serve(t, h, http.MethodPost, "/api/v1/exports", []byte(`{"site_id": 9, "formats": ["CSV"], "requested_by": "ops"}`))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Export ExportRecord `json:"export"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	record := waitForStatus(t, worker, created.Export.ID, ExportStatusSucceeded)

	rec = serve(t, h, http.MethodGet, "/api/v1/exports/"+record.ID, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"succeeded"`) {
		t.Fatalf("unexpected status response %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(t, h, http.MethodGet, record.Artifacts[0].URL, nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "text/csv" {
		t.Fatalf("unexpected artifact response %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Body.String(), "Analyses / ") {
		t.Fatalf("unexpected artifact body %q", rec.Body.String())
	}

	missing := fmt.Sprintf("/api/v1/exports/%s/artifacts/nope", record.ID)
	if rec := serve(t, h, http.MethodGet, missing, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown artifact, got %d", rec.Code)
	}
	if rec := serve(t, h, http.MethodGet, "/api/v1/exports/unknown", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown export, got %d", rec.Code)
	}
}

func TestExportCreateValidation(t *testing.T) {
	h := NewHandler(newStubAnalyzer(), nil)
	h.Exports = NewWorker(newStubAnalyzer(), nil)

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed", `{`, http.StatusBadRequest},
		{"missing site", `{"formats": ["json"]}`, http.StatusBadRequest},
		{"bad format", `{"site_id": 1, "formats": ["xlsx"]}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, h, http.MethodPost, "/api/v1/exports", []byte(tc.body))
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
	if rec := serve(t, h, http.MethodGet, "/api/v1/exports", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	h.Exports = nil
	if rec := serve(t, h, http.MethodPost, "/api/v1/exports", []byte(`{}`)); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without scheduler, got %d", rec.Code)
	}
}
