package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sitereport/internal/core"
	"sitereport/pkg/datasetapi"
)

const fixture = "testdata/site.json"

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&app{stdout: &stdout, stderr: &stderr})
	cmd.SetArgs(append([]string{"--env-file", "", "--log-mode", "production"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRenderFixtureAsJSON(t *testing.T) {
	out, _, err := run(t, "--fixture", fixture, "render", "--site", "4")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var result core.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if result.State != core.StateAssembled || result.SiteName != "Bog" {
		t.Fatalf("unexpected result %+v", result)
	}
	var names []string
	for _, s := range result.Root.Sections {
		names = append(names, s.Name)
	}
	if strings.Join(names, ",") != "33,999" {
		t.Fatalf("unexpected sections %v", names)
	}
	if last := result.Root.Sections[1]; !last.Warning {
		t.Fatalf("expected catch-all warning on %+v", last)
	}
}

func TestRenderCSVToFileWithCacheAndTracing(t *testing.T) {
	dir := t.TempDir()
	tracePath := filepath.Join(dir, "trace.jsonl")
	t.Setenv("SITEREPORT_CACHE_DRIVER", "memory")
	t.Setenv("SITEREPORT_TRACING", "otel")
	t.Setenv("SITEREPORT_TRACE_FILE", tracePath)

	outPath := filepath.Join(dir, "site.csv")
	stdout, _, err := run(t, "--fixture", fixture, "render", "--site", "4", "--format", "csv", "--out", outPath)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if stdout != "" {
		t.Fatalf("expected nothing on stdout, got %q", stdout)
	}
	csv, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !strings.HasPrefix(string(csv), "Analyses / ") {
		t.Fatalf("unexpected csv %q", csv)
	}
	spans, err := os.ReadFile(tracePath)
	if err != nil || !bytes.Contains(spans, []byte("analysis.assemble")) {
		t.Fatalf("expected exported spans, got %q (%v)", spans, err)
	}
}

func TestRenderArchivesToBlobStore(t *testing.T) {
	root := t.TempDir()
	t.Setenv("SITEREPORT_BLOB_ROOT", root)
	_, stderr, err := run(t, "--fixture", fixture, "render", "--site", "4", "--archive")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(stderr, "archived sites/4/analysis-") {
		t.Fatalf("expected archive key on stderr, got %q", stderr)
	}
	matches, err := filepath.Glob(filepath.Join(root, "sites", "4", "analysis-*.json"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one archive file, got %v (%v)", matches, err)
	}
}

func TestRenderErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"unknown site", []string{"--fixture", fixture, "render", "--site", "99"}, "site 99"},
		{"missing site flag", []string{"--fixture", fixture, "render"}, `"site" not set`},
		{"bad site", []string{"--fixture", fixture, "render", "--site", "-3"}, "invalid site id"},
		{"bad format", []string{"--fixture", fixture, "render", "--site", "4", "--format", "xml"}, "xml"},
		{"missing fixture", []string{"--fixture", "testdata/none.json", "render", "--site", "4"}, "open fixture"},
		{"missing config", []string{"--config", "testdata/none.yaml", "modules"}, "read config"},
		{"bad log mode", []string{"--log-mode", "loud", "modules"}, "invalid mode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := run(t, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestModulesListsCatchAllLast(t *testing.T) {
	out, _, err := run(t, "modules")
	if err != nil {
		t.Fatalf("modules: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.HasPrefix(lines[0], "ORDER") {
		t.Fatalf("expected header, got %q", lines[0])
	}
	last := lines[len(lines)-1]
	if !strings.Contains(last, "generic") || !strings.Contains(last, "everything left") {
		t.Fatalf("expected catch-all last, got %q", last)
	}

	out, _, err = run(t, "modules", "--json")
	if err != nil {
		t.Fatalf("modules --json: %v", err)
	}
	var descriptors []datasetapi.ModuleDescriptor
	if err := json.Unmarshal([]byte(out), &descriptors); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(descriptors) < 2 || !descriptors[len(descriptors)-1].CatchAll {
		t.Fatalf("unexpected descriptors %+v", descriptors)
	}
	for _, d := range descriptors[:len(descriptors)-1] {
		if d.CatchAll {
			t.Fatalf("catch-all %s before the end", d.Name)
		}
	}
}

func TestDescribeFilter(t *testing.T) {
	cases := []struct {
		d    datasetapi.ModuleDescriptor
		want string
	}{
		{datasetapi.ModuleDescriptor{CatchAll: true}, "everything left"},
		{datasetapi.ModuleDescriptor{Filter: datasetapi.ClaimFilter{MethodIDs: []int{3, 6}}}, "methods 3,6"},
		{datasetapi.ModuleDescriptor{Filter: datasetapi.ClaimFilter{MethodIDs: []int{33}, MethodGroupIDs: []int{2}}}, "methods 33; method groups 2"},
	}
	for _, tc := range cases {
		if got := describeFilter(tc.d); got != tc.want {
			t.Fatalf("describeFilter(%+v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestServeAnswersUntilCancelled(t *testing.T) {
	t.Setenv("SITEREPORT_BLOB_DRIVER", "memory")
	t.Setenv("SITEREPORT_METRICS", "prometheus")
	a := &app{stdout: io.Discard, stderr: io.Discard, fixture: fixture, logMode: "production"}
	if err := a.setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(base + "/api/v1/sites/4/analysis")
	if err != nil {
		cancel()
		t.Fatalf("get analysis: %v", err)
	}
	var result core.Result
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || decodeErr != nil || result.SiteID != 4 {
		cancel()
		t.Fatalf("unexpected analysis response %d %+v (%v)", resp.StatusCode, result, decodeErr)
	}

	resp, err = client.Get(base + "/metrics")
	if err != nil {
		cancel()
		t.Fatalf("get metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "sitereport_analysis_operations_total") {
		cancel()
		t.Fatalf("expected analysis metrics, got %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}
