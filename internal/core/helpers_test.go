package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"sitereport/pkg/datasetapi"
	"sitereport/pkg/domain"
)

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureTracer struct {
	mu      sync.Mutex
	started []string
	ended   []spanRecord
}

type spanRecord struct {
	op  string
	err error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type logEntry struct {
	level string
	msg   string
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.log("debug", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.log("info", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.log("warn", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.log("error", msg) }

func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

// stubModule claims by filter and builds sections with build.
type stubModule struct {
	datasetapi.Base
	build func(ctx context.Context, env *datasetapi.Environment, claimed []domain.AnalysisRecord, sections *domain.SectionList) error
	runs  int
}

func newStub(name string, filter datasetapi.ClaimFilter) *stubModule {
	return &stubModule{Base: datasetapi.Base{ModuleName: name, Claims: filter}}
}

func (m *stubModule) MakeSections(ctx context.Context, env *datasetapi.Environment, claimed []domain.AnalysisRecord, sections *domain.SectionList) error {
	m.runs++
	if m.build != nil {
		return m.build(ctx, env, claimed, sections)
	}
	for _, rec := range claimed {
		s := datasetapi.MethodSection(env, sections, rec.MethodID)
		s.AddContent(datasetapi.DatasetContent(env, rec, domain.NewTable(datasetapi.EntityKeyColumn())))
	}
	return nil
}

func byMethods(ids ...int) datasetapi.ClaimFilter {
	return datasetapi.ClaimFilter{MethodIDs: ids}
}

func byGroups(ids ...int) datasetapi.ClaimFilter {
	return datasetapi.ClaimFilter{MethodGroupIDs: ids}
}

func record(datasetID, methodID, groupID int) domain.AnalysisRecord {
	return domain.AnalysisRecord{DatasetID: datasetID, MethodID: methodID, MethodGroupID: groupID}
}

func datasetIDs(records []domain.AnalysisRecord) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.DatasetID
	}
	return out
}

func mustRegistry(t testing.TB, catchAll datasetapi.Module, modules ...datasetapi.Module) *ModuleRegistry {
	t.Helper()
	reg := NewModuleRegistry()
	for _, m := range modules {
		if err := reg.Register(m); err != nil {
			t.Fatalf("register %s: %v", m.Name(), err)
		}
	}
	if catchAll != nil {
		if err := reg.RegisterCatchAll(catchAll); err != nil {
			t.Fatalf("register catch-all: %v", err)
		}
	}
	return reg
}
