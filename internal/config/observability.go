package config

// Metrics exporters.
const (
	MetricsNone       = "none"
	MetricsExpvar     = "expvar"
	MetricsPrometheus = "prometheus"
)

// Tracing exporters.
const (
	TracingNone = "none"
	TracingJSON = "json"
	TracingOTel = "otel"
)

// ObservabilityConfig selects the metrics recorder and tracer.
type ObservabilityConfig struct {
	Metrics   string `yaml:"metrics"`
	Tracing   string `yaml:"tracing"`
	Namespace string `yaml:"namespace"`
	// TraceFile receives JSON span lines; empty means stderr.
	TraceFile string `yaml:"trace_file"`
}

// Finalize applies defaults, environment overrides and validation.
func (c *ObservabilityConfig) Finalize() error {
	envString("SITEREPORT_METRICS", &c.Metrics)
	envString("SITEREPORT_TRACING", &c.Tracing)
	envString("SITEREPORT_METRICS_NAMESPACE", &c.Namespace)
	envString("SITEREPORT_TRACE_FILE", &c.TraceFile)
	if c.Metrics == "" {
		c.Metrics = MetricsExpvar
	}
	if c.Tracing == "" {
		c.Tracing = TracingNone
	}
	if c.Namespace == "" {
		c.Namespace = "sitereport"
	}
	if err := oneOf("metrics", c.Metrics, MetricsNone, MetricsExpvar, MetricsPrometheus); err != nil {
		return err
	}
	return oneOf("tracing", c.Tracing, TracingNone, TracingJSON, TracingOTel)
}

// Merge overwrites non-zero fields from overlay.
func (c *ObservabilityConfig) Merge(overlay *ObservabilityConfig) {
	mergeString(&c.Metrics, overlay.Metrics)
	mergeString(&c.Tracing, overlay.Tracing)
	mergeString(&c.Namespace, overlay.Namespace)
	mergeString(&c.TraceFile, overlay.TraceFile)
}
