package core

import "time"

type options struct {
	clock            Clock
	logger           Logger
	metrics          MetricsRecorder
	tracer           Tracer
	fetchConcurrency int
}

// Option customises an Analysis or Dispatcher.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		clock:            ClockFunc(time.Now),
		logger:           noopLogger{},
		metrics:          noopMetrics{},
		tracer:           noopTracer{},
		fetchConcurrency: 8,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(o *options) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithFetchConcurrency bounds concurrent fetches; n <= 0 removes the bound.
func WithFetchConcurrency(n int) Option {
	return func(o *options) {
		o.fetchConcurrency = n
	}
}
