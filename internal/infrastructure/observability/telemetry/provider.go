package telemetry

import (
	"github.com/marketsquare/order-service/internal/infrastructure/observability/prometrics"
	"github.com/marketsquare/order-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

// New assembles an Observability provider backed by the supplied tracer,
// logger, and metrics. Nil ports degrade to no-ops.
func New(tracer observability.Tracer, logger observability.Logger, metrics observability.Metrics) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &provider{tracer: tracer, logger: logger, metrics: metrics}
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p.metrics }

type registryMetrics struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
	gauges     map[observability.MetricKey]observability.Gauge
}

// NewMetrics registers every metric the service emits on the given registry
// and exposes them through the Metrics port. Unknown keys resolve to no-ops
// so a missing registration never panics at call sites.
func NewMetrics(reg prometrics.Registry) observability.Metrics {
	return &registryMetrics{
		counters: map[observability.MetricKey]observability.Counter{
			observability.MUsecaseRequests: reg.Counter(
				string(observability.MUsecaseRequests),
				"Total number of use case invocations.",
				"use_case", "outcome",
			),
			observability.MHTTPRequests: reg.Counter(
				string(observability.MHTTPRequests),
				"Total number of HTTP requests handled.",
				"method", "route", "status",
			),
			observability.MExternalRequests: reg.Counter(
				string(observability.MExternalRequests),
				"Total number of outbound calls to remote dependencies.",
				"peer", "endpoint", "outcome",
			),
			observability.MBreakerTransitions: reg.Counter(
				string(observability.MBreakerTransitions),
				"Count of circuit breaker state transitions.",
				"breaker", "to",
			),
		},
		histograms: map[observability.MetricKey]observability.Histogram{
			observability.MUsecaseDuration: reg.Histogram(
				string(observability.MUsecaseDuration),
				"Duration of use case execution in seconds.",
				prometheus.DefBuckets,
				"use_case",
			),
			observability.MHTTPRequestDuration: reg.Histogram(
				string(observability.MHTTPRequestDuration),
				"Duration of HTTP request handling in seconds.",
				prometheus.DefBuckets,
				"method", "route", "status",
			),
			observability.MExternalRequestDuration: reg.Histogram(
				string(observability.MExternalRequestDuration),
				"Duration of outbound calls to remote dependencies in seconds.",
				prometheus.DefBuckets,
				"peer", "endpoint",
			),
		},
		gauges: map[observability.MetricKey]observability.Gauge{
			observability.MBreakerState: reg.Gauge(
				string(observability.MBreakerState),
				"Current circuit breaker state (0 closed, 1 half-open, 2 open).",
				"breaker",
			),
		},
	}
}

func (m *registryMetrics) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := m.counters[name]; ok {
		return c
	}
	return observability.NopMetrics().Counter(name)
}

func (m *registryMetrics) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[name]; ok {
		return h
	}
	return observability.NopMetrics().Histogram(name)
}

func (m *registryMetrics) Gauge(name observability.MetricKey) observability.Gauge {
	if g, ok := m.gauges[name]; ok {
		return g
	}
	return observability.NopMetrics().Gauge(name)
}
