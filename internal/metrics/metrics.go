// Package metrics holds the Prometheus collectors exported on /metrics.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "acp"

// Metrics groups the proxy's collectors.
type Metrics struct {
	registry *prometheus.Registry

	SessionOperations *prometheus.CounterVec
	EngineRequests    *prometheus.HistogramVec
	UnmappedStatuses  *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, alongside the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		SessionOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_operations_total",
			Help:      "Checkout session operations by outcome.",
		}, []string{"operation", "outcome"}),
		EngineRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_request_duration_seconds",
			Help:      "Latency of calls to the checkout engine.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		UnmappedStatuses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unmapped_engine_status_total",
			Help:      "Engine checkout statuses with no ACP mapping, reported as open.",
		}, []string{"status"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Inbound HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SessionOperations,
		m.EngineRequests,
		m.UnmappedStatuses,
		m.HTTPRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordOperation counts one session operation.
func (m *Metrics) RecordOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.SessionOperations.WithLabelValues(operation, outcome).Inc()
}

// ObserveEngine records one engine call. status is 0 for transport failures.
func (m *Metrics) ObserveEngine(operation string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.EngineRequests.WithLabelValues(operation, strconv.Itoa(status)).Observe(d.Seconds())
}

// RecordUnmappedStatus counts an engine status the proxy does not recognize.
func (m *Metrics) RecordUnmappedStatus(status string) {
	if m == nil {
		return
	}
	m.UnmappedStatuses.WithLabelValues(status).Inc()
}

// RecordHTTP counts one inbound request.
func (m *Metrics) RecordHTTP(method string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}
