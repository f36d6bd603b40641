package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	httpErrors    *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	invoices      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	alerts        *prometheus.CounterVec
	slaOverdue    prometheus.Gauge
	slaRuns       *prometheus.CounterVec
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP requests that ended with a domain error, by code.",
		}, []string{"method", "path", "code"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "request_status_transitions_total",
			Help: "Committed status transitions.",
		}, []string{"from", "to", "kind"}),
		invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoice_operations_total",
			Help: "Invoice mutations by action.",
		}, []string{"action"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "In-app notifications written, by event type.",
		}, []string{"event_type"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "external_alerts_total",
			Help: "External alert deliveries by outcome.",
		}, []string{"outcome"}),
		slaOverdue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sla_overdue_requests",
			Help: "Overdue requests found by the last SLA scan.",
		}),
		slaRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_scans_total",
			Help: "SLA scans by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.httpRequests, m.httpLatency, m.httpErrors, m.transitions, m.invoices,
		m.notifications, m.alerts, m.slaOverdue, m.slaRuns,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(method, path, code).Inc()
}

func (m *Metrics) RecordTransition(from, to, kind string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to, kind).Inc()
}

func (m *Metrics) RecordInvoice(action string) {
	if m == nil {
		return
	}
	m.invoices.WithLabelValues(action).Inc()
}

func (m *Metrics) RecordNotification(eventType string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(eventType).Inc()
}

// RecordAlert counts an external delivery attempt: "sent", "skipped" or "failed".
func (m *Metrics) RecordAlert(outcome string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(outcome).Inc()
}

// RecordSLAScan stores the overdue gauge and counts the run.
func (m *Metrics) RecordSLAScan(overdue int, outcome string) {
	if m == nil {
		return
	}
	if outcome == "ok" {
		m.slaOverdue.Set(float64(overdue))
	}
	m.slaRuns.WithLabelValues(outcome).Inc()
}
