// Package metrics owns the Prometheus collectors exported by the ledger API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector on a private registry so tests and multiple
// instances never collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	fraudWarningsTotal *prometheus.CounterVec
	outboxMessages     *prometheus.CounterVec
}

// New creates and registers the collectors under namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Ledger operations by outcome.",
		}, []string{"operation", "outcome"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Ledger operation latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		fraudWarningsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fraud_warnings_total",
			Help:      "Fraud heuristics triggered, by rule and severity.",
		}, []string{"rule", "severity"}),
		outboxMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_messages_total",
			Help:      "Outbox messages handled by the poller, by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operationsTotal,
		m.operationDuration,
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.fraudWarningsTotal,
		m.outboxMessages,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveOperation records one ledger operation. Outcome is "ok" or an error kind.
func (m *Metrics) ObserveOperation(operation, outcome string, duration time.Duration) {
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RequestStarted and RequestFinished bracket one HTTP request.
func (m *Metrics) RequestStarted() {
	m.httpInFlight.Inc()
}

func (m *Metrics) RequestFinished(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.httpRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.httpInFlight.Dec()
}

// FraudWarnings is the counter fed by the fraud metrics sink.
func (m *Metrics) FraudWarnings() *prometheus.CounterVec {
	return m.fraudWarningsTotal
}

// OutboxResult counts one outbox message as published, retried or dead-lettered.
func (m *Metrics) OutboxResult(result string) {
	m.outboxMessages.WithLabelValues(result).Inc()
}
