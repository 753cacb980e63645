package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// HTTPMetrics contains Prometheus metrics for HTTP handlers and the SSE stream.
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	sseActive   prometheus.Gauge
	sseTotal    prometheus.Counter
	sseMessages *prometheus.CounterVec
	sseErrors   *prometheus.CounterVec

	authOperations *prometheus.CounterVec
}

// NewHTTPMetrics creates and registers HTTP metrics.
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register HTTP metrics: %w", err)
	}
	return m, nil
}

func (m *HTTPMetrics) initMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bpi_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"})

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bpi_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	m.sseActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bpi_sse_active_connections",
		Help: "Open change stream connections.",
	})

	m.sseTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bpi_sse_connections_total",
		Help: "Change stream connections accepted.",
	})

	m.sseMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bpi_sse_messages_total",
		Help: "Change events written to stream clients by collection.",
	}, []string{"collection"})

	m.sseErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bpi_sse_errors_total",
		Help: "Change stream write failures by type.",
	}, []string{"type"})

	m.authOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bpi_auth_operations_total",
		Help: "Sign-in outcomes by screen.",
	}, []string{"outcome"})
}

// ObserveRequest records a completed HTTP request.
func (m *HTTPMetrics) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SSEConnected records a new stream connection.
func (m *HTTPMetrics) SSEConnected() {
	if m == nil {
		return
	}
	m.sseActive.Inc()
	m.sseTotal.Inc()
}

// SSEDisconnected records a closed stream connection.
func (m *HTTPMetrics) SSEDisconnected() {
	if m == nil {
		return
	}
	m.sseActive.Dec()
}

// ActiveSSEConnections returns the current value of the open stream gauge.
func (m *HTTPMetrics) ActiveSSEConnections() float64 {
	if m == nil {
		return 0
	}
	metric := &dto.Metric{}
	if err := m.sseActive.Write(metric); err != nil {
		return 0
	}
	return metric.GetGauge().GetValue()
}

// SSEMessage records one event written to a stream client.
func (m *HTTPMetrics) SSEMessage(collection string) {
	if m == nil {
		return
	}
	m.sseMessages.WithLabelValues(collection).Inc()
}

// SSEError records a failed stream write.
func (m *HTTPMetrics) SSEError(errorType string) {
	if m == nil {
		return
	}
	m.sseErrors.WithLabelValues(errorType).Inc()
}

// RecordAuth records a sign-in outcome (dashboard, denied, failed).
func (m *HTTPMetrics) RecordAuth(outcome string) {
	if m == nil {
		return
	}
	m.authOperations.WithLabelValues(outcome).Inc()
}

// Describe implements prometheus.Collector.
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
	m.sseActive.Describe(ch)
	m.sseTotal.Describe(ch)
	m.sseMessages.Describe(ch)
	m.sseErrors.Describe(ch)
	m.authOperations.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
	m.sseActive.Collect(ch)
	m.sseTotal.Collect(ch)
	m.sseMessages.Collect(ch)
	m.sseErrors.Collect(ch)
	m.authOperations.Collect(ch)
}
