package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics tracks record operations and the change feed.
// Methods are safe to call on a nil receiver, which records nothing.
type DatastoreMetrics struct {
	operations      *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	feedDropped     *prometheus.CounterVec
	feedSubscribers prometheus.Gauge
}

// NewDatastoreMetrics creates and registers datastore metrics.
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register datastore metrics: %w", err)
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() {
	m.operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bpi_datastore_operations_total",
		Help: "Datastore operations by operation, collection and outcome.",
	}, []string{"operation", "collection", "status"})

	m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bpi_datastore_operation_duration_seconds",
		Help:    "Duration of datastore operations.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"operation", "collection"})

	m.feedDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bpi_changefeed_dropped_events_total",
		Help: "Change events dropped because a subscriber was not keeping up.",
	}, []string{"collection"})

	m.feedSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bpi_changefeed_subscribers",
		Help: "Active change feed subscriptions.",
	})
}

// ObserveOperation records one datastore operation.
func (m *DatastoreMetrics) ObserveOperation(operation, collection string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, collection, statusOf(err)).Inc()
	m.duration.WithLabelValues(operation, collection).Observe(elapsed.Seconds())
}

// IncDropped records a change event dropped for a slow subscriber.
func (m *DatastoreMetrics) IncDropped(collection string) {
	if m == nil {
		return
	}
	m.feedDropped.WithLabelValues(collection).Inc()
}

// AddSubscribers adjusts the active subscription gauge by delta.
func (m *DatastoreMetrics) AddSubscribers(delta int) {
	if m == nil {
		return
	}
	m.feedSubscribers.Add(float64(delta))
}

// Describe implements prometheus.Collector.
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operations.Describe(ch)
	m.duration.Describe(ch)
	m.feedDropped.Describe(ch)
	m.feedSubscribers.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operations.Collect(ch)
	m.duration.Collect(ch)
	m.feedDropped.Collect(ch)
	m.feedSubscribers.Collect(ch)
}
