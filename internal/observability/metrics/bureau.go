package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// BureauMetrics tracks domain-level outcomes: record saves, cross-link
// propagation and the associate sibling cache.
type BureauMetrics struct {
	saves          *prometheus.CounterVec
	crossLinks     *prometheus.CounterVec
	associateCache *prometheus.CounterVec
}

// NewBureauMetrics creates and registers domain metrics.
func NewBureauMetrics(registry *prometheus.Registry) (*BureauMetrics, error) {
	m := &BureauMetrics{
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bpi_record_saves_total",
			Help: "Record saves by kind and outcome.",
		}, []string{"kind", "status"}),
		crossLinks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bpi_crosslink_writes_total",
			Help: "Field note writes issued by cross-link propagation.",
		}, []string{"direction", "status"}),
		associateCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bpi_associate_cache_lookups_total",
			Help: "Sibling snapshot cache lookups by result.",
		}, []string{"result"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register bureau metrics: %w", err)
	}
	return m, nil
}

// RecordSave records a save of kind (specimen, fieldnote, transcript, settings).
func (m *BureauMetrics) RecordSave(kind string, err error) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(kind, statusOf(err)).Inc()
}

// RecordCrossLink records one propagated field note write.
func (m *BureauMetrics) RecordCrossLink(direction string, err error) {
	if m == nil {
		return
	}
	m.crossLinks.WithLabelValues(direction, statusOf(err)).Inc()
}

// RecordAssociateCache records a sibling cache hit or miss.
func (m *BureauMetrics) RecordAssociateCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.associateCache.WithLabelValues(result).Inc()
}

// Describe implements prometheus.Collector.
func (m *BureauMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.saves.Describe(ch)
	m.crossLinks.Describe(ch)
	m.associateCache.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *BureauMetrics) Collect(ch chan<- prometheus.Metric) {
	m.saves.Collect(ch)
	m.crossLinks.Collect(ch)
	m.associateCache.Collect(ch)
}
