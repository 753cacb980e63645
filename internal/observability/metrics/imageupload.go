package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ImageUploadMetrics contains metrics for image upload backends.
type ImageUploadMetrics struct {
	uploads  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	size     prometheus.Histogram
}

// NewImageUploadMetrics creates and registers image upload metrics.
func NewImageUploadMetrics(registry *prometheus.Registry) (*ImageUploadMetrics, error) {
	m := &ImageUploadMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register image upload metrics: %w", err)
	}
	return m, nil
}

func (m *ImageUploadMetrics) initMetrics() {
	m.uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bpi_image_uploads_total",
		Help: "Image uploads by provider and outcome.",
	}, []string{"provider", "status"})

	m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bpi_image_upload_duration_seconds",
		Help:    "Duration of image uploads.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"provider"})

	m.size = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bpi_image_upload_size_bytes",
		Help:    "Size of uploaded images.",
		Buckets: prometheus.ExponentialBuckets(16<<10, 2, 10),
	})
}

// ObserveUpload records one upload attempt.
func (m *ImageUploadMetrics) ObserveUpload(provider string, sizeBytes int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(provider, statusOf(err)).Inc()
	m.duration.WithLabelValues(provider).Observe(elapsed.Seconds())
	if err == nil {
		m.size.Observe(float64(sizeBytes))
	}
}

// Describe implements prometheus.Collector.
func (m *ImageUploadMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.uploads.Describe(ch)
	m.duration.Describe(ch)
	m.size.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *ImageUploadMetrics) Collect(ch chan<- prometheus.Metric) {
	m.uploads.Collect(ch)
	m.duration.Collect(ch)
	m.size.Collect(ch)
}
