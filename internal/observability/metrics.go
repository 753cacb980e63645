// Package observability wires the Prometheus registry used by the dossier service.
// Error telemetry lives in the errors package.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peepybureau/bpi/internal/logger"
	"github.com/peepybureau/bpi/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry    *prometheus.Registry
	HTTP        *metrics.HTTPMetrics
	Datastore   *metrics.DatastoreMetrics
	ImageUpload *metrics.ImageUploadMetrics
	Bureau      *metrics.BureauMetrics
}

// NewMetrics creates a registry with process and Go runtime collectors plus
// the service collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	datastoreMetrics, err := metrics.NewDatastoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore metrics: %w", err)
	}

	uploadMetrics, err := metrics.NewImageUploadMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create image upload metrics: %w", err)
	}

	bureauMetrics, err := metrics.NewBureauMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create bureau metrics: %w", err)
	}

	return &Metrics{
		registry:    registry,
		HTTP:        httpMetrics,
		Datastore:   datastoreMetrics,
		ImageUpload: uploadMetrics,
		Bureau:      bureauMetrics,
	}, nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promErrorLog{log: logger.Global().Module("metrics")},
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// promErrorLog adapts Logger to promhttp.Logger.
type promErrorLog struct {
	log logger.Logger
}

func (p promErrorLog) Println(v ...any) {
	p.log.Error("metrics handler error", logger.String("detail", fmt.Sprint(v...)))
}
