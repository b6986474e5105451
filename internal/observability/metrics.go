// Package observability provides the Prometheus metrics of the dataset explorer.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/logger"
	"github.com/tphakala/plantclef-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry      *prometheus.Registry
	ImageProvider *metrics.ImageProviderMetrics
	HTTP          *metrics.HTTPMetrics
	Charts        *metrics.ChartMetrics
	Errors        *metrics.ErrorMetrics
}

// NewMetrics creates a new instance of Metrics on its own registry, so several
// instances can coexist in one process.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register Go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	imageProviderMetrics, err := metrics.NewImageProviderMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create ImageProvider metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	chartMetrics, err := metrics.NewChartMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Chart metrics: %w", err)
	}

	errorMetrics, err := metrics.NewErrorMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Error metrics: %w", err)
	}

	return &Metrics{
		registry:      registry,
		ImageProvider: imageProviderMetrics,
		HTTP:          httpMetrics,
		Charts:        chartMetrics,
		Errors:        errorMetrics,
	}, nil
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promLogger{},
		ErrorHandling: promhttp.HTTPErrorOnError,
		Registry:      m.registry,
	})
}

// InstallErrorHook counts every error built through the errors package.
func (m *Metrics) InstallErrorHook() {
	errors.AddErrorHook(func(ee *errors.EnhancedError) {
		m.Errors.RecordError(ee.GetComponent(), ee.GetCategory())
	})
}

// GetLogger returns the observability module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("observability")
}

// promLogger adapts the module logger to promhttp.Logger.
type promLogger struct{}

func (promLogger) Println(v ...any) {
	GetLogger().Error("metrics handler error", logger.String("message", fmt.Sprint(v...)))
}
