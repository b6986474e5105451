package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ChartMetrics tracks chart rendering and the rendered chart cache.
type ChartMetrics struct {
	rendersTotal   *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
}

// NewChartMetrics creates and registers chart metrics.
func NewChartMetrics(registry prometheus.Registerer) (*ChartMetrics, error) {
	m := &ChartMetrics{
		rendersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chart_renders_total",
			Help: "Total number of chart renders",
		}, []string{"chart", "format", "status"}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chart_render_duration_seconds",
			Help:    "Time taken to render a chart",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		}, []string{"chart"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chart_cache_hits_total",
			Help: "Total number of rendered chart cache hits",
		}, []string{"chart"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chart_cache_misses_total",
			Help: "Total number of rendered chart cache misses",
		}, []string{"chart"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordRender records one render attempt of chart.
func (m *ChartMetrics) RecordRender(chart, format string, duration time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.rendersTotal.WithLabelValues(chart, format, status).Inc()
	m.renderDuration.WithLabelValues(chart).Observe(duration.Seconds())
}

// RecordCacheHit counts a cache hit for chart.
func (m *ChartMetrics) RecordCacheHit(chart string) {
	m.cacheHits.WithLabelValues(chart).Inc()
}

// RecordCacheMiss counts a cache miss for chart.
func (m *ChartMetrics) RecordCacheMiss(chart string) {
	m.cacheMisses.WithLabelValues(chart).Inc()
}

func (m *ChartMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.rendersTotal, m.renderDuration, m.cacheHits, m.cacheMisses}
}

// Describe implements the Collector interface
func (m *ChartMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ChartMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}
