package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ImageProviderMetrics contains all Prometheus metrics related to species image downloads.
type ImageProviderMetrics struct {
	CacheEntries     prometheus.Gauge
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	ImageDownloads   prometheus.Counter
	DownloadErrors   *prometheus.CounterVec
	DownloadDuration prometheus.Histogram
	MontagesBuilt    prometheus.Counter
}

// NewImageProviderMetrics creates and registers the image provider metrics.
func NewImageProviderMetrics(registry prometheus.Registerer) (*ImageProviderMetrics, error) {
	m := &ImageProviderMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register ImageProvider metrics: %w", err)
	}
	return m, nil
}

func (m *ImageProviderMetrics) initMetrics() {
	m.CacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "image_provider_cache_entries",
		Help: "Number of montages held in the in-memory cache.",
	})

	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_provider_cache_hits_total",
		Help: "Total number of montage cache hits.",
	})

	m.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_provider_cache_misses_total",
		Help: "Total number of montage cache misses.",
	})

	m.ImageDownloads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_provider_downloads_total",
		Help: "Total number of successful image downloads.",
	})

	m.DownloadErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_provider_download_errors_total",
		Help: "Total number of failed image downloads.",
	}, []string{"reason"}) // reason: fetch, decode

	m.DownloadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "image_provider_download_duration_seconds",
		Help:    "Duration of image downloads in seconds.",
		Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
	})

	m.MontagesBuilt = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_provider_montages_total",
		Help: "Total number of species montages composed.",
	})
}

// SetCacheEntries updates the number of cached montages.
func (m *ImageProviderMetrics) SetCacheEntries(n int) {
	m.CacheEntries.Set(float64(n))
}

// IncrementCacheHits increases the cache hit counter by one.
func (m *ImageProviderMetrics) IncrementCacheHits() {
	m.CacheHits.Inc()
}

// IncrementCacheMisses increases the cache miss counter by one.
func (m *ImageProviderMetrics) IncrementCacheMisses() {
	m.CacheMisses.Inc()
}

// IncrementImageDownloads increases the image download counter by one.
func (m *ImageProviderMetrics) IncrementImageDownloads() {
	m.ImageDownloads.Inc()
}

// IncrementDownloadErrors counts one failed download for reason.
func (m *ImageProviderMetrics) IncrementDownloadErrors(reason string) {
	m.DownloadErrors.WithLabelValues(reason).Inc()
}

// ObserveDownloadDuration records the duration of an image download in seconds.
func (m *ImageProviderMetrics) ObserveDownloadDuration(durationSeconds float64) {
	m.DownloadDuration.Observe(durationSeconds)
}

// IncrementMontages counts one composed montage.
func (m *ImageProviderMetrics) IncrementMontages() {
	m.MontagesBuilt.Inc()
}

func (m *ImageProviderMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.CacheEntries,
		m.CacheHits,
		m.CacheMisses,
		m.ImageDownloads,
		m.DownloadErrors,
		m.DownloadDuration,
		m.MontagesBuilt,
	}
}

// Describe implements the prometheus.Collector interface.
func (m *ImageProviderMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface.
func (m *ImageProviderMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}
