package observability

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/plantclef-go/internal/errors"
)

func TestNewMetricsConcurrency(t *testing.T) {
	t.Parallel()

	const numGoroutines = 20

	var wg sync.WaitGroup
	for range numGoroutines {
		wg.Go(func() {
			m, err := NewMetrics()
			if !assert.NoError(t, err) {
				return
			}
			assert.NotNil(t, m.Registry())
			assert.NotNil(t, m.ImageProvider)
			assert.NotNil(t, m.HTTP)
			assert.NotNil(t, m.Charts)
			assert.NotNil(t, m.Errors)
		})
	}
	wg.Wait()
}

func TestImageProviderMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.ImageProvider.IncrementCacheHits()
	m.ImageProvider.IncrementCacheMisses()
	m.ImageProvider.IncrementCacheMisses()
	m.ImageProvider.IncrementDownloadErrors("fetch")
	m.ImageProvider.SetCacheEntries(3)

	assert.InDelta(t, 1, testutil.ToFloat64(m.ImageProvider.CacheHits), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.ImageProvider.CacheMisses), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ImageProvider.DownloadErrors.WithLabelValues("fetch")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.ImageProvider.CacheEntries), 0)
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.HTTP.RecordRequest(http.MethodGet, "/api/v1/species", http.StatusOK, 15*time.Millisecond, 512)
	m.Charts.RecordRender("cumulative", "png", time.Millisecond, nil)
	m.Charts.RecordCacheHit("cumulative")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/v1/species",status_code="200"} 1`)
	assert.Contains(t, body, `chart_renders_total{chart="cumulative",format="png",status="success"} 1`)
	assert.Contains(t, body, `chart_cache_hits_total{chart="cumulative"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

// Not parallel: error hooks are process-wide.
func TestInstallErrorHook(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	t.Cleanup(errors.ClearErrorHooks)
	m.InstallErrorHook()

	_ = errors.Newf("boom").Component("charts").Category(errors.CategoryChartRender).Build()

	count, err := testutil.GatherAndCount(m.Registry(), "errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Contains(t, rec.Body.String(), `errors_total{category="chart-render",component="charts"} 1`)
}
