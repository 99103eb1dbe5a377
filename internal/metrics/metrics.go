// Package metrics exposes Prometheus collectors for the rank sync service.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequestsTotal     *prometheus.CounterVec
	apiRetriesTotal      prometheus.Counter
	apiFailuresTotal     prometheus.Counter
	cacheHitsTotal       prometheus.Counter
	cacheMissesTotal     prometheus.Counter
	sheetWritesTotal     *prometheus.CounterVec
	cellsChangedTotal    *prometheus.CounterVec
	throttleDelaySeconds prometheus.Histogram
	httpRequestsTotal    *prometheus.CounterVec
	httpDurationSeconds  *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		apiRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ranksync_api_requests_total",
				Help: "Total ranking API requests, labeled by HTTP status code.",
			},
			[]string{"code"},
		)

		apiRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ranksync_api_retries_total",
				Help: "Total ranking API attempts that were retried.",
			},
		)

		apiFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ranksync_api_failures_total",
				Help: "Total keyword lookups that exhausted their retries.",
			},
		)

		cacheHitsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ranksync_cache_hits_total",
				Help: "Total keyword/domain lookups served from the result cache.",
			},
		)

		cacheMissesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ranksync_cache_misses_total",
				Help: "Total keyword/domain lookups that missed the result cache.",
			},
		)

		sheetWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ranksync_sheet_writes_total",
				Help: "Total worksheet write passes, labeled by mode (bulk or cells).",
			},
			[]string{"mode"},
		)

		cellsChangedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ranksync_cells_changed_total",
				Help: "Total worksheet cells whose label changed, labeled by domain.",
			},
			[]string{"domain"},
		)

		throttleDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ranksync_throttle_delay_seconds",
				Help:    "Histogram of pacing waits before ranking API calls.",
				Buckets: []float64{0.05, 0.1, 0.15, 0.25, 0.5, 1, 2},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ranksync_http_requests_total",
				Help: "Total HTTP requests served, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ranksync_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// IncAPIRequest counts one ranking API response by status code.
func IncAPIRequest(code int) {
	if apiRequestsTotal == nil {
		return
	}
	apiRequestsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
}

// IncAPIRetry counts one retried ranking API attempt.
func IncAPIRetry() {
	if apiRetriesTotal == nil {
		return
	}
	apiRetriesTotal.Inc()
}

// IncAPIFailure counts one keyword lookup that exhausted its retries.
func IncAPIFailure() {
	if apiFailuresTotal == nil {
		return
	}
	apiFailuresTotal.Inc()
}

// IncCacheHit counts one result served from the cache.
func IncCacheHit() {
	if cacheHitsTotal == nil {
		return
	}
	cacheHitsTotal.Inc()
}

// IncCacheMiss counts one result that required an API call.
func IncCacheMiss() {
	if cacheMissesTotal == nil {
		return
	}
	cacheMissesTotal.Inc()
}

// IncSheetWrite counts one worksheet write pass by mode.
func IncSheetWrite(mode string) {
	if sheetWritesTotal == nil {
		return
	}
	sheetWritesTotal.WithLabelValues(mode).Inc()
}

// AddCellsChanged counts changed cells for a domain's sync.
func AddCellsChanged(domain string, n int) {
	if cellsChangedTotal == nil || n <= 0 {
		return
	}
	cellsChangedTotal.WithLabelValues(domain).Add(float64(n))
}

// ObserveThrottleDelay records a pacing wait before an API call.
func ObserveThrottleDelay(d time.Duration) {
	if throttleDelaySeconds == nil || d < 0 {
		return
	}
	throttleDelaySeconds.Observe(d.Seconds())
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	if httpRequestsTotal == nil || httpDurationSeconds == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpDurationSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}
