// Package metrics exposes Prometheus collectors for the search cache.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanka_requests_total",
			Help: "Total number of Kanka API requests, labeled by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	apiRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kanka_request_duration_seconds",
			Help:    "Histogram of Kanka API request latencies, labeled by endpoint.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		},
		[]string{"endpoint"},
	)

	categoryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanka_category_failures_total",
			Help: "Total number of category listings skipped during a crawl, labeled by category.",
		},
		[]string{"category"},
	)

	refreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanka_refresh_total",
			Help: "Total number of cache rebuilds, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	refreshDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kanka_refresh_duration_seconds",
			Help:    "Histogram of full cache rebuild durations.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	cacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kanka_cache_entries",
			Help: "Number of entries in the most recently loaded or built cache.",
		},
	)

	apiRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanka_request_retries_total",
			Help: "Total number of Kanka API calls attempted again after a failure.",
		},
		[]string{"endpoint"},
	)

	mergeCollisionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kanka_merge_collisions_total",
			Help: "Total number of display names overwritten while merging campaigns.",
		},
	)

	activeCrawls = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kanka_active_campaign_crawls",
			Help: "Number of campaign crawls currently in flight.",
		},
	)

	rateLimitDelaysSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kanka_rate_limit_delays_seconds",
			Help:    "Histogram of rate limit wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"host"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAPIRequest records one Kanka API call.
func ObserveAPIRequest(endpoint, outcome string, duration time.Duration) {
	apiRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	apiRequestDurationSeconds.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ObserveAPIRetry counts a retried Kanka API call.
func ObserveAPIRetry(endpoint string) {
	apiRetriesTotal.WithLabelValues(endpoint).Inc()
}

// ObserveCategoryFailure counts a skipped category listing.
func ObserveCategoryFailure(category string) {
	categoryFailuresTotal.WithLabelValues(category).Inc()
}

// ObserveRefresh records a finished cache rebuild.
func ObserveRefresh(outcome string, duration time.Duration) {
	refreshTotal.WithLabelValues(outcome).Inc()
	refreshDurationSeconds.Observe(duration.Seconds())
}

// SetCacheEntries publishes the size of the current cache.
func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}

// AddMergeCollisions counts display names lost to last-write-wins merging.
func AddMergeCollisions(n int) {
	if n > 0 {
		mergeCollisionsTotal.Add(float64(n))
	}
}

// IncActiveCrawls increments the in-flight campaign crawl gauge.
func IncActiveCrawls() {
	activeCrawls.Inc()
}

// DecActiveCrawls decrements the in-flight campaign crawl gauge.
func DecActiveCrawls() {
	activeCrawls.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	rateLimitDelaysSeconds.WithLabelValues(host).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
