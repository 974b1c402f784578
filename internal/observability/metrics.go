// Package observability exposes Prometheus metrics for the gateway and the
// session controllers.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of legacy API calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"endpoint"},
	)

	upstreamErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_errors_total",
			Help: "Legacy API call failures by endpoint and kind.",
		},
		[]string{"endpoint", "kind"},
	)

	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_total",
			Help: "Dispatched query outcomes per logical channel.",
		},
		[]string{"channel", "outcome"},
	)

	debounceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autocomplete_debounce_total",
			Help: "Autocomplete debounce timer outcomes.",
		},
		[]string{"outcome"},
	)

	cacheOpSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_op_duration_seconds",
			Help:    "Duration of cache operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "ok"},
	)

	cacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Cache results by outcome.",
		},
		[]string{"outcome"},
	)

	invalidationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invalidation_events_total",
			Help: "Processed invalidation events by op and outcome.",
		},
		[]string{"op", "outcome"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(endpoint string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(endpoint).Observe(durationSeconds)
}

func IncUpstreamError(endpoint, kind string) {
	upstreamErrorsTotal.WithLabelValues(endpoint, kind).Inc()
}

// IncDispatch records the outcome of one dispatched query on a logical
// channel ("list", "points", "autocomplete"). Outcomes: applied,
// dropped_stale, error, local_select.
func IncDispatch(channel, outcome string) {
	dispatchTotal.WithLabelValues(channel, outcome).Inc()
}

func IncDebounce(outcome string) {
	debounceTotal.WithLabelValues(outcome).Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	ok := "true"
	if err != nil {
		ok = "false"
	}
	cacheOpSeconds.WithLabelValues(op, ok).Observe(durationSeconds)
}

func IncCacheHit()  { cacheResults.WithLabelValues("hit").Inc() }
func IncCacheMiss() { cacheResults.WithLabelValues("miss").Inc() }

func IncInvalidation(op, outcome string) {
	invalidationTotal.WithLabelValues(op, outcome).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
