// Package metrics exposes Prometheus collectors for the page analyzer.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	pageChecksTotal            *prometheus.CounterVec
	pageFetchDurationSeconds   *prometheus.HistogramVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times; every Observe helper calls it.
func Init() {
	once.Do(func() {
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

		pageChecksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "page_checks_total",
				Help: "Total number of page checks, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		pageFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "page_fetch_duration_seconds",
				Help:    "Histogram of outbound page fetch latencies, labeled by site.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5},
			},
			[]string{"site"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "page_check_rate_limit_delays_seconds",
				Help:    "Histogram of per-site rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5},
			},
			[]string{"site"},
		)
	})
}

// SanitizeSite extracts a lowercase hostname for use as a label.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveHTTPRequest records an inbound request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveCheck counts a finished check attempt.
func ObserveCheck(outcome string) {
	Init()
	pageChecksTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch records how long an outbound fetch took.
func ObserveFetch(site string, duration time.Duration) {
	Init()
	pageFetchDurationSeconds.WithLabelValues(SanitizeSite(site)).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(site string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(site).Observe(duration.Seconds())
}
