// Package metrics exposes Prometheus collectors for the article service.
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
	scrapeAttemptsTotal        *prometheus.CounterVec
	scrapeDurationSeconds      *prometheus.HistogramVec
	generationCallsTotal       *prometheus.CounterVec
	pipelineRequestsTotal      *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapeAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "articlr_scrape_attempts_total",
				Help: "Total scrape strategy attempts, labeled by site, strategy, and outcome.",
			},
			[]string{"site", "strategy", "outcome"},
		)

		scrapeDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "articlr_scrape_duration_seconds",
				Help:    "Histogram of scrape strategy latencies, labeled by strategy.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 45},
			},
			[]string{"strategy"},
		)

		generationCallsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "articlr_generation_calls_total",
				Help: "Total generative-service calls, labeled by phase and outcome.",
			},
			[]string{"phase", "outcome"},
		)

		pipelineRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "articlr_pipeline_requests_total",
				Help: "Total pipeline runs, labeled by terminal status.",
			},
			[]string{"status"},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60, 120},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
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
	return promhttp.Handler()
}

// ObserveScrape records one strategy attempt for a site.
func ObserveScrape(site, strategy, outcome string, duration time.Duration) {
	if scrapeAttemptsTotal == nil {
		return
	}
	scrapeAttemptsTotal.WithLabelValues(SanitizeSite(site), strategy, outcome).Inc()
	scrapeDurationSeconds.WithLabelValues(strategy).Observe(duration.Seconds())
}

// ObserveGeneration records one generative-service call for a pipeline phase.
func ObserveGeneration(phase, outcome string) {
	if generationCallsTotal == nil {
		return
	}
	generationCallsTotal.WithLabelValues(phase, outcome).Inc()
}

// ObservePipeline increments the pipeline counter for the given terminal status.
func ObservePipeline(status string) {
	if pipelineRequestsTotal == nil {
		return
	}
	pipelineRequestsTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
