// Package metrics exposes Prometheus collectors for the crawl engine and its
// HTTP surface.
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

// Task outcomes recorded by ObserveTask.
const (
	OutcomeFetched       = "fetched"
	OutcomeRejected      = "rejected"
	OutcomeDuplicate     = "duplicate"
	OutcomeFetchFailed   = "fetch_failed"
	OutcomeExtractFailed = "extract_failed"
	OutcomePanic         = "panic"
)

var (
	tasksSubmittedTotal        prometheus.Counter
	tasksCompletedTotal        prometheus.Counter
	taskOutcomesTotal          *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	activeWorkers              prometheus.Gauge
	crawlsTotal                *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitedTotal           prometheus.Counter

	once sync.Once
)

// Init registers the collectors with the default registry. It is safe to call
// multiple times; every Observe helper calls it.
func Init() {
	once.Do(func() {
		tasksSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "sitesoft_tasks_submitted_total",
			Help: "Total number of crawl tasks submitted to a frontier.",
		})
		tasksCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "sitesoft_tasks_completed_total",
			Help: "Total number of crawl tasks marked done.",
		})
		taskOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitesoft_task_outcomes_total",
				Help: "Crawl tasks by outcome.",
			},
			[]string{"outcome"},
		)
		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitesoft_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by site.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"site"},
		)
		activeWorkers = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sitesoft_active_workers",
			Help: "Number of workers currently processing a task.",
		})
		crawlsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitesoft_crawls_total",
				Help: "Total number of crawl invocations, labeled by status.",
			},
			[]string{"status"},
		)
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitesoft_http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)
		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitesoft_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120},
			},
			[]string{"method", "route"},
		)
		rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "sitesoft_rate_limited_total",
			Help: "Crawl requests rejected by admission control.",
		})
	})
}

// SanitizeSite extracts a lowercase hostname from a URL.
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

// ObserveSubmit counts one task submission.
func ObserveSubmit() {
	Init()
	tasksSubmittedTotal.Inc()
}

// ObserveDone counts one task completion.
func ObserveDone() {
	Init()
	tasksCompletedTotal.Inc()
}

// ObserveTask counts a task outcome.
func ObserveTask(outcome string) {
	Init()
	taskOutcomesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch records a fetch latency for the URL's site.
func ObserveFetch(rawURL string, duration time.Duration) {
	Init()
	fetchDurationSeconds.WithLabelValues(SanitizeSite(rawURL)).Observe(duration.Seconds())
}

// ObserveCrawl counts a finished crawl invocation.
func ObserveCrawl(status string) {
	Init()
	crawlsTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObserveRateLimited counts one crawl request rejected by admission control.
func ObserveRateLimited() {
	Init()
	rateLimitedTotal.Inc()
}
