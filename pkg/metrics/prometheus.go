// Package metrics provides Prometheus metrics for the report generation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Report lifecycle metrics
	reportsRequested  prometheus.Counter
	reportsCompleted  prometheus.Counter
	reportsFailed     *prometheus.CounterVec
	generationLatency prometheus.Histogram

	// Fingerprint cache metrics
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheErrors prometheus.Counter

	// AI backend metrics
	aiAttempts    prometheus.Counter
	aiRetries     prometheus.Counter
	aiFailures    prometheus.Counter
	aiCallLatency prometheus.Histogram

	// Admission metrics
	rateLimited    prometheus.Counter
	leaseConflicts prometheus.Counter

	// Operational health metrics
	queueSize    prometheus.Gauge
	workerCount  prometheus.Gauge
	totalReports prometheus.Gauge
	totalPlayers prometheus.Gauge

	// HTTP performance metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "passport",
		subsystem:        "reports",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.reportsRequested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "requested_total",
		Help:      "Total number of accepted report generation requests",
	})

	m.reportsCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "completed_total",
		Help:      "Total number of reports that reached completed status",
	})

	m.reportsFailed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "failed_total",
			Help:      "Total number of reports that reached failed status, by reason",
		},
		[]string{"reason"},
	)

	m.generationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "generation_latency_milliseconds",
		Help:      "End-to-end generation latency from accept to terminal status",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Total fingerprint cache hits (AI call avoided)",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_misses_total",
		Help:      "Total fingerprint cache misses",
	})

	m.cacheErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_errors_total",
		Help:      "Total cache backend failures (degraded to miss)",
	})

	m.aiAttempts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ai_attempts_total",
		Help:      "Total AI backend call attempts, including retries",
	})

	m.aiRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ai_retries_total",
		Help:      "Total AI backend retries after transient failures",
	})

	m.aiFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ai_failures_total",
		Help:      "Total AI backend calls that failed after retries were exhausted",
	})

	m.aiCallLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ai_call_latency_milliseconds",
		Help:      "Latency of individual AI backend attempts",
		Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	})

	m.rateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rate_limited_total",
		Help:      "Total generation requests rejected by the per-owner quota",
	})

	m.leaseConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "lease_conflicts_total",
		Help:      "Total generation requests that found an in-flight lease for the same fingerprint",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the generation job queue",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Current number of generation workers",
	})

	m.totalReports = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "total_reports",
		Help:      "Total number of report rows in the store",
	})

	m.totalPlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "total_players",
		Help:      "Total number of registered players",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordReportRequested increments the accepted generation requests counter.
func RecordReportRequested() {
	globalManager.reportsRequested.Inc()
}

// RecordReportCompleted increments the completed reports counter.
func RecordReportCompleted() {
	globalManager.reportsCompleted.Inc()
}

// RecordReportFailed increments the failed reports counter for a reason.
func RecordReportFailed(reason string) {
	globalManager.reportsFailed.WithLabelValues(reason).Inc()
}

// RecordGenerationLatency records end-to-end generation latency in milliseconds.
func RecordGenerationLatency(latencyMs float64) {
	globalManager.generationLatency.Observe(latencyMs)
}

// RecordCacheHit increments the fingerprint cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the fingerprint cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordCacheError increments the cache backend failure counter.
func RecordCacheError() {
	globalManager.cacheErrors.Inc()
}

// RecordAIAttempt increments the AI call attempt counter.
func RecordAIAttempt() {
	globalManager.aiAttempts.Inc()
}

// RecordAIRetry increments the AI retry counter.
func RecordAIRetry() {
	globalManager.aiRetries.Inc()
}

// RecordAIFailure increments the exhausted-retries counter.
func RecordAIFailure() {
	globalManager.aiFailures.Inc()
}

// RecordAICallLatency records the latency of a single AI attempt in milliseconds.
func RecordAICallLatency(latencyMs float64) {
	globalManager.aiCallLatency.Observe(latencyMs)
}

// RecordRateLimited increments the quota rejection counter.
func RecordRateLimited() {
	globalManager.rateLimited.Inc()
}

// RecordLeaseConflict increments the fingerprint lease conflict counter.
func RecordLeaseConflict() {
	globalManager.leaseConflicts.Inc()
}

// UpdateQueueSize sets the current generation queue size gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateWorkerCount sets the current worker count gauge.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateTotalReports sets the total report rows gauge.
func UpdateTotalReports(count int) {
	globalManager.totalReports.Set(float64(count))
}

// UpdateTotalPlayers sets the total players gauge.
func UpdateTotalPlayers(count int) {
	globalManager.totalPlayers.Set(float64(count))
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry used by the service.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
