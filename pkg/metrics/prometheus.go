// Package metrics provides Prometheus metrics for the highscore service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Submission outcomes used as label values.
const (
	OutcomeAccepted        = "accepted"
	OutcomeCapped          = "capped"
	OutcomeUnknownRef      = "unknown_reference"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeStorageFailure  = "storage_failure"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Scores
	submissions        *prometheus.CounterVec
	submissionLatency  prometheus.Histogram
	personalBestLookup *prometheus.CounterVec
	leaderboardQueries prometheus.Counter
	leaderboardRows    prometheus.Histogram

	// Store
	storeLatency *prometheus.HistogramVec
	storeRetries prometheus.Counter
	storeEntries prometheus.Gauge

	// Catalog
	catalogModes    prometheus.Gauge
	catalogContents prometheus.Gauge
	catalogRefresh  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out of /metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "highscore",
		subsystem:        "scores",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	if !m.enabled {
		// Collectors still exist so recording is safe; nothing is exported.
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval is how often system gauges should be sampled.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.submissions = auto.NewCounterVec(
		m.counterOpts("submissions_total", "Score submissions by outcome"),
		[]string{"outcome"},
	)
	m.submissionLatency = auto.NewHistogram(
		m.histogramOpts("submission_latency_milliseconds", "End-to-end submission latency in milliseconds", m.histogramBuckets),
	)
	m.personalBestLookup = auto.NewCounterVec(
		m.counterOpts("personal_best_lookups_total", "Personal best lookups by result"),
		[]string{"result"},
	)
	m.leaderboardQueries = auto.NewCounter(
		m.counterOpts("leaderboard_queries_total", "Leaderboards computed"),
	)
	m.leaderboardRows = auto.NewHistogram(
		m.histogramOpts("leaderboard_rows", "Rows returned per leaderboard", prometheus.ExponentialBuckets(1, 4, 10)),
	)

	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_operation_latency_milliseconds", "Score store operation latency in milliseconds", m.histogramBuckets),
		[]string{"op"},
	)
	m.storeRetries = auto.NewCounter(
		m.counterOpts("store_retries_total", "Transient store failures that were retried"),
	)
	m.storeEntries = auto.NewGauge(
		m.gaugeOpts("store_entries", "Live personal-best entries held by the store"),
	)

	m.catalogModes = auto.NewGauge(m.gaugeOpts("catalog_modes", "Game modes in the current catalog snapshot"))
	m.catalogContents = auto.NewGauge(m.gaugeOpts("catalog_contents", "Game contents in the current catalog snapshot"))
	m.catalogRefresh = auto.NewCounterVec(
		m.counterOpts("catalog_refresh_total", "Catalog refresh attempts by result"),
		[]string{"result"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// RecordSubmission counts a submission under the given outcome.
func RecordSubmission(outcome string) {
	globalManager.submissions.WithLabelValues(outcome).Inc()
}

// RecordSubmissionLatency records submission latency in milliseconds.
func RecordSubmissionLatency(latencyMs float64) {
	globalManager.submissionLatency.Observe(latencyMs)
}

// RecordPersonalBestLookup counts a personal best read; found=false means no entry.
func RecordPersonalBestLookup(found bool) {
	result := "found"
	if !found {
		result = "no_entry"
	}
	globalManager.personalBestLookup.WithLabelValues(result).Inc()
}

// RecordLeaderboard records one computed leaderboard and its size.
func RecordLeaderboard(rows int) {
	globalManager.leaderboardQueries.Inc()
	globalManager.leaderboardRows.Observe(float64(rows))
}

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreRetry counts a retried transient store failure.
func RecordStoreRetry() {
	globalManager.storeRetries.Inc()
}

// UpdateStoreEntries sets the number of live entries.
func UpdateStoreEntries(count int) {
	globalManager.storeEntries.Set(float64(count))
}

// UpdateCatalogSize sets the catalog size gauges.
func UpdateCatalogSize(modes, contents int) {
	globalManager.catalogModes.Set(float64(modes))
	globalManager.catalogContents.Set(float64(contents))
}

// RecordCatalogRefresh counts a catalog refresh attempt.
func RecordCatalogRefresh(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	globalManager.catalogRefresh.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// Init replaces the process-wide manager with one built from opts on a fresh
// registry. Call it once at startup, before anything records.
func Init(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(customRegistry))...)
}

// RefreshInterval is how often the process-wide manager wants system gauges sampled.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// GetRegistry returns the registry served on /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Since returns milliseconds elapsed since start, the unit every latency histogram uses.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
