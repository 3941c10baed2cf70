// Package metrics provides Prometheus metrics for the dietlens service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Default bucket layouts. Latencies are in milliseconds; counts run from a
// single recipe to large exports.
var (
	defaultLatencyBuckets = prometheus.ExponentialBuckets(1, 2, 14) //nolint:gochecknoglobals,mnd // bucket layout
	defaultCountBuckets   = prometheus.ExponentialBuckets(1, 4, 10) //nolint:gochecknoglobals,mnd // bucket layout
)

// Manager manages all Prometheus metrics for the dietlens service.
type Manager struct {
	namespace        string
	subsystem        string
	latencyBuckets   []float64
	countBuckets     []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Analysis Metrics - What the endpoint is for
	analysesTotal   *prometheus.CounterVec
	analysisLatency prometheus.Histogram
	rowsLoaded      prometheus.Gauge
	rowsAnalyzed    prometheus.Histogram
	scatterPoints   prometheus.Histogram

	// Dataset Metrics - Storage fetches
	datasetFetchLatency *prometheus.HistogramVec
	datasetFetchErrors  *prometheus.CounterVec
	datasetBytes        prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
	processRSS           prometheus.Gauge
	processCPUPercent    prometheus.Gauge
}

// Global metrics manager instance.
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
		namespace:        "dietlens",
		subsystem:        "nutrition",
		latencyBuckets:   defaultLatencyBuckets,
		countBuckets:     defaultCountBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// RefreshInterval is how often callers should refresh gauge metrics.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether recording is active.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) name(n string) string { return m.metricPrefix + n }

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.analysesTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("analyses_total"),
			Help:        "Total number of analyses by outcome (success or error kind)",
			ConstLabels: labels,
		},
		[]string{"outcome"},
	)

	m.analysisLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("analysis_latency_milliseconds"),
		Help:        "Histogram of end-to-end analysis latency in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: labels,
	})

	m.rowsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("dataset_rows"),
		Help:        "Rows in the most recently loaded dataset",
		ConstLabels: labels,
	})

	m.rowsAnalyzed = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("rows_analyzed"),
		Help:        "Histogram of rows remaining after the diet filter",
		Buckets:     m.countBuckets,
		ConstLabels: labels,
	})

	m.scatterPoints = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("scatter_points"),
		Help:        "Histogram of scatter sample sizes",
		Buckets:     m.countBuckets,
		ConstLabels: labels,
	})

	m.datasetFetchLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("dataset_fetch_latency_milliseconds"),
			Help:        "Histogram of dataset fetch latency in milliseconds by backend",
			Buckets:     m.latencyBuckets,
			ConstLabels: labels,
		},
		[]string{"backend"},
	)

	m.datasetFetchErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("dataset_fetch_errors_total"),
			Help:        "Total number of failed dataset fetches by backend and error kind",
			ConstLabels: labels,
		},
		[]string{"backend", "error_type"},
	)

	m.datasetBytes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("dataset_bytes"),
		Help:        "Decoded size of the most recently fetched dataset",
		ConstLabels: labels,
	})

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of HTTP requests by endpoint, method and status",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "Histogram of HTTP request durations in milliseconds",
			Buckets:     m.latencyBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Error Metrics
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_component_total"),
			Help:        "Total number of errors by component and error type",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_endpoint_total"),
			Help:        "Total number of errors by endpoint, method and error type",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "Current heap memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Current number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "Histogram of garbage collection pause times in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: labels,
	})

	m.processRSS = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("process_resident_memory_bytes"),
		Help:        "Resident set size of the process in bytes",
		ConstLabels: labels,
	})

	m.processCPUPercent = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("process_cpu_percent"),
		Help:        "Process CPU usage since the previous refresh, in percent of one core",
		ConstLabels: labels,
	})
}

func active() bool {
	return globalManager != nil && globalManager.enabled
}

// RecordAnalysis counts an analysis outcome.
func RecordAnalysis(outcome string) {
	if active() {
		globalManager.analysesTotal.WithLabelValues(outcome).Inc()
	}
}

// RecordAnalysisLatency observes end-to-end analysis latency.
func RecordAnalysisLatency(latencyMs float64) {
	if active() {
		globalManager.analysisLatency.Observe(latencyMs)
	}
}

// UpdateDatasetRows sets the row count of the last loaded dataset.
func UpdateDatasetRows(count int) {
	if active() {
		globalManager.rowsLoaded.Set(float64(count))
	}
}

// RecordRowsAnalyzed observes the row count after filtering.
func RecordRowsAnalyzed(count int) {
	if active() {
		globalManager.rowsAnalyzed.Observe(float64(count))
	}
}

// RecordScatterPoints observes the scatter sample size.
func RecordScatterPoints(count int) {
	if active() {
		globalManager.scatterPoints.Observe(float64(count))
	}
}

// RecordDatasetFetch observes a successful fetch.
func RecordDatasetFetch(backend string, latencyMs float64, bytes int) {
	if active() {
		globalManager.datasetFetchLatency.WithLabelValues(backend).Observe(latencyMs)
		globalManager.datasetBytes.Set(float64(bytes))
	}
}

// RecordDatasetFetchError counts a failed fetch.
func RecordDatasetFetchError(backend, errorType string) {
	if active() {
		globalManager.datasetFetchErrors.WithLabelValues(backend, errorType).Inc()
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if active() {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if active() {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordHTTPStatus is a convenience for integer status codes.
func RecordHTTPStatus(endpoint, method string, status int, duration float64) {
	code := strconv.Itoa(status)
	RecordHTTPRequest(endpoint, method, code)
	RecordHTTPRequestDuration(endpoint, method, code, duration)
}

// RecordErrorByComponent counts an error raised inside a component.
func RecordErrorByComponent(component, errorType string) {
	if active() {
		globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByEndpoint counts an error returned by an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if active() {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the heap usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if active() {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	if active() {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime observes a GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	if active() {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// UpdateProcessUsage sets the resident memory and CPU gauges.
func UpdateProcessUsage(rssBytes uint64, cpuPercent float64) {
	if active() {
		globalManager.processRSS.Set(float64(rssBytes))
		globalManager.processCPUPercent.Set(cpuPercent)
	}
}

// RefreshInterval returns the global manager's gauge refresh interval.
func RefreshInterval() time.Duration {
	if globalManager == nil {
		return defaultRefreshInterval
	}
	return globalManager.refreshInterval
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
