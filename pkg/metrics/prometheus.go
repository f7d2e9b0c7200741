package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// Upstream GamePlan API
	upstreamRequests *prometheus.CounterVec
	upstreamRetries  *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	// Snapshot cache
	cacheLookups         *prometheus.CounterVec
	cacheInvalidations   prometheus.Counter
	cacheRefreshes       *prometheus.CounterVec
	cacheRefreshDuration prometheus.Histogram
	cacheAgeSeconds      prometheus.Gauge
	cacheRecords         *prometheus.GaugeVec

	// Queries and derived metrics
	queryLatency *prometheus.HistogramVec
	queryErrors  *prometheus.CounterVec
	riskFlags    *prometheus.GaugeVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram

	riskMu sync.Mutex
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager registered on the configured registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gamepulse",
		subsystem:        "dashboard",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpErrors = auto.NewCounterVec(
		m.counterOpts("http_errors_total", "HTTP error responses by endpoint and failure kind"),
		[]string{"endpoint", "kind"},
	)

	m.upstreamRequests = auto.NewCounterVec(
		m.counterOpts("upstream_requests_total", "Requests sent to the GamePlan API by collection and outcome"),
		[]string{"collection", "outcome"},
	)
	m.upstreamRetries = auto.NewCounterVec(
		m.counterOpts("upstream_retries_total", "Retries of transient GamePlan API failures"),
		[]string{"collection"},
	)
	m.upstreamLatency = auto.NewHistogramVec(
		m.histogramOpts("upstream_latency_milliseconds", "GamePlan API page latency in milliseconds", m.histogramBuckets),
		[]string{"collection"},
	)

	m.cacheLookups = auto.NewCounterVec(
		m.counterOpts("cache_lookups_total", "Snapshot cache lookups by result"),
		[]string{"result"},
	)
	m.cacheInvalidations = auto.NewCounter(
		m.counterOpts("cache_invalidations_total", "Manual snapshot cache invalidations"),
	)
	m.cacheRefreshes = auto.NewCounterVec(
		m.counterOpts("cache_refreshes_total", "Snapshot refreshes by outcome"),
		[]string{"outcome"},
	)
	m.cacheRefreshDuration = auto.NewHistogram(
		m.histogramOpts("cache_refresh_duration_milliseconds", "Full snapshot refresh duration in milliseconds", m.histogramBuckets),
	)
	m.cacheAgeSeconds = auto.NewGauge(
		m.gaugeOpts("cache_age_seconds", "Age of the cached snapshot in seconds"),
	)
	m.cacheRecords = auto.NewGaugeVec(
		m.gaugeOpts("cache_records", "Records held in the snapshot by collection"),
		[]string{"collection"},
	)

	m.queryLatency = auto.NewHistogramVec(
		m.histogramOpts("query_latency_milliseconds", "Query execution latency in milliseconds", m.histogramBuckets),
		[]string{"query"},
	)
	m.queryErrors = auto.NewCounterVec(
		m.counterOpts("query_errors_total", "Failed queries by query and failure kind"),
		[]string{"query", "kind"},
	)
	m.riskFlags = auto.NewGaugeVec(
		m.gaugeOpts("risk_flags", "Employees flagged by the last risk evaluation"),
		[]string{"type", "severity"},
	)

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutine_count", "Number of goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// RecordHTTPRequest counts one request and observes its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError counts an error response by failure kind.
func (m *Manager) RecordHTTPError(endpoint, kind string) {
	if !m.enabled {
		return
	}
	m.httpErrors.WithLabelValues(endpoint, kind).Inc()
}

// RecordUpstreamRequest counts one page request and its latency.
func (m *Manager) RecordUpstreamRequest(collection, outcome string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.upstreamRequests.WithLabelValues(collection, outcome).Inc()
	m.upstreamLatency.WithLabelValues(collection).Observe(latencyMs)
}

// RecordUpstreamRetry counts one retry for a collection.
func (m *Manager) RecordUpstreamRetry(collection string) {
	if !m.enabled {
		return
	}
	m.upstreamRetries.WithLabelValues(collection).Inc()
}

// RecordCacheLookup counts a cache lookup, hit or miss.
func (m *Manager) RecordCacheLookup(hit bool) {
	if !m.enabled {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordCacheInvalidation counts a manual invalidation.
func (m *Manager) RecordCacheInvalidation() {
	if !m.enabled {
		return
	}
	m.cacheInvalidations.Inc()
}

// RecordCacheRefresh counts a refresh and observes its duration.
func (m *Manager) RecordCacheRefresh(outcome string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.cacheRefreshes.WithLabelValues(outcome).Inc()
	m.cacheRefreshDuration.Observe(durationMs)
}

// UpdateCacheAge sets the snapshot age gauge.
func (m *Manager) UpdateCacheAge(seconds float64) {
	if !m.enabled {
		return
	}
	m.cacheAgeSeconds.Set(seconds)
}

// UpdateCacheRecords sets the record count of one collection.
func (m *Manager) UpdateCacheRecords(collection string, count int) {
	if !m.enabled {
		return
	}
	m.cacheRecords.WithLabelValues(collection).Set(float64(count))
}

// RecordQuery observes a query's latency and, when kind is non-empty, counts it as failed.
func (m *Manager) RecordQuery(query, kind string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.queryLatency.WithLabelValues(query).Observe(latencyMs)
	if kind != "" {
		m.queryErrors.WithLabelValues(query, kind).Inc()
	}
}

// UpdateRiskFlags replaces the risk gauges with counts keyed by type then severity.
func (m *Manager) UpdateRiskFlags(counts map[string]map[string]int) {
	if !m.enabled {
		return
	}
	m.riskMu.Lock()
	defer m.riskMu.Unlock()
	m.riskFlags.Reset()
	for riskType, bySeverity := range counts {
		for severity, n := range bySeverity {
			m.riskFlags.WithLabelValues(riskType, severity).Set(float64(n))
		}
	}
}

// UpdateSystem sets memory and goroutine gauges.
func (m *Manager) UpdateSystem(memoryBytes uint64, goroutines int) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(memoryBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
}

// RecordGCPause observes one GC pause in milliseconds.
func (m *Manager) RecordGCPause(pauseMs float64) {
	if !m.enabled {
		return
	}
	m.systemGCPauseTime.Observe(pauseMs)
}

// Package-level recorders delegate to the global manager.

// RecordHTTPRequest records an HTTP request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordHTTPError records an HTTP error on the global manager.
func RecordHTTPError(endpoint, kind string) {
	globalManager.RecordHTTPError(endpoint, kind)
}

// RecordUpstreamRequest records an upstream page request.
func RecordUpstreamRequest(collection, outcome string, latencyMs float64) {
	globalManager.RecordUpstreamRequest(collection, outcome, latencyMs)
}

// RecordUpstreamRetry records an upstream retry.
func RecordUpstreamRetry(collection string) {
	globalManager.RecordUpstreamRetry(collection)
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(hit bool) {
	globalManager.RecordCacheLookup(hit)
}

// RecordCacheInvalidation records a manual invalidation.
func RecordCacheInvalidation() {
	globalManager.RecordCacheInvalidation()
}

// RecordCacheRefresh records a snapshot refresh.
func RecordCacheRefresh(outcome string, durationMs float64) {
	globalManager.RecordCacheRefresh(outcome, durationMs)
}

// UpdateCacheAge sets the snapshot age.
func UpdateCacheAge(seconds float64) {
	globalManager.UpdateCacheAge(seconds)
}

// UpdateCacheRecords sets one collection's record count.
func UpdateCacheRecords(collection string, count int) {
	globalManager.UpdateCacheRecords(collection, count)
}

// RecordQuery records a query execution.
func RecordQuery(query, kind string, latencyMs float64) {
	globalManager.RecordQuery(query, kind, latencyMs)
}

// UpdateRiskFlags replaces the risk gauges.
func UpdateRiskFlags(counts map[string]map[string]int) {
	globalManager.UpdateRiskFlags(counts)
}

// UpdateSystem sets the system gauges.
func UpdateSystem(memoryBytes uint64, goroutines int) {
	globalManager.UpdateSystem(memoryBytes, goroutines)
}

// RecordGCPause records one GC pause.
func RecordGCPause(pauseMs float64) {
	globalManager.RecordGCPause(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
