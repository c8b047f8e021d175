// Package metrics provides Prometheus metrics for the pagecue presenter.
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

// renderBuckets covers sub-millisecond cache-sized pages up to multi-second
// renders of heavy documents.
var renderBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000} //nolint:gochecknoglobals // bucket layout

// Manager manages all Prometheus metrics for the presenter.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Trigger engine
	ticks          prometheus.Counter
	tickLatency    prometheus.Histogram
	markersFired   prometheus.Counter
	pageAdvances   *prometheus.CounterVec
	markersTotal   prometheus.Gauge
	playbackSecond prometheus.Gauge

	// Rasterizer
	renderLatency prometheus.Histogram
	renderErrors  prometheus.Counter

	// Page raster cache
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheEvictions     prometheus.Counter
	cacheEntries       prometheus.Gauge
	cacheInvalidations *prometheus.CounterVec

	// Documents and persistence
	documentLoads      *prometheus.CounterVec
	currentPage        prometheus.Gauge
	persistenceErrors  *prometheus.CounterVec
	markerLinesDropped prometheus.Counter

	// Page event feeds
	feedSubscribers prometheus.Gauge
	feedPublished   prometheus.Counter
	feedDropped     *prometheus.CounterVec

	// HTTP control surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors by component
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pagecue",
		subsystem:        "presenter",
		histogramBuckets: renderBuckets,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval reports how often gauges should be refreshed by callers.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.ticks = m.counter("ticks_total", "Clock ticks evaluated against the marker set")
	m.tickLatency = m.histogram("tick_latency_milliseconds", "Time spent in one tick including page-advance side effects")
	m.markersFired = m.counter("markers_fired_total", "Markers that transitioned from armed to fired")
	m.pageAdvances = m.counterVec("page_commands_total", "Navigation commands handled", "command", "result")
	m.markersTotal = m.gauge("markers", "Markers currently in the store")
	m.playbackSecond = m.gauge("playback_position_seconds", "Last observed playback position")

	m.renderLatency = m.histogram("render_latency_milliseconds", "Page rasterization latency")
	m.renderErrors = m.counter("render_errors_total", "Page renders that failed")

	m.cacheHits = m.counter("cache_hits_total", "Page raster cache hits")
	m.cacheMisses = m.counter("cache_misses_total", "Page raster cache misses")
	m.cacheEvictions = m.counter("cache_evictions_total", "Entries evicted by the bounded page raster cache")
	m.cacheEntries = m.gauge("cache_entries", "Entries held by the page raster cache")
	m.cacheInvalidations = m.counterVec("cache_invalidations_total", "Wholesale cache invalidations", "reason")

	m.documentLoads = m.counterVec("document_loads_total", "Document load attempts", "result")
	m.currentPage = m.gauge("current_page", "Zero-based index of the displayed page")
	m.persistenceErrors = m.counterVec("persistence_errors_total", "Marker file failures", "op")
	m.markerLinesDropped = m.counter("marker_lines_dropped_total", "Marker file lines dropped as out of range")

	m.feedSubscribers = m.gauge("feed_subscribers", "Open page event feeds")
	m.feedPublished = m.counter("feed_events_published_total", "Page events queued to feeds")
	m.feedDropped = m.counterVec("feed_events_dropped_total", "Page events not queued", "reason")

	m.httpRequests = promauto.With(m.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = m.counterVec("errors_total", "Recovered errors by component and kind", "component", "kind")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes in use")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// Trigger engine.

// RecordTick counts one evaluated tick and its latency.
func RecordTick(latencyMs float64) {
	globalManager.ticks.Inc()
	globalManager.tickLatency.Observe(latencyMs)
}

// RecordMarkerFired counts one armed-to-fired transition.
func RecordMarkerFired() {
	globalManager.markersFired.Inc()
}

// RecordPageCommand counts a navigation command and whether it moved the page.
func RecordPageCommand(command, result string) {
	globalManager.pageAdvances.WithLabelValues(command, result).Inc()
}

// UpdateMarkerCount sets the number of markers in the store.
func UpdateMarkerCount(count int) {
	globalManager.markersTotal.Set(float64(count))
}

// UpdatePlaybackPosition sets the last observed playback position.
func UpdatePlaybackPosition(seconds float64) {
	globalManager.playbackSecond.Set(seconds)
}

// Rasterizer.

// RecordRenderLatency records one page render.
func RecordRenderLatency(latencyMs float64) {
	globalManager.renderLatency.Observe(latencyMs)
}

// RecordRenderError counts a failed page render.
func RecordRenderError() {
	globalManager.renderErrors.Inc()
	globalManager.errorsByComponent.WithLabelValues("rasterizer", "render").Inc()
}

// Page raster cache.

// RecordCacheHit counts a cache hit.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss counts a cache miss.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordCacheEviction counts an LRU eviction.
func RecordCacheEviction() {
	globalManager.cacheEvictions.Inc()
}

// UpdateCacheEntries sets the number of cached bitmaps.
func UpdateCacheEntries(count int) {
	globalManager.cacheEntries.Set(float64(count))
}

// RecordCacheInvalidation counts a wholesale invalidation.
func RecordCacheInvalidation(reason string) {
	globalManager.cacheInvalidations.WithLabelValues(reason).Inc()
}

// Documents and persistence.

// RecordDocumentLoad counts a document load attempt ("ok" or "error").
func RecordDocumentLoad(result string) {
	globalManager.documentLoads.WithLabelValues(result).Inc()
	if result != "ok" {
		globalManager.errorsByComponent.WithLabelValues("document", "load").Inc()
	}
}

// UpdateCurrentPage sets the displayed page index.
func UpdateCurrentPage(index int) {
	globalManager.currentPage.Set(float64(index))
}

// RecordPersistenceError counts a failed marker file operation ("save", "load", "watch").
func RecordPersistenceError(op string) {
	globalManager.persistenceErrors.WithLabelValues(op).Inc()
	globalManager.errorsByComponent.WithLabelValues("persistence", op).Inc()
}

// RecordMarkerLinesDropped counts marker file lines discarded on load.
func RecordMarkerLinesDropped(n int) {
	globalManager.markerLinesDropped.Add(float64(n))
}

// Page event feeds.

// UpdateFeedSubscribers sets the number of open feeds.
func UpdateFeedSubscribers(count int) {
	globalManager.feedSubscribers.Set(float64(count))
}

// RecordFeedPublished counts one event queued to a feed.
func RecordFeedPublished() {
	globalManager.feedPublished.Inc()
}

// RecordFeedDropped counts one event a feed could not take.
func RecordFeedDropped(reason string) {
	globalManager.feedDropped.WithLabelValues(reason).Inc()
}

// HTTP.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records a recovered error.
func RecordErrorByComponent(component, kind string) {
	globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
