// Package metrics provides Prometheus metrics for the rinkxg service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Source scanning
	sourceRows   prometheus.Counter
	sourceChunks prometheus.Counter

	// Surfaces
	rasterizations       *prometheus.CounterVec
	rasterizeDuration    *prometheus.HistogramVec
	baselineCache        *prometheus.CounterVec
	comparisons          *prometheus.CounterVec
	comparisonDuration   *prometheus.HistogramVec
	plotsRendered        *prometheus.CounterVec
	plotRenderDuration   prometheus.Histogram
	plotStoreOperations  *prometheus.CounterVec
	precomputeJobs       *prometheus.CounterVec
	precomputeLastUnix   prometheus.Gauge
	precomputeLastJobs   prometheus.Gauge
	jobsDuplicate        prometheus.Counter
	totalPlayers         prometheus.Gauge
	storeRows            prometheus.Gauge
	storeLoads           prometheus.Counter
	storeLoadDuration    prometheus.Histogram
	storeQueryLatency    prometheus.Histogram
	httpRequests         *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rinkxg",
		subsystem:        "engine",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one registration per collector
	m.sourceRows = m.counter("source_rows_scanned_total", "Rows read from the shot source")
	m.sourceChunks = m.counter("source_chunks_total", "Chunks read from the shot source")

	m.rasterizations = m.counterVec("rasterizations_total", "Surfaces computed, by subject kind and outcome", "kind", "outcome")
	m.rasterizeDuration = m.histogramVec("rasterize_duration_milliseconds", "Time to collect and rasterize one subset", "kind")
	m.baselineCache = m.counterVec("baseline_cache_total", "Baseline cache lookups by tier and result", "tier", "result")
	m.comparisons = m.counterVec("comparisons_total", "Comparison requests by mode and outcome", "mode", "outcome")
	m.comparisonDuration = m.histogramVec("comparison_duration_milliseconds", "End to end comparison latency", "mode")

	m.plotsRendered = m.counterVec("plots_rendered_total", "PNG renders by outcome", "outcome")
	m.plotRenderDuration = m.histogram("plot_render_duration_milliseconds", "Time to draw one plot", m.histogramBuckets)
	m.plotStoreOperations = m.counterVec("plot_store_operations_total", "Plot store calls by backend, operation and outcome", "backend", "op", "outcome")

	m.precomputeJobs = m.counterVec("precompute_jobs_total", "Precompute jobs by outcome", "outcome")
	m.precomputeLastUnix = m.gauge("precompute_last_unix", "Unix time of the last finished precompute run")
	m.precomputeLastJobs = m.gauge("precompute_last_jobs", "Jobs scheduled by the last precompute run")
	m.jobsDuplicate = m.counter("jobs_duplicate_total", "Precompute jobs dropped as duplicates")

	m.totalPlayers = m.gauge("total_players", "Distinct players in the source")
	m.storeRows = m.gauge("store_rows", "Rows held in the normalized shot store")
	m.storeLoads = m.counter("store_loads_total", "Completed loads into the normalized shot store")
	m.storeLoadDuration = m.histogram("store_load_duration_milliseconds", "Time to load the normalized shot store", m.histogramBuckets)
	m.storeQueryLatency = m.histogram("store_query_latency_milliseconds", "Store query latency",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")
	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and kind", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue fill ratio between 0 and 1")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Jobs enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Failed enqueue attempts")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Enqueue latency",
		[]float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50})

	m.workerCount = m.gauge("worker_count", "Configured workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently processing a job")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time spent per job", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Jobs that failed in a worker")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Live goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100})
}

// RecordSourceScan counts one chunk of rows read from the source.
func RecordSourceScan(rows int) {
	globalManager.sourceChunks.Inc()
	globalManager.sourceRows.Add(float64(rows))
}

// RecordRasterization counts one surface computation. kind is "player" or
// "baseline".
func RecordRasterization(kind, outcome string, durationMs float64) {
	globalManager.rasterizations.WithLabelValues(kind, outcome).Inc()
	globalManager.rasterizeDuration.WithLabelValues(kind).Observe(durationMs)
}

// RecordBaselineCache counts a baseline lookup against a cache tier.
func RecordBaselineCache(tier, result string) {
	globalManager.baselineCache.WithLabelValues(tier, result).Inc()
}

// RecordComparison counts a comparison request.
func RecordComparison(mode, outcome string, durationMs float64) {
	globalManager.comparisons.WithLabelValues(mode, outcome).Inc()
	globalManager.comparisonDuration.WithLabelValues(mode).Observe(durationMs)
}

// RecordPlotRender counts a PNG render.
func RecordPlotRender(outcome string, durationMs float64) {
	globalManager.plotsRendered.WithLabelValues(outcome).Inc()
	globalManager.plotRenderDuration.Observe(durationMs)
}

// RecordPlotStore counts a plot store call.
func RecordPlotStore(backend, op, outcome string) {
	globalManager.plotStoreOperations.WithLabelValues(backend, op, outcome).Inc()
}

// RecordPrecomputeJob counts a finished precompute job.
func RecordPrecomputeJob(outcome string) {
	globalManager.precomputeJobs.WithLabelValues(outcome).Inc()
}

// UpdatePrecomputeRun records the end of a precompute run.
func UpdatePrecomputeRun(jobs int, unix float64) {
	globalManager.precomputeLastJobs.Set(float64(jobs))
	globalManager.precomputeLastUnix.Set(unix)
}

// RecordJobDuplicate counts a job dropped by the deduper.
func RecordJobDuplicate() {
	globalManager.jobsDuplicate.Inc()
}

// UpdateTotalPlayers sets the number of distinct players.
func UpdateTotalPlayers(count int) {
	globalManager.totalPlayers.Set(float64(count))
}

// UpdateStoreRows sets the number of rows in the normalized store.
func UpdateStoreRows(count int) {
	globalManager.storeRows.Set(float64(count))
}

// RecordStoreLoad counts a completed store load.
func RecordStoreLoad(durationMs float64) {
	globalManager.storeLoads.Inc()
	globalManager.storeLoadDuration.Observe(durationMs)
}

// RecordStoreQueryLatency records store query latency in milliseconds.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error raised by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint counts an error returned by an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateQueueSize sets the number of waiting jobs.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an enqueued job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue counts a dequeued job.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError counts a failed enqueue.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records enqueue latency in milliseconds.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// AddWorkerActive moves the active worker gauge by delta.
func AddWorkerActive(delta int) {
	globalManager.workerActiveCount.Add(float64(delta))
}

// RecordWorkerProcessingLatency records time spent on one job.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed job.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
