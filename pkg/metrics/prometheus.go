// Package metrics provides Prometheus metrics for the jornet leaderboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes recorded against the submissions counter.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeNoOp      = "noop" // acknowledged but not an improvement (keep-best)
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Submission pipeline
	submissionsTotal       *prometheus.CounterVec
	submissionStageLatency *prometheus.HistogramVec
	storageRetriesTotal    prometheus.Counter

	// Rank index
	rankIndexSize          *prometheus.GaugeVec
	rankIndexUpdateLatency prometheus.Histogram
	rankIndexQueryLatency  prometheus.Histogram

	// Rebuild pipeline
	rebuildsTotal    prometheus.Counter
	rebuildDuration  prometheus.Histogram
	rebuildQueueSize prometheus.Gauge

	// Registry scale
	leaderboardsTotal prometheus.Gauge
	playersTotal      prometheus.Gauge

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorsByComponent *prometheus.CounterVec

	// Runtime health
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global manager on a custom registry so default Go collectors stay out.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "jornet",
		subsystem:        "leaderboard",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.submissionsTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "submissions_total",
			Help:      "Total number of score submissions by outcome and rejection reason",
		},
		[]string{"outcome", "reason"},
	)

	m.submissionStageLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "submission_stage_latency_milliseconds",
			Help:      "Latency of submission pipeline stages in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"stage"},
	)

	m.storageRetriesTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "storage_retries_total",
		Help:      "Total number of score store retries after transient failures",
	})

	m.rankIndexSize = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rank_index_size",
			Help:      "Number of ranked players per leaderboard",
		},
		[]string{"leaderboard"},
	)

	m.rankIndexUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rank_index_update_latency_milliseconds",
		Help:      "Rank index upsert latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.rankIndexQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rank_index_query_latency_milliseconds",
		Help:      "Rank index read latency (top/rank/around) in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.rebuildsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "index_rebuilds_total",
		Help:      "Total number of rank index rebuilds from the score store",
	})

	m.rebuildDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "index_rebuild_duration_milliseconds",
		Help:      "Rank index rebuild duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.rebuildQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rebuild_queue_size",
		Help:      "Current number of queued rank index rebuild jobs",
	})

	m.leaderboardsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboards_total",
		Help:      "Number of provisioned leaderboards (excluding soft-deleted)",
	})

	m.playersTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "players_total",
		Help:      "Players registered since the service started",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint, method and status code",
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

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_total",
			Help:      "Total errors by component and error type",
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current heap allocation in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_milliseconds",
		Help:      "Average garbage collection pause time in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// RecordSubmission records a submission outcome. reason is empty for
// accepted/duplicate/noop outcomes.
func RecordSubmission(outcome, reason string) {
	globalManager.submissionsTotal.WithLabelValues(outcome, reason).Inc()
}

// RecordSubmissionStageLatency records the latency of a pipeline stage.
func RecordSubmissionStageLatency(stage string, latencyMs float64) {
	globalManager.submissionStageLatency.WithLabelValues(stage).Observe(latencyMs)
}

// RecordStorageRetry increments the storage retry counter.
func RecordStorageRetry() {
	globalManager.storageRetriesTotal.Inc()
}

// UpdateRankIndexSize sets the ranked player count for a leaderboard.
func UpdateRankIndexSize(leaderboardID string, size int) {
	globalManager.rankIndexSize.WithLabelValues(leaderboardID).Set(float64(size))
}

// RecordRankIndexUpdateLatency records index upsert latency.
func RecordRankIndexUpdateLatency(latencyMs float64) {
	globalManager.rankIndexUpdateLatency.Observe(latencyMs)
}

// RecordRankIndexQueryLatency records index read latency.
func RecordRankIndexQueryLatency(latencyMs float64) {
	globalManager.rankIndexQueryLatency.Observe(latencyMs)
}

// RecordRebuild records a completed rank index rebuild.
func RecordRebuild(durationMs float64) {
	globalManager.rebuildsTotal.Inc()
	globalManager.rebuildDuration.Observe(durationMs)
}

// UpdateRebuildQueueSize sets the rebuild queue depth.
func UpdateRebuildQueueSize(size int) {
	globalManager.rebuildQueueSize.Set(float64(size))
}

// UpdateLeaderboardsTotal sets the provisioned leaderboard count.
func UpdateLeaderboardsTotal(count int) {
	globalManager.leaderboardsTotal.Set(float64(count))
}

// UpdatePlayersTotal sets the registered player count.
func UpdatePlayersTotal(count int) {
	globalManager.playersTotal.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the current heap allocation.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the current goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause sample.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
