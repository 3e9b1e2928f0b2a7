// Package metrics provides Prometheus metrics for the arena service.
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

// Manager manages all Prometheus metrics for the arena service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Competition lifecycle
	competitionsStarted   prometheus.Counter
	competitionsCompleted prometheus.Counter
	competitionsCancelled prometheus.Counter
	activeCompetitions    prometheus.Gauge

	// Rounds and matches
	roundsScored     prometheus.Counter
	roundForfeits    prometheus.Counter
	roundsErrored    prometheus.Counter
	matchesCompleted prometheus.Counter
	gradingLatency   prometheus.Histogram
	actionLatency    prometheus.Histogram

	// Rating / leaderboard
	ratingUpdates    prometheus.Counter
	duplicateMatches prometheus.Counter
	trackedAgents    prometheus.Gauge

	// Training-data pipeline
	pointsIngested  prometheus.Counter
	pointsDuplicate prometheus.Counter
	pointsRejected  *prometheus.CounterVec
	datasetsBuilt   prometheus.Counter
	datasetsReady   prometheus.Counter

	// Event bus
	busPublished prometheus.Counter
	busDropped   prometheus.Counter
	busDepth     prometheus.Gauge

	// Operator escalations
	operatorQueueDepth prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorsByComponent *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "arena",
		subsystem:        "competition",
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
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.competitionsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "competitions_started_total",
		Help:      "Total number of competitions transitioned to active",
	})

	m.competitionsCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "competitions_completed_total",
		Help:      "Total number of competitions completed",
	})

	m.competitionsCancelled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "competitions_cancelled_total",
		Help:      "Total number of competitions cancelled by operators",
	})

	m.activeCompetitions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_competitions",
		Help:      "Number of competitions currently running",
	})

	m.roundsScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_scored_total",
		Help:      "Total number of rounds scored",
	})

	m.roundForfeits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "round_forfeits_total",
		Help:      "Total number of per-participant round forfeits (deadline or retries exhausted)",
	})

	m.roundsErrored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_errored_total",
		Help:      "Total number of rounds marked errored and escalated",
	})

	m.matchesCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matches_completed_total",
		Help:      "Total number of matches with a recorded winner",
	})

	m.gradingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "grading_latency_milliseconds",
		Help:      "Histogram of action grading latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.actionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "action_latency_milliseconds",
		Help:      "Histogram of agent action round-trip latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.ratingUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rating_updates_total",
		Help:      "Total number of applied rating updates (two per match)",
	})

	m.duplicateMatches = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_match_events_total",
		Help:      "Total number of MatchCompleted redeliveries absorbed by dedupe",
	})

	m.trackedAgents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_agents",
		Help:      "Number of agents with a leaderboard entry",
	})

	m.pointsIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "training_points_ingested_total",
		Help:      "Total number of training data points accepted by the pipeline",
	})

	m.pointsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "training_points_duplicate_total",
		Help:      "Total number of duplicate training data points (natural-key dedupe)",
	})

	m.pointsRejected = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "training_points_rejected_total",
			Help:      "Total number of training data points failing a validation check",
		},
		[]string{"check"},
	)

	m.datasetsBuilt = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "datasets_built_total",
		Help:      "Total number of dataset builds",
	})

	m.datasetsReady = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "datasets_ready_total",
		Help:      "Total number of datasets marked ready for training",
	})

	m.busPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bus_events_published_total",
		Help:      "Total number of events published on the bus",
	})

	m.busDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bus_events_dropped_total",
		Help:      "Total number of events dropped due to backpressure",
	})

	m.busDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bus_depth",
		Help:      "Current number of undelivered events across partitions",
	})

	m.operatorQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "operator_queue_depth",
		Help:      "Number of escalations awaiting operator attention",
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

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_usage_bytes",
		Help:      "Current memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutine_count",
		Help:      "Current number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// RecordCompetitionStarted increments the competitions started counter.
func RecordCompetitionStarted() {
	globalManager.competitionsStarted.Inc()
}

// RecordCompetitionCompleted increments the competitions completed counter.
func RecordCompetitionCompleted() {
	globalManager.competitionsCompleted.Inc()
}

// RecordCompetitionCancelled increments the competitions cancelled counter.
func RecordCompetitionCancelled() {
	globalManager.competitionsCancelled.Inc()
}

// UpdateActiveCompetitions sets the active competitions gauge.
func UpdateActiveCompetitions(count int) {
	globalManager.activeCompetitions.Set(float64(count))
}

// RecordRoundScored increments the rounds scored counter.
func RecordRoundScored() {
	globalManager.roundsScored.Inc()
}

// RecordRoundForfeit increments the round forfeits counter.
func RecordRoundForfeit() {
	globalManager.roundForfeits.Inc()
}

// RecordRoundErrored increments the errored rounds counter.
func RecordRoundErrored() {
	globalManager.roundsErrored.Inc()
}

// RecordMatchCompleted increments the matches completed counter.
func RecordMatchCompleted() {
	globalManager.matchesCompleted.Inc()
}

// RecordGradingLatency records grading latency in milliseconds.
func RecordGradingLatency(latencyMs float64) {
	globalManager.gradingLatency.Observe(latencyMs)
}

// RecordActionLatency records agent action latency in milliseconds.
func RecordActionLatency(latencyMs float64) {
	globalManager.actionLatency.Observe(latencyMs)
}

// RecordRatingUpdate increments the rating updates counter.
func RecordRatingUpdate() {
	globalManager.ratingUpdates.Inc()
}

// RecordDuplicateMatch increments the duplicate match events counter.
func RecordDuplicateMatch() {
	globalManager.duplicateMatches.Inc()
}

// UpdateTrackedAgents sets the tracked agents gauge.
func UpdateTrackedAgents(count int) {
	globalManager.trackedAgents.Set(float64(count))
}

// RecordPointIngested increments the points ingested counter.
func RecordPointIngested() {
	globalManager.pointsIngested.Inc()
}

// RecordPointDuplicate increments the duplicate points counter.
func RecordPointDuplicate() {
	globalManager.pointsDuplicate.Inc()
}

// RecordPointRejected increments the rejected points counter for a check.
func RecordPointRejected(check string) {
	globalManager.pointsRejected.WithLabelValues(check).Inc()
}

// RecordDatasetBuilt increments the datasets built counter.
func RecordDatasetBuilt() {
	globalManager.datasetsBuilt.Inc()
}

// RecordDatasetReady increments the ready datasets counter.
func RecordDatasetReady() {
	globalManager.datasetsReady.Inc()
}

// RecordBusPublished increments the bus published counter.
func RecordBusPublished() {
	globalManager.busPublished.Inc()
}

// RecordBusDropped increments the bus dropped counter.
func RecordBusDropped() {
	globalManager.busDropped.Inc()
}

// UpdateBusDepth sets the bus depth gauge.
func UpdateBusDepth(depth int) {
	globalManager.busDepth.Set(float64(depth))
}

// UpdateOperatorQueueDepth sets the operator queue depth gauge.
func UpdateOperatorQueueDepth(depth int) {
	globalManager.operatorQueueDepth.Set(float64(depth))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent increments the per-component error counter.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records a GC pause observation in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// Registry returns the custom registry used by the global manager.
func Registry() *prometheus.Registry {
	return customRegistry
}
