// Package metrics provides Prometheus metrics for the passtrack service.
package metrics

import (
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Session lifecycle
	sessionsStarted   prometheus.Counter
	sessionsCompleted prometheus.Counter
	sessionsDeleted   prometheus.Counter
	activeSession     prometheus.Gauge
	activePasses      prometheus.Gauge

	// Pass log
	passesLogged    *prometheus.CounterVec
	passesUndone    prometheus.Counter
	passesDuplicate prometheus.Counter
	passesRejected  *prometheus.CounterVec

	// Storage and history queries
	persistenceErrors *prometheus.CounterVec
	queryLatency      *prometheus.HistogramVec
	storedSessions    prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// DefaultBucketsMS are the latency histogram bounds in milliseconds.
var DefaultBucketsMS = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // read-only defaults

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it before serving metrics; it is not safe for concurrent use
// with the Record functions.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(slices.Clone(opts), WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "passtrack",
		subsystem:        "engine",
		histogramBuckets: DefaultBucketsMS,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.sessionsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_started_total",
		Help: "Total number of sessions started",
	})
	m.sessionsCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_completed_total",
		Help: "Total number of sessions completed and persisted",
	})
	m.sessionsDeleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_deleted_total",
		Help: "Total number of stored sessions deleted",
	})
	m.activeSession = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "active_session",
		Help: "1 while a session is in progress, 0 otherwise",
	})
	m.activePasses = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "active_session_passes",
		Help: "Number of passes in the active session log",
	})

	m.passesLogged = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "passes_logged_total",
		Help: "Total number of passes logged, by score",
	}, []string{"score"})
	m.passesUndone = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "passes_undone_total",
		Help: "Total number of passes removed by undo",
	})
	m.passesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "passes_duplicate_total",
		Help: "Total number of retried pass submissions ignored by request id",
	})
	m.passesRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "operations_rejected_total",
		Help: "Tracker operations rejected, by operation and reason",
	}, []string{"operation", "reason"})

	m.persistenceErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "persistence_errors_total",
		Help: "Storage failures, by operation",
	}, []string{"operation"})
	m.queryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "history_query_duration_milliseconds",
		Help:    "Latency of history queries in milliseconds, including the storage read",
		Buckets: m.histogramBuckets,
	}, []string{"query"})
	m.storedSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "stored_sessions",
		Help: "Number of completed sessions seen by the last full history read",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_errors_total",
		Help: "HTTP error responses by endpoint, method and error code",
	}, []string{"endpoint", "method", "error_type"})
}

// RecordSessionStarted increments the sessions started counter.
func RecordSessionStarted() { globalManager.sessionsStarted.Inc() }

// RecordSessionCompleted increments the sessions completed counter.
func RecordSessionCompleted() { globalManager.sessionsCompleted.Inc() }

// RecordSessionDeleted increments the sessions deleted counter.
func RecordSessionDeleted() { globalManager.sessionsDeleted.Inc() }

// UpdateActiveSession sets the active session gauge and its pass count.
func UpdateActiveSession(active bool, passes int) {
	if active {
		globalManager.activeSession.Set(1)
	} else {
		globalManager.activeSession.Set(0)
	}
	globalManager.activePasses.Set(float64(passes))
}

// RecordPassLogged counts a logged pass under its score label.
func RecordPassLogged(score string) { globalManager.passesLogged.WithLabelValues(score).Inc() }

// RecordPassUndone increments the undo counter.
func RecordPassUndone() { globalManager.passesUndone.Inc() }

// RecordPassDuplicate increments the duplicate submission counter.
func RecordPassDuplicate() { globalManager.passesDuplicate.Inc() }

// RecordRejected counts an operation the tracker refused.
func RecordRejected(operation, reason string) {
	globalManager.passesRejected.WithLabelValues(operation, reason).Inc()
}

// RecordPersistenceError counts a storage failure for operation.
func RecordPersistenceError(operation string) {
	globalManager.persistenceErrors.WithLabelValues(operation).Inc()
}

// RecordQueryLatency records how long a history query took in milliseconds.
func RecordQueryLatency(query string, latencyMs float64) {
	globalManager.queryLatency.WithLabelValues(query).Observe(latencyMs)
}

// UpdateStoredSessions sets the stored sessions gauge.
func UpdateStoredSessions(count int) { globalManager.storedSessions.Set(float64(count)) }

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint counts an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
