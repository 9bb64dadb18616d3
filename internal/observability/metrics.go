// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Contract metrics
	OperationsTotal     *prometheus.CounterVec
	OperationErrors     *prometheus.CounterVec
	ExternalCallLatency *prometheus.HistogramVec

	// Supply and registry metrics
	TotalIssued   prometheus.Gauge
	OpenPositions prometheus.Gauge

	// Event log metrics
	EventsAppended *prometheus.CounterVec
	EventsArchived prometheus.Counter

	// Feed metrics
	FeedClients    prometheus.Gauge
	FeedBroadcasts prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulArchive prometheus.Gauge
	UptimeSeconds         prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "aw_token_ledger"
	}

	return &Metrics{
		// Contract metrics
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "contract",
			Name:      "operations_total",
			Help:      "Total number of contract operations by kind and status",
		}, []string{"operation", "status"}),
		OperationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "contract",
			Name:      "operation_errors_total",
			Help:      "Total number of failed contract operations by kind",
		}, []string{"operation"}),
		ExternalCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "amm",
			Name:      "external_call_latency_seconds",
			Help:      "External AMM call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call"}),

		// Supply and registry metrics
		TotalIssued: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "supply",
			Name:      "total_issued",
			Help:      "Total issued token units (float approximation)",
		}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "open_positions",
			Help:      "Number of open liquidity positions in the registry",
		}),

		// Event log metrics
		EventsAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "appended_total",
			Help:      "Total number of events appended to the log by kind",
		}, []string{"kind"}),
		EventsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "archived_total",
			Help:      "Total number of events archived to ClickHouse",
		}),

		// Feed metrics
		FeedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "clients",
			Help:      "Number of connected websocket feed clients",
		}),
		FeedBroadcasts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "broadcasts_total",
			Help:      "Total number of events broadcast to the feed",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulArchive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_archive_timestamp",
			Help:      "Unix timestamp of last successful archive run",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordOperation records a contract operation outcome.
func RecordOperation(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		DefaultMetrics.OperationErrors.WithLabelValues(operation).Inc()
	}
	DefaultMetrics.OperationsTotal.WithLabelValues(operation, status).Inc()
}

// ObserveExternalCall records latency of one external AMM call.
func ObserveExternalCall(call string, seconds float64) {
	DefaultMetrics.ExternalCallLatency.WithLabelValues(call).Observe(seconds)
}

// SetTotalIssued updates the issued supply gauge.
func SetTotalIssued(v float64) {
	DefaultMetrics.TotalIssued.Set(v)
}

// AddOpenPositions adjusts the open positions gauge.
func AddOpenPositions(delta int) {
	DefaultMetrics.OpenPositions.Add(float64(delta))
}

// RecordEventAppended increments the appended events counter.
func RecordEventAppended(kind string) {
	DefaultMetrics.EventsAppended.WithLabelValues(kind).Inc()
}

// RecordEventsArchived records a successful archive batch.
func RecordEventsArchived(count int, unixSeconds float64) {
	DefaultMetrics.EventsArchived.Add(float64(count))
	DefaultMetrics.LastSuccessfulArchive.Set(unixSeconds)
}

// SetFeedClients updates the connected feed clients gauge.
func SetFeedClients(n int) {
	DefaultMetrics.FeedClients.Set(float64(n))
}

// RecordFeedBroadcast increments the feed broadcast counter.
func RecordFeedBroadcast() {
	DefaultMetrics.FeedBroadcasts.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
