// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the indexer.
type Metrics struct {
	// Handler metrics
	EventsHandled  *prometheus.CounterVec
	EventsFailed   *prometheus.CounterVec
	EventsSkipped  prometheus.Counter
	HandlerLatency *prometheus.HistogramVec

	// Chain metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCErrors      *prometheus.CounterVec
	HeadBlock      prometheus.Gauge
	WSReconnects   prometheus.Counter

	// Runtime metrics
	CommittedBlock   prometheus.Gauge
	TrackedAddresses prometheus.Gauge
	BatchDocuments   prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Verification metrics
	VerificationRuns       *prometheus.CounterVec
	VerificationViolations *prometheus.GaugeVec

	// Health metrics
	LastSuccessfulCommit prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "core_indexer"
	}

	return &Metrics{
		EventsHandled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handlers",
			Name:      "events_handled_total",
			Help:      "Total number of events applied by handler",
		}, []string{"handler"}),
		EventsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handlers",
			Name:      "events_failed_total",
			Help:      "Total number of events whose handler aborted, by handler and reason",
		}, []string{"handler", "reason"}),
		EventsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handlers",
			Name:      "events_skipped_total",
			Help:      "Total number of logs with no matching handler",
		}),
		HandlerLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "handlers",
			Name:      "latency_seconds",
			Help:      "Handler latency in seconds, including contract reads",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_latency_seconds",
			Help:      "JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_errors_total",
			Help:      "Total number of failed JSON-RPC calls by method",
		}, []string{"method"}),
		HeadBlock: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "head_block",
			Help:      "Latest block number reported by the node",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "ws_reconnects_total",
			Help:      "Total number of websocket reconnects",
		}),

		CommittedBlock: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runtime",
			Name:      "committed_block",
			Help:      "Last block committed to the entity store",
		}),
		TrackedAddresses: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runtime",
			Name:      "tracked_addresses",
			Help:      "Number of contract addresses whose logs are indexed",
		}),
		BatchDocuments: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "runtime",
			Name:      "batch_documents",
			Help:      "Number of entity documents written per commit",
			Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000},
		}),

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

		VerificationRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "runs_total",
			Help:      "Total number of invariant verification runs by status",
		}, []string{"status"}),
		VerificationViolations: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "violations",
			Help:      "Violations found by the last verification run, by property",
		}, []string{"property"}),

		LastSuccessfulCommit: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_commit_timestamp",
			Help:      "Unix timestamp of last successful commit",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventHandled records a successfully applied event.
func RecordEventHandled(handler string, seconds float64) {
	DefaultMetrics.EventsHandled.WithLabelValues(handler).Inc()
	DefaultMetrics.HandlerLatency.WithLabelValues(handler).Observe(seconds)
}

// RecordEventFailed records an event whose handler aborted.
func RecordEventFailed(handler, reason string) {
	DefaultMetrics.EventsFailed.WithLabelValues(handler, reason).Inc()
}

// RecordEventSkipped records a log nothing handles.
func RecordEventSkipped() {
	DefaultMetrics.EventsSkipped.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCError records a failed RPC call.
func RecordRPCError(method string) {
	DefaultMetrics.RPCErrors.WithLabelValues(method).Inc()
}

// RecordWSReconnect records a websocket reconnect.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// UpdateHeadBlock updates the chain head gauge.
func UpdateHeadBlock(block uint64) {
	DefaultMetrics.HeadBlock.Set(float64(block))
}

// RecordCommit records a successful changeset commit.
func RecordCommit(block uint64, documents int) {
	DefaultMetrics.CommittedBlock.Set(float64(block))
	DefaultMetrics.BatchDocuments.Observe(float64(documents))
	DefaultMetrics.LastSuccessfulCommit.Set(float64(time.Now().Unix()))
}

// UpdateTrackedAddresses updates the tracked address gauge.
func UpdateTrackedAddresses(n int) {
	DefaultMetrics.TrackedAddresses.Set(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordVerification records a verification run and its per-property
// violation counts.
func RecordVerification(status string, violations map[string]int) {
	DefaultMetrics.VerificationRuns.WithLabelValues(status).Inc()
	for property, n := range violations {
		DefaultMetrics.VerificationViolations.WithLabelValues(property).Set(float64(n))
	}
}
