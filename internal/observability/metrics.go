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
	// Endpoint metrics
	EndpointProbes *prometheus.CounterVec
	Failovers      prometheus.Counter

	// Mint metrics
	MintOperations   *prometheus.CounterVec
	MintStepDuration *prometheus.HistogramVec
	RevocationsTotal *prometheus.CounterVec

	// Monitoring metrics
	PollAttempts      prometheus.Counter
	StatusTransitions *prometheus.CounterVec
	ActiveMonitors    prometheus.Gauge

	// Retry metrics
	RetryAttempts    prometheus.Counter
	RetryExhaustions prometheus.Counter

	// Webhook metrics
	WebhookDispatches *prometheus.CounterVec
	WebhookQueueDepth prometheus.Gauge

	// Metadata metrics
	MetadataChecks *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_service"
	}

	return &Metrics{
		EndpointProbes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "endpoint",
			Name:      "probes_total",
			Help:      "Total number of endpoint liveness probes by result",
		}, []string{"result"}),
		Failovers: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "endpoint",
			Name:      "failovers_total",
			Help:      "Total number of selections that fell past the first candidate",
		}),

		MintOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "operations_total",
			Help:      "Total number of mint operations by outcome",
		}, []string{"outcome"}),
		MintStepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "step_duration_seconds",
			Help:      "Duration of individual mint steps",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
		RevocationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "revocations_total",
			Help:      "Total number of authority revocations by type and result",
		}, []string{"authority", "result"}),

		PollAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "poll_attempts_total",
			Help:      "Total number of signature status poll attempts",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "status_transitions_total",
			Help:      "Total number of transaction status transitions",
		}, []string{"status"}),
		ActiveMonitors: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "active",
			Help:      "Number of signatures currently being monitored",
		}),

		RetryAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "attempts_total",
			Help:      "Total number of retry re-submission attempts",
		}),
		RetryExhaustions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "exhaustions_total",
			Help:      "Total number of retry records that hit max attempts",
		}),

		WebhookDispatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "dispatches_total",
			Help:      "Total number of webhook deliveries by result",
		}, []string{"result"}),
		WebhookQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "queue_depth",
			Help:      "Number of deliveries waiting in the dispatch queue",
		}),

		MetadataChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "checks_total",
			Help:      "Total number of metadata accessibility checks by result",
		}, []string{"result"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "Latency of Solana RPC calls",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEndpointProbe records a liveness probe result ("success" or "failure").
func RecordEndpointProbe(result string) {
	DefaultMetrics.EndpointProbes.WithLabelValues(result).Inc()
}

// RecordFailover increments the failover counter.
func RecordFailover() {
	DefaultMetrics.Failovers.Inc()
}

// RecordMintOperation records a completed mint operation by outcome.
func RecordMintOperation(outcome string) {
	DefaultMetrics.MintOperations.WithLabelValues(outcome).Inc()
}

// RecordMintStep records the duration of a mint step.
func RecordMintStep(step string, seconds float64) {
	DefaultMetrics.MintStepDuration.WithLabelValues(step).Observe(seconds)
}

// RecordRevocation records an authority revocation attempt.
func RecordRevocation(authority, result string) {
	DefaultMetrics.RevocationsTotal.WithLabelValues(authority, result).Inc()
}

// RecordPollAttempt increments the poll attempt counter.
func RecordPollAttempt() {
	DefaultMetrics.PollAttempts.Inc()
}

// RecordStatusTransition records a transaction status transition.
func RecordStatusTransition(status string) {
	DefaultMetrics.StatusTransitions.WithLabelValues(status).Inc()
}

// RecordRetryAttempt increments the retry attempt counter.
func RecordRetryAttempt() {
	DefaultMetrics.RetryAttempts.Inc()
}

// RecordRetryExhaustion increments the retry exhaustion counter.
func RecordRetryExhaustion() {
	DefaultMetrics.RetryExhaustions.Inc()
}

// RecordWebhookDispatch records a webhook delivery result ("delivered", "failed", "dropped").
func RecordWebhookDispatch(result string) {
	DefaultMetrics.WebhookDispatches.WithLabelValues(result).Inc()
}

// SetWebhookQueueDepth records the pending delivery queue depth.
func SetWebhookQueueDepth(depth int) {
	DefaultMetrics.WebhookQueueDepth.Set(float64(depth))
}

// SetActiveMonitors records the number of background polling tasks.
func SetActiveMonitors(n int) {
	DefaultMetrics.ActiveMonitors.Set(float64(n))
}

// RecordMetadataCheck records a metadata accessibility check result.
func RecordMetadataCheck(result string) {
	DefaultMetrics.MetadataChecks.WithLabelValues(result).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}
