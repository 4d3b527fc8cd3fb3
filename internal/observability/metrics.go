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
	// Scan metrics
	SignaturesProcessed prometheus.Counter
	SignaturesSkipped   *prometheus.CounterVec // reason: seen | pruned | malformed
	EventsClassified    *prometheus.CounterVec // kind: TRANSFER | SWAP
	ScanDuration        prometheus.Histogram
	WalletsWatched      prometheus.Gauge

	// Alert metrics
	AlertsEmitted     *prometheus.CounterVec // kind
	AlertSendFailures *prometheus.CounterVec // sink

	// Upstream metrics
	SourceCalls    *prometheus.CounterVec // source, outcome: ok | error | timeout
	ThrottleWait   prometheus.Histogram
	PriceCacheHits *prometheus.CounterVec // result: fresh | stale | miss

	// Significance metrics
	BucketsActive  prometheus.Gauge
	SweepsRun      prometheus.Counter
	BucketsEvicted prometheus.Counter

	// Journal metrics
	JournalWrites prometheus.Counter
	JournalErrors prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wallet_sentinel"
	}

	return &Metrics{
		SignaturesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "signatures_processed_total",
			Help:      "Total number of signatures run through the pipeline",
		}),
		SignaturesSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "signatures_skipped_total",
			Help:      "Total number of signatures skipped by reason",
		}, []string{"reason"}),
		EventsClassified: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "events_classified_total",
			Help:      "Total number of events emitted by the classifier by kind",
		}, []string{"kind"}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one full scan cycle",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		WalletsWatched: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "wallets_watched",
			Help:      "Number of wallets in the watch set",
		}),

		AlertsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "emitted_total",
			Help:      "Total number of alerts emitted by kind",
		}, []string{"kind"}),
		AlertSendFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "send_failures_total",
			Help:      "Total number of alert delivery failures by sink",
		}, []string{"sink"}),

		SourceCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "source_calls_total",
			Help:      "Total number of upstream source calls by source and outcome",
		}, []string{"source", "outcome"}),
		ThrottleWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "throttle_wait_seconds",
			Help:      "Time spent waiting for the throttle gate",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		PriceCacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "price_cache_lookups_total",
			Help:      "Price cache lookups by result",
		}, []string{"result"}),

		BucketsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "significance",
			Name:      "buckets_active",
			Help:      "Number of live per-day per-mint accumulator buckets",
		}),
		SweepsRun: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "significance",
			Name:      "sweeps_total",
			Help:      "Total number of bucket sweeps executed",
		}),
		BucketsEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "significance",
			Name:      "buckets_evicted_total",
			Help:      "Total number of buckets evicted by sweeps",
		}),

		JournalWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "writes_total",
			Help:      "Total number of alert records journaled",
		}),
		JournalErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "write_errors_total",
			Help:      "Total number of alert journal write failures",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSignatureProcessed increments the processed signature counter.
func RecordSignatureProcessed() {
	DefaultMetrics.SignaturesProcessed.Inc()
}

// RecordSignatureSkipped counts a skipped signature by reason.
func RecordSignatureSkipped(reason string) {
	DefaultMetrics.SignaturesSkipped.WithLabelValues(reason).Inc()
}

// RecordEventClassified counts a classified event by kind.
func RecordEventClassified(kind string) {
	DefaultMetrics.EventsClassified.WithLabelValues(kind).Inc()
}

// RecordAlertEmitted counts an emitted alert by kind.
func RecordAlertEmitted(kind string) {
	DefaultMetrics.AlertsEmitted.WithLabelValues(kind).Inc()
}

// RecordAlertSendFailure counts a delivery failure for a sink.
func RecordAlertSendFailure(sink string) {
	DefaultMetrics.AlertSendFailures.WithLabelValues(sink).Inc()
}

// RecordSourceCall counts an upstream source call outcome.
func RecordSourceCall(source, outcome string) {
	DefaultMetrics.SourceCalls.WithLabelValues(source, outcome).Inc()
}

// RecordPriceCacheLookup counts a price cache lookup result.
func RecordPriceCacheLookup(result string) {
	DefaultMetrics.PriceCacheHits.WithLabelValues(result).Inc()
}

// RecordSweep records one sweep run and its eviction count.
func RecordSweep(evicted int) {
	DefaultMetrics.SweepsRun.Inc()
	DefaultMetrics.BucketsEvicted.Add(float64(evicted))
}
