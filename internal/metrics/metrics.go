// Package metrics provides Prometheus metrics for PulseMetrics.
// It tracks stream consumption, batch flushing, and alert evaluation to
// help identify pipeline lag and measure aggregation health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "pulsemetrics"
)

// Consumption metrics track the stream read path.
var (
	// EventsProcessedTotal counts stream entries by outcome.
	EventsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Total number of stream entries processed",
		},
		[]string{"result"}, // result: buffered, duplicate, parse_error, dropped
	)

	// StreamReadLatency measures the duration of one stream read call.
	StreamReadLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stream_read_latency_seconds",
			Help:      "Duration of one consumer-group read in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// DedupCacheSize tracks the number of event IDs retained by the guard.
	DedupCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dedup_cache_size",
			Help:      "Current number of event IDs in the dedup cache",
		},
	)
)

// Flush metrics track the aggregation write path.
var (
	// BatchesFlushedTotal counts batch flushes by outcome.
	BatchesFlushedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_flushed_total",
			Help:      "Total number of batch flushes",
		},
		[]string{"result"}, // result: success, failure
	)

	// BatchSize observes how many events each flushed batch carried.
	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of events per flushed batch",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// BatchFlushLatency measures the full flush: store writes, hot cache,
	// and alert evaluation.
	BatchFlushLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_flush_latency_seconds",
			Help:      "Duration of one batch flush in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)
)

// Alert metrics track the evaluation path.
var (
	// AlertEvaluationsTotal counts per-campaign evaluations by outcome.
	AlertEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_evaluations_total",
			Help:      "Total number of per-campaign alert evaluations",
		},
		[]string{"result"}, // result: success, failure
	)

	// AlertTransitionsTotal counts state machine transitions.
	AlertTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_transitions_total",
			Help:      "Total number of alert state transitions",
		},
		[]string{"transition"}, // transition: triggered, cleared
	)

	// NotificationsPublishedTotal counts transition publishes by outcome.
	NotificationsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_published_total",
			Help:      "Total number of alert transition notifications published",
		},
		[]string{"status"}, // status: success, failure
	)
)
