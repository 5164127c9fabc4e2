// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "slopwatch"

var (
	// ClaimsExtracted counts claims produced by the extractor.
	// Labels: domain
	ClaimsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "extract",
		Name:      "claims_total",
		Help:      "Total claims extracted from assistant messages",
	}, []string{"domain"})

	// FileChanges counts debounced file change events.
	// Labels: kind (create, modify, delete)
	FileChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "watch",
		Name:      "changes_total",
		Help:      "Total debounced file change events",
	}, []string{"kind"})

	// WatchErrors counts per-file I/O errors that were skipped
	WatchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "watch",
		Name:      "errors_total",
		Help:      "Total file read or watch errors skipped by the watcher",
	})

	// PendingClaims tracks claims awaiting evaluation
	PendingClaims = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "pending_claims",
		Help:      "Claims pending or scheduled for evaluation",
	})

	// BufferedChanges tracks the recent-changes buffer size
	BufferedChanges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "buffered_changes",
		Help:      "File changes held in the correlation buffer",
	})

	// Verdicts counts terminal verdicts.
	// Labels: detector, status
	Verdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "verdicts_total",
		Help:      "Total verdicts by detector and status",
	}, []string{"detector", "status"})

	// AnalysisLatency measures detector analysis time
	AnalysisLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "analysis_seconds",
		Help:      "Detector analysis latency in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	}, []string{"detector"})

	// SlopScore is the most recently computed slop score
	SlopScore = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "score",
		Name:      "slop_score",
		Help:      "Share of analyzed claims classified as lie in the score window",
	})

	// ForwardedTotal counts forwarder deliveries.
	// Labels: kind (claim, verdict), result (sent, error, dropped)
	ForwardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "forward",
		Name:      "deliveries_total",
		Help:      "Total forwarder deliveries by result",
	}, []string{"kind", "result"})
)
