// Package metrics holds the Prometheus collectors shared by the engine, the
// ingest worker and the ops server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gridsense"

// ─── Insights ───────────────────────────────────────────────────────────────

// InsightsGenerated counts insights returned to callers by type.
var InsightsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "insights",
	Name:      "generated_total",
	Help:      "Total insights generated by type.",
}, []string{"type"})

// GeneratorFailures counts generators that contributed nothing because of an error.
var GeneratorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "insights",
	Name:      "generator_failures_total",
	Help:      "Total insight generator failures by generator.",
}, []string{"generator"})

// ─── Credit ─────────────────────────────────────────────────────────────────

// NotificationsAppended counts notification rows written by type.
var NotificationsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "credit",
	Name:      "notifications_total",
	Help:      "Total credit notifications appended by type.",
}, []string{"type"})

// NotificationsSuppressed counts notifications skipped by the dedup policy.
var NotificationsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "credit",
	Name:      "notifications_suppressed_total",
	Help:      "Total credit notifications suppressed by the notify policy.",
}, []string{"type"})

// ThresholdUpdates counts accepted threshold changes.
var ThresholdUpdates = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "credit",
	Name:      "threshold_updates_total",
	Help:      "Total accepted credit threshold updates.",
})

// ─── Devices ────────────────────────────────────────────────────────────────

// DevicesRemoved counts devices deleted together with their readings.
var DevicesRemoved = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "devices",
	Name:      "removed_total",
	Help:      "Total devices removed with their readings.",
})

// ─── Ingest ─────────────────────────────────────────────────────────────────

// ReadingsIngested counts ingest outcomes (accepted, invalid, orphaned).
var ReadingsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ingest",
	Name:      "readings_total",
	Help:      "Total power readings processed by outcome.",
}, []string{"status"})

// ReadingAnomalies counts stored readings flagged as anomalous.
var ReadingAnomalies = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ingest",
	Name:      "anomalies_total",
	Help:      "Total anomalous power readings by kind.",
}, []string{"kind"})

// ─── Latency ────────────────────────────────────────────────────────────────

// OperationDuration tracks engine operation latency in seconds.
var OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "engine",
	Name:      "operation_duration_seconds",
	Help:      "Engine operation latency in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"operation", "outcome"})
