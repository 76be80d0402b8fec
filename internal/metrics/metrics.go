// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

// Package metrics provides Prometheus instrumentation for Tabularium:
// scheduling passes, per-task outcomes, log aggregation throughput,
// remote uploads, health probes and the outbound circuit breaker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scheduling pass metrics
	PassesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tabularium_passes_total",
			Help: "Total number of scheduling passes executed",
		},
	)

	PassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tabularium_pass_duration_seconds",
			Help:    "Duration of a full scheduling pass in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// Per-task metrics
	TaskRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabularium_task_runs_total",
			Help: "Total task evaluations by outcome",
		},
		[]string{"task", "outcome"}, // outcome: "ran", "failed", "not-due", "disabled", "unhealthy", "bad-period", "unregistered"
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tabularium_task_duration_seconds",
			Help:    "Duration of dispatched task runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"task"},
	)

	// Health probe metrics
	HealthProbeUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tabularium_health_probe_up",
			Help: "Result of the most recent application health probe (1=healthy, 0=unhealthy)",
		},
	)

	HealthProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabularium_health_probes_total",
			Help: "Total health probe invocations by result",
		},
		[]string{"result"}, // "healthy", "unhealthy"
	)

	// Log aggregation metrics
	LogPagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tabularium_log_pages_fetched_total",
			Help: "Total log query pages fetched during aggregation",
		},
	)

	LogRecordsCollected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tabularium_log_records_collected_total",
			Help: "Total logical log records assembled from query pages",
		},
	)

	LogQueryErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tabularium_log_query_errors_total",
			Help: "Total log query failures that aborted pagination",
		},
	)

	// Remote store metrics
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabularium_uploads_total",
			Help: "Total remote store uploads by scope and result",
		},
		[]string{"scope", "result"}, // result: "success", "failure"
	)

	UploadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabularium_upload_bytes_total",
			Help: "Total bytes uploaded to the remote store",
		},
		[]string{"scope"},
	)

	RetentionDeletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabularium_retention_deletions_total",
			Help: "Total files removed by retention, local and remote",
		},
		[]string{"target"}, // "local", "remote"
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tabularium_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabularium_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabularium_circuit_breaker_requests_total",
			Help: "Total requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tabularium_circuit_breaker_consecutive_failures",
			Help: "Current consecutive failures tracked by the circuit breaker",
		},
		[]string{"name"},
	)

	// Journal metrics
	JournalWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabularium_journal_writes_total",
			Help: "Total run journal writes by result",
		},
		[]string{"result"}, // "success", "failure"
	)

	DedupSkips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tabularium_dedup_skips_total",
			Help: "Total log records skipped by the content-hash dedup index",
		},
	)

	// Event bus metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabularium_events_published_total",
			Help: "Total lifecycle events published by topic",
		},
		[]string{"topic"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabularium_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tabularium_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordPass records one completed scheduling pass.
func RecordPass(duration time.Duration) {
	PassesTotal.Inc()
	PassDuration.Observe(duration.Seconds())
}

// RecordTaskOutcome records one task evaluation outcome.
func RecordTaskOutcome(task, outcome string) {
	TaskRuns.WithLabelValues(task, outcome).Inc()
}

// RecordTaskDuration records the wall time of a dispatched task run.
func RecordTaskDuration(task string, duration time.Duration) {
	TaskDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// RecordHealthProbe records a health probe result and updates the gauge.
func RecordHealthProbe(healthy bool) {
	if healthy {
		HealthProbeUp.Set(1)
		HealthProbesTotal.WithLabelValues("healthy").Inc()
		return
	}
	HealthProbeUp.Set(0)
	HealthProbesTotal.WithLabelValues("unhealthy").Inc()
}

// RecordUpload records a remote store upload attempt.
func RecordUpload(scope string, bytes int64, err error) {
	if err != nil {
		UploadsTotal.WithLabelValues(scope, "failure").Inc()
		return
	}
	UploadsTotal.WithLabelValues(scope, "success").Inc()
	UploadBytes.WithLabelValues(scope).Add(float64(bytes))
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
