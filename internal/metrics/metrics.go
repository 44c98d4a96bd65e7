// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the ingestion, rule, and classification
// pipelines. All metrics are registered on the default registry and exposed
// via the /metrics endpoint.

var (
	// Ingestion Metrics
	IngestItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_items_total",
			Help: "Total number of ingested items by kind and outcome",
		},
		[]string{"kind", "outcome"}, // kind: event, snapshot; outcome: created, duplicate, skipped, rejected
	)

	IngestBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_batch_duration_seconds",
			Help:    "Duration of ingest batch processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Rule Engine Metrics
	RuleEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_evaluations_total",
			Help: "Total number of rule evaluations by rule and outcome",
		},
		[]string{"rule", "outcome"}, // outcome: below_threshold, incident_raised, already_raised, error
	)

	IncidentsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incidents_created_total",
			Help: "Total number of incidents created by type and source",
		},
		[]string{"type", "source"}, // source: rule_engine, classifier
	)

	// Counter Store Metrics
	CounterStoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_store_operations_total",
			Help: "Total number of counter store operations",
		},
		[]string{"operation", "outcome"}, // operation: increment, set_if_absent; outcome: success, failure
	)

	// Classification Job Metrics
	SnapshotJobsPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshot_jobs_published_total",
			Help: "Total number of classification jobs published to the broker",
		},
	)

	SnapshotJobPublishFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshot_job_publish_failures_total",
			Help: "Total number of classification job publish failures (accepted snapshots without a queued job)",
		},
	)

	ClassificationJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classification_jobs_total",
			Help: "Total number of classification jobs consumed by outcome",
		},
		[]string{"outcome"}, // outcome: classified, snapshot_missing, parse_error, error
	)

	ClassificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "classification_duration_seconds",
			Help:    "Duration of snapshot classification in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordIngestItem increments the ingest item counter for one item.
func RecordIngestItem(kind, outcome string) {
	IngestItemsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordRuleEvaluation increments the rule evaluation counter.
func RecordRuleEvaluation(rule, outcome string) {
	RuleEvaluationsTotal.WithLabelValues(rule, outcome).Inc()
}

// RecordIncident increments the incident creation counter.
func RecordIncident(incidentType, source string) {
	IncidentsCreatedTotal.WithLabelValues(incidentType, source).Inc()
}
