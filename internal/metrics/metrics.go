// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

// Package metrics provides Prometheus instrumentation for the service.
//
// Metrics are exposed at the /metrics endpoint in Prometheus text format.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Behavior Metrics
	BehaviorEventsTracked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "behavior_events_tracked_total",
			Help: "Total number of behavior events recorded",
		},
		[]string{"action"},
	)

	BehaviorEventsSinceTraining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "behavior_events_since_training",
			Help: "Behavior events recorded since the last completed training run",
		},
	)

	BehaviorUsersTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "behavior_users_tracked",
			Help: "Number of distinct users with recorded behavior",
		},
	)

	// Recommendation Metrics
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_served_total",
			Help: "Total number of recommendation responses served",
		},
		[]string{"mode"}, // "hybrid", "fallback"
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Time spent computing one recommendation response",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	// Training Metrics
	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total number of training runs by outcome",
		},
		[]string{"status", "trigger"}, // status: "success", "failure", "skipped"; trigger: "startup", "threshold", "interval", "manual"
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Duration of training runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	TrainingLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "training_last_success_timestamp",
			Help: "Unix timestamp of the last successful training run",
		},
	)

	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_version",
			Help: "Monotonic version of the currently published model set",
		},
	)

	// Catalog Metrics
	CatalogProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_products",
			Help: "Number of products in the current catalog snapshot",
		},
	)

	CatalogSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_syncs_total",
			Help: "Total number of catalog sync attempts by outcome",
		},
		[]string{"status"}, // "success", "failure"
	)

	CatalogSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_sync_duration_seconds",
			Help:    "Duration of catalog sync operations",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	CatalogSyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_sync_last_success_timestamp",
			Help: "Unix timestamp of the last successful catalog sync",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordAPIRequest records the completion of one HTTP request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordEventTracked records one accepted behavior event.
func RecordEventTracked(action string) {
	BehaviorEventsTracked.WithLabelValues(action).Inc()
}

// RecordRecommendation records one served recommendation response.
// fallback is true when the response came from the cold-start path.
func RecordRecommendation(fallback bool, duration time.Duration) {
	mode := "hybrid"
	if fallback {
		mode = "fallback"
	}
	RecommendationsServed.WithLabelValues(mode).Inc()
	RecommendationDuration.Observe(duration.Seconds())
}

// RecordTrainingRun records the outcome of one training run.
func RecordTrainingRun(trigger string, duration time.Duration, err error) {
	if err != nil {
		TrainingRuns.WithLabelValues("failure", trigger).Inc()
		return
	}
	TrainingRuns.WithLabelValues("success", trigger).Inc()
	TrainingDuration.Observe(duration.Seconds())
	TrainingLastSuccess.SetToCurrentTime()
}

// RecordTrainingSkipped records a training request that found a run already
// in progress.
func RecordTrainingSkipped(trigger string) {
	TrainingRuns.WithLabelValues("skipped", trigger).Inc()
}

// RecordCatalogSync records the outcome of one catalog sync attempt.
func RecordCatalogSync(duration time.Duration, productCount int, err error) {
	if err != nil {
		CatalogSyncs.WithLabelValues("failure").Inc()
		return
	}
	CatalogSyncs.WithLabelValues("success").Inc()
	CatalogSyncDuration.Observe(duration.Seconds())
	CatalogSyncLastSuccess.SetToCurrentTime()
	CatalogProducts.Set(float64(productCount))
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
