// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the refinement
// engine.
//
// # Description
//
// Metrics cover the pipeline lifecycle:
//   - Run counters (by outcome)
//   - Per-phase counters (completed, skipped, failed)
//   - Phase latency histograms
//   - Reduction-factor and confidence histograms per run
//
// # Integration
//
// The CLI exposes the default registry via /metrics in watch mode. Use
// with Prometheus + Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "refine"

const pipelineSubsystem = "pipeline"

// PipelineMetrics holds all Prometheus metrics for refinement runs.
// Initialize once at startup via InitMetrics().
type PipelineMetrics struct {
	// RunsTotal counts runs by outcome.
	// Labels: outcome (finished, early_stopped, error)
	RunsTotal *prometheus.CounterVec

	// PhasesTotal counts phase slots by terminal state.
	// Labels: phase (0..9), state (completed, skipped, failed)
	PhasesTotal *prometheus.CounterVec

	// PhaseDurationSeconds measures per-phase wall time.
	// Labels: phase
	PhaseDurationSeconds *prometheus.HistogramVec

	// ReductionFactor records the final reduction factor per run.
	ReductionFactor prometheus.Histogram

	// OverallConfidence records the final overall confidence per run.
	OverallConfidence prometheus.Histogram
}

// DefaultMetrics is the singleton instance of PipelineMetrics.
// Initialized by InitMetrics(); nil until then, and the engine treats a
// nil instance as metrics-disabled.
var DefaultMetrics *PipelineMetrics

// InitMetrics creates and registers all pipeline metrics on the default
// registry. Call once at startup; a second call panics on duplicate
// registration.
func InitMetrics() *PipelineMetrics {
	DefaultMetrics = &PipelineMetrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "runs_total",
				Help:      "Total refinement runs by outcome",
			},
			[]string{"outcome"},
		),

		PhasesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "phases_total",
				Help:      "Total phase slots by phase index and terminal state",
			},
			[]string{"phase", "state"},
		),

		PhaseDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "phase_duration_seconds",
				Help:      "Wall time per phase in seconds",
				Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5},
			},
			[]string{"phase"},
		),

		ReductionFactor: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "reduction_factor",
				Help:      "Final search-space reduction factor per run",
				Buckets:   prometheus.ExponentialBuckets(1, 10, 8),
			},
		),

		OverallConfidence: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "overall_confidence",
				Help:      "Final overall confidence per run",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
	}

	return DefaultMetrics
}
