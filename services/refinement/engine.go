// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package refinement implements the multi-phase search-space refinement
// engine.
//
// # Description
//
// The engine runs a fixed pipeline of ten estimator phases over a
// bounded integer domain [0, N), each phase narrowing (never widening)
// the plausible range for the unobserved preimage of a target value.
// Phases 0 (triangulation) and 5 (convergence checkpoint) always run;
// the rest may be skipped when confidence is already high, and the
// whole run may stop early once the range is small or a phase is
// confident enough.
//
// # Usage
//
//	eng, err := refinement.New(refinement.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := eng.Run(ctx, samples.SliceProvider{{Input: 42, Output: 99, Weight: 1}}, 99, 1000)
//
// # Thread Safety
//
// An Engine is safe for concurrent Run calls; all per-run state lives
// on the Run stack.
package refinement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/adaptive"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/confidence"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/observability"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/oscillation"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/phases"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/samples"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrInvalidDomain rejects a run over an empty domain (n == 0).
	ErrInvalidDomain = errors.New("refinement: domain size must be positive")

	// ErrSampleSource wraps a provider failure; no phase has run yet
	// when it is returned.
	ErrSampleSource = errors.New("refinement: sample provider failed")
)

// pipelineLength is the fixed number of phases per run.
const pipelineLength = 10

// defaultDetectorWindow is the per-phase oscillation window; with ten
// phases feeding one observation each, only the late phases fill it.
const defaultDetectorWindow = 8

// scorerHistory sizes each phase scorer's confidence history ring.
const scorerHistory = 16

// Enhanced-confidence metric weights and levels. The convergence and
// stability metrics come from the phase's oscillation detector; the
// base metric is the estimator's own confidence.
const (
	baseMetricWeight        = 1.0
	convergenceMetricWeight = 1.2
	stabilityMetricWeight   = 1.1

	convergingLevel    = 0.95
	notConvergingLevel = 0.70
	stableLevel        = 0.90
	notStableLevel     = 0.75
)

// =============================================================================
// Engine
// =============================================================================

// instrument is the measurement kit owned by one phase slot: an
// oscillation detector fed the bound trajectory up to that phase, and a
// confidence scorer that blends the estimator's base confidence with
// the detector's convergence and stability reads.
type instrument struct {
	detector *oscillation.Detector
	scorer   *confidence.Scorer
}

// phaseSlot is one entry of the run's state machine: the estimator, its
// instruments, its lifecycle state, and its (eventual) result.
type phaseSlot struct {
	estimator phases.Estimator
	inst      instrument
	state     domain.PhaseState
	result    domain.PhaseResult
}

// Engine orchestrates the ten-phase pipeline.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer
}

// Option customizes an Engine at construction.
type Option func(*Engine)

// WithLogger overrides the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine with the given configuration.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("refinement: invalid config: %w", err)
	}
	e := &Engine{
		cfg:    cfg.withDefaults(),
		logger: slog.Default(),
		tracer: otel.Tracer("refinement"),
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Run executes the pipeline against target over the domain [0, n) and
// returns the assembled report. The returned error is non-nil only for
// pre-run failures (empty domain, provider error); individual phase
// failures are recovered into the report.
func (e *Engine) Run(ctx context.Context, provider samples.Provider, target, n uint64) (domain.Report, error) {
	if n == 0 {
		return domain.Report{}, ErrInvalidDomain
	}

	runID := uuid.NewString()
	started := time.Now()

	ctx, runSpan := e.tracer.Start(ctx, "refinement.Run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int64("run.target", int64(target)),
			attribute.Int64("run.n", int64(n)),
		))
	defer runSpan.End()

	store, err := e.loadSamples(ctx, provider)
	if err != nil {
		return domain.Report{}, err
	}

	slots, err := e.buildSlots(n)
	if err != nil {
		return domain.Report{}, err
	}
	controller := e.buildController()

	e.logger.Info("refinement run starting",
		"run_id", runID, "target", target, "n", n, "samples", store.Len())

	results := make([]domain.PhaseResult, 0, pipelineLength)
	prev := domain.FullRange(n)
	prevConfidence := 0.0
	stopped := false

	for i := range slots {
		slot := &slots[i]
		if stopped {
			slot.state = domain.StateNotReached
			continue
		}
		if err := ctx.Err(); err != nil {
			runSpan.RecordError(err)
			return domain.Report{}, err
		}

		slot.state = domain.StateRunning
		if !slot.estimator.Mandatory() && controller.ShouldSkip(i, prevConfidence) {
			// Skip keeps the prior result verbatim so downstream
			// consumers see identical entries for skipped slots.
			slot.result = results[i-1]
			slot.state = domain.StateSkipped
			results = append(results, slot.result)
			e.logger.Debug("phase skipped",
				"run_id", runID, "phase", i, "prior_confidence", prevConfidence)
			e.countPhase(i, slot.state)
			continue
		}

		slot.result = e.runPhase(ctx, runID, i, slot, prev, store, target, n)
		if slot.result.Completed {
			slot.state = domain.StateCompleted
			prev = slot.result.Bounds
			prevConfidence = slot.result.Confidence
		} else {
			slot.state = domain.StateFailed
			prevConfidence = 0
		}
		results = append(results, slot.result)
		e.countPhase(i, slot.state)

		controller.AdjustThresholds(results)
		if slot.result.Completed && controller.ShouldEarlyStop(slot.result) {
			e.logger.Info("early stop",
				"run_id", runID, "phase", i,
				"confidence", slot.result.Confidence,
				"width", slot.result.Bounds.Width())
			stopped = true
		}
	}

	report := e.assembleReport(runID, target, n, started, slots, results, controller)
	e.recordRun(report, stopped)
	e.logger.Info("refinement run finished",
		"run_id", runID,
		"final_bounds", report.FinalBounds.String(),
		"reduction_factor", report.ReductionFactor,
		"overall_confidence", report.OverallConfidence,
		"duration", report.Duration)
	return report, nil
}

// loadSamples materializes the provider into a read-only store. A nil
// provider yields an empty store; zero samples is a legal run.
func (e *Engine) loadSamples(ctx context.Context, provider samples.Provider) (*samples.Store, error) {
	if provider == nil {
		provider = samples.SliceProvider(nil)
	}
	store, err := samples.FromProvider(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSampleSource, err)
	}
	return store, nil
}

// buildSlots assembles the phase-state array: one estimator plus one
// instrument kit per slot.
func (e *Engine) buildSlots(n uint64) ([]phaseSlot, error) {
	pipeline := phases.PipelineWithWorkers(n, e.cfg.Workers)
	slots := make([]phaseSlot, len(pipeline))
	for i, est := range pipeline {
		det, err := oscillation.New(2, e.cfg.DetectorWindow)
		if err != nil {
			return nil, fmt.Errorf("refinement: phase %d detector: %w", i, err)
		}
		sc := confidence.NewScorer(scorerHistory)
		slots[i] = phaseSlot{
			estimator: est,
			inst:      instrument{detector: det, scorer: sc},
			state:     domain.StatePending,
		}
	}
	return slots, nil
}

func (e *Engine) buildController() *adaptive.Controller {
	c := adaptive.NewController()
	c.EarlyStopEnabled = e.cfg.EarlyStopEnabled
	c.SkipEnabled = e.cfg.SkipEnabled
	c.DynamicThresholds = e.cfg.DynamicThresholds
	c.SetEarlyStopThreshold(e.cfg.EarlyStopThreshold)
	c.SetSkipThreshold(e.cfg.SkipThreshold)
	c.SetRangeFloor(e.cfg.RangeFloor)
	return c
}

// runPhase executes one estimator with recovery: a failed phase yields
// Completed == false with the previous bounds carried over. The base
// confidence is then blended with the detector's convergence and
// stability reads into the enhanced confidence stored on the result.
func (e *Engine) runPhase(ctx context.Context, runID string, idx int, slot *phaseSlot, prev domain.Bounds, store *samples.Store, target, n uint64) domain.PhaseResult {
	ctx, span := e.tracer.Start(ctx, "refinement.phase",
		trace.WithAttributes(
			attribute.Int("phase.index", idx),
			attribute.String("phase.description", slot.estimator.Description()),
		))
	defer span.End()

	phaseStart := time.Now()
	res, err := slot.estimator.Estimate(ctx, prev, store, target)
	e.observePhaseDuration(idx, time.Since(phaseStart))
	if err != nil {
		span.RecordError(err)
		e.logger.Warn("phase failed",
			"run_id", runID, "phase", idx,
			"description", slot.estimator.Description(), "error", err)
		return domain.PhaseResult{
			Phase:       idx,
			Completed:   false,
			Bounds:      prev,
			Confidence:  0,
			Error:       1,
			Description: slot.estimator.Description(),
		}
	}

	res.Confidence = e.enhanceConfidence(slot, res, n)
	span.SetAttributes(
		attribute.Float64("phase.confidence", res.Confidence),
		attribute.Int64("phase.width", int64(res.Bounds.Width())),
	)
	e.logger.Debug("phase completed",
		"run_id", runID, "phase", idx,
		"bounds", res.Bounds.String(), "confidence", res.Confidence)
	return res
}

// enhanceConfidence feeds the slot's detector with the new bound
// trajectory point and scores {base, convergence, stability} through
// the slot's scorer. Until the detector window fills, the convergence
// and stability metrics sit at their pessimistic levels.
func (e *Engine) enhanceConfidence(slot *phaseSlot, res domain.PhaseResult, n uint64) float64 {
	det := slot.inst.detector
	_ = det.AddSample([]float64{
		float64(res.Bounds.Midpoint()) / float64(n),
		float64(res.Bounds.Width()) / float64(n),
	})

	conv, stab := notConvergingLevel, notStableLevel
	if det.Full() {
		if err := det.Analyze(); err == nil {
			if det.Converging() {
				conv = convergingLevel
			}
			if det.Stable() {
				stab = stableLevel
			}
		}
	}

	sc := slot.inst.scorer
	sc.AddMetric("base", res.Confidence, baseMetricWeight)
	sc.AddMetric("convergence", conv, convergenceMetricWeight)
	sc.AddMetric("stability", stab, stabilityMetricWeight)
	return sc.Compute()
}

// assembleReport folds the slot array into the run report. Final bounds
// come from the last materialized phase; phases after an early stop
// stay at their zero value with Completed == false.
func (e *Engine) assembleReport(runID string, target, n uint64, started time.Time, slots []phaseSlot, results []domain.PhaseResult, controller *adaptive.Controller) domain.Report {
	final := domain.FullRange(n)
	if len(results) > 0 {
		final = results[len(results)-1].Bounds
	}

	phasesOut := make([]domain.PhaseResult, pipelineLength)
	states := make([]domain.PhaseState, pipelineLength)
	var confSum float64
	completed := 0
	for i := range slots {
		phasesOut[i] = slots[i].result
		states[i] = slots[i].state
		if slots[i].state == domain.StateCompleted {
			confSum += slots[i].result.Confidence
			completed++
		}
	}
	overall := 0.0
	if completed > 0 {
		overall = confSum / float64(completed)
	}

	return domain.Report{
		RunID:             runID,
		Target:            target,
		N:                 n,
		FinalBounds:       final,
		ReductionFactor:   domain.ReductionFactorFor(n, final),
		OverallConfidence: overall,
		Phases:            phasesOut,
		States:            states,
		PhasesSkipped:     controller.PhasesSkipped(),
		EarlyStoppedAt:    controller.EarlyStoppedAt(),
		StartedAt:         started,
		Duration:          time.Since(started),
	}
}

// =============================================================================
// Metrics plumbing
// =============================================================================

func (e *Engine) countPhase(idx int, state domain.PhaseState) {
	m := observability.DefaultMetrics
	if m == nil {
		return
	}
	m.PhasesTotal.WithLabelValues(strconv.Itoa(idx), state.String()).Inc()
}

func (e *Engine) observePhaseDuration(idx int, d time.Duration) {
	m := observability.DefaultMetrics
	if m == nil {
		return
	}
	m.PhaseDurationSeconds.WithLabelValues(strconv.Itoa(idx)).Observe(d.Seconds())
}

func (e *Engine) recordRun(report domain.Report, stopped bool) {
	m := observability.DefaultMetrics
	if m == nil {
		return
	}
	outcome := "finished"
	if stopped {
		outcome = "early_stopped"
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	if !math.IsInf(report.ReductionFactor, 1) {
		m.ReductionFactor.Observe(report.ReductionFactor)
	}
	m.OverallConfidence.Observe(report.OverallConfidence)
}
