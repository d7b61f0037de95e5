// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package adaptive holds the pipeline's control heuristics: when to
// skip a phase, when to stop the run early, and how the two confidence
// thresholds drift as results accumulate.
//
// The threshold adjustment is a simple hysteresis, not a formal
// controller. It has no convergence guarantee and may oscillate; treat
// it as a tuning knob, never as a correctness mechanism.
package adaptive

import (
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
)

// Default control parameters, matching the reference behavior.
const (
	DefaultEarlyStopThreshold = 0.95
	DefaultSkipThreshold      = 0.90
	DefaultRangeFloor         = 100

	// thresholdCeiling* are the fixed points the tighten branch moves
	// toward; the relax branch multiplies by relaxFactor.
	earlyStopCeiling = 0.95
	skipCeiling      = 0.90
	relaxFactor      = 0.95

	// adjustMinPhases is how many phases must complete before the
	// thresholds start drifting.
	adjustMinPhases = 4
)

// Controller decides skips, early stops and threshold drift. It owns
// nothing beyond its thresholds and counters; all inputs arrive as
// arguments.
type Controller struct {
	// EarlyStopEnabled gates ShouldEarlyStop entirely.
	EarlyStopEnabled bool
	// SkipEnabled gates ShouldSkip entirely.
	SkipEnabled bool
	// DynamicThresholds gates AdjustThresholds.
	DynamicThresholds bool

	earlyStopThreshold float64
	skipThreshold      float64
	rangeFloor         uint64

	phasesSkipped  int
	earlyStoppedAt int // 1-based phase index; 0 = never
}

// NewController creates a controller with the default thresholds and
// all adaptive features enabled.
func NewController() *Controller {
	return &Controller{
		EarlyStopEnabled:   true,
		SkipEnabled:        true,
		DynamicThresholds:  true,
		earlyStopThreshold: DefaultEarlyStopThreshold,
		skipThreshold:      DefaultSkipThreshold,
		rangeFloor:         DefaultRangeFloor,
	}
}

// SetEarlyStopThreshold overrides the stop confidence bar.
func (c *Controller) SetEarlyStopThreshold(t float64) { c.earlyStopThreshold = t }

// SetSkipThreshold overrides the skip confidence bar.
func (c *Controller) SetSkipThreshold(t float64) { c.skipThreshold = t }

// SetRangeFloor overrides the absolute width below which a run stops.
func (c *Controller) SetRangeFloor(w uint64) { c.rangeFloor = w }

// EarlyStopThreshold returns the current stop bar.
func (c *Controller) EarlyStopThreshold() float64 { return c.earlyStopThreshold }

// SkipThreshold returns the current skip bar.
func (c *Controller) SkipThreshold() float64 { return c.skipThreshold }

// PhasesSkipped returns how many phases this controller skipped.
func (c *Controller) PhasesSkipped() int { return c.phasesSkipped }

// EarlyStoppedAt returns the 1-based index of the phase after which the
// run stopped, or 0 if it never stopped early.
func (c *Controller) EarlyStoppedAt() int { return c.earlyStoppedAt }

// ShouldSkip reports whether a phase may be skipped: only phases after
// the first, and only when the immediately preceding phase's confidence
// met the skip threshold. Mandatory phases are the caller's concern;
// the controller only sees the candidates.
func (c *Controller) ShouldSkip(phase int, priorConfidence float64) bool {
	if !c.SkipEnabled || phase == 0 {
		return false
	}
	if priorConfidence >= c.skipThreshold {
		c.phasesSkipped++
		return true
	}
	return false
}

// ShouldEarlyStop reports whether the run should end after this result:
// either its confidence met the stop threshold or its range shrank
// below the absolute floor.
func (c *Controller) ShouldEarlyStop(result domain.PhaseResult) bool {
	if !c.EarlyStopEnabled {
		return false
	}
	if result.Confidence >= c.earlyStopThreshold || result.Bounds.Width() < c.rangeFloor {
		c.earlyStoppedAt = result.Phase + 1
		return true
	}
	return false
}

// AdjustThresholds drifts both thresholds based on the mean confidence
// of completed phases so far. Does nothing until at least four phases
// have completed. Mean below 0.75 relaxes both by 5%; mean above 0.90
// moves both halfway back toward their fixed ceilings.
func (c *Controller) AdjustThresholds(history []domain.PhaseResult) {
	if !c.DynamicThresholds {
		return
	}
	sum := 0.0
	count := 0
	for _, r := range history {
		if r.Completed {
			sum += r.Confidence
			count++
		}
	}
	if count < adjustMinPhases {
		return
	}
	mean := sum / float64(count)
	switch {
	case mean < 0.75:
		c.earlyStopThreshold *= relaxFactor
		c.skipThreshold *= relaxFactor
	case mean > 0.90:
		c.earlyStopThreshold = (c.earlyStopThreshold + earlyStopCeiling) / 2
		c.skipThreshold = (c.skipThreshold + skipCeiling) / 2
	}
}
