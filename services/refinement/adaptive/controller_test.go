// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package adaptive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
)

func completed(phase int, conf float64) domain.PhaseResult {
	return domain.PhaseResult{
		Phase:      phase,
		Completed:  true,
		Bounds:     domain.Bounds{Min: 0, Max: 1 << 20},
		Confidence: conf,
	}
}

func TestShouldSkip_NeverSkipsFirstPhase(t *testing.T) {
	c := NewController()
	assert.False(t, c.ShouldSkip(0, 1.0))
	assert.Equal(t, 0, c.PhasesSkipped())
}

func TestShouldSkip_ThresholdGate(t *testing.T) {
	c := NewController()
	assert.False(t, c.ShouldSkip(3, 0.89))
	assert.True(t, c.ShouldSkip(3, 0.90))
	assert.True(t, c.ShouldSkip(4, 0.95))
	assert.Equal(t, 2, c.PhasesSkipped())
}

func TestShouldSkip_DisabledController(t *testing.T) {
	c := NewController()
	c.SkipEnabled = false
	assert.False(t, c.ShouldSkip(3, 1.0))
}

func TestShouldEarlyStop_ConfidenceBar(t *testing.T) {
	c := NewController()
	assert.False(t, c.ShouldEarlyStop(completed(2, 0.94)))
	assert.Equal(t, 0, c.EarlyStoppedAt())

	require.True(t, c.ShouldEarlyStop(completed(2, 0.95)))
	assert.Equal(t, 3, c.EarlyStoppedAt(), "stop index is 1-based")
}

func TestShouldEarlyStop_RangeFloor(t *testing.T) {
	c := NewController()
	r := domain.PhaseResult{
		Phase:      1,
		Completed:  true,
		Bounds:     domain.Bounds{Min: 500, Max: 599},
		Confidence: 0.1,
	}
	assert.True(t, c.ShouldEarlyStop(r), "width 99 is under the default floor of 100")

	c2 := NewController()
	r.Bounds = domain.Bounds{Min: 500, Max: 600}
	assert.False(t, c2.ShouldEarlyStop(r), "width exactly 100 does not stop")
}

func TestShouldEarlyStop_Disabled(t *testing.T) {
	c := NewController()
	c.EarlyStopEnabled = false
	assert.False(t, c.ShouldEarlyStop(completed(0, 1.0)))
}

func TestAdjustThresholds_RequiresFourCompletedPhases(t *testing.T) {
	c := NewController()
	history := []domain.PhaseResult{
		completed(0, 0.1), completed(1, 0.1), completed(2, 0.1),
		{Phase: 3, Completed: false, Confidence: 0.1},
	}
	c.AdjustThresholds(history)
	assert.Equal(t, DefaultEarlyStopThreshold, c.EarlyStopThreshold())
	assert.Equal(t, DefaultSkipThreshold, c.SkipThreshold())
}

func TestAdjustThresholds_RelaxesOnLowMean(t *testing.T) {
	c := NewController()
	history := []domain.PhaseResult{
		completed(0, 0.5), completed(1, 0.5), completed(2, 0.5), completed(3, 0.5),
	}
	c.AdjustThresholds(history)
	assert.InDelta(t, 0.95*0.95, c.EarlyStopThreshold(), 1e-9)
	assert.InDelta(t, 0.90*0.95, c.SkipThreshold(), 1e-9)
}

func TestAdjustThresholds_TightensTowardCeiling(t *testing.T) {
	c := NewController()
	c.SetEarlyStopThreshold(0.80)
	c.SetSkipThreshold(0.70)
	history := []domain.PhaseResult{
		completed(0, 0.95), completed(1, 0.95), completed(2, 0.95), completed(3, 0.95),
	}
	c.AdjustThresholds(history)
	assert.InDelta(t, (0.80+0.95)/2, c.EarlyStopThreshold(), 1e-9)
	assert.InDelta(t, (0.70+0.90)/2, c.SkipThreshold(), 1e-9)
}

func TestAdjustThresholds_DeadZoneLeavesThresholds(t *testing.T) {
	c := NewController()
	history := []domain.PhaseResult{
		completed(0, 0.80), completed(1, 0.80), completed(2, 0.80), completed(3, 0.80),
	}
	c.AdjustThresholds(history)
	assert.Equal(t, DefaultEarlyStopThreshold, c.EarlyStopThreshold())
	assert.Equal(t, DefaultSkipThreshold, c.SkipThreshold())
}

func TestAdjustThresholds_Disabled(t *testing.T) {
	c := NewController()
	c.DynamicThresholds = false
	history := []domain.PhaseResult{
		completed(0, 0.5), completed(1, 0.5), completed(2, 0.5), completed(3, 0.5),
	}
	c.AdjustThresholds(history)
	assert.Equal(t, DefaultEarlyStopThreshold, c.EarlyStopThreshold())
}
