// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScorer_ComputeWeightedAverage(t *testing.T) {
	s := NewScorer(0)
	s.AddMetric("fit", 0.8, 3.0)
	s.AddMetric("stability", 0.4, 1.0)

	// (0.8*3 + 0.4*1) / 4 = 0.7
	assert.InDelta(t, 0.7, s.Compute(), 1e-9)
	assert.InDelta(t, 0.7, s.Overall(), 1e-9)
}

func TestScorer_EmptyMetricSetScoresZero(t *testing.T) {
	s := NewScorer(0)
	assert.Equal(t, 0.0, s.Compute())
}

func TestScorer_AddMetricClampsAndCoercesWeight(t *testing.T) {
	s := NewScorer(0)
	s.AddMetric("hot", 1.7, -2.0)

	m, ok := s.Metric("hot")
	require.True(t, ok)
	assert.Equal(t, 1.0, m.Value, "value clamped to [0, 1]")
	assert.Equal(t, 1.0, m.Weight, "non-positive weight coerced to 1")
}

func TestScorer_AddMetricUpdatesExisting(t *testing.T) {
	s := NewScorer(0)
	s.AddMetric("fit", 0.2, 2.0)
	s.AddMetric("fit", 0.9, 5.0) // weight of existing metric is kept

	m, ok := s.Metric("fit")
	require.True(t, ok)
	assert.Equal(t, 0.9, m.Value)
	assert.Equal(t, 2.0, m.Weight)
}

func TestScorer_UpdateAndRemoveMetric(t *testing.T) {
	s := NewScorer(0)
	s.AddMetric("fit", 0.5, 1.0)

	assert.True(t, s.UpdateMetric("fit", 0.6))
	assert.False(t, s.UpdateMetric("missing", 0.6))

	assert.True(t, s.RemoveMetric("fit"))
	assert.False(t, s.RemoveMetric("fit"))
	_, ok := s.Metric("fit")
	assert.False(t, ok)
}

func TestScorer_Threshold(t *testing.T) {
	s := NewScorer(0)
	s.AddMetric("fit", 0.6, 1.0)
	s.Compute()
	assert.True(t, s.MeetsThreshold(), "default threshold is 0.5")

	s.SetMinThreshold(0.75)
	assert.False(t, s.MeetsThreshold())
}

func TestScorer_HistoryStatistics(t *testing.T) {
	s := NewScorer(8)
	for _, v := range []float64{0.2, 0.4, 0.6} {
		s.ResetMetrics()
		s.AddMetric("fit", v, 1.0)
		s.Compute()
	}

	assert.InDelta(t, 0.4, s.Mean(), 1e-9)
	assert.Greater(t, s.StdDev(), 0.0)
	assert.InDelta(t, 0.2, s.Trend(), 1e-9, "scores improve by 0.2 per step")

	s.ClearHistory()
	assert.Equal(t, 0.0, s.Mean())
	assert.Equal(t, 0.0, s.Trend())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 0.0, Normalize(-0.5))
	assert.Equal(t, 1.0, Normalize(2.0))
	assert.Equal(t, 0.3, Normalize(0.3))
}

func TestCombine_GeometricMeanIsConservative(t *testing.T) {
	c := Combine(0.9, 0.1, 1.0, 1.0)
	assert.Less(t, c, 0.5, "one weak input drags the blend down")
	assert.Equal(t, 0.0, Combine(0.9, 0.1, 0, 0))
}

func TestFromError_DecayCalibration(t *testing.T) {
	assert.InDelta(t, 1.0, FromError(0, 10), 1e-9)
	assert.InDelta(t, 0.1, FromError(10, 10), 0.01, "confidence hits 0.1 at maxError")
	assert.Equal(t, 0.0, FromError(1, 0))
}

func TestFromDistance_LinearDecay(t *testing.T) {
	assert.Equal(t, 1.0, FromDistance(0, 100))
	assert.InDelta(t, 0.5, FromDistance(50, 100), 1e-9)
	assert.Equal(t, 0.0, FromDistance(150, 100))
	assert.Equal(t, 0.0, FromDistance(1, 0))
}
