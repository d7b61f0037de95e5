// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oscillation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadDimensions(t *testing.T) {
	_, err := New(0, 8)
	assert.Error(t, err)
	_, err = New(-3, 8)
	assert.Error(t, err)
}

func TestNew_RejectsNonPowerOfTwoWindow(t *testing.T) {
	for _, window := range []int{0, 3, 6, 12, -8} {
		_, err := New(1, window)
		require.ErrorIs(t, err, ErrWindowNotPowerOfTwo, "window %d", window)
	}
	_, err := New(1, 16)
	assert.NoError(t, err)
}

func TestDetector_AnalyzeBeforeFull(t *testing.T) {
	d, err := New(1, 8)
	require.NoError(t, err)

	require.NoError(t, d.AddSample([]float64{1.0}))
	assert.False(t, d.Full())
	require.ErrorIs(t, d.Analyze(), ErrInsufficientData)
	_, err = d.Snapshot()
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestDetector_AddSampleRejectsShortVector(t *testing.T) {
	d, err := New(3, 8)
	require.NoError(t, err)
	assert.Error(t, d.AddSample([]float64{1.0, 2.0}))
}

func TestDetector_DetectsDominantSine(t *testing.T) {
	const window = 32
	d, err := New(1, window)
	require.NoError(t, err)

	// Two full cycles across the window: frequency bin 2, so f = 2/32.
	for i := 0; i < window; i++ {
		v := math.Sin(2 * math.Pi * 2 * float64(i) / window)
		require.NoError(t, d.AddSample([]float64{v}))
	}
	require.True(t, d.Full())
	require.NoError(t, d.Analyze())

	sig, err := d.Signature(0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/32.0, sig.Frequency, 1e-9)
	assert.InDelta(t, 0.5, sig.Amplitude, 1e-6, "unit sine has half-spectrum amplitude 0.5")
	assert.Greater(t, sig.Energy, 0.0)
}

func TestDetector_StableRequiresStreak(t *testing.T) {
	d, err := New(1, 8)
	require.NoError(t, err)
	d.SetMinStableIterations(3)

	// Near-constant series, coefficient of variation well under 0.1.
	for i := 0; i < 8; i++ {
		require.NoError(t, d.AddSample([]float64{5.0}))
	}

	for call := 1; call <= 3; call++ {
		require.NoError(t, d.Analyze())
		if call < 3 {
			assert.False(t, d.Stable(), "streak too short after %d calls", call)
		}
	}
	assert.True(t, d.Stable())

	// One unstable window resets the streak.
	for i := 0; i < 8; i++ {
		require.NoError(t, d.AddSample([]float64{float64(i * i)}))
	}
	require.NoError(t, d.Analyze())
	assert.False(t, d.Stable())
}

func TestDetector_ConvergingOnShrinkingSeries(t *testing.T) {
	d, err := New(1, 8)
	require.NoError(t, err)

	// Strictly decreasing: negative slope means positive convergence rate.
	for i := 0; i < 8; i++ {
		require.NoError(t, d.AddSample([]float64{8.0 - float64(i)}))
	}
	require.NoError(t, d.Analyze())
	assert.True(t, d.Converging())

	sig, err := d.Signature(0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sig.ConvergenceRate, 1e-9)
}

func TestDetector_NotConvergingOnGrowingSeries(t *testing.T) {
	d, err := New(1, 8)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		require.NoError(t, d.AddSample([]float64{float64(i)}))
	}
	require.NoError(t, d.Analyze())
	assert.False(t, d.Converging())
}

func TestDetector_CorrelationBounds(t *testing.T) {
	d, err := New(2, 16)
	require.NoError(t, err)

	for i := 0; i < 16; i++ {
		a := math.Sin(2 * math.Pi * 2 * float64(i) / 16)
		b := math.Sin(2 * math.Pi * 5 * float64(i) / 16)
		require.NoError(t, d.AddSample([]float64{a, b}))
	}
	require.NoError(t, d.Analyze())

	assert.Equal(t, 1.0, d.Correlation(0, 0))
	c := d.Correlation(0, 1)
	assert.Greater(t, c, 0.0)
	assert.Less(t, c, 1.0)
	assert.Equal(t, c, d.Correlation(1, 0), "correlation is symmetric")
	assert.Equal(t, 0.0, d.Correlation(0, 5), "out of range dimension")
}

func TestDetector_SnapshotAggregates(t *testing.T) {
	d, err := New(2, 8)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		require.NoError(t, d.AddSample([]float64{8.0 - float64(i), 16.0 - 2*float64(i)}))
	}
	require.NoError(t, d.Analyze())

	a, err := d.Snapshot()
	require.NoError(t, err)
	assert.True(t, a.Converging)
	assert.InDelta(t, 1.5, a.AvgConvergenceRate, 1e-9)
}

func TestDetector_Reset(t *testing.T) {
	d, err := New(1, 8)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		require.NoError(t, d.AddSample([]float64{1.0}))
	}
	require.NoError(t, d.Analyze())

	d.Reset()
	assert.False(t, d.Full())
	assert.False(t, d.Converging())
	require.ErrorIs(t, d.Analyze(), ErrInsufficientData)
}

func TestDetector_SignatureOutOfRange(t *testing.T) {
	d, err := New(1, 8)
	require.NoError(t, err)
	_, err = d.Signature(1)
	assert.Error(t, err)
	_, err = d.Signature(-1)
	assert.Error(t, err)
}
