// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package refinement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/samples"
)

func quietEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	eng, err := New(cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return eng
}

func testProvider() samples.Provider {
	return samples.SliceProvider{
		{Input: 42_000, Output: 99, Weight: 1.0},
		{Input: 43_500, Output: 120, Weight: 1.0},
		{Input: 41_200, Output: 87, Weight: 1.0},
	}
}

func TestEngine_RejectsEmptyDomain(t *testing.T) {
	eng := quietEngine(t, DefaultConfig())
	_, err := eng.Run(context.Background(), testProvider(), 99, 0)
	require.ErrorIs(t, err, ErrInvalidDomain)
}

func TestEngine_WrapsProviderFailure(t *testing.T) {
	eng := quietEngine(t, DefaultConfig())
	_, err := eng.Run(context.Background(), failingProvider{cause: errors.New("influx down")}, 99, 1000)
	require.ErrorIs(t, err, ErrSampleSource)
}

type failingProvider struct{ cause error }

func (p failingProvider) Samples(context.Context) ([]domain.Sample, error) {
	return nil, p.cause
}

func TestEngine_ReportShape(t *testing.T) {
	const n = 1_000_000
	eng := quietEngine(t, DefaultConfig())

	report, err := eng.Run(context.Background(), testProvider(), 99, n)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, uint64(99), report.Target)
	assert.Equal(t, uint64(n), report.N)
	require.Len(t, report.Phases, 10)
	require.Len(t, report.States, 10)
	assert.True(t, report.FinalBounds.SubsetOf(domain.FullRange(n)))
	assert.GreaterOrEqual(t, report.ReductionFactor, 1.0)
	assert.GreaterOrEqual(t, report.OverallConfidence, 0.0)
	assert.LessOrEqual(t, report.OverallConfidence, 1.0)
	assert.GreaterOrEqual(t, report.Duration.Nanoseconds(), int64(0))
}

func TestEngine_BoundsNeverWidenAcrossPhases(t *testing.T) {
	const n = 1_000_000
	cfg := DefaultConfig()
	cfg.EarlyStopEnabled = false
	cfg.SkipEnabled = false
	eng := quietEngine(t, cfg)

	report, err := eng.Run(context.Background(), testProvider(), 99, n)
	require.NoError(t, err)

	prev := domain.FullRange(n)
	for i, p := range report.Phases {
		if report.States[i] == domain.StateNotReached {
			continue
		}
		assert.True(t, p.Bounds.SubsetOf(prev),
			"phase %d widened %s to %s", i, prev, p.Bounds)
		prev = p.Bounds
	}
	assert.Equal(t, prev, report.FinalBounds)
}

func TestEngine_ReductionFactorIdentity(t *testing.T) {
	const n = 1_000_000
	eng := quietEngine(t, DefaultConfig())

	report, err := eng.Run(context.Background(), testProvider(), 99, n)
	require.NoError(t, err)
	require.Greater(t, report.FinalBounds.Width(), uint64(0))
	assert.InDelta(t, float64(n)/float64(report.FinalBounds.Width()), report.ReductionFactor, 1e-9)
}

// TestEngine_SkipThresholdZeroSkipsEverythingSkippable drops the skip
// bar to zero: every non-mandatory phase copies its predecessor's result
// verbatim, and the mandatory convergence checkpoint keeps the bounds,
// so the final bounds are exactly the phase-0 bounds.
func TestEngine_SkipThresholdZeroSkipsEverythingSkippable(t *testing.T) {
	const n = 1_000_000
	cfg := DefaultConfig()
	cfg.SkipThreshold = 0
	cfg.EarlyStopEnabled = false
	cfg.DynamicThresholds = false
	eng := quietEngine(t, cfg)

	report, err := eng.Run(context.Background(), testProvider(), 99, n)
	require.NoError(t, err)

	assert.Equal(t, 8, report.PhasesSkipped)
	for i, state := range report.States {
		if i == 0 || i == 5 {
			assert.Equal(t, domain.StateCompleted, state, "phase %d is mandatory", i)
			continue
		}
		assert.Equal(t, domain.StateSkipped, state, "phase %d", i)
		assert.Equal(t, report.Phases[i-1], report.Phases[i],
			"a skipped slot must copy its predecessor verbatim")
	}

	assert.Equal(t, report.Phases[0].Bounds, report.FinalBounds,
		"only phase 0 narrows when everything else is skipped")
	assert.Equal(t, report.Phases[0].Bounds, report.Phases[5].Bounds,
		"the checkpoint never moves bounds")
	assert.Equal(t, 0, report.EarlyStoppedAt)
}

// TestEngine_StopThresholdZeroStopsAfterPhaseZero drops the stop bar to
// zero: the run terminates right after the first completed phase and all
// later slots are marked not reached with zero-value results.
func TestEngine_StopThresholdZeroStopsAfterPhaseZero(t *testing.T) {
	const n = 1_000_000
	cfg := DefaultConfig()
	cfg.EarlyStopThreshold = 0
	cfg.SkipEnabled = false
	cfg.DynamicThresholds = false
	eng := quietEngine(t, cfg)

	report, err := eng.Run(context.Background(), testProvider(), 99, n)
	require.NoError(t, err)

	assert.Equal(t, 1, report.EarlyStoppedAt)
	assert.Equal(t, domain.StateCompleted, report.States[0])
	for i := 1; i < 10; i++ {
		assert.Equal(t, domain.StateNotReached, report.States[i], "phase %d", i)
		assert.False(t, report.Phases[i].Completed, "phase %d", i)
		assert.Equal(t, domain.Bounds{}, report.Phases[i].Bounds, "phase %d", i)
	}
	assert.Equal(t, report.Phases[0].Bounds, report.FinalBounds)
	assert.InDelta(t, report.Phases[0].Confidence, report.OverallConfidence, 1e-9,
		"overall confidence averages the single completed phase")
}

// TestEngine_ZeroSamplesRecoversSampleHungryPhases runs with no samples
// at all: the sample-hungry phases fail and carry bounds forward, the
// sample-free phases still narrow, and the run completes without error.
func TestEngine_ZeroSamplesRecoversSampleHungryPhases(t *testing.T) {
	const n = 1_000_000
	cfg := DefaultConfig()
	cfg.EarlyStopEnabled = false
	cfg.SkipEnabled = false
	eng := quietEngine(t, cfg)

	report, err := eng.Run(context.Background(), nil, 0, n)
	require.NoError(t, err)

	assert.Equal(t, domain.StateFailed, report.States[0], "triangulation needs samples")
	assert.False(t, report.Phases[0].Completed)
	assert.Equal(t, domain.FullRange(n), report.Phases[0].Bounds,
		"a failed phase carries the previous bounds unchanged")
	assert.Equal(t, 0.0, report.Phases[0].Confidence)

	assert.Equal(t, domain.StateCompleted, report.States[1], "attractor bias is sample-free")
	assert.True(t, report.FinalBounds.SubsetOf(domain.FullRange(n)))
}

// TestEngine_DeterministicModuloRunMetadata runs the same input twice
// and requires identical outcomes apart from the run ID and timestamps.
func TestEngine_DeterministicModuloRunMetadata(t *testing.T) {
	const n = 500_000
	cfg := DefaultConfig()
	cfg.Workers = 2
	eng := quietEngine(t, cfg)

	r1, err := eng.Run(context.Background(), testProvider(), 120, n)
	require.NoError(t, err)
	r2, err := eng.Run(context.Background(), testProvider(), 120, n)
	require.NoError(t, err)

	assert.NotEqual(t, r1.RunID, r2.RunID)
	assert.Equal(t, r1.Phases, r2.Phases)
	assert.Equal(t, r1.States, r2.States)
	assert.Equal(t, r1.FinalBounds, r2.FinalBounds)
	assert.Equal(t, r1.ReductionFactor, r2.ReductionFactor)
	assert.Equal(t, r1.OverallConfidence, r2.OverallConfidence)
	assert.Equal(t, r1.PhasesSkipped, r2.PhasesSkipped)
	assert.Equal(t, r1.EarlyStoppedAt, r2.EarlyStoppedAt)
}

func TestEngine_CanceledContext(t *testing.T) {
	eng := quietEngine(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Run(ctx, testProvider(), 99, 1000)
	require.ErrorIs(t, err, context.Canceled)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults pass", mutate: func(*Config) {}},
		{name: "zero config passes", mutate: func(c *Config) { *c = Config{} }},
		{name: "stop threshold above one", mutate: func(c *Config) { c.EarlyStopThreshold = 1.5 }, wantErr: true},
		{name: "skip threshold negative", mutate: func(c *Config) { c.SkipThreshold = -0.1 }, wantErr: true},
		{name: "detector window not power of two", mutate: func(c *Config) { c.DetectorWindow = 6 }, wantErr: true},
		{name: "negative workers", mutate: func(c *Config) { c.Workers = -1 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DetectorWindow = 3
	_, err := New(cfg)
	require.Error(t, err)
}
