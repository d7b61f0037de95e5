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
	"fmt"

	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/adaptive"
)

// Config holds engine configuration options.
//
// # Description
//
// Config centralizes the pipeline knobs: adaptive control flags,
// thresholds, the oscillation-detector window, and the phase-4 worker
// pool size. Values can be populated from a YAML config file (the CLI
// does this), or programmatically for testing. Start from
// DefaultConfig() unless a test needs a feature off; a zero Config
// disables all adaptive behavior.
type Config struct {
	// EarlyStopEnabled lets the pipeline terminate once a phase is
	// confident enough or the range is small enough.
	EarlyStopEnabled bool `yaml:"early_stop_enabled"`

	// SkipEnabled lets skippable phases be bypassed when the prior
	// confidence already clears the skip threshold.
	SkipEnabled bool `yaml:"skip_enabled"`

	// DynamicThresholds enables threshold adjustment from the rolling
	// mean confidence of completed phases.
	DynamicThresholds bool `yaml:"dynamic_thresholds"`

	// EarlyStopThreshold is the enhanced-confidence level that stops
	// the run. Default: 0.95.
	EarlyStopThreshold float64 `yaml:"early_stop_threshold" validate:"gte=0,lte=1"`

	// SkipThreshold is the prior-confidence level that skips a
	// skippable phase. Default: 0.90.
	SkipThreshold float64 `yaml:"skip_threshold" validate:"gte=0,lte=1"`

	// RangeFloor is the bounds width below which the run stops early.
	// Default: 100.
	RangeFloor uint64 `yaml:"range_floor"`

	// DetectorWindow is the per-phase oscillation detector window.
	// Must be a power of two. Default: 8.
	DetectorWindow int `yaml:"detector_window" validate:"gte=0"`

	// Workers bounds phase-4 candidate scoring goroutines.
	// Default: GOMAXPROCS.
	Workers int `yaml:"workers" validate:"gte=0"`
}

// DefaultConfig returns the configuration the engine runs with when
// given a zero Config.
func DefaultConfig() Config {
	return Config{
		EarlyStopEnabled:   true,
		SkipEnabled:        true,
		DynamicThresholds:  true,
		EarlyStopThreshold: adaptive.DefaultEarlyStopThreshold,
		SkipThreshold:      adaptive.DefaultSkipThreshold,
		RangeFloor:         adaptive.DefaultRangeFloor,
		DetectorWindow:     defaultDetectorWindow,
		Workers:            0,
	}
}

// Validate rejects values the pipeline cannot run with. Zero values are
// legal everywhere; defaults fill them in at construction.
func (c Config) Validate() error {
	if c.EarlyStopThreshold < 0 || c.EarlyStopThreshold > 1 {
		return fmt.Errorf("early_stop_threshold %v outside [0,1]", c.EarlyStopThreshold)
	}
	if c.SkipThreshold < 0 || c.SkipThreshold > 1 {
		return fmt.Errorf("skip_threshold %v outside [0,1]", c.SkipThreshold)
	}
	if c.DetectorWindow != 0 && c.DetectorWindow&(c.DetectorWindow-1) != 0 {
		return fmt.Errorf("detector_window %d is not a power of two", c.DetectorWindow)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers %d is negative", c.Workers)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.DetectorWindow == 0 {
		c.DetectorWindow = defaultDetectorWindow
	}
	return c
}
