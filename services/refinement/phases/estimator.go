// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package phases implements the ten estimator strategies of the
// refinement pipeline. Each strategy consumes the previous phase's
// bounds, the read-only sample store and the target output, and
// produces narrowed bounds with a base confidence.
//
// # Contract
//
// Every estimator must:
//
//   - never return bounds wider than the previous bounds (phase 0
//     starts from the full domain);
//   - return a base confidence in [0, 1] before enhancement;
//   - be idempotent for identical inputs — no hidden state, no
//     randomness; the phase-9 model trains from deterministic zero
//     initialization for this reason.
//
// Phases 0 (triangulation) and 5 (convergence check) are mandatory and
// never skipped; every other phase may be skipped by the adaptive
// controller.
package phases

import (
	"context"
	"errors"
	"fmt"

	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/samples"
)

// Sentinel errors reported as phase failures. The orchestrator recovers
// from them locally: the phase is marked incomplete and its bounds
// carry over unchanged.
var (
	// ErrNoSamples is returned by estimators that need at least one
	// sample when the store is empty.
	ErrNoSamples = errors.New("phase requires at least one sample")

	// ErrTooFewSamples is returned by estimators with a higher floor.
	ErrTooFewSamples = errors.New("phase requires more samples")

	// ErrDegenerateInput is returned when the inputs admit no estimate
	// (for example, all sample outputs identical in a fit phase).
	ErrDegenerateInput = errors.New("degenerate input for estimator")
)

// Estimator is one strategy in the ordered pipeline.
type Estimator interface {
	// Phase returns the strategy's fixed index in the pipeline.
	Phase() int

	// Description names the strategy for reports and logs.
	Description() string

	// Mandatory reports whether the adaptive controller may never skip
	// this phase.
	Mandatory() bool

	// Estimate narrows prev toward the unknown preimage of target.
	// On error the orchestrator records a phase failure and carries
	// prev forward unchanged.
	Estimate(ctx context.Context, prev domain.Bounds, store *samples.Store, target uint64) (domain.PhaseResult, error)
}

// Pipeline constructs the ten estimators, in order, for a domain [0, n).
func Pipeline(n uint64) []Estimator {
	return PipelineWithWorkers(n, 0)
}

// PipelineWithWorkers is Pipeline with an explicit worker bound for the
// multi-scale candidate sweep; workers < 1 means GOMAXPROCS.
func PipelineWithWorkers(n uint64, workers int) []Estimator {
	return []Estimator{
		NewTriangulation(n),
		NewAttractorBias(n),
		NewIntersection(n),
		NewFractalBounds(n),
		NewMultiScale(n, workers),
		NewConvergenceCheck(n),
		NewHarmonicFolding(n),
		NewSpherePacking(n),
		NewRecursive(n),
		NewLearnedModel(n),
	}
}

// result assembles a completed PhaseResult, clamping the bounds into
// prev so no estimator can violate the never-widen contract, and
// normalizing the confidence into [0, 1].
func result(phase int, desc string, prev, proposed domain.Bounds, conf float64, n uint64) domain.PhaseResult {
	b := proposed.ClampTo(prev)
	if b.Width() == 0 && prev.Width() > 0 {
		// Keep at least one candidate so the reduction factor stays finite.
		if b.Max < prev.Max {
			b.Max++
		} else if b.Min > prev.Min {
			b.Min--
		}
	}
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return domain.PhaseResult{
		Phase:       phase,
		Completed:   true,
		Bounds:      b,
		Confidence:  conf,
		Error:       relativeWidth(b, n),
		Description: desc,
	}
}

// relativeWidth is the bounds width as a fraction of the domain, the
// error series every phase feeds into its oscillation detector.
func relativeWidth(b domain.Bounds, n uint64) float64 {
	if n == 0 {
		return 0
	}
	return float64(b.Width()) / float64(n)
}

// needSamples returns a descriptive failure when the store holds fewer
// than min samples.
func needSamples(store *samples.Store, min int) error {
	if store.Len() >= min {
		return nil
	}
	if min <= 1 {
		return ErrNoSamples
	}
	return fmt.Errorf("%w: need %d, have %d", ErrTooFewSamples, min, store.Len())
}
