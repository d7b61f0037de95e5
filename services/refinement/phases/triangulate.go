// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phases

import (
	"context"
	"math"

	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/confidence"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/samples"
)

// Triangulation is phase 0: fit a small parametric model to the
// samples, invert it at the target, and bound the estimate by an
// empirical error margin of one percent of the domain.
//
// The model is a weighted least-squares line input = a·output + b.
// When the sample set is too small or too flat to fit a line, the
// estimate degrades to the weighted mean of the sample inputs.
type Triangulation struct {
	n uint64
}

// NewTriangulation creates phase 0 for the domain [0, n).
func NewTriangulation(n uint64) *Triangulation { return &Triangulation{n: n} }

func (t *Triangulation) Phase() int          { return 0 }
func (t *Triangulation) Description() string { return "initial triangulation" }
func (t *Triangulation) Mandatory() bool     { return true }

// Estimate inverts the fitted model at target and returns estimate
// ± n/100, clamped to the domain. Requires at least one sample.
func (t *Triangulation) Estimate(_ context.Context, prev domain.Bounds, store *samples.Store, target uint64) (domain.PhaseResult, error) {
	if err := needSamples(store, 1); err != nil {
		return domain.PhaseResult{}, err
	}

	estimate, residual := t.invert(store, target)

	margin := t.n / 100
	if margin == 0 {
		margin = 1
	}
	proposed := domain.Bounds{Min: 0, Max: t.n}
	if estimate > margin {
		proposed.Min = estimate - margin
	}
	if estimate+margin < t.n {
		proposed.Max = estimate + margin
	}

	// Residual error relative to the domain drives the confidence:
	// a perfect fit approaches 1, a fit off by the whole domain
	// approaches 0.
	conf := confidence.FromError(residual, float64(t.n))
	if store.Len() == 1 {
		// A single sample cannot validate the model; cap the claim.
		conf = math.Min(conf, 0.5)
	}
	return result(0, t.Description(), prev, proposed, conf, t.n), nil
}

// invert fits the weighted line and evaluates it at target. Returns the
// clamped estimate and the weighted RMS residual of the fit.
func (t *Triangulation) invert(store *samples.Store, target uint64) (uint64, float64) {
	var sumW, sumX, sumY, sumXY, sumXX float64
	for i := 0; i < store.Len(); i++ {
		s := store.At(i)
		w := s.Weight
		if w <= 0 {
			w = 1
		}
		x := float64(s.Output)
		y := float64(s.Input)
		sumW += w
		sumX += w * x
		sumY += w * y
		sumXY += w * x * y
		sumXX += w * x * x
	}

	den := sumW*sumXX - sumX*sumX
	var a, b float64
	if math.Abs(den) < 1e-10 {
		// Flat in output; fall back to the weighted mean input.
		a = 0
		b = sumY / sumW
	} else {
		a = (sumW*sumXY - sumX*sumY) / den
		b = (sumY - a*sumX) / sumW
	}

	var residualSq float64
	for i := 0; i < store.Len(); i++ {
		s := store.At(i)
		w := s.Weight
		if w <= 0 {
			w = 1
		}
		pred := a*float64(s.Output) + b
		d := pred - float64(s.Input)
		residualSq += w * d * d
	}
	residual := math.Sqrt(residualSq / sumW)

	raw := a*float64(target) + b
	if raw < 0 {
		raw = 0
	}
	if raw > float64(t.n) {
		raw = float64(t.n)
	}
	return uint64(raw), residual
}
