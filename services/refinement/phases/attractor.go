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

	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/samples"
)

// Tower-table shape: six prime bases, depths 29 through 59.
const (
	attractorMinDepth = 29
	attractorMaxDepth = 59
)

var attractorBases = [6]uint32{2, 3, 5, 7, 11, 13}

// AttractorBias is phase 1: bias the current range toward a small set
// of precomputed stable attractor values.
//
// The attractor table is a grid of exponential towers in logarithmic
// representation (log value = depth · ln base), normalized onto the
// domain. The phase shaves ten percent off each side of the previous
// bounds and re-centers the cut toward the attractor nearest the
// midpoint; its confidence reflects how close that attractor was.
type AttractorBias struct {
	n          uint64
	attractors []uint64 // sorted ascending, values in [0, n)
}

// NewAttractorBias creates phase 1 with its attractor table
// precomputed for the domain [0, n).
func NewAttractorBias(n uint64) *AttractorBias {
	a := &AttractorBias{n: n}
	if n == 0 {
		return a
	}
	maxLog := float64(attractorMaxDepth) * math.Log(float64(attractorBases[len(attractorBases)-1]))
	for _, base := range attractorBases {
		for depth := attractorMinDepth; depth <= attractorMaxDepth; depth++ {
			logValue := float64(depth) * math.Log(float64(base))
			v := uint64(logValue / maxLog * float64(n-1))
			a.attractors = append(a.attractors, v)
		}
	}
	return a
}

func (a *AttractorBias) Phase() int          { return 1 }
func (a *AttractorBias) Description() string { return "attractor bias" }
func (a *AttractorBias) Mandatory() bool     { return false }

// Attractors exposes the precomputed table; used by tests and by the
// recursive phase for tie-break diagnostics.
func (a *AttractorBias) Attractors() []uint64 { return a.attractors }

// Estimate runs sample-free: the attractor table is precomputed, so an
// empty store only lowers the confidence, it does not fail the phase.
func (a *AttractorBias) Estimate(_ context.Context, prev domain.Bounds, store *samples.Store, _ uint64) (domain.PhaseResult, error) {
	width := prev.Width()
	cut := width / 10

	proposed := domain.Bounds{Min: prev.Min + cut, Max: prev.Max - cut}
	if proposed.Min >= proposed.Max {
		proposed = prev
	}

	// Re-center the cut toward the nearest attractor when one falls
	// inside the narrowed range.
	mid := prev.Midpoint()
	nearest, dist := a.nearest(mid)
	if proposed.Contains(nearest) {
		half := proposed.Width() / 2
		recentered := domain.Bounds{Min: 0, Max: a.n}
		if nearest > half {
			recentered.Min = nearest - half
		}
		if nearest+half < a.n {
			recentered.Max = nearest + half
		}
		if clamped, ok := recentered.Intersect(prev); ok && clamped.Width() > 0 {
			proposed = clamped
		}
	}

	conf := 0.8
	if width > 0 {
		// Attractor proximity relative to the current width scales the
		// base confidence by up to ±0.1.
		proximity := 1.0 - math.Min(dist/float64(width), 1.0)
		conf = 0.7 + 0.2*proximity
	}
	if store.Len() == 0 {
		conf *= 0.75 // no observations corroborate the bias
	}
	return result(1, a.Description(), prev, proposed, conf, a.n), nil
}

// nearest returns the attractor closest to v and its absolute distance.
func (a *AttractorBias) nearest(v uint64) (uint64, float64) {
	best := uint64(0)
	bestDist := math.Inf(1)
	for _, at := range a.attractors {
		var d float64
		if at > v {
			d = float64(at - v)
		} else {
			d = float64(v - at)
		}
		if d < bestDist {
			bestDist = d
			best = at
		}
	}
	return best, bestDist
}
