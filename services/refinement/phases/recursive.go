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

const (
	recursionMaxDepth   = 5
	recursionConfTarget = 0.90
	recursionRangeFloor = 100
)

// subdivisionState is the accumulator threaded through the recursion:
// current depth and total subdivisions performed. Each level receives
// its own copy, so no state is shared across recursive calls.
type subdivisionState struct {
	depth        int
	subdivisions int
}

// Recursive is phase 8: binary subdivision of the current bounds,
// keeping the half whose midpoint embedding lies nearer the target's
// embedding. Recursion stops at depth 5, at confidence 0.90, or once
// the range drops under 100.
type Recursive struct {
	n uint64
}

// NewRecursive creates phase 8 for the domain [0, n).
func NewRecursive(n uint64) *Recursive { return &Recursive{n: n} }

func (r *Recursive) Phase() int          { return 8 }
func (r *Recursive) Description() string { return "recursive subdivision" }
func (r *Recursive) Mandatory() bool     { return false }

// Estimate needs no samples; subdivision is driven by the target's
// lattice embedding alone.
func (r *Recursive) Estimate(_ context.Context, prev domain.Bounds, _ *samples.Store, target uint64) (domain.PhaseResult, error) {
	bounds, conf, _ := r.subdivide(prev, embed(target), subdivisionState{})
	return result(8, r.Description(), prev, bounds, conf, r.n), nil
}

// subdivide recurses on b, returning the refined bounds, their
// confidence, and the final accumulator.
func (r *Recursive) subdivide(b domain.Bounds, target latticePoint, st subdivisionState) (domain.Bounds, float64, subdivisionState) {
	conf := r.confidence(b, st)
	if st.depth >= recursionMaxDepth || conf >= recursionConfTarget || b.Width() < recursionRangeFloor {
		return b, conf, st
	}

	mid := b.Midpoint()
	left := domain.Bounds{Min: b.Min, Max: mid}
	right := domain.Bounds{Min: mid, Max: b.Max}

	next := right
	if latticeDistance(embed(left.Midpoint()), target) <= latticeDistance(embed(right.Midpoint()), target) {
		next = left
	}
	return r.subdivide(next, target, subdivisionState{
		depth:        st.depth + 1,
		subdivisions: st.subdivisions + 1,
	})
}

// confidence blends how small the range has become with how deep the
// subdivision went (0.7 / 0.3 respectively).
func (r *Recursive) confidence(b domain.Bounds, st subdivisionState) float64 {
	sizeConf := 1 - float64(b.Width())/math.Max(float64(r.n), 1)
	depthConf := float64(st.depth) / recursionMaxDepth
	return 0.7*sizeConf + 0.3*depthConf
}
