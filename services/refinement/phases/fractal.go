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

// fractalPartitions is how many equal slices of the current bounds the
// phase scores against the sample centroid.
const fractalPartitions = 8

// FractalBounds is phase 3: embed the samples into the 13-dimensional
// lattice, partition the current bounds into equal slices, and keep the
// neighborhood of the slice whose midpoint embedding sits nearest the
// sample centroid.
type FractalBounds struct {
	n uint64
}

// NewFractalBounds creates phase 3 for the domain [0, n).
func NewFractalBounds(n uint64) *FractalBounds { return &FractalBounds{n: n} }

func (f *FractalBounds) Phase() int          { return 3 }
func (f *FractalBounds) Description() string { return "fractal bounds estimation" }
func (f *FractalBounds) Mandatory() bool     { return false }

func (f *FractalBounds) Estimate(_ context.Context, prev domain.Bounds, store *samples.Store, _ uint64) (domain.PhaseResult, error) {
	if err := needSamples(store, 1); err != nil {
		return domain.PhaseResult{}, err
	}

	// Weighted centroid of the sample embeddings.
	var centroid latticePoint
	var weightSum float64
	for i := 0; i < store.Len(); i++ {
		s := store.At(i)
		w := s.Weight
		if w <= 0 {
			w = 1
		}
		p := embed(s.Input)
		for d := 0; d < latticeDims; d++ {
			centroid[d] += p[d] * w
		}
		weightSum += w
	}
	for d := 0; d < latticeDims; d++ {
		centroid[d] /= weightSum
	}

	width := prev.Width()
	if width < fractalPartitions {
		// Too narrow to slice; keep bounds, report the floor.
		return result(3, f.Description(), prev, prev, 0.70, f.n), nil
	}

	slice := width / fractalPartitions
	bestIdx, bestDist := 0, math.Inf(1)
	for i := 0; i < fractalPartitions; i++ {
		mid := prev.Min + uint64(i)*slice + slice/2
		d := latticeDistance(embed(mid), centroid)
		if d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}

	// Proximity in lattice space sets the confidence; the shave per
	// side follows (1-confidence)/2 of the winning neighborhood.
	conf := math.Max(0.5, 1-bestDist/latticeDiameter)
	lo := prev.Min + uint64(bestIdx)*slice
	hi := lo + slice
	// Expand the winning slice to its immediate neighborhood so one
	// noisy sample cannot evict the preimage.
	if lo >= prev.Min+slice {
		lo -= slice
	} else {
		lo = prev.Min
	}
	if hi+slice <= prev.Max {
		hi += slice
	} else {
		hi = prev.Max
	}

	shave := uint64(float64(hi-lo) * (1 - conf) / 2)
	proposed := domain.Bounds{Min: lo + shave, Max: hi - shave}
	return result(3, f.Description(), prev, proposed, conf, f.n), nil
}
