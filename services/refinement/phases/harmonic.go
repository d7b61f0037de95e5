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
	foldingHarmonics = 12
	foldingDepth     = 3
)

// HarmonicFolding is phase 6: pass both bound endpoints through a
// 12-harmonic folding transform applied to depth 3, unfold, and clamp
// the pulled-in endpoints back into the current bounds. The fold
// contracts toward self-similar fixed points, so the unfolded endpoints
// land strictly inside the originals whenever the interval shows
// harmonic structure.
type HarmonicFolding struct {
	n uint64
}

// NewHarmonicFolding creates phase 6 for the domain [0, n).
func NewHarmonicFolding(n uint64) *HarmonicFolding { return &HarmonicFolding{n: n} }

func (h *HarmonicFolding) Phase() int          { return 6 }
func (h *HarmonicFolding) Description() string { return "harmonic folding" }
func (h *HarmonicFolding) Mandatory() bool     { return false }

// Estimate needs no samples; the fold operates on the bounds alone.
func (h *HarmonicFolding) Estimate(_ context.Context, prev domain.Bounds, _ *samples.Store, _ uint64) (domain.PhaseResult, error) {
	width := float64(prev.Width())
	if width < 2 {
		return result(6, h.Description(), prev, prev, 0.88, h.n), nil
	}

	foldedLo, simLo := fold(float64(prev.Min), width)
	foldedHi, simHi := fold(float64(prev.Max), width)

	lo := math.Min(foldedLo, foldedHi)
	hi := math.Max(foldedLo, foldedHi)
	proposed := domain.Bounds{
		Min: uint64(math.Max(lo, float64(prev.Min))),
		Max: uint64(math.Min(hi, float64(prev.Max))),
	}

	// Self-similarity of the compression weights the base confidence:
	// identical contraction at both endpoints means the interval folds
	// cleanly onto itself.
	similarity := 1 - math.Abs(simLo-simHi)
	conf := 0.88 * (0.7 + 0.3*similarity)
	return result(6, h.Description(), prev, proposed, conf, h.n), nil
}

// fold applies the harmonic folding transform to v at the interval
// scale and returns the unfolded value with its compression ratio.
func fold(v, scale float64) (float64, float64) {
	folded := v
	for depth := 1; depth <= foldingDepth; depth++ {
		var sum float64
		for k := 1; k <= foldingHarmonics; k++ {
			sum += math.Sin(2*math.Pi*float64(k)*folded/scale) / float64(k)
		}
		// The harmonic sum lives in roughly [-pi/2, pi/2]; pull the
		// value toward the interval interior proportionally.
		folded -= sum * scale / (2 * math.Pi * float64(depth) * float64(foldingHarmonics))
	}
	compression := math.Abs(folded-v) / scale
	return folded, compression
}
