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
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/samples"
)

// multiScaleLevels controls how many geometric step reductions the
// candidate sweep performs around the current midpoint.
const multiScaleLevels = 6

// MultiScale is phase 4: sweep candidate values at geometrically
// decreasing steps around the current midpoint, score each candidate by
// its lattice-embedding distance to the target's embedding, and keep a
// window of prevRange/20 around the winner.
//
// Candidate scoring fans out across goroutines; the reduction is
// deterministic, the lowest candidate value wins a tied score.
type MultiScale struct {
	n       uint64
	workers int
}

// NewMultiScale creates phase 4 for the domain [0, n). workers bounds
// the scoring goroutines; values < 1 fall back to GOMAXPROCS.
func NewMultiScale(n uint64, workers int) *MultiScale {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &MultiScale{n: n, workers: workers}
}

func (m *MultiScale) Phase() int          { return 4 }
func (m *MultiScale) Description() string { return "multi-scale search" }
func (m *MultiScale) Mandatory() bool     { return false }

func (m *MultiScale) Estimate(ctx context.Context, prev domain.Bounds, store *samples.Store, target uint64) (domain.PhaseResult, error) {
	candidates := m.candidates(prev)
	targetPoint := embed(target)

	scores := make([]float64, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores[i] = latticeDistance(embed(c), targetPoint)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.PhaseResult{}, err
	}

	best, bestScore := candidates[0], scores[0]
	for i := 1; i < len(candidates); i++ {
		if scores[i] < bestScore || (scores[i] == bestScore && candidates[i] < best) {
			best, bestScore = candidates[i], scores[i]
		}
	}

	margin := prev.Width() / 20
	if margin == 0 {
		margin = 1
	}
	lo := best
	if lo > margin {
		lo -= margin
	} else {
		lo = 0
	}
	proposed := domain.Bounds{Min: lo, Max: best + margin}

	conf := math.Max(0.55, 1-bestScore/latticeDiameter)
	return result(4, m.Description(), prev, proposed, conf, m.n), nil
}

// candidates enumerates midpoint ± k·step for geometrically shrinking
// steps, deduplicated and sorted by construction order; the midpoint
// itself always participates.
func (m *MultiScale) candidates(prev domain.Bounds) []uint64 {
	mid := prev.Midpoint()
	step := prev.Width() / 4
	seen := make(map[uint64]struct{})
	out := []uint64{mid}
	seen[mid] = struct{}{}

	add := func(v uint64) {
		if !prev.Contains(v) {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	for level := 0; level < multiScaleLevels && step > 0; level++ {
		for k := uint64(1); k <= 2; k++ {
			if mid >= k*step {
				add(mid - k*step)
			}
			add(mid + k*step)
		}
		step /= 2
	}
	return out
}
