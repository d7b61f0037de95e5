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
	"fmt"
	"math"

	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/samples"
)

// maxHypotheses caps how many periodic components the phase tracks.
const maxHypotheses = 20

// periodicHypothesis is one tracked oscillation of the sample inputs:
// a candidate explanation "the preimage oscillates around center with
// this amplitude", giving a plausible range center ± amplitude/2.
type periodicHypothesis struct {
	frequency  float64
	amplitude  float64
	phase      float64
	center     float64
	confidence float64 // component energy / signal energy
	min, max   float64
}

// Intersection is phase 2: decompose the sample-input series into
// periodic components, derive a plausible range per component, and
// intersect every plausible range with the previous bounds.
//
// The half-amplitude bound per component deliberately undercuts the
// full swing; it trades capture rate for a tighter intersection.
type Intersection struct {
	n uint64
}

// NewIntersection creates phase 2 for the domain [0, n).
func NewIntersection(n uint64) *Intersection { return &Intersection{n: n} }

func (x *Intersection) Phase() int          { return 2 }
func (x *Intersection) Description() string { return "intersection refinement" }
func (x *Intersection) Mandatory() bool     { return false }

// Estimate requires at least two samples; a single point carries no
// periodic information. An empty intersection is a phase failure.
func (x *Intersection) Estimate(_ context.Context, prev domain.Bounds, store *samples.Store, _ uint64) (domain.PhaseResult, error) {
	if err := needSamples(store, 2); err != nil {
		return domain.PhaseResult{}, err
	}

	series := make([]float64, store.Len())
	for i := range series {
		series[i] = float64(store.At(i).Input)
	}

	hypotheses := decomposePeriodic(series, float64(x.n))
	if len(hypotheses) == 0 {
		return domain.PhaseResult{}, fmt.Errorf("%w: no periodic component found", ErrDegenerateInput)
	}

	// Intersect all plausible ranges, then the previous bounds.
	lo, hi := hypotheses[0].min, hypotheses[0].max
	var confSum float64
	for _, h := range hypotheses {
		if h.min > lo {
			lo = h.min
		}
		if h.max < hi {
			hi = h.max
		}
		confSum += h.confidence
	}
	if lo > hi {
		return domain.PhaseResult{}, fmt.Errorf("%w: periodic ranges are disjoint", ErrDegenerateInput)
	}

	proposed := domain.Bounds{Min: uint64(math.Max(lo, 0)), Max: uint64(math.Min(hi, float64(x.n)))}
	narrowed, ok := proposed.Intersect(prev)
	if !ok || narrowed.Width() == 0 {
		return domain.PhaseResult{}, fmt.Errorf("%w: intersection misses previous bounds", ErrDegenerateInput)
	}

	// Base confidence 0.85 as long as the components jointly explain
	// the signal; scale down with unexplained energy.
	explained := math.Min(confSum, 1.0)
	conf := 0.85 * (0.5 + 0.5*explained)
	return result(2, x.Description(), prev, narrowed, conf, x.n), nil
}

// decomposePeriodic correlates the series against harmonics of the
// observation window and keeps every component that explains a
// non-trivial share of the signal energy.
func decomposePeriodic(series []float64, domainSize float64) []periodicHypothesis {
	n := len(series)
	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(n)

	var signalEnergy float64
	for _, v := range series {
		d := v - mean
		signalEnergy += d * d
	}
	if signalEnergy < 1e-10 {
		// A constant series is one trivially stable hypothesis.
		return []periodicHypothesis{{
			center:     mean,
			confidence: 1,
			min:        mean,
			max:        mean + 1,
		}}
	}

	var out []periodicHypothesis
	for h := 1; h <= maxHypotheses && h < n; h++ {
		freq := float64(h) / float64(n)
		var sumCos, sumSin float64
		for i, v := range series {
			angle := 2 * math.Pi * freq * float64(i)
			sumCos += (v - mean) * math.Cos(angle)
			sumSin += (v - mean) * math.Sin(angle)
		}
		amplitude := 2 * math.Sqrt(sumCos*sumCos+sumSin*sumSin) / float64(n)
		componentEnergy := amplitude * amplitude * float64(n) / 2
		conf := componentEnergy / signalEnergy
		if conf < 0.05 {
			continue
		}
		hp := periodicHypothesis{
			frequency:  freq,
			amplitude:  amplitude,
			phase:      math.Atan2(sumSin, sumCos),
			center:     mean,
			confidence: conf,
			min:        math.Max(mean-amplitude/2, 0),
			max:        math.Min(mean+amplitude/2, domainSize),
		}
		if hp.min >= hp.max {
			continue
		}
		out = append(out, hp)
	}
	return out
}
