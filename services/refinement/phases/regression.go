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
	modelFeatures  = 10
	modelEpochs    = 100
	modelLearnRate = 0.01
)

// LearnedModel is phase 9: a small linear model over ten hand-built
// features of the output value, gradient-descent trained on the samples
// to predict the preimage. The prediction interval, widened by the
// worst training residual, is intersected with the previous bounds.
//
// Weights start at zero and training is plain full-batch descent, so
// identical samples always reproduce the identical model.
type LearnedModel struct {
	n uint64
}

// NewLearnedModel creates phase 9 for the domain [0, n).
func NewLearnedModel(n uint64) *LearnedModel { return &LearnedModel{n: n} }

func (l *LearnedModel) Phase() int          { return 9 }
func (l *LearnedModel) Description() string { return "learned model prediction" }
func (l *LearnedModel) Mandatory() bool     { return false }

func (l *LearnedModel) Estimate(_ context.Context, prev domain.Bounds, store *samples.Store, target uint64) (domain.PhaseResult, error) {
	if err := needSamples(store, 1); err != nil {
		return domain.PhaseResult{}, err
	}

	items := store.All()
	scale := math.Max(float64(l.n), 1)

	features := make([][modelFeatures]float64, len(items))
	labels := make([]float64, len(items))
	for i, s := range items {
		features[i] = modelFeatureVector(s.Output)
		labels[i] = float64(s.Input) / scale
	}

	var weights [modelFeatures]float64
	var bias float64
	for epoch := 0; epoch < modelEpochs; epoch++ {
		var gradW [modelFeatures]float64
		var gradB float64
		for i := range features {
			pred := bias
			for f := 0; f < modelFeatures; f++ {
				pred += weights[f] * features[i][f]
			}
			err := pred - labels[i]
			for f := 0; f < modelFeatures; f++ {
				gradW[f] += err * features[i][f]
			}
			gradB += err
		}
		m := float64(len(features))
		for f := 0; f < modelFeatures; f++ {
			weights[f] -= modelLearnRate * gradW[f] / m
		}
		bias -= modelLearnRate * gradB / m
	}

	predict := func(output uint64) float64 {
		fv := modelFeatureVector(output)
		p := bias
		for f := 0; f < modelFeatures; f++ {
			p += weights[f] * fv[f]
		}
		return p * scale
	}

	// Worst residual over the training set widens the prediction into
	// an interval; the capture rate over the same set becomes the
	// confidence.
	var maxResidual float64
	captured := 0
	for _, s := range items {
		p := predict(s.Output)
		resid := math.Abs(p - float64(s.Input))
		if resid > maxResidual {
			maxResidual = resid
		}
	}

	center := predict(target)
	margin := math.Max(maxResidual, float64(l.n)/1000)
	lo := math.Max(center-margin, 0)
	hi := math.Min(center+margin, float64(l.n))
	if lo >= hi {
		lo, hi = math.Max(center-1, 0), math.Min(center+1, float64(l.n))
	}
	proposed := domain.Bounds{Min: uint64(lo), Max: uint64(hi)}

	for _, s := range items {
		p := predict(s.Output)
		if math.Abs(p-float64(s.Input)) <= margin {
			captured++
		}
	}
	conf := float64(captured) / float64(len(items))

	narrowed, ok := proposed.Intersect(prev)
	if !ok {
		return domain.PhaseResult{}, ErrDegenerateInput
	}
	return result(9, l.Description(), prev, narrowed, conf, l.n), nil
}

// modelFeatureVector builds the ten features of an output value:
// residues mod 12/60/100, magnitude, pairwise interactions, quadratics,
// and the log of the value.
func modelFeatureVector(v uint64) [modelFeatures]float64 {
	m12 := float64(v%12) / 12
	m60 := float64(v%60) / 60
	m100 := float64(v%100) / 100
	mag := math.Log1p(float64(v)) / 50
	return [modelFeatures]float64{
		m12,
		m60,
		m100,
		mag,
		m12 * m60,
		m60 * m100,
		m12 * m12,
		m60 * m60,
		m100 * m100,
		math.Log1p(mag),
	}
}
