// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package confidence combines named, weighted quality metrics into a
// single score in [0, 1] and tracks score history for trend analysis.
//
// Scores produced here are heuristic ranking signals. Nothing in the
// engine validates them against ground truth, so they must never be
// read as calibrated probabilities.
package confidence

import (
	"math"
)

// Metric is one named component of a score.
type Metric struct {
	Name   string
	Value  float64 // clamped to [0, 1]
	Weight float64 // >= 0; zero-weight metrics contribute nothing
	Valid  bool
}

// Scorer maintains a growable metric set plus an optional bounded
// history ring of overall scores. One scorer is created per phase; the
// metric set is discarded with the scorer while the history survives
// across Compute calls for trend analysis.
//
// Not safe for concurrent use.
type Scorer struct {
	metrics []Metric

	history  []float64
	histPos  int
	histSeen int

	overall      float64
	minThreshold float64

	mean   float64
	stddev float64
	trend  float64
}

// NewScorer creates a scorer with the given history capacity. A zero
// capacity disables history (and trend analysis).
func NewScorer(historySize int) *Scorer {
	s := &Scorer{minThreshold: 0.5}
	if historySize > 0 {
		s.history = make([]float64, historySize)
	}
	return s
}

// AddMetric inserts a metric, or updates its value when the name is
// already present. Non-positive weights are coerced to 1.0.
func (s *Scorer) AddMetric(name string, value, weight float64) {
	if idx := s.find(name); idx >= 0 {
		s.metrics[idx].Value = Normalize(value)
		s.metrics[idx].Valid = true
		return
	}
	if weight <= 0 {
		weight = 1.0
	}
	s.metrics = append(s.metrics, Metric{
		Name:   name,
		Value:  Normalize(value),
		Weight: weight,
		Valid:  true,
	})
}

// UpdateMetric changes an existing metric's value. Returns false when
// the metric is unknown.
func (s *Scorer) UpdateMetric(name string, value float64) bool {
	idx := s.find(name)
	if idx < 0 {
		return false
	}
	s.metrics[idx].Value = Normalize(value)
	s.metrics[idx].Valid = true
	return true
}

// RemoveMetric deletes a metric by name. Returns false when unknown.
func (s *Scorer) RemoveMetric(name string) bool {
	idx := s.find(name)
	if idx < 0 {
		return false
	}
	s.metrics = append(s.metrics[:idx], s.metrics[idx+1:]...)
	return true
}

// Metric returns a copy of the named metric.
func (s *Scorer) Metric(name string) (Metric, bool) {
	idx := s.find(name)
	if idx < 0 {
		return Metric{}, false
	}
	return s.metrics[idx], true
}

// Compute returns the weighted average of all valid metrics, clamped to
// [0, 1]. An empty (or fully zero-weight) metric set yields 0.0. The
// result is appended to the history ring.
func (s *Scorer) Compute() float64 {
	var weightedSum, totalWeight float64
	for _, m := range s.metrics {
		if !m.Valid {
			continue
		}
		weightedSum += m.Value * m.Weight
		totalWeight += m.Weight
	}
	if totalWeight == 0 {
		s.overall = 0
	} else {
		s.overall = Normalize(weightedSum / totalWeight)
	}

	if len(s.history) > 0 {
		s.history[s.histPos] = s.overall
		s.histPos = (s.histPos + 1) % len(s.history)
		s.histSeen++
		s.updateStatistics()
	}
	return s.overall
}

// Overall returns the last computed score without recomputing.
func (s *Scorer) Overall() float64 { return s.overall }

// SetMinThreshold sets the bar for MeetsThreshold. Default 0.5.
func (s *Scorer) SetMinThreshold(t float64) { s.minThreshold = Normalize(t) }

// MeetsThreshold reports whether the last computed score is at or above
// the minimum threshold.
func (s *Scorer) MeetsThreshold() bool { return s.overall >= s.minThreshold }

// Trend returns the linear-regression slope over the score history.
// Positive means improving. Diagnostics only; the adaptive controller
// never bases hard decisions on it.
func (s *Scorer) Trend() float64 { return s.trend }

// Mean returns the mean of the score history.
func (s *Scorer) Mean() float64 { return s.mean }

// StdDev returns the standard deviation of the score history.
func (s *Scorer) StdDev() float64 { return s.stddev }

// ResetMetrics drops all metrics, keeping the history.
func (s *Scorer) ResetMetrics() {
	s.metrics = s.metrics[:0]
	s.overall = 0
}

// ClearHistory zeroes the history ring and derived statistics.
func (s *Scorer) ClearHistory() {
	for i := range s.history {
		s.history[i] = 0
	}
	s.histPos = 0
	s.histSeen = 0
	s.mean = 0
	s.stddev = 0
	s.trend = 0
}

func (s *Scorer) find(name string) int {
	for i := range s.metrics {
		if s.metrics[i].Name == name {
			return i
		}
	}
	return -1
}

func (s *Scorer) updateStatistics() {
	count := s.histSeen
	if count > len(s.history) {
		count = len(s.history)
	}
	if count == 0 {
		return
	}
	sum := 0.0
	for i := 0; i < count; i++ {
		sum += s.history[i]
	}
	s.mean = sum / float64(count)

	varSum := 0.0
	for i := 0; i < count; i++ {
		d := s.history[i] - s.mean
		varSum += d * d
	}
	s.stddev = math.Sqrt(varSum / float64(count))

	if count >= 2 {
		var sumX, sumY, sumXY, sumXX float64
		for i := 0; i < count; i++ {
			x := float64(i)
			y := s.history[i]
			sumX += x
			sumY += y
			sumXY += x * y
			sumXX += x * x
		}
		n := float64(count)
		den := n*sumXX - sumX*sumX
		if math.Abs(den) > 1e-10 {
			s.trend = (n*sumXY - sumX*sumY) / den
		} else {
			s.trend = 0
		}
	}
}

// =============================================================================
// Helpers
// =============================================================================

// Normalize clamps a value to [0, 1].
func Normalize(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Combine merges two confidences with a weighted geometric mean, the
// conservative choice: one low input drags the result down.
func Combine(a, b, wa, wb float64) float64 {
	total := wa + wb
	if total == 0 {
		return 0
	}
	return Normalize(math.Pow(a, wa/total) * math.Pow(b, wb/total))
}

// FromError maps an error magnitude to a confidence with exponential
// decay calibrated so the result is 0.1 at maxError.
func FromError(err, maxError float64) float64 {
	if maxError <= 0 {
		return 0
	}
	k := 2.3 / maxError // ln(10)
	return Normalize(math.Exp(-k * err))
}

// FromDistance maps a distance to a confidence with linear decay,
// reaching zero at maxDistance.
func FromDistance(distance, maxDistance float64) float64 {
	if maxDistance <= 0 {
		return 0
	}
	return Normalize(1 - distance/maxDistance)
}
