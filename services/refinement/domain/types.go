// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package domain defines the value objects shared across the refinement
// engine: observed samples, candidate bounds, per-phase results, and the
// final run report.
//
// All types in this package are plain data. Behavior is limited to
// derived accessors (width, midpoint, containment) so that every
// component of the engine agrees on the same arithmetic for range
// manipulation.
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// =============================================================================
// Samples
// =============================================================================

// Sample is a single observed (input, output) pair with an application
// supplied weight. Samples are immutable once added to a store.
type Sample struct {
	Input  uint64  `json:"input"`
	Output uint64  `json:"output"`
	Weight float64 `json:"weight"`
}

// =============================================================================
// Bounds
// =============================================================================

// Bounds is an inclusive-exclusive range [Min, Max) believed to contain
// the unobserved input that produced the target output.
//
// Invariant: Min <= Max <= N for the domain [0, N) of the run that
// produced the bounds. Bounds never widen within a run except at
// initialization, where they cover the full domain.
type Bounds struct {
	Min uint64 `json:"min"`
	Max uint64 `json:"max"`
}

// FullRange returns bounds covering the whole domain [0, n).
func FullRange(n uint64) Bounds {
	return Bounds{Min: 0, Max: n}
}

// Width returns the size of the range.
func (b Bounds) Width() uint64 {
	if b.Max < b.Min {
		return 0
	}
	return b.Max - b.Min
}

// Midpoint returns the center of the range, computed without overflow.
func (b Bounds) Midpoint() uint64 {
	return b.Min + (b.Max-b.Min)/2
}

// Contains reports whether v lies inside the range.
func (b Bounds) Contains(v uint64) bool {
	return v >= b.Min && v < b.Max
}

// SubsetOf reports whether b is fully contained in outer.
func (b Bounds) SubsetOf(outer Bounds) bool {
	return b.Min >= outer.Min && b.Max <= outer.Max
}

// Intersect returns the overlap of b and o. The second return value is
// false when the two ranges are disjoint.
func (b Bounds) Intersect(o Bounds) (Bounds, bool) {
	out := Bounds{Min: b.Min, Max: b.Max}
	if o.Min > out.Min {
		out.Min = o.Min
	}
	if o.Max < out.Max {
		out.Max = o.Max
	}
	if out.Min > out.Max {
		return Bounds{}, false
	}
	return out, true
}

// ClampTo forces b inside outer. Estimators use this to honor the
// never-widen contract regardless of what their heuristic produced.
func (b Bounds) ClampTo(outer Bounds) Bounds {
	out := b
	if out.Min < outer.Min {
		out.Min = outer.Min
	}
	if out.Max > outer.Max {
		out.Max = outer.Max
	}
	if out.Min > out.Max {
		// Degenerate heuristic output; fall back to the outer range.
		return outer
	}
	return out
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%d, %d)", b.Min, b.Max)
}

// =============================================================================
// Phase results
// =============================================================================

// PhaseResult records the outcome of one pipeline phase. It is created
// once per phase per run and is immutable after the phase finishes;
// later phases and the final report only read it.
//
// A failed phase has Completed == false, carries the previous phase's
// bounds unchanged, and contributes zero confidence to the overall
// score. A skipped phase holds a verbatim copy of the previous phase's
// result, Phase field included; whether a slot was skipped is recorded
// in the report's state array, not here.
type PhaseResult struct {
	Phase       int     `json:"phase"`
	Completed   bool    `json:"completed"`
	Bounds      Bounds  `json:"bounds"`
	Confidence  float64 `json:"confidence"`
	Error       float64 `json:"error"`
	Description string  `json:"description"`
}

// PhaseState is the lifecycle state of one pipeline phase slot.
type PhaseState int

const (
	StatePending PhaseState = iota
	StateRunning
	StateSkipped
	StateCompleted
	StateFailed
	StateNotReached // a later phase after an early stop
)

func (s PhaseState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSkipped:
		return "skipped"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateNotReached:
		return "not-reached"
	default:
		return "unknown"
	}
}

// =============================================================================
// Run report
// =============================================================================

// Report is the aggregate outcome of one orchestrator run.
//
// OverallConfidence is the mean confidence of completed phases. It is
// an internal heuristic ranking signal, not a calibrated probability:
// nothing in the engine validates confidence against ground truth.
type Report struct {
	RunID             string        `json:"run_id"`
	Target            uint64        `json:"target"`
	N                 uint64        `json:"n"`
	FinalBounds       Bounds        `json:"final_bounds"`
	ReductionFactor   float64       `json:"reduction_factor"`
	OverallConfidence float64       `json:"overall_confidence"`
	Phases            []PhaseResult `json:"phases"`
	States            []PhaseState  `json:"states"`
	PhasesSkipped     int           `json:"phases_skipped"`
	EarlyStoppedAt    int           `json:"early_stopped_at"` // 0 = never
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration"`
}

// ReductionFactorFor computes n divided by the width of b, the ratio by
// which the search space shrank. A zero-width range yields +Inf.
func ReductionFactorFor(n uint64, b Bounds) float64 {
	w := b.Width()
	if w == 0 {
		return math.Inf(1)
	}
	return float64(n) / float64(w)
}

// Summary renders a human-readable per-phase trace of the run. It is a
// diagnostic aid, not part of the engine contract; callers that need a
// machine-readable form should serialize the Report itself.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s  target=%d  n=%d\n", r.RunID, r.Target, r.N)
	fmt.Fprintf(&sb, "final bounds %s  width=%d  reduction=%.2fx  confidence=%.2f%%\n",
		r.FinalBounds, r.FinalBounds.Width(), r.ReductionFactor, r.OverallConfidence*100)
	for i, p := range r.Phases {
		status := "incomplete"
		if i < len(r.States) {
			status = r.States[i].String()
		}
		fmt.Fprintf(&sb, "  phase %d %-28s %-11s bounds=%s confidence=%.2f%%\n",
			i, p.Description, status, p.Bounds, p.Confidence*100)
	}
	if r.EarlyStoppedAt > 0 {
		fmt.Fprintf(&sb, "early stop after phase %d\n", r.EarlyStoppedAt-1)
	}
	if r.PhasesSkipped > 0 {
		fmt.Fprintf(&sb, "%d phases skipped\n", r.PhasesSkipped)
	}
	return sb.String()
}
