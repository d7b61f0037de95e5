// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/BuzzScud/ALGO3D-sub005/pkg/ux"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
)

// renderReport prints the run outcome: a headline box plus one line per
// phase slot.
func renderReport(r domain.Report) {
	if ux.IsPlain() {
		fmt.Print(r.Summary())
		return
	}

	headline := fmt.Sprintf("target %d in [0, %d)\nfinal bounds %s  width %d\nreduction %s  confidence %s",
		r.Target, r.N, r.FinalBounds, r.FinalBounds.Width(),
		formatReduction(r.ReductionFactor),
		fmt.Sprintf("%.1f%%", r.OverallConfidence*100))
	ux.Box("refinement "+shortID(r.RunID), headline)

	for i, p := range r.Phases {
		state := domain.StatePending
		if i < len(r.States) {
			state = r.States[i]
		}
		fmt.Printf(" %s phase %d %-26s %s\n",
			stateIcon(state).Render(), i, p.Description, phaseDetail(state, p))
	}

	if r.EarlyStoppedAt > 0 {
		ux.Success(fmt.Sprintf("early stop after phase %d", r.EarlyStoppedAt-1))
	}
	if r.PhasesSkipped > 0 {
		ux.Muted(fmt.Sprintf("%d phases skipped", r.PhasesSkipped))
	}
	ux.Muted(fmt.Sprintf("completed in %s", r.Duration))
}

func phaseDetail(state domain.PhaseState, p domain.PhaseResult) string {
	switch state {
	case domain.StateCompleted, domain.StateSkipped:
		return ux.Styles.Muted.Render(fmt.Sprintf("bounds=%s conf=%.1f%%", p.Bounds, p.Confidence*100))
	case domain.StateFailed:
		return ux.Styles.Warning.Render("failed, bounds carried")
	case domain.StateNotReached:
		return ux.Styles.Muted.Render("not reached")
	default:
		return ux.Styles.Muted.Render(strings.ToLower(state.String()))
	}
}

func stateIcon(state domain.PhaseState) ux.Icon {
	switch state {
	case domain.StateCompleted:
		return ux.IconSuccess
	case domain.StateSkipped:
		return ux.IconArrow
	case domain.StateFailed:
		return ux.IconWarning
	default:
		return ux.IconPending
	}
}

func formatReduction(f float64) string {
	if math.IsInf(f, 1) {
		return "exact"
	}
	return fmt.Sprintf("%.1fx", f)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
