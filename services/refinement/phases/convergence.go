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

	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/samples"
)

const (
	convergedWidth     = 1000
	convergedReduction = 100.0
)

// ConvergenceCheck is phase 5: a mandatory checkpoint that produces no
// new estimate. It grades the progress made so far — converged when the
// range has dropped below an absolute width or the cumulative reduction
// factor has cleared 100x — and reports confidence accordingly.
type ConvergenceCheck struct {
	n uint64
}

// NewConvergenceCheck creates phase 5 for the domain [0, n).
func NewConvergenceCheck(n uint64) *ConvergenceCheck { return &ConvergenceCheck{n: n} }

func (c *ConvergenceCheck) Phase() int          { return 5 }
func (c *ConvergenceCheck) Description() string { return "convergence checkpoint" }
func (c *ConvergenceCheck) Mandatory() bool     { return true }

// Estimate never fails and never moves the bounds; it needs no samples.
func (c *ConvergenceCheck) Estimate(_ context.Context, prev domain.Bounds, _ *samples.Store, _ uint64) (domain.PhaseResult, error) {
	conf := 0.70
	if prev.Width() < convergedWidth || domain.ReductionFactorFor(c.n, prev) > convergedReduction {
		conf = 0.95
	}
	return result(5, c.Description(), prev, prev, conf, c.n), nil
}
