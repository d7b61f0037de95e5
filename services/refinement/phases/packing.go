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

// idealContacts is the kissing number of the 24-cell packing the phase
// models the search interval against.
const idealContacts = 24

// SpherePacking is phase 7: treat the interval as a line of unit
// spheres in the optimal 24-contact configuration and shave the slack
// the packing cannot occupy — a fixed 1/12 of the range off each side.
type SpherePacking struct {
	n uint64
}

// NewSpherePacking creates phase 7 for the domain [0, n).
func NewSpherePacking(n uint64) *SpherePacking { return &SpherePacking{n: n} }

func (s *SpherePacking) Phase() int          { return 7 }
func (s *SpherePacking) Description() string { return "sphere packing reduction" }
func (s *SpherePacking) Mandatory() bool     { return false }

// Estimate needs no samples. The contact count only degrades when the
// interval is too narrow to seat the full configuration.
func (s *SpherePacking) Estimate(_ context.Context, prev domain.Bounds, _ *samples.Store, _ uint64) (domain.PhaseResult, error) {
	width := prev.Width()
	shave := width / 12

	contacts := idealContacts
	if width < idealContacts {
		contacts = int(width)
	}
	conf := 0.80
	if contacts == idealContacts {
		conf = 0.92
	}

	proposed := domain.Bounds{Min: prev.Min + shave, Max: prev.Max - shave}
	return result(7, s.Description(), prev, proposed, conf, s.n), nil
}
