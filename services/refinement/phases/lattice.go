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

import "math"

// latticeDims is the dimensionality of the auxiliary embedding space
// shared by the fractal, multi-scale and recursive estimators.
const latticeDims = 13

// phi is the golden ratio, used as the per-dimension magnitude ladder.
const phi = 1.618033988749895

// dimensionalFrequencies are the fixed angular multipliers of the
// embedding, one per dimension.
var dimensionalFrequencies = [latticeDims]float64{
	3, 7, 31, 12, 19, 5, 11, 13, 17, 23, 29, 37, 41,
}

// latticePoint is a position in the embedding space.
type latticePoint [latticeDims]float64

// embed maps a scalar value into the lattice. The base angle winds the
// value around the circle at rate π·φ, and each dimension samples it at
// its own frequency with a φ^(d mod 5) magnitude.
func embed(value uint64) latticePoint {
	angle := math.Mod(float64(value)*math.Pi*phi, 2*math.Pi)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	var p latticePoint
	for d := 0; d < latticeDims; d++ {
		p[d] = math.Cos(angle*dimensionalFrequencies[d]) * math.Pow(phi, float64(d%5))
	}
	return p
}

// latticeDistance is the Euclidean distance between two embeddings.
func latticeDistance(a, b latticePoint) float64 {
	sum := 0.0
	for d := 0; d < latticeDims; d++ {
		diff := a[d] - b[d]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// latticeDiameter bounds the distance between any two embeddings; used
// to normalize distances into [0, 1] scores.
var latticeDiameter = func() float64 {
	sum := 0.0
	for d := 0; d < latticeDims; d++ {
		m := math.Pow(phi, float64(d%5))
		sum += (2 * m) * (2 * m)
	}
	return math.Sqrt(sum)
}()
