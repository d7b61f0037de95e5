// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package oscillation implements windowed frequency and stability
// analysis over scalar error series.
//
// # Description
//
// The Detector tracks one or more scalar series over a fixed-size
// sliding window. Analyze decomposes each dimension's window with a
// radix-2 FFT to find the dominant frequency, amplitude, phase and
// energy, classifies stability via the coefficient of variation, and
// derives a convergence rate from the linear-regression slope of the
// window (a negative slope means the series is shrinking, reported as a
// positive rate).
//
// # Cross-dimension correlation
//
// Correlation between dimensions is derived from frequency similarity,
// exp(-|Δf|/10). This is a deliberate simplification, not a Pearson
// correlation over the raw values; callers must not treat it as one.
//
// # Thread Safety
//
// Detector is not safe for concurrent use. The engine creates one
// detector per phase and never shares it.
package oscillation

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// Sentinel errors for detector construction and analysis.
var (
	// ErrWindowNotPowerOfTwo is a configuration error: the FFT window
	// must be a power of two, fixed at construction.
	ErrWindowNotPowerOfTwo = errors.New("window size must be a power of two")

	// ErrInsufficientData is returned by Analyze until the window has
	// filled completely.
	ErrInsufficientData = errors.New("window not yet full")
)

// Signature summarizes the oscillation of one tracked dimension. It is
// recomputed on every Analyze call and supersedes the previous value.
type Signature struct {
	Dimension       int
	Frequency       float64
	Amplitude       float64
	Phase           float64
	Energy          float64
	Period          uint64
	Stable          bool
	ConvergenceRate float64
}

// Analysis aggregates the per-dimension signatures into one snapshot.
type Analysis struct {
	Stable             bool
	Converging         bool
	DominantFrequency  float64
	MaxAmplitude       float64
	AvgConvergenceRate float64
	UnstableDimensions int
}

// Detector performs windowed oscillation analysis over D dimensions.
type Detector struct {
	dims   int
	window int

	buffer   []float64 // dims * window, circular per dimension
	position int
	count    int

	signatures   []Signature
	correlations []float64 // dims * dims

	converging   bool
	stableStreak int

	samplingRate        float64
	stabilityThreshold  float64
	convergenceMinRate  float64
	minStableIterations int
}

// New creates a detector tracking dims series over a window that must
// be a power of two.
func New(dims, window int) (*Detector, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dims)
	}
	if window <= 0 || window&(window-1) != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrWindowNotPowerOfTwo, window)
	}
	d := &Detector{
		dims:                dims,
		window:              window,
		buffer:              make([]float64, dims*window),
		signatures:          make([]Signature, dims),
		correlations:        make([]float64, dims*dims),
		samplingRate:        1.0,
		stabilityThreshold:  0.1,
		convergenceMinRate:  0.01,
		minStableIterations: 5,
	}
	for i := range d.signatures {
		d.signatures[i].Dimension = i
	}
	return d, nil
}

// SetStabilityThreshold overrides the coefficient-of-variation bound
// below which a dimension counts as stable. Default 0.1.
func (d *Detector) SetStabilityThreshold(t float64) {
	if t > 0 {
		d.stabilityThreshold = t
	}
}

// SetConvergenceThreshold overrides the minimum average convergence
// rate required for Converging to report true. Default 0.01.
func (d *Detector) SetConvergenceThreshold(t float64) {
	d.convergenceMinRate = t
}

// SetMinStableIterations overrides how many consecutive all-stable
// Analyze calls are required before Stable reports true. Default 5.
func (d *Detector) SetMinStableIterations(n int) {
	if n > 0 {
		d.minStableIterations = n
	}
}

// AddSample pushes one point per tracked dimension. len(values) must be
// at least the dimension count; extra entries are ignored. O(1).
func (d *Detector) AddSample(values []float64) error {
	if len(values) < d.dims {
		return fmt.Errorf("expected %d values, got %d", d.dims, len(values))
	}
	for dim := 0; dim < d.dims; dim++ {
		d.buffer[dim*d.window+d.position] = values[dim]
	}
	d.position = (d.position + 1) % d.window
	if d.count < d.window {
		d.count++
	}
	return nil
}

// Full reports whether the window has filled.
func (d *Detector) Full() bool { return d.count >= d.window }

// Analyze recomputes every dimension's signature from the current
// window. Returns ErrInsufficientData before the window is full.
func (d *Detector) Analyze() error {
	if !d.Full() {
		return ErrInsufficientData
	}

	allStable := true
	totalRate := 0.0
	values := make([]float64, d.window)
	spectrum := make([]complex128, d.window)

	for dim := 0; dim < d.dims; dim++ {
		d.windowValues(dim, values)
		for i, v := range values {
			spectrum[i] = complex(v, 0)
		}
		fft(spectrum)

		freq, amp, phase, energy := dominantFrequency(spectrum, d.samplingRate)
		sig := &d.signatures[dim]
		sig.Frequency = freq
		sig.Amplitude = amp
		sig.Phase = phase
		sig.Energy = energy
		sig.Period = uint64(d.samplingRate / (freq + 1e-10))
		sig.Stable = coefficientOfVariation(values) < d.stabilityThreshold
		sig.ConvergenceRate = -regressionSlope(values)

		if !sig.Stable {
			allStable = false
		}
		totalRate += sig.ConvergenceRate
	}

	d.converging = totalRate/float64(d.dims) > d.convergenceMinRate
	if allStable {
		d.stableStreak++
	} else {
		d.stableStreak = 0
	}

	for i := 0; i < d.dims; i++ {
		for j := 0; j < d.dims; j++ {
			if i == j {
				d.correlations[i*d.dims+j] = 1.0
				continue
			}
			df := math.Abs(d.signatures[i].Frequency - d.signatures[j].Frequency)
			d.correlations[i*d.dims+j] = math.Exp(-df / 10.0)
		}
	}
	return nil
}

// Stable reports true only after the configured number of consecutive
// Analyze calls in which every tracked dimension was stable.
func (d *Detector) Stable() bool {
	return d.stableStreak >= d.minStableIterations
}

// Converging reports whether the last Analyze found the average
// convergence rate above the configured minimum.
func (d *Detector) Converging() bool { return d.converging }

// Signature returns the most recent signature for a dimension.
func (d *Detector) Signature(dim int) (Signature, error) {
	if dim < 0 || dim >= d.dims {
		return Signature{}, fmt.Errorf("dimension %d out of range [0, %d)", dim, d.dims)
	}
	return d.signatures[dim], nil
}

// Correlation returns the frequency-similarity correlation between two
// dimensions as computed by the last Analyze.
func (d *Detector) Correlation(i, j int) float64 {
	if i < 0 || i >= d.dims || j < 0 || j >= d.dims {
		return 0
	}
	return d.correlations[i*d.dims+j]
}

// Snapshot aggregates the per-dimension signatures. Returns
// ErrInsufficientData if Analyze has not yet run on a full window.
func (d *Detector) Snapshot() (Analysis, error) {
	if !d.Full() {
		return Analysis{}, ErrInsufficientData
	}
	var a Analysis
	var maxEnergy float64
	var totalRate float64
	for i := range d.signatures {
		sig := &d.signatures[i]
		if sig.Amplitude > a.MaxAmplitude {
			a.MaxAmplitude = sig.Amplitude
		}
		if sig.Energy > maxEnergy {
			maxEnergy = sig.Energy
			a.DominantFrequency = sig.Frequency
		}
		totalRate += sig.ConvergenceRate
		if !sig.Stable {
			a.UnstableDimensions++
		}
	}
	a.Stable = d.Stable()
	a.Converging = d.converging
	a.AvgConvergenceRate = totalRate / float64(d.dims)
	return a, nil
}

// Reset clears the window and all derived state.
func (d *Detector) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.position = 0
	d.count = 0
	d.converging = false
	d.stableStreak = 0
	for i := range d.signatures {
		d.signatures[i] = Signature{Dimension: i}
	}
	for i := range d.correlations {
		d.correlations[i] = 0
	}
}

// windowValues copies a dimension's circular buffer into dst in time
// order, oldest first.
func (d *Detector) windowValues(dim int, dst []float64) {
	offset := dim * d.window
	for i := 0; i < d.window; i++ {
		idx := (d.position + i) % d.window
		dst[i] = d.buffer[offset+idx]
	}
}

// =============================================================================
// Numeric helpers
// =============================================================================

// fft computes an in-place radix-2 Cooley-Tukey FFT. len(data) must be
// a power of two, guaranteed by the constructor.
func fft(data []complex128) {
	n := len(data)
	if n <= 1 {
		return
	}
	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			data[i], data[j] = data[j], data[i]
		}
	}
	for length := 2; length <= n; length <<= 1 {
		angle := -2 * math.Pi / float64(length)
		wl := cmplx.Exp(complex(0, angle))
		for start := 0; start < n; start += length {
			w := complex(1, 0)
			half := length / 2
			for k := 0; k < half; k++ {
				u := data[start+k]
				v := data[start+k+half] * w
				data[start+k] = u + v
				data[start+k+half] = u - v
				w *= wl
			}
		}
	}
}

// dominantFrequency scans the positive spectrum (skipping DC) for the
// strongest bin and returns its frequency, normalized amplitude, phase
// and the total spectral energy.
func dominantFrequency(spectrum []complex128, samplingRate float64) (freq, amp, phase, energy float64) {
	n := len(spectrum)
	maxMag := 0.0
	maxIdx := 0
	for i := 1; i < n/2; i++ {
		mag := cmplx.Abs(spectrum[i])
		energy += mag * mag
		if mag > maxMag {
			maxMag = mag
			maxIdx = i
		}
	}
	freq = float64(maxIdx) * samplingRate / float64(n)
	amp = maxMag / float64(n)
	phase = cmplx.Phase(spectrum[maxIdx])
	return freq, amp, phase, energy
}

// coefficientOfVariation returns stddev/|mean| with a small epsilon to
// guard a zero mean.
func coefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance) / (math.Abs(mean) + 1e-10)
}

// regressionSlope fits y = mx + b over the series and returns m.
func regressionSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if math.Abs(den) < 1e-10 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / den
}
