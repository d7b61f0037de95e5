// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package samples provides the capacity-bounded sample store the
// refinement pipeline reads from, plus providers that load samples from
// application-specific sources (CSV dumps, InfluxDB series).
//
// # Ownership
//
// The store owns its samples exclusively. It is append-only: samples
// are added before a run starts and the store is read-only for the
// duration of a run. The store performs no duplicate detection and no
// range validation of inputs or outputs; both are the caller's
// responsibility.
package samples

import (
	"context"
	"errors"
	"fmt"

	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
)

// ErrCapacityExceeded is returned by Add once the store is full. It is
// surfaced at the Add call site and never affects an in-progress run.
var ErrCapacityExceeded = errors.New("sample store capacity exceeded")

// Store holds observed (input, output, weight) samples.
//
// Not safe for concurrent mutation; the engine only reads it while a
// run is in progress.
type Store struct {
	samples []domain.Sample
	cap     int
}

// NewStore creates a store that accepts at most capacity samples.
// Capacity must be positive.
func NewStore(capacity int) (*Store, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("sample store capacity must be positive, got %d", capacity)
	}
	return &Store{samples: make([]domain.Sample, 0, capacity), cap: capacity}, nil
}

// Add appends one sample. Returns ErrCapacityExceeded when full.
func (s *Store) Add(input, output uint64, weight float64) error {
	if len(s.samples) >= s.cap {
		return ErrCapacityExceeded
	}
	s.samples = append(s.samples, domain.Sample{Input: input, Output: output, Weight: weight})
	return nil
}

// Len returns the number of stored samples.
func (s *Store) Len() int { return len(s.samples) }

// Cap returns the fixed capacity chosen at creation.
func (s *Store) Cap() int { return s.cap }

// At returns the i-th sample in insertion order.
func (s *Store) At(i int) domain.Sample { return s.samples[i] }

// All returns a copy of the stored samples. Mutating the returned
// slice does not affect the store.
func (s *Store) All() []domain.Sample {
	out := make([]domain.Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Provider supplies samples from an application-specific source. The
// engine treats providers as external collaborators: it drains them
// into a Store before the first phase runs.
type Provider interface {
	// Samples returns the full sample set. Implementations should
	// honor ctx cancellation for remote sources.
	Samples(ctx context.Context) ([]domain.Sample, error)
}

// SliceProvider adapts an in-memory slice to the Provider interface.
// Useful in tests and for callers that already hold their samples.
type SliceProvider []domain.Sample

// Samples returns the slice unchanged.
func (p SliceProvider) Samples(_ context.Context) ([]domain.Sample, error) {
	return p, nil
}

// FromProvider drains a provider into a fresh store. The store capacity
// is exactly the provider's sample count, with a floor of one slot so
// zero-sample runs still get a valid (empty) store.
func FromProvider(ctx context.Context, p Provider) (*Store, error) {
	items, err := p.Samples(ctx)
	if err != nil {
		return nil, fmt.Errorf("draining sample provider: %w", err)
	}
	capacity := len(items)
	if capacity == 0 {
		capacity = 1
	}
	store, err := NewStore(capacity)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := store.Add(it.Input, it.Output, it.Weight); err != nil {
			return nil, err
		}
	}
	return store, nil
}
