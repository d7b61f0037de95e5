// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reportstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleReport(runID string, startedAt time.Time) domain.Report {
	return domain.Report{
		RunID:             runID,
		Target:            99,
		N:                 1_000_000,
		FinalBounds:       domain.Bounds{Min: 41_000, Max: 44_000},
		ReductionFactor:   333.33,
		OverallConfidence: 0.82,
		Phases:            make([]domain.PhaseResult, 10),
		States:            make([]domain.PhaseState, 10),
		StartedAt:         startedAt,
		Duration:          12 * time.Millisecond,
	}
}

func TestOpen_RequiresPathForPersistentStore(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}

func TestStore_SaveAndGetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	report := sampleReport("run-1", time.Now().UTC().Truncate(time.Millisecond))

	require.NoError(t, store.Save(ctx, report))

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, report.RunID, got.RunID)
	assert.Equal(t, report.FinalBounds, got.FinalBounds)
	assert.Equal(t, report.OverallConfidence, got.OverallConfidence)
	assert.True(t, report.StartedAt.Equal(got.StartedAt))
}

func TestStore_SaveRejectsEmptyRunID(t *testing.T) {
	store := openTestStore(t)
	require.Error(t, store.Save(context.Background(), domain.Report{}))
}

func TestStore_SaveOverwritesSameRunID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := sampleReport("run-1", time.Now())
	require.NoError(t, store.Save(ctx, first))

	second := first
	second.OverallConfidence = 0.95
	require.NoError(t, store.Save(ctx, second))

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 0.95, got.OverallConfidence)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_GetUnknownRunID(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, store.Save(ctx, sampleReport("old", base.Add(-2*time.Hour))))
	require.NoError(t, store.Save(ctx, sampleReport("newest", base)))
	require.NoError(t, store.Save(ctx, sampleReport("middle", base.Add(-time.Hour))))

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "newest", entries[0].RunID)
	assert.Equal(t, "middle", entries[1].RunID)
	assert.Equal(t, "old", entries[2].RunID)
}

func TestStore_ClosedStoreRejectsAllCalls(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "close is idempotent")

	ctx := context.Background()
	assert.ErrorIs(t, store.Save(ctx, sampleReport("x", time.Now())), ErrClosed)
	_, err := store.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = store.List(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStore_CanceledContext(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Save(ctx, sampleReport("x", time.Now())), context.Canceled)
	_, err := store.Get(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_PersistentRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.SyncWrites = false // keep the test fast

	store, err := Open(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleReport("persisted", time.Now())))
	require.NoError(t, store.Close())

	reopened, err := Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.RunID)
}
