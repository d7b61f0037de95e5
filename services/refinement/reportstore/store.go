// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reportstore persists run reports in an embedded BadgerDB.
//
// Reports are stored as JSON under "report:<run-id>" keys. The store is
// an archive, not a cache: entries are written once per run and never
// mutated. In-memory mode backs the tests.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package reportstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
)

const reportKeyPrefix = "report:"

var (
	// ErrNotFound indicates no report exists for the requested run ID.
	ErrNotFound = errors.New("report not found")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("report store is closed")
)

// Config holds configuration for the report store.
type Config struct {
	// Path is the directory for database files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. If nil, BadgerDB's
	// logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults for a store rooted at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests: no disk I/O, no
// sync writes.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is a BadgerDB-backed report archive. Safe for concurrent use;
// Close invalidates all subsequent calls.
type Store struct {
	db *badger.DB
}

// Open creates and opens the store with the given configuration.
// Creates the directory if it doesn't exist. Caller must call Close().
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent report store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create report store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database. Idempotent.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Save persists the report under its run ID. An existing entry with the
// same ID is overwritten.
func (s *Store) Save(ctx context.Context, report domain.Report) error {
	if s.db == nil {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if report.RunID == "" {
		return errors.New("report has no run ID")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report %s: %w", report.RunID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(reportKey(report.RunID), data)
	})
}

// Get retrieves the report for runID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, runID string) (domain.Report, error) {
	if s.db == nil {
		return domain.Report{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return domain.Report{}, err
	}

	var report domain.Report
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(reportKey(runID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &report)
		})
	})
	if err != nil {
		return domain.Report{}, err
	}
	return report, nil
}

// Entry is a listing row: the run ID plus the headline numbers, without
// the per-phase payload.
type Entry struct {
	RunID             string    `json:"run_id"`
	Target            uint64    `json:"target"`
	ReductionFactor   float64   `json:"reduction_factor"`
	OverallConfidence float64   `json:"overall_confidence"`
	StartedAt         time.Time `json:"started_at"`
}

// List returns all stored reports as listing entries, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(reportKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var report domain.Report
				if err := json.Unmarshal(val, &report); err != nil {
					return err
				}
				entries = append(entries, Entry{
					RunID:             report.RunID,
					Target:            report.Target,
					ReductionFactor:   report.ReductionFactor,
					OverallConfidence: report.OverallConfidence,
					StartedAt:         report.StartedAt,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartedAt.After(entries[j].StartedAt)
	})
	return entries, nil
}

func reportKey(runID string) []byte {
	return []byte(reportKeyPrefix + runID)
}
