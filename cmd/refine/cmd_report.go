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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BuzzScud/ALGO3D-sub005/pkg/ux"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/reportstore"
)

// openStore opens the configured report store read-side.
func openStore() (*reportstore.Store, error) {
	if config.Store.Path == "" {
		return nil, errors.New("no report store configured; set store.path in config.yaml")
	}
	return reportstore.Open(reportstore.DefaultConfig(config.Store.Path))
}

// runReportShow prints the full stored trace of one run.
func runReportShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	report, err := store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	renderReport(report)
	return nil
}

// runReportList prints one line per stored run.
func runReportList(cmd *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	entries, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ux.Muted("no stored runs")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %s  target=%-12d reduction=%-10s confidence=%.1f%%\n",
			e.RunID,
			e.StartedAt.Format(time.RFC3339),
			e.Target,
			formatReduction(e.ReductionFactor),
			e.OverallConfidence*100)
	}
	return nil
}
