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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BuzzScud/ALGO3D-sub005/pkg/logging"
	"github.com/BuzzScud/ALGO3D-sub005/pkg/ux"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/observability"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/reportstore"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/samples"
)

// runRefinement executes one pipeline run from CLI flags and config.
func runRefinement(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := newLogger()
	defer logger.Close()

	shutdown, err := initTracing(ctx)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	eng, err := refinement.New(config.Engine, refinement.WithLogger(logger.Slog()))
	if err != nil {
		return err
	}

	provider, err := sampleProvider(logger)
	if err != nil {
		return err
	}

	var report domain.Report
	spin := ux.NewSpinner(fmt.Sprintf("refining target %d over [0, %d)", targetValue, domainSize))
	spin.Start()
	report, err = eng.Run(ctx, provider, targetValue, domainSize)
	spin.Stop()
	if err != nil {
		return err
	}

	renderReport(report)

	if !noSave && config.Store.Path != "" {
		if err := persistReport(ctx, report); err != nil {
			ux.Warning(fmt.Sprintf("report not saved: %v", err))
		} else {
			ux.Muted("saved as " + report.RunID)
		}
	}
	return nil
}

// newLogger builds the CLI logger from the config's log section.
func newLogger() *logging.Logger {
	return logging.New(logging.Config{
		Level:   logging.ParseLevel(config.Log.Level),
		LogDir:  config.Log.Dir,
		Service: "refine",
		JSON:    config.Log.JSON,
		Quiet:   config.Log.Quiet,
	})
}

// initTracing wires the stdout span exporter when --trace is set.
func initTracing(ctx context.Context) (func(context.Context) error, error) {
	tcfg := observability.DefaultTelemetryConfig()
	if traceMode {
		tcfg.TraceExporter = "stdout"
	}
	return observability.InitTelemetry(ctx, tcfg)
}

// sampleProvider selects the sample source: --samples CSV wins, then
// the config's InfluxDB section, then no samples at all.
func sampleProvider(logger *logging.Logger) (samples.Provider, error) {
	if samplesPath != "" {
		return samples.CSVProvider{Path: samplesPath}, nil
	}
	if config.Influx.URL != "" {
		return samples.InfluxProvider{
			URL:         config.Influx.URL,
			Token:       config.Influx.Token,
			Org:         config.Influx.Org,
			Bucket:      config.Influx.Bucket,
			Measurement: config.Influx.Measurement,
			Range:       config.Influx.Range,
		}.WithLogger(logger.Slog()), nil
	}
	return samples.SliceProvider(nil), nil
}

// persistReport saves the report into the configured badger store.
func persistReport(ctx context.Context, report domain.Report) error {
	store, err := reportstore.Open(reportstore.DefaultConfig(config.Store.Path))
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(ctx, report)
}
