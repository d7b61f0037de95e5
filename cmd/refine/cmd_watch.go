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
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/BuzzScud/ALGO3D-sub005/pkg/ux"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/observability"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/samples"
)

// watchDebounce coalesces editor write bursts into a single re-run.
const watchDebounce = 250 * time.Millisecond

// runWatch re-runs the pipeline whenever the sample CSV changes, until
// interrupted.
func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	defer logger.Close()

	shutdown, err := initTracing(ctx)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	observability.InitMetrics()
	if metricsAddr != "" {
		go serveMetrics(metricsAddr)
		ux.Muted("metrics on " + metricsAddr + "/metrics")
	}

	eng, err := refinement.New(config.Engine, refinement.WithLogger(logger.Slog()))
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files atomically, which
	// drops a watch set on the file itself.
	dir := filepath.Dir(samplesPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	run := func() {
		report, err := eng.Run(ctx, samples.CSVProvider{Path: samplesPath}, targetValue, domainSize)
		if err != nil {
			ux.Error(err.Error())
			return
		}
		renderReport(report)
		if !noSave && config.Store.Path != "" {
			if err := persistReport(ctx, report); err != nil {
				ux.Warning(fmt.Sprintf("report not saved: %v", err))
			}
		}
	}

	ux.Title("watching " + samplesPath)
	run()

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(samplesPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			ux.Muted("sample file changed, re-running")
			run()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ux.Warning("watch error: " + err.Error())
		}
	}
}

// serveMetrics exposes the Prometheus registry; errors only get logged
// since metrics are best-effort in watch mode.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		ux.Warning("metrics server: " + err.Error())
	}
}
