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
	"github.com/spf13/cobra"

	"github.com/BuzzScud/ALGO3D-sub005/pkg/ux"
)

// --- Global Command Variables ---
var (
	configPath  string
	samplesPath string
	targetValue uint64
	domainSize  uint64
	plainOutput bool
	traceMode   bool
	noSave      bool
	metricsAddr string

	config Config

	rootCmd = &cobra.Command{
		Use:   "refine",
		Short: "A cli for the multi-phase search-space refinement engine",
		Long: `Refine narrows a bounded integer search space toward the unobserved
preimage of a target value, running a ten-phase estimator pipeline with
adaptive skipping and early stopping.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ux.SetPlain(plainOutput)
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			config = cfg
			return nil
		},
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the refinement pipeline once against a target",
		RunE:  runRefinement, // defined in cmd_run.go
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-run the pipeline whenever the sample file changes",
		RunE:  runWatch, // defined in cmd_watch.go
	}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Inspect persisted run reports",
	}

	reportShowCmd = &cobra.Command{
		Use:   "show [run-id]",
		Short: "Print the full per-phase trace of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runReportShow, // defined in cmd_report.go
	}

	reportListCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		RunE:  runReportList, // defined in cmd_report.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "plain, undecorated output")

	for _, cmd := range []*cobra.Command{runCmd, watchCmd} {
		cmd.Flags().StringVar(&samplesPath, "samples", "", "CSV file of input,output[,weight] sample rows")
		cmd.Flags().Uint64Var(&targetValue, "target", 0, "target value whose preimage is sought")
		cmd.Flags().Uint64Var(&domainSize, "n", 0, "domain size: the search space is [0, n)")
		cmd.Flags().BoolVar(&traceMode, "trace", false, "emit OpenTelemetry spans to stdout")
		cmd.Flags().BoolVar(&noSave, "no-save", false, "skip persisting the report")
		_ = cmd.MarkFlagRequired("n")
	}
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus /metrics on this address (e.g. :9090)")
	_ = watchCmd.MarkFlagRequired("samples")

	reportCmd.AddCommand(reportShowCmd, reportListCmd)
	rootCmd.AddCommand(runCmd, watchCmd, reportCmd)
}
