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
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/BuzzScud/ALGO3D-sub005/services/refinement"
)

// cliValidate validates config structs loaded from YAML.
var cliValidate = validator.New()

// Config is the refine CLI's YAML configuration. All sections are
// optional; flags override file values.
type Config struct {
	// Engine carries the pipeline knobs.
	Engine refinement.Config `yaml:"engine"`

	// Log configures structured logging.
	Log struct {
		// Level is "debug", "info", "warn" or "error".
		Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
		// Dir enables file logging when set.
		Dir string `yaml:"dir"`
		// JSON switches stderr output to JSON.
		JSON bool `yaml:"json"`
		// Quiet suppresses stderr logging.
		Quiet bool `yaml:"quiet"`
	} `yaml:"log"`

	// Store configures report persistence. Empty path disables it.
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`

	// Influx configures the InfluxDB sample source. URL empty means
	// disabled; samples then come from --samples CSV.
	Influx struct {
		URL         string `yaml:"url" validate:"omitempty,url"`
		Token       string `yaml:"token"`
		Org         string `yaml:"org"`
		Bucket      string `yaml:"bucket"`
		Measurement string `yaml:"measurement"`
		Range       string `yaml:"range"`
	} `yaml:"influx"`
}

// defaultCLIConfig is what runs when no config.yaml exists.
func defaultCLIConfig() Config {
	var cfg Config
	cfg.Engine = refinement.DefaultConfig()
	cfg.Log.Level = "info"
	return cfg
}

// loadConfig reads and validates the YAML config at path. A missing
// file is not an error; defaults apply.
func loadConfig(path string) (Config, error) {
	cfg := defaultCLIConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cliValidate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if err := cfg.Engine.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
