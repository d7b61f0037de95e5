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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.True(t, cfg.Engine.EarlyStopEnabled)
	assert.True(t, cfg.Engine.SkipEnabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Store.Path)
}

func TestLoadConfig_ParsesAllSections(t *testing.T) {
	path := writeConfig(t, `
engine:
  early_stop_enabled: true
  skip_enabled: false
  early_stop_threshold: 0.9
  skip_threshold: 0.8
  range_floor: 50
  detector_window: 16
  workers: 4
log:
  level: debug
  json: true
store:
  path: /tmp/refine-reports
influx:
  url: http://localhost:12130
  org: refine
  bucket: samples
  measurement: refinement_samples
  range: -30d
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Engine.EarlyStopEnabled)
	assert.False(t, cfg.Engine.SkipEnabled)
	assert.Equal(t, 0.9, cfg.Engine.EarlyStopThreshold)
	assert.Equal(t, uint64(50), cfg.Engine.RangeFloor)
	assert.Equal(t, 16, cfg.Engine.DetectorWindow)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "/tmp/refine-reports", cfg.Store.Path)
	assert.Equal(t, "samples", cfg.Influx.Bucket)
}

func TestLoadConfig_RejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "engine: [not, a, map]")
	_, err := loadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_RejectsBadLogLevel(t *testing.T) {
	path := writeConfig(t, "log:\n  level: loud\n")
	_, err := loadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_RejectsBadInfluxURL(t *testing.T) {
	path := writeConfig(t, "influx:\n  url: not-a-url\n")
	_, err := loadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_RejectsBadDetectorWindow(t *testing.T) {
	path := writeConfig(t, "engine:\n  detector_window: 6\n")
	_, err := loadConfig(path)
	require.Error(t, err)
}
