// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package samples

import (
	"context"
	"fmt"
	"log/slog"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/BuzzScud/ALGO3D-sub005/pkg/validation"
	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
)

// InfluxProvider pulls (input, output, weight) samples from an InfluxDB
// bucket. The charting application writes observed pairs as points of a
// single measurement with "input", "output" and optional "weight"
// fields; this provider pivots and reads them back in time order.
type InfluxProvider struct {
	// URL is the InfluxDB endpoint, e.g. "http://localhost:12130".
	URL string
	// Token authenticates the query.
	Token string
	// Org is the InfluxDB organization.
	Org string
	// Bucket holds the sample measurement.
	Bucket string
	// Measurement names the series to read. Defaults to "refinement_samples".
	Measurement string
	// Range is the Flux range start, e.g. "-30d". Defaults to "-365d".
	Range string

	logger *slog.Logger
}

// WithLogger sets the logger used for query diagnostics.
func (p InfluxProvider) WithLogger(logger *slog.Logger) InfluxProvider {
	p.logger = logger
	return p
}

// Samples queries the bucket and converts each row into a domain.Sample.
// Rows without a weight field default to weight 1.0.
func (p InfluxProvider) Samples(ctx context.Context) ([]domain.Sample, error) {
	if p.URL == "" || p.Org == "" || p.Bucket == "" {
		return nil, fmt.Errorf("influx provider requires URL, Org and Bucket")
	}
	measurement := p.Measurement
	if measurement == "" {
		measurement = "refinement_samples"
	}
	queryRange := p.Range
	if queryRange == "" {
		queryRange = "-365d"
	}
	// Names are interpolated into the Flux query; reject anything that
	// could smuggle Flux syntax.
	if err := validation.ValidateIdentifier(p.Bucket); err != nil {
		return nil, fmt.Errorf("bucket: %w", err)
	}
	if err := validation.ValidateIdentifier(measurement); err != nil {
		return nil, fmt.Errorf("measurement: %w", err)
	}
	if err := validation.ValidateRange(queryRange); err != nil {
		return nil, err
	}
	logger := p.logger
	if logger == nil {
		logger = slog.Default()
	}

	client := influxdb2.NewClient(p.URL, p.Token)
	defer client.Close()

	queryAPI := client.QueryAPI(p.Org)

	query := fmt.Sprintf(`
		from(bucket: "%s")
		  |> range(start: %s)
		  |> filter(fn: (r) => r._measurement == "%s")
		  |> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
		  |> sort(columns: ["_time"], desc: false)
	`, p.Bucket, queryRange, measurement)

	logger.Debug("fetching samples from InfluxDB", "bucket", p.Bucket, "measurement", measurement)

	result, err := queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("influx query failed: %w", err)
	}

	var out []domain.Sample
	for result.Next() {
		record := result.Record()
		input, okIn := asUint64(record.ValueByKey("input"))
		output, okOut := asUint64(record.ValueByKey("output"))
		if !okIn || !okOut {
			continue // incomplete point
		}
		weight := 1.0
		if w, ok := record.ValueByKey("weight").(float64); ok {
			weight = w
		}
		out = append(out, domain.Sample{Input: input, Output: output, Weight: weight})
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("reading influx results: %w", result.Err())
	}

	logger.Info("fetched samples from InfluxDB", "count", len(out))
	return out, nil
}

// asUint64 coerces the numeric types the Flux client hands back.
func asUint64(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint64:
		return x, true
	case int64:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case float64:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	default:
		return 0, false
	}
}
