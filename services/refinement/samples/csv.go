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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/BuzzScud/ALGO3D-sub005/services/refinement/domain"
)

// CSVProvider loads samples from a CSV file with rows of the form
//
//	input,output[,weight]
//
// A missing weight column defaults to 1.0. A header row is detected by
// a non-numeric first field and skipped.
type CSVProvider struct {
	// Path is the CSV file to read.
	Path string
}

// Samples reads and parses the whole file.
func (p CSVProvider) Samples(ctx context.Context) ([]domain.Sample, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sample file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // weight column is optional
	r.TrimLeadingSpace = true

	var out []domain.Sample
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p.Path, err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("%s:%d: expected at least 2 fields, got %d", p.Path, line, len(record))
		}
		input, err := strconv.ParseUint(strings.TrimSpace(record[0]), 10, 64)
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("%s:%d: bad input field: %w", p.Path, line, err)
		}
		output, err := strconv.ParseUint(strings.TrimSpace(record[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad output field: %w", p.Path, line, err)
		}
		weight := 1.0
		if len(record) >= 3 && strings.TrimSpace(record[2]) != "" {
			weight, err = strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: bad weight field: %w", p.Path, line, err)
			}
		}
		out = append(out, domain.Sample{Input: input, Output: output, Weight: weight})
	}
	return out, nil
}
