// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that end up
// in database queries or file paths. Using these validators prevents
// injection attacks (Flux injection, path traversal).
package validation

import (
	"fmt"
	"regexp"
)

// identifierPattern matches valid InfluxDB bucket and measurement names
// as this project uses them: alphanumerics, underscores, hyphens and
// dots, starting with an alphanumeric, at most 64 characters.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]{0,63}$`)

// ValidateIdentifier validates a bucket or measurement name before it
// is interpolated into a Flux query.
//
// Example:
//
//	if err := validation.ValidateIdentifier(bucket); err != nil {
//	    return nil, fmt.Errorf("invalid bucket: %w", err)
//	}
//	// Safe to use in Flux query
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier: %q (must be 1-64 alphanumeric, underscore, dot or hyphen chars)", name)
	}
	return nil
}

// rangePattern matches the Flux range start forms the CLI accepts:
// a negative duration like -30d / -12h / -90m.
var rangePattern = regexp.MustCompile(`^-\d{1,6}(s|m|h|d|w|mo|y)$`)

// ValidateRange validates a Flux range start expression.
func ValidateRange(r string) error {
	if r == "" {
		return fmt.Errorf("range cannot be empty")
	}
	if !rangePattern.MatchString(r) {
		return fmt.Errorf("invalid range: %q (expected a negative duration like -30d)", r)
	}
	return nil
}
