// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TelemetryConfig controls tracing behavior for the CLI.
type TelemetryConfig struct {
	// ServiceName identifies this binary in spans.
	ServiceName string

	// ServiceVersion is the version string for this binary.
	ServiceVersion string

	// TraceExporter selects the trace exporter: "stdout" or "none".
	TraceExporter string
}

// DefaultTelemetryConfig returns tracing defaults: spans disabled.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		ServiceName:    "refine",
		ServiceVersion: "1.0.0",
		TraceExporter:  "none",
	}
}

// InitTelemetry sets up the OpenTelemetry TracerProvider per cfg. After
// it returns, otel.Tracer() spans flow to the configured exporter. The
// returned shutdown function must be called on exit.
//
// Thread Safety: call once at application startup.
func InitTelemetry(_ context.Context, cfg TelemetryConfig) (shutdown func(context.Context) error, err error) {
	if cfg.TraceExporter == "none" || cfg.TraceExporter == "" {
		return func(context.Context) error { return nil }, nil
	}
	if cfg.TraceExporter != "stdout" {
		return nil, fmt.Errorf("unknown trace exporter: %s", cfg.TraceExporter)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// MetricsHandler returns the HTTP handler serving the default
// Prometheus registry; the CLI mounts it at /metrics in watch mode.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
