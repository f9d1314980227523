// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package builder

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for index builds.
var (
	tracer = otel.Tracer("typeindex.builder")
	meter  = otel.Meter("typeindex.builder")
)

// Metrics for build operations.
var (
	buildLatency  metric.Float64Histogram
	buildEntities metric.Int64Histogram

	metricsOnce sync.Once
)

// initMetrics initializes the metrics. A failed registration leaves the
// instruments nil and recording becomes a no-op.
func initMetrics() {
	metricsOnce.Do(func() {
		var err error
		buildLatency, err = meter.Float64Histogram(
			"typeindex_build_duration_seconds",
			metric.WithDescription("Duration of full index builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			buildLatency = nil
		}
		buildEntities, err = meter.Int64Histogram(
			"typeindex_build_entities",
			metric.WithDescription("Entities per built index"),
		)
		if err != nil {
			buildEntities = nil
		}
	})
}

// recordBuild records one completed build.
func recordBuild(ctx context.Context, d time.Duration, entities int) {
	initMetrics()
	if buildLatency != nil {
		buildLatency.Record(ctx, d.Seconds())
	}
	if buildEntities != nil {
		buildEntities.Record(ctx, int64(entities))
	}
}
