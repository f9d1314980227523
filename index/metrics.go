// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package index

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for index queries.
var meter = otel.Meter("typeindex.index")

// Metrics for query operations.
var (
	lookupTotal metric.Int64Counter

	metricsOnce sync.Once
)

// initMetrics initializes the metrics. Safe to call multiple times; a
// failed registration leaves the counter nil and recording becomes a no-op
// rather than affecting query results.
func initMetrics() {
	metricsOnce.Do(func() {
		var err error
		lookupTotal, err = meter.Int64Counter(
			"typeindex_lookups_total",
			metric.WithDescription("Total number of index lookup operations"),
		)
		if err != nil {
			lookupTotal = nil
		}
	})
}

// recordLookup counts one lookup of the given kind.
func recordLookup(kind string) {
	initMetrics()
	if lookupTotal == nil {
		return
	}
	lookupTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", kind)))
}
