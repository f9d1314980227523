// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package builder

import (
	"context"
	"errors"
	"strings"

	"github.com/escriptlabs/typeindex/entity"
	"github.com/escriptlabs/typeindex/index"
)

// ErrNoBaseline is returned by ApplyDelta before any successful Build.
var ErrNoBaseline = errors.New("no baseline build to apply delta to")

// Delta is the record-level change set produced by the external
// incremental-update trigger. The trigger owns change detection; the core
// only consumes the resulting records and invalidation set.
type Delta struct {
	// Upsert replaces or adds configuration records by qualified name.
	Upsert []entity.Record

	// Remove lists qualified names whose entities disappear.
	Remove []string
}

// Empty reports whether the delta changes nothing.
func (d Delta) Empty() bool {
	return len(d.Upsert) == 0 && len(d.Remove) == 0
}

// ApplyDelta recomposes a fresh index from the retained baseline input with
// the delta applied to the configuration stream.
//
// The previous index is never mutated: the result is a complete new value
// intended for Snapshot.Swap, so concurrent readers of the old index stay
// consistent. Platform records are reused as retained — platform data only
// changes with the platform version, which is a full rebuild by definition.
func (b *Builder) ApplyDelta(ctx context.Context, delta Delta) (*index.UnifiedIndex, []Warning, error) {
	if b.lastInput == nil {
		return nil, nil, ErrNoBaseline
	}

	removed := make(map[string]struct{}, len(delta.Remove))
	for _, name := range delta.Remove {
		removed[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	upserted := make(map[string]int, len(delta.Upsert))
	for i, rec := range delta.Upsert {
		upserted[strings.ToLower(strings.TrimSpace(rec.QualifiedName))] = i
	}

	next := make([]entity.Record, 0, len(b.lastInput.Configuration)+len(delta.Upsert))
	for _, rec := range b.lastInput.Configuration {
		key := strings.ToLower(strings.TrimSpace(rec.QualifiedName))
		if _, gone := removed[key]; gone {
			continue
		}
		if i, replaced := upserted[key]; replaced {
			next = append(next, delta.Upsert[i])
			delete(upserted, key)
			continue
		}
		next = append(next, rec)
	}
	// Remaining upserts are new entities, appended in delta order.
	for _, rec := range delta.Upsert {
		key := strings.ToLower(strings.TrimSpace(rec.QualifiedName))
		if _, pending := upserted[key]; pending {
			next = append(next, rec)
		}
	}

	in := Input{
		PlatformVersion: b.lastInput.PlatformVersion,
		ProjectIdentity: b.lastInput.ProjectIdentity,
		Platform:        b.lastInput.Platform,
		Configuration:   next,
	}
	return b.Build(ctx, in)
}
