// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package builder composes a unified index from the two entity-record
// streams: platform documentation and configuration metadata.
//
// The build is one-shot and deterministic. Per-record validation and
// normalization fan out across workers (records share no state), then the
// merge step — template registration, stable-id assignment, conflict
// resolution, index construction — runs single-threaded over name-sorted
// data so identical inputs always produce value-identical indices.
//
// Input problems become warnings, never failures; the error return is
// reserved for context cancellation. A cancelled build leaves no observable
// effect: cache persistence happens only after the index is complete.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/escriptlabs/typeindex/entity"
	"github.com/escriptlabs/typeindex/index"
	"github.com/escriptlabs/typeindex/registry"
)

// DefaultWorkerCount 0 means runtime.NumCPU().
const DefaultWorkerCount = 0

// Persister receives the successful build's record snapshots. Implemented
// by the cache package; nil disables persistence.
//
// StorePlatform is keyed by platform version alone (shared across
// projects); StoreProject is keyed by (project identity, platform version)
// and receives only configuration-derived records, never platform data.
type Persister interface {
	StorePlatform(ctx context.Context, platformVersion string, records []entity.Record) error
	StoreProject(ctx context.Context, projectIdentity, platformVersion string, records []entity.Record) error
}

// Input is one complete build request.
type Input struct {
	// PlatformVersion keys the template registry generation and the
	// platform cache unit.
	PlatformVersion string

	// ProjectIdentity keys the project cache unit. Empty disables project
	// persistence.
	ProjectIdentity string

	// Platform is the platform documentation stream: template records
	// plus concrete platform types and global-context elements.
	Platform []entity.Record

	// Configuration is the application metadata stream.
	Configuration []entity.Record
}

// Options configures the Builder.
type Options struct {
	// WorkerCount bounds the normalization fan-out. Default: NumCPU.
	WorkerCount int

	// Logger receives build progress. Default: slog.Default().
	Logger *slog.Logger

	// Persister receives record snapshots after a fully successful
	// build. May be nil.
	Persister Persister
}

// Option is a functional option for configuring the Builder.
type Option func(*Options)

// WithWorkerCount sets the normalization worker count.
func WithWorkerCount(n int) Option {
	return func(o *Options) { o.WorkerCount = n }
}

// WithLogger sets the build logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithPersister attaches a cache persister.
func WithPersister(p Persister) Option {
	return func(o *Options) { o.Persister = p }
}

// Builder builds unified indices. A Builder retains the normalized input
// of its last successful build so that ApplyDelta can recompose a fresh
// index without the caller re-supplying unchanged records.
//
// Builder is not safe for concurrent use; the produced indices are.
type Builder struct {
	options Options

	// lastInput is the input of the last successful Build, retained for
	// ApplyDelta.
	lastInput *Input
}

// New creates a Builder.
func New(opts ...Option) *Builder {
	options := Options{WorkerCount: DefaultWorkerCount, Logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.WorkerCount <= 0 {
		options.WorkerCount = runtime.NumCPU()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Builder{options: options}
}

// Build composes a frozen index from the two streams.
//
// Algorithm:
//  1. Normalize both streams in parallel (validation, defaults); collect
//     per-record warnings in input order.
//  2. Register facet templates from platform template records.
//  3. Merge single-threaded: construct entities, resolve name conflicts
//     (configuration wins), assign stable ids.
//  4. Freeze: index.New builds all secondary indices and graphs in one
//     pass.
//
// Returns the index, the accumulated warnings and an error only on
// cancellation. On success the persister (when set) receives the record
// snapshots; persistence errors are logged and reported as warnings
// because the in-memory index is already complete and usable.
func (b *Builder) Build(ctx context.Context, in Input) (*index.UnifiedIndex, []Warning, error) {
	ctx, span := tracer.Start(ctx, "builder.Build")
	defer span.End()
	start := time.Now()

	platform, platformWarnings, err := b.normalize(ctx, in.Platform, entity.StreamPlatform)
	if err != nil {
		return nil, nil, err
	}
	configuration, configWarnings, err := b.normalize(ctx, in.Configuration, entity.StreamConfiguration)
	if err != nil {
		return nil, nil, err
	}

	warnings := append(platformWarnings, configWarnings...)

	reg := registry.New()
	b.registerTemplates(reg, platform)

	entities, mergeWarnings := b.merge(reg, platform, configuration)
	warnings = append(warnings, mergeWarnings...)

	idx := index.New(in.PlatformVersion, reg, entities)

	recordBuild(ctx, time.Since(start), idx.Stats().TotalEntities)
	b.options.Logger.Info("index built",
		"platform_version", in.PlatformVersion,
		"entities", idx.Stats().TotalEntities,
		"templates", reg.Len(),
		"warnings", len(warnings),
		"duration", time.Since(start))

	// Persist only after the build is fully complete, so a cancelled or
	// failed build never leaves a partial cache unit behind.
	if b.options.Persister != nil {
		if err := b.options.Persister.StorePlatform(ctx, in.PlatformVersion, in.Platform); err != nil {
			b.options.Logger.Warn("platform cache write failed", "error", err)
		}
		if in.ProjectIdentity != "" {
			if err := b.options.Persister.StoreProject(ctx, in.ProjectIdentity, in.PlatformVersion, in.Configuration); err != nil {
				b.options.Logger.Warn("project cache write failed", "error", err)
			}
		}
	}

	retained := in
	b.lastInput = &retained
	return idx, warnings, nil
}

// normalized pairs a validated record with its parsed kinds.
type normalized struct {
	record   entity.Record
	kind     entity.StructuralKind
	kindOK   bool
	category entity.Category
	stream   entity.StreamKind
	skip     bool
	warning  *Warning
}

// normalize validates and defaults records in parallel. Results keep input
// order: each worker writes only its own slots, so the fan-out shares no
// mutable state and the output is deterministic.
func (b *Builder) normalize(ctx context.Context, records []entity.Record, stream entity.StreamKind) ([]normalized, []Warning, error) {
	out := make([]normalized, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.options.WorkerCount)
	for i := range records {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec := records[i]
			n := normalized{record: rec, stream: stream}
			if err := rec.Validate(); err != nil {
				n.skip = true
				n.warning = &Warning{
					Kind:          WarningMalformedRecord,
					QualifiedName: rec.QualifiedName,
					Detail:        err.Error(),
				}
				out[i] = n
				return nil
			}
			n.record.EnsureDefaults(stream)
			n.kind, n.kindOK = entity.ParseStructuralKind(n.record.StructuralKind)
			if !n.kindOK {
				n.warning = &Warning{
					Kind:          WarningUnknownKind,
					QualifiedName: rec.QualifiedName,
					Detail:        fmt.Sprintf("structural kind %q is not recognized; entity kept bare", rec.StructuralKind),
				}
			}
			n.category = entity.ParseCategory(n.record.Category)
			out[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	for i := range out {
		if out[i].warning != nil {
			warnings = append(warnings, *out[i].warning)
		}
	}
	return out, warnings, nil
}

// registerTemplates populates the registry from platform template records.
// Records are processed in qualified-name order so re-registration of the
// same pair resolves identically across builds.
func (b *Builder) registerTemplates(reg *registry.Registry, platform []normalized) {
	templates := make([]*normalized, 0)
	for i := range platform {
		n := &platform[i]
		if n.skip || !n.record.Template || !n.kindOK {
			continue
		}
		templates = append(templates, n)
	}
	sort.Slice(templates, func(i, j int) bool {
		return strings.ToLower(templates[i].record.QualifiedName) < strings.ToLower(templates[j].record.QualifiedName)
	})
	for _, n := range templates {
		for _, facetKind := range entity.FacetSetForKind(n.kind) {
			hint := n.record.HintFor(facetKind)
			if hint == nil {
				continue
			}
			reg.Register(n.kind, facetKind, hint.MemberSet())
		}
	}
}

// merge runs the single-threaded composition: entity construction, conflict
// resolution and stable-id assignment.
func (b *Builder) merge(reg *registry.Registry, platform, configuration []normalized) ([]*entity.Entity, []Warning) {
	var warnings []Warning

	// byName tracks the winning entity per folded qualified name.
	byName := make(map[string]*entity.Entity)
	var order []string

	place := func(n *normalized) {
		if n.skip || n.record.Template {
			return
		}
		e := b.construct(reg, n, &warnings)
		key := strings.ToLower(strings.TrimSpace(e.QualifiedName))
		existing, ok := byName[key]
		if !ok {
			byName[key] = e
			order = append(order, key)
			return
		}
		// Cross-stream conflict: configuration wins over platform.
		if existing.Provenance.Stream == entity.StreamPlatform && n.stream == entity.StreamConfiguration {
			warnings = append(warnings, Warning{
				Kind:          WarningNameConflict,
				QualifiedName: e.QualifiedName,
				Detail:        "defined by both platform and configuration streams; configuration definition wins",
			})
			byName[key] = e
			return
		}
		// Same-stream duplicate: first definition wins.
		warnings = append(warnings, Warning{
			Kind:          WarningDuplicateName,
			QualifiedName: e.QualifiedName,
			Detail:        fmt.Sprintf("already defined by the %s stream; first definition kept", existing.Provenance.Stream),
		})
	}

	for i := range platform {
		place(&platform[i])
	}
	for i := range configuration {
		place(&configuration[i])
	}

	entities := make([]*entity.Entity, 0, len(order))
	for _, key := range order {
		entities = append(entities, byName[key])
	}
	return entities, warnings
}

// construct builds one entity from a normalized record, deriving its facet
// set from the fixed kind table and attaching template references.
func (b *Builder) construct(reg *registry.Registry, n *normalized, warnings *[]Warning) *entity.Entity {
	rec := &n.record
	e := &entity.Entity{
		ID:            entity.NewID(rec.QualifiedName),
		QualifiedName: rec.QualifiedName,
		DisplayName:   rec.DisplayName,
		AltName:       rec.AltName,
		Category:      n.category,
		Kind:          n.kind,
		Provenance:    entity.Provenance{Stream: n.stream, Origin: rec.Origin},
		Extensions: entity.MemberSet{
			Methods:    rec.Extensions.Methods,
			Properties: rec.Extensions.Properties,
		},
		TabularSections: rec.Extensions.TabularSections,
		Doc:             rec.Documentation,
		Access:          rec.Access,
		Lifecycle:       rec.Lifecycle,
		CanConstruct:    rec.CanConstruct,
	}

	facetSet := entity.FacetSetForKind(n.kind)
	if len(facetSet) == 0 {
		return e // bare by construction (unknown kind warning already emitted)
	}

	// A configuration entity whose kind has no registered platform
	// template keeps only its directly-stated extensions.
	if n.stream != entity.StreamPlatform && !hasAnyTemplate(reg, n.kind, facetSet) {
		*warnings = append(*warnings, Warning{
			Kind:          WarningBareEntity,
			QualifiedName: rec.QualifiedName,
			Detail:        fmt.Sprintf("no platform template registered for kind %s; entity kept bare", n.kind),
		})
		return e
	}

	for _, facetKind := range facetSet {
		f := &entity.Facet{
			Kind:     facetKind,
			Template: reg.Lookup(n.kind, facetKind),
		}
		if hint := rec.HintFor(facetKind); hint != nil {
			f.Ext = hint.MemberSet()
			f.IterationType = hint.IterationType
			f.IndexAccessType = hint.IndexAccessType
			if hint.DynamicIndexFacet != "" {
				if target, ok := entity.ParseFacetKind(hint.DynamicIndexFacet); ok {
					f.DynamicIndexFacet = target
					f.HasDynamicIndex = true
				}
			}
		}
		e.Facets[facetKind] = f
	}

	// Constructor facets imply constructibility unless the record says
	// otherwise.
	if !e.CanConstruct && e.HasFacet(entity.FacetConstructor) {
		e.CanConstruct = true
	}
	return e
}

func hasAnyTemplate(reg *registry.Registry, kind entity.StructuralKind, facetSet []entity.FacetKind) bool {
	for _, facetKind := range facetSet {
		if !reg.Lookup(kind, facetKind).IsZero() {
			return true
		}
	}
	return false
}
