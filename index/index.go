// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package index provides the unified type index: O(1) lookups over the
// merged platform + configuration type universe, member aggregation across
// facets, assignability checks and the relationship graphs.
//
// # Immutability
//
// A UnifiedIndex is frozen at construction. Every secondary structure is
// built in one pass inside New and never touched again, so one index value
// may be shared across unboundedly many concurrent readers without locking.
// Updates produce a whole new index exposed through Snapshot's atomic swap;
// readers never observe partial state.
//
// # Assignability is not inheritance
//
// IsAssignable is facet/template-membership based: "from is usable where to
// is expected" means to names a structural facet shape that from's facet
// set includes. There is no nominal subclass relation anywhere in this type
// model. Code ported from class-based type systems must not assume
// transitivity through a class hierarchy that does not exist here.
package index

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/escriptlabs/typeindex/entity"
	"github.com/escriptlabs/typeindex/registry"
)

// Interface is the aggregated member surface of one entity across all of
// its facets.
type Interface struct {
	Methods         []entity.Method
	Properties      []entity.Property
	Constructors    []entity.Constructor
	TabularSections []entity.TabularSection
}

// Stats describes the size and composition of an index.
type Stats struct {
	TotalEntities     int
	PlatformEntities  int
	ConfigEntities    int
	GlobalElements    int
	Templates         int
	MembershipEdges   int
	CrossFacetEdges   int
	ReverseMethodKeys int
	PlatformVersion   string
}

// UnifiedIndex is the frozen query layer. Construct with New; never mutate.
type UnifiedIndex struct {
	platformVersion string
	registry        *registry.Registry

	// Primary store. Entities are referenced by stable ID everywhere else.
	entities map[entity.ID]*entity.Entity

	// O(1) lookup indices. Name keys are case-folded.
	byQualifiedName map[string]entity.ID
	byAltName       map[string]entity.ID
	byDisplayName   map[string][]entity.ID
	byKind          map[entity.StructuralKind][]entity.ID
	byCategory      map[entity.Category][]entity.ID

	// methodOwners is the reverse index behind TypesWithMethod: folded
	// method name → qualified names in deterministic order.
	methodOwners map[string][]string

	// Relationship graphs, ID-keyed (arena/stable-id pattern).
	membership map[entity.ID][]entity.TemplateID
	crossFacet map[entity.ID][]CrossFacetEdge

	// ordered holds entity IDs sorted by folded qualified name; every
	// enumeration walks it so two builds from identical input enumerate
	// identically.
	ordered []entity.ID

	stats Stats
}

// CrossFacetEdge records a same-entity facet transition (Object.Metadata()
// lands on the Metadata facet of the same entity).
type CrossFacetEdge struct {
	From   entity.FacetKind
	To     entity.FacetKind
	Method string
}

// New freezes the given entities into a query-ready index.
//
// New is the single construction path: the builder assembles entities
// (conflicts already resolved), then hands them over together with the
// populated template registry. All secondary indices and both graphs are
// built here in one pass over the entities in qualified-name order, which
// makes construction deterministic for identical inputs.
func New(platformVersion string, reg *registry.Registry, entities []*entity.Entity) *UnifiedIndex {
	idx := &UnifiedIndex{
		platformVersion: platformVersion,
		registry:        reg,
		entities:        make(map[entity.ID]*entity.Entity, len(entities)),
		byQualifiedName: make(map[string]entity.ID, len(entities)),
		byAltName:       make(map[string]entity.ID),
		byDisplayName:   make(map[string][]entity.ID),
		byKind:          make(map[entity.StructuralKind][]entity.ID),
		byCategory:      make(map[entity.Category][]entity.ID),
		methodOwners:    make(map[string][]string),
		membership:      make(map[entity.ID][]entity.TemplateID),
		crossFacet:      make(map[entity.ID][]CrossFacetEdge),
	}

	sorted := make([]*entity.Entity, len(entities))
	copy(sorted, entities)
	sort.Slice(sorted, func(i, j int) bool {
		return foldName(sorted[i].QualifiedName) < foldName(sorted[j].QualifiedName)
	})

	for _, e := range sorted {
		idx.insert(e)
	}

	idx.stats.TotalEntities = len(idx.entities)
	idx.stats.PlatformEntities = len(idx.byCategory[entity.CategoryPlatform])
	idx.stats.ConfigEntities = len(idx.byCategory[entity.CategoryConfiguration])
	idx.stats.GlobalElements = len(idx.byCategory[entity.CategoryGlobal])
	if reg != nil {
		idx.stats.Templates = reg.Len()
	}
	idx.stats.ReverseMethodKeys = len(idx.methodOwners)
	idx.stats.PlatformVersion = platformVersion
	return idx
}

// insert is only called from New, in deterministic order.
func (idx *UnifiedIndex) insert(e *entity.Entity) {
	idx.entities[e.ID] = e
	idx.ordered = append(idx.ordered, e.ID)

	idx.byQualifiedName[foldName(e.QualifiedName)] = e.ID
	if e.AltName != "" {
		idx.byAltName[foldName(e.AltName)] = e.ID
	}
	display := foldName(e.DisplayName)
	idx.byDisplayName[display] = append(idx.byDisplayName[display], e.ID)
	idx.byKind[e.Kind] = append(idx.byKind[e.Kind], e.ID)
	idx.byCategory[e.Category] = append(idx.byCategory[e.Category], e.ID)

	// Reverse method index: template members plus extensions, every facet.
	seen := make(map[string]struct{})
	iface := idx.aggregate(e)
	for _, m := range iface.Methods {
		key := foldName(m.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		idx.methodOwners[key] = append(idx.methodOwners[key], e.QualifiedName)
		if m.AltName != "" {
			altKey := foldName(m.AltName)
			if _, dup := seen[altKey]; !dup {
				seen[altKey] = struct{}{}
				idx.methodOwners[altKey] = append(idx.methodOwners[altKey], e.QualifiedName)
			}
		}
	}

	// Membership graph: entity → referenced templates.
	for _, kind := range e.FacetKinds() {
		f := e.Facet(kind)
		if !f.Template.IsZero() {
			idx.membership[e.ID] = append(idx.membership[e.ID], f.Template)
			idx.stats.MembershipEdges++
		}
	}

	// Cross-facet reference graph from the static transition table.
	idx.linkCrossFacets(e, iface)
}

// linkCrossFacets adds same-entity transition edges for every aggregated
// method that the transition table maps to a present facet.
func (idx *UnifiedIndex) linkCrossFacets(e *entity.Entity, iface Interface) {
	for _, m := range iface.Methods {
		target, ok := entity.TransitionTarget(e.Kind, m.Name)
		if !ok || !e.HasFacet(target) {
			continue
		}
		from := entity.FacetObject
		if !e.HasFacet(from) {
			kinds := e.FacetKinds()
			if len(kinds) == 0 {
				continue
			}
			from = kinds[0]
		}
		idx.crossFacet[e.ID] = append(idx.crossFacet[e.ID], CrossFacetEdge{
			From:   from,
			To:     target,
			Method: m.Name,
		})
		idx.stats.CrossFacetEdges++
	}
}

// FindEntity returns the entity with the given qualified name. Lookup is
// exact (case-insensitive) and O(1); a miss is an expected outcome of
// user-typed names, not an error.
func (idx *UnifiedIndex) FindEntity(qualifiedName string) (*entity.Entity, bool) {
	recordLookup("qualified")
	if id, ok := idx.byQualifiedName[foldName(qualifiedName)]; ok {
		return idx.entities[id], true
	}
	if id, ok := idx.byAltName[foldName(qualifiedName)]; ok {
		return idx.entities[id], true
	}
	return nil, false
}

// FindEntityByID returns the entity with the given stable ID.
func (idx *UnifiedIndex) FindEntityByID(id entity.ID) (*entity.Entity, bool) {
	e, ok := idx.entities[id]
	return e, ok
}

// FindEntityByDisplayName is the best-effort bare-name convenience lookup.
//
// Display names are not unique, so the tie-break is a documented total
// order, never a guess: configuration-sourced entities win over
// platform-sourced ones, then the fixed StructuralKind enum order, then
// lexical qualified-name order. The same index always returns the same
// entity for the same name. Callers that need certainty should use
// FindEntity with a qualified name.
func (idx *UnifiedIndex) FindEntityByDisplayName(displayName string) (*entity.Entity, bool) {
	recordLookup("display")
	ids := idx.byDisplayName[foldName(displayName)]
	if len(ids) == 0 {
		return nil, false
	}
	best := idx.entities[ids[0]]
	for _, id := range ids[1:] {
		candidate := idx.entities[id]
		if displayNameLess(candidate, best) {
			best = candidate
		}
	}
	return best, true
}

// displayNameLess orders candidates for the bare-name tie-break.
func displayNameLess(a, b *entity.Entity) bool {
	aConfig := a.Category == entity.CategoryConfiguration
	bConfig := b.Category == entity.CategoryConfiguration
	if aConfig != bConfig {
		return aConfig
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return foldName(a.QualifiedName) < foldName(b.QualifiedName)
}

// AllMethods returns the union of every facet template's methods plus the
// entity-level extensions, in template-then-extension order, deduplicated
// by name with entity-level definitions overriding same-named template
// definitions. Unknown names return an empty slice.
func (idx *UnifiedIndex) AllMethods(qualifiedName string) []entity.Method {
	e, ok := idx.FindEntity(qualifiedName)
	if !ok {
		return nil
	}
	return idx.aggregate(e).Methods
}

// CompleteInterface returns the full aggregated member surface of an
// entity: methods, properties, constructors and tabular sections.
func (idx *UnifiedIndex) CompleteInterface(qualifiedName string) (Interface, bool) {
	e, ok := idx.FindEntity(qualifiedName)
	if !ok {
		return Interface{}, false
	}
	return idx.aggregate(e), true
}

// aggregate merges template and facet-level members across all facets in
// FacetKind order, then applies the entity-level extensions exactly once.
// Applying them last keeps the aggregated order template-then-extension no
// matter how many facets the entity carries; folding them per facet would
// interleave an extension between one facet's template and the next's.
func (idx *UnifiedIndex) aggregate(e *entity.Entity) Interface {
	merged := entity.MemberSet{}
	for _, kind := range e.FacetKinds() {
		fs := idx.facetSurface(e, kind)
		merged = entity.MergeMemberSets(&merged, &fs)
	}
	merged = entity.MergeMemberSets(&merged, &e.Extensions)
	return Interface{
		Methods:         merged.Methods,
		Properties:      merged.Properties,
		Constructors:    merged.Constructors,
		TabularSections: e.TabularSections,
	}
}

// facetSurface returns one facet's own members: shared template first,
// facet-level extensions second. Entity-level extensions are not included;
// both callers layer them on top.
//
// A facet holding a template ID from a superseded registry generation is a
// contract violation (the entity and registry were not constructed
// together), so it fails fast instead of silently serving a partial member
// set.
func (idx *UnifiedIndex) facetSurface(e *entity.Entity, kind entity.FacetKind) entity.MemberSet {
	f := e.Facet(kind)
	if f == nil {
		return entity.MemberSet{}
	}
	var template *entity.MemberSet
	if !f.Template.IsZero() && idx.registry != nil {
		ms, err := idx.registry.Resolve(f.Template)
		if errors.Is(err, registry.ErrStaleTemplate) {
			panic(fmt.Sprintf("index: facet %s of %s references a template from a superseded registry generation: %v",
				kind, e.QualifiedName, err))
		}
		if err == nil {
			template = ms
		}
	}
	merged := entity.MergeMemberSets(template, &f.Ext)

	// Tabular sections surface as read-only properties of the Object
	// facet, typed by their section name.
	if kind == entity.FacetObject {
		for _, ts := range e.TabularSections {
			if _, exists := merged.Property(ts.Name); !exists {
				merged.Properties = append(merged.Properties, entity.Property{
					Name:     ts.Name,
					Type:     "TabularSection",
					ReadOnly: true,
				})
			}
		}
	}
	return merged
}

// FacetMembers returns the merged member set of one facet: shared template
// first, facet-level extensions second, entity-level extensions last (each
// layer overriding same-named members of the previous).
func (idx *UnifiedIndex) FacetMembers(e *entity.Entity, kind entity.FacetKind) entity.MemberSet {
	if e.Facet(kind) == nil {
		return entity.MemberSet{}
	}
	surface := idx.facetSurface(e, kind)
	return entity.MergeMemberSets(&surface, &e.Extensions)
}

// TypesWithMethod returns a lazy, restartable sequence of the qualified
// names of all entities exposing the given method on any facet. The
// sequence is served from a reverse index built at construction; iteration
// cost is proportional to the result size only.
func (idx *UnifiedIndex) TypesWithMethod(methodName string) iter.Seq[string] {
	names := idx.methodOwners[foldName(methodName)]
	return func(yield func(string) bool) {
		for _, name := range names {
			if !yield(name) {
				return
			}
		}
	}
}

// EntitiesByKind returns all entities of one structural kind, in
// qualified-name order. The slice is a defensive copy.
func (idx *UnifiedIndex) EntitiesByKind(kind entity.StructuralKind) []*entity.Entity {
	return idx.collect(idx.byKind[kind])
}

// EntitiesByCategory returns all entities of one category, in
// qualified-name order. The slice is a defensive copy.
func (idx *UnifiedIndex) EntitiesByCategory(cat entity.Category) []*entity.Entity {
	return idx.collect(idx.byCategory[cat])
}

func (idx *UnifiedIndex) collect(ids []entity.ID) []*entity.Entity {
	if len(ids) == 0 {
		return nil
	}
	out := make([]*entity.Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, idx.entities[id])
	}
	sort.Slice(out, func(i, j int) bool {
		return foldName(out[i].QualifiedName) < foldName(out[j].QualifiedName)
	})
	return out
}

// Constructible returns every entity valid after the constructor keyword:
// CanConstruct set and not manager-only. Used by constructor-context
// completion.
func (idx *UnifiedIndex) Constructible() []*entity.Entity {
	var out []*entity.Entity
	for _, id := range idx.ordered {
		e := idx.entities[id]
		if e.CanConstruct && !e.IsManagerOnly() {
			out = append(out, e)
		}
	}
	return out
}

// MembershipEdges returns the entity→template edges for one entity.
func (idx *UnifiedIndex) MembershipEdges(id entity.ID) []entity.TemplateID {
	edges := idx.membership[id]
	out := make([]entity.TemplateID, len(edges))
	copy(out, edges)
	return out
}

// CrossFacetEdges returns the same-entity facet transition edges for one
// entity.
func (idx *UnifiedIndex) CrossFacetEdges(id entity.ID) []CrossFacetEdge {
	edges := idx.crossFacet[id]
	out := make([]CrossFacetEdge, len(edges))
	copy(out, edges)
	return out
}

// TemplateMembers resolves a template reference through the registry the
// index was built with. Stale-generation IDs fail fast.
func (idx *UnifiedIndex) TemplateMembers(id entity.TemplateID) (*entity.MemberSet, error) {
	if idx.registry == nil {
		return nil, registry.ErrTemplateNotFound
	}
	return idx.registry.Resolve(id)
}

// SuggestSimilarNames returns up to limit known names containing the search
// term, sorted, for "did you mean" output. Case-insensitive substring
// match; O(index size), intended for interactive tooling only.
func (idx *UnifiedIndex) SuggestSimilarNames(term string, limit int) []string {
	if term == "" || limit <= 0 {
		return nil
	}
	want := foldName(term)
	var out []string
	for _, id := range idx.ordered {
		e := idx.entities[id]
		if strings.Contains(foldName(e.QualifiedName), want) ||
			strings.Contains(foldName(e.DisplayName), want) {
			out = append(out, e.QualifiedName)
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PlatformVersion returns the platform version this index was built
// against.
func (idx *UnifiedIndex) PlatformVersion() string { return idx.platformVersion }

// Stats returns the index composition counters, maintained at construction
// time (no traversal).
func (idx *UnifiedIndex) Stats() Stats { return idx.stats }

// foldName is the canonical case-fold for all name keys.
func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
