// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package registry holds the facet template registry: one canonical member
// set per (structural kind, facet kind) pair, derived from platform
// documentation, stored once and referenced by every entity of that kind.
//
// # Lifecycle
//
// The registry is populated during the build phase and read-only afterward.
// It deliberately carries no locking: the builder is single-threaded during
// registration, and the query phase only resolves. Re-parsing platform
// documentation starts a new generation, which invalidates every previously
// issued TemplateID — callers must not retain IDs across a rebuild.
package registry

import (
	"errors"
	"fmt"

	"github.com/escriptlabs/typeindex/entity"
)

// Sentinel errors for template resolution.
var (
	// ErrTemplateNotFound is returned when no template exists for the
	// requested ID within the current generation.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrStaleTemplate is returned when an ID was issued by a superseded
	// registry generation. This is a programming-contract violation (a
	// caller retained an ID across a rebuild boundary) and should be
	// treated as fatal, unlike ordinary lookup misses.
	ErrStaleTemplate = errors.New("stale template reference")
)

// TemplateID layout: the generation lives in the top 16 bits, the slot
// index in the low 48. Zero is reserved for "no template".
const (
	generationShift = 48
	slotMask        = (uint64(1) << generationShift) - 1
)

// pairKey identifies one (structural kind, facet kind) template.
type pairKey struct {
	kind  entity.StructuralKind
	facet entity.FacetKind
}

// Registry stores the shared member sets.
type Registry struct {
	generation uint16

	// slots holds member sets in registration order; TemplateIDs index
	// into it. Slot 0 is a sentinel so that TemplateID 0 stays "none".
	slots []entity.MemberSet

	// byPair maps a pair to its slot, enabling idempotent re-registration.
	byPair map[pairKey]int
}

// New creates an empty registry at generation 1.
func New() *Registry {
	return &Registry{
		generation: 1,
		slots:      make([]entity.MemberSet, 1),
		byPair:     make(map[pairKey]int),
	}
}

// Register stores the canonical member set for (kind, facetKind) and
// returns its ID.
//
// Registration is idempotent by pair: re-registering fully replaces the
// previous member set and returns the same slot under the current
// generation. This supports re-parsing platform documentation without
// leaking superseded templates.
func (r *Registry) Register(kind entity.StructuralKind, facetKind entity.FacetKind, members entity.MemberSet) entity.TemplateID {
	key := pairKey{kind, facetKind}
	slot, ok := r.byPair[key]
	if !ok {
		slot = len(r.slots)
		r.slots = append(r.slots, entity.MemberSet{})
		r.byPair[key] = slot
	}
	r.slots[slot] = members
	return r.idFor(slot)
}

// Lookup returns the current template ID for (kind, facetKind), or zero
// when the platform stream never defined one.
func (r *Registry) Lookup(kind entity.StructuralKind, facetKind entity.FacetKind) entity.TemplateID {
	slot, ok := r.byPair[pairKey{kind, facetKind}]
	if !ok {
		return 0
	}
	return r.idFor(slot)
}

// Resolve returns the member set behind an ID.
//
// IDs from a superseded generation fail with ErrStaleTemplate; unknown IDs
// within the current generation fail with ErrTemplateNotFound.
func (r *Registry) Resolve(id entity.TemplateID) (*entity.MemberSet, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("%w: zero id", ErrTemplateNotFound)
	}
	gen := uint16(uint64(id) >> generationShift)
	if gen != r.generation {
		return nil, fmt.Errorf("%w: id generation %d, registry generation %d", ErrStaleTemplate, gen, r.generation)
	}
	slot := int(uint64(id) & slotMask)
	if slot <= 0 || slot >= len(r.slots) {
		return nil, fmt.Errorf("%w: slot %d", ErrTemplateNotFound, slot)
	}
	return &r.slots[slot], nil
}

// NextGeneration discards every template and invalidates all previously
// issued IDs. The builder calls this before re-ingesting a platform stream.
func (r *Registry) NextGeneration() {
	r.generation++
	r.slots = r.slots[:1]
	clear(r.byPair)
}

// Generation returns the current generation, for diagnostics.
func (r *Registry) Generation() uint16 { return r.generation }

// Len returns the number of registered templates.
func (r *Registry) Len() int { return len(r.byPair) }

func (r *Registry) idFor(slot int) entity.TemplateID {
	return entity.TemplateID(uint64(r.generation)<<generationShift | uint64(slot))
}
