// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolver

import (
	"github.com/escriptlabs/typeindex/entity"
	"github.com/escriptlabs/typeindex/index"
)

// Resolution is the outcome of facet resolution: the entity a name denotes
// and the facet the context selects on it.
type Resolution struct {
	Entity *entity.Entity

	// Facet is the selected facet kind. Only meaningful when HasFacet is
	// true.
	Facet entity.FacetKind

	// HasFacet is false for bare entities, which expose only their
	// directly-stated extensions.
	HasFacet bool
}

// ResolveFacet selects the facet a usage context exposes on the named type.
//
// Description:
//
//	Resolution is total over known names: for every entity the index
//	contains, some resolution is returned. The precedence is fixed:
//	method-result transitions first, then the context's default facet,
//	then the Reference facet as fallback, then any present facet, and
//	finally the bare entity itself. Only an unknown type name returns
//	false.
//
// Inputs:
//
//	idx      - the frozen index to resolve against.
//	typeName - qualified (or alternate) name of the entity.
//	ctx      - the classified usage site.
//
// Outputs:
//
//	Resolution and true when the name is known; zero Resolution and
//	false otherwise.
//
// Thread Safety: safe for concurrent use; idx is never mutated.
func ResolveFacet(idx *index.UnifiedIndex, typeName string, ctx Context) (Resolution, bool) {
	e, ok := idx.FindEntity(typeName)
	if !ok {
		return Resolution{}, false
	}

	// Method-result transitions outrank every context default: the
	// transition table says where the method lands regardless of where
	// the call was written.
	if ctx.Kind == ContextMethodResult {
		if target, isTransition := entity.TransitionTarget(e.Kind, ctx.Method); isTransition && e.HasFacet(target) {
			return Resolution{Entity: e, Facet: target, HasFacet: true}, true
		}
	}

	for _, kind := range contextDefaults(ctx.Kind) {
		if e.HasFacet(kind) {
			return Resolution{Entity: e, Facet: kind, HasFacet: true}, true
		}
	}

	// Reference facet fallback: a reference is the most widely valid
	// shape a faceted entity has.
	if e.HasFacet(entity.FacetReference) {
		return Resolution{Entity: e, Facet: entity.FacetReference, HasFacet: true}, true
	}
	if kinds := e.FacetKinds(); len(kinds) > 0 {
		return Resolution{Entity: e, Facet: kinds[0], HasFacet: true}, true
	}
	return Resolution{Entity: e}, true
}

// contextDefaults returns the facet preference order for one context kind.
// The order within each context is part of the resolution contract.
func contextDefaults(kind ContextKind) []entity.FacetKind {
	switch kind {
	case ContextAfterDot:
		// Dotted access on a type name reaches the manager; on types
		// without one, the instance surface.
		return []entity.FacetKind{entity.FacetManager, entity.FacetObject, entity.FacetSingleton}
	case ContextAfterNew:
		return []entity.FacetKind{entity.FacetConstructor, entity.FacetObject}
	case ContextForEachLoop, ContextIndexingAccess:
		return []entity.FacetKind{entity.FacetCollection}
	case ContextEmptyLine:
		return []entity.FacetKind{entity.FacetSingleton, entity.FacetManager}
	default:
		return nil
	}
}

// ResolveIterationVariable returns the element type a for-each loop over the
// named collection binds its loop variable to.
//
// Iteration and index-access element types may legitimately differ on the
// same collection; callers must not substitute one for the other.
func ResolveIterationVariable(idx *index.UnifiedIndex, collectionType string) (string, bool) {
	f, ok := collectionFacet(idx, collectionType)
	if !ok || f.IterationType == "" {
		return "", false
	}
	return f.IterationType, true
}

// ResolveIndexAccess returns the element type [] access on the named
// collection produces.
func ResolveIndexAccess(idx *index.UnifiedIndex, collectionType string) (string, bool) {
	f, ok := collectionFacet(idx, collectionType)
	if !ok || f.IndexAccessType == "" {
		return "", false
	}
	return f.IndexAccessType, true
}

// ResolveDynamicIndex resolves name-indexed access whose element type depends
// on the index value itself: container[name] lands on the declared facet of
// the entity "<container qualified name>.<name>".
//
// Returns false when the container is unknown, has no dynamic-index
// declaration, or the derived entity does not exist.
func ResolveDynamicIndex(idx *index.UnifiedIndex, collectionType, indexName string) (Resolution, bool) {
	container, ok := idx.FindEntity(collectionType)
	if !ok {
		return Resolution{}, false
	}
	f, ok := collectionFacet(idx, collectionType)
	if !ok || !f.HasDynamicIndex {
		return Resolution{}, false
	}
	e, ok := idx.FindEntity(container.QualifiedName + "." + indexName)
	if !ok {
		return Resolution{}, false
	}
	if e.HasFacet(f.DynamicIndexFacet) {
		return Resolution{Entity: e, Facet: f.DynamicIndexFacet, HasFacet: true}, true
	}
	// Declared facet absent on the element: fall through to the element's
	// own after-dot resolution rather than failing a known name.
	return ResolveFacet(idx, e.QualifiedName, AfterDot(collectionType))
}

// collectionFacet returns the facet carrying collection semantics for the
// named type: the Collection facet when present, otherwise the Singleton
// facet (global containers like dynamic type roots are singletons that
// still declare iteration and index-access types).
func collectionFacet(idx *index.UnifiedIndex, typeName string) (*entity.Facet, bool) {
	e, ok := idx.FindEntity(typeName)
	if !ok {
		return nil, false
	}
	if f := e.Facet(entity.FacetCollection); f != nil {
		return f, true
	}
	if f := e.Facet(entity.FacetSingleton); f != nil {
		return f, true
	}
	return nil, false
}
