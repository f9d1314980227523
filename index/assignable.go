// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package index

import (
	"strings"

	"github.com/escriptlabs/typeindex/entity"
)

// IsAssignable reports whether a value of type from is usable where type to
// is expected.
//
// THIS IS NOT NOMINAL SUBCLASSING. The rule is facet membership:
//
//  1. from == to (same qualified name, case-insensitive): assignable.
//  2. to denotes a structural facet shape — a "<Kind><Facet>" name such as
//     "CatalogReference" or "DocumentObject" — and from's facet set
//     includes that shape: assignable.
//  3. Anything else: not assignable.
//
// There is no transitive walk up a class hierarchy because no class
// hierarchy exists: a CatalogObject and a CatalogReference are two facets
// of the same entity, not two classes with a common ancestor. This is the
// core semantic departure from conventional type systems and the reason
// the check is O(1).
//
// Unknown names on either side yield false, never an error ("not found" is
// an expected outcome at query time).
func (idx *UnifiedIndex) IsAssignable(from, to string) bool {
	recordLookup("assignable")
	fromFold := foldName(from)
	toFold := foldName(to)
	if fromFold == toFold {
		return true
	}

	fromEntity, ok := idx.FindEntity(from)
	if !ok {
		return false
	}

	// Same entity reached through different names (alt-language name,
	// qualified vs display form of the qualified name).
	if toEntity, ok := idx.FindEntity(to); ok && toEntity.ID == fromEntity.ID {
		return true
	}

	kind, facet, ok := parseFacetShape(to)
	if !ok {
		return false
	}
	return fromEntity.Kind == kind && fromEntity.HasFacet(facet)
}

// parseFacetShape decodes a structural facet shape name of the form
// "<StructuralKind><FacetKind>" ("CatalogReference", "DocumentManager").
// The facet kind suffix is matched first because kind names never embed
// facet names.
func parseFacetShape(name string) (entity.StructuralKind, entity.FacetKind, bool) {
	folded := foldName(name)
	for f := entity.FacetKind(0); f < entity.FacetKindCount; f++ {
		suffix := strings.ToLower(f.String())
		if !strings.HasSuffix(folded, suffix) || len(folded) == len(suffix) {
			continue
		}
		kindPart := folded[:len(folded)-len(suffix)]
		if kind, ok := entity.ParseStructuralKind(kindPart); ok && kind != entity.KindUnknown {
			return kind, f, true
		}
	}
	return entity.KindUnknown, 0, false
}
