// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package entity

import "strings"

// TemplateID references a shared member template held by the registry.
//
// The zero value means "no template". IDs encode the registry generation
// that issued them; resolving an ID from a superseded generation is a
// contract violation and fails fast.
type TemplateID uint64

// IsZero reports whether the ID references no template.
func (t TemplateID) IsZero() bool { return t == 0 }

// StreamKind identifies which ingestion stream produced an entity.
type StreamKind int

const (
	// StreamSynthetic marks entities created by the builder itself.
	StreamSynthetic StreamKind = iota

	// StreamPlatform marks entities from the platform documentation stream.
	StreamPlatform

	// StreamConfiguration marks entities from the configuration metadata
	// stream.
	StreamConfiguration

	// StreamDelta marks entities introduced by an incremental delta.
	StreamDelta
)

// String returns the string representation of the StreamKind.
func (s StreamKind) String() string {
	switch s {
	case StreamPlatform:
		return "platform"
	case StreamConfiguration:
		return "configuration"
	case StreamDelta:
		return "delta"
	default:
		return "synthetic"
	}
}

// Provenance records where an entity's definition came from.
type Provenance struct {
	Stream StreamKind `json:"stream"`

	// Origin is a collaborator-supplied hint (archive version, metadata
	// file path). Informational only.
	Origin string `json:"origin,omitempty"`
}

// Facet is one shape of an entity: a reference to a shared template plus
// entity-specific extension members.
type Facet struct {
	Kind FacetKind `json:"kind"`

	// Template references the shared member set for (entity kind, facet
	// kind). Zero when the entity is "bare" for this facet.
	Template TemplateID `json:"template,omitempty"`

	// Ext holds members contributed by this entity alone, on top of the
	// template.
	Ext MemberSet `json:"ext,omitempty"`

	// IterationType is the element type produced by for-each iteration
	// over this facet. Collection facets only.
	//
	// IterationType and IndexAccessType may legitimately differ on the
	// same facet (a map iterates key/value pairs but indexes to values).
	// That divergence is a property of the language, not an inconsistency,
	// and is preserved verbatim through the index.
	IterationType string `json:"iteration_type,omitempty"`

	// IndexAccessType is the element type produced by [] access on this
	// facet. Collection facets only.
	IndexAccessType string `json:"index_access_type,omitempty"`

	// DynamicIndexFacet, when set, declares that name-indexed access on
	// this facet resolves to the named facet of the entity
	// "<QualifiedName>.<index>" (e.g. Catalogs[name] → the Manager facet
	// of Catalogs.<name>). Negative when unset.
	DynamicIndexFacet FacetKind `json:"dynamic_index_facet,omitempty"`

	// HasDynamicIndex guards DynamicIndexFacet, whose zero value is a
	// valid facet kind.
	HasDynamicIndex bool `json:"has_dynamic_index,omitempty"`
}

// Entity is one logical type: identity, classification and a sparse set of
// facets. Entities are owned exclusively by the unified index after the
// build and must not be mutated.
type Entity struct {
	ID            ID     `json:"id"`
	QualifiedName string `json:"qualified_name"`
	DisplayName   string `json:"display_name"`

	// AltName is the alternate-language name, when the platform
	// documentation provides one.
	AltName string `json:"alt_name,omitempty"`

	Category   Category       `json:"category"`
	Kind       StructuralKind `json:"kind"`
	Provenance Provenance     `json:"provenance"`

	// Facets is indexed by FacetKind. A nil slot means the facet is not
	// present; presence is always consistent with FacetSetForKind(Kind),
	// except for bare entities which may have fewer.
	Facets [FacetKindCount]*Facet `json:"facets"`

	// Extensions holds entity-level members that apply to every facet
	// (configuration attributes surface on Object and Reference alike).
	Extensions MemberSet `json:"extensions,omitempty"`

	// TabularSections are configuration-contributed nested tables.
	TabularSections []TabularSection `json:"tabular_sections,omitempty"`

	Doc       string      `json:"doc,omitempty"`
	Access    AccessRules `json:"access,omitempty"`
	Lifecycle Lifecycle   `json:"lifecycle,omitempty"`

	// CanConstruct reports whether the type may follow the constructor
	// keyword. Manager-only entities never can.
	CanConstruct bool `json:"can_construct,omitempty"`
}

// Facet returns the facet of the given kind, or nil when absent.
func (e *Entity) Facet(kind FacetKind) *Facet {
	if kind < 0 || kind >= FacetKindCount {
		return nil
	}
	return e.Facets[kind]
}

// HasFacet reports whether the facet of the given kind is present.
func (e *Entity) HasFacet(kind FacetKind) bool { return e.Facet(kind) != nil }

// FacetKinds returns the kinds of all present facets in FacetKind order.
func (e *Entity) FacetKinds() []FacetKind {
	var kinds []FacetKind
	for k := FacetKind(0); k < FacetKindCount; k++ {
		if e.Facets[k] != nil {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// IsBare reports whether the entity carries no facets at all. Bare entities
// come from records whose structural kind had no registered platform
// template; they keep only their directly-stated extensions.
func (e *Entity) IsBare() bool {
	for k := FacetKind(0); k < FacetKindCount; k++ {
		if e.Facets[k] != nil {
			return false
		}
	}
	return true
}

// IsManagerOnly reports whether the Manager facet is the entity's only
// shape. Used by constructor-context completion filtering.
func (e *Entity) IsManagerOnly() bool {
	kinds := e.FacetKinds()
	return len(kinds) == 1 && kinds[0] == FacetManager
}

// facetSets is the fixed kind→facet-set table. It is an invariant of the
// type model, never configurable per instance.
var facetSets = map[StructuralKind][]FacetKind{
	KindCatalog:              {FacetManager, FacetObject, FacetReference, FacetMetadata},
	KindDocument:             {FacetManager, FacetObject, FacetReference, FacetMetadata},
	KindEnumeration:          {FacetManager, FacetReference, FacetMetadata},
	KindInformationRegister:  {FacetManager, FacetObject, FacetMetadata},
	KindAccumulationRegister: {FacetManager, FacetObject, FacetMetadata},
	KindReport:               {FacetManager, FacetObject, FacetMetadata},
	KindDataProcessor:        {FacetManager, FacetObject, FacetMetadata},
	KindCommonModule:         {FacetObject, FacetMetadata},
	KindForm:                 {FacetObject, FacetMetadata},
	KindPrimitive:            {FacetConstructor},
	KindCollection:           {FacetConstructor, FacetCollection},
	KindCollectionElement:    {FacetReadOnlyElement},
	KindSingleton:            {FacetSingleton},
}

// FacetSetForKind returns the facet kinds an entity of the given structural
// kind carries. KindUnknown returns nil: such entities stay bare.
func FacetSetForKind(kind StructuralKind) []FacetKind {
	set, ok := facetSets[kind]
	if !ok {
		return nil
	}
	out := make([]FacetKind, len(set))
	copy(out, set)
	return out
}

// transitionKey identifies a cross-facet transition method on entities of
// one structural kind. An empty kind field matches any kind.
type transitionKey struct {
	kind   StructuralKind
	method string
}

// transitions maps (structural kind, method name) to the facet of the SAME
// entity the method returns. This is the static table behind
// MethodResult-context resolution; there are no per-entity callbacks.
var transitions = map[transitionKey]FacetKind{
	{KindCatalog, "getobject"}:       FacetObject,
	{KindDocument, "getobject"}:      FacetObject,
	{KindEnumeration, "getobject"}:   FacetObject,
	{KindCatalog, "createitem"}:      FacetObject,
	{KindDocument, "createdocument"}: FacetObject,
	{KindReport, "create"}:           FacetObject,
	{KindDataProcessor, "create"}:    FacetObject,

	{KindInformationRegister, "createrecordset"}:  FacetObject,
	{KindAccumulationRegister, "createrecordset"}: FacetObject,

	{KindCatalog, "emptyref"}:     FacetReference,
	{KindDocument, "emptyref"}:    FacetReference,
	{KindEnumeration, "emptyref"}: FacetReference,
	{KindCatalog, "ref"}:          FacetReference,
	{KindDocument, "ref"}:         FacetReference,
}

// TransitionTarget returns the target facet kind for a cross-facet
// transition method, or false when the method is not a transition.
//
// "Metadata" transitions exist on every entity that has a Metadata facet,
// so they are handled before the kind-specific table.
func TransitionTarget(kind StructuralKind, method string) (FacetKind, bool) {
	folded := strings.ToLower(strings.TrimSpace(method))
	if folded == "metadata" {
		return FacetMetadata, true
	}
	target, ok := transitions[transitionKey{kind, folded}]
	return target, ok
}
