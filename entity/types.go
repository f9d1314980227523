// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package entity defines the data model for the unified type index.
//
// One logical type in the scripting language is represented by an Entity:
// a bundle of up to eight alternative "facets" (shapes), each backed by a
// shared member template plus entity-specific extensions. Which facets an
// entity carries is a fixed function of its structural kind, never a
// per-instance choice.
//
// Design principles:
//   - Closed vocabularies: facet kinds and structural kinds are small enums
//     known at design time, so the kind→facet-set table is statically
//     checkable and facets live in a fixed array, not a dynamic map.
//   - Entities are immutable once the index build completes. Nothing in
//     this package enforces that at runtime; the builder is the only writer.
//   - Assignability is facet/template-membership based. There is no class
//     inheritance anywhere in this model.
package entity

import (
	"fmt"
	"strings"
)

// Category classifies where an entity's definition comes from.
type Category int

const (
	// CategoryUnknown is the zero value for unclassified records.
	CategoryUnknown Category = iota

	// CategoryPlatform marks types built into the platform runtime.
	CategoryPlatform

	// CategoryConfiguration marks application-defined types parsed from
	// configuration metadata.
	CategoryConfiguration

	// CategoryForm marks form types owned by a configuration object.
	CategoryForm

	// CategoryModule marks modules exposing exported procedures.
	CategoryModule

	// CategoryGlobal marks global-context elements: functions, properties
	// and manager collections reachable without qualification.
	CategoryGlobal
)

// String returns the string representation of the Category.
func (c Category) String() string {
	switch c {
	case CategoryPlatform:
		return "Platform"
	case CategoryConfiguration:
		return "Configuration"
	case CategoryForm:
		return "Form"
	case CategoryModule:
		return "Module"
	case CategoryGlobal:
		return "Global"
	default:
		return "Unknown"
	}
}

// ParseCategory converts an ingestion-record category string to a Category.
// Unrecognized values map to CategoryUnknown; the caller decides whether
// that is a warning.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "platform":
		return CategoryPlatform
	case "configuration":
		return CategoryConfiguration
	case "form":
		return CategoryForm
	case "module":
		return CategoryModule
	case "global":
		return CategoryGlobal
	default:
		return CategoryUnknown
	}
}

// StructuralKind is the structural category of an entity. The enum order is
// meaningful: it is the documented tie-break order for bare display-name
// lookups, so new kinds must be appended, never inserted.
type StructuralKind int

const (
	// KindUnknown is kept for malformed records that survive as bare
	// entities.
	KindUnknown StructuralKind = iota

	// KindCatalog is a reference data list (customers, products).
	KindCatalog

	// KindDocument is a dated, postable business record.
	KindDocument

	// KindEnumeration is a fixed value list defined in metadata.
	KindEnumeration

	// KindInformationRegister stores dimensioned facts.
	KindInformationRegister

	// KindAccumulationRegister stores additive balances and turnovers.
	KindAccumulationRegister

	// KindReport is a configuration-defined report object.
	KindReport

	// KindDataProcessor is a configuration-defined processing object.
	KindDataProcessor

	// KindCommonModule is a shared code module.
	KindCommonModule

	// KindForm is a managed form type.
	KindForm

	// KindPrimitive is a platform primitive (String, Number, Date, Boolean).
	KindPrimitive

	// KindCollection is a platform collection (Array, Map, ValueTable).
	KindCollection

	// KindCollectionElement is the element type of a platform collection.
	KindCollectionElement

	// KindSingleton is a platform object with exactly one instance
	// (Metadata, the global context itself).
	KindSingleton
)

// structuralKindNames is indexed by StructuralKind.
var structuralKindNames = [...]string{
	"Unknown",
	"Catalog",
	"Document",
	"Enumeration",
	"InformationRegister",
	"AccumulationRegister",
	"Report",
	"DataProcessor",
	"CommonModule",
	"Form",
	"Primitive",
	"Collection",
	"CollectionElement",
	"Singleton",
}

// String returns the string representation of the StructuralKind.
func (k StructuralKind) String() string {
	if k < 0 || int(k) >= len(structuralKindNames) {
		return fmt.Sprintf("StructuralKind(%d)", int(k))
	}
	return structuralKindNames[k]
}

// ParseStructuralKind converts an ingestion-record kind string to a
// StructuralKind. The second return is false for unrecognized kinds.
func ParseStructuralKind(s string) (StructuralKind, bool) {
	want := strings.ToLower(strings.TrimSpace(s))
	for i, name := range structuralKindNames {
		if strings.ToLower(name) == want {
			return StructuralKind(i), true
		}
	}
	return KindUnknown, false
}

// StructuralKinds returns all kinds in tie-break order, excluding
// KindUnknown.
func StructuralKinds() []StructuralKind {
	kinds := make([]StructuralKind, 0, len(structuralKindNames)-1)
	for i := 1; i < len(structuralKindNames); i++ {
		kinds = append(kinds, StructuralKind(i))
	}
	return kinds
}

// FacetKind identifies one of the eight shapes an entity can present.
type FacetKind int

const (
	// FacetManager is the static access shape (Catalogs.Customers).
	FacetManager FacetKind = iota

	// FacetObject is the mutable instance shape.
	FacetObject

	// FacetReference is the immutable reference shape.
	FacetReference

	// FacetMetadata is the metadata-description shape.
	FacetMetadata

	// FacetConstructor is the constructible-value shape of primitives and
	// collections.
	FacetConstructor

	// FacetCollection is the iterable/indexable shape.
	FacetCollection

	// FacetReadOnlyElement is the shape of collection elements that cannot
	// be constructed or mutated directly.
	FacetReadOnlyElement

	// FacetSingleton is the shape of single-instance platform objects.
	FacetSingleton

	// FacetKindCount is the size of the closed facet vocabulary.
	FacetKindCount
)

// facetKindNames is indexed by FacetKind.
var facetKindNames = [...]string{
	"Manager",
	"Object",
	"Reference",
	"Metadata",
	"Constructor",
	"Collection",
	"ReadOnlyElement",
	"Singleton",
}

// String returns the string representation of the FacetKind.
func (f FacetKind) String() string {
	if f < 0 || f >= FacetKindCount {
		return fmt.Sprintf("FacetKind(%d)", int(f))
	}
	return facetKindNames[f]
}

// ParseFacetKind converts a facet-hint string to a FacetKind. The second
// return is false for unrecognized facet names.
func ParseFacetKind(s string) (FacetKind, bool) {
	want := strings.ToLower(strings.TrimSpace(s))
	for i, name := range facetKindNames {
		if strings.ToLower(name) == want {
			return FacetKind(i), true
		}
	}
	return 0, false
}

// Param describes one method or constructor parameter.
type Param struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// Method describes one callable member.
type Method struct {
	// Name is the primary member name. Member names compare
	// case-insensitively, matching the language's identifier rules.
	Name string `json:"name"`

	// AltName is the optional alternate-language name.
	AltName string `json:"alt_name,omitempty"`

	Params     []Param `json:"params,omitempty"`
	ReturnType string  `json:"return_type,omitempty"`

	// IsFunction is true when the method returns a value.
	IsFunction bool `json:"is_function,omitempty"`

	// Availability lists the execution contexts the method is callable
	// from (e.g. "Server", "ThinClient"). Empty means unrestricted.
	Availability []string `json:"availability,omitempty"`

	Deprecated bool   `json:"deprecated,omitempty"`
	Doc        string `json:"doc,omitempty"`
}

// Property describes one readable member.
type Property struct {
	Name     string `json:"name"`
	AltName  string `json:"alt_name,omitempty"`
	Type     string `json:"type,omitempty"`
	ReadOnly bool   `json:"read_only,omitempty"`

	// Indexed marks properties that participate in dynamic name-indexed
	// access on the owning facet.
	Indexed bool `json:"indexed,omitempty"`

	Doc string `json:"doc,omitempty"`
}

// Constructor describes one construction signature.
type Constructor struct {
	Name   string  `json:"name"`
	Params []Param `json:"params,omitempty"`
	Doc    string  `json:"doc,omitempty"`
}

// TabularSection is a named nested table contributed by configuration
// metadata.
type TabularSection struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name,omitempty"`
	Attributes  []Property `json:"attributes,omitempty"`
}

// MemberSet is an ordered collection of members. Order is meaningful:
// template members come before extension members, and completion output
// preserves it.
type MemberSet struct {
	Methods      []Method      `json:"methods,omitempty"`
	Properties   []Property    `json:"properties,omitempty"`
	Constructors []Constructor `json:"constructors,omitempty"`
}

// IsEmpty reports whether the set has no members at all.
func (m *MemberSet) IsEmpty() bool {
	return m == nil || (len(m.Methods) == 0 && len(m.Properties) == 0 && len(m.Constructors) == 0)
}

// Method returns the method with the given name, case-insensitively.
func (m *MemberSet) Method(name string) (Method, bool) {
	if m == nil {
		return Method{}, false
	}
	for _, meth := range m.Methods {
		if strings.EqualFold(meth.Name, name) || (meth.AltName != "" && strings.EqualFold(meth.AltName, name)) {
			return meth, true
		}
	}
	return Method{}, false
}

// Property returns the property with the given name, case-insensitively.
func (m *MemberSet) Property(name string) (Property, bool) {
	if m == nil {
		return Property{}, false
	}
	for _, prop := range m.Properties {
		if strings.EqualFold(prop.Name, name) || (prop.AltName != "" && strings.EqualFold(prop.AltName, name)) {
			return prop, true
		}
	}
	return Property{}, false
}

// MergeMemberSets combines a template member set with entity-specific
// extensions.
//
// Order is template-then-extension. An extension member replaces a
// same-named template member in place, so overriding never reorders the
// result. Names compare case-insensitively. Either argument may be nil.
func MergeMemberSets(template, ext *MemberSet) MemberSet {
	var out MemberSet
	if template != nil {
		out.Methods = append(out.Methods, template.Methods...)
		out.Properties = append(out.Properties, template.Properties...)
		out.Constructors = append(out.Constructors, template.Constructors...)
	}
	if ext == nil {
		return out
	}

	methodAt := make(map[string]int, len(out.Methods))
	for i, meth := range out.Methods {
		methodAt[strings.ToLower(meth.Name)] = i
	}
	for _, meth := range ext.Methods {
		if i, ok := methodAt[strings.ToLower(meth.Name)]; ok {
			out.Methods[i] = meth
			continue
		}
		methodAt[strings.ToLower(meth.Name)] = len(out.Methods)
		out.Methods = append(out.Methods, meth)
	}

	propAt := make(map[string]int, len(out.Properties))
	for i, prop := range out.Properties {
		propAt[strings.ToLower(prop.Name)] = i
	}
	for _, prop := range ext.Properties {
		if i, ok := propAt[strings.ToLower(prop.Name)]; ok {
			out.Properties[i] = prop
			continue
		}
		propAt[strings.ToLower(prop.Name)] = len(out.Properties)
		out.Properties = append(out.Properties, prop)
	}

	ctorAt := make(map[string]int, len(out.Constructors))
	for i, ctor := range out.Constructors {
		ctorAt[strings.ToLower(ctor.Name)] = i
	}
	for _, ctor := range ext.Constructors {
		if i, ok := ctorAt[strings.ToLower(ctor.Name)]; ok {
			out.Constructors[i] = ctor
			continue
		}
		ctorAt[strings.ToLower(ctor.Name)] = len(out.Constructors)
		out.Constructors = append(out.Constructors, ctor)
	}

	return out
}

// Lifecycle carries version and availability metadata for an entity.
type Lifecycle struct {
	IntroducedVersion string `json:"introduced_version,omitempty"`
	DeprecatedVersion string `json:"deprecated_version,omitempty"`
	Replacement       string `json:"replacement,omitempty"`
}

// AccessRules describes where an entity's members may be used. The rules
// are carried verbatim from the ingestion record; enforcement belongs to
// the language tooling, not the index.
type AccessRules struct {
	// ReadOnly marks entities whose members never mutate state.
	ReadOnly bool `json:"read_only,omitempty"`

	// Contexts lists the execution contexts the entity is visible in.
	// Empty means unrestricted.
	Contexts []string `json:"contexts,omitempty"`
}
