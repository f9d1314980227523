// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Sentinel errors for record validation.
var (
	// ErrInvalidRecord is returned when an ingestion record fails
	// validation. The builder turns it into a warning, never a failure.
	ErrInvalidRecord = errors.New("invalid entity record")
)

// recordValidate is the shared validator instance. validator.Validate is
// safe for concurrent use and caches struct metadata, so one instance
// serves all streams.
var recordValidate = validator.New(validator.WithRequiredStructEnabled())

// FacetHint carries the member payload for one facet of a record.
//
// On template records the members become the shared template for
// (structural kind, facet kind). On concrete records they become the
// entity's facet-level extensions.
type FacetHint struct {
	// Facet names the facet kind ("Manager", "Object", ...).
	Facet string `json:"facet" validate:"required"`

	Methods      []Method      `json:"methods,omitempty" validate:"dive"`
	Properties   []Property    `json:"properties,omitempty" validate:"dive"`
	Constructors []Constructor `json:"constructors,omitempty" validate:"dive"`

	// IterationType / IndexAccessType declare the element types of
	// Collection facets. They may differ; both are preserved as stated.
	IterationType   string `json:"iteration_type,omitempty"`
	IndexAccessType string `json:"index_access_type,omitempty"`

	// DynamicIndexFacet, when non-empty, declares name-indexed resolution
	// into the named facet kind of "<qualified name>.<index>".
	DynamicIndexFacet string `json:"dynamic_index_facet,omitempty"`
}

// Extensions holds entity-level members contributed by configuration
// metadata on top of the facet templates.
type Extensions struct {
	Methods         []Method         `json:"methods,omitempty" validate:"dive"`
	Properties      []Property       `json:"properties,omitempty" validate:"dive"`
	TabularSections []TabularSection `json:"tabular_sections,omitempty" validate:"dive"`
}

// Record is the normalized ingestion contract. The ingestion collaborators
// (metadata parser, platform archive parser, delta trigger) own their wire
// formats; the core consumes only this in-memory shape.
type Record struct {
	QualifiedName string `json:"qualified_name" validate:"required,min=1,max=512"`
	DisplayName   string `json:"display_name,omitempty"`
	AltName       string `json:"alt_name,omitempty"`

	// StructuralKind names one of the closed structural kinds. Unknown
	// kinds survive as bare entities with a warning.
	StructuralKind string `json:"structural_kind" validate:"required"`

	// Category defaults per stream (platform stream → Platform,
	// configuration stream → Configuration) when empty.
	Category string `json:"category,omitempty"`

	// Template marks a platform record that defines the shared member
	// sets for its structural kind instead of a concrete type. Template
	// records feed the registry and never become entities.
	Template bool `json:"template,omitempty"`

	FacetHints []FacetHint `json:"facet_hints,omitempty" validate:"dive"`
	Extensions Extensions  `json:"extensions,omitempty"`

	Documentation string      `json:"documentation,omitempty"`
	Access        AccessRules `json:"access,omitempty"`
	Lifecycle     Lifecycle   `json:"lifecycle,omitempty"`

	// CanConstruct marks types usable after the constructor keyword.
	CanConstruct bool `json:"can_construct,omitempty"`

	// Origin is a collaborator hint for provenance (file path, archive
	// section). Informational only.
	Origin string `json:"origin,omitempty"`
}

// Validate checks the record against struct tags and the semantic rules the
// tags cannot express. It returns an error wrapping ErrInvalidRecord; the
// record's contribution is skipped and the build continues.
func (r *Record) Validate() error {
	if err := recordValidate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if strings.TrimSpace(r.QualifiedName) == "" {
		return fmt.Errorf("%w: qualified name is blank", ErrInvalidRecord)
	}
	for i := range r.FacetHints {
		hint := &r.FacetHints[i]
		if _, ok := ParseFacetKind(hint.Facet); !ok {
			return fmt.Errorf("%w: unknown facet %q", ErrInvalidRecord, hint.Facet)
		}
		if hint.DynamicIndexFacet != "" {
			if _, ok := ParseFacetKind(hint.DynamicIndexFacet); !ok {
				return fmt.Errorf("%w: unknown dynamic index facet %q", ErrInvalidRecord, hint.DynamicIndexFacet)
			}
		}
	}
	for _, m := range r.Extensions.Methods {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("%w: extension method with blank name", ErrInvalidRecord)
		}
	}
	for _, p := range r.Extensions.Properties {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: extension property with blank name", ErrInvalidRecord)
		}
	}
	for _, ts := range r.Extensions.TabularSections {
		if strings.TrimSpace(ts.Name) == "" {
			return fmt.Errorf("%w: tabular section with blank name", ErrInvalidRecord)
		}
	}
	return nil
}

// EnsureDefaults fills derivable fields: display name from the last
// qualified-name segment, category from the owning stream.
func (r *Record) EnsureDefaults(stream StreamKind) {
	if r.DisplayName == "" {
		parts := strings.Split(r.QualifiedName, ".")
		r.DisplayName = parts[len(parts)-1]
	}
	if r.Category == "" {
		switch stream {
		case StreamPlatform:
			r.Category = "Platform"
		case StreamConfiguration, StreamDelta:
			r.Category = "Configuration"
		}
	}
}

// HintFor returns the facet hint for the given kind, or nil.
func (r *Record) HintFor(kind FacetKind) *FacetHint {
	for i := range r.FacetHints {
		if k, ok := ParseFacetKind(r.FacetHints[i].Facet); ok && k == kind {
			return &r.FacetHints[i]
		}
	}
	return nil
}

// MemberSet converts a hint's members to a MemberSet.
func (h *FacetHint) MemberSet() MemberSet {
	if h == nil {
		return MemberSet{}
	}
	return MemberSet{
		Methods:      h.Methods,
		Properties:   h.Properties,
		Constructors: h.Constructors,
	}
}
