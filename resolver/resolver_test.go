// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolver

import (
	"context"
	"testing"

	"github.com/escriptlabs/typeindex/builder"
	"github.com/escriptlabs/typeindex/entity"
	"github.com/escriptlabs/typeindex/index"
)

func buildTestIndex(t *testing.T) *index.UnifiedIndex {
	t.Helper()

	platform := []entity.Record{
		{
			QualifiedName:  "Catalog",
			StructuralKind: "Catalog",
			Template:       true,
			FacetHints: []entity.FacetHint{
				{Facet: "Manager", Methods: []entity.Method{
					{Name: "CreateItem", ReturnType: "CatalogObject", IsFunction: true},
					{Name: "GetObject", ReturnType: "CatalogObject", IsFunction: true},
					{Name: "EmptyRef", ReturnType: "CatalogReference", IsFunction: true},
				}},
				{Facet: "Object", Methods: []entity.Method{{Name: "Write"}, {Name: "Delete"}}},
				{Facet: "Reference", Methods: []entity.Method{{Name: "IsEmpty", ReturnType: "Boolean", IsFunction: true}}},
				{Facet: "Metadata", Properties: []entity.Property{{Name: "FullName", Type: "String", ReadOnly: true}}},
			},
		},
		{
			QualifiedName:  "Enumeration",
			StructuralKind: "Enumeration",
			Template:       true,
			FacetHints: []entity.FacetHint{
				{Facet: "Manager"},
				{Facet: "Reference", Methods: []entity.Method{{Name: "IsEmpty", ReturnType: "Boolean", IsFunction: true}}},
				{Facet: "Metadata"},
			},
		},
		{
			QualifiedName:  "ValueTable",
			StructuralKind: "Collection",
			FacetHints: []entity.FacetHint{
				{Facet: "Constructor", Constructors: []entity.Constructor{{Name: "ValueTable"}}},
				{Facet: "Collection",
					Methods:         []entity.Method{{Name: "Add", ReturnType: "ValueTableRow", IsFunction: true}},
					IterationType:   "ValueTableRow",
					IndexAccessType: "ValueTableRow",
				},
			},
		},
		{
			QualifiedName:  "Map",
			StructuralKind: "Collection",
			FacetHints: []entity.FacetHint{
				{Facet: "Constructor", Constructors: []entity.Constructor{{Name: "Map"}}},
				{Facet: "Collection",
					IterationType:   "KeyAndValue",
					IndexAccessType: "Arbitrary",
				},
			},
		},
		{
			QualifiedName:  "ValueTableRow",
			StructuralKind: "CollectionElement",
			FacetHints: []entity.FacetHint{
				{Facet: "ReadOnlyElement",
					Methods:    []entity.Method{{Name: "Owner", ReturnType: "ValueTable", IsFunction: true}},
					Properties: []entity.Property{{Name: "LineNumber", Type: "Number", ReadOnly: true}},
				},
			},
		},
		{
			QualifiedName:  "GlobalContext",
			StructuralKind: "Singleton",
			Category:       "Global",
			FacetHints: []entity.FacetHint{
				{Facet: "Singleton", Methods: []entity.Method{
					{Name: "Message"},
					{Name: "StrLen", ReturnType: "Number", IsFunction: true},
				}},
			},
		},
		{
			QualifiedName:  "Catalogs",
			StructuralKind: "Singleton",
			Category:       "Global",
			FacetHints: []entity.FacetHint{
				{Facet: "Singleton", DynamicIndexFacet: "Manager"},
			},
		},
	}
	configuration := []entity.Record{
		{QualifiedName: "Catalogs.Customers", StructuralKind: "Catalog"},
		{QualifiedName: "Enums.Status", StructuralKind: "Enumeration"},
		{
			QualifiedName:  "Widgets.Gizmo",
			StructuralKind: "Widget", // unknown: bare entity
			Extensions: entity.Extensions{
				Methods: []entity.Method{{Name: "Spin"}},
			},
		},
	}

	idx, _, err := builder.New().Build(context.Background(), builder.Input{
		PlatformVersion: "8.3.24",
		Platform:        platform,
		Configuration:   configuration,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return idx
}

func TestResolveFacet(t *testing.T) {
	idx := buildTestIndex(t)

	tests := []struct {
		name     string
		typeName string
		ctx      Context
		want     entity.FacetKind
	}{
		{"after dot on a catalog reaches the manager", "Catalogs.Customers", AfterDot("Catalogs"), entity.FacetManager},
		{"method result GetObject lands on object", "Catalogs.Customers", MethodResult("GetObject"), entity.FacetObject},
		{"method result EmptyRef lands on reference", "Catalogs.Customers", MethodResult("EmptyRef"), entity.FacetReference},
		{"method result Metadata lands on metadata", "Catalogs.Customers", MethodResult("Metadata"), entity.FacetMetadata},
		{"after new on a collection reaches the constructor", "ValueTable", AfterNew(), entity.FacetConstructor},
		{"for-each reaches the collection facet", "Map", ForEachLoop("Map"), entity.FacetCollection},
		{"index access reaches the collection facet", "Map", IndexingAccess("Map"), entity.FacetCollection},
		{"empty line on a singleton", "GlobalContext", EmptyLine(), entity.FacetSingleton},
		{"reference fallback on enumerations after new", "Enums.Status", AfterNew(), entity.FacetReference},
		{"collection element falls back to its only facet", "ValueTableRow", AfterDot("ValueTable"), entity.FacetReadOnlyElement},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := ResolveFacet(idx, tt.typeName, tt.ctx)
			if !ok {
				t.Fatalf("ResolveFacet(%q) missed", tt.typeName)
			}
			if !res.HasFacet || res.Facet != tt.want {
				t.Errorf("ResolveFacet(%q) = %v (has %v), want %v", tt.typeName, res.Facet, res.HasFacet, tt.want)
			}
		})
	}

	t.Run("non-transition method result falls through to defaults", func(t *testing.T) {
		res, ok := ResolveFacet(idx, "Catalogs.Customers", MethodResult("Write"))
		if !ok || !res.HasFacet {
			t.Fatal("resolution missed")
		}
		// MethodResult has no context default; the Reference fallback wins.
		if res.Facet != entity.FacetReference {
			t.Errorf("facet = %v, want Reference fallback", res.Facet)
		}
	})

	t.Run("bare entity resolves without a facet", func(t *testing.T) {
		res, ok := ResolveFacet(idx, "Widgets.Gizmo", AfterDot("Widgets"))
		if !ok {
			t.Fatal("known bare entity missed")
		}
		if res.HasFacet {
			t.Errorf("bare entity reported facet %v", res.Facet)
		}
		if res.Entity == nil || res.Entity.QualifiedName != "Widgets.Gizmo" {
			t.Error("bare resolution lost the entity")
		}
	})

	t.Run("unknown type misses", func(t *testing.T) {
		if _, ok := ResolveFacet(idx, "Nope", AfterDot("X")); ok {
			t.Error("unknown type resolved")
		}
	})
}

func TestResolveElementTypes(t *testing.T) {
	idx := buildTestIndex(t)

	t.Run("iteration and index access diverge on maps", func(t *testing.T) {
		iter, ok := ResolveIterationVariable(idx, "Map")
		if !ok || iter != "KeyAndValue" {
			t.Errorf("ResolveIterationVariable(Map) = %q, %v", iter, ok)
		}
		access, ok := ResolveIndexAccess(idx, "Map")
		if !ok || access != "Arbitrary" {
			t.Errorf("ResolveIndexAccess(Map) = %q, %v", access, ok)
		}
	})

	t.Run("agreeing collection", func(t *testing.T) {
		iter, _ := ResolveIterationVariable(idx, "ValueTable")
		access, _ := ResolveIndexAccess(idx, "ValueTable")
		if iter != access || iter != "ValueTableRow" {
			t.Errorf("ValueTable element types = %q / %q", iter, access)
		}
	})

	t.Run("non-collection misses", func(t *testing.T) {
		if _, ok := ResolveIterationVariable(idx, "Catalogs.Customers"); ok {
			t.Error("catalog reported an iteration type")
		}
	})
}

func TestResolveDynamicIndex(t *testing.T) {
	idx := buildTestIndex(t)

	t.Run("name-indexed access lands on the manager facet", func(t *testing.T) {
		res, ok := ResolveDynamicIndex(idx, "Catalogs", "Customers")
		if !ok {
			t.Fatal("dynamic index resolution missed")
		}
		if res.Entity.QualifiedName != "Catalogs.Customers" || res.Facet != entity.FacetManager {
			t.Errorf("resolved %s facet %v, want Catalogs.Customers Manager", res.Entity.QualifiedName, res.Facet)
		}
	})

	t.Run("unknown element misses", func(t *testing.T) {
		if _, ok := ResolveDynamicIndex(idx, "Catalogs", "Nothing"); ok {
			t.Error("unknown element resolved")
		}
	})

	t.Run("container without dynamic index misses", func(t *testing.T) {
		if _, ok := ResolveDynamicIndex(idx, "ValueTable", "Customers"); ok {
			t.Error("plain collection resolved a dynamic index")
		}
	})
}

func TestCompletions(t *testing.T) {
	idx := buildTestIndex(t)

	labels := func(items []Completion) map[string]CompletionKind {
		out := make(map[string]CompletionKind, len(items))
		for _, item := range items {
			out[item.Label] = item.Kind
		}
		return out
	}

	t.Run("empty line offers global members and roots", func(t *testing.T) {
		got := labels(Completions(idx, EmptyLine()))
		if got["Message"] != CompletionMethod {
			t.Error("global method Message missing")
		}
		if got["StrLen"] != CompletionMethod {
			t.Error("global method StrLen missing")
		}
		if _, ok := got["Catalogs"]; !ok {
			t.Error("global root Catalogs missing")
		}
		if _, ok := got["Write"]; ok {
			t.Error("instance member leaked into the global scope")
		}
	})

	t.Run("after new offers constructible types only", func(t *testing.T) {
		got := labels(Completions(idx, AfterNew()))
		if _, ok := got["ValueTable"]; !ok {
			t.Error("ValueTable missing from constructor completion")
		}
		if _, ok := got["Map"]; !ok {
			t.Error("Map missing from constructor completion")
		}
		if _, ok := got["Customers"]; ok {
			t.Error("catalog offered after the constructor keyword")
		}
	})

	t.Run("after dot offers the context facet's members", func(t *testing.T) {
		got := labels(Completions(idx, AfterDot("Catalogs.Customers")))
		if _, ok := got["CreateItem"]; !ok {
			t.Error("manager method CreateItem missing")
		}
		if _, ok := got["IsEmpty"]; ok {
			t.Error("reference member offered in the manager context")
		}
	})

	t.Run("for-each offers the element's members", func(t *testing.T) {
		got := labels(Completions(idx, ForEachLoop("ValueTable")))
		if got["Owner"] != CompletionMethod {
			t.Error("element method Owner missing")
		}
		if got["LineNumber"] != CompletionProperty {
			t.Error("element property LineNumber missing")
		}
	})

	t.Run("method result offers the target facet's members", func(t *testing.T) {
		got := labels(Completions(idx, MethodResultOn("Catalogs.Customers", "GetObject")))
		if _, ok := got["Write"]; !ok {
			t.Error("object method Write missing after GetObject")
		}
		if _, ok := got["CreateItem"]; ok {
			t.Error("manager member offered on a method result")
		}
	})

	t.Run("bare entity offers its extensions", func(t *testing.T) {
		got := labels(Completions(idx, AfterDot("Widgets.Gizmo")))
		if _, ok := got["Spin"]; !ok {
			t.Error("bare entity extension Spin missing")
		}
	})

	t.Run("unknown type yields nothing", func(t *testing.T) {
		if items := Completions(idx, AfterDot("Nope")); len(items) != 0 {
			t.Errorf("unknown type yielded %d completions", len(items))
		}
	})
}
