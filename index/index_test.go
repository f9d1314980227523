// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package index_test

import (
	"context"
	"testing"

	"github.com/escriptlabs/typeindex/builder"
	"github.com/escriptlabs/typeindex/entity"
	"github.com/escriptlabs/typeindex/index"
	"github.com/escriptlabs/typeindex/registry"
	"github.com/escriptlabs/typeindex/resolver"
)

// platformRecords is the platform documentation fixture: facet templates
// for catalogs and documents, two platform collections with diverging
// element types, a global-context singleton and one concrete platform type
// that the configuration stream will shadow.
func platformRecords() []entity.Record {
	return []entity.Record{
		{
			QualifiedName:  "Catalog",
			StructuralKind: "Catalog",
			Template:       true,
			FacetHints: []entity.FacetHint{
				{Facet: "Manager", Methods: []entity.Method{
					{Name: "CreateItem", ReturnType: "CatalogObject", IsFunction: true},
					{Name: "GetObject", ReturnType: "CatalogObject", IsFunction: true},
					{Name: "EmptyRef", ReturnType: "CatalogReference", IsFunction: true},
					{Name: "FindByCode", ReturnType: "CatalogReference", IsFunction: true},
				}},
				{Facet: "Object", Methods: []entity.Method{
					{Name: "Write"},
					{Name: "Delete"},
					{Name: "Metadata", ReturnType: "MetadataObject", IsFunction: true},
				}},
				{Facet: "Reference", Methods: []entity.Method{
					{Name: "GetObject", ReturnType: "CatalogObject", IsFunction: true},
					{Name: "IsEmpty", ReturnType: "Boolean", IsFunction: true},
				}},
				{Facet: "Metadata", Properties: []entity.Property{
					{Name: "FullName", Type: "String", ReadOnly: true},
				}},
			},
		},
		{
			QualifiedName:  "Document",
			StructuralKind: "Document",
			Template:       true,
			FacetHints: []entity.FacetHint{
				{Facet: "Manager", Methods: []entity.Method{
					{Name: "CreateDocument", ReturnType: "DocumentObject", IsFunction: true},
				}},
				{Facet: "Object", Methods: []entity.Method{
					{Name: "Write"},
					{Name: "Post"},
				}},
				{Facet: "Reference", Methods: []entity.Method{
					{Name: "GetObject", ReturnType: "DocumentObject", IsFunction: true},
				}},
				{Facet: "Metadata"},
			},
		},
		{
			// Shadowed by the configuration stream in the conflict test.
			QualifiedName:  "Catalogs.Legacy",
			StructuralKind: "Catalog",
		},
		{
			QualifiedName:  "Documents.Legacy",
			StructuralKind: "Document",
		},
		{
			QualifiedName:  "ValueTable",
			StructuralKind: "Collection",
			FacetHints: []entity.FacetHint{
				{Facet: "Constructor", Constructors: []entity.Constructor{{Name: "ValueTable"}}},
				{Facet: "Collection",
					Methods:         []entity.Method{{Name: "Add", ReturnType: "ValueTableRow", IsFunction: true}, {Name: "Count", ReturnType: "Number", IsFunction: true}},
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
					Methods:         []entity.Method{{Name: "Insert"}, {Name: "Get", ReturnType: "Arbitrary", IsFunction: true}},
					IterationType:   "KeyAndValue",
					IndexAccessType: "Arbitrary",
				},
			},
		},
		{
			QualifiedName:  "ValueTableRow",
			StructuralKind: "CollectionElement",
			FacetHints: []entity.FacetHint{
				{Facet: "ReadOnlyElement", Methods: []entity.Method{{Name: "Owner"}}},
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
}

func configurationRecords() []entity.Record {
	return []entity.Record{
		{
			QualifiedName:  "Catalogs.Customers",
			StructuralKind: "Catalog",
			AltName:        "Spravochniki.Klienty",
			Extensions: entity.Extensions{
				Methods:    []entity.Method{{Name: "CheckCredit", ReturnType: "Boolean", IsFunction: true}},
				Properties: []entity.Property{{Name: "TaxId", Type: "String"}},
				TabularSections: []entity.TabularSection{
					{Name: "Addresses", Attributes: []entity.Property{{Name: "City", Type: "String"}}},
				},
			},
		},
		{
			// Conflicts with the platform definition; this one must win.
			QualifiedName:  "Catalogs.Legacy",
			StructuralKind: "Catalog",
			Extensions: entity.Extensions{
				Properties: []entity.Property{{Name: "MigratedFrom", Type: "String"}},
			},
		},
	}
}

func buildTestIndex(t *testing.T) *index.UnifiedIndex {
	t.Helper()
	idx, _, err := builder.New(builder.WithWorkerCount(2)).Build(context.Background(), builder.Input{
		PlatformVersion: "8.3.24",
		Platform:        platformRecords(),
		Configuration:   configurationRecords(),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return idx
}

func TestFindEntity(t *testing.T) {
	idx := buildTestIndex(t)

	t.Run("qualified name is case-insensitive", func(t *testing.T) {
		e, ok := idx.FindEntity("catalogs.customers")
		if !ok || e.QualifiedName != "Catalogs.Customers" {
			t.Fatalf("FindEntity(catalogs.customers) = %v, %v", e, ok)
		}
	})

	t.Run("alternate name resolves to the same entity", func(t *testing.T) {
		byQualified, _ := idx.FindEntity("Catalogs.Customers")
		byAlt, ok := idx.FindEntity("spravochniki.klienty")
		if !ok || byAlt.ID != byQualified.ID {
			t.Errorf("alt-name lookup = %v, %v; want the Customers entity", byAlt, ok)
		}
	})

	t.Run("unknown name misses without error", func(t *testing.T) {
		if _, ok := idx.FindEntity("Catalogs.Nothing"); ok {
			t.Error("unknown name resolved")
		}
	})

	t.Run("lookup by stable id", func(t *testing.T) {
		e, _ := idx.FindEntity("ValueTable")
		got, ok := idx.FindEntityByID(e.ID)
		if !ok || got.QualifiedName != "ValueTable" {
			t.Errorf("FindEntityByID = %v, %v", got, ok)
		}
	})
}

func TestFindEntityByDisplayName(t *testing.T) {
	idx := buildTestIndex(t)

	t.Run("configuration wins the tie-break", func(t *testing.T) {
		// "Legacy" names both the configuration catalog and the platform
		// document.
		e, ok := idx.FindEntityByDisplayName("Legacy")
		if !ok {
			t.Fatal("display name Legacy not found")
		}
		if e.QualifiedName != "Catalogs.Legacy" || e.Category != entity.CategoryConfiguration {
			t.Errorf("tie-break picked %s (%s), want the configuration catalog", e.QualifiedName, e.Category)
		}
	})

	t.Run("unique display name", func(t *testing.T) {
		e, ok := idx.FindEntityByDisplayName("customers")
		if !ok || e.QualifiedName != "Catalogs.Customers" {
			t.Errorf("FindEntityByDisplayName(customers) = %v, %v", e, ok)
		}
	})
}

func TestAllMethods(t *testing.T) {
	idx := buildTestIndex(t)
	methods := idx.AllMethods("Catalogs.Customers")
	if len(methods) == 0 {
		t.Fatal("no methods aggregated")
	}

	byName := make(map[string]entity.Method, len(methods))
	for _, m := range methods {
		byName[m.Name] = m
	}

	t.Run("union across facets", func(t *testing.T) {
		for _, want := range []string{"CreateItem", "Write", "IsEmpty", "CheckCredit"} {
			if _, ok := byName[want]; !ok {
				t.Errorf("method %s missing from aggregate", want)
			}
		}
	})

	t.Run("template members precede extensions", func(t *testing.T) {
		pos := make(map[string]int, len(methods))
		for i, m := range methods {
			pos[m.Name] = i
		}
		// CheckCredit is entity-level, so it must follow every template
		// member regardless of which facet contributed it.
		for _, template := range []string{"CreateItem", "Write", "Delete", "IsEmpty", "Metadata"} {
			if pos["CheckCredit"] < pos[template] {
				t.Errorf("extension method ordered before template member %s", template)
			}
		}
	})

	t.Run("duplicates across facets collapse", func(t *testing.T) {
		seen := 0
		for _, m := range methods {
			if m.Name == "GetObject" {
				seen++
			}
		}
		if seen != 1 {
			t.Errorf("GetObject appears %d times, want 1", seen)
		}
	})

	t.Run("unknown name yields empty", func(t *testing.T) {
		if got := idx.AllMethods("Nope"); len(got) != 0 {
			t.Errorf("AllMethods(Nope) = %d methods, want 0", len(got))
		}
	})
}

func TestCompleteInterface(t *testing.T) {
	idx := buildTestIndex(t)
	iface, ok := idx.CompleteInterface("Catalogs.Customers")
	if !ok {
		t.Fatal("CompleteInterface miss")
	}
	if len(iface.TabularSections) != 1 || iface.TabularSections[0].Name != "Addresses" {
		t.Errorf("tabular sections = %+v, want Addresses", iface.TabularSections)
	}
	found := false
	for _, p := range iface.Properties {
		if p.Name == "TaxId" {
			found = true
		}
	}
	if !found {
		t.Error("extension property TaxId missing from complete interface")
	}
}

func TestFacetMembers(t *testing.T) {
	idx := buildTestIndex(t)
	e, _ := idx.FindEntity("Catalogs.Customers")

	t.Run("tabular sections surface on the object facet", func(t *testing.T) {
		members := idx.FacetMembers(e, entity.FacetObject)
		p, ok := members.Property("Addresses")
		if !ok || p.Type != "TabularSection" || !p.ReadOnly {
			t.Errorf("Addresses property = %+v, %v; want read-only TabularSection", p, ok)
		}
	})

	t.Run("tabular sections stay off the reference facet", func(t *testing.T) {
		members := idx.FacetMembers(e, entity.FacetReference)
		if _, ok := members.Property("Addresses"); ok {
			t.Error("tabular section leaked onto the Reference facet")
		}
	})

	t.Run("entity extensions apply to every facet", func(t *testing.T) {
		members := idx.FacetMembers(e, entity.FacetReference)
		if _, ok := members.Property("TaxId"); !ok {
			t.Error("entity-level extension missing from the Reference facet")
		}
	})

	t.Run("absent facet is empty", func(t *testing.T) {
		members := idx.FacetMembers(e, entity.FacetCollection)
		if !members.IsEmpty() {
			t.Error("absent facet returned members")
		}
	})
}

func TestStaleTemplateFailsFast(t *testing.T) {
	reg := registry.New()
	id := reg.Register(entity.KindCatalog, entity.FacetManager, entity.MemberSet{
		Methods: []entity.Method{{Name: "GetObject"}},
	})
	reg.NextGeneration()

	e := &entity.Entity{
		ID:            entity.NewID("Catalogs.Stale"),
		QualifiedName: "Catalogs.Stale",
		DisplayName:   "Stale",
		Kind:          entity.KindCatalog,
	}
	e.Facets[entity.FacetManager] = &entity.Facet{Kind: entity.FacetManager, Template: id}

	defer func() {
		if recover() == nil {
			t.Fatal("superseded-generation template resolved without failing")
		}
	}()
	index.New("8.3.24", reg, []*entity.Entity{e})
}

func TestTypesWithMethod(t *testing.T) {
	idx := buildTestIndex(t)

	var owners []string
	for name := range idx.TypesWithMethod("Write") {
		owners = append(owners, name)
	}
	want := map[string]bool{
		"Catalogs.Customers": true,
		"Catalogs.Legacy":    true,
		"Documents.Legacy":   true,
	}
	for _, name := range owners {
		if !want[name] {
			t.Errorf("unexpected owner %s", name)
		}
		delete(want, name)
	}
	for name := range want {
		t.Errorf("missing owner %s", name)
	}

	t.Run("sequence is restartable", func(t *testing.T) {
		seq := idx.TypesWithMethod("Write")
		first, second := 0, 0
		for range seq {
			first++
		}
		for range seq {
			second++
		}
		if first != second || first == 0 {
			t.Errorf("restarted sequence yielded %d then %d", first, second)
		}
	})

	t.Run("early break", func(t *testing.T) {
		count := 0
		for range idx.TypesWithMethod("Write") {
			count++
			break
		}
		if count != 1 {
			t.Errorf("break yielded %d items", count)
		}
	})
}

func TestIsAssignable(t *testing.T) {
	idx := buildTestIndex(t)

	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"reflexive", "Catalogs.Customers", "catalogs.customers", true},
		{"same entity via alt name", "Catalogs.Customers", "Spravochniki.Klienty", true},
		{"catalog to catalog reference shape", "Catalogs.Customers", "CatalogReference", true},
		{"catalog to catalog object shape", "Catalogs.Customers", "CatalogObject", true},
		{"catalog to document reference shape", "Catalogs.Customers", "DocumentReference", false},
		{"collection has no reference facet", "ValueTable", "CollectionReference", false},
		{"unknown from", "Nope", "CatalogReference", false},
		{"unknown to", "Catalogs.Customers", "Nope", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := idx.IsAssignable(tt.from, tt.to); got != tt.want {
				t.Errorf("IsAssignable(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCollectionElementTypes(t *testing.T) {
	idx := buildTestIndex(t)

	t.Run("iteration and index access may diverge", func(t *testing.T) {
		m, _ := idx.FindEntity("Map")
		f := m.Facet(entity.FacetCollection)
		if f.IterationType != "KeyAndValue" || f.IndexAccessType != "Arbitrary" {
			t.Errorf("Map element types = %q / %q, want KeyAndValue / Arbitrary", f.IterationType, f.IndexAccessType)
		}
	})

	t.Run("agreeing element types stay equal", func(t *testing.T) {
		vt, _ := idx.FindEntity("ValueTable")
		f := vt.Facet(entity.FacetCollection)
		if f.IterationType != f.IndexAccessType {
			t.Errorf("ValueTable element types diverged: %q / %q", f.IterationType, f.IndexAccessType)
		}
	})
}

func TestConstructible(t *testing.T) {
	idx := buildTestIndex(t)
	names := make(map[string]bool)
	for _, e := range idx.Constructible() {
		names[e.QualifiedName] = true
	}
	if !names["ValueTable"] || !names["Map"] {
		t.Errorf("constructible set %v missing platform collections", names)
	}
	if names["Catalogs.Customers"] {
		t.Error("catalog entity reported constructible")
	}
	if names["GlobalContext"] {
		t.Error("singleton reported constructible")
	}
}

func TestEnumerations(t *testing.T) {
	idx := buildTestIndex(t)

	t.Run("by kind, sorted by qualified name", func(t *testing.T) {
		catalogs := idx.EntitiesByKind(entity.KindCatalog)
		if len(catalogs) != 2 {
			t.Fatalf("got %d catalogs, want 2", len(catalogs))
		}
		if catalogs[0].QualifiedName != "Catalogs.Customers" || catalogs[1].QualifiedName != "Catalogs.Legacy" {
			t.Errorf("catalog order = %s, %s", catalogs[0].QualifiedName, catalogs[1].QualifiedName)
		}
	})

	t.Run("by category", func(t *testing.T) {
		globals := idx.EntitiesByCategory(entity.CategoryGlobal)
		if len(globals) != 2 {
			t.Errorf("got %d global entities, want 2", len(globals))
		}
	})

	t.Run("defensive copies", func(t *testing.T) {
		first := idx.EntitiesByKind(entity.KindCatalog)
		first[0] = nil
		second := idx.EntitiesByKind(entity.KindCatalog)
		if second[0] == nil {
			t.Error("mutating the returned slice changed the index")
		}
	})
}

func TestStats(t *testing.T) {
	idx := buildTestIndex(t)
	stats := idx.Stats()

	if stats.PlatformVersion != "8.3.24" {
		t.Errorf("PlatformVersion = %q", stats.PlatformVersion)
	}
	// 9 platform records minus 2 templates minus 1 shadowed by config,
	// plus 2 configuration entities.
	if stats.TotalEntities != 8 {
		t.Errorf("TotalEntities = %d, want 8", stats.TotalEntities)
	}
	if stats.ConfigEntities != 2 {
		t.Errorf("ConfigEntities = %d, want 2", stats.ConfigEntities)
	}
	if stats.GlobalElements != 2 {
		t.Errorf("GlobalElements = %d, want 2", stats.GlobalElements)
	}
	if stats.Templates == 0 {
		t.Error("Templates = 0")
	}
	if stats.MembershipEdges == 0 {
		t.Error("MembershipEdges = 0")
	}
}

func TestSuggestSimilarNames(t *testing.T) {
	idx := buildTestIndex(t)
	got := idx.SuggestSimilarNames("custom", 5)
	if len(got) != 1 || got[0] != "Catalogs.Customers" {
		t.Errorf("SuggestSimilarNames(custom) = %v", got)
	}
	if idx.SuggestSimilarNames("", 5) != nil {
		t.Error("empty term returned suggestions")
	}
}

func TestSnapshot(t *testing.T) {
	first := buildTestIndex(t)
	snap := index.NewSnapshot(first)

	if snap.Load() != first {
		t.Fatal("Load did not return the seeded index")
	}

	// Rebuild with an extra configuration entity and swap it in.
	extra := append(configurationRecords(), entity.Record{
		QualifiedName:  "Catalogs.Vendors",
		StructuralKind: "Catalog",
	})
	second, _, err := builder.New().Build(context.Background(), builder.Input{
		PlatformVersion: "8.3.24",
		Platform:        platformRecords(),
		Configuration:   extra,
	})
	if err != nil {
		t.Fatalf("rebuild error = %v", err)
	}

	old := snap.Swap(second)
	if old != first {
		t.Error("Swap did not return the previous index")
	}
	if snap.Load() != second {
		t.Error("Load did not return the swapped index")
	}

	t.Run("previous index stays fully usable", func(t *testing.T) {
		if _, ok := old.FindEntity("Catalogs.Customers"); !ok {
			t.Error("old index lost an entity after swap")
		}
		if _, ok := old.FindEntity("Catalogs.Vendors"); ok {
			t.Error("old index observed the new entity")
		}
		if _, ok := snap.Load().FindEntity("Catalogs.Vendors"); !ok {
			t.Error("new index missing the added entity")
		}
	})
}

func TestDeterministicBuilds(t *testing.T) {
	a := buildTestIndex(t)
	b := buildTestIndex(t)

	aCatalogs := a.EntitiesByKind(entity.KindCatalog)
	bCatalogs := b.EntitiesByKind(entity.KindCatalog)
	if len(aCatalogs) != len(bCatalogs) {
		t.Fatalf("entity counts differ: %d, %d", len(aCatalogs), len(bCatalogs))
	}
	for i := range aCatalogs {
		if aCatalogs[i].ID != bCatalogs[i].ID {
			t.Errorf("entity %d id differs across identical builds", i)
		}
	}

	aMethods := a.AllMethods("Catalogs.Customers")
	bMethods := b.AllMethods("Catalogs.Customers")
	if len(aMethods) != len(bMethods) {
		t.Fatalf("method counts differ: %d, %d", len(aMethods), len(bMethods))
	}
	for i := range aMethods {
		if aMethods[i].Name != bMethods[i].Name {
			t.Errorf("method order differs at %d: %s vs %s", i, aMethods[i].Name, bMethods[i].Name)
		}
	}

	aComp := resolver.Completions(a, resolver.AfterDot("Catalogs.Customers"))
	bComp := resolver.Completions(b, resolver.AfterDot("Catalogs.Customers"))
	if len(aComp) == 0 || len(aComp) != len(bComp) {
		t.Fatalf("completion counts differ: %d, %d", len(aComp), len(bComp))
	}
	for i := range aComp {
		if aComp[i] != bComp[i] {
			t.Errorf("completion %d differs across identical builds: %+v vs %+v", i, aComp[i], bComp[i])
		}
	}
}
