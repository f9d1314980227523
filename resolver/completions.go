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

// CompletionKind classifies one completion item.
type CompletionKind int

const (
	CompletionMethod CompletionKind = iota
	CompletionProperty
	CompletionConstructor
	CompletionType
)

// String returns the string representation of the CompletionKind.
func (k CompletionKind) String() string {
	switch k {
	case CompletionMethod:
		return "method"
	case CompletionProperty:
		return "property"
	case CompletionConstructor:
		return "constructor"
	case CompletionType:
		return "type"
	default:
		return "unknown"
	}
}

// Completion is one item offered at a usage site.
type Completion struct {
	Label  string
	Kind   CompletionKind
	Detail string
}

// Completions returns the items valid at the given usage site, in a
// deterministic order (entities in qualified-name order, members in their
// template-then-extension order).
//
// An unknown type name in the context yields an empty result, never an
// error: completion is advisory.
func Completions(idx *index.UnifiedIndex, ctx Context) []Completion {
	switch ctx.Kind {
	case ContextEmptyLine:
		return globalCompletions(idx)
	case ContextAfterNew:
		return constructorCompletions(idx)
	case ContextAfterDot, ContextMethodResult:
		return memberCompletions(idx, ctx.TypeName, ctx)
	case ContextForEachLoop:
		element, ok := ResolveIterationVariable(idx, ctx.TypeName)
		if !ok {
			return nil
		}
		return memberCompletions(idx, element, AfterDot(element))
	case ContextIndexingAccess:
		element, ok := ResolveIndexAccess(idx, ctx.TypeName)
		if !ok {
			return nil
		}
		return memberCompletions(idx, element, AfterDot(element))
	default:
		return nil
	}
}

// globalCompletions lists the members of every global-context element plus
// the global elements themselves (type roots are addressable by name on a
// fresh statement).
func globalCompletions(idx *index.UnifiedIndex) []Completion {
	var out []Completion
	for _, e := range idx.EntitiesByCategory(entity.CategoryGlobal) {
		out = append(out, Completion{
			Label:  e.DisplayName,
			Kind:   CompletionType,
			Detail: e.Kind.String(),
		})
		iface, ok := idx.CompleteInterface(e.QualifiedName)
		if !ok {
			continue
		}
		out = appendMembers(out, iface.Methods, iface.Properties)
	}
	return out
}

// constructorCompletions lists every constructible type name.
func constructorCompletions(idx *index.UnifiedIndex) []Completion {
	var out []Completion
	for _, e := range idx.Constructible() {
		out = append(out, Completion{
			Label:  e.DisplayName,
			Kind:   CompletionConstructor,
			Detail: e.Kind.String(),
		})
	}
	return out
}

// memberCompletions lists the members of the facet the context selects on
// the named type. Bare entities contribute their entity-level extensions.
func memberCompletions(idx *index.UnifiedIndex, typeName string, ctx Context) []Completion {
	res, ok := ResolveFacet(idx, typeName, ctx)
	if !ok {
		return nil
	}
	if !res.HasFacet {
		return appendMembers(nil, res.Entity.Extensions.Methods, res.Entity.Extensions.Properties)
	}
	members := idx.FacetMembers(res.Entity, res.Facet)
	return appendMembers(nil, members.Methods, members.Properties)
}

func appendMembers(out []Completion, methods []entity.Method, properties []entity.Property) []Completion {
	for _, m := range methods {
		out = append(out, Completion{
			Label:  m.Name,
			Kind:   CompletionMethod,
			Detail: m.ReturnType,
		})
	}
	for _, p := range properties {
		out = append(out, Completion{
			Label:  p.Name,
			Kind:   CompletionProperty,
			Detail: p.Type,
		})
	}
	return out
}
