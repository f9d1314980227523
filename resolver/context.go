// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package resolver maps a syntactic usage context to the concrete facet
// and member set that context exposes. It drives completion and call
// validation.
//
// Every function here is a pure function of (index, context): no state, no
// I/O, safe for unbounded concurrent invocation. The source-code parser is
// an external collaborator; it hands the resolver already-classified
// contexts from the finite tag set below.
package resolver

import "fmt"

// ContextKind is the finite tag set of usage contexts.
type ContextKind int

const (
	// ContextEmptyLine is a fresh statement: global-context members are
	// in scope.
	ContextEmptyLine ContextKind = iota

	// ContextAfterDot is member access on a known parent type.
	ContextAfterDot

	// ContextAfterNew follows the constructor keyword.
	ContextAfterNew

	// ContextMethodResult is the type position of a method's return
	// value (drives cross-facet transitions).
	ContextMethodResult

	// ContextForEachLoop is the loop-variable position of iteration over
	// a collection.
	ContextForEachLoop

	// ContextIndexingAccess is the result position of [] access on a
	// collection.
	ContextIndexingAccess
)

// String returns the string representation of the ContextKind.
func (k ContextKind) String() string {
	switch k {
	case ContextEmptyLine:
		return "EmptyLine"
	case ContextAfterDot:
		return "AfterDot"
	case ContextAfterNew:
		return "AfterNew"
	case ContextMethodResult:
		return "MethodResult"
	case ContextForEachLoop:
		return "ForEachLoop"
	case ContextIndexingAccess:
		return "IndexingAccess"
	default:
		return fmt.Sprintf("ContextKind(%d)", int(k))
	}
}

// Context is one classified usage site.
type Context struct {
	Kind ContextKind

	// TypeName is the parent type for AfterDot and the collection type
	// for ForEachLoop / IndexingAccess. Unused otherwise.
	TypeName string

	// Method is the invoked method name for MethodResult. Unused
	// otherwise.
	Method string
}

// MethodResultOn returns the method-return context for a call on a known
// receiver type; completion uses the receiver to land on the target facet.
func MethodResultOn(receiverType, methodName string) Context {
	return Context{Kind: ContextMethodResult, TypeName: receiverType, Method: methodName}
}

// EmptyLine returns the fresh-statement context.
func EmptyLine() Context { return Context{Kind: ContextEmptyLine} }

// AfterDot returns the member-access context on the given parent type.
func AfterDot(parentType string) Context {
	return Context{Kind: ContextAfterDot, TypeName: parentType}
}

// AfterNew returns the constructor-keyword context.
func AfterNew() Context { return Context{Kind: ContextAfterNew} }

// MethodResult returns the method-return context for the given method.
func MethodResult(methodName string) Context {
	return Context{Kind: ContextMethodResult, Method: methodName}
}

// ForEachLoop returns the iteration context over the given collection type.
func ForEachLoop(collectionType string) Context {
	return Context{Kind: ContextForEachLoop, TypeName: collectionType}
}

// IndexingAccess returns the []-access context on the given collection
// type.
func IndexingAccess(collectionType string) Context {
	return Context{Kind: ContextIndexingAccess, TypeName: collectionType}
}
