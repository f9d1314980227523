// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package entity

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID is the stable identity of an entity.
//
// An ID is a pure function of the entity's qualified name: byte-identical
// input streams always produce identical IDs across rebuilds, which is what
// keeps cached secondary indices and graphs valid across sessions. Every
// secondary structure references entities by ID, never by pointer, so the
// frozen index serializes trivially.
type ID uint64

// idNamespace is the fixed UUID namespace for entity identity. Changing it
// invalidates every persisted cache, so it is versioned with the cache
// schema, not with releases.
var idNamespace = uuid.MustParse("8f1c2d44-9a6b-4e31-b7a0-5d12c03f6ae9")

// NewID derives the stable ID for a qualified name.
//
// Qualified names compare case-insensitively in the language, so the name
// is case-folded before hashing; "Catalogs.Customers" and
// "catalogs.customers" are the same entity.
func NewID(qualifiedName string) ID {
	u := uuid.NewSHA1(idNamespace, []byte(strings.ToLower(strings.TrimSpace(qualifiedName))))
	return ID(binary.BigEndian.Uint64(u[:8]))
}

// String renders the ID as fixed-width hex for logs and cache keys.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}
