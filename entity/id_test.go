// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package entity

import "testing"

func TestNewID(t *testing.T) {
	t.Run("deterministic across calls", func(t *testing.T) {
		a := NewID("Catalogs.Customers")
		b := NewID("Catalogs.Customers")
		if a != b {
			t.Errorf("same name produced different ids: %v, %v", a, b)
		}
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		a := NewID("Catalogs.Customers")
		b := NewID("  catalogs.customers ")
		if a != b {
			t.Errorf("folded forms produced different ids: %v, %v", a, b)
		}
	})

	t.Run("distinct names produce distinct ids", func(t *testing.T) {
		a := NewID("Catalogs.Customers")
		b := NewID("Catalogs.Products")
		if a == b {
			t.Error("distinct names collided")
		}
	})

	t.Run("string form is fixed-width hex", func(t *testing.T) {
		s := NewID("Catalogs.Customers").String()
		if len(s) != 16 {
			t.Errorf("String() = %q, want 16 hex characters", s)
		}
	})
}
