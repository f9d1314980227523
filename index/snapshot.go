// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package index

import "sync/atomic"

// Snapshot publishes a UnifiedIndex to concurrent readers.
//
// Rebuilds and incremental deltas always construct a complete new index
// off to the side and install it with Swap; readers holding the previous
// value keep a fully consistent view until they next call Load. There is
// no partially-updated state to observe, by construction.
type Snapshot struct {
	current atomic.Pointer[UnifiedIndex]
}

// NewSnapshot creates a holder, optionally seeded with an initial index.
func NewSnapshot(initial *UnifiedIndex) *Snapshot {
	s := &Snapshot{}
	if initial != nil {
		s.current.Store(initial)
	}
	return s
}

// Load returns the current index, or nil before the first Swap.
func (s *Snapshot) Load() *UnifiedIndex {
	return s.current.Load()
}

// Swap atomically installs a new index and returns the previous one.
func (s *Snapshot) Swap(next *UnifiedIndex) *UnifiedIndex {
	return s.current.Swap(next)
}
