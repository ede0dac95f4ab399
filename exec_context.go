// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tabletscan

import (
	"sync/atomic"

	"github.com/cockroachdb/tabletscan/dict"
)

// ExecContext is the per-query state shared by every scanner of a query.
type ExecContext struct {
	// GlobalDicts maps slots to query-wide dictionaries. May be nil.
	GlobalDicts *dict.Store
	// MemTracker, if set, is charged with the memory retained by filtered
	// chunks.
	MemTracker *MemTracker

	cancelled atomic.Bool
}

// Cancel marks the query cancelled. Scanners observe it at their next
// GetNextBatch call.
func (e *ExecContext) Cancel() { e.cancelled.Store(true) }

// IsCancelled returns true once Cancel was called.
func (e *ExecContext) IsCancelled() bool { return e != nil && e.cancelled.Load() }

// MemTracker tracks the bytes consumed by a query. It is safe for concurrent
// use; the zero value is ready to use and a nil tracker ignores updates.
type MemTracker struct {
	consumption atomic.Int64
	peak        atomic.Int64
}

// Consume adds delta, which may be negative, to the consumption.
func (m *MemTracker) Consume(delta int64) {
	if m == nil || delta == 0 {
		return
	}
	v := m.consumption.Add(delta)
	for {
		p := m.peak.Load()
		if v <= p || m.peak.CompareAndSwap(p, v) {
			return
		}
	}
}

// Consumption returns the bytes currently consumed.
func (m *MemTracker) Consumption() int64 {
	if m == nil {
		return 0
	}
	return m.consumption.Load()
}

// Peak returns the highest consumption observed.
func (m *MemTracker) Peak() int64 {
	if m == nil {
		return 0
	}
	return m.peak.Load()
}
