// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package chunk

import "sync"

// BinaryColumnPool is a free list of BinaryColumns shared between readers so
// that their buffers are reused across chunks. It is safe for concurrent use.
type BinaryColumnPool struct {
	// DefaultCapacity is the row capacity of newly allocated columns.
	DefaultCapacity int

	mu struct {
		sync.Mutex
		free []*BinaryColumn
	}
}

// Get returns an empty column, reusing a pooled one when available.
func (p *BinaryColumnPool) Get() *BinaryColumn {
	p.mu.Lock()
	if n := len(p.mu.free); n > 0 {
		c := p.mu.free[n-1]
		p.mu.free[n-1] = nil
		p.mu.free = p.mu.free[:n-1]
		p.mu.Unlock()
		c.Reset()
		return c
	}
	p.mu.Unlock()
	return NewBinaryColumn(p.DefaultCapacity)
}

// Put returns c to the pool.
func (p *BinaryColumnPool) Put(c *BinaryColumn) {
	if c == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mu.free = append(p.mu.free, c)
}

// Len returns the number of pooled columns.
func (p *BinaryColumnPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.mu.free)
}

// ReleaseLarge drops pooled columns whose value buffer capacity exceeds limit
// bytes and returns how many were dropped.
func (p *BinaryColumnPool) ReleaseLarge(limit int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.mu.free[:0]
	released := 0
	for _, c := range p.mu.free {
		if c.ByteCapacity() > limit {
			released++
			continue
		}
		kept = append(kept, c)
	}
	clear(p.mu.free[len(kept):])
	p.mu.free = kept
	return released
}
