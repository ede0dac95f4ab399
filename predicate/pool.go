// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package predicate

import "github.com/cockroachdb/tabletscan/chunk"

// Handle refers to a predicate owned by a Pool.
type Handle int32

// Pool owns the predicates of one scan. Reader parameters and residual Sets
// hold Handles or plain references into the pool, which stay valid until
// Clear.
type Pool struct {
	preds []ColumnPredicate
}

// Add transfers ownership of p to the pool.
func (p *Pool) Add(pred ColumnPredicate) Handle {
	p.preds = append(p.preds, pred)
	return Handle(len(p.preds) - 1)
}

// Get returns the predicate for h.
func (p *Pool) Get(h Handle) ColumnPredicate { return p.preds[h] }

// Len returns the number of owned predicates.
func (p *Pool) Len() int { return len(p.preds) }

// Clear releases every predicate.
func (p *Pool) Clear() {
	clear(p.preds)
	p.preds = p.preds[:0]
}

// Set is a conjunction of pool predicates that the scanner evaluates on
// chunks returned by the reader.
type Set struct {
	pool    *Pool
	handles []Handle
}

// MakeSet returns an empty set referencing pool.
func MakeSet(pool *Pool) Set { return Set{pool: pool} }

// Add appends the predicate h.
func (s *Set) Add(h Handle) { s.handles = append(s.handles, h) }

// Len returns the number of predicates.
func (s *Set) Len() int { return len(s.handles) }

// Empty returns true if the set has no predicates.
func (s *Set) Empty() bool { return len(s.handles) == 0 }

// Predicates returns the predicates of the set.
func (s *Set) Predicates() []ColumnPredicate {
	out := make([]ColumnPredicate, len(s.handles))
	for i, h := range s.handles {
		out[i] = s.pool.Get(h)
	}
	return out
}

// Evaluate writes into sel (grown as needed) a selection of the chunk's rows
// satisfying every predicate and returns sel and the number of selected rows.
// A predicate whose column is not part of the chunk fails with an error.
func (s *Set) Evaluate(c *chunk.Chunk, sel []uint8) ([]uint8, int, error) {
	n := c.NumRows()
	if cap(sel) < n {
		sel = make([]uint8, n)
	}
	sel = sel[:n]
	for i := range sel {
		sel[i] = 1
	}
	for _, h := range s.handles {
		pred := s.pool.Get(h)
		idx := c.Schema().FieldIndexByID(pred.ColumnID())
		if idx < 0 {
			return sel, 0, errColumnNotInChunk(pred)
		}
		pred.Evaluate(c.Column(idx), sel)
	}
	selected := 0
	for _, v := range sel {
		if v != 0 {
			selected++
		}
	}
	return sel, selected, nil
}
