// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/tablet"
)

// mergingIterHeap is a min-heap of rowset iterators ordered by the key of
// their current row, then by rowset age (older first).
//
// REQUIRES: every item is valid.
type mergingIterHeap struct {
	keyIdx []int
	items  []*rowsetIter
}

func (h *mergingIterHeap) len() int { return len(h.items) }

func (h *mergingIterHeap) less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if c := compareRows(h.keyIdx, a.batch, a.pos, b.batch, b.pos); c != 0 {
		return c < 0
	}
	return a.seq < b.seq
}

func (h *mergingIterHeap) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

func (h *mergingIterHeap) init() {
	n := h.len()
	for i := n/2 - 1; i >= 0; i-- {
		h.down(i, n)
	}
}

// fixTop restores the heap property after the top item advanced.
func (h *mergingIterHeap) fixTop() { h.down(0, h.len()) }

func (h *mergingIterHeap) pop() *rowsetIter {
	n := h.len() - 1
	h.swap(0, n)
	h.down(0, n)
	it := h.items[n]
	h.items = h.items[:n]
	return it
}

func (h *mergingIterHeap) down(i, n int) {
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h.less(j2, j1) {
			j = j2
		}
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		i = j
	}
}

func compareRows(keyIdx []int, a *chunk.Chunk, ai int, b *chunk.Chunk, bi int) int {
	for _, k := range keyIdx {
		if c := a.Column(k).Datum(ai).Compare(b.Column(k).Datum(bi)); c != 0 {
			return c
		}
	}
	return 0
}

// mergingIter merges the rows of several rowsets in key order. For aggregate
// and unique key tablets rows with equal keys are combined into one; for
// duplicate key tablets every row is returned.
type mergingIter struct {
	heap      mergingIterHeap
	aggregate bool
	// methods holds the aggregation of every read column; key columns have
	// AggNone.
	methods []tablet.AggregationMethod
	row     chunk.Tuple
}

func newMergingIter(
	ctx context.Context, iters []*rowsetIter, keyIdx []int, methods []tablet.AggregationMethod, aggregate bool,
) (*mergingIter, error) {
	m := &mergingIter{
		heap:      mergingIterHeap{keyIdx: keyIdx},
		aggregate: aggregate,
		methods:   methods,
		row:       make(chunk.Tuple, len(methods)),
	}
	for _, it := range iters {
		if err := it.nextBatch(ctx); err != nil {
			return nil, err
		}
		if it.valid() {
			m.heap.items = append(m.heap.items, it)
		}
	}
	m.heap.init()
	return m, nil
}

// next returns the next (combined) row in read schema order. The returned
// tuple is reused by the following call. Returns nil when exhausted.
func (m *mergingIter) next(ctx context.Context) (chunk.Tuple, error) {
	if m.heap.len() == 0 {
		return nil, nil
	}
	top := m.heap.items[0]
	for i := range m.row {
		m.row[i] = top.batch.Column(i).Datum(top.pos)
	}
	if err := m.step(ctx); err != nil {
		return nil, err
	}
	if !m.aggregate {
		return m.row, nil
	}
	for m.heap.len() > 0 {
		top = m.heap.items[0]
		if !m.sameKey(top) {
			break
		}
		for i, method := range m.methods {
			if method == tablet.AggNone {
				continue
			}
			var err error
			m.row[i], err = combine(method, m.row[i], top.batch.Column(i).Datum(top.pos))
			if err != nil {
				return nil, err
			}
		}
		if err := m.step(ctx); err != nil {
			return nil, err
		}
	}
	return m.row, nil
}

func (m *mergingIter) sameKey(it *rowsetIter) bool {
	for _, k := range m.heap.keyIdx {
		if m.row[k].Compare(it.batch.Column(k).Datum(it.pos)) != 0 {
			return false
		}
	}
	return true
}

// step advances the top iterator and restores the heap.
func (m *mergingIter) step(ctx context.Context) error {
	top := m.heap.items[0]
	if err := top.advance(ctx); err != nil {
		return err
	}
	if top.valid() {
		m.heap.fixTop()
	} else {
		m.heap.pop()
	}
	return nil
}

// combine folds newer into the accumulated value older.
func combine(method tablet.AggregationMethod, older, newer chunk.Datum) (chunk.Datum, error) {
	switch method {
	case tablet.AggSum:
		if older.Type() == chunk.TypeFloat64 || newer.Type() == chunk.TypeFloat64 {
			return chunk.Float64Datum(older.Float64() + newer.Float64()), nil
		}
		return chunk.Int64Datum(older.Int64() + newer.Int64()), nil
	case tablet.AggMin:
		if newer.Compare(older) < 0 {
			return newer, nil
		}
		return older, nil
	case tablet.AggMax:
		if newer.Compare(older) > 0 {
			return newer, nil
		}
		return older, nil
	case tablet.AggReplace:
		return newer, nil
	default:
		return chunk.Datum{}, errors.AssertionFailedf("cannot combine values with aggregation %s", method)
	}
}
