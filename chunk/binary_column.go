// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package chunk

import (
	"github.com/cockroachdb/errors"
)

// BinaryColumn holds variable length byte strings. Values are stored
// back to back in bytes; offsets has Len()+1 entries and value i spans
// bytes[offsets[i]:offsets[i+1]].
type BinaryColumn struct {
	offsets []uint32
	bytes   []byte
}

var _ Column = (*BinaryColumn)(nil)

// NewBinaryColumn returns an empty BinaryColumn with room for capacity rows.
func NewBinaryColumn(capacity int) *BinaryColumn {
	c := &BinaryColumn{offsets: make([]uint32, 1, capacity+1)}
	return c
}

// Len implements Column.
func (c *BinaryColumn) Len() int {
	if len(c.offsets) == 0 {
		return 0
	}
	return len(c.offsets) - 1
}

// Type implements Column.
func (c *BinaryColumn) Type() FieldType { return TypeVarchar }

// Value returns the bytes of row i. The returned slice aliases the column's
// buffer and is only valid until the column is next mutated.
func (c *BinaryColumn) Value(i int) []byte {
	return c.bytes[c.offsets[i]:c.offsets[i+1]]
}

// Datum implements Column.
func (c *BinaryColumn) Datum(i int) Datum { return BytesDatum(string(c.Value(i))) }

// Append appends v.
func (c *BinaryColumn) Append(v []byte) {
	if len(c.offsets) == 0 {
		c.offsets = append(c.offsets, 0)
	}
	c.bytes = append(c.bytes, v...)
	c.offsets = append(c.offsets, uint32(len(c.bytes)))
}

// AppendString appends v.
func (c *BinaryColumn) AppendString(v string) {
	if len(c.offsets) == 0 {
		c.offsets = append(c.offsets, 0)
	}
	c.bytes = append(c.bytes, v...)
	c.offsets = append(c.offsets, uint32(len(c.bytes)))
}

// AppendDatum implements Column.
func (c *BinaryColumn) AppendDatum(d Datum) { c.AppendString(d.Bytes()) }

// AppendFrom implements Column.
func (c *BinaryColumn) AppendFrom(src Column, i int) {
	c.Append(src.(*BinaryColumn).Value(i))
}

// Filter implements Column. Retained values are compacted towards the front
// of the byte buffer.
func (c *BinaryColumn) Filter(sel []uint8) {
	n := c.Len()
	if len(sel) != n {
		panic(errors.AssertionFailedf("selection length %d != column length %d", len(sel), n))
	}
	var w uint32
	rows := 0
	for i := 0; i < n; i++ {
		if sel[i] == 0 {
			continue
		}
		start, end := c.offsets[i], c.offsets[i+1]
		if start != w {
			copy(c.bytes[w:], c.bytes[start:end])
		}
		w += end - start
		rows++
		c.offsets[rows] = w
	}
	c.offsets = c.offsets[:rows+1]
	c.bytes = c.bytes[:w]
}

// ByteSize returns the number of value bytes held.
func (c *BinaryColumn) ByteSize() int { return len(c.bytes) }

// ByteCapacity returns the capacity of the value buffer.
func (c *BinaryColumn) ByteCapacity() int { return cap(c.bytes) }

// MemoryUsage implements Column.
func (c *BinaryColumn) MemoryUsage() int64 {
	return int64(cap(c.bytes)) + int64(cap(c.offsets))*sizeofUint32
}

// Reset implements Column.
func (c *BinaryColumn) Reset() {
	c.bytes = c.bytes[:0]
	if cap(c.offsets) == 0 {
		c.offsets = make([]uint32, 1)
		return
	}
	c.offsets = c.offsets[:1]
	c.offsets[0] = 0
}
