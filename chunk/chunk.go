// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package chunk

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Chunk is a columnar batch of rows. All columns have the same length. A
// Chunk is not safe for concurrent use.
type Chunk struct {
	schema  *Schema
	columns []Column
	// slotIndex maps query slot ids to column positions. It is rebuilt by the
	// consumer for every chunk it receives.
	slotIndex map[SlotID]int
}

// New returns an empty chunk for schema with room for capacity rows. Varchar
// columns are taken from pool when it is non-nil.
func New(schema *Schema, capacity int, pool *BinaryColumnPool) *Chunk {
	c := &Chunk{}
	c.Reinit(schema, capacity, pool)
	return c
}

// Reinit resets the chunk to zero rows of the given schema. When the schema is
// unchanged, the existing column buffers are retained.
func (c *Chunk) Reinit(schema *Schema, capacity int, pool *BinaryColumnPool) {
	if c.schema == schema && len(c.columns) == schema.NumFields() {
		c.Reset()
		return
	}
	c.Release(pool)
	c.schema = schema
	c.columns = make([]Column, schema.NumFields())
	for i, f := range schema.Fields() {
		if f.Type == TypeVarchar && pool != nil {
			c.columns[i] = pool.Get()
			continue
		}
		c.columns[i] = NewColumn(f.Type, capacity)
	}
	clear(c.slotIndex)
}

// SetColumn replaces the i'th column. Used by decoding stages that swap a
// column for its dictionary encoded form.
func (c *Chunk) SetColumn(i int, col Column) { c.columns[i] = col }

// Schema returns the chunk's schema.
func (c *Chunk) Schema() *Schema { return c.schema }

// NumColumns returns the number of columns.
func (c *Chunk) NumColumns() int { return len(c.columns) }

// NumRows returns the number of rows.
func (c *Chunk) NumRows() int {
	if len(c.columns) == 0 {
		return 0
	}
	return c.columns[0].Len()
}

// IsEmpty returns true if the chunk has no rows.
func (c *Chunk) IsEmpty() bool { return c.NumRows() == 0 }

// Column returns the i'th column.
func (c *Chunk) Column(i int) Column { return c.columns[i] }

// ColumnByName returns the named column, or nil.
func (c *Chunk) ColumnByName(name string) Column {
	if i := c.schema.FieldIndexByName(name); i >= 0 {
		return c.columns[i]
	}
	return nil
}

// SetSlotIDToIndex binds slot to the column at position idx.
func (c *Chunk) SetSlotIDToIndex(slot SlotID, idx int) {
	if c.slotIndex == nil {
		c.slotIndex = make(map[SlotID]int)
	}
	c.slotIndex[slot] = idx
}

// ColumnBySlotID returns the column bound to slot.
func (c *Chunk) ColumnBySlotID(slot SlotID) (Column, bool) {
	idx, ok := c.slotIndex[slot]
	if !ok {
		return nil, false
	}
	return c.columns[idx], true
}

// Filter retains the rows for which sel is non-zero. len(sel) must equal
// NumRows(). Returns the number of retained rows.
func (c *Chunk) Filter(sel []uint8) int {
	n := c.NumRows()
	if len(sel) != n {
		panic(errors.AssertionFailedf("selection length %d != chunk rows %d", len(sel), n))
	}
	selected := 0
	for _, s := range sel {
		if s != 0 {
			selected++
		}
	}
	if selected == n {
		return n
	}
	for _, col := range c.columns {
		col.Filter(sel)
	}
	return selected
}

// MemoryUsage returns the bytes reserved by all columns.
func (c *Chunk) MemoryUsage() int64 {
	var n int64
	for _, col := range c.columns {
		n += col.MemoryUsage()
	}
	return n
}

// Reset truncates every column to zero rows and forgets slot bindings.
func (c *Chunk) Reset() {
	for _, col := range c.columns {
		col.Reset()
	}
	clear(c.slotIndex)
}

// Release returns the chunk's varchar columns to pool (if non-nil) and drops
// all columns.
func (c *Chunk) Release(pool *BinaryColumnPool) {
	if pool != nil {
		for _, col := range c.columns {
			if bc, ok := col.(*BinaryColumn); ok {
				pool.Put(bc)
			}
		}
	}
	c.columns = nil
	c.schema = nil
	clear(c.slotIndex)
}

// CheckConsistency returns an error if the columns disagree on the number of
// rows or on their types.
func (c *Chunk) CheckConsistency() error {
	if c.schema != nil && len(c.columns) != c.schema.NumFields() {
		return errors.AssertionFailedf("chunk has %d columns, schema has %d fields",
			len(c.columns), c.schema.NumFields())
	}
	n := c.NumRows()
	for i, col := range c.columns {
		if col.Len() != n {
			return errors.AssertionFailedf("column %d has %d rows, expected %d", i, col.Len(), n)
		}
		if want := c.schema.Field(i).Type; col.Type() != want {
			return errors.AssertionFailedf("column %d has type %s, expected %s", i, col.Type(), want)
		}
	}
	return nil
}

// AppendRow appends one row of datums, one per column.
func (c *Chunk) AppendRow(row ...Datum) {
	if len(row) != len(c.columns) {
		panic(errors.AssertionFailedf("row has %d datums, chunk has %d columns", len(row), len(c.columns)))
	}
	for i, d := range row {
		c.columns[i].AppendDatum(d)
	}
}

// Row returns the datums of row i.
func (c *Chunk) Row(i int) Tuple {
	row := make(Tuple, len(c.columns))
	for j, col := range c.columns {
		row[j] = col.Datum(i)
	}
	return row
}

// String renders the chunk as one line per row, for tests and debugging.
func (c *Chunk) String() string {
	var b strings.Builder
	for i := 0; i < c.NumRows(); i++ {
		for j, col := range c.columns {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%s=%s", c.schema.Field(j).Name, col.Datum(i))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
