// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package chunk

import (
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Column is a vector of values of a single FieldType.
type Column interface {
	// Len returns the number of rows in the column.
	Len() int
	// Type returns the logical type of the values.
	Type() FieldType
	// Datum returns the value at row i.
	Datum(i int) Datum
	// AppendDatum appends d, which must be of the column's type.
	AppendDatum(d Datum)
	// AppendFrom appends row i of src, which must have the same concrete type.
	AppendFrom(src Column, i int)
	// Filter retains the rows for which sel is non-zero, preserving order.
	// len(sel) must equal Len().
	Filter(sel []uint8)
	// MemoryUsage returns the number of bytes reserved by the column.
	MemoryUsage() int64
	// Reset truncates the column to zero rows, retaining its buffers.
	Reset()
}

// NewColumn returns an empty column for values of type t with room for
// capacity rows.
func NewColumn(t FieldType, capacity int) Column {
	switch t {
	case TypeInt64:
		return &Int64Column{Values: make([]int64, 0, capacity)}
	case TypeFloat64:
		return &Float64Column{Values: make([]float64, 0, capacity)}
	case TypeVarchar:
		return NewBinaryColumn(capacity)
	default:
		panic(errors.AssertionFailedf("unsupported column type %s", t))
	}
}

// Int64Column holds int64 values.
type Int64Column struct {
	Values []int64
}

var _ Column = (*Int64Column)(nil)

// Len implements Column.
func (c *Int64Column) Len() int { return len(c.Values) }

// Type implements Column.
func (c *Int64Column) Type() FieldType { return TypeInt64 }

// Datum implements Column.
func (c *Int64Column) Datum(i int) Datum { return Int64Datum(c.Values[i]) }

// AppendDatum implements Column.
func (c *Int64Column) AppendDatum(d Datum) { c.Values = append(c.Values, d.Int64()) }

// AppendFrom implements Column.
func (c *Int64Column) AppendFrom(src Column, i int) {
	c.Values = append(c.Values, src.(*Int64Column).Values[i])
}

// Filter implements Column.
func (c *Int64Column) Filter(sel []uint8) { c.Values = filterSlice(c.Values, sel) }

// MemoryUsage implements Column.
func (c *Int64Column) MemoryUsage() int64 { return int64(cap(c.Values)) * 8 }

// Reset implements Column.
func (c *Int64Column) Reset() { c.Values = c.Values[:0] }

// Float64Column holds float64 values.
type Float64Column struct {
	Values []float64
}

var _ Column = (*Float64Column)(nil)

// Len implements Column.
func (c *Float64Column) Len() int { return len(c.Values) }

// Type implements Column.
func (c *Float64Column) Type() FieldType { return TypeFloat64 }

// Datum implements Column.
func (c *Float64Column) Datum(i int) Datum { return Float64Datum(c.Values[i]) }

// AppendDatum implements Column.
func (c *Float64Column) AppendDatum(d Datum) { c.Values = append(c.Values, d.Float64()) }

// AppendFrom implements Column.
func (c *Float64Column) AppendFrom(src Column, i int) {
	c.Values = append(c.Values, src.(*Float64Column).Values[i])
}

// Filter implements Column.
func (c *Float64Column) Filter(sel []uint8) { c.Values = filterSlice(c.Values, sel) }

// MemoryUsage implements Column.
func (c *Float64Column) MemoryUsage() int64 { return int64(cap(c.Values)) * 8 }

// Reset implements Column.
func (c *Float64Column) Reset() { c.Values = c.Values[:0] }

// DictDecoder maps dictionary codes back to the values they encode.
type DictDecoder interface {
	Decode(code int32) (string, bool)
}

// DictCodeColumn holds low-cardinality strings in their global dictionary
// encoded form. The dictionary is shared and never mutated through the column.
type DictCodeColumn struct {
	Codes []int32
	Dict  DictDecoder
}

var _ Column = (*DictCodeColumn)(nil)

// Len implements Column.
func (c *DictCodeColumn) Len() int { return len(c.Codes) }

// Type implements Column. Encoded columns still present as varchar.
func (c *DictCodeColumn) Type() FieldType { return TypeVarchar }

// Datum implements Column, decoding the code at row i.
func (c *DictCodeColumn) Datum(i int) Datum {
	v, ok := c.Dict.Decode(c.Codes[i])
	if !ok {
		return Datum{}
	}
	return BytesDatum(v)
}

// AppendDatum implements Column. Encoding strings requires the dictionary's
// reverse mapping, so only AppendCode is supported.
func (c *DictCodeColumn) AppendDatum(d Datum) {
	panic(errors.AssertionFailedf("AppendDatum(%s) on dictionary encoded column", d))
}

// AppendCode appends an encoded value.
func (c *DictCodeColumn) AppendCode(code int32) { c.Codes = append(c.Codes, code) }

// AppendFrom implements Column.
func (c *DictCodeColumn) AppendFrom(src Column, i int) {
	c.Codes = append(c.Codes, src.(*DictCodeColumn).Codes[i])
}

// Filter implements Column.
func (c *DictCodeColumn) Filter(sel []uint8) { c.Codes = filterSlice(c.Codes, sel) }

// MemoryUsage implements Column.
func (c *DictCodeColumn) MemoryUsage() int64 { return int64(cap(c.Codes)) * 4 }

// Reset implements Column.
func (c *DictCodeColumn) Reset() { c.Codes = c.Codes[:0] }

func filterSlice[T any](vals []T, sel []uint8) []T {
	if len(sel) != len(vals) {
		panic(errors.AssertionFailedf("selection length %d != column length %d", len(sel), len(vals)))
	}
	n := 0
	for i := range vals {
		if sel[i] != 0 {
			vals[n] = vals[i]
			n++
		}
	}
	return vals[:n]
}

var sizeofUint32 = int64(unsafe.Sizeof(uint32(0)))
