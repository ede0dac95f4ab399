// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package chunk implements the columnar row batches that flow through the scan
// path. A Chunk holds one Column per field of its Schema; rows are filtered in
// place with a selection vector and columns are the unit of materialization.
package chunk

import "github.com/cockroachdb/redact"

// ColumnID identifies a column inside a tablet schema. It is the column's
// ordinal position in that schema.
type ColumnID int32

// SlotID identifies a query slot (an output position requested by the plan).
type SlotID int32

// FieldType is the logical type of a column.
type FieldType uint8

const (
	// TypeUnknown is the zero FieldType.
	TypeUnknown FieldType = iota
	// TypeInt64 is a 64-bit signed integer.
	TypeInt64
	// TypeFloat64 is a 64-bit float.
	TypeFloat64
	// TypeVarchar is a variable length byte string.
	TypeVarchar
)

var fieldTypeNames = [...]string{
	TypeUnknown: "unknown",
	TypeInt64:   "int64",
	TypeFloat64: "float64",
	TypeVarchar: "varchar",
}

func (t FieldType) String() string {
	if int(t) < len(fieldTypeNames) {
		return fieldTypeNames[t]
	}
	return "invalid"
}

// SafeFormat implements the redact.SafeFormatter interface.
func (t FieldType) SafeFormat(p redact.SafePrinter, verb rune) {
	p.SafeString(redact.SafeString(t.String()))
}

// ParseFieldType returns the FieldType with the given name.
func ParseFieldType(s string) (FieldType, bool) {
	for i, n := range fieldTypeNames {
		if i != int(TypeUnknown) && n == s {
			return FieldType(i), true
		}
	}
	return TypeUnknown, false
}
