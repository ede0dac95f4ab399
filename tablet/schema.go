// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tablet

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/cockroachdb/tabletscan/chunk"
)

// ColumnID identifies a column by its ordinal position in a Schema.
type ColumnID = chunk.ColumnID

// KeysType is the data model of a tablet. It determines how rows with equal
// keys are combined on read.
type KeysType uint8

const (
	// DupKeys keeps every row; rows with equal keys are all returned.
	DupKeys KeysType = iota
	// AggKeys aggregates the value columns of rows with equal keys.
	AggKeys
	// UniqueKeys keeps the most recent version of each key.
	UniqueKeys
	// PrimaryKeys is like UniqueKeys but resolves duplicates at write time
	// using delete vectors, so reads never need to merge.
	PrimaryKeys
)

var keysTypeNames = [...]string{
	DupKeys:     "dup",
	AggKeys:     "agg",
	UniqueKeys:  "unique",
	PrimaryKeys: "primary",
}

func (k KeysType) String() string { return keysTypeNames[k] }

// SafeFormat implements the redact.SafeFormatter interface.
func (k KeysType) SafeFormat(p redact.SafePrinter, verb rune) {
	p.SafeString(redact.SafeString(k.String()))
}

// ParseKeysType returns the KeysType with the given name.
func ParseKeysType(s string) (KeysType, bool) {
	for i, n := range keysTypeNames {
		if n == s {
			return KeysType(i), true
		}
	}
	return 0, false
}

// AggregationMethod combines the values of a value column across rows with
// equal keys.
type AggregationMethod uint8

const (
	// AggNone is used by key columns and by value columns of duplicate-key
	// tablets.
	AggNone AggregationMethod = iota
	// AggSum sums values.
	AggSum
	// AggMin keeps the smallest value.
	AggMin
	// AggMax keeps the largest value.
	AggMax
	// AggReplace keeps the value of the most recent version.
	AggReplace
)

var aggNames = [...]string{
	AggNone:    "none",
	AggSum:     "sum",
	AggMin:     "min",
	AggMax:     "max",
	AggReplace: "replace",
}

func (a AggregationMethod) String() string { return aggNames[a] }

// ParseAggregationMethod returns the AggregationMethod with the given name.
func ParseAggregationMethod(s string) (AggregationMethod, bool) {
	for i, n := range aggNames {
		if n == s {
			return AggregationMethod(i), true
		}
	}
	return 0, false
}

// Column describes one column of a tablet.
type Column struct {
	Name        string
	Type        chunk.FieldType
	IsKey       bool
	Aggregation AggregationMethod
}

// Schema is the authoritative, ordered column list of a tablet. Key columns
// come first. A Schema is immutable.
type Schema struct {
	keysType  KeysType
	columns   []Column
	numKeys   int
	nameIndex map[string]ColumnID
}

// NewSchema validates columns against keysType and returns the schema. Value
// columns of unique and primary key tablets default to AggReplace.
func NewSchema(keysType KeysType, columns []Column) (*Schema, error) {
	s := &Schema{
		keysType:  keysType,
		columns:   make([]Column, len(columns)),
		nameIndex: make(map[string]ColumnID, len(columns)),
	}
	copy(s.columns, columns)
	for i := range s.columns {
		c := &s.columns[i]
		if _, ok := s.nameIndex[c.Name]; ok {
			return nil, errors.Newf("duplicate column %q", c.Name)
		}
		s.nameIndex[c.Name] = ColumnID(i)
		if c.Type == chunk.TypeUnknown {
			return nil, errors.Newf("column %q has no type", c.Name)
		}
		if c.IsKey {
			if i != s.numKeys {
				return nil, errors.Newf("key column %q follows a value column", c.Name)
			}
			if c.Aggregation != AggNone {
				return nil, errors.Newf("key column %q has aggregation %s", c.Name, c.Aggregation)
			}
			s.numKeys++
			continue
		}
		switch keysType {
		case DupKeys:
			if c.Aggregation != AggNone {
				return nil, errors.Newf("value column %q of a %s tablet has aggregation %s",
					c.Name, keysType, c.Aggregation)
			}
		case AggKeys:
			if c.Aggregation == AggNone {
				return nil, errors.Newf("value column %q of an agg tablet needs an aggregation", c.Name)
			}
			if c.Aggregation == AggSum && c.Type == chunk.TypeVarchar {
				return nil, errors.Newf("value column %q cannot sum %s", c.Name, c.Type)
			}
		case UniqueKeys, PrimaryKeys:
			if c.Aggregation == AggNone {
				c.Aggregation = AggReplace
			} else if c.Aggregation != AggReplace {
				return nil, errors.Newf("value column %q of a %s tablet has aggregation %s",
					c.Name, keysType, c.Aggregation)
			}
		}
	}
	if s.numKeys == 0 {
		return nil, errors.New("schema has no key columns")
	}
	return s, nil
}

// KeysType returns the tablet's data model.
func (s *Schema) KeysType() KeysType { return s.keysType }

// NumColumns returns the number of columns.
func (s *Schema) NumColumns() int { return len(s.columns) }

// NumKeyColumns returns the number of key columns. Key columns have ids
// [0, NumKeyColumns()).
func (s *Schema) NumKeyColumns() int { return s.numKeys }

// Column returns the column with the given id.
func (s *Schema) Column(id ColumnID) Column { return s.columns[id] }

// Columns returns all columns. The caller must not modify the result.
func (s *Schema) Columns() []Column { return s.columns }

// FieldIndex returns the id of the named column, or -1.
func (s *Schema) FieldIndex(name string) int {
	if id, ok := s.nameIndex[name]; ok {
		return int(id)
	}
	return -1
}

// ChunkSchema returns the chunk schema made of the given columns, in the
// given order.
func (s *Schema) ChunkSchema(ids []ColumnID) (*chunk.Schema, error) {
	fields := make([]chunk.Field, len(ids))
	for i, id := range ids {
		if int(id) < 0 || int(id) >= len(s.columns) {
			return nil, errors.Newf("column id %d out of range [0, %d)", id, len(s.columns))
		}
		c := s.columns[id]
		fields[i] = chunk.Field{ID: id, Name: c.Name, Type: c.Type, IsKey: c.IsKey}
	}
	return chunk.NewSchema(fields)
}
