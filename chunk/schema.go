// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package chunk

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Field describes one column of a chunk.
type Field struct {
	// ID is the column's id in the tablet schema it was read from.
	ID   ColumnID
	Name string
	Type FieldType
	// IsKey is true for key columns.
	IsKey bool
}

// Schema is the ordered list of fields of a chunk. A Schema is immutable once
// built and may be shared between chunks.
type Schema struct {
	fields    []Field
	nameIndex map[string]int
	idIndex   map[ColumnID]int
}

// NewSchema returns a schema over the given fields. Field names and ids must
// be unique.
func NewSchema(fields []Field) (*Schema, error) {
	s := &Schema{
		fields:    fields,
		nameIndex: make(map[string]int, len(fields)),
		idIndex:   make(map[ColumnID]int, len(fields)),
	}
	for i, f := range fields {
		if _, ok := s.nameIndex[f.Name]; ok {
			return nil, errors.Newf("duplicate field name %q", f.Name)
		}
		if _, ok := s.idIndex[f.ID]; ok {
			return nil, errors.Newf("duplicate field id %d", f.ID)
		}
		s.nameIndex[f.Name] = i
		s.idIndex[f.ID] = i
	}
	return s, nil
}

// MustNewSchema is like NewSchema but panics on error.
func MustNewSchema(fields []Field) *Schema {
	s, err := NewSchema(fields)
	if err != nil {
		panic(err)
	}
	return s
}

// NumFields returns the number of fields.
func (s *Schema) NumFields() int { return len(s.fields) }

// Field returns the i'th field.
func (s *Schema) Field(i int) Field { return s.fields[i] }

// Fields returns all fields. The caller must not modify the result.
func (s *Schema) Fields() []Field { return s.fields }

// FieldIndexByName returns the position of the named field, or -1.
func (s *Schema) FieldIndexByName(name string) int {
	if i, ok := s.nameIndex[name]; ok {
		return i
	}
	return -1
}

// FieldIndexByID returns the position of the field with the given column id,
// or -1.
func (s *Schema) FieldIndexByID(id ColumnID) int {
	if i, ok := s.idIndex[id]; ok {
		return i
	}
	return -1
}

// ColumnIDs returns the column ids of the fields in order.
func (s *Schema) ColumnIDs() []ColumnID {
	ids := make([]ColumnID, len(s.fields))
	for i := range s.fields {
		ids[i] = s.fields[i].ID
	}
	return ids
}

func (s *Schema) String() string {
	var b strings.Builder
	for i, f := range s.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteByte(':')
		b.WriteString(f.Type.String())
	}
	return b.String()
}
