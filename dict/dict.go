// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package dict implements query-scoped global dictionaries for low
// cardinality string columns.
package dict

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/chunk"
)

// GlobalDictMap maps integer codes to the string values they encode and back.
// Codes are assigned 1..n in ascending value order, so comparing codes orders
// the same way as comparing values. A GlobalDictMap is immutable once built
// and is shared by reference between every scanner of a query.
type GlobalDictMap struct {
	values []string
	codes  map[string]int32
}

var _ chunk.DictDecoder = (*GlobalDictMap)(nil)

// New builds a dictionary over values, which must be distinct.
func New(values []string) (*GlobalDictMap, error) {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	m := &GlobalDictMap{
		values: sorted,
		codes:  make(map[string]int32, len(sorted)),
	}
	for i, v := range sorted {
		if i > 0 && sorted[i-1] == v {
			return nil, errors.Newf("duplicate dictionary value %q", v)
		}
		m.codes[v] = int32(i + 1)
	}
	return m, nil
}

// Len returns the number of entries.
func (m *GlobalDictMap) Len() int { return len(m.values) }

// Decode returns the value encoded by code.
func (m *GlobalDictMap) Decode(code int32) (string, bool) {
	if code < 1 || int(code) > len(m.values) {
		return "", false
	}
	return m.values[code-1], true
}

// Encode returns the code of value.
func (m *GlobalDictMap) Encode(value []byte) (int32, bool) {
	c, ok := m.codes[string(value)]
	return c, ok
}

// Values returns the dictionary values in code order. The caller must not
// modify the result.
func (m *GlobalDictMap) Values() []string { return m.values }

// Store is the query-wide set of dictionaries, keyed by the slot whose values
// they encode. It is populated before scanning starts and only read
// afterwards.
type Store struct {
	dicts map[chunk.SlotID]*GlobalDictMap
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{dicts: make(map[chunk.SlotID]*GlobalDictMap)}
}

// Add registers d for slot.
func (s *Store) Add(slot chunk.SlotID, d *GlobalDictMap) {
	s.dicts[slot] = d
}

// Lookup returns the dictionary registered for slot.
func (s *Store) Lookup(slot chunk.SlotID) (*GlobalDictMap, bool) {
	if s == nil {
		return nil, false
	}
	d, ok := s.dicts[slot]
	return d, ok
}

// Len returns the number of registered dictionaries.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.dicts)
}

// ColumnIDToDictMap associates tablet column ids with the dictionaries of the
// slots that read them. The maps it references are not owned.
type ColumnIDToDictMap map[chunk.ColumnID]*GlobalDictMap
