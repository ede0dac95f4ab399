// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/tablet"
)

// Commit attaches rs to t. For primary key tablets, rows of earlier rowsets
// (and earlier rows of rs) whose keys rs contains are marked deleted as of the
// rowset's end version, so reads never need to merge.
func Commit(t *tablet.Tablet, rs *Rowset) error {
	if rs.schema != t.Schema() {
		return errors.AssertionFailedf("rowset schema does not belong to tablet %s", t)
	}
	if t.Schema().KeysType() == tablet.PrimaryKeys && rs.numRows > 0 {
		if err := resolvePrimaryKeys(t, rs); err != nil {
			return err
		}
	}
	return t.AddRowset(rs)
}

func resolvePrimaryKeys(t *tablet.Tablet, rs *Rowset) error {
	version := rs.versions.End
	newKeys, err := rs.encodedKeys()
	if err != nil {
		return err
	}
	// Within rs rows are sorted stably by key; the last of equal keys wins.
	latest := make(map[string]int, len(newKeys))
	var selfDeleted bitset
	for ord, k := range newKeys {
		if prev, ok := latest[k]; ok {
			if selfDeleted == nil {
				selfDeleted = newBitset(rs.numRows)
			}
			selfDeleted.set(prev)
		}
		latest[k] = ord
	}
	if selfDeleted != nil {
		rs.addDelVec(version, selfDeleted)
	}

	older, err := t.CaptureRowsets(t.MaxVersion())
	if err != nil {
		return err
	}
	for _, o := range older {
		ors, ok := o.(*Rowset)
		if !ok || ors.numRows == 0 {
			continue
		}
		keys, err := ors.encodedKeys()
		if err != nil {
			return err
		}
		var dv bitset
		for ord, k := range keys {
			if _, ok := latest[k]; !ok {
				continue
			}
			if dv == nil {
				dv = newBitset(ors.numRows)
			}
			dv.set(ord)
		}
		if dv != nil {
			ors.addDelVec(version, dv)
		}
	}
	return nil
}

// encodedKeys returns the encoded key columns of every row.
func (r *Rowset) encodedKeys() ([]string, error) {
	nKeys := r.schema.NumKeyColumns()
	cols := make([]chunk.Column, nKeys)
	for i := range cols {
		c, err := r.readColumn(tablet.ColumnID(i))
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	keys := make([]string, r.numRows)
	var buf []byte
	for ord := range keys {
		buf = buf[:0]
		for i, c := range cols {
			buf = appendEncodedDatum(buf, r.schema.Column(tablet.ColumnID(i)).Type, c.Datum(ord))
		}
		keys[ord] = string(buf)
	}
	return keys, nil
}
