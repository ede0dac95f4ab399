// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tabletscan

import (
	"github.com/cockroachdb/tabletscan/dict"
	"github.com/cockroachdb/tabletscan/tablet"
)

// bindGlobalDicts associates the column of every materialized slot that has a
// query-wide dictionary with that dictionary. The returned map is never nil.
func bindGlobalDicts(
	schema *tablet.Schema, slots []SlotDescriptor, dicts *dict.Store,
) dict.ColumnIDToDictMap {
	m := make(dict.ColumnIDToDictMap)
	for _, s := range slots {
		d, ok := dicts.Lookup(s.ID)
		if !ok {
			continue
		}
		if idx := schema.FieldIndex(s.Name); idx >= 0 {
			m[tablet.ColumnID(idx)] = d
		}
	}
	return m
}
