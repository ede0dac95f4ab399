// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tabletscan

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/internal/invariants"
	"github.com/cockroachdb/tabletscan/tablet"
)

// resolveScannerColumns maps the materialized slots to tablet column ids, in
// ascending order.
func resolveScannerColumns(schema *tablet.Schema, slots []SlotDescriptor) ([]tablet.ColumnID, error) {
	ids := make([]tablet.ColumnID, 0, len(slots))
	for _, s := range slots {
		idx := schema.FieldIndex(s.Name)
		if idx < 0 {
			return nil, errors.Mark(errors.Newf("invalid field name: %s", s.Name), ErrSchema)
		}
		ids = append(ids, tablet.ColumnID(idx))
	}
	if len(ids) == 0 {
		return nil, errors.Mark(
			errors.New("failed to build storage scanner, no materialized slot"), ErrSchema)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// resolveReaderColumns returns the columns the reader must produce. Unless
// aggregation is skipped, rows are merged by key so every key column is read.
func resolveReaderColumns(
	schema *tablet.Schema, scannerColumns []tablet.ColumnID, skipAggregation bool,
) []tablet.ColumnID {
	if skipAggregation {
		return scannerColumns
	}
	n := schema.NumKeyColumns()
	ids := make([]tablet.ColumnID, 0, n+len(scannerColumns))
	for i := 0; i < n; i++ {
		ids = append(ids, tablet.ColumnID(i))
	}
	for _, id := range scannerColumns {
		if !schema.Column(id).IsKey {
			ids = append(ids, id)
		}
	}
	if invariants.Enabled {
		if !slices.IsSorted(ids) {
			panic(errors.AssertionFailedf("reader columns %v are not sorted", ids))
		}
		for i, id := range ids {
			if schema.Column(id).IsKey && i >= n {
				panic(errors.AssertionFailedf("key column %d follows a value column in %v", id, ids))
			}
		}
	}
	return ids
}
