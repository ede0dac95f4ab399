// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tabletscan

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/predicate"
	"github.com/cockroachdb/tabletscan/tablet"
)

// KeyRange bounds the key columns of scanned rows. Begin and End are tuples
// over a prefix of the key columns.
type KeyRange struct {
	Begin, End     chunk.Tuple
	BeginInclusive bool
	EndInclusive   bool
}

// unboundedBelow returns true if the range begins at the negative infinity
// sentinel.
func (r KeyRange) unboundedBelow() bool {
	return len(r.Begin) == 1 && r.Begin[0].IsNegativeInfinity()
}

// splitPredicates parses descs into pool. Predicates the reader may evaluate
// before merging rows are returned; the rest are added to residual.
func splitPredicates(
	schema *tablet.Schema, descs []predicate.Descriptor, pool *predicate.Pool, residual *predicate.Set,
) ([]predicate.ColumnPredicate, error) {
	parser := predicate.NewParser(schema)
	var pushdown []predicate.ColumnPredicate
	for _, d := range descs {
		p, err := parser.Parse(d)
		if err != nil {
			return nil, errors.Mark(err, ErrSchema)
		}
		h := pool.Add(p)
		if parser.CanPushdown(p) {
			pushdown = append(pushdown, pool.Get(h))
		} else {
			residual.Add(h)
		}
	}
	return pushdown, nil
}

// keyRangeBounds converts ranges into reader start and end keys. A range
// beginning at negative infinity has a nil start key and still sets the
// inclusiveness, since its end key bounds the scan. The inclusiveness of the
// last range applies to every range.
func keyRangeBounds(ranges []KeyRange) (startKeys, endKeys []chunk.Tuple, rng, endRng string) {
	rng, endRng = "ge", "le"
	for _, r := range ranges {
		if r.BeginInclusive {
			rng = "ge"
		} else {
			rng = "gt"
		}
		if r.EndInclusive {
			endRng = "le"
		} else {
			endRng = "lt"
		}
		if r.unboundedBelow() {
			startKeys = append(startKeys, nil)
		} else {
			startKeys = append(startKeys, r.Begin)
		}
		endKeys = append(endKeys, r.End)
	}
	return startKeys, endKeys, rng, endRng
}
