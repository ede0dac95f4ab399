// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

import (
	"math/bits"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/internal/base"
	"github.com/cockroachdb/tabletscan/internal/bloom"
	"github.com/cockroachdb/tabletscan/internal/compression"
	"github.com/cockroachdb/tabletscan/predicate"
	"github.com/cockroachdb/tabletscan/tablet"
	"github.com/google/uuid"
)

// zoneMap records the smallest and largest value of a page or column.
type zoneMap struct {
	min, max chunk.Datum
}

func (z *zoneMap) update(d chunk.Datum) {
	if z.min.IsNull() || d.Compare(z.min) < 0 {
		z.min = d
	}
	if z.max.IsNull() || d.Compare(z.max) > 0 {
		z.max = d
	}
}

// page is one compressed column page. Pages of all columns of a rowset are
// aligned: page i of every column holds the same rows.
type page struct {
	data     []byte
	algo     compression.Algorithm
	rawLen   int
	checksum uint64
	zone     zoneMap
	bloom    bloom.Filter
}

// bitset is a fixed-size set of row ordinals.
type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) set(i int)           { b[i>>6] |= 1 << (uint(i) & 63) }
func (b bitset) contains(i int) bool { return b[i>>6]&(1<<(uint(i)&63)) != 0 }

func (b bitset) count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

func (b bitset) or(o bitset) {
	for i := range o {
		b[i] |= o[i]
	}
}

func (b bitset) and(o bitset) {
	for i := range b {
		b[i] &= o[i]
	}
}

// anyInRange returns true if some i in [lo, hi) is set.
func (b bitset) anyInRange(lo, hi int) bool {
	for i := lo; i < hi; i++ {
		if b.contains(i) {
			return true
		}
	}
	return false
}

// bitmapIndex maps each distinct value of a low-cardinality column to the
// rows holding it.
type bitmapIndex struct {
	rows map[string]bitset
}

type columnData struct {
	pages  []page
	zone   zoneMap
	ndv    uint64
	bitmap *bitmapIndex
}

// delVec marks rows of a primary key rowset that were superseded by a later
// load. The marks apply to reads at version or later.
type delVec struct {
	version tablet.Version
	rows    bitset
}

// Rowset is an immutable, sorted run of rows loaded at one version range.
// Primary key rowsets additionally carry delete vectors that later loads
// append to.
type Rowset struct {
	id       uuid.UUID
	versions tablet.VersionRange
	schema   *tablet.Schema
	numRows  int

	pageStart []int
	pageRows  []int
	// pageFirstKey and pageLastKey are the short key index: the key columns
	// of the first and last row of every page.
	pageFirstKey []chunk.Tuple
	pageLastKey  []chunk.Tuple

	columns          []columnData
	deletePredicates []predicate.Descriptor

	mu struct {
		sync.Mutex
		delVecs []delVec
	}
}

var _ tablet.Rowset = (*Rowset)(nil)

// ID returns the rowset's unique id.
func (r *Rowset) ID() uuid.UUID { return r.id }

// Versions implements tablet.Rowset.
func (r *Rowset) Versions() tablet.VersionRange { return r.versions }

// NumRows implements tablet.Rowset.
func (r *Rowset) NumRows() int64 { return int64(r.numRows) }

// NumPages returns the number of pages per column.
func (r *Rowset) NumPages() int { return len(r.pageRows) }

// DataSize returns the compressed size of all pages.
func (r *Rowset) DataSize() int64 {
	var n int64
	for i := range r.columns {
		for j := range r.columns[i].pages {
			n += int64(len(r.columns[i].pages[j].data))
		}
	}
	return n
}

// ColumnNDV returns the estimated number of distinct values of a column.
func (r *Rowset) ColumnNDV(id tablet.ColumnID) uint64 { return r.columns[id].ndv }

// HasBitmapIndex returns true if a bitmap index was built for the column.
func (r *Rowset) HasBitmapIndex(id tablet.ColumnID) bool { return r.columns[id].bitmap != nil }

// DeletePredicates returns the delete conditions carried by the rowset.
func (r *Rowset) DeletePredicates() []predicate.Descriptor { return r.deletePredicates }

// SafeFormat implements redact.SafeFormatter.
func (r *Rowset) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("rowset %s %s: %d rows, %d pages",
		redact.Safe(r.id.String()), redact.Safe(r.versions.String()),
		redact.Safe(r.numRows), redact.Safe(len(r.pageRows)))
	if len(r.deletePredicates) > 0 {
		w.Printf(", %d delete predicates", redact.Safe(len(r.deletePredicates)))
	}
}

// String implements fmt.Stringer.
func (r *Rowset) String() string { return redact.StringWithoutMarkers(r) }

func (r *Rowset) addDelVec(version tablet.Version, rows bitset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.delVecs = append(r.mu.delVecs, delVec{version: version, rows: rows})
}

// deletedRows returns the rows deleted as of version, or nil if none are.
func (r *Rowset) deletedRows(version tablet.Version) bitset {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out bitset
	for _, dv := range r.mu.delVecs {
		if dv.version > version {
			continue
		}
		if out == nil {
			out = newBitset(r.numRows)
		}
		out.or(dv.rows)
	}
	return out
}

// pageBytes returns the compressed page after verifying its checksum.
func (r *Rowset) pageBytes(col tablet.ColumnID, pageIdx int) (*page, error) {
	p := &r.columns[col].pages[pageIdx]
	if sum := xxhash.Sum64(p.data); sum != p.checksum {
		return nil, base.CorruptionErrorf("tabletscan: %s column %d page %d: checksum mismatch %x != %x",
			r, errors.Safe(col), errors.Safe(pageIdx), errors.Safe(sum), errors.Safe(p.checksum))
	}
	return p, nil
}

// readColumn decodes every page of a column. Used when committing primary key
// rowsets.
func (r *Rowset) readColumn(col tablet.ColumnID) (chunk.Column, error) {
	t := r.schema.Column(col).Type
	out := chunk.NewColumn(t, r.numRows)
	for i := range r.pageRows {
		p, err := r.pageBytes(col, i)
		if err != nil {
			return nil, err
		}
		raw, err := compression.Decompress(p.algo, p.data)
		if err != nil {
			return nil, base.MarkCorruptionError(err)
		}
		if err := decodePage(t, raw, r.pageRows[i], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
