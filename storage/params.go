// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/internal/base"
	"github.com/cockroachdb/tabletscan/predicate"
)

// ReaderParams configure a TabletReader scan.
type ReaderParams struct {
	// SkipAggregation returns rows of all rowsets as stored, without merging
	// rows with equal keys.
	SkipAggregation bool
	// NeedAggFinalize is set when no operator above the scan completes the
	// aggregation. The reader always emits fully aggregated rows.
	NeedAggFinalize bool
	// UsePageCache reads and populates the page cache.
	UsePageCache bool
	// ChunkSize bounds the rows of every returned chunk. Zero uses the reader
	// option.
	ChunkSize int

	// Predicates are evaluated against zonemaps, bloom filters and bitmap
	// indexes and then on decoded pages. They must not reference value
	// columns that are aggregated on read.
	Predicates []predicate.ColumnPredicate

	// Range is "ge" or "gt" and applies to every start key. EndRange is "le"
	// or "lt" and applies to every end key. Empty values mean "ge" and "le".
	Range    string
	EndRange string
	// StartKeys and EndKeys are parallel; each pair is one key range over a
	// prefix of the key columns. A nil start or end is unbounded. Rows in any
	// of the ranges are returned. No ranges means the whole tablet.
	StartKeys []chunk.Tuple
	EndKeys   []chunk.Tuple
}

func (p *ReaderParams) validate() error {
	switch p.Range {
	case "":
		p.Range = "ge"
	case "ge", "gt":
	default:
		return errors.Newf("invalid range %q", p.Range)
	}
	switch p.EndRange {
	case "":
		p.EndRange = "le"
	case "le", "lt":
	default:
		return errors.Newf("invalid end range %q", p.EndRange)
	}
	if len(p.StartKeys) != len(p.EndKeys) {
		return errors.Newf("%d start keys but %d end keys", len(p.StartKeys), len(p.EndKeys))
	}
	return nil
}

// ReaderOptions hold the resources a TabletReader shares with other readers.
type ReaderOptions struct {
	// ChunkSize is the default chunk capacity.
	ChunkSize int
	// PageCache, if set, caches decompressed pages.
	PageCache *PageCache
	// ColumnPool supplies varchar columns.
	ColumnPool *chunk.BinaryColumnPool
	// ReadLimiter, if set, paces compressed bytes read from rowsets.
	ReadLimiter *ReadLimiter
	Logger      base.Logger
}

// EnsureDefaults fills in zero-valued fields with defaults.
func (o *ReaderOptions) EnsureDefaults() *ReaderOptions {
	if o == nil {
		o = &ReaderOptions{}
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 4096
	}
	if o.ColumnPool == nil {
		o.ColumnPool = &chunk.BinaryColumnPool{DefaultCapacity: o.ChunkSize}
	}
	if o.Logger == nil {
		o.Logger = base.DefaultLogger{}
	}
	return o
}

// keyRange is one resolved key range.
type keyRange struct {
	start, end chunk.Tuple
}

type keyRanges struct {
	ranges      []keyRange
	startStrict bool
	endStrict   bool
}

func makeKeyRanges(p *ReaderParams) keyRanges {
	kr := keyRanges{startStrict: p.Range == "gt", endStrict: p.EndRange == "lt"}
	for i := range p.StartKeys {
		kr.ranges = append(kr.ranges, keyRange{start: p.StartKeys[i], end: p.EndKeys[i]})
	}
	return kr
}

func (kr *keyRanges) empty() bool { return len(kr.ranges) == 0 }

func (kr *keyRanges) aboveStart(r keyRange, key chunk.Tuple) bool {
	if r.start == nil {
		return true
	}
	c := key.Compare(r.start)
	return c > 0 || (c == 0 && !kr.startStrict)
}

func (kr *keyRanges) belowEnd(r keyRange, key chunk.Tuple) bool {
	if r.end == nil {
		return true
	}
	c := key.Compare(r.end)
	return c < 0 || (c == 0 && !kr.endStrict)
}

// contains returns true if key lies in any range.
func (kr *keyRanges) contains(key chunk.Tuple) bool {
	if kr.empty() {
		return true
	}
	for _, r := range kr.ranges {
		if kr.aboveStart(r, key) && kr.belowEnd(r, key) {
			return true
		}
	}
	return false
}

// overlaps returns true if some key in [first, last] may lie in a range.
func (kr *keyRanges) overlaps(first, last chunk.Tuple) bool {
	if kr.empty() {
		return true
	}
	for _, r := range kr.ranges {
		if kr.aboveStart(r, last) && kr.belowEnd(r, first) {
			return true
		}
	}
	return false
}
