// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

import (
	"time"

	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/redact"
)

// ReaderStats accumulates the work done by a TabletReader. Durations are in
// nanoseconds.
//
// CompressedBytesRead and RawRowsRead are drained by the consumer while the
// scan runs (it zeroes them after reading); every other field only grows.
type ReaderStats struct {
	// CreateSegmentIterNs is the time spent creating rowset iterators.
	CreateSegmentIterNs int64
	// SegmentInitNs is the time spent opening rowset iterators, including
	// rowset level filtering.
	SegmentInitNs int64

	IONs                  int64
	CompressedBytesRead   int64
	UncompressedBytesRead int64
	DecompressNs          int64
	// BytesRead is the size of the decoded column data produced.
	BytesRead int64

	BlockLoadNs    int64
	BlocksLoaded   int64
	BlockFetchNs   int64
	BlockSeekNs    int64
	BlockSeekCount int64

	// RawRowsRead counts rows decoded from pages, before predicate
	// evaluation.
	RawRowsRead int64
	// RowsRead counts rows returned by the reader.
	RowsRead    int64
	ChunkCopyNs int64

	VecPredFilterNs     int64
	RowsVecPredFiltered int64

	RowsDelVecFiltered       int64
	SegmentStatsFilteredRows int64
	RowsStatsFiltered        int64
	RowsBloomFilterFiltered  int64
	RowsKeyRangeFiltered     int64
	IndexLoadNs              int64

	TotalPagesNum  int64
	CachedPagesNum int64

	RowsBitmapIndexFiltered int64
	BitmapIndexFilterNs     int64

	DecodeDictNs      int64
	LateMaterializeNs int64
	DelFilterNs       int64
	RowsDelFiltered   int64
}

// Merge adds the counts of o.
func (s *ReaderStats) Merge(o ReaderStats) {
	s.CreateSegmentIterNs += o.CreateSegmentIterNs
	s.SegmentInitNs += o.SegmentInitNs
	s.IONs += o.IONs
	s.CompressedBytesRead += o.CompressedBytesRead
	s.UncompressedBytesRead += o.UncompressedBytesRead
	s.DecompressNs += o.DecompressNs
	s.BytesRead += o.BytesRead
	s.BlockLoadNs += o.BlockLoadNs
	s.BlocksLoaded += o.BlocksLoaded
	s.BlockFetchNs += o.BlockFetchNs
	s.BlockSeekNs += o.BlockSeekNs
	s.BlockSeekCount += o.BlockSeekCount
	s.RawRowsRead += o.RawRowsRead
	s.RowsRead += o.RowsRead
	s.ChunkCopyNs += o.ChunkCopyNs
	s.VecPredFilterNs += o.VecPredFilterNs
	s.RowsVecPredFiltered += o.RowsVecPredFiltered
	s.RowsDelVecFiltered += o.RowsDelVecFiltered
	s.SegmentStatsFilteredRows += o.SegmentStatsFilteredRows
	s.RowsStatsFiltered += o.RowsStatsFiltered
	s.RowsBloomFilterFiltered += o.RowsBloomFilterFiltered
	s.RowsKeyRangeFiltered += o.RowsKeyRangeFiltered
	s.IndexLoadNs += o.IndexLoadNs
	s.TotalPagesNum += o.TotalPagesNum
	s.CachedPagesNum += o.CachedPagesNum
	s.RowsBitmapIndexFiltered += o.RowsBitmapIndexFiltered
	s.BitmapIndexFilterNs += o.BitmapIndexFilterNs
	s.DecodeDictNs += o.DecodeDictNs
	s.LateMaterializeNs += o.LateMaterializeNs
	s.DelFilterNs += o.DelFilterNs
	s.RowsDelFiltered += o.RowsDelFiltered
}

// String implements fmt.Stringer.
func (s *ReaderStats) String() string {
	return redact.StringWithoutMarkers(s)
}

// SafeFormat implements redact.SafeFormatter.
func (s *ReaderStats) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("read %s rows (%s raw) from %s pages (%s cached), %s compressed / %s uncompressed in %s",
		crhumanize.Count(s.RowsRead, crhumanize.Compact),
		crhumanize.Count(s.RawRowsRead, crhumanize.Compact),
		crhumanize.Count(s.TotalPagesNum, crhumanize.Compact),
		crhumanize.Count(s.CachedPagesNum, crhumanize.Compact),
		crhumanize.Bytes(s.CompressedBytesRead, crhumanize.Compact, crhumanize.OmitI),
		crhumanize.Bytes(s.UncompressedBytesRead, crhumanize.Compact, crhumanize.OmitI),
		redact.Safe(time.Duration(s.IONs)))
	w.Printf("; filtered: zonemap %d+%d, bloom %d, short key %d, bitmap %d, pred %d, delvec %d, delete %d",
		redact.Safe(s.SegmentStatsFilteredRows), redact.Safe(s.RowsStatsFiltered),
		redact.Safe(s.RowsBloomFilterFiltered), redact.Safe(s.RowsKeyRangeFiltered),
		redact.Safe(s.RowsBitmapIndexFiltered), redact.Safe(s.RowsVecPredFiltered),
		redact.Safe(s.RowsDelVecFiltered), redact.Safe(s.RowsDelFiltered))
}
