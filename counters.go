// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tabletscan

import "github.com/cockroachdb/tabletscan/profile"

// counterState tracks whether a scanner's reader statistics were added to
// the profile.
type counterState uint8

const (
	countersPending counterState = iota
	countersFlushed
)

// updateRealtimeCounters moves the reader's compressed bytes and raw rows
// into the profile while the scan runs. The reader fields are zeroed so the
// final flush adds only what remains.
func (s *TabletScanner) updateRealtimeCounters() {
	st := s.reader.MutableStats()
	c := &s.parent.counters
	c.compressedBytesRead.Add(st.CompressedBytesRead)
	s.compressedBytesRead += st.CompressedBytesRead
	st.CompressedBytesRead = 0

	c.rawRowsRead.Add(st.RawRowsRead)
	s.rawRowsRead += st.RawRowsRead
	st.RawRowsRead = 0
}

// FinalizeCounters adds the reader's statistics to the parent profile and the
// process metrics. Only the first call has an effect.
func (s *TabletScanner) FinalizeCounters() {
	if s.counters == countersFlushed {
		return
	}
	if s.reader == nil {
		return
	}
	s.counters = countersFlushed
	st := s.reader.Stats()
	c := &s.parent.counters

	c.createSegmentIterTime.Add(st.CreateSegmentIterNs)
	c.rowsRead.Add(s.numRowsRead)
	c.ioTime.Add(st.IONs)

	c.compressedBytesRead.Add(st.CompressedBytesRead)
	s.compressedBytesRead += st.CompressedBytesRead
	c.decompressTime.Add(st.DecompressNs)
	c.uncompressedBytesRead.Add(st.UncompressedBytesRead)
	c.bytesRead.Add(st.BytesRead)

	c.blockLoadTime.Add(st.BlockLoadNs)
	c.blocksLoaded.Add(st.BlocksLoaded)
	c.blockFetchTime.Add(st.BlockFetchNs)
	c.blockSeekTime.Add(st.BlockSeekNs)
	c.blockSeekCount.Add(st.BlockSeekCount)

	c.rawRowsRead.Add(st.RawRowsRead)
	s.rawRowsRead += st.RawRowsRead
	c.chunkCopyTime.Add(st.ChunkCopyNs)
	c.segmentInitTime.Add(st.SegmentInitNs)

	c.predFilterTime.Add(st.VecPredFilterNs)
	c.predFilterRows.Add(st.RowsVecPredFiltered)
	c.delVecFilterRows.Add(st.RowsDelVecFiltered)
	c.segZoneMapFilterRows.Add(st.SegmentStatsFilteredRows)
	c.zoneMapFilterRows.Add(st.RowsStatsFiltered)
	c.bloomFilterRows.Add(st.RowsBloomFilterFiltered)
	c.shortKeyFilterRows.Add(st.RowsKeyRangeFiltered)
	c.indexLoadTime.Add(st.IndexLoadNs)

	c.totalPages.Add(st.TotalPagesNum)
	c.cachedPages.Add(st.CachedPagesNum)
	c.bitmapFilterRows.Add(st.RowsBitmapIndexFiltered)
	c.bitmapFilterTime.Add(st.BitmapIndexFilterNs)
	c.pushdownPredicates.Set(int64(len(s.readerParams.Predicates)))

	if m := s.opts.Metrics; m != nil {
		m.ScanBytes.Add(float64(s.compressedBytesRead))
		m.ScanRows.Add(float64(s.rawRowsRead))
	}

	sp := s.parent.ScanProfile
	if st.DecodeDictNs > 0 {
		sp.AddTimer("DictDecode").Add(st.DecodeDictNs)
	}
	if st.LateMaterializeNs > 0 {
		sp.AddTimer("LateMaterialize").Add(st.LateMaterializeNs)
	}
	if st.DelFilterNs > 0 {
		sp.AddTimer("DeleteFilter").Add(st.DelFilterNs)
		sp.AddCounter("DeleteFilterRows", profile.UnitCount).Add(st.RowsDelFiltered)
	}
}
