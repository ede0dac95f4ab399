// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/internal/base"
	"github.com/cockroachdb/tabletscan/internal/compression"
	"github.com/cockroachdb/tabletscan/predicate"
	"github.com/cockroachdb/tabletscan/tablet"
)

// rowsetIter produces the rows of one rowset that survive filtering, one page
// at a time. Rows are filtered in this order:
//
//  1. rowset zonemaps
//  2. per page: short key index, zonemaps, bitmap indexes, bloom filters
//  3. per row: delete vector, bitmap index, key ranges, pushdown predicates
//     and delete predicates of later rowsets
//
// Columns needed by the row filters are decoded first; the remaining columns
// are only decoded for pages with surviving rows.
type rowsetIter struct {
	rd *TabletReader
	rs *Rowset
	// seq orders rowsets by version; rows of a higher seq are newer.
	seq int
	// deletes holds the condition groups of later delete rowsets. A row is
	// deleted if it matches every condition of some group.
	deletes [][]predicate.ColumnPredicate

	deleted    bitset
	bitmapRows bitset

	pages    []int
	next     int
	lastPage int

	// batch holds the surviving rows of the current page in the reader's read
	// schema. pos is the next row to return.
	batch *chunk.Chunk
	pos   int

	sel    []uint8
	delSel []uint8
	keyBuf chunk.Tuple
	bloomK []byte
}

func newRowsetIter(
	rd *TabletReader, rs *Rowset, seq int, deletes [][]predicate.ColumnPredicate,
) *rowsetIter {
	start := base.MakeStopwatch()
	it := &rowsetIter{
		rd:       rd,
		rs:       rs,
		seq:      seq,
		deletes:  deletes,
		lastPage: -1,
		batch:    chunk.New(rd.readSchema, 0, nil),
	}
	rd.stats.CreateSegmentIterNs += start.ElapsedNanos()
	return it
}

// init applies the rowset and page level filters and computes the pages to
// read.
func (it *rowsetIter) init() {
	start := base.MakeStopwatch()
	st := &it.rd.stats
	defer func() { st.SegmentInitNs += start.ElapsedNanos() }()

	rs := it.rs
	if rs.numRows == 0 {
		return
	}
	for _, p := range it.rd.pushdown {
		z := rs.columns[p.ColumnID()].zone
		if !p.ZoneMapMayMatch(z.min, z.max) {
			st.SegmentStatsFilteredRows += int64(rs.numRows)
			return
		}
	}

	indexStart := base.MakeStopwatch()
	it.deleted = rs.deletedRows(it.rd.version)
	it.bitmapRows = it.bitmapFilter()
	for p := range rs.pageRows {
		if it.keepPage(p) {
			it.pages = append(it.pages, p)
		}
	}
	st.IndexLoadNs += indexStart.ElapsedNanos()
}

// bitmapFilter returns the rows matching every equality predicate on a column
// with a bitmap index, or nil if no predicate can use one.
func (it *rowsetIter) bitmapFilter() bitset {
	start := base.MakeStopwatch()
	var rows bitset
	for _, p := range it.rd.pushdown {
		idx := it.rs.columns[p.ColumnID()].bitmap
		vals := p.EqualityValues()
		if idx == nil || vals == nil {
			continue
		}
		match := newBitset(it.rs.numRows)
		for _, v := range vals {
			if b, ok := idx.rows[v.Bytes()]; ok {
				match.or(b)
			}
		}
		if rows == nil {
			rows = match
		} else {
			rows.and(match)
		}
	}
	if rows != nil {
		it.rd.stats.BitmapIndexFilterNs += start.ElapsedNanos()
	}
	return rows
}

func (it *rowsetIter) keepPage(p int) bool {
	rs, st := it.rs, &it.rd.stats
	n := int64(rs.pageRows[p])
	if !it.rd.ranges.overlaps(rs.pageFirstKey[p], rs.pageLastKey[p]) {
		st.RowsKeyRangeFiltered += n
		return false
	}
	for _, pred := range it.rd.pushdown {
		z := rs.columns[pred.ColumnID()].pages[p].zone
		if !pred.ZoneMapMayMatch(z.min, z.max) {
			st.RowsStatsFiltered += n
			return false
		}
	}
	if it.bitmapRows != nil {
		lo := rs.pageStart[p]
		if !it.bitmapRows.anyInRange(lo, lo+rs.pageRows[p]) {
			st.RowsBitmapIndexFiltered += n
			return false
		}
	}
	for _, pred := range it.rd.pushdown {
		vals := pred.EqualityValues()
		pg := &rs.columns[pred.ColumnID()].pages[p]
		if vals == nil || pg.bloom == nil {
			continue
		}
		t := rs.schema.Column(pred.ColumnID()).Type
		mayContain := false
		for _, v := range vals {
			it.bloomK = bloomKey(it.bloomK, t, v)
			if pg.bloom.MayContain(it.bloomK) {
				mayContain = true
				break
			}
		}
		if !mayContain {
			st.RowsBloomFilterFiltered += n
			return false
		}
	}
	return true
}

// valid returns true if the iterator is positioned at a row.
func (it *rowsetIter) valid() bool { return it.pos < it.batch.NumRows() }

// advance moves to the next row, loading pages as needed.
func (it *rowsetIter) advance(ctx context.Context) error {
	it.pos++
	if it.pos < it.batch.NumRows() {
		return nil
	}
	return it.nextBatch(ctx)
}

// nextBatch loads the next page with surviving rows. On return either the
// iterator is valid or the rowset is exhausted.
func (it *rowsetIter) nextBatch(ctx context.Context) error {
	st := &it.rd.stats
	it.batch.Reset()
	it.pos = 0
	for it.next < len(it.pages) {
		p := it.pages[it.next]
		it.next++
		if it.lastPage >= 0 && p != it.lastPage+1 {
			seekStart := base.MakeStopwatch()
			st.BlockSeekCount++
			st.BlockSeekNs += seekStart.ElapsedNanos()
		}
		it.lastPage = p
		ok, err := it.readPage(ctx, p)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return nil
}

// readPage decodes page p into the batch and filters it. Returns false if no
// rows survived.
func (it *rowsetIter) readPage(ctx context.Context, p int) (bool, error) {
	rd, st, b := it.rd, &it.rd.stats, it.batch
	b.Reset()
	n := it.rs.pageRows[p]
	first := it.rs.pageStart[p]
	for _, ri := range rd.phase1 {
		if err := it.loadColumn(ctx, ri, p); err != nil {
			return false, err
		}
	}
	st.RawRowsRead += int64(n)

	sel := it.sel[:0]
	for i := 0; i < n; i++ {
		sel = append(sel, 1)
	}
	it.sel = sel
	if it.deleted != nil {
		for i := range sel {
			if it.deleted.contains(first + i) {
				sel[i] = 0
				st.RowsDelVecFiltered++
			}
		}
	}
	if it.bitmapRows != nil {
		start := base.MakeStopwatch()
		for i := range sel {
			if sel[i] != 0 && !it.bitmapRows.contains(first+i) {
				sel[i] = 0
				st.RowsBitmapIndexFiltered++
			}
		}
		st.BitmapIndexFilterNs += start.ElapsedNanos()
	}
	if !rd.ranges.empty() {
		for i := range sel {
			if sel[i] == 0 {
				continue
			}
			it.keyBuf = it.keyBuf[:0]
			for _, ki := range rd.keyIdx {
				it.keyBuf = append(it.keyBuf, b.Column(ki).Datum(i))
			}
			if !rd.ranges.contains(it.keyBuf) {
				sel[i] = 0
				st.RowsKeyRangeFiltered++
			}
		}
	}
	if len(rd.pushdown) > 0 {
		start := base.MakeStopwatch()
		before := countSelected(sel)
		for _, pred := range rd.pushdown {
			pred.Evaluate(b.Column(rd.readIndex(pred.ColumnID())), sel)
		}
		st.RowsVecPredFiltered += int64(before - countSelected(sel))
		st.VecPredFilterNs += start.ElapsedNanos()
	}
	if len(it.deletes) > 0 {
		start := base.MakeStopwatch()
		for _, group := range it.deletes {
			it.delSel = append(it.delSel[:0], sel...)
			for _, cond := range group {
				cond.Evaluate(b.Column(rd.readIndex(cond.ColumnID())), it.delSel)
			}
			for i, s := range it.delSel {
				if s != 0 {
					sel[i] = 0
					st.RowsDelFiltered++
				}
			}
		}
		st.DelFilterNs += start.ElapsedNanos()
	}

	selected := countSelected(sel)
	if selected == 0 {
		b.Reset()
		return false, nil
	}
	if len(rd.phase2) > 0 {
		start := base.MakeStopwatch()
		for _, ri := range rd.phase2 {
			if err := it.loadColumn(ctx, ri, p); err != nil {
				return false, err
			}
		}
		if len(rd.phase1) > 0 {
			st.LateMaterializeNs += start.ElapsedNanos()
		}
	}
	if selected < n {
		b.Filter(sel)
	}
	return true, nil
}

func (it *rowsetIter) loadColumn(ctx context.Context, readIdx int, p int) error {
	id := it.rd.readSchema.Field(readIdx).ID
	raw, err := it.rd.loadPage(ctx, it.rs, id, p)
	if err != nil {
		return err
	}
	t := it.rs.schema.Column(id).Type
	if err := decodePage(t, raw, it.rs.pageRows[p], it.batch.Column(readIdx)); err != nil {
		return errors.Wrapf(err, "%s column %d page %d", it.rs, errors.Safe(id), errors.Safe(p))
	}
	it.rd.stats.BytesRead += int64(len(raw))
	return nil
}

// loadPage returns the decompressed page p of column col of rs.
func (rd *TabletReader) loadPage(
	ctx context.Context, rs *Rowset, col tablet.ColumnID, p int,
) ([]byte, error) {
	st := &rd.stats
	st.TotalPagesNum++
	fetchStart := base.MakeStopwatch()
	defer func() { st.BlockFetchNs += fetchStart.ElapsedNanos() }()

	cache := rd.opts.PageCache
	if !rd.params.UsePageCache {
		cache = nil
	}
	k := pageKey{rowset: rs.id, col: col, page: int32(p)}
	if cache != nil {
		if raw, ok := cache.get(k); ok {
			st.CachedPagesNum++
			return raw, nil
		}
	}

	loadStart := base.MakeStopwatch()
	pg, err := rs.pageBytes(col, p)
	if err != nil {
		return nil, err
	}
	if l := rd.opts.ReadLimiter; l != nil {
		if err := l.Wait(ctx, int64(len(pg.data))); err != nil {
			return nil, err
		}
	}
	st.IONs += loadStart.ElapsedNanos()
	st.CompressedBytesRead += int64(len(pg.data))

	decompressStart := base.MakeStopwatch()
	raw, err := compression.Decompress(pg.algo, pg.data)
	if err != nil {
		return nil, base.MarkCorruptionError(errors.Wrapf(err, "%s column %d page %d",
			rs, errors.Safe(col), errors.Safe(p)))
	}
	if len(raw) != pg.rawLen {
		return nil, base.CorruptionErrorf("tabletscan: %s column %d page %d: decompressed %d bytes, expected %d",
			rs, errors.Safe(col), errors.Safe(p), errors.Safe(len(raw)), errors.Safe(pg.rawLen))
	}
	st.DecompressNs += decompressStart.ElapsedNanos()
	st.UncompressedBytesRead += int64(len(raw))
	st.BlocksLoaded++
	st.BlockLoadNs += loadStart.ElapsedNanos()
	if cache != nil {
		cache.put(k, raw)
	}
	return raw, nil
}

func countSelected(sel []uint8) int {
	n := 0
	for _, s := range sel {
		if s != 0 {
			n++
		}
	}
	return n
}
