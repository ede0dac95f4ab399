// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

import (
	"context"
	"io"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/dict"
	"github.com/cockroachdb/tabletscan/internal/base"
	"github.com/cockroachdb/tabletscan/predicate"
	"github.com/cockroachdb/tabletscan/tablet"
)

// ChunkIterator produces chunks of a fixed schema.
type ChunkIterator interface {
	// Schema returns the schema of the produced chunks.
	Schema() *chunk.Schema
	// NextChunk replaces the rows of out, which must have been initialized
	// with Schema(), with the next rows. Returns io.EOF, leaving out empty, once all rows
	// have been returned.
	NextChunk(ctx context.Context, out *chunk.Chunk) error
	// InitEncodedSchema makes the iterator return the given varchar columns
	// as global dictionary codes.
	InitEncodedSchema(dicts dict.ColumnIDToDictMap) error
	Close() error
}

// TabletReader reads the rows of a tablet visible at a version. Rows are
// returned in key order, merged and aggregated according to the tablet's keys
// type, unless aggregation is skipped or the tablet has primary keys.
//
// A TabletReader is used by a single goroutine: Prepare, then Open, then
// NextChunk until io.EOF, then Close.
type TabletReader struct {
	tablet  *tablet.Tablet
	version tablet.Version
	schema  *chunk.Schema
	opts    *ReaderOptions
	params  ReaderParams

	rowsets  []tablet.Rowset
	prepared bool
	opened   bool
	closed   bool

	// readSchema holds every column a rowset iterator decodes: the output
	// columns, all key columns and the columns of pushdown and delete
	// predicates, in column id order.
	readSchema *chunk.Schema
	outMap     []int
	keyIdx     []int
	// phase1 holds the read columns needed to filter rows; phase2 the rest.
	phase1, phase2 []int
	pushdown       []predicate.ColumnPredicate
	ranges         keyRanges
	chunkSize      int

	iters []*rowsetIter
	cur   int
	merge *mergingIter

	encoded []encodedColumn

	stats ReaderStats
}

// encodedColumn is an output column returned as dictionary codes. Rows are
// staged as strings and encoded once a chunk is complete.
type encodedColumn struct {
	idx     int
	dict    *dict.GlobalDictMap
	staging *chunk.BinaryColumn
	codes   *chunk.DictCodeColumn
}

var _ ChunkIterator = (*TabletReader)(nil)

// NewTabletReader returns a reader of the given columns of t as of version.
func NewTabletReader(
	t *tablet.Tablet, version tablet.Version, schema *chunk.Schema, opts *ReaderOptions,
) *TabletReader {
	return &TabletReader{
		tablet:  t,
		version: version,
		schema:  schema,
		opts:    opts.EnsureDefaults(),
	}
}

// Schema implements ChunkIterator.
func (r *TabletReader) Schema() *chunk.Schema { return r.schema }

// Stats returns a copy of the reader's statistics.
func (r *TabletReader) Stats() ReaderStats { return r.stats }

// MutableStats returns the reader's statistics. Consumers may reset the
// counters they drain.
func (r *TabletReader) MutableStats() *ReaderStats { return &r.stats }

// Prepare captures the rowsets visible at the reader's version. It returns an
// error wrapping tablet.ErrVersionNotFound if the version is not readable.
func (r *TabletReader) Prepare() error {
	if r.prepared {
		return nil
	}
	rowsets, err := r.tablet.CaptureRowsets(r.version)
	if err != nil {
		return err
	}
	r.rowsets = rowsets
	r.prepared = true
	return nil
}

// InitEncodedSchema implements ChunkIterator. Columns not in the reader's
// schema are ignored.
func (r *TabletReader) InitEncodedSchema(dicts dict.ColumnIDToDictMap) error {
	if r.opened {
		return errors.AssertionFailedf("InitEncodedSchema after Open")
	}
	r.encoded = r.encoded[:0]
	for id, d := range dicts {
		idx := r.schema.FieldIndexByID(id)
		if idx < 0 {
			continue
		}
		if f := r.schema.Field(idx); f.Type != chunk.TypeVarchar {
			return errors.Newf("column %s of type %s cannot be dictionary encoded", f.Name, f.Type)
		}
		r.encoded = append(r.encoded, encodedColumn{
			idx:   idx,
			dict:  d,
			codes: &chunk.DictCodeColumn{Dict: d},
		})
	}
	slices.SortFunc(r.encoded, func(a, b encodedColumn) int { return a.idx - b.idx })
	return nil
}

// Open validates params and positions the reader at the first row.
func (r *TabletReader) Open(ctx context.Context, params ReaderParams) error {
	if !r.prepared {
		return errors.AssertionFailedf("TabletReader.Open before Prepare")
	}
	if r.opened {
		return errors.AssertionFailedf("TabletReader already open")
	}
	if err := params.validate(); err != nil {
		return err
	}
	r.params = params
	r.iters, r.merge, r.cur = nil, nil, 0
	r.chunkSize = params.ChunkSize
	if r.chunkSize <= 0 {
		r.chunkSize = r.opts.ChunkSize
	}
	ts := r.tablet.Schema()
	for _, f := range r.schema.Fields() {
		if int(f.ID) < 0 || int(f.ID) >= ts.NumColumns() {
			return errors.Newf("column %s (id %d) does not exist in tablet %s", f.Name, f.ID, r.tablet)
		}
		if c := ts.Column(f.ID); c.Name != f.Name || c.Type != f.Type {
			return errors.Newf("column %d is %s:%s in tablet %s, not %s:%s",
				f.ID, c.Name, c.Type, r.tablet, f.Name, f.Type)
		}
	}

	merge := !params.SkipAggregation && ts.KeysType() != tablet.PrimaryKeys
	aggregate := merge && ts.KeysType() != tablet.DupKeys
	for _, p := range params.Predicates {
		id := p.ColumnID()
		if int(id) < 0 || int(id) >= ts.NumColumns() {
			return errors.Newf("predicate %s on unknown column %d", p, id)
		}
		if aggregate && !ts.Column(id).IsKey {
			return errors.Newf("predicate %s on aggregated column cannot be pushed down", p)
		}
	}
	r.pushdown = params.Predicates
	r.ranges = makeKeyRanges(&r.params)

	// Delete rowsets hide matching rows of older rowsets.
	type deleteGroup struct {
		start tablet.Version
		conds []predicate.ColumnPredicate
	}
	var deletes []deleteGroup
	parser := predicate.NewParser(ts)
	filterCols := make(map[tablet.ColumnID]bool)
	for _, p := range r.pushdown {
		filterCols[p.ColumnID()] = true
	}
	for _, o := range r.rowsets {
		rs, ok := o.(*Rowset)
		if !ok {
			return errors.AssertionFailedf("tablet %s holds a foreign rowset %T", r.tablet, o)
		}
		if len(rs.deletePredicates) == 0 {
			continue
		}
		g := deleteGroup{start: rs.versions.Start}
		for _, d := range rs.deletePredicates {
			cond, err := parser.Parse(d)
			if err != nil {
				return errors.Wrapf(err, "delete predicate of %s", rs)
			}
			g.conds = append(g.conds, cond)
			filterCols[cond.ColumnID()] = true
		}
		deletes = append(deletes, g)
	}

	readCols := make(map[tablet.ColumnID]bool)
	for i := 0; i < ts.NumKeyColumns(); i++ {
		readCols[tablet.ColumnID(i)] = true
	}
	for _, f := range r.schema.Fields() {
		readCols[f.ID] = true
	}
	for id := range filterCols {
		readCols[id] = true
	}
	readIDs := make([]tablet.ColumnID, 0, len(readCols))
	for id := range readCols {
		readIDs = append(readIDs, id)
	}
	slices.Sort(readIDs)
	var err error
	if r.readSchema, err = ts.ChunkSchema(readIDs); err != nil {
		return err
	}
	r.outMap = r.outMap[:0]
	for _, f := range r.schema.Fields() {
		r.outMap = append(r.outMap, r.readIndex(f.ID))
	}
	r.keyIdx = r.keyIdx[:0]
	for i := 0; i < ts.NumKeyColumns(); i++ {
		r.keyIdx = append(r.keyIdx, r.readIndex(tablet.ColumnID(i)))
	}
	methods := make([]tablet.AggregationMethod, len(readIDs))
	r.phase1, r.phase2 = r.phase1[:0], r.phase2[:0]
	for i, id := range readIDs {
		c := ts.Column(id)
		methods[i] = c.Aggregation
		if filterCols[id] || (c.IsKey && !r.ranges.empty()) {
			r.phase1 = append(r.phase1, i)
		} else {
			r.phase2 = append(r.phase2, i)
		}
	}

	for seq, o := range r.rowsets {
		rs := o.(*Rowset)
		if len(rs.deletePredicates) > 0 {
			continue
		}
		var groups [][]predicate.ColumnPredicate
		for _, g := range deletes {
			if g.start > rs.versions.End {
				groups = append(groups, g.conds)
			}
		}
		it := newRowsetIter(r, rs, seq, groups)
		it.init()
		r.iters = append(r.iters, it)
	}
	if merge {
		if r.merge, err = newMergingIter(ctx, r.iters, r.keyIdx, methods, aggregate); err != nil {
			return err
		}
	}
	r.opened = true
	return nil
}

func (r *TabletReader) readIndex(id tablet.ColumnID) int {
	return r.readSchema.FieldIndexByID(id)
}

// NextChunk implements ChunkIterator.
func (r *TabletReader) NextChunk(ctx context.Context, out *chunk.Chunk) error {
	if !r.opened || r.closed {
		return errors.AssertionFailedf("TabletReader.NextChunk on a reader that is not open")
	}
	if out.NumColumns() != r.schema.NumFields() {
		return errors.AssertionFailedf("chunk has %d columns, reader schema has %d",
			out.NumColumns(), r.schema.NumFields())
	}
	out.Reset()
	r.stageEncoded(out)
	var err error
	if r.merge != nil {
		err = r.fillMerged(ctx, out)
	} else {
		err = r.fillConcatenated(ctx, out)
	}
	if encErr := r.encode(out); err == nil {
		err = encErr
	}
	if err != nil {
		return err
	}
	n := out.NumRows()
	if n == 0 {
		return io.EOF
	}
	r.stats.RowsRead += int64(n)
	return nil
}

func (r *TabletReader) fillMerged(ctx context.Context, out *chunk.Chunk) error {
	for out.NumRows() < r.chunkSize {
		row, err := r.merge.next(ctx)
		if err != nil || row == nil {
			return err
		}
		start := base.MakeStopwatch()
		for i, ri := range r.outMap {
			out.Column(i).AppendDatum(row[ri])
		}
		r.stats.ChunkCopyNs += start.ElapsedNanos()
	}
	return nil
}

func (r *TabletReader) fillConcatenated(ctx context.Context, out *chunk.Chunk) error {
	for out.NumRows() < r.chunkSize && r.cur < len(r.iters) {
		it := r.iters[r.cur]
		if !it.valid() {
			if err := it.nextBatch(ctx); err != nil {
				return err
			}
			if !it.valid() {
				r.cur++
				continue
			}
		}
		start := base.MakeStopwatch()
		take := min(r.chunkSize-out.NumRows(), it.batch.NumRows()-it.pos)
		for i, ri := range r.outMap {
			src, dst := it.batch.Column(ri), out.Column(i)
			for j := it.pos; j < it.pos+take; j++ {
				dst.AppendFrom(src, j)
			}
		}
		it.pos += take
		r.stats.ChunkCopyNs += start.ElapsedNanos()
	}
	return nil
}

// stageEncoded swaps the staging columns into out in place of the encoded
// columns.
func (r *TabletReader) stageEncoded(out *chunk.Chunk) {
	for i := range r.encoded {
		e := &r.encoded[i]
		if e.staging == nil {
			if bc, ok := out.Column(e.idx).(*chunk.BinaryColumn); ok {
				e.staging = bc
			} else {
				e.staging = r.opts.ColumnPool.Get()
			}
		}
		e.staging.Reset()
		out.SetColumn(e.idx, e.staging)
	}
}

// encode replaces the staged columns of out with their dictionary codes.
func (r *TabletReader) encode(out *chunk.Chunk) error {
	if len(r.encoded) == 0 {
		return nil
	}
	start := base.MakeStopwatch()
	defer func() { r.stats.DecodeDictNs += start.ElapsedNanos() }()
	var err error
	for i := range r.encoded {
		e := &r.encoded[i]
		e.codes.Reset()
		out.SetColumn(e.idx, e.codes)
		if err != nil {
			continue
		}
		for j := 0; j < e.staging.Len(); j++ {
			v := e.staging.Value(j)
			code, ok := e.dict.Encode(v)
			if !ok {
				err = errors.Newf("global dictionary of column %s has no entry for %q",
					r.schema.Field(e.idx).Name, v)
				break
			}
			e.codes.AppendCode(code)
		}
	}
	return err
}

// Close releases the reader's resources. It is idempotent.
func (r *TabletReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	for i := range r.encoded {
		if e := &r.encoded[i]; e.staging != nil {
			e.staging.Reset()
			r.opts.ColumnPool.Put(e.staging)
			e.staging = nil
		}
	}
	r.iters = nil
	r.merge = nil
	r.rowsets = nil
	return nil
}
