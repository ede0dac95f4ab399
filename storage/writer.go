// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

import (
	"slices"

	"github.com/axiomhq/hyperloglog"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/internal/base"
	"github.com/cockroachdb/tabletscan/internal/bloom"
	"github.com/cockroachdb/tabletscan/internal/compression"
	"github.com/cockroachdb/tabletscan/predicate"
	"github.com/cockroachdb/tabletscan/tablet"
	"github.com/google/uuid"
)

// WriterOptions configure a rowset Writer.
type WriterOptions struct {
	// PageRows is the number of rows per page.
	PageRows int
	// Compression is the page codec.
	Compression compression.Setting
	// BloomBitsPerKey sizes the page bloom filters built for key and varchar
	// columns. Zero uses the default; a negative value disables them.
	BloomBitsPerKey int
	// BitmapIndexMaxNDV is the largest estimated number of distinct values for
	// which a varchar column gets a bitmap index. Zero uses the default; a
	// negative value disables bitmap indexes.
	BitmapIndexMaxNDV int
	Logger            base.Logger
}

// EnsureDefaults fills in zero-valued fields with defaults.
func (o *WriterOptions) EnsureDefaults() *WriterOptions {
	if o == nil {
		o = &WriterOptions{}
	}
	if o.PageRows <= 0 {
		o.PageRows = 1024
	}
	if o.Compression == (compression.Setting{}) {
		o.Compression = compression.Snappy
	}
	if o.BloomBitsPerKey == 0 {
		o.BloomBitsPerKey = 10
	}
	if o.BitmapIndexMaxNDV == 0 {
		o.BitmapIndexMaxNDV = 64
	}
	if o.Logger == nil {
		o.Logger = base.DefaultLogger{}
	}
	return o
}

// Writer builds a Rowset. Rows may be added in any order; Finish sorts them
// by key, keeping the insertion order of rows with equal keys.
type Writer struct {
	schema   *tablet.Schema
	versions tablet.VersionRange
	opts     *WriterOptions

	rows       []chunk.Tuple
	deletes    []predicate.Descriptor
	finished   bool
	compressor compression.Compressor
}

// NewWriter returns a writer for a rowset of the given schema and versions.
func NewWriter(schema *tablet.Schema, versions tablet.VersionRange, opts *WriterOptions) *Writer {
	opts = opts.EnsureDefaults()
	return &Writer{
		schema:   schema,
		versions: versions,
		opts:     opts,
	}
}

// Add appends a row holding one datum per schema column.
func (w *Writer) Add(row ...chunk.Datum) error {
	if len(row) != w.schema.NumColumns() {
		return errors.Newf("row has %d values, schema has %d columns", len(row), w.schema.NumColumns())
	}
	for i, d := range row {
		want := w.schema.Column(tablet.ColumnID(i)).Type
		if d.Type() != want {
			return errors.Newf("column %s: value %s is not %s",
				w.schema.Column(tablet.ColumnID(i)).Name, d, want)
		}
	}
	w.rows = append(w.rows, slices.Clone(chunk.Tuple(row)))
	return nil
}

// AddDeletePredicate records a delete condition. Rows of rowsets at lower
// versions matching every condition of a delete rowset are hidden from reads
// at or after its version. Conditions on value columns are only permitted for
// duplicate key tablets.
func (w *Writer) AddDeletePredicate(d predicate.Descriptor) error {
	p, err := predicate.NewParser(w.schema).Parse(d)
	if err != nil {
		return err
	}
	if c := w.schema.Column(p.ColumnID()); !c.IsKey && w.schema.KeysType() != tablet.DupKeys {
		return errors.Newf("delete condition on value column %s of a %s tablet",
			c.Name, w.schema.KeysType())
	}
	w.deletes = append(w.deletes, d)
	return nil
}

func (w *Writer) compareKeys(a, b chunk.Tuple) int {
	return a[:w.schema.NumKeyColumns()].Compare(b[:w.schema.NumKeyColumns()])
}

// Finish builds the rowset.
func (w *Writer) Finish() (*Rowset, error) {
	if w.finished {
		return nil, errors.AssertionFailedf("rowset writer already finished")
	}
	w.finished = true
	if len(w.rows) > 0 && len(w.deletes) > 0 {
		return nil, errors.New("a rowset holds either rows or delete predicates")
	}
	w.compressor = compression.GetCompressor(w.opts.Compression)
	defer w.compressor.Close()

	slices.SortStableFunc(w.rows, w.compareKeys)

	r := &Rowset{
		id:               uuid.New(),
		versions:         w.versions,
		schema:           w.schema,
		numRows:          len(w.rows),
		columns:          make([]columnData, w.schema.NumColumns()),
		deletePredicates: w.deletes,
	}
	nKeys := w.schema.NumKeyColumns()
	for start := 0; start < len(w.rows); start += w.opts.PageRows {
		end := min(start+w.opts.PageRows, len(w.rows))
		r.pageStart = append(r.pageStart, start)
		r.pageRows = append(r.pageRows, end-start)
		r.pageFirstKey = append(r.pageFirstKey, slices.Clone(w.rows[start][:nKeys]))
		r.pageLastKey = append(r.pageLastKey, slices.Clone(w.rows[end-1][:nKeys]))
	}

	var buf []byte
	for i := range r.columns {
		col := w.schema.Column(tablet.ColumnID(i))
		cd := &r.columns[i]
		sketch := hyperloglog.New()
		for pageIdx, start := range r.pageStart {
			p := page{}
			buf = buf[:0]
			var bw *bloom.Writer
			if w.opts.BloomBitsPerKey > 0 && (col.IsKey || col.Type == chunk.TypeVarchar) {
				bw = bloom.NewWriter(uint32(w.opts.BloomBitsPerKey))
			}
			var key []byte
			for _, row := range w.rows[start : start+r.pageRows[pageIdx]] {
				d := row[i]
				buf = appendEncodedDatum(buf, col.Type, d)
				p.zone.update(d)
				cd.zone.update(d)
				key = bloomKey(key, col.Type, d)
				sketch.Insert(key)
				if bw != nil {
					bw.AddKey(key)
				}
			}
			if bw != nil {
				p.bloom = bw.Finish()
			}
			var setting compression.Setting
			p.data, setting = w.compressor.Compress(nil, buf)
			p.algo = setting.Algorithm
			p.rawLen = len(buf)
			p.checksum = xxhash.Sum64(p.data)
			cd.pages = append(cd.pages, p)
		}
		cd.ndv = sketch.Estimate()
		if col.Type == chunk.TypeVarchar && w.opts.BitmapIndexMaxNDV > 0 &&
			len(w.rows) > 0 && cd.ndv <= uint64(w.opts.BitmapIndexMaxNDV) {
			idx := &bitmapIndex{rows: make(map[string]bitset)}
			for ord, row := range w.rows {
				v := row[i].Bytes()
				b, ok := idx.rows[v]
				if !ok {
					b = newBitset(len(w.rows))
					idx.rows[v] = b
				}
				b.set(ord)
			}
			cd.bitmap = idx
		}
	}
	w.rows = nil
	return r, nil
}
