// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package tabletscan implements the per-tablet scanner of a vectorized query
// engine. A TabletScanner reads one tablet at one version through a storage
// reader, narrows the rows it returns to the slots the plan materializes,
// filters them with predicates the reader could not evaluate and with the
// plan's conjuncts, and only ever returns non-empty chunks.
package tabletscan

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/dict"
	"github.com/cockroachdb/tabletscan/expr"
	"github.com/cockroachdb/tabletscan/internal/base"
	"github.com/cockroachdb/tabletscan/predicate"
	"github.com/cockroachdb/tabletscan/profile"
	"github.com/cockroachdb/tabletscan/storage"
	"github.com/cockroachdb/tabletscan/tablet"
)

// ScannerParams describe the scan of one tablet.
type ScannerParams struct {
	TabletID   tablet.ID
	SchemaHash tablet.SchemaHash
	Version    tablet.Version

	// KeyRanges restricts the rows read. No ranges reads the whole tablet.
	KeyRanges []KeyRange
	// Predicates are resolved against the tablet schema and evaluated by the
	// reader where possible.
	Predicates []predicate.Descriptor
	// Conjuncts are cloned into the scanner. When nil the parent node's
	// conjuncts are used.
	Conjuncts []*expr.Context

	SkipAggregation bool
	NeedAggFinalize bool
}

// TabletScanner produces the rows of one tablet at one version. It is not
// safe for concurrent use; a scan runs Init, Open, GetNextBatch until io.EOF
// and Close.
type TabletScanner struct {
	parent *ScanNode
	opts   *Options

	tablet  *tablet.Tablet
	version tablet.Version

	querySlots     []SlotDescriptor
	scannerColumns []tablet.ColumnID
	readerColumns  []tablet.ColumnID

	predPool     predicate.Pool
	residual     predicate.Set
	readerParams storage.ReaderParams
	dictMap      dict.ColumnIDToDictMap
	conjuncts    []*expr.Context

	reader Reader
	// iter is the reader or a projection over it.
	iter ChunkIterator
	// outPool supplies the varchar columns of the returned chunks. It is nil
	// when iter is a projection.
	outPool *chunk.BinaryColumnPool

	exprFilterTime *profile.Counter
	sel            []uint8

	isOpen   bool
	isClosed bool
	counters counterState

	numRowsRead         int64
	compressedBytesRead int64
	rawRowsRead         int64
}

// NewTabletScanner returns a scanner reporting to parent.
func NewTabletScanner(parent *ScanNode, opts *Options) *TabletScanner {
	s := &TabletScanner{
		parent: parent,
		opts:   opts.EnsureDefaults(),
	}
	s.residual = predicate.MakeSet(&s.predPool)
	return s
}

// Init resolves the tablet, columns, predicates and dictionaries of the scan
// and prepares the reader.
func (s *TabletScanner) Init(ctx context.Context, state *ExecContext, params ScannerParams) error {
	if s.opts.Catalog == nil {
		return errors.AssertionFailedf("tabletscan: Options.Catalog is not set")
	}
	conjuncts := params.Conjuncts
	if conjuncts == nil {
		conjuncts = s.parent.Conjuncts
	}
	if err := expr.CloneIfNotExists(conjuncts, &s.conjuncts); err != nil {
		return err
	}

	t, err := s.opts.Catalog.Lookup(ctx, params.TabletID, params.SchemaHash)
	if err != nil {
		err = errors.Mark(errors.Wrapf(err,
			"[%s] failed to get tablet. tablet_id=%d, with schema_hash=%d, reason",
			errors.Safe(s.opts.Host), params.TabletID, params.SchemaHash), ErrTabletNotFound)
		s.opts.Logger.Errorf("%v", err)
		return err
	}
	s.tablet = t
	s.version = params.Version
	schema := t.Schema()

	s.querySlots = s.parent.TupleDesc.MaterializedSlots()
	if s.scannerColumns, err = resolveScannerColumns(schema, s.querySlots); err != nil {
		return err
	}
	s.readerColumns = resolveReaderColumns(schema, s.scannerColumns, params.SkipAggregation)

	s.readerParams = storage.ReaderParams{
		SkipAggregation: params.SkipAggregation,
		NeedAggFinalize: params.NeedAggFinalize,
		UsePageCache:    !s.opts.DisablePageCache,
		ChunkSize:       s.opts.ChunkSize,
	}
	s.readerParams.Predicates, err = splitPredicates(schema, params.Predicates, &s.predPool, &s.residual)
	if err != nil {
		return err
	}
	for _, p := range s.residual.Predicates() {
		if _, ok := slices.BinarySearch(s.scannerColumns, p.ColumnID()); !ok {
			return errors.Mark(errors.Newf("predicate %s references a column that is not materialized", p), ErrSchema)
		}
	}
	s.readerParams.StartKeys, s.readerParams.EndKeys, s.readerParams.Range, s.readerParams.EndRange =
		keyRangeBounds(params.KeyRanges)

	var globalDicts *dict.Store
	if state != nil {
		globalDicts = state.GlobalDicts
	}
	s.dictMap = bindGlobalDicts(schema, s.querySlots, globalDicts)

	readerSchema, err := schema.ChunkSchema(s.readerColumns)
	if err != nil {
		return errors.Mark(err, ErrSchema)
	}
	s.reader = s.opts.ReaderFactory(t, s.version, readerSchema, s.opts.readerOptions())
	s.iter = s.reader
	s.outPool = s.opts.ColumnPool
	if len(s.readerColumns) != len(s.scannerColumns) {
		outSchema, err := schema.ChunkSchema(s.scannerColumns)
		if err != nil {
			return errors.Mark(err, ErrSchema)
		}
		proj, err := storage.NewProjectionIterator(outSchema, s.reader)
		if err != nil {
			return errors.Mark(err, ErrSchema)
		}
		s.iter = proj
		// The projection swaps the child's columns into out, so columns taken
		// from the pool would be displaced and lost.
		s.outPool = nil
	}

	if len(s.conjuncts) > 0 || !s.residual.Empty() {
		s.exprFilterTime = s.parent.Profile.AddTimer("ExprFilterTime")
	}

	if s.dictMap == nil {
		return errors.AssertionFailedf("tabletscan: nil global dictionary map")
	}
	if err := s.iter.InitEncodedSchema(s.dictMap); err != nil {
		return errors.Mark(err, ErrSchema)
	}

	if err := s.reader.Prepare(); err != nil {
		err = errors.Mark(errors.Wrapf(err, "[%s] fail to prepare tablet reader %s",
			errors.Safe(s.opts.Host), t), ErrInternal)
		s.opts.Logger.Infof("%v", err)
		return err
	}
	return nil
}

// Open opens the reader. Once Open succeeded further calls return nil; a
// failed Open may be retried.
func (s *TabletScanner) Open(ctx context.Context, state *ExecContext) error {
	if s.isOpen {
		return nil
	}
	if s.reader == nil {
		return errors.AssertionFailedf("tabletscan: Open before a successful Init")
	}
	if err := s.reader.Open(ctx, s.readerParams); err != nil {
		err = errors.Mark(errors.Wrapf(err, "[%s] fail to open tablet reader %s",
			errors.Safe(s.opts.Host), s.tablet), ErrInternal)
		s.opts.Logger.Errorf("%v", err)
		return err
	}
	s.isOpen = true
	return nil
}

// GetNextBatch fills out with the next non-empty chunk of rows. It returns
// io.EOF, with out empty, at the end of the scan. On any other error out is
// reset.
func (s *TabletScanner) GetNextBatch(ctx context.Context, state *ExecContext, out *chunk.Chunk) error {
	if state.IsCancelled() {
		out.Reset()
		return errors.Mark(errors.New("canceled state"), ErrCancelled)
	}
	if err := ctx.Err(); err != nil {
		out.Reset()
		return errors.Mark(errors.Wrap(err, "canceled state"), ErrCancelled)
	}
	if s.isClosed {
		out.Reset()
		return errors.AssertionFailedf("tabletscan: GetNextBatch after Close")
	}
	if !s.isOpen {
		out.Reset()
		return errors.AssertionFailedf("tabletscan: GetNextBatch before Open")
	}
	timer := profile.StartTimer(s.parent.counters.scanTime)
	defer timer.Stop()

	schema := s.iter.Schema()
	for {
		out.Reinit(schema, s.opts.ChunkSize, s.outPool)
		if err := s.iter.NextChunk(ctx, out); err != nil {
			out.Reset()
			return err
		}
		for _, slot := range s.querySlots {
			out.SetSlotIDToIndex(slot.ID, schema.FieldIndexByName(slot.Name))
		}
		if !s.residual.Empty() {
			if err := s.filterResidual(state, out); err != nil {
				out.Reset()
				return err
			}
		}
		if len(s.conjuncts) > 0 && out.NumRows() > 0 {
			if err := s.filterConjuncts(state, out); err != nil {
				out.Reset()
				return err
			}
		}
		if out.NumRows() > 0 {
			break
		}
	}
	s.numRowsRead += int64(out.NumRows())
	s.updateRealtimeCounters()
	return nil
}

func (s *TabletScanner) filterResidual(state *ExecContext, out *chunk.Chunk) error {
	before := out.MemoryUsage()
	sw := base.MakeStopwatch()
	sel, _, err := s.residual.Evaluate(out, s.sel)
	s.sel = sel
	if err != nil {
		return err
	}
	out.Filter(sel)
	s.exprFilterTime.Add(sw.ElapsedNanos())
	s.consume(state, out.MemoryUsage()-before)
	return nil
}

func (s *TabletScanner) filterConjuncts(state *ExecContext, out *chunk.Chunk) error {
	before := out.MemoryUsage()
	sw := base.MakeStopwatch()
	if err := expr.EvalConjuncts(s.conjuncts, out); err != nil {
		return err
	}
	s.exprFilterTime.Add(sw.ElapsedNanos())
	s.consume(state, out.MemoryUsage()-before)
	return nil
}

func (s *TabletScanner) consume(state *ExecContext, delta int64) {
	if state != nil {
		state.MemTracker.Consume(delta)
	}
}

// Close releases the reader, predicates, conjuncts and oversized pooled
// columns and flushes the counters. Only the first call has an effect.
func (s *TabletScanner) Close(ctx context.Context, state *ExecContext) error {
	if s.isClosed {
		return nil
	}
	s.isClosed = true
	var err error
	if s.iter != nil {
		err = s.iter.Close()
	}
	s.FinalizeCounters()
	s.reader = nil
	s.iter = nil
	s.readerParams.Predicates = nil
	s.residual = predicate.MakeSet(&s.predPool)
	s.predPool.Clear()
	expr.CloseContexts(s.conjuncts)
	s.opts.ColumnPool.ReleaseLarge(s.opts.largeColumnLimit())
	return err
}

// NumRowsRead returns the rows returned so far.
func (s *TabletScanner) NumRowsRead() int64 { return s.numRowsRead }

// Tablet returns the scanned tablet, once Init resolved it.
func (s *TabletScanner) Tablet() *tablet.Tablet { return s.tablet }

// Schema returns the schema of the chunks GetNextBatch returns, once Init
// succeeded.
func (s *TabletScanner) Schema() *chunk.Schema {
	if s.iter == nil {
		return nil
	}
	return s.iter.Schema()
}
