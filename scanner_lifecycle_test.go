// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tabletscan

import (
	"context"
	"io"
	"slices"
	"testing"

	"github.com/cockroachdb/crlib/testutils/leaktest"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/dict"
	"github.com/cockroachdb/tabletscan/expr"
	"github.com/cockroachdb/tabletscan/internal/base"
	"github.com/cockroachdb/tabletscan/predicate"
	"github.com/cockroachdb/tabletscan/storage"
	"github.com/cockroachdb/tabletscan/tablet"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

// fakeReader is a Reader returning canned batches.
type fakeReader struct {
	schema   *chunk.Schema
	batches  []chunk.Tuple
	perBatch int
	stats    storage.ReaderStats

	openErrs []error
	nextErr  error

	opens, nexts, closes int
	params               storage.ReaderParams
	dicts                dict.ColumnIDToDictMap
}

var _ Reader = (*fakeReader)(nil)

func (r *fakeReader) Schema() *chunk.Schema { return r.schema }
func (r *fakeReader) Prepare() error        { return nil }

func (r *fakeReader) InitEncodedSchema(dicts dict.ColumnIDToDictMap) error {
	r.dicts = dicts
	return nil
}

func (r *fakeReader) Open(_ context.Context, params storage.ReaderParams) error {
	r.opens++
	if len(r.openErrs) > 0 {
		err := r.openErrs[0]
		r.openErrs = r.openErrs[1:]
		return err
	}
	r.params = params
	return nil
}

func (r *fakeReader) NextChunk(_ context.Context, out *chunk.Chunk) error {
	r.nexts++
	out.Reset()
	if r.nextErr != nil {
		if len(r.batches) > 0 {
			out.AppendRow(r.batches[0]...)
		}
		return r.nextErr
	}
	if len(r.batches) == 0 {
		return io.EOF
	}
	n := min(max(r.perBatch, 1), len(r.batches))
	for _, row := range r.batches[:n] {
		out.AppendRow(row...)
	}
	r.batches = r.batches[n:]
	r.stats.CompressedBytesRead += 100
	r.stats.RawRowsRead += int64(n)
	r.stats.RowsRead += int64(n)
	return nil
}

func (r *fakeReader) Stats() storage.ReaderStats          { return r.stats }
func (r *fakeReader) MutableStats() *storage.ReaderStats { return &r.stats }

func (r *fakeReader) Close() error {
	r.closes++
	return nil
}

// aggTablet returns tablet 1.100 with columns k (key), s (sum) and r
// (replace varchar), holding one rowset at version 1.
func aggTablet(t *testing.T) (*tablet.MemCatalog, *tablet.Tablet) {
	s, err := tablet.NewSchema(tablet.AggKeys, []tablet.Column{
		{Name: "k", Type: chunk.TypeInt64, IsKey: true},
		{Name: "s", Type: chunk.TypeInt64, Aggregation: tablet.AggSum},
		{Name: "r", Type: chunk.TypeVarchar, Aggregation: tablet.AggReplace},
	})
	require.NoError(t, err)
	tb := tablet.New(1, 100, s)
	w := storage.NewWriter(s, tablet.VersionRange{Start: 1, End: 1}, nil)
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, w.Add(chunk.Int64Datum(i), chunk.Int64Datum(10*i), chunk.BytesDatum("x")))
	}
	rs, err := w.Finish()
	require.NoError(t, err)
	require.NoError(t, storage.Commit(tb, rs))
	c := tablet.NewMemCatalog()
	c.Register(tb)
	return c, tb
}

type scannerEnv struct {
	tb      *tablet.Tablet
	node    *ScanNode
	opts    *Options
	readers []*fakeReader
	state   *ExecContext
}

// newScannerEnv returns scanners over aggTablet whose readers are fakes
// returning rows.
func newScannerEnv(t *testing.T, slots string, rows ...chunk.Tuple) *scannerEnv {
	catalog, tb := aggTablet(t)
	env := &scannerEnv{
		tb:    tb,
		node:  NewScanNode("OlapScanNode", parseSlots(tb.Schema(), slots), nil),
		state: &ExecContext{MemTracker: &MemTracker{}},
	}
	env.opts = &Options{
		Catalog: catalog,
		Host:    testHost,
		Logger:  base.NoopLogger{},
		ReaderFactory: func(
			_ *tablet.Tablet, _ tablet.Version, schema *chunk.Schema, _ *storage.ReaderOptions,
		) Reader {
			r := &fakeReader{schema: schema, batches: slices.Clone(rows), perBatch: len(rows)}
			env.readers = append(env.readers, r)
			return r
		},
	}
	return env
}

func (env *scannerEnv) scanner() *TabletScanner {
	return NewTabletScanner(env.node, env.opts)
}

func TestScannerReaderColumns(t *testing.T) {
	defer leaktest.AfterTest(t)()
	s, err := tablet.NewSchema(tablet.AggKeys, []tablet.Column{
		{Name: "k1", Type: chunk.TypeInt64, IsKey: true},
		{Name: "k2", Type: chunk.TypeVarchar, IsKey: true},
		{Name: "a", Type: chunk.TypeInt64, Aggregation: tablet.AggSum},
		{Name: "b", Type: chunk.TypeFloat64, Aggregation: tablet.AggMax},
		{Name: "c", Type: chunk.TypeVarchar, Aggregation: tablet.AggReplace},
		{Name: "d", Type: chunk.TypeInt64, Aggregation: tablet.AggMin},
	})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(uint64(1)))
	for iter := 0; iter < 200; iter++ {
		var slots []SlotDescriptor
		for _, i := range rng.Perm(s.NumColumns())[:1+rng.Intn(s.NumColumns())] {
			name := s.Column(tablet.ColumnID(i)).Name
			slots = append(slots, SlotDescriptor{ID: chunk.SlotID(i), Name: name, IsMaterialized: true})
		}
		scannerCols, err := resolveScannerColumns(s, slots)
		require.NoError(t, err)
		require.True(t, slices.IsSorted(scannerCols))
		require.Len(t, scannerCols, len(slots))

		skip := rng.Intn(2) == 0
		readerCols := resolveReaderColumns(s, scannerCols, skip)
		require.True(t, slices.IsSorted(readerCols))
		if skip {
			require.Equal(t, scannerCols, readerCols)
			continue
		}
		require.Equal(t, []tablet.ColumnID{0, 1}, readerCols[:2])
		for _, id := range readerCols[2:] {
			require.False(t, s.Column(id).IsKey)
		}
		for _, id := range scannerCols {
			require.Contains(t, readerCols, id)
		}
	}
}

func TestScannerCancelled(t *testing.T) {
	defer leaktest.AfterTest(t)()
	env := newScannerEnv(t, "k,s", chunk.Tuple{chunk.Int64Datum(1), chunk.Int64Datum(10)})
	ctx := context.Background()
	s := env.scanner()
	require.NoError(t, s.Init(ctx, env.state, ScannerParams{TabletID: 1, SchemaHash: 100, Version: 1}))
	require.NoError(t, s.Open(ctx, env.state))

	env.state.Cancel()
	out := &chunk.Chunk{}
	err := s.GetNextBatch(ctx, env.state, out)
	require.True(t, errors.Is(err, ErrCancelled), "%v", err)
	require.True(t, out.IsEmpty())
	require.Equal(t, 0, env.readers[0].nexts)

	// A cancelled context is also observed before the reader is touched.
	s2 := env.scanner()
	require.NoError(t, s2.Init(ctx, &ExecContext{}, ScannerParams{TabletID: 1, SchemaHash: 100, Version: 1}))
	require.NoError(t, s2.Open(ctx, &ExecContext{}))
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err = s2.GetNextBatch(cctx, &ExecContext{}, out)
	require.True(t, errors.Is(err, ErrCancelled), "%v", err)
	require.True(t, errors.Is(err, context.Canceled), "%v", err)
	require.Equal(t, 0, env.readers[1].nexts)

	require.NoError(t, s.Close(ctx, env.state))
	require.NoError(t, s2.Close(ctx, env.state))
}

func TestScannerPredicateSplit(t *testing.T) {
	defer leaktest.AfterTest(t)()
	env := newScannerEnv(t, "k,s,r")
	ctx := context.Background()
	descs := []predicate.Descriptor{
		{Column: "k", Op: ">", Values: []string{"1"}},
		{Column: "s", Op: "<", Values: []string{"30"}},
		{Column: "k", Op: "in", Values: []string{"1", "2", "3"}},
		{Column: "r", Op: "=", Values: []string{"x"}},
	}
	s := env.scanner()
	require.NoError(t, s.Init(ctx, env.state, ScannerParams{
		TabletID: 1, SchemaHash: 100, Version: 1, Predicates: descs,
	}))
	require.NoError(t, s.Open(ctx, env.state))

	var pushdown, residual []string
	for _, p := range env.readers[0].params.Predicates {
		pushdown = append(pushdown, p.String())
	}
	for _, p := range s.residual.Predicates() {
		residual = append(residual, p.String())
	}
	require.Equal(t, []string{"k > 1", "k IN (1, 2, 3)"}, pushdown)
	require.Equal(t, []string{"s < 30", "r = x"}, residual)
	// Every predicate is owned by the pool exactly once.
	require.Equal(t, len(descs), s.predPool.Len())
	require.Equal(t, len(descs), len(pushdown)+len(residual))

	require.NoError(t, s.Close(ctx, env.state))
	require.Equal(t, 0, s.predPool.Len())
	require.True(t, s.residual.Empty())
	require.Equal(t, int64(2), env.node.ScanProfile.Counter("PushdownPredicates").Value())
}

func TestScannerKeyRanges(t *testing.T) {
	defer leaktest.AfterTest(t)()
	env := newScannerEnv(t, "k")
	ctx := context.Background()
	s := env.scanner()
	ranges := []KeyRange{
		{Begin: chunk.Tuple{chunk.NegativeInfinity()}, End: chunk.Tuple{chunk.Int64Datum(5)}, EndInclusive: true},
		{Begin: chunk.Tuple{chunk.Int64Datum(7)}, End: chunk.Tuple{chunk.Int64Datum(9)}, EndInclusive: true},
	}
	require.NoError(t, s.Init(ctx, env.state, ScannerParams{
		TabletID: 1, SchemaHash: 100, Version: 1, KeyRanges: ranges,
	}))
	p := s.readerParams
	require.Equal(t, []chunk.Tuple{nil, {chunk.Int64Datum(7)}}, p.StartKeys)
	require.Equal(t, []chunk.Tuple{{chunk.Int64Datum(5)}, {chunk.Int64Datum(9)}}, p.EndKeys)
	require.Equal(t, "gt", p.Range)
	require.Equal(t, "le", p.EndRange)
	require.NoError(t, s.Close(ctx, env.state))

	// A range unbounded below keeps its end key, so its end inclusiveness is
	// honoured. [-inf, 5) must not read 5.
	starts, ends, rng, endRng := keyRangeBounds([]KeyRange{
		{Begin: chunk.Tuple{chunk.NegativeInfinity()}, End: chunk.Tuple{chunk.Int64Datum(5)}},
	})
	require.Equal(t, []chunk.Tuple{nil}, starts)
	require.Equal(t, []chunk.Tuple{{chunk.Int64Datum(5)}}, ends)
	require.Equal(t, "gt", rng)
	require.Equal(t, "lt", endRng)
}

// TestScannerFilterOrder checks that rows are filtered by the residual
// predicates and then by the conjuncts.
func TestScannerFilterOrder(t *testing.T) {
	defer leaktest.AfterTest(t)()
	row := func(k, s int64) chunk.Tuple { return chunk.Tuple{chunk.Int64Datum(k), chunk.Int64Datum(s)} }
	env := newScannerEnv(t, "k,s", row(1, 10), row(2, 20), row(3, 30))
	ctx := context.Background()

	e, err := expr.Parse("(< $k 2)", slotResolver(env.node.TupleDesc))
	require.NoError(t, err)
	conj := expr.NewContext(e)
	require.NoError(t, conj.Prepare())

	s := env.scanner()
	require.NoError(t, s.Init(ctx, env.state, ScannerParams{
		TabletID: 1, SchemaHash: 100, Version: 1,
		Predicates: []predicate.Descriptor{{Column: "s", Op: "!=", Values: []string{"20"}}},
		Conjuncts:  []*expr.Context{conj},
	}))
	require.NoError(t, s.Open(ctx, env.state))
	out := &chunk.Chunk{}
	require.NoError(t, s.GetNextBatch(ctx, env.state, out))
	require.Equal(t, "k=1 s=10\n", out.String())
	col, ok := out.ColumnBySlotID(slotID(env.tb.Schema(), "s"))
	require.True(t, ok)
	require.Equal(t, 1, col.Len())
	require.LessOrEqual(t, env.state.MemTracker.Consumption(), int64(0))
	require.Equal(t, io.EOF, s.GetNextBatch(ctx, env.state, out))
	require.True(t, out.IsEmpty())

	require.NoError(t, s.Close(ctx, env.state))
	require.True(t, s.conjuncts[0].IsClosed())
	require.False(t, conj.IsClosed())
	require.NotNil(t, env.node.Profile.Counter("ExprFilterTime"))
}

func TestScannerNoMaterializedSlot(t *testing.T) {
	defer leaktest.AfterTest(t)()
	env := newScannerEnv(t, "!k,!s")
	ctx := context.Background()
	s := env.scanner()
	err := s.Init(ctx, env.state, ScannerParams{TabletID: 1, SchemaHash: 100, Version: 1})
	require.True(t, errors.Is(err, ErrSchema), "%v", err)
	require.Empty(t, env.readers)
	require.NoError(t, s.Close(ctx, env.state))
}

func TestScannerGlobalDicts(t *testing.T) {
	defer leaktest.AfterTest(t)()
	env := newScannerEnv(t, "k,r,!s")
	ctx := context.Background()
	d, err := dict.New([]string{"x", "y"})
	require.NoError(t, err)
	env.state.GlobalDicts = dict.NewStore()
	env.state.GlobalDicts.Add(slotID(env.tb.Schema(), "r"), d)
	// Dictionaries of slots that are not materialized are ignored.
	env.state.GlobalDicts.Add(slotID(env.tb.Schema(), "s"), d)

	s := env.scanner()
	require.NoError(t, s.Init(ctx, env.state, ScannerParams{TabletID: 1, SchemaHash: 100, Version: 1}))
	r := tablet.ColumnID(env.tb.Schema().FieldIndex("r"))
	require.Equal(t, dict.ColumnIDToDictMap{r: d}, s.dictMap)
	require.Equal(t, s.dictMap, env.readers[0].dicts)
	require.NoError(t, s.Close(ctx, env.state))

	// Without query dictionaries the map is empty but present.
	env.state.GlobalDicts = nil
	s = env.scanner()
	require.NoError(t, s.Init(ctx, env.state, ScannerParams{TabletID: 1, SchemaHash: 100, Version: 1}))
	require.NotNil(t, env.readers[1].dicts)
	require.Empty(t, env.readers[1].dicts)
	require.NoError(t, s.Close(ctx, env.state))
}

func TestScannerOpenRetry(t *testing.T) {
	defer leaktest.AfterTest(t)()
	env := newScannerEnv(t, "k", chunk.Tuple{chunk.Int64Datum(1)})
	logger := &base.InMemLogger{}
	env.opts.Logger = logger
	ctx := context.Background()
	s := env.scanner()
	require.NoError(t, s.Init(ctx, env.state, ScannerParams{TabletID: 1, SchemaHash: 100, Version: 1}))
	r := env.readers[0]
	r.openErrs = []error{errors.New("disk unavailable")}

	err := s.Open(ctx, env.state)
	require.True(t, errors.Is(err, ErrInternal), "%v", err)
	require.EqualError(t, err, "[testhost] fail to open tablet reader 1.100: disk unavailable")
	require.Contains(t, logger.String(), "fail to open tablet reader 1.100")

	require.NoError(t, s.Open(ctx, env.state))
	require.NoError(t, s.Open(ctx, env.state))
	require.Equal(t, 2, r.opens)

	out := &chunk.Chunk{}
	require.NoError(t, s.GetNextBatch(ctx, env.state, out))
	require.Equal(t, "k=1\n", out.String())
	require.NoError(t, s.Close(ctx, env.state))
}

func TestScannerErrorResetsChunk(t *testing.T) {
	defer leaktest.AfterTest(t)()
	env := newScannerEnv(t, "k,s", chunk.Tuple{chunk.Int64Datum(1), chunk.Int64Datum(10)})
	ctx := context.Background()
	s := env.scanner()
	require.NoError(t, s.Init(ctx, env.state, ScannerParams{TabletID: 1, SchemaHash: 100, Version: 1}))
	require.NoError(t, s.Open(ctx, env.state))
	env.readers[0].nextErr = errors.New("boom")

	out := &chunk.Chunk{}
	require.EqualError(t, s.GetNextBatch(ctx, env.state, out), "boom")
	require.True(t, out.IsEmpty())
	require.NoError(t, s.Close(ctx, env.state))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestScannerCounters(t *testing.T) {
	defer leaktest.AfterTest(t)()
	row := func(k int64) chunk.Tuple { return chunk.Tuple{chunk.Int64Datum(k), chunk.Int64Datum(10 * k)} }
	env := newScannerEnv(t, "k,s", row(1), row(2), row(3), row(4), row(5))
	env.opts.Metrics = NewMetrics(prometheus.NewRegistry())
	env.opts.ChunkSize = 2
	ctx := context.Background()

	s := env.scanner()
	require.NoError(t, s.Init(ctx, env.state, ScannerParams{TabletID: 1, SchemaHash: 100, Version: 1}))
	require.NoError(t, s.Open(ctx, env.state))
	r := env.readers[0]
	r.perBatch = 2

	sp := env.node.ScanProfile
	out := &chunk.Chunk{}
	require.NoError(t, s.GetNextBatch(ctx, env.state, out))
	require.Equal(t, 2, out.NumRows())
	// Compressed bytes and raw rows are reported while the scan runs and
	// drained from the reader.
	require.Equal(t, int64(100), sp.Counter("CompressedBytesRead").Value())
	require.Equal(t, int64(2), sp.Counter("RawRowsRead").Value())
	require.Equal(t, int64(0), r.stats.CompressedBytesRead)
	require.Equal(t, int64(0), r.stats.RawRowsRead)

	for {
		err := s.GetNextBatch(ctx, env.state, out)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	require.Equal(t, int64(5), s.NumRowsRead())

	// What the reader accumulates after the last batch is added on close.
	r.stats.CompressedBytesRead = 7
	r.stats.RawRowsRead = 1
	r.stats.TotalPagesNum = 4
	r.stats.DelFilterNs = 10
	r.stats.RowsDelFiltered = 1

	large := chunk.NewBinaryColumn(0)
	large.Append(make([]byte, env.opts.largeColumnLimit()+1))
	env.opts.ColumnPool.Put(large)
	poolLen := env.opts.ColumnPool.Len()

	require.NoError(t, s.Close(ctx, env.state))
	require.Equal(t, 1, r.closes)
	require.Equal(t, poolLen-1, env.opts.ColumnPool.Len())

	check := func() {
		require.Equal(t, int64(307), sp.Counter("CompressedBytesRead").Value())
		require.Equal(t, int64(6), sp.Counter("RawRowsRead").Value())
		require.Equal(t, int64(4), sp.Counter("TotalPagesNum").Value())
		require.Equal(t, int64(5), env.node.Profile.Counter("RowsRead").Value())
		require.Equal(t, int64(1), sp.Counter("DeleteFilterRows").Value())
		require.Equal(t, int64(10), sp.Counter("DeleteFilter").Value())
		require.Nil(t, sp.Counter("DictDecode"))
		require.Nil(t, sp.Counter("LateMaterialize"))
		require.Equal(t, float64(307), counterValue(t, env.opts.Metrics.ScanBytes))
		require.Equal(t, float64(6), counterValue(t, env.opts.Metrics.ScanRows))
	}
	check()

	// Closing and finalizing again changes nothing.
	require.NoError(t, s.Close(ctx, env.state))
	s.FinalizeCounters()
	require.Equal(t, 1, r.closes)
	check()
}

func TestMemTracker(t *testing.T) {
	var m MemTracker
	m.Consume(100)
	m.Consume(-40)
	m.Consume(10)
	require.Equal(t, int64(70), m.Consumption())
	require.Equal(t, int64(100), m.Peak())

	var nilTracker *MemTracker
	nilTracker.Consume(5)
	require.Equal(t, int64(0), nilTracker.Consumption())
}

func TestOptionsEnsureDefaults(t *testing.T) {
	o := (*Options)(nil).EnsureDefaults()
	require.Equal(t, 4096, o.ChunkSize)
	require.Equal(t, 512, o.LargeColumnAvgRowBytes)
	require.Equal(t, 4096*512, o.largeColumnLimit())
	require.NotEmpty(t, o.Host)
	require.NotNil(t, o.PageCache)
	require.NotNil(t, o.ColumnPool)
	require.Nil(t, o.readLimiter)

	o = (&Options{DisablePageCache: true, ReadBytesPerSec: 1 << 20}).EnsureDefaults()
	require.Nil(t, o.PageCache)
	require.NotNil(t, o.readLimiter)
	ro := o.readerOptions()
	require.Nil(t, ro.PageCache)
	require.Same(t, o.readLimiter, ro.ReadLimiter)
	require.Same(t, o.ColumnPool, ro.ColumnPool)
}

func TestScannerErrorClasses(t *testing.T) {
	defer leaktest.AfterTest(t)()
	catalog, tb := aggTablet(t)
	ctx := context.Background()
	newScanner := func(slots string) *TabletScanner {
		node := NewScanNode("OlapScanNode", parseSlots(tb.Schema(), slots), nil)
		return NewTabletScanner(node, &Options{Catalog: catalog, Host: testHost, Logger: base.NoopLogger{}})
	}

	s := newScanner("k")
	err := s.Init(ctx, nil, ScannerParams{TabletID: 1, SchemaHash: 7, Version: 1})
	require.True(t, errors.Is(err, ErrTabletNotFound), "%v", err)
	require.True(t, errors.Is(err, tablet.ErrNotFound), "%v", err)
	require.Contains(t, err.Error(), "[testhost] failed to get tablet. tablet_id=1, with schema_hash=7")
	require.Contains(t, err.Error(), "schema hash mismatch")
	require.NoError(t, s.Close(ctx, nil))

	s = newScanner("k,nope")
	err = s.Init(ctx, nil, ScannerParams{TabletID: 1, SchemaHash: 100, Version: 1})
	require.True(t, errors.Is(err, ErrSchema), "%v", err)
	require.NoError(t, s.Close(ctx, nil))

	s = newScanner("k")
	err = s.Init(ctx, nil, ScannerParams{
		TabletID: 1, SchemaHash: 100, Version: 1,
		Predicates: []predicate.Descriptor{{Column: "k", Op: "~", Values: []string{"1"}}},
	})
	require.True(t, errors.Is(err, ErrSchema), "%v", err)
	require.NoError(t, s.Close(ctx, nil))

	s = newScanner("k")
	err = s.Init(ctx, nil, ScannerParams{TabletID: 1, SchemaHash: 100, Version: 2})
	require.True(t, errors.Is(err, ErrInternal), "%v", err)
	require.True(t, errors.Is(err, tablet.ErrVersionNotFound), "%v", err)
	require.NoError(t, s.Close(ctx, nil))

	// A full scan through the storage reader.
	s = newScanner("s,k")
	require.NoError(t, s.Init(ctx, nil, ScannerParams{TabletID: 1, SchemaHash: 100, Version: 1}))
	require.NoError(t, s.Open(ctx, nil))
	require.Same(t, tb, s.Tablet())
	require.Equal(t, 2, s.Schema().NumFields())
	out := &chunk.Chunk{}
	require.NoError(t, s.GetNextBatch(ctx, nil, out))
	require.Equal(t, "k=1 s=10\nk=2 s=20\nk=3 s=30\n", out.String())
	require.Equal(t, io.EOF, s.GetNextBatch(ctx, nil, out))
	require.NoError(t, s.Close(ctx, nil))
}

func TestScannerNextAfterClose(t *testing.T) {
	defer leaktest.AfterTest(t)()
	env := newScannerEnv(t, "k,s", chunk.Tuple{chunk.Int64Datum(1), chunk.Int64Datum(10)})
	ctx := context.Background()
	s := env.scanner()
	out := &chunk.Chunk{}
	require.Error(t, s.GetNextBatch(ctx, env.state, out))

	require.NoError(t, s.Init(ctx, env.state, ScannerParams{TabletID: 1, SchemaHash: 100, Version: 1}))
	require.NoError(t, s.Open(ctx, env.state))
	require.NoError(t, s.GetNextBatch(ctx, env.state, out))
	require.Equal(t, 1, out.NumRows())
	require.NoError(t, s.Close(ctx, env.state))

	var err error
	require.NotPanics(t, func() { err = s.GetNextBatch(ctx, env.state, out) })
	require.ErrorContains(t, err, "GetNextBatch after Close")
	require.True(t, out.IsEmpty())
	require.Equal(t, 1, env.readers[0].nexts)
	require.Nil(t, s.Schema())
}

// TestScannerProjectionColumnPool checks that a scan whose reader returns more
// columns than the query needs neither takes columns from the pool nor loses
// pooled ones.
func TestScannerProjectionColumnPool(t *testing.T) {
	defer leaktest.AfterTest(t)()
	row := func(k int64, r string) chunk.Tuple { return chunk.Tuple{chunk.Int64Datum(k), chunk.BytesDatum(r)} }
	env := newScannerEnv(t, "r", row(1, "a"), row(2, "b"))
	ctx := context.Background()
	s := env.scanner()
	pool := env.opts.ColumnPool
	pool.Put(chunk.NewBinaryColumn(4))
	pool.Put(chunk.NewBinaryColumn(4))

	require.NoError(t, s.Init(ctx, env.state, ScannerParams{TabletID: 1, SchemaHash: 100, Version: 1}))
	require.Equal(t, 2, env.readers[0].schema.NumFields())
	require.Equal(t, 1, s.Schema().NumFields())
	require.NoError(t, s.Open(ctx, env.state))
	out := &chunk.Chunk{}
	require.NoError(t, s.GetNextBatch(ctx, env.state, out))
	require.Equal(t, "r=a\nr=b\n", out.String())
	require.Equal(t, 2, pool.Len())
	require.Equal(t, io.EOF, s.GetNextBatch(ctx, env.state, out))
	require.NoError(t, s.Close(ctx, env.state))
	require.Equal(t, 2, pool.Len())
}

func TestScannerFinalizeBeforeInit(t *testing.T) {
	defer leaktest.AfterTest(t)()
	row := func(k int64) chunk.Tuple { return chunk.Tuple{chunk.Int64Datum(k), chunk.Int64Datum(10 * k)} }
	env := newScannerEnv(t, "k,s", row(1), row(2))
	ctx := context.Background()
	s := env.scanner()
	// Finalizing a scanner without a reader does not use up the flush.
	s.FinalizeCounters()

	require.NoError(t, s.Init(ctx, env.state, ScannerParams{TabletID: 1, SchemaHash: 100, Version: 1}))
	require.NoError(t, s.Open(ctx, env.state))
	out := &chunk.Chunk{}
	require.NoError(t, s.GetNextBatch(ctx, env.state, out))
	require.Equal(t, io.EOF, s.GetNextBatch(ctx, env.state, out))
	env.readers[0].stats.TotalPagesNum = 3
	require.NoError(t, s.Close(ctx, env.state))
	require.Equal(t, int64(2), env.node.Profile.Counter("RowsRead").Value())
	require.Equal(t, int64(3), env.node.ScanProfile.Counter("TotalPagesNum").Value())
}

// TestScannerSharedReadLimiter runs concurrent scanners built from one Options,
// so that they share its read limiter.
func TestScannerSharedReadLimiter(t *testing.T) {
	defer leaktest.AfterTest(t)()
	catalog, tb := aggTablet(t)
	opts := (&Options{
		Catalog:          catalog,
		Host:             testHost,
		Logger:           base.NoopLogger{},
		ReadBytesPerSec:  1 << 20,
		DisablePageCache: true,
	}).EnsureDefaults()
	node := NewScanNode("OlapScanNode", parseSlots(tb.Schema(), "k,s,r"), nil)
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			for j := 0; j < 25; j++ {
				state := &ExecContext{MemTracker: &MemTracker{}}
				s := NewTabletScanner(node, opts)
				if err := s.Init(ctx, state, ScannerParams{TabletID: 1, SchemaHash: 100, Version: 1}); err != nil {
					return err
				}
				if err := s.Open(ctx, state); err != nil {
					return err
				}
				out := &chunk.Chunk{}
				for {
					err := s.GetNextBatch(ctx, state, out)
					if err == io.EOF {
						break
					} else if err != nil {
						return err
					}
				}
				if n := s.NumRowsRead(); n != 3 {
					return errors.Newf("read %d rows", n)
				}
				if err := s.Close(ctx, state); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, int64(300), node.Profile.Counter("RowsRead").Value())
}
