// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan"
	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/dict"
	"github.com/cockroachdb/tabletscan/internal/compression"
	"github.com/cockroachdb/tabletscan/predicate"
	"github.com/cockroachdb/tabletscan/storage"
	"github.com/cockroachdb/tabletscan/tablet"
	"github.com/fatih/color"
	"github.com/guptarohit/asciigraph"
	"github.com/kr/pretty"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

var scanConfig = struct {
	rows             int
	rowsets          int
	pageRows         int
	keysType         string
	compression      string
	slots            string
	preds            []string
	chunkSize        int
	skipAgg          bool
	disablePageCache bool
	dict             bool
	readBytesPerSec  int64
	printRows        int
}{
	rows:        100000,
	rowsets:     4,
	pageRows:    1024,
	keysType:    "dup",
	compression: "snappy",
	slots:       "k,name,v",
	chunkSize:   4096,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "scan a synthetic tablet with concurrent scanners over disjoint key ranges",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE:  runScan,
}

var names = []string{"alpha", "beta", "delta", "epsilon", "eta", "gamma", "theta", "zeta"}

// buildTablet writes the synthetic tablet: columns k (key), name, v and
// score, with keys drawn uniformly from [0, rows*rowsets).
func buildTablet(rng *rand.Rand) (*tablet.Tablet, int64, error) {
	kt, ok := tablet.ParseKeysType(scanConfig.keysType)
	if !ok {
		return nil, 0, errors.Newf("unknown keys type %q", scanConfig.keysType)
	}
	setting, err := compression.ParseSetting(scanConfig.compression)
	if err != nil {
		return nil, 0, err
	}
	cols := []tablet.Column{
		{Name: "k", Type: chunk.TypeInt64, IsKey: true},
		{Name: "name", Type: chunk.TypeVarchar},
		{Name: "v", Type: chunk.TypeInt64},
		{Name: "score", Type: chunk.TypeFloat64},
	}
	switch kt {
	case tablet.AggKeys:
		cols[1].Aggregation = tablet.AggReplace
		cols[2].Aggregation = tablet.AggSum
		cols[3].Aggregation = tablet.AggMax
	case tablet.UniqueKeys:
		for i := 1; i < len(cols); i++ {
			cols[i].Aggregation = tablet.AggReplace
		}
	}
	schema, err := tablet.NewSchema(kt, cols)
	if err != nil {
		return nil, 0, err
	}
	tb := tablet.New(1, 1, schema)
	maxKey := int64(scanConfig.rows * scanConfig.rowsets)
	for r := 0; r < scanConfig.rowsets; r++ {
		v := tablet.Version(r + 1)
		w := storage.NewWriter(schema, tablet.VersionRange{Start: v, End: v}, &storage.WriterOptions{
			PageRows:    scanConfig.pageRows,
			Compression: setting,
		})
		for i := 0; i < scanConfig.rows; i++ {
			err := w.Add(
				chunk.Int64Datum(rng.Int63n(maxKey)),
				chunk.BytesDatum(names[rng.Intn(len(names))]),
				chunk.Int64Datum(rng.Int63n(1000)),
				chunk.Float64Datum(rng.Float64()*100),
			)
			if err != nil {
				return nil, 0, err
			}
		}
		rs, err := w.Finish()
		if err != nil {
			return nil, 0, err
		}
		if err := storage.Commit(tb, rs); err != nil {
			return nil, 0, err
		}
	}
	return tb, maxKey, nil
}

// keyRanges splits [0, maxKey) into n disjoint ranges. The first range is
// unbounded below.
func keyRanges(maxKey int64, n int) []tabletscan.KeyRange {
	ranges := make([]tabletscan.KeyRange, n)
	step := (maxKey + int64(n) - 1) / int64(n)
	for i := range ranges {
		lo, hi := int64(i)*step, int64(i+1)*step
		ranges[i] = tabletscan.KeyRange{
			Begin:          chunk.Tuple{chunk.Int64Datum(lo)},
			End:            chunk.Tuple{chunk.Int64Datum(hi)},
			BeginInclusive: true,
		}
		if i == 0 {
			ranges[i].Begin = chunk.Tuple{chunk.NegativeInfinity()}
		}
	}
	return ranges
}

type workerResult struct {
	batches int
	rows    int64
	elapsed time.Duration
}

func runScan(cmd *cobra.Command, args []string) error {
	if concurrency < 1 {
		return errors.Newf("concurrency must be positive")
	}
	rng := rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	start := time.Now()
	tb, maxKey, err := buildTablet(rng)
	if err != nil {
		return err
	}
	fmt.Printf("built tablet %s: %d rowsets of %d rows in %s\n",
		tb, scanConfig.rowsets, scanConfig.rows, time.Since(start).Round(time.Millisecond))

	catalog := tablet.NewMemCatalog()
	catalog.Register(tb)
	reg := prometheus.NewRegistry()
	opts := (&tabletscan.Options{
		ChunkSize:        scanConfig.chunkSize,
		DisablePageCache: scanConfig.disablePageCache,
		ReadBytesPerSec:  scanConfig.readBytesPerSec,
		Catalog:          catalog,
		Metrics:          tabletscan.NewMetrics(reg),
	}).EnsureDefaults()

	var desc tabletscan.TupleDescriptor
	for i, name := range strings.Split(scanConfig.slots, ",") {
		desc.Slots = append(desc.Slots, tabletscan.SlotDescriptor{
			ID: chunk.SlotID(i), Name: strings.TrimSpace(name), IsMaterialized: true,
		})
	}
	var preds []predicate.Descriptor
	for _, s := range scanConfig.preds {
		d, err := predicate.ParseDescriptor(s)
		if err != nil {
			return err
		}
		preds = append(preds, d)
	}

	state := &tabletscan.ExecContext{MemTracker: &tabletscan.MemTracker{}}
	if scanConfig.dict {
		d, err := dict.New(names)
		if err != nil {
			return err
		}
		state.GlobalDicts = dict.NewStore()
		for _, s := range desc.Slots {
			if s.Name == "name" {
				state.GlobalDicts.Add(s.ID, d)
			}
		}
	}

	node := tabletscan.NewScanNode("OlapScanNode", desc, nil)
	ranges := keyRanges(maxKey, concurrency)
	scanners := make([]*tabletscan.TabletScanner, concurrency)
	for i := range scanners {
		scanners[i] = tabletscan.NewTabletScanner(node, opts)
	}
	results := make([]workerResult, concurrency)
	hist := newLatencyHistogram()
	var mu struct {
		sync.Mutex
		batchRows []float64
		printed   []string
	}

	g, ctx := errgroup.WithContext(context.Background())
	for i := range scanners {
		params := tabletscan.ScannerParams{
			TabletID:        tb.ID(),
			SchemaHash:      tb.SchemaHash(),
			Version:         tb.MaxVersion(),
			KeyRanges:       ranges[i : i+1],
			Predicates:      preds,
			SkipAggregation: scanConfig.skipAgg,
		}
		if verbose {
			fmt.Printf("scanner %d: %# v\n", i, pretty.Formatter(params))
		}
		g.Go(func() (err error) {
			s := scanners[i]
			defer func() {
				err = errors.CombineErrors(err, s.Close(ctx, state))
			}()
			if err := s.Init(ctx, state, params); err != nil {
				return err
			}
			if err := s.Open(ctx, state); err != nil {
				return err
			}
			res := &results[i]
			begin := time.Now()
			out := &chunk.Chunk{}
			for {
				t := time.Now()
				err := s.GetNextBatch(ctx, state, out)
				if err == io.EOF {
					break
				}
				if err != nil {
					state.Cancel()
					return err
				}
				hist.Record(time.Since(t))
				res.batches++
				res.rows += int64(out.NumRows())

				mu.Lock()
				mu.batchRows = append(mu.batchRows, float64(out.NumRows()))
				for r := 0; r < out.NumRows() && len(mu.printed) < scanConfig.printRows; r++ {
					mu.printed = append(mu.printed, fmt.Sprint(out.Row(r)))
				}
				mu.Unlock()
			}
			res.elapsed = time.Since(begin)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		color.Red("scan failed: %v", err)
		return err
	}

	for _, row := range mu.printed {
		fmt.Println(row)
	}

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Scanner", "Range", "Batches", "Rows", "Elapsed"})
	var totalRows int64
	for i, res := range results {
		r := ranges[i]
		tw.Append([]string{
			fmt.Sprint(i),
			fmt.Sprintf("[%s, %s)", r.Begin, r.End),
			fmt.Sprint(res.batches),
			fmt.Sprint(res.rows),
			res.elapsed.Round(time.Microsecond).String(),
		})
		totalRows += res.rows
	}
	tw.Render()
	color.Green("returned %d rows in %s", totalRows, time.Since(start).Round(time.Millisecond))

	fmt.Print(hist.String())
	if len(mu.batchRows) > 1 {
		fmt.Println(asciigraph.Plot(downsample(mu.batchRows, 72),
			asciigraph.Height(8), asciigraph.Caption("rows per batch")))
	}

	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Printf("%s %.0f\n", mf.GetName(), m.GetCounter().GetValue())
		}
	}
	fmt.Printf("peak memory tracked: %d bytes\n", state.MemTracker.Peak())
	if verbose {
		fmt.Print(node.Profile.String())
	}
	return nil
}

// downsample averages values into at most n buckets.
func downsample(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	out := make([]float64, n)
	for i := range out {
		lo, hi := i*len(values)/n, (i+1)*len(values)/n
		var sum float64
		for _, v := range values[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}
