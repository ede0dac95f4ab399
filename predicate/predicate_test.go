// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package predicate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/crlib/crstrings"
	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/tablet"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// parseTabletSchema parses lines of the form "<name> <type> [key|<agg>]".
func parseTabletSchema(t *testing.T, td *datadriven.TestData) *tablet.Schema {
	keys := "dup"
	td.MaybeScanArgs(t, "keys", &keys)
	kt, ok := tablet.ParseKeysType(keys)
	if !ok {
		td.Fatalf(t, "unknown keys type %q", keys)
	}
	var cols []tablet.Column
	for line := range crstrings.LinesSeq(td.Input) {
		f := strings.Fields(line)
		typ, ok := chunk.ParseFieldType(f[1])
		if !ok {
			td.Fatalf(t, "unknown type %q", f[1])
		}
		c := tablet.Column{Name: f[0], Type: typ}
		if len(f) > 2 {
			if f[2] == "key" {
				c.IsKey = true
			} else if c.Aggregation, ok = tablet.ParseAggregationMethod(f[2]); !ok {
				td.Fatalf(t, "unknown aggregation %q", f[2])
			}
		}
		cols = append(cols, c)
	}
	s, err := tablet.NewSchema(kt, cols)
	require.NoError(t, err)
	return s
}

func TestPredicates(t *testing.T) {
	var schema *tablet.Schema
	var parser *Parser
	var c *chunk.Chunk

	parseAll := func(t *testing.T, td *datadriven.TestData) []ColumnPredicate {
		var preds []ColumnPredicate
		for line := range crstrings.LinesSeq(td.Input) {
			d, err := ParseDescriptor(line)
			require.NoError(t, err)
			p, err := parser.Parse(d)
			require.NoError(t, err)
			preds = append(preds, p)
		}
		return preds
	}

	datadriven.RunTest(t, "testdata/predicates", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "schema":
			schema = parseTabletSchema(t, td)
			parser = NewParser(schema)
			ids := make([]tablet.ColumnID, schema.NumColumns())
			for i := range ids {
				ids[i] = tablet.ColumnID(i)
			}
			cs, err := schema.ChunkSchema(ids)
			require.NoError(t, err)
			c = chunk.New(cs, 8, nil)
			return ""

		case "rows":
			c.Reset()
			for line := range crstrings.LinesSeq(td.Input) {
				vals := strings.Fields(line)
				row := make([]chunk.Datum, len(vals))
				for i, v := range vals {
					d, err := chunk.ParseDatum(c.Schema().Field(i).Type, v)
					require.NoError(t, err)
					row[i] = d
				}
				c.AppendRow(row...)
			}
			return fmt.Sprintf("%d rows", c.NumRows())

		case "parse":
			var buf strings.Builder
			for line := range crstrings.LinesSeq(td.Input) {
				d, err := ParseDescriptor(line)
				if err == nil {
					var p ColumnPredicate
					if p, err = parser.Parse(d); err == nil {
						fmt.Fprintf(&buf, "%s pushdown=%t\n", p, parser.CanPushdown(p))
						continue
					}
				}
				fmt.Fprintf(&buf, "error: %v\n", err)
			}
			return buf.String()

		case "eval":
			pool := &Pool{}
			set := MakeSet(pool)
			for _, p := range parseAll(t, td) {
				set.Add(pool.Add(p))
			}
			sel, n, err := set.Evaluate(c, nil)
			require.NoError(t, err)
			var buf strings.Builder
			for _, v := range sel {
				fmt.Fprint(&buf, v)
			}
			fmt.Fprintf(&buf, " (%d rows)\n", n)
			return buf.String()

		case "zonemap":
			var minS, maxS string
			td.ScanArgs(t, "min", &minS)
			td.ScanArgs(t, "max", &maxS)
			var buf strings.Builder
			for _, p := range parseAll(t, td) {
				typ := schema.Column(p.ColumnID()).Type
				lo, err := chunk.ParseDatum(typ, minS)
				require.NoError(t, err)
				hi, err := chunk.ParseDatum(typ, maxS)
				require.NoError(t, err)
				verdict := "skip"
				if p.ZoneMapMayMatch(lo, hi) {
					verdict = "may match"
				}
				fmt.Fprintf(&buf, "%s: %s\n", p, verdict)
			}
			return buf.String()

		default:
			td.Fatalf(t, "unknown command: %s", td.Cmd)
			return ""
		}
	})
}

func TestUnknownColumn(t *testing.T) {
	s, err := tablet.NewSchema(tablet.DupKeys, []tablet.Column{
		{Name: "k", Type: chunk.TypeInt64, IsKey: true},
	})
	require.NoError(t, err)
	_, err = NewParser(s).Parse(Descriptor{Column: "x", Op: "=", Values: []string{"1"}})
	require.True(t, errors.Is(err, ErrUnknownColumn))
	require.EqualError(t, err, "invalid field name: x")
}

func TestPoolClear(t *testing.T) {
	pool := &Pool{}
	h := pool.Add(NewComparison(0, "k", OpEq, chunk.Int64Datum(1)))
	require.Equal(t, Handle(0), h)
	require.Equal(t, "k = 1", pool.Get(h).String())
	pool.Clear()
	require.Equal(t, 0, pool.Len())
}

// TestEvaluateMatchesDatums checks the typed fast paths against Match.
func TestEvaluateMatchesDatums(t *testing.T) {
	rng := rand.New(rand.NewSource(uint64(42)))
	ints := &chunk.Int64Column{}
	strs := chunk.NewBinaryColumn(0)
	for i := 0; i < 500; i++ {
		ints.Values = append(ints.Values, int64(rng.Intn(20)))
		strs.AppendString(fmt.Sprintf("s%02d", rng.Intn(20)))
	}
	preds := []ColumnPredicate{
		NewIn(0, "i", []chunk.Datum{chunk.Int64Datum(3), chunk.Int64Datum(7)}),
		NewIn(1, "s", []chunk.Datum{chunk.BytesDatum("s01"), chunk.BytesDatum("s19")}),
	}
	for op := OpEq; op <= OpGe; op++ {
		preds = append(preds, NewComparison(0, "i", op, chunk.Int64Datum(int64(rng.Intn(20)))))
		preds = append(preds, NewComparison(1, "s", op, chunk.BytesDatum("s10")))
	}
	for _, p := range preds {
		col := chunk.Column(ints)
		if p.ColumnID() == 1 {
			col = strs
		}
		sel := make([]uint8, col.Len())
		for i := range sel {
			sel[i] = uint8(rng.Intn(2))
		}
		want := make([]uint8, len(sel))
		for i := range sel {
			if sel[i] != 0 && p.Match(col.Datum(i)) {
				want[i] = 1
			}
		}
		p.Evaluate(col, sel)
		require.Equal(t, want, sel, "%s", p)
	}
}
