// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/crlib/crstrings"
	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func parseSchema(t *testing.T, td *datadriven.TestData) *Schema {
	var args []string
	td.ScanArgs(t, "schema", &args)
	fields := make([]Field, len(args))
	for i, arg := range args {
		name, typ, ok := strings.Cut(arg, ":")
		if !ok {
			td.Fatalf(t, "bad field %q", arg)
		}
		ft, ok := ParseFieldType(typ)
		if !ok {
			td.Fatalf(t, "bad type %q", typ)
		}
		fields[i] = Field{ID: ColumnID(i), Name: name, Type: ft}
	}
	s, err := NewSchema(fields)
	require.NoError(t, err)
	return s
}

func TestChunkFilter(t *testing.T) {
	var c *Chunk
	datadriven.RunTest(t, "testdata/filter", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "build":
			s := parseSchema(t, td)
			c = New(s, 4, nil)
			for line := range crstrings.LinesSeq(td.Input) {
				vals := strings.Fields(line)
				row := make([]Datum, len(vals))
				for i, v := range vals {
					d, err := ParseDatum(s.Field(i).Type, v)
					require.NoError(t, err)
					row[i] = d
				}
				c.AppendRow(row...)
			}
			require.NoError(t, c.CheckConsistency())
			return c.String()

		case "filter":
			var sel string
			td.ScanArgs(t, "sel", &sel)
			vec := make([]uint8, len(sel))
			for i := range sel {
				if sel[i] == '1' {
					vec[i] = 1
				}
			}
			before := c.MemoryUsage()
			n := c.Filter(vec)
			require.NoError(t, c.CheckConsistency())
			require.LessOrEqual(t, c.MemoryUsage(), before)
			return fmt.Sprintf("%srows: %d\n", c.String(), n)

		default:
			td.Fatalf(t, "unknown command: %s", td.Cmd)
			return ""
		}
	})
}

func TestSlotBinding(t *testing.T) {
	s := MustNewSchema([]Field{
		{ID: 0, Name: "k", Type: TypeInt64, IsKey: true},
		{ID: 3, Name: "v", Type: TypeVarchar},
	})
	c := New(s, 2, nil)
	c.AppendRow(Int64Datum(1), BytesDatum("a"))
	c.SetSlotIDToIndex(7, s.FieldIndexByName("v"))

	col, ok := c.ColumnBySlotID(7)
	require.True(t, ok)
	require.Equal(t, "a", col.Datum(0).Bytes())
	_, ok = c.ColumnBySlotID(8)
	require.False(t, ok)

	require.Equal(t, 1, s.FieldIndexByID(3))
	require.Equal(t, -1, s.FieldIndexByID(1))

	// Reinit with the same schema keeps the columns but drops bindings.
	c.Reinit(s, 2, nil)
	require.Equal(t, 0, c.NumRows())
	_, ok = c.ColumnBySlotID(7)
	require.False(t, ok)
}

func TestBinaryColumnFilterRandom(t *testing.T) {
	seed := uint64(1)
	rng := rand.New(rand.NewSource(seed))
	for iter := 0; iter < 50; iter++ {
		n := rng.Intn(100)
		c := NewBinaryColumn(n)
		var want []string
		sel := make([]uint8, n)
		for i := 0; i < n; i++ {
			v := strings.Repeat(string(rune('a'+rng.Intn(26))), rng.Intn(5))
			c.AppendString(v)
			if rng.Intn(2) == 0 {
				sel[i] = 1
				want = append(want, v)
			}
		}
		c.Filter(sel)
		require.Equal(t, len(want), c.Len(), "seed %d iter %d", seed, iter)
		for i, v := range want {
			require.Equal(t, v, string(c.Value(i)))
		}
	}
}

func TestBinaryColumnPool(t *testing.T) {
	p := &BinaryColumnPool{DefaultCapacity: 4}
	small := p.Get()
	small.AppendString("abc")
	large := p.Get()
	large.AppendString(strings.Repeat("x", 1<<12))
	p.Put(small)
	p.Put(large)
	require.Equal(t, 2, p.Len())

	require.Equal(t, 1, p.ReleaseLarge(1<<10))
	require.Equal(t, 1, p.Len())
	c := p.Get()
	require.Equal(t, 0, c.Len())
	require.Equal(t, 0, p.ReleaseLarge(1<<10))
}

func TestDatumCompare(t *testing.T) {
	require.Equal(t, -1, NegativeInfinity().Compare(Int64Datum(-1<<62)))
	require.Equal(t, 1, PositiveInfinity().Compare(BytesDatum("zzz")))
	require.Equal(t, 0, Int64Datum(2).Compare(Float64Datum(2)))
	require.Equal(t, -1, Int64Datum(2).Compare(BytesDatum("1")))
	require.Equal(t, 0, Tuple{Int64Datum(1)}.Compare(Tuple{Int64Datum(1), Int64Datum(5)}))
	require.Equal(t, 1, Tuple{Int64Datum(2)}.Compare(Tuple{Int64Datum(1), Int64Datum(5)}))
}
