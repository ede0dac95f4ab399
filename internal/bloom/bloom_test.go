// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package bloom

import (
	"encoding/binary"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func build(bitsPerKey uint32, keys ...[]byte) Filter {
	w := NewWriter(bitsPerKey)
	for _, k := range keys {
		w.AddKey(k)
	}
	return w.Finish()
}

// int64Key encodes v the way the storage writer hashes fixed width values.
func int64Key(v int64) []byte {
	return binary.LittleEndian.AppendUint64(nil, uint64(v))
}

// bits renders the filter's bit lines, eight bytes per row, most significant
// bit first.
func bits(f Filter) string {
	var buf strings.Builder
	for i, x := range f {
		switch {
		case i == 0:
		case i%8 == 0:
			buf.WriteByte('\n')
		default:
			buf.WriteString("  ")
		}
		for j := 7; j >= 0; j-- {
			if x&(1<<j) != 0 {
				buf.WriteByte('1')
			} else {
				buf.WriteByte('.')
			}
		}
	}
	buf.WriteByte('\n')
	return buf.String()
}

func TestFilterLayout(t *testing.T) {
	f := build(10, []byte("hello"), []byte("world"))
	// Known answer from RocksDB's FullBloomTest.FullSmall.
	want := strings.TrimLeft(`
........  ........  ........  .......1  ........  ........  ........  ........
........  .1......  ........  .1......  ........  ........  ........  ........
...1....  ........  ........  ........  ........  ........  ........  ........
........  ........  ........  ........  ........  ........  ........  ...1....
........  ........  ........  ........  .....1..  ........  ........  ........
.......1  ........  ........  ........  ........  ........  .1......  ........
........  ........  ........  ........  ........  ...1....  ........  ........
.......1  ........  ........  ........  .1...1..  ........  ........  ........
.....11.  .......1  ........  ........  ........
`, "\n")
	require.Equal(t, want, bits(f))

	// One cache line, six probes.
	require.Len(t, f, cacheLineSize+5)
	require.EqualValues(t, 6, f[cacheLineSize])
	require.EqualValues(t, 1, binary.LittleEndian.Uint32(f[cacheLineSize+1:]))

	for k, want := range map[string]bool{"hello": true, "world": true, "x": false, "foo": false} {
		require.Equal(t, want, f.MayContain([]byte(k)), k)
	}
}

func TestPageFalsePositives(t *testing.T) {
	for _, pageRows := range []int{1, 16, 100, 1024, 4096} {
		t.Run(fmt.Sprint(pageRows), func(t *testing.T) {
			keys := make([][]byte, pageRows)
			for i := range keys {
				keys[i] = int64Key(int64(i) * 7)
			}
			f := build(10, keys...)
			maxLen := 5 + ((pageRows*10)/cacheLineBits+2)*cacheLineSize
			require.LessOrEqual(t, len(f), maxLen)

			for _, k := range keys {
				require.True(t, f.MayContain(k))
			}
			var fp int
			const probesRun = 10000
			for i := 0; i < probesRun; i++ {
				if f.MayContain(int64Key(1e9 + int64(i))) {
					fp++
				}
			}
			require.LessOrEqual(t, fp, probesRun*2/100)
		})
	}
}

func TestHash(t *testing.T) {
	// Known answers from RocksDB's hash_test.cc.
	for s, want := range map[string]uint32{
		"":                                     3164544308,
		"\x08":                                 422599524,
		"\x4d\x76":                             2447836956,
		"\x30\x46\x0b":                         3808221797,
		"\x67\x53\x81\x1c":                     118283265,
		"\xd0\x7a\x6e\xea\x56":                 4255445370,
		"\x5c\x5e\xe1\xa0\x73\x81":             1036846008,
		"\x31\x1b\x98\x75\x96\x22\xd3\x9a":     469635402,
		"\x22\x6f\x39\x1f\xf8\xdd\x4f\x52\x17\x94": 3420325137,
	} {
		require.Equal(t, want, hash([]byte(s)), "%q", s)
	}
}

func TestProbes(t *testing.T) {
	require.EqualValues(t, 1, calculateProbes(1))
	require.EqualValues(t, 5, calculateProbes(8))
	require.EqualValues(t, 6, calculateProbes(10))
	require.EqualValues(t, 6, calculateProbes(32))
	require.Panics(t, func() { NewWriter(0) })
	require.EqualValues(t, 3, calculateNumLines(100, 10))
}

func TestWriterReuse(t *testing.T) {
	w := NewWriter(10)
	require.Nil(t, w.Finish())
	require.False(t, Filter(nil).MayContain([]byte("x")))
	require.False(t, Filter{1, 2, 3}.MayContain([]byte("x")))

	w.AddKey([]byte("alpha"))
	require.Equal(t, 1, w.NumKeys())
	first := w.Finish()
	require.Equal(t, 0, w.NumKeys())
	require.True(t, first.MayContain([]byte("alpha")))

	// A reused writer does not carry keys over.
	w.AddKey([]byte("beta"))
	second := w.Finish()
	require.True(t, second.MayContain([]byte("beta")))
	require.Len(t, second, len(first))
}
