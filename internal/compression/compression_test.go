// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compression

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/cockroachdb/crlib/testutils/leaktest"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/internal/base"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestCompressionRoundtrip(t *testing.T) {
	defer leaktest.AfterTest(t)()

	seed := uint64(time.Now().UnixNano())
	t.Logf("seed %d", seed)
	rng := rand.New(rand.NewSource(seed))

	for _, s := range presets {
		t.Run(s.String(), func(t *testing.T) {
			for _, compressible := range []bool{false, true} {
				payload := make([]byte, 1+rng.Intn(10<<10 /* 10 KiB */))
				for i := range payload {
					if compressible {
						payload[i] = byte(i / 100)
					} else {
						payload[i] = byte(rng.Uint32())
					}
				}
				// Create a randomly-sized buffer to house the compressed output. If
				// it's not sufficient, Compress should allocate one that is.
				compressedBuf := make([]byte, 1+rng.Intn(1<<10 /* 1 KiB */))
				compressor := GetCompressor(s)
				compressed, st := compressor.Compress(compressedBuf, payload)
				compressor.Close()
				if compressible && s != NoCompression {
					require.Equal(t, s, st)
					require.Less(t, len(compressed), len(payload))
				}
				got, err := Decompress(st.Algorithm, compressed)
				require.NoError(t, err)
				require.Equal(t, payload, got)
			}
		})
	}
}

// TestDecompressionError tests that decompressing a value that does not
// decompress returns an error.
func TestDecompressionError(t *testing.T) {
	defer leaktest.AfterTest(t)()
	rng := rand.New(rand.NewSource(1 /* fixed seed */))

	// Create a buffer to represent a faux compressed block. It's prefixed with a
	// uvarint of the appropriate length, followed by garbage.
	fauxCompressed := make([]byte, 1024+rng.Intn(10<<10 /* 10 KiB */))
	compressedPayloadLen := len(fauxCompressed) - binary.MaxVarintLen64
	n := binary.PutUvarint(fauxCompressed, uint64(compressedPayloadLen))
	fauxCompressed = fauxCompressed[:n+compressedPayloadLen]
	for i := range fauxCompressed[n:] {
		fauxCompressed[n+i] = byte(rng.Uint32())
	}

	for _, algo := range []Algorithm{Zstd, LZ4} {
		v, err := Decompress(algo, fauxCompressed)
		require.Error(t, err, "%s", algo)
		require.Nil(t, v)
	}
}

func TestInvalidLength(t *testing.T) {
	// 0xff alone is an unterminated uvarint.
	_, err := Decompress(LZ4, []byte{0xff})
	require.True(t, errors.Is(err, base.ErrCorruption))
	_, err = Decompress(Algorithm(200), []byte{1})
	require.Error(t, err)
}

func TestParseSetting(t *testing.T) {
	for _, s := range presets {
		got, err := ParseSetting(s.String())
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
	for name, want := range map[string]Setting{
		"none": NoCompression, "zstd": ZstdLevel3, "minlz": MinLZFastest, "SNAPPY": Snappy,
	} {
		got, err := ParseSetting(name)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseSetting("brotli")
	require.Error(t, err)
}

func TestLZ4Incompressible(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = byte(rng.Uint32())
	}
	out, st := GetCompressor(LZ4Default).Compress(nil, payload)
	if st == NoCompression {
		require.True(t, bytes.Equal(payload, out))
	}
	got, err := Decompress(st.Algorithm, out)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}
