// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compression

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/internal/base"
	"github.com/golang/snappy"
	"github.com/minio/minlz"
)

// checkInPlace verifies that a decoder wrote its output into buf rather than
// allocating.
func checkInPlace(result, buf []byte) error {
	if len(result) != len(buf) || (len(result) > 0 && &result[0] != &buf[0]) {
		return base.CorruptionErrorf("tabletscan: page decompressed into unexpected buffer: %p != %p",
			errors.Safe(result), errors.Safe(buf))
	}
	return nil
}

// Codecs without their own framing (lz4, pure-Go zstd) prefix the page with
// its uvarint decoded length.
func appendLenPrefix(dst []byte, n, bound int) ([]byte, int) {
	if cap(dst) < binary.MaxVarintLen64+bound {
		dst = make([]byte, binary.MaxVarintLen64+bound)
	}
	dst = dst[:binary.MaxVarintLen64+bound]
	return dst, binary.PutUvarint(dst, uint64(n))
}

func readLenPrefix(b []byte) (decodedLen, prefixLen int, err error) {
	n, prefixLen := binary.Uvarint(b)
	if prefixLen <= 0 {
		return 0, 0, base.CorruptionErrorf("tabletscan: page has invalid length prefix")
	}
	return int(n), prefixLen, nil
}

type noopCompressor struct{}

func (noopCompressor) Compress(dst, src []byte) ([]byte, Setting) {
	return append(dst[:0], src...), NoCompression
}

func (noopCompressor) Close() {}

type noopDecompressor struct{}

func (noopDecompressor) DecompressInto(dst, src []byte) error {
	if len(dst) != len(src) {
		return base.CorruptionErrorf("tabletscan: uncompressed page is %d bytes, expected %d", len(src), len(dst))
	}
	copy(dst, src)
	return nil
}

func (noopDecompressor) DecompressedLen(b []byte) (int, error) { return len(b), nil }
func (noopDecompressor) Close()                                {}

type snappyCompressor struct{}

func (snappyCompressor) Compress(dst, src []byte) ([]byte, Setting) {
	return snappy.Encode(dst[:cap(dst)], src), Snappy
}

func (snappyCompressor) Close() {}

type snappyDecompressor struct{}

func (snappyDecompressor) DecompressInto(buf, compressed []byte) error {
	result, err := snappy.Decode(buf, compressed)
	if err != nil {
		return base.MarkCorruptionError(err)
	}
	return checkInPlace(result, buf)
}

func (snappyDecompressor) DecompressedLen(b []byte) (int, error) { return snappy.DecodedLen(b) }
func (snappyDecompressor) Close()                                {}

// minlzCompressor falls back to snappy above minlz.MaxBlockSize.
type minlzCompressor struct {
	level int
}

var (
	minlzFastest  = &minlzCompressor{level: minlz.LevelFastest}
	minlzBalanced = &minlzCompressor{level: minlz.LevelBalanced}
)

func getMinlzCompressor(level int) Compressor {
	switch level {
	case minlz.LevelFastest:
		return minlzFastest
	case minlz.LevelBalanced:
		return minlzBalanced
	}
	panic(errors.AssertionFailedf("unexpected MinLZ level %d", level))
}

func (c *minlzCompressor) Compress(dst, src []byte) ([]byte, Setting) {
	if len(src) > minlz.MaxBlockSize {
		return snappyCompressor{}.Compress(dst, src)
	}
	out, err := minlz.Encode(dst, src, c.level)
	if err != nil {
		panic(errors.Wrap(err, "minlz compression"))
	}
	return out, Setting{Algorithm: MinLZ, Level: uint8(c.level)}
}

func (c *minlzCompressor) Close() {}

type minlzDecompressor struct{}

func (minlzDecompressor) DecompressInto(buf, compressed []byte) error {
	result, err := minlz.Decode(buf, compressed)
	if err != nil {
		return base.MarkCorruptionError(err)
	}
	return checkInPlace(result, buf)
}

func (minlzDecompressor) DecompressedLen(b []byte) (int, error) { return minlz.DecodedLen(b) }
func (minlzDecompressor) Close()                                {}

var (
	_ Compressor   = noopCompressor{}
	_ Compressor   = snappyCompressor{}
	_ Compressor   = (*minlzCompressor)(nil)
	_ Decompressor = noopDecompressor{}
	_ Decompressor = snappyDecompressor{}
	_ Decompressor = minlzDecompressor{}
)
