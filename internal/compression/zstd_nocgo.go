// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build !cgo

package compression

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/internal/base"
	"github.com/klauspost/compress/zstd"
)

// zstdCompressor is the pure-Go zstd codec used when cgo is unavailable. Its
// pages carry the same length prefix as the cgo codec's, so either build
// reads the other's rowsets.
type zstdCompressor struct {
	level   int
	encoder *zstd.Encoder
}

var _ Compressor = (*zstdCompressor)(nil)

func getZstdCompressor(level int) *zstdCompressor {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		panic(errors.Wrap(err, "zstd encoder"))
	}
	return &zstdCompressor{level: level, encoder: enc}
}

func (z *zstdCompressor) Compress(dst, src []byte) ([]byte, Setting) {
	dst, prefix := appendLenPrefix(dst, len(src), 0)
	return z.encoder.EncodeAll(src, dst[:prefix]), Setting{Algorithm: Zstd, Level: uint8(z.level)}
}

func (z *zstdCompressor) Close() {
	if err := z.encoder.Close(); err != nil {
		panic(err)
	}
}

type zstdDecompressor struct{}

var _ Decompressor = zstdDecompressor{}

func (zstdDecompressor) DecompressInto(dst, src []byte) error {
	_, prefix, err := readLenPrefix(src)
	if err != nil {
		return err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer decoder.Close()
	result, err := decoder.DecodeAll(src[prefix:], dst[:0])
	if err != nil {
		return base.MarkCorruptionError(err)
	}
	return checkInPlace(result, dst)
}

func (zstdDecompressor) DecompressedLen(b []byte) (int, error) {
	n, _, err := readLenPrefix(b)
	return n, err
}

func (zstdDecompressor) Close() {}

func getZstdDecompressor() zstdDecompressor { return zstdDecompressor{} }
