// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build cgo

package compression

import (
	"sync"

	"github.com/DataDog/zstd"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/internal/base"
)

type zstdCompressor struct {
	level int
	ctx   zstd.Ctx
}

var _ Compressor = (*zstdCompressor)(nil)

var zstdCompressors = sync.Pool{
	New: func() any { return &zstdCompressor{ctx: zstd.NewCtx()} },
}

func getZstdCompressor(level int) *zstdCompressor {
	z := zstdCompressors.Get().(*zstdCompressor)
	z.level = level
	return z
}

func (z *zstdCompressor) Compress(dst, src []byte) ([]byte, Setting) {
	bound := zstd.CompressBound(len(src))
	dst, prefix := appendLenPrefix(dst, len(src), bound)
	out, err := z.ctx.CompressLevel(dst[prefix:prefix+bound], src, z.level)
	if err != nil {
		panic(errors.Wrap(err, "zstd compression"))
	}
	if &out[0] != &dst[prefix] {
		panic(errors.AssertionFailedf("zstd allocated a new buffer despite CompressBound"))
	}
	return dst[:prefix+len(out)], Setting{Algorithm: Zstd, Level: uint8(z.level)}
}

func (z *zstdCompressor) Close() { zstdCompressors.Put(z) }

type zstdDecompressor struct {
	ctx zstd.Ctx
}

var _ Decompressor = (*zstdDecompressor)(nil)

var zstdDecompressors = sync.Pool{
	New: func() any { return &zstdDecompressor{ctx: zstd.NewCtx()} },
}

func getZstdDecompressor() *zstdDecompressor {
	return zstdDecompressors.Get().(*zstdDecompressor)
}

// DecompressInto requires dst to be exactly the decompressed length.
func (z *zstdDecompressor) DecompressInto(dst, src []byte) error {
	_, prefix, err := readLenPrefix(src)
	if err != nil {
		return err
	}
	src = src[prefix:]
	if len(dst) == 0 {
		return nil
	}
	if len(src) == 0 {
		return base.CorruptionErrorf("tabletscan: zstd page has empty payload")
	}
	n, err := z.ctx.DecompressInto(dst, src)
	if err != nil {
		return base.MarkCorruptionError(err)
	}
	if n != len(dst) {
		return base.CorruptionErrorf("tabletscan: zstd decompressed %d bytes, expected %d", n, len(dst))
	}
	return nil
}

func (*zstdDecompressor) DecompressedLen(b []byte) (int, error) {
	n, _, err := readLenPrefix(b)
	return n, err
}

func (z *zstdDecompressor) Close() { zstdDecompressors.Put(z) }
