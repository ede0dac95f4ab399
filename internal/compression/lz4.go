// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compression

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/internal/base"
	"github.com/pierrec/lz4/v4"
)

// lz4Compressor writes a length prefixed LZ4 block. Incompressible pages are
// stored uncompressed.
type lz4Compressor struct{}

var _ Compressor = lz4Compressor{}

func (lz4Compressor) Compress(dst, src []byte) ([]byte, Setting) {
	dst, prefix := appendLenPrefix(dst, len(src), lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, dst[prefix:], nil)
	if err != nil {
		panic(errors.Wrap(err, "lz4 compression"))
	}
	if n == 0 {
		return noopCompressor{}.Compress(dst, src)
	}
	return dst[:prefix+n], LZ4Default
}

func (lz4Compressor) Close() {}

type lz4Decompressor struct{}

var _ Decompressor = lz4Decompressor{}

func (lz4Decompressor) DecompressInto(buf, compressed []byte) error {
	_, prefix, err := readLenPrefix(compressed)
	if err != nil {
		return err
	}
	n, err := lz4.UncompressBlock(compressed[prefix:], buf)
	if err != nil {
		return base.MarkCorruptionError(err)
	}
	if n != len(buf) {
		return base.CorruptionErrorf("tabletscan: lz4 decompressed %d bytes, expected %d", n, len(buf))
	}
	return nil
}

func (lz4Decompressor) DecompressedLen(b []byte) (int, error) {
	n, _, err := readLenPrefix(b)
	return n, err
}

func (lz4Decompressor) Close() {}
