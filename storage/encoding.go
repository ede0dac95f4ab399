// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/internal/base"
)

// Page payload encodings, before compression:
//
//	int64:   8 bytes little endian per value
//	float64: IEEE 754 bits, 8 bytes little endian per value
//	varchar: uvarint length followed by the bytes, per value

func appendEncodedDatum(buf []byte, t chunk.FieldType, d chunk.Datum) []byte {
	switch t {
	case chunk.TypeInt64:
		return binary.LittleEndian.AppendUint64(buf, uint64(d.Int64()))
	case chunk.TypeFloat64:
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(d.Float64()))
	default:
		s := d.Bytes()
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		return append(buf, s...)
	}
}

// decodePage appends the n values encoded in raw to dst.
func decodePage(t chunk.FieldType, raw []byte, n int, dst chunk.Column) error {
	switch t {
	case chunk.TypeInt64, chunk.TypeFloat64:
		if len(raw) != 8*n {
			return base.CorruptionErrorf("tabletscan: %s page has %d bytes for %d values", t, len(raw), n)
		}
	}
	switch c := dst.(type) {
	case *chunk.Int64Column:
		for i := 0; i < n; i++ {
			c.Values = append(c.Values, int64(binary.LittleEndian.Uint64(raw[8*i:])))
		}
	case *chunk.Float64Column:
		for i := 0; i < n; i++ {
			c.Values = append(c.Values, math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:])))
		}
	case *chunk.BinaryColumn:
		for i := 0; i < n; i++ {
			l, m := binary.Uvarint(raw)
			if m <= 0 || uint64(len(raw)-m) < l {
				return base.CorruptionErrorf("tabletscan: truncated varchar page at value %d", i)
			}
			c.Append(raw[m : m+int(l)])
			raw = raw[m+int(l):]
		}
		if len(raw) != 0 {
			return base.CorruptionErrorf("tabletscan: %d trailing bytes in varchar page", len(raw))
		}
	default:
		return base.CorruptionErrorf("tabletscan: cannot decode %s page into %T", t, dst)
	}
	return nil
}

// bloomKey returns the bytes hashed into bloom filters for d.
func bloomKey(buf []byte, t chunk.FieldType, d chunk.Datum) []byte {
	if t == chunk.TypeVarchar {
		return append(buf[:0], d.Bytes()...)
	}
	return appendEncodedDatum(buf[:0], t, d)
}
