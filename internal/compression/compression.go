// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package compression implements the page codecs of rowset files.
package compression

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/minio/minlz"
)

// Algorithm identifies a compression algorithm. The value is persisted in page
// headers and must not change.
type Algorithm uint8

const (
	NoAlgorithm Algorithm = iota
	SnappyAlgorithm
	Zstd
	MinLZ
	LZ4

	numAlgorithms
)

var algorithmNames = [numAlgorithms]string{
	NoAlgorithm:     "NoCompression",
	SnappyAlgorithm: "Snappy",
	Zstd:            "ZSTD",
	MinLZ:           "MinLZ",
	LZ4:             "LZ4",
}

// String implements fmt.Stringer.
func (a Algorithm) String() string {
	if a < numAlgorithms {
		return algorithmNames[a]
	}
	return fmt.Sprintf("unknown(%d)", uint8(a))
}

// SafeFormat implements redact.SafeFormatter.
func (a Algorithm) SafeFormat(p redact.SafePrinter, verb rune) {
	p.SafeString(redact.SafeString(a.String()))
}

// Setting is an algorithm together with a level.
type Setting struct {
	Algorithm Algorithm
	// Level is algorithm specific; zero for algorithms without levels.
	Level uint8
}

// String implements fmt.Stringer.
func (s Setting) String() string {
	if s.Level == 0 {
		return s.Algorithm.String()
	}
	return fmt.Sprintf("%s%d", s.Algorithm, s.Level)
}

// Predefined settings.
var (
	NoCompression = Setting{Algorithm: NoAlgorithm}
	Snappy        = Setting{Algorithm: SnappyAlgorithm}
	MinLZFastest  = Setting{Algorithm: MinLZ, Level: uint8(minlz.LevelFastest)}
	MinLZBalanced = Setting{Algorithm: MinLZ, Level: uint8(minlz.LevelBalanced)}
	ZstdLevel1    = Setting{Algorithm: Zstd, Level: 1}
	ZstdLevel3    = Setting{Algorithm: Zstd, Level: 3}
	LZ4Default    = Setting{Algorithm: LZ4}
)

var presets = []Setting{
	NoCompression, Snappy, MinLZFastest, MinLZBalanced, ZstdLevel1, ZstdLevel3, LZ4Default,
}

// ParseSetting returns the preset with the given name (case insensitive),
// e.g. "snappy", "zstd3" or "minlz1".
func ParseSetting(s string) (Setting, error) {
	for _, p := range presets {
		if strings.EqualFold(p.String(), s) {
			return p, nil
		}
	}
	switch strings.ToLower(s) {
	case "none", "":
		return NoCompression, nil
	case "zstd":
		return ZstdLevel3, nil
	case "minlz":
		return MinLZFastest, nil
	}
	return Setting{}, errors.Newf("unknown compression setting %q", s)
}

// Compressor compresses pages. The returned Setting is the one actually
// used; a compressor may fall back to another algorithm (or to no
// compression) when its own cannot encode the input.
type Compressor interface {
	Compress(dst, src []byte) ([]byte, Setting)
	// Close must be called when the Compressor is no longer needed.
	Close()
}

// GetCompressor returns a Compressor for s.
func GetCompressor(s Setting) Compressor {
	switch s.Algorithm {
	case NoAlgorithm:
		return noopCompressor{}
	case SnappyAlgorithm:
		return snappyCompressor{}
	case Zstd:
		return getZstdCompressor(int(s.Level))
	case MinLZ:
		return getMinlzCompressor(int(s.Level))
	case LZ4:
		return lz4Compressor{}
	default:
		panic(errors.AssertionFailedf("invalid compression setting %s", s))
	}
}

// Decompressor decompresses pages.
type Decompressor interface {
	// DecompressInto decompresses compressed into buf. The buf slice must have
	// the exact size as the decompressed value.
	DecompressInto(buf, compressed []byte) error
	// DecompressedLen returns the length of the provided block once
	// decompressed.
	DecompressedLen(b []byte) (decompressedLen int, err error)
	// Close must be called when the Decompressor is no longer needed.
	Close()
}

// GetDecompressor returns a Decompressor for algo.
func GetDecompressor(algo Algorithm) Decompressor {
	switch algo {
	case NoAlgorithm:
		return noopDecompressor{}
	case SnappyAlgorithm:
		return snappyDecompressor{}
	case Zstd:
		return getZstdDecompressor()
	case MinLZ:
		return minlzDecompressor{}
	case LZ4:
		return lz4Decompressor{}
	default:
		panic(errors.AssertionFailedf("invalid compression algorithm %d", algo))
	}
}

// Decompress decompresses a page into a newly allocated buffer.
func Decompress(algo Algorithm, b []byte) ([]byte, error) {
	if algo >= numAlgorithms {
		return nil, errors.Newf("unknown compression algorithm %d", errors.Safe(uint8(algo)))
	}
	d := GetDecompressor(algo)
	defer d.Close()
	n, err := d.DecompressedLen(b)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if err := d.DecompressInto(buf, b); err != nil {
		return nil, err
	}
	return buf, nil
}
