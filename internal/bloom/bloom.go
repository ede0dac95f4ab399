// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package bloom implements the cache-line blocked Bloom filters stored per
// page of a rowset column. A filter answers "may this page contain value v"
// for equality and IN predicates.
package bloom

import (
	"encoding/binary"
	"fmt"
)

const (
	cacheLineSize = 64
	cacheLineBits = cacheLineSize * 8
)

// This table contains the optimal number of probes for each bitsPerKey. For
// bits per key over 10, probes[10] should be used.
//
// The standard bloom filter formula does not yield the optimal number for this
// scheme, which constrains all probes to be inside the same cache line.
var probes = [11]uint32{
	1:  1,
	2:  1,
	3:  2,
	4:  3,
	5:  3,
	6:  4,
	7:  4,
	8:  5,
	9:  5,
	10: 6,
}

func calculateProbes(bitsPerKey uint32) uint32 {
	if bitsPerKey > 10 {
		return probes[10]
	}
	return probes[bitsPerKey]
}

// hash implements a hashing algorithm similar to the Murmur hash.
func hash(b []byte) uint32 {
	const (
		seed = 0xbc9f1d34
		m    = 0xc6a4a793
	)
	h := uint32(seed) ^ (uint32(len(b)) * m)
	for ; len(b) >= 4; b = b[4:] {
		h += uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		h *= m
		h ^= h >> 16
	}

	// Trailing bytes are sign-extended, matching the RocksDB hash.
	switch len(b) {
	case 3:
		h += uint32(int8(b[2])) << 16
		fallthrough
	case 2:
		h += uint32(int8(b[1])) << 8
		fallthrough
	case 1:
		h += uint32(int8(b[0]))
		h *= m
		h ^= h >> 24
	}
	return h
}

// Filter is an encoded Bloom filter: nLines cache lines of bits followed by
// the probe count (1 byte) and the line count (4 bytes, little endian).
type Filter []byte

// MayContain returns false if key was definitely not added to the filter. An
// empty filter contains nothing.
func (f Filter) MayContain(key []byte) bool {
	if len(f) <= 5 {
		return false
	}
	n := len(f) - 5
	nProbes := f[n]
	nLines := binary.LittleEndian.Uint32(f[n+1:])
	if nLines == 0 {
		return false
	}
	lineBits := 8 * (uint32(n) / nLines)

	h := hash(key)
	delta := h>>17 | h<<15
	b := (h % nLines) * lineBits
	for j := uint8(0); j < nProbes; j++ {
		bitPos := b + (h % lineBits)
		if f[bitPos/8]&(1<<(bitPos%8)) == 0 {
			return false
		}
		h += delta
	}
	return true
}

// Writer accumulates keys and builds a Filter.
type Writer struct {
	bitsPerKey uint32
	numProbes  uint32
	hashes     []uint32
}

// NewWriter returns a Writer producing filters with about bitsPerKey bits per
// added key. A good value is 10, which yields a filter with ~1% false
// positive rate.
func NewWriter(bitsPerKey uint32) *Writer {
	if bitsPerKey < 1 {
		panic(fmt.Sprintf("invalid bitsPerKey %d", bitsPerKey))
	}
	return &Writer{bitsPerKey: bitsPerKey, numProbes: calculateProbes(bitsPerKey)}
}

// AddKey adds a key to the filter being built.
func (w *Writer) AddKey(key []byte) {
	w.hashes = append(w.hashes, hash(key))
}

// NumKeys returns the number of keys added since the last Finish.
func (w *Writer) NumKeys() int { return len(w.hashes) }

func calculateNumLines(numHashes int, bitsPerKey uint32) uint32 {
	nLines := (uint64(numHashes)*uint64(bitsPerKey) + cacheLineBits - 1) / cacheLineBits
	// Make nLines an odd number to make sure more bits are involved when
	// determining which block.
	return uint32(nLines | 1)
}

// Finish returns the filter and resets the writer. It returns nil if no keys
// were added.
func (w *Writer) Finish() Filter {
	if len(w.hashes) == 0 {
		return nil
	}
	nLines := calculateNumLines(len(w.hashes), w.bitsPerKey)
	nBytes := nLines * cacheLineSize
	filter := make([]byte, nBytes+5)
	for _, h := range w.hashes {
		delta := h>>17 | h<<15
		b := (h % nLines) * cacheLineBits
		for j := uint32(0); j < w.numProbes; j++ {
			bitPos := b + (h % cacheLineBits)
			filter[bitPos/8] |= 1 << (bitPos % 8)
			h += delta
		}
	}
	filter[nBytes] = byte(w.numProbes)
	binary.LittleEndian.PutUint32(filter[nBytes+1:], nLines)
	w.hashes = w.hashes[:0]
	return filter
}
