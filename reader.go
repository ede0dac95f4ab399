// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tabletscan

import (
	"context"

	"github.com/cockroachdb/tabletscan/storage"
)

// ChunkIterator is the output stage of a scanner: the reader itself or a
// projection over it.
type ChunkIterator = storage.ChunkIterator

// Reader is the storage reader a scanner drives.
type Reader interface {
	ChunkIterator

	// Prepare captures the rowsets of the read version.
	Prepare() error
	// Open starts the scan described by params.
	Open(ctx context.Context, params storage.ReaderParams) error
	// Stats returns the accumulated statistics.
	Stats() storage.ReaderStats
	// MutableStats returns the statistics for in-place draining of the
	// realtime fields.
	MutableStats() *storage.ReaderStats
}

var _ Reader = (*storage.TabletReader)(nil)
