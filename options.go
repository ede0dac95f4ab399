// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tabletscan

import (
	"os"

	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/internal/base"
	"github.com/cockroachdb/tabletscan/storage"
	"github.com/cockroachdb/tabletscan/tablet"
)

// Logger defines an interface for writing log messages.
type Logger = base.Logger

// DefaultLogger logs to the Go stdlib logs.
var DefaultLogger = base.DefaultLogger{}

// ReaderFactory constructs the storage reader of a scanner. The schema holds
// the reader columns in reader column order.
type ReaderFactory func(
	t *tablet.Tablet, version tablet.Version, schema *chunk.Schema, opts *storage.ReaderOptions,
) Reader

// NewStorageReader is the default ReaderFactory.
func NewStorageReader(
	t *tablet.Tablet, version tablet.Version, schema *chunk.Schema, opts *storage.ReaderOptions,
) Reader {
	return storage.NewTabletReader(t, version, schema, opts)
}

// Options holds the configuration shared by the scanners of a process. Every
// scanner built from the same Options shares its column pool, page cache,
// read limiter and metrics.
type Options struct {
	// ChunkSize is the maximum number of rows per chunk.
	//
	// The default value is 4096.
	ChunkSize int

	// DisablePageCache stops readers from reading or populating PageCache.
	DisablePageCache bool

	// LargeColumnAvgRowBytes bounds the average row width of pooled varchar
	// columns. Columns whose buffers exceed ChunkSize*LargeColumnAvgRowBytes
	// are dropped from ColumnPool when a scanner closes.
	//
	// The default value is 512.
	LargeColumnAvgRowBytes int

	// Host identifies this process in error messages.
	//
	// The default value is the host name.
	Host string

	// Catalog resolves tablets. Required.
	Catalog tablet.Catalog

	// Logger used to write log messages.
	//
	// The default logger uses the Go standard library log package.
	Logger Logger

	// Metrics, if set, receives the process-wide scan totals.
	Metrics *Metrics

	// ColumnPool supplies varchar columns to readers.
	ColumnPool *chunk.BinaryColumnPool

	// PageCache caches decompressed pages.
	//
	// The default value is a 64 MB cache.
	PageCache *storage.PageCache

	// ReadBytesPerSec, if positive, limits the compressed bytes per second all
	// scanners read from rowsets.
	ReadBytesPerSec int64

	// ReaderFactory constructs storage readers.
	//
	// The default value is NewStorageReader.
	ReaderFactory ReaderFactory

	readLimiter *storage.ReadLimiter
}

// EnsureDefaults ensures that the default values for all options are set if a
// valid value was not already specified. Returns the new options.
func (o *Options) EnsureDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 4096
	}
	if o.LargeColumnAvgRowBytes <= 0 {
		o.LargeColumnAvgRowBytes = 512
	}
	if o.Host == "" {
		if h, err := os.Hostname(); err == nil {
			o.Host = h
		} else {
			o.Host = "localhost"
		}
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger
	}
	if o.ColumnPool == nil {
		o.ColumnPool = &chunk.BinaryColumnPool{DefaultCapacity: o.ChunkSize}
	}
	if o.PageCache == nil && !o.DisablePageCache {
		o.PageCache = storage.NewPageCache(64 << 20)
	}
	if o.ReaderFactory == nil {
		o.ReaderFactory = NewStorageReader
	}
	if o.ReadBytesPerSec > 0 && o.readLimiter == nil {
		o.readLimiter = storage.NewReadLimiter(o.ReadBytesPerSec)
	}
	return o
}

// largeColumnLimit is the byte size above which pooled columns are released.
func (o *Options) largeColumnLimit() int {
	return o.ChunkSize * o.LargeColumnAvgRowBytes
}

func (o *Options) readerOptions() *storage.ReaderOptions {
	ro := &storage.ReaderOptions{
		ChunkSize:   o.ChunkSize,
		ColumnPool:  o.ColumnPool,
		ReadLimiter: o.readLimiter,
		Logger:      o.Logger,
	}
	if !o.DisablePageCache {
		ro.PageCache = o.PageCache
	}
	return ro.EnsureDefaults()
}
