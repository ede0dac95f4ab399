// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

import (
	"sync"

	"github.com/cockroachdb/swiss"
	"github.com/cockroachdb/tabletscan/internal/invariants"
	"github.com/cockroachdb/tabletscan/tablet"
	"github.com/google/uuid"
)

type pageKey struct {
	rowset uuid.UUID
	col    tablet.ColumnID
	page   int32
}

// PageCache caches decompressed pages shared by all readers. Entries are
// evicted in insertion order once the cached bytes exceed the capacity. It is
// safe for concurrent use.
type PageCache struct {
	capacity int64

	mu struct {
		sync.Mutex
		pages swiss.Map[pageKey, []byte]
		// fifo holds keys in insertion order; head is the next eviction
		// candidate.
		fifo   []pageKey
		head   int
		size   int64
		hits   int64
		misses int64
	}
}

// NewPageCache returns a cache holding up to capacity bytes of pages.
func NewPageCache(capacity int64) *PageCache {
	c := &PageCache{capacity: capacity}
	c.mu.pages.Init(64)
	return c
}

func (c *PageCache) get(k pageKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.mu.pages.Get(k)
	if ok {
		c.mu.hits++
	} else {
		c.mu.misses++
	}
	return v, ok
}

func (c *PageCache) put(k pageKey, v []byte) {
	if int64(len(v)) > c.capacity {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.mu.pages.Get(k); ok {
		return
	}
	c.mu.pages.Put(k, v)
	c.mu.fifo = append(c.mu.fifo, k)
	c.mu.size += int64(len(v))
	for c.mu.size > c.capacity && c.mu.head < len(c.mu.fifo) {
		old := c.mu.fifo[c.mu.head]
		c.mu.head++
		if ov, ok := c.mu.pages.Get(old); ok {
			c.mu.size = invariants.SafeSub(c.mu.size, int64(len(ov)))
			c.mu.pages.Delete(old)
		}
	}
	if c.mu.head > len(c.mu.fifo)/2 {
		c.mu.fifo = append(c.mu.fifo[:0], c.mu.fifo[c.mu.head:]...)
		c.mu.head = 0
	}
}

// PageCacheMetrics describes the state of a PageCache.
type PageCacheMetrics struct {
	Count  int
	Size   int64
	Hits   int64
	Misses int64
}

// Metrics returns the cache's current metrics.
func (c *PageCache) Metrics() PageCacheMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return PageCacheMetrics{
		Count:  c.mu.pages.Len(),
		Size:   c.mu.size,
		Hits:   c.mu.hits,
		Misses: c.mu.misses,
	}
}
