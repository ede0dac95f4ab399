// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/tokenbucket"
)

// ReadLimiter paces page reads to a byte rate. A single ReadLimiter may be
// shared by concurrent readers.
type ReadLimiter struct {
	mu struct {
		sync.Mutex
		tb tokenbucket.TokenBucket
	}
}

// NewReadLimiter returns a limiter allowing bytesPerSec bytes per second with
// a burst of one second's worth.
func NewReadLimiter(bytesPerSec int64) *ReadLimiter {
	l := &ReadLimiter{}
	l.mu.tb.Init(tokenbucket.TokensPerSecond(bytesPerSec), tokenbucket.Tokens(bytesPerSec))
	return l
}

// Wait blocks until n bytes may be read or ctx is done. A request larger than
// the burst is admitted once the bucket is full and leaves it in debt.
func (l *ReadLimiter) Wait(ctx context.Context, n int64) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.mu.Lock()
		ok, d := l.mu.tb.TryToFulfill(tokenbucket.Tokens(n))
		l.mu.Unlock()
		if ok {
			return nil
		}
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
