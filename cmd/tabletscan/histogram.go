// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	minLatency = 100 * time.Nanosecond
	maxLatency = 10 * time.Second
)

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(minLatency.Nanoseconds(), maxLatency.Nanoseconds(), 1)
}

// latencyHistogram records batch latencies from concurrent scanners.
type latencyHistogram struct {
	mu struct {
		sync.Mutex
		h *hdrhistogram.Histogram
	}
}

func newLatencyHistogram() *latencyHistogram {
	l := &latencyHistogram{}
	l.mu.h = newHistogram()
	return l
}

func (l *latencyHistogram) Record(elapsed time.Duration) {
	if elapsed < minLatency {
		elapsed = minLatency
	} else if elapsed > maxLatency {
		elapsed = maxLatency
	}

	l.mu.Lock()
	err := l.mu.h.RecordValue(elapsed.Nanoseconds())
	l.mu.Unlock()

	if err != nil {
		// Values are clamped to the histogram's range.
		panic(fmt.Sprintf("recording value: %s", err))
	}
}

func (l *latencyHistogram) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	h := l.mu.h
	return fmt.Sprintf("__batches____p50(ms)____p95(ms)____p99(ms)____pMax(ms)\n%9d %10.3f %10.3f %10.3f %11.3f\n",
		h.TotalCount(),
		time.Duration(h.ValueAtQuantile(50)).Seconds()*1000,
		time.Duration(h.ValueAtQuantile(95)).Seconds()*1000,
		time.Duration(h.ValueAtQuantile(99)).Seconds()*1000,
		time.Duration(h.ValueAtQuantile(100)).Seconds()*1000,
	)
}
