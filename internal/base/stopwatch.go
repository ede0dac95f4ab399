// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"time"

	"github.com/cockroachdb/crlib/crtime"
)

// DeterministicDurationsForTesting is for tests that want deterministic timer
// values. Every stopwatch reports DeterministicDuration while it is in effect.
// The return value is a function that must be called before the test exits.
func DeterministicDurationsForTesting() func() {
	prev := deterministicDurationsForTesting
	deterministicDurationsForTesting = true
	return func() {
		deterministicDurationsForTesting = prev
	}
}

// DeterministicDuration is the value reported by every stopwatch while
// DeterministicDurationsForTesting is in effect.
const DeterministicDuration = time.Microsecond

var deterministicDurationsForTesting = false

// Stopwatch measures elapsed monotonic time.
type Stopwatch struct {
	startTime crtime.Mono
}

// MakeStopwatch returns a started Stopwatch.
func MakeStopwatch() Stopwatch {
	return Stopwatch{startTime: crtime.NowMono()}
}

// Elapsed returns the time since the stopwatch was started.
func (w Stopwatch) Elapsed() time.Duration {
	if deterministicDurationsForTesting {
		return DeterministicDuration
	}
	return w.startTime.Elapsed()
}

// ElapsedNanos is Elapsed in nanoseconds, the unit stats fields are kept in.
func (w Stopwatch) ElapsedNanos() int64 {
	return int64(w.Elapsed())
}
