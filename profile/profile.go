// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package profile implements runtime profiles: trees of named counters and
// timers that operators update while they run and that are rendered when a
// query finishes.
package profile

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/crlib/crtime"
	"github.com/cockroachdb/redact"
	"github.com/cockroachdb/swiss"
)

// Unit is the unit of a counter's value.
type Unit uint8

const (
	// UnitCount is a plain count.
	UnitCount Unit = iota
	// UnitBytes is a byte count.
	UnitBytes
	// UnitTimeNS is a duration in nanoseconds.
	UnitTimeNS
)

// Counter is a named int64 value. Counters are safe for concurrent use.
type Counter struct {
	name  string
	unit  Unit
	value atomic.Int64
}

// Name returns the counter's name.
func (c *Counter) Name() string { return c.name }

// Unit returns the counter's unit.
func (c *Counter) Unit() Unit { return c.unit }

// Add adds delta.
func (c *Counter) Add(delta int64) { c.value.Add(delta) }

// Set overwrites the value.
func (c *Counter) Set(v int64) { c.value.Store(v) }

// Value returns the current value.
func (c *Counter) Value() int64 { return c.value.Load() }

// SafeFormat implements redact.SafeFormatter.
func (c *Counter) SafeFormat(w redact.SafePrinter, _ rune) {
	v := c.Value()
	switch c.unit {
	case UnitBytes:
		w.Printf("%s: %s", redact.Safe(c.name), crhumanize.Bytes(v, crhumanize.Compact, crhumanize.OmitI))
	case UnitTimeNS:
		w.Printf("%s: %s", redact.Safe(c.name), redact.Safe(time.Duration(v)))
	default:
		w.Printf("%s: %s", redact.Safe(c.name), crhumanize.Count(v, crhumanize.Compact))
	}
}

// Timer measures the time from its start until Stop and adds it to a
// counter.
type Timer struct {
	c     *Counter
	start crtime.Mono
}

// StartTimer starts measuring into c. A nil counter yields a no-op timer.
func StartTimer(c *Counter) Timer {
	if c == nil {
		return Timer{}
	}
	return Timer{c: c, start: crtime.NowMono()}
}

// Stop adds the elapsed time to the counter and returns it.
func (t Timer) Stop() time.Duration {
	if t.c == nil {
		return 0
	}
	d := t.start.Elapsed()
	t.c.Add(int64(d))
	return d
}

// Profile is a named set of counters with child profiles. It is safe for
// concurrent use.
type Profile struct {
	name string

	mu struct {
		sync.Mutex
		counters []*Counter
		byName   swiss.Map[string, *Counter]
		children []*Profile
		infos    []info
	}
}

type info struct {
	key, value string
}

// New returns an empty profile.
func New(name string) *Profile {
	p := &Profile{name: name}
	p.mu.byName.Init(8)
	return p
}

// Name returns the profile's name.
func (p *Profile) Name() string { return p.name }

// AddCounter returns the named counter, creating it with the given unit if
// it does not exist.
func (p *Profile) AddCounter(name string, unit Unit) *Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.mu.byName.Get(name); ok {
		return c
	}
	c := &Counter{name: name, unit: unit}
	p.mu.byName.Put(name, c)
	p.mu.counters = append(p.mu.counters, c)
	return c
}

// AddTimer is AddCounter(name, UnitTimeNS).
func (p *Profile) AddTimer(name string) *Counter {
	return p.AddCounter(name, UnitTimeNS)
}

// Counter returns the named counter, or nil.
func (p *Profile) Counter(name string) *Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, _ := p.mu.byName.Get(name)
	return c
}

// Counters returns the counters in creation order.
func (p *Profile) Counters() []*Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Counter(nil), p.mu.counters...)
}

// CreateChild returns the named child profile, creating it if needed.
func (p *Profile) CreateChild(name string) *Profile {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.mu.children {
		if c.name == name {
			return c
		}
	}
	c := New(name)
	p.mu.children = append(p.mu.children, c)
	return c
}

// Child returns the named child profile, or nil.
func (p *Profile) Child(name string) *Profile {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.mu.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// AddInfoString records a key/value annotation, replacing any previous value
// for key.
func (p *Profile) AddInfoString(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.mu.infos {
		if p.mu.infos[i].key == key {
			p.mu.infos[i].value = value
			return
		}
	}
	p.mu.infos = append(p.mu.infos, info{key: key, value: value})
}

// InfoString returns the annotation for key.
func (p *Profile) InfoString(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, in := range p.mu.infos {
		if in.key == key {
			return in.value, true
		}
	}
	return "", false
}

// String implements fmt.Stringer.
func (p *Profile) String() string {
	return redact.StringWithoutMarkers(p)
}

// SafeFormat implements redact.SafeFormatter. Each profile is rendered as its
// name followed by its annotations, its counters and its children, indented
// two spaces per level.
func (p *Profile) SafeFormat(w redact.SafePrinter, _ rune) {
	p.format(w, 0)
}

func (p *Profile) format(w redact.SafePrinter, depth int) {
	indent := redact.SafeString(strings.Repeat("  ", depth))
	p.mu.Lock()
	counters := append([]*Counter(nil), p.mu.counters...)
	children := append([]*Profile(nil), p.mu.children...)
	infos := append([]info(nil), p.mu.infos...)
	p.mu.Unlock()

	w.Printf("%s%s:\n", indent, redact.Safe(p.name))
	for _, in := range infos {
		w.Printf("%s  - %s: %s\n", indent, redact.Safe(in.key), in.value)
	}
	for _, c := range counters {
		w.Printf("%s  - %s\n", indent, c)
	}
	for _, c := range children {
		c.format(w, depth+1)
	}
}
