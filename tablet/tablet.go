// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tablet

import (
	"fmt"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// ID identifies a tablet.
type ID int64

// SchemaHash identifies the schema revision of a tablet. A tablet is looked
// up by the (ID, SchemaHash) pair.
type SchemaHash uint32

// Version is a data version. Versions increase with every load into a tablet.
type Version int64

// VersionRange is the inclusive range of versions whose data a rowset holds.
type VersionRange struct {
	Start, End Version
}

func (r VersionRange) String() string { return fmt.Sprintf("[%d-%d]", r.Start, r.End) }

// Rowset is the unit of data attached to a tablet. The storage package
// provides the implementation; the tablet only tracks versions.
type Rowset interface {
	Versions() VersionRange
	NumRows() int64
}

// ErrVersionNotFound is returned by CaptureRowsets when the tablet has no
// data up to the requested version.
var ErrVersionNotFound = errors.New("version not found")

// Tablet is a horizontal shard of a table. The identity and schema are
// immutable; rowsets may be appended concurrently with readers, which capture
// a consistent list with CaptureRowsets.
type Tablet struct {
	id         ID
	schemaHash SchemaHash
	schema     *Schema

	mu struct {
		sync.Mutex
		rowsets    []Rowset
		maxVersion Version
	}
}

// New returns an empty tablet.
func New(id ID, schemaHash SchemaHash, schema *Schema) *Tablet {
	return &Tablet{id: id, schemaHash: schemaHash, schema: schema}
}

// ID returns the tablet id.
func (t *Tablet) ID() ID { return t.id }

// SchemaHash returns the schema hash.
func (t *Tablet) SchemaHash() SchemaHash { return t.schemaHash }

// Schema returns the tablet schema.
func (t *Tablet) Schema() *Schema { return t.schema }

// FullName returns "<id>.<schema_hash>".
func (t *Tablet) FullName() string {
	return fmt.Sprintf("%d.%d", t.id, t.schemaHash)
}

// String implements fmt.Stringer.
func (t *Tablet) String() string {
	return redact.StringWithoutMarkers(t)
}

// SafeFormat implements redact.SafeFormatter.
func (t *Tablet) SafeFormat(p redact.SafePrinter, verb rune) {
	p.Printf("%d.%d", redact.Safe(t.id), redact.Safe(t.schemaHash))
}

// MaxVersion returns the highest version the tablet holds data for.
func (t *Tablet) MaxVersion() Version {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mu.maxVersion
}

// AddRowset attaches a rowset. Its start version must directly follow the
// tablet's current max version.
func (t *Tablet) AddRowset(r Rowset) error {
	v := r.Versions()
	if v.Start > v.End {
		return errors.Newf("tablet %s: invalid rowset versions %s", t, v)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if v.Start != t.mu.maxVersion+1 {
		return errors.Newf("tablet %s: rowset versions %s do not follow version %d",
			t, v, t.mu.maxVersion)
	}
	t.mu.rowsets = append(t.mu.rowsets, r)
	t.mu.maxVersion = v.End
	return nil
}

// CaptureRowsets returns the rowsets that make up version v, in version
// order. v must land on a rowset boundary.
func (t *Tablet) CaptureRowsets(v Version) ([]Rowset, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v > t.mu.maxVersion {
		return nil, errors.Wrapf(ErrVersionNotFound, "tablet %s: version %d > max version %d",
			t, v, t.mu.maxVersion)
	}
	i := 0
	for i < len(t.mu.rowsets) && t.mu.rowsets[i].Versions().End <= v {
		i++
	}
	if i < len(t.mu.rowsets) && t.mu.rowsets[i].Versions().Start <= v {
		return nil, errors.Wrapf(ErrVersionNotFound, "tablet %s: version %d is inside rowset %s",
			t, v, t.mu.rowsets[i].Versions())
	}
	return slices.Clone(t.mu.rowsets[:i]), nil
}
