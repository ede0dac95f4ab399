// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tabletscan

import "github.com/cockroachdb/errors"

// Errors returned by a TabletScanner are marked with one of the following
// classes and can be tested with errors.Is. The end of a scan is io.EOF.
var (
	// ErrTabletNotFound is returned when the catalog has no tablet with the
	// requested id and schema hash.
	ErrTabletNotFound = errors.New("tabletscan: tablet not found")
	// ErrSchema is returned when a slot or predicate does not match the tablet
	// schema.
	ErrSchema = errors.New("tabletscan: schema mismatch")
	// ErrInternal is returned when the storage reader fails to prepare or open.
	ErrInternal = errors.New("tabletscan: internal error")
	// ErrCancelled is returned by GetNextBatch once the query is cancelled.
	ErrCancelled = errors.New("tabletscan: cancelled")
)
