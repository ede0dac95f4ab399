// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tablet

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/swiss"
	"github.com/cockroachdb/tabletscan/rpcretry"
)

// ErrNotFound marks errors returned by a Catalog for unknown tablets.
var ErrNotFound = errors.New("tablet not found")

// Catalog resolves tablet handles.
type Catalog interface {
	// Lookup returns the tablet with the given id and schema hash. A missing
	// tablet returns an error marked with ErrNotFound whose message carries the
	// reason.
	Lookup(ctx context.Context, id ID, schemaHash SchemaHash) (*Tablet, error)
}

type catalogKey struct {
	id         ID
	schemaHash SchemaHash
}

// MemCatalog is an in-memory Catalog. It is safe for concurrent use.
type MemCatalog struct {
	mu struct {
		sync.RWMutex
		tablets swiss.Map[catalogKey, *Tablet]
		// byID records the registered schema hash of each tablet id so a lookup
		// with a stale hash reports the mismatch.
		byID swiss.Map[ID, SchemaHash]
	}
}

var _ Catalog = (*MemCatalog)(nil)

// NewMemCatalog returns an empty catalog.
func NewMemCatalog() *MemCatalog {
	c := &MemCatalog{}
	c.mu.tablets.Init(16)
	c.mu.byID.Init(16)
	return c
}

// Register adds t. Registering a second tablet with the same id replaces the
// first.
func (c *MemCatalog) Register(t *Tablet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.mu.byID.Get(t.ID()); ok {
		c.mu.tablets.Delete(catalogKey{t.ID(), old})
	}
	c.mu.tablets.Put(catalogKey{t.ID(), t.SchemaHash()}, t)
	c.mu.byID.Put(t.ID(), t.SchemaHash())
}

// Drop removes the tablet with the given id.
func (c *MemCatalog) Drop(id ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hash, ok := c.mu.byID.Get(id); ok {
		c.mu.tablets.Delete(catalogKey{id, hash})
		c.mu.byID.Delete(id)
	}
}

// Len returns the number of registered tablets.
func (c *MemCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mu.tablets.Len()
}

// Lookup implements Catalog.
func (c *MemCatalog) Lookup(_ context.Context, id ID, schemaHash SchemaHash) (*Tablet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if t, ok := c.mu.tablets.Get(catalogKey{id, schemaHash}); ok {
		return t, nil
	}
	if hash, ok := c.mu.byID.Get(id); ok {
		return nil, errors.Mark(errors.Newf("schema hash mismatch (current %d)", hash), ErrNotFound)
	}
	return nil, errors.Mark(errors.New("no such tablet"), ErrNotFound)
}

// CatalogConn is a reconnectable connection to a remote catalog service.
type CatalogConn interface {
	rpcretry.Conn
	GetTablet(ctx context.Context, id ID, schemaHash SchemaHash) (*Tablet, error)
}

// RetryingCatalog is a Catalog backed by a remote service. Transport failures
// reconnect and retry once.
type RetryingCatalog struct {
	conn CatalogConn
	opts *rpcretry.Options
}

var _ Catalog = (*RetryingCatalog)(nil)

// NewRetryingCatalog returns a catalog issuing lookups over conn.
func NewRetryingCatalog(conn CatalogConn, opts *rpcretry.Options) *RetryingCatalog {
	return &RetryingCatalog{conn: conn, opts: opts.EnsureDefaults()}
}

// Lookup implements Catalog.
func (c *RetryingCatalog) Lookup(ctx context.Context, id ID, schemaHash SchemaHash) (*Tablet, error) {
	var t *Tablet
	res := rpcretry.Call(ctx, c.conn, c.opts, func(ctx context.Context, conn CatalogConn) error {
		var err error
		t, err = conn.GetTablet(ctx, id, schemaHash)
		return err
	})
	if !res.OK() {
		return nil, res.Err
	}
	return t, nil
}
