// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/dict"
)

// ProjectionIterator returns a subset of the columns of its child. It is used
// when the child reads columns that are only needed to evaluate predicates.
//
// The columns of returned chunks are shared with the child's chunk and are
// only valid until the next call to NextChunk.
type ProjectionIterator struct {
	schema  *chunk.Schema
	child   ChunkIterator
	mapping []int
	buf     *chunk.Chunk
}

var _ ChunkIterator = (*ProjectionIterator)(nil)

// NewProjectionIterator returns an iterator producing the columns of schema
// from child. Every field of schema must be produced by child.
func NewProjectionIterator(schema *chunk.Schema, child ChunkIterator) (*ProjectionIterator, error) {
	p := &ProjectionIterator{schema: schema, child: child}
	for _, f := range schema.Fields() {
		j := child.Schema().FieldIndexByID(f.ID)
		if j < 0 {
			return nil, errors.Newf("projected column %s is not produced by the child iterator", f.Name)
		}
		p.mapping = append(p.mapping, j)
	}
	return p, nil
}

// Schema implements ChunkIterator.
func (p *ProjectionIterator) Schema() *chunk.Schema { return p.schema }

// InitEncodedSchema implements ChunkIterator.
func (p *ProjectionIterator) InitEncodedSchema(dicts dict.ColumnIDToDictMap) error {
	return p.child.InitEncodedSchema(dicts)
}

// NextChunk implements ChunkIterator.
func (p *ProjectionIterator) NextChunk(ctx context.Context, out *chunk.Chunk) error {
	if p.buf == nil {
		p.buf = chunk.New(p.child.Schema(), 0, nil)
	}
	p.buf.Reinit(p.child.Schema(), 0, nil)
	if err := p.child.NextChunk(ctx, p.buf); err != nil {
		out.Reset()
		return err
	}
	for i, j := range p.mapping {
		out.SetColumn(i, p.buf.Column(j))
	}
	return nil
}

// Close implements ChunkIterator.
func (p *ProjectionIterator) Close() error {
	p.buf = nil
	return p.child.Close()
}
