// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package expr

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/chunk"
)

type contextState uint8

const (
	stateCreated contextState = iota
	statePrepared
	stateOpened
	stateClosed
)

// Context is the per-operator evaluation state of one conjunct. Plan nodes
// hold prototype contexts; every consumer evaluates through its own clone.
type Context struct {
	root  Expr
	state contextState
}

// NewContext returns a context evaluating root.
func NewContext(root Expr) *Context {
	return &Context{root: root}
}

// Root returns the expression.
func (c *Context) Root() Expr { return c.root }

// Prepare validates the expression.
func (c *Context) Prepare() error {
	if c.root == nil {
		return errors.AssertionFailedf("expression context has no root")
	}
	if c.state == stateCreated {
		c.state = statePrepared
	}
	return nil
}

// Open makes the context ready for evaluation.
func (c *Context) Open() error {
	switch c.state {
	case stateCreated:
		return errors.AssertionFailedf("open of unprepared expression context")
	case stateClosed:
		return errors.AssertionFailedf("open of closed expression context")
	}
	c.state = stateOpened
	return nil
}

// Clone returns an opened copy of a prepared or opened context. The
// expression tree is immutable and shared.
func (c *Context) Clone() (*Context, error) {
	if c.state == stateCreated || c.state == stateClosed {
		return nil, errors.AssertionFailedf("clone of expression context in state %d", c.state)
	}
	return &Context{root: c.root, state: stateOpened}, nil
}

// Close releases the context. Close is idempotent.
func (c *Context) Close() { c.state = stateClosed }

// IsClosed returns true after Close.
func (c *Context) IsClosed() bool { return c.state == stateClosed }

// CloneIfNotExists fills *dst with clones of src unless *dst already holds
// contexts.
func CloneIfNotExists(src []*Context, dst *[]*Context) error {
	if len(*dst) > 0 {
		return nil
	}
	out := make([]*Context, 0, len(src))
	for _, c := range src {
		cl, err := c.Clone()
		if err != nil {
			CloseContexts(out)
			return err
		}
		out = append(out, cl)
	}
	*dst = out
	return nil
}

// CloseContexts closes every context.
func CloseContexts(ctxs []*Context) {
	for _, c := range ctxs {
		c.Close()
	}
}

var selPool = sync.Pool{
	New: func() interface{} {
		s := make([]uint8, 0, 4096)
		return &s
	},
}

// EvalConjuncts filters c in place, keeping rows for which every conjunct is
// true.
func EvalConjuncts(ctxs []*Context, c *chunk.Chunk) error {
	n := c.NumRows()
	if len(ctxs) == 0 || n == 0 {
		return nil
	}
	sp := selPool.Get().(*[]uint8)
	defer selPool.Put(sp)
	sel := *sp
	if cap(sel) < n {
		sel = make([]uint8, n)
	}
	sel = sel[:n]
	*sp = sel
	for i := range sel {
		sel[i] = 1
	}
	for _, ctx := range ctxs {
		if ctx.state != stateOpened {
			return errors.AssertionFailedf("evaluating expression context that is not open")
		}
		for i := range sel {
			if sel[i] == 0 {
				continue
			}
			d, err := ctx.root.Eval(c, i)
			if err != nil {
				return errors.Wrapf(err, "evaluating %s", ctx.root)
			}
			if !isTrue(d) {
				sel[i] = 0
			}
		}
	}
	c.Filter(sel)
	return nil
}
