// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package expr implements the scalar conjuncts a scan evaluates on the chunks
// it returns. Conjuncts reference chunk columns through query slot ids, which
// the scanner binds on every chunk.
package expr

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/chunk"
)

// Expr is a scalar expression over the rows of a chunk. Boolean results are
// Int64 datums holding 0 or 1; comparisons involving NULL are false.
type Expr interface {
	Eval(c *chunk.Chunk, row int) (chunk.Datum, error)
	// Slots appends the slot ids the expression references.
	Slots(dst []chunk.SlotID) []chunk.SlotID
	String() string
}

var (
	trueDatum  = chunk.Int64Datum(1)
	falseDatum = chunk.Int64Datum(0)
)

func boolDatum(b bool) chunk.Datum {
	if b {
		return trueDatum
	}
	return falseDatum
}

func isTrue(d chunk.Datum) bool {
	if d.IsNull() {
		return false
	}
	if d.Type() == chunk.TypeVarchar {
		return d.Bytes() != ""
	}
	return d.Float64() != 0
}

// SlotRef reads the column bound to a slot.
type SlotRef struct {
	Slot chunk.SlotID
	Name string
}

func (e *SlotRef) Eval(c *chunk.Chunk, row int) (chunk.Datum, error) {
	col, ok := c.ColumnBySlotID(e.Slot)
	if !ok {
		return chunk.Datum{}, errors.Newf("slot %d (%s) is not bound in chunk", e.Slot, e.Name)
	}
	return col.Datum(row), nil
}

func (e *SlotRef) Slots(dst []chunk.SlotID) []chunk.SlotID { return append(dst, e.Slot) }
func (e *SlotRef) String() string                          { return "$" + e.Name }

// Literal is a constant.
type Literal struct {
	Value chunk.Datum
}

func (e *Literal) Eval(*chunk.Chunk, int) (chunk.Datum, error) { return e.Value, nil }
func (e *Literal) Slots(dst []chunk.SlotID) []chunk.SlotID     { return dst }

func (e *Literal) String() string {
	if e.Value.Type() == chunk.TypeVarchar {
		return "'" + e.Value.Bytes() + "'"
	}
	return e.Value.String()
}

// CmpOp is a comparison operator.
type CmpOp uint8

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

var cmpNames = [...]string{CmpEq: "=", CmpNe: "!=", CmpLt: "<", CmpLe: "<=", CmpGt: ">", CmpGe: ">="}

func (o CmpOp) String() string { return cmpNames[o] }

// Compare compares two expressions.
type Compare struct {
	Op          CmpOp
	Left, Right Expr
}

func (e *Compare) Eval(c *chunk.Chunk, row int) (chunk.Datum, error) {
	l, err := e.Left.Eval(c, row)
	if err != nil {
		return chunk.Datum{}, err
	}
	r, err := e.Right.Eval(c, row)
	if err != nil {
		return chunk.Datum{}, err
	}
	if l.IsNull() || r.IsNull() {
		return falseDatum, nil
	}
	v := l.Compare(r)
	switch e.Op {
	case CmpEq:
		return boolDatum(v == 0), nil
	case CmpNe:
		return boolDatum(v != 0), nil
	case CmpLt:
		return boolDatum(v < 0), nil
	case CmpLe:
		return boolDatum(v <= 0), nil
	case CmpGt:
		return boolDatum(v > 0), nil
	default:
		return boolDatum(v >= 0), nil
	}
}

func (e *Compare) Slots(dst []chunk.SlotID) []chunk.SlotID {
	return e.Right.Slots(e.Left.Slots(dst))
}

func (e *Compare) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Op, e.Left, e.Right)
}

// And is the conjunction of its children. Evaluation stops at the first
// false child.
type And struct {
	Children []Expr
}

func (e *And) Eval(c *chunk.Chunk, row int) (chunk.Datum, error) {
	for _, ch := range e.Children {
		d, err := ch.Eval(c, row)
		if err != nil || !isTrue(d) {
			return falseDatum, err
		}
	}
	return trueDatum, nil
}

func (e *And) Slots(dst []chunk.SlotID) []chunk.SlotID { return slotsOf(dst, e.Children) }
func (e *And) String() string                          { return nary("and", e.Children) }

// Or is the disjunction of its children.
type Or struct {
	Children []Expr
}

func (e *Or) Eval(c *chunk.Chunk, row int) (chunk.Datum, error) {
	for _, ch := range e.Children {
		d, err := ch.Eval(c, row)
		if err != nil {
			return falseDatum, err
		}
		if isTrue(d) {
			return trueDatum, nil
		}
	}
	return falseDatum, nil
}

func (e *Or) Slots(dst []chunk.SlotID) []chunk.SlotID { return slotsOf(dst, e.Children) }
func (e *Or) String() string                          { return nary("or", e.Children) }

// Not negates its child.
type Not struct {
	Child Expr
}

func (e *Not) Eval(c *chunk.Chunk, row int) (chunk.Datum, error) {
	d, err := e.Child.Eval(c, row)
	if err != nil {
		return falseDatum, err
	}
	return boolDatum(!isTrue(d)), nil
}

func (e *Not) Slots(dst []chunk.SlotID) []chunk.SlotID { return e.Child.Slots(dst) }
func (e *Not) String() string                          { return fmt.Sprintf("(not %s)", e.Child) }

// In tests membership in a constant list.
type In struct {
	Child  Expr
	Values []chunk.Datum
}

func (e *In) Eval(c *chunk.Chunk, row int) (chunk.Datum, error) {
	d, err := e.Child.Eval(c, row)
	if err != nil || d.IsNull() {
		return falseDatum, err
	}
	for _, v := range e.Values {
		if d.Compare(v) == 0 {
			return trueDatum, nil
		}
	}
	return falseDatum, nil
}

func (e *In) Slots(dst []chunk.SlotID) []chunk.SlotID { return e.Child.Slots(dst) }

func (e *In) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "(in %s", e.Child)
	for _, v := range e.Values {
		b.WriteByte(' ')
		b.WriteString((&Literal{Value: v}).String())
	}
	b.WriteByte(')')
	return b.String()
}

// LikePrefix matches strings starting with Prefix, the form "col LIKE 'p%'".
type LikePrefix struct {
	Child  Expr
	Prefix string
}

func (e *LikePrefix) Eval(c *chunk.Chunk, row int) (chunk.Datum, error) {
	d, err := e.Child.Eval(c, row)
	if err != nil || d.Type() != chunk.TypeVarchar {
		return falseDatum, err
	}
	return boolDatum(strings.HasPrefix(d.Bytes(), e.Prefix)), nil
}

func (e *LikePrefix) Slots(dst []chunk.SlotID) []chunk.SlotID { return e.Child.Slots(dst) }

func (e *LikePrefix) String() string {
	return fmt.Sprintf("(like %s '%s%%')", e.Child, e.Prefix)
}

func slotsOf(dst []chunk.SlotID, exprs []Expr) []chunk.SlotID {
	for _, e := range exprs {
		dst = e.Slots(dst)
	}
	return dst
}

func nary(name string, exprs []Expr) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(name)
	for _, e := range exprs {
		b.WriteByte(' ')
		b.WriteString(e.String())
	}
	b.WriteByte(')')
	return b.String()
}
