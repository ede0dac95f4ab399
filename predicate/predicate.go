// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package predicate implements single-column predicates. A predicate either
// travels to the storage reader, where it is checked against zonemaps and
// bloom filters before being applied to decoded pages, or stays with the
// scanner and is evaluated on returned chunks.
package predicate

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/cockroachdb/tabletscan/chunk"
)

// Op is a comparison operator.
type Op uint8

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpIn
)

var opNames = [...]string{
	OpEq: "=",
	OpNe: "!=",
	OpLt: "<",
	OpLe: "<=",
	OpGt: ">",
	OpGe: ">=",
	OpIn: "IN",
}

func (o Op) String() string { return opNames[o] }

// SafeFormat implements the redact.SafeFormatter interface.
func (o Op) SafeFormat(p redact.SafePrinter, verb rune) {
	p.SafeString(redact.SafeString(o.String()))
}

// ParseOp parses an operator. "*=" is accepted as a synonym for IN.
func ParseOp(s string) (Op, bool) {
	switch strings.ToUpper(s) {
	case "*=":
		return OpIn, true
	case "==":
		return OpEq, true
	case "<>":
		return OpNe, true
	}
	for i, n := range opNames {
		if strings.EqualFold(n, s) {
			return Op(i), true
		}
	}
	return 0, false
}

// ColumnPredicate is a predicate over the values of a single column.
type ColumnPredicate interface {
	// ColumnID returns the tablet column the predicate applies to.
	ColumnID() chunk.ColumnID
	// Op returns the comparison operator.
	Op() Op
	// Match returns true if d satisfies the predicate.
	Match(d chunk.Datum) bool
	// Evaluate clears sel[i] for every row i of col that does not satisfy the
	// predicate. Rows whose sel entry is already zero are not examined.
	Evaluate(col chunk.Column, sel []uint8)
	// ZoneMapMayMatch returns false if no value in [min, max] can satisfy the
	// predicate.
	ZoneMapMayMatch(min, max chunk.Datum) bool
	// EqualityValues returns the values an equality or IN predicate matches,
	// for probing bloom filters. Other predicates return nil.
	EqualityValues() []chunk.Datum
	String() string
}

// comparison is a binary comparison against a constant.
type comparison struct {
	col   chunk.ColumnID
	name  string
	op    Op
	value chunk.Datum
}

var _ ColumnPredicate = (*comparison)(nil)

// NewComparison returns a predicate "<name> <op> value" over column col. op
// must not be OpIn.
func NewComparison(col chunk.ColumnID, name string, op Op, value chunk.Datum) ColumnPredicate {
	if op == OpIn {
		return NewIn(col, name, []chunk.Datum{value})
	}
	return &comparison{col: col, name: name, op: op, value: value}
}

func (p *comparison) ColumnID() chunk.ColumnID { return p.col }
func (p *comparison) Op() Op                   { return p.op }

func (p *comparison) Match(d chunk.Datum) bool {
	c := d.Compare(p.value)
	switch p.op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	}
	panic(errors.AssertionFailedf("unexpected op %s", p.op))
}

func (p *comparison) Evaluate(col chunk.Column, sel []uint8) {
	if ic, ok := col.(*chunk.Int64Column); ok && p.value.Type() == chunk.TypeInt64 {
		evalInt64(ic.Values, p.op, p.value.Int64(), sel)
		return
	}
	evalDatums(col, p.Match, sel)
}

func (p *comparison) ZoneMapMayMatch(min, max chunk.Datum) bool {
	switch p.op {
	case OpEq:
		return min.Compare(p.value) <= 0 && max.Compare(p.value) >= 0
	case OpNe:
		return !(min.Compare(p.value) == 0 && max.Compare(p.value) == 0)
	case OpLt:
		return min.Compare(p.value) < 0
	case OpLe:
		return min.Compare(p.value) <= 0
	case OpGt:
		return max.Compare(p.value) > 0
	case OpGe:
		return max.Compare(p.value) >= 0
	}
	return true
}

func (p *comparison) EqualityValues() []chunk.Datum {
	if p.op == OpEq {
		return []chunk.Datum{p.value}
	}
	return nil
}

func (p *comparison) String() string {
	return fmt.Sprintf("%s %s %s", p.name, p.op, p.value)
}

// inList matches any of a set of values.
type inList struct {
	col    chunk.ColumnID
	name   string
	values []chunk.Datum
	ints   map[int64]struct{}
	strs   map[string]struct{}
}

var _ ColumnPredicate = (*inList)(nil)

// NewIn returns a predicate "<name> IN (values...)" over column col.
func NewIn(col chunk.ColumnID, name string, values []chunk.Datum) ColumnPredicate {
	p := &inList{col: col, name: name, values: values}
	for _, v := range values {
		switch v.Type() {
		case chunk.TypeInt64:
			if p.ints == nil {
				p.ints = make(map[int64]struct{}, len(values))
			}
			p.ints[v.Int64()] = struct{}{}
		case chunk.TypeVarchar:
			if p.strs == nil {
				p.strs = make(map[string]struct{}, len(values))
			}
			p.strs[v.Bytes()] = struct{}{}
		}
	}
	return p
}

func (p *inList) ColumnID() chunk.ColumnID { return p.col }
func (p *inList) Op() Op                   { return OpIn }

func (p *inList) Match(d chunk.Datum) bool {
	switch d.Type() {
	case chunk.TypeInt64:
		if _, ok := p.ints[d.Int64()]; ok {
			return true
		}
	case chunk.TypeVarchar:
		_, ok := p.strs[d.Bytes()]
		return ok
	}
	for _, v := range p.values {
		if d.Compare(v) == 0 {
			return true
		}
	}
	return false
}

func (p *inList) Evaluate(col chunk.Column, sel []uint8) {
	switch c := col.(type) {
	case *chunk.Int64Column:
		if len(p.ints) == len(p.values) {
			for i, v := range c.Values {
				if sel[i] == 0 {
					continue
				}
				if _, ok := p.ints[v]; !ok {
					sel[i] = 0
				}
			}
			return
		}
	case *chunk.BinaryColumn:
		for i := range sel {
			if sel[i] == 0 {
				continue
			}
			if _, ok := p.strs[string(c.Value(i))]; !ok {
				sel[i] = 0
			}
		}
		return
	}
	evalDatums(col, p.Match, sel)
}

func (p *inList) ZoneMapMayMatch(min, max chunk.Datum) bool {
	for _, v := range p.values {
		if min.Compare(v) <= 0 && max.Compare(v) >= 0 {
			return true
		}
	}
	return false
}

func (p *inList) EqualityValues() []chunk.Datum { return p.values }

func (p *inList) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s IN (", p.name)
	for i, v := range p.values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteByte(')')
	return b.String()
}

func evalInt64(vals []int64, op Op, v int64, sel []uint8) {
	for i, x := range vals {
		if sel[i] == 0 {
			continue
		}
		var ok bool
		switch op {
		case OpEq:
			ok = x == v
		case OpNe:
			ok = x != v
		case OpLt:
			ok = x < v
		case OpLe:
			ok = x <= v
		case OpGt:
			ok = x > v
		case OpGe:
			ok = x >= v
		}
		if !ok {
			sel[i] = 0
		}
	}
}

func evalDatums(col chunk.Column, match func(chunk.Datum) bool, sel []uint8) {
	for i := range sel {
		if sel[i] != 0 && !match(col.Datum(i)) {
			sel[i] = 0
		}
	}
}
