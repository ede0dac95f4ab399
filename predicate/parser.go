// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package predicate

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/tablet"
)

// ErrUnknownColumn marks descriptors naming a column absent from the schema.
var ErrUnknownColumn = errors.New("unknown column")

// Descriptor is the planner's textual form of a single-column predicate.
type Descriptor struct {
	Column string
	Op     string
	Values []string
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s %s %s", d.Column, d.Op, strings.Join(d.Values, ","))
}

// ParseDescriptor parses "<column> <op> <v1>[,<v2>...]".
func ParseDescriptor(s string) (Descriptor, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return Descriptor{}, errors.Newf("malformed predicate %q", s)
	}
	return Descriptor{Column: fields[0], Op: fields[1], Values: strings.Split(fields[2], ",")}, nil
}

// Parser turns descriptors into predicates bound to a tablet schema.
type Parser struct {
	schema *tablet.Schema
}

// NewParser returns a parser for schema.
func NewParser(schema *tablet.Schema) *Parser {
	return &Parser{schema: schema}
}

// Parse resolves d against the schema and returns the predicate.
func (p *Parser) Parse(d Descriptor) (ColumnPredicate, error) {
	idx := p.schema.FieldIndex(d.Column)
	if idx < 0 {
		return nil, errors.Mark(errors.Newf("invalid field name: %s", d.Column), ErrUnknownColumn)
	}
	id := tablet.ColumnID(idx)
	col := p.schema.Column(id)
	op, ok := ParseOp(d.Op)
	if !ok {
		return nil, errors.Newf("unknown predicate operator %q", d.Op)
	}
	if len(d.Values) == 0 || (op != OpIn && len(d.Values) != 1) {
		return nil, errors.Newf("predicate %s: operator %s takes %s", d, op,
			arity(op))
	}
	values := make([]chunk.Datum, len(d.Values))
	for i, s := range d.Values {
		v, err := chunk.ParseDatum(col.Type, s)
		if err != nil {
			return nil, errors.Wrapf(err, "predicate on %s", d.Column)
		}
		values[i] = v
	}
	if op == OpIn {
		return NewIn(id, col.Name, values), nil
	}
	return NewComparison(id, col.Name, op, values[0]), nil
}

func arity(op Op) string {
	if op == OpIn {
		return "at least one value"
	}
	return "exactly one value"
}

// CanPushdown returns true if pred may be evaluated by the storage reader
// before rows with equal keys are merged. That holds for every column of a
// primary key tablet, and otherwise for columns without an aggregation
// method.
func (p *Parser) CanPushdown(pred ColumnPredicate) bool {
	if p.schema.KeysType() == tablet.PrimaryKeys {
		return true
	}
	return p.schema.Column(pred.ColumnID()).Aggregation == tablet.AggNone
}

func errColumnNotInChunk(pred ColumnPredicate) error {
	return errors.AssertionFailedf("predicate %q references column %d missing from chunk",
		pred.String(), pred.ColumnID())
}
