// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package chunk

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

type datumKind uint8

const (
	kindNull datumKind = iota
	kindInt64
	kindFloat64
	kindBytes
	kindNegativeInfinity
	kindPositiveInfinity
)

// Datum is a single scalar value. The zero Datum is NULL.
type Datum struct {
	kind datumKind
	i    int64
	f    float64
	s    string
}

// Int64Datum returns a Datum holding v.
func Int64Datum(v int64) Datum { return Datum{kind: kindInt64, i: v} }

// Float64Datum returns a Datum holding v.
func Float64Datum(v float64) Datum { return Datum{kind: kindFloat64, f: v} }

// BytesDatum returns a Datum holding v.
func BytesDatum(v string) Datum { return Datum{kind: kindBytes, s: v} }

// NegativeInfinity returns the sentinel that sorts before every other Datum.
// A key range that begins at a single NegativeInfinity has no lower bound.
func NegativeInfinity() Datum { return Datum{kind: kindNegativeInfinity} }

// PositiveInfinity returns the sentinel that sorts after every other Datum.
func PositiveInfinity() Datum { return Datum{kind: kindPositiveInfinity} }

// IsNull returns true for the zero Datum.
func (d Datum) IsNull() bool { return d.kind == kindNull }

// IsNegativeInfinity returns true if d is the NegativeInfinity sentinel.
func (d Datum) IsNegativeInfinity() bool { return d.kind == kindNegativeInfinity }

// IsPositiveInfinity returns true if d is the PositiveInfinity sentinel.
func (d Datum) IsPositiveInfinity() bool { return d.kind == kindPositiveInfinity }

// Type returns the FieldType the Datum holds, or TypeUnknown for NULL and the
// infinity sentinels.
func (d Datum) Type() FieldType {
	switch d.kind {
	case kindInt64:
		return TypeInt64
	case kindFloat64:
		return TypeFloat64
	case kindBytes:
		return TypeVarchar
	default:
		return TypeUnknown
	}
}

// Int64 returns the integer value. Float datums are truncated.
func (d Datum) Int64() int64 {
	if d.kind == kindFloat64 {
		return int64(d.f)
	}
	return d.i
}

// Float64 returns the value as a float.
func (d Datum) Float64() float64 {
	if d.kind == kindInt64 {
		return float64(d.i)
	}
	return d.f
}

// Bytes returns the string value.
func (d Datum) Bytes() string { return d.s }

// Compare orders datums. NULL sorts first, then NegativeInfinity, then values,
// then PositiveInfinity. Integers and floats compare numerically; comparing a
// number with a string orders the number first.
func (d Datum) Compare(o Datum) int {
	if d.kind == o.kind {
		switch d.kind {
		case kindInt64:
			return cmp.Compare(d.i, o.i)
		case kindFloat64:
			return cmp.Compare(d.f, o.f)
		case kindBytes:
			return strings.Compare(d.s, o.s)
		default:
			return 0
		}
	}
	if d.isNumeric() && o.isNumeric() {
		return cmp.Compare(d.Float64(), o.Float64())
	}
	return cmp.Compare(d.rank(), o.rank())
}

func (d Datum) isNumeric() bool { return d.kind == kindInt64 || d.kind == kindFloat64 }

func (d Datum) rank() int {
	switch d.kind {
	case kindNull:
		return 0
	case kindNegativeInfinity:
		return 1
	case kindInt64, kindFloat64:
		return 2
	case kindBytes:
		return 3
	default:
		return 4
	}
}

func (d Datum) String() string {
	switch d.kind {
	case kindNull:
		return "NULL"
	case kindInt64:
		return strconv.FormatInt(d.i, 10)
	case kindFloat64:
		return strconv.FormatFloat(d.f, 'g', -1, 64)
	case kindBytes:
		return d.s
	case kindNegativeInfinity:
		return "-inf"
	default:
		return "+inf"
	}
}

// ParseDatum parses s as a Datum of type t.
func ParseDatum(t FieldType, s string) (Datum, error) {
	switch s {
	case "-inf":
		return NegativeInfinity(), nil
	case "+inf":
		return PositiveInfinity(), nil
	}
	switch t {
	case TypeInt64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Datum{}, errors.Wrapf(err, "parsing %q as %s", s, t)
		}
		return Int64Datum(v), nil
	case TypeFloat64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Datum{}, errors.Wrapf(err, "parsing %q as %s", s, t)
		}
		return Float64Datum(v), nil
	case TypeVarchar:
		return BytesDatum(s), nil
	default:
		return Datum{}, errors.Newf("cannot parse datum of type %s", t)
	}
}

// Tuple is an ordered list of datums, typically a (prefix of a) row key.
type Tuple []Datum

// Compare compares the common prefix of t and o datum by datum. A shorter
// tuple that is a prefix of the longer one compares equal; key range bounds
// are prefixes of the full key.
func (t Tuple) Compare(o Tuple) int {
	n := min(len(t), len(o))
	for i := 0; i < n; i++ {
		if c := t[i].Compare(o[i]); c != 0 {
			return c
		}
	}
	return 0
}

func (t Tuple) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, d := range t {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprint(&b, d.String())
	}
	b.WriteByte(')')
	return b.String()
}
