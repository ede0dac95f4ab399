// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package expr

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tabletscan/chunk"
)

// SlotResolver maps a slot name to its id.
type SlotResolver func(name string) (chunk.SlotID, bool)

// Parse parses an s-expression such as
//
//	(and (> $v 10) (like $name 'ab%') (in $k 1 2 3))
//
// Atoms are slot references ($name), numbers and quoted strings. Operators
// are and, or, not, in, like and the comparisons = != < <= > >=.
func Parse(s string, slots SlotResolver) (Expr, error) {
	p := parser{toks: tokenize(s), slots: slots}
	e, err := p.parse()
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %q", s)
	}
	if p.pos != len(p.toks) {
		return nil, errors.Newf("parsing %q: trailing input %q", s, p.toks[p.pos])
	}
	return e, nil
}

type parser struct {
	toks  []string
	pos   int
	slots SlotResolver
}

func (p *parser) next() (string, error) {
	if p.pos >= len(p.toks) {
		return "", errors.New("unexpected end of input")
	}
	t := p.toks[p.pos]
	p.pos++
	return t, nil
}

func (p *parser) parse() (Expr, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	if t != "(" {
		return p.atom(t)
	}
	op, err := p.next()
	if err != nil {
		return nil, err
	}
	var args []Expr
	for p.pos < len(p.toks) && p.toks[p.pos] != ")" {
		a, err := p.parse()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	if _, err := p.next(); err != nil {
		return nil, err
	}
	return build(op, args)
}

func (p *parser) atom(t string) (Expr, error) {
	switch {
	case strings.HasPrefix(t, "$"):
		name := t[1:]
		slot, ok := p.slots(name)
		if !ok {
			return nil, errors.Newf("unknown slot %q", name)
		}
		return &SlotRef{Slot: slot, Name: name}, nil
	case strings.HasPrefix(t, "'"):
		return &Literal{Value: chunk.BytesDatum(strings.Trim(t, "'"))}, nil
	}
	if v, err := strconv.ParseInt(t, 10, 64); err == nil {
		return &Literal{Value: chunk.Int64Datum(v)}, nil
	}
	if v, err := strconv.ParseFloat(t, 64); err == nil {
		return &Literal{Value: chunk.Float64Datum(v)}, nil
	}
	return nil, errors.Newf("unexpected token %q", t)
}

func build(op string, args []Expr) (Expr, error) {
	for i, n := range cmpNames {
		if n == op {
			if len(args) != 2 {
				return nil, errors.Newf("%s takes 2 arguments", op)
			}
			return &Compare{Op: CmpOp(i), Left: args[0], Right: args[1]}, nil
		}
	}
	switch op {
	case "and":
		return &And{Children: args}, nil
	case "or":
		return &Or{Children: args}, nil
	case "not":
		if len(args) != 1 {
			return nil, errors.New("not takes 1 argument")
		}
		return &Not{Child: args[0]}, nil
	case "in":
		if len(args) < 2 {
			return nil, errors.New("in takes at least 2 arguments")
		}
		vals := make([]chunk.Datum, len(args)-1)
		for i, a := range args[1:] {
			lit, ok := a.(*Literal)
			if !ok {
				return nil, errors.Newf("in list element %s is not a literal", a)
			}
			vals[i] = lit.Value
		}
		return &In{Child: args[0], Values: vals}, nil
	case "like":
		if len(args) != 2 {
			return nil, errors.New("like takes 2 arguments")
		}
		lit, ok := args[1].(*Literal)
		if !ok || lit.Value.Type() != chunk.TypeVarchar {
			return nil, errors.New("like pattern must be a string")
		}
		pat := lit.Value.Bytes()
		if !strings.HasSuffix(pat, "%") || strings.ContainsAny(pat[:len(pat)-1], "%_") {
			return nil, errors.Newf("unsupported like pattern %q", pat)
		}
		return &LikePrefix{Child: args[0], Prefix: pat[:len(pat)-1]}, nil
	}
	return nil, errors.Newf("unknown operator %q", op)
}

func tokenize(s string) []string {
	var toks []string
	for i := 0; i < len(s); {
		c := rune(s[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(' || c == ')':
			toks = append(toks, string(c))
			i++
		case c == '\'':
			j := strings.IndexByte(s[i+1:], '\'')
			if j < 0 {
				toks = append(toks, s[i:])
				return toks
			}
			toks = append(toks, s[i:i+j+2])
			i += j + 2
		default:
			j := i
			for j < len(s) && !unicode.IsSpace(rune(s[j])) && s[j] != '(' && s[j] != ')' {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		}
	}
	return toks
}
