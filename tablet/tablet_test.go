// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tablet

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/internal/base"
	"github.com/cockroachdb/tabletscan/rpcretry"
	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T, kt KeysType, valueAgg AggregationMethod) *Schema {
	s, err := NewSchema(kt, []Column{
		{Name: "k1", Type: chunk.TypeInt64, IsKey: true},
		{Name: "k2", Type: chunk.TypeVarchar, IsKey: true},
		{Name: "v", Type: chunk.TypeInt64, Aggregation: valueAgg},
	})
	require.NoError(t, err)
	return s
}

func TestSchema(t *testing.T) {
	s := testSchema(t, AggKeys, AggSum)
	require.Equal(t, 3, s.NumColumns())
	require.Equal(t, 2, s.NumKeyColumns())
	require.Equal(t, 2, s.FieldIndex("v"))
	require.Equal(t, -1, s.FieldIndex("nope"))
	require.Equal(t, AggSum, s.Column(2).Aggregation)

	cs, err := s.ChunkSchema([]ColumnID{2, 0})
	require.NoError(t, err)
	require.Equal(t, "v", cs.Field(0).Name)
	require.Equal(t, ColumnID(0), cs.Field(1).ID)
	_, err = s.ChunkSchema([]ColumnID{7})
	require.Error(t, err)

	// Unique and primary key value columns replace.
	s = testSchema(t, UniqueKeys, AggNone)
	require.Equal(t, AggReplace, s.Column(2).Aggregation)
	s = testSchema(t, PrimaryKeys, AggNone)
	require.Equal(t, AggReplace, s.Column(2).Aggregation)
}

func TestSchemaValidation(t *testing.T) {
	testCases := []struct {
		kt      KeysType
		cols    []Column
		wantErr string
	}{
		{DupKeys, []Column{{Name: "v", Type: chunk.TypeInt64}}, "no key columns"},
		{DupKeys, []Column{
			{Name: "k", Type: chunk.TypeInt64, IsKey: true},
			{Name: "k", Type: chunk.TypeInt64},
		}, "duplicate column"},
		{DupKeys, []Column{
			{Name: "v", Type: chunk.TypeInt64},
			{Name: "k", Type: chunk.TypeInt64, IsKey: true},
		}, "follows a value column"},
		{DupKeys, []Column{
			{Name: "k", Type: chunk.TypeInt64, IsKey: true},
			{Name: "v", Type: chunk.TypeInt64, Aggregation: AggMax},
		}, "has aggregation max"},
		{AggKeys, []Column{
			{Name: "k", Type: chunk.TypeInt64, IsKey: true},
			{Name: "v", Type: chunk.TypeInt64},
		}, "needs an aggregation"},
		{AggKeys, []Column{
			{Name: "k", Type: chunk.TypeInt64, IsKey: true},
			{Name: "v", Type: chunk.TypeVarchar, Aggregation: AggSum},
		}, "cannot sum"},
		{UniqueKeys, []Column{
			{Name: "k", Type: chunk.TypeInt64, IsKey: true},
			{Name: "v", Type: chunk.TypeInt64, Aggregation: AggSum},
		}, "has aggregation sum"},
		{DupKeys, []Column{{Name: "k", IsKey: true}}, "has no type"},
	}
	for _, tc := range testCases {
		t.Run(tc.wantErr, func(t *testing.T) {
			_, err := NewSchema(tc.kt, tc.cols)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestParseEnums(t *testing.T) {
	for _, kt := range []KeysType{DupKeys, AggKeys, UniqueKeys, PrimaryKeys} {
		got, ok := ParseKeysType(kt.String())
		require.True(t, ok)
		require.Equal(t, kt, got)
	}
	_, ok := ParseKeysType("mixed")
	require.False(t, ok)
	for _, a := range []AggregationMethod{AggNone, AggSum, AggMin, AggMax, AggReplace} {
		got, ok := ParseAggregationMethod(a.String())
		require.True(t, ok)
		require.Equal(t, a, got)
	}
}

type fakeRowset struct {
	v    VersionRange
	rows int64
}

func (r fakeRowset) Versions() VersionRange { return r.v }
func (r fakeRowset) NumRows() int64         { return r.rows }

func TestTabletRowsets(t *testing.T) {
	tb := New(10, 1234, testSchema(t, DupKeys, AggNone))
	require.Equal(t, "10.1234", tb.FullName())
	require.Equal(t, "10.1234", tb.String())
	require.Equal(t, "10.1234", string(redact.Sprint(tb).Redact()))

	require.NoError(t, tb.AddRowset(fakeRowset{v: VersionRange{1, 1}}))
	require.NoError(t, tb.AddRowset(fakeRowset{v: VersionRange{2, 4}}))
	require.NoError(t, tb.AddRowset(fakeRowset{v: VersionRange{5, 5}}))
	require.Error(t, tb.AddRowset(fakeRowset{v: VersionRange{7, 7}}))
	require.Error(t, tb.AddRowset(fakeRowset{v: VersionRange{7, 6}}))
	require.Equal(t, Version(5), tb.MaxVersion())

	rs, err := tb.CaptureRowsets(4)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	rs, err = tb.CaptureRowsets(0)
	require.NoError(t, err)
	require.Empty(t, rs)

	_, err = tb.CaptureRowsets(3)
	require.True(t, errors.Is(err, ErrVersionNotFound))
	_, err = tb.CaptureRowsets(6)
	require.True(t, errors.Is(err, ErrVersionNotFound))
}

func TestMemCatalog(t *testing.T) {
	ctx := context.Background()
	c := NewMemCatalog()
	tb := New(1, 100, testSchema(t, DupKeys, AggNone))
	c.Register(tb)
	require.Equal(t, 1, c.Len())

	got, err := c.Lookup(ctx, 1, 100)
	require.NoError(t, err)
	require.Same(t, tb, got)

	_, err = c.Lookup(ctx, 1, 101)
	require.True(t, errors.Is(err, ErrNotFound))
	require.ErrorContains(t, err, "schema hash mismatch (current 100)")

	_, err = c.Lookup(ctx, 2, 100)
	require.True(t, errors.Is(err, ErrNotFound))
	require.ErrorContains(t, err, "no such tablet")

	// Re-registering with a new hash replaces the old handle.
	tb2 := New(1, 101, tb.Schema())
	c.Register(tb2)
	require.Equal(t, 1, c.Len())
	_, err = c.Lookup(ctx, 1, 100)
	require.Error(t, err)

	c.Drop(1)
	require.Equal(t, 0, c.Len())
}

type fakeCatalogConn struct {
	cat     *MemCatalog
	fails   int
	calls   int
	reopens int
}

func (c *fakeCatalogConn) Addr() string { return "catalog:9020" }

func (c *fakeCatalogConn) Reopen(context.Context) error {
	c.reopens++
	return nil
}

func (c *fakeCatalogConn) GetTablet(ctx context.Context, id ID, hash SchemaHash) (*Tablet, error) {
	c.calls++
	if c.calls <= c.fails {
		return nil, rpcretry.MarkTransport(fmt.Errorf("connection reset"))
	}
	return c.cat.Lookup(ctx, id, hash)
}

func TestRetryingCatalog(t *testing.T) {
	ctx := context.Background()
	mem := NewMemCatalog()
	tb := New(3, 7, testSchema(t, DupKeys, AggNone))
	mem.Register(tb)
	opts := &rpcretry.Options{RetryInterval: time.Millisecond, Logger: base.NoopLogger{}}

	conn := &fakeCatalogConn{cat: mem, fails: 1}
	got, err := NewRetryingCatalog(conn, opts).Lookup(ctx, 3, 7)
	require.NoError(t, err)
	require.Same(t, tb, got)
	require.Equal(t, 2, conn.calls)
	require.Equal(t, 1, conn.reopens)

	conn = &fakeCatalogConn{cat: mem}
	_, err = NewRetryingCatalog(conn, opts).Lookup(ctx, 4, 7)
	require.True(t, errors.Is(err, ErrNotFound))
	require.ErrorContains(t, err, "address=catalog:9020")
	require.Equal(t, 1, conn.calls)
}
