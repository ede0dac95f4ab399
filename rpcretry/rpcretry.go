// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package rpcretry calls a remote service over a reconnectable connection
// with a single reconnect-and-retry on transport failures.
package rpcretry

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/cockroachdb/tabletscan/internal/base"
)

// ErrTransport marks errors of the transient transport class. Only errors
// carrying this mark are retried.
var ErrTransport = errors.New("transport failure")

// MarkTransport marks err as a transient transport failure.
func MarkTransport(err error) error {
	return errors.Mark(err, ErrTransport)
}

// Outcome is the classification of a Call.
type Outcome uint8

const (
	// Success means the first attempt succeeded.
	Success Outcome = iota
	// RetriedSuccess means the first attempt hit a transport failure and the
	// attempt after reconnecting succeeded.
	RetriedSuccess
	// Failed means the call did not succeed. Result.Err holds the reason.
	Failed
)

// SafeFormat implements the redact.SafeFormatter interface.
func (o Outcome) SafeFormat(p redact.SafePrinter, verb rune) {
	switch o {
	case Success:
		p.SafeString("success")
	case RetriedSuccess:
		p.SafeString("retried-success")
	default:
		p.SafeString("failed")
	}
}

func (o Outcome) String() string { return redact.StringWithoutMarkers(o) }

// Result is the outcome of a Call together with the failure reason.
type Result struct {
	Outcome Outcome
	Err     error
}

// OK returns true if the call eventually succeeded.
func (r Result) OK() bool { return r.Outcome != Failed }

// Conn is a connection to a remote service that can be re-established.
type Conn interface {
	// Addr identifies the remote end in error messages.
	Addr() string
	// Reopen closes and re-establishes the connection.
	Reopen(ctx context.Context) error
}

// Options configure Call.
type Options struct {
	// RetryInterval is the base retry interval. A failed call waits twice this
	// long before reopening the connection and giving up.
	RetryInterval time.Duration
	Logger        base.Logger
	// sleep is overridden by tests.
	sleep func(ctx context.Context, d time.Duration)
}

// EnsureDefaults fills in zero-valued fields with defaults.
func (o *Options) EnsureDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.RetryInterval == 0 {
		o.RetryInterval = 100 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = base.DefaultLogger{}
	}
	if o.sleep == nil {
		o.sleep = sleepCtx
	}
	return o
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Call invokes fn on conn. A transport failure triggers one reopen and one
// more attempt. Any other failure (including a failure of the retried
// attempt) waits 2*RetryInterval, reopens the connection to discard it and
// returns Failed.
func Call[C Conn](ctx context.Context, conn C, opts *Options, fn func(context.Context, C) error) Result {
	opts = opts.EnsureDefaults()
	err := fn(ctx, conn)
	if err == nil {
		return Result{Outcome: Success}
	}
	if errors.Is(err, ErrTransport) {
		if rerr := conn.Reopen(ctx); rerr != nil {
			opts.Logger.Infof("client reopen failed. address=%s, status=%v", conn.Addr(), rerr)
			return Result{Outcome: Failed, Err: rerr}
		}
		if err = fn(ctx, conn); err == nil {
			return Result{Outcome: RetriedSuccess}
		}
	}
	err = errors.Wrapf(err, "call service failed, address=%s", redact.Safe(conn.Addr()))
	opts.Logger.Infof("%v", err)
	opts.sleep(ctx, 2*opts.RetryInterval)
	_ = conn.Reopen(ctx)
	return Result{Outcome: Failed, Err: err}
}
