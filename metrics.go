// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tabletscan

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the process-wide scan counters. Scanners add their totals when
// they finalize their counters.
type Metrics struct {
	ScanBytes prometheus.Counter
	ScanRows  prometheus.Counter
}

// NewMetrics creates the scan counters and registers them with reg, if
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScanBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabletscan_query_scan_bytes_total",
			Help: "Compressed bytes read by tablet scanners",
		}),
		ScanRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabletscan_query_scan_rows_total",
			Help: "Raw rows read by tablet scanners",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ScanBytes, m.ScanRows)
	}
	return m
}
