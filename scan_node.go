// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tabletscan

import (
	"github.com/cockroachdb/tabletscan/chunk"
	"github.com/cockroachdb/tabletscan/expr"
	"github.com/cockroachdb/tabletscan/profile"
)

// SlotDescriptor is one output position of the scan.
type SlotDescriptor struct {
	ID   chunk.SlotID
	Name string
	// IsMaterialized is false for slots the plan never reads.
	IsMaterialized bool
}

// TupleDescriptor lists the slots of the rows a scan produces.
type TupleDescriptor struct {
	Slots []SlotDescriptor
}

// MaterializedSlots returns the materialized slots in descriptor order.
func (d *TupleDescriptor) MaterializedSlots() []SlotDescriptor {
	var out []SlotDescriptor
	for _, s := range d.Slots {
		if s.IsMaterialized {
			out = append(out, s)
		}
	}
	return out
}

// ScanNode is the plan node shared by the scanners of one scan. It holds the
// output tuple, the conjuncts every scanner clones, and the profile counters
// every scanner adds to.
type ScanNode struct {
	TupleDesc TupleDescriptor
	Conjuncts []*expr.Context

	// Profile is the node's profile. ScanProfile is its "Scan" child holding
	// the storage counters.
	Profile     *profile.Profile
	ScanProfile *profile.Profile

	counters nodeCounters
}

type nodeCounters struct {
	bytesRead *profile.Counter
	rowsRead  *profile.Counter
	scanTime  *profile.Counter

	compressedBytesRead   *profile.Counter
	uncompressedBytesRead *profile.Counter
	rawRowsRead           *profile.Counter
	ioTime                *profile.Counter
	decompressTime        *profile.Counter
	blockLoadTime         *profile.Counter
	blocksLoaded          *profile.Counter
	blockFetchTime        *profile.Counter
	blockSeekTime         *profile.Counter
	blockSeekCount        *profile.Counter
	chunkCopyTime         *profile.Counter
	createSegmentIterTime *profile.Counter
	segmentInitTime       *profile.Counter
	predFilterTime        *profile.Counter
	predFilterRows        *profile.Counter
	delVecFilterRows      *profile.Counter
	segZoneMapFilterRows  *profile.Counter
	zoneMapFilterRows     *profile.Counter
	bloomFilterRows       *profile.Counter
	shortKeyFilterRows    *profile.Counter
	indexLoadTime         *profile.Counter
	totalPages            *profile.Counter
	cachedPages           *profile.Counter
	bitmapFilterRows      *profile.Counter
	bitmapFilterTime      *profile.Counter
	pushdownPredicates    *profile.Counter
}

// NewScanNode returns a node named name producing desc, with its profile
// counters registered.
func NewScanNode(name string, desc TupleDescriptor, conjuncts []*expr.Context) *ScanNode {
	n := &ScanNode{
		TupleDesc: desc,
		Conjuncts: conjuncts,
		Profile:   profile.New(name),
	}
	n.ScanProfile = n.Profile.CreateChild("Scan")

	p, s := n.Profile, n.ScanProfile
	c := &n.counters
	c.bytesRead = p.AddCounter("BytesRead", profile.UnitBytes)
	c.rowsRead = p.AddCounter("RowsRead", profile.UnitCount)
	c.scanTime = p.AddTimer("ScanTime")

	c.compressedBytesRead = s.AddCounter("CompressedBytesRead", profile.UnitBytes)
	c.uncompressedBytesRead = s.AddCounter("UncompressedBytesRead", profile.UnitBytes)
	c.rawRowsRead = s.AddCounter("RawRowsRead", profile.UnitCount)
	c.ioTime = s.AddTimer("IOTime")
	c.decompressTime = s.AddTimer("DecompressTime")
	c.blockLoadTime = s.AddTimer("BlockLoadTime")
	c.blocksLoaded = s.AddCounter("BlocksLoad", profile.UnitCount)
	c.blockFetchTime = s.AddTimer("BlockFetchTime")
	c.blockSeekTime = s.AddTimer("BlockSeekTime")
	c.blockSeekCount = s.AddCounter("BlockSeekCount", profile.UnitCount)
	c.chunkCopyTime = s.AddTimer("ChunkCopy")
	c.createSegmentIterTime = s.AddTimer("CreateSegmentIter")
	c.segmentInitTime = s.AddTimer("SegmentInit")
	c.predFilterTime = s.AddTimer("PredFilter")
	c.predFilterRows = s.AddCounter("PredFilterRows", profile.UnitCount)
	c.delVecFilterRows = s.AddCounter("DelVecFilterRows", profile.UnitCount)
	c.segZoneMapFilterRows = s.AddCounter("SegmentZoneMapFilterRows", profile.UnitCount)
	c.zoneMapFilterRows = s.AddCounter("ZoneMapIndexFilterRows", profile.UnitCount)
	c.bloomFilterRows = s.AddCounter("BloomFilterFilterRows", profile.UnitCount)
	c.shortKeyFilterRows = s.AddCounter("ShortKeyFilterRows", profile.UnitCount)
	c.indexLoadTime = s.AddTimer("IndexLoadTime")
	c.totalPages = s.AddCounter("TotalPagesNum", profile.UnitCount)
	c.cachedPages = s.AddCounter("CachedPagesNum", profile.UnitCount)
	c.bitmapFilterRows = s.AddCounter("BitmapIndexFilterRows", profile.UnitCount)
	c.bitmapFilterTime = s.AddTimer("BitmapIndexFilter")
	c.pushdownPredicates = s.AddCounter("PushdownPredicates", profile.UnitCount)
	return n
}
