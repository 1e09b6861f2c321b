// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pbzip2

import "time"

// Progress reports the reassembly of one decoded block, in the order the
// block appears in the output (not the order it finished decoding in).
type Progress struct {
	// SChunk and Block identify the block: the s-chunk whose scan session
	// discovered it, and its position within that chunk's session.
	SChunk, Block uint64
	BS100K        int
	CRC           uint32
	Compressed    int
	Size          int
	Duration      time.Duration
}
