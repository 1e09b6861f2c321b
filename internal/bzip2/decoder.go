// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bzip2

import (
	"bytes"
	"fmt"
)

var (
	// FileMagic is the bzip2 stream magic number, "BZh".
	FileMagic = []byte{0x42, 0x5a, 0x68}

	// BlockMagic is the magic number that precedes every bzip2 compressed
	// block.
	BlockMagic = [6]byte{0x31, 0x41, 0x59, 0x26, 0x53, 0x59}

	// EOSMagic is the magic number that marks the end of a bzip2 stream.
	EOSMagic = [6]byte{0x17, 0x72, 0x45, 0x38, 0x50, 0x90}
)

// Decoder decodes a single bzip2 block whose compressed byte range has
// already been located by a scanner. It implements the decoder black-box
// contract: one call to Work completes the entropy decode, move-to-front
// and inverse BWT; repeated calls to Emit then drain the expanded bytes.
//
// A Decoder is used for exactly one block and discarded; Destroy exists
// to satisfy the external contract and releases the large tt buffer.
type Decoder struct {
	br   *reader
	done bool
}

// NewDecoder creates a decoder for a block belonging to a stream with the
// given block size in bytes (100000 * bs100k).
func NewDecoder(blockSizeBytes int) *Decoder {
	bz2 := new(reader)
	bz2.setupDone = true
	bz2.blockSize = blockSizeBytes
	bz2.tt = make([]uint32, blockSizeBytes)
	return &Decoder{br: bz2}
}

// Work runs the Huffman decode, move-to-front decode and inverse BWT over
// the block whose compressed bits start at the given bit offset within
// data. data must contain the full compressed payload for exactly one
// block, beginning with its 32-bit stored CRC (the 48-bit block magic
// that precedes it must already have been consumed by the caller).
func (d *Decoder) Work(data []byte, startBit int) error {
	br := newBitReader(bytes.NewReader(data))
	br.ReadBits(uint(startBit))
	d.br.br = br
	return d.br.readBlock()
}

// Emit drains decompressed bytes into buf, returning the number written.
// done is true once the block is fully drained; that call compares the
// block's computed CRC (see CRC) with the CRC stored in the block and
// returns an error if they differ.
func (d *Decoder) Emit(buf []byte) (n int, done bool, err error) {
	n = d.br.readFromBlock(buf)
	if n > 0 {
		d.br.blockCRC.update(buf[:n])
		return n, false, nil
	}
	if d.br.blockCRC.val != d.br.wantBlockCRC {
		return 0, true, fmt.Errorf("block checksum mismatch")
	}
	d.done = true
	return 0, true, nil
}

// CRC returns the block's computed CRC. Valid only once Emit has reported done.
func (d *Decoder) CRC() uint32 { return d.br.blockCRC.val }

// Destroy releases the decoder's working buffers.
func (d *Decoder) Destroy() {
	d.br.tt = nil
	d.br.preRLE = nil
}
