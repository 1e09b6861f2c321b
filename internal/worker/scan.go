package worker

import (
	"github.com/araxis-io/pbzip2/internal/bitstream"
	"github.com/araxis-io/pbzip2/internal/bzip2"
)

type magicKind int

const (
	magicBlock magicKind = iota
	magicEOS
)

type magicTable struct {
	pretest [256]bool
	first   map[uint32]uint8
	second  map[uint32]uint8
}

var (
	blockTable magicTable
	eosTable   magicTable
)

func init() {
	blockTable.pretest, blockTable.first, blockTable.second = bitstream.Init(bzip2.BlockMagic)
	eosTable.pretest, eosTable.first, eosTable.second = bitstream.Init(bzip2.EOSMagic)
}

func scanOne(t magicTable, buf []byte) (bitOff int, ok bool) {
	byteOff, bo := bitstream.Scan(t.pretest, t.first, t.second, buf)
	if byteOff < 0 {
		return 0, false
	}
	return byteOff*8 + bo, true
}

// readBitsMSB reads n (<= 32) bits from buf starting at bitOffset, packed
// most-significant-bit first, the convention bzip2 bitstreams use.
func readBitsMSB(buf []byte, bitOffset, n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		byteIdx := (bitOffset + i) / 8
		bitIdx := 7 - (bitOffset+i)%8
		var bit uint32
		if byteIdx < len(buf) {
			bit = uint32((buf[byteIdx] >> uint(bitIdx)) & 1)
		}
		v = v<<1 | bit
	}
	return v
}

// locateNext finds the first bit position, at or after bitFrom, in buf at
// which either the block-start or end-of-stream magic occurs. It returns
// whichever of the two occurs earliest.
func locateNext(buf []byte, bitFrom int) (kind magicKind, absBit int, found bool) {
	startByte := bitFrom / 8
	for startByte*8 <= len(buf)*8 {
		if startByte >= len(buf) {
			return 0, 0, false
		}
		window := buf[startByte:]
		blockBit, blockOK := scanOne(blockTable, window)
		eosBit, eosOK := scanOne(eosTable, window)

		cand, candKind, any := -1, magicKind(0), false
		if blockOK {
			cand, candKind, any = blockBit, magicBlock, true
		}
		if eosOK && (!any || eosBit < cand) {
			cand, candKind, any = eosBit, magicEOS, true
		}
		if !any {
			return 0, 0, false
		}

		abs := startByte*8 + cand
		if abs < bitFrom {
			// Matched entirely inside the already-consumed prefix of this
			// window; resume the search just past it.
			startByte += cand/8 + 1
			continue
		}
		return candKind, abs, true
	}
	return 0, 0, false
}
