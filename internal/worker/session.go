// Package worker implements the scanning and decoding work a pipeline
// worker goroutine performs: locating block and stream boundaries in the
// compressed input (a "scan session") and running the decoder over a
// located block ("decode work").
package worker

import (
	"fmt"

	"github.com/araxis-io/pbzip2/internal/bzip2"
	"github.com/araxis-io/pbzip2/internal/chunk"
	"github.com/araxis-io/pbzip2/internal/queue"
)

// parseStreamHeader reads a 4-byte "BZh#" header and returns the block
// size level (1..9).
func parseStreamHeader(buf []byte) (int, error) {
	if len(buf) < 4 {
		return 0, fmt.Errorf("pbzip2: truncated stream header")
	}
	if buf[0] != bzip2.FileMagic[0] || buf[1] != bzip2.FileMagic[1] || buf[2] != bzip2.FileMagic[2] {
		return 0, fmt.Errorf("pbzip2: bad stream magic")
	}
	if buf[3] < '1' || buf[3] > '9' {
		return 0, fmt.Errorf("pbzip2: invalid block size digit")
	}
	return int(buf[3] - '0'), nil
}

// capture is the result of locating the next block or end-of-stream
// marker starting from a given bit position within `first`.
type capture struct {
	data        []byte
	dataStart   int
	isEOS       bool
	streamCRC   uint32
	newBS100K   int  // > 0 if a fresh stream header immediately follows an EOS marker
	trueEOF     bool // true end of input: no further stream follows an EOS marker
	second      *chunk.Chunk
	handoffBit  int // valid when second != nil: ScanFrom for second once this session ends
	continuePos int // valid when second == nil: bit offset to resume the loop within `first`
}

// locate scans forward from pos within first (spilling into at most one
// successor chunk) for the next block-start or end-of-stream magic. buf
// is the byte slice absBit is relative to: first's own bytes when second
// is nil, or a concatenation of first's unconsumed tail and second's
// bytes when a successor chunk was needed, in which case tailLen is the
// number of leading bytes of buf contributed by first.
func locate(work *queue.ScanWork, first *chunk.Chunk, pos int) (kind magicKind, absBit int, buf []byte, tailLen int, second *chunk.Chunk, err error) {
	buf1 := first.Bytes()
	if pos/8 > len(buf1) {
		return 0, 0, nil, 0, nil, fmt.Errorf("pbzip2: scan position past end of chunk")
	}

	k, ab, found := locateNext(buf1, pos)
	if found {
		return k, ab, buf1, len(buf1) - pos/8, nil, nil
	}
	if !first.Full() {
		return 0, 0, nil, 0, nil, fmt.Errorf("pbzip2: truncated bzip2 stream: missing block or end-of-stream marker")
	}
	sec, ok := work.GetSecond(first)
	if !ok {
		return 0, 0, nil, 0, nil, fmt.Errorf("pbzip2: truncated bzip2 stream: missing block or end-of-stream marker")
	}
	tailStart := pos / 8
	tailLen = len(buf1) - tailStart
	cat := make([]byte, 0, tailLen+len(sec.Bytes()))
	cat = append(cat, buf1[tailStart:]...)
	cat = append(cat, sec.Bytes()...)
	k, ab, found = locateNext(cat, pos-tailStart*8)
	if !found {
		work.ReleaseChunk(sec)
		return 0, 0, nil, 0, nil, fmt.Errorf("pbzip2: bzip2 block does not terminate within two input chunks")
	}
	return k, ab, cat, tailLen, sec, nil
}

// classify turns a located magic into a capture's bookkeeping fields.
// It never touches data/dataStart: those only make sense relative to
// the position a particular job's payload began at, which callers fill
// in themselves (captureNext) or skip entirely (afterHeader, where the
// located magic starts a block rather than ending one).
func classify(kind magicKind, absBit int, buf []byte, tailLen int, second *chunk.Chunk) (capture, error) {
	c := capture{second: second}
	switch kind {
	case magicBlock:
		next := absBit + 48
		if second == nil {
			c.continuePos = next
		} else {
			c.handoffBit = translate(next, tailLen)
		}
		return c, nil

	case magicEOS:
		c.isEOS = true
		c.streamCRC = readBitsMSB(buf, absBit+48, 32)
		afterCRC := absBit + 48 + 32
		headerStart := afterCRC
		if headerStart%8 != 0 {
			headerStart += 8 - headerStart%8
		}
		headerByte := headerStart / 8
		if headerByte+4 <= len(buf) {
			if level, err := parseStreamHeader(buf[headerByte : headerByte+4]); err == nil {
				c.newBS100K = level
				if second == nil {
					c.continuePos = (headerByte + 4) * 8
				} else {
					c.handoffBit = translate(headerStart, tailLen)
				}
				return c, nil
			}
		}
		c.trueEOF = true
		return c, nil
	}
	return capture{}, fmt.Errorf("pbzip2: internal error: unknown magic kind")
}

// captureNext scans forward from pos, which must be the start of the
// current job's own payload (immediately after the magic that precedes
// it, at its stored CRC), for the magic that ends it.
func captureNext(work *queue.ScanWork, first *chunk.Chunk, pos int) (capture, error) {
	kind, absBit, buf, tailLen, second, err := locate(work, first, pos)
	if err != nil {
		return capture{}, err
	}
	c, err := classify(kind, absBit, buf, tailLen, second)
	if err != nil {
		return capture{}, err
	}
	buf1 := first.Bytes()
	data := buf1[pos/8:]
	if second != nil {
		data = buf
	}
	c.data = data
	c.dataStart = pos % 8
	return c, nil
}

// translate maps a bit offset within the buffer locate returned (whose
// first tailLen bytes came from `first`) back into the successor chunk's own
// coordinate space.
func translate(bitInTrailBuf, tailLen int) int {
	return bitInTrailBuf - tailLen*8
}

// afterHeader resolves what immediately follows a just-parsed stream
// header at pos: ordinarily the magic that starts that stream's block
// 0, but for a stream with no blocks at all, an end-of-stream magic
// directly. A chunk can hold several empty streams back to back, so
// this loops internally, pushing each one's closing bookkeeping and its
// successor's opening sentinel, until it finds a real block to decode,
// hands off to a successor chunk, or reaches true end of input.
//
// On return with done == false, pos and bs100k describe block 0's own
// payload start and are ready for the caller's per-block scan loop. On
// return with done == true, the session has already been fully wound
// up and the caller should return immediately.
func afterHeader(work *queue.ScanWork, first *chunk.Chunk, pos, bs100k int, bzID *uint64) (newPos, newBS100K int, done bool, err error) {
	for {
		kind, absBit, buf, tailLen, second, lerr := locate(work, first, pos)
		if lerr != nil {
			work.EndSession(first)
			return 0, 0, true, lerr
		}
		lead, cerr := classify(kind, absBit, buf, tailLen, second)
		if cerr != nil {
			work.EndSession(first)
			return 0, 0, true, cerr
		}

		if !lead.isEOS {
			if second == nil {
				return lead.continuePos, bs100k, false, nil
			}
			// No job pushed by this session so far is marked EndOfChunk, so
			// a bare sentinel closes the chunk for the muxer.
			work.PushJob(&queue.DecodeJob{
				ID:         queue.JobID{SChunkID: first.ID, BlockID: *bzID},
				EndOfChunk: true,
			})
			*bzID++
			second.ScanFrom = lead.handoffBit
			second.BS100K = bs100k
			work.ReleaseChunk(second)
			work.EndSession(first)
			return 0, 0, true, nil
		}

		// A stream with no blocks at all: there is no real job to carry
		// its end-of-stream bookkeeping, so a bare sentinel job does.
		job := &queue.DecodeJob{
			ID:          queue.JobID{SChunkID: first.ID, BlockID: *bzID},
			EndOfStream: true,
			StreamCRC:   lead.streamCRC,
			EndOfChunk:  second != nil,
		}
		*bzID++

		if lead.trueEOF {
			job.Last = true
			job.EndOfChunk = true
			work.PushJob(job)
			if second != nil {
				second.Exhausted = true
				work.ReleaseChunk(second)
			}
			work.EndSession(first)
			return 0, 0, true, nil
		}
		work.PushJob(job)

		if second != nil {
			second.ScanFrom = lead.handoffBit
			second.BS100K = lead.newBS100K
			second.FreshStream = true
			work.ReleaseChunk(second)
			work.EndSession(first)
			return 0, 0, true, nil
		}

		bs100k = lead.newBS100K
		work.PushJob(&queue.DecodeJob{
			ID:     queue.JobID{SChunkID: first.ID, BlockID: *bzID},
			BS100K: bs100k,
		})
		*bzID++
		pos = lead.continuePos
	}
}

// runSession is dispatched once per GetFirst assignment of a chunk to
// scan. It processes only blocks that begin within `first`'s own bytes,
// handing the scan chain onward once first is exhausted or a block's
// capture required a successor chunk. bs100k is the block size in effect
// when the session starts, carried forward from whichever session last
// touched this part of the stream (chunk 1 always starts with its own
// fresh stream header instead).
func runSession(work *queue.ScanWork, first *chunk.Chunk) error {
	if first.Exhausted {
		work.EndSession(first)
		return nil
	}

	pos := first.ScanFrom
	bs100k := first.BS100K
	var bzID uint64

	if first.ID == 1 || first.FreshStream {
		hdr := first.Bytes()[pos/8:]
		level, err := parseStreamHeader(hdr)
		if err != nil {
			work.EndSession(first)
			return err
		}
		bs100k = level
		work.PushJob(&queue.DecodeJob{
			ID:     queue.JobID{SChunkID: first.ID, BlockID: bzID},
			BS100K: level,
		})
		bzID++

		newPos, newBS100K, done, err := afterHeader(work, first, pos+32, bs100k, &bzID)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		pos, bs100k = newPos, newBS100K
	}

	for {
		found, err := captureNext(work, first, pos)
		if err != nil {
			work.EndSession(first)
			return err
		}

		handoff := found.second != nil
		job := &queue.DecodeJob{
			ID:         queue.JobID{SChunkID: first.ID, BlockID: bzID},
			Decoder:    bzip2.NewDecoder(bs100k * 100000),
			Data:       found.data,
			StartBit:   found.dataStart,
			Compressed: len(found.data),
			EndOfChunk: handoff,
		}
		bzID++
		if found.isEOS {
			job.EndOfStream = true
			job.StreamCRC = found.streamCRC
		}

		if found.isEOS && found.trueEOF {
			job.Last = true
			job.EndOfChunk = true
			work.PushJob(job)
			if found.second != nil {
				found.second.Exhausted = true
				work.ReleaseChunk(found.second)
			}
			work.EndSession(first)
			return nil
		}

		work.PushJob(job)

		if found.isEOS && !handoff {
			newPos, newBS100K, done, err := afterHeader(work, first, found.continuePos, found.newBS100K, &bzID)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			pos, bs100k = newPos, newBS100K
			continue
		}
		if !handoff {
			pos = found.continuePos
			continue
		}

		// Handing off to a successor chunk. If a fresh stream header was
		// found, let the session dispatched on that chunk discover and
		// announce it, exactly as chunk 1's own session does; this keeps
		// every sentinel's bz_id starting at zero within its own chunk.
		found.second.ScanFrom = found.handoffBit
		found.second.BS100K = bs100k
		if found.isEOS {
			found.second.FreshStream = true
			found.second.BS100K = found.newBS100K
		}
		work.ReleaseChunk(found.second)
		work.EndSession(first)
		return nil
	}
}
