package muxer

import (
	"bytes"
	"testing"

	"github.com/araxis-io/pbzip2/internal/queue"
)

func push(d *queue.Delivery, sbs ...*queue.SubBlock) {
	for _, sb := range sbs {
		d.Push(sb)
	}
}

func jid(schunk, block uint64) queue.JobID {
	return queue.JobID{SChunkID: schunk, BlockID: block}
}

func subID(schunk, block, sub uint64) queue.SubBlockID {
	return queue.SubBlockID{JobID: jid(schunk, block), SubID: sub}
}

// TestRunReordersAndHandsOffChunks builds, out of push order, the
// sub-blocks of a two-block stream whose second block is discovered by
// the next s-chunk's own scan session (EndOfChunk on the first block),
// and checks that Run reassembles the bytes in the right order and
// reports one Block per LastSub sub-block it crosses, including the
// stream-start sentinel.
func TestRunReordersAndHandsOffChunks(t *testing.T) {
	block0a := []byte("hello ")
	block0b := []byte("world")
	block1 := []byte("!")

	var streamCRC uint32
	streamCRC = (streamCRC<<1 | streamCRC>>31) ^ 0xAAAAAAAA // block 0's crc
	streamCRC = (streamCRC<<1 | streamCRC>>31) ^ 0xBBBBBBBB // block 1's crc

	// The stream-start sentinel occupies block id 0 of s-chunk 1, the
	// real block 0 occupies block id 1; its s-chunk-crossing successor
	// (block id 0 of s-chunk 2) is pushed out of order deliberately.
	d := queue.NewDelivery(1)
	push(d,
		&queue.SubBlock{ID: subID(1, 0, 0), Sentinel: true, LastSub: true, BS100K: 9},
		&queue.SubBlock{
			ID: subID(2, 0, 0), LastSub: true, Last: true, Bytes: block1,
			BlockCRC: 0xBBBBBBBB, EndOfStream: true, StreamCRC: streamCRC,
		},
		&queue.SubBlock{ID: subID(1, 1, 1), LastSub: true, Bytes: block0b, BlockCRC: 0xAAAAAAAA, EndOfChunk: true},
		&queue.SubBlock{ID: subID(1, 1, 0), Bytes: block0a},
	)
	d.WorkerExited()

	var out bytes.Buffer
	var blocks []Block
	err := Run(&out, d, 1, func(b Block) { blocks = append(blocks, b) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := out.String(), "hello world!"; got != want {
		t.Errorf("output: got %q, want %q", got, want)
	}
	if got, want := len(blocks), 3; got != want {
		t.Fatalf("block count: got %d, want %d", got, want)
	}
	if got, want := blocks[1].BlockCRC, uint32(0xAAAAAAAA); got != want {
		t.Errorf("block 1 crc: got %#x, want %#x", got, want)
	}
	if got, want := blocks[2].BlockCRC, uint32(0xBBBBBBBB); got != want {
		t.Errorf("block 2 crc: got %#x, want %#x", got, want)
	}
}

// TestRunDetectsStreamCRCMismatch checks that a stored stream CRC which
// doesn't match the accumulated per-block CRCs is reported as an error
// rather than silently accepted.
func TestRunDetectsStreamCRCMismatch(t *testing.T) {
	d := queue.NewDelivery(1)
	push(d,
		&queue.SubBlock{ID: subID(1, 0, 0), Sentinel: true, LastSub: true, BS100K: 9},
		&queue.SubBlock{ID: subID(1, 1, 0), Bytes: []byte("x")},
		&queue.SubBlock{
			ID: subID(1, 1, 1), LastSub: true, Last: true,
			BlockCRC: 0x1, EndOfStream: true, StreamCRC: 0xDEADBEEF,
		},
	)
	d.WorkerExited()

	err := Run(&bytes.Buffer{}, d, 1, nil)
	if err == nil {
		t.Fatal("expected a stream checksum mismatch error, got nil")
	}
}

// TestRunEmptyStream checks that a stream with no blocks at all (just a
// stream-start sentinel immediately followed by an end-of-stream
// sentinel) produces no output and no error, since its accumulated CRC
// of zero matches a stored CRC of zero.
func TestRunEmptyStream(t *testing.T) {
	d := queue.NewDelivery(1)
	push(d,
		&queue.SubBlock{ID: subID(1, 0, 0), Sentinel: true, LastSub: true, BS100K: 9},
		&queue.SubBlock{
			ID: subID(1, 1, 0), Sentinel: true, LastSub: true, Last: true,
			EndOfStream: true, StreamCRC: 0,
		},
	)
	d.WorkerExited()

	var out bytes.Buffer
	if err := Run(&out, d, 1, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}
