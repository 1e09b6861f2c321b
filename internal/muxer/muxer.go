// Package muxer implements the single goroutine that reassembles decoded
// sub-blocks back into output order, validates their checksums and writes
// the result out.
package muxer

import (
	"container/heap"
	"fmt"
	"io"
	"time"

	"github.com/araxis-io/pbzip2/internal/queue"
)

// subHeap orders pending sub-blocks by SubBlockID so Run can wait for
// exactly the one it needs next regardless of decode completion order.
type subHeap []*queue.SubBlock

func (h subHeap) Len() int            { return len(h) }
func (h subHeap) Less(i, j int) bool  { return h[i].ID.Less(h[j].ID) }
func (h subHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *subHeap) Push(x interface{}) { *h = append(*h, x.(*queue.SubBlock)) }
func (h *subHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Block reports one fully reassembled block's identity, checksum and
// decompressed size, for callers that want progress or statistics rather
// than the raw bytes.
type Block struct {
	ID         queue.JobID
	BS100K     int
	BlockCRC   uint32
	Size       int
	Compressed int
	Duration   time.Duration
}

// Run drains delivery, reassembles sub-blocks into their original stream
// order and writes the decompressed bytes to w, calling onBlock (if
// non-nil) once per completed block or sentinel. It returns the first
// error seen from the writer, from a checksum mismatch, or nil once the
// final job (DecodeJob.Last) has been delivered.
//
// firstChunkID is the s-chunk id the splitter assigns its first chunk
// (always 1 in this pipeline's own splitter, but kept explicit so tests
// can drive the muxer directly against a hand-built job sequence).
func Run(w io.Writer, delivery *queue.Delivery, firstChunkID uint64, onBlock func(Block)) error {
	pending := &subHeap{}
	heap.Init(pending)

	needed := queue.SubBlockID{JobID: queue.JobID{SChunkID: firstChunkID, BlockID: 0}}
	var streamCRC uint32
	var blockSize int

	for {
		batch, ok := delivery.Drain()
		if !ok {
			return fmt.Errorf("pbzip2: input ended before the final block was delivered")
		}
		for _, sb := range batch {
			heap.Push(pending, sb)
		}

		for pending.Len() > 0 && (*pending)[0].ID == needed {
			sb := heap.Pop(pending).(*queue.SubBlock)

			if sb.BS100K > 0 {
				streamCRC = 0
			}
			if len(sb.Bytes) > 0 {
				if _, err := w.Write(sb.Bytes); err != nil {
					return err
				}
				blockSize += len(sb.Bytes)
			}

			if !sb.LastSub {
				needed.SubID++
				continue
			}

			if !sb.Sentinel {
				streamCRC = (streamCRC<<1 | streamCRC>>31) ^ sb.BlockCRC
			}
			if sb.EndOfStream {
				if streamCRC != sb.StreamCRC {
					return fmt.Errorf("pbzip2: stream checksum mismatch: got %08x want %08x", streamCRC, sb.StreamCRC)
				}
				// A new stream's own blocks must never fold into this one's
				// residual accumulator, regardless of whether the new stream
				// announces itself with its own BS100K sentinel.
				streamCRC = 0
			}
			if onBlock != nil {
				onBlock(Block{ID: sb.ID.JobID, BS100K: sb.BS100K, BlockCRC: sb.BlockCRC, Size: blockSize, Compressed: sb.Compressed, Duration: sb.Duration})
			}
			blockSize = 0

			if sb.Last {
				return nil
			}
			if sb.EndOfChunk {
				needed = queue.SubBlockID{JobID: queue.JobID{SChunkID: sb.ID.SChunkID + 1, BlockID: 0}}
			} else {
				needed = queue.SubBlockID{JobID: queue.JobID{SChunkID: sb.ID.SChunkID, BlockID: sb.ID.BlockID + 1}}
			}
		}
	}
}
