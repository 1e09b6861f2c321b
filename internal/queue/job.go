// Package queue implements the three monitors that coordinate the
// splitter, scanning/decoding workers and muxer: free input slots (M->S),
// scan and decode work (SW->W) and finished output (W->M). The job and
// sub-block types do no locking of their own; each monitor type owns a
// sync.Mutex/sync.Cond pair and callers must go through its methods.
package queue

import "github.com/araxis-io/pbzip2/internal/bzip2"

// JobID orders decode jobs (and the sub-blocks they produce) the same way
// the corresponding bytes appear in the input stream: first by the
// s-chunk whose scan discovered the block, then by the block's position
// within that chunk's session.
type JobID struct {
	SChunkID uint64
	BlockID  uint64
}

// Less reports whether id sorts before other.
func (id JobID) Less(other JobID) bool {
	if id.SChunkID != other.SChunkID {
		return id.SChunkID < other.SChunkID
	}
	return id.BlockID < other.BlockID
}

// DecodeJob is the unit of work handed from a scan session to a decoding
// worker. A nil Decoder marks a sentinel: a pure stream-header (or
// stream-transition, or end-of-chunk) marker carrying no payload of its
// own, emitted so the muxer can learn BS100K, reset its stream CRC
// accumulator and advance its cursor at the right point in the output
// order.
type DecodeJob struct {
	ID JobID

	// Last marks the final block (or sentinel) of the entire input.
	Last bool

	// Decoder is nil for a sentinel job.
	Decoder *bzip2.Decoder

	// BS100K is non-zero only on a sentinel that starts a new stream.
	BS100K int

	// Data and StartBit describe the compressed payload a non-sentinel
	// job's decoder should run over; kept here (rather than inside the
	// decoder) so the job can be queued before a worker picks it up.
	Data     []byte
	StartBit int

	// Compressed is len(Data), the size of the compressed buffer handed to
	// the decoder, reported on to Progress alongside the decompressed size.
	Compressed int

	// EndOfStream marks the job for a stream's final block, or, for a
	// stream with no blocks at all, the sentinel standing in for it.
	// StreamCRC is the value stored in that stream's end-of-stream
	// marker, which the muxer checks against its own running
	// accumulator.
	EndOfStream bool
	StreamCRC   uint32

	// EndOfChunk marks the last job a scan session ever pushes for its
	// s-chunk. Since s-chunk ids are assigned gaplessly in input order,
	// this tells the muxer the next job (if any) belongs to SChunkID+1,
	// without it having to track scan-session state itself.
	EndOfChunk bool
}

// decodeHeap is a container/heap of pending decode jobs ordered by JobID,
// used by ScanWork to hand out the lowest-ID job first regardless of scan
// scheduling order.
type decodeHeap []*DecodeJob

func (h decodeHeap) Len() int            { return len(h) }
func (h decodeHeap) Less(i, j int) bool  { return h[i].ID.Less(h[j].ID) }
func (h decodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *decodeHeap) Push(x interface{}) { *h = append(*h, x.(*DecodeJob)) }
func (h *decodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
