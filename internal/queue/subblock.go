package queue

import "time"

// SubBlockID extends JobID with the position of a piece of decompressed
// output within the block it came from, since a block's expansion is
// delivered to the muxer in possibly many caller-sized pieces.
type SubBlockID struct {
	JobID
	SubID uint64
}

// Less reports whether id sorts before other in output order.
func (id SubBlockID) Less(other SubBlockID) bool {
	if id.JobID != other.JobID {
		return id.JobID.Less(other.JobID)
	}
	return id.SubID < other.SubID
}

// SubBlock is a piece of a decoded block's output, tagged with enough
// metadata for the muxer to validate CRCs and detect stream boundaries
// without consulting the job that produced it.
type SubBlock struct {
	ID SubBlockID

	// LastSub marks the final sub-block of its block.
	LastSub bool
	// Last marks the final block (or sentinel) of the entire input.
	Last bool

	Bytes []byte

	// BlockCRC is valid only when LastSub is true; it is the block's
	// fully-computed CRC, to be folded into the running stream CRC.
	BlockCRC uint32

	// BS100K is non-zero only on the sub-block produced by a stream-start
	// sentinel, telling the muxer which block size the new stream uses.
	BS100K int

	// Sentinel marks a sub-block produced by a sentinel job: it carries no
	// decoded payload and BlockCRC is meaningless, even if LastSub is set.
	Sentinel bool

	// EndOfStream marks the LastSub sub-block of a stream's final block
	// (or, for a stream with no blocks at all, its closing sentinel).
	// StreamCRC is the value stored in that stream's end-of-stream
	// marker, checked against the running accumulator.
	EndOfStream bool
	StreamCRC   uint32

	// EndOfChunk mirrors DecodeJob.EndOfChunk: set on the LastSub
	// sub-block of the last job a scan session pushed for its s-chunk, so
	// the muxer knows the next job (if any) starts a new chunk at BlockID
	// zero rather than continuing the current one.
	EndOfChunk bool

	// Duration is valid only on a LastSub sub-block: the wall-clock time
	// its job's worker spent decoding, for Progress reporting.
	Duration time.Duration

	// Compressed mirrors DecodeJob.Compressed, valid only on LastSub.
	Compressed int
}
