// Package chunk implements the s-chunk: the fixed-capacity input buffer
// handed from the splitter to the scanning/decoding workers.
package chunk

// WordCapacity is C, the number of 32-bit words held by a full s-chunk
// (262144 words == 1 MiB).
const WordCapacity = 262144

// BytesCapacity is the byte equivalent of WordCapacity.
const BytesCapacity = WordCapacity * 4

// Chunk is a fixed-capacity buffer of 32-bit words read from the input
// stream by the splitter. Chunks form a singly linked "scan chain" via
// Next, set by whichever goroutine is responsible for the hand-off (see
// internal/queue.ScanWork). Next, SessionDone and refcount are only ever
// read or mutated while the SW->W monitor's lock is held; that monitor is
// the only place refcount transitions to zero and triggers destruction.
// Loaded is set by the splitter before the chunk is published, and
// ScanFrom, BS100K, FreshStream and Exhausted are set by a scan session
// before it hands the chunk on through that monitor.
type Chunk struct {
	// ID is the chunk's monotonically increasing sequence number, starting
	// at 1.
	ID uint64

	// data holds Loaded bytes of input, padded with zero bytes up to the
	// next word boundary. Trailing garbage beyond EOF within the final
	// partial word is never read, by design (see spec's open question).
	data []byte

	// Loaded is the number of real input bytes read into data (1..BytesCapacity).
	// A chunk with Loaded < BytesCapacity is always the last chunk read from
	// the stream.
	Loaded int

	// Next becomes non-nil once the chunk that follows this one in the
	// stream has been published by the splitter.
	Next *Chunk

	// ScanFrom is the bit offset, within data, from which this chunk's own
	// scan session should resume its search for the next block-start magic.
	// It is non-zero only when a previous session consumed a leading prefix
	// of this chunk while finishing a block that straddled the boundary
	// with its predecessor.
	ScanFrom int

	// SessionDone is set once this chunk has been dispatched as a scan
	// session's `first` and that session has finished with it. It lets
	// queue.ScanWork's Publish and EndSession race safely over which of
	// them links the following chunk into the scan chain.
	SessionDone bool

	// BS100K is the block size (in units of 100000 bytes) in effect for
	// the stream whose scan is handed off to this chunk. Carried forward
	// alongside ScanFrom so a session dispatched on this chunk need not
	// rediscover it.
	BS100K int

	// FreshStream marks a chunk whose session must parse a "BZh#" stream
	// header at ScanFrom before searching for block magics, because the
	// scan that discovered the header's position ran out of chunk before
	// it could consume the header itself.
	FreshStream bool

	// Exhausted marks a chunk a predecessor's session already fully
	// accounted for while confirming true end of input; its own session
	// should do nothing but release it.
	Exhausted bool

	// refcount is the number of live holders: the chunk's own scanner, plus
	// (at most) one predecessor scanner that obtained it as a "second
	// chunk". Mutated only under the SW->W monitor.
	refcount int
}

// New allocates a chunk with a full-capacity backing buffer. The caller
// fills Loaded bytes via Bytes()[:n] before publishing it.
func New(id uint64) *Chunk {
	return &Chunk{
		ID:       id,
		data:     make([]byte, BytesCapacity),
		refcount: 1,
	}
}

// Buffer returns the full backing array so the splitter can Read into it.
func (c *Chunk) Buffer() []byte { return c.data }

// Bytes returns the chunk's loaded bytes.
func (c *Chunk) Bytes() []byte { return c.data[:c.Loaded] }

// Full reports whether the chunk was read at full capacity, i.e. it is not
// (yet known to be) the last chunk of the stream.
func (c *Chunk) Full() bool { return c.Loaded == BytesCapacity }

// Retain increments the chunk's refcount. Must be called with the SW->W
// monitor held.
func (c *Chunk) Retain() { c.refcount++ }

// Release decrements the chunk's refcount and reports whether it reached
// zero. Must be called with the SW->W monitor held.
func (c *Chunk) Release() bool {
	c.refcount--
	return c.refcount == 0
}
