package worker

import (
	"time"

	"github.com/araxis-io/pbzip2/internal/queue"
)

// subBlockSize bounds how much decompressed output a single sub-block
// carries to the muxer, so one large block's expansion doesn't have to
// sit in memory all at once.
const subBlockSize = 1 << 20

// runDecode executes one decode job end to end, pushing its expanded
// bytes to delivery as a sequence of sub-blocks. A sentinel job (nil
// Decoder) produces a single zero-length sub-block carrying only its
// stream-transition metadata.
func runDecode(delivery *queue.Delivery, job *queue.DecodeJob) error {
	if job.Decoder == nil {
		delivery.Push(&queue.SubBlock{
			ID:          queue.SubBlockID{JobID: job.ID},
			LastSub:     true,
			Last:        job.Last,
			BS100K:      job.BS100K,
			EndOfChunk:  job.EndOfChunk,
			EndOfStream: job.EndOfStream,
			StreamCRC:   job.StreamCRC,
			Sentinel:    true,
		})
		return nil
	}

	start := time.Now()
	if err := job.Decoder.Work(job.Data, job.StartBit); err != nil {
		return err
	}

	var subID uint64
	for {
		buf := make([]byte, subBlockSize)
		n, done, err := job.Decoder.Emit(buf)
		if err != nil {
			return err
		}
		if !done {
			delivery.Push(&queue.SubBlock{
				ID:    queue.SubBlockID{JobID: job.ID, SubID: subID},
				Bytes: buf[:n],
			})
			subID++
			continue
		}
		delivery.Push(&queue.SubBlock{
			ID:          queue.SubBlockID{JobID: job.ID, SubID: subID},
			LastSub:     true,
			Last:        job.Last,
			BlockCRC:    job.Decoder.CRC(),
			EndOfStream: job.EndOfStream,
			StreamCRC:   job.StreamCRC,
			EndOfChunk:  job.EndOfChunk,
			Duration:    time.Since(start),
			Compressed:  job.Compressed,
		})
		job.Decoder.Destroy()
		return nil
	}
}
