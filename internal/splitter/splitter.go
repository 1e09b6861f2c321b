// Package splitter implements the single goroutine that reads the
// compressed input stream into fixed-size s-chunks and publishes them to
// the scan chain, throttled by the pool of free chunk slots.
package splitter

import (
	"context"
	"io"

	"github.com/araxis-io/pbzip2/internal/chunk"
	"github.com/araxis-io/pbzip2/internal/queue"
)

// Run reads r to completion, allocating one s-chunk at a time (blocking
// on slots when NumSlots chunks are already in flight), and publishes
// each one to work. It returns the first read error other than io.EOF,
// or nil on a clean end of input. Run is meant to be the body of the
// pipeline's single splitter goroutine.
func Run(ctx context.Context, r io.Reader, slots *queue.FreeSlots, work *queue.ScanWork) error {
	var prev *chunk.Chunk
	var id uint64

	for {
		if err := ctx.Err(); err != nil {
			work.SetEOF()
			return err
		}

		slots.Acquire()
		id++
		c := chunk.New(id)

		n, err := io.ReadFull(r, c.Buffer())
		c.Loaded = n
		short := err == io.ErrUnexpectedEOF || err == io.EOF

		if n > 0 {
			work.Publish(prev, c)
			prev = c
		} else {
			// Nothing read this round: give the slot back, there is no
			// chunk to publish.
			slots.Release(1)
		}

		if short {
			work.SetEOF()
			return nil
		}
		if err != nil {
			work.SetEOF()
			return err
		}
	}
}
