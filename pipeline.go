// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pbzip2

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/araxis-io/pbzip2/internal/muxer"
	"github.com/araxis-io/pbzip2/internal/queue"
	"github.com/araxis-io/pbzip2/internal/splitter"
	"github.com/araxis-io/pbzip2/internal/worker"
)

// pipeline owns the three monitors and the splitter, worker and muxer
// goroutines built on top of them. run starts everything and blocks until
// the muxer has written every byte of output (or failed), exactly as the
// teacher's Decompressor.Finish waits for its worker and assembly
// goroutines.
type pipeline struct {
	opts pipelineOpts
}

func newPipeline(opts pipelineOpts) *pipeline {
	return &pipeline{opts: opts}
}

func (p *pipeline) trace(format string, args ...interface{}) {
	if p.opts.verbose {
		log.Printf(format, args...)
	}
}

// run decompresses r into pw, closing pw with whatever error (nil on
// success) the pipeline finished with.
func (p *pipeline) run(ctx context.Context, r io.Reader, pw *io.PipeWriter) {
	slots := queue.NewFreeSlots(p.opts.numSlots)
	work := queue.NewScanWork(slots)
	delivery := queue.NewDelivery(p.opts.concurrency)

	var wg sync.WaitGroup
	var errOnce sync.Once
	var workerErr error

	wg.Add(p.opts.concurrency)
	for i := 0; i < p.opts.concurrency; i++ {
		go func() {
			defer wg.Done()
			worker.Run(work, delivery, &errOnce, &workerErr)
		}()
	}

	var splitErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.trace("splitter: starting")
		splitErr = splitter.Run(ctx, r, slots, work)
		p.trace("splitter: done: %v", splitErr)
	}()

	onBlock := func(b muxer.Block) {
		p.trace("block %d.%d: crc=%08x size=%d dur=%s", b.ID.SChunkID, b.ID.BlockID, b.BlockCRC, b.Size, b.Duration)
		if p.opts.progressCh != nil {
			select {
			case p.opts.progressCh <- Progress{
				SChunk:     b.ID.SChunkID,
				Block:      b.ID.BlockID,
				BS100K:     b.BS100K,
				CRC:        b.BlockCRC,
				Compressed: b.Compressed,
				Size:       b.Size,
				Duration:   b.Duration,
			}:
			case <-ctx.Done():
			}
		}
	}

	muxErr := muxer.Run(pw, delivery, 1, onBlock)
	if muxErr != nil {
		// Stop workers promptly rather than leave them decoding blocks
		// whose output nobody will ever read.
		work.Fail()
	}

	wg.Wait()

	err := ctx.Err()
	if err == nil {
		err = muxErr
	}
	if err == nil {
		err = splitErr
	}
	if err == nil {
		err = workerErr
	}
	pw.CloseWithError(err)
}
