// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pbzip2

import (
	"context"
	"io"
	"io/ioutil"
)

// BlockInfo reports one located block's identity and checksum. Compressed
// is the length of the compressed buffer handed to the block's decoder,
// which runs from the block's start to the end of its s-chunk (or of the
// successor chunk, for a block that crosses a chunk boundary). Stream and
// chunk markers are reported too, with a zero CRC and Compressed; BS100K
// is non-zero only on the marker that starts a stream.
type BlockInfo struct {
	SChunk, Block uint64
	BS100K        int
	Compressed    int
	CRC           uint32
}

// Scan runs the splitter/worker/muxer pipeline to locate and decode every
// block of r, invoking fn once per block or marker in stream order, but discards the
// decompressed bytes rather than returning them. It backs the `scan` and
// `bz2-stats` inspection subcommands: blocks are still decoded internally
// (this pipeline has no way to locate a block without also decoding it),
// Scan just avoids writing the result anywhere.
func Scan(ctx context.Context, r io.Reader, fn func(BlockInfo) error, opts ...Option) error {
	ch := make(chan Progress, 16)
	opts = append(opts, SendUpdates(ch))
	rd := NewReader(ctx, r, opts...)

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(ioutil.Discard, rd)
		close(ch)
		done <- err
	}()

	var fnErr error
	for p := range ch {
		if fnErr != nil {
			continue
		}
		fnErr = fn(BlockInfo{
			SChunk:     p.SChunk,
			Block:      p.Block,
			BS100K:     p.BS100K,
			Compressed: p.Compressed,
			CRC:        p.CRC,
		})
	}
	if err := <-done; err != nil {
		return err
	}
	return fnErr
}
