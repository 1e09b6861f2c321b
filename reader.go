// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pbzip2

import (
	"context"
	"io"
)

// NewReader returns an io.Reader that decompresses r's bzip2 data using a
// splitter goroutine, a pool of scanning/decoding worker goroutines and a
// muxer goroutine, all running concurrently. Cancelling ctx stops the
// pipeline and causes subsequent Read calls to return ctx.Err().
func NewReader(ctx context.Context, r io.Reader, opts ...Option) io.Reader {
	o := newPipelineOpts(opts...)
	pr, pw := io.Pipe()
	p := newPipeline(o)
	go p.run(ctx, r, pw)
	return &reader{ctx: ctx, pr: pr}
}

type reader struct {
	ctx context.Context
	pr  *io.PipeReader
}

// Read implements io.Reader. It defers to the underlying pipe, preferring
// a context cancellation error over io.EOF when both are available so
// callers can distinguish a clean end of input from an interrupted one.
func (r *reader) Read(buf []byte) (int, error) {
	n, err := r.pr.Read(buf)
	if err == io.EOF {
		if cerr := r.ctx.Err(); cerr != nil {
			return n, cerr
		}
	}
	return n, err
}
