// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package pbzip2 implements a concurrent bzip2 decompressor. A single
// goroutine splits the compressed input into fixed-size chunks, a pool of
// worker goroutines locate block boundaries and run the entropy decoder
// over located blocks, and a single muxer goroutine reassembles the
// decoded output back into its original order. See NewReader for the
// package's entry point.
package pbzip2
