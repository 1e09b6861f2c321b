// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"cloudeng.io/cmdutil"
	"cloudeng.io/errors"
	"github.com/araxis-io/pbzip2"
)

func scanFile(ctx context.Context, name string) error {
	rd, _, readerCleanup, err := openFileOrURL(ctx, name)
	if err != nil {
		return err
	}
	defer readerCleanup(ctx)
	return pbzip2.Scan(ctx, rd, func(b pbzip2.BlockInfo) error {
		fmt.Printf("%v: block %d.%d: bs100k=%d compressed=%d crc=0x%08x\n",
			name, b.SChunk, b.Block, b.BS100K, b.Compressed, b.CRC)
		return nil
	})
}

func scan(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cmdutil.HandleSignals(cancel, os.Interrupt)
	errs := errors.M{}
	for _, arg := range args {
		errs.Append(scanFile(ctx, arg))
	}
	return errs.Err()
}

func bz2StatsFile(ctx context.Context, name string) error {
	rd, _, readerCleanup, err := openFileOrURL(ctx, name)
	if err != nil {
		return err
	}
	defer readerCleanup(ctx)

	fmt.Printf("=== %v ===\n", name)
	fmt.Printf("Block, CRC, Compressed, BS100K\n")
	var blocks int
	if err := pbzip2.Scan(ctx, rd, func(b pbzip2.BlockInfo) error {
		blocks++
		fmt.Printf("% 12d.% -6d : 0x%08x : % 12d : bs100k=%d\n",
			b.SChunk, b.Block, b.CRC, b.Compressed, b.BS100K)
		return nil
	}); err != nil {
		return fmt.Errorf("failed to scan: %v: %v", name, err)
	}
	fmt.Printf("Total blocks: %v\n", blocks)
	return nil
}

func bz2stats(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cmdutil.HandleSignals(cancel, os.Interrupt)
	errs := errors.M{}
	for _, arg := range args {
		errs.Append(bz2StatsFile(ctx, arg))
	}
	return errs.Err()
}
