// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"

	"cloudeng.io/cmdutil"
	"cloudeng.io/cmdutil/subcmd"
	"cloudeng.io/errors"
	"github.com/araxis-io/pbzip2"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/schollz/progressbar/v2"
	"golang.org/x/crypto/ssh/terminal"
	"v.io/x/lib/vlog"
)

// CommonFlags are shared by every subcommand that decompresses data.
type CommonFlags struct {
	Concurrency int  `subcmd:"concurrency,4,'concurrency for the decompression'"`
	NumSlots    int  `subcmd:"slots,,'number of in-flight input chunks, defaults to 2x concurrency'"`
	Verbose     bool `subcmd:"verbose,false,verbose debug/trace information"`
}

type catFlags struct {
	CommonFlags
}

type unzipFlags struct {
	CommonFlags
	ProgressBar bool   `subcmd:"progress,true,display a progress bar"`
	OutputFile  string `subcmd:"output,,'output file or s3 path, omit for stdout'"`
}

type noFlags struct{}

var cmdSet *subcmd.CommandSet

func init() {
	defaultConcurrency := map[string]interface{}{
		"concurrency": runtime.GOMAXPROCS(-1),
	}

	bzcatCmd := subcmd.NewCommand("cat",
		subcmd.MustRegisterFlagStruct(&catFlags{}, defaultConcurrency, nil),
		cat, subcmd.AtLeastNArguments(0))
	bzcatCmd.Document(`decompress bzip2 files or stdin. Files may be local, on S3 or a URL.`)

	unzipCmd := subcmd.NewCommand("unzip",
		subcmd.MustRegisterFlagStruct(&unzipFlags{}, defaultConcurrency, nil),
		unzip, subcmd.ExactlyNumArguments(1))
	unzipCmd.Document(`decompress a bzip2 file.`)

	scanCmd := subcmd.NewCommand("scan",
		subcmd.MustRegisterFlagStruct(&noFlags{}, nil, nil),
		scan, subcmd.AtLeastNArguments(1))
	scanCmd.Document(`scan a bzip2 file using the pbzip2 package's parallel pipeline, printing each block's boundary.`)

	bz2Stats := subcmd.NewCommand("bz2-stats",
		subcmd.MustRegisterFlagStruct(&noFlags{}, nil, nil),
		bz2stats, subcmd.AtLeastNArguments(1))
	bz2Stats.Document(`scan a bzip2 file to obtain per-block stats; intended purely for debugging purposes.`)

	cmdSet = subcmd.NewCommandSet(bzcatCmd, unzipCmd, scanCmd, bz2Stats)
	cmdSet.Document(`decompress and inspect bzip2 files. Files may be local, on S3 or a URL.`)

	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(
			s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

func progressBar(ctx context.Context, progressBarWr io.Writer, ch chan pbzip2.Progress, size int64) {
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetBytes64(size),
		progressbar.OptionSetWriter(progressBarWr),
		progressbar.OptionSetPredictTime(true))
	bar.RenderBlank()
	for {
		select {
		case p, ok := <-ch:
			if !ok {
				fmt.Fprintf(progressBarWr, "\n")
				return
			}
			bar.Add(p.Compressed)
			vlog.VI(1).Infof("block %d.%d: crc=%08x size=%d", p.SChunk, p.Block, p.CRC, p.Size)
		case <-ctx.Done():
			return
		}
	}
}

func openFileOrURL(ctx context.Context, name string) (io.Reader, int64, func(context.Context) error, error) {
	if strings.HasPrefix(name, "http") {
		resp, err := http.Get(name)
		if err != nil {
			return nil, 0, nil, err
		}
		return resp.Body,
			resp.ContentLength,
			func(context.Context) error {
				resp.Body.Close()
				return nil
			},
			err
	}
	return openFileOrURLWithRetry(ctx, name)
}

func createFile(ctx context.Context, name string) (io.Writer, func(context.Context) error, error) {
	if len(name) == 0 {
		return os.Stdout,
			func(context.Context) error {
				return nil
			},
			nil
	}
	f, err := file.Create(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return f.Writer(ctx), f.Close, nil
}

func main() {
	cmdSet.MustDispatch(context.Background())
}

func optsFromCommonFlags(cl *CommonFlags) []pbzip2.Option {
	opts := []pbzip2.Option{
		pbzip2.Concurrency(cl.Concurrency),
		pbzip2.Verbose(cl.Verbose),
	}
	if cl.NumSlots > 0 {
		opts = append(opts, pbzip2.NumSlots(cl.NumSlots))
	}
	return opts
}

func cat(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cl := values.(*catFlags)
	cmdutil.HandleSignals(cancel, os.Interrupt)

	bzOpts := optsFromCommonFlags(&cl.CommonFlags)

	if len(args) == 0 {
		rd := pbzip2.NewReader(ctx, os.Stdin, bzOpts...)
		_, err := io.Copy(os.Stdout, rd)
		return err
	}

	for _, inputFile := range args {
		rd, _, readerCleanup, err := openFileOrURL(ctx, inputFile)
		if err != nil {
			return err
		}
		defer readerCleanup(ctx)

		dc := pbzip2.NewReader(ctx, rd, bzOpts...)
		if _, err := io.Copy(os.Stdout, dc); err != nil {
			return err
		}
	}
	return nil
}

func optsFromUnzipFlags(cl *unzipFlags) (bzOpts []pbzip2.Option, progressBarCh chan pbzip2.Progress, isTTY bool) {
	bzOpts = optsFromCommonFlags(&cl.CommonFlags)

	isTTY = terminal.IsTerminal(int(os.Stdout.Fd()))
	if cl.ProgressBar && (len(cl.OutputFile) > 0 || !isTTY) {
		ch := make(chan pbzip2.Progress, cl.Concurrency)
		bzOpts = append(bzOpts, pbzip2.SendUpdates(ch))
		progressBarCh = ch
	}
	return
}

func unzip(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	cmdutil.HandleSignals(cancel, os.Interrupt)
	cl := values.(*unzipFlags)

	bzOpts, progressBarCh, isTTY := optsFromUnzipFlags(cl)

	rd, size, readerCleanup, err := openFileOrURL(ctx, args[0])
	if err != nil {
		return err
	}
	defer readerCleanup(ctx)

	wr, writerCleanup, err := createFile(ctx, cl.OutputFile)
	if err != nil {
		return err
	}

	var (
		progressBarWg sync.WaitGroup
		progressBarWr = os.Stdout
	)

	if progressBarCh != nil {
		progressBarWg.Add(1)
		if !isTTY {
			progressBarWr = os.Stderr
		}
		go func() {
			progressBar(ctx, progressBarWr, progressBarCh, size)
			progressBarWg.Done()
		}()
	}

	dc := pbzip2.NewReader(ctx, rd, bzOpts...)

	errs := &errors.M{}
	_, err = io.Copy(wr, dc)
	errs.Append(err)
	errs.Append(writerCleanup(ctx))

	if progressBarCh != nil {
		close(progressBarCh)
		progressBarWg.Wait()
	}

	return errs.Err()
}
