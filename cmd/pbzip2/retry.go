// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/grailbio/base/file"
	"v.io/x/lib/vlog"
)

// openFileOrURLWithRetry resolves a local path or s3:// object to a
// reader, retrying failed file.Stat/file.Open calls with exponential
// backoff for up to 30 seconds. Errors are not classified: a permanent
// failure, such as a missing file, is retried like a transient one until
// that limit is reached.
func openFileOrURLWithRetry(ctx context.Context, name string) (io.Reader, int64, func(context.Context) error, error) {
	var info file.Info
	var rc file.File

	op := func() error {
		var err error
		info, err = file.Stat(ctx, name)
		if err != nil {
			vlog.VI(1).Infof("stat %v: %v, retrying", name, err)
			return err
		}
		rc, err = file.Open(ctx, name)
		if err != nil {
			vlog.VI(1).Infof("open %v: %v, retrying", name, err)
			return err
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(op, bo); err != nil {
		return nil, 0, nil, err
	}
	return rc.Reader(ctx), info.Size(), rc.Close, nil
}
