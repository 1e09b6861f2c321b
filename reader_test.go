// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pbzip2_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/araxis-io/pbzip2"
	"github.com/araxis-io/pbzip2/internal"
)

func TestReaderRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("shells out to a system bzip2 binary")
	}
	tmpdir := t.TempDir()
	ctx := context.Background()

	for _, tc := range []struct {
		name      string
		blockSize string
		data      []byte
	}{
		{"empty", "-1", nil},
		{"hello", "-1", []byte("hello world\n")},
		{"500KB", "-3", internal.GenReproducibleRandomData(500 * 1024)},
		{"2MB", "-1", internal.GenReproducibleRandomData(2 * 1024 * 1024)},
	} {
		filename := filepath.Join(tmpdir, tc.name)
		if err := internal.CreateBzipFile(filename, tc.blockSize, tc.data); err != nil {
			t.Fatalf("%v: %v", tc.name, err)
		}

		for _, concurrency := range []int{1, 2, runtime.GOMAXPROCS(-1)} {
			f, err := os.Open(filename + ".bz2")
			if err != nil {
				t.Fatalf("%v: %v", tc.name, err)
			}
			rd := pbzip2.NewReader(ctx, f, pbzip2.Concurrency(concurrency))
			got, err := io.ReadAll(rd)
			f.Close()
			if err != nil {
				t.Fatalf("%v: concurrency=%v: %v", tc.name, concurrency, err)
			}
			if !bytes.Equal(got, tc.data) {
				t.Errorf("%v: concurrency=%v: got %v..., want %v...",
					tc.name, concurrency, internal.FirstN(20, got), internal.FirstN(20, tc.data))
			}
		}
	}
}

// TestReaderMultiStream covers concatenated bzip2 streams within a single
// input, each compressed with its own block size, which a decoder must
// treat as back-to-back independent streams rather than folding a later
// stream's blocks into an earlier stream's checksum accumulator.
func TestReaderMultiStream(t *testing.T) {
	if testing.Short() {
		t.Skip("shells out to a system bzip2 binary")
	}
	tmpdir := t.TempDir()
	ctx := context.Background()

	parts := []struct {
		blockSize string
		data      []byte
	}{
		{"-1", []byte("the first stream\n")},
		{"-9", internal.GenReproducibleRandomData(300 * 1024)},
		{"-3", []byte("the third and final stream\n")},
	}

	var compressed, want []byte
	for i, p := range parts {
		filename := filepath.Join(tmpdir, fmt.Sprintf("part%d", i))
		if err := internal.CreateBzipFile(filename, p.blockSize, p.data); err != nil {
			t.Fatalf("part %v: %v", i, err)
		}
		buf, err := os.ReadFile(filename + ".bz2")
		if err != nil {
			t.Fatalf("part %v: %v", i, err)
		}
		compressed = append(compressed, buf...)
		want = append(want, p.data...)
	}

	for _, concurrency := range []int{1, 2, runtime.GOMAXPROCS(-1)} {
		rd := pbzip2.NewReader(ctx, bytes.NewReader(compressed), pbzip2.Concurrency(concurrency))
		got, err := io.ReadAll(rd)
		if err != nil {
			t.Fatalf("concurrency=%v: %v", concurrency, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("concurrency=%v: got %v..., want %v...",
				concurrency, internal.FirstN(20, got), internal.FirstN(20, want))
		}
	}
}

func TestReaderCancellation(t *testing.T) {
	if testing.Short() {
		t.Skip("shells out to a system bzip2 binary")
	}
	tmpdir := t.TempDir()
	filename := filepath.Join(tmpdir, "cancel")
	if err := internal.CreateBzipFile(filename, "-1", internal.GenReproducibleRandomData(2*1024*1024)); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filename + ".bz2")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rd := pbzip2.NewReader(ctx, f)
	if _, err := io.ReadAll(rd); err == nil {
		t.Fatal("expected an error from a reader given an already-cancelled context")
	}
}

func TestReaderChecksumMismatch(t *testing.T) {
	if testing.Short() {
		t.Skip("shells out to a system bzip2 binary")
	}
	tmpdir := t.TempDir()
	filename := filepath.Join(tmpdir, "corrupt")
	if err := internal.CreateBzipFile(filename, "-1", []byte("hello world\n")); err != nil {
		t.Fatal(err)
	}
	buf, err := os.ReadFile(filename + ".bz2")
	if err != nil {
		t.Fatal(err)
	}
	buf[len(buf)-1] ^= 0xff

	rd := pbzip2.NewReader(context.Background(), bytes.NewReader(buf))
	if _, err := io.ReadAll(rd); err == nil {
		t.Fatal("expected a checksum mismatch error from corrupted input")
	}
}
