package splitter

import (
	"bytes"
	"context"
	"testing"

	"github.com/araxis-io/pbzip2/internal/queue"
)

func TestRunPublishesSingleShortChunk(t *testing.T) {
	data := []byte("hello world")
	slots := queue.NewFreeSlots(2)
	work := queue.NewScanWork(slots)

	if err := Run(context.Background(), bytes.NewReader(data), slots, work); err != nil {
		t.Fatalf("Run: %v", err)
	}

	a, ok := work.GetFirst()
	if !ok || a.Chunk == nil {
		t.Fatal("expected one published chunk")
	}
	if got, want := a.Chunk.Bytes(), data; !bytes.Equal(got, want) {
		t.Fatalf("chunk bytes: got %q, want %q", got, want)
	}
	if a.Chunk.Full() {
		t.Fatal("a short read should not report Full")
	}

	work.SetEOF()
	work.EndSession(a.Chunk)
	if _, ok := work.GetFirst(); ok {
		t.Fatal("GetFirst should report no more work once the only chunk's session ends and eof is set")
	}
}

func TestRunPropagatesContextCancellation(t *testing.T) {
	slots := queue.NewFreeSlots(2)
	work := queue.NewScanWork(slots)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, bytes.NewReader([]byte("data")), slots, work)
	if err == nil {
		t.Fatal("expected Run to report the cancelled context")
	}
}
