package worker

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/araxis-io/pbzip2/internal/chunk"
	"github.com/araxis-io/pbzip2/internal/queue"
)

// bzipBytes shells out to the system bzip2 binary, the same fixture
// strategy the rest of this repo's tests use rather than hand-rolling an
// encoder.
func bzipBytes(t *testing.T, blockSize string, data []byte) []byte {
	t.Helper()
	if testing.Short() {
		t.Skip("shells out to a system bzip2 binary")
	}
	dir := t.TempDir()
	name := filepath.Join(dir, "in")
	if err := os.WriteFile(name, data, 0600); err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command("bzip2", blockSize, name)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("bzip2: %v: %v", err, string(out))
	}
	buf, err := os.ReadFile(name + ".bz2")
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

// decodeViaSession runs a single scan session plus its decode jobs over a
// compressed buffer small enough to fit in one s-chunk, driving runSession
// and runDecode directly rather than the full pipeline, and returns the
// decompressed bytes.
func decodeViaSession(t *testing.T, compressed []byte) []byte {
	t.Helper()
	c := chunk.New(1)
	n := copy(c.Buffer(), compressed)
	c.Loaded = n

	slots := queue.NewFreeSlots(4)
	work := queue.NewScanWork(slots)
	work.Publish(nil, c)

	a, ok := work.GetFirst()
	if !ok || a.Chunk != c {
		t.Fatal("expected the published chunk as the first assignment")
	}
	if err := runSession(work, a.Chunk); err != nil {
		t.Fatalf("runSession: %v", err)
	}
	work.SetEOF()

	delivery := queue.NewDelivery(1)
	var out bytes.Buffer
	for {
		asn, ok := work.GetFirst()
		if !ok {
			break
		}
		if asn.Job == nil {
			t.Fatal("expected only decode jobs once the session has run")
		}
		if err := runDecode(delivery, asn.Job); err != nil {
			t.Fatalf("runDecode: %v", err)
		}
	}
	delivery.WorkerExited()

	for {
		batch, ok := delivery.Drain()
		if !ok {
			break
		}
		for _, sb := range batch {
			out.Write(sb.Bytes)
		}
	}
	return out.Bytes()
}

// TestRunSessionFirstBlockStartsAtItsOwnCRC is a regression test for a bug
// where the very first block of a stream had its own leading 48-bit block
// magic folded into its decode payload instead of being consumed before
// the payload starts: decoding would either fail outright or silently
// misinterpret the block's early Huffman tables.
func TestRunSessionFirstBlockStartsAtItsOwnCRC(t *testing.T) {
	want := []byte("the quick brown fox jumps over the lazy dog, repeatedly, many times over")
	got := decodeViaSession(t, bzipBytes(t, "-1", want))
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// TestRunSessionEmptyStream covers a stream with no blocks at all: the
// header is immediately followed by its end-of-stream marker.
func TestRunSessionEmptyStream(t *testing.T) {
	got := decodeViaSession(t, bzipBytes(t, "-1", nil))
	if len(got) != 0 {
		t.Fatalf("got %q, want empty output", got)
	}
}
