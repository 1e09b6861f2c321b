package queue

import (
	"testing"
	"time"
)

func TestDeliveryDrainBatchesPushes(t *testing.T) {
	d := NewDelivery(1)
	d.Push(&SubBlock{ID: subID(1, 0, 0)})
	d.Push(&SubBlock{ID: subID(1, 0, 1)})

	batch, ok := d.Drain()
	if !ok {
		t.Fatal("Drain reported no work with two pushed sub-blocks")
	}
	if got, want := len(batch), 2; got != want {
		t.Fatalf("batch size: got %d, want %d", got, want)
	}
}

func TestDeliveryDrainBlocksUntilPushOrExit(t *testing.T) {
	d := NewDelivery(1)
	done := make(chan struct{})
	go func() {
		batch, ok := d.Drain()
		if !ok || len(batch) != 1 {
			t.Errorf("Drain: got batch=%v ok=%v, want one sub-block", batch, ok)
		}
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Drain returned before anything was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	d.Push(&SubBlock{ID: subID(1, 0, 0)})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Drain did not unblock after Push")
	}
}

func TestDeliveryDrainEndsWhenWorkersExit(t *testing.T) {
	d := NewDelivery(2)
	d.WorkerExited()

	done := make(chan bool)
	go func() {
		_, ok := d.Drain()
		done <- ok
	}()

	select {
	case <-done:
		t.Fatal("Drain returned with one worker still live and nothing queued")
	case <-time.After(20 * time.Millisecond):
	}

	d.WorkerExited()
	select {
	case ok := <-done:
		if ok {
			t.Fatal("Drain should report no more work once every worker has exited")
		}
	case <-time.After(time.Second):
		t.Fatal("Drain never returned after the last WorkerExited")
	}
}

func subID(schunk, block, sub uint64) SubBlockID {
	return SubBlockID{JobID: JobID{SChunkID: schunk, BlockID: block}, SubID: sub}
}
