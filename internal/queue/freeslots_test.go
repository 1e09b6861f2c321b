package queue

import (
	"testing"
	"time"
)

func TestFreeSlotsAcquireRelease(t *testing.T) {
	f := NewFreeSlots(2)
	f.Acquire()
	f.Acquire()

	acquired := make(chan struct{})
	go func() {
		f.Acquire()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire returned before any slot was released")
	case <-time.After(20 * time.Millisecond):
	}

	f.Release(1)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Acquire did not unblock after Release")
	}
}

func TestFreeSlotsReleaseZeroIsNoop(t *testing.T) {
	f := NewFreeSlots(0)
	f.Release(0)
	acquired := make(chan struct{})
	go func() {
		f.Acquire()
		close(acquired)
	}()
	select {
	case <-acquired:
		t.Fatal("Acquire should still block: Release(0) must not credit a slot")
	case <-time.After(20 * time.Millisecond):
	}
	f.Release(1)
	<-acquired
}
