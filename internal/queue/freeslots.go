package queue

import "sync"

// FreeSlots is the M->S monitor: it bounds the number of s-chunks live in
// memory at once to NumSlots, so the splitter cannot outrun the scanning
// and decoding workers on a large input.
type FreeSlots struct {
	mu    sync.Mutex
	cond  *sync.Cond
	avail int
}

// NewFreeSlots creates a FreeSlots monitor with n slots initially available.
func NewFreeSlots(n int) *FreeSlots {
	f := &FreeSlots{avail: n}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Acquire blocks until a slot is available, then takes it.
func (f *FreeSlots) Acquire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.avail == 0 {
		f.cond.Wait()
	}
	f.avail--
}

// Release returns n slots to the pool, waking any blocked splitter.
func (f *FreeSlots) Release(n int) {
	if n == 0 {
		return
	}
	f.mu.Lock()
	f.avail += n
	f.mu.Unlock()
	f.cond.Broadcast()
}
