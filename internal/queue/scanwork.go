package queue

import (
	"container/heap"
	"sync"

	"github.com/araxis-io/pbzip2/internal/chunk"
)

// ScanWork is the SW->W monitor. It hands a worker either the next decode
// job (entropy-decode + inverse BWT + emit for a block already located)
// or the next unscanned chunk to run a scan session over, with decode
// work always taking priority. It also lets a scan session in the middle
// of retrieving a block that straddles a chunk boundary obtain the
// successor chunk once the splitter has published it.
type ScanWork struct {
	mu       sync.Mutex
	cond     *sync.Cond
	nextScan *chunk.Chunk
	jobs     decodeHeap
	eof      bool
	scanning int
	slots    *FreeSlots
}

// NewScanWork creates a ScanWork monitor that credits freed chunks back
// to slots.
func NewScanWork(slots *FreeSlots) *ScanWork {
	w := &ScanWork{slots: slots}
	w.cond = sync.NewCond(&w.mu)
	heap.Init(&w.jobs)
	return w
}

// Publish links a newly read chunk into the scan chain. prev is the
// chunk read immediately before c, or nil if c is the first chunk of the
// input.
func (w *ScanWork) Publish(prev, c *chunk.Chunk) {
	w.mu.Lock()
	if prev == nil {
		w.nextScan = c
	} else {
		prev.Next = c
		if prev.SessionDone {
			w.nextScan = c
		}
	}
	w.mu.Unlock()
	w.cond.Broadcast()
}

// SetEOF records that the splitter has published every chunk of the
// input; no chunk will ever again gain a Next.
func (w *ScanWork) SetEOF() {
	w.mu.Lock()
	w.eof = true
	w.mu.Unlock()
	w.cond.Broadcast()
}

// PushJob enqueues a decode job discovered by a scan session.
func (w *ScanWork) PushJob(job *DecodeJob) {
	w.mu.Lock()
	heap.Push(&w.jobs, job)
	w.mu.Unlock()
	w.cond.Broadcast()
}

// Assignment is what GetFirst hands back to a worker.
type Assignment struct {
	Job   *DecodeJob
	Chunk *chunk.Chunk
}

// GetFirst blocks until there is a decode job, a chunk to start scanning,
// or the input is fully accounted for (ok == false, the worker should
// exit). Decode jobs always take priority over starting a new scan
// session, per the pipeline's latency goal of draining finished work
// ahead of discovering more of it.
func (w *ScanWork) GetFirst() (a Assignment, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for {
		if len(w.jobs) > 0 {
			job := heap.Pop(&w.jobs).(*DecodeJob)
			return Assignment{Job: job}, true
		}
		if w.nextScan != nil {
			c := w.nextScan
			w.nextScan = nil
			w.scanning++
			return Assignment{Chunk: c}, true
		}
		if w.eof && w.scanning == 0 {
			return Assignment{}, false
		}
		w.cond.Wait()
	}
}

// GetSecond blocks until cur.Next is available to extend a retrieval that
// ran off the end of cur, retaining it on the caller's behalf. ok is
// false if the input ended before a successor chunk ever appeared, which
// the caller must treat as a framing error (a block that doesn't
// terminate within two chunks is unrecoverable).
func (w *ScanWork) GetSecond(cur *chunk.Chunk) (next *chunk.Chunk, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for cur.Next == nil {
		if w.eof {
			return nil, false
		}
		w.cond.Wait()
	}
	cur.Next.Retain()
	return cur.Next, true
}

// ReleaseChunk drops one reference to c, freeing its slot back to the
// splitter once nothing needs it any longer.
func (w *ScanWork) ReleaseChunk(c *chunk.Chunk) {
	w.mu.Lock()
	freed := c.Release()
	w.mu.Unlock()
	if freed {
		w.slots.Release(1)
	}
}

// Fail records that decoding cannot continue: it forces every blocked or
// future GetFirst/GetSecond call to return as if the input had ended, so
// the remaining workers wind down instead of hanging on scan work that
// will never matter now.
func (w *ScanWork) Fail() {
	w.mu.Lock()
	w.eof = true
	w.scanning = 0
	w.mu.Unlock()
	w.cond.Broadcast()
}

// EndSession is called once by whichever worker's session was dispatched
// `first` via GetFirst, when that session has exhausted first's own
// bytes (or hit true end of input). It chains the scan forward and
// releases the session's baseline reference to first.
func (w *ScanWork) EndSession(first *chunk.Chunk) {
	w.mu.Lock()
	w.scanning--
	first.SessionDone = true
	if first.Next != nil {
		w.nextScan = first.Next
	}
	w.mu.Unlock()
	w.cond.Broadcast()
	w.ReleaseChunk(first)
}
