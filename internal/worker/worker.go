package worker

import (
	"sync"

	"github.com/araxis-io/pbzip2/internal/queue"
)

// Run is the body of one pipeline worker goroutine. It repeatedly asks
// the SW->W monitor for the next decode job or scan session, with decode
// work always taking priority, until the input is fully accounted for.
// The first error encountered by any worker is recorded through errOnce
// and forces the monitor to wind down; it does not try to cancel work
// already in flight on other workers.
func Run(work *queue.ScanWork, delivery *queue.Delivery, errOnce *sync.Once, errOut *error) {
	defer delivery.WorkerExited()
	for {
		a, ok := work.GetFirst()
		if !ok {
			return
		}
		if a.Job != nil {
			if err := runDecode(delivery, a.Job); err != nil {
				errOnce.Do(func() { *errOut = err })
				work.Fail()
				return
			}
			continue
		}
		if err := runSession(work, a.Chunk); err != nil {
			errOnce.Do(func() { *errOut = err })
			work.Fail()
			return
		}
	}
}
