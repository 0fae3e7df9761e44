package ingest

import (
	"github.com/ghalamif/PressFlow/internal/ports"
)

// Handle tracks one worker of a batch.
type Handle struct {
	Worker int
	Lo, Hi int

	done   chan struct{}
	result ports.BulkResult
	err    error
}

// Wait blocks until the worker has finished.
func (h *Handle) Wait() ports.BulkResult {
	<-h.done
	return h.result
}

// Err reports a failure to open the worker's store connection.
func (h *Handle) Err() error {
	<-h.done
	return h.err
}

// Batch is the set of workers spawned by one Dispatch call.
type Batch struct {
	ID   uint64
	Size int

	handles []*Handle
}

// Handles exposes the worker handles.
func (b *Batch) Handles() []*Handle { return b.handles }

// Wait joins every worker and sums their results.
func (b *Batch) Wait() ports.BulkResult {
	var total ports.BulkResult
	for _, h := range b.handles {
		total.Add(h.Wait())
	}
	return total
}

// Partition splits n items into w contiguous slices whose sizes differ by at
// most one; the remainder goes to the earliest slices.
func Partition(n, w int) [][2]int {
	if w <= 0 {
		w = 1
	}
	out := make([][2]int, w)
	base, rem := n/w, n%w
	lo := 0
	for i := 0; i < w; i++ {
		size := base
		if i < rem {
			size++
		}
		out[i] = [2]int{lo, lo + size}
		lo += size
	}
	return out
}
