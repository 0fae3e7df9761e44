package queue

import (
	"sync"

	"github.com/ghalamif/PressFlow/internal/ports"
)

// MemQueue is a bounded in-memory FIFO of frame files. A path is accepted at
// most once for the lifetime of the queue.
type MemQueue struct {
	mu   sync.Mutex
	data []ports.FrameFile
	seen map[string]struct{}
	cap  int
}

func NewMemQueue(capacity int) *MemQueue {
	return &MemQueue{
		data: make([]ports.FrameFile, 0, capacity),
		seen: make(map[string]struct{}),
		cap:  capacity,
	}
}

// Enqueue returns false when the queue is full or the path was already
// accepted.
func (q *MemQueue) Enqueue(f ports.FrameFile) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, dup := q.seen[f.Path]; dup {
		return false
	}
	if len(q.data) >= q.cap {
		return false
	}
	q.seen[f.Path] = struct{}{}
	q.data = append(q.data, f)
	return true
}

func (q *MemQueue) DequeueBatch(max int) []ports.FrameFile {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	if max <= 0 || max > len(q.data) {
		max = len(q.data)
	}
	out := make([]ports.FrameFile, max)
	copy(out, q.data[:max])
	q.data = append(q.data[:0], q.data[max:]...)
	return out
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

var _ ports.FileQueue = (*MemQueue)(nil)
