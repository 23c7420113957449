package scheduler

import (
	"container/heap"
	"errors"
	"sync"
)

// ErrQueueFull is returned by Enqueue when the bounded queue is at
// capacity, mirroring the source's queue.Full handling (log and drop).
var ErrQueueFull = errors.New("scheduler: job queue is full")

// Job is one unit of scheduled work: run collectorName, and if interval is
// non-negative, restart its Timer for another interval once it finishes.
// Lower Priority values are more urgent.
type Job struct {
	Priority  int
	Interval  int // seconds; -1 means "enqueue once, do not reschedule"
	Collector string
}

// item is the heap.Interface element; seq breaks priority ties FIFO, the
// way a plain queue.PriorityQueue with equal keys behaves close enough to
// insertion order for this system's purposes.
type item struct {
	job Job
	seq uint64
}

type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].job.Priority != h[j].job.Priority {
		return h[i].job.Priority < h[j].job.Priority
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x interface{}) { *h = append(*h, x.(*item)) }
func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// BoundedQueue is a capacity-limited priority queue of Jobs, safe for
// concurrent use. Blocking dequeue is implemented with a buffered signal
// channel rather than condition variables, matching the bounded-wait loop
// the scheduler drives it with.
type BoundedQueue struct {
	mu       sync.Mutex
	heap     itemHeap
	capacity int
	nextSeq  uint64
	notify   chan struct{}
}

// NewBoundedQueue creates a queue that holds at most capacity jobs.
func NewBoundedQueue(capacity int) *BoundedQueue {
	return &BoundedQueue{capacity: capacity, notify: make(chan struct{}, 1)}
}

// Put enqueues job, returning ErrQueueFull if the queue is already at
// capacity.
func (q *BoundedQueue) Put(job Job) error {
	q.mu.Lock()
	if len(q.heap) >= q.capacity {
		q.mu.Unlock()
		return ErrQueueFull
	}
	heap.Push(&q.heap, &item{job: job, seq: q.nextSeq})
	q.nextSeq++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// TryGet pops the most urgent job if one is available, without blocking.
func (q *BoundedQueue) TryGet() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return Job{}, false
	}
	it := heap.Pop(&q.heap).(*item)
	return it.job, true
}

// Signal returns the channel that Put posts to, for a select-based
// bounded-wait dequeue loop.
func (q *BoundedQueue) Signal() <-chan struct{} { return q.notify }

// Cancel removes every queued job for collectorName, used by a full scan
// to drop anything stale before re-enqueueing every collector at the
// highest priority.
func (q *BoundedQueue) Cancel(collectorName string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.heap[:0]
	for _, it := range q.heap {
		if it.job.Collector != collectorName {
			kept = append(kept, it)
		}
	}
	q.heap = kept
	heap.Init(&q.heap)
}
