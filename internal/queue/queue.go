package queue

import "sync"

// Queue is an unbounded FIFO safe for concurrent use.
// The zero value is not usable; create queues with New.
type Queue[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []T
	waiting int
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an item and wakes one blocked consumer.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.cond.Broadcast()
}

// PushAll appends items as one contiguous run, so no item pushed by another
// goroutine lands between them.
func (q *Queue[T]) PushAll(items ...T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Pop removes and returns the oldest item, blocking while the queue is empty.
func (q *Queue[T]) Pop() T {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.waiting++
	q.cond.Broadcast()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	q.waiting--

	item := q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return item
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether no items are queued.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Waiting returns the number of goroutines currently blocked in Pop.
func (q *Queue[T]) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waiting
}

// WaitForWaiters blocks until at least n goroutines are blocked in Pop on an
// empty queue, or until an item is pushed. It reports whether the waiter
// condition was met.
func (q *Queue[T]) WaitForWaiters(n int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.waiting < n {
		if len(q.items) > 0 {
			return false
		}
		q.cond.Wait()
	}
	return len(q.items) == 0
}
