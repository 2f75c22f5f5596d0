package modem

import (
	"sync"
	"time"
)

// queue is an unbounded FIFO safe for concurrent use. Ready is signalled,
// without blocking, whenever an item is pushed.
type queue[T any] struct {
	mu    sync.Mutex
	items []T
	ready chan struct{}
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{ready: make(chan struct{}, 1)}
}

func (q *queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// PopWait pops the oldest item, waiting up to timeout for one to arrive.
func (q *queue[T]) PopWait(timeout time.Duration, done <-chan struct{}) (T, bool) {
	if v, ok := q.Pop(); ok {
		return v, true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-q.ready:
			if v, ok := q.Pop(); ok {
				return v, true
			}
		case <-timer.C:
			return q.Pop()
		case <-done:
			var zero T
			return zero, false
		}
	}
}

// Drain removes and returns every queued item.
func (q *queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue[T]) Ready() <-chan struct{} {
	return q.ready
}
