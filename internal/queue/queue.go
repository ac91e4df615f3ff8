// Package queue provides an unbounded, concurrent-safe FIFO queue backed by
// container/list, with a blocking Pop that honours context cancellation.
//
// The queue imposes no capacity: producers never block. Bounding it with
// backpressure is left to callers that need it.
package queue

import (
	"container/list"
	"context"
	"sync"
)

// Queue is an unbounded FIFO queue safe for many producers and consumers.
type Queue[T any] struct {
	mu    sync.Mutex
	items *list.List
	// ready holds at most one wake-up token for blocked consumers
	ready chan struct{}
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: list.New(),
		ready: make(chan struct{}, 1),
	}
}

// Push appends an item to the back of the queue. It never blocks.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items.PushBack(item)
	q.mu.Unlock()
	q.signal()
}

// Pop removes the item at the front of the queue, blocking until one is
// available or ctx is done. Items already queued are returned even when ctx
// is done, which lets callers drain with a cancelled context.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		if item, ok := q.TryPop(); ok {
			return item, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.ready:
		}
	}
}

// TryPop removes the item at the front of the queue without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	front := q.items.Front()
	if front == nil {
		q.mu.Unlock()
		var zero T
		return zero, false
	}
	q.items.Remove(front)
	more := q.items.Len() > 0
	q.mu.Unlock()

	if more {
		q.signal()
	}
	return front.Value.(T), true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Drain removes and returns every queued item in FIFO order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := make([]T, 0, q.items.Len())
	for e := q.items.Front(); e != nil; e = e.Next() {
		drained = append(drained, e.Value.(T))
	}
	q.items.Init()
	return drained
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
