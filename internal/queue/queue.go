// Package queue provides the unbounded FIFO hand-off between the goroutines
// that watch a child process and the caller blocked waiting on it.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Publish after Close, and by Receive once the
// queue is closed and drained.
var ErrClosed = errors.New("queue closed")

// Queue is a multi-producer, single-consumer FIFO. Publish never blocks;
// Receive blocks until an item is available or the queue is closed.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int
	closed bool

	// notify holds at most one pending wake-up for the consumer.
	notify chan struct{}
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		notify: make(chan struct{}, 1),
	}
}

// Publish appends item. It is safe to call concurrently.
// Returns ErrClosed if the queue has been closed.
func (q *Queue[T]) Publish(item T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.wake()
	return nil
}

// Close marks the end of the stream. Items already published can still be
// received. Close is safe to call multiple times.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wake()
}

// Receive removes and returns the oldest item, blocking until one exists.
// If ctx is done first, no item is consumed and ctx.Err() is returned.
func (q *Queue[T]) Receive(ctx context.Context) (T, error) {
	for {
		if item, ok, err := q.TryReceive(); ok || err != nil {
			return item, err
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryReceive returns the oldest item without blocking.
// ok is false when the queue is empty; err is ErrClosed when it is also closed.
func (q *Queue[T]) TryReceive() (item T, ok bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head < len(q.items) {
		item = q.items[q.head]
		var zero T
		q.items[q.head] = zero
		q.head++
		q.compact()
		return item, true, nil
	}

	if q.closed {
		return item, false, ErrClosed
	}
	return item, false, nil
}

// Len returns the number of items waiting to be received.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// compact reclaims the consumed prefix once it dominates the backing array.
// Caller must hold mu.
func (q *Queue[T]) compact() {
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return
	}
	if q.head > 64 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
}

func (q *Queue[T]) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
		// A wake-up is already pending
	}
}
