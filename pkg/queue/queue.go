// Package queue provides an unbounded FIFO queue for handing work between
// goroutines.
//
// Producers never block. Consumers either block in Pop, drain whatever is
// queued with Drain, or select on Ready alongside other channels. Close
// stops producers while letting consumers finish the queued items;
// CloseWithError discards them.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by Push after Close, and by Pop once a closed
// queue is empty.
var ErrClosed = errors.New("queue: closed")

// Queue is a thread-safe unbounded FIFO queue.
type Queue[T any] struct {
	ready chan struct{}
	done  chan struct{}

	mu       sync.Mutex
	closed   bool
	closeErr error
	items    []T
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Push appends t to the tail of the queue.
func (q *Queue[T]) Push(t T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closeErr != nil {
		return fmt.Errorf("queue: push to closed queue: %w", q.closeErr)
	}
	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, t)
	q.signal()
	return nil
}

// signal wakes one waiter. The caller holds q.mu.
func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Pop removes and returns the head of the queue, blocking until an item is
// available, the queue is closed and empty, or ctx is done.
func (q *Queue[T]) Pop(ctx context.Context) (t T, err error) {
	for {
		q.mu.Lock()
		if q.closeErr != nil {
			q.mu.Unlock()
			return t, fmt.Errorf("queue: pop from closed queue: %w", q.closeErr)
		}
		if len(q.items) > 0 {
			t = q.popLocked()
			q.mu.Unlock()
			return t, nil
		}
		if q.closed {
			q.mu.Unlock()
			return t, ErrClosed
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return t, ctx.Err()
		}
	}
}

// TryPop removes and returns the head of the queue without blocking.
func (q *Queue[T]) TryPop() (t T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 || q.closeErr != nil {
		return t, false
	}
	return q.popLocked(), true
}

func (q *Queue[T]) popLocked() T {
	var zero T
	t := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) > 0 {
		q.signal()
	}
	return t
}

// Drain removes and returns every queued item in order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Ready is signalled when items may be available. A receive does not
// guarantee an item; callers follow it with TryPop or Drain.
func (q *Queue[T]) Ready() <-chan struct{} { return q.ready }

// Done is closed once the queue is closed.
func (q *Queue[T]) Done() <-chan struct{} { return q.done }

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further pushes. Queued items can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// CloseWithError closes the queue and discards the queued items. Pending
// and later Pops return err. A nil err means ErrClosed.
func (q *Queue[T]) CloseWithError(err error) {
	if err == nil {
		err = ErrClosed
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closeErr != nil {
		return
	}
	q.closeErr = err
	q.items = nil
	if !q.closed {
		q.closed = true
		close(q.done)
	}
}
