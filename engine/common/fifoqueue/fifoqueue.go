package fifoqueue

import (
	"fmt"
	mathbits "math/bits"
	"sync"

	"github.com/ef-ds/deque"
)

// FifoQueue implements a FIFO queue with max capacity and length observer.
// Elements that exceed the queue's max capacity are dropped and Push reports false.
// By default, the theoretical capacity equals to the largest `int` value
// (platform dependent). Capacity can be set at construction time via the
// option `WithCapacity`.
// Each time the queue's length changes, the QueueLengthObserver is called
// with the new length. By default, the QueueLengthObserver is a NoOp.
//
// The queue is concurrency safe. The QueueLengthObserver must be non-blocking.
type FifoQueue[T any] struct {
	mu             sync.RWMutex
	queue          deque.Deque
	maxCapacity    int
	lengthObserver QueueLengthObserver
}

// ConstructorOption is an optional argument for the `NewFifoQueue`
// constructor to specify properties of the FifoQueue.
type ConstructorOption func(*settings) error

type settings struct {
	maxCapacity    int
	lengthObserver QueueLengthObserver
}

// QueueLengthObserver is a callback that can optionally provided
// to the `NewFifoQueue` constructor (via `WithLengthObserver` option).
type QueueLengthObserver func(int)

// WithCapacity is a constructor option for NewFifoQueue. It specifies the
// max number of elements the queue can hold.
func WithCapacity(capacity int) ConstructorOption {
	return func(s *settings) error {
		if capacity < 1 {
			return fmt.Errorf("capacity for Fifo queue must be positive")
		}
		s.maxCapacity = capacity
		return nil
	}
}

// WithLengthObserver is a constructor option for NewFifoQueue. Each time the
// queue's length changes, the queue calls the provided callback with the new
// length.
func WithLengthObserver(callback QueueLengthObserver) ConstructorOption {
	return func(s *settings) error {
		if callback == nil {
			return fmt.Errorf("nil is not a valid QueueLengthObserver")
		}
		s.lengthObserver = callback
		return nil
	}
}

// NewFifoQueue constructs an empty queue.
func NewFifoQueue[T any](options ...ConstructorOption) (*FifoQueue[T], error) {
	s := &settings{
		maxCapacity:    1<<(mathbits.UintSize-1) - 1,
		lengthObserver: func(int) { /* noop */ },
	}
	for _, opt := range options {
		err := opt(s)
		if err != nil {
			return nil, fmt.Errorf("failed to apply constructor option to fifoqueue queue: %w", err)
		}
	}
	return &FifoQueue[T]{
		maxCapacity:    s.maxCapacity,
		lengthObserver: s.lengthObserver,
	}, nil
}

// Push appends the given value to the tail of the queue.
// Returns false if the queue is at capacity and the element was dropped.
func (q *FifoQueue[T]) Push(element T) bool {
	length, pushed := q.push(element)

	if pushed {
		q.lengthObserver(length)
	}
	return pushed
}

func (q *FifoQueue[T]) push(element T) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	length := q.queue.Len()
	if length < q.maxCapacity {
		q.queue.PushBack(element)
		return length + 1, true
	}
	return length, false
}

// Front peeks the element at the head of the queue without removing it.
func (q *FifoQueue[T]) Front() (T, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	v, ok := q.queue.Front()
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Pop removes and returns the queue's head element.
// If the queue is empty, (zero, false) is returned.
func (q *FifoQueue[T]) Pop() (T, bool) {
	event, length, ok := q.pop()
	if !ok {
		var zero T
		return zero, false
	}

	q.lengthObserver(length)
	return event, true
}

func (q *FifoQueue[T]) pop() (T, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	event, ok := q.queue.PopFront()
	if !ok {
		var zero T
		return zero, 0, false
	}
	return event.(T), q.queue.Len(), true
}

// Len returns the current length of the queue.
func (q *FifoQueue[T]) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.queue.Len()
}
