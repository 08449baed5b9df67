package fifoqueue

import (
	"fmt"
	mathbits "math/bits"
	"sync"

	"github.com/ef-ds/deque"
)

// FifoQueue implements a FIFO queue with max capacity and length observer.
// Elements that exceed the queue's max capacity are dropped and reported to the
// caller through the return value of Push.
// By default, the theoretical capacity equals to the largest `int` value
// (platform dependent). Capacity can be set at construction time via the
// option `WithCapacity`.
// Each time the queue's length changes, the QueueLengthObserver is called
// with the new length. By default, the QueueLengthObserver is a NoOp.
//
// The queue is safe for concurrent use. The QueueLengthObserver must be non-blocking.
type FifoQueue[T any] struct {
	mu             sync.RWMutex
	queue          deque.Deque
	maxCapacity    int
	lengthObserver QueueLengthObserver
}

// ConstructorOption is an optional argument for the `NewFifoQueue`
// constructor to specify properties of the FifoQueue.
type ConstructorOption func(*config) error

// QueueLengthObserver is a callback that can optionally provided
// to the `NewFifoQueue` constructor (via `WithLengthObserver` option).
type QueueLengthObserver func(int)

type config struct {
	maxCapacity    int
	lengthObserver QueueLengthObserver
}

// WithCapacity is a constructor option for NewFifoQueue. It specifies the
// max number of elements the queue can hold.
func WithCapacity(capacity int) ConstructorOption {
	return func(c *config) error {
		if capacity < 1 {
			return fmt.Errorf("capacity for Fifo queue must be positive")
		}
		c.maxCapacity = capacity
		return nil
	}
}

// WithLengthObserver is a constructor option for NewFifoQueue. Each time the
// queue's length changes, the queue calls the provided callback with the new
// length.
func WithLengthObserver(callback QueueLengthObserver) ConstructorOption {
	return func(c *config) error {
		if callback == nil {
			return fmt.Errorf("nil is not a valid QueueLengthObserver")
		}
		c.lengthObserver = callback
		return nil
	}
}

// NewFifoQueue is the constructor for FifoQueue.
func NewFifoQueue[T any](options ...ConstructorOption) (*FifoQueue[T], error) {
	cfg := &config{
		maxCapacity:    1<<(mathbits.UintSize-1) - 1,
		lengthObserver: func(int) { /* noop */ },
	}
	for _, opt := range options {
		err := opt(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to apply constructor option to fifoqueue queue: %w", err)
		}
	}
	return &FifoQueue[T]{
		maxCapacity:    cfg.maxCapacity,
		lengthObserver: cfg.lengthObserver,
	}, nil
}

// Push appends the given value to the tail of the queue.
// Returns false if the queue capacity is reached and the element was dropped.
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

// Front peeks at the head of the queue (without removing the head).
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
// If the queue is empty, (zero value, false) is returned.
func (q *FifoQueue[T]) Pop() (T, bool) {
	element, length, ok := q.pop()
	if !ok {
		var zero T
		return zero, false
	}

	q.lengthObserver(length)
	return element, true
}

func (q *FifoQueue[T]) pop() (T, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	v, ok := q.queue.PopFront()
	if !ok {
		var zero T
		return zero, q.queue.Len(), false
	}
	return v.(T), q.queue.Len(), true
}

// Len returns the current length of the queue.
func (q *FifoQueue[T]) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.queue.Len()
}
