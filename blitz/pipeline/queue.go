// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package pipeline dispatches queries to workers through a bounded queue.
package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// ErrTerminated means the pipeline is terminated.
var ErrTerminated = errors.New("pipeline: terminated")

// ErrQueueClosed means pushing to a closed queue.
var ErrQueueClosed = errors.New("pipeline: queue closed")

// MinBackoff and MaxBackoff bound the waiting interval of a blocked
// Push or Pop.
var (
	MinBackoff = time.Millisecond
	MaxBackoff = 50 * time.Millisecond
)

// Queue is a bounded circular queue for one or more producers and
// consumers. A blocked call waits with exponential backoff, and gives up
// as soon as the terminate flag is set.
type Queue[T any] struct {
	mu     sync.Mutex
	buf    []T
	head   int // next to pop
	n      int // resident items
	closed bool
	peak   int

	terminate *atomic.Bool
}

// NewQueue creates a queue with the capacity, terminate is optional.
func NewQueue[T any](capacity int, terminate *atomic.Bool) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	if terminate == nil {
		terminate = &atomic.Bool{}
	}
	return &Queue[T]{buf: make([]T, capacity), terminate: terminate}
}

// Push appends an item, blocking while the queue is full.
func (q *Queue[T]) Push(item T) error {
	wait := MinBackoff
	for {
		if q.terminate.Load() {
			return ErrTerminated
		}

		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return ErrQueueClosed
		}
		if q.n < len(q.buf) {
			q.buf[(q.head+q.n)%len(q.buf)] = item
			q.n++
			if q.n > q.peak {
				q.peak = q.n
			}
			q.mu.Unlock()
			return nil
		}
		q.mu.Unlock()

		time.Sleep(wait)
		if wait < MaxBackoff {
			wait <<= 1
			if wait > MaxBackoff {
				wait = MaxBackoff
			}
		}
	}
}

// Pop removes the oldest item, blocking while the queue is empty and not
// closed. ok is false if the queue is drained or terminated.
func (q *Queue[T]) Pop() (item T, ok bool) {
	wait := MinBackoff
	var zero T
	for {
		if q.terminate.Load() {
			return zero, false
		}

		q.mu.Lock()
		if q.n > 0 {
			item = q.buf[q.head]
			q.buf[q.head] = zero
			q.head = (q.head + 1) % len(q.buf)
			q.n--
			q.mu.Unlock()
			return item, true
		}
		if q.closed {
			q.mu.Unlock()
			return zero, false
		}
		q.mu.Unlock()

		time.Sleep(wait)
		if wait < MaxBackoff {
			wait <<= 1
			if wait > MaxBackoff {
				wait = MaxBackoff
			}
		}
	}
}

// Close marks the end of input. Resident items can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Len returns the number of resident items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Cap returns the capacity.
func (q *Queue[T]) Cap() int { return len(q.buf) }

// Peak returns the maximum number of resident items ever observed.
func (q *Queue[T]) Peak() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.peak
}
