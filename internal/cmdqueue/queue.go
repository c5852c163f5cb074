/*
 * Copyright 2025 SREDiag Authors
 * Copyright 2023 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cmdqueue is the FIFO carrying commands from glue callbacks to the
// overlay loop goroutine.
package cmdqueue

import (
	"errors"
	"fmt"

	queuepkg "github.com/Workiva/go-datastructures/queue"
)

// ErrDisposed is returned by Put after Dispose.
var ErrDisposed = errors.New("command queue disposed")

// default cap is 64; the loop drains every tick.
const defaultQueueCap = 64

// Queue is a non-blocking multi-producer, single-consumer FIFO.
type Queue[T any] struct {
	q *queuepkg.Queue
}

// New returns a queue with the given initial capacity hint.
func New[T any](cap int) *Queue[T] {
	if cap <= 0 {
		cap = defaultQueueCap
	}
	return &Queue[T]{q: queuepkg.New(int64(cap))}
}

// Put appends e. It never blocks.
func (q *Queue[T]) Put(e T) error {
	if err := q.q.Put(e); err != nil {
		if errors.Is(err, queuepkg.ErrDisposed) {
			return ErrDisposed
		}
		return fmt.Errorf("put command: %w", err)
	}
	return nil
}

// Len returns the number of pending commands.
func (q *Queue[T]) Len() int {
	return int(q.q.Len())
}

// Drain removes and returns every pending command in FIFO order. It never
// blocks; an empty queue yields nil.
func (q *Queue[T]) Drain() []T {
	n := q.q.Len()
	if n == 0 {
		return nil
	}
	items, err := q.q.Get(n)
	if err != nil {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		e, ok := it.(T)
		if !ok {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Dispose drops pending commands and rejects further Puts.
func (q *Queue[T]) Dispose() {
	q.q.Dispose()
}

// Disposed reports whether Dispose was called.
func (q *Queue[T]) Disposed() bool {
	return q.q.Disposed()
}
