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

package cmdqueue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

var parallelism = 16

func TestQueueOperate(t *testing.T) {
	q := New[int](0)
	assert.Nil(t, q.Drain())
	for i := 0; i < 10; i++ {
		assert.Equal(t, nil, q.Put(i))
	}
	assert.Equal(t, 10, q.Len())
	got := q.Drain()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
	assert.Equal(t, 0, q.Len())
	assert.Nil(t, q.Drain())
}

func TestQueueGrowsPastCapacity(t *testing.T) {
	q := New[string](2)
	for _, s := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, nil, q.Put(s))
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, q.Drain())
}

func TestQueueMultiProducer(t *testing.T) {
	q := New[int](0)
	var wg sync.WaitGroup
	for i := 0; i < parallelism; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = q.Put(i*100 + j)
			}
		}(i)
	}
	wg.Wait()
	got := q.Drain()
	assert.Equal(t, parallelism*100, len(got))

	// per-producer order is preserved
	last := make(map[int]int)
	for _, v := range got {
		p := v / 100
		if prev, ok := last[p]; ok {
			assert.Less(t, prev, v)
		}
		last[p] = v
	}
}

func TestQueueDispose(t *testing.T) {
	q := New[int](0)
	assert.Equal(t, nil, q.Put(1))
	q.Dispose()
	assert.True(t, q.Disposed())
	assert.ErrorIs(t, q.Put(2), ErrDisposed)
	assert.Nil(t, q.Drain())
}
