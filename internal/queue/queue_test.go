package queue

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	assert := assert.New(t)
	t.Run("Empty Queue", func(t *testing.T) {
		q := New[string](1)

		assert.True(q.IsEmpty())
		assert.Equal(0, q.Length())
		_, ok := q.Dequeue()
		assert.False(ok)
		_, ok = q.Peek()
		assert.False(ok)
	})

	t.Run("Enqueue and Dequeue", func(t *testing.T) {
		q := New[string](1)

		q.Enqueue("data1")
		assert.False(q.IsEmpty())
		assert.Equal(1, q.Length())

		q.Enqueue("data2")
		assert.Equal(2, q.Length())

		item, ok := q.Dequeue()
		assert.True(ok)
		assert.Equal("data1", item)
		assert.Equal(1, q.Length())

		item, ok = q.Dequeue()
		assert.True(ok)
		assert.Equal("data2", item)
		assert.True(q.IsEmpty())

		_, ok = q.Dequeue()
		assert.False(ok)
		assert.True(q.IsEmpty())
	})

	t.Run("Peek", func(t *testing.T) {
		q := New[int](1)

		q.Enqueue(1)
		item, ok := q.Peek()
		assert.True(ok)
		assert.Equal(1, item)
		assert.Equal(1, q.Length()) // Length should not change after peek

		q.Enqueue(2)
		item, _ = q.Peek()
		assert.Equal(1, item)
		assert.Equal(2, q.Length())

		q.Dequeue()
		item, _ = q.Peek()
		assert.Equal(2, item)

		q.Dequeue()
		_, ok = q.Peek()
		assert.False(ok)
	})

	t.Run("Interleaved", func(t *testing.T) {
		q := New[int](2)
		next := 0
		for i := 0; i < 100; i++ {
			q.Enqueue(2 * i)
			q.Enqueue(2*i + 1)
			item, ok := q.Dequeue()
			assert.True(ok)
			assert.Equal(next, item)
			next++
		}
		assert.Equal(100, q.Length())
		for !q.IsEmpty() {
			item, _ := q.Dequeue()
			assert.Equal(next, item)
			next++
		}
		assert.Equal(200, next)
	})

	t.Run("Reset", func(t *testing.T) {
		q := New[string](4)
		q.Enqueue("a")
		q.Enqueue("b")
		q.Dequeue()
		q.Reset()
		assert.True(q.IsEmpty())
		assert.Equal(0, q.Length())

		q.Enqueue("c")
		item, _ := q.Dequeue()
		assert.Equal("c", item)
	})

	t.Run("Concurrency", func(t *testing.T) {
		var mu sync.Mutex
		q := New[string](1)

		var wg sync.WaitGroup
		for i := 0; i < 1000; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				mu.Lock()
				q.Enqueue(strconv.Itoa(i))
				mu.Unlock()
			}(i)
		}
		wg.Wait()

		assert.Equal(1000, q.Length())

		wg.Add(1000)
		for i := 0; i < 1000; i++ {
			go func() {
				defer wg.Done()
				mu.Lock()
				q.Dequeue()
				mu.Unlock()
			}()
		}
		wg.Wait()

		assert.True(q.IsEmpty())
	})
}

func BenchmarkQueue_100(b *testing.B) {
	q := New[int](100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j := 0; j < 100; j++ {
			q.Enqueue(j)
		}
		for !q.IsEmpty() {
			q.Dequeue()
		}
	}
}
