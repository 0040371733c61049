package fifoqueue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFifoQueue_Order(t *testing.T) {
	q, err := NewFifoQueue[int]()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.True(t, q.Push(i))
	}
	head, ok := q.Front()
	require.True(t, ok)
	assert.Equal(t, 0, head)

	for i := 0; i < 10; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestFifoQueue_Capacity(t *testing.T) {
	q, err := NewFifoQueue[string](WithCapacity(2))
	require.NoError(t, err)

	assert.True(t, q.Push("a"))
	assert.True(t, q.Push("b"))
	assert.False(t, q.Push("c"))
	assert.Equal(t, 2, q.Len())

	_, err = NewFifoQueue[string](WithCapacity(0))
	assert.Error(t, err)
}

func TestFifoQueue_LengthObserver(t *testing.T) {
	var mu sync.Mutex
	var lengths []int
	q, err := NewFifoQueue[int](WithLengthObserver(func(l int) {
		mu.Lock()
		defer mu.Unlock()
		lengths = append(lengths, l)
	}))
	require.NoError(t, err)

	q.Push(1)
	q.Push(2)
	q.Pop()
	q.Pop()
	q.Pop() // empty, not observed

	assert.Equal(t, []int{1, 2, 1, 0}, lengths)
}
