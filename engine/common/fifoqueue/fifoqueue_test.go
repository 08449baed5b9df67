package fifoqueue

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestFifoQueue_Order(t *testing.T) {
	q, err := NewFifoQueue[int]()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.True(t, q.Push(i))
	}
	require.Equal(t, 10, q.Len())

	head, ok := q.Front()
	require.True(t, ok)
	require.Equal(t, 0, head)

	for i := 0; i < 10; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}

	v, ok := q.Pop()
	require.False(t, ok)
	require.Zero(t, v)
}

func TestFifoQueue_Capacity(t *testing.T) {
	q, err := NewFifoQueue[string](WithCapacity(2))
	require.NoError(t, err)

	require.True(t, q.Push("a"))
	require.True(t, q.Push("b"))
	require.False(t, q.Push("c"))
	require.Equal(t, 2, q.Len())

	_, err = NewFifoQueue[string](WithCapacity(0))
	require.Error(t, err)
}

func TestFifoQueue_LengthObserver(t *testing.T) {
	last := atomic.NewInt64(-1)
	q, err := NewFifoQueue[int](WithLengthObserver(func(l int) { last.Store(int64(l)) }))
	require.NoError(t, err)

	q.Push(1)
	require.Equal(t, int64(1), last.Load())
	q.Push(2)
	require.Equal(t, int64(2), last.Load())
	q.Pop()
	require.Equal(t, int64(1), last.Load())

	_, err = NewFifoQueue[int](WithLengthObserver(nil))
	require.Error(t, err)
}
