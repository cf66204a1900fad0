package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	var q Queue[int]
	assert.True(t, q.Empty())

	q.Push(1)
	assert.False(t, q.Empty())
	assert.Equal(t, q.Pop(), 1)
	assert.True(t, q.Empty())

	q.Push(2)
	q.Push(3)
	assert.Equal(t, 2, q.Len())

	assert.Equal(t, q.Pop(), 2)
	assert.Equal(t, q.Pop(), 3)
	assert.True(t, q.Empty())

	assert.Panics(t, func() { q.Pop() })
}

func TestWorkList(t *testing.T) {
	var w WorkList[string]
	assert.True(t, w.Empty())

	assert.True(t, w.Push("a"))
	assert.True(t, w.Push("b"))
	assert.False(t, w.Push("a"), "duplicate while queued")
	assert.Equal(t, 2, w.Len())

	assert.Equal(t, "a", w.Pop())
	assert.True(t, w.Push("a"), "requeue after pop")
	assert.Equal(t, "b", w.Pop())
	assert.Equal(t, "a", w.Pop())
	assert.True(t, w.Empty())

	assert.PanicsWithValue(t, ErrEmpty, func() { w.Pop() })
}
