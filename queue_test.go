package riakpb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/riakpb/pbc"
)

func TestTaskQueue(t *testing.T) {
	var q taskQueue
	a := NewTask(pbc.RpbPingReq, nil, false, nil)
	b := NewTask(pbc.RpbPingReq, nil, false, nil)
	c := NewTask(pbc.RpbPingReq, nil, false, nil)

	assert.Nil(t, q.popFront())

	require.True(t, q.pushBack(a))
	require.True(t, q.pushBack(b))
	assert.Equal(t, 2, q.len())

	assert.Same(t, a, q.popFront())

	require.True(t, q.pushFront(c))
	assert.Same(t, c, q.popFront())
	assert.Same(t, b, q.popFront())
	assert.Nil(t, q.popFront())
	assert.Equal(t, 0, q.len())
}

func TestTaskQueue_Close(t *testing.T) {
	var q taskQueue
	a := NewTask(pbc.RpbPingReq, nil, false, nil)
	b := NewTask(pbc.RpbPingReq, nil, false, nil)

	q.pushBack(a)
	q.pushBack(b)

	assert.Equal(t, []*Task{a, b}, q.close())
	assert.False(t, q.pushBack(a))
	assert.False(t, q.pushFront(a))
	assert.Nil(t, q.popFront())
	assert.Empty(t, q.close())
}
