package riakpb

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/riakpb/pbc"
)

// push hands item to the consumer the way the client's event loop does.
func push(s *Stream, item pbc.Body) bool {
	select {
	case s.items <- item:
		s.delivered++
		return true
	case <-s.abandoned:
		return false
	}
}

func TestStream_RecvUntilEOF(t *testing.T) {
	s := NewStream()
	ctx := context.Background()

	go func() {
		push(s, pbc.Body{"n": 1})
		push(s, pbc.Body{"n": 2})
		s.finish(nil)
	}()

	items, err := s.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []pbc.Body{{"n": 1}, {"n": 2}}, items)

	_, err = s.Recv(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, s.Err())
}

func TestStream_Error(t *testing.T) {
	s := NewStream()
	boom := errors.New("boom")

	assert.NoError(t, s.Err())

	go func() {
		push(s, pbc.Body{"n": 1})
		s.finish(boom)
		s.finish(nil)
	}()

	items, err := s.Collect(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []pbc.Body{{"n": 1}}, items)
	assert.ErrorIs(t, s.Err(), boom)
}

func TestStream_RecvContext(t *testing.T) {
	s := NewStream()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStream_BreakClosesStream(t *testing.T) {
	s := NewStream()

	delivered := make(chan bool, 2)
	go func() {
		delivered <- push(s, pbc.Body{"n": 1})
		delivered <- push(s, pbc.Body{"n": 2})
	}()

	for range s.All(context.Background()) {
		break
	}

	assert.True(t, <-delivered)
	assert.False(t, <-delivered)
	assert.Equal(t, 1, s.delivered)
}

func TestTask_ResolveOnce(t *testing.T) {
	calls := 0
	var got pbc.Body
	task := NewTask(pbc.RpbPingReq, nil, false, Callback(func(err error, result pbc.Body) {
		calls++
		got = result
		assert.NoError(t, err)
	}))

	task.resolve(nil, nil)
	task.resolve(errors.New("late"), nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, pbc.Body{}, got)
}
