package riakpb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/riakpb/pbc"
)

func frame(t pbc.MessageType, body pbc.Body) pbc.Frame {
	code, _ := pbc.CodeOf(t)
	return pbc.Frame{Code: code, Type: t, Body: body}
}

func TestAggregator_SingleReply(t *testing.T) {
	var a aggregator
	a.start(NewTask(pbc.RpbGetReq, nil, false, Callback(nil)))

	result, terminal, err := a.feed(frame(pbc.RpbGetResp, pbc.Body{"vclock": []byte("v")}))
	require.NoError(t, err)
	assert.True(t, terminal)
	assert.Equal(t, pbc.Body{"vclock": []byte("v")}, result)
}

func TestAggregator_MergesUntilDone(t *testing.T) {
	var a aggregator
	a.start(NewTask(pbc.RpbListKeysReq, nil, true, Callback(nil)))

	_, terminal, err := a.feed(frame(pbc.RpbListKeysResp, pbc.Body{"keys": []any{"a", "b"}}))
	require.NoError(t, err)
	assert.False(t, terminal)

	_, terminal, err = a.feed(frame(pbc.RpbListKeysResp, pbc.Body{"keys": []any{"c"}}))
	require.NoError(t, err)
	assert.False(t, terminal)

	result, terminal, err := a.feed(frame(pbc.RpbListKeysResp, pbc.Body{"done": true}))
	require.NoError(t, err)
	assert.True(t, terminal)
	assert.Equal(t, pbc.Body{"keys": []any{"a", "b", "c"}}, result)
}

func TestAggregator_ErrorIsTerminal(t *testing.T) {
	tests := []struct {
		name  string
		frame pbc.Frame
		want  *pbc.ProtocolError
	}{
		{
			name:  "error response",
			frame: frame(pbc.RpbErrorResp, pbc.Body{"errmsg": "boom", "errcode": uint32(3)}),
			want:  &pbc.ProtocolError{Message: "boom", Code: 3},
		},
		{
			name:  "error response without message",
			frame: frame(pbc.RpbErrorResp, pbc.Body{}),
			want:  &pbc.ProtocolError{Message: "unknown server error"},
		},
		{
			name:  "errmsg in a regular response",
			frame: frame(pbc.RpbListKeysResp, pbc.Body{"errmsg": "timeout"}),
			want:  &pbc.ProtocolError{Message: "timeout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a aggregator
			a.start(NewTask(pbc.RpbListKeysReq, nil, true, Callback(nil)))

			_, _, err := a.feed(frame(pbc.RpbListKeysResp, pbc.Body{"keys": []any{"a"}}))
			require.NoError(t, err)

			result, terminal, err := a.feed(tt.frame)
			assert.True(t, terminal)
			assert.Nil(t, result)
			assert.Equal(t, tt.want, err)
		})
	}
}

func TestAggregator_StreamPendingItems(t *testing.T) {
	s := NewStream()
	var a aggregator
	items := 0
	a.onItem = func() { items++ }
	a.start(NewTask(pbc.RpbListKeysReq, nil, true, s))

	assert.True(t, a.replayable())

	_, terminal, err := a.feed(frame(pbc.RpbListKeysResp, pbc.Body{"keys": []any{"a"}}))
	require.NoError(t, err)
	assert.False(t, terminal)

	pending, item := a.pendingItem()
	assert.Same(t, s, pending)
	assert.Equal(t, pbc.Body{"keys": []any{"a"}}, item)
	assert.True(t, a.replayable())

	assert.False(t, a.received())
	assert.False(t, a.replayable())
	pending, _ = a.pendingItem()
	assert.Nil(t, pending)

	// empty bodies are not delivered
	_, terminal, err = a.feed(frame(pbc.RpbListKeysResp, pbc.Body{}))
	require.NoError(t, err)
	assert.False(t, terminal)
	pending, _ = a.pendingItem()
	assert.Nil(t, pending)

	// the last item comes with the terminal frame
	_, terminal, err = a.feed(frame(pbc.RpbListKeysResp, pbc.Body{"keys": []any{"b"}, "done": true}))
	require.NoError(t, err)
	assert.False(t, terminal)
	_, item = a.pendingItem()
	assert.Equal(t, pbc.Body{"keys": []any{"b"}}, item)

	assert.True(t, a.received())
	assert.Equal(t, 2, items)
	assert.Equal(t, 2, s.delivered)
}

func TestAggregator_StreamDroppedItem(t *testing.T) {
	s := NewStream()
	var a aggregator
	a.start(NewTask(pbc.RpbListKeysReq, nil, true, s))

	_, _, err := a.feed(frame(pbc.RpbListKeysResp, pbc.Body{"keys": []any{"a"}, "done": true}))
	require.NoError(t, err)

	assert.True(t, a.dropped())
	assert.Equal(t, 0, s.delivered)
	assert.True(t, a.replayable())
}

func TestAggregator_AbandonedStreamDrains(t *testing.T) {
	s := NewStream()
	s.Close()

	var a aggregator
	a.start(NewTask(pbc.RpbListKeysReq, nil, true, s))

	_, terminal, err := a.feed(frame(pbc.RpbListKeysResp, pbc.Body{"keys": []any{"a"}}))
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.True(t, a.replayable())

	pending, _ := a.pendingItem()
	assert.Nil(t, pending)

	_, terminal, err = a.feed(frame(pbc.RpbListKeysResp, pbc.Body{"done": true}))
	require.NoError(t, err)
	assert.True(t, terminal)
}

func TestAggregator_DecodeFailureDrainsReply(t *testing.T) {
	decodeErr := &pbc.DecodeError{Code: 250}

	tests := []struct {
		name string
		last pbc.Frame
	}{
		{name: "done", last: frame(pbc.RpbListKeysResp, pbc.Body{"done": true})},
		{name: "errmsg", last: frame(pbc.RpbListKeysResp, pbc.Body{"errmsg": "timeout"})},
		{name: "error response", last: frame(pbc.RpbErrorResp, pbc.Body{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a aggregator
			a.start(NewTask(pbc.RpbListKeysReq, nil, true, Callback(nil)))

			_, _, err := a.feed(frame(pbc.RpbListKeysResp, pbc.Body{"keys": []any{"a"}}))
			require.NoError(t, err)

			a.fail(decodeErr)
			a.fail(&pbc.DecodeError{Code: 251})
			assert.False(t, a.replayable())

			_, terminal, err := a.feed(frame(pbc.RpbListKeysResp, pbc.Body{"keys": []any{"b"}}))
			require.NoError(t, err)
			assert.False(t, terminal)

			result, terminal, err := a.feed(tt.last)
			assert.True(t, terminal)
			assert.Nil(t, result)
			assert.Same(t, decodeErr, err)

			a.reset()
			assert.NoError(t, a.failure())
		})
	}
}
