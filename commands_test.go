package riakpb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/riakpb/internal/testutils"
	"github.com/pior/riakpb/pbc"
)

type call struct {
	Type           pbc.MessageType
	Params         pbc.Body
	ExpectMultiple bool
	Stream         bool
}

// fakeRequester records the requests and answers with canned responses.
type fakeRequester struct {
	calls []call
	reply pbc.Body
	items []pbc.Body
	err   error
}

func (f *fakeRequester) Do(_ context.Context, t pbc.MessageType, params pbc.Body, expectMultiple bool) (pbc.Body, error) {
	f.calls = append(f.calls, call{Type: t, Params: params, ExpectMultiple: expectMultiple})
	return f.reply, f.err
}

func (f *fakeRequester) Stream(_ context.Context, t pbc.MessageType, params pbc.Body) *Stream {
	f.calls = append(f.calls, call{Type: t, Params: params, ExpectMultiple: true, Stream: true})

	s := NewStream()
	go func() {
		for _, item := range f.items {
			if !push(s, item) {
				break
			}
		}
		s.finish(f.err)
	}()
	return s
}

func TestCommands_Requests(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		run  func(c *Commands) error
		want call
	}{
		{
			name: "ping",
			run:  func(c *Commands) error { return c.Ping(ctx) },
			want: call{Type: pbc.RpbPingReq},
		},
		{
			name: "set client id",
			run:  func(c *Commands) error { return c.SetClientID(ctx, "me") },
			want: call{Type: pbc.RpbSetClientIdReq, Params: pbc.Body{"client_id": "me"}},
		},
		{
			name: "del",
			run:  func(c *Commands) error { return c.Del(ctx, pbc.Body{"bucket": "b", "key": "k"}) },
			want: call{Type: pbc.RpbDelReq, Params: pbc.Body{"bucket": "b", "key": "k"}},
		},
		{
			name: "list buckets streams on the server",
			run: func(c *Commands) error {
				_, err := c.ListBuckets(ctx, pbc.Body{"type": "maps"})
				return err
			},
			want: call{Type: pbc.RpbListBucketsReq, Params: pbc.Body{"type": "maps", "stream": true}, ExpectMultiple: true},
		},
		{
			name: "list keys",
			run: func(c *Commands) error {
				_, err := c.ListKeys(ctx, pbc.Body{"bucket": "b"})
				return err
			},
			want: call{Type: pbc.RpbListKeysReq, Params: pbc.Body{"bucket": "b"}, ExpectMultiple: true},
		},
		{
			name: "get index",
			run: func(c *Commands) error {
				_, err := c.GetIndex(ctx, pbc.Body{"bucket": "b", "index": "age_int", "qtype": "eq", "key": "3"})
				return err
			},
			want: call{
				Type:           pbc.RpbIndexReq,
				Params:         pbc.Body{"bucket": "b", "index": "age_int", "qtype": "eq", "key": "3", "stream": true},
				ExpectMultiple: true,
			},
		},
		{
			name: "set bucket type",
			run:  func(c *Commands) error { return c.SetBucketType(ctx, "maps", pbc.Body{"n_val": 3}) },
			want: call{Type: pbc.RpbSetBucketTypeReq, Params: pbc.Body{"type": "maps", "props": pbc.Body{"n_val": 3}}},
		},
		{
			name: "put search index",
			run:  func(c *Commands) error { return c.PutSearchIndex(ctx, pbc.Body{"name": "idx"}) },
			want: call{Type: pbc.RpbYokozunaIndexPutReq, Params: pbc.Body{"index": pbc.Body{"name": "idx"}}},
		},
		{
			name: "delete search index",
			run:  func(c *Commands) error { return c.DeleteSearchIndex(ctx, "idx") },
			want: call{Type: pbc.RpbYokozunaIndexDeleteReq, Params: pbc.Body{"name": "idx"}},
		},
		{
			name: "put search schema",
			run:  func(c *Commands) error { return c.PutSearchSchema(ctx, "s", "<schema/>") },
			want: call{
				Type:   pbc.RpbYokozunaSchemaPutReq,
				Params: pbc.Body{"schema": pbc.Body{"name": "s", "content": "<schema/>"}},
			},
		},
		{
			name: "all search indexes",
			run: func(c *Commands) error {
				_, err := c.GetSearchIndex(ctx, "")
				return err
			},
			want: call{Type: pbc.RpbYokozunaIndexGetReq},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRequester{}
			require.NoError(t, tt.run(NewCommands(r)))
			require.Len(t, r.calls, 1)
			assert.Equal(t, tt.want, r.calls[0])
		})
	}
}

func TestCommands_DoesNotModifyParams(t *testing.T) {
	r := &fakeRequester{}
	params := pbc.Body{"bucket": "b"}

	_ = NewCommands(r).StreamIndex(context.Background(), params)
	assert.Equal(t, pbc.Body{"bucket": "b"}, params)
	assert.Equal(t, pbc.Body{"bucket": "b", "stream": true}, r.calls[0].Params)
}

func TestCommands_Results(t *testing.T) {
	ctx := context.Background()

	t.Run("client id", func(t *testing.T) {
		c := NewCommands(&fakeRequester{reply: pbc.Body{"client_id": "abc"}})
		id, err := c.GetClientID(ctx)
		require.NoError(t, err)
		assert.Equal(t, "abc", id)
	})

	t.Run("server info", func(t *testing.T) {
		c := NewCommands(&fakeRequester{reply: pbc.Body{"node": "riak@127.0.0.1", "server_version": "3.2.0"}})
		info, err := c.GetServerInfo(ctx)
		require.NoError(t, err)
		assert.Equal(t, ServerInfo{Node: "riak@127.0.0.1", ServerVersion: "3.2.0"}, info)
	})

	t.Run("buckets", func(t *testing.T) {
		c := NewCommands(&fakeRequester{reply: pbc.Body{"buckets": []any{"a", []byte("b")}}})
		buckets, err := c.ListBuckets(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, buckets)
	})

	t.Run("no keys", func(t *testing.T) {
		c := NewCommands(&fakeRequester{reply: pbc.Body{}})
		keys, err := c.ListKeys(ctx, pbc.Body{"bucket": "b"})
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("bucket props", func(t *testing.T) {
		c := NewCommands(&fakeRequester{reply: pbc.Body{"props": pbc.Body{"n_val": uint32(3)}}})
		props, err := c.GetBucket(ctx, pbc.Body{"bucket": "b"})
		require.NoError(t, err)
		assert.Equal(t, pbc.Body{"n_val": uint32(3)}, props)
	})

	t.Run("counter", func(t *testing.T) {
		c := NewCommands(&fakeRequester{reply: pbc.Body{"value": int64(-4)}})
		v, err := c.GetCounter(ctx, pbc.Body{"bucket": "b", "key": "k"})
		require.NoError(t, err)
		assert.Equal(t, int64(-4), v)
	})

	t.Run("search schema", func(t *testing.T) {
		c := NewCommands(&fakeRequester{reply: pbc.Body{"schema": pbc.Body{"name": "s", "content": "x"}}})
		schema, err := c.GetSearchSchema(ctx, "s")
		require.NoError(t, err)
		assert.Equal(t, pbc.Body{"name": "s", "content": "x"}, schema)
	})

	t.Run("error", func(t *testing.T) {
		boom := errors.New("boom")
		c := NewCommands(&fakeRequester{err: boom})
		_, err := c.GetServerInfo(ctx)
		assert.ErrorIs(t, err, boom)
		_, err = c.GetCounter(ctx, nil)
		assert.ErrorIs(t, err, boom)
	})
}

func TestCommands_MapReduce(t *testing.T) {
	r := &fakeRequester{items: []pbc.Body{
		{"phase": uint32(0), "response": `[1,2]`},
		{"phase": uint32(1), "response": `[{"k":"v"}]`},
		{"phase": uint32(1)},
	}}
	c := NewCommands(r)

	rows, err := c.MapReduce(context.Background(), pbc.Body{"request": `{}`, "content_type": "application/json"})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(2), map[string]any{"k": "v"}}, rows)
	assert.Equal(t, pbc.RpbMapRedReq, r.calls[0].Type)
	assert.True(t, r.calls[0].Stream)
}

func TestCommands_MapReduceInvalidJSON(t *testing.T) {
	c := NewCommands(&fakeRequester{items: []pbc.Body{{"phase": uint32(2), "response": `[1,`}}})

	_, err := c.MapReduce(context.Background(), nil)
	assert.ErrorContains(t, err, "map/reduce phase 2")
}

func TestCommands_MapReduceStopEarly(t *testing.T) {
	c := NewCommands(&fakeRequester{items: []pbc.Body{
		{"response": `[1,2,3]`},
		{"response": `[4]`},
	}})

	var rows []any
	for row, err := range c.StreamMapReduce(context.Background(), nil) {
		require.NoError(t, err)
		rows = append(rows, row)
		if len(rows) == 2 {
			break
		}
	}
	assert.Equal(t, []any{float64(1), float64(2)}, rows)
}

func TestCommands_OverClient(t *testing.T) {
	srv := testutils.NewServer(t, func(req testutils.Request) []testutils.Reply {
		switch req.Type {
		case pbc.RpbListBucketsReq:
			return []testutils.Reply{
				{Type: pbc.RpbListBucketsResp, Body: pbc.Body{"buckets": []any{"users"}}},
				{Type: pbc.RpbListBucketsResp, Body: pbc.Body{"buckets": []any{"orders"}, "done": true}},
			}
		case pbc.RpbIndexReq:
			return []testutils.Reply{
				{Type: pbc.RpbIndexResp, Body: pbc.Body{"keys": []any{"k1", "k2"}}},
				{Type: pbc.RpbIndexResp, Body: pbc.Body{"continuation": "next", "done": true}},
			}
		case pbc.RpbCounterGetReq:
			return testutils.Respond(pbc.RpbCounterGetResp, pbc.Body{"value": int64(42)})
		}
		return testutils.Echo(req)
	})
	client := newTestClient(t, Config{Addr: srv.Addr()})
	ctx := ctxTimeout(t)

	buckets, err := client.ListBuckets(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders"}, buckets)

	index, err := client.GetIndex(ctx, pbc.Body{"bucket": "b", "index": "age_int", "qtype": "eq", "key": "3"})
	require.NoError(t, err)
	assert.Equal(t, []any{"k1", "k2"}, index["keys"])
	assert.Equal(t, "next", index["continuation"])

	n, err := client.GetCounter(ctx, pbc.Body{"bucket": "b", "key": "k"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	require.NoError(t, client.SetBucketType(ctx, "maps", pbc.Body{"allow_mult": true}))

	reqs := srv.Requests()
	assert.Equal(t, pbc.Body{"stream": true}, reqs[0].Body)
	assert.Equal(t, pbc.Body{"type": "maps", "props": pbc.Body{"allow_mult": true}}, reqs[3].Body)
}
