package riakpb

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/pior/riakpb/internal/testutils"
	"github.com/pior/riakpb/pbc"
)

func newTestPool(t testing.TB, nodes []string, config PoolConfig) *Pool {
	t.Helper()
	pool, err := NewPool(nodes, config)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestNewPool_RequiresNodes(t *testing.T) {
	_, err := NewPool(nil, PoolConfig{})
	require.Error(t, err)
}

func TestPool_Do(t *testing.T) {
	srv := testutils.NewServer(t, testutils.Echo)
	pool := newTestPool(t, []string{srv.Addr()}, PoolConfig{})
	ctx := ctxTimeout(t)

	require.NoError(t, pool.Ping(ctx))
	require.NoError(t, pool.Ping(ctx))

	stats := pool.Stats()
	assert.Equal(t, int32(1), stats.TotalConns)
	assert.Equal(t, int32(1), stats.IdleConns)
	assert.Equal(t, uint64(2), stats.AcquireCount)
	assert.Equal(t, uint64(1), stats.CreatedConns)
	assert.Equal(t, uint64(2), pool.ClientStats().Requests)
	assert.Equal(t, 1, srv.ConnCount())
}

func TestPool_ParallelRequests(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	srv := testutils.NewServer(t, func(req testutils.Request) []testutils.Reply {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return testutils.Echo(req)
	})
	pool := newTestPool(t, []string{srv.Addr()}, PoolConfig{MaxSize: 3})
	ctx := ctxTimeout(t)

	var g errgroup.Group
	for range 9 {
		g.Go(func() error { return pool.Ping(ctx) })
	}
	require.NoError(t, g.Wait())

	assert.LessOrEqual(t, srv.ConnCount(), 3)
	assert.LessOrEqual(t, maxInFlight.Load(), int32(3))
	assert.Equal(t, uint64(9), pool.ClientStats().Requests)
}

func TestPool_SpreadsClientsOverNodes(t *testing.T) {
	srv1 := testutils.NewServer(t, testutils.Echo)
	srv2 := testutils.NewServer(t, testutils.Echo)
	pool := newTestPool(t, []string{srv1.Addr(), srv2.Addr()}, PoolConfig{
		MaxSize:    2,
		SelectNode: RoundRobinNodeSelector,
	})
	ctx := ctxTimeout(t)

	var addrs []string
	err := pool.With(ctx, func(c1 *Client) error {
		addrs = append(addrs, c1.Addr())
		return pool.With(ctx, func(c2 *Client) error {
			addrs = append(addrs, c2.Addr())
			return c2.Ping(ctx)
		})
	})
	require.NoError(t, err)

	assert.Equal(t, []string{srv1.Addr(), srv2.Addr()}, addrs)
	assert.Equal(t, []string{srv1.Addr(), srv2.Addr()}, pool.Nodes())
	assert.Equal(t, 1, srv1.ConnCount())
	assert.Equal(t, 1, srv2.ConnCount())
}

func TestPool_StreamReleasesClient(t *testing.T) {
	srv := testutils.NewServer(t, func(req testutils.Request) []testutils.Reply {
		return []testutils.Reply{
			{Type: pbc.RpbListKeysResp, Body: pbc.Body{"keys": []any{"a"}}},
			{Type: pbc.RpbListKeysResp, Body: pbc.Body{"keys": []any{"b"}, "done": true}},
		}
	})
	pool := newTestPool(t, []string{srv.Addr()}, PoolConfig{MaxSize: 1})
	ctx := ctxTimeout(t)

	s := pool.StreamKeys(ctx, pbc.Body{"bucket": "b"})
	assert.Equal(t, int32(1), pool.Stats().ActiveConns)

	items, err := s.Collect(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.Eventually(t, func() bool {
		return pool.Stats().ActiveConns == 0
	}, time.Second, 5*time.Millisecond)

	keys, err := pool.ListKeys(ctx, pbc.Body{"bucket": "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Equal(t, 1, srv.ConnCount())
}

func TestPool_StreamAcquireFailure(t *testing.T) {
	pool := newTestPool(t, []string{closedAddr(t)}, PoolConfig{})
	ctx := ctxTimeout(t)

	_, err := pool.StreamKeys(ctx, pbc.Body{"bucket": "b"}).Collect(ctx)
	var cerr *ConnectionError
	assert.ErrorAs(t, err, &cerr)
}

func TestPool_DestroysBrokenClient(t *testing.T) {
	srv := testutils.NewServer(t, func(req testutils.Request) []testutils.Reply {
		if req.Type == pbc.RpbGetReq {
			return []testutils.Reply{{Raw: pbc.EncodeFrame(10, make([]byte, 100))}}
		}
		return testutils.Echo(req)
	})
	pool := newTestPool(t, []string{srv.Addr()}, PoolConfig{Client: Config{MaxFrameSize: 64}})
	ctx := ctxTimeout(t)

	_, err := pool.Get(ctx, pbc.Body{"bucket": "b", "key": "k"})
	require.ErrorIs(t, err, pbc.ErrFrameTooLarge)

	require.Eventually(t, func() bool {
		return pool.Stats().TotalConns == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), pool.Stats().DestroyedConns)

	require.NoError(t, pool.Ping(ctx))
	assert.Equal(t, 2, srv.ConnCount())
}

func TestPool_KeepsClientOnServerError(t *testing.T) {
	srv := testutils.NewServer(t, func(req testutils.Request) []testutils.Reply {
		return []testutils.Reply{testutils.ErrorReply("no", 0)}
	})
	pool := newTestPool(t, []string{srv.Addr()}, PoolConfig{})
	ctx := ctxTimeout(t)

	require.Error(t, pool.Ping(ctx))
	require.Error(t, pool.Ping(ctx))

	assert.Equal(t, uint64(0), pool.Stats().DestroyedConns)
	assert.Equal(t, 1, srv.ConnCount())
}

func TestPool_NodeCircuitBreaker(t *testing.T) {
	pool := newTestPool(t, []string{closedAddr(t)}, PoolConfig{
		Client: Config{NewCircuitBreaker: NewCircuitBreakerConfig(1, time.Minute, time.Minute)},
	})
	ctx := ctxTimeout(t)

	for range 3 {
		require.Error(t, pool.Ping(ctx))
	}

	err := pool.Ping(ctx)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	nodes := pool.NodeStats()
	require.Len(t, nodes, 1)
	assert.Equal(t, gobreaker.StateOpen, nodes[0].CircuitBreakerState)
	assert.Equal(t, uint64(4), pool.ClientStats().ConnectErrors)
}

func TestPool_HealthCheckClosesIdleClients(t *testing.T) {
	srv := testutils.NewServer(t, testutils.Echo)
	pool := newTestPool(t, []string{srv.Addr()}, PoolConfig{
		MaxConnIdleTime:     10 * time.Millisecond,
		HealthCheckInterval: 20 * time.Millisecond,
	})

	require.NoError(t, pool.Ping(ctxTimeout(t)))
	require.Equal(t, int32(1), pool.Stats().TotalConns)

	require.Eventually(t, func() bool {
		return pool.Stats().TotalConns == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(1), pool.Stats().DestroyedConns)
}

func TestPool_HealthCheckDestroysUnresponsiveClients(t *testing.T) {
	var pings atomic.Int32
	srv := testutils.NewServer(t, func(req testutils.Request) []testutils.Reply {
		if pings.Add(1) > 1 {
			return nil
		}
		return testutils.Echo(req)
	})
	pool := newTestPool(t, []string{srv.Addr()}, PoolConfig{
		Client:              Config{ConnectTimeout: 50 * time.Millisecond},
		HealthCheckInterval: 20 * time.Millisecond,
	})

	require.NoError(t, pool.Ping(ctxTimeout(t)))

	require.Eventually(t, func() bool {
		return pool.Stats().DestroyedConns == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPool_Close(t *testing.T) {
	srv := testutils.NewServer(t, testutils.Echo)
	pool, err := NewPool([]string{srv.Addr()}, PoolConfig{HealthCheckInterval: time.Second})
	require.NoError(t, err)

	require.NoError(t, pool.Ping(ctxTimeout(t)))
	pool.Close()
	pool.Close()

	assert.Error(t, pool.Ping(context.Background()))
}
