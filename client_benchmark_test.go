package riakpb

import (
	"testing"

	"github.com/pior/riakpb/internal/testutils"
	"github.com/pior/riakpb/pbc"
)

func BenchmarkClient_Ping(b *testing.B) {
	srv := testutils.NewServer(b, testutils.Echo)
	client := newTestClient(b, Config{Addr: srv.Addr()})
	ctx := ctxTimeout(b)

	for b.Loop() {
		_ = client.Ping(ctx)
	}
}

func BenchmarkClient_ListKeys(b *testing.B) {
	srv := testutils.NewServer(b, func(req testutils.Request) []testutils.Reply {
		return []testutils.Reply{
			{Type: pbc.RpbListKeysResp, Body: pbc.Body{"keys": []any{"a", "b", "c"}}},
			{Type: pbc.RpbListKeysResp, Body: pbc.Body{"keys": []any{"d", "e"}}},
			{Type: pbc.RpbListKeysResp, Body: pbc.Body{"done": true}},
		}
	})
	client := newTestClient(b, Config{Addr: srv.Addr()})
	ctx := ctxTimeout(b)

	for b.Loop() {
		_, _ = client.ListKeys(ctx, pbc.Body{"bucket": "b"})
	}
}

func BenchmarkPool_PingParallel(b *testing.B) {
	srv := testutils.NewServer(b, testutils.Echo)
	pool := newTestPool(b, []string{srv.Addr()}, PoolConfig{MaxSize: 8})
	ctx := ctxTimeout(b)

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = pool.Ping(ctx)
		}
	})
}
