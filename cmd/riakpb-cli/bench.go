package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pior/riakpb"
	"github.com/pior/riakpb/pbc"
	"github.com/pior/riakpb/promexporter"
)

type benchOptions struct {
	op          string
	requests    int
	concurrency int
	bucket      string
	metricsAddr string
}

func (a *app) benchCmd() *cobra.Command {
	opts := benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Send requests from a pool of connections over all nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.TLS {
				return errors.New("bench does not support --tls")
			}
			switch opts.op {
			case "ping", "put", "get":
			default:
				return fmt.Errorf("unknown operation %q", opts.op)
			}
			if opts.requests <= 0 || opts.concurrency <= 0 {
				return errors.New("--requests and --concurrency must be positive")
			}
			return a.bench(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.op, "op", "ping", "operation: ping, put or get")
	f.IntVar(&opts.requests, "requests", 1000, "total number of requests")
	f.IntVar(&opts.concurrency, "concurrency", 4, "concurrent workers, also the pool size")
	f.StringVar(&opts.bucket, "bucket", "riakpb-bench", "bucket of put and get")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	return cmd
}

func (a *app) bench(ctx context.Context, opts benchOptions) error {
	cfg := a.clientConfig()
	cfg.NewCircuitBreaker = riakpb.NewCircuitBreakerConfig(1, 10*time.Second, 5*time.Second)

	pool, err := riakpb.NewPool(a.cfg.Nodes, riakpb.PoolConfig{
		Client:  cfg,
		MaxSize: int32(opts.concurrency),
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	if opts.metricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.metricsAddr,
			Handler:           promexporter.Handler(promexporter.NewPoolCollector(pool)),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	key := uuid.NewString()
	if opts.op == "get" {
		if err := a.benchRequest(ctx, pool, "put", opts.bucket, key); err != nil {
			return fmt.Errorf("seed object: %w", err)
		}
	}

	var next, failures atomic.Int64
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for range opts.concurrency {
		g.Go(func() error {
			for next.Add(1) <= int64(opts.requests) {
				if err := a.benchRequest(ctx, pool, opts.op, opts.bucket, key); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					failures.Add(1)
					a.logger.Debug("request failed", zap.Error(err))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	stats := pool.Stats()
	fmt.Fprintf(a.out, "operation:    %s\n", opts.op)
	fmt.Fprintf(a.out, "requests:     %d\n", opts.requests)
	fmt.Fprintf(a.out, "failures:     %d\n", failures.Load())
	fmt.Fprintf(a.out, "duration:     %v\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(a.out, "rate:         %.0f req/s\n", float64(opts.requests)/elapsed.Seconds())
	fmt.Fprintf(a.out, "connections:  %d created, %d destroyed\n", stats.CreatedConns, stats.DestroyedConns)
	fmt.Fprintf(a.out, "acquire wait: %v\n", stats.AcquireWaitTime().Round(time.Microsecond))
	return nil
}

func (a *app) benchRequest(ctx context.Context, pool *riakpb.Pool, op, bucket, key string) error {
	switch op {
	case "ping":
		return pool.Ping(ctx)
	case "put":
		_, err := pool.Put(ctx, pbc.Body{
			"bucket":  bucket,
			"key":     key,
			"content": pbc.Body{"value": []byte("riakpb"), "content_type": "text/plain"},
		})
		return err
	case "get":
		_, err := pool.Get(ctx, pbc.Body{"bucket": bucket, "key": key})
		return err
	default:
		return fmt.Errorf("unknown operation %q", op)
	}
}
