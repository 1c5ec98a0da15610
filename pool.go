package riakpb

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/pior/riakpb/internal/coarsetime"
	"github.com/pior/riakpb/pbc"
)

// DefaultPoolSize is the pool size when PoolConfig.MaxSize is zero.
const DefaultPoolSize = 4

// PoolConfig holds configuration for a client pool.
type PoolConfig struct {
	// Client is the configuration of every client. Addr is ignored: each
	// client is assigned one of the pool's nodes.
	Client Config

	// MaxSize is the maximum number of clients (connections) in the pool.
	// Default: 4.
	MaxSize int32

	// MaxConnLifetime is the maximum duration a client can be reused.
	// Zero means no limit.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is the maximum duration a client can be idle before being closed.
	// Zero means no limit.
	MaxConnIdleTime time.Duration

	// HealthCheckInterval is how often idle clients are pinged.
	// Zero disables health checks.
	HealthCheckInterval time.Duration

	// SelectNode picks the node of each new client.
	// If nil, DefaultNodeSelector is used.
	SelectNode NodeSelector
}

// NodeStats describes one node of a pool.
type NodeStats struct {
	Addr                string
	CircuitBreakerState gobreaker.State
}

// Pool keeps up to MaxSize clients spread over a set of nodes. Every
// request acquires a client for its duration, so requests run in parallel
// while each connection still carries one request at a time.
type Pool struct {
	*Commands

	nodes  []string
	config PoolConfig
	logger *zap.Logger
	pool   *puddle.Pool[*Client]
	stats  *clientStatsCollector

	seq            atomic.Uint64
	createdConns   atomic.Int64
	destroyedConns atomic.Int64

	breakersMu sync.Mutex
	breakers   map[string]*CircuitBreaker

	stopHealthCheck chan struct{}
	closeOnce       sync.Once
}

var _ Requester = (*Pool)(nil)

// NewPool creates a pool over nodes (host:port addresses). Clients are
// created on demand.
func NewPool(nodes []string, config PoolConfig) (*Pool, error) {
	if len(nodes) == 0 {
		return nil, errors.New("riakpb: no nodes provided")
	}
	if config.MaxSize <= 0 {
		config.MaxSize = DefaultPoolSize
	}
	if config.SelectNode == nil {
		config.SelectNode = DefaultNodeSelector
	}

	logger := config.Client.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		nodes:           append([]string(nil), nodes...),
		config:          config,
		logger:          logger,
		stats:           newClientStatsCollector(),
		breakers:        make(map[string]*CircuitBreaker),
		stopHealthCheck: make(chan struct{}),
	}
	p.Commands = NewCommands(p)

	pool, err := puddle.NewPool(&puddle.Config[*Client]{
		Constructor: p.newClient,
		Destructor: func(c *Client) {
			p.destroyedConns.Add(1)
			c.Close()
		},
		MaxSize: config.MaxSize,
	})
	if err != nil {
		return nil, err
	}
	p.pool = pool

	if config.HealthCheckInterval > 0 {
		go p.healthCheckLoop()
	}

	return p, nil
}

// newClient creates and connects a client on the next selected node.
func (p *Pool) newClient(ctx context.Context) (*Client, error) {
	i := p.config.SelectNode(p.seq.Add(1)-1, len(p.nodes))
	if i < 0 || i >= len(p.nodes) {
		i = 0
	}

	cfg := p.config.Client
	cfg.Addr = p.nodes[i]
	cfg.stats = p.stats
	if cfg.NewCircuitBreaker != nil {
		cfg.NewCircuitBreaker = p.circuitBreaker
	}

	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		client.Close()
		return nil, err
	}

	p.createdConns.Add(1)
	return client, nil
}

// circuitBreaker returns the breaker of a node, shared by all its clients.
func (p *Pool) circuitBreaker(addr string) *CircuitBreaker {
	p.breakersMu.Lock()
	defer p.breakersMu.Unlock()

	cb, ok := p.breakers[addr]
	if !ok {
		cb = p.config.Client.NewCircuitBreaker(addr)
		p.breakers[addr] = cb
	}
	return cb
}

// Do acquires a client, sends the request and releases the client.
func (p *Pool) Do(ctx context.Context, t pbc.MessageType, params pbc.Body, expectMultiple bool) (pbc.Body, error) {
	res, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	body, err := res.Value().Do(ctx, t, params, expectMultiple)
	p.release(res, err)
	return body, err
}

// Stream acquires a client for the duration of the stream. Failing to
// acquire one ends the stream with the error.
func (p *Pool) Stream(ctx context.Context, t pbc.MessageType, params pbc.Body) *Stream {
	res, err := p.pool.Acquire(ctx)
	if err != nil {
		s := NewStream()
		s.finish(err)
		return s
	}

	s := res.Value().Stream(ctx, t, params)
	go func() {
		<-s.Done()
		p.release(res, s.Err())
	}()
	return s
}

// With acquires a client and hands it to fn, for a sequence of requests on
// one connection (StartTLS then Auth, read-modify-write, ...).
func (p *Pool) With(ctx context.Context, fn func(*Client) error) error {
	res, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}

	err = fn(res.Value())
	p.release(res, err)
	return err
}

// release returns the client to the pool, or destroys it when err left its
// connection unusable.
func (p *Pool) release(res *puddle.Resource[*Client], err error) {
	if ShouldCloseConnection(err) || res.Value().State() == StateDisconnected {
		res.Destroy()
		return
	}
	res.Release()
}

// Close closes the pool and all its clients.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		if p.config.HealthCheckInterval > 0 {
			close(p.stopHealthCheck)
		}
		p.pool.Close()
	})
}

// healthCheckLoop periodically checks idle clients for health and lifecycle limits.
func (p *Pool) healthCheckLoop() {
	ticker := time.NewTicker(p.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopHealthCheck:
			return
		case <-ticker.C:
			p.checkIdleClients()
		}
	}
}

// checkIdleClients destroys the idle clients that are stale or unhealthy.
// Clients with recent traffic are not pinged.
func (p *Pool) checkIdleClients() {
	now := coarsetime.Now()

	for _, res := range p.pool.AcquireAllIdle() {
		if p.config.MaxConnLifetime > 0 && now.Sub(res.CreationTime()) > p.config.MaxConnLifetime {
			res.Destroy()
			continue
		}

		if p.config.MaxConnIdleTime > 0 && res.IdleDuration() > p.config.MaxConnIdleTime {
			res.Destroy()
			continue
		}

		client := res.Value()
		if now.Sub(client.LastActivity()) < p.config.HealthCheckInterval {
			res.ReleaseUnused()
			continue
		}

		if err := p.healthCheck(client); err != nil {
			p.logger.Info("destroying unhealthy client", zap.String("addr", client.Addr()), zap.Error(err))
			res.Destroy()
			continue
		}

		res.ReleaseUnused()
	}
}

func (p *Pool) healthCheck(client *Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), client.config.ConnectTimeout)
	defer cancel()
	return client.Ping(ctx)
}

// Nodes returns the node addresses of the pool.
func (p *Pool) Nodes() []string {
	return append([]string(nil), p.nodes...)
}

// Stats returns a snapshot of pool statistics.
func (p *Pool) Stats() PoolStats {
	s := p.pool.Stat()

	return PoolStats{
		TotalConns:        s.TotalResources(),
		IdleConns:         s.IdleResources(),
		ActiveConns:       s.AcquiredResources(),
		AcquireCount:      uint64(s.AcquireCount()),
		AcquireWaitCount:  uint64(s.EmptyAcquireCount()),
		CreatedConns:      uint64(p.createdConns.Load()),
		DestroyedConns:    uint64(p.destroyedConns.Load()),
		AcquireErrors:     uint64(s.CanceledAcquireCount()),
		AcquireWaitTimeNs: uint64(s.EmptyAcquireWaitTime().Nanoseconds()),
	}
}

// ClientStats returns the statistics of all the pool's clients combined.
func (p *Pool) ClientStats() ClientStats {
	return p.stats.snapshot()
}

// NodeStats returns the circuit breaker state of every node.
func (p *Pool) NodeStats() []NodeStats {
	p.breakersMu.Lock()
	defer p.breakersMu.Unlock()

	stats := make([]NodeStats, len(p.nodes))
	for i, addr := range p.nodes {
		stats[i].Addr = addr
		if cb, ok := p.breakers[addr]; ok {
			stats[i].CircuitBreakerState = cb.State()
		}
	}
	return stats
}
