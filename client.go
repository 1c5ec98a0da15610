package riakpb

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/pior/riakpb/internal/coarsetime"
	"github.com/pior/riakpb/pbc"
	"github.com/pior/riakpb/schema"
)

// DefaultConnectTimeout bounds a dial when Config.ConnectTimeout is zero.
const DefaultConnectTimeout = time.Second

// Config holds configuration for a client.
type Config struct {
	// Addr is the host:port of the server.
	// Required.
	Addr string

	// ConnectTimeout bounds a dial and a TLS handshake.
	// Default: 1s.
	ConnectTimeout time.Duration

	// DisableAutoConnect stops the client from dialing when a task is
	// dispatched without a connection. Such tasks then fail with
	// ErrNotConnected and Connect must be called explicitly.
	DisableAutoConnect bool

	// Dialer is the net.Dialer used to create connections.
	// If nil, the default net.Dialer is used.
	Dialer *net.Dialer

	// TLSConfig is used by StartTLS to upgrade the connection.
	// If nil, a default configuration verifying the server name is used.
	TLSConfig *tls.Config

	// MaxFrameSize is the largest inbound frame accepted. A bigger length
	// prefix drops the connection.
	// Default: pbc.DefaultMaxFrameSize.
	MaxFrameSize int

	// Codec encodes and decodes message payloads.
	// If nil, schema.Default is used.
	Codec pbc.Codec

	// Logger receives connection lifecycle events.
	// If nil, logging is disabled.
	Logger *zap.Logger

	// NewCircuitBreaker creates the circuit breaker guarding dials.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(addr string) *CircuitBreaker

	// shared by the clients of a pool
	stats *clientStatsCollector
}

// Client is a connection to one server. Tasks are sent one at a time, in
// submission order: a task is written only after the response of the
// previous one completed.
//
// All protocol state lives on a single event-loop goroutine; the methods of
// Client are safe for concurrent use.
type Client struct {
	*Commands

	config  Config
	codec   pbc.Codec
	logger  *zap.Logger
	breaker *CircuitBreaker
	stats   *clientStatsCollector

	queue   taskQueue
	wake    chan struct{}
	ctrl    chan func()
	inbound chan inboundEvent

	ctx       context.Context // canceled by Close
	cancel    context.CancelFunc
	closeOnce sync.Once
	stopped   chan struct{}

	state        atomic.Int32
	lastActivity atomic.Int64 // unix nanoseconds of the last write or frame

	// Owned by the event loop
	conn     *connection
	gen      uint64
	inFlight *Task
	agg      aggregator
}

var _ Requester = (*Client)(nil)

// NewClient creates a client. No connection is made until Connect is called
// or, with auto-connect, until the first task is dispatched.
func NewClient(config Config) (*Client, error) {
	if config.Addr == "" {
		return nil, errors.New("riakpb: no server address provided")
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.Dialer == nil {
		config.Dialer = &net.Dialer{}
	}
	if config.MaxFrameSize <= 0 {
		config.MaxFrameSize = pbc.DefaultMaxFrameSize
	}

	codec := config.Codec
	if codec == nil {
		codec = schema.Default
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	stats := config.stats
	if stats == nil {
		stats = newClientStatsCollector()
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		config:  config,
		codec:   codec,
		logger:  logger.With(zap.String("addr", config.Addr)),
		stats:   stats,
		wake:    make(chan struct{}, 1),
		ctrl:    make(chan func()),
		inbound: make(chan inboundEvent),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}

	c.Commands = NewCommands(c)
	c.agg.onItem = stats.recordStreamItem

	if config.NewCircuitBreaker != nil {
		c.breaker = config.NewCircuitBreaker(config.Addr)
	}

	go c.run()

	return c, nil
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.config.Addr
}

// State returns the connection state.
func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

// LastActivity returns when a request was last written or a frame last
// received, with coarse precision. Zero before any traffic.
func (c *Client) LastActivity() time.Time {
	ns := c.lastActivity.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// CircuitBreakerState returns the state of the dial circuit breaker, or
// gobreaker.StateClosed when none is configured.
func (c *Client) CircuitBreakerState() gobreaker.State {
	if c.breaker == nil {
		return gobreaker.StateClosed
	}
	return c.breaker.State()
}

// Submit queues a task. Its sink is resolved exactly once, with
// ErrClientClosed if the client is closed before the task completes.
func (c *Client) Submit(t *Task) {
	if !c.queue.pushBack(t) {
		t.resolve(ErrClientClosed, nil)
		return
	}
	c.stats.recordQueued(1)

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

type doResult struct {
	body pbc.Body
	err  error
}

// Do encodes params as a message of type t, submits it and waits for the
// merged response.
//
// When ctx is done first, Do returns ctx.Err() but the task is not withdrawn:
// it is still sent, or was already sent, and its response is consumed.
func (c *Client) Do(ctx context.Context, t pbc.MessageType, params pbc.Body, expectMultiple bool) (pbc.Body, error) {
	payload, err := pbc.EncodeMessage(c.codec, t, params)
	if err != nil {
		return nil, err
	}

	res := make(chan doResult, 1)
	c.Submit(NewTask(t, payload, expectMultiple, Callback(func(err error, body pbc.Body) {
		res <- doResult{body: body, err: err}
	})))

	select {
	case r := <-res:
		return r.body, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stream encodes params as a message of type t and submits it with a stream
// sink. An encoding failure, or a ctx already done, ends the stream with that
// error. Once submitted, ctx only bounds the consumer's Recv calls.
func (c *Client) Stream(ctx context.Context, t pbc.MessageType, params pbc.Body) *Stream {
	s := NewStream()

	if err := ctx.Err(); err != nil {
		s.finish(err)
		return s
	}

	payload, err := pbc.EncodeMessage(c.codec, t, params)
	if err != nil {
		s.finish(err)
		return s
	}

	c.Submit(NewTask(t, payload, true, s))
	return s
}

// Connect dials the server unless already connected. Queued tasks are
// dispatched once connected.
func (c *Client) Connect(ctx context.Context) error {
	return c.control(func() error {
		if c.conn != nil {
			return nil
		}
		if err := c.connect(ctx); err != nil {
			return err
		}
		c.dispatch()
		return nil
	})
}

// Disconnect closes the connection. A task in flight is put back at the head
// of the queue and sent again on the next connection.
func (c *Client) Disconnect() error {
	return c.control(func() error {
		if c.conn == nil {
			return nil
		}
		c.logger.Info("disconnecting")
		return c.teardown(nil, true)
	})
}

// StartTLS upgrades the connection to TLS with Config.TLSConfig. Once it
// returns without error the state is StateSecured.
func (c *Client) StartTLS(ctx context.Context) error {
	_, err := c.Do(ctx, pbc.RpbStartTls, nil, false)
	return err
}

// Auth authenticates the connection. It fails with ErrNotSecured unless the
// connection is secured when the request is sent, see StartTLS.
func (c *Client) Auth(ctx context.Context, user, password string) error {
	_, err := c.Do(ctx, pbc.RpbAuthReq, pbc.Body{"user": user, "password": password}, false)
	return err
}

// Close disconnects and stops the client. The task in flight and all queued
// tasks fail with ErrClientClosed.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.stopped
	})
}

// control runs fn on the event loop and waits for its result.
func (c *Client) control(fn func() error) error {
	res := make(chan error, 1)
	op := func() { res <- fn() }

	select {
	case c.ctrl <- op:
	case <-c.stopped:
		return ErrClientClosed
	}
	return <-res
}

// run is the event loop.
func (c *Client) run() {
	defer close(c.stopped)

	for {
		inbound := c.inbound
		var items chan<- pbc.Body
		var abandoned <-chan struct{}

		// A stream item waiting for its consumer holds back the reader.
		s, item := c.agg.pendingItem()
		if s != nil {
			inbound = nil
			items = s.items
			abandoned = s.abandoned
		}

		select {
		case <-c.ctx.Done():
			c.shutdown()
			return
		case <-c.wake:
			c.dispatch()
		case fn := <-c.ctrl:
			fn()
		case ev := <-inbound:
			c.handle(ev)
		case items <- item:
			if c.agg.received() {
				c.finish(nil, nil)
			}
		case <-abandoned:
			if c.agg.dropped() {
				c.finish(nil, nil)
			}
		}
	}
}

// dispatch sends the head of the queue when nothing is in flight, connecting
// first if needed. Tasks that cannot be sent are failed and the next one is
// tried.
func (c *Client) dispatch() {
	for c.inFlight == nil {
		if c.ctx.Err() != nil {
			return
		}

		task := c.queue.popFront()
		if task == nil {
			return
		}
		c.stats.recordQueued(-1)

		if task.Type == pbc.RpbAuthReq && c.State() != StateSecured {
			c.fail(task, ErrNotSecured)
			continue
		}

		if c.conn == nil {
			if c.config.DisableAutoConnect {
				c.fail(task, ErrNotConnected)
				continue
			}
			if err := c.connect(c.ctx); err != nil {
				c.fail(task, err)
				continue
			}
		}

		if err := c.conn.write(task.Payload); err != nil {
			c.logger.Warn("write failed", zap.String("message_type", string(task.Type)), zap.Error(err))
			c.fail(task, err)
			_ = c.teardown(err, false)
			continue
		}

		c.stats.recordRequest()
		c.touch()
		c.inFlight = task
		c.agg.start(task)
	}
}

// connect dials the server. Must run on the event loop.
func (c *Client) connect(ctx context.Context) error {
	c.setState(StateConnecting)

	netConn, err := c.dial(ctx)
	c.stats.recordConnect(err)
	if err != nil {
		c.setState(StateDisconnected)
		c.logger.Warn("connect failed", zap.Error(err))
		return err
	}

	c.gen++
	c.conn = newConnection(c.config.Addr, c.gen, netConn)
	c.setState(StateConnected)
	c.logger.Info("connected")

	r := &reader{
		conn:      c.conn,
		codec:     c.codec,
		tlsConfig: c.config.TLSConfig,
		timeout:   c.config.ConnectTimeout,
		maxFrame:  c.config.MaxFrameSize,
		events:    c.inbound,
		quit:      c.stopped,
		logger:    c.logger,
	}
	go r.run()

	return nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	dial := func() (net.Conn, error) {
		return c.config.Dialer.DialContext(ctx, "tcp", c.config.Addr)
	}

	var netConn net.Conn
	var err error
	if c.breaker != nil {
		netConn, err = c.breaker.Execute(dial)
	} else {
		netConn, err = dial()
	}
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Addr: c.config.Addr, Err: err}
	}
	return netConn, nil
}

// teardown closes the connection. The task in flight is requeued at the head
// when requeue is set and the task can be replayed; otherwise it fails with
// cause, or ErrTransportClosed.
func (c *Client) teardown(cause error, requeue bool) error {
	if c.conn == nil {
		return nil
	}

	err := c.conn.close()
	c.conn = nil
	c.setState(StateDisconnected)
	c.stats.recordDisconnect()

	task := c.inFlight
	if task == nil {
		return err
	}

	replayable := c.agg.replayable()
	if failed := c.agg.failure(); failed != nil {
		cause = failed
	}
	c.inFlight = nil
	c.agg.reset()

	if requeue && replayable {
		if c.queue.pushFront(task) {
			c.stats.recordQueued(1)
			c.stats.recordRequeue()
			c.logger.Debug("requeued in-flight task", zap.String("message_type", string(task.Type)))
			return err
		}
		cause = ErrClientClosed
	}

	if cause == nil {
		cause = ErrTransportClosed
	}
	c.fail(task, cause)
	return err
}

// handle processes one event of a reader goroutine.
func (c *Client) handle(ev inboundEvent) {
	if c.conn == nil || ev.gen != c.conn.gen {
		return
	}

	switch ev.kind {
	case eventClosed:
		c.logger.Info("connection closed", zap.Error(ev.err))
		_ = c.teardown(nil, true)

	case eventFailed:
		c.logger.Warn("connection failed", zap.Error(ev.err))
		_ = c.teardown(ev.err, false)

	case eventDecodeError:
		c.stats.recordFrame()
		c.logger.Warn("dropping undecodable frame", zap.Error(ev.err))
		switch {
		case c.inFlight == nil:
		case c.inFlight.ExpectMultiple:
			// the rest of the reply is drained before the task fails
			c.agg.fail(ev.err)
		default:
			c.finish(ev.err, nil)
		}

	case eventUpgraded:
		c.conn.upgrade(ev.conn)
		c.setState(StateSecured)
		c.logger.Info("connection secured")
		c.frame(ev.frame)

	case eventFrame:
		c.frame(ev.frame)
	}
}

func (c *Client) frame(f pbc.Frame) {
	c.stats.recordFrame()
	c.touch()

	if c.inFlight == nil {
		c.logger.Warn("dropping unsolicited frame", zap.String("message_type", string(f.Type)))
		return
	}

	result, terminal, err := c.agg.feed(f)
	if terminal {
		c.finish(err, result)
	}
}

// finish resolves the task in flight and dispatches the next one.
func (c *Client) finish(err error, result pbc.Body) {
	task := c.inFlight
	c.inFlight = nil
	c.agg.reset()

	if err != nil {
		c.fail(task, err)
	} else {
		task.resolve(nil, result)
	}

	c.dispatch()
}

func (c *Client) fail(task *Task, err error) {
	c.stats.recordError()
	task.resolve(err, nil)
}

func (c *Client) touch() {
	c.lastActivity.Store(coarsetime.Now().UnixNano())
}

func (c *Client) setState(s ConnState) {
	c.state.Store(int32(s))
}

// shutdown runs on the event loop when the client is closed.
func (c *Client) shutdown() {
	if c.conn != nil {
		_ = c.conn.close()
		c.conn = nil
		c.stats.recordDisconnect()
	}
	c.setState(StateDisconnected)

	if c.inFlight != nil {
		c.fail(c.inFlight, ErrClientClosed)
		c.inFlight = nil
		c.agg.reset()
	}

	pending := c.queue.close()
	c.stats.recordQueued(-int64(len(pending)))
	for _, task := range pending {
		c.fail(task, ErrClientClosed)
	}

	c.logger.Debug("client closed")
}
