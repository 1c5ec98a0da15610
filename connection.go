package riakpb

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pior/riakpb/pbc"
)

// ConnState is the state of a client's connection.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateSecured
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSecured:
		return "secured"
	default:
		return fmt.Sprintf("ConnState(%d)", int32(s))
	}
}

const readBufferSize = 64 * 1024

type eventKind uint8

const (
	eventFrame       eventKind = iota // a decoded frame
	eventDecodeError                  // a frame that could not be decoded
	eventUpgraded                     // StartTls reply, socket upgraded
	eventClosed                       // peer closed or read failed, task may be retried
	eventFailed                       // stream corrupt or TLS handshake failed
)

// inboundEvent is what a reader goroutine reports to the event loop. gen
// identifies the connection so events of a torn down connection are ignored.
type inboundEvent struct {
	gen   uint64
	kind  eventKind
	frame pbc.Frame
	conn  net.Conn // eventUpgraded
	err   error
}

// connection is one transport to the server. The event loop writes; the
// reader goroutine reads.
type connection struct {
	addr string
	gen  uint64

	mu   sync.Mutex
	conn net.Conn

	closeOnce sync.Once
	closed    chan struct{}
}

func newConnection(addr string, gen uint64, conn net.Conn) *connection {
	return &connection{
		addr:   addr,
		gen:    gen,
		conn:   conn,
		closed: make(chan struct{}),
	}
}

func (c *connection) netConn() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// upgrade swaps the transport for its TLS wrapper.
func (c *connection) upgrade(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

func (c *connection) write(frame []byte) error {
	if _, err := c.netConn().Write(frame); err != nil {
		return &ConnectionError{Op: "write", Addr: c.addr, Err: err}
	}
	return nil
}

func (c *connection) close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.netConn().Close()
	})
	return err
}

// reader feeds the inbound byte stream through a Reassembler and reports
// every frame to the event loop, in wire order. It performs the TLS
// handshake itself when the StartTls reply arrives, before reporting it.
type reader struct {
	conn      *connection
	codec     pbc.Codec
	tlsConfig *tls.Config
	timeout   time.Duration // TLS handshake
	maxFrame  int
	events    chan<- inboundEvent
	quit      <-chan struct{}
	logger    *zap.Logger
}

func (r *reader) run() {
	buf := make([]byte, readBufferSize)
	reasm := pbc.NewReassembler(r.maxFrame)
	netConn := r.conn.netConn()

	for {
		n, err := netConn.Read(buf)
		if n > 0 {
			_, _ = reasm.Write(buf[:n])
			for reasm.Scan() {
				ev := r.decode(reasm.Frame())

				if ev.kind == eventFrame && ev.frame.Type == pbc.RpbStartTls {
					if reasm.Buffered() > 0 {
						r.report(r.failure("tls", errors.New("unexpected data after StartTls reply")))
						return
					}
					tlsConn, err := r.handshake(netConn)
					if err != nil {
						r.report(r.failure("tls", err))
						return
					}
					netConn = tlsConn
					ev.kind = eventUpgraded
					ev.conn = tlsConn
				}

				if !r.report(ev) {
					return
				}
			}
			if err := reasm.Err(); err != nil {
				r.report(r.failure("read", err))
				return
			}
		}
		if err != nil {
			r.report(inboundEvent{gen: r.conn.gen, kind: eventClosed, err: err})
			return
		}
	}
}

func (r *reader) decode(msg []byte) inboundEvent {
	frame, err := pbc.DecodeFrame(r.codec, msg)
	if err != nil {
		return inboundEvent{gen: r.conn.gen, kind: eventDecodeError, err: err}
	}
	return inboundEvent{gen: r.conn.gen, kind: eventFrame, frame: frame}
}

func (r *reader) handshake(conn net.Conn) (net.Conn, error) {
	cfg := r.tlsConfig
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" && !cfg.InsecureSkipVerify {
		cfg = cfg.Clone()
		host, _, err := net.SplitHostPort(r.conn.addr)
		if err != nil {
			host = r.conn.addr
		}
		cfg.ServerName = host
	}

	tlsConn := tls.Client(conn, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, err
	}

	r.logger.Debug("tls handshake completed",
		zap.String("addr", r.conn.addr),
		zap.Uint16("version", tlsConn.ConnectionState().Version),
	)
	return tlsConn, nil
}

func (r *reader) failure(op string, err error) inboundEvent {
	return inboundEvent{
		gen:  r.conn.gen,
		kind: eventFailed,
		err:  &ConnectionError{Op: op, Addr: r.conn.addr, Err: err},
	}
}

// report hands ev to the event loop. Returns false when nobody listens
// anymore.
func (r *reader) report(ev inboundEvent) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.conn.closed:
		return false
	case <-r.quit:
		return false
	}
}
