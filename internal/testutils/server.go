// Package testutils provides a fake Riak PBC server for tests.
package testutils

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/pior/riakpb/pbc"
	"github.com/pior/riakpb/schema"
)

// Request is a frame received by the Server.
type Request struct {
	Type pbc.MessageType
	Body pbc.Body
	Conn int // index of the connection, in accept order
}

// Reply is one frame to send back. Raw, when set, is written as is.
type Reply struct {
	Type pbc.MessageType
	Body pbc.Body
	Raw  []byte
}

// Handler answers a request with zero or more frames. Returning Close drops
// the connection instead.
type Handler func(req Request) []Reply

// Close is returned by a Handler to close the connection without replying.
var Close = []Reply{{Type: "close"}}

// Server is a loopback TCP server speaking the frame protocol.
type Server struct {
	t        testing.TB
	listener net.Listener
	handler  Handler

	// TLS is used to answer RpbStartTls. Nil makes StartTls fail.
	TLS *tls.Config

	mu       sync.Mutex
	requests []Request
	conns    []net.Conn
	wg       sync.WaitGroup
}

// NewServer starts a server. It is stopped with t.Cleanup.
func NewServer(t testing.TB, handler Handler) *Server {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := &Server{t: t, listener: l, handler: handler}

	s.wg.Add(1)
	go s.accept()

	t.Cleanup(s.Close)
	return s
}

// Addr returns the host:port of the server.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Types returns the message types received so far.
func (s *Server) Types() []pbc.MessageType {
	var types []pbc.MessageType
	for _, r := range s.Requests() {
		types = append(types, r.Type)
	}
	return types
}

// ConnCount returns the number of connections accepted.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// DropConnections closes every open connection.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.Close()
	}
}

// Close stops the server.
func (s *Server) Close() {
	_ = s.listener.Close()
	s.DropConnections()
	s.wg.Wait()
}

func (s *Server) accept() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		id := len(s.conns)
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(id, conn)
	}
}

func (s *Server) serve(id int, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	r := pbc.NewReassembler(0)
	buf := make([]byte, 4096)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			_, _ = r.Write(buf[:n])
			for r.Scan() {
				frame, derr := pbc.DecodeFrame(schema.Default, r.Frame())
				if derr != nil {
					s.t.Errorf("fake server: %v", derr)
					return
				}

				req := Request{Type: frame.Type, Body: frame.Body, Conn: id}
				s.mu.Lock()
				s.requests = append(s.requests, req)
				s.mu.Unlock()

				if frame.Type == pbc.RpbStartTls {
					upgraded, ok := s.startTLS(conn)
					if !ok {
						return
					}
					conn = upgraded
					continue
				}

				if !s.reply(conn, s.handler(req)) {
					return
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.t.Logf("fake server: read: %v", err)
			}
			return
		}
	}
}

func (s *Server) startTLS(conn net.Conn) (net.Conn, bool) {
	if s.TLS == nil {
		return nil, s.reply(conn, []Reply{ErrorReply("tls not configured", 0)})
	}
	if !s.reply(conn, []Reply{{Type: pbc.RpbStartTls}}) {
		return nil, false
	}

	tlsConn := tls.Server(conn, s.TLS)
	if err := tlsConn.Handshake(); err != nil {
		s.t.Logf("fake server: handshake: %v", err)
		return nil, false
	}

	s.mu.Lock()
	for i, c := range s.conns {
		if c == conn {
			s.conns[i] = tlsConn
		}
	}
	s.mu.Unlock()

	return tlsConn, true
}

func (s *Server) reply(conn net.Conn, replies []Reply) bool {
	if len(replies) == 1 && replies[0].Type == "close" {
		return false
	}

	var out []byte
	for _, r := range replies {
		if r.Raw != nil {
			out = append(out, r.Raw...)
			continue
		}
		frame, err := pbc.EncodeMessage(schema.Default, r.Type, r.Body)
		if err != nil {
			s.t.Errorf("fake server: %v", err)
			return false
		}
		out = append(out, frame...)
	}

	if len(out) == 0 {
		return true
	}
	_, err := conn.Write(out)
	return err == nil
}

// ErrorReply builds an RpbErrorResp frame.
func ErrorReply(msg string, code uint32) Reply {
	return Reply{Type: pbc.RpbErrorResp, Body: pbc.Body{"errmsg": msg, "errcode": code}}
}

// Respond answers with a single frame of type t.
func Respond(t pbc.MessageType, body pbc.Body) []Reply {
	return []Reply{{Type: t, Body: body}}
}

// Echo answers every request with its expected response type and no fields.
func Echo(req Request) []Reply {
	if t, ok := ResponseType(req.Type); ok {
		return Respond(t, nil)
	}
	return nil
}

// ResponseType maps a request message type to its response type.
func ResponseType(t pbc.MessageType) (pbc.MessageType, bool) {
	code, ok := pbc.CodeOf(t)
	if !ok {
		return "", false
	}
	switch t {
	case pbc.RpbGetBucketTypeReq:
		return pbc.RpbGetBucketResp, true
	case pbc.RpbSetBucketTypeReq:
		return pbc.RpbSetBucketResp, true
	case pbc.RpbYokozunaIndexPutReq, pbc.RpbYokozunaIndexDeleteReq, pbc.RpbYokozunaSchemaPutReq:
		return pbc.RpbDelResp, true
	case pbc.RpbAuthReq:
		return pbc.RpbAuthResp, true
	}
	return pbc.TypeOf(code + 1)
}
