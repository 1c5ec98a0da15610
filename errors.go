package riakpb

import (
	"errors"
	"fmt"

	"github.com/pior/riakpb/pbc"
)

var (
	// ErrNotConnected is returned when a task is dispatched without a
	// connection and auto-connect is disabled.
	ErrNotConnected = errors.New("riakpb: not connected")

	// ErrTransportClosed is returned when the connection drops while a task
	// can no longer be retried, e.g. a stream that already delivered items.
	ErrTransportClosed = errors.New("riakpb: connection closed")

	// ErrClientClosed is returned for every task still pending when the
	// client is closed, and for tasks submitted afterwards.
	ErrClientClosed = errors.New("riakpb: client closed")

	// ErrNotSecured fails an authentication request sent while the
	// connection is not secured by StartTLS.
	ErrNotSecured = errors.New("riakpb: authentication requires a secured connection")
)

// ConnectionError reports a transport failure: dial, TLS handshake, write or
// read.
//
// Connection handling: CLOSE the connection
type ConnectionError struct {
	Op   string // dial, tls, write, read
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("riakpb: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - the transport is in an unknown state
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// Timeout reports whether the failure was a timeout.
func (e *ConnectionError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// ShouldCloseConnection reports whether err leaves a connection unusable.
// Server errors and decode errors keep the connection; everything else,
// including unknown errors, does not.
func ShouldCloseConnection(err error) bool {
	return pbc.ShouldCloseConnection(err)
}
