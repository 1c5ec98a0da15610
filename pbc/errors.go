package pbc

import (
	"errors"
	"fmt"
)

// Error types for the protocol layer.
// Like the connection errors of the client package, each type reports whether
// the connection it happened on must be dropped.

// ErrFrameTooLarge is reported by the Reassembler when a length prefix
// announces a frame bigger than the configured limit. The byte stream can no
// longer be trusted.
var ErrFrameTooLarge = errors.New("riakpb: frame exceeds maximum size")

// DecodeError is returned when a frame cannot be turned into a Frame: the
// message code is absent from the code table, or the payload codec rejected
// the bytes.
//
// Frame boundaries come from the length prefix, not from the payload, so the
// stream stays aligned and the connection is kept.
//
// Connection handling: REUSE the connection, fail the in-flight task only
type DecodeError struct {
	Code    Code
	Message string
	Err     error // Underlying codec error, if any
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("riakpb: decode error (code %d): %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("riakpb: decode error (code %d): %s", e.Code, e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns false - the stream is still aligned
func (e *DecodeError) ShouldCloseConnection() bool {
	return false
}

// ProtocolError is a failure reported by the server, either as an
// RpbErrorResp frame or as any frame whose body carries errmsg.
//
// Connection handling: REUSE the connection
type ProtocolError struct {
	Message string
	Code    uint32
}

func (e *ProtocolError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("riakpb: server error %d: %s", e.Code, e.Message)
	}
	return "riakpb: server error: " + e.Message
}

// ShouldCloseConnection returns false - the server answered cleanly
func (e *ProtocolError) ShouldCloseConnection() bool {
	return false
}

// ErrorWithConnectionState is implemented by errors that know whether the
// connection they occurred on is still usable.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves the connection in an
// unknown state.
//
// Returns false for nil, DecodeError and ProtocolError.
// Unknown error types are treated conservatively and return true.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	return true
}
