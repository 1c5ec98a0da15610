// Package pbc implements the framing layer of the Riak Protocol Buffers
// interface (PBC).
//
// The package knows nothing about connections, queues or individual message
// fields. It covers the parts every PBC client needs regardless of how it
// schedules requests:
//
//   - the closed table of message types and their one-byte codes
//   - frame encoding and decoding
//   - reassembly of frames from an arbitrarily chunked byte stream
//   - the Body container and the merge rule for multi-frame replies
//   - typed errors that tell whether a connection survives them
//
// # Wire Format
//
// Every message, in both directions, is framed as:
//
//	+----------------+--------------+----------------------+
//	| length (4B BE) | code (1B)    | payload (length-1 B) |
//	+----------------+--------------+----------------------+
//
// The payload is a protocol buffers message selected by the code. Payload
// encoding is delegated to a Codec:
//
//	frame, err := pbc.EncodeMessage(codec, pbc.RpbGetReq, pbc.Body{
//	    "bucket": "users",
//	    "key":    "alice",
//	})
//
// # Reading
//
// Reads off a TCP socket rarely line up with frames. The Reassembler accepts
// whatever the socket returned and yields complete messages:
//
//	r := pbc.NewReassembler(0)
//	for msg := range r.Frames(chunk) {
//	    f, err := pbc.DecodeFrame(codec, msg)
//	    ...
//	}
//
// # Multi-frame Replies
//
// Streaming requests (key listing, secondary index, map/reduce) are answered
// with several frames, the last one carrying done=true. Callers that want one
// result fold bodies together with Merge: repeated fields concatenate, other
// fields keep the most recent value.
//
// # Error Handling
//
// DecodeError and ProtocolError leave the connection usable. ErrFrameTooLarge
// and I/O errors do not. Use ShouldCloseConnection to decide:
//
//	if pbc.ShouldCloseConnection(err) {
//	    conn.Close()
//	}
package pbc
