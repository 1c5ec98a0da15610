package pbc

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the size of the length prefix.
const HeaderSize = 4

// DefaultMaxFrameSize bounds the length prefix accepted by the Reassembler.
const DefaultMaxFrameSize = 64 << 20

// Codec encodes and decodes message payloads. The protocol engine only needs
// this contract; the schema package provides the implementation.
type Codec interface {
	Encode(t MessageType, body Body) ([]byte, error)
	Decode(t MessageType, data []byte) (Body, error)
}

// Frame is one decoded message.
type Frame struct {
	Code Code
	Type MessageType
	Body Body
}

// EncodeFrame builds a wire frame.
//
// Format: [length uint32 BE][code uint8][payload]
// where length = len(payload) + 1 (the code byte is counted).
func EncodeFrame(code Code, payload []byte) []byte {
	buf := make([]byte, HeaderSize+1+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)+1))
	buf[HeaderSize] = byte(code)
	copy(buf[HeaderSize+1:], payload)
	return buf
}

// EncodeMessage encodes body with codec and frames it.
// A nil body produces an empty payload.
func EncodeMessage(codec Codec, t MessageType, body Body) ([]byte, error) {
	code, ok := CodeOf(t)
	if !ok {
		return nil, fmt.Errorf("riakpb: unknown message type %q", t)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = codec.Encode(t, body)
		if err != nil {
			return nil, fmt.Errorf("riakpb: encode %s: %w", t, err)
		}
	}

	return EncodeFrame(code, payload), nil
}

// DecodeFrame decodes a message as emitted by the Reassembler: the code byte
// followed by the payload, without the length prefix.
//
// Returns a DecodeError for an empty message, an unknown code or a payload
// the codec rejects.
func DecodeFrame(codec Codec, msg []byte) (Frame, error) {
	if len(msg) == 0 {
		return Frame{}, &DecodeError{Message: "empty frame"}
	}

	code := Code(msg[0])
	t, ok := TypeOf(code)
	if !ok {
		return Frame{}, &DecodeError{Code: code, Message: "unknown message code"}
	}

	body, err := codec.Decode(t, msg[1:])
	if err != nil {
		return Frame{}, &DecodeError{Code: code, Message: "failed to decode " + string(t), Err: err}
	}
	if body == nil {
		body = Body{}
	}

	return Frame{Code: code, Type: t, Body: body}, nil
}
