package schema

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"reflect"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/pior/riakpb/pbc"
)

// ErrUnexpectedPayload is returned when a message type without fields
// receives a non-empty payload.
var ErrUnexpectedPayload = errors.New("schema: payload for a message without fields")

// Codec encodes and decodes message payloads from a table of message
// schemas. It implements pbc.Codec.
//
// Conversions applied on the way:
//   - bytes fields become strings, except the binary-safe ones (KindBytes)
//   - quorum fields accept and produce the names one, quorum, all, default
//   - enum fields accept and produce their symbolic names
//   - repeated fields decode as []any, nested messages as pbc.Body
type Codec struct {
	messages map[string]*Message
}

var _ pbc.Codec = (*Codec)(nil)

// NewCodec returns a codec over the built-in Riak message schemas plus any
// extra messages. Extra messages replace built-ins of the same name.
func NewCodec(extra ...*Message) *Codec {
	c := &Codec{messages: make(map[string]*Message, len(builtin)+len(extra))}
	for _, m := range builtin {
		c.messages[m.Name] = m
	}
	for _, m := range extra {
		c.messages[m.Name] = m
	}
	return c
}

// Default is the codec used when a client is not configured with one.
var Default = NewCodec()

// NewMessage declares a message schema, for use with NewCodec.
func NewMessage(name string, fields ...Field) *Message {
	return newMessage(name, fields...)
}

// Lookup returns the schema for a message name.
func (c *Codec) Lookup(name string) (*Message, bool) {
	m, ok := c.messages[name]
	return m, ok
}

// Encode serializes body as the payload of message type t.
// Fields are written in schema order; unknown keys and nil values are ignored.
func (c *Codec) Encode(t pbc.MessageType, body pbc.Body) ([]byte, error) {
	m, ok := c.messages[string(t)]
	if !ok {
		return nil, nil
	}
	return c.encodeMessage(nil, m, body)
}

func (c *Codec) encodeMessage(b []byte, m *Message, body map[string]any) ([]byte, error) {
	for i := range m.Fields {
		f := &m.Fields[i]
		v, ok := body[f.Name]
		if !ok || v == nil {
			continue
		}

		if !f.Repeated {
			var err error
			b, err = c.encodeValue(b, f, v)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", m.Name, f.Name, err)
			}
			continue
		}

		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice {
			return nil, fmt.Errorf("%s.%s: repeated field needs a slice, got %T", m.Name, f.Name, v)
		}
		for j := 0; j < rv.Len(); j++ {
			var err error
			b, err = c.encodeValue(b, f, rv.Index(j).Interface())
			if err != nil {
				return nil, fmt.Errorf("%s.%s[%d]: %w", m.Name, f.Name, j, err)
			}
		}
	}
	return b, nil
}

func (c *Codec) encodeValue(b []byte, f *Field, v any) ([]byte, error) {
	switch f.Kind {
	case KindString, KindBytes:
		var data []byte
		switch s := v.(type) {
		case string:
			data = []byte(s)
		case []byte:
			data = s
		default:
			return nil, fmt.Errorf("expected string or []byte, got %T", v)
		}
		b = protowire.AppendTag(b, f.Number, protowire.BytesType)
		return protowire.AppendBytes(b, data), nil

	case KindBool:
		x, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		b = protowire.AppendTag(b, f.Number, protowire.VarintType)
		return protowire.AppendVarint(b, protowire.EncodeBool(x)), nil

	case KindUint32, KindUint64:
		if name, ok := v.(string); ok && f.Quorum {
			q, ok := QuorumValue(name)
			if !ok {
				return nil, fmt.Errorf("unknown quorum value %q", name)
			}
			v = q
		}
		x, err := toUint64(v)
		if err != nil {
			return nil, err
		}
		if f.Kind == KindUint32 && x > math.MaxUint32 {
			return nil, fmt.Errorf("value %d overflows uint32", x)
		}
		b = protowire.AppendTag(b, f.Number, protowire.VarintType)
		return protowire.AppendVarint(b, x), nil

	case KindSint64:
		x, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, f.Number, protowire.VarintType)
		return protowire.AppendVarint(b, protowire.EncodeZigZag(x)), nil

	case KindEnum:
		var x int64
		if name, ok := v.(string); ok {
			n, ok := f.Enum[name]
			if !ok {
				return nil, fmt.Errorf("unknown enum value %q", name)
			}
			x = int64(n)
		} else {
			var err error
			if x, err = toInt64(v); err != nil {
				return nil, err
			}
		}
		b = protowire.AppendTag(b, f.Number, protowire.VarintType)
		return protowire.AppendVarint(b, uint64(x)), nil

	case KindFloat:
		var x float32
		switch n := v.(type) {
		case float32:
			x = n
		case float64:
			x = float32(n)
		default:
			return nil, fmt.Errorf("expected float, got %T", v)
		}
		b = protowire.AppendTag(b, f.Number, protowire.Fixed32Type)
		return protowire.AppendFixed32(b, math.Float32bits(x)), nil

	case KindMessage:
		nested, ok := c.messages[f.Message]
		if !ok {
			return nil, fmt.Errorf("unknown message schema %q", f.Message)
		}
		var fields map[string]any
		switch m := v.(type) {
		case pbc.Body:
			fields = m
		case map[string]any:
			fields = m
		default:
			return nil, fmt.Errorf("expected pbc.Body, got %T", v)
		}
		inner, err := c.encodeMessage(nil, nested, fields)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, f.Number, protowire.BytesType)
		return protowire.AppendBytes(b, inner), nil
	}

	return nil, fmt.Errorf("unsupported field kind %d", f.Kind)
}

// Decode parses the payload of message type t.
// Unknown field numbers are skipped.
func (c *Codec) Decode(t pbc.MessageType, data []byte) (pbc.Body, error) {
	m, ok := c.messages[string(t)]
	if !ok {
		if len(data) != 0 {
			return nil, ErrUnexpectedPayload
		}
		return pbc.Body{}, nil
	}
	return c.decodeMessage(m, data)
}

func (c *Codec) decodeMessage(m *Message, b []byte) (pbc.Body, error) {
	body := pbc.Body{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%s: %w", m.Name, protowire.ParseError(n))
		}
		b = b[n:]

		f := m.field(num)
		if f == nil {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%s: field %d: %w", m.Name, num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		// Packed encoding of repeated scalars
		if f.Repeated && typ == protowire.BytesType && isVarintKind(f.Kind) {
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%s.%s: %w", m.Name, f.Name, protowire.ParseError(n))
			}
			b = b[n:]
			for len(packed) > 0 {
				x, n := protowire.ConsumeVarint(packed)
				if n < 0 {
					return nil, fmt.Errorf("%s.%s: %w", m.Name, f.Name, protowire.ParseError(n))
				}
				packed = packed[n:]
				body[f.Name] = appendValue(body[f.Name], c.varintValue(f, x))
			}
			continue
		}

		v, n, err := c.decodeValue(f, typ, b)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", m.Name, f.Name, err)
		}
		b = b[n:]

		if f.Repeated {
			body[f.Name] = appendValue(body[f.Name], v)
		} else {
			body[f.Name] = v
		}
	}

	return body, nil
}

func (c *Codec) decodeValue(f *Field, typ protowire.Type, b []byte) (any, int, error) {
	switch f.Kind {
	case KindString, KindBytes, KindMessage:
		if typ != protowire.BytesType {
			return nil, 0, fmt.Errorf("wire type %d, want bytes", typ)
		}
		data, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, 0, protowire.ParseError(n)
		}
		switch f.Kind {
		case KindString:
			return string(data), n, nil
		case KindBytes:
			return bytes.Clone(data), n, nil
		}
		nested, ok := c.messages[f.Message]
		if !ok {
			return nil, 0, fmt.Errorf("unknown message schema %q", f.Message)
		}
		inner, err := c.decodeMessage(nested, data)
		if err != nil {
			return nil, 0, err
		}
		return inner, n, nil

	case KindFloat:
		if typ != protowire.Fixed32Type {
			return nil, 0, fmt.Errorf("wire type %d, want fixed32", typ)
		}
		x, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return nil, 0, protowire.ParseError(n)
		}
		return math.Float32frombits(x), n, nil

	default:
		if typ != protowire.VarintType {
			return nil, 0, fmt.Errorf("wire type %d, want varint", typ)
		}
		x, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, 0, protowire.ParseError(n)
		}
		return c.varintValue(f, x), n, nil
	}
}

func (c *Codec) varintValue(f *Field, x uint64) any {
	switch f.Kind {
	case KindBool:
		return protowire.DecodeBool(x)
	case KindUint32:
		v := uint32(x)
		if f.Quorum {
			if name, ok := QuorumName(v); ok {
				return name
			}
		}
		return v
	case KindSint64:
		return protowire.DecodeZigZag(x)
	case KindEnum:
		v := int32(x)
		if name, ok := f.enumName(v); ok {
			return name
		}
		return v
	default:
		return x
	}
}

func isVarintKind(k Kind) bool {
	switch k {
	case KindBool, KindUint32, KindUint64, KindSint64, KindEnum:
		return true
	default:
		return false
	}
}

func appendValue(prev any, v any) any {
	list, _ := prev.([]any)
	return append(list, v)
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint32:
		return uint64(n), nil
	case uint64:
		return n, nil
	case uint:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case int, int8, int16, int32, int64:
		x, _ := toInt64(n)
		if x < 0 {
			return 0, fmt.Errorf("negative value %d for unsigned field", x)
		}
		return uint64(x), nil
	case float64:
		if n < 0 || n != math.Trunc(n) {
			return 0, fmt.Errorf("value %v is not an unsigned integer", n)
		}
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("expected unsigned integer, got %T", v)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint32:
		return int64(n), nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", n)
		}
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("value %v is not an integer", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}
