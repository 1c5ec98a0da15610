package schema

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Kind is the Go-side representation of a field.
type Kind uint8

const (
	// KindString is a protobuf bytes field surfaced as a Go string.
	KindString Kind = iota
	// KindBytes is a binary-safe protobuf bytes field kept as []byte
	// (object values, vector clocks, data type contexts).
	KindBytes
	KindBool
	KindUint32
	KindUint64
	KindSint64
	KindEnum
	KindFloat
	KindMessage
)

// Field describes one protobuf field.
type Field struct {
	Number   protowire.Number
	Name     string
	Kind     Kind
	Repeated bool

	// Message names the nested message schema for KindMessage.
	Message string

	// Enum maps symbolic values for KindEnum.
	Enum map[string]int32

	// Quorum marks uint32 fields accepting the symbolic quorum values.
	Quorum bool
}

// Message describes one protobuf message.
type Message struct {
	Name   string
	Fields []Field

	byNumber map[protowire.Number]*Field
}

func newMessage(name string, fields ...Field) *Message {
	m := &Message{
		Name:     name,
		Fields:   fields,
		byNumber: make(map[protowire.Number]*Field, len(fields)),
	}
	for i := range m.Fields {
		m.byNumber[m.Fields[i].Number] = &m.Fields[i]
	}
	return m
}

// Field lookup by wire number.
func (m *Message) field(n protowire.Number) *Field {
	return m.byNumber[n]
}

func (f *Field) enumName(v int32) (string, bool) {
	for name, n := range f.Enum {
		if n == v {
			return name, true
		}
	}
	return "", false
}

// Field constructors keep the message tables readable.

func str(n protowire.Number, name string) Field {
	return Field{Number: n, Name: name, Kind: KindString}
}

func raw(n protowire.Number, name string) Field {
	return Field{Number: n, Name: name, Kind: KindBytes}
}

func boolean(n protowire.Number, name string) Field {
	return Field{Number: n, Name: name, Kind: KindBool}
}

func u32(n protowire.Number, name string) Field {
	return Field{Number: n, Name: name, Kind: KindUint32}
}

func u64(n protowire.Number, name string) Field {
	return Field{Number: n, Name: name, Kind: KindUint64}
}

func quorum(n protowire.Number, name string) Field {
	return Field{Number: n, Name: name, Kind: KindUint32, Quorum: true}
}

func sint64(n protowire.Number, name string) Field {
	return Field{Number: n, Name: name, Kind: KindSint64}
}

func float(n protowire.Number, name string) Field {
	return Field{Number: n, Name: name, Kind: KindFloat}
}

func enum(n protowire.Number, name string, values map[string]int32) Field {
	return Field{Number: n, Name: name, Kind: KindEnum, Enum: values}
}

func msg(n protowire.Number, name, message string) Field {
	return Field{Number: n, Name: name, Kind: KindMessage, Message: message}
}

func repeated(f Field) Field {
	f.Repeated = true
	return f
}
