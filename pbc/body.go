package pbc

import (
	"maps"
	"reflect"
)

// Field names the protocol engine looks at. Everything else in a Body is
// opaque to it.
const (
	FieldDone    = "done"
	FieldErrMsg  = "errmsg"
	FieldErrCode = "errcode"
)

// Body holds the decoded fields of one message, keyed by schema field name.
//
// Values are whatever the payload codec produces: scalars (string, []byte,
// bool, integers, floats), nested Body values, and []any for repeated
// fields. A []byte is a scalar, not a repeated field.
type Body map[string]any

// Done reports whether the body carries the terminal marker of a multi-frame
// response.
func (b Body) Done() bool {
	done, _ := b[FieldDone].(bool)
	return done
}

// ErrMsg returns the server error message, if the body carries one.
func (b Body) ErrMsg() (string, bool) {
	switch v := b[FieldErrMsg].(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

// ErrCode returns the server error code, or 0.
func (b Body) ErrCode() uint32 {
	switch v := b[FieldErrCode].(type) {
	case uint32:
		return v
	case uint64:
		return uint32(v)
	case int:
		return uint32(v)
	case int64:
		return uint32(v)
	default:
		return 0
	}
}

// Err converts an error body into a ProtocolError, or returns nil.
func (b Body) Err() error {
	msg, ok := b.ErrMsg()
	if !ok {
		return nil
	}
	return &ProtocolError{Message: msg, Code: b.ErrCode()}
}

// WithoutDone returns the body minus the terminal marker. The receiver is not
// modified.
func (b Body) WithoutDone() Body {
	if _, ok := b[FieldDone]; !ok {
		return b
	}
	out := maps.Clone(b)
	delete(out, FieldDone)
	return out
}

// Merge folds src into dst and returns dst (allocated when nil).
//
// Repeated fields concatenate in call order. Every other field, nested bodies
// included, is replaced by the value from src.
func Merge(dst, src Body) Body {
	if dst == nil {
		dst = make(Body, len(src))
	}

	for k, v := range src {
		prev, ok := dst[k]
		if !ok {
			dst[k] = cloneRepeated(v)
			continue
		}
		if joined, ok := appendRepeated(prev, v); ok {
			dst[k] = joined
			continue
		}
		dst[k] = v
	}

	return dst
}

// cloneRepeated copies repeated values so later appends never write into a
// slice owned by a frame body.
func cloneRepeated(v any) any {
	switch s := v.(type) {
	case []any:
		return append([]any(nil), s...)
	case []byte:
		return v
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return v
	}
	out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
	reflect.Copy(out, rv)
	return out.Interface()
}

func appendRepeated(prev, next any) (any, bool) {
	if a, ok := prev.([]any); ok {
		if b, ok := next.([]any); ok {
			return append(a, b...), true
		}
		return nil, false
	}

	if _, ok := prev.([]byte); ok {
		return nil, false
	}

	pv, nv := reflect.ValueOf(prev), reflect.ValueOf(next)
	if pv.Kind() != reflect.Slice || nv.Kind() != reflect.Slice || pv.Type() != nv.Type() {
		return nil, false
	}
	return reflect.AppendSlice(pv, nv).Interface(), true
}
