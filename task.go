package riakpb

import (
	"github.com/pior/riakpb/pbc"
)

// ResultSink receives the outcome of a Task. It is either a callback (see
// Callback) or a *Stream; no other implementation exists.
type ResultSink interface {
	resultSink()
}

// CallbackFunc is invoked once with the merged response or the failure.
type CallbackFunc func(err error, result pbc.Body)

type callbackSink CallbackFunc

func (callbackSink) resultSink() {}

// Callback wraps fn as a ResultSink. The response frames of the task are
// merged and fn is called once, on the client's event loop: it must not
// block.
func Callback(fn CallbackFunc) ResultSink {
	return callbackSink(fn)
}

// Task is one logical request: a framed message and where its response goes.
type Task struct {
	Type           pbc.MessageType
	Payload        []byte // framed bytes, not modified after Submit
	ExpectMultiple bool

	sink     ResultSink
	resolved bool
}

// NewTask creates a task for an already framed payload, see pbc.EncodeMessage.
// When expectMultiple is true the response spans frames until one carries
// done=true.
func NewTask(t pbc.MessageType, payload []byte, expectMultiple bool, sink ResultSink) *Task {
	return &Task{
		Type:           t,
		Payload:        payload,
		ExpectMultiple: expectMultiple,
		sink:           sink,
	}
}

// resolve delivers the outcome exactly once. For a stream, a nil err ends it
// cleanly.
func (t *Task) resolve(err error, result pbc.Body) {
	if t.resolved {
		return
	}
	t.resolved = true

	switch sink := t.sink.(type) {
	case callbackSink:
		if sink == nil {
			return
		}
		if err != nil {
			sink(err, nil)
			return
		}
		if result == nil {
			result = pbc.Body{}
		}
		sink(nil, result)
	case *Stream:
		sink.finish(err)
	}
}

// stream returns the stream sink, or nil for a callback.
func (t *Task) stream() *Stream {
	s, _ := t.sink.(*Stream)
	return s
}
