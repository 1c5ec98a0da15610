package riakpb

import (
	"github.com/pior/riakpb/pbc"
)

// aggregator folds the response frames of the in-flight task into its
// result. It is owned by the event loop.
//
// For each frame, in order:
//  1. errmsg present: the task fails with a ProtocolError, even mid-stream
//  2. stream sink: the body minus done becomes the pending item, unless empty
//  3. callback sink: the body minus done is merged into the accumulator
//  4. the frame is terminal when the task expects a single reply, when done
//     is set, or when it is an RpbErrorResp
//
// After a decode failure of a multi-frame reply, frames are dropped up to the
// terminal one, which resolves the task with that failure.
type aggregator struct {
	task   *Task
	merged pbc.Body

	// stream item waiting for its consumer; inbound frames are not processed
	// while it is set
	pending         pbc.Body
	pendingTerminal bool

	failed error

	onItem func() // called for each item a stream consumer received
}

func (a *aggregator) start(t *Task) {
	a.reset()
	a.task = t
}

func (a *aggregator) reset() {
	*a = aggregator{onItem: a.onItem}
}

// feed processes one frame. A terminal frame comes with the outcome to
// resolve the task with. When feed sets a pending stream item, the frame's
// terminal state is reported by received or dropped instead.
func (a *aggregator) feed(f pbc.Frame) (result pbc.Body, terminal bool, err error) {
	err = f.Body.Err()
	if err == nil && f.Type == pbc.RpbErrorResp {
		err = &pbc.ProtocolError{Message: "unknown server error", Code: f.Body.ErrCode()}
	}

	if a.failed != nil {
		if err != nil || f.Body.Done() {
			return nil, true, a.failed
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, true, err
	}

	body := f.Body.WithoutDone()
	terminal = !a.task.ExpectMultiple || f.Body.Done()

	if s := a.task.stream(); s != nil {
		if len(body) > 0 && !s.isAbandoned() {
			a.pending = body
			a.pendingTerminal = terminal
			return nil, false, nil
		}
	} else {
		a.merged = pbc.Merge(a.merged, body)
	}

	if terminal {
		return a.merged, true, nil
	}
	return nil, false, nil
}

// fail records a decode failure. Only the first one is kept.
func (a *aggregator) fail(err error) {
	if a.failed == nil {
		a.failed = err
	}
}

// failure returns the recorded decode failure, if any.
func (a *aggregator) failure() error {
	return a.failed
}

// pendingItem returns the stream and the item waiting to be received, or nil.
func (a *aggregator) pendingItem() (*Stream, pbc.Body) {
	if a.pending == nil {
		return nil, nil
	}
	return a.task.stream(), a.pending
}

// received records that the consumer took the pending item. It reports
// whether that item came with the terminal frame.
func (a *aggregator) received() bool {
	a.task.stream().delivered++
	if a.onItem != nil {
		a.onItem()
	}
	return a.clearPending()
}

// dropped discards the pending item of an abandoned stream. It reports
// whether that item came with the terminal frame.
func (a *aggregator) dropped() bool {
	return a.clearPending()
}

func (a *aggregator) clearPending() bool {
	terminal := a.pendingTerminal
	a.pending = nil
	a.pendingTerminal = false
	return terminal
}

// replayable reports whether the in-flight task can be sent again from
// scratch: a stream that already handed out items cannot, nor can a task
// whose reply failed to decode.
func (a *aggregator) replayable() bool {
	if a.failed != nil {
		return false
	}
	if s := a.task.stream(); s != nil {
		return s.delivered == 0
	}
	return true
}
