package riakpb

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"

	"github.com/pior/riakpb/pbc"
)

// Stream is the ResultSink of a streaming task. Each response frame with a
// non-empty body becomes one item; the terminal frame ends the stream.
//
// The client hands items over one at a time: while an item is not received,
// the connection is not read any further. Control calls such as Disconnect
// still run meanwhile. A consumer that stops early must call Close so the
// remaining frames are discarded.
type Stream struct {
	items     chan pbc.Body
	done      chan struct{}
	abandoned chan struct{}

	finishOnce sync.Once
	closeOnce  sync.Once
	err        error

	delivered int // owned by the event loop
}

// NewStream creates a stream for use with NewTask.
func NewStream() *Stream {
	return &Stream{
		items:     make(chan pbc.Body),
		done:      make(chan struct{}),
		abandoned: make(chan struct{}),
	}
}

// Recv returns the next item. At the end of the stream it returns io.EOF, or
// the error that terminated it. Items delivered before an error are not
// retracted.
func (s *Stream) Recv(ctx context.Context) (pbc.Body, error) {
	select {
	case item := <-s.items:
		return item, nil
	case <-s.done:
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// All yields the items until the end of the stream. The iteration stops on
// the first error, which is yielded with a nil body.
func (s *Stream) All(ctx context.Context) iter.Seq2[pbc.Body, error] {
	return func(yield func(pbc.Body, error) bool) {
		for {
			item, err := s.Recv(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(item, nil) {
				s.Close()
				return
			}
		}
	}
}

// Collect receives every item.
func (s *Stream) Collect(ctx context.Context) ([]pbc.Body, error) {
	var items []pbc.Body
	for item, err := range s.All(ctx) {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Close abandons the stream. Undelivered items are dropped; the task still
// runs to its terminal frame.
func (s *Stream) Close() {
	s.closeOnce.Do(func() { close(s.abandoned) })
}

// Done is closed when the stream has ended.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the stream, nil for a clean end or while
// the stream is running.
func (s *Stream) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (*Stream) resultSink() {}

func (s *Stream) isAbandoned() bool {
	select {
	case <-s.abandoned:
		return true
	default:
		return false
	}
}

func (s *Stream) finish(err error) {
	s.finishOnce.Do(func() {
		s.err = err
		close(s.done)
	})
}
