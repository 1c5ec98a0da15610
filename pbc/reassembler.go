package pbc

import (
	"bytes"
	"encoding/binary"
	"iter"
)

// Reassembler turns an arbitrary chunking of the inbound byte stream into the
// sequence of messages the peer wrote.
//
// Usage mirrors bufio.Scanner:
//
//	r := pbc.NewReassembler(0)
//	for {
//	    n, err := conn.Read(buf)
//	    r.Write(buf[:n])
//	    for r.Scan() {
//	        handle(r.Frame())
//	    }
//	    if r.Err() != nil { ... }
//	}
//
// Each message is the code byte followed by the payload; the length prefix is
// consumed. Messages are produced lazily, one per Scan call, and the slices
// returned by Frame are owned by the caller.
//
// State carried between chunks:
//   - a partial length prefix (fewer than 4 bytes seen)
//   - a partial frame and the number of bytes still awaited for it
//
// A Reassembler is not safe for concurrent use and belongs to one connection.
type Reassembler struct {
	maxFrameSize int

	header    [HeaderSize]byte
	headerLen int

	pending  []byte
	awaiting int

	chunk []byte
	frame []byte
	err   error
}

// NewReassembler creates a Reassembler. maxFrameSize <= 0 selects
// DefaultMaxFrameSize.
func NewReassembler(maxFrameSize int) *Reassembler {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &Reassembler{maxFrameSize: maxFrameSize}
}

// Write hands a chunk to the Reassembler. The chunk is retained, not copied,
// until Scan returns false; the caller must not modify it before then.
// Write never fails unless a previous chunk produced an error.
func (r *Reassembler) Write(chunk []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if len(r.chunk) == 0 {
		r.chunk = chunk
	} else {
		r.chunk = append(r.chunk[:len(r.chunk):len(r.chunk)], chunk...)
	}
	return len(chunk), nil
}

// Scan advances to the next complete message. It returns false when the
// buffered chunk is exhausted (more data is needed) or when an error occurred.
func (r *Reassembler) Scan() bool {
	r.frame = nil
	if r.err != nil {
		return false
	}

	for len(r.chunk) > 0 {
		// Finish the frame currently being assembled
		if r.awaiting > 0 {
			n := min(r.awaiting, len(r.chunk))
			r.pending = append(r.pending, r.chunk[:n]...)
			r.awaiting -= n
			r.chunk = r.chunk[n:]
			if r.awaiting > 0 {
				return false
			}
			r.frame = r.pending
			r.pending = nil
			return true
		}

		// Read the length prefix, possibly split across chunks
		var size int
		if r.headerLen > 0 || len(r.chunk) < HeaderSize {
			n := copy(r.header[r.headerLen:], r.chunk)
			r.headerLen += n
			r.chunk = r.chunk[n:]
			if r.headerLen < HeaderSize {
				return false
			}
			size = int(binary.BigEndian.Uint32(r.header[:]))
			r.headerLen = 0
		} else {
			size = int(binary.BigEndian.Uint32(r.chunk))
			r.chunk = r.chunk[HeaderSize:]
		}

		if size > r.maxFrameSize {
			r.err = ErrFrameTooLarge
			r.chunk = nil
			return false
		}

		if len(r.chunk) >= size {
			r.frame = bytes.Clone(r.chunk[:size])
			if r.frame == nil {
				r.frame = []byte{}
			}
			r.chunk = r.chunk[size:]
			return true
		}

		r.pending = make([]byte, 0, size)
		r.pending = append(r.pending, r.chunk...)
		r.awaiting = size - len(r.chunk)
		r.chunk = nil
	}

	return false
}

// Frame returns the message produced by the last successful Scan.
func (r *Reassembler) Frame() []byte {
	return r.frame
}

// Err returns the first error encountered. Once set, the Reassembler produces
// nothing more.
func (r *Reassembler) Err() error {
	return r.err
}

// Buffered returns the number of bytes held but not yet emitted, a partial
// length prefix included.
func (r *Reassembler) Buffered() int {
	return r.headerLen + len(r.pending) + len(r.chunk)
}

// Frames writes chunk and yields every message it completes.
// Stopping the iteration early keeps the remaining bytes buffered.
func (r *Reassembler) Frames(chunk []byte) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		if _, err := r.Write(chunk); err != nil {
			return
		}
		for r.Scan() {
			if !yield(r.Frame()) {
				return
			}
		}
	}
}

// Reset drops all buffered state, including a sticky error.
func (r *Reassembler) Reset() {
	*r = Reassembler{maxFrameSize: r.maxFrameSize}
}
