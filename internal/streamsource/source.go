// Package streamsource exposes a synchronous io.ReadSeeker over bytes
// that are still arriving asynchronously, so a decoder can begin
// reading before a track has finished downloading. One implementation
// provides both the blocking primary reader and independently seekable
// extra cursors (Segment) over the same buffer.
package streamsource

import (
	"fmt"
	"io"
	"sync"
)

// MaxBufferSize is an advisory cap on how large the shared buffer is
// expected to grow; the producer is bounded by network throughput, and
// nothing in this package enforces or reads this value.
const MaxBufferSize = 100 * 1024 * 1024

type shared struct {
	mu   sync.Mutex
	cond *sync.Cond

	buffer    []byte
	totalSize int64 // 0 if unknown
	done      bool
	err       error
}

// Source is the reader half: io.ReadSeeker plus io.Closer, safe for
// concurrent use by at most one reader cursor (use NewSegmentFrom for
// additional independent cursors over the same buffer).
type Source struct {
	s        *shared
	position int64
	closed   bool
}

// Writer is the producer half: appends bytes, signals completion or
// failure. Exactly one goroutine should drive a Writer.
type Writer struct {
	s *shared
}

// NewStreamingSource creates a source/writer pair sharing one buffer.
// totalSizeHint is the expected final length if known (e.g. from a
// Content-Length header), or 0 if unknown.
func NewStreamingSource(totalSizeHint int64) (*Source, *Writer) {
	s := &shared{totalSize: totalSizeHint}
	s.cond = sync.NewCond(&s.mu)
	return &Source{s: s}, &Writer{s: s}
}

// PushChunk appends data to the shared buffer and wakes any blocked readers.
func (w *Writer) PushChunk(data []byte) {
	if len(data) == 0 {
		return
	}
	w.s.mu.Lock()
	w.s.buffer = append(w.s.buffer, data...)
	w.s.mu.Unlock()
	w.s.cond.Broadcast()
}

// SetTotalSize records a total size discovered after construction (for
// example once response headers arrive).
func (w *Writer) SetTotalSize(size int64) {
	w.s.mu.Lock()
	w.s.totalSize = size
	w.s.mu.Unlock()
}

// Complete marks the stream finished successfully.
func (w *Writer) Complete() {
	w.s.mu.Lock()
	w.s.done = true
	w.s.mu.Unlock()
	w.s.cond.Broadcast()
}

// Fail marks the stream failed; subsequent reads past the buffer
// return err.
func (w *Writer) Fail(err error) {
	w.s.mu.Lock()
	w.s.err = err
	w.s.done = true
	w.s.mu.Unlock()
	w.s.cond.Broadcast()
}

// Bytes returns a copy of everything buffered so far. Intended for use
// after Complete(), to hand the finished payload to a cache writer.
func (w *Writer) Bytes() []byte {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	out := make([]byte, len(w.s.buffer))
	copy(out, w.s.buffer)
	return out
}

// Read implements io.Reader, blocking until bytes are available, the
// stream completes, or it fails.
func (src *Source) Read(p []byte) (int, error) {
	s := src.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.err != nil && int64(len(s.buffer)) <= src.position {
			return 0, &streamError{op: "read", err: s.err}
		}

		available := int64(len(s.buffer)) - src.position
		if available > 0 {
			n := int64(len(p))
			if n > available {
				n = available
			}
			start := src.position
			copy(p, s.buffer[start:start+n])
			src.position += n
			return int(n), nil
		}

		if s.done {
			return 0, io.EOF
		}

		s.cond.Wait()
	}
}

// Seek implements io.Seeker. Forward seeks beyond the buffer block
// like a read would; io.SeekEnd is rejected while total size is
// unknown and the stream is incomplete. A position past the final
// length once the stream has ended is an error.
func (src *Source) Seek(offset int64, whence int) (int64, error) {
	s := src.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = src.position + offset
	case io.SeekEnd:
		if s.totalSize <= 0 && !s.done {
			return 0, &streamError{op: "seek", err: fmt.Errorf("seek from end: total size unknown and stream incomplete")}
		}
		end := s.totalSize
		if end <= 0 {
			end = int64(len(s.buffer))
		}
		newPos = end + offset
	default:
		return 0, &streamError{op: "seek", err: fmt.Errorf("invalid whence %d", whence)}
	}

	if newPos < 0 {
		newPos = 0
	}

	for int64(len(s.buffer)) < newPos && !s.done && s.err == nil {
		s.cond.Wait()
	}

	if newPos > int64(len(s.buffer)) {
		if s.err != nil {
			return 0, &streamError{op: "seek", err: s.err}
		}
		return 0, &streamError{op: "seek", err: fmt.Errorf("position %d is past the end of the stream (%d bytes)", newPos, len(s.buffer))}
	}

	src.position = newPos
	return newPos, nil
}

// Close detaches this reader. It does not cancel the producer; callers
// that own the fetch should cancel its context separately.
func (src *Source) Close() error {
	src.closed = true
	return nil
}

// TotalSize returns the known or hinted final length, 0 if unknown.
func (src *Source) TotalSize() int64 {
	s := src.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSize
}

// Downloaded returns the number of bytes buffered so far.
func (src *Source) Downloaded() int64 {
	s := src.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.buffer))
}

// IsComplete reports whether the producer has finished (successfully or not).
func (src *Source) IsComplete() bool {
	s := src.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// WaitForInitialBuffer blocks until at least minBytes are buffered, the
// stream completes, or it fails, whichever happens first. Callers
// should hand the Source to a decoder only after this returns nil.
func (src *Source) WaitForInitialBuffer(minBytes int64) error {
	s := src.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for int64(len(s.buffer)) < minBytes && !s.done && s.err == nil {
		s.cond.Wait()
	}
	if s.err != nil && int64(len(s.buffer)) < minBytes {
		return &streamError{op: "buffer", err: s.err}
	}
	return nil
}

// NewSegmentFrom returns an independent read-only cursor over the same
// growing buffer, starting at offset. Used by a playback engine's seek
// fallback when decode progress can't simply rewind the primary cursor.
func (src *Source) NewSegmentFrom(offset int64) *Segment {
	if offset < 0 {
		offset = 0
	}
	return &Segment{s: src.s, start: offset}
}

// Segment is a read-only view into a shared buffer starting at a fixed
// offset. Closing a Segment never affects the underlying producer.
type Segment struct {
	s      *shared
	start  int64
	cursor int64
}

func (seg *Segment) Read(p []byte) (int, error) {
	s := seg.s
	s.mu.Lock()
	defer s.mu.Unlock()

	abs := seg.start + seg.cursor
	for {
		available := int64(len(s.buffer)) - abs
		if available > 0 {
			n := int64(len(p))
			if n > available {
				n = available
			}
			copy(p, s.buffer[abs:abs+n])
			seg.cursor += n
			return int(n), nil
		}

		if s.done {
			if s.err != nil {
				return 0, &streamError{op: "read", err: s.err}
			}
			return 0, io.EOF
		}
		s.cond.Wait()
	}
}

// Close is a no-op: a Segment never owns the underlying producer.
func (seg *Segment) Close() error { return nil }

type streamError struct {
	op  string
	err error
}

func (e *streamError) Error() string { return fmt.Sprintf("streamsource: %s: %v", e.op, e.err) }
func (e *streamError) Unwrap() error { return e.err }
