// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package bytequeue

import (
	"bytes"
	"errors"
	"io"
)

// ErrWouldBlock is returned by Fill/Drain when the underlying descriptor has
// no data ready (Fill) or cannot currently accept a write (Drain). Callers
// that drive a readiness-gated reader/writer (one implementing Readier) must
// raise interest and retry later instead of spinning.
var ErrWouldBlock = errors.New("bytequeue: would block")

// Readier is implemented by readers/writers that know whether they are
// currently ready without blocking (e.g. a non-blocking socket wrapper).
// Fill/Drain consult it when present; callers that only ever invoke Fill/Drain
// after their own readiness notification (the common case in this codebase,
// where a per-connection goroutine performs the blocking read and hands the
// bytes to the owning Queue) never need to implement it.
type Readier interface {
	Ready() bool
}

// Queue is an ordered sequence of chunks acting as one logical FIFO of bytes,
// bound to an optional separator used for tokenization.
//
// Invariants: size is exactly the sum of chunk lengths; only the first chunk
// may have start > 0; only the last chunk may be partially filled; an empty
// queue holds zero chunks.
type Queue struct {
	chunks []*chunk
	size   int
	sep    byte
}

// New creates an empty Queue that tokenizes on sep.
func New(sep byte) *Queue {
	return &Queue{sep: sep}
}

// Size returns the total number of live bytes currently queued.
func (q *Queue) Size() int {
	return q.size
}

// Separator returns the byte this queue tokenizes on.
func (q *Queue) Separator() byte {
	return q.sep
}

// Put appends p to the tail of the queue, allocating chunks as needed.
func (q *Queue) Put(p []byte) {
	if len(p) == 0 {
		return
	}
	q.size += len(p)
	for len(p) > 0 {
		var tail *chunk
		if n := len(q.chunks); n > 0 {
			tail = q.chunks[n-1]
		}
		if tail == nil || tail.free() == 0 {
			tail = newChunk()
			q.chunks = append(q.chunks, tail)
		}
		n := copy(tail.buf[tail.end:], p)
		tail.end += n
		p = p[n:]
	}
}

// Take consumes exactly n bytes from the head of the queue, optionally
// copying them into dst (which must have length >= n). It is never called
// with n greater than Size().
func (q *Queue) Take(n int, dst []byte) {
	if n > q.size {
		panic("bytequeue: take exceeds queue size")
	}
	remaining := n
	written := 0
	for remaining > 0 {
		head := q.chunks[0]
		take := head.len()
		if take > remaining {
			take = remaining
		}
		if dst != nil {
			copy(dst[written:], head.buf[head.start:head.start+take])
		}
		head.start += take
		written += take
		remaining -= take
		if head.len() == 0 {
			q.chunks = q.chunks[1:]
		}
	}
	q.size -= n
}

// Discard drops n bytes from the head without copying them anywhere.
func (q *Queue) Discard(n int) {
	q.Take(n, nil)
}

// Peek returns a copy of the first n live bytes without consuming them.
func (q *Queue) Peek(n int) []byte {
	if n > q.size {
		n = q.size
	}
	out := make([]byte, n)
	remaining := n
	written := 0
	for _, c := range q.chunks {
		if remaining == 0 {
			break
		}
		take := c.len()
		if take > remaining {
			take = remaining
		}
		copy(out[written:], c.buf[c.start:c.start+take])
		written += take
		remaining -= take
	}
	return out
}

// TokenSize scans forward for the separator byte and returns the length of
// the first token including the separator, or 0 if no separator is buffered
// yet.
func (q *Queue) TokenSize() int {
	offset := 0
	for _, c := range q.chunks {
		if idx := bytes.IndexByte(c.buf[c.start:c.end], q.sep); idx >= 0 {
			return offset + idx + 1
		}
		offset += c.len()
	}
	return 0
}

// Fill reads from r and appends whatever was read to the queue's tail,
// allocating new tail chunks as needed. It reads in chunk-sized batches until
// a short read, EOF, or error. Returns total bytes appended; 0 on clean EOF.
// If r implements Readier and reports not-ready, Fill returns (0,
// ErrWouldBlock) without reading.
func (q *Queue) Fill(r io.Reader) (int, error) {
	if ready, ok := r.(Readier); ok && !ready.Ready() {
		return 0, ErrWouldBlock
	}

	total := 0
	for {
		var tail *chunk
		if n := len(q.chunks); n > 0 {
			tail = q.chunks[n-1]
		}
		if tail == nil || tail.free() == 0 {
			tail = newChunk()
			q.chunks = append(q.chunks, tail)
		}

		space := tail.free()
		n, err := r.Read(tail.buf[tail.end:])
		if n > 0 {
			tail.end += n
			q.size += n
			total += n
		}
		if err != nil {
			if err == io.EOF {
				if total == 0 {
					return 0, nil
				}
				return total, nil
			}
			return total, err
		}
		if n < space {
			// Short read: descriptor drained for now, stop without forcing
			// another syscall that would just block.
			return total, nil
		}
	}
}

// Drain flushes all live bytes to w in a single write, re-enqueueing any
// unaccepted tail on a short write. If w implements Readier and reports
// not-ready, Drain returns (0, ErrWouldBlock) without writing.
func (q *Queue) Drain(w io.Writer) (int, error) {
	if q.size == 0 {
		return 0, nil
	}
	if ready, ok := w.(Readier); ok && !ready.Ready() {
		return 0, ErrWouldBlock
	}

	staging := make([]byte, q.size)
	// Non-destructive: peek everything into one contiguous buffer first so a
	// short write can be re-enqueued without losing bytes already consumed.
	written := 0
	for _, c := range q.chunks {
		n := copy(staging[written:], c.buf[c.start:c.end])
		written += n
	}

	n, err := w.Write(staging)
	if n > 0 {
		q.Discard(n)
	}
	if err != nil {
		return n, err
	}
	return n, nil
}
