// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package linechannel pairs an input and output bytequeue.Queue sharing one
// separator byte, giving callers a pull-next-line / push-bytes interface
// over the lower-level chunked buffer.
package linechannel

import (
	"fmt"
	"io"

	"github.com/nishisan-dev/ntalk/internal/bytequeue"
)

// Channel is a bound pair of byte queues: In accumulates bytes read from a
// descriptor, Out accumulates bytes waiting to be written to it.
type Channel struct {
	In  *bytequeue.Queue
	Out *bytequeue.Queue
}

// New creates a Channel tokenizing on sep.
func New(sep byte) *Channel {
	return &Channel{In: bytequeue.New(sep), Out: bytequeue.New(sep)}
}

// PullLine returns the next complete line buffered on In, if any.
func (c *Channel) PullLine() (bytequeue.Line, bool) {
	return c.In.PullLine(0)
}

// PullLineReserve is PullLine with a prefix reservation for in-place
// rewriting (e.g. prepending "<nick>: " before relaying a chat line).
func (c *Channel) PullLineReserve(reserve int) (bytequeue.Line, bool) {
	return c.In.PullLine(reserve)
}

// Push appends raw bytes to Out.
func (c *Channel) Push(p []byte) {
	c.Out.Put(p)
}

// PushLine appends payload plus the separator to Out.
func (c *Channel) PushLine(payload []byte) {
	c.Out.PushLine(payload)
}

// PushLinef formats like fmt.Sprintf and appends the result plus the
// separator to Out.
func (c *Channel) PushLinef(format string, args ...any) {
	c.Out.PushLine([]byte(fmt.Sprintf(format, args...)))
}

// Fill reads from r into In. See bytequeue.Queue.Fill.
func (c *Channel) Fill(r io.Reader) (int, error) {
	return c.In.Fill(r)
}

// Drain writes Out to w. See bytequeue.Queue.Drain.
func (c *Channel) Drain(w io.Writer) (int, error) {
	return c.Out.Drain(w)
}

// HasPendingOutput reports whether Out still holds bytes to flush.
func (c *Channel) HasPendingOutput() bool {
	return c.Out.Size() > 0
}
