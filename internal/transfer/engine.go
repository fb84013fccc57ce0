// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package transfer

import (
	"context"
	"io"
	"net"

	"github.com/nishisan-dev/ntalk/internal/eventloop"
	"github.com/nishisan-dev/ntalk/internal/policy"
)

// Reason is a wire-level refusal reason token. Both sides treat these as
// opaque strings.
type Reason string

const (
	ReasonOpen    Reason = "open"
	ReasonCreate  Reason = "create"
	ReasonName    Reason = "name"
	ReasonNick    Reason = "nick"
	ReasonForbid  Reason = "forbid"
	ReasonID      Reason = "id"
	ReasonConnect Reason = "connect"
	ReasonHost    Reason = "host"
	ReasonIntern  Reason = "intern"
	ReasonMode    Reason = "mode"
	ReasonExists  Reason = "exists"
)

// Listen opens the rendezvous socket a transfer's target side advertises in
// its /accept: a TCP listener for Stream mode, an unconnected UDP socket for
// Datagram mode. Both bind an ephemeral port on all interfaces.
func Listen(mode policy.Mode) (tcpLn net.Listener, udpConn *net.UDPConn, port int, err error) {
	if mode == policy.Datagram {
		udpConn, err = net.ListenUDP("udp", &net.UDPAddr{Port: 0})
		if err != nil {
			return nil, nil, 0, err
		}
		return nil, udpConn, udpConn.LocalAddr().(*net.UDPAddr).Port, nil
	}
	tcpLn, err = net.Listen("tcp", ":0")
	if err != nil {
		return nil, nil, 0, err
	}
	return tcpLn, nil, tcpLn.Addr().(*net.TCPAddr).Port, nil
}

// Dial is the initiator side of /accept: connect to the target's advertised
// host:port, matching mode.
func Dial(mode policy.Mode, host string, port string) (net.Conn, *net.UDPConn, error) {
	addr := net.JoinHostPort(host, port)
	if mode == policy.Datagram {
		raddr, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			return nil, nil, err
		}
		conn, err := net.DialUDP("udp", nil, raddr)
		return nil, conn, err
	}
	conn, err := net.Dial("tcp", addr)
	return conn, nil, err
}

// AttachStream gives tr the stream socket established with its peer — the
// dialed connection on the initiator side, or the one Accept returned on
// the target side. The local file already fills the other role (opened at
// Transfer creation), so there is nothing direction-specific to decide here.
func (tr *Transfer) AttachStream(conn net.Conn) {
	tr.Conn = conn
}

// AttachDatagram installs a dialed, connected UDP socket as tr's transport,
// the initiator side of /accept handling for Datagram mode. Only the
// Receiving direction needs the bootstrap: the target's rendezvous socket
// is unconnected and must learn this side's address from one initiating
// datagram before any file data follows.
func (tr *Transfer) AttachDatagram(conn *net.UDPConn) {
	tr.dgram = connectedUDP{conn: conn}
	tr.NeedsBootstrap = tr.Direction == Receiving
}

// BeginRendezvous starts tr's target-side rendezvous: Accept on a Stream
// listener, or learn the peer address on a Datagram unconnected socket.
// Exactly one of tr.Listener / tr.RendezvousPC must be set.
//
// The spawned goroutine never touches tr — it only posts a single
// TransferRendezvous event (carrying the accepted connection or learned
// transport) keyed by tr.ID. The consumer finishes the hand-off with
// CompleteRendezvous, so every Transfer field is mutated from the one
// event-loop goroutine even while the rendezvous I/O is in flight; that
// also makes destroying a transfer mid-rendezvous (a /refuse race) safe —
// closing the rendezvous socket just errors the pending Accept/read.
func (tr *Transfer) BeginRendezvous(loop *eventloop.Loop) {
	switch {
	case tr.Listener != nil:
		ln := tr.Listener
		go func() {
			conn, err := ln.Accept()
			loop.Post(eventloop.Event{Kind: eventloop.TransferRendezvous, ID: tr.ID, Conn: conn, Err: err})
		}()
	case tr.RendezvousPC != nil && tr.Direction == Sending:
		// This side only ever writes to the datagram socket, so it must
		// block for the peer's one initiating datagram to learn where to
		// write to before anything else can happen.
		rv := &rendezvousUDP{conn: tr.RendezvousPC}
		go func() {
			buf := make([]byte, datagramPayload+1)
			if _, err := rv.ReadDatagram(buf); err != nil {
				loop.Post(eventloop.Event{Kind: eventloop.TransferRendezvous, ID: tr.ID, Err: err})
				return
			}
			loop.Post(eventloop.Event{Kind: eventloop.TransferRendezvous, ID: tr.ID, Payload: rv})
		}()
	case tr.RendezvousPC != nil:
		// Direction == Receiving: the peer never sends a bootstrap hello —
		// direction Sending on the peer's side has nothing to bootstrap —
		// so the first packet this side reads off the wire is already real
		// file data. Hand the raw socket to receiveDatagrams unread; it
		// learns the peer address as a side effect of its own first read.
		loop.Post(eventloop.Event{Kind: eventloop.TransferRendezvous, ID: tr.ID, Payload: &rendezvousUDP{conn: tr.RendezvousPC}})
	}
}

// CompleteRendezvous installs the connection or datagram transport a
// successful TransferRendezvous event carries. Must be called from the
// event-loop consumer before BeginBulkCopy.
func (tr *Transfer) CompleteRendezvous(ev eventloop.Event) {
	if tr.Listener != nil {
		tr.Listener.Close()
		tr.Listener = nil
	}
	if ev.Conn != nil {
		tr.AttachStream(ev.Conn)
		return
	}
	if d, ok := ev.Payload.(datagramTransport); ok {
		tr.dgram = d
		tr.RendezvousPC = nil
	}
}

// BeginBulkCopy starts the transfer's data-transport goroutine: a plain
// byte stream for Stream mode, the header-framed datagram protocol for
// Datagram mode. On completion it posts a single TransferDone event on
// loop, Err nil on success.
//
// maxBytesPerSec, when positive, paces the copy through the bandwidth
// throttle; zero means unlimited.
func (tr *Transfer) BeginBulkCopy(ctx context.Context, loop *eventloop.Loop, maxBytesPerSec int64) {
	go func() {
		var err error
		if tr.Mode == policy.Datagram {
			err = tr.copyDatagram(ctx, maxBytesPerSec)
		} else {
			err = tr.copyStream(ctx, maxBytesPerSec)
		}
		loop.Post(eventloop.Event{Kind: eventloop.TransferDone, ID: tr.ID, Err: err})
	}()
}

// copyStream moves the whole file in Stream mode. Go's net.Conn.Write
// already blocks until every byte is accepted or an error occurs, so short
// writes to the peer socket are retried in place; nothing ever needs to
// seek the source backwards to recover.
func (tr *Transfer) copyStream(ctx context.Context, maxBytesPerSec int64) error {
	var source io.Reader
	var sink io.Writer
	if tr.Direction == Sending {
		source, sink = tr.File, tr.Conn
	} else {
		source, sink = tr.Conn, tr.File
	}
	sink = throttled(ctx, sink, maxBytesPerSec)

	buf := make([]byte, 1024)
	_, err := io.CopyBuffer(sink, source, buf)
	return err
}

func throttled(ctx context.Context, w io.Writer, maxBytesPerSec int64) io.Writer {
	if maxBytesPerSec <= 0 {
		return w
	}
	return NewThrottledWriter(ctx, w, maxBytesPerSec)
}

// copyDatagram moves the file using the header-framed UDP protocol: each
// datagram is a one-byte header (headerMore/headerFinal) followed by up to
// datagramPayload bytes of file data. The Sending side reads the file and
// frames it; the Receiving side strips the header and writes the payload,
// finishing on a short headerMore datagram or any headerFinal datagram
// (including an empty-payload one, the exact-multiple-of-1023 case).
func (tr *Transfer) copyDatagram(ctx context.Context, maxBytesPerSec int64) error {
	if tr.NeedsBootstrap {
		if _, err := tr.dgram.WriteDatagram(helloPayload); err != nil {
			return err
		}
		tr.NeedsBootstrap = false
	}

	if tr.Direction == Sending {
		return tr.sendDatagrams(ctx, maxBytesPerSec)
	}
	return tr.receiveDatagrams()
}

func (tr *Transfer) sendDatagrams(ctx context.Context, maxBytesPerSec int64) error {
	sink := throttled(ctx, datagramWriter{tr.dgram}, maxBytesPerSec)
	buf := make([]byte, 1+datagramPayload)
	for {
		n, err := io.ReadFull(tr.File, buf[1:])
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return err
		}
		if n == datagramPayload {
			// Full read: more data may follow. A short read next iteration
			// (possibly zero bytes, for an exact-multiple file) will close
			// out the transfer with a headerFinal datagram.
			buf[0] = headerMore
			if _, werr := sink.Write(buf[:1+n]); werr != nil {
				return werr
			}
			continue
		}
		buf[0] = headerFinal
		if _, werr := sink.Write(buf[:1+n]); werr != nil {
			return werr
		}
		return nil
	}
}

func (tr *Transfer) receiveDatagrams() error {
	buf := make([]byte, 1+datagramPayload)
	for {
		n, err := tr.dgram.ReadDatagram(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		header := buf[0]
		payload := buf[1:n]
		if len(payload) > 0 {
			if _, err := tr.File.Write(payload); err != nil {
				return err
			}
		}
		if header == headerFinal || len(payload) < datagramPayload {
			return nil
		}
	}
}

// datagramWriter adapts datagramTransport to io.Writer so ThrottledWriter
// can wrap it; each Write call is exactly one already-framed datagram.
type datagramWriter struct{ d datagramTransport }

func (w datagramWriter) Write(p []byte) (int, error) { return w.d.WriteDatagram(p) }
