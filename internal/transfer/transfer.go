// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package transfer implements the peer-to-peer file transfer state machine:
// rendezvous over a listening (stream) or unconnected (datagram) socket, the
// reliable and best-effort bulk-copy transports, and the table of in-flight
// transfers a hub client or participant session keeps.
package transfer

import (
	"crypto/rand"
	"errors"
	"log/slog"
	"net"
	"os"

	mrand "math/rand"

	"github.com/nishisan-dev/ntalk/internal/policy"
)

// Direction is which end of the bulk copy this side plays.
type Direction int

const (
	// Sending means the local file is the source; bytes flow to the peer.
	Sending Direction = iota
	// Receiving means the local file is the sink; bytes flow from the peer.
	Receiving
)

func (d Direction) String() string {
	if d == Sending {
		return "sending"
	}
	return "receiving"
}

// idAlphabet is the 64-character alphabet ids are drawn from.
const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz+-"

const idLength = 16

// idRand is reseeded from crypto/rand whenever a generated id collides with
// an existing table entry. It is not used for anything security-sensitive;
// ids only need to be hard to guess in casual use.
var idRand = mrand.New(mrand.NewSource(seedFromCrypto()))

func seedFromCrypto() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 1
	}
	var s int64
	for _, c := range b {
		s = s<<8 | int64(c)
	}
	return s
}

func reseed() {
	idRand = mrand.New(mrand.NewSource(seedFromCrypto()))
}

func generateID() string {
	buf := make([]byte, idLength)
	for i := range buf {
		buf[i] = idAlphabet[idRand.Intn(len(idAlphabet))]
	}
	return string(buf)
}

// Transfer is one in-flight file transfer, sender or receiver, stream or
// datagram. Exactly one of File's two roles applies: Sending holds the
// source file open for read, Receiving holds the sink file open for write.
type Transfer struct {
	ID        string
	Mode      policy.Mode
	Direction Direction
	PeerNick  string
	Name      string // the filename this side refers to locally
	File      *os.File

	// Stream transport, once established.
	Conn net.Conn

	// Rendezvous state for the side that created the listening/unconnected
	// socket (the target of /receive or /send). Exactly one of Listener,
	// RendezvousPC is set, and only until the peer connects.
	Listener    net.Listener
	RendezvousPC *net.UDPConn

	// Datagram transport, once established. dgram is nil until the rendezvous
	// completes (target side) or the initiator dials out.
	dgram datagramTransport

	// NeedsBootstrap is set for an initiator-side Receiving+Datagram transfer:
	// one initiating datagram must be sent before the bulk read loop starts,
	// so the target's unconnected rendezvous socket learns this side's
	// address. Kept as an explicit bool rather than overloading a socket
	// field with a sentinel value.
	NeedsBootstrap bool

	Log *slog.Logger
}

// ErrUnknownID names the condition of an id with no matching transfer.
// Table.Get reports a miss through its bool result, not this error.
var ErrUnknownID = errors.New("transfer: unknown id")

// Table is a participant's (or hub client's) set of in-flight transfers,
// keyed by id and iterated in insertion order.
type Table struct {
	byID  map[string]*Transfer
	order []string
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{byID: make(map[string]*Transfer)}
}

// NewID returns an id not already present in t, reseeding the generator and
// retrying on collision.
func (t *Table) NewID() string {
	id := generateID()
	for {
		if _, exists := t.byID[id]; !exists {
			return id
		}
		reseed()
		id = generateID()
	}
}

// Add registers tr under tr.ID.
func (t *Table) Add(tr *Transfer) {
	if _, exists := t.byID[tr.ID]; !exists {
		t.order = append(t.order, tr.ID)
	}
	t.byID[tr.ID] = tr
}

// Get looks up a transfer by id.
func (t *Table) Get(id string) (*Transfer, bool) {
	tr, ok := t.byID[id]
	return tr, ok
}

// Remove closes every descriptor tr owns and drops it from the table.
func (t *Table) Remove(id string) {
	tr, ok := t.byID[id]
	if !ok {
		return
	}
	tr.closeAll()
	delete(t.byID, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// All returns every in-flight transfer in insertion order.
func (t *Table) All() []*Transfer {
	out := make([]*Transfer, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out
}

func (tr *Transfer) closeAll() {
	if tr.File != nil {
		tr.File.Close()
	}
	if tr.Conn != nil {
		tr.Conn.Close()
	}
	if tr.Listener != nil {
		tr.Listener.Close()
	}
	if tr.RendezvousPC != nil {
		tr.RendezvousPC.Close()
	}
	if tr.dgram != nil {
		tr.dgram.Close()
	}
}
