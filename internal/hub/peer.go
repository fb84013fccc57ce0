// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package hub implements the central relay: the per-connection registry,
// nickname authentication, broadcast, and the console/client command tables
// that drive them.
package hub

import (
	"log/slog"
	"net"

	"github.com/nishisan-dev/ntalk/internal/linechannel"
)

// Peer is one connected client as seen by the hub: its channel, address, and
// nickname once authenticated. A peer transitions unauthenticated →
// authenticated on a successful /connect, and to draining on /quit, /kill,
// or hub shutdown; it is destroyed once draining and its output queue is
// empty, or its socket closes.
type Peer struct {
	ID       string // monotonic ticket, stable across the registry map/iteration
	Conn     net.Conn
	Chan     *linechannel.Channel
	Addr     string // "host:port" as reported by the connection
	Nickname string // "" until authenticated
	Draining bool   // awaiting output flush before removal; input is discarded
	Log      *slog.Logger
}

// newPeer wraps an accepted connection. id is the registry's monotonic
// ticket (see Registry.Add), not a network identifier.
func newPeer(id string, conn net.Conn, logger *slog.Logger) *Peer {
	return &Peer{
		ID:   id,
		Conn: conn,
		Chan: linechannel.New('\n'),
		Addr: conn.RemoteAddr().String(),
		Log:  logger.With("peer", id, "addr", conn.RemoteAddr().String()),
	}
}

// Authenticated reports whether the peer has completed /connect.
func (p *Peer) Authenticated() bool {
	return p.Nickname != ""
}

// Host returns the address portion before the last ':', used to splice the
// host field into a relayed /accept.
func (p *Peer) Host() string {
	host, _, err := net.SplitHostPort(p.Addr)
	if err != nil {
		return p.Addr
	}
	return host
}
