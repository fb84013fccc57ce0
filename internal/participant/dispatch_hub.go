// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package participant

import (
	"errors"
	"net"
	"os"

	"github.com/nishisan-dev/ntalk/internal/command"
	"github.com/nishisan-dev/ntalk/internal/policy"
	"github.com/nishisan-dev/ntalk/internal/transfer"
)

// hubTable returns the command set the participant accepts from the hub:
// the four relayed transfer-negotiation commands. The hub has already
// rewritten the first argument to the originating peer's nickname.
func (s *Session) hubTable() command.Table {
	return command.NewTable([]command.Command{
		{
			Name:  "receive",
			Arity: 4,
			Help:  "/receive <peer> <id> <mode> <name>",
			Handler: func(args [][]byte) command.Code {
				s.inboundRequest(string(args[0]), string(args[1]), string(args[2]), string(args[3]), transfer.Sending)
				return command.OK
			},
		},
		{
			Name:  "send",
			Arity: 4,
			Help:  "/send <peer> <id> <mode> <name>",
			Handler: func(args [][]byte) command.Code {
				s.inboundRequest(string(args[0]), string(args[1]), string(args[2]), string(args[3]), transfer.Receiving)
				return command.OK
			},
		},
		{
			Name:  "accept",
			Arity: 5,
			Help:  "/accept <peer> <id-initiator> <id-target> <host> <port>",
			Handler: func(args [][]byte) command.Code {
				s.inboundAccept(string(args[0]), string(args[1]), string(args[2]), string(args[3]), string(args[4]))
				return command.OK
			},
		},
		{
			Name:  "refuse",
			Arity: 3,
			Help:  "/refuse <peer> <id> <reason>",
			Handler: func(args [][]byte) command.Code {
				s.inboundRefuse(string(args[0]), string(args[1]), string(args[2]))
				return command.OK
			},
		},
	})
}

// refuse sends a /refuse back through the hub to peer, aborting the
// negotiation identified by id with one of the wire reason tokens.
func (s *Session) refuse(peer, id string, reason transfer.Reason) {
	s.hub.PushLinef("/refuse %s %s %s", peer, id, reason)
}

// inboundRequest is the target side of a peer's /receive or /send: validate
// the mode, the filename and the peer against the forbid list, bind the
// local file, open the rendezvous socket, and answer /accept with its port
// (the hub fills in this side's address). role is the direction this side
// will play: Sending when the peer asked to receive, Receiving when the
// peer is pushing a file here.
func (s *Session) inboundRequest(from, peerID, modeTok, name string, role transfer.Direction) {
	mode, ok := policy.ParseMode(modeTok)
	if !ok {
		s.refuse(from, peerID, transfer.ReasonMode)
		return
	}
	if !policy.ValidFilename(name) {
		s.refuse(from, peerID, transfer.ReasonName)
		return
	}
	if s.forbids.Contains(from) {
		if role == transfer.Sending {
			s.console.PushLinef("*** %s attempted to get the %s file.", from, name)
		} else {
			s.console.PushLinef("*** %s attempted to send the %s file.", from, name)
		}
		s.refuse(from, peerID, transfer.ReasonForbid)
		return
	}

	// Bind the local file before any socket exists, so a refusal here never
	// leaves a stray descriptor — and in the Receiving case never creates
	// the file at all when it already exists.
	var file *os.File
	var err error
	if role == transfer.Sending {
		file, err = os.Open(name)
		if err != nil {
			s.console.PushLinef("*** Could not open %s: %v", name, err)
			s.refuse(from, peerID, transfer.ReasonOpen)
			return
		}
	} else {
		file, err = os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0666)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				s.console.PushLinef("*** %s already exists; refusing transfer from %s.", name, from)
				s.refuse(from, peerID, transfer.ReasonExists)
			} else {
				s.console.PushLinef("*** Could not create %s: %v", name, err)
				s.refuse(from, peerID, transfer.ReasonCreate)
			}
			return
		}
	}

	ln, pc, port, err := transfer.Listen(mode)
	if err != nil {
		file.Close()
		if role == transfer.Receiving {
			os.Remove(name)
		}
		s.console.PushLinef("*** Could not open a rendezvous socket: %v", err)
		s.refuse(from, peerID, transfer.ReasonIntern)
		return
	}

	tr := &transfer.Transfer{
		ID:           s.transfers.NewID(),
		Mode:         mode,
		Direction:    role,
		PeerNick:     from,
		Name:         name,
		File:         file,
		Listener:     ln,
		RendezvousPC: pc,
	}
	s.transfers.Add(tr)
	s.attachSessionLog(tr)

	if role == transfer.Sending {
		s.console.PushLinef("** %s is receiving the %s file.", from, name)
	} else {
		s.console.PushLinef("** %s is sending the %s file.", from, name)
	}

	s.hub.PushLinef("/accept %s %s %s %d", from, peerID, tr.ID, port)
	tr.Log.Info("transfer accepted", "direction", tr.Direction.String(), "port", port)
	tr.BeginRendezvous(s.loop)
}

// inboundAccept is the initiator side of the peer's /accept: find the
// transfer by the id this side chose, dial the peer's advertised endpoint,
// and start the bulk copy. Dial failures refuse with host (resolution) or
// connect and destroy the local transfer.
func (s *Session) inboundAccept(from, myID, peerID, host, port string) {
	tr, ok := s.transfers.Get(myID)
	if !ok {
		s.refuse(from, peerID, transfer.ReasonID)
		return
	}

	conn, udp, err := transfer.Dial(tr.Mode, host, port)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			s.refuse(from, peerID, transfer.ReasonHost)
		} else {
			s.refuse(from, peerID, transfer.ReasonConnect)
		}
		tr.Log.Error("could not reach peer endpoint", "host", host, "port", port, "error", err)
		s.console.PushLine([]byte("*** File transfer failed."))
		s.removeTransfer(myID, false)
		return
	}

	if tr.Mode == policy.Datagram {
		tr.AttachDatagram(udp)
	} else {
		tr.AttachStream(conn)
	}
	tr.Log.Info("peer endpoint connected", "host", host, "port", port)
	tr.BeginBulkCopy(s.ctx, s.loop, s.cfg.Transfer.MaxBytesPerSecRaw)
}

// inboundRefuse aborts the local side of a refused negotiation. An id this
// side no longer (or never) knew is ignored beyond the console note.
func (s *Session) inboundRefuse(from, myID, reason string) {
	if tr, ok := s.transfers.Get(myID); ok {
		tr.Log.Info("transfer refused by peer", "reason", reason)
		s.removeTransfer(myID, false)
	}
	s.console.PushLine([]byte("** File transfer refused."))
	s.logger.Debug("transfer refused", "peer", from, "id", myID, "reason", reason)
}
