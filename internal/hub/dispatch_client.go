// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package hub

import (
	"errors"
	"fmt"

	"github.com/nishisan-dev/ntalk/internal/command"
	"github.com/nishisan-dev/ntalk/internal/transfer"
)

// buildClientTable returns the command set the hub accepts from a connected
// peer's own channel: /connect, /quit, /who,
// /help, and the four relayed transfer-negotiation commands. Built fresh per
// line so handlers close over both h and the specific peer.
func buildClientTable(h *Hub, peer *Peer) command.Table {
	relay := func(cmdName string) command.Handler {
		return func(args [][]byte) command.Code {
			targetNick := string(args[0])
			target, ok := h.registry.ByNick(targetNick)
			if !ok {
				bounceRefuse(peer, cmdName, args, transfer.ReasonNick)
				return command.OK
			}
			target.Chan.Push(relayLine(cmdName, peer, args))
			_ = h.audit.Log(cmdName, peer.ID, peer.Nickname, targetNick)
			return command.OK
		}
	}

	return command.NewTable([]command.Command{
		{
			Name:  "connect",
			Arity: 1,
			Help:  "/connect <nickname>",
			Handler: func(args [][]byte) command.Code {
				if peer.Authenticated() {
					peer.Chan.PushLine([]byte("*** You are already connected."))
					return command.OK
				}
				nick := string(args[0])
				if err := h.registry.Authenticate(peer, nick); err != nil {
					switch {
					case errors.Is(err, ErrNicknameInvalid):
						peer.Chan.PushLine([]byte("*** Invalid nickname."))
					case errors.Is(err, ErrNicknameTaken):
						peer.Chan.PushLine([]byte("*** Nickname is already taken."))
					default:
						peer.Chan.PushLine([]byte("*** Could not connect."))
					}
					return command.OK
				}
				peer.Chan.PushLinef("** Hello, %s!", nick)
				h.registry.Broadcast([]byte(fmt.Sprintf("** %s connected.\n", nick)), peer)
				h.consoleOut.PushLine([]byte(fmt.Sprintf("** %s connected.", nick)))
				_ = h.audit.Log("connect", peer.ID, nick, peer.Addr)
				return command.OK
			},
		},
		{
			Name:  "quit",
			Arity: 0,
			Help:  "/quit",
			Handler: func(args [][]byte) command.Code {
				peer.Chan.PushLine([]byte("** Goodbye!"))
				h.registry.Broadcast([]byte(fmt.Sprintf("** %s has left server.\n", peer.Nickname)), peer)
				peer.Draining = true
				_ = h.audit.Log("quit", peer.ID, peer.Nickname, "")
				return command.OK
			},
		},
		{
			Name:  "who",
			Arity: 0,
			Help:  "/who",
			Handler: func(args [][]byte) command.Code {
				pushWhoList(h.registry, peer.Chan.Out)
				return command.OK
			},
		},
		{
			Name:  "help",
			Arity: 0,
			Help:  "/help",
			Handler: func(args [][]byte) command.Code {
				for _, line := range []string{
					"*** Commands:",
					"/who                                 list connected nicknames",
					"/quit                                disconnect",
					"/allow <nick>, /forbid <nick>        manage incoming-transfer policy (client-local)",
					"/mode secure|fast                    select transfer transport (client-local)",
					"/transfer <[nick:]path> <[nick:]path> start a file transfer (client-local)",
					"/help                                this list",
				} {
					peer.Chan.PushLine([]byte(line))
				}
				return command.OK
			},
		},
		{Name: "receive", Arity: 4, Help: "/receive <peer> <id> <mode> <name>", Handler: relay("receive")},
		{Name: "send", Arity: 4, Help: "/send <peer> <id> <mode> <name>", Handler: relay("send")},
		{Name: "refuse", Arity: 3, Help: "/refuse <peer> <id> <reason>", Handler: relay("refuse")},
		{Name: "accept", Arity: 4, Help: "/accept <peer> <id-initiator> <id-target> <port>", Handler: relay("accept")},
	})
}
