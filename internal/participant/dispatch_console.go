// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package participant

import (
	"errors"
	"strconv"

	"github.com/nishisan-dev/ntalk/internal/command"
	"github.com/nishisan-dev/ntalk/internal/policy"
)

// consoleTable returns the client-local command set. /connect, /quit and
// /who never reach this table while connected (processConsoleLines forwards
// them to the hub verbatim), so the connect/quit handlers here only see the
// unconnected state. Built fresh per dispatch so handlers close over s.
func (s *Session) consoleTable() command.Table {
	return command.NewTable([]command.Command{
		{
			Name:     "connect",
			Arity:    2,
			MaxArity: 3,
			Help:     "/connect <nick> <host> [port]",
			Handler: func(args [][]byte) command.Code {
				nick, host := string(args[0]), string(args[1])
				port := strconv.Itoa(s.cfg.Hub.Port)
				if len(args) == 3 {
					port = string(args[2])
				}
				if !policy.ValidNickname(nick) {
					s.console.PushLine([]byte("*** Invalid nickname."))
					return command.OK
				}
				s.connectHub(nick, host, port)
				return command.OK
			},
		},
		{
			Name:  "quit",
			Arity: 0,
			Help:  "/quit",
			Handler: func(args [][]byte) command.Code {
				return command.Terminate
			},
		},
		{
			Name:  "forbid",
			Arity: 1,
			Help:  "/forbid <nick>",
			Handler: func(args [][]byte) command.Code {
				nick := string(args[0])
				if err := s.forbids.Forbid(nick); err != nil {
					if errors.Is(err, policy.ErrAlreadyForbidden) {
						s.console.PushLinef("*** %s is already forbidden.", nick)
					}
					return command.OK
				}
				s.console.PushLinef("*** Transfers from %s will be refused.", nick)
				return command.OK
			},
		},
		{
			Name:  "allow",
			Arity: 1,
			Help:  "/allow <nick>",
			Handler: func(args [][]byte) command.Code {
				nick := string(args[0])
				if err := s.forbids.Allow(nick); err != nil {
					if errors.Is(err, policy.ErrNotForbidden) {
						s.console.PushLinef("*** %s is not forbidden.", nick)
					}
					return command.OK
				}
				s.console.PushLinef("*** Transfers from %s are allowed again.", nick)
				return command.OK
			},
		},
		{
			Name:  "mode",
			Arity: 1,
			Help:  "/mode secure|fast",
			Handler: func(args [][]byte) command.Code {
				m, ok := policy.ParseMode(string(args[0]))
				if !ok {
					s.console.PushLinef("*** Unknown mode %q; use secure or fast.", string(args[0]))
					return command.OK
				}
				s.mode = m
				s.console.PushLinef("*** Transfer mode set to %s.", m)
				return command.OK
			},
		},
		{
			Name:  "transfer",
			Arity: 2,
			Help:  "/transfer <[nick:]path> <[nick:]path>",
			Handler: func(args [][]byte) command.Code {
				s.startTransfer(string(args[0]), string(args[1]))
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
					"/connect <nick> <host> [port]         connect to a hub",
					"/who                                  list connected nicknames",
					"/quit                                 leave and exit",
					"/allow <nick>, /forbid <nick>         manage who may transfer files with you",
					"/mode secure|fast                     select transfer transport",
					"/transfer <[nick:]path> <[nick:]path> start a file transfer",
					"/help                                 this list",
				} {
					s.console.PushLine([]byte(line))
				}
				return command.OK
			},
		},
	})
}
