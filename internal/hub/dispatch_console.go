// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package hub

import (
	"fmt"

	"github.com/nishisan-dev/ntalk/internal/command"
	"github.com/nishisan-dev/ntalk/internal/stats"
)

// buildConsoleTable returns the hub operator's command set: /who, /kill,
// /shutdown, /help, plus the (NEW) /status stats command. Built fresh per
// dispatch so handlers can close over h without widening command.Handler's
// signature.
func buildConsoleTable(h *Hub) command.Table {
	return command.NewTable([]command.Command{
		{
			Name:  "who",
			Arity: 0,
			Help:  "/who",
			Handler: func(args [][]byte) command.Code {
				pushWhoList(h.registry, h.consoleOut)
				return command.OK
			},
		},
		{
			Name:  "kill",
			Arity: 1,
			Help:  "/kill <nick>",
			Handler: func(args [][]byte) command.Code {
				nick := string(args[0])
				target, ok := h.registry.ByNick(nick)
				if !ok {
					h.consoleOut.PushLine([]byte(fmt.Sprintf("*** No such user: %s", nick)))
					return command.OK
				}
				target.Chan.PushLine([]byte("** You have been killed."))
				target.Draining = true
				h.registry.Broadcast([]byte(fmt.Sprintf("** %s has been killed.\n", nick)), target)
				h.consoleOut.PushLine([]byte(fmt.Sprintf("*** Killed %s.", nick)))
				_ = h.audit.Log("kill", target.ID, nick, "")
				return command.OK
			},
		},
		{
			Name:  "shutdown",
			Arity: 0,
			Help:  "/shutdown",
			Handler: func(args [][]byte) command.Code {
				h.registry.Broadcast([]byte("Server is shutting down; closing connections.\n"), nil)
				h.shuttingDown = true
				return command.Terminate
			},
		},
		{
			Name:  "status",
			Arity: 0,
			Help:  "/status",
			Handler: func(args [][]byte) command.Code {
				snap := stats.Collect(h.logger, h.cfg.Stats.DiskPath)
				peers := h.registry.Peers()
				authenticated := 0
				for _, p := range peers {
					if p.Authenticated() {
						authenticated++
					}
				}
				h.consoleOut.PushLine([]byte(fmt.Sprintf(
					"*** peers=%d authenticated=%d cpu=%.1f%% mem=%.1f%% disk=%.1f%% load1=%.2f",
					len(peers), authenticated, snap.CPUPercent, snap.MemoryPercent, snap.DiskUsagePercent, snap.LoadAverage1m,
				)))
				return command.OK
			},
		},
		{
			Name:  "help",
			Arity: 0,
			Help:  "/help",
			Handler: func(args [][]byte) command.Code {
				for _, line := range []string{
					"*** Hub console commands:",
					"/who            list connected nicknames",
					"/kill <nick>    disconnect a participant",
					"/status         report peer counts and host stats",
					"/shutdown       broadcast shutdown notice and exit",
					"/help           this list",
				} {
					h.consoleOut.PushLine([]byte(line))
				}
				return command.OK
			},
		},
	})
}
