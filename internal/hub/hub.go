// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package hub

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/nishisan-dev/ntalk/internal/bytequeue"
	"github.com/nishisan-dev/ntalk/internal/command"
	"github.com/nishisan-dev/ntalk/internal/config"
	"github.com/nishisan-dev/ntalk/internal/eventloop"
	"github.com/nishisan-dev/ntalk/internal/stats"
)

// Hub owns the registry, the accept listener, the operator console, and the
// single event-loop goroutine that mutates all of it; nothing here
// synchronizes internally.
type Hub struct {
	cfg      *config.HubConfig
	logger   *slog.Logger
	registry *Registry
	loop     *eventloop.Loop
	listener net.Listener

	consoleIn  *bytequeue.Queue
	consoleOut *bytequeue.Queue

	audit        *AuditLog
	sweeper      *Sweeper
	shuttingDown bool
}

// New builds a Hub from cfg. It opens the audit log (if configured) but does
// not yet open the listener — that happens in Run, so construction failures
// and bind failures are distinguishable to the caller.
func New(cfg *config.HubConfig, logger *slog.Logger) (*Hub, error) {
	audit, err := NewAuditLog(cfg.AuditLog)
	if err != nil {
		return nil, err
	}
	return &Hub{
		cfg:        cfg,
		logger:     logger,
		registry:   NewRegistry(),
		consoleIn:  bytequeue.New('\n'),
		consoleOut: bytequeue.New('\n'),
		audit:      audit,
	}, nil
}

// Run binds the listener and drives the event loop until ctx is cancelled,
// the console hands up a Terminate code (e.g. /shutdown), or the listener
// fails. It always flushes pending output before returning.
func (h *Hub) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.cfg.Listen.Address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.cfg.Listen.Address, err)
	}
	h.listener = ln
	h.logger.Info("hub listening", "address", ln.Addr().String())

	h.loop = eventloop.New(64)
	defer h.loop.Close()
	defer h.audit.Close()
	defer ln.Close()

	h.loop.WatchListener("listener", ln)
	h.loop.WatchReader("console", os.Stdin)
	if h.cfg.Stats.LogInterval > 0 {
		h.loop.Tick("stats", time.Duration(h.cfg.Stats.LogInterval))
	}

	sweeper, err := NewSweeper(h.cfg.Housekeeping.Schedule, h.loop, h.logger)
	if err != nil {
		return err
	}
	h.sweeper = sweeper
	sweeper.Start()
	defer sweeper.Stop()

	for {
		select {
		case <-ctx.Done():
			h.registry.Broadcast([]byte("Server is shutting down; closing connections.\n"), nil)
			h.flushAll()
			return nil
		case ev := <-h.loop.Events():
			if h.handleEvent(ev) == command.Terminate {
				h.flushAll()
				return nil
			}
		}
		h.flushAll()
	}
}

func (h *Hub) handleEvent(ev eventloop.Event) command.Code {
	switch ev.Kind {
	case eventloop.Accept:
		peer := newPeer("", ev.Conn, h.logger)
		h.registry.Add(peer)
		h.loop.WatchReader(peer.ID, peer.Conn)
		h.logger.Info("peer connected", "peer", peer.ID, "addr", peer.Addr)

	case eventloop.Closed:
		switch ev.ID {
		case "listener":
			h.logger.Error("listener closed", "error", ev.Err)
			return command.Terminate
		case "console":
			return command.Terminate
		default:
			if p, ok := h.registry.Get(ev.ID); ok {
				h.logger.Info("peer disconnected", "peer", p.ID, "nick", p.Nickname, "error", ev.Err)
				_ = h.audit.Log("disconnect", p.ID, p.Nickname, fmt.Sprint(ev.Err))
				h.registry.Remove(p.ID)
				p.Conn.Close()
			}
		}

	case eventloop.Data:
		if ev.ID == "console" {
			h.consoleIn.Put(ev.Data)
			return h.processConsoleLines()
		}
		if p, ok := h.registry.Get(ev.ID); ok && !p.Draining {
			p.Chan.In.Put(ev.Data)
			return h.processPeerLines(p)
		}

	case eventloop.Tick:
		if ev.ID == "stats" {
			snap := stats.Collect(h.logger, h.cfg.Stats.DiskPath)
			h.logger.Info("hub stats",
				"peers", len(h.registry.Peers()),
				"cpu_pct", snap.CPUPercent,
				"mem_pct", snap.MemoryPercent,
				"disk_pct", snap.DiskUsagePercent,
				"load1", snap.LoadAverage1m,
			)
		}

	case eventloop.Housekeeping:
		h.sweepDraining()
		if h.audit.NeedsRotation() {
			if err := h.audit.Rotate(); err != nil {
				h.logger.Error("audit log rotation failed", "error", err)
			}
		}
	}
	return command.OK
}

// processConsoleLines dispatches every complete line currently buffered on
// the operator console. A non-command line (no leading '/') draws a note;
// the console never participates in chat.
func (h *Hub) processConsoleLines() command.Code {
	for {
		line, ok := h.consoleIn.PullLine(0)
		if !ok {
			return command.OK
		}
		payload := line.Payload()
		if len(payload) == 0 || payload[0] != '/' {
			h.consoleOut.PushLine([]byte("*** Not a command. Try /help."))
			continue
		}
		if code := command.Dispatch(buildConsoleTable(h), payload[1:], h.consoleOut, h.consoleOut); code == command.Terminate {
			return command.Terminate
		}
	}
}

// processPeerLines dispatches every complete line currently buffered on
// peer's channel: pre-authentication only "/connect <nick>" is accepted
// (everything else draws the canned not-authenticated message); once
// authenticated, commands dispatch through the client table and plain lines
// are prefixed with "<nick>: " and broadcast.
func (h *Hub) processPeerLines(p *Peer) command.Code {
	for {
		if p.Draining {
			return command.OK
		}
		if !p.Authenticated() {
			line, ok := p.Chan.PullLine()
			if !ok {
				return command.OK
			}
			payload := line.Payload()
			if len(payload) > 0 && payload[0] == '/' {
				tokens := command.Tokenize(payload[1:])
				if len(tokens) > 0 && string(tokens[0]) == "connect" {
					command.Dispatch(buildClientTable(h, p), payload[1:], p.Chan.Out, h.consoleOut)
					continue
				}
			}
			p.Chan.Out.PushLine([]byte(notAuthenticated))
			continue
		}

		reserve := len(p.Nickname) + 2
		line, ok := p.Chan.PullLineReserve(reserve)
		if !ok {
			return command.OK
		}
		payload := line.Payload()
		if len(payload) == 0 {
			continue
		}
		if payload[0] == '/' {
			if code := command.Dispatch(buildClientTable(h, p), payload[1:], p.Chan.Out, h.consoleOut); code == command.Terminate {
				return command.Terminate
			}
			continue
		}

		copy(line.Buf[:reserve], p.Nickname+": ")
		h.registry.Broadcast(append(line.Buf, '\n'), p)
	}
}

// flushAll drains the console's and every peer's pending output, then
// destroys any peer that has finished draining.
func (h *Hub) flushAll() {
	if h.consoleOut.Size() > 0 {
		if _, err := h.consoleOut.Drain(os.Stdout); err != nil {
			h.logger.Error("console output drain failed", "error", err)
		}
	}
	for _, p := range h.registry.Peers() {
		if p.Chan.HasPendingOutput() {
			if _, err := p.Chan.Drain(p.Conn); err != nil {
				h.logger.Debug("peer output drain failed", "peer", p.ID, "error", err)
				h.registry.Remove(p.ID)
				p.Conn.Close()
				continue
			}
		}
		if p.Draining && !p.Chan.HasPendingOutput() {
			h.registry.Remove(p.ID)
			p.Conn.Close()
		}
	}
}

// sweepDraining is the defensive backstop the housekeeping cron job drives:
// normal draining removal happens inline in
// flushAll every loop iteration, so this only ever catches a peer whose
// Conn.Close() was somehow missed.
func (h *Hub) sweepDraining() {
	for _, p := range h.registry.Peers() {
		if p.Draining && !p.Chan.HasPendingOutput() {
			h.logger.Warn("housekeeping reaped a stale draining peer", "peer", p.ID)
			h.registry.Remove(p.ID)
			p.Conn.Close()
		}
	}
}
