// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package participant implements the client side of the talk protocol: the
// interactive console, the channel to the hub, and the table of in-flight
// file transfers negotiated with other participants.
package participant

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/nishisan-dev/ntalk/internal/command"
	"github.com/nishisan-dev/ntalk/internal/config"
	"github.com/nishisan-dev/ntalk/internal/eventloop"
	"github.com/nishisan-dev/ntalk/internal/linechannel"
	"github.com/nishisan-dev/ntalk/internal/logging"
	"github.com/nishisan-dev/ntalk/internal/policy"
	"github.com/nishisan-dev/ntalk/internal/transfer"
)

const notConnected = "*** Not connected. Use /connect <nick> <host> [port]."

// Session is one participant process: its console, the hub channel once
// /connect succeeds, the transfer table, and the local transfer policy. Like
// the hub, everything here is mutated from the single event-loop goroutine
// inside Run, so nothing synchronizes internally.
type Session struct {
	cfg    *config.ClientConfig
	logger *slog.Logger
	loop   *eventloop.Loop
	ctx    context.Context

	console *linechannel.Channel
	stdout  io.Writer

	hub      *linechannel.Channel // nil until /connect succeeds
	hubConn  net.Conn
	nick     string
	quitting bool // /quit was forwarded; terminate once the hub hangs up

	transfers   *transfer.Table
	forbids     *policy.ForbidSet
	mode        policy.Mode
	sessionLogs map[string]sessionLog
}

// sessionLog is the per-transfer dedicated log file, closed when the
// transfer ends and removed when it ended successfully.
type sessionLog struct {
	closer io.Closer
	id     string
}

// New builds a Session from cfg. The console is bound to the process's
// standard streams; the hub channel stays absent until the operator runs
// /connect.
func New(cfg *config.ClientConfig, logger *slog.Logger) *Session {
	return &Session{
		cfg:         cfg,
		logger:      logger,
		console:     linechannel.New('\n'),
		stdout:      os.Stdout,
		transfers:   transfer.NewTable(),
		forbids:     policy.NewForbidSet(),
		mode:        policy.Stream,
		sessionLogs: make(map[string]sessionLog),
	}
}

// Run drives the event loop until ctx is cancelled or the console hands up a
// Terminate code (/quit, or console EOF). It always flushes pending output
// before returning, like the hub's Run.
func (s *Session) Run(ctx context.Context) error {
	s.ctx = ctx
	s.loop = eventloop.New(64)
	defer s.loop.Close()

	s.loop.WatchReader("console", os.Stdin)
	s.console.PushLine([]byte("*** ntalk client ready. /connect <nick> <host> [port] to join a hub."))
	s.flushAll()

	for {
		select {
		case <-ctx.Done():
			s.flushAll()
			s.teardown()
			return nil
		case ev := <-s.loop.Events():
			if s.handleEvent(ev) == command.Terminate {
				s.flushAll()
				s.teardown()
				return nil
			}
		}
		s.flushAll()
	}
}

func (s *Session) handleEvent(ev eventloop.Event) command.Code {
	switch ev.Kind {
	case eventloop.Data:
		switch ev.ID {
		case "console":
			s.console.In.Put(ev.Data)
			return s.processConsoleLines()
		case "hub":
			if s.hub == nil {
				return command.OK
			}
			s.hub.In.Put(ev.Data)
			return s.processHubLines()
		}

	case eventloop.Closed:
		switch ev.ID {
		case "console":
			return command.Terminate
		case "hub":
			if s.hub == nil {
				return command.OK
			}
			s.disconnectHub()
			if s.quitting {
				return command.Terminate
			}
			s.console.PushLine([]byte("*** Connection to hub closed."))
		}

	case eventloop.TransferRendezvous:
		tr, ok := s.transfers.Get(ev.ID)
		if !ok {
			return command.OK
		}
		if ev.Err != nil {
			tr.Log.Error("transfer rendezvous failed", "error", ev.Err)
			s.console.PushLine([]byte("*** File transfer failed."))
			s.removeTransfer(ev.ID, false)
			return command.OK
		}
		tr.CompleteRendezvous(ev)
		tr.BeginBulkCopy(s.ctx, s.loop, s.cfg.Transfer.MaxBytesPerSecRaw)

	case eventloop.TransferDone:
		tr, ok := s.transfers.Get(ev.ID)
		if !ok {
			return command.OK
		}
		if ev.Err != nil {
			tr.Log.Error("transfer failed", "error", ev.Err)
			s.console.PushLine([]byte("*** File transfer failed."))
			s.removeTransfer(ev.ID, false)
			return command.OK
		}
		tr.Log.Info("transfer complete", "file", tr.Name, "peer", tr.PeerNick)
		s.console.PushLine([]byte("** File successfully transferred."))
		s.removeTransfer(ev.ID, true)
	}
	return command.OK
}

// processConsoleLines dispatches every complete line currently buffered on
// the console. Before /connect only /connect and /quit are accepted; once
// connected, /connect, /quit and /who forward verbatim to the hub, the
// client-local commands dispatch through the console table, and a plain line
// is sent to the hub as a chat message.
func (s *Session) processConsoleLines() command.Code {
	for {
		line, ok := s.console.PullLine()
		if !ok {
			return command.OK
		}
		payload := line.Payload()
		if len(payload) == 0 {
			continue
		}

		if payload[0] != '/' {
			if s.hub == nil {
				s.console.PushLine([]byte(notConnected))
				continue
			}
			s.hub.PushLine(payload)
			continue
		}

		tokens := command.Tokenize(payload[1:])
		name := ""
		if len(tokens) > 0 {
			name = string(tokens[0])
		}

		if s.hub == nil {
			if name != "connect" && name != "quit" {
				s.console.PushLine([]byte(notConnected))
				continue
			}
		} else if forwardedToHub(name) {
			if name == "quit" {
				s.quitting = true
			}
			s.hub.PushLine(payload)
			continue
		}

		if code := command.Dispatch(s.consoleTable(), payload[1:], s.console.Out, s.console.Out); code == command.Terminate {
			return command.Terminate
		}
	}
}

// forwardedToHub reports whether a connected session passes the command
// through to the hub unchanged instead of handling it locally.
func forwardedToHub(name string) bool {
	return name == "connect" || name == "quit" || name == "who"
}

// processHubLines dispatches every complete line currently buffered on the
// hub channel: commands drive the transfer engine, anything else is a chat
// or notice line printed on the console.
func (s *Session) processHubLines() command.Code {
	for {
		line, ok := s.hub.PullLine()
		if !ok {
			return command.OK
		}
		payload := line.Payload()
		if len(payload) == 0 {
			continue
		}
		if payload[0] == '/' {
			if code := command.Dispatch(s.hubTable(), payload[1:], s.console.Out, s.console.Out); code == command.Terminate {
				return command.Terminate
			}
			continue
		}
		s.console.PushLine(payload)
	}
}

// connectHub resolves and dials the hub, installs the hub channel, and sends
// the authentication line. Failures print a descriptive console line and
// leave the session unconnected.
func (s *Session) connectHub(nick, host, port string) {
	conn, err := net.Dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			s.console.PushLinef("*** Could not resolve %s: %v", host, dnsErr)
		} else {
			s.console.PushLinef("*** Could not connect to %s:%s: %v", host, port, err)
		}
		return
	}

	s.hubConn = conn
	s.hub = linechannel.New('\n')
	s.nick = nick
	s.loop.WatchReader("hub", conn)
	s.hub.PushLinef("/connect %s", nick)
	s.logger.Info("connected to hub", "host", host, "port", port, "nick", nick)
}

// disconnectHub drops the hub channel, leaving the session unconnected.
// In-flight transfers keep running: their peer sockets do not depend on the
// hub connection once the rendezvous completed.
func (s *Session) disconnectHub() {
	if s.hubConn != nil {
		s.hubConn.Close()
	}
	s.hub = nil
	s.hubConn = nil
	s.nick = ""
}

// flushAll drains the console's and the hub channel's pending output. A
// failed hub drain tears the hub connection down the same way a Closed event
// would.
func (s *Session) flushAll() {
	if s.console.HasPendingOutput() {
		if _, err := s.console.Drain(s.stdout); err != nil {
			s.logger.Error("console output drain failed", "error", err)
		}
	}
	if s.hub != nil && s.hub.HasPendingOutput() {
		if _, err := s.hub.Drain(s.hubConn); err != nil {
			s.logger.Warn("hub output drain failed", "error", err)
			s.disconnectHub()
			s.console.PushLine([]byte("*** Connection to hub closed."))
			if s.console.HasPendingOutput() {
				_, _ = s.console.Drain(s.stdout)
			}
		}
	}
}

// teardown closes the hub connection and destroys every in-flight transfer.
func (s *Session) teardown() {
	for _, tr := range s.transfers.All() {
		s.removeTransfer(tr.ID, false)
	}
	s.disconnectHub()
}

// attachSessionLog gives tr a scoped logger and, when a session log
// directory is configured, a dedicated per-transfer log file.
func (s *Session) attachSessionLog(tr *transfer.Transfer) {
	lg, closer, _, err := logging.NewSessionLogger(s.logger, s.cfg.Logging.SessionDir, "transfer", tr.ID)
	if err != nil {
		s.logger.Warn("could not open transfer session log", "transfer", tr.ID, "error", err)
		lg = s.logger
	} else if closer != nil {
		s.sessionLogs[tr.ID] = sessionLog{closer: closer, id: tr.ID}
	}
	tr.Log = lg.With("transfer", tr.ID, "peer", tr.PeerNick, "file", tr.Name)
}

// removeTransfer destroys the transfer and its session log. A successful
// transfer's dedicated log file is removed; a failed one's is kept for
// inspection.
func (s *Session) removeTransfer(id string, success bool) {
	s.transfers.Remove(id)
	if sl, ok := s.sessionLogs[id]; ok {
		delete(s.sessionLogs, id)
		if sl.closer != nil {
			sl.closer.Close()
		}
		if success {
			logging.RemoveSessionLog(s.cfg.Logging.SessionDir, "transfer", sl.id)
		}
	}
}
